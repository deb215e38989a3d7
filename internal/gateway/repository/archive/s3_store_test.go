package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// s3Stub answers the handful of S3 calls the store makes and records them.
type s3Stub struct {
	mu    sync.Mutex
	calls []string
}

func (s *s3Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	s.mu.Lock()
	s.calls = append(s.calls, r.Method+" "+r.URL.Path)
	s.mu.Unlock()
	switch r.Method {
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (s *s3Stub) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func newStubbedS3Store(t *testing.T) (*S3Store, *s3Stub) {
	t.Helper()
	stub := &s3Stub{}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	store, err := NewS3Store(S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "chatrelay-archive",
	})
	require.NoError(t, err)
	return store, stub
}

func TestS3StoreRetriesBucketCheckAfterCancelledCall(t *testing.T) {
	store, stub := newStubbedS3Store(t)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err := store.Put(cancelled, "transcripts/1-1.json.xz", []byte("x"))
	require.ErrorContains(t, err, "context canceled")
	require.Empty(t, stub.recorded())

	require.NoError(t, store.Put(context.Background(), "transcripts/1-1.json.xz", []byte("x")))
	calls := stub.recorded()
	require.Len(t, calls, 2)
	require.True(t, strings.HasPrefix(calls[0], "HEAD /chatrelay-archive"), calls[0])
	require.Equal(t, "PUT /chatrelay-archive/transcripts/1-1.json.xz", calls[1])

	// a successful check is remembered
	require.NoError(t, store.Put(context.Background(), "transcripts/2-2.json.xz", []byte("y")))
	calls = stub.recorded()
	require.Len(t, calls, 3)
	require.Equal(t, "PUT /chatrelay-archive/transcripts/2-2.json.xz", calls[2])
}
