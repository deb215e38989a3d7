package archive

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"chatrelay/internal/gateway/entity"
	"chatrelay/internal/util/jsonutil"

	"github.com/ulikunitz/xz"
)

const (
	KeyPrefix   = "transcripts/"
	ContentType = "application/x-xz"
)

// TranscriptKey names the object for a history cleared at epoch.
func TranscriptKey(epoch int64, at time.Time) string {
	return fmt.Sprintf("%s%d-%d.json.xz", KeyPrefix, epoch, at.UnixNano())
}

// EncodeTranscript renders msgs as a JSON array and xz-compresses it.
func EncodeTranscript(msgs []entity.Message) ([]byte, error) {
	if msgs == nil {
		msgs = []entity.Message{}
	}
	raw, err := jsonutil.MarshalNoEscape(msgs)
	if err != nil {
		return nil, fmt.Errorf("marshal transcript: %w", err)
	}
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("init xz writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("compress transcript: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress transcript: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeTranscriptJSON returns the decompressed JSON array.
func DecodeTranscriptJSON(compressed []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open xz stream: %w", err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompress transcript: %w", err)
	}
	return raw, nil
}

func DecodeTranscript(compressed []byte) ([]entity.Message, error) {
	raw, err := DecodeTranscriptJSON(compressed)
	if err != nil {
		return nil, err
	}
	var msgs []entity.Message
	if err := jsonutil.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	return msgs, nil
}
