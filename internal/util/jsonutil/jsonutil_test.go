package jsonutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalNoEscape(t *testing.T) {
	out, err := MarshalNoEscape(map[string]string{"content": "<b>&</b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"content":"<b>&</b>"}`, string(out))
}

func TestDecodeLenient(t *testing.T) {
	type body struct {
		Role string `json:"role"`
	}
	tests := []struct {
		name string
		in   string
		ok   bool
		want string
	}{
		{name: "valid", in: `{"role":"user"}`, ok: true, want: "user"},
		{name: "empty", in: ``, ok: false},
		{name: "garbage", in: `role=user`, ok: false},
		{name: "wrong type", in: `{"role":5}`, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b body
			ok := DecodeLenient(strings.NewReader(tt.in), &b)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, b.Role)
			}
		})
	}
}
