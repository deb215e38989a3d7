package jsonutil

import (
	"bytes"
	"encoding/json"
	"io"
)

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// MarshalNoEscape encodes v into JSON without escaping <, >, & into \u003c, etc.
// Chat content is shown verbatim by clients, so the escapes only add noise.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Remove trailing newline from json.Encoder.Encode
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeLenient reads a JSON object from r into v. Malformed or empty input
// leaves v untouched and reports false instead of failing, so handlers can
// treat a bad body as an empty one.
func DecodeLenient(r io.Reader, v any) bool {
	if r == nil {
		return false
	}
	raw, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return false
	}
	if !json.Valid(raw) {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
