package poetenclave

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// canonicalJSON encodes v the same way every time: struct field order is
// fixed by the Go struct declaration (encoding/json never reorders it), no
// HTML-escaping rewrites the bytes, and no trailing newline is appended.
// Every place a signature is computed over a JSON payload -- the
// verification report, artifact serialization, the wait-certificate nonce
// source -- goes through this one function so that two peers constructing
// the same logical object always produce identical bytes.
func canonicalJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", errors.Wrap(err, "canonical json encode")
	}
	// json.Encoder.Encode always appends a trailing newline; strip it so the
	// signed bytes match exactly what a caller re-marshaling with
	// json.Marshal (no encoder) would produce.
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// fromCanonicalJSON parses previously canonicalJSON-encoded (or any
// equivalent) JSON text into v. Callers that need to verify a signature
// over the original bytes must keep those bytes around separately -- this
// function does not guarantee re-encoding them would reproduce the input.
func fromCanonicalJSON(data string, v interface{}) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return errors.Wrap(err, "canonical json decode")
	}
	return nil
}
