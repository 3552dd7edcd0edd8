// Package transport converts arbitrary bytes to and from a printable
// 64-symbol text form so serialized snapshots survive text-only channels
// (chat links, clipboards, forum posts).
//
// Encode is standard base64 with '=' padding. Decode first strips every
// byte outside the alphabet, so whitespace and line breaks injected in
// transit do not break a blob.
package transport

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrDecode indicates text that is not a valid encoding after noise
// stripping (truncated blob, misplaced padding).
var ErrDecode = errors.New("decode error")

// Encode renders data in the transport alphabet: 3-byte groups become 4
// symbols of A-Z a-z 0-9 + /, with one '=' pad for a 2-byte remainder and
// two for a 1-byte remainder.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode inverts Encode. Characters outside the alphabet and pad symbol
// are discarded before decoding; whatever remains must be a well-formed
// encoding or Decode fails with ErrDecode.
func Decode(text string) ([]byte, error) {
	cleaned := strings.Map(keepAlphabet, text)
	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}

func keepAlphabet(r rune) rune {
	switch {
	case r >= 'A' && r <= 'Z':
		return r
	case r >= 'a' && r <= 'z':
		return r
	case r >= '0' && r <= '9':
		return r
	case r == '+' || r == '/' || r == '=':
		return r
	default:
		return -1
	}
}
