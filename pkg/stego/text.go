package stego

import (
	"encoding/base64"
	"strings"
)

// EncodeText returns the URL-safe base64 form of b without padding.
func EncodeText(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeText reverses EncodeText. Trailing '=' padding is accepted.
func DecodeText(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
