// Package idcodec translates internal identifiers to and from the opaque
// form used in URLs.
package idcodec

import "encoding/base64"

// Encode returns the URL-safe form of an internal identifier.
func Encode(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// Decode reverses Encode. It fails on input that is not valid
// unpadded URL-safe base64.
func Decode(encoded string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
