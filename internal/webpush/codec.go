// Package webpush implements the sender side of encrypted Web Push:
// aes128gcm payload encryption (ECDH P-256 key agreement, HKDF key
// derivation, AES-128-GCM) and VAPID authentication headers.
package webpush

import (
	"encoding/base64"
	"strings"
)

// EncodeKey encodes raw key material as unpadded base64url, the encoding
// used for all push key material on the wire.
func EncodeKey(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeKey decodes base64url key material. Browsers differ on padding, so
// both padded and unpadded input are accepted.
func DecodeKey(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
