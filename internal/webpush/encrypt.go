package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// subscriberKeyLen is the length of an uncompressed P-256 point.
	subscriberKeyLen = 65
	// authSecretLen is the length of the subscriber's auth secret.
	authSecretLen = 16
	// saltLen is the length of the per-message salt in the record header.
	saltLen = 16
	// recordSize is the rs field written into the record header.
	recordSize = 4096

	cekInfo   = "Content-Encoding: aes128gcm\x00"
	nonceInfo = "Content-Encoding: nonce\x00"
	keyInfo   = "WebPush: info\x00"
)

var (
	// ErrInvalidSubscriberKey is returned when the subscriber's p256dh key
	// is not a valid base64url uncompressed P-256 point.
	ErrInvalidSubscriberKey = errors.New("webpush: invalid subscriber public key")
	// ErrInvalidAuthSecret is returned when the subscriber's auth secret is
	// not 16 base64url-encoded bytes.
	ErrInvalidAuthSecret = errors.New("webpush: invalid subscriber auth secret")
)

// Encrypt seals plaintext for the subscriber identified by the base64url
// p256dh public key and auth secret, and returns the aes128gcm binary
// record: salt(16) || rs(4, big-endian) || idlen(1)=65 || ephemeral public
// key(65) || ciphertext. A fresh ephemeral key pair and salt are generated
// per message, so output differs on every call for the same input.
//
// Any failure to produce valid key material returns a typed error; callers
// must treat that as a permanent failure for this subscriber and never send
// the payload unencrypted instead.
func Encrypt(plaintext []byte, p256dh, auth string) ([]byte, error) {
	subscriberKey, err := DecodeKey(p256dh)
	if err != nil || len(subscriberKey) != subscriberKeyLen || subscriberKey[0] != 0x04 {
		return nil, ErrInvalidSubscriberKey
	}
	authSecret, err := DecodeKey(auth)
	if err != nil || len(authSecret) != authSecretLen {
		return nil, ErrInvalidAuthSecret
	}

	curve := ecdh.P256()
	subscriberPub, err := curve.NewPublicKey(subscriberKey)
	if err != nil {
		return nil, ErrInvalidSubscriberKey
	}
	ephemeral, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("webpush: generate ephemeral key: %w", err)
	}
	sharedSecret, err := ephemeral.ECDH(subscriberPub)
	if err != nil {
		return nil, ErrInvalidSubscriberKey
	}
	ephemeralPub := ephemeral.PublicKey().Bytes()

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("webpush: generate salt: %w", err)
	}

	cek, nonce, err := deriveKeys(sharedSecret, authSecret, subscriberKey, ephemeralPub, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, fmt.Errorf("webpush: content encryption key: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("webpush: aes-gcm: %w", err)
	}

	// Padding prefix: 2-byte big-endian pad length, zero unless padding is
	// deliberately added.
	padded := make([]byte, 0, 2+len(plaintext))
	padded = append(padded, 0x00, 0x00)
	padded = append(padded, plaintext...)
	ciphertext := gcm.Seal(nil, nonce, padded, nil)

	record := make([]byte, 0, saltLen+4+1+subscriberKeyLen+len(ciphertext))
	record = append(record, salt...)
	record = binary.BigEndian.AppendUint32(record, recordSize)
	record = append(record, byte(subscriberKeyLen))
	record = append(record, ephemeralPub...)
	record = append(record, ciphertext...)
	return record, nil
}

// deriveKeys runs the two-extract, two-expand HKDF chain that turns the
// ECDH shared secret into the content-encryption key and nonce. The key
// context binds both public keys, remote (subscriber) then local
// (ephemeral); the same chain in reverse yields the receiver's keys.
func deriveKeys(sharedSecret, authSecret, subscriberKey, ephemeralPub, salt []byte) (cek, nonce []byte, err error) {
	prkKey := hkdf.Extract(sha256.New, sharedSecret, authSecret)

	info := make([]byte, 0, len(keyInfo)+2*subscriberKeyLen)
	info = append(info, keyInfo...)
	info = append(info, subscriberKey...)
	info = append(info, ephemeralPub...)
	ikm, err := expand(prkKey, info, 32)
	if err != nil {
		return nil, nil, err
	}

	prk := hkdf.Extract(sha256.New, ikm, salt)
	cek, err = expand(prk, []byte(cekInfo), 16)
	if err != nil {
		return nil, nil, err
	}
	nonce, err = expand(prk, []byte(nonceInfo), 12)
	if err != nil {
		return nil, nil, err
	}
	return cek, nonce, nil
}

// expand reads length bytes from a single-block HKDF expansion. All outputs
// needed here are at most 32 bytes, one SHA-256 block.
func expand(prk, info []byte, length int) ([]byte, error) {
	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, info), out); err != nil {
		return nil, fmt.Errorf("webpush: hkdf expand: %w", err)
	}
	return out, nil
}
