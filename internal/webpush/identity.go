package webpush

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// privateScalarLen is the length of a raw P-256 private scalar.
const privateScalarLen = 32

var (
	// ErrInvalidPrivateKey is returned when the VAPID private key is not a
	// valid base64url P-256 scalar.
	ErrInvalidPrivateKey = errors.New("webpush: invalid VAPID private key")
	// ErrInvalidPublicKey is returned when the VAPID public key is not a
	// valid base64url uncompressed P-256 point.
	ErrInvalidPublicKey = errors.New("webpush: invalid VAPID public key")
	// ErrKeyMismatch is returned when the configured public key does not
	// belong to the configured private key.
	ErrKeyMismatch = errors.New("webpush: VAPID public key does not match private key")
	// ErrMissingSubject is returned when no sender contact URI is configured.
	ErrMissingSubject = errors.New("webpush: VAPID subject is required")
)

// Identity is the process-wide VAPID sender identity: one ECDSA P-256 key
// pair and the contact URI asserted to push relays. Immutable once built;
// construct it at startup and inject it where needed.
type Identity struct {
	privateKey *ecdsa.PrivateKey
	publicKey  string // base64url uncompressed point, as distributed to subscribers
	subject    string // contact URI for the sub claim
}

// NewIdentity parses a base64url raw P-256 scalar and the matching base64url
// uncompressed public point, and returns the sender identity. subject is the
// admin contact; a bare address is given the mailto: scheme. The public key
// is checked against the private scalar so a misconfigured pair fails at
// startup instead of producing tokens no relay accepts.
func NewIdentity(privateB64, publicB64, subject string) (*Identity, error) {
	raw, err := DecodeKey(privateB64)
	if err != nil || len(raw) != privateScalarLen {
		return nil, ErrInvalidPrivateKey
	}
	ecdhPriv, err := ecdh.P256().NewPrivateKey(raw)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	derivedPub := ecdhPriv.PublicKey().Bytes()

	configuredPub, err := DecodeKey(publicB64)
	if err != nil || len(configuredPub) != subscriberKeyLen || configuredPub[0] != 0x04 {
		return nil, ErrInvalidPublicKey
	}
	if string(configuredPub) != string(derivedPub) {
		return nil, ErrKeyMismatch
	}

	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, ErrMissingSubject
	}
	if !strings.Contains(subject, ":") {
		subject = "mailto:" + subject
	}

	priv := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(derivedPub[1:33]),
			Y:     new(big.Int).SetBytes(derivedPub[33:]),
		},
		D: new(big.Int).SetBytes(raw),
	}
	return &Identity{privateKey: priv, publicKey: EncodeKey(derivedPub), subject: subject}, nil
}

// PublicKey returns the sender's public key as base64url uncompressed point,
// the value browsers receive at subscribe time.
func (id *Identity) PublicKey() string {
	return id.publicKey
}

// Subject returns the contact URI asserted in the sub claim.
func (id *Identity) Subject() string {
	return id.subject
}

// GenerateKeys creates a new VAPID P-256 key pair and returns the private
// scalar and uncompressed public point, both base64url.
func GenerateKeys() (privateB64, publicB64 string, err error) {
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return "", "", err
	}
	return EncodeKey(key.Bytes()), EncodeKey(key.PublicKey().Bytes()), nil
}
