package webpush

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTTL is the lifetime of a VAPID token. Relays reject anything over 24h.
const tokenTTL = 12 * time.Hour

var (
	// ErrInvalidEndpoint is returned when a subscription endpoint is not an
	// absolute http(s) URL and no audience can be derived from it.
	ErrInvalidEndpoint = errors.New("webpush: invalid subscription endpoint")
	// ErrSigningFailed is returned when the VAPID token cannot be signed.
	// This is a sender configuration failure, not a subscriber problem.
	ErrSigningFailed = errors.New("webpush: VAPID token signing failed")
)

// Authorization returns the Authorization header value for one relay
// endpoint: "vapid t=<jwt>, k=<public key>". The token is an ES256 JWT with
// aud set to the endpoint's scheme and host, exp now+12h, and sub the sender
// contact. The signature is the raw 64-byte r||s form, not DER.
func (id *Identity) Authorization(endpoint string, now time.Time) (string, error) {
	aud, err := Audience(endpoint)
	if err != nil {
		return "", err
	}
	claims := jwt.MapClaims{
		"aud": aud,
		"exp": now.Add(tokenTTL).Unix(),
		"sub": id.subject,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(id.privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	return fmt.Sprintf("vapid t=%s, k=%s", token, id.publicKey), nil
}

// Audience derives the VAPID audience from a subscription endpoint: the
// scheme and host of the relay, not the full URL.
func Audience(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return "", ErrInvalidEndpoint
	}
	return u.Scheme + "://" + u.Host, nil
}
