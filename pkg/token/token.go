// Package token issues and verifies the stateless administrator session
// credential. A credential carries an identity and an absolute expiry; it is
// never stored server-side, so validity is recomputed from the signature on
// every request.
package token

import (
	"errors"
	"time"
)

// ErrInvalidToken is returned for every verification failure: malformed
// input, bad signature, undecodable claims or an expired credential.
var ErrInvalidToken = errors.New("invalid session token")

// Claims is the payload of a session credential.
type Claims struct {
	Email     string
	ExpiresAt time.Time
}

// Codec signs and verifies session credentials.
type Codec interface {
	Issue(claims Claims) (string, error)
	Verify(token string) (Claims, error)
	Name() string
}

// Options configures a Codec.
type Options struct {
	// Now overrides the clock used for expiry checks.
	Now func() time.Time
}

func (o Options) clock() func() time.Time {
	if o.Now != nil {
		return o.Now
	}
	return time.Now
}

// Formats accepted by New.
const (
	FormatHMAC = "hmac"
	FormatJWT  = "jwt"
)

// New builds the codec named by format. An empty format selects FormatHMAC.
func New(format, secret string, opts Options) (Codec, error) {
	switch format {
	case "", FormatHMAC:
		return NewHMACCodec(secret, opts), nil
	case FormatJWT:
		return NewJWTCodec(secret, opts), nil
	default:
		return nil, errors.New("unknown token format: " + format)
	}
}
