package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

const separator = "."

// payload is the canonical byte encoding of Claims. Expiry is kept in Unix
// milliseconds.
type payload struct {
	Email string `json:"email"`
	Exp   int64  `json:"exp"`
}

// HMACCodec produces "<base64url(payload)>.<base64url(HMAC-SHA256(payload))>".
type HMACCodec struct {
	secret []byte
	now    func() time.Time
}

// NewHMACCodec builds an HMACCodec signing with secret.
func NewHMACCodec(secret string, opts Options) *HMACCodec {
	return &HMACCodec{secret: []byte(secret), now: opts.clock()}
}

// Issue encodes and signs claims.
func (c *HMACCodec) Issue(claims Claims) (string, error) {
	raw, err := json.Marshal(payload{Email: claims.Email, Exp: claims.ExpiresAt.UnixMilli()})
	if err != nil {
		return "", err
	}
	data := base64.RawURLEncoding.EncodeToString(raw)
	return data + separator + c.sign(data), nil
}

// Verify checks the signature and expiry of token and returns its claims.
func (c *HMACCodec) Verify(token string) (Claims, error) {
	parts := strings.Split(token, separator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Claims{}, ErrInvalidToken
	}

	if !hmac.Equal([]byte(c.sign(parts[0])), []byte(parts[1])) {
		return Claims{}, ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if p.Exp == 0 {
		return Claims{}, ErrInvalidToken
	}

	expires := time.UnixMilli(p.Exp)
	if c.now().After(expires) {
		return Claims{}, ErrInvalidToken
	}
	return Claims{Email: p.Email, ExpiresAt: expires}, nil
}

func (c *HMACCodec) Name() string {
	return FormatHMAC
}

func (c *HMACCodec) sign(data string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
