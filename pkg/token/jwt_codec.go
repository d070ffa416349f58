package token

import (
	"crypto/hmac"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// JWTCodec carries the same claims in an HS256 JSON Web Token. Expiry has
// one-second resolution.
type JWTCodec struct {
	secret []byte
	now    func() time.Time
}

// NewJWTCodec builds a JWTCodec signing with secret.
func NewJWTCodec(secret string, opts Options) *JWTCodec {
	return &JWTCodec{secret: []byte(secret), now: opts.clock()}
}

// Issue signs claims into a JWT.
func (c *JWTCodec) Issue(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": claims.Email,
		"exp":   claims.ExpiresAt.Unix(),
		"iat":   c.now().Unix(),
	})
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token, checking the algorithm, signature and expiry.
func (c *JWTCodec) Verify(token string) (Claims, error) {
	parser := &jwt.Parser{SkipClaimsValidation: true}
	parsed, err := parser.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	// The parser decodes the signature segment leniently, so unused trailing
	// bits could change without failing. Require the canonical encoding.
	if !c.canonicalSignature(parsed) {
		return Claims{}, ErrInvalidToken
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	email, ok := mc["email"].(string)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	// MapClaims decodes numbers as float64.
	exp, ok := mc["exp"].(float64)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	expires := time.Unix(int64(exp), 0)
	if c.now().After(expires) {
		return Claims{}, ErrInvalidToken
	}
	return Claims{Email: email, ExpiresAt: expires}, nil
}

func (c *JWTCodec) canonicalSignature(t *jwt.Token) bool {
	i := strings.LastIndex(t.Raw, ".")
	if i < 0 {
		return false
	}
	want, err := t.Method.Sign(t.Raw[:i], c.secret)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(want), []byte(t.Raw[i+1:]))
}

func (c *JWTCodec) Name() string {
	return FormatJWT
}
