package services

import (
	"fmt"
	"time"

	"veloce/internal/apperrors"
	"veloce/pkg/token"

	"go.uber.org/zap"
)

// AuthConfig describes the single administrator.
type AuthConfig struct {
	AdminEmail   string
	PasswordHash string
	// SessionTTL is the validity window of an issued credential.
	SessionTTL time.Duration
	// Now overrides the clock; tests only.
	Now func() time.Time
}

// Session is an issued administrator credential.
type Session struct {
	Token     string
	Email     string
	ExpiresAt time.Time
}

// AuthService gates privileged operations to the configured administrator.
type AuthService struct {
	codec  token.Codec
	hasher token.PasswordHasher
	cfg    AuthConfig
	log    *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(codec token.Codec, hasher token.PasswordHasher, cfg AuthConfig, log *zap.Logger) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour // Original admin session length
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AuthService{
		codec:  codec,
		hasher: hasher,
		cfg:    cfg,
		log:    log,
	}
}

// ResolveAdminHash returns the stored hash, or hashes the plaintext fallback
// once at startup. It returns "" when neither is configured.
func ResolveAdminHash(hasher token.PasswordHasher, hash, plaintext string) (string, error) {
	if hash != "" {
		return hash, nil
	}
	if plaintext == "" {
		return "", nil
	}
	hashed, err := hasher.Hash(plaintext)
	if err != nil {
		return "", fmt.Errorf("failed to hash admin password: %w", err)
	}
	return hashed, nil
}

// Configured reports whether an administrator can log in at all.
func (s *AuthService) Configured() bool {
	return s.cfg.AdminEmail != "" && s.cfg.PasswordHash != ""
}

// Login checks the administrator credentials and issues a session.
func (s *AuthService) Login(email, password string) (*Session, error) {
	if !s.Configured() {
		return nil, fmt.Errorf("%w: admin credentials not configured", apperrors.ErrUnauthorized)
	}
	// Same message for unknown identity and wrong password.
	if email != s.cfg.AdminEmail {
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}
	if err := s.hasher.Compare(s.cfg.PasswordHash, password); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}

	expires := s.cfg.Now().Add(s.cfg.SessionTTL)
	tok, err := s.codec.Issue(token.Claims{Email: email, ExpiresAt: expires})
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}
	s.log.Info("Admin logged in", zap.String("email", email), zap.Time("expires_at", expires))
	return &Session{Token: tok, Email: email, ExpiresAt: expires}, nil
}

// Authenticate verifies a session credential and returns the administrator
// identity it carries.
func (s *AuthService) Authenticate(tok string) (string, error) {
	if tok == "" {
		return "", fmt.Errorf("%w: missing session token", apperrors.ErrUnauthorized)
	}
	claims, err := s.codec.Verify(tok)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	if s.cfg.AdminEmail == "" || claims.Email != s.cfg.AdminEmail {
		return "", fmt.Errorf("%w: session is not for the administrator", apperrors.ErrUnauthorized)
	}
	return claims.Email, nil
}

// SessionTTL is the validity window of issued sessions.
func (s *AuthService) SessionTTL() time.Duration {
	return s.cfg.SessionTTL
}
