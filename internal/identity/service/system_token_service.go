package service

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
)

const systemTokenKeyInfo = "system-token-signing-v1"

// SystemTokenConfig configures signing and verification of system tokens.
type SystemTokenConfig struct {
	// Secret is the shared secret the signing key is derived from.
	Secret []byte
	// Issuer is the GUID of this server, written to the iss claim.
	Issuer string
	// Trusted lists the issuer GUIDs accepted on verification.
	Trusted []string
	// MaxAge rejects tokens whose iat is older than now - MaxAge.
	MaxAge time.Duration
	// Skew rejects tokens whose iat is later than now + Skew.
	Skew time.Duration
}

type systemTokenService struct {
	key     []byte
	issuer  string
	trusted []string
	maxAge  time.Duration
	skew    time.Duration
}

// DeriveSystemTokenKey derives the 32-byte HMAC key from the shared secret using HKDF-SHA256.
func DeriveSystemTokenKey(secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("system token secret is empty")
	}
	reader := hkdf.New(sha256.New, secret, nil, []byte(systemTokenKeyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive system token key: %w", err)
	}
	return key, nil
}

// NewSystemTokenService creates a SystemTokenService from cfg.
func NewSystemTokenService(cfg SystemTokenConfig) (SystemTokenService, error) {
	key, err := DeriveSystemTokenKey(cfg.Secret)
	if err != nil {
		return nil, err
	}
	return &systemTokenService{
		key:     key,
		issuer:  cfg.Issuer,
		trusted: slices.Clone(cfg.Trusted),
		maxAge:  cfg.MaxAge,
		skew:    cfg.Skew,
	}, nil
}

// Sign issues an HS256 token with sub=login, iss=issuer and iat=issuedAt.
func (s *systemTokenService) Sign(login string, issuedAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  login,
		Issuer:   s.issuer,
		IssuedAt: jwt.NewNumericDate(issuedAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign system token: %w", err)
	}
	return signed, nil
}

// Verify validates the token and returns its subject. Any failure is reported as
// ErrInvalidSystemToken so callers cannot distinguish the reason.
func (s *systemTokenService) Verify(token string, now time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil || !parsed.Valid {
		return "", identityDomain.ErrInvalidSystemToken
	}

	if !slices.Contains(s.trusted, claims.Issuer) {
		return "", identityDomain.ErrInvalidSystemToken
	}
	if claims.IssuedAt == nil || claims.Subject == "" {
		return "", identityDomain.ErrInvalidSystemToken
	}

	issuedAt := claims.IssuedAt.Time
	if issuedAt.Before(now.Add(-s.maxAge)) || issuedAt.After(now.Add(s.skew)) {
		return "", identityDomain.ErrInvalidSystemToken
	}
	return claims.Subject, nil
}
