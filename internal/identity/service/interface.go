// Package service provides the credential primitives of the identity layer: opaque
// token generation, password hashing and signed system tokens.
package service

import "time"

// SecretService hashes and verifies user passwords.
type SecretService interface {
	// HashSecret hashes a plain password with Argon2id.
	HashSecret(plainSecret string) (hashedSecret string, err error)

	// CompareSecret compares a plain password against its hash in constant time.
	CompareSecret(plainSecret string, hashedSecret string) bool
}

// TokenService generates opaque tokens and hashes them for storage.
type TokenService interface {
	// GenerateToken creates a random token and returns it with its SHA-256 hash.
	// Only the hash is persisted; the plain token is shown to the caller once.
	GenerateToken() (plainToken string, tokenHash string, err error)

	// HashToken hashes a plain token using SHA-256.
	HashToken(plainToken string) string
}

// SystemTokenService signs and verifies tokens exchanged between trusted servers.
type SystemTokenService interface {
	// Sign issues a system token for the user login at issuedAt.
	Sign(login string, issuedAt time.Time) (string, error)

	// Verify checks signature, issuer and age, and returns the user login.
	Verify(token string, now time.Time) (string, error)
}
