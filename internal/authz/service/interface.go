// Package service provides the cryptographic services of the authorization layer.
package service

import (
	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
)

// AuditSigner signs and verifies audit log entries.
type AuditSigner interface {
	// Sign returns the HMAC-SHA256 signature of log, keyed by a key derived from secret.
	Sign(secret []byte, log *authzDomain.AuditLog) ([]byte, error)

	// Verify returns authzDomain.ErrSignatureInvalid when log.Signature does not match.
	Verify(secret []byte, log *authzDomain.AuditLog) error
}
