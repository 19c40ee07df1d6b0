package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
)

const auditSigningInfo = "audit-log-signing-v1"

type auditSigner struct{}

// NewAuditSigner creates an HMAC-SHA256 audit log signer whose key is derived from
// the configured secret with HKDF-SHA256.
func NewAuditSigner() AuditSigner {
	return &auditSigner{}
}

func (a *auditSigner) deriveSigningKey(secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("audit signing secret is empty")
	}
	reader := hkdf.New(sha256.New, secret, nil, []byte(auditSigningInfo))

	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// canonicalizeLog encodes the signed fields of log. Variable-length fields are
// length-prefixed so adjacent values cannot be shifted into each other.
func (a *auditSigner) canonicalizeLog(log *authzDomain.AuditLog) ([]byte, error) {
	buf := make([]byte, 0, 512)

	buf = append(buf, log.ID[:]...)
	buf = appendLengthPrefixed(buf, []byte(log.RequestID))
	buf = appendLengthPrefixed(buf, []byte(log.UserID))
	buf = appendLengthPrefixed(buf, []byte(log.GroupID))
	buf = appendLengthPrefixed(buf, []byte(log.Collection))
	buf = appendLengthPrefixed(buf, []byte(log.Scope))
	buf = appendLengthPrefixed(buf, []byte(log.Action))
	buf = appendLengthPrefixed(buf, []byte(log.Identifier))

	if log.Allowed {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	if log.Metadata != nil {
		// json.Marshal sorts map keys, so the encoding is stable.
		metadata, err := json.Marshal(log.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		buf = appendLengthPrefixed(buf, metadata)
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	buf = binary.BigEndian.AppendUint64(buf, uint64(log.CreatedAt.UnixNano())) //nolint:gosec // timestamps are positive

	return buf, nil
}

func appendLengthPrefixed(buf []byte, data []byte) []byte {
	if uint64(len(data)) > 0xFFFFFFFF {
		panic("data length exceeds uint32 max (4GB)")
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data))) //nolint:gosec // bounded above
	return append(buf, data...)
}

// Sign generates the HMAC-SHA256 signature of the audit log.
func (a *auditSigner) Sign(secret []byte, log *authzDomain.AuditLog) ([]byte, error) {
	key, err := a.deriveSigningKey(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	defer zero(key)

	canonical, err := a.canonicalizeLog(log)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize log: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(canonical)
	return mac.Sum(nil), nil
}

// Verify checks the audit log signature.
func (a *auditSigner) Verify(secret []byte, log *authzDomain.AuditLog) error {
	expected, err := a.Sign(secret, log)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}
	if !hmac.Equal(log.Signature, expected) {
		return authzDomain.ErrSignatureInvalid
	}
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
