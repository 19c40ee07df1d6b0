package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
)

// ErrSignatureInvalid indicates an audit log whose signature does not match its content.
var ErrSignatureInvalid = apperrors.New("audit log signature is invalid")

// AuditLog records one authorization decision. Signature is an HMAC over the
// canonical encoding of the entry and is only meaningful when IsSigned is true.
type AuditLog struct {
	ID         uuid.UUID
	RequestID  string
	UserID     string
	GroupID    string
	Collection string
	Scope      string
	Action     string
	Identifier string
	Allowed    bool
	Metadata   map[string]any
	Signature  []byte
	IsSigned   bool
	CreatedAt  time.Time
}

// VerificationReport summarizes an audit log integrity check.
type VerificationReport struct {
	TotalChecked  int         `json:"total_checked"`
	SignedCount   int         `json:"signed_count"`
	UnsignedCount int         `json:"unsigned_count"`
	ValidCount    int         `json:"valid_count"`
	InvalidCount  int         `json:"invalid_count"`
	InvalidLogs   []uuid.UUID `json:"invalid_logs"`
}
