package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Purpose is the requester type a token was minted for.
type Purpose string

// Token purposes.
const (
	PurposeAPI Purpose = "api"
	PurposeUI  Purpose = "ui"
	PurposeWS  Purpose = "ws"
)

// APIPurposes are accepted by the REST API.
var APIPurposes = []Purpose{PurposeAPI, PurposeUI}

// WSPurposes are accepted by the notifications stream.
var WSPurposes = []Purpose{PurposeWS}

// ParsePurpose maps a requester_type value to a Purpose. An empty value means api.
func ParsePurpose(s string) (Purpose, error) {
	switch Purpose(s) {
	case "":
		return PurposeAPI, nil
	case PurposeAPI, PurposeUI, PurposeWS:
		return Purpose(s), nil
	default:
		return "", ErrInvalidRequesterType(s)
	}
}

// In reports whether p is one of the allowed purposes.
func (p Purpose) In(allowed []Purpose) bool {
	return slices.Contains(allowed, p)
}

// Token is a persisted opaque token. Only the SHA-256 of the plain value is stored.
type Token struct {
	ID        uuid.UUID
	TokenHash string
	UserID    string
	Purpose   Purpose
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Valid reports whether the token is usable at now.
func (t *Token) Valid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// IssueTokenOutput is returned once to the caller that requested a token.
type IssueTokenOutput struct {
	PlainToken string
	TTL        time.Duration
	ExpiresAt  time.Time
}
