// Package dto provides data transfer objects for the token endpoints.
package dto

import (
	"time"

	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
)

// IssueTokenResponse is returned by GET /api/auth.
// SECURITY: The token is only returned once.
type IssueTokenResponse struct {
	AuthToken string    `json:"auth_token"` //nolint:gosec // returned once on issuance
	TokenTTL  int64     `json:"token_ttl"`
	ExpiresOn time.Time `json:"expires_on"`
}

// MapIssueTokenOutput converts the use case output to the response body.
func MapIssueTokenOutput(output *identityDomain.IssueTokenOutput) IssueTokenResponse {
	return IssueTokenResponse{
		AuthToken: output.PlainToken,
		TokenTTL:  int64(output.TTL.Seconds()),
		ExpiresOn: output.ExpiresAt.UTC(),
	}
}
