// Package domain defines the identity model: principals, token purposes and tokens.
package domain

// AuthMethod records how a principal authenticated.
type AuthMethod string

// Authentication methods.
const (
	AuthBasic       AuthMethod = "basic"
	AuthToken       AuthMethod = "token"
	AuthSystemToken AuthMethod = "system_token"
)

// Principal is the authenticated identity of one request. It is resolved per
// request and never persisted.
type Principal struct {
	UserID     string
	Login      string
	Name       string
	GroupID    string
	GroupName  string
	RoleID     string
	RoleName   string
	TenantID   string
	TenantName string
	AuthMethod AuthMethod
	// Purpose is set for token authentication.
	Purpose Purpose
	// TokenHash is set for token authentication so the token can be revoked.
	TokenHash string
}
