package domain

import (
	apperrors "github.com/allisson/resourcegateway/internal/errors"
)

// Identity errors.
var (
	// ErrTokenNotFound indicates no token matches the presented hash.
	ErrTokenNotFound = apperrors.Wrap(apperrors.ErrNotFound, "token not found")

	// ErrInvalidCredentials covers unknown users, wrong passwords and unusable tokens
	// alike so callers cannot tell them apart.
	ErrInvalidCredentials = apperrors.Errorf(apperrors.ErrUnauthorized, "Failed to authenticate")

	// ErrMissingCredentials indicates no supported credential was presented.
	ErrMissingCredentials = apperrors.Errorf(apperrors.ErrUnauthorized, "Authentication failed")

	// ErrInvalidSystemToken indicates a system token failed verification.
	ErrInvalidSystemToken = apperrors.Errorf(apperrors.ErrUnauthorized, "Invalid system token specified")

	// ErrWrongPurpose indicates a token was minted for another requester type.
	ErrWrongPurpose = apperrors.Errorf(apperrors.ErrUnauthorized, "Invalid token specified for this requester type")
)

// ErrInvalidGroup reports a group header naming a group the user does not belong to.
func ErrInvalidGroup(group string) error {
	return apperrors.Errorf(apperrors.ErrUnauthorized, "Invalid Authorization Group %s specified", group)
}

// ErrInvalidRequesterType reports an unknown requester_type.
func ErrInvalidRequesterType(value string) error {
	return apperrors.Errorf(apperrors.ErrBadRequest, "Invalid requester_type %s specified", value)
}
