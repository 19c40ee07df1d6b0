package service

import (
	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
)

type secretService struct {
	hasher *pwdhash.PasswordHasher
}

// HashSecret hashes a plain text password using Argon2id.
func (s *secretService) HashSecret(plainSecret string) (string, error) {
	hashed, err := s.hasher.Hash([]byte(plainSecret))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash secret")
	}
	return hashed, nil
}

// CompareSecret performs a constant-time comparison between a plain password and its hash.
func (s *secretService) CompareSecret(plainSecret string, hashedSecret string) bool {
	if hashedSecret == "" {
		return false
	}
	ok, err := s.hasher.Verify([]byte(plainSecret), hashedSecret)
	if err != nil {
		return false
	}
	return ok
}

// NewSecretService creates a SecretService with the given pwdhash policy.
func NewSecretService(policy pwdhash.Policy) SecretService {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(policy))
	if err != nil {
		// Only reachable with an invalid policy constant.
		panic(err)
	}
	return &secretService{hasher: hasher}
}
