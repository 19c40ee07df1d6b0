package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	identityMocks "github.com/allisson/resourcegateway/internal/identity/usecase/mocks"
)

func TestRunIssueToken(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	expiresAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	output := &identityDomain.IssueTokenOutput{
		PlainToken: "plain-token",
		TTL:        time.Hour,
		ExpiresAt:  expiresAt,
	}

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &identityMocks.MockTokenUseCase{}
		mockUseCase.On("IssueForLogin", ctx, "admin", identityDomain.PurposeAPI).Return(output, nil)

		var out bytes.Buffer
		err := RunIssueToken(ctx, mockUseCase, logger, &out, "admin", "", "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "plain-token")
		require.Contains(t, out.String(), "2026-01-02T03:04:05Z")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := &identityMocks.MockTokenUseCase{}
		mockUseCase.On("IssueForLogin", ctx, "admin", identityDomain.PurposeWS).Return(output, nil)

		var out bytes.Buffer
		err := RunIssueToken(ctx, mockUseCase, logger, &out, "admin", "ws", "json")
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, "plain-token", result["auth_token"])
		require.Equal(t, float64(3600), result["token_ttl"])
		mockUseCase.AssertExpectations(t)
	})

	t.Run("invalid-requester-type", func(t *testing.T) {
		mockUseCase := &identityMocks.MockTokenUseCase{}

		err := RunIssueToken(ctx, mockUseCase, logger, &bytes.Buffer{}, "admin", "robot", "text")

		require.Error(t, err)
		mockUseCase.AssertNotCalled(t, "IssueForLogin")
	})

	t.Run("unknown-login", func(t *testing.T) {
		mockUseCase := &identityMocks.MockTokenUseCase{}
		mockUseCase.On("IssueForLogin", ctx, "ghost", identityDomain.PurposeAPI).
			Return(nil, errors.New("user not found"))

		err := RunIssueToken(ctx, mockUseCase, logger, &bytes.Buffer{}, "ghost", "api", "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to issue token")
	})
}
