package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	"github.com/allisson/resourcegateway/internal/identity/http/dto"
	identityUseCase "github.com/allisson/resourcegateway/internal/identity/usecase"
)

// RunIssueToken mints an auth token for a directory user without asking for the
// password. requesterType selects the token purpose (api, ui or ws).
//
// SECURITY: The plain token is written to writer once and never stored.
func RunIssueToken(
	ctx context.Context,
	tokenUseCase identityUseCase.TokenUseCase,
	logger *slog.Logger,
	writer io.Writer,
	login string,
	requesterType string,
	format string,
) error {
	purpose, err := identityDomain.ParsePurpose(requesterType)
	if err != nil {
		return err
	}

	output, err := tokenUseCase.IssueForLogin(ctx, login, purpose)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, dto.MapIssueTokenOutput(output)); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Token:      %s\n", output.PlainToken)
		_, _ = fmt.Fprintf(writer, "Purpose:    %s\n", purpose)
		_, _ = fmt.Fprintf(writer, "Expires on: %s\n", output.ExpiresAt.UTC().Format(time.RFC3339))
	}

	logger.Info("token issued",
		slog.String("login", login),
		slog.String("purpose", string(purpose)),
		slog.Time("expires_at", output.ExpiresAt),
	)

	return nil
}
