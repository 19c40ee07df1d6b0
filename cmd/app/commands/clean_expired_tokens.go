package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	identityUseCase "github.com/allisson/resourcegateway/internal/identity/usecase"
)

// RunCleanExpiredTokens removes auth tokens that expired more than days ago.
func RunCleanExpiredTokens(
	ctx context.Context,
	tokenUseCase identityUseCase.TokenUseCase,
	logger *slog.Logger,
	writer io.Writer,
	days int,
	dryRun bool,
	format string,
) error {
	job := retentionPurge{subject: "expired token(s)", purge: tokenUseCase.PurgeExpired}
	if _, err := job.run(ctx, logger, writer, days, dryRun, format); err != nil {
		return fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}
	return nil
}
