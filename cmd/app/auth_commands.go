package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/resourcegateway/cmd/app/commands"
	"github.com/allisson/resourcegateway/internal/app"
)

func getAuthCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "issue-token",
			Usage: "Issue an auth token for a directory user without a password",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Login of the token owner",
				},
				&cli.StringFlag{
					Name:    "purpose",
					Aliases: []string{"p"},
					Value:   "api",
					Usage:   "Token purpose: 'api', 'ui' or 'ws'",
				},
				formatFlag(),
			},
			Action: containerAction(func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				tokenUseCase, err := container.TokenUseCase()
				if err != nil {
					return err
				}
				return commands.RunIssueToken(
					ctx,
					tokenUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("user"),
					cmd.String("purpose"),
					cmd.String("format"),
				)
			}),
		},
		{
			Name:  "clean-expired-tokens",
			Usage: "Delete auth tokens that expired more than the given number of days ago",
			Flags: retentionFlags("expired tokens"),
			Action: containerAction(func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				tokenUseCase, err := container.TokenUseCase()
				if err != nil {
					return err
				}
				return commands.RunCleanExpiredTokens(
					ctx,
					tokenUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					int(cmd.Int("days")),
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			}),
		},
	}
}
