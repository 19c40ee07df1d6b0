package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/resourcegateway/cmd/app/commands"
	"github.com/allisson/resourcegateway/internal/app"
)

func getAuditCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "clean-audit-logs",
			Usage: "Delete authorization audit logs older than the given number of days",
			Flags: retentionFlags("audit logs"),
			Action: containerAction(func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				auditLogUseCase, err := container.AuditLogUseCase()
				if err != nil {
					return err
				}
				return commands.RunCleanAuditLogs(
					ctx,
					auditLogUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					int(cmd.Int("days")),
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			}),
		},
		{
			Name:  "verify-audit-logs",
			Usage: "Check the HMAC signatures of the authorization audit trail",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "start-date",
					Aliases:  []string{"s"},
					Required: true,
					Usage:    "Range start: YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or RFC 3339",
				},
				&cli.StringFlag{
					Name:     "end-date",
					Aliases:  []string{"e"},
					Required: true,
					Usage:    "Range end, a bare date includes the whole day",
				},
				formatFlag(),
			},
			Action: containerAction(func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				auditLogUseCase, err := container.AuditLogUseCase()
				if err != nil {
					return err
				}
				return commands.RunVerifyAuditLogs(
					ctx,
					auditLogUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("start-date"),
					cmd.String("end-date"),
					cmd.String("format"),
				)
			}),
		},
	}
}
