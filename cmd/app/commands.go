package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/resourcegateway/internal/app"
	"github.com/allisson/resourcegateway/internal/config"
)

func getCommands(version string) []*cli.Command {
	groups := map[string][]*cli.Command{
		"system": getSystemCommands(version),
		"auth":   getAuthCommands(),
		"audit":  getAuditCommands(),
	}
	var cmds []*cli.Command
	for _, category := range []string{"system", "auth", "audit"} {
		for _, cmd := range groups[category] {
			cmd.Category = category
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

// containerAction loads the configuration and hands a container to run, closing
// it once run returns.
func containerAction(
	run func(ctx context.Context, cmd *cli.Command, container *app.Container) error,
) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		container := app.NewContainer(config.Load())
		defer func() { _ = container.Shutdown(ctx) }()
		return run(ctx, cmd, container)
	}
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

// retentionFlags are the flags of the "delete rows older than N days" commands.
func retentionFlags(subject string) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:     "days",
			Aliases:  []string{"d"},
			Required: true,
			Usage:    "Delete " + subject + " older than this many days",
		},
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"n"},
			Usage:   "Count the " + subject + " that would be deleted without deleting them",
		},
		formatFlag(),
	}
}
