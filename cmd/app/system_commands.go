package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/allisson/resourcegateway/cmd/app/commands"
	"github.com/allisson/resourcegateway/internal/app"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Serve the API, the notification stream and, when enabled, the task worker",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "worker",
			Usage: "Run the task worker without the HTTP server",
			Action: containerAction(func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				worker, err := container.Worker()
				if err != nil {
					return err
				}
				return commands.RunWorker(ctx, worker, container.Logger())
			}),
		},
		{
			Name:  "migrate",
			Usage: "Apply the database migrations of the configured driver",
			Action: containerAction(func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				cfg := container.Config()
				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			}),
		},
		{
			Name:  "validate-registry",
			Usage: "Validate a collection table and the OpenAPI document generated from it",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "file",
					Aliases: []string{"r"},
					Usage:   "Collection table YAML file (defaults to REGISTRY_FILE, then the embedded table)",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text', 'json' or 'openapi'",
				},
			},
			Action: containerAction(func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				cfg := container.Config()
				path := cmd.String("file")
				if path == "" {
					path = cfg.RegistryFile
				}
				return commands.RunValidateRegistry(
					ctx,
					container.Logger(),
					commands.DefaultIO().Writer,
					path,
					fmt.Sprintf("http://%s:%d/api", cfg.ServerHost, cfg.ServerPort),
					cmd.String("format"),
				)
			}),
		},
	}
}
