package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/okanero/flowstudio/pkg/capability"
	"github.com/okanero/flowstudio/pkg/cmd"
	"github.com/okanero/flowstudio/pkg/log"
)

const defaultPort = 9091

// defaultCapabilities is served when no capabilities file is configured:
// every menu and feature of the editing surface, tenant-scoped data.
const defaultCapabilities = `{
  "features": ["workflow_editor", "proposals", "dry_run", "publish"],
  "menus": ["workflows", "entities", "proposals"],
  "data_scope": "tenant"
}`

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "flowstudio-api",
		Usage:                 "Edit, review, and publish workflow definitions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "capabilities-file",
				Usage:   "Path to a JSON file with the capability set served to clients",
				Sources: cli.EnvVars("CAPABILITIES_FILE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing FlowStudio API")

			persistence := cmd.NewPersistence(command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			capabilities := []byte(defaultCapabilities)

			if path := command.String("capabilities-file"); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}

				// Fail fast on a capability file that clients could
				// never decode.
				if _, err := capability.Decode(data); err != nil {
					return err
				}

				capabilities = data
			}

			api := NewAPI(
				logger,
				persistence,
				eventBus,
				capabilities,
			)

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
