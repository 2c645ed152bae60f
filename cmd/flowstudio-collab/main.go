// Package main provides the FlowStudio collaboration server: the websocket
// hub that relays live editing sessions between users.
package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/okanero/flowstudio/pkg/cmd"
	"github.com/okanero/flowstudio/pkg/eventbus"
	"github.com/okanero/flowstudio/pkg/log"
)

const defaultPort = 9092

func main() {
	command := &cli.Command{
		Name:                  "flowstudio-collab",
		EnableShellCompletion: true,
		Usage:                 "Start the collaborative editing hub",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "instance-id",
				Aliases: []string{"id"},
				Usage:   "Custom instance ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("INSTANCE_ID"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the collaboration server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type for cross-instance relay (kafka, gochannel, none)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
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

			instanceID := command.String("instance-id")
			if instanceID == "" {
				instanceID = "collab-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("flowstudio-collab").With("instanceId", instanceID)

			logger.InfoContext(ctx, "Initializing FlowStudio collaboration server")

			var eventBus eventbus.EventBus

			if provider := command.String("event-bus"); provider != "none" {
				eventBus = cmd.NewEventBus(provider, logger)
				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()
			}

			server := NewCollabServer(instanceID, logger, eventBus)

			err := server.Start(ctx, command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start collaboration server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
