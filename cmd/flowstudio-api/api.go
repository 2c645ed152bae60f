// Package main provides the FlowStudio API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/okanero/flowstudio/pkg/eventbus"
	"github.com/okanero/flowstudio/pkg/persistence"
	"github.com/okanero/flowstudio/pkg/services"
	"github.com/okanero/flowstudio/pkg/web"
)

type API struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	eventBus     eventbus.EventBus
	validate     *validator.Validate
	capabilities []byte
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	capabilities []byte,
) *API {
	return &API{
		logger:       logger,
		persistence:  persistence,
		eventBus:     eventBus,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		capabilities: capabilities,
	}
}

func (a *API) App() *fiber.App {
	draftService := services.NewDraft(a.persistence)
	validationService := services.NewValidation()
	dryRunService := services.NewDryRun()
	proposalService := services.NewProposal(a.persistence, a.eventBus)
	publishingService := services.NewPublishing(a.persistence, validationService, a.eventBus)

	handlers := web.NewAPIHandlers(
		draftService,
		proposalService,
		validationService,
		dryRunService,
		publishingService,
		a.validate,
		web.NewEntityStore(),
		a.capabilities,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("FlowStudio API")
	})

	web.RegisterRoutes(app, handlers)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
