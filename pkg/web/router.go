package web

import (
	"github.com/gofiber/fiber/v3"
)

// RegisterRoutes mounts every API endpoint on the app.
func RegisterRoutes(app *fiber.App, handlers *APIHandlers) {
	app.Get("/capabilities", handlers.GetCapabilities)

	e := app.Group("/entities")
	e.Get("/:type/:id", handlers.GetEntity)
	e.Put("/:type/:id", handlers.PutEntity)
	e.Patch("/:type/:id", handlers.PatchEntity)

	w := app.Group("/workflows")
	w.Get("/:entity/draft", handlers.GetDraft)
	w.Put("/:entity/draft", handlers.PutDraft)
	w.Post("/:entity/validate", handlers.ValidateDraft)
	w.Post("/:entity/dry-run", handlers.DryRunDraft)
	w.Post("/:entity/publish", handlers.PublishDraft)

	w.Post("/:entity/proposals", handlers.CreateProposal)
	w.Get("/:entity/proposals", handlers.ListProposals)
	w.Get("/:entity/proposals/:id", handlers.GetProposal)
	w.Post("/:entity/proposals/:id/approve", handlers.ApproveProposal)
	w.Post("/:entity/proposals/:id/reject", handlers.RejectProposal)
	w.Get("/:entity/proposals/:id/diff", handlers.GetProposalDiff)

	app.Get("/health", handlers.HealthCheck)
}
