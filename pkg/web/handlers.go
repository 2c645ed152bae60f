// Package web provides the HTTP surface of the workflow editing plane:
// ETag-guarded entity documents, capability delivery, and the draft,
// proposal, validation, dry-run, and publish endpoints.
package web

import (
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/okanero/flowstudio/pkg/services"
)

type APIHandlers struct {
	draftService      *services.Draft
	proposalService   *services.Proposal
	validationService *services.Validation
	dryRunService     *services.DryRun
	publishingService *services.Publishing
	validator         *validator.Validate

	entities *EntityStore

	capabilityPayload []byte
	capabilityETag    string
}

func NewAPIHandlers(
	draftService *services.Draft,
	proposalService *services.Proposal,
	validationService *services.Validation,
	dryRunService *services.DryRun,
	publishingService *services.Publishing,
	validator *validator.Validate,
	entities *EntityStore,
	capabilityPayload []byte,
) *APIHandlers {
	sum := sha1.Sum(capabilityPayload) //nolint:gosec

	return &APIHandlers{
		draftService:      draftService,
		proposalService:   proposalService,
		validationService: validationService,
		dryRunService:     dryRunService,
		publishingService: publishingService,
		validator:         validator,
		entities:          entities,
		capabilityPayload: capabilityPayload,
		capabilityETag:    hex.EncodeToString(sum[:]),
	}
}

// HealthCheck reports the health of the API and its dependencies.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.draftService.HealthCheck(c.Context())
	status := fiber.StatusOK

	if !healthy {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"healthy": healthy,
		"message": message,
	})
}

// GetCapabilities serves the session capability set with an ETag so clients
// can revalidate cheaply.
func (h *APIHandlers) GetCapabilities(c fiber.Ctx) error {
	c.Set("ETag", h.capabilityETag)

	if c.Get("If-None-Match") == h.capabilityETag {
		return c.SendStatus(fiber.StatusNotModified)
	}

	c.Set("Content-Type", "application/json")

	return c.Send(h.capabilityPayload)
}

// GetEntity returns an entity document with its current ETag.
func (h *APIHandlers) GetEntity(c fiber.Ctx) error {
	data, etag, err := h.entities.Get(c.Params("type"), c.Params("id"))
	if err != nil {
		return notFound(c, "entity not found")
	}

	c.Set("ETag", etag)

	return c.JSON(data)
}

// PutEntity replaces an entity document, fenced by If-Match.
func (h *APIHandlers) PutEntity(c fiber.Ctx) error {
	var data map[string]any
	if err := c.Bind().JSON(&data); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	etag, err := h.entities.Put(c.Params("type"), c.Params("id"), data, c.Get("If-Match"))
	if err != nil {
		if errors.Is(err, ErrStaleETag) {
			return preconditionFailed(c, "entity was modified, reload and retry")
		}

		return internalError(c, err)
	}

	c.Set("ETag", etag)

	return c.JSON(data)
}

// PatchEntity updates individual fields of an entity document, fenced by
// If-Match.
func (h *APIHandlers) PatchEntity(c fiber.Ctx) error {
	var fields map[string]any
	if err := c.Bind().JSON(&fields); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if len(fields) == 0 {
		return badRequest(c, "Patch body must set at least one field")
	}

	etag, err := h.entities.Patch(c.Params("type"), c.Params("id"), fields, c.Get("If-Match"))
	if err != nil {
		switch {
		case errors.Is(err, ErrEntityNotFound):
			return notFound(c, "entity not found")
		case errors.Is(err, ErrStaleETag):
			return preconditionFailed(c, "entity was modified, reload and retry")
		default:
			return internalError(c, err)
		}
	}

	data, _, getErr := h.entities.Get(c.Params("type"), c.Params("id"))
	if getErr != nil {
		return internalError(c, getErr)
	}

	c.Set("ETag", etag)

	return c.JSON(data)
}

// GetDraft returns the entity's draft with its ETag.
func (h *APIHandlers) GetDraft(c fiber.Ctx) error {
	draft, etag, err := h.draftService.Get(c.Context(), c.Params("entity"))
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Set("ETag", etag)

	return c.JSON(draft)
}

// PutDraft replaces the entity's draft graph, fenced by If-Match.
func (h *APIHandlers) PutDraft(c fiber.Ctx) error {
	var req SaveDraftRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	draft, etag, err := h.draftService.Save(c.Context(), services.SaveRequest{
		EntityType: c.Params("entity"),
		Nodes:      req.Nodes,
		Edges:      req.Edges,
		UpdatedBy:  req.UpdatedBy,
		IfMatch:    c.Get("If-Match"),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Set("ETag", etag)

	return c.JSON(draft)
}

// ValidateDraft runs the structural checks over the entity's draft.
func (h *APIHandlers) ValidateDraft(c fiber.Ctx) error {
	draft, _, err := h.draftService.Get(c.Context(), c.Params("entity"))
	if err != nil {
		return handleServiceError(c, err)
	}

	report, err := h.validationService.Validate(draft)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(report)
}

// DryRunDraft simulates an execution of the entity's draft.
func (h *APIHandlers) DryRunDraft(c fiber.Ctx) error {
	var req DryRunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	draft, _, err := h.draftService.Get(c.Context(), c.Params("entity"))
	if err != nil {
		return handleServiceError(c, err)
	}

	result, err := h.dryRunService.Run(draft, services.DryRunRequest{
		StartNodeID: req.StartNodeID,
		Facts:       req.Facts,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// PublishDraft promotes the entity's draft to the active version.
func (h *APIHandlers) PublishDraft(c fiber.Ctx) error {
	var req PublishRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, "Invalid request: "+err.Error())
	}

	result, err := h.publishingService.Publish(c.Context(), c.Params("entity"), req.PublishedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// CreateProposal submits a change proposal against the entity's draft.
func (h *APIHandlers) CreateProposal(c fiber.Ctx) error {
	var req CreateProposalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, "Invalid request: "+err.Error())
	}

	proposal, err := h.proposalService.Create(c.Context(), services.CreateRequest{
		EntityType: c.Params("entity"),
		Title:      req.Title,
		Author:     req.Author,
		Nodes:      req.Nodes,
		Edges:      req.Edges,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(proposal)
}

// ListProposals returns the entity's proposals, newest first.
func (h *APIHandlers) ListProposals(c fiber.Ctx) error {
	proposals, err := h.proposalService.List(c.Context(), c.Params("entity"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(proposals)
}

// GetProposal returns one proposal by id.
func (h *APIHandlers) GetProposal(c fiber.Ctx) error {
	proposal, err := h.proposalService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(proposal)
}

// ApproveProposal accepts a pending proposal.
func (h *APIHandlers) ApproveProposal(c fiber.Ctx) error {
	var req DecideProposalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, "Invalid request: "+err.Error())
	}

	proposal, err := h.proposalService.Approve(c.Context(), c.Params("id"), req.DecidedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(proposal)
}

// RejectProposal declines a pending proposal.
func (h *APIHandlers) RejectProposal(c fiber.Ctx) error {
	var req DecideProposalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, "Invalid request: "+err.Error())
	}

	proposal, err := h.proposalService.Reject(c.Context(), c.Params("id"), req.DecidedBy, req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(proposal)
}

// GetProposalDiff compares a proposal against the entity's current draft.
func (h *APIHandlers) GetProposalDiff(c fiber.Ctx) error {
	diff, err := h.proposalService.Diff(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(diff)
}
