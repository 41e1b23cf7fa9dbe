package ai

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"corisa-backend/internal/engine"
	"corisa-backend/internal/instrument"
	"corisa-backend/internal/modplan"
	"corisa-backend/internal/workspace"
)

const maxPromptLength = 5000

// Handler handles planner endpoints.
type Handler struct {
	provider *Provider
	ws       *workspace.Workspace
}

// NewHandler creates a new AI handler. provider may be nil.
func NewHandler(provider *Provider, ws *workspace.Workspace) *Handler {
	return &Handler{provider: provider, ws: ws}
}

func RegisterAIRoutes(app fiber.Router, h *Handler, middleware ...fiber.Handler) {
	g := app.Group("/api/_admin/ai", middleware...)
	g.Get("/status", h.Status)
	g.Post("/plan", h.Plan)
}

// Status returns whether AI is configured and the model name.
func (h *Handler) Status(c *fiber.Ctx) error {
	if h.provider == nil {
		return c.JSON(fiber.Map{"data": fiber.Map{"configured": false}})
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"configured": true,
			"model":      h.provider.Model(),
		},
	})
}

// Plan asks the planner for a plan and dry-runs it against the current
// document. Nothing is committed.
func (h *Handler) Plan(c *fiber.Ctx) error {
	if h.provider == nil {
		return engine.NewAppError("AI_NOT_CONFIGURED", 503, "AI planner is not configured")
	}

	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("Invalid request body")
	}
	if body.Prompt == "" {
		return engine.InvalidPayloadError("prompt is required")
	}
	if len(body.Prompt) > maxPromptLength {
		return engine.InvalidPayloadError(fmt.Sprintf("prompt must be %d characters or fewer", maxPromptLength))
	}

	ctx, span := instrument.GetInstrumenter(c.UserContext()).StartSpan(c.UserContext(), "ai", "planner", "ai.plan")
	defer span.End()

	userPrompt, err := BuildUserPrompt(body.Prompt, h.ws.Schema().Summarize(), modplan.JSONSchema())
	if err != nil {
		return err
	}
	raw, err := h.provider.Generate(ctx, BuildSystemPrompt(), userPrompt)
	if err != nil {
		span.SetStatus("error")
		return err
	}

	if doc, err := PlanDocument([]byte(raw)); err == nil && doc != nil {
		if res := h.ws.ValidateStructure(doc); !res.Valid {
			span.SetStatus("error")
			appErr := invalidPlanError()
			for _, e := range res.Errors {
				appErr.Details = append(appErr.Details, engine.ErrorDetail{Rule: "structural", Message: e})
			}
			return appErr
		}
	}

	proposal, err := DecodeProposal([]byte(raw))
	if err != nil {
		span.SetStatus("error")
		appErr := invalidPlanError()
		var be *modplan.BuildError
		if errors.As(err, &be) {
			for _, p := range be.Problems {
				appErr.Details = append(appErr.Details, engine.ErrorDetail{Rule: "build", Message: p})
			}
		} else {
			appErr.Details = []engine.ErrorDetail{{Message: err.Error()}}
		}
		return appErr
	}

	data, err := proposal.Plan.Encode()
	if err != nil {
		return fmt.Errorf("encode proposal: %w", err)
	}
	outcome := h.ws.ValidatePlan(ctx, data)
	span.SetMetadata("operations", len(proposal.Plan.Operations))
	span.SetStatus("ok")

	return c.JSON(fiber.Map{"data": fiber.Map{
		"plan":              proposal.Plan,
		"fromModifications": proposal.FromModifications,
		"outcome":           outcome,
	}})
}

func invalidPlanError() *engine.AppError {
	return engine.NewAppError("AI_INVALID_PLAN", 422, "Planner returned an unusable plan. Try rephrasing your prompt.")
}
