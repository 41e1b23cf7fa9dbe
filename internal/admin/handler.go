package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"corisa-backend/internal/engine"
	"corisa-backend/internal/metadata"
	"corisa-backend/internal/modplan"
	"corisa-backend/internal/store"
	"corisa-backend/internal/workspace"
)

type Handler struct {
	ws *workspace.Workspace
}

func NewHandler(ws *workspace.Workspace) *Handler {
	return &Handler{ws: ws}
}

func RegisterAdminRoutes(app fiber.Router, h *Handler, middleware ...fiber.Handler) {
	admin := app.Group("/api/_admin", middleware...)

	admin.Get("/schema", h.GetSchema)
	admin.Put("/schema", h.PutSchema)
	admin.Get("/schema/summary", h.GetSummary)

	admin.Get("/plan/schema", h.GetPlanGrammar)
	admin.Post("/plan/validate", h.ValidatePlan)
	admin.Post("/plan/apply", h.ApplyPlan)

	admin.Post("/modifications/plan", h.BuildPlan)
	admin.Post("/modifications/apply", h.ApplyModifications)

	admin.Get("/snapshots", h.ListSnapshots)
	admin.Get("/snapshots/:revision", h.GetSnapshot)
	admin.Post("/snapshots/:revision/rollback", h.Rollback)
}

// --- Schema Endpoints ---

func (h *Handler) GetSchema(c *fiber.Ctx) error {
	s := h.ws.Schema()
	if c.Query("format") == string(metadata.FormatYAML) {
		data, err := metadata.Encode(s, metadata.FormatYAML)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(data)
	}
	return c.JSON(fiber.Map{"data": s, "meta": fiber.Map{"revision": h.ws.Revision()}})
}

// PutSchema replaces the document. YAML is accepted when the content type or
// ?format says so.
func (h *Handler) PutSchema(c *fiber.Ctx) error {
	format := metadata.FormatJSON
	if c.Query("format") == string(metadata.FormatYAML) || strings.Contains(c.Get(fiber.HeaderContentType), "yaml") {
		format = metadata.FormatYAML
	}
	s, err := metadata.Decode(c.Body(), format)
	if err != nil {
		return engine.InvalidPayloadError(err.Error())
	}

	res, err := h.ws.Import(c.UserContext(), s)
	if err != nil {
		return fmt.Errorf("import schema: %w", err)
	}
	if !res.Valid {
		return engine.SchemaRejectedError(res)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"revision": h.ws.Revision(),
		"warnings": res.Warnings,
	}})
}

func (h *Handler) GetSummary(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.ws.Schema().Summarize(), "meta": fiber.Map{"revision": h.ws.Revision()}})
}

// --- Plan Endpoints ---

func (h *Handler) GetPlanGrammar(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(modplan.JSONSchema())
}

// ValidatePlan dry-runs a plan. The outcome is the payload even when the plan
// would be rejected.
func (h *Handler) ValidatePlan(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return engine.InvalidPayloadError("Request body must be a plan document")
	}
	out := h.ws.ValidatePlan(c.UserContext(), body)
	return c.JSON(fiber.Map{"data": out})
}

func (h *Handler) ApplyPlan(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return engine.InvalidPayloadError("Request body must be a plan document")
	}
	out, err := h.ws.ApplyPlan(c.UserContext(), body)
	if err != nil {
		return fmt.Errorf("apply plan: %w", err)
	}
	return h.committed(c, out)
}

// --- Modifications Endpoints ---

func (h *Handler) BuildPlan(c *fiber.Ctx) error {
	mods, err := parseModifications(c)
	if err != nil {
		return err
	}
	plan, err := modplan.Build(mods)
	if err != nil {
		return buildError(err)
	}
	return c.JSON(fiber.Map{"data": plan})
}

func (h *Handler) ApplyModifications(c *fiber.Ctx) error {
	mods, err := parseModifications(c)
	if err != nil {
		return err
	}
	out, err := h.ws.ApplyModifications(c.UserContext(), mods)
	if err != nil {
		return buildError(err)
	}
	return h.committed(c, out)
}

func parseModifications(c *fiber.Ctx) (*modplan.Modifications, error) {
	var mods modplan.Modifications
	if err := json.Unmarshal(c.Body(), &mods); err != nil {
		return nil, engine.InvalidPayloadError("Invalid JSON body")
	}
	if mods.Empty() {
		return nil, engine.InvalidPayloadError("Modifications contain no records")
	}
	return &mods, nil
}

func buildError(err error) error {
	var be *modplan.BuildError
	if errors.As(err, &be) {
		details := make([]engine.ErrorDetail, 0, len(be.Problems))
		for _, p := range be.Problems {
			details = append(details, engine.ErrorDetail{Rule: "build", Message: p})
		}
		return engine.ValidationError(details)
	}
	return fmt.Errorf("apply modifications: %w", err)
}

func (h *Handler) committed(c *fiber.Ctx, out *engine.Outcome) error {
	if !out.Success {
		return engine.PlanRejectedError(out)
	}
	return c.JSON(fiber.Map{"data": out, "meta": fiber.Map{"revision": h.ws.Revision()}})
}

// --- Snapshot Endpoints ---

func (h *Handler) ListSnapshots(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	snaps, err := h.ws.History(c.UserContext(), limit)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	return c.JSON(fiber.Map{"data": snaps})
}

func (h *Handler) GetSnapshot(c *fiber.Ctx) error {
	revision, err := strconv.Atoi(c.Params("revision"))
	if err != nil {
		return engine.InvalidPayloadError("Revision must be an integer")
	}
	snap, err := h.ws.Snapshot(c.UserContext(), revision)
	if errors.Is(err, store.ErrNotFound) {
		return engine.NotFoundError("Snapshot", c.Params("revision"))
	}
	if err != nil {
		return fmt.Errorf("get snapshot: %w", err)
	}
	return c.JSON(fiber.Map{"data": snap})
}

func (h *Handler) Rollback(c *fiber.Ctx) error {
	revision, err := strconv.Atoi(c.Params("revision"))
	if err != nil {
		return engine.InvalidPayloadError("Revision must be an integer")
	}
	res, err := h.ws.Rollback(c.UserContext(), revision)
	if errors.Is(err, store.ErrNotFound) {
		return engine.NotFoundError("Snapshot", c.Params("revision"))
	}
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	if !res.Valid {
		return engine.SchemaRejectedError(res)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"revision": h.ws.Revision(), "warnings": res.Warnings}})
}
