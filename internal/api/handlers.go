package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	perrors "github.com/plandeck/plandeck/internal/errors"
	"github.com/plandeck/plandeck/internal/health"
	"github.com/plandeck/plandeck/internal/metrics"
	"github.com/plandeck/plandeck/internal/project"
	"github.com/plandeck/plandeck/internal/schedule"
	"github.com/plandeck/plandeck/internal/store"
)

// Notifier posts schedule digests to an external channel. A nil Notifier
// disables the check-in endpoint.
type Notifier interface {
	ScheduleDigest(ctx context.Context, proj *store.Project, plan *project.Plan) error
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	store    *store.Store
	planner  *project.Planner
	notifier Notifier
	checker  *health.Checker
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	st *store.Store,
	planner *project.Planner,
	notifier Notifier,
	checker *health.Checker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		store:    st,
		planner:  planner,
		notifier: notifier,
		checker:  checker,
		metrics:  m,
		logger:   logger.With().Str("component", "handlers").Logger(),
	}
}

// problem records the error in metrics and returns a ProblemDetail response.
func (h *Handlers) problem(c *fiber.Ctx, status int, errType, title, detail string) error {
	h.metrics.RecordHTTPError(strconv.Itoa(status), c.Path())
	return problemResponse(c, status, errType, title, detail)
}

// storeError maps store errors onto HTTP problem responses.
func (h *Handlers) storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, perrors.ErrNotFound):
		return h.problem(c, fiber.StatusNotFound,
			"not_found", "Not Found", err.Error())
	case errors.Is(err, perrors.ErrConflict):
		return h.problem(c, fiber.StatusConflict,
			"conflict", "Conflict", err.Error())
	case errors.Is(err, perrors.ErrInvalidInput):
		return h.problem(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", err.Error())
	}
	return err
}

// CreateProject handles POST /api/v1/projects.
func (h *Handlers) CreateProject(c *fiber.Ctx) error {
	var req store.CreateProjectInput
	if err := c.BodyParser(&req); err != nil {
		return h.problem(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.Name == "" {
		return h.problem(c, fiber.StatusBadRequest,
			"missing_name", "Bad Request",
			"Project name is required")
	}

	p, err := h.store.CreateProject(req)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// ListProjects handles GET /api/v1/projects.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	projects, err := h.store.ListProjects(c.Query("status"))
	if err != nil {
		return h.storeError(c, err)
	}
	if projects == nil {
		projects = []*store.Project{}
	}
	return c.JSON(fiber.Map{"projects": projects, "total": len(projects)})
}

// GetProject handles GET /api/v1/projects/:slug.
func (h *Handlers) GetProject(c *fiber.Ctx) error {
	p, err := h.store.GetProject(c.Params("slug"))
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(p)
}

// UpdateProject handles PATCH /api/v1/projects/:slug.
func (h *Handlers) UpdateProject(c *fiber.Ctx) error {
	var req store.UpdateProjectInput
	if err := c.BodyParser(&req); err != nil {
		return h.problem(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	p, err := h.store.UpdateProject(c.Params("slug"), req)
	if err != nil {
		return h.storeError(c, err)
	}
	// Target date feeds health classification, so cached plans are stale.
	h.planner.Invalidate(p.ID)
	return c.JSON(p)
}

// ArchiveProject handles POST /api/v1/projects/:slug/archive.
func (h *Handlers) ArchiveProject(c *fiber.Ctx) error {
	slug := c.Params("slug")
	if err := h.store.ArchiveProject(slug); err != nil {
		return h.storeError(c, err)
	}
	p, err := h.store.GetProject(slug)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(p)
}

// DeleteProject handles DELETE /api/v1/projects/:slug.
func (h *Handlers) DeleteProject(c *fiber.Ctx) error {
	p, err := h.store.GetProject(c.Params("slug"))
	if err != nil {
		return h.storeError(c, err)
	}
	if err := h.store.DeleteProject(p.Slug); err != nil {
		return h.storeError(c, err)
	}
	h.planner.Invalidate(p.ID)
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateDeveloper handles POST /api/v1/developers.
func (h *Handlers) CreateDeveloper(c *fiber.Ctx) error {
	var req CreateDeveloperRequest
	if err := c.BodyParser(&req); err != nil {
		return h.problem(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	d, err := h.store.CreateDeveloper(req.Name)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(d)
}

// ListDevelopers handles GET /api/v1/developers.
func (h *Handlers) ListDevelopers(c *fiber.Ctx) error {
	devs, err := h.store.ListDevelopers()
	if err != nil {
		return h.storeError(c, err)
	}
	if devs == nil {
		devs = []*store.Developer{}
	}
	return c.JSON(fiber.Map{"developers": devs, "total": len(devs)})
}

// CreateTask handles POST /api/v1/projects/:slug/tasks.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	p, err := h.store.GetProject(c.Params("slug"))
	if err != nil {
		return h.storeError(c, err)
	}

	var req store.CreateTaskInput
	if err := c.BodyParser(&req); err != nil {
		return h.problem(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.Name == "" {
		return h.problem(c, fiber.StatusBadRequest,
			"missing_name", "Bad Request",
			"Task name is required")
	}
	if msg := validateTaskFields(req.Duration, req.Progress, req.Status); msg != "" {
		return h.problem(c, fiber.StatusBadRequest,
			"invalid_task", "Bad Request", msg)
	}

	task, err := h.store.CreateTask(p.ID, req)
	if err != nil {
		return h.storeError(c, err)
	}
	h.planner.Invalidate(p.ID)
	return c.Status(fiber.StatusCreated).JSON(task)
}

// ListTasks handles GET /api/v1/projects/:slug/tasks.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	p, err := h.store.GetProject(c.Params("slug"))
	if err != nil {
		return h.storeError(c, err)
	}
	tasks, err := h.store.ListTasks(p.ID)
	if err != nil {
		return h.storeError(c, err)
	}
	if tasks == nil {
		tasks = []*store.Task{}
	}
	return c.JSON(fiber.Map{"tasks": tasks, "total": len(tasks)})
}

// GetTask handles GET /api/v1/tasks/:id.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	task, err := h.store.GetTask(c.Params("id"))
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(task)
}

// UpdateTask handles PATCH /api/v1/tasks/:id.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	id := c.Params("id")

	var req store.UpdateTaskInput
	if err := c.BodyParser(&req); err != nil {
		return h.problem(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	duration, progress, status := 0, 0, ""
	if req.Duration != nil {
		duration = *req.Duration
	}
	if req.Progress != nil {
		progress = *req.Progress
	}
	if req.Status != nil {
		status = *req.Status
	}
	if msg := validateTaskFields(duration, progress, status); msg != "" {
		return h.problem(c, fiber.StatusBadRequest,
			"invalid_task", "Bad Request", msg)
	}
	if req.Dependencies != nil {
		for _, dep := range *req.Dependencies {
			if dep == id {
				return h.problem(c, fiber.StatusBadRequest,
					"invalid_task", "Bad Request",
					"A task cannot depend on itself")
			}
		}
	}

	task, err := h.store.UpdateTask(id, req)
	if err != nil {
		return h.storeError(c, err)
	}
	h.planner.Invalidate(task.ProjectID)
	return c.JSON(task)
}

// DeleteTask handles DELETE /api/v1/tasks/:id.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	task, err := h.store.GetTask(c.Params("id"))
	if err != nil {
		return h.storeError(c, err)
	}
	if err := h.store.DeleteTask(task.ID); err != nil {
		return h.storeError(c, err)
	}
	h.planner.Invalidate(task.ProjectID)
	return c.SendStatus(fiber.StatusNoContent)
}

// GetSchedule handles GET /api/v1/projects/:slug/schedule.
func (h *Handlers) GetSchedule(c *fiber.Ctx) error {
	p, err := h.store.GetProject(c.Params("slug"))
	if err != nil {
		return h.storeError(c, err)
	}
	plan, err := h.planner.Plan(p)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(fiber.Map{
		"project":              p.Slug,
		"nodes":                plan.Schedule.Nodes,
		"critical_path":        plan.Schedule.CriticalPath,
		"project_duration":     plan.Schedule.ProjectDuration,
		"estimated_completion": plan.EstimatedCompletion,
		"health":               plan.Health,
		"diagnostics":          plan.Schedule.Diagnostics,
		"computed_at":          plan.ComputedAt,
	})
}

// GetResources handles GET /api/v1/projects/:slug/resources.
func (h *Handlers) GetResources(c *fiber.Ctx) error {
	p, err := h.store.GetProject(c.Params("slug"))
	if err != nil {
		return h.storeError(c, err)
	}
	plan, err := h.planner.Plan(p)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(fiber.Map{
		"project":         p.Slug,
		"loads":           plan.Resources.Loads,
		"recommendations": plan.Resources.Recommendations,
	})
}

// Checkin handles POST /api/v1/projects/:slug/checkin.
func (h *Handlers) Checkin(c *fiber.Ctx) error {
	if h.notifier == nil {
		return h.problem(c, fiber.StatusServiceUnavailable,
			"notifications_disabled", "Service Unavailable",
			"Slack delivery is not configured")
	}

	p, err := h.store.GetProject(c.Params("slug"))
	if err != nil {
		return h.storeError(c, err)
	}
	plan, err := h.planner.Plan(p)
	if err != nil {
		return h.storeError(c, err)
	}

	if err := h.notifier.ScheduleDigest(c.Context(), p, plan); err != nil {
		h.logger.Error().Err(err).Str("project", p.Slug).Msg("check-in delivery failed")
		return h.problem(c, fiber.StatusBadGateway,
			"delivery_failed", "Bad Gateway",
			"Failed to deliver the schedule digest")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "sent"})
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

// validateTaskFields checks the scalar task fields shared by create and
// update. Empty status means "leave the default".
func validateTaskFields(duration, progress int, status string) string {
	if duration < 0 {
		return "Duration must be >= 0 days"
	}
	if progress < 0 || progress > 100 {
		return "Progress must be between 0 and 100"
	}
	if status != "" && !schedule.KnownStatus(schedule.Status(status)) {
		return "Unknown status: " + status
	}
	return ""
}
