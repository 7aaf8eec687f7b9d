package web

import (
	"errors"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/services"
	"github.com/dukex/flowrun/pkg/trigger"
	"github.com/dukex/flowrun/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func notFound(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusNotFound, "not_found", detail)
}

func problem(c fiber.Ctx, status int, kind, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleServiceError maps service, state and trigger errors to problems.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrNodeNotFound) && !errors.Is(err, models.ErrInvalidGraph):
		return problem(c, fiber.StatusNotFound, "node_not_found", "node not found")

	case services.IsValidationError(err),
		errors.Is(err, models.ErrInvalidDocument),
		errors.Is(err, trigger.ErrEventTypeRequired):
		return badRequest(c, err.Error())

	case services.IsConflictError(err),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrStateImmutable),
		errors.Is(err, workflow.ErrRunInProgress),
		errors.Is(err, workflow.ErrRunMismatch),
		errors.Is(err, workflow.ErrWorkflowArchived):
		return problem(c, fiber.StatusConflict, "conflict", err.Error())

	case persistence.IsWorkflowNotFound(err):
		return problem(c, fiber.StatusNotFound, "workflow_not_found", "workflow not found")

	case errors.Is(err, persistence.ErrStateNotFound):
		return problem(c, fiber.StatusNotFound, "state_not_found", "workflow state not found")

	case errors.Is(err, trigger.ErrWebhookNotRegistered):
		return problem(c, fiber.StatusNotFound, "webhook_not_found", "webhook not registered")

	case persistence.IsNotFound(err):
		return notFound(c, err.Error())

	default:
		return internalError(c, err)
	}
}
