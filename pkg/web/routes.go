package web

import (
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
)

// Mount registers every API route on router. metrics may be nil.
func Mount(router fiber.Router, h *APIHandlers, metrics http.Handler) {
	router.Get("/health", h.HealthCheck)
	router.Get("/node-types", h.GetNodeTypes)

	if metrics != nil {
		router.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Post("/import", h.ImportWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/duplicate", h.DuplicateWorkflow)
	w.Put("/:id/status", h.ChangeWorkflowStatus)
	w.Get("/:id/export", h.ExportWorkflow)
	w.Post("/:id/execute", h.ExecuteWorkflow)

	w.Get("/:id/state", h.GetWorkflowState)
	w.Post("/:id/state/pause", h.PauseWorkflow)
	w.Post("/:id/state/resume", h.ResumeWorkflow)

	w.Post("/:id/nodes", h.CreateWorkflowNode)
	w.Get("/:id/nodes/:nodeId", h.GetWorkflowNode)
	w.Put("/:id/nodes/:nodeId", h.UpdateWorkflowNode)
	w.Delete("/:id/nodes/:nodeId", h.DeleteWorkflowNode)

	router.Post("/webhooks/:id", h.ReceiveWebhook)
	router.Post("/events", h.ReceiveEvent)
}
