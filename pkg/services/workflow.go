package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

// WorkflowStore persists workflow definitions.
type WorkflowStore interface {
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
}

// NodeValidator checks node configs against the registered node schemas.
type NodeValidator interface {
	ValidateNodes(nodes []*models.Node) error
}

// TriggerInstaller installs and removes workflow triggers.
type TriggerInstaller interface {
	SetupTrigger(ctx context.Context, workflow *models.Workflow) error
	Cleanup(ctx context.Context, workflowID string)
}

// StateRemover drops the run-state of a workflow.
type StateRemover interface {
	Delete(ctx context.Context, workflowID string) error
}

// Workflow handles workflow definitions: CRUD, versioning and the trigger
// lifecycle that follows the workflow status.
type Workflow struct {
	store     WorkflowStore
	validator NodeValidator
	triggers  TriggerInstaller
	states    StateRemover
	health    func(ctx context.Context) error
	clock     clockwork.Clock
	logger    *slog.Logger
}

// WorkflowOption configures the workflow service.
type WorkflowOption func(*Workflow)

func WithNodeValidator(v NodeValidator) WorkflowOption {
	return func(w *Workflow) {
		w.validator = v
	}
}

func WithTriggers(t TriggerInstaller) WorkflowOption {
	return func(w *Workflow) {
		w.triggers = t
	}
}

func WithStates(s StateRemover) WorkflowOption {
	return func(w *Workflow) {
		w.states = s
	}
}

// WithHealthCheck sets the probe used by HealthCheck.
func WithHealthCheck(check func(ctx context.Context) error) WorkflowOption {
	return func(w *Workflow) {
		w.health = check
	}
}

func WithClock(clock clockwork.Clock) WorkflowOption {
	return func(w *Workflow) {
		w.clock = clock
	}
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(store WorkflowStore, logger *slog.Logger, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		store:  store,
		clock:  clockwork.NewRealClock(),
		logger: logger.With("module", "workflow_service"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.health == nil {
		return "Persistence layer not initialized", false
	}

	if err := w.health(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflowsRequest contains options for listing workflows.
type ListWorkflowsRequest struct {
	Limit  int
	Offset int

	Status *models.WorkflowStatus

	SortBy    string
	SortOrder string
}

// ListWorkflowsResponse contains the result of listing workflows.
type ListWorkflowsResponse struct {
	Workflows   []*models.Workflow `json:"workflows"`
	TotalCount  int64              `json:"total_count"`
	HasNextPage bool               `json:"has_next_page"`
}

var allowedSorts = []string{"created_at", "updated_at", "name"}

// ListWorkflows retrieves workflows with filtering, sorting, and pagination.
func (w *Workflow) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	if err := validateListWorkflowsRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	all, err := w.store.Workflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	filtered := all[:0:0]

	for _, workflow := range all {
		if req.Status != nil && workflow.Status != *req.Status {
			continue
		}

		filtered = append(filtered, workflow)
	}

	slices.SortStableFunc(filtered, func(a, b *models.Workflow) int {
		var c int

		switch req.SortBy {
		case "name":
			c = strings.Compare(a.Name, b.Name)
		case "updated_at":
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}

		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}

		if req.SortOrder == "desc" {
			return -c
		}

		return c
	})

	total := len(filtered)
	start := min(req.Offset, total)
	end := min(start+req.Limit, total)

	return &ListWorkflowsResponse{
		Workflows:   filtered[start:end],
		TotalCount:  int64(total),
		HasNextPage: end < total,
	}, nil
}

func validateListWorkflowsRequest(req *ListWorkflowsRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError(
			"validateListWorkflowsRequest",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField,
		)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError(
			"validateListWorkflowsRequest",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder,
		)
	}

	if req.Status != nil && !validStatus(*req.Status) {
		return NewValidationError(
			"validateListWorkflowsRequest",
			"INVALID_STATUS",
			fmt.Sprintf("invalid status '%s'", *req.Status),
			ErrInvalidStatus,
		)
	}

	return nil
}

func validStatus(status models.WorkflowStatus) bool {
	switch status {
	case models.WorkflowStatusDraft, models.WorkflowStatusActive, models.WorkflowStatusArchived:
		return true
	default:
		return false
	}
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.store.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// Create stores a new workflow as version 1 in draft status.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	now := w.clock.Now().UTC()
	workflow.ID = uuid.New().String()
	workflow.Version = 1
	workflow.Status = models.WorkflowStatusDraft
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if err := w.Validate(workflow); err != nil {
		return nil, err
	}

	if err := w.store.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "workflow created", "workflow_id", workflow.ID)

	return workflow, nil
}

// Update replaces the definition of a workflow and bumps its version. Active
// workflows get their trigger set up again.
func (w *Workflow) Update(ctx context.Context, workflowID string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if existing.Status == models.WorkflowStatusArchived {
		return nil, fmt.Errorf("%w: %s", ErrCannotModifyArchived, workflowID)
	}

	workflow.ID = workflowID
	workflow.Status = existing.Status
	workflow.Version = existing.Version + 1
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = w.clock.Now().UTC()

	if err := w.Validate(workflow); err != nil {
		return nil, err
	}

	if err := w.store.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	if workflow.Status == models.WorkflowStatusActive {
		w.setupTrigger(ctx, workflow)
	}

	w.logger.InfoContext(ctx, "workflow updated", "workflow_id", workflowID, "version", workflow.Version)

	return workflow, nil
}

// Duplicate copies a workflow under a new id as a draft, version 1.
func (w *Workflow) Duplicate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	existing, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	now := w.clock.Now().UTC()

	clone := existing.Clone()
	clone.ID = uuid.New().String()
	clone.Name = existing.Name + " (Copy)"
	clone.Version = 1
	clone.Status = models.WorkflowStatusDraft
	clone.CreatedAt = now
	clone.UpdatedAt = now

	if err := w.store.SaveWorkflow(ctx, clone); err != nil {
		return nil, fmt.Errorf("failed to duplicate workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "workflow duplicated", "workflow_id", workflowID, "copy_id", clone.ID)

	return clone, nil
}

// Delete removes a workflow together with its trigger registrations and run-state.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	if _, err := w.FetchByID(ctx, workflowID); err != nil {
		return err
	}

	if w.triggers != nil {
		w.triggers.Cleanup(ctx, workflowID)
	}

	if w.states != nil {
		if err := w.states.Delete(ctx, workflowID); err != nil {
			return fmt.Errorf("failed to delete workflow state: %w", err)
		}
	}

	if err := w.store.DeleteWorkflow(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "workflow deleted", "workflow_id", workflowID)

	return nil
}

// Validate checks the workflow structure, its graph, its trigger and every
// node config.
func (w *Workflow) Validate(workflow *models.Workflow) error {
	if workflow == nil {
		return ErrWorkflowNil
	}

	if strings.TrimSpace(workflow.Name) == "" {
		return ErrWorkflowNameRequired
	}

	if err := workflow.Validate(); err != nil {
		return err
	}

	if w.validator != nil {
		if err := w.validator.ValidateNodes(workflow.Nodes); err != nil {
			return err
		}
	}

	return nil
}

func (w *Workflow) setupTrigger(ctx context.Context, workflow *models.Workflow) {
	if w.triggers == nil {
		return
	}

	// Setup failures are logged by the manager and leave the workflow as is.
	if err := w.triggers.SetupTrigger(ctx, workflow); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.WarnContext(ctx, "workflow saved without trigger", "workflow_id", workflow.ID, "error", err)
	}
}
