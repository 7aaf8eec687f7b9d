package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dukex/flowrun/pkg/models"
)

// Repository provides typed access to the documents kept in a Store.
type Repository struct {
	store Store
}

// NewRepository wraps store.
func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

// Store returns the underlying document store.
func (r *Repository) Store() Store {
	return r.store
}

func put[T any](ctx context.Context, store Store, collection, id string, value T) error {
	doc, err := json.Marshal(value)
	if err != nil {
		return NewDocumentError("Put", collection, id, err)
	}

	return store.Put(ctx, collection, id, doc)
}

func get[T any](ctx context.Context, store Store, collection, id string) (*T, error) {
	doc, err := store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	var value T
	if err := json.Unmarshal(doc, &value); err != nil {
		return nil, NewDocumentError("Get", collection, id, err)
	}

	return &value, nil
}

func list[T any](ctx context.Context, store Store, collection string) ([]*T, error) {
	docs, err := store.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	values := make([]*T, 0, len(docs))

	for _, doc := range docs {
		var value T
		if err := json.Unmarshal(doc, &value); err != nil {
			return nil, NewDocumentError("List", collection, "", err)
		}

		values = append(values, &value)
	}

	return values, nil
}

// SaveWorkflow stores a workflow definition.
func (r *Repository) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return put(ctx, r.store, CollectionWorkflows, workflow.ID, workflow)
}

// WorkflowByID returns ErrWorkflowNotFound when the workflow does not exist.
func (r *Repository) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := get[models.Workflow](ctx, r.store, CollectionWorkflows, id)
	if errors.Is(err, ErrNotFound) {
		return nil, NewDocumentError("WorkflowByID", CollectionWorkflows, id, ErrWorkflowNotFound)
	}

	return workflow, err
}

// Workflows returns every workflow ordered by creation time.
func (r *Repository) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := list[models.Workflow](ctx, r.store, CollectionWorkflows)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// DeleteWorkflow removes a workflow definition.
func (r *Repository) DeleteWorkflow(ctx context.Context, id string) error {
	return r.store.Delete(ctx, CollectionWorkflows, id)
}

// SaveState stores the run-state of a workflow, keyed by workflow id.
func (r *Repository) SaveState(ctx context.Context, state *models.WorkflowState) error {
	return put(ctx, r.store, CollectionWorkflowStates, state.WorkflowID, state)
}

// StateByWorkflowID returns ErrStateNotFound when no run-state exists.
func (r *Repository) StateByWorkflowID(ctx context.Context, workflowID string) (*models.WorkflowState, error) {
	state, err := get[models.WorkflowState](ctx, r.store, CollectionWorkflowStates, workflowID)
	if errors.Is(err, ErrNotFound) {
		return nil, NewDocumentError("StateByWorkflowID", CollectionWorkflowStates, workflowID, ErrStateNotFound)
	}

	return state, err
}

// DeleteState removes the run-state of a workflow.
func (r *Repository) DeleteState(ctx context.Context, workflowID string) error {
	return r.store.Delete(ctx, CollectionWorkflowStates, workflowID)
}

// Enqueue stores a run request.
func (r *Repository) Enqueue(ctx context.Context, request *models.RunRequest) error {
	return r.SaveRunRequest(ctx, request)
}

// SaveRunRequest stores a run request.
func (r *Repository) SaveRunRequest(ctx context.Context, request *models.RunRequest) error {
	return put(ctx, r.store, CollectionRunRequests, request.ID, request)
}

// RunRequestByID returns a stored run request.
func (r *Repository) RunRequestByID(ctx context.Context, id string) (*models.RunRequest, error) {
	return get[models.RunRequest](ctx, r.store, CollectionRunRequests, id)
}

// PendingRunRequests returns pending run requests, oldest first.
func (r *Repository) PendingRunRequests(ctx context.Context) ([]*models.RunRequest, error) {
	requests, err := list[models.RunRequest](ctx, r.store, CollectionRunRequests)
	if err != nil {
		return nil, err
	}

	pending := make([]*models.RunRequest, 0, len(requests))

	for _, request := range requests {
		if request.Status == models.RunRequestPending {
			pending = append(pending, request)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	return pending, nil
}

// SaveEventSubscription stores the event subscription of a workflow.
func (r *Repository) SaveEventSubscription(ctx context.Context, sub *models.EventSubscription) error {
	return put(ctx, r.store, CollectionEventSubscriptions, sub.WorkflowID, sub)
}

// DeleteEventSubscription removes the event subscription of a workflow.
func (r *Repository) DeleteEventSubscription(ctx context.Context, workflowID string) error {
	return r.store.Delete(ctx, CollectionEventSubscriptions, workflowID)
}

// EventSubscriptionsByType returns subscriptions listening for eventType.
func (r *Repository) EventSubscriptionsByType(ctx context.Context, eventType string) ([]*models.EventSubscription, error) {
	subs, err := list[models.EventSubscription](ctx, r.store, CollectionEventSubscriptions)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.EventSubscription, 0, len(subs))

	for _, sub := range subs {
		if sub.EventType == eventType {
			matched = append(matched, sub)
		}
	}

	return matched, nil
}

// SaveWebhook stores the webhook registration of a workflow.
func (r *Repository) SaveWebhook(ctx context.Context, hook *models.WebhookRegistration) error {
	return put(ctx, r.store, CollectionWebhooks, hook.WorkflowID, hook)
}

// WebhookByWorkflowID returns the webhook registration of a workflow.
func (r *Repository) WebhookByWorkflowID(ctx context.Context, workflowID string) (*models.WebhookRegistration, error) {
	return get[models.WebhookRegistration](ctx, r.store, CollectionWebhooks, workflowID)
}

// DeleteWebhook removes the webhook registration of a workflow.
func (r *Repository) DeleteWebhook(ctx context.Context, workflowID string) error {
	return r.store.Delete(ctx, CollectionWebhooks, workflowID)
}

// SaveEmail stores an email record.
func (r *Repository) SaveEmail(ctx context.Context, email *models.EmailRecord) error {
	return put(ctx, r.store, CollectionEmails, email.ID, email)
}

// EmailByID returns a stored email record.
func (r *Repository) EmailByID(ctx context.Context, id string) (*models.EmailRecord, error) {
	return get[models.EmailRecord](ctx, r.store, CollectionEmails, id)
}

// EmailsByStatus returns email records with the given status, oldest first.
func (r *Repository) EmailsByStatus(ctx context.Context, status models.EmailStatus) ([]*models.EmailRecord, error) {
	emails, err := list[models.EmailRecord](ctx, r.store, CollectionEmails)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}

	matched := make([]*models.EmailRecord, 0, len(emails))

	for _, email := range emails {
		if email.Status == status {
			matched = append(matched, email)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	return matched, nil
}
