// Package persistence provides the document store abstraction and the typed
// repository used by the engine.
package persistence

import "context"

// Collections used by the repository.
const (
	CollectionWorkflows          = "workflows"
	CollectionWorkflowStates     = "workflowStates"
	CollectionRunRequests        = "runRequests"
	CollectionEventSubscriptions = "eventSubscriptions"
	CollectionWebhooks           = "webhooks"
	CollectionEmails             = "emails"
)

// Store persists JSON documents addressed by collection and id.
type Store interface {
	Put(ctx context.Context, collection, id string, doc []byte) error
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) ([]byte, error)
	// Delete is a no-op for missing documents.
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([][]byte, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
