// Package email queues outbound email as store records and delivers pending
// records through a Sender.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Store persists email records.
type Store interface {
	SaveEmail(ctx context.Context, email *models.EmailRecord) error
	EmailsByStatus(ctx context.Context, status models.EmailStatus) ([]*models.EmailRecord, error)
}

// Queue implements protocol.EmailQueue by writing pending records.
type Queue struct {
	store  Store
	clock  clockwork.Clock
	logger *slog.Logger
}

func NewQueue(store Store, clock clockwork.Clock, logger *slog.Logger) *Queue {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Queue{store: store, clock: clock, logger: logger.With("module", "email_queue")}
}

func (q *Queue) Enqueue(ctx context.Context, to, subject, body string) (*models.EmailRecord, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, ErrNoRecipient
	}

	record := &models.EmailRecord{
		ID:        uuid.NewString(),
		To:        to,
		Subject:   subject,
		Body:      body,
		Status:    models.EmailStatusPending,
		Attempts:  0,
		CreatedAt: q.clock.Now().UTC(),
	}

	if err := q.store.SaveEmail(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to queue email: %w", err)
	}

	q.logger.DebugContext(ctx, "email queued", "email_id", record.ID)

	return record, nil
}
