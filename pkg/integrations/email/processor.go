package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowrun/pkg/metrics"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/jonboulle/clockwork"
)

const DefaultMaxAttempts = 3

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Processor delivers pending and retryable failed records. A failed record is
// retried until it reaches maxAttempts.
type Processor struct {
	store       Store
	sender      Sender
	clock       clockwork.Clock
	metrics     *metrics.Metrics
	logger      *slog.Logger
	maxAttempts int
}

type ProcessorOption func(*Processor)

func WithMaxAttempts(n int) ProcessorOption {
	return func(p *Processor) {
		p.maxAttempts = n
	}
}

func WithProcessorClock(clock clockwork.Clock) ProcessorOption {
	return func(p *Processor) {
		p.clock = clock
	}
}

func WithProcessorMetrics(m *metrics.Metrics) ProcessorOption {
	return func(p *Processor) {
		p.metrics = m
	}
}

func NewProcessor(store Store, sender Sender, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:       store,
		sender:      sender,
		clock:       clockwork.NewRealClock(),
		logger:      logger.With("module", "email_processor"),
		maxAttempts: DefaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ProcessPending sends every deliverable record once and returns how many
// were sent.
func (p *Processor) ProcessPending(ctx context.Context) (int, error) {
	pending, err := p.store.EmailsByStatus(ctx, models.EmailStatusPending)
	if err != nil {
		return 0, err
	}

	failed, err := p.store.EmailsByStatus(ctx, models.EmailStatusFailed)
	if err != nil {
		return 0, err
	}

	sent := 0

	var errs []error

	for _, record := range append(pending, failed...) {
		if record.Attempts >= p.maxAttempts {
			continue
		}

		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		if err := p.deliver(ctx, record); err != nil {
			errs = append(errs, err)

			continue
		}

		sent++
	}

	return sent, errors.Join(errs...)
}

func (p *Processor) deliver(ctx context.Context, record *models.EmailRecord) error {
	logger := p.logger.With("email_id", record.ID)

	sendErr := p.sender.Send(ctx, Message{To: record.To, Subject: record.Subject, Body: record.Body})

	record.Attempts++

	if sendErr != nil {
		record.Status = models.EmailStatusFailed
		record.Error = sendErr.Error()
		p.metrics.EmailProcessed(string(models.EmailStatusFailed))
		logger.WarnContext(ctx, "email delivery failed", "attempts", record.Attempts, "error", sendErr)
	} else {
		now := p.clock.Now().UTC()
		record.Status = models.EmailStatusSent
		record.SentAt = &now
		record.Error = ""
		p.metrics.EmailProcessed(string(models.EmailStatusSent))
		logger.InfoContext(ctx, "email sent")
	}

	if err := p.store.SaveEmail(context.WithoutCancel(ctx), record); err != nil {
		return fmt.Errorf("failed to record email %s: %w", record.ID, err)
	}

	if sendErr != nil {
		return &SendError{EmailID: record.ID, Err: sendErr}
	}

	return nil
}

// Run processes the queue every interval until ctx is done.
func (p *Processor) Run(ctx context.Context, interval time.Duration) error {
	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.ProcessPending(ctx); err != nil && ctx.Err() == nil {
			p.logger.ErrorContext(ctx, "email processing failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}
