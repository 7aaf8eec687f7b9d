package email

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/persistence/file"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.DiscardHandler)

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.sent = append(s.sent, msg)

	return nil
}

func newRepo(t *testing.T) *persistence.Repository {
	t.Helper()

	return persistence.NewRepository(file.NewStore(t.TempDir()))
}

func TestQueue_Enqueue(t *testing.T) {
	repo := newRepo(t)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	queue := NewQueue(repo, clock, testLogger)

	record, err := queue.Enqueue(t.Context(), " ann@example.com ", "Hi", "Body")
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "ann@example.com", record.To)
	assert.Equal(t, models.EmailStatusPending, record.Status)
	assert.Equal(t, 0, record.Attempts)
	assert.Equal(t, clock.Now().UTC(), record.CreatedAt)

	stored, err := repo.EmailByID(t.Context(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Subject, stored.Subject)
}

func TestQueue_EnqueueWithoutRecipient(t *testing.T) {
	_, err := NewQueue(newRepo(t), nil, testLogger).Enqueue(t.Context(), "  ", "s", "b")
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestProcessor_SendsPending(t *testing.T) {
	repo := newRepo(t)
	queue := NewQueue(repo, nil, testLogger)
	sender := &recordingSender{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC))

	record, err := queue.Enqueue(t.Context(), "a@example.com", "Subject", "Body")
	require.NoError(t, err)

	processor := NewProcessor(repo, sender, testLogger, WithProcessorClock(clock))

	sent, err := processor.ProcessPending(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []Message{{To: "a@example.com", Subject: "Subject", Body: "Body"}}, sender.sent)

	stored, err := repo.EmailByID(t.Context(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EmailStatusSent, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.SentAt)
	assert.Equal(t, clock.Now().UTC(), *stored.SentAt)

	sent, err = processor.ProcessPending(t.Context())
	require.NoError(t, err)
	assert.Zero(t, sent, "sent records are not resent")
}

func TestProcessor_RetriesUntilMaxAttempts(t *testing.T) {
	repo := newRepo(t)
	sender := &recordingSender{err: errors.New("connection refused")}

	record, err := NewQueue(repo, nil, testLogger).Enqueue(t.Context(), "a@example.com", "s", "b")
	require.NoError(t, err)

	processor := NewProcessor(repo, sender, testLogger, WithMaxAttempts(2))

	for range 3 {
		_, _ = processor.ProcessPending(t.Context())
	}

	stored, err := repo.EmailByID(t.Context(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EmailStatusFailed, stored.Status)
	assert.Equal(t, 2, stored.Attempts)
	assert.Equal(t, "connection refused", stored.Error)

	sender.err = nil

	sent, err := processor.ProcessPending(t.Context())
	require.NoError(t, err)
	assert.Zero(t, sent, "records past max attempts are left alone")
}

func TestProcessor_FailureReturnsSendError(t *testing.T) {
	repo := newRepo(t)
	_, err := NewQueue(repo, nil, testLogger).Enqueue(t.Context(), "a@example.com", "s", "b")
	require.NoError(t, err)

	processor := NewProcessor(repo, &recordingSender{err: ErrSMTPUnavailable}, testLogger)

	_, err = processor.ProcessPending(t.Context())

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.ErrorIs(t, err, ErrSMTPUnavailable)
}

func TestProcessor_RunStopsOnCancel(t *testing.T) {
	repo := newRepo(t)
	sender := &recordingSender{}
	_, err := NewQueue(repo, nil, testLogger).Enqueue(t.Context(), "a@example.com", "s", "b")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)

	go func() {
		done <- NewProcessor(repo, sender, testLogger).Run(ctx, time.Hour)
	}()

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()

		return len(sender.sent) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
