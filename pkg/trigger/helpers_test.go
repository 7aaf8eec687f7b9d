package trigger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/persistence/file"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/jonboulle/clockwork"
)

var testLogger = slog.New(slog.DiscardHandler)

var errBadSchedule = errors.New("bad schedule")

type fakeHandle struct {
	scheduler *fakeScheduler
	id        int
}

func (h *fakeHandle) Stop() {
	h.scheduler.mu.Lock()
	defer h.scheduler.mu.Unlock()

	delete(h.scheduler.jobs, h.id)
}

// fakeScheduler records jobs so tests can fire them by hand.
type fakeScheduler struct {
	mu     sync.Mutex
	nextID int
	jobs   map[int]func()
	exprs  map[int]string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: map[int]func(){}, exprs: map[int]string{}}
}

func (s *fakeScheduler) Schedule(expr string, fn func()) (protocol.ScheduleHandle, error) {
	if _, err := models.ParseSchedule(expr); err != nil {
		return nil, errBadSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.jobs[s.nextID] = fn
	s.exprs[s.nextID] = expr

	return &fakeHandle{scheduler: s, id: s.nextID}, nil
}

func (s *fakeScheduler) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.jobs)
}

func (s *fakeScheduler) fireAll() {
	s.mu.Lock()
	jobs := make([]func(), 0, len(s.jobs))

	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.mu.Unlock()

	for _, job := range jobs {
		job()
	}
}

type capturePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.events)
}

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) *persistence.Repository {
	t.Helper()

	return persistence.NewRepository(file.NewStore(t.TempDir()))
}

func newTestClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(testNow)
}

func workflowWithTrigger(id string, trigger models.Trigger) *models.Workflow {
	return &models.Workflow{
		ID:      id,
		Name:    id,
		Version: 1,
		Status:  models.WorkflowStatusActive,
		Trigger: trigger,
		Nodes:   []*models.Node{{ID: "start", Type: models.NodeTypeForm}},
	}
}

func timeTrigger(schedule string) models.Trigger {
	return models.Trigger{ID: "t", Type: models.TriggerTypeTime, Enabled: true, Config: models.TriggerConfig{Schedule: schedule}}
}
