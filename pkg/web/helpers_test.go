package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowrun/pkg/metrics"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/persistence/file"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/registry"
	"github.com/dukex/flowrun/pkg/scheduler"
	"github.com/dukex/flowrun/pkg/services"
	"github.com/dukex/flowrun/pkg/trigger"
	"github.com/dukex/flowrun/pkg/web"
	"github.com/dukex/flowrun/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.DiscardHandler)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) Send(_ context.Context, channel, recipient, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sent = append(n.sent, channel+"|"+recipient+"|"+message)

	return nil
}

type nopQueue struct{}

func (nopQueue) Enqueue(_ context.Context, to, subject, body string) (*models.EmailRecord, error) {
	return &models.EmailRecord{ID: "email-1", To: to, Subject: subject, Body: body}, nil
}

type testEnv struct {
	app      *fiber.App
	repo     *persistence.Repository
	runner   *workflow.Runner
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := persistence.NewRepository(file.NewStore(t.TempDir()))
	notifier := &recordingNotifier{}
	m := metrics.New()

	nodes := registry.NewRegistry(testLogger)
	nodes.RegisterDefaultNodes()
	require.NoError(t, nodes.Build(protocol.Dependencies{EmailQueue: nopQueue{}, Notifier: notifier}))

	retry := workflow.NewRetryManager(testLogger,
		workflow.WithBackoff(time.Millisecond, time.Millisecond),
		workflow.WithJitter(func(time.Duration) time.Duration { return 0 }),
	)
	executor := workflow.NewExecutor(nodes, testLogger, workflow.WithRetryManager(retry), workflow.WithMetrics(m))
	states := workflow.NewStateMachine(repo, testLogger, nil)
	runner := workflow.NewRunner(repo, executor, states, testLogger,
		workflow.WithRunRequests(repo),
		workflow.WithRunnerMetrics(m),
	)

	triggers := trigger.NewManager(scheduler.NewCronScheduler(testLogger), repo, testLogger, trigger.WithMetrics(m))
	dispatcher := trigger.NewDispatcher(repo, testLogger, trigger.WithDispatchMetrics(m))

	workflowService := services.NewWorkflow(repo, testLogger,
		services.WithNodeValidator(nodes),
		services.WithTriggers(triggers),
		services.WithStates(states),
		services.WithHealthCheck(repo.Store().HealthCheck),
	)

	handlers := web.NewAPIHandlers(
		workflowService,
		services.NewNode(workflowService),
		runner,
		states,
		dispatcher,
		validator.New(validator.WithRequiredStructEnabled()),
		nodes,
	)

	app := fiber.New()
	web.Mount(app, handlers, m.Handler())

	return &testEnv{app: app, repo: repo, runner: runner, notifier: notifier}
}

// do sends a JSON request and decodes the JSON response into out when out is non-nil.
func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()

	var reader io.Reader

	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}

	return resp.StatusCode
}

func (e *testEnv) createWorkflow(t *testing.T, req web.WorkflowRequest) *models.Workflow {
	t.Helper()

	var created models.Workflow
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/workflows", req, &created))

	return &created
}

// signupWorkflow greets a form submitter and branches on their age.
func signupWorkflow(triggerConfig models.Trigger) web.WorkflowRequest {
	return web.WorkflowRequest{
		Name:    "Signup",
		Trigger: triggerConfig,
		Nodes: []*models.Node{
			{ID: "intake", Type: models.NodeTypeForm},
			{ID: "shout", Type: models.NodeTypeTransform, Config: map[string]any{"operation": "uppercase", "input": "{{variables.intake.name}}"}},
			{ID: "adult", Type: models.NodeTypeCondition, Config: map[string]any{"field": "variables.intake.age", "operator": ">=", "value": "18"}},
			{ID: "welcome", Type: models.NodeTypeNotification, Config: map[string]any{"channel": "Slack", "recipient": "#signups", "message": "welcome {{variables.shout.result}}"}},
			{ID: "guardian", Type: models.NodeTypeApproval, Config: map[string]any{"approver": "guardian"}},
		},
		Edges: []*models.Edge{
			{Source: "intake", Target: "shout"},
			{Source: "shout", Target: "adult"},
			{Source: "adult", Target: "welcome", Label: models.BranchTrue},
			{Source: "adult", Target: "guardian", Label: models.BranchFalse},
		},
	}
}

type problem struct {
	Type   string `json:"type"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}
