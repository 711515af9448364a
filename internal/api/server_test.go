package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plandeck/plandeck/internal/health"
	"github.com/plandeck/plandeck/internal/metrics"
	"github.com/plandeck/plandeck/internal/project"
	"github.com/plandeck/plandeck/internal/schedule"
	"github.com/plandeck/plandeck/internal/store"
)

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) ScheduleDigest(_ context.Context, _ *store.Project, _ *project.Plan) error {
	f.calls++
	return f.err
}

// testApp creates a Fiber app with all routes backed by a throwaway database.
func testApp(t *testing.T, apiKey string, notifier Notifier) (*fiber.App, *store.Store) {
	t.Helper()
	logger := zerolog.Nop()

	st, err := store.New(filepath.Join(t.TempDir(), "plandeck.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m := metrics.New()
	planner := project.New(st, m, schedule.DefaultThresholds(), 8, logger)
	checker := health.NewChecker(logger)

	srv := NewServer(ServerConfig{
		ListenAddr: ":0",
		APIKey:     apiKey,
		RateLimit:  RateLimitConfig{RPS: 100, Burst: 200},
	}, st, planner, notifier, checker, m, logger)

	return srv.App(), st
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_Probes(t *testing.T) {
	app, _ := testApp(t, "", nil)

	resp := doJSON(t, app, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])

	resp = doJSON(t, app, "GET", "/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ProjectCRUD(t *testing.T) {
	app, _ := testApp(t, "", nil)

	resp := doJSON(t, app, "POST", "/api/v1/projects", `{"name":"Voice Checkins","description":"Q3"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[store.Project](t, resp)
	assert.Equal(t, "voice-checkins", created.Slug)

	resp = doJSON(t, app, "GET", "/api/v1/projects/voice-checkins", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "PATCH", "/api/v1/projects/voice-checkins", `{"name":"Voice Check-ins"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[store.Project](t, resp)
	assert.Equal(t, "Voice Check-ins", updated.Name)

	resp = doJSON(t, app, "GET", "/api/v1/projects", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/api/v1/projects/voice-checkins/archive", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	archived := decode[store.Project](t, resp)
	assert.Equal(t, "archived", archived.Status)

	resp = doJSON(t, app, "DELETE", "/api/v1/projects/voice-checkins", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/v1/projects/voice-checkins", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	problem := decode[ProblemDetail](t, resp)
	assert.Equal(t, "not_found", problem.Type)
}

func TestServer_CreateProject_MissingName(t *testing.T) {
	app, _ := testApp(t, "", nil)

	resp := doJSON(t, app, "POST", "/api/v1/projects", `{"description":"no name"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	problem := decode[ProblemDetail](t, resp)
	assert.Equal(t, "missing_name", problem.Type)
}

func TestServer_CreateProject_DuplicateSlug(t *testing.T) {
	app, _ := testApp(t, "", nil)

	resp := doJSON(t, app, "POST", "/api/v1/projects", `{"name":"Dup"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doJSON(t, app, "POST", "/api/v1/projects", `{"name":"Dup"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_TaskFlowAndSchedule(t *testing.T) {
	app, _ := testApp(t, "", nil)

	resp := doJSON(t, app, "POST", "/api/v1/projects", `{"name":"Rollout"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/api/v1/projects/rollout/tasks", `{"name":"design","duration":2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	design := decode[store.Task](t, resp)

	body := fmt.Sprintf(`{"name":"build","duration":3,"dependencies":[%q]}`, design.ID)
	resp = doJSON(t, app, "POST", "/api/v1/projects/rollout/tasks", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	build := decode[store.Task](t, resp)

	body = fmt.Sprintf(`{"name":"docs","duration":1,"dependencies":[%q]}`, design.ID)
	resp = doJSON(t, app, "POST", "/api/v1/projects/rollout/tasks", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/v1/projects/rollout/tasks", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listing := decode[map[string]json.RawMessage](t, resp)
	var tasks []store.Task
	require.NoError(t, json.Unmarshal(listing["tasks"], &tasks))
	require.Len(t, tasks, 3)
	assert.Equal(t, "design", tasks[0].Name)

	resp = doJSON(t, app, "GET", "/api/v1/projects/rollout/schedule", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sched := decode[map[string]json.RawMessage](t, resp)

	var duration int
	require.NoError(t, json.Unmarshal(sched["project_duration"], &duration))
	assert.Equal(t, 5, duration)

	var criticalPath []string
	require.NoError(t, json.Unmarshal(sched["critical_path"], &criticalPath))
	assert.Equal(t, []string{design.ID, build.ID}, criticalPath)

	var healthStr string
	require.NoError(t, json.Unmarshal(sched["health"], &healthStr))
	assert.Equal(t, project.HealthOnTrack, healthStr)

	// Completing the long branch shifts the critical path.
	resp = doJSON(t, app, "PATCH", "/api/v1/tasks/"+build.ID, `{"status":"completed","progress":100}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/v1/projects/rollout/schedule", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sched = decode[map[string]json.RawMessage](t, resp)
	require.NoError(t, json.Unmarshal(sched["project_duration"], &duration))
	assert.Equal(t, 3, duration)

	resp = doJSON(t, app, "DELETE", "/api/v1/tasks/"+build.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = doJSON(t, app, "GET", "/api/v1/tasks/"+build.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_CreateTask_Invalid(t *testing.T) {
	app, _ := testApp(t, "", nil)
	doJSON(t, app, "POST", "/api/v1/projects", `{"name":"P"}`)

	tests := []struct {
		name string
		body string
	}{
		{"negative duration", `{"name":"t","duration":-1}`},
		{"progress above 100", `{"name":"t","duration":1,"progress":101}`},
		{"unknown status", `{"name":"t","duration":1,"status":"paused"}`},
		{"missing name", `{"duration":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, app, "POST", "/api/v1/projects/p/tasks", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestServer_UpdateTask_SelfDependency(t *testing.T) {
	app, _ := testApp(t, "", nil)
	doJSON(t, app, "POST", "/api/v1/projects", `{"name":"P"}`)
	resp := doJSON(t, app, "POST", "/api/v1/projects/p/tasks", `{"name":"t","duration":1}`)
	task := decode[store.Task](t, resp)

	body := fmt.Sprintf(`{"dependencies":[%q]}`, task.ID)
	resp = doJSON(t, app, "PATCH", "/api/v1/tasks/"+task.ID, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Resources(t *testing.T) {
	app, st := testApp(t, "", nil)

	dev, err := st.CreateDeveloper("Mara")
	require.NoError(t, err)

	doJSON(t, app, "POST", "/api/v1/projects", `{"name":"Loaded"}`)
	var prev string
	for i := 0; i < 3; i++ {
		body := fmt.Sprintf(`{"name":"t%d","duration":2,"assignee_id":%q}`, i, dev.ID)
		if prev != "" {
			body = fmt.Sprintf(`{"name":"t%d","duration":2,"assignee_id":%q,"dependencies":[%q]}`, i, dev.ID, prev)
		}
		resp := doJSON(t, app, "POST", "/api/v1/projects/loaded/tasks", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		prev = decode[store.Task](t, resp).ID
	}

	resp := doJSON(t, app, "GET", "/api/v1/projects/loaded/resources", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]json.RawMessage](t, resp)

	var loads []schedule.ResourceLoad
	require.NoError(t, json.Unmarshal(body["loads"], &loads))
	require.Len(t, loads, 1)
	assert.Equal(t, "Mara", loads[0].AssigneeName)

	var recs []string
	require.NoError(t, json.Unmarshal(body["recommendations"], &recs))
	assert.NotEmpty(t, recs)
}

func TestServer_Developers(t *testing.T) {
	app, _ := testApp(t, "", nil)

	resp := doJSON(t, app, "POST", "/api/v1/developers", `{"name":"Theo"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/v1/developers", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/api/v1/developers", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Checkin(t *testing.T) {
	notifier := &fakeNotifier{}
	app, _ := testApp(t, "", notifier)

	doJSON(t, app, "POST", "/api/v1/projects", `{"name":"Digest"}`)
	doJSON(t, app, "POST", "/api/v1/projects/digest/tasks", `{"name":"t","duration":2}`)

	resp := doJSON(t, app, "POST", "/api/v1/projects/digest/checkin", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, notifier.calls)
}

func TestServer_Checkin_NotConfigured(t *testing.T) {
	app, _ := testApp(t, "", nil)
	doJSON(t, app, "POST", "/api/v1/projects", `{"name":"Quiet"}`)

	resp := doJSON(t, app, "POST", "/api/v1/projects/quiet/checkin", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	problem := decode[ProblemDetail](t, resp)
	assert.Equal(t, "notifications_disabled", problem.Type)
}

func TestServer_Checkin_DeliveryFailure(t *testing.T) {
	notifier := &fakeNotifier{err: fmt.Errorf("slack down")}
	app, _ := testApp(t, "", notifier)
	doJSON(t, app, "POST", "/api/v1/projects", `{"name":"Down"}`)

	resp := doJSON(t, app, "POST", "/api/v1/projects/down/checkin", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestServer_AuthGate(t *testing.T) {
	app, _ := testApp(t, "secret-key", nil)

	// Probes stay open.
	resp := doJSON(t, app, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/v1/projects", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest("GET", "/api/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ = http.NewRequest("GET", "/api/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
