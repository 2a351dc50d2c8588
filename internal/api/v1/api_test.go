package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexiplay/soundtrack/internal/events"
	"github.com/lexiplay/soundtrack/internal/lifecycle"
	"github.com/lexiplay/soundtrack/internal/logger"
	"github.com/lexiplay/soundtrack/internal/playback"
)

// fakeHost records lifecycle calls and serves fixed snapshots.
type fakeHost struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeHost) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeHost) Foreground()    { f.record("foreground") }
func (f *fakeHost) Background()    { f.record("background") }
func (f *fakeHost) GameplayEnter() { f.record("gameplay-enter") }
func (f *fakeHost) GameplayExit(resume bool) {
	if resume {
		f.record("gameplay-exit(resume)")
		return
	}
	f.record("gameplay-exit")
}
func (f *fakeHost) Dispatch(name string) error {
	f.record("dispatch:" + name)
	return nil
}
func (f *fakeHost) ResumeAmbient() { f.record("resume-ambient") }
func (f *fakeHost) Snapshot() []playback.Snapshot {
	return []playback.Snapshot{
		{Channel: playback.Ambient, State: playback.StatePaused, Source: "https://user:pw@cdn.example.com/amb.flac?token=s3cret", Generation: 1, HasResource: true},
		{Channel: playback.Gameplay, State: playback.StatePreparing, Source: "game.wav", Generation: 2, HasResource: true},
	}
}

func setupController(t *testing.T) (*echo.Echo, *fakeHost) {
	t.Helper()
	e := echo.New()
	host := &fakeHost{}
	New(e, host, host,
		WithLogger(logger.Discard()),
		WithEventStats(func() events.Stats { return events.Stats{EventsReceived: 3} }))
	return e, host
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, http.NoBody))
	return rec
}

func TestLifecycleEndpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target string
		call   string
		action string
	}{
		{"foreground", "/api/v1/lifecycle/foreground", "foreground", lifecycle.EventForeground},
		{"background", "/api/v1/lifecycle/background", "background", lifecycle.EventBackground},
		{"enter", "/api/v1/lifecycle/gameplay/enter", "gameplay-enter", lifecycle.EventGameplayEnter},
		{"exit default", "/api/v1/lifecycle/gameplay/exit", "dispatch:gameplay-exit", lifecycle.EventGameplayExit},
		{"exit no resume", "/api/v1/lifecycle/gameplay/exit?resume_ambient=false", "gameplay-exit", lifecycle.EventGameplayExit},
		{"exit resume", "/api/v1/lifecycle/gameplay/exit?resume_ambient=true", "gameplay-exit(resume)", lifecycle.EventGameplayExitResume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, host := setupController(t)

			rec := serve(e, http.MethodPost, tt.target)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var result ActionResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
			assert.True(t, result.Success)
			assert.Equal(t, tt.action, result.Action)
			assert.Len(t, result.Channels, 2)
			assert.NotZero(t, result.Timestamp)
			assert.Equal(t, []string{tt.call}, host.calls)
		})
	}
}

func TestGameplayExitRejectsBadFlag(t *testing.T) {
	t.Parallel()
	e, host := setupController(t)

	rec := serve(e, http.MethodPost, "/api/v1/lifecycle/gameplay/exit?resume_ambient=maybe")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Invalid resume_ambient parameter", resp.Message)
	_, err := uuid.Parse(resp.CorrelationID)
	require.NoError(t, err)
	assert.Empty(t, host.calls)
}

func TestLifecycleRequiresPost(t *testing.T) {
	t.Parallel()
	e, host := setupController(t)

	rec := serve(e, http.MethodGet, "/api/v1/lifecycle/foreground")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, host.calls)
}

func TestGetChannels(t *testing.T) {
	t.Parallel()
	e, _ := setupController(t)

	rec := serve(e, http.MethodGet, "/api/v1/channels")
	require.Equal(t, http.StatusOK, rec.Code)

	var snaps []playback.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	require.Len(t, snaps, 2)
	assert.Equal(t, playback.Ambient, snaps[0].Channel)
	assert.Equal(t, playback.StatePreparing, snaps[1].State)
	assert.Equal(t, "https://cdn.example.com/amb.flac", snaps[0].Source)
}

func TestResponsesNeverExposeCredentials(t *testing.T) {
	t.Parallel()

	targets := []struct{ method, target string }{
		{http.MethodGet, "/api/v1/channels"},
		{http.MethodGet, "/api/v1/channels/ambient"},
		{http.MethodPost, "/api/v1/ambient/resume"},
		{http.MethodPost, "/api/v1/lifecycle/foreground"},
		{http.MethodPost, "/api/v1/lifecycle/gameplay/exit?resume_ambient=true"},
	}
	for _, tt := range targets {
		t.Run(tt.target, func(t *testing.T) {
			t.Parallel()
			e, _ := setupController(t)

			rec := serve(e, tt.method, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, "cdn.example.com/amb.flac")
			assert.NotContains(t, body, "s3cret")
			assert.NotContains(t, body, "user:pw")
		})
	}
}

func TestGetChannel(t *testing.T) {
	t.Parallel()
	e, _ := setupController(t)

	rec := serve(e, http.MethodGet, "/api/v1/channels/Gameplay")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap playback.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "game.wav", snap.Source)

	rec = serve(e, http.MethodGet, "/api/v1/channels/radio")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResumeAmbient(t *testing.T) {
	t.Parallel()
	e, host := setupController(t)

	rec := serve(e, http.MethodPost, "/api/v1/ambient/resume")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"resume-ambient"}, host.calls)

	var snap playback.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, playback.Ambient, snap.Channel)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	e, _ := setupController(t)

	rec := serve(e, http.MethodGet, "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	require.NotNil(t, health.Events)
	assert.Equal(t, uint64(3), health.Events.EventsReceived)
}

func TestListEvents(t *testing.T) {
	t.Parallel()
	e, _ := setupController(t)

	rec := serve(e, http.MethodGet, "/api/v1/lifecycle/events")
	require.Equal(t, http.StatusOK, rec.Code)
	var names []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Equal(t, lifecycle.Events, names)
}
