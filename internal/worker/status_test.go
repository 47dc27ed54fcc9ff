package worker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/renderd/internal/protocol"
	"github.com/danmuck/renderd/internal/testutil/testlog"
)

func TestStatusServerRoutes(t *testing.T) {
	testlog.Start(t)

	frames := []*protocol.FrameBuilder{newModel(1), newModel(2)}
	in, _ := newSolo(t, testConfig(), frames...)
	stepFrames(t, in, frames...)

	srv := NewStatusServer("run-1", nil, in)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "run-1", health["run_id"])
	assert.EqualValues(t, 1, health["ranks"])

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		RunID string   `json:"run_id"`
		Ranks []Status `json:"ranks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Ranks, 1)
	assert.Equal(t, Status{Rank: 0, Size: 1, Commands: 2, LastOpcode: "new_model", Handles: 2}, body.Ranks[0])

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "renderd_worker_commands_total")
}

func TestNormalizeOrigins(t *testing.T) {
	assert.Equal(t, []string{"http://localhost:3000"}, normalizeOrigins(nil))
	assert.Equal(t, []string{"https://a.example"}, normalizeOrigins([]string{"https://a.example"}))
}
