package server_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumhq/minute/internal/config"
	"github.com/quorumhq/minute/internal/notes"
	"github.com/quorumhq/minute/internal/server"
	"github.com/quorumhq/minute/internal/session"
)

func testServer(t *testing.T) (*server.Server, *session.Store, *notes.Store) {
	t.Helper()

	cfg := &config.Config{
		Env:        "test",
		Port:       "8080",
		HSTSMaxAge: 31536000,
		CSPMode:    "relaxed",
		LogLevel:   "info",
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors during tests
	}))

	sessionStore := session.NewStore()
	notesStore := notes.NewStore(t.TempDir())

	return server.New(cfg, logger, sessionStore, notesStore), sessionStore, notesStore
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.Contains(t, w.Body.String(), "minute")
}

func TestSessionEndpoint(t *testing.T) {
	srv, sessionStore, _ := testServer(t)

	sessionStore.SetPhase(session.PhaseRecording)
	sessionStore.SetLevel(0.42)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Phase string  `json:"phase"`
		Level float64 `json:"level"`
		Error string  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "recording", resp.Phase)
	assert.InDelta(t, 0.42, resp.Level, 1e-9)
	assert.Empty(t, resp.Error)
}

func TestSessionEndpointSurfacesError(t *testing.T) {
	srv, sessionStore, _ := testServer(t)

	sessionStore.SetError(errors.New("microphone access denied"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "microphone access denied")
}

func TestMeetingsEndpoint(t *testing.T) {
	srv, _, notesStore := testServer(t)

	_, err := notesStore.Save("Q3 Planning", nil, "transcript", &notes.Notes{
		Title:   "Q3 Planning",
		Summary: "Summary.",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/meetings", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Meetings []notes.Meeting `json:"meetings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Meetings, 1)
	assert.Equal(t, "q3-planning", resp.Meetings[0].Name)
	assert.True(t, resp.Meetings[0].HasNotes)
	assert.False(t, resp.Meetings[0].HasAudio)
}

func TestMeetingsEndpointEmpty(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/meetings", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"meetings":[]}`, w.Body.String())
}

func TestStaticMeetingFiles(t *testing.T) {
	srv, _, notesStore := testServer(t)

	saved, err := notesStore.Save("standup", nil, "the transcript", nil)
	require.NoError(t, err)
	require.NotEmpty(t, saved.TranscriptPath)

	path := "/meetings/" + filepath.Base(saved.Dir) + "/" + notes.TranscriptFile
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "the transcript", w.Body.String())
}
