package handlers

import (
	"context"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"galaxy-server/internal/galaxy"
	galaxyHandlers "galaxy-server/internal/galaxy/handlers"
	"galaxy-server/internal/preset"
	"galaxy-server/internal/render"
	"galaxy-server/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	mux      *http.ServeMux
	manager  *session.Manager
	renderer *render.PreviewRenderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	renderer, err := render.NewPreviewRenderer(64, 64, logger)
	require.NoError(t, err)

	manager := session.NewManager(session.NewMemoryStore(time.Hour), renderer, session.ManagerConfig{
		MaxSessions: 4,
		MaxCount:    10_000,
		Ranges:      galaxy.DefaultRanges(),
	}, logger)
	t.Cleanup(func() { _ = manager.Close() })

	presets := preset.NewService(preset.NewMemoryRepository(), galaxy.DefaultRanges(), 10_000, logger)
	seed := uint64(12)
	params := galaxy.DefaultParameters()
	params.Count = 400
	params.Branches = 3
	_, err = presets.Create(context.Background(), preset.CreateRequest{Name: "three", Parameters: params, Seed: &seed})
	require.NoError(t, err)

	defaults := galaxy.DefaultParameters()
	defaults.Count = 1_000
	h := NewSessionHandler(manager, presets, defaults)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", h.CreateSession)
	mux.HandleFunc("/api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			h.DeleteSession(w, r)
			return
		}
		h.GetSession(w, r)
	})
	mux.HandleFunc("/api/sessions/{id}/parameters", h.UpdateParameters)
	mux.HandleFunc("/api/sessions/{id}/cloud", h.GetCloud)
	mux.HandleFunc("/api/sessions/{id}/preview.png", h.GetPreview)

	return &fixture{mux: mux, manager: manager, renderer: renderer}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

func (f *fixture) create(t *testing.T, body string) session.State {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/sessions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var state session.State
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	return state
}

func TestCreateSessionDefaults(t *testing.T) {
	f := newFixture(t)

	state := f.create(t, "")
	assert.NotEmpty(t, state.ID)
	assert.Equal(t, 1_000, state.Parameters.Count)
	assert.Equal(t, uint64(1), state.Generation)
	assert.Equal(t, 1, f.renderer.Live())
}

func TestCreateSessionFromPreset(t *testing.T) {
	f := newFixture(t)

	state := f.create(t, `{"preset":"three"}`)
	assert.Equal(t, 3, state.Parameters.Branches)
	assert.Equal(t, uint64(12), state.Seed)

	state = f.create(t, `{"preset":"three","seed":5}`)
	assert.Equal(t, uint64(5), state.Seed)

	rec := f.do(t, http.MethodPost, "/api/sessions", `{"preset":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSessionOverlaysParameters(t *testing.T) {
	f := newFixture(t)

	state := f.create(t, `{"preset":"three","parameters":{"count":500}}`)
	assert.Equal(t, 3, state.Parameters.Branches)
	assert.Equal(t, 500, state.Parameters.Count)
	assert.Equal(t, uint64(12), state.Seed)

	state = f.create(t, `{"parameters":{"count":500}}`)
	assert.Equal(t, 500, state.Parameters.Count)
	assert.Equal(t, galaxy.DefaultParameters().Branches, state.Parameters.Branches)
	assert.Equal(t, galaxy.DefaultParameters().RandomnessPower, state.Parameters.RandomnessPower)

	rec := f.do(t, http.MethodPost, "/api/sessions", `{"parameters":{"count":"many"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSessionRejectsOutOfRange(t *testing.T) {
	f := newFixture(t)

	params := galaxy.DefaultParameters()
	params.Branches = 0
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	body, err := json.Marshal(CreateSessionRequest{Parameters: raw})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/sessions", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.renderer.Live())
}

func TestUpdateParametersReplacesCloud(t *testing.T) {
	f := newFixture(t)
	state := f.create(t, `{"seed":3}`)

	rec := f.do(t, http.MethodPut, "/api/sessions/"+state.ID+"/parameters", `{"parameters":{"count":2000}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated session.State
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, 2000, updated.Parameters.Count)
	assert.Equal(t, state.Parameters.Branches, updated.Parameters.Branches)
	assert.Equal(t, uint64(3), updated.Seed)
	assert.Equal(t, uint64(2), updated.Generation)
	assert.Equal(t, 1, f.renderer.Live(), "the outgoing preview is released")
}

func TestUpdateParametersInvalidKeepsCloud(t *testing.T) {
	f := newFixture(t)
	state := f.create(t, "")

	rec := f.do(t, http.MethodPut, "/api/sessions/"+state.ID+"/parameters", `{"parameters":{"branches":0}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/sessions/"+state.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var current session.State
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&current))
	assert.Equal(t, uint64(1), current.Generation)
	assert.Equal(t, 1, f.renderer.Live())
}

func TestGetCloud(t *testing.T) {
	f := newFixture(t)
	state := f.create(t, `{"parameters":{"count":300,"size":0.01,"radius":5,"branches":5,"spin":1,"randomness":0.2,"randomnessPower":3,"innerColor":"#ff6030","outerColor":"#1b3984"},"seed":8}`)

	rec := f.do(t, http.MethodGet, "/api/sessions/"+state.ID+"/cloud", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Galaxy-Generation"))

	var body galaxyHandlers.CloudResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 300, body.Count)
	assert.Equal(t, uint64(8), body.Seed)
	assert.Len(t, body.Colors, 900)
}

func TestGetPreview(t *testing.T) {
	f := newFixture(t)
	state := f.create(t, "")

	rec := f.do(t, http.MethodGet, "/api/sessions/"+state.ID+"/preview.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	state := f.create(t, "")

	rec := f.do(t, http.MethodDelete, "/api/sessions/"+state.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, f.renderer.Live())

	rec = f.do(t, http.MethodGet, "/api/sessions/"+state.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/sessions/"+state.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionNotFoundAndInvalidID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/sessions/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/sessions/6f1c2a9e-3b5d-4c7e-9f0a-1b2c3d4e5f60/cloud", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
