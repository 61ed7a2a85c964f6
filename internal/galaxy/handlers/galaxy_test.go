package handlers

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"galaxy-server/internal/galaxy"
	"galaxy-server/internal/shared/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *GalaxyHandler {
	t.Helper()
	cfg := config.GalaxyConfig{
		MaxCount:               10_000,
		DefaultCount:           1_000,
		DefaultSize:            0.01,
		DefaultRadius:          5,
		DefaultBranches:        5,
		DefaultSpin:            1,
		DefaultRandomness:      0.2,
		DefaultRandomnessPower: 3,
		DefaultInnerColor:      "#ff6030",
		DefaultOuterColor:      "#1b3984",
	}
	svc, err := galaxy.NewService(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return NewGalaxyHandler(svc, galaxy.DefaultRanges())
}

func TestGetDefaults(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()

	h.GetDefaults(rec, httptest.NewRequest(http.MethodGet, "/api/galaxy/defaults", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body DefaultsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1_000, body.Parameters.Count)
	assert.Equal(t, 10_000, body.MaxCount)
	assert.Equal(t, 20.0, body.Ranges.Branches.Max)
}

func TestGenerateJSON(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/galaxy/generate",
		strings.NewReader(`{"parameters":{"count":50,"branches":3},"seed":42}`))

	h.Generate(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body CloudResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 50, body.Count)
	assert.Equal(t, uint64(42), body.Seed)
	assert.Equal(t, 3, body.Parameters.Branches)
	assert.Equal(t, 5.0, body.Parameters.Radius, "unspecified fields keep their defaults")
	assert.Len(t, body.Positions, 150)
	assert.Len(t, body.Colors, 150)
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	h := newTestHandler(t)

	run := func() []byte {
		rec := httptest.NewRecorder()
		h.Generate(rec, httptest.NewRequest(http.MethodPost, "/api/galaxy/generate",
			strings.NewReader(`{"parameters":{"count":20},"seed":7}`)))
		require.Equal(t, http.StatusOK, rec.Code)
		var body CloudResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		data, err := json.Marshal(body.Positions)
		require.NoError(t, err)
		return data
	}

	assert.Equal(t, run(), run())
}

func TestGenerateBinary(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/galaxy/generate",
		strings.NewReader(`{"parameters":{"count":10,"radius":0},"seed":3}`))
	req.Header.Set("Accept", ContentTypeBinary)

	h.Generate(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentTypeBinary, rec.Header().Get("Content-Type"))
	assert.Equal(t, "10", rec.Header().Get(HeaderCount))
	assert.Equal(t, "3", rec.Header().Get(HeaderSeed))
	require.Equal(t, 10*6*4, rec.Body.Len())

	values := make([]float32, 60)
	require.NoError(t, binary.Read(bytes.NewReader(rec.Body.Bytes()), binary.LittleEndian, values))

	// radius 0 puts every point at the origin in the inner color
	for _, v := range values[:30] {
		assert.Zero(t, v)
	}
	assert.InDelta(t, 1.0, values[30], 1e-6)
	assert.InDelta(t, float64(0x60)/255, values[31], 1e-6)
}

func TestGenerateEmptyBodyUsesDefaults(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()

	h.Generate(rec, httptest.NewRequest(http.MethodPost, "/api/galaxy/generate", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body CloudResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1_000, body.Count)
	assert.Less(t, body.Seed, uint64(galaxy.MaxSeed))
}

func TestGenerateErrors(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, `{"parameters":`, http.StatusBadRequest},
		{"zero branches", http.MethodPost, `{"parameters":{"branches":0}}`, http.StatusBadRequest},
		{"negative count", http.MethodPost, `{"parameters":{"count":-1}}`, http.StatusBadRequest},
		{"above max count", http.MethodPost, `{"parameters":{"count":10001}}`, http.StatusBadRequest},
		{"bad color", http.MethodPost, `{"parameters":{"innerColor":"#zzzzzz"}}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Generate(rec, httptest.NewRequest(tt.method, "/api/galaxy/generate", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestGenerateZeroCount(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()

	h.Generate(rec, httptest.NewRequest(http.MethodPost, "/api/galaxy/generate",
		strings.NewReader(`{"parameters":{"count":0}}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body CloudResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Zero(t, body.Count)
	assert.NotNil(t, body.Positions)
	assert.Empty(t, body.Positions)
}

func TestStats(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()

	h.Stats(rec, httptest.NewRequest(http.MethodPost, "/api/galaxy/stats",
		strings.NewReader(`{"parameters":{"count":500},"seed":11}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 500, body.Stats.Count)
	assert.Positive(t, body.Stats.RadialMean)
	assert.LessOrEqual(t, body.Stats.RadialMedian, body.Stats.RadialP90)
	assert.False(t, math.IsNaN(body.Stats.VerticalStdDev))
}
