package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"galaxy-server/internal/galaxy"
	galaxyHandlers "galaxy-server/internal/galaxy/handlers"
	"galaxy-server/internal/preset"
	"galaxy-server/internal/render"
	"galaxy-server/internal/session"
	"galaxy-server/internal/shared/errors"
	"galaxy-server/internal/shared/response"
)

// PresetLookup resolves a preset name when a session starts from one.
type PresetLookup interface {
	Get(ctx context.Context, name string) (*preset.Preset, error)
}

// CreateSessionRequest names an optional preset. Parameters holds only the
// fields to override; it is decoded onto the defaults or the preset.
type CreateSessionRequest struct {
	Preset     string          `json:"preset,omitempty"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	Seed       *uint64         `json:"seed,omitempty"`
}

type UpdateParametersRequest struct {
	Parameters galaxy.Parameters `json:"parameters"`
	Seed       *uint64           `json:"seed,omitempty"`
}

type SessionHandler struct {
	manager  *session.Manager
	presets  PresetLookup
	defaults galaxy.Parameters
}

func NewSessionHandler(manager *session.Manager, presets PresetLookup, defaults galaxy.Parameters) *SessionHandler {
	return &SessionHandler{manager: manager, presets: presets, defaults: defaults}
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "create_session")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req CreateSessionRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !stderrors.Is(err, io.EOF) {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	params, seed, err := h.startingPoint(ctx, req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	state, err := h.manager.Create(ctx, params, seed)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, state)
}

// startingPoint picks defaults, then the preset, then explicit fields.
func (h *SessionHandler) startingPoint(ctx context.Context, req CreateSessionRequest) (galaxy.Parameters, *uint64, error) {
	params := h.defaults
	seed := req.Seed

	if req.Preset != "" {
		if h.presets == nil {
			return params, nil, errors.Unavailable("presets are not available")
		}
		p, err := h.presets.Get(ctx, req.Preset)
		if err != nil {
			return params, nil, err
		}
		params = p.GalaxyParameters()
		if s, ok := p.SeedValue(); ok && seed == nil {
			seed = &s
		}
	}

	if len(req.Parameters) > 0 {
		if err := json.Unmarshal(req.Parameters, &params); err != nil {
			return params, nil, errors.WrapValidation("invalid parameters in request body", err)
		}
	}
	return params, seed, nil
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_session")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	state, err := h.manager.State(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, state)
}

// UpdateParameters commits a settled edit. Omitted fields keep the
// session's current values.
func (h *SessionHandler) UpdateParameters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "update_session_parameters")

	if r.Method != http.MethodPut {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	id := r.PathValue("id")
	current, err := h.manager.State(ctx, id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	req := UpdateParametersRequest{Parameters: current.Parameters}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	state, err := h.manager.Commit(ctx, id, req.Parameters, req.Seed)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, state)
}

func (h *SessionHandler) GetCloud(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_session_cloud")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	s, err := h.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	current, ok := s.Controller().Current()
	if !ok {
		response.Error(w, r, logger, errors.NotFoundf("session has no point cloud"))
		return
	}

	w.Header().Set("X-Galaxy-Generation", strconv.FormatUint(current.Generation, 10))
	if galaxyHandlers.WantsBinary(r) {
		if err := galaxyHandlers.WriteBinaryCloud(w, current.Cloud, current.Seed); err != nil {
			logger.Warn("Failed to stream point cloud", "error", err)
		}
		return
	}

	response.Success(w, http.StatusOK, galaxyHandlers.NewCloudResponse(&galaxy.GenerateResult{
		Parameters: current.Parameters,
		Seed:       current.Seed,
		Cloud:      current.Cloud,
	}))
}

func (h *SessionHandler) GetPreview(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_session_preview")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	s, err := h.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var buf bytes.Buffer
	var generation uint64
	err = s.Controller().WithCurrent(func(current session.CurrentCloud) error {
		preview, ok := current.Resource.(*render.Preview)
		if !ok {
			return errors.Unavailable("previews are not rendered for this session")
		}
		generation = current.Generation
		return preview.EncodePNG(&buf)
	})
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Galaxy-Generation", strconv.FormatUint(generation, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn("Failed to write preview", "error", err)
	}
}

func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "delete_session")

	if r.Method != http.MethodDelete {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	if err := h.manager.Delete(r.Context(), r.PathValue("id")); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
