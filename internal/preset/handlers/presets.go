package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"galaxy-server/internal/preset"
	"galaxy-server/internal/shared/errors"
	"galaxy-server/internal/shared/response"
)

type PresetHandler struct {
	service *preset.Service
}

func NewPresetHandler(service *preset.Service) *PresetHandler {
	return &PresetHandler{service: service}
}

func (h *PresetHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "list_presets")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	presets, err := h.service.List(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, presets)
}

func (h *PresetHandler) GetPreset(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_preset")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	name := r.PathValue("name")
	if name == "" {
		response.Error(w, r, logger, errors.Validation("preset name is required"))
		return
	}

	p, err := h.service.Get(r.Context(), name)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, p)
}

func (h *PresetHandler) CreatePreset(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "create_preset")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req preset.CreateRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, created)
}

func (h *PresetHandler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "delete_preset")

	if r.Method != http.MethodDelete {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	if err := h.service.Delete(r.Context(), r.PathValue("name")); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
