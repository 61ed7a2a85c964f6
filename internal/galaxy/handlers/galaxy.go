package handlers

import (
	"encoding/binary"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"galaxy-server/internal/galaxy"
	"galaxy-server/internal/shared/errors"
	"galaxy-server/internal/shared/response"
)

const (
	ContentTypeBinary = "application/octet-stream"
	HeaderCount       = "X-Galaxy-Count"
	HeaderSeed        = "X-Galaxy-Seed"
)

type DefaultsResponse struct {
	Parameters galaxy.Parameters `json:"parameters"`
	Ranges     galaxy.Ranges     `json:"ranges"`
	MaxCount   int               `json:"maxCount"`
}

// CloudResponse carries both vertex attributes as flat arrays, three
// components per point.
type CloudResponse struct {
	Parameters galaxy.Parameters `json:"parameters"`
	Seed       uint64            `json:"seed"`
	Count      int               `json:"count"`
	ElapsedMs  float64           `json:"elapsedMs"`
	Positions  []float32         `json:"positions"`
	Colors     []float32         `json:"colors"`
}

type StatsResponse struct {
	Parameters galaxy.Parameters `json:"parameters"`
	Seed       uint64            `json:"seed"`
	Stats      galaxy.Stats      `json:"stats"`
}

type GalaxyHandler struct {
	service *galaxy.Service
	ranges  galaxy.Ranges
}

func NewGalaxyHandler(service *galaxy.Service, ranges galaxy.Ranges) *GalaxyHandler {
	return &GalaxyHandler{service: service, ranges: ranges}
}

func (h *GalaxyHandler) GetDefaults(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "galaxy_defaults")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	response.Success(w, http.StatusOK, DefaultsResponse{
		Parameters: h.service.Defaults(),
		Ranges:     h.ranges,
		MaxCount:   h.service.MaxCount(),
	})
}

func (h *GalaxyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "galaxy_generate")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	req, err := h.decodeRequest(w, r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result, err := h.service.Generate(r.Context(), req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if WantsBinary(r) {
		if err := WriteBinaryCloud(w, result.Cloud, result.Seed); err != nil {
			logger.Warn("Failed to stream point cloud", "error", err)
		}
		return
	}

	response.Success(w, http.StatusOK, NewCloudResponse(result))
}

func (h *GalaxyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "galaxy_stats")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	req, err := h.decodeRequest(w, r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result, err := h.service.Generate(r.Context(), req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	stats, err := galaxy.ComputeStats(result.Cloud)
	if err != nil {
		response.Error(w, r, logger, errors.WrapInternal("failed to compute statistics", err))
		return
	}

	response.Success(w, http.StatusOK, StatsResponse{
		Parameters: result.Parameters,
		Seed:       result.Seed,
		Stats:      stats,
	})
}

// decodeRequest overlays the body on the default parameters, so clients
// may send only the fields they change. An empty body means defaults.
func (h *GalaxyHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (galaxy.GenerateRequest, error) {
	req := galaxy.GenerateRequest{Parameters: h.service.Defaults()}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !stderrors.Is(err, io.EOF) {
		return req, errors.WrapValidation("invalid JSON in request body", err)
	}
	return req, nil
}

func NewCloudResponse(result *galaxy.GenerateResult) CloudResponse {
	return CloudResponse{
		Parameters: result.Parameters,
		Seed:       result.Seed,
		Count:      result.Cloud.Len(),
		ElapsedMs:  float64(result.Elapsed.Microseconds()) / 1000,
		Positions:  result.Cloud.PositionBuffer(),
		Colors:     result.Cloud.ColorBuffer(),
	}
}

func WantsBinary(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), ContentTypeBinary)
}

// WriteBinaryCloud streams little-endian float32 positions followed by
// colors, 24 bytes per point in total.
func WriteBinaryCloud(w http.ResponseWriter, cloud *galaxy.PointCloud, seed uint64) error {
	positions := cloud.PositionBuffer()
	colors := cloud.ColorBuffer()

	w.Header().Set("Content-Type", ContentTypeBinary)
	w.Header().Set("Content-Length", strconv.Itoa((len(positions)+len(colors))*4))
	w.Header().Set(HeaderCount, strconv.Itoa(cloud.Len()))
	w.Header().Set(HeaderSeed, strconv.FormatUint(seed, 10))
	w.WriteHeader(http.StatusOK)

	if err := binary.Write(w, binary.LittleEndian, positions); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, colors)
}
