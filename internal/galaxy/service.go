package galaxy

import (
	"context"
	"log/slog"
	"time"

	"galaxy-server/internal/shared/config"
	"galaxy-server/internal/shared/errors"
)

type GenerateRequest struct {
	Parameters Parameters `json:"parameters"`
	Seed       *uint64    `json:"seed,omitempty"`
}

type GenerateResult struct {
	Parameters Parameters
	Seed       uint64
	Cloud      *PointCloud
	Elapsed    time.Duration
}

type Service struct {
	maxCount int
	defaults Parameters
	logger   *slog.Logger
}

func NewService(cfg config.GalaxyConfig, logger *slog.Logger) (*Service, error) {
	logger.Debug("Initializing galaxy service")

	defaults, err := ParametersFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &Service{
		maxCount: cfg.MaxCount,
		defaults: defaults,
		logger:   logger,
	}, nil
}

// ParametersFromConfig builds the default parameter set from configuration.
func ParametersFromConfig(cfg config.GalaxyConfig) (Parameters, error) {
	inner, err := ParseColor(cfg.DefaultInnerColor)
	if err != nil {
		return Parameters{}, errors.WrapValidation("invalid GALAXY_DEFAULT_INNER_COLOR", err)
	}
	outer, err := ParseColor(cfg.DefaultOuterColor)
	if err != nil {
		return Parameters{}, errors.WrapValidation("invalid GALAXY_DEFAULT_OUTER_COLOR", err)
	}

	params := Parameters{
		Count:           cfg.DefaultCount,
		Size:            cfg.DefaultSize,
		Radius:          cfg.DefaultRadius,
		Branches:        cfg.DefaultBranches,
		Spin:            cfg.DefaultSpin,
		Randomness:      cfg.DefaultRandomness,
		RandomnessPower: cfg.DefaultRandomnessPower,
		InnerColor:      inner,
		OuterColor:      outer,
	}
	if err := params.Validate(); err != nil {
		return Parameters{}, err
	}
	return params, nil
}

func (s *Service) Defaults() Parameters {
	return s.defaults
}

func (s *Service) MaxCount() int {
	return s.maxCount
}

// CheckLimits rejects parameter sets the server refuses to generate.
func (s *Service) CheckLimits(params Parameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if params.Count > s.maxCount {
		return errors.WrapValidation("invalid galaxy parameters",
			parameterError("count", "must not exceed %d, got %d", s.maxCount, params.Count))
	}
	return nil
}

// Generate runs one generation with the requested seed, or a fresh one.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapInternal("galaxy generation cancelled", err)
	}

	if err := s.CheckLimits(req.Parameters); err != nil {
		return nil, err
	}

	seed := NewSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}

	logger := s.logger.With(
		"component", "galaxy_service",
		"operation", "generate",
		"count", req.Parameters.Count,
		"branches", req.Parameters.Branches,
		"seed", seed,
	)
	logger.Debug("Generating galaxy")

	start := time.Now()
	cloud, err := Generate(req.Parameters, NewSeededSource(seed))
	if err != nil {
		logger.Debug("Galaxy generation rejected", "error", err)
		return nil, err
	}
	elapsed := time.Since(start)

	logger.Info("Galaxy generated", "points", cloud.Len(), "elapsed", elapsed)
	return &GenerateResult{
		Parameters: req.Parameters,
		Seed:       seed,
		Cloud:      cloud,
		Elapsed:    elapsed,
	}, nil
}
