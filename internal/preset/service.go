package preset

import (
	"context"
	stderrors "errors"
	"log/slog"
	"regexp"

	"galaxy-server/internal/galaxy"
	"galaxy-server/internal/shared/errors"
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

type Service struct {
	repo     Repository
	ranges   galaxy.Ranges
	maxCount int
	logger   *slog.Logger
}

func NewService(repo Repository, ranges galaxy.Ranges, maxCount int, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		ranges:   ranges,
		maxCount: maxCount,
		logger:   logger,
	}
}

func (s *Service) List(ctx context.Context) ([]Preset, error) {
	presets, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.WrapInternal("failed to list presets", err)
	}
	if presets == nil {
		presets = []Preset{}
	}
	return presets, nil
}

func (s *Service) Get(ctx context.Context, name string) (*Preset, error) {
	p, err := s.repo.Get(ctx, name)
	if err != nil {
		if stderrors.Is(err, ErrPresetNotFound) {
			return nil, errors.NotFoundf("preset %q not found", name)
		}
		return nil, errors.WrapInternal("failed to get preset", err)
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Preset, error) {
	logger := s.logger.With("component", "preset_service", "operation", "create", "name", req.Name)

	if !namePattern.MatchString(req.Name) {
		return nil, errors.Validationf("preset name %q must be 1-64 lowercase letters, digits, '-' or '_'", req.Name)
	}
	if err := s.ranges.Check(req.Parameters); err != nil {
		return nil, err
	}
	if s.maxCount > 0 && req.Parameters.Count > s.maxCount {
		return nil, errors.Validationf("count must not exceed %d, got %d", s.maxCount, req.Parameters.Count)
	}
	if req.Seed != nil && *req.Seed >= galaxy.MaxSeed {
		return nil, errors.Validationf("seed must be below %d", uint64(galaxy.MaxSeed))
	}

	p := Preset{
		Name:        req.Name,
		Description: req.Description,
		Parameters:  ParametersColumn(req.Parameters),
	}
	if req.Seed != nil {
		seed := SeedColumn(*req.Seed)
		p.Seed = &seed
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		if stderrors.Is(err, ErrPresetExists) {
			return nil, errors.Conflictf("preset %q already exists", req.Name)
		}
		return nil, errors.WrapInternal("failed to create preset", err)
	}

	logger.Info("Preset saved")
	return created, nil
}

func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		if stderrors.Is(err, ErrPresetNotFound) {
			return errors.NotFoundf("preset %q not found or built in", name)
		}
		return errors.WrapInternal("failed to delete preset", err)
	}

	s.logger.Info("Preset deleted", "component", "preset_service", "operation", "delete", "name", name)
	return nil
}

// InstallBuiltins creates every builtin preset that is missing.
func (s *Service) InstallBuiltins(ctx context.Context) error {
	logger := s.logger.With("component", "preset_service", "operation", "install_builtins")

	installed := 0
	for _, p := range Builtins() {
		_, err := s.repo.Create(ctx, p)
		switch {
		case err == nil:
			installed++
		case stderrors.Is(err, ErrPresetExists):
		default:
			return errors.WrapInternal("failed to install builtin presets", err)
		}
	}

	logger.Info("Builtin presets ready", "installed", installed)
	return nil
}
