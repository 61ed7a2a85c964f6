package preset

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"galaxy-server/internal/shared/database"
)

var (
	ErrPresetNotFound = stderrors.New("preset not found")
	ErrPresetExists   = stderrors.New("preset already exists")
)

// Repository stores presets by name.
type Repository interface {
	List(ctx context.Context) ([]Preset, error)
	Get(ctx context.Context, name string) (*Preset, error)
	Create(ctx context.Context, p Preset) (*Preset, error)
	Delete(ctx context.Context, name string) error
}

type PostgresRepository struct {
	db     database.Executor
	logger *slog.Logger
}

func NewPostgresRepository(db database.Executor, logger *slog.Logger) *PostgresRepository {
	logger.Debug("Initializing preset repository")

	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

const presetColumns = `name, description, parameters, seed, builtin, created_at, updated_at`

func (r *PostgresRepository) List(ctx context.Context) ([]Preset, error) {
	logger := r.logger.With("component", "preset_repository", "operation", "list")
	logger.Debug("Listing presets")

	var presets []Preset
	query := `SELECT ` + presetColumns + ` FROM galaxy_presets ORDER BY builtin DESC, name`
	if err := r.db.SelectContext(ctx, &presets, query); err != nil {
		logger.Error("Failed to list presets", "error", err)
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}

	logger.Debug("Presets listed", "count", len(presets))
	return presets, nil
}

func (r *PostgresRepository) Get(ctx context.Context, name string) (*Preset, error) {
	logger := r.logger.With("component", "preset_repository", "operation", "get", "name", name)

	var p Preset
	query := `SELECT ` + presetColumns + ` FROM galaxy_presets WHERE name = $1`
	if err := r.db.GetContext(ctx, &p, query, name); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrPresetNotFound
		}
		logger.Error("Failed to get preset", "error", err)
		return nil, fmt.Errorf("failed to get preset: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p Preset) (*Preset, error) {
	logger := r.logger.With("component", "preset_repository", "operation", "create", "name", p.Name)
	logger.Info("Creating preset")

	query := `
		INSERT INTO galaxy_presets (name, description, parameters, seed, builtin)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO NOTHING
		RETURNING ` + presetColumns

	var created Preset
	err := r.db.GetContext(ctx, &created, query, p.Name, p.Description, p.Parameters, p.Seed, p.Builtin)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrPresetExists
		}
		logger.Error("Failed to create preset", "error", err)
		return nil, fmt.Errorf("failed to create preset: %w", err)
	}

	logger.Info("Preset created successfully")
	return &created, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, name string) error {
	logger := r.logger.With("component", "preset_repository", "operation", "delete", "name", name)

	result, err := r.db.ExecContext(ctx, `DELETE FROM galaxy_presets WHERE name = $1 AND NOT builtin`, name)
	if err != nil {
		logger.Error("Failed to delete preset", "error", err)
		return fmt.Errorf("failed to delete preset: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrPresetNotFound
	}

	logger.Info("Preset deleted")
	return nil
}

// MemoryRepository serves presets when no database is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	presets map[string]Preset
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		presets: make(map[string]Preset),
		now:     time.Now,
	}
}

func (r *MemoryRepository) List(_ context.Context) ([]Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	presets := make([]Preset, 0, len(r.presets))
	for _, p := range r.presets {
		presets = append(presets, p)
	}
	sort.Slice(presets, func(i, j int) bool {
		if presets[i].Builtin != presets[j].Builtin {
			return presets[i].Builtin
		}
		return presets[i].Name < presets[j].Name
	})
	return presets, nil
}

func (r *MemoryRepository) Get(_ context.Context, name string) (*Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.presets[name]
	if !ok {
		return nil, ErrPresetNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) Create(_ context.Context, p Preset) (*Preset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.presets[p.Name]; ok {
		return nil, ErrPresetExists
	}
	now := r.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.presets[p.Name] = p
	return &p, nil
}

func (r *MemoryRepository) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.presets[name]
	if !ok || p.Builtin {
		return ErrPresetNotFound
	}
	delete(r.presets, name)
	return nil
}
