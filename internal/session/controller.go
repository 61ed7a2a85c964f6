package session

import (
	"log/slog"
	"sync"
	"time"

	"galaxy-server/internal/galaxy"
	"galaxy-server/internal/shared/errors"
)

// Resource is whatever the graphics layer allocated for one cloud (vertex
// buffers, a raster target). It must be released exactly once.
type Resource interface {
	Release() error
}

// Graphics uploads a cloud to the display side.
type Graphics interface {
	Upload(cloud *galaxy.PointCloud, params galaxy.Parameters) (Resource, error)
}

// CurrentCloud is the single cloud a controller displays.
type CurrentCloud struct {
	Parameters  galaxy.Parameters
	Seed        uint64
	Cloud       *galaxy.PointCloud
	Resource    Resource
	Generation  uint64
	GeneratedAt time.Time
}

// Controller owns the current cloud and performs the dispose-then-install
// swap. Regenerations are serialized; at most one runs at a time.
type Controller struct {
	mu         sync.Mutex
	graphics   Graphics
	current    *CurrentCloud
	generation uint64
	closed     bool
	logger     *slog.Logger
}

func NewController(graphics Graphics, logger *slog.Logger) *Controller {
	return &Controller{
		graphics: graphics,
		logger:   logger.With("component", "session_controller"),
	}
}

// Regenerate builds a new cloud and replaces the current one. Invalid
// parameters fail before the current cloud is touched. The outgoing
// resource is released before the replacement is uploaded.
func (c *Controller) Regenerate(params galaxy.Parameters, seed uint64) (CurrentCloud, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := c.logger.With("operation", "regenerate", "count", params.Count, "seed", seed)

	if c.closed {
		return CurrentCloud{}, errors.Unavailable("session controller is closed")
	}

	start := time.Now()
	cloud, err := galaxy.Generate(params, galaxy.NewSeededSource(seed))
	if err != nil {
		logger.Debug("Regeneration rejected", "error", err)
		return CurrentCloud{}, err
	}

	c.releaseCurrent(logger)

	resource, err := c.graphics.Upload(cloud, params)
	if err != nil {
		logger.Error("Failed to upload cloud", "error", err)
		return CurrentCloud{}, errors.WrapInternal("failed to upload point cloud", err)
	}

	c.generation++
	c.current = &CurrentCloud{
		Parameters:  params,
		Seed:        seed,
		Cloud:       cloud,
		Resource:    resource,
		Generation:  c.generation,
		GeneratedAt: time.Now(),
	}

	logger.Debug("Cloud installed", "generation", c.generation, "elapsed", time.Since(start))
	return *c.current, nil
}

func (c *Controller) releaseCurrent(logger *slog.Logger) {
	if c.current == nil {
		return
	}
	if err := c.current.Resource.Release(); err != nil {
		logger.Warn("Failed to release outgoing cloud", "generation", c.current.Generation, "error", err)
	}
	c.current = nil
}

// Current returns a snapshot of the current cloud.
func (c *Controller) Current() (CurrentCloud, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return CurrentCloud{}, false
	}
	return *c.current, true
}

// WithCurrent runs fn while the current cloud cannot be swapped out, so fn
// may safely read from its resource.
func (c *Controller) WithCurrent(fn func(CurrentCloud) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return errors.NotFoundf("no point cloud has been generated")
	}
	return fn(*c.current)
}

// Generation counts successful regenerations.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Close releases the current cloud. It is safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	if c.current != nil {
		err = c.current.Resource.Release()
		c.current = nil
	}
	return err
}
