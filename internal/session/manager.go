package session

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"galaxy-server/internal/galaxy"
	"galaxy-server/internal/shared/errors"

	"github.com/google/uuid"
)

// Session is one editing session with its own current cloud.
type Session struct {
	controller *Controller
	state      State
	lastUsed   time.Time

	// commitMu orders commits and deletion of this session; removed is
	// guarded by it.
	commitMu sync.Mutex
	removed  bool
}

func (s *Session) Controller() *Controller {
	return s.controller
}

// Manager keeps live sessions in memory, bounded by maxSessions, and their
// state in a Store. An evicted session is rebuilt from its stored seed.
// Store I/O and generation run outside mu; busy marks the IDs being rebuilt
// or deleted so that work on one ID never overlaps.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	busy        map[string]chan struct{}
	store       Store
	graphics    Graphics
	ranges      galaxy.Ranges
	maxCount    int
	maxSessions int
	logger      *slog.Logger
}

type ManagerConfig struct {
	MaxSessions int
	MaxCount    int
	Ranges      galaxy.Ranges
}

func NewManager(store Store, graphics Graphics, cfg ManagerConfig, logger *slog.Logger) *Manager {
	logger.Debug("Initializing session manager", "max_sessions", cfg.MaxSessions)

	return &Manager{
		sessions:    make(map[string]*Session),
		busy:        make(map[string]chan struct{}),
		store:       store,
		graphics:    graphics,
		ranges:      cfg.Ranges,
		maxCount:    cfg.MaxCount,
		maxSessions: cfg.MaxSessions,
		logger:      logger,
	}
}

func (m *Manager) checkParameters(params galaxy.Parameters) error {
	if err := m.ranges.Check(params); err != nil {
		return err
	}
	if m.maxCount > 0 && params.Count > m.maxCount {
		return errors.Validationf("count must not exceed %d, got %d", m.maxCount, params.Count)
	}
	return nil
}

// Create starts a session and generates its first cloud.
func (m *Manager) Create(ctx context.Context, params galaxy.Parameters, seed *uint64) (State, error) {
	if err := m.checkParameters(params); err != nil {
		return State{}, err
	}

	id := uuid.NewString()
	logger := m.logger.With("component", "session_manager", "operation", "create", "session_id", id)

	s := seedOrNew(seed)
	controller := NewController(m.graphics, m.logger)
	current, err := controller.Regenerate(params, s)
	if err != nil {
		return State{}, err
	}

	now := time.Now().UTC()
	state := State{
		ID:         id,
		Parameters: params,
		Seed:       s,
		Generation: current.Generation,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := m.store.Save(ctx, state); err != nil {
		m.closeController(controller, logger)
		return State{}, errors.WrapInternal("failed to store session", err)
	}

	m.mu.Lock()
	m.evictLocked(logger)
	m.sessions[id] = &Session{controller: controller, state: state, lastUsed: time.Now()}
	m.mu.Unlock()

	logger.Info("Session created", "count", params.Count, "seed", s)
	return state, nil
}

// Get returns a live session, rebuilding it from the store if it was evicted.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.WrapValidation("invalid session ID format", err)
	}

	for {
		m.mu.Lock()
		if s, ok := m.sessions[id]; ok {
			s.lastUsed = time.Now()
			m.mu.Unlock()
			return s, nil
		}
		if wait, ok := m.busy[id]; ok {
			m.mu.Unlock()
			if err := waitFor(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}
		done := m.markBusyLocked(id)
		m.mu.Unlock()

		s, err := m.rebuild(ctx, id)

		m.mu.Lock()
		if err == nil {
			m.evictLocked(m.logger.With("component", "session_manager", "operation", "rebuild", "session_id", id))
			m.sessions[id] = s
		}
		m.clearBusyLocked(id, done)
		m.mu.Unlock()

		return s, err
	}
}

func (m *Manager) rebuild(ctx context.Context, id string) (*Session, error) {
	logger := m.logger.With("component", "session_manager", "operation", "rebuild", "session_id", id)

	state, err := m.store.Load(ctx, id)
	if err != nil {
		if stderrors.Is(err, ErrStateNotFound) {
			return nil, errors.NotFoundf("session %s not found", id)
		}
		return nil, errors.WrapInternal("failed to load session", err)
	}

	controller := NewController(m.graphics, m.logger)
	if _, err := controller.Regenerate(state.Parameters, state.Seed); err != nil {
		m.closeController(controller, logger)
		return nil, errors.WrapInternal("failed to rebuild session", err)
	}

	logger.Info("Session rebuilt from stored state", "seed", state.Seed)
	return &Session{controller: controller, state: state, lastUsed: time.Now()}, nil
}

// State returns the stored view of a session.
func (m *Manager) State(ctx context.Context, id string) (State, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return State{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return s.state, nil
}

// Commit applies a settled parameter edit: the session regenerates and its
// previous cloud is released. A nil seed keeps the session's seed so that
// only the edited parameter changes the picture.
func (m *Manager) Commit(ctx context.Context, id string, params galaxy.Parameters, seed *uint64) (State, error) {
	if err := m.checkParameters(params); err != nil {
		return State{}, err
	}

	s, err := m.Get(ctx, id)
	if err != nil {
		return State{}, err
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if s.removed {
		return State{}, errors.NotFoundf("session %s not found", id)
	}

	m.mu.Lock()
	next := s.state
	m.mu.Unlock()

	if seed != nil {
		next.Seed = *seed
	}

	current, err := s.controller.Regenerate(params, next.Seed)
	if err != nil {
		return State{}, err
	}

	next.Parameters = params
	next.Generation = current.Generation
	next.UpdatedAt = time.Now().UTC()

	if err := m.store.Save(ctx, next); err != nil {
		return State{}, errors.WrapInternal("failed to store session", err)
	}

	m.mu.Lock()
	s.state = next
	s.lastUsed = time.Now()
	m.mu.Unlock()

	m.logger.Info("Session committed",
		"component", "session_manager",
		"operation", "commit",
		"session_id", id,
		"generation", next.Generation,
	)
	return next, nil
}

// Delete ends a session and releases its cloud. A commit in flight finishes
// first, so its state never outlives the deletion.
func (m *Manager) Delete(ctx context.Context, id string) error {
	logger := m.logger.With("component", "session_manager", "operation", "delete", "session_id", id)

	m.mu.Lock()
	for {
		wait, ok := m.busy[id]
		if !ok {
			break
		}
		m.mu.Unlock()
		if err := waitFor(ctx, wait); err != nil {
			return err
		}
		m.mu.Lock()
	}
	s, live := m.sessions[id]
	delete(m.sessions, id)
	done := m.markBusyLocked(id)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.clearBusyLocked(id, done)
		m.mu.Unlock()
	}()

	if live {
		s.commitMu.Lock()
		s.removed = true
		m.closeController(s.controller, logger)
		s.commitMu.Unlock()
	} else if _, err := m.store.Load(ctx, id); err != nil {
		if stderrors.Is(err, ErrStateNotFound) {
			return errors.NotFoundf("session %s not found", id)
		}
		return errors.WrapInternal("failed to load session", err)
	}

	if err := m.store.Delete(ctx, id); err != nil {
		return errors.WrapInternal("failed to delete session", err)
	}

	logger.Info("Session deleted")
	return nil
}

func (m *Manager) markBusyLocked(id string) chan struct{} {
	done := make(chan struct{})
	m.busy[id] = done
	return done
}

func (m *Manager) clearBusyLocked(id string, done chan struct{}) {
	delete(m.busy, id)
	close(done)
}

func waitFor(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.WrapInternal("session operation cancelled", ctx.Err())
	}
}

// Len reports how many sessions are live in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close releases every live session. Stored state is kept.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	logger := m.logger.With("component", "session_manager", "operation", "close")

	var errs []error
	for _, s := range sessions {
		if err := s.controller.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	logger.Info("Session manager closed", "released", len(sessions))
	return stderrors.Join(errs...)
}

// evictLocked drops the least recently used session when the manager is full.
func (m *Manager) evictLocked(logger *slog.Logger) {
	if m.maxSessions <= 0 || len(m.sessions) < m.maxSessions {
		return
	}

	var oldestID string
	var oldest time.Time
	for id, s := range m.sessions {
		if oldestID == "" || s.lastUsed.Before(oldest) {
			oldestID, oldest = id, s.lastUsed
		}
	}

	s := m.sessions[oldestID]
	delete(m.sessions, oldestID)
	m.closeController(s.controller, logger)
	logger.Debug("Evicted idle session", "evicted_id", oldestID)
}

func (m *Manager) closeController(c *Controller, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Warn("Failed to release session cloud", "error", err)
	}
}

func seedOrNew(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	return galaxy.NewSeed()
}
