package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

// Store owns every session's Window. Sessions idle longer than the TTL are
// dropped, and past MaxSessions the least recently active go first.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Window
	cfg      model.SessionConfig
	ctxCfg   model.ContextConfig
	opts     []Option
	now      func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithWindowOptions applies opts to every window the store creates.
func WithWindowOptions(opts ...Option) StoreOption {
	return func(s *Store) { s.opts = append(s.opts, opts...) }
}

// WithStoreClock drives both session expiry and the windows' timestamps.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
		s.opts = append(s.opts, WithClock(now))
	}
}

func NewStore(cfg model.SessionConfig, ctxCfg model.ContextConfig, opts ...StoreOption) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	s := &Store{sessions: map[string]*Window{}, cfg: cfg, ctxCfg: ctxCfg, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetOrCreate returns the session's window, creating it on first use.
func (s *Store) GetOrCreate(sessionID string) *Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanup()
	w, ok := s.sessions[sessionID]
	if !ok {
		w = NewWindow(sessionID, s.ctxCfg, s.opts...)
		s.sessions[sessionID] = w
		s.enforceMax()
	}
	return w
}

// Get returns an existing, unexpired window.
func (s *Store) Get(sessionID string) (*Window, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanup()
	w, ok := s.sessions[sessionID]
	return w, ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) cleanup() {
	now := s.now()
	for id, w := range s.sessions {
		if now.Sub(w.LastActive()) > s.cfg.TTL {
			delete(s.sessions, id)
			logx.Debug().Str("session_id", id).Msg("expired session dropped")
		}
	}
}

func (s *Store) enforceMax() {
	over := len(s.sessions) - s.cfg.MaxSessions
	if over <= 0 {
		return
	}
	type entry struct {
		id   string
		last time.Time
	}
	all := make([]entry, 0, len(s.sessions))
	for id, w := range s.sessions {
		all = append(all, entry{id, w.LastActive()})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].last.Before(all[j].last) })
	for _, e := range all[:over] {
		delete(s.sessions, e.id)
	}
}
