package session

import (
	"sync"
	"time"

	"github.com/quorumhq/minute/pkg/uictl"
)

// Snapshot is the observable state of the current session. Level is
// transient: it is only meaningful while Phase is recording, and consumers
// must gate on Phase rather than assume a stale value is current.
type Snapshot struct {
	Phase     Phase
	Level     float64
	Err       error
	UpdatedAt time.Time
}

// Store holds the single current Snapshot and notifies subscribers
// synchronously on every field change. The controller and the pipeline
// runner are the only writers; UI components are read-only observers.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
	subs []func(Snapshot)
}

func NewStore() *Store {
	return &Store{
		snap: Snapshot{Phase: PhaseIdle},
	}
}

// Subscribe registers fn to be invoked synchronously after every mutation.
// Subscribers must not call back into the store's mutators.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Phase returns the current phase.
func (s *Store) Phase() Phase {
	return s.Snapshot().Phase
}

// Level returns the last relayed audio level.
func (s *Store) Level() float64 {
	return s.Snapshot().Level
}

// Err returns the last surfaced error, nil if none.
func (s *Store) Err() error {
	return s.Snapshot().Err
}

// SetPhase overwrites the current phase. Last write wins.
func (s *Store) SetPhase(phase Phase) {
	s.mutate(func(snap *Snapshot) {
		snap.Phase = phase
	})
}

// SetLevel overwrites the current audio level.
func (s *Store) SetLevel(level float64) {
	s.mutate(func(snap *Snapshot) {
		snap.Level = level
	})
}

// SetError overwrites the last error. Pass nil to clear it.
func (s *Store) SetError(err error) {
	s.mutate(func(snap *Snapshot) {
		snap.Err = err
	})
}

func (s *Store) mutate(apply func(*Snapshot)) {
	s.mu.Lock()
	apply(&s.snap)
	s.snap.UpdatedAt = time.Now()
	snap := s.snap
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// LevelDial exposes the current audio level as a read-only control.
func (s *Store) LevelDial() uictl.Dial[float64] {
	return levelDial{store: s}
}

type levelDial struct {
	store *Store
}

func (d levelDial) Read() float64 {
	return d.store.Level()
}
