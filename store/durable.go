package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stevemurr/admit-stats/metrics"
	"github.com/stevemurr/admit-stats/record"
)

// Store owns a Backend, the most recently loaded or saved table, and the
// guard that serializes every backend access and cache change.
//
// Tables returned by Load are snapshots: callers mutate their own copy and
// publish it with Save. Load and Save hold the guard only for their own
// access, so a Load→mutate→Save cycle can lose a concurrent update to the
// same record. Update holds the guard across the whole cycle and does not.
//
// The cache is never refreshed from the backend once filled; changes made
// to the backing file by other processes are invisible until Invalidate.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	cache   *record.Table
	log     zerolog.Logger
}

func New(backend Backend, log zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		log: log.With().
			Str("component", "store").
			Str("backend", backend.String()).
			Logger(),
	}
}

// Load returns the current table. On a backend failure it returns an empty
// table and an error wrapping ErrLoadFailed; the failure is not cached.
func (s *Store) Load() (record.Table, error) {
	s.mu.RLock()
	if s.cache != nil {
		t := s.cache.Clone()
		s.mu.RUnlock()
		metrics.RecordLoad(metrics.SourceCache, nil)
		s.log.Debug().Int("records", t.Len()).Msg("table served from cache")
		return t, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.current()
	if err != nil {
		return record.Table{}, err
	}
	return t.Clone(), nil
}

// Save writes t to the backend and, on success, makes it the cached table.
// On failure the cache is left as it was.
func (s *Store) Save(t record.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(t.Clone())
}

// Update applies fn to the first record matching key and persists the
// result, holding the guard for the whole read-modify-write. Nothing is
// written when the key is missing or fn fails.
func (s *Store) Update(key record.Key, fn func(*record.Record) error) (record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.current()
	if err != nil {
		return record.Record{}, err
	}
	next := cur.Clone()
	rec, ok := next.Lookup(key)
	if !ok {
		return record.Record{}, fmt.Errorf("%w: %q / %q", ErrNotFound, key.University, key.Course)
	}
	if err := fn(rec); err != nil {
		return record.Record{}, err
	}
	updated := rec.Clone()
	if err := s.write(next); err != nil {
		return record.Record{}, err
	}
	s.log.Info().
		Str("university", key.University).
		Str("course", key.Course).
		Msg("record updated")
	return updated, nil
}

// Observe folds o into its program's running averages.
func (s *Store) Observe(o record.Observation) (record.Record, error) {
	if err := o.Validate(); err != nil {
		metrics.RecordObservation(metrics.ResultInvalid)
		return record.Record{}, err
	}
	rec, err := s.Update(o.Key(), func(r *record.Record) error {
		r.Observe(o)
		return nil
	})
	switch {
	case err == nil:
		metrics.RecordObservation(metrics.ResultOK)
	case errors.Is(err, ErrNotFound):
		metrics.RecordObservation(metrics.ResultNotFound)
	default:
		metrics.RecordObservation(metrics.ResultError)
	}
	return rec, err
}

// Invalidate drops the cached table so the next Load reads the backend.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
	s.log.Info().Msg("cache invalidated")
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// current returns the cached table, reading the backend when the cache is
// empty. Callers must hold s.mu for writing and must not mutate the result.
func (s *Store) current() (*record.Table, error) {
	if s.cache != nil {
		metrics.RecordLoad(metrics.SourceCache, nil)
		return s.cache, nil
	}

	t, err := s.backend.ReadAll()
	metrics.RecordLoad(metrics.SourceBackend, err)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load table")
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	if dups := t.Duplicates(); len(dups) > 0 {
		s.log.Warn().
			Int("keys", len(dups)).
			Str("university", dups[0].University).
			Str("course", dups[0].Course).
			Msg("duplicate programs in table, updates apply to the first match")
	}
	s.log.Info().Int("records", t.Len()).Msg("table loaded")
	s.setCache(t)
	return s.cache, nil
}

// write persists t and caches it. t must not be shared with the caller.
func (s *Store) write(t record.Table) error {
	err := s.backend.WriteAll(t)
	metrics.RecordSave(err)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to save table")
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	s.log.Info().Int("records", t.Len()).Msg("table saved")
	s.setCache(t)
	return nil
}

func (s *Store) setCache(t record.Table) {
	s.cache = &t
	metrics.Records.Set(float64(t.Len()))
}
