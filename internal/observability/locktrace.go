package observability

import (
	"time"

	"github.com/rs/zerolog"
)

// LockTracker wraps every "lock row, do work, release" span with structured
// timing telemetry. The clock is injected so tests can control time; the
// tracker itself keeps no mutable state.
type LockTracker struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewLockTracker constructs a tracker writing to the provided logger.
func NewLockTracker(logger zerolog.Logger) *LockTracker {
	return &LockTracker{
		logger: logger.With().Str("component", "lock_tracker").Logger(),
		now:    time.Now,
	}
}

// WithClock replaces the time source, for deterministic tests.
func (t *LockTracker) WithClock(now func() time.Time) *LockTracker {
	clone := *t
	clone.now = now
	return &clone
}

// LockSpan is one lock acquisition in flight.
type LockSpan struct {
	tracker    *LockTracker
	pipeline   string
	entityType string
	entityID   uint
	caller     string
	startedAt  time.Time
	acquiredAt time.Time
}

// Start marks the moment a writer begins waiting for an exclusive row lock.
// Call Acquired once the locking query returns and Release when the
// transaction ends.
func (t *LockTracker) Start(pipeline, entityType string, entityID uint, caller string) *LockSpan {
	if t == nil {
		return nil
	}
	return &LockSpan{
		tracker:    t,
		pipeline:   pipeline,
		entityType: entityType,
		entityID:   entityID,
		caller:     caller,
		startedAt:  t.now(),
	}
}

// Acquired emits the "lock acquired" event and records the wait duration.
func (s *LockSpan) Acquired() {
	if s == nil {
		return
	}
	s.acquiredAt = s.tracker.now()
	wait := s.acquiredAt.Sub(s.startedAt)

	LockAcquisitions().WithLabelValues(s.pipeline, s.entityType).Inc()
	LockWait().WithLabelValues(s.pipeline, s.entityType).Observe(wait.Seconds())

	s.tracker.logger.Info().
		Str("event", "lock_acquired").
		Str("pipeline", s.pipeline).
		Str("entity_type", s.entityType).
		Uint("entity_id", s.entityID).
		Str("caller", s.caller).
		Time("at", s.acquiredAt).
		Dur("wait", wait).
		Msg("row lock acquired")
}

// Release emits the "lock released" event carrying the hold duration.
func (s *LockSpan) Release() {
	if s == nil {
		return
	}
	acquired := s.acquiredAt
	if acquired.IsZero() {
		acquired = s.startedAt
	}
	released := s.tracker.now()
	hold := released.Sub(acquired)

	LockHold().WithLabelValues(s.pipeline, s.entityType).Observe(hold.Seconds())

	s.tracker.logger.Info().
		Str("event", "lock_released").
		Str("pipeline", s.pipeline).
		Str("entity_type", s.entityType).
		Uint("entity_id", s.entityID).
		Str("caller", s.caller).
		Time("at", released).
		Dur("held", hold).
		Msg("row lock released")
}
