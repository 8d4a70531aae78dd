// Package dailycheck owns today's three-slot supplement checks and keeps them
// in step with the single persisted record, resetting when the date rolls over.
package dailycheck

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/suppcheck/internal/constants"
	"github.com/julianstephens/suppcheck/internal/logger"
	"github.com/julianstephens/suppcheck/internal/models"
	"github.com/julianstephens/suppcheck/internal/storage"
)

// ErrUnknownSlot is returned by Toggle for a slot outside models.Slots
var ErrUnknownSlot = errors.New("unknown time slot")

// KV is the part of a storage.Provider the store needs.
type KV interface {
	Get(key string) (string, error)
	Put(key, value string) error
}

// StaleTogglePolicy decides what happens to a toggle that arrives after the
// date rolled over but before anything reconciled.
type StaleTogglePolicy string

const (
	// StaleToggleDiscard resets the day and drops the click.
	StaleToggleDiscard StaleTogglePolicy = "discard"
	// StaleToggleApply resets the day and applies the click to the new day.
	StaleToggleApply StaleTogglePolicy = "apply"
)

// ParseStaleTogglePolicy validates a policy name.
func ParseStaleTogglePolicy(s string) (StaleTogglePolicy, error) {
	switch p := StaleTogglePolicy(s); p {
	case StaleToggleDiscard, StaleToggleApply:
		return p, nil
	}
	return "", fmt.Errorf("invalid stale toggle policy: %q (expected discard or apply)", s)
}

// ReconcileResult is what Reconcile observed.
type ReconcileResult struct {
	Checks        models.CheckState
	ResetOccurred bool
}

type Option func(*Store)

// WithLocation sets the timezone that decides which calendar day "now" falls on.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithStaleTogglePolicy overrides the default StaleToggleDiscard.
func WithStaleTogglePolicy(p StaleTogglePolicy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// WithKey overrides constants.RecordKey.
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// Store holds today's checks. Every mutation writes the full record back to
// the KV. After the first read or write failure the store stops touching the
// KV and keeps working from memory.
type Store struct {
	mu sync.Mutex

	kv     KV
	key    string
	loc    *time.Location
	policy StaleTogglePolicy

	checks      models.CheckState
	currentDate string
	loaded      bool
	degraded    bool

	nextID    int
	listeners map[int]func(models.DailyRecord)
}

func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		key:       constants.RecordKey,
		loc:       time.Local,
		policy:    StaleToggleDiscard,
		listeners: make(map[int]func(models.DailyRecord)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DateOnly formats the calendar day of t in the store's location.
func (s *Store) DateOnly(t time.Time) string {
	return t.In(s.loc).Format(constants.DateFormat)
}

func (s *Store) Location() *time.Location {
	return s.loc
}

// State returns the current in-memory checks.
func (s *Store) State() models.CheckState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checks
}

// Record returns the checks together with the date they belong to.
func (s *Store) Record() models.DailyRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.DailyRecord{Date: s.currentDate, Checks: s.checks}
}

// Persistent reports whether writes still reach the KV.
func (s *Store) Persistent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.degraded
}

// OnRolloverReset registers fn to run after every rollover reset, with the
// fresh record. The returned func unregisters it.
func (s *Store) OnRolloverReset(fn func(models.DailyRecord)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Reconcile brings the in-memory state in line with the stored record for
// the day containing now.
func (s *Store) Reconcile(now time.Time) ReconcileResult {
	s.mu.Lock()
	res := s.reconcileLocked(s.DateOnly(now))
	if res.ResetOccurred {
		s.writeLocked()
	}
	notify := s.rolloverListenersLocked(res.ResetOccurred)
	s.mu.Unlock()

	notify()
	return res
}

// reconcileLocked loads or resets state for today. A reset is left unwritten
// so the caller can fold it into its own single write.
func (s *Store) reconcileLocked(today string) ReconcileResult {
	if s.degraded {
		// Memory is the only source left
		if s.loaded && s.currentDate != today {
			s.resetLocked(today)
			return ReconcileResult{Checks: s.checks, ResetOccurred: true}
		}
		s.loaded = true
		s.currentDate = today
		return ReconcileResult{Checks: s.checks}
	}

	s.loaded = true
	rec, found := s.readLocked()
	if !found {
		s.currentDate = today
		s.checks = models.CheckState{}
		return ReconcileResult{Checks: s.checks}
	}

	if rec.Date == today {
		s.currentDate = today
		s.checks = rec.Checks
		return ReconcileResult{Checks: s.checks}
	}

	logger.Info("Stored record is stale, resetting", "stored_date", rec.Date, "today", today)
	s.resetLocked(today)
	return ReconcileResult{Checks: s.checks, ResetOccurred: true}
}

// Toggle flips one slot for the day containing now and persists the result.
// If the day changed since the last reconcile, the state is reset first and
// the click is handled according to the stale toggle policy.
func (s *Store) Toggle(slot models.TimeSlot, now time.Time) (models.CheckState, error) {
	if !slot.Valid() {
		return models.CheckState{}, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}

	s.mu.Lock()
	today := s.DateOnly(now)

	previous := s.currentDate
	rolled := s.loaded && previous != today
	if !s.loaded {
		// A stored record from an earlier day is a rollover like any other
		res := s.reconcileLocked(today)
		rolled = res.ResetOccurred
	}

	if rolled {
		logger.Info("Date rolled over before toggle", "previous_date", previous, "today", today, "slot", slot, "policy", s.policy)
		s.resetLocked(today)
		if s.policy == StaleToggleApply {
			s.checks = s.checks.With(slot, true)
		}
		s.writeLocked()
		checks := s.checks
		notify := s.rolloverListenersLocked(true)
		s.mu.Unlock()

		notify()
		return checks, nil
	}

	s.checks = s.checks.With(slot, !s.checks.Get(slot))
	s.writeLocked()
	checks := s.checks
	s.mu.Unlock()

	return checks, nil
}

// Reset overwrites today's record with all slots unchecked.
func (s *Store) Reset(now time.Time) models.CheckState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.resetLocked(s.DateOnly(now))
	s.writeLocked()
	return s.checks
}

func (s *Store) resetLocked(today string) {
	s.currentDate = today
	s.checks = models.CheckState{}
}

// readLocked returns the stored record, treating absent and malformed values
// alike. A KV failure degrades the store.
func (s *Store) readLocked() (models.DailyRecord, bool) {
	raw, err := s.kv.Get(s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Error("Failed to read stored record, continuing in memory", "key", s.key, "error", err)
			s.degraded = true
		}
		return models.DailyRecord{}, false
	}

	rec, repaired, err := DecodeRecord(raw)
	if err != nil {
		logger.Error("Ignoring malformed stored record", "key", s.key, "error", err)
		return models.DailyRecord{}, false
	}
	if len(repaired) > 0 {
		logger.Warn("Stored record was missing slots, defaulting them to unchecked", "key", s.key, "slots", repaired)
	}
	return rec, true
}

func (s *Store) writeLocked() {
	if s.degraded {
		return
	}

	value, err := EncodeRecord(models.DailyRecord{Date: s.currentDate, Checks: s.checks})
	if err == nil {
		err = s.kv.Put(s.key, value)
	}
	if err != nil {
		logger.Error("Failed to persist record, continuing in memory", "key", s.key, "date", s.currentDate, "error", err)
		s.degraded = true
	}
}

// rolloverListenersLocked captures the listeners to call once the lock is
// released, so a callback may read the store.
func (s *Store) rolloverListenersLocked(reset bool) func() {
	if !reset || len(s.listeners) == 0 {
		return func() {}
	}

	rec := models.DailyRecord{Date: s.currentDate, Checks: s.checks}
	fns := make([]func(models.DailyRecord), 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	return func() {
		for _, fn := range fns {
			fn(rec)
		}
	}
}

// CompletionCount returns how many slots are checked, in [0,3].
func CompletionCount(checks models.CheckState) int {
	n := 0
	for _, slot := range models.Slots {
		if checks.Get(slot) {
			n++
		}
	}
	return n
}
