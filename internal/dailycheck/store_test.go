package dailycheck

import (
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/suppcheck/internal/activity"
	"github.com/julianstephens/suppcheck/internal/constants"
	"github.com/julianstephens/suppcheck/internal/models"
	"github.com/julianstephens/suppcheck/internal/storage"
)

// recordingKV wraps a MemoryStore and can be told to fail.
type recordingKV struct {
	*storage.MemoryStore
	puts    int
	getErr  error
	putErr  error
	getHits int
}

func newRecordingKV() *recordingKV {
	return &recordingKV{MemoryStore: storage.NewMemoryStore()}
}

func (k *recordingKV) Get(key string) (string, error) {
	k.getHits++
	if k.getErr != nil {
		return "", k.getErr
	}
	return k.MemoryStore.Get(key)
}

func (k *recordingKV) Put(key, value string) error {
	k.puts++
	if k.putErr != nil {
		return k.putErr
	}
	return k.MemoryStore.Put(key, value)
}

func (k *recordingKV) seed(t *testing.T, raw string) {
	t.Helper()
	if err := k.MemoryStore.Put(constants.RecordKey, raw); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}
}

func (k *recordingKV) stored(t *testing.T) models.DailyRecord {
	t.Helper()
	raw, err := k.MemoryStore.Get(constants.RecordKey)
	if err != nil {
		t.Fatalf("no stored record: %v", err)
	}
	rec, _, err := DecodeRecord(raw)
	if err != nil {
		t.Fatalf("stored record does not decode: %v", err)
	}
	return rec
}

// day returns noon UTC on the given date.
func day(t *testing.T, date string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(constants.DateFormat, date, time.UTC)
	if err != nil {
		t.Fatalf("bad test date %q: %v", date, err)
	}
	return d.Add(12 * time.Hour)
}

func newUTCStore(kv KV, opts ...Option) *Store {
	return NewStore(kv, append([]Option{WithLocation(time.UTC)}, opts...)...)
}

func mustSeed(t *testing.T, kv *recordingKV, rec models.DailyRecord) {
	t.Helper()
	raw, err := EncodeRecord(rec)
	if err != nil {
		t.Fatalf("EncodeRecord() error = %v", err)
	}
	kv.seed(t, raw)
}

func TestReconcileEmptyStore(t *testing.T) {
	kv := newRecordingKV()
	s := newUTCStore(kv)

	res := s.Reconcile(day(t, "2024-05-01"))

	if res.Checks != (models.CheckState{}) {
		t.Errorf("Checks = %+v, want all false", res.Checks)
	}
	if res.ResetOccurred {
		t.Error("ResetOccurred = true on empty store")
	}
	if kv.puts != 0 {
		t.Errorf("Reconcile wrote %d times on empty store, want 0", kv.puts)
	}
	if got := s.Record().Date; got != "2024-05-01" {
		t.Errorf("current date = %q, want 2024-05-01", got)
	}
}

func TestReconcileSameDayIsIdempotent(t *testing.T) {
	states := []models.CheckState{
		{},
		{Morning: true},
		{Lunch: true, Dinner: true},
		{Morning: true, Lunch: true, Dinner: true},
	}

	for _, want := range states {
		kv := newRecordingKV()
		mustSeed(t, kv, models.DailyRecord{Date: "2024-05-01", Checks: want})
		s := newUTCStore(kv)

		for i := 0; i < 3; i++ {
			// Different times on the same day
			now := day(t, "2024-05-01").Add(time.Duration(i*3) * time.Hour)
			res := s.Reconcile(now)
			if res.Checks != want {
				t.Errorf("call %d: Checks = %+v, want %+v", i, res.Checks, want)
			}
			if res.ResetOccurred {
				t.Errorf("call %d: ResetOccurred = true on same day", i)
			}
		}
		if kv.puts != 0 {
			t.Errorf("same-day reconcile wrote %d times, want 0", kv.puts)
		}
	}
}

func TestReconcileRolloverResets(t *testing.T) {
	kv := newRecordingKV()
	mustSeed(t, kv, models.DailyRecord{Date: "2024-05-01", Checks: models.CheckState{Morning: true, Dinner: true}})
	s := newUTCStore(kv)

	res := s.Reconcile(day(t, "2024-05-02"))

	if res.Checks != (models.CheckState{}) {
		t.Errorf("Checks = %+v, want all false", res.Checks)
	}
	if !res.ResetOccurred {
		t.Error("ResetOccurred = false after rollover")
	}
	if kv.puts != 1 {
		t.Errorf("rollover reconcile wrote %d times, want 1", kv.puts)
	}
	stored := kv.stored(t)
	if stored.Date != "2024-05-02" || stored.Checks != (models.CheckState{}) {
		t.Errorf("stored = %+v, want 2024-05-02 all false", stored)
	}
}

func TestReconcileOlderDateAlsoResets(t *testing.T) {
	// A clock moved backwards still counts as a different day
	kv := newRecordingKV()
	mustSeed(t, kv, models.DailyRecord{Date: "2024-05-03", Checks: models.CheckState{Lunch: true}})
	s := newUTCStore(kv)

	res := s.Reconcile(day(t, "2024-05-02"))
	if !res.ResetOccurred || res.Checks != (models.CheckState{}) {
		t.Errorf("Reconcile() = %+v, want reset to all false", res)
	}
	if kv.stored(t).Date != "2024-05-02" {
		t.Errorf("stored date = %q, want 2024-05-02", kv.stored(t).Date)
	}
}

func TestToggleFlipsExactlyOneSlot(t *testing.T) {
	bases := []models.CheckState{
		{},
		{Morning: true},
		{Morning: true, Lunch: true, Dinner: true},
	}

	for _, base := range bases {
		for _, slot := range models.Slots {
			kv := newRecordingKV()
			mustSeed(t, kv, models.DailyRecord{Date: "2024-05-01", Checks: base})
			s := newUTCStore(kv)
			s.Reconcile(day(t, "2024-05-01"))

			got, err := s.Toggle(slot, day(t, "2024-05-01"))
			if err != nil {
				t.Fatalf("Toggle(%s) error = %v", slot, err)
			}

			want := base.With(slot, !base.Get(slot))
			if got != want {
				t.Errorf("Toggle(%s) on %+v = %+v, want %+v", slot, base, got, want)
			}
			if kv.puts != 1 {
				t.Errorf("Toggle(%s) wrote %d times, want 1", slot, kv.puts)
			}
			if stored := kv.stored(t); stored.Checks != want || stored.Date != "2024-05-01" {
				t.Errorf("stored = %+v, want %+v on 2024-05-01", stored, want)
			}
		}
	}
}

func TestToggleTwiceRestores(t *testing.T) {
	kv := newRecordingKV()
	s := newUTCStore(kv)
	now := day(t, "2024-05-01")
	s.Reconcile(now)

	if _, err := s.Toggle(models.SlotDinner, now); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	got, err := s.Toggle(models.SlotDinner, now)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if got != (models.CheckState{}) {
		t.Errorf("double toggle = %+v, want all false", got)
	}
}

func TestStaleToggleIsDiscarded(t *testing.T) {
	for _, slot := range models.Slots {
		t.Run(string(slot), func(t *testing.T) {
			kv := newRecordingKV()
			mustSeed(t, kv, models.DailyRecord{Date: "2024-05-01"})
			s := newUTCStore(kv)
			s.Reconcile(day(t, "2024-05-01"))

			got, err := s.Toggle(slot, day(t, "2024-05-02"))
			if err != nil {
				t.Fatalf("Toggle() error = %v", err)
			}
			if got.Get(slot) {
				t.Errorf("stale Toggle(%s) set the slot on the new day", slot)
			}
			if got != (models.CheckState{}) {
				t.Errorf("stale Toggle(%s) = %+v, want all false", slot, got)
			}
			if kv.puts != 1 {
				t.Errorf("stale toggle wrote %d times, want 1", kv.puts)
			}
			if stored := kv.stored(t); stored.Date != "2024-05-02" {
				t.Errorf("stored date = %q, want 2024-05-02", stored.Date)
			}
		})
	}
}

func TestStaleTogglePolicyApply(t *testing.T) {
	kv := newRecordingKV()
	mustSeed(t, kv, models.DailyRecord{Date: "2024-05-01", Checks: models.CheckState{Morning: true, Lunch: true}})
	s := newUTCStore(kv, WithStaleTogglePolicy(StaleToggleApply))
	s.Reconcile(day(t, "2024-05-01"))

	// Morning was checked yesterday; on the new day the click checks it
	got, err := s.Toggle(models.SlotMorning, day(t, "2024-05-02"))
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	want := models.CheckState{Morning: true}
	if got != want {
		t.Errorf("Toggle() = %+v, want %+v", got, want)
	}
	if kv.puts != 1 {
		t.Errorf("apply-policy toggle wrote %d times, want 1", kv.puts)
	}
	if stored := kv.stored(t); stored.Date != "2024-05-02" || stored.Checks != want {
		t.Errorf("stored = %+v", stored)
	}
}

func TestToggleBeforeReconcileOnStaleRecord(t *testing.T) {
	tests := []struct {
		name   string
		policy StaleTogglePolicy
		want   models.CheckState
	}{
		{"discard", StaleToggleDiscard, models.CheckState{}},
		{"apply", StaleToggleApply, models.CheckState{Lunch: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := newRecordingKV()
			mustSeed(t, kv, models.DailyRecord{Date: "2024-04-30", Checks: models.CheckState{Dinner: true}})
			s := newUTCStore(kv, WithStaleTogglePolicy(tt.policy))

			var resets []models.DailyRecord
			s.OnRolloverReset(func(rec models.DailyRecord) { resets = append(resets, rec) })

			got, err := s.Toggle(models.SlotLunch, day(t, "2024-05-01"))
			if err != nil {
				t.Fatalf("Toggle() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Toggle() = %+v, want %+v", got, tt.want)
			}
			if kv.puts != 1 {
				t.Errorf("wrote %d times, want 1", kv.puts)
			}
			if stored := kv.stored(t); stored.Date != "2024-05-01" || stored.Checks != tt.want {
				t.Errorf("stored = %+v", stored)
			}
			if len(resets) != 1 || resets[0].Date != "2024-05-01" {
				t.Errorf("rollover notifications = %+v, want one for 2024-05-01", resets)
			}
		})
	}
}

func TestToggleBeforeReconcileSameDay(t *testing.T) {
	kv := newRecordingKV()
	mustSeed(t, kv, models.DailyRecord{Date: "2024-05-01", Checks: models.CheckState{Dinner: true}})
	s := newUTCStore(kv)

	got, err := s.Toggle(models.SlotLunch, day(t, "2024-05-01"))
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if want := (models.CheckState{Lunch: true, Dinner: true}); got != want {
		t.Errorf("Toggle() = %+v, want %+v", got, want)
	}
	if kv.puts != 1 {
		t.Errorf("wrote %d times, want 1", kv.puts)
	}
}

func TestToggleUnknownSlot(t *testing.T) {
	kv := newRecordingKV()
	s := newUTCStore(kv)
	s.Reconcile(day(t, "2024-05-01"))

	_, err := s.Toggle(models.TimeSlot("snack"), day(t, "2024-05-01"))
	if !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("Toggle(snack) error = %v, want ErrUnknownSlot", err)
	}
	if kv.puts != 0 {
		t.Errorf("invalid toggle wrote %d times, want 0", kv.puts)
	}
}

func TestMalformedRecordFallsBack(t *testing.T) {
	inputs := []string{
		"not json",
		"",
		"null",
		"[]",
		`"2024-05-01"`,
		`{"checks":{"morning":true,"lunch":true,"dinner":true}}`,
		`{"date":"2024-05-01"}`,
		`{"date":"2024-05-01","checks":null}`,
		`{"date":"May 1","checks":{"morning":true}}`,
		`{"date":"2024-05-01","checks":{"morning":"yes"}}`,
		`{"date":20240501,"checks":{}}`,
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			kv := newRecordingKV()
			kv.seed(t, raw)
			s := newUTCStore(kv)

			res := s.Reconcile(day(t, "2024-05-01"))
			if res.Checks != (models.CheckState{}) {
				t.Errorf("Checks = %+v, want all false", res.Checks)
			}
			if res.ResetOccurred {
				t.Error("ResetOccurred = true for malformed data")
			}
			if !s.Persistent() {
				t.Error("malformed data degraded the store")
			}

			// The next write replaces the bad value
			if _, err := s.Toggle(models.SlotMorning, day(t, "2024-05-01")); err != nil {
				t.Fatalf("Toggle() error = %v", err)
			}
			if stored := kv.stored(t); stored.Checks != (models.CheckState{Morning: true}) {
				t.Errorf("stored after toggle = %+v", stored)
			}
		})
	}
}

func TestMissingSlotsAreRepaired(t *testing.T) {
	kv := newRecordingKV()
	kv.seed(t, `{"date":"2024-05-01","checks":{"lunch":true}}`)
	s := newUTCStore(kv)

	res := s.Reconcile(day(t, "2024-05-01"))
	if want := (models.CheckState{Lunch: true}); res.Checks != want {
		t.Errorf("Checks = %+v, want %+v", res.Checks, want)
	}
}

func TestReadFailureDegradesToMemory(t *testing.T) {
	kv := newRecordingKV()
	kv.getErr = errors.New("disk on fire")
	s := newUTCStore(kv)

	res := s.Reconcile(day(t, "2024-05-01"))
	if res.Checks != (models.CheckState{}) {
		t.Errorf("Checks = %+v, want all false", res.Checks)
	}
	if s.Persistent() {
		t.Error("Persistent() = true after read failure")
	}

	got, err := s.Toggle(models.SlotMorning, day(t, "2024-05-01"))
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !got.Morning {
		t.Error("Toggle() did not apply in memory-only mode")
	}
	if kv.puts != 0 {
		t.Errorf("degraded store wrote %d times, want 0", kv.puts)
	}

	// Same day: memory state survives another reconcile without touching the KV
	hits := kv.getHits
	if res := s.Reconcile(day(t, "2024-05-01")); !res.Checks.Morning {
		t.Errorf("Reconcile() lost in-memory state: %+v", res.Checks)
	}
	if kv.getHits != hits {
		t.Error("degraded store read from the KV again")
	}

	// Rollover still resets in memory
	if res := s.Reconcile(day(t, "2024-05-02")); !res.ResetOccurred || res.Checks != (models.CheckState{}) {
		t.Errorf("degraded rollover = %+v, want reset", res)
	}
}

func TestWriteFailureDegradesToMemory(t *testing.T) {
	kv := newRecordingKV()
	kv.putErr = errors.New("quota exceeded")
	s := newUTCStore(kv)
	now := day(t, "2024-05-01")
	s.Reconcile(now)

	got, err := s.Toggle(models.SlotLunch, now)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !got.Lunch {
		t.Error("Toggle() state not kept after write failure")
	}
	if s.Persistent() {
		t.Error("Persistent() = true after write failure")
	}

	if got, _ := s.Toggle(models.SlotDinner, now); got != (models.CheckState{Lunch: true, Dinner: true}) {
		t.Errorf("second Toggle() = %+v", got)
	}
	if kv.puts != 1 {
		t.Errorf("KV saw %d writes, want only the failed one", kv.puts)
	}
}

func TestRolloverListeners(t *testing.T) {
	kv := newRecordingKV()
	mustSeed(t, kv, models.DailyRecord{Date: "2024-05-01", Checks: models.CheckState{Morning: true}})
	s := newUTCStore(kv)

	var got []models.DailyRecord
	unsubscribe := s.OnRolloverReset(func(rec models.DailyRecord) {
		// Reading the store from a callback must not deadlock
		_ = s.State()
		got = append(got, rec)
	})

	s.Reconcile(day(t, "2024-05-01"))
	if len(got) != 0 {
		t.Fatalf("listener fired without rollover: %+v", got)
	}

	s.Reconcile(day(t, "2024-05-02"))
	if len(got) != 1 || got[0].Date != "2024-05-02" || got[0].Checks != (models.CheckState{}) {
		t.Fatalf("after reconcile rollover got %+v", got)
	}

	if _, err := s.Toggle(models.SlotMorning, day(t, "2024-05-03")); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if len(got) != 2 || got[1].Date != "2024-05-03" {
		t.Fatalf("after toggle rollover got %+v", got)
	}

	unsubscribe()
	s.Reconcile(day(t, "2024-05-04"))
	if len(got) != 2 {
		t.Errorf("listener fired after unsubscribe: %+v", got)
	}
}

func TestDateUsesStoreLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	kv := newRecordingKV()
	mustSeed(t, kv, models.DailyRecord{Date: "2024-05-02", Checks: models.CheckState{Morning: true}})
	s := NewStore(kv, WithLocation(tokyo))

	// 20:00 UTC on May 1 is already May 2 in Tokyo
	now := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	res := s.Reconcile(now)
	if res.ResetOccurred || !res.Checks.Morning {
		t.Errorf("Reconcile() = %+v, want May 2 state kept", res)
	}
}

func TestResetOverwritesToday(t *testing.T) {
	kv := newRecordingKV()
	mustSeed(t, kv, models.DailyRecord{Date: "2024-05-01", Checks: models.CheckState{Morning: true, Lunch: true}})
	s := newUTCStore(kv)
	s.Reconcile(day(t, "2024-05-01"))

	if got := s.Reset(day(t, "2024-05-01")); got != (models.CheckState{}) {
		t.Errorf("Reset() = %+v, want all false", got)
	}
	if stored := kv.stored(t); stored.Date != "2024-05-01" || stored.Checks != (models.CheckState{}) {
		t.Errorf("stored = %+v", stored)
	}
}

func TestBindReconcilesOnActivation(t *testing.T) {
	kv := newRecordingKV()
	mustSeed(t, kv, models.DailyRecord{Date: "2024-05-01", Checks: models.CheckState{Dinner: true}})
	s := newUTCStore(kv)

	now := day(t, "2024-05-01")
	hub := activity.NewHub()
	s.Bind(hub, func() time.Time { return now })

	hub.Signal()
	if !s.State().Dinner {
		t.Fatalf("State() = %+v after activation, want dinner checked", s.State())
	}

	// Left open past midnight, then focused again
	now = day(t, "2024-05-02")
	hub.Signal()
	if s.State() != (models.CheckState{}) {
		t.Errorf("State() = %+v after next-day activation, want all false", s.State())
	}
	if s.Record().Date != "2024-05-02" {
		t.Errorf("current date = %q, want 2024-05-02", s.Record().Date)
	}
}

func TestCompletionCount(t *testing.T) {
	tests := []struct {
		checks models.CheckState
		want   int
	}{
		{models.CheckState{}, 0},
		{models.CheckState{Dinner: true}, 1},
		{models.CheckState{Morning: true, Lunch: true, Dinner: false}, 2},
		{models.CheckState{Morning: true, Lunch: true, Dinner: true}, 3},
	}

	for _, tt := range tests {
		if got := CompletionCount(tt.checks); got != tt.want {
			t.Errorf("CompletionCount(%+v) = %d, want %d", tt.checks, got, tt.want)
		}
	}
}

func TestParseStaleTogglePolicy(t *testing.T) {
	for _, name := range []string{"discard", "apply"} {
		if _, err := ParseStaleTogglePolicy(name); err != nil {
			t.Errorf("ParseStaleTogglePolicy(%q) error = %v", name, err)
		}
	}
	if _, err := ParseStaleTogglePolicy("merge"); err == nil {
		t.Error("ParseStaleTogglePolicy(merge) returned nil error")
	}
}
