// Package tui is the interactive checklist: three rows, a progress bar, and
// a reconcile whenever the terminal regains focus, resumes, or crosses midnight.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/suppcheck/internal/activity"
	"github.com/julianstephens/suppcheck/internal/dailycheck"
	"github.com/julianstephens/suppcheck/internal/logger"
	"github.com/julianstephens/suppcheck/internal/models"
)

const (
	NewDayNotice    = "New day, checks cleared"
	NotSavingNotice = "Not saving (storage unavailable)"
)

type Options struct {
	// Persistent is false when the session already fell back to memory
	Persistent bool
	Session    string
	Now        func() time.Time
}

type Model struct {
	store *dailycheck.Store
	hub   *activity.Hub
	now   func() time.Time

	// resets receives rollover notifications from the store listener
	resets      chan models.DailyRecord
	unsubscribe func()

	keys     KeyMap
	help     help.Model
	progress progress.Model

	session      string
	storageReady bool
	cursor       int
	notice       string
	quitting     bool
	width        int
}

// NewModel binds store to hub and runs the first activation, so the model
// starts on today's record.
func NewModel(store *dailycheck.Store, hub *activity.Hub, opts Options) Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	resets := make(chan models.DailyRecord, 1)
	unsubscribe := store.OnRolloverReset(func(rec models.DailyRecord) {
		select {
		case resets <- rec:
		default:
		}
	})
	store.Bind(hub, now)

	m := Model{
		store:        store,
		hub:          hub,
		now:          now,
		resets:       resets,
		unsubscribe:  unsubscribe,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		progress:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(30)),
		session:      opts.Session,
		storageReady: opts.Persistent,
	}
	m.activate()
	logger.Debug("TUI session started", "session", m.session, "date", store.Record().Date)
	return m
}

func (m Model) Init() tea.Cmd {
	return m.midnightTick()
}

// Record exposes what the model is currently showing.
func (m Model) Record() models.DailyRecord {
	return m.store.Record()
}

func (m Model) Cursor() int {
	return m.cursor
}

func (m Model) Notice() string {
	return m.notice
}

func (m Model) saving() bool {
	return m.storageReady && m.store.Persistent()
}

func (m *Model) activate() {
	m.hub.Signal()
	m.drainResets()
}

func (m *Model) toggle(slot models.TimeSlot) {
	m.notice = ""
	if _, err := m.store.Toggle(slot, m.now()); err != nil {
		logger.Error("Toggle failed", "slot", slot, "error", err)
		return
	}
	m.drainResets()
}

func (m *Model) drainResets() {
	select {
	case rec := <-m.resets:
		logger.Debug("Showing rollover notice", "session", m.session, "date", rec.Date)
		m.notice = NewDayNotice
	default:
	}
}
