package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/suppcheck/internal/models"
)

// midnightMsg fires just after the next local midnight.
type midnightMsg time.Time

func (m Model) midnightTick() tea.Cmd {
	now := m.now()
	return tea.Tick(nextMidnight(now, m.store.Location()).Sub(now), func(t time.Time) tea.Msg {
		return midnightMsg(t)
	})
}

// nextMidnight returns one second past the next midnight in loc. time.Date
// normalizes the wall clock, so days of 23 or 25 hours come out right.
func nextMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 1, 0, loc)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.progress.Width = min(max(msg.Width-16, 10), 40)
		return m, nil

	case tea.FocusMsg, tea.ResumeMsg:
		m.activate()
		return m, nil

	case midnightMsg:
		m.activate()
		return m, m.midnightTick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.unsubscribe()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Suspend):
		return m, tea.Suspend
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(models.Slots)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		m.toggle(models.Slots[m.cursor])
	case key.Matches(msg, m.keys.Morning):
		m.cursor = 0
		m.toggle(models.SlotMorning)
	case key.Matches(msg, m.keys.Lunch):
		m.cursor = 1
		m.toggle(models.SlotLunch)
	case key.Matches(msg, m.keys.Dinner):
		m.cursor = 2
		m.toggle(models.SlotDinner)
	}
	return m, nil
}
