package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/suppcheck/internal/constants"
	"github.com/julianstephens/suppcheck/internal/dailycheck"
	"github.com/julianstephens/suppcheck/internal/models"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	rec := m.store.Record()

	var banners []string
	if m.notice != "" {
		banners = append(banners, noticeStyle.Render(m.notice))
	}
	if !m.saving() {
		banners = append(banners, warningStyle.Render(NotSavingNotice))
	}

	ui := lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewHeader(rec),
		"",
		m.viewRows(rec.Checks),
		"",
		m.viewProgress(rec.Checks),
		strings.Join(banners, "\n"),
		m.help.View(m.keys),
	)
	return docStyle.Render(ui)
}

func (m Model) viewHeader(rec models.DailyRecord) string {
	display := rec.Date
	if d, err := time.ParseInLocation(constants.DateFormat, rec.Date, m.store.Location()); err == nil {
		display = d.Format(constants.DisplayDateFormat)
	}
	return titleStyle.Render("Supplements") + "  " + dateStyle.Render(display)
}

func (m Model) viewRows(checks models.CheckState) string {
	rows := make([]string, 0, len(models.Slots))
	for i, slot := range models.Slots {
		mark := "○"
		if checks.Get(slot) {
			mark = checkedStyle.Render("✓")
		}

		line := fmt.Sprintf("%s %d  %s", mark, i+1, slot.Label())
		if i == m.cursor {
			rows = append(rows, selectedRowStyle.Render("> "+line))
		} else {
			rows = append(rows, rowStyle.Render("  "+line))
		}
	}
	return strings.Join(rows, "\n")
}

func (m Model) viewProgress(checks models.CheckState) string {
	done := dailycheck.CompletionCount(checks)
	total := len(models.Slots)
	return fmt.Sprintf("%s  %d/%d", m.progress.ViewAs(float64(done)/float64(total)), done, total)
}
