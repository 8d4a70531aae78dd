package system

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/julianstephens/suppcheck/internal/activity"
	"github.com/julianstephens/suppcheck/internal/cli"
	"github.com/julianstephens/suppcheck/internal/lock"
	"github.com/julianstephens/suppcheck/internal/logger"
	"github.com/julianstephens/suppcheck/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	session := uuid.NewString()

	l, err := lock.Acquire(lock.Path(ctx.ConfigDir), session)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			logger.Warn("Failed to release lockfile", "session", session, "error", err)
		}
	}()

	persistent := ctx.LoadStore()
	model := tui.NewModel(ctx.DailyStore(), activity.NewHub(), tui.Options{
		Persistent: persistent,
		Session:    session,
		Now:        ctx.Clock,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui exited with error: %w", err)
	}
	return nil
}
