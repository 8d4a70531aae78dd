package dailycheck

import (
	"time"

	"github.com/julianstephens/suppcheck/internal/logger"
)

// ActivitySource is implemented by the host environment: it calls every
// registered callback when the UI becomes active or visible again.
type ActivitySource interface {
	OnBecameActive(callback func())
}

// Bind reconciles the store each time src reports activity, using clock for
// the current time. Reconcile holds the store lock for its whole run, so a
// Toggle arriving during an activation waits for it to finish.
func (s *Store) Bind(src ActivitySource, clock func() time.Time) {
	if clock == nil {
		clock = time.Now
	}
	src.OnBecameActive(func() {
		res := s.Reconcile(clock())
		logger.Debug("Reconciled after activation", "reset", res.ResetOccurred, "completed", CompletionCount(res.Checks))
	})
}
