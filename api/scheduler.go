/*
scheduler.go - Automated contribution type expiry

PURPOSE:
  Periodically switches off contribution types whose due date has passed,
  whatever their period kind, the same job as
  POST /api/admin/deactivate-expired.

DESIGN:
  - Runs on a cron schedule (robfig/cron) instead of a fixed ticker, so the
    job lands just after midnight rather than drifting with uptime
  - Runs once immediately on Start; Stop waits for that run too
  - Overlapping runs are skipped, never queued

CONFIGURATION:
  - Spec:    cron expression (default "5 0 * * *", 00:05 every day)
  - Enabled: whether the scheduler is active (default: true)

USAGE:
  scheduler, err := NewExpiryScheduler(ledger, logger, "5 0 * * *")
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: DeactivateExpired endpoint (manual run)
  - dues/ledger.go: Ledger.DeactivateExpired
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/warp/dues-engine/dues"
)

// DefaultExpirySpec runs the expiry job at 00:05 every day.
const DefaultExpirySpec = "5 0 * * *"

// ExpiryScheduler deactivates expired contribution types on a schedule.
type ExpiryScheduler struct {
	Ledger  *dues.Ledger
	Logger  *slog.Logger
	Spec    string
	Enabled bool

	// Today is the date the job compares due dates against.
	Today func() dues.Date

	cron    *cron.Cron
	entryID cron.EntryID
	startup sync.WaitGroup // the run kicked off by Start
	mu      sync.Mutex
	running bool
}

// NewExpiryScheduler creates a scheduler. The spec is parsed eagerly so a
// bad expression fails at startup.
func NewExpiryScheduler(ledger *dues.Ledger, logger *slog.Logger, spec string) (*ExpiryScheduler, error) {
	if spec == "" {
		spec = DefaultExpirySpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid scheduler spec %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpiryScheduler{
		Ledger:  ledger,
		Logger:  logger,
		Spec:    spec,
		Enabled: true,
		Today:   dues.Today,
	}, nil
}

// Start begins the scheduler.
func (s *ExpiryScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info("scheduler disabled, not starting")
		return nil
	}
	if s.running {
		return nil
	}

	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	id, err := s.cron.AddFunc(s.Spec, func() { s.RunNow(context.Background()) })
	if err != nil {
		return fmt.Errorf("schedule expiry job: %w", err)
	}
	s.entryID = id
	s.cron.Start()
	s.running = true

	s.startup.Add(1)
	go func() {
		defer s.startup.Done()
		s.RunNow(context.Background())
	}()

	s.Logger.Info("scheduler started", "spec", s.Spec, "next_run", s.nextRunLocked())
	return nil
}

// Stop stops the scheduler and waits for running jobs, including the
// startup run, to finish.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.startup.Wait()
	s.running = false
	s.Logger.Info("scheduler stopped")
}

// RunNow runs the expiry job immediately and returns the deactivated types.
func (s *ExpiryScheduler) RunNow(ctx context.Context) []dues.ContributionType {
	today := dues.Today()
	if s.Today != nil {
		today = s.Today()
	}

	expired, err := s.Ledger.DeactivateExpired(ctx, today)
	if err != nil {
		s.Logger.Error("deactivate expired contribution types", "error", err)
		return nil
	}

	if len(expired) > 0 {
		ids := make([]string, len(expired))
		for i, t := range expired {
			ids[i] = string(t.ID)
		}
		s.Logger.Info("contribution types deactivated", "count", len(expired), "ids", ids, "as_of", today.String())
	} else {
		s.Logger.Debug("no expired contribution types", "as_of", today.String())
	}
	return expired
}

// NextRun returns when the next scheduled run will occur, or the zero time
// when the scheduler is not running.
func (s *ExpiryScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunLocked()
}

func (s *ExpiryScheduler) nextRunLocked() time.Time {
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}
