// Package scheduler runs the periodic full sweep on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"projector/pkg/logging"
)

// Job is one scheduled run. The context is cancelled when the scheduler stops.
type Job func(ctx context.Context) error

// Validate reports whether spec is a valid five-field cron expression or
// descriptor such as "@hourly".
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return nil
}

// Scheduler triggers a Job on a cron schedule. A run that is still in
// progress when the next tick fires causes that tick to be skipped.
type Scheduler struct {
	spec string
	job  Job

	cron    *cron.Cron
	entryID cron.EntryID

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// New validates spec and prepares a scheduler for job.
func New(spec string, job Job) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler job is required")
	}
	if err := Validate(spec); err != nil {
		return nil, err
	}

	s := &Scheduler{spec: spec, job: job}
	s.cron = cron.New(
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	id, err := s.cron.AddFunc(spec, s.tick)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.entryID = id
	return s, nil
}

// Start begins triggering the job. With runNow the job is also started
// immediately in the background.
func (s *Scheduler) Start(ctx context.Context, runNow bool) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.mu.Unlock()

	s.cron.Start()
	logging.Info("Scheduler", "Full sweep scheduled with %q, next run at %s", s.spec, s.Next().Format(time.RFC3339))

	if runNow {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.tick()
		}()
	}
}

// Stop prevents further runs, cancels the running one and waits for it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	logging.Info("Scheduler", "Scheduler stopped")
}

// Next returns the time of the next scheduled run, or the zero time when the
// scheduler is not started.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	start := time.Now()
	logging.Info("Scheduler", "Starting scheduled full sweep")
	if err := s.job(ctx); err != nil {
		logging.Error("Scheduler", err, "Scheduled full sweep failed after %s", time.Since(start).Round(time.Millisecond))
		return
	}
	logging.Info("Scheduler", "Scheduled full sweep finished in %s", time.Since(start).Round(time.Millisecond))
}

// cronLogger routes cron's own logging through the subsystem logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug("Scheduler", "%s%s", msg, formatKV(keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error("Scheduler", err, "%s%s", msg, formatKV(keysAndValues))
}

func formatKV(kv []interface{}) string {
	if len(kv) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	return b.String()
}
