// Package scheduler refreshes the stores on a cron schedule and keeps the
// optional ICS export file current.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"meetpick/internal/config"
	"meetpick/internal/ics"
	appLog "meetpick/internal/log"
	"meetpick/internal/model"
)

// CalendarStore is the part of calendar.Store a refresh needs.
type CalendarStore interface {
	RefreshCurrentMonth(ctx context.Context) bool
	Events() []model.Event
	Error() string
}

// FriendStore is the part of friend.Store a refresh needs.
type FriendStore interface {
	Fetch(ctx context.Context) bool
	Error() string
}

type Options struct {
	// Spec is a five-field cron expression. Empty selects config.DefaultRefreshCron.
	Spec     string
	Calendar CalendarStore
	Friends  FriendStore
	// ExportPath, when set, receives the ICS export after every refresh.
	ExportPath string
	Location   *time.Location
	Now        func() time.Time
}

type Scheduler struct {
	opts Options
	cron *cron.Cron

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

func New(opts Options) (*Scheduler, error) {
	if opts.Spec == "" {
		opts.Spec = config.DefaultRefreshCron
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Calendar == nil && opts.Friends == nil {
		return nil, errors.New("scheduler: nothing to refresh")
	}
	if _, err := cron.ParseStandard(opts.Spec); err != nil {
		return nil, fmt.Errorf("scheduler: invalid refresh schedule %q: %w", opts.Spec, err)
	}
	c := cron.New(
		cron.WithLocation(opts.Location),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	return &Scheduler{opts: opts, cron: c}, nil
}

// Start schedules refreshes until ctx is done or Stop is called. The job
// uses ctx for its requests.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.opts.Spec, func() {
		if err := s.RunOnce(ctx); err != nil {
			appLog.Warn("scheduled refresh incomplete", "error", err.Error())
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	appLog.Info("scheduler started", "spec", s.opts.Spec, "export_path", s.opts.ExportPath)
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce refreshes every configured store and rewrites the export. The
// returned error joins every step that failed.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	if s.opts.Calendar != nil && !s.opts.Calendar.RefreshCurrentMonth(ctx) {
		errs = append(errs, fmt.Errorf("calendar: %s", s.opts.Calendar.Error()))
	}
	if s.opts.Friends != nil && !s.opts.Friends.Fetch(ctx) {
		errs = append(errs, fmt.Errorf("friends: %s", s.opts.Friends.Error()))
	}
	if s.opts.ExportPath != "" && s.opts.Calendar != nil {
		if err := s.writeExport(); err != nil {
			errs = append(errs, fmt.Errorf("export: %w", err))
		}
	}

	err := errors.Join(errs...)
	s.mu.Lock()
	s.lastRun = s.opts.Now()
	s.lastErr = err
	s.mu.Unlock()
	appLog.Debug("refresh finished", "ok", err == nil)
	return err
}

// LastRun reports when RunOnce last finished and how.
func (s *Scheduler) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

func (s *Scheduler) writeExport() error {
	events := s.opts.Calendar.Events()
	body := ics.Export(events, s.opts.Location, s.opts.Now())
	if err := config.WriteFileAtomic(s.opts.ExportPath, body); err != nil {
		return err
	}
	appLog.Debug("ics export written", "path", s.opts.ExportPath, "events", len(events))
	return nil
}

// cronLogger routes cron's own messages through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}
