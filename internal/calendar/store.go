// Package calendar keeps the client-side snapshot of calendar events.
//
// The snapshot is always server truth: every successful mutation is
// followed by a full re-fetch of the active range, and nothing is patched
// locally.
package calendar

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"meetpick/internal/api"
	appLog "meetpick/internal/log"
	"meetpick/internal/model"
)

// Backend is the subset of api.CalendarAPI the store needs.
type Backend interface {
	List(ctx context.Context, start, end time.Time) ([]model.Event, error)
	Create(ctx context.Context, d model.EventDraft) (api.MessageResponse, error)
	Update(ctx context.Context, id string, p model.EventPatch) (api.MessageResponse, error)
	Delete(ctx context.Context, id string) (api.MessageResponse, error)
}

const (
	msgFetchFailed  = "일정을 불러오는데 실패했습니다."
	msgCreateFailed = "일정 추가에 실패했습니다."
	msgUpdateFailed = "일정 수정에 실패했습니다."
	msgDeleteFailed = "일정 삭제에 실패했습니다."
)

// Options configures a Store. Zero values select time.Local, Monday and
// time.Now.
type Options struct {
	Location  *time.Location
	WeekStart time.Weekday
	Now       func() time.Time
}

// Store holds the events of the active range plus loading/error state.
// All methods are safe for concurrent use; mutations are serialized.
type Store struct {
	backend   Backend
	loc       *time.Location
	weekStart time.Weekday
	now       func() time.Time

	// mutMu serializes Create/Update/Delete/Import so their trailing
	// re-fetches land in call order.
	mutMu sync.Mutex

	gen atomic.Uint64

	mu        sync.RWMutex
	events    []model.Event
	errMsg    string
	loading   int
	active    Range
	hasActive bool
	applied   uint64
}

func New(backend Backend, opts Options) *Store {
	s := &Store{
		backend:   backend,
		loc:       opts.Location,
		weekStart: opts.WeekStart,
		now:       opts.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Events returns a copy of the snapshot sorted by start time.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByID returns the snapshot entry with the given id.
func (s *Store) ByID(id string) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.events {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.Event{}, false
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Error returns the last failure message, or "" when the last operation
// succeeded.
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

// ActiveRange is the range of the most recent fetch, or the current month
// before any fetch.
func (s *Store) ActiveRange() Range {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.hasActive {
		return s.active
	}
	return MonthRange(s.now().In(s.loc))
}

// Fetch replaces the snapshot with the events in r. It reports success; the
// failure message is available from Error.
func (s *Store) Fetch(ctx context.Context, r Range) bool {
	gen := s.gen.Add(1)

	s.mu.Lock()
	s.loading++
	s.errMsg = ""
	s.active = r
	s.hasActive = true
	s.mu.Unlock()
	defer s.done()

	events, err := s.backend.List(ctx, r.Start, r.End)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errMsg = message(err, msgFetchFailed)
		appLog.Error("calendar fetch failed", err, "start", r.Start.Format(time.RFC3339), "end", r.End.Format(time.RFC3339))
		return false
	}
	if gen < s.applied {
		// A newer fetch already landed.
		appLog.Debug("calendar fetch result discarded", "generation", gen, "applied", s.applied)
		return true
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	s.events = events
	s.applied = gen
	appLog.Debug("calendar snapshot replaced", "count", len(events), "generation", gen)
	return true
}

// FetchMonth fetches the month containing t.
func (s *Store) FetchMonth(ctx context.Context, t time.Time) bool {
	return s.Fetch(ctx, MonthRange(t.In(s.loc)))
}

// FetchWeek fetches the week containing t.
func (s *Store) FetchWeek(ctx context.Context, t time.Time) bool {
	return s.Fetch(ctx, WeekRange(t.In(s.loc), s.weekStart))
}

// FetchDay fetches the day containing t.
func (s *Store) FetchDay(ctx context.Context, t time.Time) bool {
	return s.Fetch(ctx, DayRange(t.In(s.loc)))
}

// RefreshCurrentMonth fetches the month containing now.
func (s *Store) RefreshCurrentMonth(ctx context.Context) bool {
	return s.FetchMonth(ctx, s.now())
}

// Create adds an event and re-fetches the active range.
func (s *Store) Create(ctx context.Context, d model.EventDraft) bool {
	return s.mutate(ctx, "create", msgCreateFailed, func() error {
		_, err := s.backend.Create(ctx, d)
		return err
	})
}

// Update applies p to the event and re-fetches the active range.
func (s *Store) Update(ctx context.Context, id string, p model.EventPatch) bool {
	return s.mutate(ctx, "update", msgUpdateFailed, func() error {
		_, err := s.backend.Update(ctx, id, p)
		return err
	})
}

// Delete removes the event and re-fetches the active range.
func (s *Store) Delete(ctx context.Context, id string) bool {
	return s.mutate(ctx, "delete", msgDeleteFailed, func() error {
		_, err := s.backend.Delete(ctx, id)
		return err
	})
}

// Import creates every draft in order and re-fetches once at the end. It
// returns how many were created; the first failure message is kept.
func (s *Store) Import(ctx context.Context, drafts []model.EventDraft) int {
	if len(drafts) == 0 {
		return 0
	}
	s.mutMu.Lock()
	defer s.mutMu.Unlock()
	s.begin()
	defer s.done()

	created := 0
	var firstErr error
	for _, d := range drafts {
		if _, err := s.backend.Create(ctx, d); err != nil {
			appLog.Error("calendar import create failed", err, "title", d.Title)
			if firstErr == nil {
				firstErr = err
			}
			if api.IsKind(err, api.KindUnauthorized) || ctx.Err() != nil {
				break
			}
			continue
		}
		created++
	}
	if created > 0 {
		s.Fetch(ctx, s.ActiveRange())
	}
	if firstErr != nil {
		s.mu.Lock()
		s.errMsg = message(firstErr, msgCreateFailed)
		s.mu.Unlock()
	}
	appLog.Info("calendar import finished", "requested", len(drafts), "created", created)
	return created
}

func (s *Store) mutate(ctx context.Context, op, fallback string, fn func() error) bool {
	s.mutMu.Lock()
	defer s.mutMu.Unlock()
	s.begin()
	defer s.done()

	if err := fn(); err != nil {
		s.mu.Lock()
		s.errMsg = message(err, fallback)
		s.mu.Unlock()
		appLog.Error("calendar "+op+" failed", err)
		return false
	}
	s.Fetch(ctx, s.ActiveRange())
	return true
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading++
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Store) done() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
}

func message(err error, fallback string) string {
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}
