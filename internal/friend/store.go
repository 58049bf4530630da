// Package friend keeps the session account's relationship list and derives
// the request buckets the UI shows.
package friend

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"meetpick/internal/api"
	appLog "meetpick/internal/log"
	"meetpick/internal/model"
)

// Backend is the subset of api.FriendAPI the store needs.
type Backend interface {
	List(ctx context.Context) ([]model.Friend, error)
	Add(ctx context.Context, accountID int64) (api.MessageResponse, error)
	Accept(ctx context.Context, id int64) (api.MessageResponse, error)
	Reject(ctx context.Context, id int64) (api.MessageResponse, error)
	Cancel(ctx context.Context, id int64) (api.MessageResponse, error)
	Delete(ctx context.Context, id int64) (api.MessageResponse, error)
}

const (
	msgFetchFailed  = "친구 목록을 불러오는데 실패했습니다."
	msgAddFailed    = "친구 추가에 실패했습니다."
	msgAcceptFailed = "친구 요청 수락에 실패했습니다."
	msgRejectFailed = "친구 요청 거절에 실패했습니다."
	msgCancelFailed = "친구 요청 취소에 실패했습니다."
	msgDeleteFailed = "친구 삭제에 실패했습니다."
)

// Store holds the relationship snapshot plus loading/error state.
type Store struct {
	backend Backend

	mutMu sync.Mutex
	gen   atomic.Uint64

	mu      sync.RWMutex
	friends []model.Friend
	errMsg  string
	loading int
	applied uint64
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) Friends() []model.Friend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Friend, len(s.friends))
	copy(out, s.friends)
	return out
}

// Requests classifies the current snapshot.
func (s *Store) Requests() Requests {
	return Classify(s.Friends())
}

func (s *Store) Stats() Stats {
	return StatsOf(s.Requests())
}

// ByID looks up a relationship row id.
func (s *Store) ByID(id int64) (model.Friend, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.friends {
		if f.ID == id {
			return f, true
		}
	}
	return model.Friend{}, false
}

// ByUsername finds the row for the other party's username, case-insensitively.
func (s *Store) ByUsername(username string) (model.Friend, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.friends {
		if strings.EqualFold(f.Username, username) {
			return f, true
		}
	}
	return model.Friend{}, false
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

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

// Fetch replaces the snapshot with the server's list.
func (s *Store) Fetch(ctx context.Context) bool {
	gen := s.gen.Add(1)
	s.begin()
	defer s.done()

	friends, err := s.backend.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errMsg = message(err, msgFetchFailed)
		appLog.Error("friend fetch failed", err)
		return false
	}
	if gen < s.applied {
		return true
	}
	s.friends = friends
	s.applied = gen
	appLog.Debug("friend snapshot replaced", "count", len(friends))
	return true
}

// Add sends a request to the account with accountID.
func (s *Store) Add(ctx context.Context, accountID int64) bool {
	return s.mutate(ctx, "add", msgAddFailed, func() error {
		_, err := s.backend.Add(ctx, accountID)
		return err
	})
}

func (s *Store) Accept(ctx context.Context, id int64) bool {
	return s.mutate(ctx, "accept", msgAcceptFailed, func() error {
		_, err := s.backend.Accept(ctx, id)
		return err
	})
}

func (s *Store) Reject(ctx context.Context, id int64) bool {
	return s.mutate(ctx, "reject", msgRejectFailed, func() error {
		_, err := s.backend.Reject(ctx, id)
		return err
	})
}

func (s *Store) Cancel(ctx context.Context, id int64) bool {
	return s.mutate(ctx, "cancel", msgCancelFailed, func() error {
		_, err := s.backend.Cancel(ctx, id)
		return err
	})
}

func (s *Store) Delete(ctx context.Context, id int64) bool {
	return s.mutate(ctx, "delete", msgDeleteFailed, func() error {
		_, err := s.backend.Delete(ctx, id)
		return err
	})
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
		appLog.Error("friend "+op+" failed", err)
		return false
	}
	s.Fetch(ctx)
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
