// Package session tracks who is logged in.
//
// The session itself is an HttpOnly cookie set by the backend. This package
// only mirrors the resulting account and moves between three states:
// Unknown until the first probe, then Authenticated or Anonymous.
package session

import (
	"context"
	"sync"
	"time"

	"meetpick/internal/api"
	appLog "meetpick/internal/log"
	"meetpick/internal/model"
)

type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Backend is the subset of api.AuthAPI the session needs.
type Backend interface {
	Login(ctx context.Context, req api.LoginRequest) (api.LoginResponse, error)
	Me(ctx context.Context) (model.User, error)
	Signup(ctx context.Context, req api.SignupRequest) (api.SignupResponse, error)
	CheckUsername(ctx context.Context, username string) (bool, error)
	Logout(ctx context.Context) error
}

// Navigator receives the view the user should land on next.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Cookies persists or wipes the cookie jar between processes.
type Cookies interface {
	Persist() error
	Clear() error
}

const (
	PathHome  = "/"
	PathLogin = "/login"
)

const (
	msgLoadFailed    = "사용자 정보를 불러오는데 실패했습니다."
	msgRefreshFailed = "사용자 정보 새로고침에 실패했습니다."
	msgLoginFailed   = "로그인에 실패했습니다."
	msgSignupFailed  = "회원가입에 실패했습니다."
	msgCheckFailed   = "중복 확인에 실패했습니다."
)

const (
	DefaultSettleDelay = 100 * time.Millisecond
	DefaultRetryDelay  = 200 * time.Millisecond
)

type Options struct {
	Navigator Navigator
	Cookies   Cookies
	// SettleDelay is waited after login before reading the account, and
	// RetryDelay before the single retry. Negative disables the wait.
	SettleDelay time.Duration
	RetryDelay  time.Duration
}

type Store struct {
	backend Backend
	nav     Navigator
	cookies Cookies
	settle  time.Duration
	retry   time.Duration

	mu      sync.RWMutex
	state   State
	user    *model.User
	errMsg  string
	loading int
}

func New(backend Backend, opts Options) *Store {
	s := &Store{
		backend: backend,
		nav:     opts.Navigator,
		cookies: opts.Cookies,
		settle:  opts.SettleDelay,
		retry:   opts.RetryDelay,
	}
	if s.nav == nil {
		s.nav = NavigatorFunc(func(string) {})
	}
	if s.settle == 0 {
		s.settle = DefaultSettleDelay
	}
	if s.retry == 0 {
		s.retry = DefaultRetryDelay
	}
	return s
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the logged-in account, or nil.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
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

// Bootstrap probes the current session. A 401 means nobody is logged in and
// is not reported as an error.
func (s *Store) Bootstrap(ctx context.Context) State {
	s.begin()
	defer s.done()

	u, err := s.backend.Me(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil:
		s.setUser(&u)
		s.errMsg = ""
	case api.IsKind(err, api.KindUnauthorized):
		s.setUser(nil)
		s.errMsg = ""
	default:
		s.setUser(nil)
		s.errMsg = message(err, msgLoadFailed)
		appLog.Error("session bootstrap failed", err)
	}
	return s.state
}

// Refresh re-reads the account. Unlike Bootstrap a transient failure keeps
// the current state.
func (s *Store) Refresh(ctx context.Context) {
	u, err := s.backend.Me(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil:
		s.setUser(&u)
		s.errMsg = ""
	case api.IsKind(err, api.KindUnauthorized):
		s.setUser(nil)
		s.errMsg = ""
	default:
		s.errMsg = message(err, msgRefreshFailed)
		appLog.Error("session refresh failed", err)
	}
}

// Login authenticates and then reads the account, retrying the read once
// because the session cookie may not be usable immediately.
func (s *Store) Login(ctx context.Context, username, password string) bool {
	s.begin()
	defer s.done()

	if _, err := s.backend.Login(ctx, api.LoginRequest{Username: username, Password: password}); err != nil {
		return s.fail(err, msgLoginFailed, "login")
	}
	if err := sleep(ctx, s.settle); err != nil {
		return s.fail(err, msgLoginFailed, "login")
	}

	u, err := s.backend.Me(ctx)
	if err != nil {
		appLog.Debug("account read after login failed, retrying", "error", err.Error())
		if err := sleep(ctx, s.retry); err != nil {
			return s.fail(err, msgLoginFailed, "login")
		}
		if u, err = s.backend.Me(ctx); err != nil {
			return s.fail(err, msgLoginFailed, "login")
		}
	}

	s.mu.Lock()
	s.setUser(&u)
	s.mu.Unlock()
	if s.cookies != nil {
		if err := s.cookies.Persist(); err != nil {
			appLog.Warn("persist session cookies failed", "error", err.Error())
		}
	}
	appLog.Info("logged in", "username", u.Username)
	s.nav.Navigate(PathHome)
	return true
}

// Signup creates an account. It does not log in.
func (s *Store) Signup(ctx context.Context, req api.SignupRequest) bool {
	s.begin()
	defer s.done()

	if _, err := s.backend.Signup(ctx, req); err != nil {
		return s.fail(err, msgSignupFailed, "signup")
	}
	appLog.Info("account created", "username", req.Username)
	s.nav.Navigate(PathLogin)
	return true
}

// Logout always ends Anonymous, whatever the server answers.
func (s *Store) Logout(ctx context.Context) {
	s.begin()
	defer s.done()

	if err := s.backend.Logout(ctx); err != nil {
		appLog.Warn("logout request failed, clearing local session anyway", "error", err.Error())
	}
	s.mu.Lock()
	s.setUser(nil)
	s.mu.Unlock()
	if s.cookies != nil {
		if err := s.cookies.Clear(); err != nil {
			appLog.Warn("clear session cookies failed", "error", err.Error())
		}
	}
	s.nav.Navigate(PathLogin)
}

// CheckUsername reports availability; any failure reports false and sets
// the error.
func (s *Store) CheckUsername(ctx context.Context, username string) bool {
	s.ClearError()
	ok, err := s.backend.CheckUsername(ctx, username)
	if err != nil {
		s.fail(err, msgCheckFailed, "check username")
		return false
	}
	return ok
}

// setUser must be called with mu held.
func (s *Store) setUser(u *model.User) {
	s.user = u
	if u != nil {
		s.state = StateAuthenticated
	} else {
		s.state = StateAnonymous
	}
}

func (s *Store) fail(err error, fallback, op string) bool {
	s.mu.Lock()
	s.errMsg = message(err, fallback)
	s.mu.Unlock()
	appLog.Error(op+" failed", err)
	return false
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

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func message(err error, fallback string) string {
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}
