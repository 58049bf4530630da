// Package web is the local companion server started by `meetpick sync`. It
// serves read-only views of the store snapshots so other local tools (a
// status bar, a desktop calendar subscribing to /calendar.ics) can use them.
package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"meetpick/internal/calendar"
	"meetpick/internal/config"
	"meetpick/internal/friend"
	"meetpick/internal/ics"
	appLog "meetpick/internal/log"
	"meetpick/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventSource is the part of calendar.Store the server reads.
type EventSource interface {
	Events() []model.Event
	ActiveRange() calendar.Range
}

// FriendSource is the part of friend.Store the server reads.
type FriendSource interface {
	Requests() friend.Requests
	Stats() friend.Stats
}

// Refresher runs one refresh of every store.
type Refresher interface {
	RunOnce(ctx context.Context) error
}

type Options struct {
	Listen    string
	BasicAuth *config.BasicAuthConfig
	Location  *time.Location
	Calendar  EventSource
	Friends   FriendSource
	Refresher Refresher
	Now       func() time.Time
}

type Server struct {
	opts Options
	mux  *http.ServeMux
}

func NewServer(opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{opts: opts, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// Handler returns the routes, behind Basic Auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.opts.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on opts.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.opts.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) basicAuthEnabled() bool {
	ba := s.opts.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware guards everything except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.opts.BasicAuth.Username
	password := s.opts.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="MeetPick", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/friends", s.handleFriends)
	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type eventDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Color       string    `json:"color"`
	Location    string    `json:"location,omitempty"`
	Type        string    `json:"type"`
}

type eventsResponse struct {
	Events     []eventDTO `json:"events"`
	RangeStart time.Time  `json:"range_start"`
	RangeEnd   time.Time  `json:"range_end"`
	TimeZone   string     `json:"timezone"`
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar unavailable")
		return
	}
	events := s.opts.Calendar.Events()
	active := s.opts.Calendar.ActiveRange()
	loc := s.opts.Location

	dtos := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, eventDTO{
			ID:          ev.ID,
			Title:       ev.Title,
			Description: ev.Description,
			Start:       ev.Start.In(loc),
			End:         ev.End.In(loc),
			Color:       ev.Color,
			Location:    ev.Location,
			Type:        string(ev.Type),
		})
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Events:     dtos,
		RangeStart: active.Start.In(loc),
		RangeEnd:   active.End.In(loc),
		TimeZone:   loc.String(),
	})
}

type friendDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Status   string `json:"status"`
	IsSender bool   `json:"is_sender"`
}

type statsDTO struct {
	TotalFriends    int `json:"total_friends"`
	PendingReceived int `json:"pending_received"`
	PendingSent     int `json:"pending_sent"`
	TotalPending    int `json:"total_pending"`
	Rejected        int `json:"rejected"`
	Cancelled       int `json:"cancelled"`
}

type friendsResponse struct {
	Received  []friendDTO `json:"received"`
	Sent      []friendDTO `json:"sent"`
	Accepted  []friendDTO `json:"accepted"`
	Rejected  []friendDTO `json:"rejected"`
	Cancelled []friendDTO `json:"cancelled"`
	Stats     statsDTO    `json:"stats"`
}

func (s *Server) handleFriends(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Friends == nil {
		writeError(w, http.StatusServiceUnavailable, "friends unavailable")
		return
	}
	req := s.opts.Friends.Requests()
	st := s.opts.Friends.Stats()
	writeJSON(w, http.StatusOK, friendsResponse{
		Received:  friendDTOs(req.Received),
		Sent:      friendDTOs(req.Sent),
		Accepted:  friendDTOs(req.Accepted),
		Rejected:  friendDTOs(req.Rejected),
		Cancelled: friendDTOs(req.Cancelled),
		Stats: statsDTO{
			TotalFriends:    st.TotalFriends,
			PendingReceived: st.PendingReceived,
			PendingSent:     st.PendingSent,
			TotalPending:    st.TotalPending,
			Rejected:        st.Rejected,
			Cancelled:       st.Cancelled,
		},
	})
}

func friendDTOs(in []model.Friend) []friendDTO {
	out := make([]friendDTO, 0, len(in))
	for _, f := range in {
		out = append(out, friendDTO{
			ID:       f.ID,
			Username: f.Username,
			Nickname: f.Nickname,
			Status:   string(f.Status),
			IsSender: f.IsSender,
		})
	}
	return out
}

func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar unavailable")
		return
	}
	body := ics.Export(s.opts.Calendar.Events(), s.opts.Location, s.opts.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="meetpick.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.opts.Refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh unavailable")
		return
	}
	if err := s.opts.Refresher.RunOnce(r.Context()); err != nil {
		appLog.Error("api refresh failed", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
