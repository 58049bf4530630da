package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"meetpick/internal/calendar"
	"meetpick/internal/config"
	"meetpick/internal/friend"
	"meetpick/internal/model"
)

var start = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

type fakeCalendar struct{}

func (fakeCalendar) Events() []model.Event {
	return []model.Event{{ID: "3", Title: "회의", Start: start, End: start.Add(time.Hour), Color: "#2EC4B6", Type: model.EventTypeMeeting}}
}

func (fakeCalendar) ActiveRange() calendar.Range { return calendar.MonthRange(start) }

type fakeFriends struct{ rows []model.Friend }

func (f fakeFriends) Requests() friend.Requests { return friend.Classify(f.rows) }
func (f fakeFriends) Stats() friend.Stats       { return friend.StatsOf(f.Requests()) }

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) RunOnce(context.Context) error { f.calls++; return f.err }

func newServer(ba *config.BasicAuthConfig, ref *fakeRefresher) http.Handler {
	return NewServer(Options{
		BasicAuth: ba,
		Location:  time.UTC,
		Calendar:  fakeCalendar{},
		Friends: fakeFriends{rows: []model.Friend{
			{ID: 1, Username: "alice", Status: model.FriendPending},
			{ID: 2, Username: "bob", Status: model.FriendAccepted},
		}},
		Refresher: ref,
		Now:       func() time.Time { return start },
	}).Handler()
}

func do(h http.Handler, method, path string, auth ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if len(auth) == 2 {
		req.SetBasicAuth(auth[0], auth[1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(newServer(nil, nil), http.MethodGet, "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestEvents(t *testing.T) {
	rec := do(newServer(nil, nil), http.MethodGet, "/api/events")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp eventsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Type != "meeting" || resp.Events[0].ID != "3" {
		t.Errorf("events = %+v", resp.Events)
	}
	if !resp.RangeStart.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("range start = %v", resp.RangeStart)
	}
}

func TestFriends(t *testing.T) {
	rec := do(newServer(nil, nil), http.MethodGet, "/api/friends")
	var resp friendsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Received) != 1 || len(resp.Accepted) != 1 || resp.Stats.TotalFriends != 1 || resp.Stats.TotalPending != 1 {
		t.Errorf("friends = %+v", resp)
	}
	if resp.Sent == nil {
		t.Error("empty buckets should encode as [] not null")
	}
}

func TestCalendarICS(t *testing.T) {
	rec := do(newServer(nil, nil), http.MethodGet, "/calendar.ics")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "UID:meetpick-3") {
		t.Errorf("body = %s", body)
	}
}

func TestRefresh(t *testing.T) {
	ref := &fakeRefresher{}
	h := newServer(nil, ref)

	if rec := do(h, http.MethodGet, "/api/refresh"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET refresh = %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/refresh"); rec.Code != http.StatusOK || ref.calls != 1 {
		t.Errorf("POST refresh = %d, calls %d", rec.Code, ref.calls)
	}
	ref.err = errors.New("calendar: 서버에 연결할 수 없습니다.")
	rec := do(h, http.MethodPost, "/api/refresh")
	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), "서버에 연결할 수 없습니다.") {
		t.Errorf("failed refresh = %d %s", rec.Code, rec.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	h := newServer(&config.BasicAuthConfig{Username: "me", Password: "secret"}, nil)

	if rec := do(h, http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Errorf("health behind auth = %d", rec.Code)
	}
	rec := do(h, http.MethodGet, "/api/events")
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("WWW-Authenticate") == "" {
		t.Errorf("no creds = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/events", "me", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong creds = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/events", "me", "secret"); rec.Code != http.StatusOK {
		t.Errorf("good creds = %d", rec.Code)
	}

	// Half-configured credentials disable auth.
	open := newServer(&config.BasicAuthConfig{Username: "me"}, nil)
	if rec := do(open, http.MethodGet, "/api/events"); rec.Code != http.StatusOK {
		t.Errorf("half-configured auth = %d", rec.Code)
	}
}
