package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"meetpick/internal/model"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL, Timeout: 2 * time.Second, Location: time.Local})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func TestFormatForBackend(t *testing.T) {
	got := FormatForBackend(time.Date(2025, time.January, 25, 14, 0, 0, 0, time.Local))
	if got != "2025-01-25T14:00:00" {
		t.Errorf("got %q", got)
	}
	got = FormatForBackend(time.Date(2025, time.March, 9, 8, 7, 6, 999_000_000, time.FixedZone("KST", 9*3600)))
	if got != "2025-03-09T08:07:06" {
		t.Errorf("sub-second or offset leaked: %q", got)
	}
}

func TestParseBackendTime(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	for _, in := range []string{"2025-01-25T14:00:00", "2025-01-25T14:00:00.123", "2025-01-25T14:00"} {
		got, err := ParseBackendTime(in, loc)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got.Hour() != 14 || got.Location() != loc {
			t.Errorf("%q parsed as %v", in, got)
		}
	}
	if _, err := ParseBackendTime("yesterday", loc); err == nil {
		t.Error("expected error for garbage")
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		kind    Kind
		message string
	}{
		{401, `{}`, KindUnauthorized, "로그인이 필요합니다."},
		{403, `{}`, KindForbidden, "접근 권한이 없습니다."},
		{404, `{}`, KindNotFound, "사용자 정보 API를 찾을 수 없습니다. 서버 설정을 확인해주세요."},
		{500, `{"message":"boom"}`, KindServerError, "서버 내부 오류가 발생했습니다. 잠시 후 다시 시도해주세요."},
		{418, `{"message":"teapot"}`, KindUnknown, "teapot"},
		{422, `not json`, KindUnknown, "사용자 정보를 가져올 수 없습니다."},
	}
	for _, tt := range tests {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			io.WriteString(w, tt.body)
		}))
		_, err := c.Auth().Me(context.Background())
		if KindOf(err) != tt.kind {
			t.Errorf("status %d: kind = %v, want %v", tt.status, KindOf(err), tt.kind)
		}
		if StatusOf(err) != tt.status {
			t.Errorf("status %d: StatusOf = %d", tt.status, StatusOf(err))
		}
		if err == nil || err.Error() != tt.message {
			t.Errorf("status %d: message = %v, want %q", tt.status, err, tt.message)
		}
	}
}

func TestLoginUsesBodyMessageAndFields(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"아이디 또는 비밀번호가 올바르지 않습니다.","errors":{"password":["mismatch"]}}`)
	}))
	_, err := c.Auth().Login(context.Background(), LoginRequest{Username: "meetpick", Password: "abcd1234"})
	var e *Error
	if !asError(err, &e) {
		t.Fatalf("want *Error, got %v", err)
	}
	if e.Kind != KindUnauthorized || e.Message != "아이디 또는 비밀번호가 올바르지 않습니다." {
		t.Errorf("got %v %q", e.Kind, e.Message)
	}
	if len(e.Fields["password"]) != 1 {
		t.Errorf("fields not carried: %v", e.Fields)
	}
}

func TestConflictOnFriendAdd(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	_, err := c.Friend().Add(context.Background(), 7)
	if !IsKind(err, KindConflict) || err.Error() != "이미 친구이거나 요청이 진행 중입니다." {
		t.Errorf("got %v", err)
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Friend().List(context.Background())
	if !IsKind(err, KindTimeout) {
		t.Fatalf("kind = %v (%v), want timeout", KindOf(err), err)
	}
	if err.Error() != msgTimeout {
		t.Errorf("message = %q", err.Error())
	}
}

func TestNetworkUnavailable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c, err := New(Options{BaseURL: "http://" + addr, Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Calendar().List(context.Background(), time.Now(), time.Now())
	if !IsKind(err, KindNetworkUnavailable) {
		t.Fatalf("kind = %v (%v)", KindOf(err), err)
	}
	if err.Error() == "" {
		t.Error("empty message")
	}
}

func TestCanceled(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Friend().List(ctx)
	if !IsKind(err, KindCanceled) {
		t.Errorf("kind = %v", KindOf(err))
	}
}

func TestCalendarListQueryAndDecode(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/calendar" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing request id")
		}
		gotQuery = r.URL.RawQuery
		io.WriteString(w, `[{"id":12,"title":"회의","startDate":"2025-01-25T14:00:00","endDate":"2025-01-25T15:30:00","color":"#2EC4B6","place":"강남"}]`)
	}))

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2025, 1, 31, 23, 59, 59, 0, time.Local)
	events, err := c.Calendar().List(context.Background(), start, end)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if gotQuery != "endDate=2025-01-31T23%3A59%3A59&startDate=2025-01-01T00%3A00%3A00" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(events) != 1 {
		t.Fatalf("len = %d", len(events))
	}
	ev := events[0]
	if ev.ID != "12" || ev.Type != model.EventTypeMeeting || ev.Location != "강남" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Start.Hour() != 14 || ev.End.Minute() != 30 {
		t.Errorf("times = %v %v", ev.Start, ev.End)
	}
}

func TestInvalidResponseIsRejected(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1,"username":"kim","status":"BLOCKED","sender":false}]`)
	}))
	_, err := c.Friend().List(context.Background())
	if !IsKind(err, KindUnknown) || err.Error() != msgInvalidResponse {
		t.Errorf("got %v", err)
	}
}

func TestCalendarCreateBody(t *testing.T) {
	var body map[string]any
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&body)
		io.WriteString(w, `{"message":"ok"}`)
	}))
	_, err := c.Calendar().Create(context.Background(), model.EventDraft{
		Title: "점심",
		Start: time.Date(2025, 1, 25, 12, 0, 0, 500, time.Local),
		End:   time.Date(2025, 1, 25, 13, 0, 0, 0, time.Local),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if body["startDate"] != "2025-01-25T12:00:00" || body["endDate"] != "2025-01-25T13:00:00" {
		t.Errorf("dates = %v %v", body["startDate"], body["endDate"])
	}
	if body["color"] != model.DefaultEventColor {
		t.Errorf("color = %v", body["color"])
	}
	if _, ok := body["place"]; ok {
		t.Error("empty place should be omitted")
	}
}

func TestCalendarUpdateSendsOnlySetFields(t *testing.T) {
	var raw string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/v1/calendar/42" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		io.WriteString(w, `{"message":"ok"}`)
	}))
	title := "새 제목"
	if _, err := c.Calendar().Update(context.Background(), "42", model.EventPatch{Title: &title}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if raw != `{"title":"새 제목"}` {
		t.Errorf("body = %s", raw)
	}

	if _, err := c.Calendar().Update(context.Background(), "abc", model.EventPatch{Title: &title}); !IsKind(err, KindInvalidRequest) {
		t.Errorf("bad id: %v", err)
	}
}

func TestCheckUsernameEscapesPath(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.EscapedPath(), "/api/v1/auth/check-id/") {
			t.Errorf("path = %s", r.URL.EscapedPath())
		}
		io.WriteString(w, `{"available":true}`)
	}))
	ok, err := c.Auth().CheckUsername(context.Background(), "a b")
	if err != nil || !ok {
		t.Errorf("got %v %v", ok, err)
	}
}

func TestSignupValidatesBeforeSending(t *testing.T) {
	called := false
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	_, err := c.Auth().Signup(context.Background(), SignupRequest{Username: "ab", Password: "abcd1234", Nickname: "밋픽"})
	if !IsKind(err, KindInvalidRequest) || err.Error() != "아이디는 4자 이상이어야 합니다." {
		t.Errorf("got %v", err)
	}
	if called {
		t.Error("request sent despite validation failure")
	}
}

func TestCookiesRoundTrip(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: "s3cr3t", Path: "/", HttpOnly: true})
			io.WriteString(w, `{"success":true}`)
		case "/api/v1/auth/me":
			if ck, err := r.Cookie("SESSION"); err != nil || ck.Value != "s3cr3t" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			io.WriteString(w, `{"id":1,"username":"meetpick","nickname":"밋픽"}`)
		}
	}))
	ctx := context.Background()
	if _, err := c.Auth().Login(ctx, LoginRequest{Username: "meetpick", Password: "abcd1234"}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "session.json")
	if err := c.SaveCookies(path); err != nil {
		t.Fatal(err)
	}

	c2, err := New(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if err := c2.LoadCookies(path); err != nil {
		t.Fatal(err)
	}
	u, err := c2.Auth().Me(ctx)
	if err != nil || u.Username != "meetpick" {
		t.Fatalf("restored session failed: %v %v", u, err)
	}

	if err := c2.ClearCookies(path); err != nil {
		t.Fatal(err)
	}
	if c2.HasCookies() {
		t.Error("cookies survived ClearCookies")
	}
	if _, err := c2.Auth().Me(ctx); !IsKind(err, KindUnauthorized) {
		t.Errorf("after clear: %v", err)
	}
}

func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if ok {
		*target = e
	}
	return ok
}
