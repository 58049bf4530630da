package friend

import (
	"context"
	"sync"
	"testing"

	"meetpick/internal/api"
	"meetpick/internal/model"
)

func rows() []model.Friend {
	return []model.Friend{
		{ID: 1, Username: "alice", Status: model.FriendPending, IsSender: false},
		{ID: 2, Username: "bob", Status: model.FriendPending, IsSender: true},
		{ID: 3, Username: "carol", Status: model.FriendAccepted, IsSender: true},
		{ID: 4, Username: "dave", Status: model.FriendAccepted, IsSender: false},
		{ID: 5, Username: "erin", Status: model.FriendRejected, IsSender: true},
		{ID: 6, Username: "frank", Status: model.FriendCancel, IsSender: true},
	}
}

func ids(fs []model.Friend) []int64 {
	out := make([]int64, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.ID)
	}
	return out
}

func TestClassifyPartition(t *testing.T) {
	in := rows()
	r := Classify(in)

	if r.Len() != len(in) {
		t.Fatalf("partition size = %d, want %d", r.Len(), len(in))
	}
	seen := map[int64]int{}
	for _, bucket := range [][]model.Friend{r.Received, r.Sent, r.Accepted, r.Rejected, r.Cancelled} {
		for _, f := range bucket {
			seen[f.ID]++
		}
	}
	for _, f := range in {
		if seen[f.ID] != 1 {
			t.Errorf("row %d appears in %d buckets", f.ID, seen[f.ID])
		}
	}

	tests := []struct {
		name string
		got  []model.Friend
		want []int64
	}{
		{"received", r.Received, []int64{1}},
		{"sent", r.Sent, []int64{2}},
		{"accepted", r.Accepted, []int64{3, 4}},
		{"rejected", r.Rejected, []int64{5}},
		{"cancelled", r.Cancelled, []int64{6}},
	}
	for _, tt := range tests {
		got := ids(tt.got)
		if len(got) != len(tt.want) {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
				break
			}
		}
	}
}

func TestPendingSenderOnlyInSent(t *testing.T) {
	r := Classify([]model.Friend{{ID: 9, Status: model.FriendPending, IsSender: true}})
	if len(r.Sent) != 1 || len(r.Received) != 0 {
		t.Errorf("sent=%v received=%v", r.Sent, r.Received)
	}
}

func TestStats(t *testing.T) {
	r := Classify(rows())
	st := StatsOf(r)
	want := Stats{TotalFriends: 2, PendingReceived: 1, PendingSent: 1, TotalPending: 2, Rejected: 1, Cancelled: 1}
	if st != want {
		t.Errorf("stats = %+v, want %+v", st, want)
	}
	if st.TotalFriends != len(r.Accepted) {
		t.Error("TotalFriends must equal len(Accepted)")
	}
	if empty := StatsOf(Classify(nil)); empty != (Stats{}) {
		t.Errorf("empty stats = %+v", empty)
	}
}

type fakeBackend struct {
	mu      sync.Mutex
	friends []model.Friend
	lists   int
	err     error
	calls   []string
	during  func()
}

func (f *fakeBackend) List(context.Context) ([]model.Friend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	out := make([]model.Friend, len(f.friends))
	copy(out, f.friends)
	return out, nil
}

func (f *fakeBackend) record(op string, id int64, apply func(*model.Friend)) (api.MessageResponse, error) {
	if f.during != nil {
		f.during()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if f.err != nil {
		return api.MessageResponse{}, f.err
	}
	for i := range f.friends {
		if f.friends[i].ID == id {
			apply(&f.friends[i])
		}
	}
	return api.MessageResponse{Message: "ok"}, nil
}

func (f *fakeBackend) Add(_ context.Context, accountID int64) (api.MessageResponse, error) {
	return f.record("add", 0, nil)
}

func (f *fakeBackend) Accept(_ context.Context, id int64) (api.MessageResponse, error) {
	return f.record("accept", id, func(r *model.Friend) { r.Status = model.FriendAccepted })
}

func (f *fakeBackend) Reject(_ context.Context, id int64) (api.MessageResponse, error) {
	return f.record("reject", id, func(r *model.Friend) { r.Status = model.FriendRejected })
}

func (f *fakeBackend) Cancel(_ context.Context, id int64) (api.MessageResponse, error) {
	return f.record("cancel", id, func(r *model.Friend) { r.Status = model.FriendCancel })
}

func (f *fakeBackend) Delete(_ context.Context, id int64) (api.MessageResponse, error) {
	resp, err := f.record("delete", id, func(*model.Friend) {})
	if err == nil {
		f.mu.Lock()
		kept := f.friends[:0]
		for _, r := range f.friends {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		f.friends = kept
		f.mu.Unlock()
	}
	return resp, err
}

func TestAcceptRefetches(t *testing.T) {
	f := &fakeBackend{friends: rows()}
	s := New(f)
	if !s.Fetch(context.Background()) {
		t.Fatal(s.Error())
	}

	var sawLoading bool
	f.during = func() { sawLoading = s.IsLoading() }
	if !s.Accept(context.Background(), 1) {
		t.Fatalf("accept failed: %s", s.Error())
	}
	if !sawLoading || s.IsLoading() {
		t.Errorf("loading during=%v after=%v", sawLoading, s.IsLoading())
	}
	if f.lists != 2 {
		t.Errorf("lists = %d, want 2", f.lists)
	}
	if got, _ := s.ByID(1); got.Status != model.FriendAccepted {
		t.Errorf("row 1 = %+v", got)
	}
	if st := s.Stats(); st.TotalFriends != 3 || st.PendingReceived != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestMutationFailureKeepsSnapshot(t *testing.T) {
	f := &fakeBackend{friends: rows()}
	s := New(f)
	s.Fetch(context.Background())

	f.err = &api.Error{Kind: api.KindConflict, Message: "이미 친구이거나 요청이 진행 중입니다."}
	if s.Add(context.Background(), 42) {
		t.Fatal("Add should fail")
	}
	if s.Error() != "이미 친구이거나 요청이 진행 중입니다." {
		t.Errorf("error = %q", s.Error())
	}
	if f.lists != 1 {
		t.Errorf("failed add re-fetched")
	}
	if len(s.Friends()) != len(rows()) {
		t.Error("snapshot changed")
	}

	f.err = &api.Error{Kind: api.KindServerError}
	s.Reject(context.Background(), 1)
	if s.Error() != msgRejectFailed {
		t.Errorf("fallback = %q", s.Error())
	}
}

func TestDeleteRemovesRow(t *testing.T) {
	f := &fakeBackend{friends: rows()}
	s := New(f)
	s.Fetch(context.Background())
	if !s.Delete(context.Background(), 3) {
		t.Fatal(s.Error())
	}
	if _, ok := s.ByID(3); ok {
		t.Error("row 3 still present")
	}
	if s.Stats().TotalFriends != 1 {
		t.Errorf("stats = %+v", s.Stats())
	}
}

func TestByUsername(t *testing.T) {
	f := &fakeBackend{friends: rows()}
	s := New(f)
	s.Fetch(context.Background())
	if got, ok := s.ByUsername("Carol"); !ok || got.ID != 3 {
		t.Errorf("ByUsername = %+v, %v", got, ok)
	}
	if _, ok := s.ByUsername("zed"); ok {
		t.Error("unexpected match")
	}
}
