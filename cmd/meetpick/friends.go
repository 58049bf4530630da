package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"meetpick/internal/friend"
	"meetpick/internal/model"
)

func runFriends(ctx context.Context, e *env, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "list", "ls":
		return runFriendsList(ctx, e, args)
	case "add":
		return runFriendAdd(ctx, e, args)
	case "accept", "reject", "cancel", "rm", "delete":
		return runFriendAction(ctx, e, sub, args)
	default:
		return fmt.Errorf("unknown friends command %q", sub)
	}
}

func runFriendsList(ctx context.Context, e *env, args []string) error {
	fs := newFlags("friends list", e)
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	store := e.app.Friends
	if !store.Fetch(ctx) {
		return storeError(store.Error())
	}
	req := store.Requests()
	st := friend.StatsOf(req)
	if *asJSON {
		return printJSON(e, struct {
			Requests friend.Requests
			Stats    friend.Stats
		}{req, st})
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	section := func(title string, rows []model.Friend) {
		if len(rows) == 0 {
			return
		}
		fmt.Fprintf(tw, "%s (%d)\n", title, len(rows))
		for _, f := range rows {
			fmt.Fprintf(tw, "  %d\t%s\t%s\n", f.ID, f.Username, f.Nickname)
		}
	}
	section("친구", req.Accepted)
	section("받은 요청", req.Received)
	section("보낸 요청", req.Sent)
	section("거절됨", req.Rejected)
	section("취소됨", req.Cancelled)
	fmt.Fprintf(tw, "친구 %d명, 대기 중인 요청 %d건 (받은 %d, 보낸 %d)\n",
		st.TotalFriends, st.TotalPending, st.PendingReceived, st.PendingSent)
	return tw.Flush()
}

func runFriendAdd(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: meetpick friends add ACCOUNT_ID")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("계정 ID는 양의 정수여야 합니다: %q", args[0])
	}
	store := e.app.Friends
	if !store.Add(ctx, id) {
		return storeError(store.Error())
	}
	fmt.Fprintln(e.stdout, "친구 요청을 보냈습니다.")
	return nil
}

func runFriendAction(ctx context.Context, e *env, action string, args []string) error {
	fs := newFlags("friends "+action, e)
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("usage: meetpick friends %s ID|USERNAME", action)
	}

	store := e.app.Friends
	row, err := resolveFriend(ctx, store, pos[0])
	if err != nil {
		return err
	}

	var ok bool
	var done string
	switch action {
	case "accept":
		ok, done = store.Accept(ctx, row.ID), "친구 요청을 수락했습니다."
	case "reject":
		ok, done = store.Reject(ctx, row.ID), "친구 요청을 거절했습니다."
	case "cancel":
		ok, done = store.Cancel(ctx, row.ID), "친구 요청을 취소했습니다."
	default:
		if err := confirm(e, *yes, fmt.Sprintf("%s 님을 친구에서 삭제할까요?", displayName(row))); err != nil {
			return err
		}
		ok, done = store.Delete(ctx, row.ID), "친구를 삭제했습니다."
	}
	if !ok {
		return storeError(store.Error())
	}
	fmt.Fprintln(e.stdout, done)
	return nil
}

// resolveFriend accepts a relationship id or the other party's username.
// Usernames are looked up in a fresh snapshot.
func resolveFriend(ctx context.Context, store *friend.Store, ref string) (model.Friend, error) {
	if !store.Fetch(ctx) {
		return model.Friend{}, storeError(store.Error())
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if row, ok := store.ByID(id); ok {
			return row, nil
		}
		return model.Friend{ID: id}, nil
	}
	if row, ok := store.ByUsername(ref); ok {
		return row, nil
	}
	return model.Friend{}, fmt.Errorf("%q 와(과)의 친구 관계를 찾을 수 없습니다.", ref)
}

func displayName(f model.Friend) string {
	if f.Username == "" {
		return "#" + strconv.FormatInt(f.ID, 10)
	}
	if f.Nickname == "" {
		return f.Username
	}
	return f.Nickname + "(" + f.Username + ")"
}
