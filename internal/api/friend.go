package api

import (
	"context"
	"net/http"
	"strconv"

	"meetpick/internal/model"
)

type friendAddRequest struct {
	FriendID int64 `json:"friendId"`
}

type friendResponse struct {
	ID       int64  `json:"id" validate:"required"`
	Username string `json:"username" validate:"required"`
	Nickname string `json:"nickname"`
	Status   string `json:"status" validate:"required,oneof=PENDING ACCEPTED REJECTED CANCEL"`
	Sender   bool   `json:"sender"`
}

var (
	opFriendList = operation{
		name:     "friend.list",
		fallback: "친구 목록 조회에 실패했습니다.",
		fixed:    map[Kind]string{KindUnauthorized: msgLoginRequired},
	}
	opFriendAdd = operation{
		name:     "friend.add",
		fallback: "친구 추가에 실패했습니다.",
		fixed: map[Kind]string{
			KindUnauthorized:   msgLoginRequired,
			KindInvalidRequest: "잘못된 요청입니다. 입력 데이터를 확인해주세요.",
			KindConflict:       "이미 친구이거나 요청이 진행 중입니다.",
		},
	}
	opFriendAccept = operation{
		name:     "friend.accept",
		fallback: "친구 요청 수락에 실패했습니다.",
		fixed: map[Kind]string{
			KindUnauthorized:   msgLoginRequired,
			KindNotFound:       "해당 친구 요청을 찾을 수 없습니다.",
			KindInvalidRequest: "잘못된 요청입니다.",
		},
	}
	opFriendReject = operation{
		name:     "friend.reject",
		fallback: "친구 요청 거절에 실패했습니다.",
		fixed: map[Kind]string{
			KindUnauthorized: msgLoginRequired,
			KindNotFound:     "해당 친구 요청을 찾을 수 없습니다.",
		},
	}
	opFriendCancel = operation{
		name:     "friend.cancel",
		fallback: "친구 요청 취소에 실패했습니다.",
		fixed: map[Kind]string{
			KindUnauthorized: msgLoginRequired,
			KindNotFound:     "해당 친구 요청을 찾을 수 없습니다.",
		},
	}
	opFriendDelete = operation{
		name:     "friend.delete",
		fallback: "친구 삭제에 실패했습니다.",
		fixed: map[Kind]string{
			KindUnauthorized: msgLoginRequired,
			KindNotFound:     "해당 친구를 찾을 수 없습니다.",
		},
	}
)

// FriendAPI wraps /api/v1/friend.
type FriendAPI struct {
	c *Client
}

// List returns every relationship row of the session account.
func (a *FriendAPI) List(ctx context.Context) ([]model.Friend, error) {
	var out []friendResponse
	if err := a.c.do(ctx, opFriendList, call{method: http.MethodGet, path: "/api/v1/friend", out: &out}); err != nil {
		return nil, err
	}
	friends := make([]model.Friend, 0, len(out))
	for _, r := range out {
		friends = append(friends, model.Friend{
			ID:       r.ID,
			Username: r.Username,
			Nickname: r.Nickname,
			Status:   model.FriendStatus(r.Status),
			IsSender: r.Sender,
		})
	}
	return friends, nil
}

// Add sends a friend request to the account with the given account id.
func (a *FriendAPI) Add(ctx context.Context, accountID int64) (MessageResponse, error) {
	if accountID <= 0 {
		return MessageResponse{}, &Error{Kind: KindInvalidRequest, Op: opFriendAdd.name, Message: opFriendAdd.fixed[KindInvalidRequest]}
	}
	var out MessageResponse
	err := a.c.do(ctx, opFriendAdd, call{method: http.MethodPost, path: "/api/v1/friend", body: friendAddRequest{FriendID: accountID}, out: &out})
	return out, err
}

func (a *FriendAPI) Accept(ctx context.Context, id int64) (MessageResponse, error) {
	return a.patch(ctx, opFriendAccept, "accept", id)
}

func (a *FriendAPI) Reject(ctx context.Context, id int64) (MessageResponse, error) {
	return a.patch(ctx, opFriendReject, "reject", id)
}

func (a *FriendAPI) Cancel(ctx context.Context, id int64) (MessageResponse, error) {
	return a.patch(ctx, opFriendCancel, "cancel", id)
}

// Delete removes an accepted relationship row.
func (a *FriendAPI) Delete(ctx context.Context, id int64) (MessageResponse, error) {
	var out MessageResponse
	err := a.c.do(ctx, opFriendDelete, call{
		method: http.MethodDelete,
		path:   "/api/v1/friend/" + strconv.FormatInt(id, 10),
		out:    &out,
	})
	return out, err
}

func (a *FriendAPI) patch(ctx context.Context, op operation, action string, id int64) (MessageResponse, error) {
	var out MessageResponse
	err := a.c.do(ctx, op, call{
		method: http.MethodPatch,
		path:   "/api/v1/friend/" + action + "/" + strconv.FormatInt(id, 10),
		out:    &out,
	})
	return out, err
}
