package api

import (
	"context"
	"net/http"
	"net/url"

	"meetpick/internal/model"
	"meetpick/internal/validate"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the body of a successful login. The session itself
// travels in an HttpOnly cookie.
type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=4,max=20,username"`
	Password string `json:"password" validate:"required,min=8,password"`
	Nickname string `json:"nickname" validate:"required,min=2,max=10"`
	Location string `json:"location,omitempty"`
}

// SignupResponse is the created account.
type SignupResponse struct {
	ID        int64  `json:"id" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Nickname  string `json:"nickname"`
	Location  string `json:"location,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type userResponse struct {
	ID       int64  `json:"id" validate:"required"`
	Username string `json:"username" validate:"required"`
	Nickname string `json:"nickname"`
	Location string `json:"location,omitempty"`
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

var (
	opLogin = operation{name: "auth.login", fallback: "로그인에 실패했습니다."}
	opMe    = operation{
		name:     "auth.me",
		fallback: "사용자 정보를 가져올 수 없습니다.",
		fixed: map[Kind]string{
			KindUnauthorized: msgLoginRequired,
			KindForbidden:    "접근 권한이 없습니다.",
			KindNotFound:     "사용자 정보 API를 찾을 수 없습니다. 서버 설정을 확인해주세요.",
			KindServerError:  "서버 내부 오류가 발생했습니다. 잠시 후 다시 시도해주세요.",
		},
	}
	opSignup        = operation{name: "auth.signup", fallback: "회원가입에 실패했습니다."}
	opCheckUsername = operation{name: "auth.check_id", fallback: "중복 확인에 실패했습니다."}
	opLogout        = operation{name: "auth.logout", fallback: "로그아웃에 실패했습니다."}
)

// AuthAPI wraps /api/v1/auth.
type AuthAPI struct {
	c *Client
}

func (a *AuthAPI) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	if err := validate.Struct(req); err != nil {
		return LoginResponse{}, invalid(opLogin, err)
	}
	var out LoginResponse
	err := a.c.do(ctx, opLogin, call{method: http.MethodPost, path: "/api/v1/auth/login", body: req, out: &out})
	return out, err
}

// Me returns the account behind the current session cookie. A missing or
// expired session fails with KindUnauthorized.
func (a *AuthAPI) Me(ctx context.Context) (model.User, error) {
	var out userResponse
	if err := a.c.do(ctx, opMe, call{method: http.MethodGet, path: "/api/v1/auth/me", out: &out}); err != nil {
		return model.User{}, err
	}
	return model.User{ID: out.ID, Username: out.Username, Nickname: out.Nickname, Location: out.Location}, nil
}

func (a *AuthAPI) Signup(ctx context.Context, req SignupRequest) (SignupResponse, error) {
	if err := validate.Struct(req); err != nil {
		return SignupResponse{}, invalid(opSignup, err)
	}
	var out SignupResponse
	err := a.c.do(ctx, opSignup, call{method: http.MethodPost, path: "/api/v1/auth/signup", body: req, out: &out})
	return out, err
}

// CheckUsername reports whether username is still free.
func (a *AuthAPI) CheckUsername(ctx context.Context, username string) (bool, error) {
	var out availabilityResponse
	err := a.c.do(ctx, opCheckUsername, call{
		method: http.MethodGet,
		path:   "/api/v1/auth/check-id/" + url.PathEscape(username),
		out:    &out,
	})
	return out.Available, err
}

func (a *AuthAPI) Logout(ctx context.Context) error {
	return a.c.do(ctx, opLogout, call{method: http.MethodDelete, path: "/api/v1/auth/logout"})
}

func invalid(op operation, err error) *Error {
	return &Error{Kind: KindInvalidRequest, Op: op.name, Message: err.Error(), Err: err}
}
