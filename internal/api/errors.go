package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
)

// Kind classifies every failure a resource client can return.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInvalidRequest
	KindConflict
	KindServerError
	KindNetworkUnavailable
	KindTimeout
	// KindCanceled means the caller's context was canceled before a response.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidRequest:
		return "invalid_request"
	case KindConflict:
		return "conflict"
	case KindServerError:
		return "server_error"
	case KindNetworkUnavailable:
		return "network_unavailable"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Shared user-facing messages.
const (
	msgLoginRequired   = "로그인이 필요합니다."
	msgUnreachable     = "서버에 연결할 수 없습니다. 서버가 실행 중인지 확인해주세요."
	msgTransport       = "서버와 통신 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
	msgTimeout         = "요청 시간이 초과되었습니다. 다시 시도해주세요."
	msgCanceled        = "요청이 취소되었습니다."
	msgInvalidResponse = "서버 응답 형식이 올바르지 않습니다."
)

// Error is the only error type resource clients return.
type Error struct {
	Kind Kind
	// Status is the HTTP status code, or 0 when no response was received.
	Status  int
	Op      string
	Message string
	// Fields carries per-field validation errors from the response body.
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest:
		return KindInvalidRequest
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500:
		return KindServerError
	default:
		return KindUnknown
	}
}

// transportError normalizes a failure that happened before a status code was
// read. Raw transport errors never leave this package.
func transportError(op string, err error) *Error {
	e := &Error{Op: op, Err: err, Kind: KindNetworkUnavailable, Message: msgTransport}

	var netErr net.Error
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.Kind, e.Message = KindTimeout, msgTimeout
	case errors.Is(err, context.Canceled):
		e.Kind, e.Message = KindCanceled, msgCanceled
	case errors.As(err, &netErr) && netErr.Timeout():
		e.Kind, e.Message = KindTimeout, msgTimeout
	case errors.As(err, &dnsErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.EHOSTUNREACH):
		e.Message = msgUnreachable
	}
	return e
}
