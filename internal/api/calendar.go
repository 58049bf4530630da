package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"meetpick/internal/model"
	"meetpick/internal/validate"
)

type eventRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Color       string `json:"color"`
	Place       string `json:"place,omitempty"`
}

type eventPatchRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	StartDate   *string `json:"startDate,omitempty"`
	EndDate     *string `json:"endDate,omitempty"`
	Color       *string `json:"color,omitempty"`
	Place       *string `json:"place,omitempty"`
}

type eventResponse struct {
	ID          int64  `json:"id" validate:"required"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"startDate" validate:"required"`
	EndDate     string `json:"endDate" validate:"required"`
	Color       string `json:"color"`
	Place       string `json:"place,omitempty"`
}

// MessageResponse is the acknowledgement most mutations return.
type MessageResponse struct {
	Message string `json:"message"`
}

var (
	opCalendarList = operation{
		name:     "calendar.list",
		fallback: "일정 조회에 실패했습니다.",
		fixed:    map[Kind]string{KindUnauthorized: msgLoginRequired},
	}
	opCalendarCreate = operation{
		name:     "calendar.create",
		fallback: "일정 추가에 실패했습니다.",
		fixed: map[Kind]string{
			KindUnauthorized:   msgLoginRequired,
			KindInvalidRequest: "입력 데이터를 확인해주세요.",
		},
	}
	opCalendarUpdate = operation{
		name:     "calendar.update",
		fallback: "일정 수정에 실패했습니다.",
		fixed: map[Kind]string{
			KindUnauthorized:   msgLoginRequired,
			KindInvalidRequest: "입력 데이터를 확인해주세요.",
			KindNotFound:       "해당 일정을 찾을 수 없습니다.",
		},
	}
	opCalendarDelete = operation{
		name:     "calendar.delete",
		fallback: "일정 삭제에 실패했습니다.",
		fixed: map[Kind]string{
			KindUnauthorized: msgLoginRequired,
			KindNotFound:     "해당 일정을 찾을 수 없습니다.",
		},
	}
)

// CalendarAPI wraps /api/v1/calendar.
type CalendarAPI struct {
	c *Client
}

// List returns the events between start and end.
func (a *CalendarAPI) List(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	q := url.Values{}
	q.Set("startDate", FormatForBackend(start.In(a.c.loc)))
	q.Set("endDate", FormatForBackend(end.In(a.c.loc)))

	var out []eventResponse
	if err := a.c.do(ctx, opCalendarList, call{method: http.MethodGet, path: "/api/v1/calendar", query: q, out: &out}); err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(out))
	for _, r := range out {
		ev, err := a.toEvent(r)
		if err != nil {
			return nil, &Error{Kind: KindUnknown, Status: http.StatusOK, Op: opCalendarList.name, Message: msgInvalidResponse, Err: err}
		}
		events = append(events, ev)
	}
	return events, nil
}

func (a *CalendarAPI) toEvent(r eventResponse) (model.Event, error) {
	start, err := ParseBackendTime(r.StartDate, a.c.loc)
	if err != nil {
		return model.Event{}, err
	}
	end, err := ParseBackendTime(r.EndDate, a.c.loc)
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{
		ID:          strconv.FormatInt(r.ID, 10),
		Title:       r.Title,
		Description: r.Description,
		Start:       start,
		End:         end,
		Color:       r.Color,
		Location:    r.Place,
		Type:        model.TypeFromColor(r.Color),
	}, nil
}

// Create adds an event. Zero start/end default to now and an empty color to
// model.DefaultEventColor.
func (a *CalendarAPI) Create(ctx context.Context, d model.EventDraft) (MessageResponse, error) {
	now := time.Now()
	if d.Start.IsZero() {
		d.Start = now
	}
	if d.End.IsZero() {
		d.End = now
	}
	if d.Color == "" {
		d.Color = model.DefaultEventColor
	}
	req := eventRequest{
		Title:       d.Title,
		Description: d.Description,
		StartDate:   FormatForBackend(d.Start.In(a.c.loc)),
		EndDate:     FormatForBackend(d.End.In(a.c.loc)),
		Color:       d.Color,
		Place:       d.Location,
	}
	if err := validate.Struct(req); err != nil {
		return MessageResponse{}, invalid(opCalendarCreate, err)
	}

	var out MessageResponse
	err := a.c.do(ctx, opCalendarCreate, call{method: http.MethodPost, path: "/api/v1/calendar", body: req, out: &out})
	return out, err
}

// Update sends only the fields set in p.
func (a *CalendarAPI) Update(ctx context.Context, id string, p model.EventPatch) (MessageResponse, error) {
	n, err := parseID(opCalendarUpdate, id, "잘못된 일정 ID입니다.")
	if err != nil {
		return MessageResponse{}, err
	}
	req := eventPatchRequest{
		Title:       p.Title,
		Description: p.Description,
		Color:       p.Color,
		Place:       p.Location,
	}
	if p.Start != nil {
		s := FormatForBackend(p.Start.In(a.c.loc))
		req.StartDate = &s
	}
	if p.End != nil {
		s := FormatForBackend(p.End.In(a.c.loc))
		req.EndDate = &s
	}

	var out MessageResponse
	err = a.c.do(ctx, opCalendarUpdate, call{
		method: http.MethodPatch,
		path:   "/api/v1/calendar/" + strconv.FormatInt(n, 10),
		body:   req,
		out:    &out,
	})
	return out, err
}

func (a *CalendarAPI) Delete(ctx context.Context, id string) (MessageResponse, error) {
	n, err := parseID(opCalendarDelete, id, "잘못된 일정 ID입니다.")
	if err != nil {
		return MessageResponse{}, err
	}
	var out MessageResponse
	err = a.c.do(ctx, opCalendarDelete, call{
		method: http.MethodDelete,
		path:   "/api/v1/calendar/" + strconv.FormatInt(n, 10),
		out:    &out,
	})
	return out, err
}

func parseID(op operation, id string, msg string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		if err == nil {
			err = errors.New("non-positive id")
		}
		return 0, &Error{Kind: KindInvalidRequest, Op: op.name, Message: msg, Err: err}
	}
	return n, nil
}
