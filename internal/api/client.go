// Package api holds the MeetPick REST resource clients (auth, calendar,
// friend). Every call is bounded by a fixed timeout, carries the session
// cookies, and fails only with *Error.
package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"reflect"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	appLog "meetpick/internal/log"
	"meetpick/internal/validate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// Options configures New. Zero values select defaults.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// Location is the zone naive backend timestamps are written and read in.
	Location *time.Location
	// HTTPClient overrides the transport; its Jar is replaced by the client's.
	HTTPClient *http.Client
}

// Client is shared by the three resource clients so that they see one
// cookie jar.
type Client struct {
	base    *url.URL
	http    *http.Client
	jar     http.CookieJar
	timeout time.Duration
	loc     *time.Location
}

// New builds a Client for the given backend origin.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("api: base URL is empty")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.New("api: base URL must be absolute: " + opts.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	hc := &http.Client{}
	if opts.HTTPClient != nil {
		cp := *opts.HTTPClient
		hc = &cp
	}
	hc.Jar = jar

	c := &Client{
		base:    base,
		http:    hc,
		jar:     jar,
		timeout: opts.Timeout,
		loc:     opts.Location,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	return c, nil
}

// Location returns the zone used for backend timestamps.
func (c *Client) Location() *time.Location { return c.loc }

// Auth returns the auth resource client.
func (c *Client) Auth() *AuthAPI { return &AuthAPI{c: c} }

// Calendar returns the calendar resource client.
func (c *Client) Calendar() *CalendarAPI { return &CalendarAPI{c: c} }

// Friend returns the friend resource client.
func (c *Client) Friend() *FriendAPI { return &FriendAPI{c: c} }

// operation describes how one endpoint reports its failures.
type operation struct {
	name string
	// fallback is used when neither fixed nor the body supplies a message.
	fallback string
	// fixed overrides the body message for specific kinds.
	fixed map[Kind]string
}

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
}

type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func (c *Client) do(ctx context.Context, op operation, in call) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in.body != nil {
		b, err := json.Marshal(in.body)
		if err != nil {
			return &Error{Kind: KindInvalidRequest, Op: op.name, Message: op.fallback, Err: err}
		}
		body = bytes.NewReader(b)
	}

	u := c.base.JoinPath(in.path)
	if len(in.query) > 0 {
		u.RawQuery = in.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, in.method, u.String(), body)
	if err != nil {
		return &Error{Kind: KindInvalidRequest, Op: op.name, Message: op.fallback, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	began := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		e := transportError(op.name, err)
		appLog.Debug("api transport failure", "op", op.name, "request_id", reqID, "kind", e.Kind.String(), "err", err)
		return e
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return transportError(op.name, err)
	}

	appLog.Debug("api call",
		"op", op.name,
		"method", in.method,
		"path", u.Path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"elapsed", time.Since(began),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, data)
	}

	if in.out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, in.out); err != nil {
			return &Error{Kind: KindUnknown, Status: resp.StatusCode, Op: op.name, Message: msgInvalidResponse, Err: err}
		}
	}
	if err := validateResponse(in.out); err != nil {
		return &Error{Kind: KindUnknown, Status: resp.StatusCode, Op: op.name, Message: msgInvalidResponse, Err: err}
	}
	return nil
}

func statusError(op operation, status int, data []byte) *Error {
	kind := kindForStatus(status)
	e := &Error{Kind: kind, Status: status, Op: op.name}

	// Best effort: a body that is not JSON counts as an empty object.
	var eb errorBody
	_ = json.Unmarshal(data, &eb)
	e.Fields = eb.Errors

	switch {
	case op.fixed[kind] != "":
		e.Message = op.fixed[kind]
	case eb.Message != "":
		e.Message = eb.Message
	default:
		e.Message = op.fallback
	}
	return e
}

// validateResponse checks decoded responses against their validate tags.
// Slices are checked element by element.
func validateResponse(out any) error {
	v := reflect.ValueOf(out)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		return validate.Validator.Struct(v.Interface())
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			if err := validateResponse(v.Index(i).Addr().Interface()); err != nil {
				return err
			}
		}
	}
	return nil
}
