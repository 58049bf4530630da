// Package app wires the API client and the stores for one process.
package app

import (
	"errors"
	"net/http"
	"time"

	"meetpick/internal/api"
	"meetpick/internal/calendar"
	"meetpick/internal/config"
	"meetpick/internal/friend"
	appLog "meetpick/internal/log"
	"meetpick/internal/scheduler"
	"meetpick/internal/session"
	"meetpick/internal/web"
)

type Options struct {
	Navigator session.Navigator
	// HTTPClient overrides the backend transport.
	HTTPClient *http.Client
	Now        func() time.Time
	// SettleDelay and RetryDelay override the login waits.
	SettleDelay time.Duration
	RetryDelay  time.Duration
}

// App owns everything a command needs. Close must be called once.
type App struct {
	Config   *config.Config
	Location *time.Location
	Client   *api.Client
	Session  *session.Store
	Calendar *calendar.Store
	Friends  *friend.Store

	now func() time.Time
}

func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	appLog.Setup(appLog.Options{
		Level:      appLog.Level(cfg.Log.Level),
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	loc := cfg.Location()
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	client, err := api.New(api.Options{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.RequestTimeout,
		Location:   loc,
		HTTPClient: opts.HTTPClient,
	})
	if err != nil {
		return nil, err
	}
	if err := client.LoadCookies(cfg.SessionFile); err != nil {
		appLog.Warn("ignoring unreadable session file", "path", cfg.SessionFile, "error", err.Error())
	}

	a := &App{
		Config:   cfg,
		Location: loc,
		Client:   client,
		now:      now,
	}
	a.Session = session.New(client.Auth(), session.Options{
		Navigator:   opts.Navigator,
		Cookies:     cookieFile{client: client, path: cfg.SessionFile},
		SettleDelay: opts.SettleDelay,
		RetryDelay:  opts.RetryDelay,
	})
	a.Calendar = calendar.New(client.Calendar(), calendar.Options{
		Location:  loc,
		WeekStart: cfg.Weekday(),
		Now:       now,
	})
	a.Friends = friend.New(client.Friend())

	appLog.Debug("app initialized", "api", cfg.APIBaseURL, "timezone", loc.String(), "session_file", cfg.SessionFile)
	return a, nil
}

// Scheduler builds the background refresher over the app's stores.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	return scheduler.New(scheduler.Options{
		Spec:       a.Config.RefreshCron,
		Calendar:   a.Calendar,
		Friends:    a.Friends,
		ExportPath: a.Config.ExportPath,
		Location:   a.Location,
		Now:        a.now,
	})
}

// Server builds the companion server; refresher may be nil.
func (a *App) Server(refresher web.Refresher) *web.Server {
	return web.NewServer(web.Options{
		Listen:    a.Config.Listen,
		BasicAuth: a.Config.BasicAuth,
		Location:  a.Location,
		Calendar:  a.Calendar,
		Friends:   a.Friends,
		Refresher: refresher,
		Now:       a.now,
	})
}

// Close persists the session cookies while a session is held and flushes
// the logger.
func (a *App) Close() error {
	var errs []error
	if a.Client.HasCookies() {
		if err := a.Client.SaveCookies(a.Config.SessionFile); err != nil {
			errs = append(errs, err)
		}
	}
	// Sync fails on terminals (EINVAL on /dev/stderr); nothing to report.
	_ = appLog.Sync()
	return errors.Join(errs...)
}

type cookieFile struct {
	client *api.Client
	path   string
}

func (c cookieFile) Persist() error { return c.client.SaveCookies(c.path) }
func (c cookieFile) Clear() error   { return c.client.ClearCookies(c.path) }
