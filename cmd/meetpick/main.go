package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	jsoniter "github.com/json-iterator/go"

	"meetpick/internal/app"
	"meetpick/internal/config"
	appLog "meetpick/internal/log"
	"meetpick/internal/session"
)

const version = "0.1.0"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// env is what every subcommand runs with.
type env struct {
	app    *app.App
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"login":          {"login [--username NAME] [--password PW]", runLogin},
	"logout":         {"logout", runLogout},
	"whoami":         {"whoami", runWhoami},
	"signup":         {"signup --username NAME --nickname NICK [--location LOC] [--password PW]", runSignup},
	"check-username": {"check-username NAME", runCheckUsername},
	"events":         {"events [--month YYYY-MM | --week DATE | --day DATE] [--json]", runEvents},
	"event":          {"event add|edit|rm ...", runEvent},
	"friends":        {"friends [list|add|accept|reject|cancel|rm] [ID|USERNAME]", runFriends},
	"export":         {"export [--month YYYY-MM] [--out FILE]", runExport},
	"import":         {"import FILE|URL [--days N] [--yes]", runImport},
	"sync":           {"sync [--listen ADDR] [--once]", runSync},
}

type globalFlags struct {
	configPath string
	apiBase    string
	debug      bool
	version    bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	gf, rest, err := parseGlobal(argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if gf.version {
		fmt.Println("meetpick", version)
		return 0
	}
	if len(rest) == 0 {
		usage(os.Stderr)
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", rest[0])
		usage(os.Stderr)
		return 2
	}

	cfg, err := config.Load(gf.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", gf.configPath)
		fmt.Fprintln(os.Stderr, "설정을 불러올 수 없습니다:", err)
		return 1
	}
	if gf.apiBase != "" {
		cfg.APIBaseURL = gf.apiBase
	}
	if gf.debug {
		cfg.Log.Level = string(appLog.LevelDebug)
	}

	a, err := app.New(cfg, app.Options{Navigator: hintNavigator{w: os.Stderr}})
	if err != nil {
		appLog.Error("failed to initialize", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			appLog.Error("failed to persist session", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := &env{app: a, cfg: cfg, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := cmd.run(ctx, e, rest[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func parseGlobal(argv []string) (globalFlags, []string, error) {
	var gf globalFlags
	fs := flag.NewFlagSet("meetpick", flag.ContinueOnError)
	fs.StringVar(&gf.configPath, "config", config.DefaultPath(), "Path to config file")
	fs.StringVar(&gf.apiBase, "api", "", "Backend base URL (overrides config)")
	fs.BoolVar(&gf.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&gf.version, "version", false, "Print version and exit")
	fs.Usage = func() { usage(fs.Output()) }
	if err := fs.Parse(argv); err != nil {
		return gf, nil, err
	}
	return gf, fs.Args(), nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: meetpick [--config FILE] [--api URL] [--debug] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(w, "  "+commands[name].usage)
	}
}

// newFlags returns a subcommand flag set that reports errors instead of
// exiting.
func newFlags(name string, e *env) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

// parseInterspersed parses flags that may follow positional arguments, as
// in `event rm 12 --yes`.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// storeError turns a store failure message into an error.
func storeError(msg string) error {
	if msg == "" {
		msg = "요청에 실패했습니다."
	}
	return errors.New(msg)
}

// hintNavigator stands in for page navigation: the login view becomes a
// hint on how to log in again.
type hintNavigator struct{ w io.Writer }

func (n hintNavigator) Navigate(path string) {
	appLog.Debug("navigate", "path", path)
	if path == session.PathLogin {
		fmt.Fprintln(n.w, "로그인하려면: meetpick login")
	}
}
