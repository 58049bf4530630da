package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"meetpick/internal/config"
	"meetpick/internal/ics"
	appLog "meetpick/internal/log"
	"meetpick/internal/model"
)

func runExport(ctx context.Context, e *env, args []string) error {
	fs := newFlags("export", e)
	month := fs.String("month", "", "Month to export, YYYY-MM (default: current)")
	out := fs.String("out", "", "Write to FILE instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	r, err := selectRange(e, *month, "", "")
	if err != nil {
		return err
	}
	store := e.app.Calendar
	if !store.Fetch(ctx, r) {
		return storeError(store.Error())
	}
	body := ics.Export(store.Events(), e.app.Location, time.Now())
	if *out == "" {
		_, err := e.stdout.Write(body)
		return err
	}
	if err := config.WriteFileAtomic(*out, body); err != nil {
		return err
	}
	fmt.Fprintf(e.stderr, "%d개의 일정을 %s 에 저장했습니다.\n", len(store.Events()), *out)
	return nil
}

func runImport(ctx context.Context, e *env, args []string) error {
	fs := newFlags("import", e)
	days := fs.Int("days", e.cfg.ImportDays, "Import occurrences up to N days ahead")
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: meetpick import FILE|URL [--days N] [--yes]")
	}

	body, err := readFeed(ctx, pos[0])
	if err != nil {
		return err
	}
	parsed, err := ics.Parse(body, e.app.Location)
	if err != nil {
		return fmt.Errorf("ICS 파일을 읽을 수 없습니다: %w", err)
	}

	now := time.Now().In(e.app.Location)
	res, err := ics.Expand(parsed, ics.ExpandConfig{
		Location:   e.app.Location,
		RangeStart: now,
		RangeEnd:   now.AddDate(0, 0, *days),
	})
	if err != nil {
		return err
	}
	if len(res.Occurrences) == 0 {
		fmt.Fprintln(e.stdout, "가져올 일정이 없습니다.")
		return nil
	}
	drafts := make([]model.EventDraft, 0, len(res.Occurrences))
	for _, o := range res.Occurrences {
		drafts = append(drafts, o.Draft())
	}
	if err := confirm(e, *yes, fmt.Sprintf("%d개의 일정을 가져올까요?", len(drafts))); err != nil {
		return err
	}

	store := e.app.Calendar
	created := store.Import(ctx, drafts)
	fmt.Fprintf(e.stdout, "%d/%d개의 일정을 가져왔습니다.\n", created, len(drafts))
	if created < len(drafts) {
		return storeError(store.Error())
	}
	return nil
}

func readFeed(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ics.NewFetcher(nil).Fetch(ctx, ref)
	}
	if strings.HasPrefix(ref, "webcal://") {
		return ics.NewFetcher(nil).Fetch(ctx, "https://"+strings.TrimPrefix(ref, "webcal://"))
	}
	return os.ReadFile(ref)
}

func runSync(ctx context.Context, e *env, args []string) error {
	fs := newFlags("sync", e)
	listen := fs.String("listen", "", "Companion server address (overrides config)")
	once := fs.Bool("once", false, "Refresh once and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *listen != "" {
		e.cfg.Listen = *listen
	}

	s := e.app.Session
	if s.Bootstrap(ctx); !s.IsAuthenticated() {
		if msg := s.Error(); msg != "" {
			return errors.New(msg)
		}
		return errors.New("로그인이 필요합니다.")
	}

	sched, err := e.app.Scheduler()
	if err != nil {
		return err
	}
	if err := sched.RunOnce(ctx); err != nil {
		if *once {
			return err
		}
		appLog.Warn("initial refresh incomplete", "error", err.Error())
	}
	if *once {
		fmt.Fprintln(e.stdout, "동기화를 완료했습니다.")
		return nil
	}

	appLog.Info("meetpick sync starting", "listen", e.cfg.Listen, "refresh", e.cfg.RefreshCron)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()
	err = e.app.Server(sched).Run(ctx)
	appLog.Info("meetpick sync exiting")
	return err
}
