package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"meetpick/internal/api"
	"meetpick/internal/calendar"
	"meetpick/internal/ics"
	"meetpick/internal/model"
)

const displayLayout = "2006-01-02 15:04"

// parseWhen reads a CLI date or date-time in loc. Date-only values are
// midnight.
func parseWhen(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{displayLayout, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := api.ParseBackendTime(s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("날짜 형식이 올바르지 않습니다: %q (예: 2025-01-15 또는 2025-01-15 14:30)", s)
}

// selectRange picks the range from --month/--week/--day, defaulting to the
// current month.
func selectRange(e *env, month, week, day string) (calendar.Range, error) {
	loc := e.app.Location
	set := 0
	for _, v := range []string{month, week, day} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return calendar.Range{}, errors.New("--month, --week, --day 중 하나만 지정해주세요.")
	}
	switch {
	case month != "":
		t, err := time.ParseInLocation("2006-01", month, loc)
		if err != nil {
			return calendar.Range{}, fmt.Errorf("월 형식이 올바르지 않습니다: %q (예: 2025-01)", month)
		}
		return calendar.MonthRange(t), nil
	case week != "":
		t, err := parseWhen(week, loc)
		if err != nil {
			return calendar.Range{}, err
		}
		return calendar.WeekRange(t, e.cfg.Weekday()), nil
	case day != "":
		t, err := parseWhen(day, loc)
		if err != nil {
			return calendar.Range{}, err
		}
		return calendar.DayRange(t), nil
	default:
		return e.app.Calendar.ActiveRange(), nil
	}
}

func runEvents(ctx context.Context, e *env, args []string) error {
	fs := newFlags("events", e)
	month := fs.String("month", "", "Month to list, YYYY-MM")
	week := fs.String("week", "", "List the week containing DATE")
	day := fs.String("day", "", "List the single DATE")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	r, err := selectRange(e, *month, *week, *day)
	if err != nil {
		return err
	}

	store := e.app.Calendar
	if !store.Fetch(ctx, r) {
		return storeError(store.Error())
	}
	events := store.Events()
	if *asJSON {
		return printJSON(e, events)
	}
	if len(events) == 0 {
		fmt.Fprintf(e.stdout, "%s ~ %s 일정이 없습니다.\n", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
		return nil
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\t시작\t종료\t제목\t종류\t장소")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ev.ID,
			ev.Start.In(e.app.Location).Format(displayLayout),
			ev.End.In(e.app.Location).Format(displayLayout),
			ev.Title, ev.Type, ev.Location)
	}
	return tw.Flush()
}

func runEvent(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: meetpick event add|edit|rm ...")
	}
	switch args[0] {
	case "add":
		return runEventAdd(ctx, e, args[1:])
	case "edit":
		return runEventEdit(ctx, e, args[1:])
	case "rm", "delete":
		return runEventRemove(ctx, e, args[1:])
	default:
		return fmt.Errorf("unknown event command %q", args[0])
	}
}

type eventFlags struct {
	title, description, start, end, color, location *string
}

func addEventFlags(fs *flag.FlagSet) eventFlags {
	return eventFlags{
		title:       fs.String("title", "", "Event title"),
		description: fs.String("description", "", "Event description"),
		start:       fs.String("start", "", "Start, e.g. \"2025-01-15 14:30\""),
		end:         fs.String("end", "", "End, defaults to one hour after start"),
		color:       fs.String("color", "", "Hex color; selects the event type"),
		location:    fs.String("location", "", "Place"),
	}
}

func runEventAdd(ctx context.Context, e *env, args []string) error {
	fs := newFlags("event add", e)
	f := addEventFlags(fs)
	rule := fs.String("rrule", "", "Repeat by RRULE, e.g. FREQ=WEEKLY;COUNT=4")
	until := fs.String("until", "", "Last date for --rrule expansion (default: import_days ahead)")
	yes := fs.Bool("yes", false, "Skip confirmation of recurring adds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	loc := e.app.Location

	d := model.EventDraft{Title: *f.title, Description: *f.description, Color: *f.color, Location: *f.location}
	if *f.start != "" {
		t, err := parseWhen(*f.start, loc)
		if err != nil {
			return err
		}
		d.Start = t
		d.End = t.Add(time.Hour)
	}
	if *f.end != "" {
		t, err := parseWhen(*f.end, loc)
		if err != nil {
			return err
		}
		d.End = t
	}
	if !d.Start.IsZero() && d.End.Before(d.Start) {
		return errors.New("종료 시간은 시작 시간 이후여야 합니다.")
	}

	store := e.app.Calendar
	if *rule == "" {
		if !store.Create(ctx, d) {
			return storeError(store.Error())
		}
		fmt.Fprintln(e.stdout, "일정이 추가되었습니다.")
		return nil
	}

	if d.Start.IsZero() {
		return errors.New("--rrule 에는 --start 가 필요합니다.")
	}
	to := d.Start.AddDate(0, 0, e.cfg.ImportDays)
	if *until != "" {
		t, err := parseWhen(*until, loc)
		if err != nil {
			return err
		}
		to = calendar.DayRange(t).End
	}
	drafts, err := ics.ExpandRule(d, *rule, d.Start, to)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		return errors.New("반복 규칙에 해당하는 일정이 없습니다.")
	}
	if err := confirm(e, *yes, fmt.Sprintf("%d개의 일정을 추가할까요?", len(drafts))); err != nil {
		return err
	}
	created := store.Import(ctx, drafts)
	fmt.Fprintf(e.stdout, "%d/%d개의 일정이 추가되었습니다.\n", created, len(drafts))
	if created < len(drafts) {
		return storeError(store.Error())
	}
	return nil
}

func runEventEdit(ctx context.Context, e *env, args []string) error {
	fs := newFlags("event edit", e)
	f := addEventFlags(fs)
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: meetpick event edit ID [--title ...] [--start ...]")
	}
	loc := e.app.Location

	var p model.EventPatch
	var parseErr error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "title":
			p.Title = f.title
		case "description":
			p.Description = f.description
		case "color":
			p.Color = f.color
		case "location":
			p.Location = f.location
		case "start", "end":
			t, err := parseWhen(fl.Value.String(), loc)
			if err != nil {
				parseErr = err
				return
			}
			if fl.Name == "start" {
				p.Start = &t
			} else {
				p.End = &t
			}
		}
	})
	if parseErr != nil {
		return parseErr
	}
	if p.Empty() {
		return errors.New("변경할 항목을 하나 이상 지정해주세요.")
	}

	store := e.app.Calendar
	if !store.Update(ctx, pos[0], p) {
		return storeError(store.Error())
	}
	fmt.Fprintln(e.stdout, "일정이 수정되었습니다.")
	return nil
}

func runEventRemove(ctx context.Context, e *env, args []string) error {
	fs := newFlags("event rm", e)
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: meetpick event rm ID [--yes]")
	}
	if err := confirm(e, *yes, fmt.Sprintf("일정 %s 을(를) 삭제할까요?", pos[0])); err != nil {
		return err
	}
	store := e.app.Calendar
	if !store.Delete(ctx, pos[0]) {
		return storeError(store.Error())
	}
	fmt.Fprintln(e.stdout, "일정이 삭제되었습니다.")
	return nil
}

func printJSON(e *env, v any) error {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
