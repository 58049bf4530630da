package ics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "meetpick/internal/log"
	"meetpick/internal/model"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// Location is the zone occurrences are converted to. Nil means time.Local.
	Location *time.Location

	// RangeStart and RangeEnd bound the occurrences, inclusive.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps one UID's expansion. Zero selects the default.
	MaxOccurrencesPerEvent int
}

// Occurrence is one concrete instance of a possibly recurring event.
type Occurrence struct {
	UID         string
	InstanceKey string
	Summary     string
	Description string
	Location    string
	Color       string
	AllDay      bool
	Start       time.Time
	End         time.Time
}

// Draft converts the occurrence into a create payload. An empty color
// falls back to the default event color.
func (o Occurrence) Draft() model.EventDraft {
	color := o.Color
	if color == "" {
		color = model.DefaultEventColor
	}
	return model.EventDraft{
		Title:       o.Summary,
		Description: o.Description,
		Start:       o.Start,
		End:         o.End,
		Color:       color,
		Location:    o.Location,
	}
}

type ExpandResult struct {
	Occurrences []Occurrence
	// TruncatedEvents lists UIDs that hit the cap.
	TruncatedEvents []string
}

// Expand turns parsed events into the occurrences inside the configured
// range, applying RRULE, EXDATE and RECURRENCE-ID overrides. The result is
// sorted by start time.
func Expand(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: range end is before range start")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	bases := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)
	var order []string
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := bases[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		bases[ev.UID] = append(bases[ev.UID], ev)
	}

	for _, uid := range order {
		truncated := false
		for _, ev := range bases[uid] {
			occ, hitCap := expandEvent(ev, overrides[uid], cfg)
			truncated = truncated || hitCap
			result.Occurrences = append(result.Occurrences, occ...)
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Warn("ics expansion truncated", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
		}
	}

	sort.SliceStable(result.Occurrences, func(i, j int) bool {
		return result.Occurrences[i].Start.Before(result.Occurrences[j].Start)
	})
	return result, nil
}

// ExpandRule repeats d by an RRULE string (e.g. "FREQ=WEEKLY;COUNT=4")
// and returns one draft per occurrence inside [from, to]. Each keeps d's
// duration.
func ExpandRule(d model.EventDraft, rule string, from, to time.Time) ([]model.EventDraft, error) {
	ev := ParsedEvent{
		UID:         "draft",
		Summary:     d.Title,
		Description: d.Description,
		Location:    d.Location,
		Color:       d.Color,
		Start:       d.Start,
		End:         d.End,
		RawRRule:    rule,
	}
	if _, err := ruleFor(ev); err != nil {
		return nil, fmt.Errorf("invalid recurrence rule %q: %w", rule, err)
	}
	res, err := Expand([]ParsedEvent{ev}, ExpandConfig{Location: d.Start.Location(), RangeStart: from, RangeEnd: to})
	if err != nil {
		return nil, err
	}
	drafts := make([]model.EventDraft, 0, len(res.Occurrences))
	for _, o := range res.Occurrences {
		drafts = append(drafts, o.Draft())
	}
	return drafts, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		if !overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
			return nil, false
		}
		return []Occurrence{occurrenceOf(ev, ev.Start, ev.End, cfg.Location)}, false
	}
	return expandRecurring(ev, overrides, cfg)
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	r, err := ruleFor(ev)
	if err != nil {
		appLog.Error("ics rrule parse failed", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	starts := set.Between(cfg.RangeStart.In(ev.Start.Location()), cfg.RangeEnd.In(ev.Start.Location()), true)
	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		end := start.Add(dur)
		if ev.AllDay {
			start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
			end = start.AddDate(0, 0, 1)
		}
		if o, ok := overrideFor(overrides, start); ok {
			out = append(out, occurrenceOf(o, o.Start, o.End, cfg.Location))
			continue
		}
		out = append(out, occurrenceOf(ev, start, end, cfg.Location))
	}
	return out, hitCap
}

// ruleFor builds the RRULE anchored at the event start, so BYDAY and
// friends default from DTSTART rather than from the current time.
func ruleFor(ev ParsedEvent) (*rrule.RRule, error) {
	opt, err := rrule.StrToROption(ev.RawRRule)
	if err != nil {
		return nil, err
	}
	opt.Dtstart = ev.Start
	return rrule.NewRRule(*opt)
}

// overrideFor finds the override whose RECURRENCE-ID is start.
func overrideFor(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func occurrenceOf(ev ParsedEvent, start, end time.Time, loc *time.Location) Occurrence {
	start, end = start.In(loc), end.In(loc)
	return Occurrence{
		UID:         ev.UID,
		InstanceKey: ev.UID + "@" + start.Format(time.RFC3339),
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Color:       ev.Color,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
