package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"meetpick/internal/model"
)

const productID = "-//MeetPick//meetpick client//KO"

// UID returns the iCalendar UID of a MeetPick event.
func UID(eventID string) string {
	return "meetpick-" + eventID
}

// Export renders events as a VCALENDAR. Times are written in UTC; loc only
// stamps X-WR-TIMEZONE so clients display the calendar in the account's zone.
func Export(events []model.Event, loc *time.Location, now time.Time) []byte {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if loc != nil {
		cal.SetXWRTimezone(loc.String())
	}

	for _, ev := range events {
		ve := cal.AddEvent(UID(ev.ID))
		ve.SetDtStampTime(now)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		typ := ev.Type
		if typ == "" {
			typ = model.TypeFromColor(ev.Color)
		}
		ve.SetProperty(ical.ComponentPropertyCategories, string(typ))
		if ev.Color != "" {
			ve.SetProperty(propColor, ev.Color)
		}
	}
	return []byte(cal.Serialize())
}
