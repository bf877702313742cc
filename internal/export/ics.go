// Package export renders agenda windows as iCalendar documents.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/planner"
)

type Options struct {
	// Name becomes X-WR-CALNAME.
	Name string
	// Stamp is written as DTSTAMP on every event and is required.
	Stamp time.Time
}

// UID identifies one occurrence stably across exports.
func UID(definitionID string, index int) string {
	return fmt.Sprintf("%s-%d", definitionID, index)
}

// ErrNoStamp is returned when Options.Stamp is unset.
var ErrNoStamp = errors.New("export needs a DTSTAMP time")

// Calendar builds one VEVENT per agenda item.
func Calendar(items []planner.AgendaItem, opts Options) (*ical.Calendar, error) {
	if opts.Stamp.IsZero() {
		return nil, ErrNoStamp
	}
	stamp := opts.Stamp
	name := opts.Name
	if name == "" {
		name = constants.AppName
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//" + constants.AppName + "//" + constants.Version + "//EN")
	cal.SetXWRCalName(name)

	for _, item := range items {
		activity := item.Activity
		event := cal.AddEvent(UID(item.DefinitionID, item.Index))
		event.SetDtStampTime(stamp)
		event.SetStartAt(activity.At)
		event.SetEndAt(activity.EndAt())
		event.SetSummary(activity.Name)

		if activity.Category != "" {
			event.AddProperty(ical.ComponentPropertyCategories, activity.Category)
		}
		if activity.Zone != "" {
			event.SetLocation(activity.Zone)
		}
		if item.Completed {
			event.SetStatus(ical.ObjectStatusCompleted)
		} else {
			event.SetStatus(ical.ObjectStatusConfirmed)
		}

		var notes []string
		notes = append(notes, fmt.Sprintf("%s occurrence %d", activity.Kind, item.Index))
		if item.Overridden {
			notes = append(notes, "rescheduled")
		}
		if deadline, ok := activity.DeadlineAt(); ok {
			notes = append(notes, "deadline "+deadline.UTC().Format(time.RFC3339))
		}
		event.SetDescription(strings.Join(notes, "; "))

		if reminder, ok := activity.ReminderAt(); ok {
			alarm := event.AddAlarm()
			alarm.SetAction(ical.ActionDisplay)
			alarm.SetTrigger(trigger(activity.At.Sub(reminder)))
		}
	}
	return cal, nil
}

// trigger formats a lead time as a negative iCalendar duration.
func trigger(lead time.Duration) string {
	minutes := int(lead.Round(time.Minute) / time.Minute)
	if minutes <= 0 {
		return "PT0M"
	}
	return fmt.Sprintf("-PT%dM", minutes)
}

// Write serializes the agenda items to w.
func Write(w io.Writer, items []planner.AgendaItem, opts Options) error {
	cal, err := Calendar(items, opts)
	if err != nil {
		return err
	}
	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	return nil
}
