package core

import (
	"strconv"
	"time"
)

// Week describes the current edition of OE Week. All times are UTC.
type Week struct {
	Year         int
	Start        time.Time
	End          time.Time
	CFPOpen      time.Time // call for participation opens
	FutureStart  time.Time // first day of next year's edition
	MaxFavorites int
}

const OtherDay = "Other"

// InRange reports whether t falls within the current edition.
func (w Week) InRange(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ContributionPeriodIsNow reports whether submissions are accepted at `now`.
func (w Week) ContributionPeriodIsNow(now time.Time) bool {
	return !now.Before(w.CFPOpen) && !now.After(w.End)
}

// DaysToGo returns the number of days until the next edition starts.
// It is only reported when the edition is more than a week but less than a year away.
func (w Week) DaysToGo(now time.Time) (int, bool) {
	today := truncateDay(now.UTC())
	target := truncateDay(w.FutureStart)
	if today.Before(truncateDay(w.End)) {
		target = truncateDay(w.Start)
	}
	days := int(target.Sub(today).Hours() / 24)
	if days > 7 && days < 365 {
		return days, true
	}
	return 0, false
}

// Weekday returns the English weekday name of t when it falls within the edition, OtherDay otherwise.
func (w Week) Weekday(t time.Time) string {
	if t.IsZero() || !w.InRange(t) {
		return OtherDay
	}
	return t.UTC().Weekday().String()
}

// DayNumber returns the weekday number ("0" for Sunday) of t in `loc` when t falls within the edition
// as observed in `loc`, "other" otherwise.
func (w Week) DayNumber(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "other"
	}
	if loc == nil {
		loc = time.UTC
	}
	// the edition bounds are wall-clock times, re-read them in loc
	start := time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day(), w.Start.Hour(), w.Start.Minute(), w.Start.Second(), 0, loc)
	end := time.Date(w.End.Year(), w.End.Month(), w.End.Day(), w.End.Hour(), w.End.Minute(), w.End.Second(), 0, loc)
	if t.Before(start) || t.After(end) {
		return "other"
	}
	return strconv.Itoa(int(t.In(loc).Weekday()))
}

// Days lists the edition's weekdays (Monday to Friday) followed by the "other" bucket.
func (w Week) Days() []WeekDay {
	days := make([]WeekDay, 0, 6)
	for d := truncateDay(w.Start); !d.After(w.End) && len(days) < 5; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		days = append(days, WeekDay{
			Name:   d.Weekday().String(),
			Label:  d.Format("Monday, January 2"),
			Number: strconv.Itoa(int(d.Weekday())),
		})
	}
	return append(days, WeekDay{Name: OtherDay, Label: "Other days", Number: "other"})
}

type WeekDay struct {
	Name   string
	Label  string
	Number string
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
