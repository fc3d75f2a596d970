package recurrence

import (
	"fmt"
	"time"

	"github.com/SoSerious194/ptflow-messaging/internal/model"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Intervals between sends for the recurring kinds. Monthly is a fixed 30
// days, not calendar-month arithmetic; the product has always billed it as
// "roughly monthly" and dashboards assume the 30-day spacing.
const (
	Every5mInterval = 5 * time.Minute
	DailyInterval   = 24 * time.Hour
	WeeklyInterval  = 7 * 24 * time.Hour
	MonthlyInterval = 30 * 24 * time.Hour
)

// Interval returns the minimum gap between sends for a recurring kind, or an
// error for KindOnce and unknown kinds.
func Interval(kind model.ScheduleKind) (time.Duration, error) {
	switch kind {
	case model.KindEvery5m:
		return Every5mInterval, nil
	case model.KindDaily:
		return DailyInterval, nil
	case model.KindWeekly:
		return WeeklyInterval, nil
	case model.KindMonthly:
		return MonthlyInterval, nil
	}
	return 0, fmt.Errorf("schedule kind %q has no recurrence interval", kind)
}

// FireAt converts a message's start date and time-of-day into the absolute
// instant it refers to, interpreting both as wall-clock time in the message's
// IANA timezone. The zone offset is resolved at that local date, so a message
// scheduled across a DST boundary fires at the wall-clock time the coach
// picked.
func FireAt(m model.ScheduledMessage) (time.Time, error) {
	loc, err := time.LoadLocation(m.Schedule.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", m.Schedule.Timezone, err)
	}

	d, err := time.Parse(dateLayout, m.Schedule.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date %q: %w", m.Schedule.StartDate, err)
	}

	tod, err := time.Parse(timeLayout, m.Schedule.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start time %q: %w", m.Schedule.StartTime, err)
	}

	local := time.Date(d.Year(), d.Month(), d.Day(), tod.Hour(), tod.Minute(), 0, 0, loc)
	return local.UTC(), nil
}

// IsDue reports whether the message should fire at the reference instant now.
//
// Disabled or non-active messages are never due. A one-time message is due
// once its start instant has passed. Recurring messages are due when they
// have never been sent, or when at least the kind's interval has elapsed
// since the last send.
//
// Malformed timing fields fail closed: the message is reported not due and
// the data error is returned for the caller to surface.
func IsDue(m model.ScheduledMessage, now time.Time) (bool, error) {
	if !m.Enabled || m.Status != model.StatusActive {
		return false, nil
	}

	if m.Schedule.Kind == model.KindOnce {
		fireAt, err := FireAt(m)
		if err != nil {
			return false, err
		}
		return !now.Before(fireAt), nil
	}

	interval, err := Interval(m.Schedule.Kind)
	if err != nil {
		return false, err
	}

	if m.LastSentAt == nil {
		return true, nil
	}
	return now.Sub(*m.LastSentAt) >= interval, nil
}
