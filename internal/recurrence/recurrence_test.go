package recurrence

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/SoSerious194/ptflow-messaging/internal/model"
)

func activeMsg(kind model.ScheduleKind) model.ScheduledMessage {
	return model.ScheduledMessage{
		ID:      uuid.New(),
		CoachID: uuid.New(),
		Schedule: model.Schedule{
			Kind:      kind,
			StartDate: "2024-01-01",
			StartTime: "09:00",
			Timezone:  "UTC",
		},
		Status:  model.StatusActive,
		Enabled: true,
	}
}

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", value, err)
	}
	return ts
}

func TestIsDue_DisabledOrInactiveNeverDue(t *testing.T) {
	t.Parallel()

	now := mustParse(t, "2024-06-01T12:00:00Z")

	m := activeMsg(model.KindDaily)
	m.Enabled = false
	if due, err := IsDue(m, now); err != nil || due {
		t.Fatalf("disabled: expected (false, nil), got (%v, %v)", due, err)
	}

	for _, status := range []model.Status{model.StatusPaused, model.StatusCompleted} {
		m := activeMsg(model.KindDaily)
		m.Status = status
		if due, err := IsDue(m, now); err != nil || due {
			t.Fatalf("status=%s: expected (false, nil), got (%v, %v)", status, due, err)
		}
	}
}

func TestIsDue_Once_WallClockInZone(t *testing.T) {
	t.Parallel()

	m := activeMsg(model.KindOnce)
	m.Schedule.Timezone = "America/New_York"

	// 13:00 UTC is 08:00 EST, before the 09:00 local start.
	if due, err := IsDue(m, mustParse(t, "2024-01-01T13:00:00Z")); err != nil {
		t.Fatalf("IsDue() error: %v", err)
	} else if due {
		t.Fatalf("expected not due before local start time")
	}

	// 14:30 UTC is 09:30 EST.
	if due, err := IsDue(m, mustParse(t, "2024-01-01T14:30:00Z")); err != nil {
		t.Fatalf("IsDue() error: %v", err)
	} else if !due {
		t.Fatalf("expected due after local start time")
	}
}

func TestIsDue_Once_DSTOffsetAtTargetDate(t *testing.T) {
	t.Parallel()

	// July 1 is EDT (UTC-4), so 09:00 local is 13:00 UTC, not the winter
	// 14:00 UTC.
	m := activeMsg(model.KindOnce)
	m.Schedule.Timezone = "America/New_York"
	m.Schedule.StartDate = "2024-07-01"

	fireAt, err := FireAt(m)
	if err != nil {
		t.Fatalf("FireAt() error: %v", err)
	}
	want := mustParse(t, "2024-07-01T13:00:00Z")
	if !fireAt.Equal(want) {
		t.Fatalf("expected fire at %v, got %v", want, fireAt)
	}
}

func TestIsDue_Once_ExactBoundary(t *testing.T) {
	t.Parallel()

	m := activeMsg(model.KindOnce)
	if due, err := IsDue(m, mustParse(t, "2024-01-01T09:00:00Z")); err != nil || !due {
		t.Fatalf("expected due at the exact start instant, got (%v, %v)", due, err)
	}
}

func TestIsDue_RecurringIntervals(t *testing.T) {
	t.Parallel()

	last := mustParse(t, "2024-06-01T00:00:00Z")

	cases := []struct {
		kind     model.ScheduleKind
		interval time.Duration
	}{
		{model.KindEvery5m, 5 * time.Minute},
		{model.KindDaily, 24 * time.Hour},
		{model.KindWeekly, 7 * 24 * time.Hour},
		{model.KindMonthly, 30 * 24 * time.Hour},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			t.Parallel()

			m := activeMsg(tc.kind)

			// Never sent: always due.
			if due, err := IsDue(m, last); err != nil || !due {
				t.Fatalf("nil LastSentAt: expected due, got (%v, %v)", due, err)
			}

			m.LastSentAt = &last

			if due, _ := IsDue(m, last.Add(tc.interval-time.Second)); due {
				t.Fatalf("expected not due one second before interval elapses")
			}
			if due, _ := IsDue(m, last.Add(tc.interval)); !due {
				t.Fatalf("expected due exactly at interval boundary")
			}
			if due, _ := IsDue(m, last.Add(tc.interval+time.Hour)); !due {
				t.Fatalf("expected due after interval boundary")
			}
		})
	}
}

func TestIsDue_MalformedFieldsFailClosed(t *testing.T) {
	t.Parallel()

	now := mustParse(t, "2024-06-01T12:00:00Z")

	cases := []struct {
		name   string
		mutate func(*model.ScheduledMessage)
	}{
		{"bad timezone", func(m *model.ScheduledMessage) { m.Schedule.Timezone = "Mars/Olympus" }},
		{"bad date", func(m *model.ScheduledMessage) { m.Schedule.StartDate = "01/02/2024" }},
		{"bad time", func(m *model.ScheduledMessage) { m.Schedule.StartTime = "9am" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := activeMsg(model.KindOnce)
			tc.mutate(&m)

			due, err := IsDue(m, now)
			if err == nil {
				t.Fatalf("expected a data error")
			}
			if due {
				t.Fatalf("malformed message must never be due")
			}
		})
	}
}

func TestIsDue_UnknownKind(t *testing.T) {
	t.Parallel()

	m := activeMsg(model.ScheduleKind("fortnightly"))
	due, err := IsDue(m, mustParse(t, "2024-06-01T12:00:00Z"))
	if err == nil || due {
		t.Fatalf("unknown kind: expected (false, error), got (%v, %v)", due, err)
	}
}

func TestInterval_OnceHasNone(t *testing.T) {
	t.Parallel()

	if _, err := Interval(model.KindOnce); err == nil {
		t.Fatalf("expected error for KindOnce")
	}
}
