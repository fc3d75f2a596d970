package model

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

type ScheduleKind string

const (
	KindOnce    ScheduleKind = "once"
	KindEvery5m ScheduleKind = "5min"
	KindDaily   ScheduleKind = "daily"
	KindWeekly  ScheduleKind = "weekly"
	KindMonthly ScheduleKind = "monthly"
)

// Recurring reports whether the kind repeats. KindOnce is the only
// non-recurring kind; it completes after its single send cycle.
func (k ScheduleKind) Recurring() bool {
	return k != KindOnce
}

func (k ScheduleKind) Valid() bool {
	switch k {
	case KindOnce, KindEvery5m, KindDaily, KindWeekly, KindMonthly:
		return true
	}
	return false
}

type TargetKind string

const (
	TargetAll      TargetKind = "all"
	TargetSpecific TargetKind = "specific"
)

// Schedule describes when a message fires. StartDate is "2006-01-02" and
// StartTime "15:04", both interpreted as wall-clock time in Timezone.
// DayOfWeek/DayOfMonth carry the coach's structured frequency detail for
// weekly/monthly kinds; the dispatch logic does not read them.
type Schedule struct {
	Kind       ScheduleKind
	StartDate  string
	StartTime  string
	Timezone   string
	EndDate    *string
	DayOfWeek  *int
	DayOfMonth *int
}

// Target selects the audience: everyone coached by the owning coach, or an
// explicit recipient set. UserIDs is meaningful only when Kind is
// TargetSpecific.
type Target struct {
	Kind    TargetKind
	UserIDs []uuid.UUID
}

type ScheduledMessage struct {
	ID           uuid.UUID
	CoachID      uuid.UUID
	Title        string
	Body         string
	TemplateID   *uuid.UUID
	Schedule     Schedule
	Target       Target
	Status       Status
	Enabled      bool
	LastSentAt   *time.Time
	SchedulerRef *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Outcome string

const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

// Delivery is one row of the append-only send log: one attempt for one
// recipient of one message.
type Delivery struct {
	ID            int64
	MessageID     uuid.UUID
	UserID        uuid.UUID
	SentAt        time.Time
	Outcome       Outcome
	ChatMessageID *string
	Error         *string
}

// DeliveryError describes a single failed step in a processing pass, keyed by
// message and (when recipient-scoped) recipient.
type DeliveryError struct {
	MessageID uuid.UUID  `json:"messageId"`
	UserID    *uuid.UUID `json:"userId,omitempty"`
	Error     string     `json:"error"`
}
