package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/SoSerious194/ptflow-messaging/internal/model"
)

// ErrNotFound is returned when a scheduled message does not exist.
var ErrNotFound = errors.New("scheduled message not found")

type MessageRepository interface {
	// GetByID loads one message regardless of status. Returns ErrNotFound
	// when no row matches.
	GetByID(ctx context.Context, id uuid.UUID) (*model.ScheduledMessage, error)

	// ListActive returns all enabled, active messages. With recurringOnly
	// set, one-time messages are excluded (their delivery is driven by the
	// external scheduler's callback, not by sweeping).
	ListActive(ctx context.Context, recurringOnly bool) ([]model.ScheduledMessage, error)

	// Claim conditionally advances last_sent_at from the observed value to
	// now. It reports false when another invocation claimed the message
	// first, or when the message is no longer active and enabled.
	Claim(ctx context.Context, id uuid.UUID, observed *time.Time, now time.Time) (bool, error)

	// MarkCompleted flips a one-time message to its terminal status after
	// its single send cycle.
	MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) error
}

type DeliveryRepository interface {
	// Record appends one delivery-log row. The log is append-only; every
	// attempt gets a row, success or failure.
	Record(ctx context.Context, d model.Delivery) error

	// ListRecent returns delivery rows newest-first for the dashboard.
	ListRecent(ctx context.Context, limit, offset int) ([]model.Delivery, error)
}

type ClientRepository interface {
	// ListIDsByCoach returns the ids of every client assigned to the coach.
	ListIDsByCoach(ctx context.Context, coachID uuid.UUID) ([]uuid.UUID, error)
}
