package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SoSerious194/ptflow-messaging/internal/model"
	"github.com/SoSerious194/ptflow-messaging/internal/recurrence"
	"github.com/SoSerious194/ptflow-messaging/internal/repo"
)

// Processor is the entry-point layer above the Dispatcher: single-message
// mode for the external scheduler's callback, sweep mode for cron-style
// re-processing.
type Processor struct {
	messages   repo.MessageRepository
	dispatcher *Dispatcher
}

func NewProcessor(messages repo.MessageRepository, dispatcher *Dispatcher) *Processor {
	return &Processor{messages: messages, dispatcher: dispatcher}
}

// ProcessSingle handles the external scheduler's callback for one message.
//
// A missing, non-active, or disabled message (or a coach mismatch) yields
// repo.ErrNotFound before any side effect. A message whose fire time has not
// arrived yields an empty Result with no error; the caller responds
// informationally. Malformed timing fields yield a Result carrying the data
// error, nothing sent.
func (p *Processor) ProcessSingle(ctx context.Context, messageID uuid.UUID, coachID *uuid.UUID, now time.Time) (Result, error) {
	m, err := p.messages.GetByID(ctx, messageID)
	if err != nil {
		return Result{}, err
	}
	if coachID != nil && m.CoachID != *coachID {
		return Result{}, repo.ErrNotFound
	}
	if m.Status != model.StatusActive || !m.Enabled {
		return Result{}, repo.ErrNotFound
	}

	due, err := recurrence.IsDue(*m, now)
	if err != nil {
		var res Result
		res.addError(m.ID, nil, fmt.Errorf("malformed schedule: %w", err))
		return res, nil
	}
	if !due {
		return Result{}, nil
	}

	return p.dispatcher.ProcessBatch(ctx, []model.ScheduledMessage{*m}, now), nil
}

// Sweep processes every due message in one pass. With recurringOnly set,
// one-time messages are excluded; the background job uses that mode since
// one-time delivery is pushed by the external scheduler.
//
// Only a failure to load candidates is returned as an error; everything else
// is aggregated into the Result.
func (p *Processor) Sweep(ctx context.Context, now time.Time, recurringOnly bool) (Result, error) {
	candidates, err := p.messages.ListActive(ctx, recurringOnly)
	if err != nil {
		return Result{}, fmt.Errorf("load candidate messages: %w", err)
	}

	var res Result
	due := make([]model.ScheduledMessage, 0, len(candidates))
	for _, m := range candidates {
		ok, err := recurrence.IsDue(m, now)
		if err != nil {
			res.addError(m.ID, nil, fmt.Errorf("malformed schedule: %w", err))
			continue
		}
		if ok {
			due = append(due, m)
		}
	}

	batch := p.dispatcher.ProcessBatch(ctx, due, now)
	res.Dispatched += batch.Dispatched
	res.Processed += batch.Processed
	res.Errors = append(res.Errors, batch.Errors...)
	return res, nil
}
