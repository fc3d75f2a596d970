package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SoSerious194/ptflow-messaging/internal/model"
	"github.com/SoSerious194/ptflow-messaging/internal/recurrence"
	"github.com/SoSerious194/ptflow-messaging/internal/repo"
)

// Transport delivers one message body from a coach to one recipient and
// returns the transport-assigned message id.
type Transport interface {
	Send(ctx context.Context, coachID, recipientID uuid.UUID, text string) (string, error)
}

// RecipientResolver expands a message's target into recipient ids.
type RecipientResolver interface {
	Resolve(ctx context.Context, m model.ScheduledMessage) ([]uuid.UUID, error)
}

// Result summarizes one processing pass. Dispatched counts messages that
// were due and claimed; Processed counts successfully-notified
// (message, recipient) pairs.
type Result struct {
	Dispatched int
	Processed  int
	Errors     []model.DeliveryError
}

func (r *Result) addError(messageID uuid.UUID, userID *uuid.UUID, err error) {
	r.Errors = append(r.Errors, model.DeliveryError{
		MessageID: messageID,
		UserID:    userID,
		Error:     err.Error(),
	})
}

type Dispatcher struct {
	transport  Transport
	messages   repo.MessageRepository
	deliveries repo.DeliveryRepository
	resolver   RecipientResolver

	onDelivered func(ctx context.Context, messageID, userID uuid.UUID, chatMessageID string, sentAt time.Time) error
}

func NewDispatcher(
	transport Transport,
	messages repo.MessageRepository,
	deliveries repo.DeliveryRepository,
	resolver RecipientResolver,
) *Dispatcher {
	return &Dispatcher{
		transport:  transport,
		messages:   messages,
		deliveries: deliveries,
		resolver:   resolver,
	}
}

// WithDeliveredHook registers a callback invoked after each successful send.
// Hook errors are ignored; the delivery log is the source of truth.
func (d *Dispatcher) WithDeliveredHook(
	hook func(ctx context.Context, messageID, userID uuid.UUID, chatMessageID string, sentAt time.Time) error,
) *Dispatcher {
	d.onDelivered = hook
	return d
}

// ProcessBatch runs one pass over candidate messages. Due-ness is re-checked
// here even when the caller pre-filtered, and each due message is claimed by
// conditionally advancing last_sent_at before any send; a message claimed by
// a concurrent invocation is skipped. Failures are aggregated per recipient
// or per message and never abort the rest of the batch.
func (d *Dispatcher) ProcessBatch(ctx context.Context, candidates []model.ScheduledMessage, now time.Time) Result {
	var res Result

	for _, m := range candidates {
		due, err := recurrence.IsDue(m, now)
		if err != nil {
			slog.Error("skipping message with malformed schedule", "message_id", m.ID, "error", err)
			res.addError(m.ID, nil, err)
			continue
		}
		if !due {
			continue
		}

		claimed, err := d.messages.Claim(ctx, m.ID, m.LastSentAt, now)
		if err != nil {
			slog.Error("failed to claim message", "message_id", m.ID, "error", err)
			res.addError(m.ID, nil, err)
			continue
		}
		if !claimed {
			slog.Info("message claimed by a concurrent pass, skipping", "message_id", m.ID)
			continue
		}

		res.Dispatched++
		res.Processed += d.dispatchOne(ctx, m, now, &res)
	}

	return res
}

// dispatchOne fans the message out to its resolved audience and returns the
// number of recipients notified.
func (d *Dispatcher) dispatchOne(ctx context.Context, m model.ScheduledMessage, now time.Time, res *Result) int {
	recipients, err := d.resolver.Resolve(ctx, m)
	if err != nil {
		slog.Error("failed to resolve recipients", "message_id", m.ID, "error", err)
		res.addError(m.ID, nil, err)
		return 0
	}

	sent := 0
	for _, userID := range recipients {
		chatMessageID, sendErr := d.transport.Send(ctx, m.CoachID, userID, m.Body)

		delivery := model.Delivery{
			MessageID: m.ID,
			UserID:    userID,
			SentAt:    now,
		}
		if sendErr != nil {
			errText := sendErr.Error()
			delivery.Outcome = model.OutcomeFailed
			delivery.Error = &errText
		} else {
			delivery.Outcome = model.OutcomeSent
			delivery.ChatMessageID = &chatMessageID
		}

		if err := d.deliveries.Record(ctx, delivery); err != nil {
			uid := userID
			slog.Error("failed to record delivery", "message_id", m.ID, "user_id", userID, "error", err)
			res.addError(m.ID, &uid, err)
		}

		if sendErr != nil {
			uid := userID
			slog.Warn("send failed", "message_id", m.ID, "user_id", userID, "error", sendErr)
			res.addError(m.ID, &uid, sendErr)
			continue
		}

		sent++
		if d.onDelivered != nil {
			_ = d.onDelivered(ctx, m.ID, userID, chatMessageID, now)
		}
	}

	// One-time messages are done after their single cycle. A failure here is
	// message-level only; the recorded deliveries stand.
	if m.Schedule.Kind == model.KindOnce {
		if err := d.messages.MarkCompleted(ctx, m.ID, now); err != nil {
			slog.Error("failed to mark message completed", "message_id", m.ID, "error", err)
			res.addError(m.ID, nil, err)
		}
	}

	return sent
}
