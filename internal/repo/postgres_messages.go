package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SoSerious194/ptflow-messaging/internal/model"
)

type PostgresMessageRepo struct {
	db *sql.DB
}

func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

const messageColumns = `
	id, coach_id, title, body, template_id,
	schedule_kind, start_date, start_time, timezone, end_date, day_of_week, day_of_month,
	target_kind, target_user_ids,
	status, is_enabled, last_sent_at, scheduler_ref, created_at, updated_at
`

func (r *PostgresMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.ScheduledMessage, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM scheduled_messages
		WHERE id = $1
	`, id)

	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *PostgresMessageRepo) ListActive(ctx context.Context, recurringOnly bool) ([]model.ScheduledMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM scheduled_messages
		WHERE status = 'active' AND is_enabled
	`
	if recurringOnly {
		query += ` AND schedule_kind <> 'once'`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.ScheduledMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

func (r *PostgresMessageRepo) Claim(ctx context.Context, id uuid.UUID, observed *time.Time, now time.Time) (bool, error) {
	var observedArg sql.NullTime
	if observed != nil {
		observedArg = sql.NullTime{Time: observed.UTC(), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_messages
		SET last_sent_at = $2, updated_at = $2
		WHERE id = $1
		  AND status = 'active'
		  AND is_enabled
		  AND last_sent_at IS NOT DISTINCT FROM $3
	`, id, now.UTC(), observedArg)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresMessageRepo) MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_messages
		SET status = 'completed', updated_at = $2
		WHERE id = $1 AND schedule_kind = 'once'
	`, id, now.UTC())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*model.ScheduledMessage, error) {
	var (
		m            model.ScheduledMessage
		templateID   sql.NullString
		endDate      sql.NullString
		dayOfWeek    sql.NullInt64
		dayOfMonth   sql.NullInt64
		targetIDs    []byte
		lastSentAt   sql.NullTime
		schedulerRef sql.NullString
		status       string
		scheduleKind string
		targetKind   string
	)

	if err := row.Scan(
		&m.ID,
		&m.CoachID,
		&m.Title,
		&m.Body,
		&templateID,
		&scheduleKind,
		&m.Schedule.StartDate,
		&m.Schedule.StartTime,
		&m.Schedule.Timezone,
		&endDate,
		&dayOfWeek,
		&dayOfMonth,
		&targetKind,
		&targetIDs,
		&status,
		&m.Enabled,
		&lastSentAt,
		&schedulerRef,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}

	m.Schedule.Kind = model.ScheduleKind(scheduleKind)
	m.Target.Kind = model.TargetKind(targetKind)
	m.Status = model.Status(status)

	if templateID.Valid {
		id, err := uuid.Parse(templateID.String)
		if err != nil {
			return nil, fmt.Errorf("bad template_id %q: %w", templateID.String, err)
		}
		m.TemplateID = &id
	}
	if endDate.Valid {
		s := endDate.String
		m.Schedule.EndDate = &s
	}
	if dayOfWeek.Valid {
		v := int(dayOfWeek.Int64)
		m.Schedule.DayOfWeek = &v
	}
	if dayOfMonth.Valid {
		v := int(dayOfMonth.Int64)
		m.Schedule.DayOfMonth = &v
	}
	if len(targetIDs) > 0 {
		if err := json.Unmarshal(targetIDs, &m.Target.UserIDs); err != nil {
			return nil, fmt.Errorf("bad target_user_ids: %w", err)
		}
	}
	if lastSentAt.Valid {
		t := lastSentAt.Time.UTC()
		m.LastSentAt = &t
	}
	if schedulerRef.Valid {
		s := schedulerRef.String
		m.SchedulerRef = &s
	}

	return &m, nil
}

type PostgresDeliveryRepo struct {
	db *sql.DB
}

func NewPostgresDeliveryRepo(db *sql.DB) *PostgresDeliveryRepo {
	return &PostgresDeliveryRepo{db: db}
}

func (r *PostgresDeliveryRepo) Record(ctx context.Context, d model.Delivery) error {
	var chatMessageID, errText sql.NullString
	if d.ChatMessageID != nil {
		chatMessageID = sql.NullString{String: *d.ChatMessageID, Valid: true}
	}
	if d.Error != nil {
		errText = sql.NullString{String: *d.Error, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO message_deliveries (message_id, user_id, sent_at, outcome, chat_message_id, error)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.MessageID, d.UserID, d.SentAt.UTC(), string(d.Outcome), chatMessageID, errText)
	return err
}

func (r *PostgresDeliveryRepo) ListRecent(ctx context.Context, limit, offset int) ([]model.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, message_id, user_id, sent_at, outcome, chat_message_id, error
		FROM message_deliveries
		ORDER BY sent_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Delivery
	for rows.Next() {
		var (
			d             model.Delivery
			outcome       string
			chatMessageID sql.NullString
			errText       sql.NullString
		)
		if err := rows.Scan(
			&d.ID,
			&d.MessageID,
			&d.UserID,
			&d.SentAt,
			&outcome,
			&chatMessageID,
			&errText,
		); err != nil {
			return nil, err
		}

		d.Outcome = model.Outcome(outcome)
		if chatMessageID.Valid {
			s := chatMessageID.String
			d.ChatMessageID = &s
		}
		if errText.Valid {
			s := errText.String
			d.Error = &s
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type PostgresClientRepo struct {
	db *sql.DB
}

func NewPostgresClientRepo(db *sql.DB) *PostgresClientRepo {
	return &PostgresClientRepo{db: db}
}

func (r *PostgresClientRepo) ListIDsByCoach(ctx context.Context, coachID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM clients
		WHERE coach_id = $1
	`, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
