package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/selimacar/crm-notifier/internal/domain"
)

const reminderColumns = `
	id, tenant_id, event_id, client_id, channel_type, state, priority,
	scheduled_at, attempt_count, last_attempt_at, last_error, subject, body,
	event_title, event_date, client_name, client_surname, client_email, client_phone,
	created_at, updated_at
`

// ReminderRepository handles database operations for reminders and their
// recipients. State and attempt fields are only mutated here, on behalf
// of the scheduler or an explicit user cancellation.
type ReminderRepository struct {
	db *sqlx.DB
}

func NewReminderRepository(db *sqlx.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Create inserts the reminder and its recipients in one transaction.
func (r *ReminderRepository) Create(ctx context.Context, reminder *domain.Reminder) (*domain.Reminder, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO reminders
			(tenant_id, event_id, client_id, channel_type, state, priority, scheduled_at,
			 subject, body, event_title, event_date, client_name, client_surname, client_email, client_phone,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, 'pending', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`,
		reminder.TenantID, reminder.EventID, reminder.ClientID, reminder.ChannelType,
		reminder.Priority, reminder.ScheduledAt, reminder.Subject, reminder.Body,
		reminder.EventTitle, reminder.EventDate, reminder.ClientName, reminder.ClientSurname,
		reminder.ClientEmail, reminder.ClientPhone,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	for i := range reminder.Recipients {
		rec := &reminder.Recipients[i]
		recResult, err := tx.ExecContext(ctx, `
			INSERT INTO reminder_recipients (reminder_id, kind, name, surname, email, phone)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, rec.Kind, rec.Name, rec.Surname, rec.Email, rec.Phone)
		if err != nil {
			return nil, fmt.Errorf("failed to create reminder recipient: %w", err)
		}
		if recID, err := recResult.LastInsertId(); err == nil {
			rec.ID = recID
		}
		rec.ReminderID = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reminder: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *ReminderRepository) GetByID(ctx context.Context, id int64) (*domain.Reminder, error) {
	var reminder domain.Reminder
	query := "SELECT " + reminderColumns + " FROM reminders WHERE id = ?"
	if err := r.db.GetContext(ctx, &reminder, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}

	if err := r.attachRecipients(ctx, []*domain.Reminder{&reminder}); err != nil {
		return nil, err
	}

	return &reminder, nil
}

// GetDue returns pending reminders whose scheduled time has passed,
// highest priority first, oldest first within a priority.
func (r *ReminderRepository) GetDue(ctx context.Context, now time.Time) ([]domain.Reminder, error) {
	query := "SELECT " + reminderColumns + `
		FROM reminders
		WHERE state = 'pending' AND scheduled_at <= ?
		ORDER BY FIELD(priority, 'urgent', 'high', 'medium', 'low'), scheduled_at ASC
	`

	var reminders []domain.Reminder
	if err := r.db.SelectContext(ctx, &reminders, query, now); err != nil {
		return nil, fmt.Errorf("failed to get due reminders: %w", err)
	}

	ptrs := make([]*domain.Reminder, len(reminders))
	for i := range reminders {
		ptrs[i] = &reminders[i]
	}
	if err := r.attachRecipients(ctx, ptrs); err != nil {
		return nil, err
	}

	return reminders, nil
}

func (r *ReminderRepository) attachRecipients(ctx context.Context, reminders []*domain.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}

	ids := make([]int64, len(reminders))
	byID := make(map[int64]*domain.Reminder, len(reminders))
	for i, rem := range reminders {
		ids[i] = rem.ID
		byID[rem.ID] = rem
	}

	query, args, err := sqlx.In(`
		SELECT id, reminder_id, kind, name, surname, email, phone, notified
		FROM reminder_recipients
		WHERE reminder_id IN (?)
		ORDER BY id ASC
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to build recipients query: %w", err)
	}

	var recipients []domain.Recipient
	if err := r.db.SelectContext(ctx, &recipients, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to get reminder recipients: %w", err)
	}

	for _, rec := range recipients {
		if rem, ok := byID[rec.ReminderID]; ok {
			rem.Recipients = append(rem.Recipients, rec)
		}
	}

	return nil
}

// MarkAttempt records one delivery attempt. attempt_count is written
// monotonically via GREATEST so a racing stale writer cannot lower it.
func (r *ReminderRepository) MarkAttempt(ctx context.Context, id int64, attempts int, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE reminders
		SET attempt_count = GREATEST(attempt_count, ?), last_attempt_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, attempts, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder attempt: %w", err)
	}

	return nil
}

func (r *ReminderRepository) MarkSent(ctx context.Context, id int64, lastError *string) error {
	return r.transition(ctx, id, domain.ReminderSent, lastError)
}

func (r *ReminderRepository) MarkFailed(ctx context.Context, id int64, lastError *string) error {
	return r.transition(ctx, id, domain.ReminderFailed, lastError)
}

// RecordError stores the latest failure while the reminder stays pending
// for the next tick.
func (r *ReminderRepository) RecordError(ctx context.Context, id int64, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE reminders
		SET last_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND state = 'pending'
	`, lastError, id)
	if err != nil {
		return fmt.Errorf("failed to record reminder error: %w", err)
	}

	return nil
}

// transition moves a pending reminder into a terminal state. Terminal
// states are final: the state guard means a second transition is a
// silent no-op.
func (r *ReminderRepository) transition(ctx context.Context, id int64, state domain.ReminderState, lastError *string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reminders
		SET state = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND state = 'pending'
	`, state, lastError, id)
	if err != nil {
		return fmt.Errorf("failed to transition reminder: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("reminder %d is not pending", id)
	}

	return nil
}

// Cancel is the only user-initiated state change and is legal only from
// pending.
func (r *ReminderRepository) Cancel(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reminders
		SET state = 'cancelled', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND state = 'pending'
	`, id)
	if err != nil {
		return fmt.Errorf("failed to cancel reminder: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no pending reminder found with id %d", id)
	}

	return nil
}

func (r *ReminderRepository) MarkRecipientNotified(ctx context.Context, recipientID int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE reminder_recipients SET notified = 1 WHERE id = ?", recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark recipient notified: %w", err)
	}

	return nil
}

// GetAll lists reminders with an optional state filter.
func (r *ReminderRepository) GetAll(
	ctx context.Context,
	state *domain.ReminderState,
	page, pageSize int,
) ([]domain.Reminder, int64, error) {
	where := ""
	args := []any{}
	if state != nil {
		where = " WHERE state = ?"
		args = append(args, *state)
	}

	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount, "SELECT COUNT(*) FROM reminders"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count reminders: %w", err)
	}

	offset := (page - 1) * pageSize
	query := "SELECT " + reminderColumns + " FROM reminders" + where + `
		ORDER BY scheduled_at DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, pageSize, offset)

	var reminders []domain.Reminder
	if err := r.db.SelectContext(ctx, &reminders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get reminders: %w", err)
	}

	return reminders, totalCount, nil
}

// GetStats returns reminder counts grouped by state.
func (r *ReminderRepository) GetStats(ctx context.Context) (pending, sent, failed, cancelled int64, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN state = 'pending' THEN 1 ELSE 0 END), 0)   AS pending,
			COALESCE(SUM(CASE WHEN state = 'sent' THEN 1 ELSE 0 END), 0)      AS sent,
			COALESCE(SUM(CASE WHEN state = 'failed' THEN 1 ELSE 0 END), 0)    AS failed,
			COALESCE(SUM(CASE WHEN state = 'cancelled' THEN 1 ELSE 0 END), 0) AS cancelled
		FROM reminders
	`

	var stats struct {
		Pending   int64 `db:"pending"`
		Sent      int64 `db:"sent"`
		Failed    int64 `db:"failed"`
		Cancelled int64 `db:"cancelled"`
	}

	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats.Pending, stats.Sent, stats.Failed, stats.Cancelled, nil
}
