package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/selimacar/crm-notifier/internal/domain"
)

// MessageRepository handles database operations for gateway messages.
// The unique index on message_id is the idempotency enforcement point:
// concurrent duplicate inserts collapse into AlreadyExists, never an
// error.
type MessageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// InsertIfAbsent writes the message unless one with the same message_id
// already exists, and reports which of the two happened.
func (r *MessageRepository) InsertIfAbsent(ctx context.Context, msg *domain.Message) (domain.InsertResult, error) {
	query := `
		INSERT IGNORE INTO messages
			(message_id, direction, type, contact_number, status, content, tenant_id, user_id, sent_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	result, err := r.db.ExecContext(ctx, query,
		msg.MessageID, msg.Direction, msg.Type, msg.ContactNumber,
		msg.Status, msg.Content, msg.TenantID, msg.UserID, msg.SentAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return domain.AlreadyExists, nil
	}

	if id, err := result.LastInsertId(); err == nil {
		msg.ID = id
	}

	return domain.Inserted, nil
}

// AdvanceStatus applies a status report to the message with the given
// gateway id. The WHERE clause encodes the forward-only state machine,
// so a stale or duplicate report is a no-op rather than a regression.
func (r *MessageRepository) AdvanceStatus(
	ctx context.Context,
	messageID string,
	status domain.MessageStatus,
	at time.Time,
) (domain.StatusAdvance, error) {
	query := `
		UPDATE messages
		SET status = ?,
		    delivered_at = CASE WHEN ? = 'delivered' THEN COALESCE(delivered_at, ?) ELSE delivered_at END,
		    read_at = CASE WHEN ? = 'read' THEN COALESCE(read_at, ?) ELSE read_at END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE message_id = ?
		  AND (
		       (? = 'delivered' AND status = 'sent')
		    OR (? = 'read' AND status IN ('sent', 'delivered'))
		    OR (? = 'failed' AND status IN ('sent', 'delivered'))
		  )
	`

	result, err := r.db.ExecContext(ctx, query,
		status, status, at, status, at, messageID, status, status, status,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to advance message status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows > 0 {
		return domain.StatusAdvanced, nil
	}

	var exists int
	err = r.db.GetContext(ctx, &exists, "SELECT COUNT(*) FROM messages WHERE message_id = ?", messageID)
	if err != nil {
		return 0, fmt.Errorf("failed to check message existence: %w", err)
	}
	if exists == 0 {
		return domain.StatusUnknownMessage, nil
	}

	return domain.StatusUnchanged, nil
}

func (r *MessageRepository) GetByMessageID(ctx context.Context, messageID string) (*domain.Message, error) {
	query := `
		SELECT id, message_id, direction, type, contact_number, status, content,
		       tenant_id, user_id, sent_at, delivered_at, read_at, created_at, updated_at
		FROM messages
		WHERE message_id = ?
	`

	var message domain.Message
	if err := r.db.GetContext(ctx, &message, query, messageID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &message, nil
}

// GetAll lists messages with optional direction and status filters.
func (r *MessageRepository) GetAll(
	ctx context.Context,
	direction *domain.MessageDirection,
	status *domain.MessageStatus,
	page, pageSize int,
) ([]domain.Message, int64, error) {
	where := "WHERE 1=1"
	args := []any{}

	if direction != nil {
		where += " AND direction = ?"
		args = append(args, *direction)
	}
	if status != nil {
		where += " AND status = ?"
		args = append(args, *status)
	}

	var totalCount int64
	countQuery := "SELECT COUNT(*) FROM messages " + where
	if err := r.db.GetContext(ctx, &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT id, message_id, direction, type, contact_number, status, content,
		       tenant_id, user_id, sent_at, delivered_at, read_at, created_at, updated_at
		FROM messages ` + where + `
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, pageSize, offset)

	var messages []domain.Message
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get messages: %w", err)
	}

	return messages, totalCount, nil
}

// GetStats returns message counts grouped by delivery status.
func (r *MessageRepository) GetStats(ctx context.Context) (sent, delivered, read, failed int64, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0)      AS sent,
			COALESCE(SUM(CASE WHEN status = 'delivered' THEN 1 ELSE 0 END), 0) AS delivered,
			COALESCE(SUM(CASE WHEN status = 'read' THEN 1 ELSE 0 END), 0)      AS see_read,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)    AS failed
		FROM messages
	`

	var stats struct {
		Sent      int64 `db:"sent"`
		Delivered int64 `db:"delivered"`
		Read      int64 `db:"see_read"`
		Failed    int64 `db:"failed"`
	}

	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats.Sent, stats.Delivered, stats.Read, stats.Failed, nil
}
