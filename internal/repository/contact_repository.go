package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/selimacar/crm-notifier/internal/domain"
)

// ContactRepository maintains the per-number aggregates. Every write
// goes through an atomic upsert keyed on the unique phone_number index;
// there is no separate create path, so counters stay consistent under
// concurrent webhook deliveries.
type ContactRepository struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// RecordOutbound bumps the sent counter and outgoing timestamps for the
// contact, creating it lazily on first touch.
func (r *ContactRepository) RecordOutbound(ctx context.Context, phoneNumber string, tenantID int64, userID *int64, at time.Time) error {
	query := `
		INSERT INTO contacts
			(phone_number, messages_sent, last_activity, last_outgoing_at, status, tenant_id, user_id, created_at, updated_at)
		VALUES (?, 1, ?, ?, 'active', ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON DUPLICATE KEY UPDATE
			messages_sent = messages_sent + 1,
			last_activity = VALUES(last_activity),
			last_outgoing_at = VALUES(last_outgoing_at),
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, phoneNumber, at, at, tenantID, userID); err != nil {
		return fmt.Errorf("failed to record outbound contact activity: %w", err)
	}

	return nil
}

// RecordInbound bumps the received counter and incoming timestamps, and
// upserts the display name reported by the gateway when present.
func (r *ContactRepository) RecordInbound(ctx context.Context, phoneNumber, displayName string, at time.Time) error {
	query := `
		INSERT INTO contacts
			(phone_number, display_name, messages_received, last_activity, last_incoming_at, status, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, 'active', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON DUPLICATE KEY UPDATE
			messages_received = messages_received + 1,
			display_name = CASE WHEN VALUES(display_name) <> '' THEN VALUES(display_name) ELSE display_name END,
			last_activity = VALUES(last_activity),
			last_incoming_at = VALUES(last_incoming_at),
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, phoneNumber, displayName, at, at); err != nil {
		return fmt.Errorf("failed to record inbound contact activity: %w", err)
	}

	return nil
}

func (r *ContactRepository) GetByPhone(ctx context.Context, phoneNumber string) (*domain.Contact, error) {
	query := `
		SELECT id, phone_number, display_name, messages_sent, messages_received,
		       last_activity, last_incoming_at, last_outgoing_at, status,
		       tenant_id, user_id, created_at, updated_at
		FROM contacts
		WHERE phone_number = ?
	`

	var contact domain.Contact
	if err := r.db.GetContext(ctx, &contact, query, phoneNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return &contact, nil
}

// GetAll lists contacts ordered by most recent activity.
func (r *ContactRepository) GetAll(ctx context.Context, page, pageSize int) ([]domain.Contact, int64, error) {
	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount, "SELECT COUNT(*) FROM contacts"); err != nil {
		return nil, 0, fmt.Errorf("failed to count contacts: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT id, phone_number, display_name, messages_sent, messages_received,
		       last_activity, last_incoming_at, last_outgoing_at, status,
		       tenant_id, user_id, created_at, updated_at
		FROM contacts
		ORDER BY last_activity DESC
		LIMIT ? OFFSET ?
	`

	var contacts []domain.Contact
	if err := r.db.SelectContext(ctx, &contacts, query, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to get contacts: %w", err)
	}

	return contacts, totalCount, nil
}

// SetStatus updates the moderation status of a contact.
func (r *ContactRepository) SetStatus(ctx context.Context, phoneNumber string, status domain.ContactStatus) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE contacts SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE phone_number = ?",
		status, phoneNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}
