package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/selimacar/crm-notifier/internal/domain"
)

const templateColumns = `
	id, name, language, category, components, status, provider_id, rejection_reason,
	tenant_id, created_at, updated_at
`

// TemplateRepository handles database operations for the local template
// registry, keyed uniquely by (name, language).
type TemplateRepository struct {
	db *sqlx.DB
}

func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(ctx context.Context, t *domain.Template) (*domain.Template, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO templates
			(name, language, category, components, status, provider_id, rejection_reason, tenant_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, t.Name, t.Language, t.Category, t.Components, t.Status, t.ProviderID, t.RejectionReason, t.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *TemplateRepository) Update(ctx context.Context, t *domain.Template) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE templates
		SET name = ?, language = ?, category = ?, components = ?, status = ?,
		    provider_id = ?, rejection_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, t.Name, t.Language, t.Category, t.Components, t.Status, t.ProviderID, t.RejectionReason, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
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

func (r *TemplateRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
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

func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*domain.Template, error) {
	var t domain.Template
	query := "SELECT " + templateColumns + " FROM templates WHERE id = ?"
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return &t, nil
}

func (r *TemplateRepository) GetByNameLanguage(ctx context.Context, name, language string) (*domain.Template, error) {
	var t domain.Template
	query := "SELECT " + templateColumns + " FROM templates WHERE name = ? AND language = ?"
	if err := r.db.GetContext(ctx, &t, query, name, language); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return &t, nil
}

func (r *TemplateRepository) GetAll(ctx context.Context, page, pageSize int) ([]domain.Template, int64, error) {
	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount, "SELECT COUNT(*) FROM templates"); err != nil {
		return nil, 0, fmt.Errorf("failed to count templates: %w", err)
	}

	offset := (page - 1) * pageSize
	query := "SELECT " + templateColumns + ` FROM templates
		ORDER BY name ASC, language ASC
		LIMIT ? OFFSET ?
	`

	var templates []domain.Template
	if err := r.db.SelectContext(ctx, &templates, query, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to get templates: %w", err)
	}

	return templates, totalCount, nil
}
