package domain

import "time"

type TemplateStatus string

const (
	TemplatePending  TemplateStatus = "pending"
	TemplateApproved TemplateStatus = "approved"
	TemplateRejected TemplateStatus = "rejected"
)

// Template mirrors one gateway message template. (Name, Language) is the
// unique key used for reconciliation against the provider's registry.
// An approved template cannot be renamed, and any content or category
// edit resets it to pending.
type Template struct {
	ID              int64          `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Language        string         `db:"language" json:"language"`
	Category        string         `db:"category" json:"category"`
	Components      string         `db:"components" json:"components"`
	Status          TemplateStatus `db:"status" json:"status"`
	ProviderID      *string        `db:"provider_id" json:"providerId,omitempty"`
	RejectionReason *string        `db:"rejection_reason" json:"rejectionReason,omitempty"`
	TenantID        int64          `db:"tenant_id" json:"tenantId"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// TemplateSyncReport is returned by a provider reconciliation run.
type TemplateSyncReport struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}
