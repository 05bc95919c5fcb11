package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/selimacar/crm-notifier/internal/domain"
	"github.com/selimacar/crm-notifier/internal/gateway"
	"github.com/selimacar/crm-notifier/pkg/logger"
)

type templateRepository interface {
	Create(ctx context.Context, t *domain.Template) (*domain.Template, error)
	Update(ctx context.Context, t *domain.Template) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Template, error)
	GetByNameLanguage(ctx context.Context, name, language string) (*domain.Template, error)
	GetAll(ctx context.Context, page, pageSize int) ([]domain.Template, int64, error)
}

type templateLister interface {
	ListTemplates(ctx context.Context) ([]gateway.ProviderTemplate, error)
}

// ErrTemplateRenameForbidden and ErrTemplateDeleteForbidden guard the
// approved-template invariants of the registry.
var (
	ErrTemplateRenameForbidden = fmt.Errorf("approved templates cannot be renamed")
	ErrTemplateDeleteForbidden = fmt.Errorf("approved templates cannot be deleted")
)

// TemplateService owns the local template registry and its one-way
// reconciliation against the gateway's approved/rejected list.
type TemplateService struct {
	repo    templateRepository
	gateway templateLister
}

func NewTemplateService(repo templateRepository, gatewayClient templateLister) *TemplateService {
	return &TemplateService{
		repo:    repo,
		gateway: gatewayClient,
	}
}

// TemplateUpdate carries the editable template fields; nil means
// unchanged.
type TemplateUpdate struct {
	Name       *string
	Category   *string
	Components *string
}

func (s *TemplateService) Create(ctx context.Context, t *domain.Template) (*domain.Template, error) {
	if t.Name == "" || t.Language == "" {
		return nil, &domain.ValidationError{Reason: "template name and language are required"}
	}

	existing, err := s.repo.GetByNameLanguage(ctx, t.Name, t.Language)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &domain.ValidationError{
			Reason: fmt.Sprintf("template %s/%s already exists", t.Name, t.Language),
		}
	}

	// Locally created templates await provider approval.
	t.Status = domain.TemplatePending

	return s.repo.Create(ctx, t)
}

// Update applies an edit under the registry invariants: a rename is
// forbidden once approved, and any content or category edit resets the
// template to pending.
func (s *TemplateService) Update(ctx context.Context, id int64, update TemplateUpdate) (*domain.Template, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil && *update.Name != t.Name {
		if t.Status == domain.TemplateApproved {
			return nil, ErrTemplateRenameForbidden
		}
		t.Name = *update.Name
	}

	contentChanged := false
	if update.Category != nil && *update.Category != t.Category {
		t.Category = *update.Category
		contentChanged = true
	}
	if update.Components != nil && *update.Components != t.Components {
		t.Components = *update.Components
		contentChanged = true
	}

	if contentChanged {
		t.Status = domain.TemplatePending
		t.RejectionReason = nil
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *TemplateService) Delete(ctx context.Context, id int64) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if t.Status == domain.TemplateApproved {
		return ErrTemplateDeleteForbidden
	}

	return s.repo.Delete(ctx, id)
}

func (s *TemplateService) Get(ctx context.Context, id int64) (*domain.Template, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *TemplateService) GetAll(ctx context.Context, page, pageSize int) ([]domain.Template, int64, error) {
	return s.repo.GetAll(ctx, page, pageSize)
}

// Sync reconciles the local registry against the gateway's template
// list. Provider entries win: existing locals are updated in place,
// unseen ones are created pre-seeded with the provider's verdict.
// Local-only templates awaiting approval are left untouched.
func (s *TemplateService) Sync(ctx context.Context) (*domain.TemplateSyncReport, error) {
	providerTemplates, err := s.gateway.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list gateway templates: %w", err)
	}

	report := &domain.TemplateSyncReport{}

	for _, pt := range providerTemplates {
		status := mapProviderTemplateStatus(pt.Status)

		var rejectionReason *string
		if status == domain.TemplateRejected && pt.RejectedReason != "" {
			reason := pt.RejectedReason
			rejectionReason = &reason
		}

		providerID := pt.ID

		local, err := s.repo.GetByNameLanguage(ctx, pt.Name, pt.Language)
		if err != nil {
			logger.Errorf("Template sync: lookup %s/%s failed: %v", pt.Name, pt.Language, err)
			continue
		}

		if local != nil {
			local.Status = status
			local.ProviderID = &providerID
			local.RejectionReason = rejectionReason
			if raw := gateway.RawComponents(pt); raw != "" {
				local.Components = raw
			}
			if pt.Category != "" {
				local.Category = pt.Category
			}
			if err := s.repo.Update(ctx, local); err != nil {
				logger.Errorf("Template sync: update %s/%s failed: %v", pt.Name, pt.Language, err)
				continue
			}
			report.Updated++
			continue
		}

		_, err = s.repo.Create(ctx, &domain.Template{
			Name:            pt.Name,
			Language:        pt.Language,
			Category:        pt.Category,
			Components:      gateway.RawComponents(pt),
			Status:          status,
			ProviderID:      &providerID,
			RejectionReason: rejectionReason,
			TenantID:        1,
		})
		if err != nil {
			logger.Errorf("Template sync: create %s/%s failed: %v", pt.Name, pt.Language, err)
			continue
		}
		report.Created++
	}

	logger.Infof("Template sync completed: %d created, %d updated", report.Created, report.Updated)

	return report, nil
}

func mapProviderTemplateStatus(status string) domain.TemplateStatus {
	switch strings.ToUpper(status) {
	case "APPROVED":
		return domain.TemplateApproved
	case "REJECTED":
		return domain.TemplateRejected
	default:
		return domain.TemplatePending
	}
}
