package service

import (
	"context"
	"errors"
	"testing"

	"github.com/selimacar/crm-notifier/internal/domain"
	"github.com/selimacar/crm-notifier/internal/gateway"
)

type fakeTemplateRepo struct {
	byID      map[int64]*domain.Template
	nextID    int64
	deleted   []int64
	listErr   error
	createErr error
}

func newFakeTemplateRepo(templates ...*domain.Template) *fakeTemplateRepo {
	repo := &fakeTemplateRepo{byID: make(map[int64]*domain.Template), nextID: 1}
	for _, t := range templates {
		if t.ID == 0 {
			t.ID = repo.nextID
		}
		repo.byID[t.ID] = t
		if t.ID >= repo.nextID {
			repo.nextID = t.ID + 1
		}
	}
	return repo
}

func (f *fakeTemplateRepo) Create(ctx context.Context, t *domain.Template) (*domain.Template, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	t.ID = f.nextID
	f.nextID++
	copied := *t
	f.byID[t.ID] = &copied
	return t, nil
}

func (f *fakeTemplateRepo) Update(ctx context.Context, t *domain.Template) error {
	if _, ok := f.byID[t.ID]; !ok {
		return domain.ErrNotFound
	}
	copied := *t
	f.byID[t.ID] = &copied
	return nil
}

func (f *fakeTemplateRepo) Delete(ctx context.Context, id int64) error {
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTemplateRepo) GetByID(ctx context.Context, id int64) (*domain.Template, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTemplateRepo) GetByNameLanguage(ctx context.Context, name, language string) (*domain.Template, error) {
	for _, t := range f.byID {
		if t.Name == name && t.Language == language {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeTemplateRepo) GetAll(ctx context.Context, page, pageSize int) ([]domain.Template, int64, error) {
	var out []domain.Template
	for _, t := range f.byID {
		out = append(out, *t)
	}
	return out, int64(len(out)), nil
}

type fakeTemplateLister struct {
	templates []gateway.ProviderTemplate
	err       error
}

func (f *fakeTemplateLister) ListTemplates(ctx context.Context) ([]gateway.ProviderTemplate, error) {
	return f.templates, f.err
}

func strPtr(s string) *string { return &s }

func TestTemplateService_CreateStartsPending(t *testing.T) {
	repo := newFakeTemplateRepo()
	svc := NewTemplateService(repo, &fakeTemplateLister{})

	created, err := svc.Create(context.Background(), &domain.Template{
		Name:     "appointment_reminder",
		Language: "es_AR",
		Status:   domain.TemplateApproved, // caller cannot pre-approve
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.Status != domain.TemplatePending {
		t.Errorf("expected pending status, got %v", created.Status)
	}
}

func TestTemplateService_CreateRejectsDuplicateKey(t *testing.T) {
	repo := newFakeTemplateRepo(&domain.Template{Name: "promo", Language: "es_AR"})
	svc := NewTemplateService(repo, &fakeTemplateLister{})

	_, err := svc.Create(context.Background(), &domain.Template{Name: "promo", Language: "es_AR"})
	if err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestTemplateService_RenameApprovedIsForbidden(t *testing.T) {
	repo := newFakeTemplateRepo(&domain.Template{
		ID:       1,
		Name:     "promo",
		Language: "es_AR",
		Status:   domain.TemplateApproved,
	})
	svc := NewTemplateService(repo, &fakeTemplateLister{})

	_, err := svc.Update(context.Background(), 1, TemplateUpdate{Name: strPtr("promo_v2")})
	if !errors.Is(err, ErrTemplateRenameForbidden) {
		t.Fatalf("expected ErrTemplateRenameForbidden, got %v", err)
	}

	// The stored template must be untouched.
	stored, _ := repo.GetByID(context.Background(), 1)
	if stored.Name != "promo" {
		t.Errorf("expected name unchanged, got %q", stored.Name)
	}
}

func TestTemplateService_ContentEditResetsToPending(t *testing.T) {
	repo := newFakeTemplateRepo(&domain.Template{
		ID:              1,
		Name:            "promo",
		Language:        "es_AR",
		Category:        "MARKETING",
		Status:          domain.TemplateRejected,
		RejectionReason: strPtr("too spammy"),
	})
	svc := NewTemplateService(repo, &fakeTemplateLister{})

	updated, err := svc.Update(context.Background(), 1, TemplateUpdate{
		Components: strPtr(`[{"type":"BODY","text":"Hola {{1}}"}]`),
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Status != domain.TemplatePending {
		t.Errorf("expected pending after content edit, got %v", updated.Status)
	}
	if updated.RejectionReason != nil {
		t.Errorf("expected rejection reason cleared")
	}
}

func TestTemplateService_DeleteApprovedIsForbidden(t *testing.T) {
	repo := newFakeTemplateRepo(&domain.Template{
		ID:       1,
		Name:     "promo",
		Language: "es_AR",
		Status:   domain.TemplateApproved,
	})
	svc := NewTemplateService(repo, &fakeTemplateLister{})

	if err := svc.Delete(context.Background(), 1); !errors.Is(err, ErrTemplateDeleteForbidden) {
		t.Fatalf("expected ErrTemplateDeleteForbidden, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Errorf("expected no deletion")
	}
}

func TestTemplateService_DeletePendingSucceeds(t *testing.T) {
	repo := newFakeTemplateRepo(&domain.Template{ID: 1, Name: "draft", Language: "es_AR", Status: domain.TemplatePending})
	svc := NewTemplateService(repo, &fakeTemplateLister{})

	if err := svc.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Errorf("expected one deletion, got %d", len(repo.deleted))
	}
}

func TestTemplateService_SyncUpdatesAndCreates(t *testing.T) {
	repo := newFakeTemplateRepo(&domain.Template{
		ID:       1,
		Name:     "appointment_reminder",
		Language: "es_AR",
		Status:   domain.TemplatePending,
	})
	lister := &fakeTemplateLister{templates: []gateway.ProviderTemplate{
		{ID: "tmpl-1", Name: "appointment_reminder", Language: "es_AR", Status: "APPROVED", Category: "UTILITY"},
		{ID: "tmpl-2", Name: "promo_blast", Language: "es_AR", Status: "REJECTED", RejectedReason: "policy violation"},
	}}
	svc := NewTemplateService(repo, lister)

	report, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if report.Updated != 1 || report.Created != 1 {
		t.Fatalf("expected 1 updated / 1 created, got %d/%d", report.Updated, report.Created)
	}

	existing, _ := repo.GetByNameLanguage(context.Background(), "appointment_reminder", "es_AR")
	if existing.Status != domain.TemplateApproved {
		t.Errorf("expected existing template approved, got %v", existing.Status)
	}
	if existing.ProviderID == nil || *existing.ProviderID != "tmpl-1" {
		t.Errorf("expected provider id tmpl-1")
	}

	rejected, _ := repo.GetByNameLanguage(context.Background(), "promo_blast", "es_AR")
	if rejected == nil {
		t.Fatalf("expected rejected template created")
	}
	if rejected.Status != domain.TemplateRejected {
		t.Errorf("expected rejected status, got %v", rejected.Status)
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason != "policy violation" {
		t.Errorf("expected rejection reason recorded")
	}
}

func TestTemplateService_SyncFailsWhenGatewayUnavailable(t *testing.T) {
	svc := NewTemplateService(newFakeTemplateRepo(), &fakeTemplateLister{err: errors.New("timeout")})

	if _, err := svc.Sync(context.Background()); err == nil {
		t.Fatalf("expected error when the gateway list call fails")
	}
}
