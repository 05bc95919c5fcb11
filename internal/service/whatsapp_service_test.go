package service

import (
	"context"
	"testing"
	"time"

	"github.com/selimacar/crm-notifier/environments"
	"github.com/selimacar/crm-notifier/internal/domain"
	"github.com/selimacar/crm-notifier/internal/gateway"
	"github.com/selimacar/crm-notifier/internal/phone"
)

type fakeGateway struct {
	outcome *gateway.SendOutcome
	err     error

	sentTo []string
}

func (f *fakeGateway) SendText(ctx context.Context, to, body, messageID string) (*gateway.SendOutcome, error) {
	f.sentTo = append(f.sentTo, to)
	return f.outcome, f.err
}

func (f *fakeGateway) SendTemplate(ctx context.Context, to string, tpl gateway.TemplatePayload, messageID string) (*gateway.SendOutcome, error) {
	f.sentTo = append(f.sentTo, to)
	return f.outcome, f.err
}

func (f *fakeGateway) SendImage(ctx context.Context, to, link, caption, messageID string) (*gateway.SendOutcome, error) {
	f.sentTo = append(f.sentTo, to)
	return f.outcome, f.err
}

func (f *fakeGateway) SendDocument(ctx context.Context, to, link, caption, filename, messageID string) (*gateway.SendOutcome, error) {
	f.sentTo = append(f.sentTo, to)
	return f.outcome, f.err
}

type fakeOutboundStore struct {
	inserted     []*domain.Message
	insertResult domain.InsertResult
}

func (f *fakeOutboundStore) InsertIfAbsent(ctx context.Context, msg *domain.Message) (domain.InsertResult, error) {
	f.inserted = append(f.inserted, msg)
	return f.insertResult, nil
}

func (f *fakeOutboundStore) GetAll(ctx context.Context, direction *domain.MessageDirection, status *domain.MessageStatus, page, pageSize int) ([]domain.Message, int64, error) {
	return nil, 0, nil
}

func (f *fakeOutboundStore) GetStats(ctx context.Context) (int64, int64, int64, int64, error) {
	return 0, 0, 0, 0, nil
}

type fakeOutboundContacts struct {
	recorded []string
}

func (f *fakeOutboundContacts) RecordOutbound(ctx context.Context, phoneNumber string, tenantID int64, userID *int64, at time.Time) error {
	f.recorded = append(f.recorded, phoneNumber)
	return nil
}

func (f *fakeOutboundContacts) GetAll(ctx context.Context, page, pageSize int) ([]domain.Contact, int64, error) {
	return nil, 0, nil
}

func newTestService(gw *fakeGateway, store *fakeOutboundStore, contacts *fakeOutboundContacts) *WhatsAppService {
	normalizer := phone.NewNormalizer(phone.Config{
		DefaultCountryCode: "54",
		TrunkPrefix:        "0",
		MobilePrefix:       "9",
	})

	return NewWhatsAppService(gw, store, contacts, nil, normalizer, environments.BulkConfig{
		MaxRecipients: 100,
		SendDelay:     0,
	})
}

func TestWhatsAppService_SendPersistsAndBumpsContact(t *testing.T) {
	gw := &fakeGateway{outcome: &gateway.SendOutcome{Accepted: true, MessageID: "wamid.ok"}}
	store := &fakeOutboundStore{insertResult: domain.Inserted}
	contacts := &fakeOutboundContacts{}
	svc := newTestService(gw, store, contacts)

	result := svc.Send(context.Background(), "011 4555-1234", domain.SendPayload{
		Kind: domain.MessageText,
		Text: "turno confirmado",
	}, domain.SendOptions{})

	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.MessageID != "wamid.ok" {
		t.Errorf("expected message id wamid.ok, got %q", result.MessageID)
	}

	// Normalization happens before the gateway call.
	if len(gw.sentTo) != 1 || gw.sentTo[0] != "5491145551234" {
		t.Errorf("expected gateway called with 5491145551234, got %v", gw.sentTo)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(store.inserted))
	}
	msg := store.inserted[0]
	if msg.Direction != domain.DirectionOutbound || msg.Status != domain.StatusSent {
		t.Errorf("expected outbound/sent message, got %s/%s", msg.Direction, msg.Status)
	}
	if msg.SentAt == nil {
		t.Errorf("expected SentAt to be set")
	}

	if len(contacts.recorded) != 1 || contacts.recorded[0] != "5491145551234" {
		t.Errorf("expected contact aggregate bumped for 5491145551234, got %v", contacts.recorded)
	}
}

func TestWhatsAppService_GatewayRejectionPersistsNothing(t *testing.T) {
	gw := &fakeGateway{outcome: &gateway.SendOutcome{Accepted: false, RawError: "(#131026) Message undeliverable"}}
	store := &fakeOutboundStore{insertResult: domain.Inserted}
	contacts := &fakeOutboundContacts{}
	svc := newTestService(gw, store, contacts)

	result := svc.Send(context.Background(), "5491145551234", domain.SendPayload{
		Kind: domain.MessageText,
		Text: "hola",
	}, domain.SendOptions{})

	if result.Success {
		t.Fatalf("expected failure")
	}
	if result.Error == "" {
		t.Errorf("expected gateway error to surface")
	}
	if len(store.inserted) != 0 {
		t.Errorf("expected no persisted message on rejection, got %d", len(store.inserted))
	}
	if len(contacts.recorded) != 0 {
		t.Errorf("expected no contact update on rejection")
	}
}

func TestWhatsAppService_ImplausibleNumberFailsWithoutGatewayCall(t *testing.T) {
	gw := &fakeGateway{outcome: &gateway.SendOutcome{Accepted: true, MessageID: "wamid.x"}}
	svc := newTestService(gw, &fakeOutboundStore{}, &fakeOutboundContacts{})

	result := svc.Send(context.Background(), "12", domain.SendPayload{Kind: domain.MessageText, Text: "hi"}, domain.SendOptions{})

	if result.Success {
		t.Fatalf("expected failure for implausible number")
	}
	if len(gw.sentTo) != 0 {
		t.Errorf("expected no gateway call, got %v", gw.sentTo)
	}
}

func TestWhatsAppService_SendBulkRejectsOversizedListBeforeSending(t *testing.T) {
	gw := &fakeGateway{outcome: &gateway.SendOutcome{Accepted: true, MessageID: "wamid.x"}}
	svc := newTestService(gw, &fakeOutboundStore{insertResult: domain.Inserted}, &fakeOutboundContacts{})

	recipients := make([]string, 101)
	for i := range recipients {
		recipients[i] = "5491145551234"
	}

	_, err := svc.SendBulk(context.Background(), recipients, domain.SendPayload{Kind: domain.MessageText, Text: "x"}, domain.SendOptions{})
	if err == nil {
		t.Fatalf("expected validation error for 101 recipients")
	}
	if len(gw.sentTo) != 0 {
		t.Errorf("expected no sends before the cap check, got %d", len(gw.sentTo))
	}
}

func TestWhatsAppService_SendBulkContinuesPastFailures(t *testing.T) {
	gw := &fakeGateway{outcome: &gateway.SendOutcome{Accepted: true, MessageID: "wamid.bulk"}}
	store := &fakeOutboundStore{insertResult: domain.Inserted}
	svc := newTestService(gw, store, &fakeOutboundContacts{})

	report, err := svc.SendBulk(context.Background(), []string{
		"5491145551234",
		"12", // too short, fails without a gateway call
		"5491145551235",
	}, domain.SendPayload{Kind: domain.MessageText, Text: "promo"}, domain.SendOptions{})
	if err != nil {
		t.Fatalf("SendBulk returned error: %v", err)
	}

	if report.Succeeded != 2 || report.Failed != 1 {
		t.Fatalf("expected 2 succeeded / 1 failed, got %d/%d", report.Succeeded, report.Failed)
	}
	if len(report.Results) != 3 {
		t.Errorf("expected 3 results, got %d", len(report.Results))
	}
}

func TestWhatsAppService_EmptyBulkIsRejected(t *testing.T) {
	svc := newTestService(&fakeGateway{}, &fakeOutboundStore{}, &fakeOutboundContacts{})

	if _, err := svc.SendBulk(context.Background(), nil, domain.SendPayload{Kind: domain.MessageText}, domain.SendOptions{}); err == nil {
		t.Fatalf("expected error for empty recipient list")
	}
}

func TestWhatsAppService_CachedStatusesWithoutRedis(t *testing.T) {
	svc := newTestService(&fakeGateway{}, &fakeOutboundStore{}, &fakeOutboundContacts{})

	if _, err := svc.GetCachedStatuses(context.Background()); err == nil {
		t.Fatalf("expected error when redis is not configured")
	}
}
