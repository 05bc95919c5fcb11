package service

import (
	"context"
	"fmt"
	"time"

	"github.com/selimacar/crm-notifier/environments"
	"github.com/selimacar/crm-notifier/internal/domain"
	"github.com/selimacar/crm-notifier/internal/gateway"
	"github.com/selimacar/crm-notifier/internal/phone"
	"github.com/selimacar/crm-notifier/pkg/logger"
)

// Small internal interfaces so we can test without touching the real
// gateway, DB or cache.
type gatewayClient interface {
	SendText(ctx context.Context, to, body, messageID string) (*gateway.SendOutcome, error)
	SendTemplate(ctx context.Context, to string, tpl gateway.TemplatePayload, messageID string) (*gateway.SendOutcome, error)
	SendImage(ctx context.Context, to, link, caption, messageID string) (*gateway.SendOutcome, error)
	SendDocument(ctx context.Context, to, link, caption, filename, messageID string) (*gateway.SendOutcome, error)
}

type outboundMessageStore interface {
	InsertIfAbsent(ctx context.Context, msg *domain.Message) (domain.InsertResult, error)
	GetAll(ctx context.Context, direction *domain.MessageDirection, status *domain.MessageStatus, page, pageSize int) ([]domain.Message, int64, error)
	GetStats(ctx context.Context) (sent, delivered, read, failed int64, err error)
}

type outboundContactStore interface {
	RecordOutbound(ctx context.Context, phoneNumber string, tenantID int64, userID *int64, at time.Time) error
	GetAll(ctx context.Context, page, pageSize int) ([]domain.Contact, int64, error)
}

type messageStatusCache interface {
	SetStatus(ctx context.Context, messageID string, status domain.MessageStatus, at time.Time) error
	GetAllStatuses(ctx context.Context) (map[string]*domain.MessageStatusCache, error)
}

// WhatsAppService is the one component that turns a logical "send a chat
// message" request into a persisted, idempotent record. Outbound
// failures are returned to the caller without persisting a message; the
// caller's own retry bookkeeping (e.g. the reminder) records them.
type WhatsAppService struct {
	gateway    gatewayClient
	messages   outboundMessageStore
	contacts   outboundContactStore
	cache      messageStatusCache
	normalizer *phone.Normalizer
	bulkCfg    environments.BulkConfig
}

func NewWhatsAppService(
	gatewayClient gatewayClient,
	messages outboundMessageStore,
	contacts outboundContactStore,
	cache messageStatusCache,
	normalizer *phone.Normalizer,
	bulkCfg environments.BulkConfig,
) *WhatsAppService {
	return &WhatsAppService{
		gateway:    gatewayClient,
		messages:   messages,
		contacts:   contacts,
		cache:      cache,
		normalizer: normalizer,
		bulkCfg:    bulkCfg,
	}
}

// Send normalizes the recipient, calls the gateway, and on acceptance
// persists the outbound message and bumps the contact aggregate.
func (s *WhatsAppService) Send(ctx context.Context, to string, payload domain.SendPayload, opts domain.SendOptions) domain.SendResult {
	normalized := s.normalizer.Normalize(to)
	if !phone.IsPlausible(normalized) {
		return domain.SendResult{
			To:    to,
			Error: fmt.Sprintf("recipient number %q is too short after normalization (%q)", to, normalized),
		}
	}

	outcome, err := s.dispatch(ctx, normalized, payload, opts.MessageID)
	if err != nil {
		// Config errors and unsupported payloads; no network call was
		// made.
		return domain.SendResult{To: normalized, Error: err.Error()}
	}

	if !outcome.Accepted {
		logger.Warnf("Gateway did not accept message to %s: %s", normalized, outcome.RawError)
		return domain.SendResult{To: normalized, Error: outcome.RawError}
	}

	sentAt := time.Now()
	tenantID := opts.TenantID
	if tenantID == 0 {
		tenantID = 1
	}

	msg := &domain.Message{
		MessageID:     outcome.MessageID,
		Direction:     domain.DirectionOutbound,
		Type:          payload.Kind,
		ContactNumber: normalized,
		Status:        domain.StatusSent,
		Content:       payloadContent(payload),
		TenantID:      tenantID,
		UserID:        opts.UserID,
		SentAt:        &sentAt,
	}

	if result, err := s.messages.InsertIfAbsent(ctx, msg); err != nil {
		logger.Errorf("Failed to persist outbound message %s: %v", outcome.MessageID, err)
	} else if result == domain.AlreadyExists {
		logger.Debugf("Outbound message %s already recorded", outcome.MessageID)
	} else {
		if err := s.contacts.RecordOutbound(ctx, normalized, tenantID, opts.UserID, sentAt); err != nil {
			logger.Errorf("Failed to update contact %s: %v", normalized, err)
		}
		if s.cache != nil {
			if err := s.cache.SetStatus(ctx, outcome.MessageID, domain.StatusSent, sentAt); err != nil {
				logger.Warnf("Failed to cache status for message %s: %v", outcome.MessageID, err)
			}
		}
	}

	logger.Infof("Sent %s message to %s (messageId: %s)", payload.Kind, normalized, outcome.MessageID)

	return domain.SendResult{To: normalized, Success: true, MessageID: outcome.MessageID}
}

func (s *WhatsAppService) dispatch(ctx context.Context, to string, payload domain.SendPayload, messageID string) (*gateway.SendOutcome, error) {
	switch payload.Kind {
	case domain.MessageText, "":
		return s.gateway.SendText(ctx, to, payload.Text, messageID)
	case domain.MessageTemplate:
		return s.gateway.SendTemplate(ctx, to, gateway.TemplatePayload{
			Name:       payload.TemplateName,
			Language:   payload.TemplateLanguage,
			Parameters: payload.TemplateParams,
		}, messageID)
	case domain.MessageImage:
		return s.gateway.SendImage(ctx, to, payload.MediaLink, payload.Caption, messageID)
	case domain.MessageDocument:
		return s.gateway.SendDocument(ctx, to, payload.MediaLink, payload.Caption, payload.Filename, messageID)
	default:
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("unsupported message type %q", payload.Kind)}
	}
}

// BulkSendReport aggregates a sequential broadcast.
type BulkSendReport struct {
	Results   []domain.SendResult `json:"results"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

// SendBulk processes recipients sequentially with a fixed inter-message
// delay to respect gateway rate limits. One recipient's failure never
// cancels the remaining sends.
func (s *WhatsAppService) SendBulk(ctx context.Context, recipients []string, payload domain.SendPayload, opts domain.SendOptions) (*BulkSendReport, error) {
	if len(recipients) == 0 {
		return nil, &domain.ValidationError{Reason: "at least one recipient is required"}
	}
	if len(recipients) > s.bulkCfg.MaxRecipients {
		return nil, &domain.ValidationError{
			Reason: fmt.Sprintf("too many recipients: %d (max %d)", len(recipients), s.bulkCfg.MaxRecipients),
		}
	}

	report := &BulkSendReport{Results: make([]domain.SendResult, 0, len(recipients))}

	for i, to := range recipients {
		// Each recipient gets its own idempotency key.
		perRecipient := opts
		perRecipient.MessageID = ""

		result := s.Send(ctx, to, payload, perRecipient)
		report.Results = append(report.Results, result)

		if result.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}

		if i < len(recipients)-1 && s.bulkCfg.SendDelay > 0 {
			select {
			case <-time.After(s.bulkCfg.SendDelay):
			case <-ctx.Done():
				return report, ctx.Err()
			}
		}
	}

	return report, nil
}

func (s *WhatsAppService) GetMessages(
	ctx context.Context,
	direction *domain.MessageDirection,
	status *domain.MessageStatus,
	page, pageSize int,
) ([]domain.Message, int64, error) {
	return s.messages.GetAll(ctx, direction, status, page, pageSize)
}

func (s *WhatsAppService) GetContacts(ctx context.Context, page, pageSize int) ([]domain.Contact, int64, error) {
	return s.contacts.GetAll(ctx, page, pageSize)
}

func (s *WhatsAppService) GetMessageStats(ctx context.Context) (sent, delivered, read, failed int64, err error) {
	return s.messages.GetStats(ctx)
}

func (s *WhatsAppService) GetCachedStatuses(ctx context.Context) (map[string]*domain.MessageStatusCache, error) {
	if s.cache == nil {
		return nil, fmt.Errorf("redis client not configured")
	}
	return s.cache.GetAllStatuses(ctx)
}

func payloadContent(p domain.SendPayload) string {
	switch p.Kind {
	case domain.MessageTemplate:
		return fmt.Sprintf("template:%s/%s", p.TemplateName, p.TemplateLanguage)
	case domain.MessageImage, domain.MessageDocument:
		if p.Caption != "" {
			return p.Caption
		}
		return p.MediaLink
	default:
		return p.Text
	}
}
