package webhook

import (
	"context"
	"time"

	"github.com/selimacar/crm-notifier/internal/domain"
	"github.com/selimacar/crm-notifier/pkg/logger"
)

// Consumer-side interfaces so the ingestor can be tested without a real
// database or cache.
type messageStore interface {
	InsertIfAbsent(ctx context.Context, msg *domain.Message) (domain.InsertResult, error)
	AdvanceStatus(ctx context.Context, messageID string, status domain.MessageStatus, at time.Time) (domain.StatusAdvance, error)
}

type contactStore interface {
	RecordInbound(ctx context.Context, phoneNumber, displayName string, at time.Time) error
}

type statusCache interface {
	SetStatus(ctx context.Context, messageID string, status domain.MessageStatus, at time.Time) error
}

// Summary aggregates one webhook delivery's per-event outcomes.
type Summary struct {
	Incoming   int `json:"incoming"`
	Statuses   int `json:"statuses"`
	Duplicates int `json:"duplicates"`
	Stale      int `json:"stale"`
	Unknown    int `json:"unknown"`
	Errors     int `json:"errors"`
}

func (s Summary) Processed() int {
	return s.Incoming + s.Statuses + s.Duplicates + s.Stale + s.Unknown
}

// Ingestor applies parsed gateway events to the stores idempotently.
// Duplicate and out-of-order deliveries are expected; the store's
// message_id uniqueness constraint and forward-only status guard carry
// the correctness load, so the ingestor can run concurrently with the
// scheduler and with other webhook deliveries.
type Ingestor struct {
	messages messageStore
	contacts contactStore
	cache    statusCache
}

func NewIngestor(messages messageStore, contacts contactStore, cache statusCache) *Ingestor {
	return &Ingestor{
		messages: messages,
		contacts: contacts,
		cache:    cache,
	}
}

// ApplyAll processes every event from one delivery; one bad event never
// blocks the rest.
func (i *Ingestor) ApplyAll(ctx context.Context, events []Event) Summary {
	var summary Summary

	for _, ev := range events {
		switch ev.Kind {
		case EventIncomingMessage:
			i.applyIncoming(ctx, ev.Message, &summary)
		case EventStatusReport:
			i.applyStatus(ctx, ev.Status, &summary)
		default:
			summary.Unknown++
		}
	}

	return summary
}

func (i *Ingestor) applyIncoming(ctx context.Context, in *InboundMessage, summary *Summary) {
	receivedAt := in.Timestamp
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	msg := &domain.Message{
		MessageID:     in.MessageID,
		Direction:     domain.DirectionInbound,
		Type:          domain.MessageType(in.Type),
		ContactNumber: in.From,
		Status:        domain.StatusDelivered,
		Content:       in.Body,
		TenantID:      1,
		SentAt:        &receivedAt,
	}

	result, err := i.messages.InsertIfAbsent(ctx, msg)
	if err != nil {
		logger.Errorf("Failed to store inbound message %s: %v", in.MessageID, err)
		summary.Errors++
		return
	}

	if result == domain.AlreadyExists {
		// Re-delivery of a message we already ingested: success, no
		// record, no counter increment.
		logger.Debugf("Duplicate inbound message %s ignored", in.MessageID)
		summary.Duplicates++
		return
	}

	if err := i.contacts.RecordInbound(ctx, in.From, in.Name, receivedAt); err != nil {
		logger.Errorf("Failed to update contact %s: %v", in.From, err)
		summary.Errors++
		return
	}

	summary.Incoming++
}

func (i *Ingestor) applyStatus(ctx context.Context, report *StatusReport, summary *Summary) {
	mapped := MapProviderStatus(report.Status)
	if mapped == domain.StatusSent {
		// Unrecognized provider status: deliberate no-op.
		logger.Debugf("Ignoring status %q for message %s", report.Status, report.MessageID)
		summary.Stale++
		return
	}

	at := report.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	advance, err := i.messages.AdvanceStatus(ctx, report.MessageID, mapped, at)
	if err != nil {
		logger.Errorf("Failed to apply status %s to message %s: %v", mapped, report.MessageID, err)
		summary.Errors++
		return
	}

	switch advance {
	case domain.StatusAdvanced:
		summary.Statuses++
		if i.cache != nil {
			if err := i.cache.SetStatus(ctx, report.MessageID, mapped, at); err != nil {
				logger.Warnf("Failed to cache status for message %s: %v", report.MessageID, err)
			}
		}
	case domain.StatusUnchanged:
		// Out-of-order or duplicate report; the store kept the further
		// state.
		logger.Debugf("Stale status %s for message %s dropped", mapped, report.MessageID)
		summary.Stale++
	case domain.StatusUnknownMessage:
		// The gateway reported on a message we never recorded. Log and
		// move on; the endpoint still answers success.
		logger.Warnf("Status report for unknown message %s", report.MessageID)
		summary.Unknown++
	}
}
