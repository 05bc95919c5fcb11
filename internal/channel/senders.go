package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/selimacar/crm-notifier/internal/domain"
)

// relayTransport is the fire-and-forget contract of the email/SMS relay
// endpoints. No delivery state is tracked on these channels.
type relayTransport interface {
	Send(ctx context.Context, to, subject, content string) error
}

// chatService is the stateful chat channel; the WhatsApp service
// satisfies it.
type chatService interface {
	Send(ctx context.Context, to string, payload domain.SendPayload, opts domain.SendOptions) domain.SendResult
}

type EmailSender struct {
	relay relayTransport
}

func NewEmailSender(relay relayTransport) *EmailSender {
	return &EmailSender{relay: relay}
}

func (s *EmailSender) SendToRecipient(ctx context.Context, r domain.Recipient, msg RenderedMessage) error {
	if r.Email == "" {
		return fmt.Errorf("recipient %s %s has no email address", r.Name, r.Surname)
	}
	return s.relay.Send(ctx, r.Email, msg.Subject, msg.Body)
}

type SMSSender struct {
	relay relayTransport
}

func NewSMSSender(relay relayTransport) *SMSSender {
	return &SMSSender{relay: relay}
}

func (s *SMSSender) SendToRecipient(ctx context.Context, r domain.Recipient, msg RenderedMessage) error {
	if r.Phone == "" {
		return fmt.Errorf("recipient %s %s has no phone number", r.Name, r.Surname)
	}
	return s.relay.Send(ctx, r.Phone, "", msg.Body)
}

type ChatSender struct {
	chat chatService
}

func NewChatSender(chat chatService) *ChatSender {
	return &ChatSender{chat: chat}
}

func (s *ChatSender) SendToRecipient(ctx context.Context, r domain.Recipient, msg RenderedMessage) error {
	if r.Phone == "" {
		return fmt.Errorf("recipient %s %s has no phone number", r.Name, r.Surname)
	}

	result := s.chat.Send(ctx, r.Phone, domain.SendPayload{
		Kind: domain.MessageText,
		Text: msg.Body,
	}, domain.SendOptions{})

	if !result.Success {
		return errors.New(result.Error)
	}

	return nil
}
