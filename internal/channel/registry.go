package channel

import (
	"context"
	"fmt"

	"github.com/selimacar/crm-notifier/internal/domain"
)

// RenderedMessage is a reminder after template substitution, ready for
// any channel.
type RenderedMessage struct {
	Subject string
	Body    string
}

// Sender delivers one rendered message to one recipient. A recipient
// missing the address the channel needs (email, phone) is a hard failure
// for that recipient only, never for the whole reminder.
type Sender interface {
	SendToRecipient(ctx context.Context, r domain.Recipient, msg RenderedMessage) error
}

// Registry dispatches reminders to the sender registered for their
// channel type.
type Registry struct {
	senders map[domain.ChannelType]Sender
}

func NewRegistry() *Registry {
	return &Registry{senders: make(map[domain.ChannelType]Sender)}
}

func (r *Registry) Register(t domain.ChannelType, s Sender) {
	r.senders[t] = s
}

func (r *Registry) Dispatch(ctx context.Context, t domain.ChannelType, recipient domain.Recipient, msg RenderedMessage) error {
	sender, ok := r.senders[t]
	if !ok {
		return fmt.Errorf("no sender registered for channel %q", t)
	}
	return sender.SendToRecipient(ctx, recipient, msg)
}
