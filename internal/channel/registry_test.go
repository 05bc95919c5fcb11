package channel

import (
	"context"
	"testing"

	"github.com/selimacar/crm-notifier/internal/domain"
)

type recordingRelay struct {
	to      []string
	subject []string
	content []string
	err     error
}

func (r *recordingRelay) Send(ctx context.Context, to, subject, content string) error {
	r.to = append(r.to, to)
	r.subject = append(r.subject, subject)
	r.content = append(r.content, content)
	return r.err
}

type recordingChat struct {
	result domain.SendResult
	sentTo []string
}

func (r *recordingChat) Send(ctx context.Context, to string, payload domain.SendPayload, opts domain.SendOptions) domain.SendResult {
	r.sentTo = append(r.sentTo, to)
	return r.result
}

func TestRegistry_DispatchRoutesToRegisteredSender(t *testing.T) {
	relay := &recordingRelay{}
	registry := NewRegistry()
	registry.Register(domain.ChannelEmail, NewEmailSender(relay))

	err := registry.Dispatch(context.Background(), domain.ChannelEmail, domain.Recipient{
		Name:  "Ana",
		Email: "ana@example.com",
	}, RenderedMessage{Subject: "Reminder", Body: "See you at 10"})
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	if len(relay.to) != 1 || relay.to[0] != "ana@example.com" {
		t.Errorf("expected relay called for ana@example.com, got %v", relay.to)
	}
	if relay.subject[0] != "Reminder" {
		t.Errorf("expected subject passed through, got %q", relay.subject[0])
	}
}

func TestRegistry_UnknownChannelIsAnError(t *testing.T) {
	registry := NewRegistry()

	err := registry.Dispatch(context.Background(), domain.ChannelPush, domain.Recipient{Name: "x"}, RenderedMessage{})
	if err == nil {
		t.Fatalf("expected error for unregistered channel")
	}
}

func TestEmailSender_RequiresEmailAddress(t *testing.T) {
	sender := NewEmailSender(&recordingRelay{})

	err := sender.SendToRecipient(context.Background(), domain.Recipient{Name: "No", Surname: "Email"}, RenderedMessage{Body: "x"})
	if err == nil {
		t.Fatalf("expected error for recipient without email")
	}
}

func TestSMSSender_RequiresPhone(t *testing.T) {
	sender := NewSMSSender(&recordingRelay{})

	err := sender.SendToRecipient(context.Background(), domain.Recipient{Name: "No", Surname: "Phone"}, RenderedMessage{Body: "x"})
	if err == nil {
		t.Fatalf("expected error for recipient without phone")
	}
}

func TestSMSSender_DropsSubject(t *testing.T) {
	relay := &recordingRelay{}
	sender := NewSMSSender(relay)

	err := sender.SendToRecipient(context.Background(), domain.Recipient{
		Name:  "Ana",
		Phone: "5491145551234",
	}, RenderedMessage{Subject: "ignored", Body: "short text"})
	if err != nil {
		t.Fatalf("SendToRecipient returned error: %v", err)
	}

	if relay.subject[0] != "" {
		t.Errorf("SMS has no subject line, got %q", relay.subject[0])
	}
	if relay.content[0] != "short text" {
		t.Errorf("expected body passed through, got %q", relay.content[0])
	}
}

func TestChatSender_SurfacesSendFailure(t *testing.T) {
	chat := &recordingChat{result: domain.SendResult{Success: false, Error: "gateway down"}}
	sender := NewChatSender(chat)

	err := sender.SendToRecipient(context.Background(), domain.Recipient{
		Name:  "Ana",
		Phone: "5491145551234",
	}, RenderedMessage{Body: "hi"})
	if err == nil || err.Error() != "gateway down" {
		t.Fatalf("expected gateway error surfaced, got %v", err)
	}
}

func TestChatSender_SuccessfulSend(t *testing.T) {
	chat := &recordingChat{result: domain.SendResult{Success: true, MessageID: "wamid.1"}}
	sender := NewChatSender(chat)

	err := sender.SendToRecipient(context.Background(), domain.Recipient{
		Name:  "Ana",
		Phone: "5491145551234",
	}, RenderedMessage{Body: "hi"})
	if err != nil {
		t.Fatalf("SendToRecipient returned error: %v", err)
	}
	if len(chat.sentTo) != 1 || chat.sentTo[0] != "5491145551234" {
		t.Errorf("expected chat send to 5491145551234, got %v", chat.sentTo)
	}
}
