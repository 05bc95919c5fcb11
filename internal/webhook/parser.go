package webhook

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/selimacar/crm-notifier/internal/domain"
)

// EventKind tags the union of payload shapes the gateway delivers.
type EventKind int

const (
	EventUnrecognized EventKind = iota
	EventIncomingMessage
	EventStatusReport
)

// Event is one parsed gateway callback entry.
type Event struct {
	Kind    EventKind
	Message *InboundMessage
	Status  *StatusReport
}

// InboundMessage is an incoming-message notification.
type InboundMessage struct {
	MessageID string
	From      string
	Name      string
	Type      string
	Body      string
	MediaLink string
	Timestamp time.Time
}

// StatusReport is a delivery/read/failure report for a previously sent
// message.
type StatusReport struct {
	MessageID string
	Status    string
	Timestamp time.Time
}

// unixTime tolerates the gateway's habit of sending timestamps as unix
// seconds in either a string or a number. Unparseable values decode to
// zero instead of failing the whole payload.
type unixTime struct {
	time.Time
}

func (u *unixTime) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		u.Time = time.Unix(secs, 0).UTC()
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		u.Time = t
	}
	return nil
}

type rawMessage struct {
	ID        string   `json:"id"`
	From      string   `json:"from"`
	Timestamp unixTime `json:"timestamp"`
	Type      string   `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image *struct {
		Link    string `json:"link"`
		Caption string `json:"caption"`
	} `json:"image,omitempty"`
	Document *struct {
		Link     string `json:"link"`
		Caption  string `json:"caption"`
		Filename string `json:"filename"`
	} `json:"document,omitempty"`
}

type rawStatus struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Timestamp unixTime `json:"timestamp"`
}

type rawContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type rawPayload struct {
	Messages []rawMessage `json:"messages,omitempty"`
	Statuses []rawStatus  `json:"statuses,omitempty"`
	Contacts []rawContact `json:"contacts,omitempty"`
	Results  []struct {
		Message *rawMessage `json:"message,omitempty"`
		Status  *rawStatus  `json:"status,omitempty"`
	} `json:"results,omitempty"`
}

// Parse turns a raw webhook body into a list of tagged events. It never
// fails: malformed or partial payloads yield an empty or partial event
// list so the inbound endpoint can always answer success.
func Parse(body []byte) []Event {
	var payload rawPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}

	nameByNumber := make(map[string]string, len(payload.Contacts))
	for _, c := range payload.Contacts {
		nameByNumber[c.WaID] = c.Profile.Name
	}

	var events []Event

	for _, m := range payload.Messages {
		events = append(events, messageEvent(m, nameByNumber))
	}
	for _, s := range payload.Statuses {
		events = append(events, statusEvent(s))
	}
	for _, r := range payload.Results {
		switch {
		case r.Message != nil:
			events = append(events, messageEvent(*r.Message, nameByNumber))
		case r.Status != nil:
			events = append(events, statusEvent(*r.Status))
		default:
			events = append(events, Event{Kind: EventUnrecognized})
		}
	}

	return events
}

func messageEvent(m rawMessage, names map[string]string) Event {
	if m.ID == "" || m.From == "" {
		return Event{Kind: EventUnrecognized}
	}

	msg := &InboundMessage{
		MessageID: m.ID,
		From:      m.From,
		Name:      names[m.From],
		Type:      m.Type,
		Timestamp: m.Timestamp.Time,
	}
	if msg.Type == "" {
		msg.Type = "text"
	}

	switch {
	case m.Text != nil:
		msg.Body = m.Text.Body
	case m.Image != nil:
		msg.Body = m.Image.Caption
		msg.MediaLink = m.Image.Link
	case m.Document != nil:
		msg.Body = m.Document.Caption
		msg.MediaLink = m.Document.Link
	}

	return Event{Kind: EventIncomingMessage, Message: msg}
}

func statusEvent(s rawStatus) Event {
	if s.ID == "" {
		return Event{Kind: EventUnrecognized}
	}
	return Event{Kind: EventStatusReport, Status: &StatusReport{
		MessageID: s.ID,
		Status:    s.Status,
		Timestamp: s.Timestamp.Time,
	}}
}

// MapProviderStatus folds the gateway's status names onto the local
// state machine. Unrecognized values map to sent, which the store treats
// as a no-op.
func MapProviderStatus(status string) domain.MessageStatus {
	switch status {
	case "delivered":
		return domain.StatusDelivered
	case "read":
		return domain.StatusRead
	case "failed", "undelivered":
		return domain.StatusFailed
	default:
		return domain.StatusSent
	}
}
