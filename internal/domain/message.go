package domain

import "time"

type MessageDirection string

const (
	DirectionOutbound MessageDirection = "outbound"
	DirectionInbound  MessageDirection = "inbound"
)

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageDocument MessageType = "document"
	MessageTemplate MessageType = "template"
)

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

// rank orders the forward-only delivery progression. Failed is terminal
// and handled separately in CanAdvanceTo.
func (s MessageStatus) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// CanAdvanceTo reports whether a status report moving the message from s
// to next represents forward progress. Out-of-order reports (e.g. a stale
// "delivered" after "read") must be dropped, and a failure can only be
// reached before the message was read.
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	if s == StatusFailed {
		return false
	}
	if next == StatusFailed {
		return s == StatusSent || s == StatusDelivered
	}
	return next.rank() > s.rank()
}

// Message is one outbound or inbound gateway communication. MessageID is
// the provider-assigned id and doubles as the idempotency key: the store
// enforces a uniqueness constraint on it.
type Message struct {
	ID            int64            `db:"id" json:"id"`
	MessageID     string           `db:"message_id" json:"messageId"`
	Direction     MessageDirection `db:"direction" json:"direction"`
	Type          MessageType      `db:"type" json:"type"`
	ContactNumber string           `db:"contact_number" json:"contactNumber"`
	Status        MessageStatus    `db:"status" json:"status"`
	Content       string           `db:"content" json:"content"`
	TenantID      int64            `db:"tenant_id" json:"tenantId"`
	UserID        *int64           `db:"user_id" json:"userId,omitempty"`
	SentAt        *time.Time       `db:"sent_at" json:"sentAt,omitempty"`
	DeliveredAt   *time.Time       `db:"delivered_at" json:"deliveredAt,omitempty"`
	ReadAt        *time.Time       `db:"read_at" json:"readAt,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updatedAt"`
}

// InsertResult discriminates the outcome of an insert-or-detect-duplicate
// write keyed on MessageID.
type InsertResult int

const (
	Inserted InsertResult = iota
	AlreadyExists
)

// StatusAdvance discriminates the outcome of applying a status report.
type StatusAdvance int

const (
	StatusAdvanced StatusAdvance = iota
	StatusUnchanged
	StatusUnknownMessage
)

// SendPayload describes the content of one logical outbound send. Kind
// selects which gateway operation is used.
type SendPayload struct {
	Kind MessageType

	Text string

	MediaLink string
	Caption   string
	Filename  string

	TemplateName     string
	TemplateLanguage string
	TemplateParams   []string
}

// SendOptions carries caller-side bookkeeping for an outbound send. An
// empty MessageID means a fresh idempotency key is generated.
type SendOptions struct {
	MessageID string
	TenantID  int64
	UserID    *int64
}

// SendResult is the per-recipient outcome of an outbound send.
type SendResult struct {
	To        string `json:"to"`
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// MessageStatusCache is the Valkey snapshot of one outbound message's
// delivery state, keyed by gateway message id.
type MessageStatusCache struct {
	MessageID string        `json:"messageId"`
	Status    MessageStatus `json:"status"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
