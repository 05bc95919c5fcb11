package domain

import "time"

type ContactStatus string

const (
	ContactActive   ContactStatus = "active"
	ContactInactive ContactStatus = "inactive"
	ContactBlocked  ContactStatus = "blocked"
)

// Contact is the aggregated view of one normalized phone number. It is
// created lazily on the first message touching that number and only ever
// updated by message writes; counters never decrease.
type Contact struct {
	ID               int64         `db:"id" json:"id"`
	PhoneNumber      string        `db:"phone_number" json:"phoneNumber"`
	DisplayName      string        `db:"display_name" json:"displayName,omitempty"`
	MessagesSent     int64         `db:"messages_sent" json:"messagesSent"`
	MessagesReceived int64         `db:"messages_received" json:"messagesReceived"`
	LastActivity     *time.Time    `db:"last_activity" json:"lastActivity,omitempty"`
	LastIncoming     *time.Time    `db:"last_incoming_at" json:"lastIncomingMessage,omitempty"`
	LastOutgoing     *time.Time    `db:"last_outgoing_at" json:"lastOutgoingMessage,omitempty"`
	Status           ContactStatus `db:"status" json:"status"`
	TenantID         int64         `db:"tenant_id" json:"tenantId"`
	UserID           *int64        `db:"user_id" json:"userId,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updatedAt"`
}
