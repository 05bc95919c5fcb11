package domain

import "time"

type ReminderState string

const (
	ReminderPending   ReminderState = "pending"
	ReminderSent      ReminderState = "sent"
	ReminderFailed    ReminderState = "failed"
	ReminderCancelled ReminderState = "cancelled"
)

type ChannelType string

const (
	ChannelEmail ChannelType = "email"
	ChannelSMS   ChannelType = "sms"
	ChannelChat  ChannelType = "chat"
	ChannelPush  ChannelType = "push"
)

type ReminderPriority string

const (
	PriorityLow    ReminderPriority = "low"
	PriorityMedium ReminderPriority = "medium"
	PriorityHigh   ReminderPriority = "high"
	PriorityUrgent ReminderPriority = "urgent"
)

// Weight orders priorities for dispatch; higher runs first.
func (p ReminderPriority) Weight() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

type RecipientKind string

const (
	RecipientUser   RecipientKind = "user"
	RecipientClient RecipientKind = "client"
)

type Recipient struct {
	ID         int64         `db:"id" json:"id"`
	ReminderID int64         `db:"reminder_id" json:"reminderId"`
	Kind       RecipientKind `db:"kind" json:"kind"`
	Name       string        `db:"name" json:"name"`
	Surname    string        `db:"surname" json:"surname,omitempty"`
	Email      string        `db:"email" json:"email,omitempty"`
	Phone      string        `db:"phone" json:"phone,omitempty"`
	Notified   bool          `db:"notified" json:"notified"`
}

// Reminder is a scheduled notification. Event and client context is
// denormalized at creation time so the scheduler can render templates
// without reaching into the CRM's own tables.
type Reminder struct {
	ID           int64            `db:"id" json:"id"`
	TenantID     int64            `db:"tenant_id" json:"tenantId"`
	EventID      *int64           `db:"event_id" json:"eventId,omitempty"`
	ClientID     *int64           `db:"client_id" json:"clientId,omitempty"`
	ChannelType  ChannelType      `db:"channel_type" json:"channelType"`
	State        ReminderState    `db:"state" json:"state"`
	Priority     ReminderPriority `db:"priority" json:"priority"`
	ScheduledAt  time.Time        `db:"scheduled_at" json:"scheduledAt"`
	AttemptCount int              `db:"attempt_count" json:"attemptCount"`
	LastAttempt  *time.Time       `db:"last_attempt_at" json:"lastAttemptAt,omitempty"`
	LastError    *string          `db:"last_error" json:"lastError,omitempty"`

	Subject string `db:"subject" json:"subject,omitempty"`
	Body    string `db:"body" json:"body"`

	EventTitle    *string    `db:"event_title" json:"eventTitle,omitempty"`
	EventDate     *time.Time `db:"event_date" json:"eventDate,omitempty"`
	ClientName    *string    `db:"client_name" json:"clientName,omitempty"`
	ClientSurname *string    `db:"client_surname" json:"clientSurname,omitempty"`
	ClientEmail   *string    `db:"client_email" json:"clientEmail,omitempty"`
	ClientPhone   *string    `db:"client_phone" json:"clientPhone,omitempty"`

	Recipients []Recipient `db:"-" json:"recipients,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// ReminderResult is the per-item outcome of one scheduler pass over one
// reminder, aggregated into a tick summary by the scheduler.
type ReminderResult struct {
	ReminderID int64         `json:"reminderId"`
	State      ReminderState `json:"state"`
	Success    bool          `json:"success"`
	Recipients int           `json:"recipients"`
	Delivered  int           `json:"delivered"`
	Error      string        `json:"error,omitempty"`
}
