package service

import (
	"strings"
	"time"

	"github.com/selimacar/crm-notifier/internal/domain"
)

const renderDateLayout = "02/01/2006 15:04"

// RenderTemplate substitutes the known placeholders with the reminder's
// denormalized event/client context. Unknown placeholders are left
// verbatim; a known placeholder with no source value renders empty.
func RenderTemplate(text string, r *domain.Reminder, now time.Time) string {
	replacer := strings.NewReplacer(
		"{{event_title}}", derefString(r.EventTitle),
		"{{event_date}}", formatDate(r.EventDate),
		"{{client_name}}", derefString(r.ClientName),
		"{{client_surname}}", derefString(r.ClientSurname),
		"{{client_email}}", derefString(r.ClientEmail),
		"{{client_phone}}", derefString(r.ClientPhone),
		"{{date}}", now.Format("02/01/2006"),
	)

	return replacer.Replace(text)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(renderDateLayout)
}
