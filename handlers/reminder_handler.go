package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/selimacar/crm-notifier/internal/domain"
	"github.com/selimacar/crm-notifier/internal/service"
	"github.com/selimacar/crm-notifier/pkg/response"
	"github.com/selimacar/crm-notifier/pkg/validator"
)

type ReminderHandler struct {
	service *service.ReminderService
}

func NewReminderHandler(svc *service.ReminderService) *ReminderHandler {
	return &ReminderHandler{service: svc}
}

type RecipientRequest struct {
	Kind    string `json:"kind" validate:"required,oneof=user client"`
	Name    string `json:"name" validate:"required,max=120"`
	Surname string `json:"surname" validate:"max=120"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"omitempty,phone"`
}

type CreateReminderRequest struct {
	ChannelType string             `json:"channelType" validate:"required,oneof=email sms chat push"`
	Priority    string             `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	ScheduledAt time.Time          `json:"scheduledAt" validate:"required"`
	Subject     string             `json:"subject" validate:"max=255"`
	Body        string             `json:"body" validate:"required,max=4096"`
	EventID     *int64             `json:"eventId"`
	ClientID    *int64             `json:"clientId"`
	EventTitle  *string            `json:"eventTitle"`
	EventDate   *time.Time         `json:"eventDate"`
	ClientName  *string            `json:"clientName"`
	Surname     *string            `json:"clientSurname"`
	ClientEmail *string            `json:"clientEmail"`
	ClientPhone *string            `json:"clientPhone"`
	Recipients  []RecipientRequest `json:"recipients" validate:"required,min=1,dive"`
}

// CreateReminder godoc
// @Summary Create a reminder
// @Description Schedules a notification for later delivery
// @Tags reminders
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Param reminder body CreateReminderRequest true "Reminder to schedule"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/reminders [post]
func (h *ReminderHandler) CreateReminder(c echo.Context) error {
	var req CreateReminderRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	priority := domain.ReminderPriority(req.Priority)
	if priority == "" {
		priority = domain.PriorityMedium
	}

	reminder := &domain.Reminder{
		TenantID:      1,
		EventID:       req.EventID,
		ClientID:      req.ClientID,
		ChannelType:   domain.ChannelType(req.ChannelType),
		State:         domain.ReminderPending,
		Priority:      priority,
		ScheduledAt:   req.ScheduledAt,
		Subject:       req.Subject,
		Body:          req.Body,
		EventTitle:    req.EventTitle,
		EventDate:     req.EventDate,
		ClientName:    req.ClientName,
		ClientSurname: req.Surname,
		ClientEmail:   req.ClientEmail,
		ClientPhone:   req.ClientPhone,
	}

	for _, r := range req.Recipients {
		reminder.Recipients = append(reminder.Recipients, domain.Recipient{
			Kind:    domain.RecipientKind(r.Kind),
			Name:    r.Name,
			Surname: r.Surname,
			Email:   r.Email,
			Phone:   r.Phone,
		})
	}

	created, err := h.service.CreateReminder(c.Request().Context(), reminder)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			return response.UnprocessableEntity(c, err)
		}
		return response.InternalServerError(c, err)
	}

	return response.Created(c, "Reminder scheduled successfully", created)
}

// GetReminder godoc
// @Summary Get a reminder
// @Description Returns one reminder with its recipients
// @Tags reminders
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Param id path int true "Reminder ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/reminders/{id} [get]
func (h *ReminderHandler) GetReminder(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	reminder, err := h.service.GetReminder(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, fmt.Sprintf("reminder %d not found", id))
		}
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, reminder)
}

// GetAllReminders godoc
// @Summary List reminders
// @Description Paginated reminder list with optional state filter
// @Tags reminders
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Param state query string false "Filter by state (pending, sent, failed, cancelled)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/reminders [get]
func (h *ReminderHandler) GetAllReminders(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	var state *domain.ReminderState
	if s := c.QueryParam("state"); s != "" {
		parsed := domain.ReminderState(s)
		state = &parsed
	}

	reminders, totalCount, err := h.service.GetAllReminders(c.Request().Context(), state, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, reminders, page, pageSize, totalCount)
}

// CancelReminder godoc
// @Summary Cancel a reminder
// @Description Cancels a pending reminder; sent or failed reminders cannot be cancelled
// @Tags reminders
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Param id path int true "Reminder ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/reminders/{id}/cancel [post]
func (h *ReminderHandler) CancelReminder(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.CancelReminder(c.Request().Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, fmt.Sprintf("reminder %d not found", id))
		}
		// Cancellation only applies to pending reminders.
		return response.Conflict(c, err.Error())
	}

	return response.OkWithMessage(c, "Reminder cancelled", map[string]any{"id": id})
}

// GetStats godoc
// @Summary Reminder statistics
// @Description Returns reminder counts by state
// @Tags reminders
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/reminders/stats [get]
func (h *ReminderHandler) GetStats(c echo.Context) error {
	pending, sent, failed, cancelled, err := h.service.GetStats(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, map[string]any{
		"pending":   pending,
		"sent":      sent,
		"failed":    failed,
		"cancelled": cancelled,
		"total":     pending + sent + failed + cancelled,
	})
}

func parseIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}
