package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/selimacar/crm-notifier/environments"
	"github.com/selimacar/crm-notifier/internal/domain"
	"github.com/selimacar/crm-notifier/internal/service"
	"github.com/selimacar/crm-notifier/internal/webhook"
	"github.com/selimacar/crm-notifier/pkg/logger"
	"github.com/selimacar/crm-notifier/pkg/response"
	"github.com/selimacar/crm-notifier/pkg/validator"
)

type WhatsAppHandler struct {
	service  *service.WhatsAppService
	ingestor *webhook.Ingestor
	config   *environments.Config
}

func NewWhatsAppHandler(
	svc *service.WhatsAppService,
	ingestor *webhook.Ingestor,
	cfg *environments.Config,
) *WhatsAppHandler {
	return &WhatsAppHandler{
		service:  svc,
		ingestor: ingestor,
		config:   cfg,
	}
}

// messagePayloadRequest carries the payload fields shared by single and
// bulk sends.
type messagePayloadRequest struct {
	Type             string   `json:"type" validate:"omitempty,oneof=text template image document"`
	Text             string   `json:"text" validate:"omitempty,max=4096"`
	MediaLink        string   `json:"mediaLink" validate:"omitempty,url"`
	Caption          string   `json:"caption" validate:"omitempty,max=1024"`
	Filename         string   `json:"filename"`
	TemplateName     string   `json:"templateName"`
	TemplateLanguage string   `json:"templateLanguage"`
	TemplateParams   []string `json:"templateParams"`
}

type SendMessageRequest struct {
	To        string `json:"to" validate:"required,phone"`
	MessageID string `json:"messageId"`
	messagePayloadRequest
}

type BulkSendRequest struct {
	Recipients []string `json:"recipients" validate:"required,min=1,max=100,dive,phone"`
	messagePayloadRequest
}

func (r *messagePayloadRequest) payload() domain.SendPayload {
	kind := domain.MessageType(r.Type)
	if kind == "" {
		kind = domain.MessageText
	}

	return domain.SendPayload{
		Kind:             kind,
		Text:             r.Text,
		MediaLink:        r.MediaLink,
		Caption:          r.Caption,
		Filename:         r.Filename,
		TemplateName:     r.TemplateName,
		TemplateLanguage: r.TemplateLanguage,
		TemplateParams:   r.TemplateParams,
	}
}

// VerifyWebhook godoc
// @Summary Gateway webhook verification
// @Description Answers the gateway's subscription challenge
// @Tags webhook
// @Produce plain
// @Param hub.mode query string true "Must be subscribe"
// @Param hub.verify_token query string true "Shared verify token"
// @Param hub.challenge query string true "Challenge to echo back"
// @Success 200 {string} string
// @Failure 403 {object} response.ErrorResponse
// @Router /webhook [get]
func (h *WhatsAppHandler) VerifyWebhook(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.config.Gateway.VerifyToken {
		logger.Infof("Webhook verification succeeded")
		return c.String(http.StatusOK, challenge)
	}

	logger.Warnf("Webhook verification failed (mode=%q)", mode)
	return response.Forbidden(c, "webhook verification failed")
}

// ReceiveWebhook godoc
// @Summary Gateway webhook ingestion
// @Description Ingests inbound messages and status reports. Always
// @Description acknowledges with 200 so the gateway does not retry.
// @Tags webhook
// @Accept json
// @Produce json
// @Success 200 {object} response.SuccessResponse
// @Router /webhook [post]
func (h *WhatsAppHandler) ReceiveWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		// Even an unreadable body gets an ack; retries would not fare
		// better.
		logger.Errorf("Failed to read webhook body: %v", err)
		return response.Ok(c, webhook.Summary{})
	}

	events := webhook.Parse(body)
	summary := h.ingestor.ApplyAll(c.Request().Context(), events)

	logger.Infof("Webhook delivery processed: %d incoming, %d statuses, %d duplicates, %d stale, %d unknown, %d errors",
		summary.Incoming, summary.Statuses, summary.Duplicates, summary.Stale, summary.Unknown, summary.Errors)

	return response.Ok(c, summary)
}

// SendMessage godoc
// @Summary Send a chat message
// @Description Sends one message through the gateway and records it
// @Tags chat
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Param message body SendMessageRequest true "Message to send"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /api/v1/chat/send [post]
func (h *WhatsAppHandler) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	result := h.service.Send(c.Request().Context(), req.To, req.payload(), domain.SendOptions{
		MessageID: req.MessageID,
	})

	if !result.Success {
		return c.JSON(http.StatusBadGateway, response.ErrorResponse{
			Success: false,
			Error:   result.Error,
		})
	}

	return response.Ok(c, result)
}

// SendBulk godoc
// @Summary Send a message to multiple recipients
// @Description Sequential broadcast with a fixed inter-message delay
// @Tags chat
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Param request body BulkSendRequest true "Recipients and message"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/v1/chat/send-bulk [post]
func (h *WhatsAppHandler) SendBulk(c echo.Context) error {
	var req BulkSendRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	report, err := h.service.SendBulk(c.Request().Context(), req.Recipients, req.payload(), domain.SendOptions{})
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			return response.UnprocessableEntity(c, err)
		}
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, report)
}

// GetMessages godoc
// @Summary List chat messages
// @Description Paginated message log with optional direction and status filters
// @Tags chat
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Param direction query string false "Filter by direction (inbound, outbound)"
// @Param status query string false "Filter by status (sent, delivered, read, failed)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/chat/messages [get]
func (h *WhatsAppHandler) GetMessages(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	var direction *domain.MessageDirection
	if d := c.QueryParam("direction"); d != "" {
		parsed := domain.MessageDirection(d)
		direction = &parsed
	}

	var status *domain.MessageStatus
	if s := c.QueryParam("status"); s != "" {
		parsed := domain.MessageStatus(s)
		status = &parsed
	}

	messages, totalCount, err := h.service.GetMessages(c.Request().Context(), direction, status, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, messages, page, pageSize, totalCount)
}

// GetContacts godoc
// @Summary List contact aggregates
// @Description Paginated per-number conversation aggregates
// @Tags chat
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/chat/contacts [get]
func (h *WhatsAppHandler) GetContacts(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	contacts, totalCount, err := h.service.GetContacts(c.Request().Context(), page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, contacts, page, pageSize, totalCount)
}

// GetMessageStats godoc
// @Summary Message statistics
// @Description Returns message counts by delivery status
// @Tags chat
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/chat/messages/stats [get]
func (h *WhatsAppHandler) GetMessageStats(c echo.Context) error {
	sent, delivered, read, failed, err := h.service.GetMessageStats(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, map[string]any{
		"sent":      sent,
		"delivered": delivered,
		"read":      read,
		"failed":    failed,
		"total":     sent + delivered + read + failed,
	})
}

// GetCachedStatuses godoc
// @Summary Get cached delivery statuses from Redis
// @Description Returns the latest cached status per message
// @Tags chat
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/chat/messages/cached [get]
func (h *WhatsAppHandler) GetCachedStatuses(c echo.Context) error {
	cached, err := h.service.GetCachedStatuses(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, cached)
}

func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)

	pageStr := c.QueryParam("page")
	pageSizeStr := c.QueryParam("pageSize")

	// Page
	page := defaultPage
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	// Page size
	pageSize := defaultPageSize
	if pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}

		pageSize = ps
	}

	return page, pageSize, nil
}
