package handlers

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/selimacar/crm-notifier/internal/domain"
	"github.com/selimacar/crm-notifier/internal/service"
	"github.com/selimacar/crm-notifier/pkg/response"
	"github.com/selimacar/crm-notifier/pkg/validator"
)

type TemplateHandler struct {
	service *service.TemplateService
}

func NewTemplateHandler(svc *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{service: svc}
}

type CreateTemplateRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	Language   string `json:"language" validate:"required,max=16"`
	Category   string `json:"category" validate:"omitempty,max=64"`
	Components string `json:"components"`
}

type UpdateTemplateRequest struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Category   *string `json:"category,omitempty" validate:"omitempty,max=64"`
	Components *string `json:"components,omitempty"`
}

// CreateTemplate godoc
// @Summary Create a message template
// @Description Registers a template locally; it stays pending until the gateway approves it
// @Tags templates
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Param template body CreateTemplateRequest true "Template to create"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/v1/templates [post]
func (h *TemplateHandler) CreateTemplate(c echo.Context) error {
	var req CreateTemplateRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	created, err := h.service.Create(c.Request().Context(), &domain.Template{
		Name:       req.Name,
		Language:   req.Language,
		Category:   req.Category,
		Components: req.Components,
		TenantID:   1,
	})
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			return response.UnprocessableEntity(c, err)
		}
		return response.InternalServerError(c, err)
	}

	return response.Created(c, "Template created successfully", created)
}

// UpdateTemplate godoc
// @Summary Update a message template
// @Description Edits a template; renaming an approved template is rejected and any content edit resets it to pending
// @Tags templates
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Param id path int true "Template ID"
// @Param template body UpdateTemplateRequest true "Fields to update"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	var req UpdateTemplateRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	updated, err := h.service.Update(c.Request().Context(), id, service.TemplateUpdate{
		Name:       req.Name,
		Category:   req.Category,
		Components: req.Components,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return response.NotFound(c, fmt.Sprintf("template %d not found", id))
		case errors.Is(err, service.ErrTemplateRenameForbidden):
			return response.Conflict(c, err.Error())
		default:
			return response.InternalServerError(c, err)
		}
	}

	return response.Ok(c, updated)
}

// DeleteTemplate godoc
// @Summary Delete a message template
// @Description Removes a template; approved templates cannot be deleted
// @Tags templates
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Param id path int true "Template ID"
// @Success 204
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/templates/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return response.NotFound(c, fmt.Sprintf("template %d not found", id))
		case errors.Is(err, service.ErrTemplateDeleteForbidden):
			return response.Forbidden(c, err.Error())
		default:
			return response.InternalServerError(c, err)
		}
	}

	return response.NoContent(c)
}

// GetTemplate godoc
// @Summary Get a message template
// @Tags templates
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Param id path int true "Template ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	template, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, fmt.Sprintf("template %d not found", id))
		}
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, template)
}

// GetAllTemplates godoc
// @Summary List message templates
// @Tags templates
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/templates [get]
func (h *TemplateHandler) GetAllTemplates(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	templates, totalCount, err := h.service.GetAll(c.Request().Context(), page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, templates, page, pageSize, totalCount)
}

// SyncTemplates godoc
// @Summary Sync templates with the gateway
// @Description Pulls the gateway's template registry and reconciles the local one against it
// @Tags templates
// @Accept json
// @Produce json
// @Param x-crm-auth-key header string true "API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /api/v1/templates/sync [post]
func (h *TemplateHandler) SyncTemplates(c echo.Context) error {
	report, err := h.service.Sync(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Template sync completed", report)
}
