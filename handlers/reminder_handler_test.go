package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	validatorpkg "github.com/selimacar/crm-notifier/pkg/validator"
)

func TestCreateReminder_BadJSON(t *testing.T) {
	e := echo.New()
	handler := NewReminderHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reminders", strings.NewReader(`{"channelType": "chat",`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.CreateReminder(c); err != nil {
		t.Fatalf("CreateReminder returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateReminder_MissingRecipientsFailsValidation(t *testing.T) {
	e := echo.New()
	e.Validator = validatorpkg.New()
	handler := NewReminderHandler(nil)

	reqBody := `{
		"channelType": "chat",
		"scheduledAt": "2026-09-15T10:00:00Z",
		"body": "upcoming appointment"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reminders", strings.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.CreateReminder(c); err != nil {
		t.Fatalf("CreateReminder returned error: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	var resp validatorpkg.ValidationErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if _, ok := resp.Details["recipients"]; !ok {
		t.Errorf("expected Details to contain 'recipients' key, got %v", resp.Details)
	}
}

func TestCreateReminder_UnknownChannelFailsValidation(t *testing.T) {
	e := echo.New()
	e.Validator = validatorpkg.New()
	handler := NewReminderHandler(nil)

	reqBody := `{
		"channelType": "pigeon",
		"scheduledAt": "2026-09-15T10:00:00Z",
		"body": "x",
		"recipients": [{"kind": "client", "name": "Ana", "phone": "5491145551234"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reminders", strings.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.CreateReminder(c); err != nil {
		t.Fatalf("CreateReminder returned error: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestGetReminder_InvalidID(t *testing.T) {
	e := echo.New()
	handler := NewReminderHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reminders/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	if err := handler.GetReminder(c); err != nil {
		t.Fatalf("GetReminder returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
