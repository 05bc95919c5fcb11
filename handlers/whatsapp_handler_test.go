package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/selimacar/crm-notifier/environments"
	"github.com/selimacar/crm-notifier/internal/webhook"
	"github.com/selimacar/crm-notifier/pkg/response"
	validatorpkg "github.com/selimacar/crm-notifier/pkg/validator"
)

func webhookTestHandler() *WhatsAppHandler {
	cfg := &environments.Config{}
	cfg.Gateway.VerifyToken = "secret-token"
	// Nil stores are fine here: these tests never produce events that
	// reach them.
	return NewWhatsAppHandler(nil, webhook.NewIngestor(nil, nil, nil), cfg)
}

func TestVerifyWebhook_EchoesChallengeOnValidToken(t *testing.T) {
	e := echo.New()
	handler := webhookTestHandler()

	q := url.Values{}
	q.Set("hub.mode", "subscribe")
	q.Set("hub.verify_token", "secret-token")
	q.Set("hub.challenge", "1158201444")

	req := httptest.NewRequest(http.MethodGet, "/webhook?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.VerifyWebhook(c); err != nil {
		t.Fatalf("VerifyWebhook returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "1158201444" {
		t.Errorf("expected raw challenge echoed back, got %q", rec.Body.String())
	}
}

func TestVerifyWebhook_RejectsWrongToken(t *testing.T) {
	e := echo.New()
	handler := webhookTestHandler()

	q := url.Values{}
	q.Set("hub.mode", "subscribe")
	q.Set("hub.verify_token", "wrong")
	q.Set("hub.challenge", "1158201444")

	req := httptest.NewRequest(http.MethodGet, "/webhook?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.VerifyWebhook(c); err != nil {
		t.Fatalf("VerifyWebhook returned error: %v", err)
	}

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

// TestReceiveWebhook_MalformedBodyStillAcks verifies the gateway always
// gets a 200 so it does not retry a payload we can never parse.
func TestReceiveWebhook_MalformedBodyStillAcks(t *testing.T) {
	e := echo.New()
	handler := webhookTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"statuses": "garbage`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.ReceiveWebhook(c); err != nil {
		t.Fatalf("ReceiveWebhook returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for malformed body, got %d", rec.Code)
	}

	var resp response.SuccessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !resp.Success {
		t.Errorf("expected Success=true")
	}
}

func TestSendMessage_BadJSON(t *testing.T) {
	e := echo.New()
	handler := webhookTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/send", strings.NewReader(`{"to": `))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.SendMessage(c); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// TestSendBulk_TooManyRecipients verifies the broadcast cap is enforced
// by validation before any send is attempted.
func TestSendBulk_TooManyRecipients(t *testing.T) {
	e := echo.New()
	e.Validator = validatorpkg.New()
	handler := webhookTestHandler()

	recipients := make([]string, 101)
	for i := range recipients {
		recipients[i] = "5491145551234"
	}
	body, _ := json.Marshal(map[string]any{
		"recipients": recipients,
		"type":       "text",
		"text":       "promo",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/send-bulk", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.SendBulk(c); err != nil {
		t.Fatalf("SendBulk returned error: %v", err)
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

func TestSendMessage_InvalidPhoneFailsValidation(t *testing.T) {
	e := echo.New()
	e.Validator = validatorpkg.New()
	handler := webhookTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/send",
		strings.NewReader(`{"to": "not a number!!", "type": "text", "text": "hi"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.SendMessage(c); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}
