package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/selimacar/crm-notifier/environments"
	"github.com/selimacar/crm-notifier/internal/domain"
	"github.com/selimacar/crm-notifier/pkg/logger"
)

// SendOutcome is the discriminated result of one gateway send. Expected
// failure modes (rejection, non-2xx, network error) surface here rather
// than as Go errors so callers can branch without unwrapping.
type SendOutcome struct {
	Accepted       bool
	MessageID      string
	ProviderStatus string
	RawError       string
}

// TemplatePayload names an approved template plus its body parameters.
type TemplatePayload struct {
	Name       string
	Language   string
	Parameters []string
}

// Client wraps the messaging gateway's REST surface. It never touches
// the store; persistence is the caller's concern.
type Client struct {
	httpClient    *resty.Client
	baseURL       string
	phoneNumberID string
	businessID    string
	accessToken   string
}

func NewClient(cfg environments.GatewayConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(cfg.AccessToken)

	return &Client{
		httpClient:    client,
		baseURL:       fmt.Sprintf("%s/%s", cfg.BaseURL, cfg.APIVersion),
		phoneNumberID: cfg.PhoneNumberID,
		businessID:    cfg.BusinessID,
		accessToken:   cfg.AccessToken,
	}
}

// checkCredentials fails fast before any network call is attempted.
func (c *Client) checkCredentials() error {
	if c.accessToken == "" {
		return &domain.ConfigError{Field: "GATEWAY_ACCESS_TOKEN"}
	}
	if c.phoneNumberID == "" {
		return &domain.ConfigError{Field: "GATEWAY_PHONE_NUMBER_ID"}
	}
	return nil
}

func (c *Client) SendText(ctx context.Context, to, body, messageID string) (*SendOutcome, error) {
	req := c.newSendRequest(to, "text", messageID)
	req.Text = &textContent{Body: body}
	return c.send(ctx, req)
}

func (c *Client) SendTemplate(ctx context.Context, to string, tpl TemplatePayload, messageID string) (*SendOutcome, error) {
	req := c.newSendRequest(to, "template", messageID)
	content := &templateContent{
		Name:     tpl.Name,
		Language: templateLanguage{Code: tpl.Language},
	}
	if len(tpl.Parameters) > 0 {
		component := templateComponent{Type: "body"}
		for _, p := range tpl.Parameters {
			component.Parameters = append(component.Parameters, templateParameter{Type: "text", Text: p})
		}
		content.Components = []templateComponent{component}
	}
	req.Template = content
	return c.send(ctx, req)
}

func (c *Client) SendImage(ctx context.Context, to, link, caption, messageID string) (*SendOutcome, error) {
	req := c.newSendRequest(to, "image", messageID)
	req.Image = &mediaContent{Link: link, Caption: caption}
	return c.send(ctx, req)
}

func (c *Client) SendDocument(ctx context.Context, to, link, caption, filename, messageID string) (*SendOutcome, error) {
	req := c.newSendRequest(to, "document", messageID)
	req.Document = &documentContent{Link: link, Caption: caption, Filename: filename}
	return c.send(ctx, req)
}

func (c *Client) newSendRequest(to, msgType, messageID string) *sendRequest {
	if messageID == "" {
		messageID = uuid.NewString()
	}
	return &sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             msgType,
		ClientMessageID:  messageID,
	}
}

func (c *Client) send(ctx context.Context, payload *sendRequest) (*SendOutcome, error) {
	if err := c.checkCredentials(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)

	var body sendResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&body).
		Post(url)
	if err != nil {
		logger.Errorf("Gateway send to %s failed: %v", payload.To, err)
		return &SendOutcome{Accepted: false, RawError: err.Error()}, nil
	}

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		gwErr := &domain.GatewayError{StatusCode: resp.StatusCode(), Body: resp.String()}
		logger.Warnf("Gateway rejected send to %s: %v", payload.To, gwErr)
		return &SendOutcome{Accepted: false, RawError: gwErr.Error()}, nil
	}

	outcome := &SendOutcome{Accepted: true, MessageID: payload.ClientMessageID}
	if len(body.Messages) > 0 {
		if body.Messages[0].ID != "" {
			outcome.MessageID = body.Messages[0].ID
		}
		outcome.ProviderStatus = body.Messages[0].Status
	}

	// Some rejections come back as 200 with a per-message status name.
	if outcome.ProviderStatus == "failed" || outcome.ProviderStatus == "rejected" {
		outcome.Accepted = false
		outcome.RawError = fmt.Sprintf("gateway reported message status %q", outcome.ProviderStatus)
	}

	return outcome, nil
}

// ListTemplates fetches the gateway's template registry for the
// configured business account.
func (c *Client) ListTemplates(ctx context.Context) ([]ProviderTemplate, error) {
	if err := c.checkCredentials(); err != nil {
		return nil, err
	}

	account := c.businessID
	if account == "" {
		account = c.phoneNumberID
	}
	url := fmt.Sprintf("%s/%s/message_templates", c.baseURL, account)

	var body listTemplatesResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&body).
		Get(url)
	if err != nil {
		return nil, &domain.GatewayError{Body: err.Error()}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &domain.GatewayError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	return body.Data, nil
}

// ValidateNumber asks the gateway whether a normalized number is
// reachable.
func (c *Client) ValidateNumber(ctx context.Context, phoneNumber string) (*NumberValidation, error) {
	if err := c.checkCredentials(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/contacts", c.baseURL, c.phoneNumberID)

	var body validateNumberResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(validateNumberRequest{Blocking: "wait", Contacts: []string{"+" + phoneNumber}}).
		SetResult(&body).
		Post(url)
	if err != nil {
		return nil, &domain.GatewayError{Body: err.Error()}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &domain.GatewayError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	validation := &NumberValidation{PhoneNumber: phoneNumber}
	if len(body.Contacts) > 0 {
		validation.Valid = body.Contacts[0].Status == "valid"
		validation.WaID = body.Contacts[0].WaID
	}

	return validation, nil
}

// RawComponents re-encodes a provider template's component list for
// storage alongside the local registry entry.
func RawComponents(t ProviderTemplate) string {
	if t.Components == nil {
		return ""
	}
	raw, err := json.Marshal(t.Components)
	if err != nil {
		return ""
	}
	return string(raw)
}
