package gateway

// Wire types for the messaging gateway's REST surface.

type sendRequest struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	ClientMessageID  string `json:"client_msg_id,omitempty"`

	Text     *textContent     `json:"text,omitempty"`
	Image    *mediaContent    `json:"image,omitempty"`
	Document *documentContent `json:"document,omitempty"`
	Template *templateContent `json:"template,omitempty"`
}

type textContent struct {
	Body string `json:"body"`
}

type mediaContent struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type documentContent struct {
	Link     string `json:"link"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type templateContent struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters,omitempty"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID     string `json:"id"`
		Status string `json:"message_status,omitempty"`
	} `json:"messages"`
	Contacts []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
}

type listTemplatesResponse struct {
	Data []ProviderTemplate `json:"data"`
}

// ProviderTemplate is one entry of the gateway's template registry.
type ProviderTemplate struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Language       string `json:"language"`
	Category       string `json:"category"`
	Status         string `json:"status"`
	RejectedReason string `json:"rejected_reason,omitempty"`
	Components     any    `json:"components,omitempty"`
}

type validateNumberRequest struct {
	Blocking string   `json:"blocking"`
	Contacts []string `json:"contacts"`
}

type validateNumberResponse struct {
	Contacts []struct {
		Input  string `json:"input"`
		WaID   string `json:"wa_id"`
		Status string `json:"status"`
	} `json:"contacts"`
}

// NumberValidation is the result of a gateway number check.
type NumberValidation struct {
	PhoneNumber string `json:"phoneNumber"`
	Valid       bool   `json:"valid"`
	WaID        string `json:"waId,omitempty"`
}
