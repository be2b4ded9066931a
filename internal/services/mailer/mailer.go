package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Mailer posts transactional emails to the mail provider's HTTP API.
// Every call site treats failures as non-critical: log and move on.
type Mailer struct {
	Client  *http.Client
	APIKey  string
	From    string
	BaseURL string
}

func New(apiKey, from string) *Mailer {
	baseURL := "https://api.mailforge.dev/v1" // default to sandbox project
	if os.Getenv("MAIL_ENV") == "production" {
		baseURL = "https://api.mailforge.io/v1"
	}

	return &Mailer{
		Client:  &http.Client{Timeout: 15 * time.Second},
		APIKey:  apiKey,
		From:    from,
		BaseURL: baseURL,
	}
}

type sendRequest struct {
	From       string            `json:"from"`
	To         string            `json:"to"`
	TemplateID string            `json:"template_id"`
	Params     map[string]string `json:"params"`
}

type SendResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"message_id"`
}

// SendTransactional renders templateID with params for one recipient.
func (m *Mailer) SendTransactional(to, templateID string, params map[string]string) (*SendResult, error) {
	if m.APIKey == "" {
		return nil, fmt.Errorf("mailer: missing api key")
	}

	body, err := json.Marshal(sendRequest{
		From:       m.From,
		To:         to,
		TemplateID: templateID,
		Params:     params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, m.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out SendResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("mailer: bad response (%d): %s", resp.StatusCode, string(raw))
	}
	if !out.Success {
		return &out, fmt.Errorf("mailer: provider rejected send: %s", out.Message)
	}
	return &out, nil
}
