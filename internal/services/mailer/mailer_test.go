package mailer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestMailer(url string) *Mailer {
	return &Mailer{
		Client:  &http.Client{Timeout: time.Second},
		APIKey:  "test-key",
		From:    "no-reply@riglii.app",
		BaseURL: url,
	}
}

func TestSendTransactional(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad body: %v", err)
		}
		json.NewEncoder(w).Encode(SendResult{Success: true, MessageID: "m-1"})
	}))
	defer srv.Close()

	m := newTestMailer(srv.URL)
	res, err := m.SendTransactional("client@example.com", "form-accepted", map[string]string{"title": "Logo"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.MessageID != "m-1" {
		t.Errorf("unexpected message id: %q", res.MessageID)
	}

	if got.To != "client@example.com" || got.TemplateID != "form-accepted" {
		t.Errorf("unexpected request: %+v", got)
	}
	if got.From != "no-reply@riglii.app" {
		t.Errorf("unexpected from: %q", got.From)
	}
	if got.Params["title"] != "Logo" {
		t.Errorf("params not forwarded: %+v", got.Params)
	}
}

func TestSendTransactionalRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SendResult{Success: false, Message: "unknown template"})
	}))
	defer srv.Close()

	m := newTestMailer(srv.URL)
	if _, err := m.SendTransactional("x@example.com", "nope", nil); err == nil {
		t.Error("expected error when the provider rejects the send")
	}
}

func TestSendTransactionalMissingKey(t *testing.T) {
	m := newTestMailer("http://localhost:0")
	m.APIKey = ""

	if _, err := m.SendTransactional("x@example.com", "t", nil); err == nil {
		t.Error("expected error without api key")
	}
}
