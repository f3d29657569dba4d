package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmsharma/researcher/config"
)

// Message is a single transactional email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message through a transactional email API.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

const sendGridURL = "https://api.sendgrid.com/v3/mail/send"

// SendGridSender implements Sender against the SendGrid v3 mail API.
type SendGridSender struct {
	apiKey   string
	from     string
	fromName string
	httpc    *http.Client
	baseURL  string
}

// NewSendGridSender builds a sender from email config.
func NewSendGridSender(cfg config.EmailConfig) *SendGridSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &SendGridSender{
		apiKey:   cfg.SendGridAPIKey,
		from:     cfg.From,
		fromName: cfg.FromName,
		httpc:    &http.Client{Timeout: timeout},
		baseURL:  sendGridURL,
	}
}

// WithBaseURL points the sender at a different endpoint. Used in tests.
func (s *SendGridSender) WithBaseURL(u string) *SendGridSender {
	s.baseURL = u
	return s
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgRequest struct {
	Personalizations []struct {
		To []sgAddress `json:"to"`
	} `json:"personalizations"`
	From    sgAddress `json:"from"`
	Subject string    `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

// Send submits one mail send request. SendGrid answers 202 on success.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("recipient required")
	}
	if strings.TrimSpace(msg.HTML) == "" {
		return fmt.Errorf("empty body")
	}

	var reqBody sgRequest
	reqBody.Personalizations = append(reqBody.Personalizations, struct {
		To []sgAddress `json:"to"`
	}{To: []sgAddress{{Email: msg.To}}})
	reqBody.From = sgAddress{Email: s.from, Name: s.fromName}
	reqBody.Subject = msg.Subject
	reqBody.Content = append(reqBody.Content, struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{Type: "text/html", Value: msg.HTML})

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
