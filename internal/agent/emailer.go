package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/dmsharma/researcher/config"
	"github.com/dmsharma/researcher/internal/mail"
	"github.com/dmsharma/researcher/internal/research"
)

// Emailer formats a report draft as HTML and delivers it.
type Emailer struct {
	cfg    *config.Config
	llm    LLMProvider
	sender mail.Sender
	logger *log.Logger
}

// NewEmailer creates a new emailer instance
func NewEmailer(cfg *config.Config, llm LLMProvider, sender mail.Sender) *Emailer {
	return &Emailer{
		cfg:    cfg,
		llm:    llm,
		sender: sender,
		logger: log.New(log.Writer(), "[EMAILER] ", log.LstdFlags),
	}
}

// Email converts the report to subject + HTML and submits one send. The
// model does the formatting; when its output cannot be parsed we fall
// back to a plain deterministic wrapper so delivery still happens.
func (e *Emailer) Email(ctx context.Context, query string, draft research.ReportDraft, recipient string) error {
	if strings.TrimSpace(recipient) == "" {
		return fmt.Errorf("recipient required")
	}

	startTime := time.Now()
	subject, htmlBody, err := e.format(ctx, query, draft)
	if err != nil {
		e.logger.Printf("HTML formatting failed (%v), using plain fallback", err)
		subject, htmlBody = fallbackHTML(query, draft)
	}

	if err := e.sender.Send(ctx, mail.Message{To: recipient, Subject: subject, HTML: htmlBody}); err != nil {
		return fmt.Errorf("send report email: %w", err)
	}
	e.logger.Printf("Report emailed to %s in %v", recipient, time.Since(startTime))
	return nil
}

func (e *Emailer) format(ctx context.Context, query string, draft research.ReportDraft) (string, string, error) {
	prompt := fmt.Sprintf(`You convert a detailed research report into a nicely formatted HTML email. Create an engaging subject line that summarizes the research topic, and convert the markdown report into clean, well presented HTML with proper structure: headers, paragraphs, and formatting.

RESEARCH QUERY: %s

SHORT SUMMARY: %s

MARKDOWN REPORT:
%s

OUTPUT FORMAT (JSON):
{
  "subject": "the email subject line",
  "html_body": "the full HTML body of the email"
}

Respond ONLY with valid JSON in the format above. Do not include any other text or explanation.`, query, draft.ShortSummary, draft.MarkdownReport)

	model := e.cfg.LLM.Routing.Model("email")
	response, err := e.llm.Generate(ctx, prompt, model, map[string]interface{}{
		"temperature": 0.3,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate email: %w", err)
	}

	jsonStr, err := extractJSON(response)
	if err != nil {
		return "", "", err
	}
	var out struct {
		Subject  string `json:"subject"`
		HTMLBody string `json:"html_body"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		return "", "", fmt.Errorf("unmarshal: %w", err)
	}
	if strings.TrimSpace(out.Subject) == "" || strings.TrimSpace(out.HTMLBody) == "" {
		return "", "", fmt.Errorf("incomplete email output")
	}
	return out.Subject, out.HTMLBody, nil
}

// fallbackHTML wraps the markdown report verbatim so a formatting
// failure never blocks delivery.
func fallbackHTML(query string, draft research.ReportDraft) (string, string) {
	subject := "Research report: " + query
	var sb strings.Builder
	sb.WriteString("<html><body>")
	sb.WriteString("<h1>" + html.EscapeString(query) + "</h1>")
	sb.WriteString("<p>" + html.EscapeString(draft.ShortSummary) + "</p>")
	sb.WriteString("<pre style=\"white-space:pre-wrap\">" + html.EscapeString(draft.MarkdownReport) + "</pre>")
	sb.WriteString("</body></html>")
	return subject, sb.String()
}
