package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmsharma/researcher/internal/research"
)

func testDraft() research.ReportDraft {
	return research.ReportDraft{
		ShortSummary:   "Short synopsis.",
		MarkdownReport: "# Findings\n\nBody of the report with <angle brackets>.",
	}
}

func TestEmailerSendsFormattedHTML(t *testing.T) {
	cfg := testConfig()
	llm := newStubLLM()
	llm.byModel["email-model"] = `{"subject":"Your research on topic","html_body":"<html><body><h1>Findings</h1></body></html>"}`
	sender := &stubSender{}

	err := NewEmailer(cfg, llm, sender).Email(context.Background(), "topic", testDraft(), "reader@example.com")
	if err != nil {
		t.Fatalf("Email: %v", err)
	}
	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	if sent[0].To != "reader@example.com" {
		t.Fatalf("wrong recipient: %s", sent[0].To)
	}
	if sent[0].Subject != "Your research on topic" {
		t.Fatalf("wrong subject: %s", sent[0].Subject)
	}
	if !strings.Contains(sent[0].HTML, "<h1>Findings</h1>") {
		t.Fatalf("unexpected HTML: %s", sent[0].HTML)
	}
}

func TestEmailerFallsBackOnBadModelOutput(t *testing.T) {
	cfg := testConfig()
	llm := newStubLLM()
	llm.byModel["email-model"] = "sorry, no JSON today"
	sender := &stubSender{}

	err := NewEmailer(cfg, llm, sender).Email(context.Background(), "topic", testDraft(), "reader@example.com")
	if err != nil {
		t.Fatalf("Email should fall back, got: %v", err)
	}
	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	if !strings.Contains(sent[0].HTML, "Short synopsis.") {
		t.Fatalf("fallback HTML missing synopsis: %s", sent[0].HTML)
	}
	if !strings.Contains(sent[0].HTML, "&lt;angle brackets&gt;") {
		t.Fatalf("fallback HTML should escape the report: %s", sent[0].HTML)
	}
}

func TestEmailerFallsBackOnModelError(t *testing.T) {
	cfg := testConfig()
	llm := newStubLLM()
	llm.errModels["email-model"] = errors.New("rate limited")
	sender := &stubSender{}

	if err := NewEmailer(cfg, llm, sender).Email(context.Background(), "topic", testDraft(), "reader@example.com"); err != nil {
		t.Fatalf("Email should fall back on model error, got: %v", err)
	}
	if len(sender.sent()) != 1 {
		t.Fatal("fallback message not sent")
	}
}

func TestEmailerSurfacesSendFailure(t *testing.T) {
	cfg := testConfig()
	llm := newStubLLM()
	llm.byModel["email-model"] = `{"subject":"s","html_body":"<p>b</p>"}`
	sender := &stubSender{err: errors.New("sendgrid 500")}

	if err := NewEmailer(cfg, llm, sender).Email(context.Background(), "topic", testDraft(), "reader@example.com"); err == nil {
		t.Fatal("expected send failure to surface")
	}
}

func TestEmailerRequiresRecipient(t *testing.T) {
	cfg := testConfig()
	llm := newStubLLM()
	sender := &stubSender{}

	if err := NewEmailer(cfg, llm, sender).Email(context.Background(), "topic", testDraft(), "  "); err == nil {
		t.Fatal("expected error for missing recipient")
	}
}
