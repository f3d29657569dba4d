package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dmsharma/researcher/config"
	"github.com/dmsharma/researcher/internal/research"
)

// Writer synthesizes the search summaries into a long-form report.
type Writer struct {
	cfg    *config.Config
	llm    LLMProvider
	logger *log.Logger
}

// NewWriter creates a new writer instance
func NewWriter(cfg *config.Config, llm LLMProvider) *Writer {
	return &Writer{
		cfg:    cfg,
		llm:    llm,
		logger: log.New(log.Writer(), "[WRITER] ", log.LstdFlags),
	}
}

// Write produces the report draft from the original query and whatever
// subset of search results survived. Zero results is allowed; the model
// is told so and writes a degraded report.
func (w *Writer) Write(ctx context.Context, query string, results []research.SearchResult) (research.ReportDraft, error) {
	startTime := time.Now()

	prompt := w.reportPrompt(query, results)
	model := w.cfg.LLM.Routing.Model("synthesis")
	response, err := w.llm.Generate(ctx, prompt, model, map[string]interface{}{
		"temperature": 0.5,
	})
	if err != nil {
		return research.ReportDraft{}, fmt.Errorf("failed to generate report: %w", err)
	}

	draft, err := w.parseReportResponse(response)
	if err != nil {
		return research.ReportDraft{}, fmt.Errorf("failed to parse report: %w", err)
	}

	w.logger.Printf("Report written from %d summaries in %v", len(results), time.Since(startTime))
	return draft, nil
}

func (w *Writer) reportPrompt(query string, results []research.SearchResult) string {
	var sb strings.Builder
	if len(results) == 0 {
		sb.WriteString("(no search summaries are available; write the best report you can from general knowledge and say so)")
	}
	for i, r := range results {
		fmt.Fprintf(&sb, "SUMMARY %d (search: %s):\n%s\n\n", i+1, r.Item.Query, r.Summary)
	}

	return fmt.Sprintf(`You are a senior researcher tasked with writing a cohesive report for a research query. You will be provided with the original query, and some initial research done by a research assistant. You should first come up with an outline for the report that describes the structure and flow of the report. Then generate the report. The report should be in markdown format, lengthy and detailed: aim for 5-10 pages of content, at least 1000 words.

ORIGINAL QUERY: %s

RESEARCH SUMMARIES:
%s

OUTPUT FORMAT (JSON):
{
  "short_summary": "a short 2-3 sentence synopsis of the findings",
  "markdown_report": "the full report in markdown",
  "follow_up_questions": ["suggested topics to research further"]
}

Respond ONLY with valid JSON in the format above. Do not include any other text or explanation.`, query, sb.String())
}

func (w *Writer) parseReportResponse(response string) (research.ReportDraft, error) {
	jsonStr, err := extractJSON(response)
	if err != nil {
		return research.ReportDraft{}, err
	}

	var draft research.ReportDraft
	if err := json.Unmarshal([]byte(jsonStr), &draft); err != nil {
		return research.ReportDraft{}, fmt.Errorf("unmarshal: %w", err)
	}
	if strings.TrimSpace(draft.MarkdownReport) == "" {
		return research.ReportDraft{}, fmt.Errorf("empty report body")
	}
	if strings.TrimSpace(draft.ShortSummary) == "" {
		return research.ReportDraft{}, fmt.Errorf("empty synopsis")
	}
	return draft, nil
}
