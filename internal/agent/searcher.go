package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dmsharma/researcher/config"
	"github.com/dmsharma/researcher/internal/research"
	"github.com/dmsharma/researcher/tools/webfetch"
	"github.com/dmsharma/researcher/tools/websearch"
)

// Searcher runs one planned web search and condenses the hits into a
// short summary for the writer.
type Searcher struct {
	cfg     *config.Config
	llm     LLMProvider
	search  websearch.Searcher
	fetcher webfetch.Fetcher
	logger  *log.Logger
}

// NewSearcher creates a new searcher instance. fetcher may be nil when
// pipeline.fetch_top_results is zero.
func NewSearcher(cfg *config.Config, llm LLMProvider, search websearch.Searcher, fetcher webfetch.Fetcher) *Searcher {
	return &Searcher{
		cfg:     cfg,
		llm:     llm,
		search:  search,
		fetcher: fetcher,
		logger:  log.New(log.Writer(), "[SEARCHER] ", log.LstdFlags),
	}
}

// Search executes one plan item: web search, optional page fetch, then
// an LLM summary of whatever came back.
func (s *Searcher) Search(ctx context.Context, item research.SearchPlanItem) (research.SearchResult, error) {
	startTime := time.Now()

	hits, err := s.search.Search(ctx, item.Query, s.cfg.Search.MaxResults)
	if err != nil {
		return research.SearchResult{}, fmt.Errorf("web search %q: %w", item.Query, err)
	}
	if len(hits) == 0 {
		return research.SearchResult{}, fmt.Errorf("web search %q: no results", item.Query)
	}

	var sb strings.Builder
	for i, hit := range hits {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n   %s\n", i+1, hit.Title, hit.URL, hit.Snippet)
	}

	// Enrich top hits with readable page text when configured.
	if s.fetcher != nil && s.cfg.Pipeline.FetchTopResults > 0 {
		limit := s.cfg.Pipeline.FetchTopResults
		if limit > len(hits) {
			limit = len(hits)
		}
		for i := 0; i < limit; i++ {
			page, err := s.fetcher.Exec(ctx, hits[i].URL)
			if err != nil || page.Text == "" {
				continue
			}
			fmt.Fprintf(&sb, "\nPAGE CONTENT (%s):\n%s\n", page.URL, page.Text)
		}
	}

	prompt := s.summaryPrompt(item, sb.String())
	model := s.cfg.LLM.Routing.Model("research")
	summary, err := s.llm.Generate(ctx, prompt, model, map[string]interface{}{
		"temperature": 0.3,
	})
	if err != nil {
		return research.SearchResult{}, fmt.Errorf("summarize %q: %w", item.Query, err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return research.SearchResult{}, fmt.Errorf("summarize %q: empty summary", item.Query)
	}

	s.logger.Printf("Search %q: %d hits summarized in %v", item.Query, len(hits), time.Since(startTime))
	return research.SearchResult{Item: item, Summary: summary}, nil
}

func (s *Searcher) summaryPrompt(item research.SearchPlanItem, results string) string {
	return fmt.Sprintf(`You are a research assistant. Given a search term and its web search results, produce a concise summary of the results. The summary must contain 2-3 paragraphs and less than 300 words. Capture the main points, write succinctly and concisely. No need to have complete sentences or good grammar. This will be consumed by someone else synthesizing a report, so it's vital that you capture the essence and ignore any fluff. Do not include any additional commentary other than the summary itself.

SEARCH TERM: %s
REASON FOR SEARCHING: %s

SEARCH RESULTS:
%s`, item.Query, item.Reason, results)
}
