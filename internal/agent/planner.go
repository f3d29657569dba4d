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

// Planner turns a free-text query into a fixed-size search plan.
type Planner struct {
	cfg    *config.Config
	llm    LLMProvider
	logger *log.Logger
}

// NewPlanner creates a new planner instance
func NewPlanner(cfg *config.Config, llm LLMProvider) *Planner {
	return &Planner{
		cfg:    cfg,
		llm:    llm,
		logger: log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
	}
}

// Plan asks the planning model for exactly NumSearches search terms.
// Surplus items are truncated; a short plan is an error.
func (p *Planner) Plan(ctx context.Context, query string) (research.SearchPlan, error) {
	if strings.TrimSpace(query) == "" {
		return research.SearchPlan{}, fmt.Errorf("query is empty")
	}

	startTime := time.Now()
	n := p.cfg.Pipeline.NumSearches
	prompt := p.planningPrompt(query, n)
	model := p.cfg.LLM.Routing.Model("planning")

	response, err := p.llm.Generate(ctx, prompt, model, map[string]interface{}{
		"temperature": 0.3,
	})
	if err != nil {
		return research.SearchPlan{}, fmt.Errorf("failed to generate plan: %w", err)
	}

	plan, err := p.parsePlanResponse(response, n)
	if err != nil {
		return research.SearchPlan{}, fmt.Errorf("failed to parse plan: %w", err)
	}

	p.logger.Printf("Planned %d searches in %v", len(plan.Searches), time.Since(startTime))
	return plan, nil
}

func (p *Planner) planningPrompt(query string, n int) string {
	return fmt.Sprintf(`You are a helpful research assistant. You are given a query and you need to come up with a set of web searches to best answer the query. Output exactly %d search terms.

QUERY: %s

OUTPUT FORMAT (JSON):
{
  "searches": [
    {
      "query": "the search term to feed into a web search engine",
      "reason": "why this search helps answer the query"
    }
  ]
}

Respond ONLY with valid JSON in the format above. Do not include any other text or explanation.`, n, query)
}

func (p *Planner) parsePlanResponse(response string, n int) (research.SearchPlan, error) {
	jsonStr, err := extractJSON(response)
	if err != nil {
		return research.SearchPlan{}, err
	}

	var plan research.SearchPlan
	if err := json.Unmarshal([]byte(jsonStr), &plan); err != nil {
		return research.SearchPlan{}, fmt.Errorf("unmarshal: %w", err)
	}

	var searches []research.SearchPlanItem
	for _, item := range plan.Searches {
		if strings.TrimSpace(item.Query) == "" {
			continue
		}
		searches = append(searches, research.SearchPlanItem{
			Query:  strings.TrimSpace(item.Query),
			Reason: strings.TrimSpace(item.Reason),
		})
	}
	if len(searches) == 0 {
		return research.SearchPlan{}, fmt.Errorf("plan contains no searches")
	}
	if len(searches) < n {
		return research.SearchPlan{}, fmt.Errorf("plan has %d searches, want %d", len(searches), n)
	}
	if len(searches) > n {
		p.logger.Printf("Truncating plan from %d to %d searches", len(searches), n)
		searches = searches[:n]
	}
	return research.SearchPlan{Searches: searches}, nil
}
