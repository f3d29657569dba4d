package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmsharma/researcher/config"
	"github.com/dmsharma/researcher/internal/mail"
	searchmodels "github.com/dmsharma/researcher/tools/websearch/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{NumSearches: 3, SearchDelay: 0, StageTimeout: time.Minute},
		Search:   config.SearchConfig{Provider: "serper", SerperAPIKey: "k", MaxResults: 3},
		LLM: config.LLMConfig{
			Routing: config.LLMRoutingConfig{
				Planning:  "planner-model",
				Research:  "research-model",
				Synthesis: "writer-model",
				Email:     "email-model",
			},
		},
	}
}

// stubLLM answers by model name so each agent can be scripted separately.
type stubLLM struct {
	mu        sync.Mutex
	byModel   map[string]string
	errModels map[string]error
	prompts   map[string][]string
}

func newStubLLM() *stubLLM {
	return &stubLLM{
		byModel:   make(map[string]string),
		errModels: make(map[string]error),
		prompts:   make(map[string][]string),
	}
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error) {
	out, _, _, err := s.GenerateWithTokens(ctx, prompt, model, options)
	return out, err
}

func (s *stubLLM) GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[model] = append(s.prompts[model], prompt)
	if err, ok := s.errModels[model]; ok {
		return "", 0, 0, err
	}
	out, ok := s.byModel[model]
	if !ok {
		return "", 0, 0, fmt.Errorf("stub has no response for model %s", model)
	}
	return out, 10, 20, nil
}

func (s *stubLLM) GetModelInfo(model string) (ModelInfo, error) {
	return ModelInfo{Name: model, Provider: "stub"}, nil
}

func (s *stubLLM) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return float64(inputTokens+outputTokens) / 1000
}

func (s *stubLLM) lastPrompt(model string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := s.prompts[model]
	if len(ps) == 0 {
		return ""
	}
	return ps[len(ps)-1]
}

// stubSearcher scripts web search hits per query.
type stubSearcher struct {
	hits    map[string][]searchmodels.Result
	failFor map[string]bool
}

func (s *stubSearcher) Search(ctx context.Context, query string, k int) ([]searchmodels.Result, error) {
	if s.failFor[query] {
		return nil, fmt.Errorf("search backend down")
	}
	if hits, ok := s.hits[query]; ok {
		return hits, nil
	}
	return []searchmodels.Result{{Title: "t", URL: "https://example.com", Snippet: "s"}}, nil
}

// stubSender records sent messages and can be made to fail.
type stubSender struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (s *stubSender) Send(ctx context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *stubSender) sent() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mail.Message, len(s.messages))
	copy(out, s.messages)
	return out
}
