package agent

import (
	"context"

	"github.com/dmsharma/researcher/internal/agent/telemetry"
)

// trackedProvider wraps an LLMProvider so every model call is accounted
// for: token usage and the per-model cost land in telemetry.
type trackedProvider struct {
	llm  LLMProvider
	tele *telemetry.Telemetry
}

func withUsageTracking(llm LLMProvider, tele *telemetry.Telemetry) LLMProvider {
	return &trackedProvider{llm: llm, tele: tele}
}

func (t *trackedProvider) Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error) {
	out, _, _, err := t.GenerateWithTokens(ctx, prompt, model, options)
	return out, err
}

func (t *trackedProvider) GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error) {
	out, inTokens, outTokens, err := t.llm.GenerateWithTokens(ctx, prompt, model, options)
	if err == nil {
		t.tele.RecordUsage(telemetry.UsageEvent{
			Model:  model,
			Cost:   t.llm.CalculateCost(inTokens, outTokens, model),
			Tokens: inTokens + outTokens,
		})
	}
	return out, inTokens, outTokens, err
}

func (t *trackedProvider) GetModelInfo(model string) (ModelInfo, error) {
	return t.llm.GetModelInfo(model)
}

func (t *trackedProvider) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return t.llm.CalculateCost(inputTokens, outputTokens, model)
}
