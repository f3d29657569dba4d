package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{NumSearches: 5, SearchDelay: time.Second, StageTimeout: time.Minute},
		Search:   SearchConfig{Provider: "serper", SerperAPIKey: "k", MaxResults: 5},
		Email:    EmailConfig{SendGridAPIKey: "k", From: "reports@example.com"},
		Runs:     RunsConfig{Store: "inmemory", TTL: time.Hour},
		LLM: LLMConfig{Providers: map[string]LLMProvider{
			"openai": {Type: "openai", APIKey: "k"},
		}},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsMissingSearchKey(t *testing.T) {
	cfg := validConfig()
	cfg.Search.SerperAPIKey = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "serper_api_key") {
		t.Fatalf("expected serper_api_key error, got %v", err)
	}
}

func TestValidateRejectsMissingSendGridKey(t *testing.T) {
	cfg := validConfig()
	cfg.Email.SendGridAPIKey = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "sendgrid_api_key") {
		t.Fatalf("expected sendgrid_api_key error, got %v", err)
	}
}

func TestValidateRejectsMissingLLMKey(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Providers["openai"] = LLMProvider{Type: "openai"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("expected api_key error, got %v", err)
	}
}

func TestValidateRejectsZeroSearches(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.NumSearches = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected num_searches error")
	}
}

func TestValidateRejectsUnknownRunStore(t *testing.T) {
	cfg := validConfig()
	cfg.Runs.Store = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected runs.store error")
	}
}

func TestRoutingFallback(t *testing.T) {
	r := LLMRoutingConfig{Synthesis: "big", Fallback: "small"}
	if got := r.Model("synthesis"); got != "big" {
		t.Fatalf("expected big, got %s", got)
	}
	if got := r.Model("planning"); got != "small" {
		t.Fatalf("expected fallback small, got %s", got)
	}
}
