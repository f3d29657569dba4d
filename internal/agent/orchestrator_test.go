package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmsharma/researcher/internal/agent/telemetry"
	"github.com/dmsharma/researcher/internal/research"
	"github.com/dmsharma/researcher/internal/runs/inmemory"
	searchmodels "github.com/dmsharma/researcher/tools/websearch/models"
)

type pipelineFixture struct {
	orch   *Orchestrator
	store  *inmemory.Store
	llm    *stubLLM
	web    *stubSearcher
	sender *stubSender
	tele   *telemetry.Telemetry
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	cfg := testConfig()
	llm := newStubLLM()
	llm.byModel["planner-model"] = planJSON("a", "b", "c")
	llm.byModel["research-model"] = "summary text"
	llm.byModel["writer-model"] = reportJSON
	llm.byModel["email-model"] = `{"subject":"subj","html_body":"<html><body>Lots of detail here.</body></html>"}`

	web := &stubSearcher{
		hits:    map[string][]searchmodels.Result{},
		failFor: map[string]bool{},
	}
	sender := &stubSender{}
	store := inmemory.NewStore(time.Hour)
	tele := telemetry.New()
	orch := NewOrchestrator(cfg, llm, web, nil, sender, store, tele)

	return &pipelineFixture{orch: orch, store: store, llm: llm, web: web, sender: sender, tele: tele}
}

func (f *pipelineFixture) run(t *testing.T) research.Run {
	t.Helper()
	run, err := f.orch.NewRun(context.Background(), "research topic", "reader@example.com")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	return f.orch.Process(context.Background(), run)
}

func TestProcessHappyPath(t *testing.T) {
	f := newPipelineFixture(t)
	final := f.run(t)

	if final.Status != research.StatusSucceeded {
		t.Fatalf("status = %s, error = %s", final.Status, final.Error)
	}
	if final.Stage != research.StageDone {
		t.Fatalf("stage = %s", final.Stage)
	}
	if final.SearchesPlanned != 3 || final.SearchesDone != 3 || len(final.Results) != 3 {
		t.Fatalf("search counters: planned=%d done=%d results=%d",
			final.SearchesPlanned, final.SearchesDone, len(final.Results))
	}
	if final.Report == nil || !strings.Contains(final.Report.MarkdownReport, "# Report") {
		t.Fatalf("report missing: %+v", final.Report)
	}
	if final.EmailStatus != research.EmailSent {
		t.Fatalf("email status = %s, error = %s", final.EmailStatus, final.EmailError)
	}
	if final.FinishedAt == nil || !final.Terminal() {
		t.Fatal("run should be terminal with a finish time")
	}

	sent := f.sender.sent()
	if len(sent) != 1 || !strings.Contains(sent[0].HTML, "Lots of detail here.") {
		t.Fatalf("unexpected email: %+v", sent)
	}

	stored, ok, err := f.store.Get(context.Background(), final.ID)
	if err != nil || !ok {
		t.Fatalf("stored run lookup: ok=%v err=%v", ok, err)
	}
	if stored.Status != research.StatusSucceeded {
		t.Fatalf("stored status = %s", stored.Status)
	}
}

func TestProcessAccountsTokenSpend(t *testing.T) {
	f := newPipelineFixture(t)
	final := f.run(t)
	if final.Status != research.StatusSucceeded {
		t.Fatalf("status = %s, error = %s", final.Status, final.Error)
	}

	// plan + 3 searches + report + email = 6 model calls, 30 tokens each
	snap := f.tele.GetSnapshot()
	if snap.TotalTokens != 180 {
		t.Fatalf("total tokens = %d, want 180", snap.TotalTokens)
	}
	if snap.TotalCost <= 0 {
		t.Fatalf("total cost = %v, want > 0", snap.TotalCost)
	}
	for _, model := range []string{"planner-model", "research-model", "writer-model", "email-model"} {
		if snap.ModelCosts[model] <= 0 {
			t.Fatalf("no cost recorded for %s: %v", model, snap.ModelCosts)
		}
	}
}

func TestProcessSkipsFailedSearches(t *testing.T) {
	f := newPipelineFixture(t)
	f.web.failFor["b"] = true

	final := f.run(t)
	if final.Status != research.StatusSucceeded {
		t.Fatalf("status = %s, error = %s", final.Status, final.Error)
	}
	if final.SearchesDone != 3 {
		t.Fatalf("all planned searches should be attempted, done=%d", final.SearchesDone)
	}
	if len(final.Results) != 2 {
		t.Fatalf("expected 2 surviving results, got %d", len(final.Results))
	}
	for _, r := range final.Results {
		if r.Item.Query == "b" {
			t.Fatal("failed search should not appear in results")
		}
	}
}

func TestProcessSucceedsWithAllSearchesFailed(t *testing.T) {
	f := newPipelineFixture(t)
	f.web.failFor = map[string]bool{"a": true, "b": true, "c": true}

	final := f.run(t)
	if final.Status != research.StatusSucceeded {
		t.Fatalf("status = %s, error = %s", final.Status, final.Error)
	}
	if len(final.Results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(final.Results))
	}
	if final.Report == nil {
		t.Fatal("writer should still produce a report from zero summaries")
	}
	if !strings.Contains(f.llm.lastPrompt("writer-model"), "no search summaries") {
		t.Fatal("writer prompt should note the missing summaries")
	}
}

func TestProcessFailsWhenPlannerFails(t *testing.T) {
	f := newPipelineFixture(t)
	f.llm.errModels["planner-model"] = errors.New("model unavailable")

	final := f.run(t)
	if final.Status != research.StatusFailed {
		t.Fatalf("status = %s", final.Status)
	}
	if !strings.Contains(final.Error, "planning") {
		t.Fatalf("error should name the stage: %s", final.Error)
	}
	if final.Report != nil {
		t.Fatal("no report expected on planning failure")
	}
}

func TestProcessFailsWhenWriterFails(t *testing.T) {
	f := newPipelineFixture(t)
	f.llm.byModel["writer-model"] = "not JSON"

	final := f.run(t)
	if final.Status != research.StatusFailed {
		t.Fatalf("status = %s", final.Status)
	}
	if !strings.Contains(final.Error, "writing") {
		t.Fatalf("error should name the stage: %s", final.Error)
	}
	if len(f.sender.sent()) != 0 {
		t.Fatal("no email expected when writing fails")
	}
}

func TestProcessKeepsReportWhenEmailFails(t *testing.T) {
	f := newPipelineFixture(t)
	f.sender.err = errors.New("sendgrid 500")

	final := f.run(t)
	if final.Status != research.StatusSucceeded {
		t.Fatalf("run must still succeed, status = %s, error = %s", final.Status, final.Error)
	}
	if final.EmailStatus != research.EmailFailed {
		t.Fatalf("email status = %s", final.EmailStatus)
	}
	if final.EmailError == "" {
		t.Fatal("email error should be recorded")
	}

	stored, ok, _ := f.store.Get(context.Background(), final.ID)
	if !ok || stored.Report == nil || stored.Report.MarkdownReport == "" {
		t.Fatal("report must remain retrievable after a delivery failure")
	}
}

func TestProcessDelaysBetweenSearches(t *testing.T) {
	f := newPipelineFixture(t)
	f.orch.cfg.Pipeline.SearchDelay = 10 * time.Millisecond

	var delays int
	f.orch.sleep = func(ctx context.Context, d time.Duration) error {
		delays++
		if d != 10*time.Millisecond {
			t.Fatalf("unexpected delay %v", d)
		}
		return nil
	}

	final := f.run(t)
	if final.Status != research.StatusSucceeded {
		t.Fatalf("status = %s, error = %s", final.Status, final.Error)
	}
	// n searches, n-1 gaps between them
	if delays != 2 {
		t.Fatalf("expected 2 delays for 3 searches, got %d", delays)
	}
}

func TestProcessStopsWhenContextCancelledDuringDelay(t *testing.T) {
	f := newPipelineFixture(t)
	f.orch.cfg.Pipeline.SearchDelay = time.Millisecond
	f.orch.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	final := f.run(t)
	if final.Status != research.StatusFailed {
		t.Fatalf("status = %s", final.Status)
	}
	if !strings.Contains(final.Error, "searching") {
		t.Fatalf("error should name the stage: %s", final.Error)
	}
}
