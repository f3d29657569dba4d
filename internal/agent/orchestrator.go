package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dmsharma/researcher/config"
	"github.com/dmsharma/researcher/internal/agent/telemetry"
	"github.com/dmsharma/researcher/internal/mail"
	"github.com/dmsharma/researcher/internal/research"
	"github.com/dmsharma/researcher/tools/webfetch"
	"github.com/dmsharma/researcher/tools/websearch"
)

// RunStore is the slice of the run store the orchestrator needs.
type RunStore interface {
	Save(ctx context.Context, run research.Run) error
	Get(ctx context.Context, id string) (research.Run, bool, error)
}

// Orchestrator drives one research run through the four stages:
// plan, search, write, email. Stages run strictly in order; searches run
// one at a time with a delay to stay under external rate limits.
type Orchestrator struct {
	cfg       *config.Config
	planner   *Planner
	searcher  *Searcher
	writer    *Writer
	emailer   *Emailer
	store     RunStore
	telemetry *telemetry.Telemetry
	logger    *log.Logger

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator wires the pipeline from config and shared dependencies.
// Every agent goes through the usage-tracking provider so token spend
// shows up in telemetry.
func NewOrchestrator(cfg *config.Config, llm LLMProvider, search websearch.Searcher, fetcher webfetch.Fetcher, sender mail.Sender, store RunStore, tele *telemetry.Telemetry) *Orchestrator {
	tracked := withUsageTracking(llm, tele)
	return &Orchestrator{
		cfg:       cfg,
		planner:   NewPlanner(cfg, tracked),
		searcher:  NewSearcher(cfg, tracked, search, fetcher),
		writer:    NewWriter(cfg, tracked),
		emailer:   NewEmailer(cfg, tracked, sender),
		store:     store,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[ORCH] ", log.LstdFlags),
		sleep:     sleepCtx,
	}
}

// NewRun registers a fresh pending run in the store.
func (o *Orchestrator) NewRun(ctx context.Context, query, email string) (research.Run, error) {
	run := research.Run{
		ID:          uuid.NewString(),
		Query:       query,
		Email:       email,
		Status:      research.StatusPending,
		Stage:       research.StagePlanning,
		EmailStatus: research.EmailPending,
		StartedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := o.store.Save(ctx, run); err != nil {
		return research.Run{}, fmt.Errorf("save run: %w", err)
	}
	return run, nil
}

// Process executes the pipeline for a run and keeps the store current
// after every stage transition. The returned run is the final state.
func (o *Orchestrator) Process(ctx context.Context, run research.Run) research.Run {
	startTime := time.Now()
	run.Status = research.StatusRunning
	o.save(ctx, &run)

	// Stage 1: planning
	plan, err := runStage(ctx, o, &run, research.StagePlanning, func(sctx context.Context) (research.SearchPlan, error) {
		return o.planner.Plan(sctx, run.Query)
	})
	if err != nil {
		return o.fail(ctx, run, startTime, fmt.Errorf("planning: %w", err))
	}
	run.Plan = plan.Searches
	run.SearchesPlanned = len(plan.Searches)

	// Stage 2: searching, strictly sequential. A failed item is skipped
	// and the pipeline continues with whatever subset succeeded.
	run.Stage = research.StageSearching
	o.save(ctx, &run)
	for i, item := range plan.Searches {
		if i > 0 && o.cfg.Pipeline.SearchDelay > 0 {
			if err := o.sleep(ctx, o.cfg.Pipeline.SearchDelay); err != nil {
				return o.fail(ctx, run, startTime, fmt.Errorf("searching: %w", err))
			}
		}
		result, err := runStage(ctx, o, &run, research.StageSearching, func(sctx context.Context) (research.SearchResult, error) {
			return o.searcher.Search(sctx, item)
		})
		run.SearchesDone++
		if err != nil {
			o.logger.Printf("search %d/%d %q failed, skipping: %v", i+1, len(plan.Searches), item.Query, err)
		} else {
			run.Results = append(run.Results, result)
		}
		o.save(ctx, &run)
	}
	o.logger.Printf("searches complete: %d/%d succeeded", len(run.Results), run.SearchesPlanned)

	// Stage 3: writing. Invoked even with zero summaries.
	run.Stage = research.StageWriting
	o.save(ctx, &run)
	draft, err := runStage(ctx, o, &run, research.StageWriting, func(sctx context.Context) (research.ReportDraft, error) {
		return o.writer.Write(sctx, run.Query, run.Results)
	})
	if err != nil {
		return o.fail(ctx, run, startTime, fmt.Errorf("writing: %w", err))
	}
	run.Report = &draft

	// Stage 4: emailing. A delivery failure is recorded on the run but
	// never discards the report; the run still succeeds.
	run.Stage = research.StageEmailing
	o.save(ctx, &run)
	_, err = runStage(ctx, o, &run, research.StageEmailing, func(sctx context.Context) (struct{}, error) {
		return struct{}{}, o.emailer.Email(sctx, run.Query, draft, run.Email)
	})
	if err != nil {
		run.EmailStatus = research.EmailFailed
		run.EmailError = err.Error()
		o.logger.Printf("email delivery failed, report remains available: %v", err)
	} else {
		run.EmailStatus = research.EmailSent
	}

	run.Stage = research.StageDone
	run.Status = research.StatusSucceeded
	now := time.Now().UTC()
	run.FinishedAt = &now
	o.save(ctx, &run)

	o.telemetry.RecordRun(telemetry.RunEvent{
		RunID:    run.ID,
		Success:  true,
		Duration: time.Since(startTime),
	})
	return run
}

func runStageTimeout(cfg *config.Config) time.Duration {
	if cfg.Pipeline.StageTimeout > 0 {
		return cfg.Pipeline.StageTimeout
	}
	return 3 * time.Minute
}

// runStage runs fn under the stage timeout and records telemetry.
func runStage[T any](ctx context.Context, o *Orchestrator, run *research.Run, stage research.Stage, fn func(context.Context) (T, error)) (T, error) {
	sctx, cancel := context.WithTimeout(ctx, runStageTimeout(o.cfg))
	defer cancel()
	start := time.Now()
	out, err := fn(sctx)
	o.telemetry.RecordStage(telemetry.StageEvent{
		RunID:    run.ID,
		Stage:    string(stage),
		Success:  err == nil,
		Duration: time.Since(start),
	})
	return out, err
}

func (o *Orchestrator) fail(ctx context.Context, run research.Run, startTime time.Time, err error) research.Run {
	run.Status = research.StatusFailed
	run.Error = err.Error()
	now := time.Now().UTC()
	run.FinishedAt = &now
	o.save(ctx, &run)
	o.telemetry.RecordRun(telemetry.RunEvent{
		RunID:    run.ID,
		Success:  false,
		Duration: time.Since(startTime),
	})
	o.logger.Printf("run %s failed: %v", run.ID, err)
	return run
}

func (o *Orchestrator) save(ctx context.Context, run *research.Run) {
	run.UpdatedAt = time.Now().UTC()
	if err := o.store.Save(ctx, *run); err != nil {
		o.logger.Printf("save run %s: %v", run.ID, err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
