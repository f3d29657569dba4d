package telemetry

import (
	"log"
	"sync"
	"time"
)

// Telemetry tracks pipeline stage outcomes and LLM spend in process.
type Telemetry struct {
	mu     sync.RWMutex
	logger *log.Logger

	totalRuns      int64
	succeededRuns  int64
	failedRuns     int64
	avgRunDuration time.Duration

	stageExecutions map[string]int64
	stageFailures   map[string]int64
	stageAvgTimes   map[string]time.Duration

	totalCost   float64
	totalTokens int64
	modelCosts  map[string]float64
}

// RunEvent records a completed pipeline run.
type RunEvent struct {
	RunID    string
	Success  bool
	Duration time.Duration
}

// StageEvent records one stage execution within a run.
type StageEvent struct {
	RunID    string
	Stage    string
	Success  bool
	Duration time.Duration
}

// UsageEvent records the token spend of one model call.
type UsageEvent struct {
	Model  string
	Cost   float64
	Tokens int64
}

// Snapshot is a copy of current counters, safe to hand out.
type Snapshot struct {
	TotalRuns       int64
	SucceededRuns   int64
	FailedRuns      int64
	AvgRunDuration  time.Duration
	StageExecutions map[string]int64
	StageFailures   map[string]int64
	TotalCost       float64
	TotalTokens     int64
	ModelCosts      map[string]float64
}

func New() *Telemetry {
	return &Telemetry{
		logger:          log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		stageExecutions: make(map[string]int64),
		stageFailures:   make(map[string]int64),
		stageAvgTimes:   make(map[string]time.Duration),
		modelCosts:      make(map[string]float64),
	}
}

// RecordRun records a finished pipeline run.
func (t *Telemetry) RecordRun(event RunEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalRuns++
	if event.Success {
		t.succeededRuns++
	} else {
		t.failedRuns++
	}
	if t.totalRuns == 1 {
		t.avgRunDuration = event.Duration
	} else {
		total := t.avgRunDuration * time.Duration(t.totalRuns-1)
		t.avgRunDuration = (total + event.Duration) / time.Duration(t.totalRuns)
	}

	t.logger.Printf("Run: ID=%s, Success=%t, Duration=%v",
		event.RunID, event.Success, event.Duration)
}

// RecordStage records one stage execution.
func (t *Telemetry) RecordStage(event StageEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stageExecutions[event.Stage]++
	if !event.Success {
		t.stageFailures[event.Stage]++
	}
	n := t.stageExecutions[event.Stage]
	if n == 1 {
		t.stageAvgTimes[event.Stage] = event.Duration
	} else {
		total := t.stageAvgTimes[event.Stage] * time.Duration(n-1)
		t.stageAvgTimes[event.Stage] = (total + event.Duration) / time.Duration(n)
	}

	t.logger.Printf("Stage: Run=%s, Stage=%s, Success=%t, Duration=%v",
		event.RunID, event.Stage, event.Success, event.Duration)
}

// RecordUsage records one model call's token spend.
func (t *Telemetry) RecordUsage(event UsageEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalCost += event.Cost
	t.totalTokens += event.Tokens
	if event.Model != "" {
		t.modelCosts[event.Model] += event.Cost
	}
}

// GetSnapshot returns a copy of the current counters.
func (t *Telemetry) GetSnapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := Snapshot{
		TotalRuns:       t.totalRuns,
		SucceededRuns:   t.succeededRuns,
		FailedRuns:      t.failedRuns,
		AvgRunDuration:  t.avgRunDuration,
		StageExecutions: make(map[string]int64, len(t.stageExecutions)),
		StageFailures:   make(map[string]int64, len(t.stageFailures)),
		TotalCost:       t.totalCost,
		TotalTokens:     t.totalTokens,
		ModelCosts:      make(map[string]float64, len(t.modelCosts)),
	}
	for k, v := range t.stageExecutions {
		snap.StageExecutions[k] = v
	}
	for k, v := range t.stageFailures {
		snap.StageFailures[k] = v
	}
	for k, v := range t.modelCosts {
		snap.ModelCosts[k] = v
	}
	return snap
}
