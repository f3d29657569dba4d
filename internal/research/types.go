package research

import "time"

// SearchPlanItem is one planned web search with the planner's rationale.
type SearchPlanItem struct {
	Query  string `json:"query"`
	Reason string `json:"reason"`
}

// SearchPlan is the ordered list of searches for a query. Its length is
// fixed by pipeline.num_searches.
type SearchPlan struct {
	Searches []SearchPlanItem `json:"searches"`
}

// SearchResult is the summary produced for one plan item. Items whose
// search failed have no SearchResult at all.
type SearchResult struct {
	Item    SearchPlanItem `json:"item"`
	Summary string         `json:"summary"`
}

// ReportDraft is the writer's output.
type ReportDraft struct {
	ShortSummary      string   `json:"short_summary"`
	MarkdownReport    string   `json:"markdown_report"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}

// RunStatus tracks the overall lifecycle of a pipeline run.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// Stage names the pipeline step a run is currently in.
type Stage string

const (
	StagePlanning  Stage = "planning"
	StageSearching Stage = "searching"
	StageWriting   Stage = "writing"
	StageEmailing  Stage = "emailing"
	StageDone      Stage = "done"
)

// EmailStatus tracks the delivery attempt independently of the run, so a
// failed send never hides the finished report.
type EmailStatus string

const (
	EmailPending EmailStatus = "pending"
	EmailSent    EmailStatus = "sent"
	EmailFailed  EmailStatus = "failed"
)

// Run is the full state of one research pipeline run. It lives only in
// the run store for the session TTL; nothing is persisted beyond that.
type Run struct {
	ID              string           `json:"id"`
	Query           string           `json:"query"`
	Email           string           `json:"email"`
	Status          RunStatus        `json:"status"`
	Stage           Stage            `json:"stage"`
	Plan            []SearchPlanItem `json:"plan,omitempty"`
	Results         []SearchResult   `json:"results,omitempty"`
	Report          *ReportDraft     `json:"report,omitempty"`
	EmailStatus     EmailStatus      `json:"email_status"`
	EmailError      string           `json:"email_error,omitempty"`
	Error           string           `json:"error,omitempty"`
	SearchesDone    int              `json:"searches_done"`
	SearchesPlanned int              `json:"searches_planned"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      *time.Time       `json:"finished_at,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Terminal reports whether the run has reached a final state.
func (r Run) Terminal() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed
}
