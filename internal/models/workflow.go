package models

import "time"

// Stage enumerates the workflow state machine positions.
type Stage string

const (
	StageIngested                  Stage = "ingested"
	StageScored                    Stage = "scored"
	StageCorrelated                Stage = "correlated"
	StageHypothesized              Stage = "hypothesized"
	StageRanked                    Stage = "ranked"
	StagePolicyChecked             Stage = "policy_checked"
	StageAwaitingDiagnosisApproval Stage = "awaiting_diagnosis_approval"
	StageSelected                  Stage = "selected"
	StagePlanned                   Stage = "planned"
	StageAwaitingCommandApproval   Stage = "awaiting_command_approval"
	StageExecuting                 Stage = "executing"
	StageExecuted                  Stage = "executed"
	StageReported                  Stage = "reported"
	StageCompleted                 Stage = "completed"
	StageStopped                   Stage = "stopped"
	StageFailed                    Stage = "failed"
)

// WorkflowStatus captures the coarse lifecycle of a workflow.
type WorkflowStatus string

const (
	StatusRunning          WorkflowStatus = "running"
	StatusAwaitingApproval WorkflowStatus = "awaiting_approval"
	StatusCompleted        WorkflowStatus = "completed"
	StatusStopped          WorkflowStatus = "stopped"
	StatusFailed           WorkflowStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s WorkflowStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusStopped || s == StatusFailed
}

// Gate names the approval checkpoints.
type Gate string

const (
	GateDiagnosis Gate = "diagnosis"
	GateCommand   Gate = "command"
)

// Cause enumerates root-cause hypotheses.
type Cause string

const (
	CauseCongestion       Cause = "congestion"
	CauseConfigRegression Cause = "config_regression"
	CauseHardwareFault    Cause = "hardware_fault"
	CauseUnknown          Cause = "unknown"
)

// RiskLevel grades a candidate's blast radius.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Priority grades incident urgency, derived from current signal levels.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Hypothesis is the engine's best root-cause explanation.
type Hypothesis struct {
	Cause      Cause    `json:"cause"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

// PolicyVerdict annotates a candidate with the outcome of policy checks.
// Reasons is empty iff OK is true.
type PolicyVerdict struct {
	OK      bool     `json:"ok"`
	Reasons []string `json:"reasons"`
}

// PredictedMetrics summarises simulated post-remediation signal levels.
type PredictedMetrics struct {
	LatencyMs float64 `json:"latency_ms"`
	LossPct   float64 `json:"loss_pct"`
}

// Candidate is a concrete remediation option with deterministic predictions.
// Never mutated after creation except to attach the policy verdict.
type Candidate struct {
	ID          string           `json:"id"`
	Kind        string           `json:"kind"`
	ETAMinutes  int              `json:"eta_minutes"`
	Predicted   PredictedMetrics `json:"predicted"`
	Risk        RiskLevel        `json:"risk"`
	CostPerHour float64          `json:"cost_per_hour_eur"`
	Score       float64          `json:"score"`
	Verdict     *PolicyVerdict   `json:"policy_verdict,omitempty"`
	Explanation string           `json:"explanation,omitempty"`
}

// Plan is the structured remediation output of the synthesizer.
type Plan struct {
	Version     string            `json:"version"`
	IncidentID  string            `json:"incident_id"`
	Action      string            `json:"action"`
	CandidateID string            `json:"candidate_id"`
	Parameters  map[string]string `json:"parameters"`
	PreChecks   []string          `json:"pre_checks"`
	Steps       []string          `json:"steps"`
	PostChecks  []string          `json:"post_checks"`
	ETAMinutes  int               `json:"eta_minutes"`
	Risk        RiskLevel         `json:"risk"`
	RollbackTag string            `json:"rollback_tag"`
	Rollback    string            `json:"rollback_procedure"`
}

// AuditEntry records one stage transition, decision, or error.
// Entries are write-once and totally ordered by insertion.
type AuditEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Stage     Stage     `json:"stage"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
}

// ActorSystem marks audit entries written by the engine itself.
const ActorSystem = "system"

// Approval records one human gate decision.
type Approval struct {
	Gate      Gate      `json:"gate"`
	Approved  bool      `json:"approved"`
	Approver  string    `json:"approver,omitempty"`
	Feedback  string    `json:"feedback,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionRecord captures the (simulated) remediation execution outcome.
type ExecutionRecord struct {
	Status          string    `json:"status"`
	Message         string    `json:"message"`
	CommandsApplied int       `json:"commands_applied"`
	VerificationOK  bool      `json:"verification_ok"`
	ExecutedAt      time.Time `json:"executed_at"`
}

// OutcomeRecord holds the simulated before/after series for the selected
// candidate, consumed by the reporting layer.
type OutcomeRecord struct {
	BeforeLatencyMs []float64 `json:"before_latency_ms"`
	AfterLatencyMs  []float64 `json:"after_latency_ms"`
	BeforeLossPct   []float64 `json:"before_loss_pct"`
	AfterLossPct    []float64 `json:"after_loss_pct"`
}

// WorkflowError records a stage failure kept on the state.
type WorkflowError struct {
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Attempt   int       `json:"attempt,omitempty"`
}

// IncidentState is the complete persisted workflow state for one incident.
// Mutated exclusively by the workflow engine.
type IncidentState struct {
	IncidentID  string           `json:"incident_id"`
	Bundle      IncidentBundle   `json:"bundle"`
	Stage       Stage            `json:"stage"`
	Status      WorkflowStatus   `json:"status"`
	Priority    Priority         `json:"priority"`
	Deltas      *DeltaSet        `json:"deltas,omitempty"`
	Correlated  []ChangeEvent    `json:"correlated_changes,omitempty"`
	Hypothesis  *Hypothesis      `json:"hypothesis,omitempty"`
	Candidates  []Candidate      `json:"candidates,omitempty"`
	SelectedID  string           `json:"selected_candidate_id,omitempty"`
	Plan        *Plan            `json:"plan,omitempty"`
	Outcome     *OutcomeRecord   `json:"outcome,omitempty"`
	Execution   *ExecutionRecord `json:"execution,omitempty"`
	Report      string           `json:"report,omitempty"`
	RetryCounts map[Gate]int     `json:"retry_counts,omitempty"`
	Approvals   []Approval       `json:"approvals,omitempty"`
	Audit       []AuditEntry     `json:"audit"`
	Errors      []WorkflowError  `json:"errors,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// CandidateByID returns the candidate with the given id, if present.
func (s *IncidentState) CandidateByID(id string) (Candidate, bool) {
	for _, c := range s.Candidates {
		if c.ID == id {
			return c, true
		}
	}
	return Candidate{}, false
}
