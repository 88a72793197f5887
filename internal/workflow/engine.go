package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/remedystack/remedy-engine/internal/catalog"
	"github.com/remedystack/remedy-engine/internal/config"
	"github.com/remedystack/remedy-engine/internal/engine"
	"github.com/remedystack/remedy-engine/internal/metrics"
	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/report"
	"github.com/remedystack/remedy-engine/internal/store"
)

// Engine is the incident workflow state machine. It drives each incident
// through diagnosis, ranking, policy gating, planning, and reporting,
// persisting state after every transition so workflows survive restarts and
// suspend cleanly at approval gates.
//
// The engine is single-writer per incident: all writes go through the
// store's compare-and-swap, and a lost race surfaces as
// store.ErrConcurrentModification for the caller to retry.
type Engine struct {
	store  store.Store
	cat    *catalog.Catalog
	ranker *engine.Ranker
	cfg    config.WorkflowConfig
	logger *slog.Logger

	// Injectable for deterministic tests.
	now   func() time.Time
	newID func() string
}

// New constructs a workflow engine.
func New(st store.Store, cat *catalog.Catalog, ranker *engine.Ranker, cfg config.WorkflowConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  st,
		cat:    cat,
		ranker: ranker,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

var gateStages = map[models.Gate]models.Stage{
	models.GateDiagnosis: models.StageAwaitingDiagnosisApproval,
	models.GateCommand:   models.StageAwaitingCommandApproval,
}

// Start validates the bundle, creates the incident workflow, and advances
// it until it completes, suspends at a gate, or stops. Validation failures
// reject the bundle before any state is created.
func (e *Engine) Start(ctx context.Context, bundle models.IncidentBundle) (models.IncidentState, error) {
	started := e.now()
	defer func() { metrics.ObserveStart(time.Since(started)) }()

	if err := bundle.Validate(); err != nil {
		return models.IncidentState{}, fmt.Errorf("%w: %v", engine.ErrInvalidBundle, err)
	}
	if _, err := engine.ScoreSignals(bundle); err != nil {
		return models.IncidentState{}, err
	}

	if _, _, err := e.store.Get(ctx, bundle.IncidentID); err == nil {
		return models.IncidentState{}, fmt.Errorf("%w: %s", ErrAlreadyExists, bundle.IncidentID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.IncidentState{}, err
	}

	state := models.IncidentState{
		IncidentID:  bundle.IncidentID,
		Bundle:      bundle,
		Stage:       models.StageIngested,
		Status:      models.StatusRunning,
		RetryCounts: map[models.Gate]int{},
		CreatedAt:   started,
	}
	e.appendAudit(&state, models.ActorSystem, "workflow_started", "bundle accepted for "+bundle.HotPath)
	metrics.ObserveTransition(string(models.StageIngested))

	version, err := e.store.CompareAndSwap(ctx, state, 0)
	if err != nil {
		if errors.Is(err, store.ErrConcurrentModification) {
			return models.IncidentState{}, fmt.Errorf("%w: %s", ErrAlreadyExists, bundle.IncidentID)
		}
		return models.IncidentState{}, err
	}

	e.logger.Info("workflow started",
		slog.String("incident_id", bundle.IncidentID),
		slog.String("hot_path", bundle.HotPath))
	return e.advance(ctx, state, version)
}

// Approve resumes a workflow suspended at the named gate with a human
// decision. Approval advances the pipeline; rejection re-enters the prior
// decision stage until the retry bound is exhausted, then stops the
// workflow terminally.
func (e *Engine) Approve(ctx context.Context, incidentID string, gate models.Gate, approved bool, approver, feedback string) (models.IncidentState, error) {
	st, version, err := e.store.Get(ctx, incidentID)
	if err != nil {
		return models.IncidentState{}, err
	}
	expected, ok := gateStages[gate]
	if !ok {
		return st, fmt.Errorf("%w: unknown gate %q", ErrInvalidStage, gate)
	}
	if st.Status != models.StatusAwaitingApproval || st.Stage != expected {
		return st, fmt.Errorf("%w: %s approval while in stage %s", ErrInvalidStage, gate, st.Stage)
	}

	st.Approvals = append(st.Approvals, models.Approval{
		Gate:      gate,
		Approved:  approved,
		Approver:  approver,
		Feedback:  feedback,
		Timestamp: e.now(),
	})
	metrics.ObserveApproval(string(gate), approved)

	if !approved {
		return e.reject(ctx, st, version, gate, approver, feedback)
	}

	st.Status = models.StatusRunning
	switch gate {
	case models.GateDiagnosis:
		e.selectTop(&st, approver, "gate_approved")
	case models.GateCommand:
		e.transitionWith(&st, models.StageExecuting, approver, "gate_approved", "plan approved for execution")
	}

	version, err = e.store.CompareAndSwap(ctx, st, version)
	if err != nil {
		return st, err
	}
	if st.Status.Terminal() {
		metrics.ObserveWorkflowOutcome(string(st.Status))
		return st, nil
	}
	return e.advance(ctx, st, version)
}

func (e *Engine) reject(ctx context.Context, st models.IncidentState, version int64, gate models.Gate, approver, feedback string) (models.IncidentState, error) {
	if st.RetryCounts == nil {
		st.RetryCounts = map[models.Gate]int{}
	}
	st.RetryCounts[gate]++
	attempt := st.RetryCounts[gate]

	if attempt > e.cfg.MaxGateRetries {
		st.Status = models.StatusStopped
		e.transitionWith(&st, models.StageStopped, approver, "gate_rejected",
			fmt.Sprintf("%s gate rejected %d times, retry limit %d exceeded", gate, attempt, e.cfg.MaxGateRetries))
		if _, err := e.store.CompareAndSwap(ctx, st, version); err != nil {
			return st, err
		}
		metrics.ObserveWorkflowOutcome(string(st.Status))
		return st, fmt.Errorf("%w: %s gate", ErrRetryLimitExceeded, gate)
	}

	st.Status = models.StatusRunning
	detail := fmt.Sprintf("%s gate rejected (attempt %d of %d)", gate, attempt, e.cfg.MaxGateRetries)
	if feedback != "" {
		detail += ": " + feedback
	}
	switch gate {
	case models.GateDiagnosis:
		st.SelectedID = ""
		e.transitionWith(&st, models.StageIngested, approver, "gate_rejected", detail)
	case models.GateCommand:
		st.Plan = nil
		e.transitionWith(&st, models.StageSelected, approver, "gate_rejected", detail)
	}

	version, err := e.store.CompareAndSwap(ctx, st, version)
	if err != nil {
		return st, err
	}
	return e.advance(ctx, st, version)
}

// SelectCandidate overrides the automatic top-ranked choice with an
// explicit candidate id. Permitted only before the workflow commits to a
// selection, and only for candidates whose policy verdict is ok.
func (e *Engine) SelectCandidate(ctx context.Context, incidentID, candidateID, actor string) (models.IncidentState, error) {
	st, version, err := e.store.Get(ctx, incidentID)
	if err != nil {
		return models.IncidentState{}, err
	}
	switch st.Stage {
	case models.StageRanked, models.StagePolicyChecked, models.StageAwaitingDiagnosisApproval:
	default:
		return st, fmt.Errorf("%w: select-candidate while in stage %s", ErrInvalidStage, st.Stage)
	}

	cand, ok := st.CandidateByID(candidateID)
	if !ok {
		return st, fmt.Errorf("%w: unknown candidate %s", ErrPolicySelectionRejected, candidateID)
	}
	if cand.Verdict == nil || !cand.Verdict.OK {
		reason := "no policy verdict attached"
		if cand.Verdict != nil {
			reason = strings.Join(cand.Verdict.Reasons, "; ")
		}
		return st, fmt.Errorf("%w: %s: %s", ErrPolicySelectionRejected, candidateID, reason)
	}

	st.SelectedID = candidateID
	e.appendAudit(&st, actor, "candidate_selected", "override selected candidate "+candidateID)

	if _, err := e.store.CompareAndSwap(ctx, st, version); err != nil {
		return st, err
	}
	return st, nil
}

// Status returns a read-only snapshot of the workflow state.
func (e *Engine) Status(ctx context.Context, incidentID string) (models.IncidentState, error) {
	st, _, err := e.store.Get(ctx, incidentID)
	return st, err
}

// History returns the ordered audit trail for an incident.
func (e *Engine) History(ctx context.Context, incidentID string) ([]models.AuditEntry, error) {
	st, _, err := e.store.Get(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	return st.Audit, nil
}

// List returns all known incident ids.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.store.List(ctx)
}

// advance runs the stage loop, persisting after every transition, until
// the workflow suspends, stops, completes, or fails.
func (e *Engine) advance(ctx context.Context, state models.IncidentState, version int64) (models.IncidentState, error) {
	for {
		stepErr := e.step(ctx, &state)
		if stepErr != nil && !errors.Is(stepErr, engine.ErrMissingParameter) {
			e.fail(&state, stepErr)
		}

		var err error
		version, err = e.store.CompareAndSwap(ctx, state, version)
		if err != nil {
			return state, err
		}
		if state.Status.Terminal() {
			metrics.ObserveWorkflowOutcome(string(state.Status))
		}
		if stepErr != nil {
			return state, stepErr
		}
		if state.Status != models.StatusRunning {
			return state, nil
		}
	}
}

// step performs exactly one stage transition.
func (e *Engine) step(ctx context.Context, st *models.IncidentState) error {
	switch st.Stage {
	case models.StageIngested:
		deltas, err := engine.ScoreSignals(st.Bundle)
		if err != nil {
			return err
		}
		st.Deltas = &deltas
		st.Priority = engine.DerivePriority(deltas)
		e.transition(st, models.StageScored,
			fmt.Sprintf("latency delta %+.1fms, loss delta %+.2fpt, util delta %+.1fpt on %s",
				deltas.LatencyMs.Delta, deltas.LossPct.Delta, deltas.UtilPct.Delta, deltas.UtilSegment))

	case models.StageScored:
		st.Correlated = engine.CorrelateChanges(st.Bundle, e.cfg.CorrelationLookback)
		e.transition(st, models.StageCorrelated,
			fmt.Sprintf("%d change events correlated with the incident window", len(st.Correlated)))

	case models.StageCorrelated:
		hyp := engine.Hypothesize(*st.Deltas, st.Correlated)
		st.Hypothesis = &hyp
		e.transition(st, models.StageHypothesized,
			fmt.Sprintf("cause %s, confidence %.2f", hyp.Cause, hyp.Confidence))

	case models.StageHypothesized:
		outcome := e.ranker.Rank(ctx, st.Bundle, *st.Deltas, *st.Hypothesis)
		st.Candidates = outcome.Candidates
		detail := fmt.Sprintf("%d candidates ranked", len(outcome.Candidates))
		switch {
		case outcome.AdvisoryApplied:
			detail += ", advisory reordering applied"
			if outcome.AdvisoryNote != "" {
				detail += ": " + outcome.AdvisoryNote
			}
		case outcome.AdvisoryNote != "":
			detail += ", " + outcome.AdvisoryNote
			metrics.ObserveAdvisoryFallback()
		}
		e.transition(st, models.StageRanked, detail)

	case models.StageRanked:
		compliant := 0
		for i := range st.Candidates {
			p, ok := e.playbook(st.Candidates[i].ID)
			if !ok {
				return fmt.Errorf("candidate %s has no playbook in the catalog", st.Candidates[i].ID)
			}
			verdict := engine.CheckPolicy(st.Candidates[i], p, st.Bundle)
			st.Candidates[i].Verdict = &verdict
			if verdict.OK {
				compliant++
			}
		}
		e.transition(st, models.StagePolicyChecked,
			fmt.Sprintf("%d of %d candidates policy-compliant", compliant, len(st.Candidates)))

	case models.StagePolicyChecked:
		if e.cfg.GateDiagnosis {
			if e.cfg.AutoSelectThreshold > 0 && st.Hypothesis.Confidence >= e.cfg.AutoSelectThreshold {
				st.Approvals = append(st.Approvals, models.Approval{
					Gate:      models.GateDiagnosis,
					Approved:  true,
					Approver:  models.ActorSystem,
					Feedback:  fmt.Sprintf("auto-approved at confidence %.2f", st.Hypothesis.Confidence),
					Timestamp: e.now(),
				})
				metrics.ObserveApproval(string(models.GateDiagnosis), true)
				e.selectTop(st, models.ActorSystem, "advance")
				return nil
			}
			st.Status = models.StatusAwaitingApproval
			e.transition(st, models.StageAwaitingDiagnosisApproval, "awaiting diagnosis approval")
			return nil
		}
		e.selectTop(st, models.ActorSystem, "advance")

	case models.StageSelected:
		cand, ok := st.CandidateByID(st.SelectedID)
		if !ok {
			return fmt.Errorf("selected candidate %s not in candidate list", st.SelectedID)
		}
		p, ok := e.playbook(cand.ID)
		if !ok {
			return fmt.Errorf("candidate %s has no playbook in the catalog", cand.ID)
		}
		plan, err := engine.SynthesizePlan(cand, p, st.Bundle)
		if err != nil {
			if errors.Is(err, engine.ErrMissingParameter) {
				st.Errors = append(st.Errors, models.WorkflowError{
					Stage:     models.StagePlanned,
					Message:   err.Error(),
					Timestamp: e.now(),
				})
				st.Status = models.StatusStopped
				e.transition(st, models.StagePlanned, "plan synthesis failed: "+err.Error())
			}
			return err
		}
		st.Plan = &plan
		projected := engine.BuildOutcome(st.Bundle.Metrics, cand.Predicted)
		st.Outcome = &projected
		e.transition(st, models.StagePlanned,
			fmt.Sprintf("plan %s synthesized for candidate %s", plan.Action, cand.ID))

	case models.StagePlanned:
		if e.cfg.GateCommand {
			st.Status = models.StatusAwaitingApproval
			e.transition(st, models.StageAwaitingCommandApproval, "awaiting command approval")
			return nil
		}
		e.transition(st, models.StageExecuting, "execution started")

	case models.StageExecuting:
		st.Execution = &models.ExecutionRecord{
			Status:          "succeeded",
			Message:         "simulated execution, no device commands issued",
			CommandsApplied: len(st.Plan.Steps),
			VerificationOK:  true,
			ExecutedAt:      e.now(),
		}
		e.transition(st, models.StageExecuted,
			fmt.Sprintf("%d plan steps applied", st.Execution.CommandsApplied))

	case models.StageExecuted:
		st.Report = report.Render(*st)
		e.transition(st, models.StageReported, "incident report rendered")

	case models.StageReported:
		st.Status = models.StatusCompleted
		e.transition(st, models.StageCompleted, "workflow completed")

	default:
		return fmt.Errorf("no transition from stage %s", st.Stage)
	}
	return nil
}

// selectTop commits the candidate choice: the operator override when one
// was recorded, otherwise the highest-ranked policy-compliant candidate.
// With no eligible candidate the workflow stops.
func (e *Engine) selectTop(st *models.IncidentState, actor, action string) {
	chosen := st.SelectedID
	if chosen == "" {
		for _, c := range st.Candidates {
			if c.Verdict != nil && c.Verdict.OK {
				chosen = c.ID
				break
			}
		}
	}
	if chosen == "" {
		st.Status = models.StatusStopped
		e.transitionWith(st, models.StageStopped, actor, action, "no policy-compliant candidate available")
		return
	}
	st.SelectedID = chosen
	e.transitionWith(st, models.StageSelected, actor, action, "candidate "+chosen+" selected")
}

func (e *Engine) fail(st *models.IncidentState, cause error) {
	st.Errors = append(st.Errors, models.WorkflowError{
		Stage:     st.Stage,
		Message:   cause.Error(),
		Timestamp: e.now(),
	})
	st.Status = models.StatusFailed
	e.transitionWith(st, models.StageFailed, models.ActorSystem, "error", cause.Error())
	e.logger.Error("workflow failed",
		slog.String("incident_id", st.IncidentID),
		slog.String("error", cause.Error()))
}

func (e *Engine) transition(st *models.IncidentState, next models.Stage, detail string) {
	e.transitionWith(st, next, models.ActorSystem, "advance", detail)
}

func (e *Engine) transitionWith(st *models.IncidentState, next models.Stage, actor, action, detail string) {
	st.Stage = next
	e.appendAudit(st, actor, action, detail)
	metrics.ObserveTransition(string(next))
	e.logger.Debug("stage transition",
		slog.String("incident_id", st.IncidentID),
		slog.String("stage", string(next)))
}

func (e *Engine) appendAudit(st *models.IncidentState, actor, action, detail string) {
	st.UpdatedAt = e.now()
	st.Audit = append(st.Audit, models.AuditEntry{
		ID:        e.newID(),
		Timestamp: st.UpdatedAt,
		Stage:     st.Stage,
		Actor:     actor,
		Action:    action,
		Detail:    detail,
	})
}

func (e *Engine) playbook(id string) (catalog.Playbook, bool) {
	for _, p := range e.cat.All() {
		if p.ID == id {
			return p, true
		}
	}
	return catalog.Playbook{}, false
}
