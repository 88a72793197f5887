package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/remedystack/remedy-engine/internal/engine"
	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/store"
	"github.com/remedystack/remedy-engine/internal/workflow"
)

type approveRequest struct {
	Approved bool   `json:"approved"`
	Approver string `json:"approver"`
	Feedback string `json:"feedback"`
}

type selectCandidateRequest struct {
	CandidateID string `json:"candidate_id"`
	Actor       string `json:"actor"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStart(c *gin.Context) {
	var bundle models.IncidentBundle
	if err := c.ShouldBindJSON(&bundle); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	started := time.Now()
	state, err := s.engine.Start(c.Request.Context(), bundle)
	s.tracker.Observe(time.Since(started))
	s.logger.Debug("workflow start handled",
		slog.String("incident_id", bundle.IncidentID),
		slog.Duration("duration", time.Since(started)),
		slog.Duration("p95", s.tracker.Percentile(95)))

	if err != nil {
		s.respondError(c, err, state)
		return
	}
	c.JSON(http.StatusCreated, state)
}

func (s *Server) handleList(c *gin.Context) {
	ids, err := s.engine.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err, models.IncidentState{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"incident_ids": ids})
}

func (s *Server) handleStatus(c *gin.Context) {
	state, err := s.engine.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, models.IncidentState{})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleHistory(c *gin.Context) {
	entries, err := s.engine.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, models.IncidentState{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit": entries})
}

func (s *Server) handleReport(c *gin.Context) {
	state, err := s.engine.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, models.IncidentState{})
		return
	}
	if state.Report == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not yet available", "stage": state.Stage})
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(state.Report))
}

func (s *Server) handleApprove(c *gin.Context) {
	gate := models.Gate(c.Param("gate"))
	if gate != models.GateDiagnosis && gate != models.GateCommand {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown gate: " + c.Param("gate")})
		return
	}

	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Approver == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "approver is required"})
		return
	}

	state, err := s.engine.Approve(c.Request.Context(), c.Param("id"), gate, req.Approved, req.Approver, req.Feedback)
	if err != nil {
		s.respondError(c, err, state)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleSelectCandidate(c *gin.Context) {
	var req selectCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.CandidateID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "candidate_id is required"})
		return
	}
	actor := req.Actor
	if actor == "" {
		actor = "operator"
	}

	state, err := s.engine.SelectCandidate(c.Request.Context(), c.Param("id"), req.CandidateID, actor)
	if err != nil {
		s.respondError(c, err, state)
		return
	}
	c.JSON(http.StatusOK, state)
}

// respondError maps engine and store errors onto HTTP statuses. Terminal
// outcomes reached through a surfaced error still carry the final state so
// callers see where the workflow stopped.
func (s *Server) respondError(c *gin.Context, err error, state models.IncidentState) {
	body := gin.H{"error": err.Error()}
	if state.IncidentID != "" {
		body["state"] = state
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, body)
	case errors.Is(err, workflow.ErrAlreadyExists),
		errors.Is(err, workflow.ErrInvalidStage),
		errors.Is(err, workflow.ErrRetryLimitExceeded),
		errors.Is(err, store.ErrConcurrentModification):
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, engine.ErrInvalidBundle),
		errors.Is(err, engine.ErrMissingParameter),
		errors.Is(err, workflow.ErrPolicySelectionRejected):
		c.JSON(http.StatusUnprocessableEntity, body)
	default:
		s.logger.Error("request failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, body)
	}
}
