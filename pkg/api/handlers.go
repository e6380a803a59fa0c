package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/clearstream/workflow-indexer/pkg/app/errors"
	apphttp "github.com/clearstream/workflow-indexer/pkg/app/http"
	"github.com/clearstream/workflow-indexer/pkg/db"
	"github.com/clearstream/workflow-indexer/pkg/workflow"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

type workflowResponse struct {
	WorkflowID        string  `json:"workflowId"`
	Status            string  `json:"status"`
	Initiator         string  `json:"initiator,omitempty"`
	StartedAt         uint64  `json:"startedAt"`
	CompletedAt       *uint64 `json:"completedAt,omitempty"`
	FailureReason     *string `json:"failureReason,omitempty"`
	LastEventBlock    uint64  `json:"lastEventBlock"`
	LastEventLogIndex uint    `json:"lastEventLogIndex"`
}

type eventResponse struct {
	TxHash         string           `json:"txHash"`
	LogIndex       uint             `json:"logIndex"`
	EventType      string           `json:"eventType"`
	Payload        workflow.Payload `json:"payload,omitempty"`
	BlockNumber    uint64           `json:"blockNumber"`
	TxIndex        uint             `json:"txIndex"`
	BlockTimestamp uint64           `json:"blockTimestamp"`
}

type workflowDetailResponse struct {
	Workflow    workflowResponse `json:"workflow"`
	Decisions   []eventResponse  `json:"decisions"`
	Settlements []eventResponse  `json:"settlements"`
}

type statsResponse struct {
	Total     int64 `json:"total"`
	Running   int64 `json:"running"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

type progressResponse struct {
	LastProcessedBlock uint64 `json:"lastProcessedBlock"`
	TotalEvents        int64  `json:"totalEvents"`
	TotalWorkflows     int64  `json:"totalWorkflows"`
}

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) error {
	limit, offset, err := pagination(r)
	if err != nil {
		return err
	}

	states, err := s.store.ListWorkflowStates(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("Failed to list workflows", zap.Error(err))
		return apperrors.GeneralError(err)
	}

	workflows := make([]workflowResponse, 0, len(states))
	for _, st := range states {
		workflows = append(workflows, toWorkflowResponse(st))
	}
	return apphttp.WriteJSON(w, map[string]any{"workflows": workflows})
}

func (s *Server) getWorkflow(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	if id == "" {
		return apperrors.BadRequestError(nil, "workflow id is required")
	}

	state, err := s.store.GetWorkflowState(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		return apperrors.ResourceNotFoundError(err, "workflow not found")
	}
	if err != nil {
		s.logger.Error("Failed to get workflow", zap.Error(err), zap.String("id", id))
		return apperrors.GeneralError(err)
	}

	events, err := s.store.ListEventsByWorkflow(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to list workflow events", zap.Error(err), zap.String("id", id))
		return apperrors.GeneralError(err)
	}

	resp := workflowDetailResponse{
		Workflow:    toWorkflowResponse(state),
		Decisions:   make([]eventResponse, 0),
		Settlements: make([]eventResponse, 0),
	}
	for _, ev := range events {
		er := toEventResponse(ev)
		switch ev.Type {
		case workflow.EventWorkflowStarted, workflow.EventDecisionRecorded:
			resp.Decisions = append(resp.Decisions, er)
		case workflow.EventPaymentExecuted, workflow.EventWorkflowCompleted, workflow.EventWorkflowFailed:
			resp.Settlements = append(resp.Settlements, er)
		}
	}
	return apphttp.WriteJSON(w, resp)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) error {
	counts, err := s.store.CountWorkflowsByStatus(r.Context())
	if err != nil {
		s.logger.Error("Failed to count workflows", zap.Error(err))
		return apperrors.GeneralError(err)
	}

	// REJECTED workflows count as failed in the aggregate view.
	stats := statsResponse{
		Running:   counts[workflow.StatusRunning],
		Completed: counts[workflow.StatusCompleted],
		Failed:    counts[workflow.StatusFailed] + counts[workflow.StatusRejected],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return apphttp.WriteJSON(w, stats)
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) error {
	sys, err := s.store.GetSystemState(r.Context())
	if err != nil {
		s.logger.Error("Failed to get system state", zap.Error(err))
		return apperrors.GeneralError(err)
	}

	totalEvents, err := s.store.CountEvents(r.Context())
	if err != nil {
		s.logger.Error("Failed to count events", zap.Error(err))
		return apperrors.GeneralError(err)
	}

	totalWorkflows, err := s.store.CountWorkflows(r.Context())
	if err != nil {
		s.logger.Error("Failed to count workflows", zap.Error(err))
		return apperrors.GeneralError(err)
	}

	resp := progressResponse{
		TotalEvents:    totalEvents,
		TotalWorkflows: totalWorkflows,
	}
	if sys != nil {
		resp.LastProcessedBlock = sys.LastProcessedBlock
	}
	return apphttp.WriteJSON(w, resp)
}

func pagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return 0, 0, apperrors.BadRequestError(err, "invalid limit")
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, apperrors.BadRequestError(err, "invalid offset")
		}
	}
	return limit, offset, nil
}

func toWorkflowResponse(st *workflow.State) workflowResponse {
	return workflowResponse{
		WorkflowID:        st.WorkflowID,
		Status:            string(st.Status),
		Initiator:         st.Initiator,
		StartedAt:         st.StartedAt,
		CompletedAt:       st.CompletedAt,
		FailureReason:     st.FailureReason,
		LastEventBlock:    st.LastEventBlock,
		LastEventLogIndex: st.LastEventLogIndex,
	}
}

func toEventResponse(ev workflow.Event) eventResponse {
	return eventResponse{
		TxHash:         ev.TxHash,
		LogIndex:       ev.LogIndex,
		EventType:      string(ev.Type),
		Payload:        ev.Payload,
		BlockNumber:    ev.BlockNumber,
		TxIndex:        ev.TxIndex,
		BlockTimestamp: ev.BlockTimestamp,
	}
}
