/*-------------------------------------------------------------------------
 *
 * handlers.go
 *    API handlers for the fernlabs plan workflow
 *
 * HTTP handlers for running and resuming plan workflows, rendering
 * diagrams, and reading plan and agent call summaries.
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/api/handlers.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/nmkridler/fernlabs-api/internal/db"
	"github.com/nmkridler/fernlabs-api/internal/metrics"
	"github.com/nmkridler/fernlabs-api/internal/workflow"
)

const maxBodySize = 1024 * 1024

type Handlers struct {
	queries      *db.Queries
	orchestrator *workflow.Orchestrator
}

func NewHandlers(queries *db.Queries, orchestrator *workflow.Orchestrator) *Handlers {
	return &Handlers{
		queries:      queries,
		orchestrator: orchestrator,
	}
}

/* Request and response shapes */

type RunWorkflowRequest struct {
	UserID       uuid.UUID              `json:"user_id"`
	ChatHistory  []workflow.ChatMessage `json:"chat_history"`
	UserResponse string                 `json:"user_response,omitempty"`
}

type ResumeWorkflowRequest struct {
	UserID           uuid.UUID              `json:"user_id"`
	ChatHistory      []workflow.ChatMessage `json:"chat_history,omitempty"`
	CurrentPlan      string                 `json:"current_plan,omitempty"`
	FollowupQuestion string                 `json:"followup_question,omitempty"`
	UserResponse     string                 `json:"user_response"`
}

type ProjectResponse struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	Status       string    `json:"status"`
	MermaidChart *string   `json:"mermaid_chart,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type WorkflowResponse struct {
	ID             uuid.UUID              `json:"id"`
	ProjectID      uuid.UUID              `json:"project_id"`
	Name           string                 `json:"name"`
	WorkflowGraph  map[string]interface{} `json:"workflow_graph"`
	StateSchema    map[string]interface{} `json:"state_schema"`
	DecisionPoints map[string]interface{} `json:"decision_points"`
	Version        string                 `json:"version"`
	Status         string                 `json:"status"`
	AIModelUsed    *string                `json:"ai_model_used,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

/* Workflow runs */

func (h *Handlers) RunWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	projectID, ok := pathUUID(w, r, "project_id")
	if !ok {
		return
	}

	var req RunWorkflowRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, NewError(http.StatusBadRequest, "request body parsing failed", err))
		return
	}
	if req.UserID == uuid.Nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "user_id is required", nil), requestID))
		return
	}
	if len(req.ChatHistory) == 0 {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "chat_history must not be empty", nil), requestID))
		return
	}

	ctx := metrics.WithUserIDLogContext(r.Context(), req.UserID)
	ctx = metrics.WithProjectIDLogContext(ctx, projectID)

	result, err := h.orchestrator.Run(ctx, req.UserID, projectID, req.ChatHistory, req.UserResponse)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "workflow run failed", err), requestID))
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) ResumeWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	projectID, ok := pathUUID(w, r, "project_id")
	if !ok {
		return
	}

	var req ResumeWorkflowRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, NewError(http.StatusBadRequest, "request body parsing failed", err))
		return
	}
	if req.UserID == uuid.Nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "user_id is required", nil), requestID))
		return
	}

	ctx := metrics.WithUserIDLogContext(r.Context(), req.UserID)
	ctx = metrics.WithProjectIDLogContext(ctx, projectID)

	/* A resume without the plan text rebuilds it from the stored steps,
	 * so clients only need to echo the followup question. */
	currentPlan := req.CurrentPlan
	if currentPlan == "" {
		steps, err := h.queries.GetProjectPlan(ctx, req.UserID, projectID)
		if err != nil {
			respondError(w, WrapError(NewError(http.StatusInternalServerError, "plan lookup failed", err), requestID))
			return
		}
		currentPlan = planTextFromSteps(steps)
	}

	result, err := h.orchestrator.Resume(ctx, req.UserID, projectID, req.ChatHistory,
		currentPlan, req.FollowupQuestion, req.UserResponse)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "workflow resume failed", err), requestID))
		return
	}
	respondJSON(w, http.StatusOK, result)
}

/* Diagrams and summaries */

func (h *Handlers) GetDiagram(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	projectID, ok := pathUUID(w, r, "project_id")
	if !ok {
		return
	}
	userID := queryUUID(r, "user_id")

	diagram, err := h.orchestrator.RenderDiagram(r.Context(), userID, projectID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "diagram rendering failed", err), requestID))
		return
	}
	respondJSON(w, http.StatusOK, diagram)
}

func (h *Handlers) GetPlanSummary(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	projectID, ok := pathUUID(w, r, "project_id")
	if !ok {
		return
	}
	userID := queryUUID(r, "user_id")
	if userID == uuid.Nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "user_id query parameter is required", nil), requestID))
		return
	}

	summary, err := h.orchestrator.GetPlanSummary(r.Context(), userID, projectID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "plan summary failed", err), requestID))
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handlers) GetAgentCallSummary(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	projectID, ok := pathUUID(w, r, "project_id")
	if !ok {
		return
	}

	summary, err := h.orchestrator.GetAgentCallSummary(r.Context(), projectID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "agent call summary failed", err), requestID))
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

/* Projects and workflow snapshots */

func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	projectID, ok := pathUUID(w, r, "project_id")
	if !ok {
		return
	}

	project, err := h.queries.GetProject(r.Context(), projectID)
	if err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}
	respondJSON(w, http.StatusOK, toProjectResponse(project))
}

func (h *Handlers) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	projectID, ok := pathUUID(w, r, "project_id")
	if !ok {
		return
	}
	userID := queryUUID(r, "user_id")
	if userID == uuid.Nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "user_id query parameter is required", nil), requestID))
		return
	}

	workflows, err := h.queries.ListProjectWorkflows(r.Context(), userID, projectID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "workflow listing failed", err), requestID))
		return
	}

	responses := make([]WorkflowResponse, len(workflows))
	for i := range workflows {
		responses[i] = toWorkflowResponse(&workflows[i])
	}
	respondJSON(w, http.StatusOK, responses)
}

func (h *Handlers) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	workflowID, ok := pathUUID(w, r, "workflow_id")
	if !ok {
		return
	}
	userID := queryUUID(r, "user_id")
	if userID == uuid.Nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "user_id query parameter is required", nil), requestID))
		return
	}

	wf, err := h.queries.GetWorkflowByID(r.Context(), workflowID, userID)
	if err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}
	respondJSON(w, http.StatusOK, toWorkflowResponse(wf))
}

/* Helper functions */

func decodeBody(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodySize)
	return json.NewDecoder(r.Body).Decode(dst)
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		requestID := GetRequestID(r.Context())
		respondError(w, WrapError(NewError(http.StatusBadRequest, "invalid "+name, err), requestID))
		return uuid.Nil, false
	}
	return id, true
}

func queryUUID(r *http.Request, name string) uuid.UUID {
	id, err := uuid.Parse(r.URL.Query().Get(name))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func planTextFromSteps(steps []db.PlanStep) string {
	lines := make([]string, len(steps))
	for i, s := range steps {
		lines[i] = fmt.Sprintf("%d. %s", s.StepID, s.Text)
	}
	return strings.Join(lines, "\n")
}

func toProjectResponse(p *db.Project) ProjectResponse {
	return ProjectResponse{
		ID:           p.ID,
		UserID:       p.UserID,
		Name:         p.Name,
		Description:  p.Description,
		Status:       p.Status,
		MermaidChart: p.MermaidChart,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toWorkflowResponse(wf *db.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:             wf.ID,
		ProjectID:      wf.ProjectID,
		Name:           wf.Name,
		WorkflowGraph:  wf.WorkflowGraph.ToMap(),
		StateSchema:    wf.StateSchema.ToMap(),
		DecisionPoints: wf.DecisionPoints.ToMap(),
		Version:        wf.Version,
		Status:         wf.Status,
		AIModelUsed:    wf.AIModelUsed,
		CreatedAt:      wf.CreatedAt,
	}
}
