/*-------------------------------------------------------------------------
 *
 * state.go
 *    Workflow state machine types
 *
 * Defines the stage states, the typed routing values stages return, the
 * per-run mutable workflow state, and the structured results callers
 * receive. Routing is carried by Route values, never by matching on
 * strings or error text.
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/workflow/state.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/nmkridler/fernlabs-api/internal/db"
	"github.com/nmkridler/fernlabs-api/internal/plan"
)

/* State identifies one stage of the plan workflow */
type State int

const (
	StateCreatePlan State = iota
	StateAssessPlan
	StateWaitForUserInput
	StateEditPlan
	StateExecutePlanStep
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateCreatePlan:
		return "CreatePlan"
	case StateAssessPlan:
		return "AssessPlan"
	case StateWaitForUserInput:
		return "WaitForUserInput"
	case StateEditPlan:
		return "EditPlan"
	case StateExecutePlanStep:
		return "ExecutePlanStep"
	case StateEnd:
		return "End"
	default:
		return "Unknown"
	}
}

/* Run outcome discriminants */
const (
	OutcomeCompleted       = "completed"
	OutcomeWaitingForInput = "waiting_for_input"
	OutcomeFailed          = "failed"
)

/* Halt is the terminal payload a stage returns when the run ends or
 * pauses at a human-in-the-loop checkpoint */
type Halt struct {
	Status           string
	Plan             string
	MermaidChart     string
	FollowupQuestion string
	Message          string
	WorkflowPaused   bool
}

/* Route is the tagged routing decision a stage returns: either the next
 * state to dispatch, or a Halt payload ending the run */
type Route struct {
	next State
	halt *Halt
}

/* RouteTo routes to the named next state */
func RouteTo(next State) Route {
	return Route{next: next}
}

/* RouteHalt ends the run with the given payload */
func RouteHalt(halt Halt) Route {
	return Route{next: StateEnd, halt: &halt}
}

func (r Route) label() string {
	if r.halt != nil {
		return "End:" + r.halt.Status
	}
	return r.next.String()
}

/* ChatMessage is one entry of the conversation driving plan creation */
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

/* PlanResult is the finalized plan attached to a completed run */
type PlanResult struct {
	Plan         string `json:"plan"`
	MermaidChart string `json:"mermaid_chart"`
}

/* WorkflowState carries everything a stage reads and writes during one
 * run. It is constructed fresh per Run/Resume call, exclusively owned by
 * that call, and discarded when the call returns. */
type WorkflowState struct {
	UserID               uuid.UUID
	ProjectID            uuid.UUID
	ChatHistory          []ChatMessage
	CurrentPlan          string
	MermaidChart         string
	PlanNeedsImprovement bool
	FollowupQuestion     string
	UserResponse         string
	FinalPlan            *PlanResult
	CurrentStepID        *int
	ExecutionPath        []int
}

/* RunResult is the structured outcome of a Run or Resume call */
type RunResult struct {
	Status           string      `json:"status"`
	Completed        bool        `json:"completed"`
	Output           *PlanResult `json:"output,omitempty"`
	MermaidChart     string      `json:"mermaid_chart,omitempty"`
	WaitingForInput  bool        `json:"waiting_for_input,omitempty"`
	FollowupQuestion string      `json:"followup_question,omitempty"`
	Message          string      `json:"message,omitempty"`
	WorkflowPaused   bool        `json:"workflow_paused,omitempty"`
}

/* DiagramSource tags which of the two diagram kinds RenderDiagram built */
type DiagramSource string

const (
	DiagramSourcePlan     DiagramSource = "plan"
	DiagramSourceTopology DiagramSource = "topology"
)

/* Diagram is a tagged rendering result: a diagram of stored plan content,
 * or of the state machine topology itself */
type Diagram struct {
	Source       DiagramSource `json:"source"`
	MermaidChart string        `json:"mermaid_chart"`
}

/* Store is the persistence adapter contract the stages require. The
 * db package provides the PostgreSQL implementation. */
type Store interface {
	ReplacePlan(ctx context.Context, projectID, userID uuid.UUID, steps []string) error
	SaveConnections(ctx context.Context, projectID uuid.UUID, connections []plan.Connection, stepCount int) error
	AppendAgentCall(ctx context.Context, projectID uuid.UUID, prompt, response string) error
	SetProjectStatus(ctx context.Context, projectID uuid.UUID, status string) error
	SaveProjectDiagram(ctx context.Context, projectID uuid.UUID, mermaidChart string) error
	GetProjectPlan(ctx context.Context, userID, projectID uuid.UUID) ([]db.PlanStep, error)
	GetNextSteps(ctx context.Context, projectID uuid.UUID, currentStepID int) ([]db.NextStep, error)
	ListAgentCalls(ctx context.Context, projectID uuid.UUID, limit int) ([]db.AgentCall, error)
	CreateWorkflow(ctx context.Context, workflow *db.Workflow) error
	ListProjectWorkflows(ctx context.Context, userID, projectID uuid.UUID) ([]db.Workflow, error)
}
