/*-------------------------------------------------------------------------
 *
 * orchestrator.go
 *    Plan workflow orchestrator
 *
 * Owns the stage transition table and drives runs through it. The table
 * is built once at construction and never mutated afterwards; each
 * Run/Resume call owns its WorkflowState exclusively, so a single
 * orchestrator serves concurrent runs.
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/workflow/orchestrator.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nmkridler/fernlabs-api/internal/db"
	"github.com/nmkridler/fernlabs-api/internal/llm"
	"github.com/nmkridler/fernlabs-api/internal/metrics"
	"github.com/nmkridler/fernlabs-api/internal/plan"
)

/* Bound on stage dispatches per run. The stage graph is finite once
 * user input is consumed, and ExecutePlanStep enforces its own path
 * bound, so a run hitting this limit indicates a routing bug. */
const maxStageHops = 256

type stageFunc func(ctx context.Context, st *WorkflowState) (Route, error)

/* Orchestrator drives the plan workflow state machine */
type Orchestrator struct {
	store       Store
	generator   llm.Generator
	modelName   string
	transitions map[State]stageFunc
}

/* New builds an orchestrator over the given persistence adapter and
 * model client. modelName is recorded on workflow snapshots. */
func New(store Store, generator llm.Generator, modelName string) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		generator: generator,
		modelName: modelName,
	}
	o.transitions = map[State]stageFunc{
		StateCreatePlan:       o.runCreatePlan,
		StateAssessPlan:       o.runAssessPlan,
		StateWaitForUserInput: o.runWaitForUserInput,
		StateEditPlan:         o.runEditPlan,
		StateExecutePlanStep:  o.runExecutePlanStep,
	}
	return o
}

/*
 * Run starts a fresh workflow run at CreatePlan for the given project
 * and conversation. A non-blank userResponse is carried into the first
 * WaitForUserInput checkpoint the run reaches. Run returns when the run
 * completes, pauses for user input, or fails.
 */
func (o *Orchestrator) Run(ctx context.Context, userID, projectID uuid.UUID, chatHistory []ChatMessage, userResponse string) (*RunResult, error) {
	st := &WorkflowState{
		UserID:       userID,
		ProjectID:    projectID,
		ChatHistory:  chatHistory,
		UserResponse: userResponse,
	}
	return o.execute(ctx, StateCreatePlan, st)
}

/*
 * Resume re-enters a paused workflow at WaitForUserInput with the
 * user's response and the pending followup question. A blank response
 * pauses again with the same question.
 */
func (o *Orchestrator) Resume(ctx context.Context, userID, projectID uuid.UUID, chatHistory []ChatMessage, currentPlan, followupQuestion, userResponse string) (*RunResult, error) {
	st := &WorkflowState{
		UserID:               userID,
		ProjectID:            projectID,
		ChatHistory:          chatHistory,
		CurrentPlan:          currentPlan,
		PlanNeedsImprovement: true,
		FollowupQuestion:     followupQuestion,
		UserResponse:         userResponse,
	}
	return o.execute(ctx, StateWaitForUserInput, st)
}

/*
 * execute dispatches stages from the transition table until a stage
 * halts. Stage errors converge here: this is the only place a run is
 * converted to a failed outcome, so no stage continues past a failure
 * it did not explicitly choose to absorb.
 */
func (o *Orchestrator) execute(ctx context.Context, start State, st *WorkflowState) (*RunResult, error) {
	entry := start.String()
	state := start

	for hops := 0; hops < maxStageHops; hops++ {
		stage, ok := o.transitions[state]
		if !ok {
			return o.fail(ctx, st, entry, fmt.Errorf("no stage registered for state %s", state))
		}

		stageCtx := metrics.WithStageLogContext(ctx, state.String())
		metrics.DebugWithContext(stageCtx, "entering stage", nil)

		route, err := stage(stageCtx, st)
		if err != nil {
			return o.fail(stageCtx, st, entry, err)
		}

		metrics.RecordStageTransition(state.String(), route.label())

		if route.halt != nil {
			halt := route.halt
			metrics.RecordWorkflowRun(entry, halt.Status)
			metrics.InfoWithContext(stageCtx, "workflow run ended", map[string]interface{}{
				"outcome": halt.Status,
			})
			return &RunResult{
				Status:           halt.Status,
				Completed:        halt.Status == OutcomeCompleted,
				Output:           st.FinalPlan,
				MermaidChart:     halt.MermaidChart,
				WaitingForInput:  halt.Status == OutcomeWaitingForInput,
				FollowupQuestion: halt.FollowupQuestion,
				Message:          halt.Message,
				WorkflowPaused:   halt.WorkflowPaused,
			}, nil
		}
		state = route.next
	}
	return o.fail(ctx, st, entry, fmt.Errorf("run exceeded %d stage dispatches", maxStageHops))
}

/* fail marks the project failed, records the run, and surfaces the error */
func (o *Orchestrator) fail(ctx context.Context, st *WorkflowState, entry string, err error) (*RunResult, error) {
	metrics.ErrorWithContext(ctx, "workflow run failed", err, nil)
	metrics.RecordWorkflowRun(entry, OutcomeFailed)
	if statusErr := o.store.SetProjectStatus(ctx, st.ProjectID, db.ProjectStatusFailed); statusErr != nil {
		metrics.WarnWithContext(ctx, "failed to mark project failed", map[string]interface{}{
			"error": statusErr.Error(),
		})
	}
	return nil, fmt.Errorf("workflow run failed: %w", err)
}

/*
 * RenderDiagram returns the project's stored plan as a mermaid diagram
 * when one exists, and otherwise the static topology of the workflow
 * state machine. The result is tagged with which of the two it is.
 */
func (o *Orchestrator) RenderDiagram(ctx context.Context, userID, projectID uuid.UUID) (*Diagram, error) {
	if userID != uuid.Nil && projectID != uuid.Nil {
		steps, err := o.store.GetProjectPlan(ctx, userID, projectID)
		if err != nil {
			metrics.WarnWithContext(ctx, "plan lookup failed, falling back to topology diagram", map[string]interface{}{
				"error": err.Error(),
			})
		} else if len(steps) > 0 {
			stored := make([]plan.StoredStep, len(steps))
			for i, s := range steps {
				stored[i] = plan.StoredStep{StepID: s.StepID, Text: s.Text}
			}
			return &Diagram{
				Source:       DiagramSourcePlan,
				MermaidChart: plan.RenderStoredSteps(stored),
			}, nil
		}
	}
	return &Diagram{
		Source:       DiagramSourceTopology,
		MermaidChart: TopologyChart(),
	}, nil
}

/* TopologyChart renders the workflow state machine itself as mermaid.
 * Decision stages use brace nodes, entry and terminal states stadium
 * nodes. */
func TopologyChart() string {
	return `flowchart TD
    CreatePlan([CreatePlan])
    AssessPlan{AssessPlan}
    WaitForUserInput{WaitForUserInput}
    EditPlan[EditPlan]
    ExecutePlanStep[ExecutePlanStep]
    End([End])
    CreatePlan -->|Plan Created - Needs Review| AssessPlan
    CreatePlan -->|Plan Created - Ready to Execute| ExecutePlanStep
    AssessPlan -->|Plan Complete| End
    AssessPlan -->|Needs Followup| WaitForUserInput
    WaitForUserInput -->|User Responded| EditPlan
    WaitForUserInput -->|Waiting for Input| End
    EditPlan -->|Plan Updated| AssessPlan
    ExecutePlanStep -->|Continue Execution| ExecutePlanStep
    ExecutePlanStep -->|Decision Required| WaitForUserInput
    ExecutePlanStep -->|Execution Complete| End`
}
