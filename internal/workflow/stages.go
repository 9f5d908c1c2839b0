/*-------------------------------------------------------------------------
 *
 * stages.go
 *    Plan workflow stage implementations
 *
 * One function per workflow stage. Each stage mutates the run's
 * WorkflowState, performs its generative and persistence calls, and
 * returns a typed Route naming the next stage or a terminal Halt.
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/workflow/stages.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nmkridler/fernlabs-api/internal/db"
	"github.com/nmkridler/fernlabs-api/internal/metrics"
	"github.com/nmkridler/fernlabs-api/internal/plan"
)

const (
	/* Plans at or below this size with purely linear connections skip
	 * assessment and go straight to execution. */
	simplePlanMaxSteps = 5

	/* Upper bound on executed steps per run. GetNextSteps follows the
	 * first stored connection, so a loop-back edge without a satisfied
	 * exit condition revisits steps forever without this bound. */
	executionPathLimit = 100

	/* Marker the assessment model emits when the plan needs no further
	 * refinement. Matched case-insensitively. */
	planCompleteMarker = "PLAN_COMPLETE"

	userResponsePreviewLen = 100
)

const createPlanSystemPrompt = `You are a planning assistant. Given a conversation about a project, produce a concrete, ordered plan of steps to accomplish it.

Respond with a JSON object of the form {"plan": "..."} where the plan value is the full plan text. Write each step on its own line, numbered (1. First step). Use conditional language (if, check, verify) where a step branches, and loop language (loop back to, repeat) where steps repeat.`

const assessPlanSystemPrompt = `You are a planning reviewer. Assess whether the plan below is complete, concrete, and actionable for the project described in the conversation.

If the plan is ready, respond with exactly PLAN_COMPLETE.
Otherwise respond with a single focused followup question whose answer would most improve the plan. Respond with the question text only.`

const editPlanSystemPrompt = `You are a planning assistant revising an existing plan. Incorporate the user's response to the followup question into a full revised plan. Keep steps that are still correct and rewrite the rest.

Respond with a JSON object of the form {"plan": "..."} containing the complete revised plan, not a diff. Write each step on its own line, numbered.`

/*
 * runCreatePlan generates the initial plan from the conversation, parses
 * and persists it, and routes to assessment. Small linear plans skip
 * assessment and route directly to execution.
 */
func (o *Orchestrator) runCreatePlan(ctx context.Context, st *WorkflowState) (Route, error) {
	if err := o.store.SetProjectStatus(ctx, st.ProjectID, db.ProjectStatusLoading); err != nil {
		return Route{}, err
	}

	response, err := o.generate(ctx, st, StateCreatePlan, createPlanSystemPrompt, buildCreatePrompt(st.ChatHistory))
	if err != nil {
		return Route{}, err
	}

	planText := extractPlanText(response)
	steps := plan.ParseSteps(planText)
	connections := plan.ConnectionsForSteps(steps)

	st.CurrentPlan = planText
	st.MermaidChart = plan.RenderWithConnections(steps, connections)

	if err := o.persistPlan(ctx, st, steps, connections); err != nil {
		return Route{}, err
	}

	if isSimplePlan(steps, connections) {
		metrics.InfoWithContext(ctx, "plan is simple, skipping assessment", map[string]interface{}{
			"steps": len(steps),
		})
		return RouteTo(StateExecutePlanStep), nil
	}
	return RouteTo(StateAssessPlan), nil
}

/*
 * runAssessPlan asks the model whether the current plan is ready. The
 * PLAN_COMPLETE marker finalizes the run; any other response becomes the
 * followup question and routes to WaitForUserInput.
 */
func (o *Orchestrator) runAssessPlan(ctx context.Context, st *WorkflowState) (Route, error) {
	assessment, err := o.generate(ctx, st, StateAssessPlan, assessPlanSystemPrompt, buildAssessPrompt(st))
	if err != nil {
		return Route{}, err
	}

	if strings.Contains(strings.ToUpper(assessment), planCompleteMarker) {
		st.PlanNeedsImprovement = false
		st.FollowupQuestion = ""
		st.FinalPlan = &PlanResult{Plan: st.CurrentPlan, MermaidChart: st.MermaidChart}

		/* The workflow graph snapshot is derived, regenerable state; a
		 * snapshot failure is logged without failing the completed run. */
		if err := o.snapshotWorkflow(ctx, st); err != nil {
			metrics.WarnWithContext(ctx, "workflow snapshot failed", map[string]interface{}{
				"error": err.Error(),
			})
		}

		if err := o.store.SetProjectStatus(ctx, st.ProjectID, db.ProjectStatusCompleted); err != nil {
			return Route{}, err
		}
		return RouteHalt(Halt{
			Status:       OutcomeCompleted,
			Plan:         st.CurrentPlan,
			MermaidChart: st.MermaidChart,
			Message:      "Plan complete",
		}), nil
	}

	st.PlanNeedsImprovement = true
	st.FollowupQuestion = strings.TrimSpace(assessment)
	return RouteTo(StateWaitForUserInput), nil
}

/*
 * runWaitForUserInput is the human-in-the-loop checkpoint. With a
 * non-blank user response it routes to EditPlan; otherwise it pauses the
 * run, re-emitting the pending followup question. Re-entering without a
 * response pauses again with the same question.
 */
func (o *Orchestrator) runWaitForUserInput(ctx context.Context, st *WorkflowState) (Route, error) {
	if strings.TrimSpace(st.UserResponse) != "" {
		if err := o.store.SetProjectStatus(ctx, st.ProjectID, db.ProjectStatusProcessing); err != nil {
			return Route{}, err
		}
		/* Transition marker in the audit trail; not a generative call. */
		if err := o.store.AppendAgentCall(ctx, st.ProjectID,
			"WaitForUserInput: user response received",
			"Proceeding to EditPlan with user response: "+preview(st.UserResponse, userResponsePreviewLen),
		); err != nil {
			metrics.WarnWithContext(ctx, "agent call log failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return RouteTo(StateEditPlan), nil
	}

	if err := o.store.SetProjectStatus(ctx, st.ProjectID, db.ProjectStatusNeedsInput); err != nil {
		return Route{}, err
	}
	return RouteHalt(Halt{
		Status:           OutcomeWaitingForInput,
		FollowupQuestion: st.FollowupQuestion,
		Message:          "Please provide additional information to continue",
		WorkflowPaused:   true,
	}), nil
}

/*
 * runEditPlan revises the plan with the user's response, replaces the
 * stored plan wholesale, clears the consumed response and pending
 * question, and routes back to assessment.
 */
func (o *Orchestrator) runEditPlan(ctx context.Context, st *WorkflowState) (Route, error) {
	if err := o.store.SetProjectStatus(ctx, st.ProjectID, db.ProjectStatusLoading); err != nil {
		return Route{}, err
	}

	response, err := o.generate(ctx, st, StateEditPlan, editPlanSystemPrompt, buildEditPrompt(st))
	if err != nil {
		return Route{}, err
	}

	planText := extractPlanText(response)
	steps := plan.ParseSteps(planText)
	connections := plan.ConnectionsForSteps(steps)

	st.CurrentPlan = planText
	st.MermaidChart = plan.RenderWithConnections(steps, connections)
	st.PlanNeedsImprovement = false
	st.FollowupQuestion = ""
	st.UserResponse = ""

	if err := o.persistPlan(ctx, st, steps, connections); err != nil {
		return Route{}, err
	}
	return RouteTo(StateAssessPlan), nil
}

/*
 * runExecutePlanStep walks the stored plan graph one connection at a
 * time. A step with no outgoing connections completes the run; a
 * conditional connection pauses for a decision; the execution path bound
 * converts suspected infinite loops into an explicit failure.
 */
func (o *Orchestrator) runExecutePlanStep(ctx context.Context, st *WorkflowState) (Route, error) {
	if st.CurrentStepID == nil {
		first := 1
		st.CurrentStepID = &first
		st.ExecutionPath = append(st.ExecutionPath, first)
	}

	next, err := o.store.GetNextSteps(ctx, st.ProjectID, *st.CurrentStepID)
	if err != nil {
		return Route{}, err
	}

	if len(next) == 0 {
		if err := o.store.SetProjectStatus(ctx, st.ProjectID, db.ProjectStatusCompleted); err != nil {
			return Route{}, err
		}
		return RouteHalt(Halt{
			Status:       OutcomeCompleted,
			Plan:         st.CurrentPlan,
			MermaidChart: st.MermaidChart,
			Message:      "Plan execution completed",
		}), nil
	}

	chosen := next[0]
	if chosen.ConnectionType == string(plan.ConnectionConditional) {
		condition := "condition met"
		if chosen.Condition != nil {
			condition = *chosen.Condition
		}
		st.PlanNeedsImprovement = true
		st.FollowupQuestion = fmt.Sprintf("Decision required before step %d (%s): %s",
			chosen.StepID, condition, chosen.Text)
		return RouteTo(StateWaitForUserInput), nil
	}

	if err := o.store.AppendAgentCall(ctx, st.ProjectID,
		fmt.Sprintf("ExecutePlanStep: advancing to step %d", chosen.StepID),
		"Step executed: "+chosen.Text,
	); err != nil {
		metrics.WarnWithContext(ctx, "agent call log failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	stepID := chosen.StepID
	st.CurrentStepID = &stepID
	st.ExecutionPath = append(st.ExecutionPath, stepID)

	if len(st.ExecutionPath) > executionPathLimit {
		if err := o.store.SetProjectStatus(ctx, st.ProjectID, db.ProjectStatusFailed); err != nil {
			return Route{}, err
		}
		return RouteHalt(Halt{
			Status:  OutcomeFailed,
			Message: fmt.Sprintf("execution aborted after %d steps: plan appears to loop without terminating", executionPathLimit),
		}), nil
	}
	return RouteTo(StateExecutePlanStep), nil
}

/*
 * generate wraps one call to the language model with timing, metrics,
 * and the append-only agent call audit trail. Failed calls are recorded
 * with an "Error: " prefixed response so summaries can classify them.
 * Audit writes are best-effort and never fail the stage.
 */
func (o *Orchestrator) generate(ctx context.Context, st *WorkflowState, stage State, systemPrompt, prompt string) (string, error) {
	started := time.Now()
	response, err := o.generator.Generate(ctx, systemPrompt, prompt)
	elapsed := time.Since(started)

	if err != nil {
		metrics.RecordLLMCall(stage.String(), "error", elapsed)
		if logErr := o.store.AppendAgentCall(ctx, st.ProjectID, prompt, "Error: "+err.Error()); logErr != nil {
			metrics.WarnWithContext(ctx, "agent call log failed", map[string]interface{}{
				"error": logErr.Error(),
			})
		}
		return "", fmt.Errorf("model call failed in %s: %w", stage, err)
	}

	metrics.RecordLLMCall(stage.String(), "success", elapsed)
	metrics.DebugWithContext(ctx, "model call succeeded", map[string]interface{}{
		"stage":       stage.String(),
		"duration_ms": elapsed.Milliseconds(),
	})
	if logErr := o.store.AppendAgentCall(ctx, st.ProjectID, prompt, response); logErr != nil {
		metrics.WarnWithContext(ctx, "agent call log failed", map[string]interface{}{
			"error": logErr.Error(),
		})
	}
	return response, nil
}

/* persistPlan replaces the stored plan, its connections, and the project
 * diagram in step order. */
func (o *Orchestrator) persistPlan(ctx context.Context, st *WorkflowState, steps []string, connections []plan.Connection) error {
	if err := o.store.ReplacePlan(ctx, st.ProjectID, st.UserID, steps); err != nil {
		return err
	}
	if err := o.store.SaveConnections(ctx, st.ProjectID, connections, len(steps)); err != nil {
		return err
	}
	return o.store.SaveProjectDiagram(ctx, st.ProjectID, st.MermaidChart)
}

/* isSimplePlan reports whether a plan is small and purely linear. */
func isSimplePlan(steps []string, connections []plan.Connection) bool {
	if len(steps) == 0 || len(steps) > simplePlanMaxSteps {
		return false
	}
	for _, c := range connections {
		if c.Type == plan.ConnectionConditional || c.Type == plan.ConnectionLoopBack {
			return false
		}
	}
	return true
}

/*
 * extractPlanText pulls the plan out of a model response. Responses are
 * requested as {"plan": "..."} JSON; anything that does not parse that
 * way is used verbatim, so a model ignoring the format still yields a
 * usable plan.
 */
func extractPlanText(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		var parsed struct {
			Plan string `json:"plan"`
		}
		if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err == nil && strings.TrimSpace(parsed.Plan) != "" {
			return strings.TrimSpace(parsed.Plan)
		}
	}
	return strings.TrimSpace(response)
}

func buildCreatePrompt(history []ChatMessage) string {
	var b strings.Builder
	b.WriteString("Conversation:\n")
	for _, msg := range history {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	b.WriteString("\nCreate a plan for this project.")
	return b.String()
}

func buildAssessPrompt(st *WorkflowState) string {
	var b strings.Builder
	b.WriteString("Conversation:\n")
	for _, msg := range st.ChatHistory {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	b.WriteString("\nCurrent plan:\n")
	b.WriteString(st.CurrentPlan)
	return b.String()
}

func buildEditPrompt(st *WorkflowState) string {
	var b strings.Builder
	b.WriteString("Current plan:\n")
	b.WriteString(st.CurrentPlan)
	b.WriteString("\n\nFollowup question:\n")
	b.WriteString(st.FollowupQuestion)
	b.WriteString("\n\nUser response:\n")
	b.WriteString(st.UserResponse)
	b.WriteString("\n\nRevise the plan accordingly.")
	return b.String()
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
