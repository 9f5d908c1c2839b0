/*-------------------------------------------------------------------------
 *
 * orchestrator_test.go
 *    Tests for the plan workflow state machine
 *
 * Drives the orchestrator with an in-memory store and a scripted model
 * client, covering completion, the human-in-the-loop pause and resume
 * cycle, plan execution, and failure handling.
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/workflow/orchestrator_test.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nmkridler/fernlabs-api/internal/db"
	"github.com/nmkridler/fernlabs-api/internal/plan"
)

/* fakeGenerator replays scripted responses in order */
type fakeGenerator struct {
	responses []string
	err       error
	prompts   []string
	calls     int
}

func (g *fakeGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "", fmt.Errorf("no scripted response left")
	}
	response := g.responses[0]
	g.responses = g.responses[1:]
	return response, nil
}

/* fakeStore is an in-memory Store */
type fakeStore struct {
	statuses   []string
	steps      []string
	conns      []plan.Connection
	diagram    string
	agentCalls []db.AgentCall
	nextSteps  map[int][]db.NextStep
	planRows   []db.PlanStep
	workflows  []db.Workflow
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextSteps: map[int][]db.NextStep{}}
}

func (s *fakeStore) ReplacePlan(ctx context.Context, projectID, userID uuid.UUID, steps []string) error {
	s.steps = append([]string(nil), steps...)
	return nil
}

func (s *fakeStore) SaveConnections(ctx context.Context, projectID uuid.UUID, connections []plan.Connection, stepCount int) error {
	s.conns = append([]plan.Connection(nil), connections...)
	return nil
}

func (s *fakeStore) AppendAgentCall(ctx context.Context, projectID uuid.UUID, prompt, response string) error {
	s.agentCalls = append(s.agentCalls, db.AgentCall{
		ID:        uuid.New(),
		ProjectID: projectID,
		Prompt:    prompt,
		Response:  response,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *fakeStore) SetProjectStatus(ctx context.Context, projectID uuid.UUID, status string) error {
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *fakeStore) SaveProjectDiagram(ctx context.Context, projectID uuid.UUID, mermaidChart string) error {
	s.diagram = mermaidChart
	return nil
}

func (s *fakeStore) GetProjectPlan(ctx context.Context, userID, projectID uuid.UUID) ([]db.PlanStep, error) {
	return s.planRows, nil
}

func (s *fakeStore) GetNextSteps(ctx context.Context, projectID uuid.UUID, currentStepID int) ([]db.NextStep, error) {
	return s.nextSteps[currentStepID], nil
}

func (s *fakeStore) ListAgentCalls(ctx context.Context, projectID uuid.UUID, limit int) ([]db.AgentCall, error) {
	if limit > 0 && limit < len(s.agentCalls) {
		return s.agentCalls[:limit], nil
	}
	return s.agentCalls, nil
}

func (s *fakeStore) CreateWorkflow(ctx context.Context, workflow *db.Workflow) error {
	s.workflows = append(s.workflows, *workflow)
	return nil
}

func (s *fakeStore) ListProjectWorkflows(ctx context.Context, userID, projectID uuid.UUID) ([]db.Workflow, error) {
	return s.workflows, nil
}

func (s *fakeStore) lastStatus() string {
	if len(s.statuses) == 0 {
		return ""
	}
	return s.statuses[len(s.statuses)-1]
}

const reviewPlan = `1. Gather requirements
2. Design the schema
3. Implement the API
4. Build the frontend
5. Write documentation
6. Deploy the service`

const simplePlan = `1. Install dependencies
2. Write the code
3. Deploy the service`

func planJSON(t *testing.T, planText string) string {
	t.Helper()
	data, err := json.Marshal(map[string]string{"plan": planText})
	require.NoError(t, err)
	return string(data)
}

func history() []ChatMessage {
	return []ChatMessage{{Role: "user", Content: "Build a todo service"}}
}

func TestRunCompletesWhenAssessmentApproves(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{responses: []string{planJSON(t, reviewPlan), "PLAN_COMPLETE"}}
	o := New(store, gen, "test-model")

	result, err := o.Run(context.Background(), uuid.New(), uuid.New(), history(), "")
	require.NoError(t, err)

	require.True(t, result.Completed)
	require.Equal(t, OutcomeCompleted, result.Status)
	require.NotNil(t, result.Output)
	require.Equal(t, reviewPlan, result.Output.Plan)
	require.NotEmpty(t, result.Output.MermaidChart)

	require.Len(t, store.steps, 6)
	require.Equal(t, db.ProjectStatusCompleted, store.lastStatus())
	require.NotEmpty(t, store.diagram)

	/* A completed plan produces one workflow snapshot */
	require.Len(t, store.workflows, 1)
	require.Equal(t, "test-model", *store.workflows[0].AIModelUsed)

	/* Both model calls land in the audit trail */
	require.GreaterOrEqual(t, len(store.agentCalls), 2)
}

func TestRunPausesWithFollowupQuestion(t *testing.T) {
	question := "What database should the service use?"
	store := newFakeStore()
	gen := &fakeGenerator{responses: []string{planJSON(t, reviewPlan), question}}
	o := New(store, gen, "test-model")

	result, err := o.Run(context.Background(), uuid.New(), uuid.New(), history(), "")
	require.NoError(t, err)

	require.False(t, result.Completed)
	require.True(t, result.WaitingForInput)
	require.True(t, result.WorkflowPaused)
	require.Equal(t, OutcomeWaitingForInput, result.Status)
	require.Equal(t, question, result.FollowupQuestion)
	require.Equal(t, db.ProjectStatusNeedsInput, store.lastStatus())
}

func TestResumeWithResponseEditsAndCompletes(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{responses: []string{planJSON(t, reviewPlan), "PLAN_COMPLETE"}}
	o := New(store, gen, "test-model")

	result, err := o.Resume(context.Background(), uuid.New(), uuid.New(), history(),
		"1. Old plan", "What database should the service use?", "Use PostgreSQL")
	require.NoError(t, err)

	require.True(t, result.Completed)
	require.Equal(t, reviewPlan, result.Output.Plan)
	require.Len(t, store.steps, 6)

	/* The edit prompt carries the user's answer */
	require.Contains(t, gen.prompts[0], "Use PostgreSQL")
	require.Contains(t, gen.prompts[0], "What database should the service use?")

	/* Resume transitions through processing before regenerating */
	require.Contains(t, store.statuses, db.ProjectStatusProcessing)
	require.Equal(t, db.ProjectStatusCompleted, store.lastStatus())
}

func TestResumeWithBlankResponseRepauses(t *testing.T) {
	question := "What database should the service use?"
	store := newFakeStore()
	gen := &fakeGenerator{}
	o := New(store, gen, "test-model")

	result, err := o.Resume(context.Background(), uuid.New(), uuid.New(), nil,
		"1. Old plan", question, "   ")
	require.NoError(t, err)

	require.True(t, result.WaitingForInput)
	require.Equal(t, question, result.FollowupQuestion)
	require.Equal(t, db.ProjectStatusNeedsInput, store.lastStatus())

	/* No model call happens on a blank response */
	require.Zero(t, gen.calls)
}

func TestSimplePlanSkipsAssessmentAndExecutes(t *testing.T) {
	store := newFakeStore()
	store.nextSteps[1] = []db.NextStep{{StepID: 2, Text: "Write the code", ConnectionType: "next"}}
	store.nextSteps[2] = []db.NextStep{{StepID: 3, Text: "Deploy the service", ConnectionType: "next"}}
	gen := &fakeGenerator{responses: []string{planJSON(t, simplePlan)}}
	o := New(store, gen, "test-model")

	result, err := o.Run(context.Background(), uuid.New(), uuid.New(), history(), "")
	require.NoError(t, err)

	require.True(t, result.Completed)
	require.Equal(t, "Plan execution completed", result.Message)
	require.Equal(t, db.ProjectStatusCompleted, store.lastStatus())

	/* No assessment call for small linear plans */
	require.Equal(t, 1, gen.calls)
}

func TestExecutionPausesOnConditionalConnection(t *testing.T) {
	store := newFakeStore()
	condition := "tests pass"
	store.nextSteps[1] = []db.NextStep{{
		StepID:         2,
		Text:           "Write the code",
		ConnectionType: "conditional",
		Condition:      &condition,
	}}
	gen := &fakeGenerator{responses: []string{planJSON(t, simplePlan)}}
	o := New(store, gen, "test-model")

	result, err := o.Run(context.Background(), uuid.New(), uuid.New(), history(), "")
	require.NoError(t, err)

	require.True(t, result.WaitingForInput)
	require.Contains(t, result.FollowupQuestion, "Decision required")
	require.Contains(t, result.FollowupQuestion, "tests pass")
	require.Equal(t, db.ProjectStatusNeedsInput, store.lastStatus())
}

func TestExecutionLoopGuardFailsRun(t *testing.T) {
	store := newFakeStore()
	store.nextSteps[1] = []db.NextStep{{StepID: 2, Text: "Write the code", ConnectionType: "next"}}
	store.nextSteps[2] = []db.NextStep{{StepID: 1, Text: "Install dependencies", ConnectionType: "next"}}
	gen := &fakeGenerator{responses: []string{planJSON(t, simplePlan)}}
	o := New(store, gen, "test-model")

	result, err := o.Run(context.Background(), uuid.New(), uuid.New(), history(), "")
	require.NoError(t, err)

	require.False(t, result.Completed)
	require.Equal(t, OutcomeFailed, result.Status)
	require.Contains(t, result.Message, "loop")
	require.Equal(t, db.ProjectStatusFailed, store.lastStatus())
}

func TestModelFailureFailsRunAndIsAudited(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{err: fmt.Errorf("model unavailable")}
	o := New(store, gen, "test-model")

	result, err := o.Run(context.Background(), uuid.New(), uuid.New(), history(), "")
	require.Error(t, err)
	require.Nil(t, result)
	require.Equal(t, db.ProjectStatusFailed, store.lastStatus())

	/* The failed call is recorded with the error prefix */
	require.NotEmpty(t, store.agentCalls)
	last := store.agentCalls[len(store.agentCalls)-1]
	require.True(t, strings.HasPrefix(last.Response, "Error: "))
}

func TestPlainTextPlanResponseIsAccepted(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{responses: []string{reviewPlan, "PLAN_COMPLETE"}}
	o := New(store, gen, "test-model")

	result, err := o.Run(context.Background(), uuid.New(), uuid.New(), history(), "")
	require.NoError(t, err)
	require.True(t, result.Completed)
	require.Equal(t, reviewPlan, result.Output.Plan)
}

func TestPlanCompleteMarkerIsCaseInsensitive(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{responses: []string{planJSON(t, reviewPlan), "plan_complete"}}
	o := New(store, gen, "test-model")

	result, err := o.Run(context.Background(), uuid.New(), uuid.New(), history(), "")
	require.NoError(t, err)
	require.True(t, result.Completed)
}

func TestRenderDiagramUsesStoredPlan(t *testing.T) {
	store := newFakeStore()
	store.planRows = []db.PlanStep{
		{StepID: 1, Text: "Gather requirements"},
		{StepID: 2, Text: "Design the schema"},
	}
	o := New(store, &fakeGenerator{}, "test-model")

	diagram, err := o.RenderDiagram(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, DiagramSourcePlan, diagram.Source)
	require.Contains(t, diagram.MermaidChart, "Step1")
	require.Contains(t, diagram.MermaidChart, "Start([Start])")
}

func TestRenderDiagramFallsBackToTopology(t *testing.T) {
	o := New(newFakeStore(), &fakeGenerator{}, "test-model")

	diagram, err := o.RenderDiagram(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, DiagramSourceTopology, diagram.Source)

	for _, state := range []State{StateCreatePlan, StateAssessPlan, StateWaitForUserInput, StateEditPlan, StateExecutePlanStep} {
		require.Contains(t, diagram.MermaidChart, state.String())
	}
}

func TestRenderDiagramWithoutIdentifiers(t *testing.T) {
	o := New(newFakeStore(), &fakeGenerator{}, "test-model")

	diagram, err := o.RenderDiagram(context.Background(), uuid.Nil, uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, DiagramSourceTopology, diagram.Source)
}
