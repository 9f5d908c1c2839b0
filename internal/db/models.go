/*-------------------------------------------------------------------------
 *
 * models.go
 *    Database models for fernlabs-api
 *
 * Defines data structures for projects, plan steps, plan connections,
 * agent calls, and generated workflows.
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/db/models.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"time"

	"github.com/google/uuid"
)

/* Project status values the workflow reports as a side channel */
const (
	ProjectStatusLoading    = "loading"
	ProjectStatusProcessing = "processing"
	ProjectStatusNeedsInput = "needs_input"
	ProjectStatusCompleted  = "completed"
	ProjectStatusFailed     = "failed"
)

type Project struct {
	ID           uuid.UUID `db:"id"`
	UserID       uuid.UUID `db:"user_id"`
	Name         string    `db:"name"`
	Description  *string   `db:"description"`
	Prompt       string    `db:"prompt"`
	Status       string    `db:"status"`
	MermaidChart *string   `db:"mermaid_chart"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

/* PlanStep is one ordered unit of a project plan. StepID values for a
 * project are dense and 1-based after any successful create or edit. */
type PlanStep struct {
	ID        uuid.UUID `db:"id"`
	ProjectID uuid.UUID `db:"project_id"`
	UserID    uuid.UUID `db:"user_id"`
	StepID    int       `db:"step_id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

/* PlanConnection is a directed edge between two persisted plan steps */
type PlanConnection struct {
	ID             uuid.UUID `db:"id"`
	ProjectID      uuid.UUID `db:"project_id"`
	SourceStepID   uuid.UUID `db:"source_step_id"`
	TargetStepID   uuid.UUID `db:"target_step_id"`
	ConnectionType string    `db:"connection_type"`
	Condition      *string   `db:"condition"`
	Label          *string   `db:"label"`
	CreatedAt      time.Time `db:"created_at"`
}

/* AgentCall is an append-only audit row, one per generative call */
type AgentCall struct {
	ID        uuid.UUID `db:"id"`
	ProjectID uuid.UUID `db:"project_id"`
	Prompt    string    `db:"prompt"`
	Response  string    `db:"response"`
	CreatedAt time.Time `db:"created_at"`
}

/* Workflow is the execution-graph snapshot derived from a finalized plan */
type Workflow struct {
	ID               uuid.UUID `db:"id"`
	ProjectID        uuid.UUID `db:"project_id"`
	UserID           uuid.UUID `db:"user_id"`
	Name             string    `db:"name"`
	Description      *string   `db:"description"`
	WorkflowGraph    JSONBMap  `db:"workflow_graph"`
	StateSchema      JSONBMap  `db:"state_schema"`
	DecisionPoints   JSONBMap  `db:"decision_points"`
	Version          string    `db:"version"`
	Status           string    `db:"status"`
	GenerationPrompt *string   `db:"generation_prompt"`
	AIModelUsed      *string   `db:"ai_model_used"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

/* NextStep is an outgoing connection of a step joined to its target, as
 * the execution stage consumes it */
type NextStep struct {
	StepID         int     `db:"step_id"`
	Text           string  `db:"text"`
	ConnectionType string  `db:"connection_type"`
	Condition      *string `db:"condition"`
	Label          *string `db:"label"`
}
