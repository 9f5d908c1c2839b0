/*-------------------------------------------------------------------------
 *
 * workflow_queries.go
 *    Database queries for generated workflow snapshots
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/db/workflow_queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

/* Workflow queries */
const (
	createWorkflowQuery = `
		INSERT INTO fernlabs.workflows
		(id, project_id, user_id, name, description, workflow_graph, state_schema,
		 decision_points, version, status, generation_prompt, ai_model_used)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8::jsonb, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	getWorkflowByIDQuery = `SELECT * FROM fernlabs.workflows WHERE id = $1 AND user_id = $2`

	listProjectWorkflowsQuery = `
		SELECT * FROM fernlabs.workflows
		WHERE user_id = $1 AND project_id = $2
		ORDER BY created_at DESC`
)

/* CreateWorkflow stores a generated workflow graph snapshot */
func (q *Queries) CreateWorkflow(ctx context.Context, workflow *Workflow) error {
	if workflow.ID == uuid.Nil {
		workflow.ID = uuid.New()
	}
	params := []interface{}{
		workflow.ID, workflow.ProjectID, workflow.UserID, workflow.Name, workflow.Description,
		workflow.WorkflowGraph, workflow.StateSchema, workflow.DecisionPoints,
		workflow.Version, workflow.Status, workflow.GenerationPrompt, workflow.AIModelUsed,
	}
	row := q.DB.QueryRowxContext(ctx, createWorkflowQuery, params...)
	if err := row.Scan(&workflow.CreatedAt, &workflow.UpdatedAt); err != nil {
		return q.formatQueryError("INSERT", "fernlabs.workflows", err)
	}
	return nil
}

/* GetWorkflowByID gets a workflow with a user ownership check */
func (q *Queries) GetWorkflowByID(ctx context.Context, id, userID uuid.UUID) (*Workflow, error) {
	var workflow Workflow
	err := q.DB.GetContext(ctx, &workflow, getWorkflowByIDQuery, id, userID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("workflow not found on %s: workflow_id='%s', table='fernlabs.workflows', error=%w",
			q.getConnInfoString(), id.String(), err)
	}
	if err != nil {
		return nil, q.formatQueryError("SELECT", "fernlabs.workflows", err)
	}
	return &workflow, nil
}

/* ListProjectWorkflows lists workflow snapshots for a project, newest first */
func (q *Queries) ListProjectWorkflows(ctx context.Context, userID, projectID uuid.UUID) ([]Workflow, error) {
	var workflows []Workflow
	if err := q.DB.SelectContext(ctx, &workflows, listProjectWorkflowsQuery, userID, projectID); err != nil {
		return nil, q.formatQueryError("SELECT", "fernlabs.workflows", err)
	}
	return workflows, nil
}
