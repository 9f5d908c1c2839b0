/*-------------------------------------------------------------------------
 *
 * queries.go
 *    Database queries for fernlabs-api
 *
 * Provides query functions for projects, plan steps, plan connections,
 * and agent call audit rows. ReplacePlan is the single transactional
 * write path for plan content: steps are deleted and recreated wholesale
 * so step ids stay dense and 1-based.
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/db/queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nmkridler/fernlabs-api/internal/plan"
)

/* Plan step queries */
const (
	deletePlanConnectionsQuery = `DELETE FROM fernlabs.plan_connections WHERE project_id = $1`

	deletePlanStepsQuery = `DELETE FROM fernlabs.plan_steps WHERE project_id = $1`

	insertPlanStepQuery = `
		INSERT INTO fernlabs.plan_steps (id, project_id, user_id, step_id, text)
		VALUES ($1, $2, $3, $4, $5)`

	getProjectPlanQuery = `
		SELECT * FROM fernlabs.plan_steps
		WHERE user_id = $1 AND project_id = $2
		ORDER BY step_id ASC`

	listPlanStepsQuery = `
		SELECT * FROM fernlabs.plan_steps
		WHERE project_id = $1
		ORDER BY step_id ASC`
)

/* Plan connection queries */
const (
	insertPlanConnectionQuery = `
		INSERT INTO fernlabs.plan_connections
		(id, project_id, source_step_id, target_step_id, connection_type, condition, label)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getNextStepsQuery = `
		SELECT t.step_id, t.text, c.connection_type, c.condition, c.label
		FROM fernlabs.plan_connections c
		JOIN fernlabs.plan_steps s ON s.id = c.source_step_id
		JOIN fernlabs.plan_steps t ON t.id = c.target_step_id
		WHERE c.project_id = $1 AND s.step_id = $2
		ORDER BY c.created_at ASC`
)

/* Agent call queries */
const (
	insertAgentCallQuery = `
		INSERT INTO fernlabs.agent_calls (id, project_id, prompt, response)
		VALUES ($1, $2, $3, $4)`

	listAgentCallsQuery = `
		SELECT * FROM fernlabs.agent_calls
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
)

/* Project queries */
const (
	getProjectQuery = `SELECT * FROM fernlabs.projects WHERE id = $1`

	setProjectStatusQuery = `
		UPDATE fernlabs.projects
		SET status = $2, updated_at = NOW()
		WHERE id = $1`

	saveProjectDiagramQuery = `
		UPDATE fernlabs.projects
		SET mermaid_chart = $2, updated_at = NOW()
		WHERE id = $1`
)

type Queries struct {
	DB       *sqlx.DB
	connInfo func() string
}

/* NewQueries creates a query helper bound to a connection pool */
func NewQueries(db *DB) *Queries {
	return &Queries{DB: db.DB, connInfo: db.ConnInfo}
}

/* getConnInfoString returns connection info string */
func (q *Queries) getConnInfoString() string {
	if q.connInfo == nil {
		return "unknown"
	}
	return q.connInfo()
}

/* formatQueryError formats a detailed query error message */
func (q *Queries) formatQueryError(operation string, table string, err error) error {
	return fmt.Errorf("query execution failed on %s: operation=%s, table='%s', error=%w",
		q.getConnInfoString(), operation, table, err)
}

/* ReplacePlan transactionally deletes all existing steps (and their
 * connections) for the project and inserts the new ones with dense
 * 1-based step ids. Partial replacement is a failure state, so any error
 * rolls the whole transaction back. */
func (q *Queries) ReplacePlan(ctx context.Context, projectID, userID uuid.UUID, steps []string) error {
	tx, err := q.DB.BeginTxx(ctx, nil)
	if err != nil {
		return q.formatQueryError("BEGIN", "fernlabs.plan_steps", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deletePlanConnectionsQuery, projectID); err != nil {
		return q.formatQueryError("DELETE", "fernlabs.plan_connections", err)
	}
	if _, err := tx.ExecContext(ctx, deletePlanStepsQuery, projectID); err != nil {
		return q.formatQueryError("DELETE", "fernlabs.plan_steps", err)
	}

	for i, text := range steps {
		if _, err := tx.ExecContext(ctx, insertPlanStepQuery, uuid.New(), projectID, userID, i+1, text); err != nil {
			return fmt.Errorf("plan step insert failed on %s: step_id=%d, table='fernlabs.plan_steps', error=%w",
				q.getConnInfoString(), i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return q.formatQueryError("COMMIT", "fernlabs.plan_steps", err)
	}
	return nil
}

/* SaveConnections maps connection step indices to persisted step rows and
 * stores them. When the persisted step count does not match the parsed
 * step count the write is skipped entirely: the plan text is higher-value
 * than its derived connections, so an upstream inconsistency must not
 * abort the plan save. */
func (q *Queries) SaveConnections(ctx context.Context, projectID uuid.UUID, connections []plan.Connection, stepCount int) error {
	var persisted []PlanStep
	if err := q.DB.SelectContext(ctx, &persisted, listPlanStepsQuery, projectID); err != nil {
		return q.formatQueryError("SELECT", "fernlabs.plan_steps", err)
	}

	if len(persisted) != stepCount {
		return nil
	}

	stepToID := make(map[int]uuid.UUID, len(persisted))
	for _, step := range persisted {
		stepToID[step.StepID] = step.ID
	}

	for _, conn := range connections {
		sourceID, sourceOK := stepToID[conn.Source]
		targetID, targetOK := stepToID[conn.Target]
		if !sourceOK || !targetOK {
			continue
		}

		var condition, label *string
		if conn.Condition != "" {
			c := conn.Condition
			condition = &c
		}
		if conn.Label != "" {
			l := conn.Label
			label = &l
		}

		_, err := q.DB.ExecContext(ctx, insertPlanConnectionQuery,
			uuid.New(), projectID, sourceID, targetID, string(conn.Type), condition, label)
		if err != nil {
			return q.formatQueryError("INSERT", "fernlabs.plan_connections", err)
		}
	}
	return nil
}

/* GetProjectPlan returns all persisted steps for a project in step order */
func (q *Queries) GetProjectPlan(ctx context.Context, userID, projectID uuid.UUID) ([]PlanStep, error) {
	var steps []PlanStep
	if err := q.DB.SelectContext(ctx, &steps, getProjectPlanQuery, userID, projectID); err != nil {
		return nil, q.formatQueryError("SELECT", "fernlabs.plan_steps", err)
	}
	return steps, nil
}

/* GetNextSteps returns the outgoing connections of the current step
 * joined to their target steps */
func (q *Queries) GetNextSteps(ctx context.Context, projectID uuid.UUID, currentStepID int) ([]NextStep, error) {
	var next []NextStep
	if err := q.DB.SelectContext(ctx, &next, getNextStepsQuery, projectID, currentStepID); err != nil {
		return nil, q.formatQueryError("SELECT", "fernlabs.plan_connections", err)
	}
	return next, nil
}

/* AppendAgentCall records one generative call as an append-only audit row */
func (q *Queries) AppendAgentCall(ctx context.Context, projectID uuid.UUID, prompt, response string) error {
	if _, err := q.DB.ExecContext(ctx, insertAgentCallQuery, uuid.New(), projectID, prompt, response); err != nil {
		return q.formatQueryError("INSERT", "fernlabs.agent_calls", err)
	}
	return nil
}

/* ListAgentCalls returns the newest audit rows for a project */
func (q *Queries) ListAgentCalls(ctx context.Context, projectID uuid.UUID, limit int) ([]AgentCall, error) {
	var calls []AgentCall
	if err := q.DB.SelectContext(ctx, &calls, listAgentCallsQuery, projectID, limit); err != nil {
		return nil, q.formatQueryError("SELECT", "fernlabs.agent_calls", err)
	}
	return calls, nil
}

/* GetProject gets a project by ID */
func (q *Queries) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	var project Project
	err := q.DB.GetContext(ctx, &project, getProjectQuery, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found on %s: project_id='%s', table='fernlabs.projects', error=%w",
			q.getConnInfoString(), id.String(), err)
	}
	if err != nil {
		return nil, q.formatQueryError("SELECT", "fernlabs.projects", err)
	}
	return &project, nil
}

/* SetProjectStatus updates the project status side channel */
func (q *Queries) SetProjectStatus(ctx context.Context, projectID uuid.UUID, status string) error {
	if _, err := q.DB.ExecContext(ctx, setProjectStatusQuery, projectID, status); err != nil {
		return q.formatQueryError("UPDATE", "fernlabs.projects", err)
	}
	return nil
}

/* SaveProjectDiagram stores the rendered mermaid chart on the project */
func (q *Queries) SaveProjectDiagram(ctx context.Context, projectID uuid.UUID, mermaidChart string) error {
	if _, err := q.DB.ExecContext(ctx, saveProjectDiagramQuery, projectID, mermaidChart); err != nil {
		return q.formatQueryError("UPDATE", "fernlabs.projects", err)
	}
	return nil
}
