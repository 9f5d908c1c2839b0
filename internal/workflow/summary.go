/*-------------------------------------------------------------------------
 *
 * summary.go
 *    Read-side summaries of stored plans and agent call history
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/workflow/summary.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

/* Responses recorded for failed model calls carry this prefix */
const errorResponsePrefix = "Error: "

const agentCallSummaryLimit = 50

/* PlanSummaryStep is one step of a plan summary */
type PlanSummaryStep struct {
	StepID int    `json:"step_id"`
	Text   string `json:"text"`
}

/* PlanSummary describes the stored plan of a project */
type PlanSummary struct {
	Exists     bool              `json:"exists"`
	TotalSteps int               `json:"total_steps"`
	Steps      []PlanSummaryStep `json:"steps,omitempty"`
	CreatedAt  *time.Time        `json:"created_at,omitempty"`
	UpdatedAt  *time.Time        `json:"updated_at,omitempty"`
	Message    string            `json:"message,omitempty"`
}

/* AgentCallRecord is one audit trail entry in a summary */
type AgentCallRecord struct {
	ID        uuid.UUID `json:"id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

/* AgentCallSummary aggregates a project's recent agent calls */
type AgentCallSummary struct {
	TotalCalls      int               `json:"total_calls"`
	SuccessfulCalls int               `json:"successful_calls"`
	FailedCalls     int               `json:"failed_calls"`
	Calls           []AgentCallRecord `json:"calls"`
}

/*
 * GetPlanSummary summarizes the stored plan of a project. A project
 * with no plan yields Exists=false and an explanatory message rather
 * than an error.
 */
func (o *Orchestrator) GetPlanSummary(ctx context.Context, userID, projectID uuid.UUID) (*PlanSummary, error) {
	steps, err := o.store.GetProjectPlan(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return &PlanSummary{
			Exists:  false,
			Message: "No plan has been created for this project yet",
		}, nil
	}

	summary := &PlanSummary{
		Exists:     true,
		TotalSteps: len(steps),
		Steps:      make([]PlanSummaryStep, len(steps)),
	}
	for i, s := range steps {
		summary.Steps[i] = PlanSummaryStep{StepID: s.StepID, Text: s.Text}
		if summary.CreatedAt == nil || s.CreatedAt.Before(*summary.CreatedAt) {
			created := s.CreatedAt
			summary.CreatedAt = &created
		}
		if summary.UpdatedAt == nil || s.UpdatedAt.After(*summary.UpdatedAt) {
			updated := s.UpdatedAt
			summary.UpdatedAt = &updated
		}
	}
	return summary, nil
}

/*
 * GetAgentCallSummary aggregates the most recent agent calls of a
 * project. Calls whose recorded response carries the error prefix are
 * counted as failures.
 */
func (o *Orchestrator) GetAgentCallSummary(ctx context.Context, projectID uuid.UUID) (*AgentCallSummary, error) {
	calls, err := o.store.ListAgentCalls(ctx, projectID, agentCallSummaryLimit)
	if err != nil {
		return nil, err
	}

	summary := &AgentCallSummary{
		TotalCalls: len(calls),
		Calls:      make([]AgentCallRecord, len(calls)),
	}
	for i, c := range calls {
		success := !strings.HasPrefix(c.Response, errorResponsePrefix)
		if success {
			summary.SuccessfulCalls++
		} else {
			summary.FailedCalls++
		}
		summary.Calls[i] = AgentCallRecord{
			ID:        c.ID,
			Prompt:    c.Prompt,
			Response:  c.Response,
			Success:   success,
			CreatedAt: c.CreatedAt,
		}
	}
	return summary, nil
}
