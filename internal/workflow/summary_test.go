/*-------------------------------------------------------------------------
 *
 * summary_test.go
 *    Tests for plan and agent call summaries
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/workflow/summary_test.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nmkridler/fernlabs-api/internal/db"
)

func TestPlanSummaryWithoutPlan(t *testing.T) {
	o := New(newFakeStore(), &fakeGenerator{}, "test-model")

	summary, err := o.GetPlanSummary(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	require.False(t, summary.Exists)
	require.Zero(t, summary.TotalSteps)
	require.NotEmpty(t, summary.Message)
}

func TestPlanSummaryWithStoredPlan(t *testing.T) {
	earlier := time.Now().Add(-time.Hour)
	later := time.Now()

	store := newFakeStore()
	store.planRows = []db.PlanStep{
		{StepID: 1, Text: "Gather requirements", CreatedAt: earlier, UpdatedAt: earlier},
		{StepID: 2, Text: "Design the schema", CreatedAt: earlier, UpdatedAt: later},
	}
	o := New(store, &fakeGenerator{}, "test-model")

	summary, err := o.GetPlanSummary(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	require.True(t, summary.Exists)
	require.Equal(t, 2, summary.TotalSteps)
	require.Equal(t, 1, summary.Steps[0].StepID)
	require.Equal(t, "Design the schema", summary.Steps[1].Text)
	require.Equal(t, earlier, *summary.CreatedAt)
	require.Equal(t, later, *summary.UpdatedAt)
}

func TestAgentCallSummaryClassifiesFailures(t *testing.T) {
	store := newFakeStore()
	projectID := uuid.New()

	ctx := context.Background()
	require.NoError(t, store.AppendAgentCall(ctx, projectID, "create a plan", "1. Do the thing"))
	require.NoError(t, store.AppendAgentCall(ctx, projectID, "assess the plan", "Error: model unavailable"))
	require.NoError(t, store.AppendAgentCall(ctx, projectID, "assess the plan", "PLAN_COMPLETE"))

	o := New(store, &fakeGenerator{}, "test-model")
	summary, err := o.GetAgentCallSummary(ctx, projectID)
	require.NoError(t, err)

	require.Equal(t, 3, summary.TotalCalls)
	require.Equal(t, 2, summary.SuccessfulCalls)
	require.Equal(t, 1, summary.FailedCalls)

	require.True(t, summary.Calls[0].Success)
	require.False(t, summary.Calls[1].Success)
}
