/*-------------------------------------------------------------------------
 *
 * graph_test.go
 *    Tests for workflow graph snapshot construction
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/workflow/graph_test.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nmkridler/fernlabs-api/internal/plan"
)

func TestBuildWorkflowGraph(t *testing.T) {
	steps := []string{
		"Gather requirements",
		"Verify the requirements",
		"Design the schema",
	}
	connections := []plan.Connection{
		{Source: 1, Target: 2, Type: plan.ConnectionNext, Label: "Next"},
		{Source: 2, Target: 3, Type: plan.ConnectionConditional, Condition: "condition met", Label: "Yes"},
	}

	graph, schema, decisions := buildWorkflowGraph(steps, connections)

	nodes := graph["nodes"].([]map[string]interface{})
	require.Len(t, nodes, 5)
	require.Equal(t, "start", nodes[0]["id"])
	require.Equal(t, "end", nodes[len(nodes)-1]["id"])

	/* The conditional source becomes a decision node */
	require.Equal(t, "decision", nodes[2]["type"])
	require.Equal(t, "task", nodes[1]["type"])
	require.Equal(t, "task", nodes[3]["type"])

	edges := graph["edges"].([]map[string]interface{})
	require.Equal(t, "start", edges[0]["source"])
	require.Equal(t, "step_1", edges[0]["target"])

	/* Step 3 has no outgoing connection and is wired to the end node */
	last := edges[len(edges)-1]
	require.Equal(t, "step_3", last["source"])
	require.Equal(t, "end", last["target"])

	vars := schema["state_variables"].([]map[string]interface{})
	require.NotEmpty(t, vars)

	points := decisions["decision_points"].([]map[string]interface{})
	require.Len(t, points, 1)
	require.Equal(t, "step_2", points[0]["node_id"])
}

func TestBuildWorkflowGraphEmptyPlan(t *testing.T) {
	graph, _, decisions := buildWorkflowGraph(nil, nil)

	nodes := graph["nodes"].([]map[string]interface{})
	require.Len(t, nodes, 2)

	edges := graph["edges"].([]map[string]interface{})
	require.Empty(t, edges)

	points := decisions["decision_points"].([]map[string]interface{})
	require.Empty(t, points)
}
