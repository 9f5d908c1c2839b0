/*-------------------------------------------------------------------------
 *
 * mermaid_test.go
 *    Tests for mermaid flowchart rendering
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/plan/mermaid_test.go
 *
 *-------------------------------------------------------------------------
 */

package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderStepsEmpty(t *testing.T) {
	chart := RenderSteps(nil)
	require.Equal(t, "flowchart TD\n    A[No Plan Available]", chart)
}

func TestRenderStepsSequential(t *testing.T) {
	chart := RenderSteps([]string{"Gather requirements", "Design the schema"})

	require.True(t, strings.HasPrefix(chart, "flowchart TD"))
	require.Contains(t, chart, `S1["Gather requirements"]`)
	require.Contains(t, chart, `S2["Design the schema"]`)
	require.Contains(t, chart, "S1 --> S2")
}

func TestRenderStepsTruncatesLongLabels(t *testing.T) {
	long := strings.Repeat("x", 80)
	chart := RenderSteps([]string{long})

	require.Contains(t, chart, strings.Repeat("x", 50)+"...")
	require.NotContains(t, chart, strings.Repeat("x", 51))
}

func TestRenderWithConnectionsEdgeStyles(t *testing.T) {
	steps := []string{
		"Gather requirements",
		"Verify the requirements",
		"Design the schema",
		"Implement the features",
		"Loop back to design",
	}
	conns := ConnectionsForSteps(steps)
	chart := RenderWithConnections(steps, conns)

	require.Contains(t, chart, "S2 -->|Yes| S3")
	require.Contains(t, chart, "S2 -->|No| S4")

	/* Loop edges are dashed and point backwards */
	require.Contains(t, chart, "S5 -.->|Loop back| S3")
	require.NotContains(t, chart, "S3 -.->")

	require.Contains(t, chart, "S1 --> S2")
}

func TestRenderWithConnectionsEmpty(t *testing.T) {
	chart := RenderWithConnections(nil, nil)
	require.Equal(t, "flowchart TD\n    A[No Plan Available]", chart)
}

func TestRenderStoredSteps(t *testing.T) {
	chart := RenderStoredSteps([]StoredStep{
		{StepID: 1, Text: "Gather requirements"},
		{StepID: 2, Text: "Design the schema"},
	})

	require.Contains(t, chart, "Start([Start])")
	require.Contains(t, chart, "End([End])")
	require.Contains(t, chart, "Start --> Step1")
	require.Contains(t, chart, "Step1 --> Step2")
	require.Contains(t, chart, "Step2 --> End")
	require.Contains(t, chart, "Step1[1. Gather requirements]")
}

func TestRenderStoredStepsCleansLabels(t *testing.T) {
	chart := RenderStoredSteps([]StoredStep{
		{StepID: 1, Text: `Check the "main" branch: then merge`},
	})

	require.NotContains(t, chart, `"main"`)
	require.Contains(t, chart, "'main'")
	require.Contains(t, chart, "branch - then merge")
}

func TestRenderStoredStepsEmpty(t *testing.T) {
	chart := RenderStoredSteps(nil)
	require.Equal(t, "flowchart TD\n    A[No Plan Available]", chart)
}
