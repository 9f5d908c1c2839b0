/*-------------------------------------------------------------------------
 *
 * parser_test.go
 *    Tests for plan text parsing and connection extraction
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/plan/parser_test.go
 *
 *-------------------------------------------------------------------------
 */

package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStepsNumberedList(t *testing.T) {
	text := "1. Gather requirements\n2. Design the schema\n3. Implement the features"

	steps := ParseSteps(text)
	require.Len(t, steps, 3)
	require.Equal(t, "1. Gather requirements", steps[0])
	require.Equal(t, "2. Design the schema", steps[1])
	require.Equal(t, "3. Implement the features", steps[2])
}

func TestParseStepsJoinsContinuationLines(t *testing.T) {
	text := "1. Gather requirements\nfrom all stakeholders\n2. Design the schema"

	steps := ParseSteps(text)
	require.Len(t, steps, 2)
	require.Equal(t, "1. Gather requirements from all stakeholders", steps[0])
}

func TestParseStepsMixedMarkers(t *testing.T) {
	text := "PHASE ONE\n- Collect data\nStep two begins here\nDeployment:"

	steps := ParseSteps(text)
	require.Len(t, steps, 4)
}

func TestParseStepsParagraphFallback(t *testing.T) {
	text := "Gather everything we know about the problem\n\nThen produce a working prototype"

	steps := ParseSteps(text)
	require.Len(t, steps, 2)
	require.Equal(t, "Gather everything we know about the problem", steps[0])
	require.Equal(t, "Then produce a working prototype", steps[1])
}

func TestParseStepsEmptyInput(t *testing.T) {
	require.Empty(t, ParseSteps(""))
	require.Empty(t, ParseSteps("\n\n  \n"))
}

func TestParseStepsIdempotent(t *testing.T) {
	text := "1. Gather requirements\n2. Design the schema\n3. Implement the features"

	first := ParseSteps(text)
	second := ParseSteps(strings.Join(first, "\n"))
	require.Equal(t, first, second)
}

func TestConnectionsLinearPlan(t *testing.T) {
	steps := []string{
		"1. Gather requirements",
		"2. Design the schema",
		"3. Implement the features",
	}

	conns := ConnectionsForSteps(steps)
	require.Len(t, conns, 2)
	for i, conn := range conns {
		require.Equal(t, i+1, conn.Source)
		require.Equal(t, i+2, conn.Target)
		require.Equal(t, ConnectionNext, conn.Type)
	}
}

func TestConnectionsConditionalAndLoop(t *testing.T) {
	steps := []string{
		"1. Gather requirements",
		"2. Verify the requirements",
		"3. Design the schema",
		"4. Implement the features",
		"5. Loop back to design",
	}

	conns := ConnectionsForSteps(steps)

	require.Contains(t, conns, Connection{
		Source: 2, Target: 3, Type: ConnectionConditional,
		Condition: "condition met", Label: "Yes",
	})
	require.Contains(t, conns, Connection{
		Source: 2, Target: 4, Type: ConnectionConditional,
		Condition: "condition not met", Label: "No",
	})

	/* The loop cue names the design step, which is earlier in the list */
	require.Contains(t, conns, Connection{
		Source: 5, Target: 3, Type: ConnectionLoopBack,
		Condition: "loop condition", Label: "Loop back",
	})

	/* Every step except the last has at least one outgoing edge */
	for i := 1; i < len(steps); i++ {
		found := false
		for _, conn := range conns {
			if conn.Source == i {
				found = true
				break
			}
		}
		require.True(t, found, "step %d has no outgoing connection", i)
	}
}

func TestConnectionsConditionalOnFinalStepOmitted(t *testing.T) {
	steps := []string{
		"1. Implement the features",
		"2. Verify the results",
	}

	conns := ConnectionsForSteps(steps)

	/* Step 2 has a conditional cue but no following steps to branch to,
	 * so only the default edge from step 1 remains */
	require.Len(t, conns, 1)
	require.Equal(t, Connection{Source: 1, Target: 2, Type: ConnectionNext, Label: "Next"}, conns[0])
}

func TestConnectionsLoopCueWithoutNamedTarget(t *testing.T) {
	steps := []string{
		"1. Fetch the data",
		"2. Repeat until the queue drains",
	}

	conns := ConnectionsForSteps(steps)
	for _, conn := range conns {
		require.NotEqual(t, ConnectionLoopBack, conn.Type)
	}
}

func TestParseConnectionsFromText(t *testing.T) {
	text := "1. Gather requirements\n2. Design the schema\n3. Implement the features"

	conns := ParseConnections(text)
	require.Len(t, conns, 2)
	require.Equal(t, ConnectionNext, conns[0].Type)
}
