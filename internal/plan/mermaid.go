/*-------------------------------------------------------------------------
 *
 * mermaid.go
 *    Mermaid flowchart rendering for plan steps
 *
 * Converts ordered plan steps and optional connections into Mermaid
 * flowchart text. Rendering never fails on malformed input; connections
 * referencing out-of-range indices are rendered as-is since validation is
 * the parser's responsibility.
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/plan/mermaid.go
 *
 *-------------------------------------------------------------------------
 */

package plan

import (
	"fmt"
	"strings"
)

const (
	labelMaxLen    = 50
	emptyPlanChart = "flowchart TD\n    A[No Plan Available]"
)

/* StoredStep is a persisted plan step as the renderer needs it */
type StoredStep struct {
	StepID int
	Text   string
}

/* RenderSteps renders steps as a sequential Mermaid flowchart */
func RenderSteps(steps []string) string {
	if len(steps) == 0 {
		return emptyPlanChart
	}

	lines := []string{"flowchart TD"}
	for i, step := range steps {
		lines = append(lines, fmt.Sprintf("    S%d[%q]", i+1, truncateLabel(step)))
	}
	for i := 1; i < len(steps); i++ {
		lines = append(lines, fmt.Sprintf("    S%d --> S%d", i, i+1))
	}
	return strings.Join(lines, "\n")
}

/* RenderWithConnections renders steps with typed edges: dashed for
 * loop_back, labeled for conditional, plain otherwise */
func RenderWithConnections(steps []string, connections []Connection) string {
	if len(steps) == 0 {
		return emptyPlanChart
	}

	lines := []string{"flowchart TD"}
	for i, step := range steps {
		lines = append(lines, fmt.Sprintf("    S%d[%q]", i+1, truncateLabel(step)))
	}

	for _, conn := range connections {
		source := fmt.Sprintf("S%d", conn.Source)
		target := fmt.Sprintf("S%d", conn.Target)

		switch conn.Type {
		case ConnectionLoopBack:
			label := conn.Label
			if label == "" {
				label = "Loop"
			}
			lines = append(lines, fmt.Sprintf("    %s -.->|%s| %s", source, escapeEdgeLabel(label), target))
		case ConnectionConditional:
			label := conn.Label
			if label == "" {
				label = "Condition"
			}
			lines = append(lines, fmt.Sprintf("    %s -->|%s| %s", source, escapeEdgeLabel(label), target))
		default:
			lines = append(lines, fmt.Sprintf("    %s --> %s", source, target))
		}
	}

	return strings.Join(lines, "\n")
}

/* RenderStoredSteps renders a diagram from persisted plan steps, wrapped
 * in Start/End stadium nodes. This is the display path used after
 * storage, independent of the parse-time renderers. */
func RenderStoredSteps(steps []StoredStep) string {
	if len(steps) == 0 {
		return emptyPlanChart
	}

	lines := []string{"flowchart TD", "    Start([Start])"}

	for i, step := range steps {
		lines = append(lines, fmt.Sprintf("    Step%d[%d. %s]", step.StepID, step.StepID, cleanStoredLabel(step.Text)))
		if i == 0 {
			lines = append(lines, fmt.Sprintf("    Start --> Step%d", step.StepID))
		} else {
			lines = append(lines, fmt.Sprintf("    Step%d --> Step%d", steps[i-1].StepID, step.StepID))
		}
	}

	lines = append(lines, "    End([End])")
	lines = append(lines, fmt.Sprintf("    Step%d --> End", steps[len(steps)-1].StepID))

	return strings.Join(lines, "\n")
}

/* truncateLabel shortens step text for node labels, appending an ellipsis */
func truncateLabel(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > labelMaxLen {
		return string(runes[:labelMaxLen]) + "..."
	}
	return string(runes)
}

/* cleanStoredLabel strips characters that would break Mermaid syntax and
 * truncates for readability */
func cleanStoredLabel(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.ReplaceAll(clean, `"`, "'")
	clean = strings.ReplaceAll(clean, ":", " -")
	runes := []rune(clean)
	if len(runes) > labelMaxLen {
		return string(runes[:labelMaxLen-3]) + "..."
	}
	return clean
}

/* escapeEdgeLabel keeps edge labels from closing the |...| span */
func escapeEdgeLabel(label string) string {
	label = strings.ReplaceAll(label, "|", "/")
	return strings.ReplaceAll(label, `"`, "'")
}
