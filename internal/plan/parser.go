/*-------------------------------------------------------------------------
 *
 * parser.go
 *    Plan text parsing for fernlabs-api
 *
 * Splits free-form generated plan text into ordered steps and extracts
 * inter-step connections (sequential, conditional, loop-back) from
 * natural-language cues.
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/plan/parser.go
 *
 *-------------------------------------------------------------------------
 */

package plan

import (
	"strings"
	"unicode"
)

/* ConnectionType classifies a directed edge between two plan steps */
type ConnectionType string

const (
	ConnectionNext        ConnectionType = "next"
	ConnectionConditional ConnectionType = "conditional"
	ConnectionLoopBack    ConnectionType = "loop_back"
)

/* Connection is a directed edge between two plan steps. Source and Target
 * are 1-based indices into the parsed step list. */
type Connection struct {
	Source    int
	Target    int
	Type      ConnectionType
	Condition string
	Label     string
}

var loopCues = []string{"loop back", "loop to", "repeat", "iterate", "while", "for each"}

var conditionalCues = []string{"if", "when", "check", "verify", "validate"}

/* ParseSteps splits generated plan text into ordered steps.
 *
 * A line starts a new step when it begins with a digit followed by '.',
 * ')' or a space, starts with a bullet marker, is all-uppercase, ends
 * with ':', or starts with "Phase" or "Step". Other lines are treated as
 * paragraph continuations and joined onto the current step. When fewer
 * than two steps are found the text is split on blank-line-delimited
 * paragraphs instead. */
func ParseSteps(text string) []string {
	var steps []string
	current := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if startsNewStep(line) {
			if current != "" {
				steps = append(steps, strings.TrimSpace(current))
			}
			current = line
		} else {
			current += " " + line
		}
	}
	if current != "" {
		steps = append(steps, strings.TrimSpace(current))
	}

	/* No clear step structure: fall back to paragraphs */
	if len(steps) <= 1 {
		steps = steps[:0]
		for _, para := range strings.Split(text, "\n\n") {
			para = strings.TrimSpace(para)
			if para != "" {
				steps = append(steps, para)
			}
		}
	}

	return steps
}

/* startsNewStep reports whether a trimmed, non-empty line opens a new step */
func startsNewStep(line string) bool {
	runes := []rune(line)
	if unicode.IsDigit(runes[0]) {
		/* Require a delimiter right after the digit so a decimal number
		 * in prose is not mistaken for a list marker */
		if len(runes) > 1 && (runes[1] == '.' || runes[1] == ')' || runes[1] == ' ') {
			return true
		}
	}
	if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "•") {
		return true
	}
	if isAllUpper(line) {
		return true
	}
	if strings.HasSuffix(line, ":") {
		return true
	}
	if strings.HasPrefix(line, "Phase") || strings.HasPrefix(line, "Step") {
		return true
	}
	return false
}

/* isAllUpper reports whether the line contains at least one letter and no
 * lowercase letters. Phase headers are often written in caps. */
func isAllUpper(line string) bool {
	hasLetter := false
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

/* ParseConnections extracts connections from plan text by matching
 * natural-language cues against the parsed steps.
 *
 * Indices refer to the parsed step list (1-based), not raw line numbers,
 * so connections always line up with the step ids the persistence layer
 * assigns. Loop cues produce a loop_back edge to the earlier step the cue
 * names; conditional cues produce Yes/No edges to the following two
 * steps; every step without an explicit outgoing edge gets a default
 * "next" edge to its successor. This is a best-effort heuristic layer,
 * not a grammar: cue matching is plain substring search over lowercased
 * text. */
func ParseConnections(text string) []Connection {
	return ConnectionsForSteps(ParseSteps(text))
}

/* ConnectionsForSteps runs connection detection over an already-parsed
 * step list */
func ConnectionsForSteps(steps []string) []Connection {
	var connections []Connection

	for i, step := range steps {
		lower := strings.ToLower(step)

		if containsAny(lower, loopCues) {
			if conn, ok := findLoopTarget(steps, i, lower); ok {
				connections = append(connections, conn)
			}
		}

		if containsAny(lower, conditionalCues) {
			/* Branch to the next step on "yes" and the step after on
			 * "no"; the user refines the actual branching logic later */
			if i+1 < len(steps) {
				connections = append(connections, Connection{
					Source:    i + 1,
					Target:    i + 2,
					Type:      ConnectionConditional,
					Condition: "condition met",
					Label:     "Yes",
				})
				if i+2 < len(steps) {
					connections = append(connections, Connection{
						Source:    i + 1,
						Target:    i + 3,
						Type:      ConnectionConditional,
						Condition: "condition not met",
						Label:     "No",
					})
				}
			}
		}
	}

	/* Default sequential edges keep the graph fully connected: every step
	 * except the last must have at least one outgoing edge */
	for i := 1; i < len(steps); i++ {
		if !hasSource(connections, i) {
			connections = append(connections, Connection{
				Source: i,
				Target: i + 1,
				Type:   ConnectionNext,
				Label:  "Next",
			})
		}
	}

	return connections
}

/* findLoopTarget locates the step a loop cue points back to. The phrase
 * following "loop back to"/"loop to" is matched word-by-word against the
 * other steps; the first step containing any of those words wins. */
func findLoopTarget(steps []string, i int, lower string) (Connection, bool) {
	var targetWords []string
	if idx := strings.Index(lower, "loop back to"); idx >= 0 {
		targetWords = strings.Fields(lower[idx+len("loop back to"):])
	} else if idx := strings.Index(lower, "loop to"); idx >= 0 {
		targetWords = strings.Fields(lower[idx+len("loop to"):])
	}
	if len(targetWords) == 0 {
		return Connection{}, false
	}

	for j, candidate := range steps {
		if j == i {
			continue
		}
		candidateLower := strings.ToLower(candidate)
		for _, word := range targetWords {
			if strings.Contains(candidateLower, word) {
				return Connection{
					Source:    i + 1,
					Target:    j + 1,
					Type:      ConnectionLoopBack,
					Condition: "loop condition",
					Label:     "Loop back",
				}, true
			}
		}
	}
	return Connection{}, false
}

func containsAny(s string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}

func hasSource(connections []Connection, source int) bool {
	for _, conn := range connections {
		if conn.Source == source {
			return true
		}
	}
	return false
}
