/*-------------------------------------------------------------------------
 *
 * graph.go
 *    Workflow graph snapshot construction
 *
 * Builds the persisted execution-graph representation of a finalized
 * plan: node and edge lists, the state variable schema the executor
 * maintains, and the decision points where execution pauses for input.
 * Construction is deterministic, no model call is involved.
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/workflow/graph.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"context"
	"fmt"

	"github.com/nmkridler/fernlabs-api/internal/db"
	"github.com/nmkridler/fernlabs-api/internal/plan"
)

const workflowVersion = "1.0"

/*
 * buildWorkflowGraph derives the graph snapshot from parsed steps and
 * their connections. Steps that are the source of a conditional
 * connection become decision nodes; every other step is a task node.
 * A start node points at step 1 and steps with no outgoing connection
 * point at the end node.
 */
func buildWorkflowGraph(steps []string, connections []plan.Connection) (graph, schema, decisions db.JSONBMap) {
	conditionalSources := make(map[int]bool)
	hasOutgoing := make(map[int]bool)
	for _, c := range connections {
		hasOutgoing[c.Source] = true
		if c.Type == plan.ConnectionConditional {
			conditionalSources[c.Source] = true
		}
	}

	nodes := []map[string]interface{}{
		{"id": "start", "type": "start", "label": "Start"},
	}
	for i, text := range steps {
		stepID := i + 1
		nodeType := "task"
		if conditionalSources[stepID] {
			nodeType = "decision"
		}
		nodes = append(nodes, map[string]interface{}{
			"id":      nodeID(stepID),
			"type":    nodeType,
			"label":   text,
			"step_id": stepID,
		})
	}
	nodes = append(nodes, map[string]interface{}{
		"id": "end", "type": "end", "label": "End",
	})

	edges := make([]map[string]interface{}, 0, len(connections)+2)
	if len(steps) > 0 {
		edges = append(edges, map[string]interface{}{
			"source": "start", "target": nodeID(1), "type": "next",
		})
	}
	for _, c := range connections {
		edge := map[string]interface{}{
			"source": nodeID(c.Source),
			"target": nodeID(c.Target),
			"type":   string(c.Type),
		}
		if c.Condition != "" {
			edge["condition"] = c.Condition
		}
		if c.Label != "" {
			edge["label"] = c.Label
		}
		edges = append(edges, edge)
	}
	for i := range steps {
		stepID := i + 1
		if !hasOutgoing[stepID] {
			edges = append(edges, map[string]interface{}{
				"source": nodeID(stepID), "target": "end", "type": "next",
			})
		}
	}

	graph = db.JSONBMap{"nodes": nodes, "edges": edges}

	schema = db.JSONBMap{
		"state_variables": []map[string]interface{}{
			{"name": "current_step", "type": "integer", "description": "step_id of the step being executed"},
			{"name": "execution_path", "type": "array", "description": "ordered step_ids visited during the run"},
			{"name": "pending_question", "type": "string", "description": "followup question awaiting a user response"},
		},
	}

	points := make([]map[string]interface{}, 0, len(conditionalSources))
	for i, text := range steps {
		stepID := i + 1
		if !conditionalSources[stepID] {
			continue
		}
		points = append(points, map[string]interface{}{
			"node_id":  nodeID(stepID),
			"step_id":  stepID,
			"question": text,
			"outcomes": []string{"condition met", "condition not met"},
		})
	}
	decisions = db.JSONBMap{"decision_points": points}

	return graph, schema, decisions
}

func nodeID(stepID int) string {
	return fmt.Sprintf("step_%d", stepID)
}

/* snapshotWorkflow persists the graph snapshot of the run's finalized plan */
func (o *Orchestrator) snapshotWorkflow(ctx context.Context, st *WorkflowState) error {
	steps := plan.ParseSteps(st.CurrentPlan)
	connections := plan.ConnectionsForSteps(steps)
	graph, schema, decisions := buildWorkflowGraph(steps, connections)

	prompt := preview(st.CurrentPlan, 500)
	model := o.modelName
	return o.store.CreateWorkflow(ctx, &db.Workflow{
		ProjectID:        st.ProjectID,
		UserID:           st.UserID,
		Name:             fmt.Sprintf("Plan workflow (%d steps)", len(steps)),
		WorkflowGraph:    graph,
		StateSchema:      schema,
		DecisionPoints:   decisions,
		Version:          workflowVersion,
		Status:           "active",
		GenerationPrompt: &prompt,
		AIModelUsed:      &model,
	})
}
