/*-------------------------------------------------------------------------
 *
 * run.go
 *    Workflow run and resume commands for fernlabs
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/cli/cmd/run.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nmkridler/fernlabs-api/cli/pkg/client"
)

var runMessages []string

var runCmd = &cobra.Command{
	Use:   "run [project-id]",
	Short: "Run the plan workflow for a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflow,
}

var resumeResponse string

var resumeCmd = &cobra.Command{
	Use:   "resume [project-id]",
	Short: "Resume a paused workflow with a response to the followup question",
	Args:  cobra.ExactArgs(1),
	RunE:  resumeWorkflow,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runMessages, "message", "m", nil, "User message describing the project (repeatable)")
	resumeCmd.Flags().StringVarP(&resumeResponse, "response", "r", "", "Response to the pending followup question")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	if userID == "" {
		return fmt.Errorf("user ID is required. Set FERNLABS_USER_ID environment variable or use --user flag")
	}
	if len(runMessages) == 0 {
		return fmt.Errorf("at least one --message is required")
	}

	history := make([]client.ChatMessage, len(runMessages))
	for i, msg := range runMessages {
		history[i] = client.ChatMessage{Role: "user", Content: msg}
	}

	c := client.NewClient(apiURL)
	result, err := c.RunWorkflow(projectID, userID, history)
	if err != nil {
		return fmt.Errorf("workflow run failed: %w", err)
	}
	return printRunResult(result)
}

func resumeWorkflow(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	if userID == "" {
		return fmt.Errorf("user ID is required. Set FERNLABS_USER_ID environment variable or use --user flag")
	}
	if resumeResponse == "" {
		return fmt.Errorf("--response is required")
	}

	c := client.NewClient(apiURL)
	result, err := c.ResumeWorkflow(projectID, userID, resumeResponse)
	if err != nil {
		return fmt.Errorf("workflow resume failed: %w", err)
	}
	return printRunResult(result)
}

func printRunResult(result *client.RunResult) error {
	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Status: %s\n", result.Status)
	switch {
	case result.Completed:
		if result.Output != nil {
			fmt.Printf("\nPlan:\n%s\n", result.Output.Plan)
			fmt.Printf("\nDiagram:\n%s\n", result.Output.MermaidChart)
		} else if result.MermaidChart != "" {
			fmt.Printf("\nDiagram:\n%s\n", result.MermaidChart)
		}
		if result.Message != "" {
			fmt.Printf("\n%s\n", result.Message)
		}
	case result.WaitingForInput:
		fmt.Printf("\nFollowup question:\n%s\n", result.FollowupQuestion)
		fmt.Printf("\nAnswer with: fernlabs resume <project-id> --response \"...\"\n")
	default:
		fmt.Printf("\n%s\n", result.Message)
	}
	return nil
}
