/*-------------------------------------------------------------------------
 *
 * summary.go
 *    Plan and agent call summary commands for fernlabs
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/cli/cmd/summary.go
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

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize stored plans and agent call history",
}

var summaryPlanCmd = &cobra.Command{
	Use:   "plan [project-id]",
	Short: "Summarize the stored project plan",
	Args:  cobra.ExactArgs(1),
	RunE:  showPlanSummary,
}

var summaryCallsCmd = &cobra.Command{
	Use:   "calls [project-id]",
	Short: "Summarize the project's agent call history",
	Args:  cobra.ExactArgs(1),
	RunE:  showAgentCallSummary,
}

func init() {
	summaryCmd.AddCommand(summaryPlanCmd)
	summaryCmd.AddCommand(summaryCallsCmd)
}

func showPlanSummary(cmd *cobra.Command, args []string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required. Set FERNLABS_USER_ID environment variable or use --user flag")
	}

	c := client.NewClient(apiURL)
	summary, err := c.GetPlanSummary(args[0], userID)
	if err != nil {
		return fmt.Errorf("plan summary failed: %w", err)
	}

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	if !summary.Exists {
		fmt.Println(summary.Message)
		return nil
	}
	fmt.Printf("Plan with %d steps:\n", summary.TotalSteps)
	for _, step := range summary.Steps {
		fmt.Printf("  %d. %s\n", step.StepID, step.Text)
	}
	return nil
}

func showAgentCallSummary(cmd *cobra.Command, args []string) error {
	c := client.NewClient(apiURL)
	summary, err := c.GetAgentCallSummary(args[0])
	if err != nil {
		return fmt.Errorf("agent call summary failed: %w", err)
	}

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("Agent calls: %d total, %d succeeded, %d failed\n",
		summary.TotalCalls, summary.SuccessfulCalls, summary.FailedCalls)
	for _, call := range summary.Calls {
		status := "ok"
		if !call.Success {
			status = "failed"
		}
		fmt.Printf("  [%s] %s: %.80s\n", status, call.CreatedAt, call.Prompt)
	}
	return nil
}
