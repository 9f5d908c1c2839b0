/*-------------------------------------------------------------------------
 *
 * root.go
 *    Root command and global flags for fernlabs
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/cli/cmd/root.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiURL       string
	userID       string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "fernlabs",
	Short: "fernlabs CLI - plan workflow management",
	Long: `fernlabs CLI drives project plan workflows against a fernlabs API server.

Examples:
  # Create a plan from a project description
  fernlabs run <project-id> --user <user-id> --message "Build a todo app"

  # Answer a pending followup question
  fernlabs resume <project-id> --user <user-id> --response "Use PostgreSQL"

  # Render the project plan as a mermaid diagram
  fernlabs diagram <project-id> --user <user-id>

  # Summarize the stored plan
  fernlabs summary plan <project-id> --user <user-id>

  # Summarize agent call history
  fernlabs summary calls <project-id>
`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "url", getEnvOrDefault("FERNLABS_URL", "http://localhost:8080"), "fernlabs API URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user", getEnvOrDefault("FERNLABS_USER_ID", ""), "User ID")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format (text, json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(diagramCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(versionCmd)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
