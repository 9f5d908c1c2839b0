/*-------------------------------------------------------------------------
 *
 * diagram.go
 *    Diagram rendering command for fernlabs
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/cli/cmd/diagram.go
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

var diagramCmd = &cobra.Command{
	Use:   "diagram [project-id]",
	Short: "Render the project plan as a mermaid diagram",
	Long:  "Renders the stored plan of a project as mermaid. Without a stored plan the workflow topology diagram is returned instead.",
	Args:  cobra.ExactArgs(1),
	RunE:  showDiagram,
}

func showDiagram(cmd *cobra.Command, args []string) error {
	c := client.NewClient(apiURL)
	diagram, err := c.GetDiagram(args[0], userID)
	if err != nil {
		return fmt.Errorf("diagram rendering failed: %w", err)
	}

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(diagram)
	}

	fmt.Printf("Source: %s\n\n%s\n", diagram.Source, diagram.MermaidChart)
	return nil
}
