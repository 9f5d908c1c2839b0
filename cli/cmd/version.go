/*-------------------------------------------------------------------------
 *
 * version.go
 *    Version command for fernlabs
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/cli/cmd/version.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fernlabs version %s\n", version)
		fmt.Printf("Build date: %s\n", buildDate)
	},
}
