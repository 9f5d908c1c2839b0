/*-------------------------------------------------------------------------
 *
 * main.go
 *    Main entry point for fernlabs
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/cli/main.go
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"github.com/nmkridler/fernlabs-api/cli/cmd"
)

func main() {
	cmd.Execute()
}
