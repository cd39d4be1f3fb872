// =============================================================================
// TCD Bridge - Main Entry Point
// =============================================================================
//
// This is the main entry point for the TCD Bridge CLI application. It
// initializes the Cobra CLI framework and delegates command execution to the
// cmd package.
//
// USAGE:
//   tcdbridge process       - Reconcile TCD workbooks against a template
//   tcdbridge generate      - Generate a destination template workbook
//   tcdbridge inspect       - Analyze a TCD workbook
//   tcdbridge tree          - Print the organisation hierarchy
//   tcdbridge fetch         - Download the metadata graph from DHIS2
//   tcdbridge version       - Display the application version
//
// ARCHITECTURE:
//   This application follows a modular design where:
//   - cmd/           : Contains all CLI command definitions (Cobra)
//   - internal/      : Contains core business logic (not for external import)
//   - pkg/           : Contains shared utilities
//
// =============================================================================

package main

import (
	"github.com/hsalifou/tcdbridge/cmd"
)

// main is the entry point of the application.
// It simply calls the Execute function from the cmd package, which
// initializes and runs the Cobra CLI.
func main() {
	cmd.Execute()
}
