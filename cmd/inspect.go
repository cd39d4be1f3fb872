// =============================================================================
// TCD Bridge - Inspect Command
// =============================================================================
//
// This file defines the 'inspect' command, which analyzes a TCD workbook
// before mapping: sheet names, column headers, sample values per column and
// the distinct establishments found. The report is printed as JSON so it can
// feed a mapping configuration.
//
// COMMAND USAGE:
//   tcdbridge inspect rapport_tcd.xlsx
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hsalifou/tcdbridge/internal/excel"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// inspectEstablishmentColumn names the establishment column in the workbook.
var inspectEstablishmentColumn string

// inspectCodeColumn names the establishment code column.
var inspectCodeColumn string

// inspectHeaderRow is the zero-based header row of the data sheets.
var inspectHeaderRow int

// =============================================================================
// INSPECT COMMAND DEFINITION
// =============================================================================

var inspectCmd = &cobra.Command{
	Use:   "inspect <workbook.xlsx>",
	Short: "Analyze a TCD workbook and print a JSON report",
	Long: `Analyze a TCD workbook: list its sheets, their columns with sample values,
and the distinct establishments found. Use the report to write the mapping
configuration for the process command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(args[0])
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectEstablishmentColumn, "establishment-column", "NOM_ETAB", "Column carrying the establishment name")
	inspectCmd.Flags().StringVar(&inspectCodeColumn, "code-column", "CODE_ETAB", "Column carrying the establishment code")
	inspectCmd.Flags().IntVar(&inspectHeaderRow, "header-row", 0, "Zero-based header row of the data sheets")
}

// =============================================================================
// INSPECT IMPLEMENTATION
// =============================================================================

func runInspect(path string) error {
	report, err := excel.Analyze(path, inspectEstablishmentColumn, inspectCodeColumn, inspectHeaderRow)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
