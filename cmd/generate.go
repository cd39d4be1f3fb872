// =============================================================================
// TCD Bridge - Generate Command
// =============================================================================
//
// This file defines the 'generate' command, which builds a destination
// template workbook from an indexed metadata graph. The workbook carries one
// row per (section, data element, organisation, disaggregation, attribution)
// combination for the selected dataset and period.
//
// COMMAND USAGE:
//   tcdbridge generate --metadata metadata.json --dataset abc123 \
//     --org ou1 --org ou2 --period 2024 --out template.xlsx
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hsalifou/tcdbridge/internal/config"
	"github.com/hsalifou/tcdbridge/internal/metadata"
	"github.com/hsalifou/tcdbridge/internal/template"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// genMetadataFile is the path to the metadata graph JSON.
var genMetadataFile string

// genDatasetID selects the dataset to expand.
var genDatasetID string

// genOrgUnitIDs lists the organisation units to generate rows for.
var genOrgUnitIDs []string

// genPeriod is stamped on every generated row.
var genPeriod string

// genPeriodType controls how the period format is validated.
var genPeriodType string

// genOutFile is the output workbook path.
var genOutFile string

// genHideTechnical hides the identifier columns in the workbook.
var genHideTechnical bool

// =============================================================================
// GENERATE COMMAND DEFINITION
// =============================================================================

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a destination template workbook from metadata",
	Long: `Generate a destination template workbook for one dataset and a set of
organisation units. The workbook lists every expected combination of section,
data element, organisation and disaggregation, ready to receive values or to
serve as the reconciliation target of the process command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate()
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&genMetadataFile, "metadata", "metadata.json", "Path to the metadata graph JSON file")
	generateCmd.Flags().StringVar(&genDatasetID, "dataset", "", "Dataset identifier to expand (required)")
	generateCmd.Flags().StringArrayVar(&genOrgUnitIDs, "org", nil, "Organisation unit identifier, repeatable (required)")
	generateCmd.Flags().StringVar(&genPeriod, "period", "", "Period stamped on every row, e.g. 2024 or 202401 (required)")
	generateCmd.Flags().StringVar(&genPeriodType, "period-type", "Yearly", "Period type: Yearly, Monthly, Quarterly or Weekly")
	generateCmd.Flags().StringVar(&genOutFile, "out", "template.xlsx", "Output workbook path")
	generateCmd.Flags().BoolVar(&genHideTechnical, "hide-technical", false, "Hide the identifier columns in the workbook")

	generateCmd.MarkFlagRequired("dataset")
	generateCmd.MarkFlagRequired("org")
	generateCmd.MarkFlagRequired("period")
}

// =============================================================================
// GENERATE IMPLEMENTATION
// =============================================================================

func runGenerate() error {
	mainCfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return err
	}
	log := newLogger(mainCfg)

	meta := metadata.NewIndex(log)
	ok, loadErrors, loadWarnings := meta.LoadFile(genMetadataFile)
	for _, w := range loadWarnings {
		log.Warn().Msg(w)
	}
	if !ok {
		return fmt.Errorf("metadata graph is unusable: %s", strings.Join(loadErrors, "; "))
	}

	gen := template.NewGenerator(meta, log)
	cfg := template.GeneratorConfig{
		OrgUnitIDs: genOrgUnitIDs,
		DatasetID:  genDatasetID,
		Period:     genPeriod,
		PeriodType: genPeriodType,
	}
	if problems := gen.Validate(cfg); len(problems) > 0 {
		return fmt.Errorf("invalid generation request: %s", strings.Join(problems, "; "))
	}

	rows, stats, err := gen.Generate(cfg)
	if err != nil {
		return err
	}

	info := template.WorkbookInfo{
		DatasetName:   stats.DatasetName,
		Period:        genPeriod,
		OrgUnits:      stats.OrgUnits,
		TotalRows:     stats.TotalRows,
		HideTechnical: genHideTechnical,
	}
	if err := template.WriteWorkbook(genOutFile, rows, info); err != nil {
		return err
	}

	log.Info().
		Str("dataset", stats.DatasetName).
		Int("org_units", stats.OrgUnits).
		Int("sections", stats.Sections).
		Int("rows", stats.TotalRows).
		Str("file", genOutFile).
		Msg("template generated")
	return nil
}
