// =============================================================================
// TCD Bridge - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main command for reconciling
// TCD workbooks against a destination template.
//
// COMMAND USAGE:
//   tcdbridge process [flags]
//
// PROCESSING PIPELINE:
//   1. Load the main and mapping configurations
//   2. Load and index the metadata graph
//   3. Load the destination template
//   4. Discover TCD workbooks (or take the one given with --tcd)
//   5. For each workbook:
//      a. Reconcile the sheet against the template
//      b. Write the payload JSON and the statistics report
//      c. Optionally push the payload to the configured instance
//      d. Archive the workbook
//
// =============================================================================

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hsalifou/tcdbridge/internal/config"
	"github.com/hsalifou/tcdbridge/internal/dhis2"
	"github.com/hsalifou/tcdbridge/internal/metadata"
	"github.com/hsalifou/tcdbridge/internal/payload"
	"github.com/hsalifou/tcdbridge/internal/reconcile"
	"github.com/hsalifou/tcdbridge/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// mappingFile is the path to the mapping configuration.
var mappingFile string

// metadataFile is the path to the metadata graph JSON.
var metadataFile string

// templateFile is the path to the destination template workbook.
var templateFile string

// tcdFile processes a single workbook instead of scanning the input dir.
var tcdFile string

// tcdSheet selects a sheet by name; empty takes the first sheet.
var tcdSheet string

// dataElementColumn is the TCD column carrying the raw data-element label.
var dataElementColumn string

// period is stamped on every emitted record.
var period string

// push sends the payload to the configured instance after writing it.
var push bool

// dryRunProcess reconciles without writing or pushing anything.
var dryRunProcess bool

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Reconcile TCD workbooks against the destination template",
	Long: `Reconcile one or more TCD workbooks against the destination template and
write a DHIS2 data value payload plus a statistics report per workbook.

Row-level problems never abort a run; they are collected into the report
(unmapped establishments, unmapped data elements, unresolved combinations).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&mappingFile, "mapping", "mapping.yaml", "Path to the mapping configuration file")
	processCmd.Flags().StringVar(&metadataFile, "metadata", "metadata.json", "Path to the metadata graph JSON file")
	processCmd.Flags().StringVar(&templateFile, "template", "", "Path to the destination template workbook (required)")
	processCmd.Flags().StringVar(&tcdFile, "tcd", "", "Process a single TCD workbook instead of scanning the input directory")
	processCmd.Flags().StringVar(&tcdSheet, "sheet", "", "TCD sheet name (default: first sheet)")
	processCmd.Flags().StringVar(&dataElementColumn, "data-element-column", "", "TCD column carrying the data-element label (required)")
	processCmd.Flags().StringVar(&period, "period", "", "Period stamped on every record, e.g. 2024 or 202401 (required)")
	processCmd.Flags().BoolVar(&push, "push", false, "Push the payload to the configured DHIS2 instance")
	processCmd.Flags().BoolVar(&dryRunProcess, "dry-run", false, "Reconcile without writing or pushing anything")

	processCmd.MarkFlagRequired("template")
	processCmd.MarkFlagRequired("data-element-column")
	processCmd.MarkFlagRequired("period")
}

// =============================================================================
// PROCESS IMPLEMENTATION
// =============================================================================

func runProcess(ctx context.Context) error {
	mainCfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return err
	}
	log := newLogger(mainCfg)

	mapping, err := config.LoadMappingConfig(mappingFile)
	if err != nil {
		return err
	}

	meta := metadata.NewIndex(log)
	ok, loadErrors, loadWarnings := meta.LoadFile(metadataFile)
	for _, w := range loadWarnings {
		log.Warn().Msg(w)
	}
	if !ok {
		return fmt.Errorf("metadata graph is unusable: %s", strings.Join(loadErrors, "; "))
	}

	var client *dhis2.Client
	if push {
		client, err = dhis2.NewClient(mainCfg.Server, log)
		if err != nil {
			return err
		}
		if _, err := client.ValidateConnection(ctx); err != nil {
			return err
		}
	}

	if !utils.FileExists(templateFile) {
		return fmt.Errorf("template workbook %s does not exist", templateFile)
	}
	if tcdFile != "" && !utils.FileExists(tcdFile) {
		return fmt.Errorf("TCD workbook %s does not exist", tcdFile)
	}

	workbooks := []string{tcdFile}
	fm := utils.NewFileManager(mainCfg.InputDir, mainCfg.OutputDir, mainCfg.ArchiveDir)
	fm.UseTimestampSubdirs = mainCfg.ArchiveTimestampSubdirs
	if tcdFile == "" {
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}
		workbooks, err = fm.DiscoverWorkbooks("")
		if err != nil {
			return err
		}
		if len(workbooks) == 0 {
			return fmt.Errorf("no workbooks found in %s", mainCfg.InputDir)
		}
	}

	for _, workbook := range workbooks {
		if err := processWorkbook(ctx, workbook, meta, mapping, mainCfg, fm, client, log); err != nil {
			return fmt.Errorf("failed to process %s: %w", workbook, err)
		}
	}

	if mainCfg.ArchiveRetentionDays > 0 && !dryRunProcess {
		maxAge := time.Duration(mainCfg.ArchiveRetentionDays) * 24 * time.Hour
		removed, err := utils.CleanOldArchives(mainCfg.ArchiveDir, maxAge)
		if err != nil {
			log.Warn().Err(err).Msg("archive cleanup failed")
		} else if removed > 0 {
			log.Info().Int("removed", removed).Msg("expired archives removed")
		}
	}
	return nil
}

func processWorkbook(
	ctx context.Context,
	workbook string,
	meta *metadata.Index,
	mapping *config.MappingConfig,
	mainCfg *config.MainConfig,
	fm *utils.FileManager,
	client *dhis2.Client,
	log zerolog.Logger,
) error {
	log.Info().Str("workbook", workbook).Msg("processing workbook")

	proc := reconcile.New(meta, mapping, log)
	if err := proc.LoadTemplate(templateFile); err != nil {
		return err
	}
	if err := proc.LoadSheet(workbook, tcdSheet); err != nil {
		return err
	}

	records, stats, err := proc.Process(dataElementColumn, period)
	if err != nil {
		return err
	}
	for _, w := range proc.Warnings() {
		log.Warn().Msg(w)
	}

	pl := payload.Assemble(records)
	for _, problem := range payload.Validate(pl) {
		log.Warn().Str("workbook", workbook).Msg(problem)
	}

	if dryRunProcess {
		log.Info().Int("records", len(records)).Msg("dry run, nothing written")
		return nil
	}

	payloadPath := filepath.Join(mainCfg.OutputDir, utils.GenerateOutputFileName(mainCfg.OutputNameFormat, nil))
	if err := writeJSON(payloadPath, pl); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(payloadPath), filepath.Ext(payloadPath))
	reportPath := filepath.Join(mainCfg.OutputDir, base+"_report.json")
	if err := writeJSON(reportPath, stats.Report()); err != nil {
		return err
	}
	log.Info().Str("payload", payloadPath).Str("report", reportPath).Msg("outputs written")

	if client != nil {
		summary, err := client.PushDataValues(ctx, pl)
		if err != nil {
			return err
		}
		log.Info().Str("status", summary.Status).Msg("payload pushed")
	}

	if tcdFile == "" {
		archived, err := fm.ArchiveWorkbook(workbook)
		if err != nil {
			return err
		}
		log.Info().Str("archived", archived).Msg("workbook archived")
	}
	return nil
}

// writeJSON writes a value as indented JSON.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
