// =============================================================================
// TCD Bridge - Tree Command
// =============================================================================
//
// This file defines the 'tree' command, which prints the organisation
// hierarchy of a metadata graph as an indented tree, followed by the graph's
// collection counts.
//
// COMMAND USAGE:
//   tcdbridge tree --metadata metadata.json
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hsalifou/tcdbridge/internal/config"
	"github.com/hsalifou/tcdbridge/internal/metadata"
)

// treeMetadataFile is the path to the metadata graph JSON.
var treeMetadataFile string

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the organisation hierarchy of a metadata graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTree()
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)

	treeCmd.Flags().StringVar(&treeMetadataFile, "metadata", "metadata.json", "Path to the metadata graph JSON file")
}

func runTree() error {
	mainCfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return err
	}
	log := newLogger(mainCfg)

	meta := metadata.NewIndex(log)
	ok, loadErrors, loadWarnings := meta.LoadFile(treeMetadataFile)
	for _, w := range loadWarnings {
		log.Warn().Msg(w)
	}
	if !ok {
		return fmt.Errorf("metadata graph is unusable: %s", strings.Join(loadErrors, "; "))
	}

	for _, root := range meta.OrganisationTree() {
		printOrgNode(root, 0)
	}

	stats := meta.Stats()
	fmt.Println()
	fmt.Printf("organisations: %d, datasets: %d, data elements: %d, category option combos: %d\n",
		stats.OrgUnits, stats.Datasets, stats.DataElements, stats.CategoryOptCombos)
	return nil
}

// printOrgNode prints one node and recurses into its children.
func printOrgNode(node *metadata.OrgNode, depth int) {
	fmt.Printf("%s%s (%s)\n", strings.Repeat("  ", depth), node.Name, node.ID)
	for _, child := range node.Children {
		printOrgNode(child, depth+1)
	}
}
