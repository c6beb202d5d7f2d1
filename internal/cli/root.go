// SPDX-License-Identifier: Apache-2.0

// Package cli implements the casrel command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "casrel",
	Short: "Cascade relational triple extraction",
	Long: `casrel extracts (subject, relation, object) triples from text.

Subjects are tagged first. The text is then tagged once per candidate subject
for the objects of every known relation. Labeled datasets can be scored with
precision, recall and F1 under exact or first-word matching.

Settings come from --config, CASREL_* environment variables and defaults.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml or json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

// Execute runs the root command with the given build version.
func Execute(ctx context.Context, v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.ExecuteContext(ctx)
}
