// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/spf13/cobra"

	"github.com/gemaraproj/casrel/internal/tool"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Serve the extract_triples and evaluate_triples tools over the Model
Context Protocol on standard input and output. Logs go to standard error.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pipeline, err := a.pipeline()
	if err != nil {
		return err
	}

	server := tool.NewServer(tool.NewHandlers(pipeline, a.cfg.ExactMatch), version)
	a.logger.Info("mcp server starting", "version", version)
	return tool.Serve(cmd.Context(), server)
}
