// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/gemaraproj/casrel/internal/corpus/readers"
	"github.com/gemaraproj/casrel/internal/evaluation"
)

var (
	evalExact  bool
	evalOutput string
	evalFormat string
	evalJSON   bool
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Width(11)
	scoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

var evalCmd = &cobra.Command{
	Use:   "eval <dataset>",
	Short: "Score extraction against a labeled dataset",
	Long: `Run extraction over every record of a labeled dataset and report
precision, recall and F1.

Datasets hold records of the form {"text": ..., "triple_list": [[s, r, o], ...]}
as a JSON or YAML array or as JSON Lines. By default only the first word of
subjects and objects is compared; --exact compares whole triples.`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().BoolVar(&evalExact, "exact", false, "compare whole triples (overrides exact_match)")
	evalCmd.Flags().StringVarP(&evalOutput, "output", "o", "", "write per-record diagnostics to this file")
	evalCmd.Flags().StringVar(&evalFormat, "format", "", "dataset format: json, yaml, jsonl or text (default: by extension)")
	evalCmd.Flags().BoolVar(&evalJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	exact := a.cfg.ExactMatch
	if cmd.Flags().Changed("exact") {
		exact = evalExact
	}

	loaded, err := readers.Default().LoadFile(cmd.Context(), args[0], evalFormat)
	if err != nil {
		return err
	}
	a.logger.Info("dataset loaded", "path", args[0], "reader", loaded.ReaderUsed, "records", len(loaded.Records))

	pipeline, err := a.pipeline()
	if err != nil {
		return err
	}

	opts := []evaluation.Option{
		evaluation.WithExactMatch(exact),
		evaluation.WithLogger(a.logger),
	}
	var diagnostics *os.File
	if evalOutput != "" {
		diagnostics, err = os.Create(evalOutput)
		if err != nil {
			return fmt.Errorf("failed to create diagnostics file %q: %w", evalOutput, err)
		}
		opts = append(opts, evaluation.WithDiagnostics(diagnostics))
	}

	report, err := evaluation.NewEvaluator(pipeline, opts...).Evaluate(cmd.Context(), loaded.Records)
	if err != nil {
		if diagnostics != nil {
			_ = diagnostics.Close()
		}
		return fmt.Errorf("evaluation failed: %w", err)
	}
	if diagnostics != nil {
		if err := diagnostics.Close(); err != nil {
			return fmt.Errorf("failed to close diagnostics file %q: %w", evalOutput, err)
		}
	}

	if evalJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderReport(report, a.runID))
	return nil
}

func renderReport(r evaluation.Report, runID string) string {
	mode := "partial"
	if r.ExactMatch {
		mode = "exact"
	}
	row := func(label, value string) string {
		return labelStyle.Render(label) + value
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(fmt.Sprintf("Evaluation (%s match, %d records)", mode, r.Records)),
		row("run", runID),
		row("correct", fmt.Sprintf("%.0f", r.Counts.Correct)),
		row("predicted", fmt.Sprintf("%.0f", r.Counts.Predicted)),
		row("gold", fmt.Sprintf("%.0f", r.Counts.Gold)),
		row("precision", scoreStyle.Render(fmt.Sprintf("%.4f", r.Precision))),
		row("recall", scoreStyle.Render(fmt.Sprintf("%.4f", r.Recall))),
		row("f1", scoreStyle.Render(fmt.Sprintf("%.4f", r.F1))),
	)
}
