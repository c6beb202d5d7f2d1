// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gemaraproj/casrel/internal/corpus"
	"github.com/gemaraproj/casrel/internal/corpus/readers"
	"github.com/gemaraproj/casrel/internal/extraction"
)

var extractJSON bool

var extractCmd = &cobra.Command{
	Use:   "extract [text...]",
	Short: "Extract triples from text",
	Long: `Extract (subject, relation, object) triples.

Arguments are joined into one document. Without arguments every non-empty
line of standard input is a separate document.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(extractCmd)
}

// documentResult is one extracted document in --json output.
type documentResult struct {
	Text       string              `json:"text"`
	Triples    []extraction.Triple `json:"triples"`
	TokenCount int                 `json:"token_count"`
	Truncated  bool                `json:"truncated"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := extractInputs(cmd, args)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no text to extract from")
	}

	pipeline, err := a.pipeline()
	if err != nil {
		return err
	}

	results := make([]documentResult, 0, len(docs))
	for i, text := range docs {
		res, err := pipeline.RunWithMeta(cmd.Context(), text)
		if err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		results = append(results, documentResult{
			Text:       text,
			Triples:    res.Triples,
			TokenCount: res.TokenCount,
			Truncated:  res.Truncated,
		})
	}
	a.logger.Info("extraction finished", "documents", len(results))

	if extractJSON {
		return outputExtractJSON(cmd, results)
	}
	outputExtractText(cmd, results)
	return nil
}

func extractInputs(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) > 0 {
		return []string{strings.Join(args, " ")}, nil
	}
	content, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	records, err := readers.NewTextReader().Read(cmd.Context(), corpus.Source{Content: content, ID: "stdin"})
	if err != nil {
		return nil, err
	}
	docs := make([]string, len(records))
	for i, r := range records {
		docs[i] = r.Text
	}
	return docs, nil
}

func outputExtractJSON(cmd *cobra.Command, results []documentResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func outputExtractText(cmd *cobra.Command, results []documentResult) {
	out := cmd.OutOrStdout()
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, r.Text)
		if r.Truncated {
			fmt.Fprintf(out, "  (truncated to %d tokens)\n", r.TokenCount)
		}
		if len(r.Triples) == 0 {
			fmt.Fprintln(out, "  No triples found.")
			continue
		}
		for _, t := range r.Triples {
			fmt.Fprintf(out, "  (%s, %s, %s)\n", t.Subject, t.Relation, t.Object)
		}
	}
}
