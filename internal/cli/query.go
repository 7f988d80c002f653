package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"folio/internal/domain"
)

var (
	queryText   string
	queryVector string
	queryTopK   int
	queryJSON   bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Retrieve context for a question",
	Long: `Embed a question, rank the corpus by cosine similarity and print the
context bundle: the top-k chunk texts and the sections they came from.

Examples:
  folio query -q "what are your skills?"
  folio query -q "where have you worked?" -k 5 --json
  folio query --vector "[1, 0]"            # skip embedding, rank a raw vector`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question to retrieve context for")
	queryCmd.Flags().StringVar(&queryVector, "vector", "", "query embedding as a JSON array, instead of a question")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagsMutuallyExclusive("query", "vector")
	queryCmd.MarkFlagsOneRequired("query", "vector")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	useVector := queryVector != ""

	a, err := newApp(GetConfig(), GetRootDir(), !useVector)
	if err != nil {
		return err
	}
	if _, err := a.corpus.Reload(ctx); err != nil {
		return err
	}

	var bundle domain.ContextBundle
	if useVector {
		vec, err := parseVector(queryVector)
		if err != nil {
			return err
		}
		bundle, err = a.query.RetrieveVector(ctx, vec, queryTopK)
		if err != nil {
			return describeQueryError(err)
		}
	} else {
		bundle, err = a.query.Ask(ctx, queryText, queryTopK)
		if err != nil {
			return describeQueryError(err)
		}
	}

	return printBundle(cmd.OutOrStdout(), bundle, queryJSON)
}

func parseVector(s string) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal([]byte(s), &vec); err != nil {
		return nil, fmt.Errorf("invalid --vector, want a JSON array of numbers: %w", err)
	}
	if len(vec) == 0 {
		return nil, domain.ErrEmptyQuery
	}
	return vec, nil
}

func describeQueryError(err error) error {
	if errors.Is(err, domain.ErrStoreNotLoaded) {
		return fmt.Errorf("retrieval unavailable: %w (import a corpus or check corpus.patterns)", err)
	}
	return err
}

func printBundle(w io.Writer, bundle domain.ContextBundle, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	}

	if bundle.IsEmpty() {
		fmt.Fprintln(w, "No context found.")
		return nil
	}
	fmt.Fprintf(w, "Sources: %s\n\n", strings.Join(bundle.Sources, ", "))
	fmt.Fprintln(w, bundle.ContextText)
	return nil
}
