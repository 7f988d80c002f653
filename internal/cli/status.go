package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"folio/internal/adapter/retriever"
	"folio/internal/adapter/store"
	"folio/internal/domain"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a corpus is loaded and what it covers",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

type statusReport struct {
	domain.StoreStats
	Backend        string            `json:"backend"`
	TopK           int               `json:"top_k"`
	MismatchPolicy string            `json:"mismatch_policy"`
	Sections       map[string]int    `json:"sections"`
	Import         *store.CorpusInfo `json:"import,omitempty"`
	Error          string            `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	a, err := newApp(cfg, GetRootDir(), false)
	if err != nil {
		return err
	}

	report := statusReport{
		Backend:        cfg.Corpus.Backend,
		TopK:           a.query.TopK(),
		MismatchPolicy: a.retriever.Policy().String(),
	}
	stats, err := a.corpus.Reload(cmd.Context())
	if err != nil {
		report.Error = err.Error()
	}
	report.StoreStats = stats
	report.Sections = a.corpus.Coverage(retriever.NormalizeSource)

	if cfg.Corpus.Backend == "bolt" {
		if info, err := store.NewBoltCorpus(cfg.BoltPath(GetRootDir()), logger).Info(); err == nil {
			report.Import = &info
		}
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if !report.Loaded {
		fmt.Fprintln(out, "Status:    not loaded")
		if report.Error != "" {
			fmt.Fprintf(out, "Error:     %s\n", report.Error)
		}
		return nil
	}
	fmt.Fprintln(out, "Status:    loaded")
	fmt.Fprintf(out, "Origin:    %s\n", report.Origin)
	fmt.Fprintf(out, "Entries:   %d\n", report.Entries)
	fmt.Fprintf(out, "Dimension: %d\n", report.Dimension)
	fmt.Fprintf(out, "Loaded at: %s\n", report.LoadedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Top-k:     %d (mismatch: %s)\n", report.TopK, report.MismatchPolicy)
	if report.Import != nil {
		fmt.Fprintf(out, "Imported:  %s (model %s)\n", report.Import.ImportedAt.Format(time.RFC3339), report.Import.Model)
	}

	fmt.Fprintln(out, "Sections:")
	for _, name := range domain.KnownSections() {
		fmt.Fprintf(out, "  %-12s %d\n", name, report.Sections[name])
	}
	var other []string
	for name := range report.Sections {
		if !domain.KnownSection(name) {
			other = append(other, name)
		}
	}
	sort.Strings(other)
	for _, name := range other {
		fmt.Fprintf(out, "  %-12s %d (unlisted)\n", name, report.Sections[name])
	}
	return nil
}
