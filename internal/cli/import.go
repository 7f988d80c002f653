package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"folio/config"
	"folio/internal/adapter/corpus"
	"folio/internal/adapter/store"
	"folio/internal/usecase"
)

var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import embeddings files into the corpus database",
	Long: `Validate embeddings files and store them in .folio/corpus.db, replacing
any previous import. Without arguments the files matching corpus.patterns
are imported. Set corpus.backend to "bolt" to serve the imported corpus.

Examples:
  folio import                          # Import files matching corpus.patterns
  folio import data/embeddings.json     # Import a specific file`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	rootDir := GetRootDir()
	ctx := cmd.Context()

	files := args
	if len(files) == 0 {
		loader, err := corpus.NewFileLoader(rootDir, cfg.Corpus.Patterns, logger)
		if err != nil {
			return err
		}
		files, err = loader.Files()
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no files match %s under %s", strings.Join(cfg.Corpus.Patterns, ", "), rootDir)
		}
	}

	if err := config.EnsureDataDir(rootDir); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := cfg.BoltPath(rootDir)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create corpus directory: %w", err)
	}
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open corpus database: %w", err)
	}
	defer st.Close()

	uc := usecase.NewImportUseCase(st, cfg.Embedding.Model, logger)
	entries, result, err := uc.Read(ctx, files)
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s\n", e)
	}

	out := cmd.OutOrStdout()
	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Importing[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)

	if err := uc.Write(ctx, entries, strings.Join(files, ","), func() { _ = bar.Add(1) }); err != nil {
		return err
	}
	_ = bar.Finish()

	fmt.Fprintf(out, "Imported %d entries (dimension %d) from %d file(s) into %s\n",
		result.Entries, result.Dimension, result.Files, dbPath)
	if cfg.Corpus.Backend != "bolt" {
		fmt.Fprintln(out, `Set corpus.backend: bolt to serve queries from the imported corpus.`)
	}
	return nil
}
