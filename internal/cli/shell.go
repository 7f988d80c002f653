package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"folio/internal/adapter/corpus"
	"folio/internal/domain"
)

var (
	shellTopK  int
	shellWatch bool
	shellJSON  bool
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Answer questions from stdin, one per line",
	Long: `Load the corpus once and retrieve context for every line read from stdin.
With --watch (or corpus.watch: true) the corpus files are watched and
reloaded when they change; queries keep being served from the previous
snapshot until the new one is ready.

Commands:
  :status     show the loaded corpus
  :reload     reload the corpus now
  :k N        change top-k
  :quit       exit`,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().IntVarP(&shellTopK, "top-k", "k", 0, "number of chunks (default from config)")
	shellCmd.Flags().BoolVar(&shellWatch, "watch", false, "reload when corpus files change")
	shellCmd.Flags().BoolVar(&shellJSON, "json", false, "print bundles as JSON")
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, GetRootDir(), true)
	if err != nil {
		return err
	}
	if _, err := a.corpus.Reload(ctx); err != nil {
		// keep going: a later :reload or file change may fix it
		logger.Warn("starting without a corpus", zap.Error(err))
	}

	if shellWatch || cfg.Corpus.Watch {
		if a.fileLoader == nil {
			logger.Warn("watching is only supported for the file backend; use :reload after importing")
		} else {
			w := corpus.NewWatcher(a.fileLoader, cfg.Corpus.Debounce, func(ctx context.Context) {
				_, _ = a.corpus.Reload(ctx)
			}, logger)
			go func() {
				if err := w.Run(ctx); err != nil {
					logger.Warn("corpus watcher stopped", zap.Error(err))
				}
			}()
		}
	}

	k := shellTopK
	out := cmd.OutOrStdout()
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
				continue
			case line == ":quit" || line == ":q":
				return nil
			case line == ":status":
				s := a.corpus.Stats()
				fmt.Fprintf(out, "loaded=%t entries=%d dimension=%d origin=%s generation=%d\n",
					s.Loaded, s.Entries, s.Dimension, s.Origin, s.Generation)
			case line == ":reload":
				if s, err := a.corpus.Reload(ctx); err != nil {
					fmt.Fprintf(out, "reload failed: %v\n", err)
				} else {
					fmt.Fprintf(out, "reloaded %d entries\n", s.Entries)
				}
			case strings.HasPrefix(line, ":k "):
				n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, ":k ")))
				if err != nil || n < 1 {
					fmt.Fprintln(out, "usage: :k N (N >= 1)")
					continue
				}
				k = n
			default:
				bundle, err := a.query.Ask(ctx, line, k)
				if err != nil {
					if errors.Is(err, domain.ErrStoreNotLoaded) || errors.Is(err, domain.ErrInvalidQuestion) {
						fmt.Fprintf(out, "%v\n", err)
						continue
					}
					logger.Error("query failed", zap.Error(err))
					fmt.Fprintf(out, "error: %v\n", err)
					continue
				}
				if err := printBundle(out, bundle, shellJSON); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
		}
	}
}
