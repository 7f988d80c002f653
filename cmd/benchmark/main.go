package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"folio/config"
	"folio/internal/adapter/corpus"
	"folio/internal/adapter/memstore"
	"folio/internal/adapter/retriever"
	"folio/internal/adapter/store"
	"folio/internal/domain"
	"folio/internal/logging"
	"folio/internal/port"
)

func main() {
	dir := flag.String("dir", "", "Project directory whose corpus to benchmark (empty = synthetic corpus)")
	entries := flag.Int("n", 500, "Synthetic corpus size")
	dim := flag.Int("dim", 1536, "Synthetic embedding dimension")
	queries := flag.Int("queries", 200, "Number of queries")
	noise := flag.Float64("noise", 0.05, "Stddev of the noise added to each probe vector")
	topK := flag.Int("k", 3, "Number of results")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	logger, err := logging.New("warn", false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	rng := rand.New(rand.NewSource(*seed))

	var corpusEntries []domain.VectorEntry
	origin := "synthetic"
	if *dir != "" {
		corpusEntries, origin, err = loadCorpus(*dir, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading corpus: %v\n", err)
			os.Exit(1)
		}
	} else {
		corpusEntries = synthesize(rng, *entries, *dim)
	}

	st, err := memstore.NewVectorStoreWith(corpusEntries, origin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building store: %v\n", err)
		os.Exit(1)
	}
	if !st.IsLoaded() {
		fmt.Fprintln(os.Stderr, "Corpus is empty; nothing to benchmark")
		os.Exit(1)
	}
	r := retriever.NewSemanticRetriever(st, retriever.WithLogger(logger))

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	stats := st.Stats()
	fmt.Printf("Corpus:    %s\n", stats.Origin)
	fmt.Printf("Entries:   %d\n", stats.Entries)
	fmt.Printf("Dimension: %d\n", stats.Dimension)
	fmt.Printf("Queries:   %d (k=%d, noise=%.3f)\n\n", *queries, *topK, *noise)

	all := st.All()
	latencies := make([]time.Duration, 0, *queries)
	var mrr float64
	ctx := context.Background()

	for i := 0; i < *queries; i++ {
		target := all[rng.Intn(len(all))]
		probe := perturb(rng, target.Embedding, *noise)

		start := time.Now()
		top, err := r.TopK(ctx, probe, *topK)
		latencies = append(latencies, time.Since(start))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query error: %v\n", err)
			os.Exit(1)
		}
		mrr += reciprocalRank(top, target)
	}
	mrr /= float64(*queries)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	fmt.Println("LATENCY")
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("p50: %s\n", percentile(latencies, 0.50))
	fmt.Printf("p95: %s\n", percentile(latencies, 0.95))
	fmt.Printf("max: %s\n\n", latencies[len(latencies)-1])

	fmt.Println("QUALITY")
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("MRR@%d of perturbed self-queries: %.3f\n", *topK, mrr)
	switch {
	case mrr >= 0.9:
		fmt.Println("Retrieval is stable under small query perturbations.")
	case mrr >= 0.5:
		fmt.Println("Neighbouring chunks are close; expect mixed context for similar questions.")
	default:
		fmt.Println("Chunks are hard to tell apart; consider re-chunking or a larger embedding model.")
	}
}

func loadCorpus(dir string, logger *zap.Logger) ([]domain.VectorEntry, string, error) {
	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		return nil, "", err
	}

	var loader port.CorpusLoader
	if cfg.Corpus.Backend == "bolt" {
		loader = store.NewBoltCorpus(cfg.BoltPath(dir), logger)
	} else {
		loader, err = corpus.NewFileLoader(dir, cfg.Corpus.Patterns, logger)
		if err != nil {
			return nil, "", err
		}
	}
	entries, err := loader.Load(context.Background())
	return entries, loader.Origin(), err
}

func synthesize(rng *rand.Rand, n, dim int) []domain.VectorEntry {
	sections := domain.KnownSections()
	out := make([]domain.VectorEntry, n)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		out[i] = domain.VectorEntry{
			Source:    sections[i%len(sections)] + ".jsx",
			Text:      fmt.Sprintf("synthetic chunk %d", i),
			Embedding: v,
		}
	}
	return out
}

func perturb(rng *rand.Rand, v []float32, stddev float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x + float32(rng.NormFloat64()*stddev)
	}
	return out
}

func reciprocalRank(top []domain.ScoredCandidate, target domain.VectorEntry) float64 {
	for i, c := range top {
		if c.Entry.Text == target.Text && c.Entry.Source == target.Source {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
