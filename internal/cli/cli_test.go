package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCorpus = `[
  {"source": "About.jsx", "text": "A", "embedding": [1, 0]},
  {"source": "Skills.jsx", "text": "B", "embedding": [0, 1]},
  {"source": "About.jsx", "text": "C", "embedding": [0.9, 0.1]}
]`

func setupProject(t *testing.T, extraConfig string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "embeddings.json"), []byte(testCorpus), 0o644))
	conf := "embedding:\n  provider: mock\n  dimension: 2\nlogging:\n  level: error\n" + extraConfig
	require.NoError(t, os.WriteFile(filepath.Join(dir, "folio.yaml"), []byte(conf), 0o644))
	return dir
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cfgFile, rootDir, logLevel, logJSON = "", "", "", false
	queryText, queryVector, queryTopK, queryJSON = "", "", 0, false
	statusJSON = false
	shellTopK, shellWatch, shellJSON = 0, false, false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestQueryVector(t *testing.T) {
	dir := setupProject(t, "")

	out, err := runCLI(t, "", "query", "--dir", dir, "--vector", "[1, 0]", "--json")
	require.NoError(t, err)

	var bundle struct {
		Context string   `json:"context"`
		Sources []string `json:"sources"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &bundle))
	assert.Equal(t, "A\n\nC\n\nB", bundle.Context)
	assert.Equal(t, []string{"About", "Skills"}, bundle.Sources)
}

func TestQueryVector_NoCorpus(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "folio.yaml"), []byte("logging:\n  level: error\n"), 0o644))

	_, err := runCLI(t, "", "query", "--dir", dir, "--vector", "[1, 0]")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval unavailable")
}

func TestParseVector(t *testing.T) {
	vec, err := parseVector("[0.5, -1, 2e-3]")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1, 0.002}, vec)

	_, err = parseVector("[]")
	assert.Error(t, err)
	_, err = parseVector("1,2")
	assert.Error(t, err)
}

func TestStatusJSON(t *testing.T) {
	dir := setupProject(t, "")

	out, err := runCLI(t, "", "status", "--dir", dir, "--json")
	require.NoError(t, err)

	var report struct {
		Loaded    bool           `json:"loaded"`
		Entries   int            `json:"entries"`
		Dimension int            `json:"dimension"`
		Backend   string         `json:"backend"`
		TopK      int            `json:"top_k"`
		Policy    string         `json:"mismatch_policy"`
		Sections  map[string]int `json:"sections"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Loaded)
	assert.Equal(t, 3, report.Entries)
	assert.Equal(t, 2, report.Dimension)
	assert.Equal(t, "file", report.Backend)
	assert.Equal(t, 3, report.TopK)
	assert.Equal(t, "skip", report.Policy)
	assert.Equal(t, map[string]int{"About": 2, "Skills": 1}, report.Sections)
}

func TestImportThenServeFromBolt(t *testing.T) {
	dir := setupProject(t, "")

	out, err := runCLI(t, "", "import", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 entries")
	assert.FileExists(t, filepath.Join(dir, ".folio", "corpus.db"))

	// serve from the imported copy only
	require.NoError(t, os.Remove(filepath.Join(dir, "data", "embeddings.json")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "folio.yaml"),
		[]byte("corpus:\n  backend: bolt\nembedding:\n  provider: mock\n  dimension: 2\nlogging:\n  level: error\n"), 0o644))

	out, err = runCLI(t, "", "query", "--dir", dir, "--vector", "[0, 1]", "-k", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Sources: Skills")
	assert.Contains(t, out, "B")
}

func TestShell(t *testing.T) {
	dir := setupProject(t, "")

	out, err := runCLI(t, "what do you do?\n:status\n:k 1\n\n:reload\n:quit\nnever reached\n", "shell", "--dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "loaded=true entries=3 dimension=2")
	assert.Contains(t, out, "reloaded 3 entries")
}

func TestInvalidConfigIsRejected(t *testing.T) {
	dir := setupProject(t, "retrieve:\n  top_k: 0\n")

	_, err := runCLI(t, "", "status", "--dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieve.topk")
}
