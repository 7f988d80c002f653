package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"folio/internal/domain"
)

func sampleEntries(n int) []domain.VectorEntry {
	entries := make([]domain.VectorEntry, n)
	for i := range entries {
		entries[i] = domain.VectorEntry{
			Source:    fmt.Sprintf("Section%d.jsx", i%3),
			Text:      fmt.Sprintf("chunk %d", i),
			Embedding: []float32{float32(i), 1},
		}
	}
	return entries
}

func TestBoltStore_ImportAndReadBackInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.db")
	s, err := NewBoltStore(path)
	require.NoError(t, err)

	// enough entries that lexical and numeric key order would differ
	entries := sampleEntries(300)
	written := 0
	require.NoError(t, s.Import(context.Background(), entries, "data/embeddings.json", "text-embedding-3-small", func() { written++ }))
	assert.Equal(t, 300, written)

	got, err := s.Entries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	info, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, "data/embeddings.json", info.Origin)
	assert.Equal(t, "text-embedding-3-small", info.Model)
	assert.Equal(t, 300, info.Count)
	assert.Equal(t, 2, info.Dimension)
	assert.False(t, info.ImportedAt.IsZero())
	require.NoError(t, s.Close())
}

func TestBoltStore_ImportReplaces(t *testing.T) {
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Import(context.Background(), sampleEntries(10), "first", "", nil))
	second := []domain.VectorEntry{{Source: "About.jsx", Text: "only", Embedding: []float32{1, 0}}}
	require.NoError(t, s.Import(context.Background(), second, "second", "", nil))

	got, err := s.Entries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestBoltStore_ImportCancelledKeepsPrevious(t *testing.T) {
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Import(context.Background(), sampleEntries(3), "first", "", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Import(ctx, sampleEntries(5), "second", "", nil)
	require.ErrorIs(t, err, context.Canceled)

	got, err := s.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3, "failed import must roll back")
}

func TestBoltStore_StampsSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.db")
	s, err := NewBoltStore(path)
	require.NoError(t, err)

	version, err := s.CheckSchema()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
	require.NoError(t, s.Close())

	// reopening an up-to-date database leaves it as is
	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()
	version, err = s.CheckSchema()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestBoltStore_RefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.db")
	s, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keySchemaVersion, []byte("99"))
	}))
	require.NoError(t, s.Close())

	_, err = NewBoltStore(path)
	assert.Error(t, err)
	_, err = OpenReadOnly(path)
	assert.Error(t, err)
}

func TestBoltCorpus_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.db")
	s, err := NewBoltStore(path)
	require.NoError(t, err)
	entries := sampleEntries(4)
	require.NoError(t, s.Import(context.Background(), entries, "seed", "mock", nil))
	require.NoError(t, s.Close())

	c := NewBoltCorpus(path, nil)
	got, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entries, got)
	assert.Equal(t, "bolt:"+path, c.Origin())

	info, err := c.Info()
	require.NoError(t, err)
	assert.Equal(t, "seed", info.Origin)
}

func TestBoltCorpus_MissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	c := NewBoltCorpus(path, nil)

	got, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = c.Info()
	assert.True(t, errors.Is(err, ErrCorpusNotFound))
}
