package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"folio/internal/domain"
)

var (
	keyOrigin     = []byte("origin")
	keyImportedAt = []byte("imported_at")
	keyCount      = []byte("count")
	keyDimension  = []byte("dimension")
	keyModel      = []byte("model")
)

type storedEntry struct {
	Source string    `json:"s,omitempty"`
	Text   string    `json:"t"`
	Vector []float32 `json:"v"`
}

// CorpusInfo describes the last import.
type CorpusInfo struct {
	Origin     string    `json:"origin"`
	Model      string    `json:"model,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
	Count      int       `json:"count"`
	Dimension  int       `json:"dimension"`
}

// Import replaces the stored corpus with entries, keeping their order.
// progress, if set, is called after each entry is written.
func (s *BoltStore) Import(ctx context.Context, entries []domain.VectorEntry, origin, model string, progress func()) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketEntries) != nil {
			if err := tx.DeleteBucket(bucketEntries); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(bucketEntries)
		if err != nil {
			return err
		}

		dim := 0
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if dim == 0 {
				dim = len(e.Embedding)
			}
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			data, err := json.Marshal(storedEntry{Source: e.Source, Text: e.Text, Vector: e.Embedding})
			if err != nil {
				return err
			}
			if err := b.Put(sequenceKey(seq), data); err != nil {
				return err
			}
			if progress != nil {
				progress()
			}
		}

		meta := tx.Bucket(bucketMeta)
		puts := map[string]string{
			string(keyOrigin):     origin,
			string(keyModel):      model,
			string(keyImportedAt): time.Now().UTC().Format(time.RFC3339),
			string(keyCount):      strconv.Itoa(len(entries)),
			string(keyDimension):  strconv.Itoa(dim),
		}
		for k, v := range puts {
			if err := meta.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Entries returns the stored corpus in import order.
func (s *BoltStore) Entries(ctx context.Context) ([]domain.VectorEntry, error) {
	var entries []domain.VectorEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}
		entries = make([]domain.VectorEntry, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupt entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			entries = append(entries, domain.VectorEntry{
				Source:    stored.Source,
				Text:      stored.Text,
				Embedding: stored.Vector,
			})
			return nil
		})
	})
	return entries, err
}

func (s *BoltStore) Info() (CorpusInfo, error) {
	var info CorpusInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return nil
		}
		info.Origin = string(meta.Get(keyOrigin))
		info.Model = string(meta.Get(keyModel))
		if v := meta.Get(keyImportedAt); v != nil {
			info.ImportedAt, _ = time.Parse(time.RFC3339, string(v))
		}
		info.Count, _ = strconv.Atoi(string(meta.Get(keyCount)))
		info.Dimension, _ = strconv.Atoi(string(meta.Get(keyDimension)))
		return nil
	})
	return info, err
}

// big-endian keeps bbolt's byte ordering equal to insertion order
func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// BoltCorpus loads the imported corpus, opening the database only for the
// duration of each load.
type BoltCorpus struct {
	path   string
	logger *zap.Logger
}

func NewBoltCorpus(path string, logger *zap.Logger) *BoltCorpus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoltCorpus{path: path, logger: logger}
}

func (c *BoltCorpus) Origin() string {
	return "bolt:" + c.path
}

// Load returns nothing, without error, when no corpus has been imported yet.
func (c *BoltCorpus) Load(ctx context.Context) ([]domain.VectorEntry, error) {
	s, err := OpenReadOnly(c.path)
	if err != nil {
		if errors.Is(err, ErrCorpusNotFound) {
			c.logger.Warn("no imported corpus, retrieval stays disabled", zap.String("path", c.path))
			return nil, nil
		}
		return nil, err
	}
	defer s.Close()

	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	if info, err := s.Info(); err == nil {
		c.logger.Debug("read imported corpus",
			zap.String("origin", info.Origin),
			zap.String("model", info.Model),
			zap.Time("imported_at", info.ImportedAt),
			zap.Int("entries", len(entries)))
	}
	return entries, nil
}

// Info reports the metadata of the last import.
func (c *BoltCorpus) Info() (CorpusInfo, error) {
	s, err := OpenReadOnly(c.path)
	if err != nil {
		return CorpusInfo{}, err
	}
	defer s.Close()
	return s.Info()
}
