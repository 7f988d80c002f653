package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketEntries = []byte("entries")
	bucketMeta    = []byte("meta")
)

// ErrCorpusNotFound is returned when the corpus database file does not exist.
var ErrCorpusNotFound = errors.New("corpus database not found")

// BoltStore persists an imported corpus in a single bbolt file.
type BoltStore struct {
	db   *bbolt.DB
	path string
}

// NewBoltStore opens (creating if needed) the corpus database for writing.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketEntries, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltStore{db: db, path: path}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenReadOnly opens an existing corpus database without taking the write
// lock, so a running shell can reload while nothing is importing.
func OpenReadOnly(path string) (*BoltStore, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, path)
		}
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	s := &BoltStore{db: db, path: path}
	if _, err := s.CheckSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) Path() string {
	return s.path
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
