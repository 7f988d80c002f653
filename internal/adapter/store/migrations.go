package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var keySchemaVersion = []byte("schema_version")

// CheckSchema returns the stored schema version. A database written by a
// newer folio is refused rather than misread.
func (s *BoltStore) CheckSchema() (int, error) {
	version := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}
		data := b.Get(keySchemaVersion)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &version)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > CurrentSchemaVersion {
		return version, fmt.Errorf("corpus database created by newer version (v%d > v%d); re-import it", version, CurrentSchemaVersion)
	}
	return version, nil
}

// Migrate brings the database up to CurrentSchemaVersion.
func (s *BoltStore) Migrate() error {
	version, err := s.CheckSchema()
	if err != nil {
		return err
	}
	for v := version; v < CurrentSchemaVersion; v++ {
		if err := s.runMigration(v, v+1); err != nil {
			return fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
		}
	}
	return nil
}

func (s *BoltStore) runMigration(from, to int) error {
	switch {
	case from == 0 && to == 1:
		// v1 only stamps the version; buckets are created on open
		return s.writeSchemaVersion(to)
	default:
		return fmt.Errorf("no migration path")
	}
}

func (s *BoltStore) writeSchemaVersion(version int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(version)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keySchemaVersion, data)
	})
}
