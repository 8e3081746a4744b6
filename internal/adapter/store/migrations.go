package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"docrag/config"
)

// CurrentSchemaVersion is bumped on breaking changes to the storage format.
// v2 added the source path index.
const CurrentSchemaVersion = 2

var keySchema = []byte("schema")

// SchemaInfo records which storage format and index settings built the
// file. Version 0 means the file predates version tracking or is new.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

// migrationSteps upgrade a file from version v to v+1 inside one
// transaction.
var migrationSteps = map[int]func(tx *bbolt.Tx) error{
	1: backfillSourcePaths,
}

func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	info := &SchemaInfo{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStats).Get(keySchema)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, info)
	})
	if err != nil {
		return nil, fmt.Errorf("read schema info: %w", err)
	}
	return info, nil
}

func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putSchema(tx, info)
	})
}

func putSchema(tx *bbolt.Tx, info *SchemaInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketStats).Put(keySchema, data)
}

// ComputeConfigHash hashes the settings that shape stored chunks, postings
// and vectors. A different hash means the index must be rebuilt.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		Chunking  config.ChunkingConfig `json:"chunking"`
		Provider  string                `json:"provider"`
		Model     string                `json:"model"`
		Dimension int                   `json:"dimension"`
		Embedded  bool                  `json:"embedded"`
	}{
		Chunking:  cfg.Chunking,
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Embedded:  cfg.Embedding.Enabled,
	}
	data, _ := json.Marshal(relevant)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

type MigrationResult struct {
	NeedsMigration bool
	NeedsRebuild   bool
	OldVersion     int
	NewVersion     int
	Reason         string
}

// CheckMigration compares the stored schema info with this build and cfg.
func (s *BoltStore) CheckMigration(cfg *config.Config) (*MigrationResult, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, err
	}
	res := &MigrationResult{OldVersion: info.Version, NewVersion: CurrentSchemaVersion}

	if info.Version > CurrentSchemaVersion {
		res.NeedsRebuild = true
		res.Reason = fmt.Sprintf("index written by a newer schema (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return res, nil
	}
	if info.ConfigHash != "" && info.ConfigHash != ComputeConfigHash(cfg) {
		res.NeedsRebuild = true
		res.Reason = "index configuration changed"
		return res, nil
	}
	switch {
	case info.Version == 0:
		res.NeedsMigration = true
		res.Reason = "initializing schema version"
	case info.Version < CurrentSchemaVersion:
		res.NeedsMigration = true
		res.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	}
	return res, nil
}

// Migrate runs the pending upgrade steps and stamps the current version and
// config hash, all in one transaction.
func (s *BoltStore) Migrate(cfg *config.Config) error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for v := max(info.Version, 1); v < CurrentSchemaVersion; v++ {
			step, ok := migrationSteps[v]
			if !ok {
				continue
			}
			if err := step(tx); err != nil {
				return fmt.Errorf("migrate v%d to v%d: %w", v, v+1, err)
			}
		}
		return putSchema(tx, &SchemaInfo{Version: CurrentSchemaVersion, ConfigHash: ComputeConfigHash(cfg)})
	})
}

// backfillSourcePaths indexes documents by their source file path.
func backfillSourcePaths(tx *bbolt.Tx) error {
	paths, err := tx.CreateBucketIfNotExists(bucketPaths)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketDocs).ForEach(func(id, v []byte) error {
		var rec docRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("decode document %s: %w", id, err)
		}
		if rec.Metadata.FilePath == "" {
			return nil
		}
		return paths.Put([]byte(rec.Metadata.FilePath), id)
	})
}

// Clear empties every data bucket and the vectors for a rebuild. The schema
// record is kept.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		buckets := append([][]byte{bucketVectors}, dataBuckets...)
		for _, name := range buckets {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketStats).Delete(keyStats)
	})
}

func (s *BoltStore) NeedsRebuild(cfg *config.Config) (bool, string, error) {
	res, err := s.CheckMigration(cfg)
	if err != nil {
		return false, "", err
	}
	return res.NeedsRebuild, res.Reason, nil
}
