package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/rohankatakam/codeimpact/internal/errors"
	"github.com/rohankatakam/codeimpact/internal/treesitter"
)

const unitBucket = "unit_results"

// BoltUnitCache persists per-unit analysis results in a bbolt file, keyed by
// the unit content hash. It implements ingestion.UnitCache.
type BoltUnitCache struct {
	db     *bolt.DB
	path   string
	logger *logrus.Logger
}

// Open opens (creating if needed) the cache database at path
func Open(path string, logger *logrus.Logger) (*BoltUnitCache, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.WarnLevel)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.FileSystemError(err, "failed to create cache directory")
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.StorageError(err, "failed to open unit cache").WithContext("path", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(unitBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, errors.StorageError(err, "failed to initialize unit cache")
	}

	logger.WithField("path", path).Debug("Unit cache opened")
	return &BoltUnitCache{db: db, path: path, logger: logger}, nil
}

// Get returns the cached result for hash. A corrupt entry is treated as a miss.
func (c *BoltUnitCache) Get(hash string) (*treesitter.UnitResult, bool, error) {
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(unitBucket))
		if bucket == nil {
			return nil
		}
		if v := bucket.Get([]byte(hash)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, errors.StorageError(err, "failed to read unit cache")
	}
	if data == nil {
		return nil, false, nil
	}

	var result treesitter.UnitResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.WithError(err).WithField("hash", hash).Warn("Discarding corrupt unit cache entry")
		return nil, false, nil
	}
	return &result, true, nil
}

// Put stores result under its hash
func (c *BoltUnitCache) Put(result *treesitter.UnitResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, errors.SeverityHigh, "failed to encode unit result")
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(unitBucket))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(result.Hash), data)
	})
	if err != nil {
		return errors.StorageError(err, "failed to write unit cache").WithContext("path", result.Path)
	}
	return nil
}

// Len returns the number of cached units
func (c *BoltUnitCache) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *bolt.Tx) error {
		if bucket := tx.Bucket([]byte(unitBucket)); bucket != nil {
			n = bucket.Stats().KeyN
		}
		return nil
	})
	if err != nil {
		return 0, errors.StorageError(err, "failed to read unit cache")
	}
	return n, nil
}

// Clear drops every cached unit
func (c *BoltUnitCache) Clear() error {
	c.logger.WithField("path", c.path).Info("Clearing unit cache")
	err := c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(unitBucket)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket([]byte(unitBucket))
		return err
	})
	if err != nil {
		return errors.StorageError(err, "failed to clear unit cache")
	}
	return nil
}

// Close releases the database file lock
func (c *BoltUnitCache) Close() error {
	return c.db.Close()
}
