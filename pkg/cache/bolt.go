package cache

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/lborres/bantay/core"
)

var defaultBucket = []byte("authority")

// BoltStore is a LocalStore backed by a bbolt file, so cached roles
// survive process restarts. Every write is committed before Set returns.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
}

var _ core.LocalStore = (*BoltStore)(nil)

func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(defaultBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db, bucket: defaultBucket}, nil
}

func (s *BoltStore) Get(key string) (string, error) {
	var value string
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v != nil {
			// v is only valid inside the transaction
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", core.ErrCacheNotFound
	}
	return value, nil
}

func (s *BoltStore) Set(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), []byte(value))
	})
}

func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
