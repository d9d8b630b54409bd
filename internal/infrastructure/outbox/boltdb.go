package outbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store wraps BoltDB to persist post-commit effects until they reach the
// pharmacy API.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = "effects"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

// Enqueue stores an effect using a priority-aware key.
func (s *Store) Enqueue(effect Effect) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	effect.normalize()
	key := buildKey(effect)
	effect.bucketKey = []byte(key)

	payload, err := json.Marshal(effect)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(effect.bucketKey, payload)
	})
}

// GetBatch returns up to limit effects without removing them.
func (s *Store) GetBatch(limit int) ([]Effect, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var effects []Effect
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil && len(effects) < limit; k, v = c.Next() {
			var effect Effect
			if err := json.Unmarshal(v, &effect); err != nil {
				continue
			}
			effect.bucketKey = append([]byte(nil), k...)
			effects = append(effects, effect)
		}
		return nil
	})
	return effects, err
}

// Remove deletes the provided effect from the outbox.
func (s *Store) Remove(effect Effect) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if len(effect.bucketKey) == 0 {
		return s.deleteByID(effect.ID)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(effect.bucketKey)
	})
}

// Requeue re-inserts an effect after bumping its timestamp.
func (s *Store) Requeue(effect Effect) error {
	effect.bucketKey = nil
	effect.Timestamp = time.Now()
	return s.Enqueue(effect)
}

// Size returns the number of pending effects.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) deleteByID(id string) error {
	if id == "" {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var effect Effect
			if err := json.Unmarshal(v, &effect); err != nil {
				continue
			}
			if effect.ID == id {
				return c.Delete()
			}
		}
		return nil
	})
}

func buildKey(effect Effect) string {
	return fmt.Sprintf("%d_%020d_%s", effect.Priority, effect.Timestamp.UnixNano(), effect.ID)
}
