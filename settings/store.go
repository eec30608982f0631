package settings

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotblauer/tripd/params"
	"go.etcd.io/bbolt"
)

// BoltStore keeps settings in a bbolt bucket.
type BoltStore struct {
	DB     *bbolt.DB
	bucket []byte
}

// OpenBoltStore opens (creating if needed) the settings database described by config.
// bbolt holds a file lock, so a second writer blocks until the first closes.
func OpenBoltStore(config *params.SettingsConfig) (*BoltStore, error) {
	if config == nil {
		config = params.DefaultSettingsConfig()
	}
	if err := os.MkdirAll(config.DataDir, 0700); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(config.DBPath(), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	slog.Debug("Opened settings store", "path", filepath.Clean(config.DBPath()))
	return &BoltStore{DB: db, bucket: params.SettingsBucket}, nil
}

func (s *BoltStore) Close() error {
	return s.DB.Close()
}

func (s *BoltStore) GetState(ctx context.Context, key string) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	got, err := s.readKV([]byte(key))
	if err != nil {
		slog.Warn("Failed to read setting", "key", key, "error", err)
		return "", false
	}
	if got == nil {
		return "", false
	}
	return string(got), true
}

func (s *BoltStore) SetState(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.storeKV([]byte(key), []byte(value))
}

func (s *BoltStore) storeKV(key []byte, data []byte) error {
	if key == nil {
		return fmt.Errorf("storeKV: nil key")
	}
	if data == nil {
		return fmt.Errorf("storeKV: nil data")
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}
		return bucket.Put(key, data)
	})
}

// readKV returns nil, nil for a missing key or bucket.
func (s *BoltStore) readKV(key []byte) ([]byte, error) {
	var out []byte
	err := s.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return nil
		}
		// Get's value is only valid for the life of the transaction.
		got := bucket.Get(key)
		if got == nil {
			return nil
		}
		out = bytes.Clone(got)
		return nil
	})
	return out, err
}

// MemoryStore is a Store that forgets on exit.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

func (s *MemoryStore) GetState(_ context.Context, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *MemoryStore) SetState(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}
