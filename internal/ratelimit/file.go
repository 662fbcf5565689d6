package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BradenHooton/kontakt/internal/models"
)

// fileRecord is the on-disk shape: {"<ip>": {"count": 2, "first_attempt": 1700000000}}.
type fileRecord struct {
	Count        int   `json:"count"`
	FirstAttempt int64 `json:"first_attempt"`
}

// FileStore persists counters in a JSON file.
//
// Writes within a process are serialized and the file is replaced atomically.
// Several processes sharing one file can still both read the same count and
// both be allowed; use RedisStore or the Postgres store when that matters.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  Clock
}

// NewFileStore returns a store backed by path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// SetClock overrides the time source.
func (s *FileStore) SetClock(now Clock) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *FileStore) CheckAndIncrement(ctx context.Context, ip string, max int, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return false, err
	}

	allowed := checkAndIncrement(records, ip, max, window, s.now())

	// Written even on rejection so that expired entries are flushed.
	if err := s.save(records); err != nil {
		return allowed, err
	}
	return allowed, nil
}

func (s *FileStore) PurgeExpired(ctx context.Context, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return 0, err
	}
	removed := purge(records, window, s.now())
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save(records)
}

// load reads the file; a missing or corrupt file is treated as empty.
func (s *FileStore) load() (map[string]*models.RateLimitRecord, error) {
	records := make(map[string]*models.RateLimitRecord)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rate limit file: %w", err)
	}

	var raw map[string]fileRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return records, nil
	}
	for ip, r := range raw {
		records[ip] = &models.RateLimitRecord{IP: ip, Count: r.Count, FirstAttempt: time.Unix(r.FirstAttempt, 0)}
	}
	return records, nil
}

func (s *FileStore) save(records map[string]*models.RateLimitRecord) error {
	raw := make(map[string]fileRecord, len(records))
	for ip, r := range records {
		raw[ip] = fileRecord{Count: r.Count, FirstAttempt: r.FirstAttempt.Unix()}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode rate limit file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp rate limit file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write rate limit file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close rate limit file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace rate limit file: %w", err)
	}
	return nil
}
