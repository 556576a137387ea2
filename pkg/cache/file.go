package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type fileEntry struct {
	Value    json.RawMessage `json:"value"`
	ExpireAt time.Time       `json:"expireAt,omitempty"`
}

// FileCache keeps every key in one JSON document on disk.
// Writes go to a temp file in the same directory and are renamed into place.
type FileCache struct {
	path  string
	mutex sync.Mutex
}

// NewFileCache creates a file-backed cache at path, creating parent directories.
func NewFileCache(path string) (*FileCache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("file cache: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file cache mkdir: %w", err)
	}
	return &FileCache{path: path}, nil
}

// Path returns the backing file location.
func (fc *FileCache) Path() string {
	return fc.path
}

func (fc *FileCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if !json.Valid(data) {
		// raw strings and bytes are kept as a JSON string
		if data, err = json.Marshal(string(data)); err != nil {
			return fmt.Errorf("file cache encode: %w", err)
		}
	}

	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	entries, err := fc.load()
	if err != nil {
		return err
	}
	entry := fileEntry{Value: data}
	if expiration > 0 {
		entry.ExpireAt = time.Now().Add(expiration)
	}
	entries[key] = entry
	return fc.store(entries)
}

func (fc *FileCache) Get(_ context.Context, key string, dest interface{}) error {
	fc.mutex.Lock()
	entries, err := fc.load()
	fc.mutex.Unlock()
	if err != nil {
		return err
	}

	entry, ok := entries[key]
	if !ok || entry.expired() {
		return ErrCacheMiss
	}
	return decodeRaw(entry.Value, dest)
}

func (fc *FileCache) Delete(_ context.Context, keys ...string) error {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	entries, err := fc.load()
	if err != nil {
		return err
	}
	for _, key := range keys {
		delete(entries, key)
	}
	return fc.store(entries)
}

func (fc *FileCache) Exists(_ context.Context, keys ...string) (bool, error) {
	fc.mutex.Lock()
	entries, err := fc.load()
	fc.mutex.Unlock()
	if err != nil {
		return false, err
	}
	for _, key := range keys {
		if entry, ok := entries[key]; ok && !entry.expired() {
			return true, nil
		}
	}
	return false, nil
}

func (fc *FileCache) Close() error {
	return nil
}

func (e fileEntry) expired() bool {
	return !e.ExpireAt.IsZero() && time.Now().After(e.ExpireAt)
}

func (fc *FileCache) load() (map[string]fileEntry, error) {
	entries := make(map[string]fileEntry)
	data, err := os.ReadFile(fc.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("file cache read: %w", err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		// an unreadable file is treated as empty and rewritten on next Set
		return make(map[string]fileEntry), nil
	}
	return entries, nil
}

func (fc *FileCache) store(entries map[string]fileEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("file cache encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fc.path), filepath.Base(fc.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("file cache temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("file cache write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("file cache sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("file cache close: %w", err)
	}
	if err := os.Rename(tmpName, fc.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("file cache rename: %w", err)
	}
	return nil
}

// decodeRaw undoes the string wrapping applied by Set for non-JSON values.
func decodeRaw(raw json.RawMessage, dest interface{}) error {
	switch d := dest.(type) {
	case *[]byte, *string:
		var s string
		if len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
			return decode([]byte(s), d)
		}
		return decode(raw, d)
	default:
		return json.Unmarshal(raw, dest)
	}
}
