package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leadgate/leadgate/internal/logging"
	"github.com/leadgate/leadgate/internal/models"
)

// defaultExpiry is applied when a write carries no expiry at all. One hour is
// shorter than any lifetime Zoho actually issues, so the worst case is an
// early refresh rather than a stale token.
const defaultExpiry = time.Hour

// FileStore persists the token record as pretty-printed JSON in a single
// file. Writes go through a temp file and rename so a crash mid-write never
// leaves a truncated record behind.
type FileStore struct {
	path             string
	defaultAPIDomain string
	logger           *logging.Logger

	mu     sync.Mutex
	cached *models.TokenRecord
	loaded bool

	now func() time.Time
}

// NewFileStore creates a file-backed token store. defaultAPIDomain is
// recorded on writes that do not carry their own api_domain.
func NewFileStore(path, defaultAPIDomain string, logger *logging.Logger) *FileStore {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &FileStore{
		path:             path,
		defaultAPIDomain: defaultAPIDomain,
		logger:           logger,
		now:              time.Now,
	}
}

// Read returns the persisted token record, or nil when the file is missing or
// unreadable. The record is cached until the file changes.
func (s *FileStore) Read() *models.TokenRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.cached.Clone()
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read token file", "path", s.path, "error", err.Error())
		}
		s.cached = nil
		s.loaded = true
		return nil
	}

	var rec models.TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("token file is not valid JSON", "path", s.path, "error", err.Error())
		s.cached = nil
		s.loaded = true
		return nil
	}

	s.cached = &rec
	s.loaded = true
	return rec.Clone()
}

// Write persists the record, filling in defaults for fields the token
// endpoint did not supply. Records without both tokens are rejected.
func (s *FileStore) Write(rec *models.TokenRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := rec.Clone()
	if out.ExpiresAt == 0 {
		out.ExpiresAt = s.now().Add(defaultExpiry).UnixMilli()
		s.logger.Warn("token write carried no expiry, defaulting to one hour",
			"expires_at", out.ExpiresAt)
	}
	if out.APIDomain == "" {
		out.APIDomain = s.defaultAPIDomain
	}
	if out.TokenType == "" {
		out.TokenType = models.DefaultTokenType
	}
	out.CreatedAt = s.now().UTC().Format(time.RFC3339)

	if err := s.writeFile(out); err != nil {
		return err
	}

	s.cached = out
	s.loaded = true
	return nil
}

func (s *FileStore) writeFile(rec *models.TokenRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close token file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set token file mode: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// Invalidate drops the cached record so the next Read hits the file.
func (s *FileStore) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.cached = nil
	s.mu.Unlock()
}

// Watch invalidates the cache when the token file changes on disk, so tokens
// refreshed by another process are picked up without a restart. The directory
// is watched rather than the file because writes land via rename.
func (s *FileStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.path {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					s.Invalidate()
				}
			case <-watcher.Errors:
				// Ignore watcher errors; reads fall back to the file anyway.
			}
		}
	}()

	return nil
}
