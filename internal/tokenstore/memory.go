package tokenstore

import (
	"sync"
	"time"

	"github.com/leadgate/leadgate/internal/models"
)

// MemoryStore keeps the token record in memory. Used in tests and anywhere
// persistence across restarts is not wanted.
type MemoryStore struct {
	mu  sync.Mutex
	rec *models.TokenRecord
}

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Read returns the stored record, or nil when nothing has been written.
func (s *MemoryStore) Read() *models.TokenRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Clone()
}

// Write stores a copy of the record. Records without both tokens are
// rejected and a missing expiry gets the one-hour default, matching the
// file-backed store.
func (s *MemoryStore) Write(rec *models.TokenRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	out := rec.Clone()
	if out.ExpiresAt == 0 {
		out.ExpiresAt = time.Now().Add(defaultExpiry).UnixMilli()
	}
	if out.TokenType == "" {
		out.TokenType = models.DefaultTokenType
	}
	s.mu.Lock()
	s.rec = out
	s.mu.Unlock()
	return nil
}
