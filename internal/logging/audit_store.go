package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leadgate/leadgate/internal/errors"
)

// AuditQueryFilters narrows an audit event query. Zero values are ignored.
type AuditQueryFilters struct {
	EventType string
	Action    string
	Status    string
	Resource  string
	Since     time.Time
	Limit     int
}

// AuditStore persists audit events.
type AuditStore interface {
	SaveEvent(event *AuditEvent) error
	SaveEventAsync(event *AuditEvent)
	QueryEvents(ctx context.Context, filters AuditQueryFilters) ([]*AuditEvent, error)
	CountEvents(ctx context.Context, filters AuditQueryFilters) (int, error)
	Close() error
}

// SQLiteAuditStore implements AuditStore on a local SQLite database. Writes
// issued through SaveEventAsync are drained by a background worker so the
// request path never blocks on disk.
type SQLiteAuditStore struct {
	db        *sql.DB
	logger    *Logger
	eventChan chan *AuditEvent
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewSQLiteAuditStore opens (creating if needed) the audit database at path.
func NewSQLiteAuditStore(path string) (*SQLiteAuditStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &errors.ErrDatabaseOpen{Path: path, Err: err}
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &errors.ErrDatabaseOpen{Path: path, Err: err}
	}

	store := &SQLiteAuditStore{
		db:        db,
		logger:    NewLogger(),
		eventChan: make(chan *AuditEvent, 256),
		done:      make(chan struct{}),
	}

	if err := store.createTable(); err != nil {
		db.Close()
		return nil, &errors.ErrDatabaseOpen{Path: path, Err: err}
	}

	store.wg.Add(1)
	go store.drain()

	return store, nil
}

func (s *SQLiteAuditStore) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			event_type TEXT NOT NULL,
			severity TEXT,
			ip_address TEXT,
			action TEXT,
			resource TEXT,
			status TEXT,
			details TEXT,
			error_message TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_events_type ON audit_events(event_type);
		CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
	`
	_, err := s.db.Exec(query)
	return err
}

// SaveEvent persists an event synchronously.
func (s *SQLiteAuditStore) SaveEvent(event *AuditEvent) error {
	if event == nil {
		return nil
	}
	var details string
	if len(event.Details) > 0 {
		data, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
		details = string(data)
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO audit_events
			(id, timestamp, event_type, severity, ip_address, action, resource, status, details, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.UTC(), string(event.EventType), string(event.Severity),
		event.IPAddress, event.Action, event.Resource, string(event.Status),
		details, event.ErrorMessage,
	)
	return err
}

// SaveEventAsync queues an event for the background writer. The event is
// dropped with a warning if the queue is full; audit writes never block the
// submission pipeline.
func (s *SQLiteAuditStore) SaveEventAsync(event *AuditEvent) {
	if event == nil {
		return
	}
	select {
	case s.eventChan <- event:
	default:
		s.logger.Warn("audit queue full, dropping event", "event_type", string(event.EventType))
	}
}

func (s *SQLiteAuditStore) drain() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			// Flush whatever is still queued.
			for {
				select {
				case event := <-s.eventChan:
					if err := s.SaveEvent(event); err != nil {
						s.logger.Error("failed to save audit event", "error", err.Error())
					}
				default:
					return
				}
			}
		case event := <-s.eventChan:
			if err := s.SaveEvent(event); err != nil {
				s.logger.Error("failed to save audit event", "error", err.Error())
			}
		}
	}
}

// QueryEvents returns events matching the filters, newest first.
func (s *SQLiteAuditStore) QueryEvents(ctx context.Context, filters AuditQueryFilters) ([]*AuditEvent, error) {
	where, args := buildAuditWhere(filters)
	query := "SELECT id, timestamp, event_type, severity, ip_address, action, resource, status, details, error_message FROM audit_events" +
		where + " ORDER BY timestamp DESC"
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filters.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*AuditEvent
	for rows.Next() {
		var event AuditEvent
		var details sql.NullString
		var errMsg sql.NullString
		var eventType, severity, status string
		if err := rows.Scan(&event.ID, &event.Timestamp, &eventType, &severity,
			&event.IPAddress, &event.Action, &event.Resource, &status, &details, &errMsg); err != nil {
			return nil, err
		}
		event.EventType = AuditEventType(eventType)
		event.Severity = AuditSeverity(severity)
		event.Status = AuditStatus(status)
		event.ErrorMessage = errMsg.String
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &event.Details); err != nil {
				s.logger.Warn("failed to decode audit details", "id", event.ID)
			}
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// CountEvents counts events matching the filters.
func (s *SQLiteAuditStore) CountEvents(ctx context.Context, filters AuditQueryFilters) (int, error) {
	where, args := buildAuditWhere(filters)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events"+where, args...).Scan(&count)
	return count, err
}

func buildAuditWhere(filters AuditQueryFilters) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if filters.EventType != "" {
		conds = append(conds, "event_type = ?")
		args = append(args, filters.EventType)
	}
	if filters.Action != "" {
		conds = append(conds, "action LIKE ?")
		args = append(args, filters.Action+"%")
	}
	if filters.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filters.Status)
	}
	if filters.Resource != "" {
		conds = append(conds, "resource = ?")
		args = append(args, filters.Resource)
	}
	if !filters.Since.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, filters.Since.UTC())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Close stops the background writer and closes the database.
func (s *SQLiteAuditStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
	return s.db.Close()
}
