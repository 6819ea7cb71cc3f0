package events

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/lherron/recmerge/internal/domain"
)

const (
	TypeRecordCreated     = "record.created"
	TypeRecordUpdated     = "record.updated"
	TypeRecordDeleted     = "record.deleted"
	TypeRecordAssimilated = "record.assimilated"
	TypeRecordMerged      = "record.merged"
)

// Writer handles writing events to the event log
type Writer struct {
	db *sql.DB
}

// NewWriter creates a new event writer
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// LogEvent writes an event to the event log. A missing UUID is generated.
func (w *Writer) LogEvent(tx *sql.Tx, event *domain.Event) error {
	if event.UUID == "" {
		event.UUID = uuid.NewString()
	}

	query := `
		INSERT INTO event_log (event_uuid, event_type, resource_uri, payload)
		VALUES (?, ?, ?, ?)
	`

	executor := w.getExecutor(tx)
	_, err := executor.Exec(query, event.UUID, event.EventType, event.ResourceURI, event.Payload)
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogRecordCreated logs a record creation event
func (w *Writer) LogRecordCreated(tx *sql.Tx, uri string, recordType domain.RecordType) error {
	return w.logWithPayload(tx, TypeRecordCreated, uri, map[string]interface{}{
		"record_type": recordType,
	})
}

// LogRecordUpdated logs a record update event
func (w *Writer) LogRecordUpdated(tx *sql.Tx, uri string, lockVersion int64) error {
	return w.logWithPayload(tx, TypeRecordUpdated, uri, map[string]interface{}{
		"lock_version": lockVersion,
	})
}

// LogRecordDeleted logs a record deletion event
func (w *Writer) LogRecordDeleted(tx *sql.Tx, uri string) error {
	return w.LogEvent(tx, &domain.Event{
		EventType:   TypeRecordDeleted,
		ResourceURI: uri,
	})
}

// LogRecordAssimilated logs that victim was folded into target
func (w *Writer) LogRecordAssimilated(tx *sql.Tx, victimURI, targetURI string, repointed int) error {
	return w.logWithPayload(tx, TypeRecordAssimilated, victimURI, map[string]interface{}{
		"target":    targetURI,
		"repointed": repointed,
	})
}

// LogRecordMerged logs a completed merge against its target
func (w *Writer) LogRecordMerged(tx *sql.Tx, targetURI string, victims []string, updated bool) error {
	return w.logWithPayload(tx, TypeRecordMerged, targetURI, map[string]interface{}{
		"victims": victims,
		"updated": updated,
	})
}

func (w *Writer) logWithPayload(tx *sql.Tx, eventType, uri string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	payloadStr := string(data)
	return w.LogEvent(tx, &domain.Event{
		EventType:   eventType,
		ResourceURI: uri,
		Payload:     &payloadStr,
	})
}

// Recent returns the newest events for a resource, newest first
func (w *Writer) Recent(resourceURI string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := w.db.Query(`
		SELECT id, event_uuid, timestamp, event_type, resource_uri, payload
		FROM event_log
		WHERE resource_uri = ?
		ORDER BY id DESC
		LIMIT ?
	`, resourceURI, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.UUID, &e.Timestamp, &e.EventType, &e.ResourceURI, &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// getExecutor returns the appropriate executor (tx or db)
func (w *Writer) getExecutor(tx *sql.Tx) interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
} {
	if tx != nil {
		return tx
	}
	return w.db
}
