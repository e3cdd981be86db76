// Package store persists local order records in SQLite so submitted orders
// and their tracking identifiers survive process restarts. Authentication
// state is deliberately not stored here; the token cache is in-memory only.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	// StatusPending marks an order submitted to the fulfillment API but not
	// yet confirmed shipped.
	StatusPending = "pending"
	// StatusFulfilled marks an order with at least one tracking identifier.
	StatusFulfilled = "fulfilled"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_records (
	id         TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	status     TEXT NOT NULL,
	tracking   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_records_status ON order_records(status);
`

// OrderRecord is one row of the local order ledger.
type OrderRecord struct {
	// ID is the seller fulfillment order identifier.
	ID string
	// Payload is the order JSON as submitted.
	Payload string
	// Status is StatusPending or StatusFulfilled.
	Status string
	// Tracking holds the comma-joined tracking identifiers once known.
	Tracking  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store wraps the SQLite database holding order records. Safe for
// concurrent use; database/sql serializes access to the single connection
// the pure-Go driver provides.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the order-record database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open order store: %w", err)
	}
	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize order store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts a new order record, generating an ID when absent. Existing
// records with the same ID are replaced wholesale.
func (s *Store) Save(rec *OrderRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO order_records (id, payload, status, tracking, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Payload, rec.Status, rec.Tracking, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save order record: %w", err)
	}
	log.Debugf("store: saved order record %s (%s)", rec.ID, rec.Status)
	return nil
}

// Get returns the record with the given ID, or (nil, nil) when absent.
func (s *Store) Get(id string) (*OrderRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, payload, status, tracking, created_at, updated_at
		 FROM order_records WHERE id = ?`, id,
	)
	var rec OrderRecord
	err := row.Scan(&rec.ID, &rec.Payload, &rec.Status, &rec.Tracking, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order record: %w", err)
	}
	return &rec, nil
}

// MarkFulfilled records the tracking identifiers for an order and flips its
// status to fulfilled.
func (s *Store) MarkFulfilled(id, tracking string) error {
	result, err := s.db.Exec(
		`UPDATE order_records SET status = ?, tracking = ?, updated_at = ? WHERE id = ?`,
		StatusFulfilled, tracking, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update order record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check order record update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("order record not found: %s", id)
	}
	return nil
}

// Pending lists records still awaiting tracking, oldest first.
func (s *Store) Pending() ([]OrderRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, payload, status, tracking, created_at, updated_at
		 FROM order_records WHERE status = ? ORDER BY created_at`, StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []OrderRecord
	for rows.Next() {
		var rec OrderRecord
		if err = rows.Scan(&rec.ID, &rec.Payload, &rec.Status, &rec.Tracking, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order record: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order records: %w", err)
	}
	return records, nil
}
