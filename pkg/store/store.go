// Package store persists per-frame association results for downstream
// violation logic. PostgreSQL and SQLite are supported.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/1F47E/rider-index/pkg/pipeline"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store writes association results to a SQL database
type Store struct {
	db     *sql.DB
	driver string
}

// RiderRecord is one stored rider assignment
type RiderRecord struct {
	Frame        int
	MotorcycleID int
	RiderID      sql.NullInt64
	X1, Y1       int
	X2, Y2       int
	Confidence   float64
}

// Open connects to the database and verifies the connection
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverPostgres {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	} else {
		// SQLite allows one writer at a time
		db.SetMaxOpenConns(1)
	}

	return &Store{db: db, driver: driver}, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// InitSchema creates the tables if they do not exist
func (s *Store) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS motorcycle_associations (
			run_id TEXT NOT NULL,
			frame INTEGER NOT NULL,
			track_id INTEGER NOT NULL,
			x1 INTEGER NOT NULL,
			y1 INTEGER NOT NULL,
			x2 INTEGER NOT NULL,
			y2 INTEGER NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			rider_count INTEGER NOT NULL,
			PRIMARY KEY (run_id, frame, track_id)
		);`,
		`CREATE TABLE IF NOT EXISTS riders (
			run_id TEXT NOT NULL,
			frame INTEGER NOT NULL,
			motorcycle_track_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			rider_track_id INTEGER,
			x1 INTEGER NOT NULL,
			y1 INTEGER NOT NULL,
			x2 INTEGER NOT NULL,
			y2 INTEGER NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, frame, motorcycle_track_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_riders_track ON riders (run_id, motorcycle_track_id);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}

	return nil
}

// NewRun registers a processing run and returns its id
func (s *Store) NewRun(ctx context.Context, source string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO runs (id, source, started_at) VALUES (?, ?, ?)`),
		id, source, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// SaveResult stores every motorcycle association of a frame in one transaction
func (s *Store) SaveResult(ctx context.Context, runID string, r pipeline.Result) error {
	if len(r.Associations) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	motoStmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO motorcycle_associations (run_id, frame, track_id, x1, y1, x2, y2, confidence, rider_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer motoStmt.Close()

	riderStmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO riders (run_id, frame, motorcycle_track_id, position, rider_track_id, x1, y1, x2, y2, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer riderStmt.Close()

	frame := r.Frame.Index
	for _, trackID := range r.Associations.TrackIDs() {
		entry := r.Associations[trackID]
		m := entry.Motorcycle
		if _, err := motoStmt.ExecContext(ctx, runID, frame, trackID,
			m.BBox.X1, m.BBox.Y1, m.BBox.X2, m.BBox.Y2, m.Confidence, len(entry.Riders)); err != nil {
			return fmt.Errorf("failed to insert motorcycle %d: %w", trackID, err)
		}

		for pos, rider := range entry.Riders {
			var riderID sql.NullInt64
			if id, ok := rider.TrackID.Get(); ok {
				riderID = sql.NullInt64{Int64: int64(id), Valid: true}
			}
			if _, err := riderStmt.ExecContext(ctx, runID, frame, trackID, pos, riderID,
				rider.BBox.X1, rider.BBox.Y1, rider.BBox.X2, rider.BBox.Y2, rider.Confidence); err != nil {
				return fmt.Errorf("failed to insert rider of motorcycle %d: %w", trackID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// CountAssociations returns the number of stored motorcycle rows for a run
func (s *Store) CountAssociations(ctx context.Context, runID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM motorcycle_associations WHERE run_id = ?`), runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count associations: %w", err)
	}
	return count, nil
}

// RidersForTrack returns every rider stored against a motorcycle, in frame order
func (s *Store) RidersForTrack(ctx context.Context, runID string, trackID int) ([]RiderRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT frame, motorcycle_track_id, rider_track_id, x1, y1, x2, y2, confidence
		FROM riders
		WHERE run_id = ? AND motorcycle_track_id = ?
		ORDER BY frame, position`), runID, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var results []RiderRecord
	for rows.Next() {
		var rec RiderRecord
		if err := rows.Scan(&rec.Frame, &rec.MotorcycleID, &rec.RiderID,
			&rec.X1, &rec.Y1, &rec.X2, &rec.Y2, &rec.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return results, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
