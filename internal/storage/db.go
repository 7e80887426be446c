package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"avance/internal"
)

const MetaLastSnapshotAt = "last_snapshot_at"

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS snapshots (
  id TEXT PRIMARY KEY,
  area TEXT NOT NULL,
  source TEXT NOT NULL,
  kind TEXT NOT NULL,
  total INTEGER NOT NULL,
  createdAt TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_area ON snapshots(area, createdAt);

CREATE TABLE IF NOT EXISTS snapshot_rows (
  snapshotId TEXT NOT NULL,
  position INTEGER NOT NULL,
  surveyor TEXT NOT NULL,
  totalRecords INTEGER NOT NULL,
  PRIMARY KEY(snapshotId, position),
  FOREIGN KEY(snapshotId) REFERENCES snapshots(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// InsertSnapshot stores one normalization result of an area with its rows
// in order. ID and CreatedAt are filled in when empty.
func (d *DB) InsertSnapshot(s internal.SnapshotRow) (internal.SnapshotRow, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt == "" {
		s.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}

	s.Total = 0
	for _, r := range s.Records {
		s.Total += r.TotalRecords
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return internal.SnapshotRow{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
INSERT INTO snapshots (id, area, source, kind, total, createdAt)
VALUES (?, ?, ?, ?, ?, ?)
`, s.ID, s.Area, s.Source, string(s.Kind), s.Total, s.CreatedAt); err != nil {
		return internal.SnapshotRow{}, fmt.Errorf("insert snapshot %s: %w", s.Area, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO snapshot_rows (snapshotId, position, surveyor, totalRecords) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return internal.SnapshotRow{}, err
	}
	defer stmt.Close()

	for i, r := range s.Records {
		if _, err := stmt.Exec(s.ID, i, r.Surveyor, r.TotalRecords); err != nil {
			return internal.SnapshotRow{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return internal.SnapshotRow{}, err
	}
	return s, nil
}

// ListSnapshots returns the newest snapshots of an area first. Rows are not
// loaded; use GetSnapshot for those.
func (d *DB) ListSnapshots(area string, limit int) ([]internal.SnapshotRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(`
SELECT id, area, source, kind, total, createdAt
FROM snapshots WHERE area = ? ORDER BY createdAt DESC, rowid DESC LIMIT ?
`, area, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.SnapshotRow{}
	for rows.Next() {
		var s internal.SnapshotRow
		var kind string
		if err := rows.Scan(&s.ID, &s.Area, &s.Source, &kind, &s.Total, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Kind = internal.SchemaKind(kind)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) GetSnapshot(id string) (*internal.SnapshotRow, error) {
	var s internal.SnapshotRow
	var kind string
	err := d.conn.QueryRow(`
SELECT id, area, source, kind, total, createdAt FROM snapshots WHERE id = ?
`, id).Scan(&s.ID, &s.Area, &s.Source, &kind, &s.Total, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Kind = internal.SchemaKind(kind)

	rows, err := d.conn.Query(`
SELECT surveyor, totalRecords FROM snapshot_rows WHERE snapshotId = ? ORDER BY position ASC
`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s.Records = []internal.SurveyorCount{}
	for rows.Next() {
		var r internal.SurveyorCount
		if err := rows.Scan(&r.Surveyor, &r.TotalRecords); err != nil {
			return nil, err
		}
		s.Records = append(s.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LatestSnapshot returns nil when the area has never been snapshotted.
func (d *DB) LatestSnapshot(area string) (*internal.SnapshotRow, error) {
	list, err := d.ListSnapshots(area, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return d.GetSnapshot(list[0].ID)
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
