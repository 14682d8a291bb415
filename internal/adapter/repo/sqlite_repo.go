package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/example/catalog-service/internal/domain"
)

// SQLiteDeviceRepo stores devices in a SQLite table ordered by rowid.
// Timestamps are kept as RFC 3339 text in UTC.
type SQLiteDeviceRepo struct {
	db *sql.DB
}

func NewSQLiteDeviceRepo(db *sql.DB) *SQLiteDeviceRepo {
	return &SQLiteDeviceRepo{db: db}
}

// OpenSQLite opens path (":memory:" for a private in-memory database) with a
// single connection, so writers are serialised and in-memory data survives.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// EnsureSQLiteSchema creates the devices table if it does not exist.
func EnsureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS devices (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  price_pence INTEGER NOT NULL CHECK (price_pence >= 0),
  description TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (domain.Device, error) {
	var (
		d  domain.Device
		ts string
	)
	if err := row.Scan(&d.ID, &d.Name, &d.PricePence, &d.Description, &ts); err != nil {
		return domain.Device{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return domain.Device{}, fmt.Errorf("parsing updated_at of %q: %w", d.ID, err)
	}
	d.UpdatedAt = at
	return d, nil
}

func (r *SQLiteDeviceRepo) List(ctx context.Context) ([]domain.Device, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, price_pence, description, updated_at
		FROM devices ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()
	out := []domain.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return out, nil
}

func (r *SQLiteDeviceRepo) GetByID(ctx context.Context, id string) (domain.Device, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, price_pence, description, updated_at
		FROM devices WHERE id = ?`, id)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Device{}, false, nil
	}
	if err != nil {
		return domain.Device{}, false, fmt.Errorf("querying device by id: %w", err)
	}
	return d, true, nil
}

// Save returns the device as stored, with UpdatedAt in UTC.
func (r *SQLiteDeviceRepo) Save(ctx context.Context, d domain.Device) (domain.Device, error) {
	d = d.Clone()
	d.UpdatedAt = d.UpdatedAt.UTC().Round(0)
	_, err := r.db.ExecContext(ctx, `INSERT INTO devices(id, name, price_pence, description, updated_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			price_pence = excluded.price_pence,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		d.ID, d.Name, d.PricePence, d.Description, d.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return domain.Device{}, fmt.Errorf("upserting device: %w", err)
	}
	return d, nil
}

func (r *SQLiteDeviceRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return nil
}

var _ domain.DeviceRepository = (*SQLiteDeviceRepo)(nil)
