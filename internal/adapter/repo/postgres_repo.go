package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/catalog-service/internal/domain"
)

// PostgresDeviceRepo stores devices in the devices table. The seq column
// records insertion order; an upsert keeps the original seq.
type PostgresDeviceRepo struct {
	Pool *pgxpool.Pool
}

func NewPostgresDeviceRepo(pool *pgxpool.Pool) *PostgresDeviceRepo {
	return &PostgresDeviceRepo{Pool: pool}
}

func (r *PostgresDeviceRepo) List(ctx context.Context) ([]domain.Device, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id, name, price_pence, description, updated_at
        FROM devices ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()
	out := []domain.Device{}
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.ID, &d.Name, &d.PricePence, &d.Description, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return out, nil
}

func (r *PostgresDeviceRepo) GetByID(ctx context.Context, id string) (domain.Device, bool, error) {
	var d domain.Device
	err := r.Pool.QueryRow(ctx, `SELECT id, name, price_pence, description, updated_at
        FROM devices WHERE id = $1`, id).Scan(&d.ID, &d.Name, &d.PricePence, &d.Description, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Device{}, false, nil
	}
	if err != nil {
		return domain.Device{}, false, fmt.Errorf("querying device by id: %w", err)
	}
	return d, true, nil
}

func (r *PostgresDeviceRepo) Save(ctx context.Context, d domain.Device) (domain.Device, error) {
	var out domain.Device
	err := r.Pool.QueryRow(ctx, `INSERT INTO devices(id, name, price_pence, description, updated_at)
        VALUES($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            price_pence = EXCLUDED.price_pence,
            description = EXCLUDED.description,
            updated_at = EXCLUDED.updated_at
        RETURNING id, name, price_pence, description, updated_at`,
		d.ID, d.Name, d.PricePence, d.Description, d.UpdatedAt,
	).Scan(&out.ID, &out.Name, &out.PricePence, &out.Description, &out.UpdatedAt)
	if err != nil {
		return domain.Device{}, fmt.Errorf("upserting device: %w", err)
	}
	return out, nil
}

func (r *PostgresDeviceRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.Pool.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return nil
}

var _ domain.DeviceRepository = (*PostgresDeviceRepo)(nil)

// EnsureSchema — создать необходимые таблицы, если отсутствуют.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS devices (
  seq bigserial NOT NULL,
  id text PRIMARY KEY,
  name text NOT NULL,
  price_pence bigint NOT NULL CHECK (price_pence >= 0),
  description text NOT NULL,
  updated_at timestamptz NOT NULL
);`)
	return err
}
