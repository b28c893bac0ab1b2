package uploads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/megavault/internal/dbx"
)

// PostgresRepository stores tracked uploads in PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, uploadID, key string) error {
	query := `
		INSERT INTO multipart_uploads (upload_id, object_key, state)
		VALUES ($1, $2, $3)
		ON CONFLICT (upload_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, uploadID, key, string(StateInProgress)); err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}
	return nil
}

// AddParts touches the upload row and inserts the part numbers in one transaction.
func (r *PostgresRepository) AddParts(ctx context.Context, uploadID string, parts []int32) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := touch(ctx, tx, uploadID); err != nil {
			return err
		}

		query := `
			INSERT INTO multipart_upload_parts (upload_id, part_number)
			VALUES ($1, $2)
			ON CONFLICT (upload_id, part_number) DO NOTHING
		`
		for _, p := range parts {
			if _, err := tx.ExecContext(ctx, query, uploadID, p); err != nil {
				return fmt.Errorf("failed to insert part %d: %w", p, err)
			}
		}
		return nil
	})
}

func touch(ctx context.Context, db dbx.DBTX, uploadID string) error {
	res, err := db.ExecContext(ctx, `UPDATE multipart_uploads SET updated_at = now() WHERE upload_id = $1`, uploadID)
	if err != nil {
		return fmt.Errorf("failed to touch upload: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return ErrUploadNotFound
	}
	return nil
}

func (r *PostgresRepository) SetState(ctx context.Context, uploadID string, state State) error {
	query := `UPDATE multipart_uploads SET state = $2, updated_at = now() WHERE upload_id = $1`
	res, err := r.db.ExecContext(ctx, query, uploadID, string(state))
	if err != nil {
		return fmt.Errorf("failed to update upload state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return ErrUploadNotFound
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, uploadID string) (*Upload, error) {
	query := `
		SELECT upload_id, object_key, state, created_at, updated_at
		FROM multipart_uploads WHERE upload_id = $1
	`
	u := &Upload{}
	var state string
	err := r.db.QueryRowContext(ctx, query, uploadID).Scan(&u.UploadID, &u.Key, &state, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select upload: %w", err)
	}
	u.State = State(state)

	rows, err := r.db.QueryContext(ctx,
		`SELECT part_number FROM multipart_upload_parts WHERE upload_id = $1 ORDER BY part_number`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to select parts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p int32
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		u.IssuedParts = append(u.IssuedParts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return u, nil
}

func (r *PostgresRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]*Upload, error) {
	query := `
		SELECT upload_id, object_key, state, created_at, updated_at
		FROM multipart_uploads
		WHERE state = $1 AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, string(StateInProgress), before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select stale uploads: %w", err)
	}
	defer rows.Close()

	var result []*Upload
	for rows.Next() {
		u := &Upload{}
		var state string
		if err := rows.Scan(&u.UploadID, &u.Key, &state, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.State = State(state)
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Prune deletes finished uploads; their issued parts go with them.
func (r *PostgresRepository) Prune(ctx context.Context, before time.Time) (int, error) {
	query := `DELETE FROM multipart_uploads WHERE state <> $1 AND updated_at < $2`
	res, err := r.db.ExecContext(ctx, query, string(StateInProgress), before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune uploads: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return int(n), nil
}
