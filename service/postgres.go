package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lataonhehe/data-contract-hackathon/model"
	"github.com/lataonhehe/data-contract-hackathon/pkg/apperr"
)

// PostgresMetadataStore keeps contract metadata in a single contracts table.
type PostgresMetadataStore struct {
	pool *pgxpool.Pool
}

func NewPostgresMetadataStore(ctx context.Context, dsn string) (*PostgresMetadataStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "invalid postgres dsn")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "failed to create postgres pool")
	}
	return &PostgresMetadataStore{pool: pool}, nil
}

func (s *PostgresMetadataStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ensure creates the contracts table if it doesn't exist.
func (s *PostgresMetadataStore) Ensure(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS contracts (
			contract_id  text PRIMARY KEY,
			owner        text NOT NULL,
			status       text NOT NULL,
			created_time timestamptz NOT NULL,
			updated_time timestamptz NOT NULL,
			s3_path      text NOT NULL
		)`)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "failed to ensure contracts table")
	}
	return nil
}

func (s *PostgresMetadataStore) Put(ctx context.Context, rec *model.Contract) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO contracts (contract_id, owner, status, created_time, updated_time, s3_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (contract_id) DO UPDATE SET
			owner = EXCLUDED.owner,
			status = EXCLUDED.status,
			updated_time = EXCLUDED.updated_time,
			s3_path = EXCLUDED.s3_path`,
		rec.ContractID, rec.Owner, rec.Status, rec.CreatedTime, rec.UpdatedTime, rec.S3Path)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "failed to save contract metadata")
	}
	return nil
}

func (s *PostgresMetadataStore) Get(ctx context.Context, id string) (*model.Contract, error) {
	var rec model.Contract
	err := s.pool.QueryRow(ctx, `
		SELECT contract_id, owner, status, created_time, updated_time, s3_path
		FROM contracts WHERE contract_id = $1`, id).
		Scan(&rec.ContractID, &rec.Owner, &rec.Status, &rec.CreatedTime, &rec.UpdatedTime, &rec.S3Path)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "contract %s not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "failed to fetch contract metadata")
	}
	return &rec, nil
}

func (s *PostgresMetadataStore) Update(ctx context.Context, id string, status *string, updatedTime time.Time) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE contracts
		SET status = COALESCE($2, status), updated_time = $3
		WHERE contract_id = $1`, id, status, updatedTime)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "failed to update contract metadata")
	}
	if ct.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "contract %s not found", id)
	}
	return nil
}

func (s *PostgresMetadataStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM contracts WHERE contract_id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "failed to delete contract metadata")
	}
	return nil
}

func (s *PostgresMetadataStore) List(ctx context.Context) ([]*model.Contract, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT contract_id, owner, status, created_time, updated_time, s3_path
		FROM contracts ORDER BY created_time`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "failed to list contracts")
	}
	defer rows.Close()

	var out []*model.Contract
	for rows.Next() {
		var rec model.Contract
		if err := rows.Scan(&rec.ContractID, &rec.Owner, &rec.Status, &rec.CreatedTime, &rec.UpdatedTime, &rec.S3Path); err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, err, "failed to scan contract row")
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "failed to list contracts")
	}
	return out, nil
}
