package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/makkenzo/machine-license-api/internal/domain/license"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

const selectColumns = `
            license_key, customer_name, expiry_date, machine_id,
            is_active, notes, activated_at, created_at
`

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

var _ DB = (*pgxpool.Pool)(nil)

type LicenseRepository struct {
	db     DB
	logger *zap.Logger
}

func NewLicenseRepository(db DB, logger *zap.Logger) *LicenseRepository {
	return &LicenseRepository{
		db:     db,
		logger: logger.Named("LicenseRepository"),
	}
}

var _ license.Repository = (*LicenseRepository)(nil)

func (r *LicenseRepository) Create(ctx context.Context, lic *license.License) error {
	query := `
        INSERT INTO licenses (
            license_key, customer_name, expiry_date, machine_id,
            is_active, notes, activated_at, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8
        )
    `

	_, err := r.db.Exec(ctx, query,
		lic.LicenseKey,
		lic.CustomerName,
		lic.ExpiryDate,
		lic.MachineID,
		lic.IsActive,
		lic.Notes,
		lic.ActivatedAt,
		lic.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			r.logger.Warn("Attempted to create license with duplicate key",
				zap.String("license_key", lic.LicenseKey),
				zap.String("constraint", pgErr.ConstraintName),
			)
			return license.ErrKeyExists
		}

		r.logger.Error("Failed to create license in database", zap.Error(err))
		return fmt.Errorf("database error on create license: %w", err)
	}

	r.logger.Debug("License row inserted", zap.String("license_key", lic.LicenseKey))
	return nil
}

func (r *LicenseRepository) FindByKey(ctx context.Context, key string) (*license.License, error) {
	query := `SELECT ` + selectColumns + ` FROM licenses WHERE license_key = $1`

	row := r.db.QueryRow(ctx, query, key)
	return r.scanLicense(row)
}

func (r *LicenseRepository) List(ctx context.Context) ([]*license.License, error) {
	query := `SELECT ` + selectColumns + ` FROM licenses ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query list of licenses", zap.Error(err))
		return nil, fmt.Errorf("database error on list licenses: %w", err)
	}
	defer rows.Close()

	licenses := make([]*license.License, 0)
	for rows.Next() {
		lic, err := r.scanLicense(rows)
		if err != nil {
			return nil, fmt.Errorf("database scan error during list: %w", err)
		}
		licenses = append(licenses, lic)
	}

	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating license rows", zap.Error(err))
		return nil, fmt.Errorf("database iteration error on list licenses: %w", err)
	}

	return licenses, nil
}

// BindMachine only writes when machine_id is still NULL, so of two racing
// activations exactly one sees a row back from RETURNING.
func (r *LicenseRepository) BindMachine(ctx context.Context, key, machineID string, at time.Time) (*license.License, error) {
	query := `
        UPDATE licenses SET
            machine_id = $2,
            activated_at = $3
        WHERE license_key = $1 AND machine_id IS NULL
        RETURNING ` + selectColumns

	lic, err := r.scanLicense(r.db.QueryRow(ctx, query, key, machineID, at.UTC()))
	if err == nil {
		r.logger.Info("License bound to machine", zap.String("license_key", key), zap.String("machine_id", machineID))
		return lic, nil
	}
	if !errors.Is(err, license.ErrNotFound) {
		return nil, fmt.Errorf("database error on bind machine: %w", err)
	}

	current, err := r.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Bind skipped, license already bound",
		zap.String("license_key", key),
		zap.String("requested_machine_id", machineID),
	)
	return current, license.ErrAlreadyBound
}

func (r *LicenseRepository) Modify(ctx context.Context, key string, fn func(*license.License) error) (*license.License, error) {
	var updated *license.License

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `SELECT ` + selectColumns + ` FROM licenses WHERE license_key = $1 FOR UPDATE`
		lic, err := r.scanLicense(tx.QueryRow(ctx, query, key))
		if err != nil {
			return err
		}

		if err := fn(lic); err != nil {
			return err
		}

		update := `
            UPDATE licenses SET
                expiry_date = $2,
                is_active = $3,
                notes = $4
            WHERE license_key = $1
        `
		if _, err := tx.Exec(ctx, update, key, lic.ExpiryDate, lic.IsActive, lic.Notes); err != nil {
			r.logger.Error("Failed to update license in database", zap.String("license_key", key), zap.Error(err))
			return fmt.Errorf("database error on update license: %w", err)
		}
		updated = lic
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("License updated successfully", zap.String("license_key", key))
	return updated, nil
}

func (r *LicenseRepository) Delete(ctx context.Context, key string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM licenses WHERE license_key = $1`, key)
	if err != nil {
		r.logger.Error("Failed to delete license", zap.String("license_key", key), zap.Error(err))
		return fmt.Errorf("database error on delete license: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return license.ErrNotFound
	}

	r.logger.Info("License deleted", zap.String("license_key", key))
	return nil
}

func (r *LicenseRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *LicenseRepository) scanLicense(row pgx.Row) (*license.License, error) {
	var lic license.License
	err := row.Scan(
		&lic.LicenseKey,
		&lic.CustomerName,
		&lic.ExpiryDate,
		&lic.MachineID,
		&lic.IsActive,
		&lic.Notes,
		&lic.ActivatedAt,
		&lic.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, license.ErrNotFound
		}

		r.logger.Error("Failed to scan license row", zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	lic.ExpiryDate = lic.ExpiryDate.UTC()
	lic.CreatedAt = lic.CreatedAt.UTC()
	if lic.ActivatedAt != nil {
		at := lic.ActivatedAt.UTC()
		lic.ActivatedAt = &at
	}
	return &lic, nil
}
