// Package gormstore is a gorm-backed license store usable with the postgres
// and sqlite dialects.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/makkenzo/machine-license-api/internal/domain/license"
)

type licenseRow struct {
	LicenseKey   string     `gorm:"primaryKey;column:license_key"`
	CustomerName string     `gorm:"column:customer_name;not null"`
	ExpiryDate   time.Time  `gorm:"column:expiry_date;not null"`
	MachineID    *string    `gorm:"column:machine_id"`
	IsActive     bool       `gorm:"column:is_active;not null"`
	Notes        string     `gorm:"column:notes;not null"`
	ActivatedAt  *time.Time `gorm:"column:activated_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null;index"`
}

func (licenseRow) TableName() string {
	return "licenses"
}

func fromDomain(lic *license.License) licenseRow {
	return licenseRow{
		LicenseKey:   lic.LicenseKey,
		CustomerName: lic.CustomerName,
		ExpiryDate:   lic.ExpiryDate.UTC(),
		MachineID:    lic.MachineID,
		IsActive:     lic.IsActive,
		Notes:        lic.Notes,
		ActivatedAt:  lic.ActivatedAt,
		CreatedAt:    lic.CreatedAt.UTC(),
	}
}

func (r licenseRow) toDomain() *license.License {
	lic := &license.License{
		LicenseKey:   r.LicenseKey,
		CustomerName: r.CustomerName,
		ExpiryDate:   r.ExpiryDate.UTC(),
		MachineID:    r.MachineID,
		IsActive:     r.IsActive,
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt.UTC(),
	}
	if r.ActivatedAt != nil {
		at := r.ActivatedAt.UTC()
		lic.ActivatedAt = &at
	}
	return lic
}

// OpenPostgres connects through gorm's pgx-based postgres driver.
func OpenPostgres(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	return open(postgres.Open(dsn), logger)
}

// OpenSQLite opens (or creates) a sqlite database file.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	return open(sqlite.Open(path), logger)
}

func open(dialector gorm.Dialector, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		// Every single-statement write is already atomic; Modify opens its own transaction.
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&licenseRow{}); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}
	return db, nil
}

type LicenseRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewLicenseRepository(db *gorm.DB, logger *zap.Logger) *LicenseRepository {
	return &LicenseRepository{
		db:     db,
		logger: logger.Named("GormLicenseRepository"),
	}
}

var _ license.Repository = (*LicenseRepository)(nil)

func (r *LicenseRepository) Create(ctx context.Context, lic *license.License) error {
	row := fromDomain(lic)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		r.logger.Error("Failed to create license", zap.Error(res.Error))
		return fmt.Errorf("database error on create license: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		r.logger.Warn("Attempted to create license with duplicate key", zap.String("license_key", lic.LicenseKey))
		return license.ErrKeyExists
	}
	return nil
}

func (r *LicenseRepository) FindByKey(ctx context.Context, key string) (*license.License, error) {
	return r.find(r.db.WithContext(ctx), key)
}

func (r *LicenseRepository) List(ctx context.Context) ([]*license.License, error) {
	var rows []licenseRow
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		r.logger.Error("Failed to list licenses", zap.Error(err))
		return nil, fmt.Errorf("database error on list licenses: %w", err)
	}

	licenses := make([]*license.License, len(rows))
	for i, row := range rows {
		licenses[i] = row.toDomain()
	}
	return licenses, nil
}

// BindMachine is a conditional UPDATE guarded by machine_id IS NULL.
func (r *LicenseRepository) BindMachine(ctx context.Context, key, machineID string, at time.Time) (*license.License, error) {
	db := r.db.WithContext(ctx)

	res := db.Model(&licenseRow{}).
		Where("license_key = ? AND machine_id IS NULL", key).
		Updates(map[string]interface{}{
			"machine_id":   machineID,
			"activated_at": at.UTC(),
		})
	if res.Error != nil {
		r.logger.Error("Failed to bind machine", zap.String("license_key", key), zap.Error(res.Error))
		return nil, fmt.Errorf("database error on bind machine: %w", res.Error)
	}

	current, err := r.find(db, key)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return current, license.ErrAlreadyBound
	}

	r.logger.Info("License bound to machine", zap.String("license_key", key), zap.String("machine_id", machineID))
	return current, nil
}

func (r *LicenseRepository) Modify(ctx context.Context, key string, fn func(*license.License) error) (*license.License, error) {
	var updated *license.License

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lic, err := r.find(tx.Clauses(clause.Locking{Strength: "UPDATE"}), key)
		if err != nil {
			return err
		}

		if err := fn(lic); err != nil {
			return err
		}

		err = tx.Model(&licenseRow{}).
			Where("license_key = ?", key).
			Updates(map[string]interface{}{
				"expiry_date": lic.ExpiryDate.UTC(),
				"is_active":   lic.IsActive,
				"notes":       lic.Notes,
			}).Error
		if err != nil {
			return fmt.Errorf("database error on update license: %w", err)
		}
		updated = lic
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *LicenseRepository) Delete(ctx context.Context, key string) error {
	res := r.db.WithContext(ctx).Where("license_key = ?", key).Delete(&licenseRow{})
	if res.Error != nil {
		r.logger.Error("Failed to delete license", zap.String("license_key", key), zap.Error(res.Error))
		return fmt.Errorf("database error on delete license: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return license.ErrNotFound
	}
	return nil
}

func (r *LicenseRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *LicenseRepository) find(db *gorm.DB, key string) (*license.License, error) {
	var row licenseRow
	err := db.Where("license_key = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, license.ErrNotFound
		}
		return nil, fmt.Errorf("database error on find license: %w", err)
	}
	return row.toDomain(), nil
}
