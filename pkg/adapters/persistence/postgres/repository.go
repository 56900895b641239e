// Package postgres stores the video catalogue in PostgreSQL through gorm.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/aescanero/eduvid/internal/ports"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Config holds connection pool settings
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// Video is the catalogue row
type Video struct {
	ID              string         `gorm:"type:varchar(36);primaryKey"`
	ConceptName     string         `gorm:"type:varchar(200);not null;index"`
	Domain          string         `gorm:"type:varchar(100);not null;index"`
	DifficultyLevel string         `gorm:"type:varchar(20);not null"`
	S3URL           string         `gorm:"column:s3_url;type:text;not null"`
	SlideCount      int            `gorm:"not null;default:0"`
	Duration        int            `gorm:"default:0"`
	Status          string         `gorm:"type:varchar(20);index"`
	Outline         datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time      `gorm:"index"`
	UpdatedAt       time.Time
}

// Open connects to PostgreSQL and configures the pool
func Open(cfg Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("connected to postgres")
	return db, nil
}

// Repository implements ports.VideoRepository
type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRepository creates a video repository, migrating the schema if asked
func NewRepository(db *gorm.DB, autoMigrate bool, logger *zap.Logger) (*Repository, error) {
	if autoMigrate {
		if err := db.AutoMigrate(&Video{}); err != nil {
			return nil, fmt.Errorf("failed to migrate videos table: %w", err)
		}
	}
	return &Repository{db: db, logger: logger}, nil
}

// Insert writes a new catalogue record
func (r *Repository) Insert(ctx context.Context, record *domain.VideoRecord) error {
	row, err := toRow(record)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("video %s: %w", record.ID, domain.ErrRegistryConflict)
		}
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

// Get loads one record
func (r *Repository) Get(ctx context.Context, id string) (*domain.VideoRecord, error) {
	var row Video
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("video %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return fromRow(&row), nil
}

// List returns records newest first
func (r *Repository) List(ctx context.Context, filter ports.VideoFilter) ([]*domain.VideoRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	q := r.db.WithContext(ctx).Model(&Video{})
	if filter.Domain != "" {
		q = q.Where("domain = ?", filter.Domain)
	}

	var rows []Video
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	out := make([]*domain.VideoRecord, 0, len(rows))
	for i := range rows {
		out = append(out, fromRow(&rows[i]))
	}
	return out, nil
}

// Delete removes a record
func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Video{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete video: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("video %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func toRow(record *domain.VideoRecord) (*Video, error) {
	outline, err := json.Marshal(record.Outline)
	if err != nil {
		return nil, fmt.Errorf("failed to encode outline: %w", err)
	}
	return &Video{
		ID:              record.ID,
		ConceptName:     record.ConceptName,
		Domain:          record.Domain,
		DifficultyLevel: string(record.DifficultyLevel),
		S3URL:           record.URL,
		SlideCount:      record.SlideCount,
		Duration:        record.DurationSeconds,
		Status:          record.Status,
		Outline:         datatypes.JSON(outline),
		CreatedAt:       record.CreatedAt,
	}, nil
}

func fromRow(row *Video) *domain.VideoRecord {
	record := &domain.VideoRecord{
		ID:              row.ID,
		ConceptName:     row.ConceptName,
		Domain:          row.Domain,
		DifficultyLevel: domain.Difficulty(row.DifficultyLevel),
		URL:             row.S3URL,
		SlideCount:      row.SlideCount,
		DurationSeconds: row.Duration,
		Status:          row.Status,
		CreatedAt:       row.CreatedAt,
	}
	if len(row.Outline) > 0 {
		_ = json.Unmarshal(row.Outline, &record.Outline)
	}
	return record
}
