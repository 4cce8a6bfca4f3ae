package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// document is one collection stored as a JSON text column.
type document struct {
	Collection string `gorm:"primaryKey;size:128"`
	Body       string `gorm:"type:text;not null"`
	UpdatedAt  time.Time
}

func (document) TableName() string { return "documents" }

type sqlDocs struct {
	db *gorm.DB
}

// NewSQLiteBackend opens (creating if needed) the database at path.
func NewSQLiteBackend(path string) (Backend, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&document{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &docBackend{docs: &sqlDocs{db: db}}, nil
}

func (s *sqlDocs) load(ctx context.Context, name string) ([]byte, error) {
	var d document
	err := s.db.WithContext(ctx).First(&d, "collection = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(d.Body), nil
}

func (s *sqlDocs) modify(ctx context.Context, name string, fn UpdateFunc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d document
		var cur []byte
		err := tx.First(&d, "collection = ?", name).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return err
		default:
			cur = []byte(d.Body)
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}
		if next == nil {
			return tx.Delete(&document{}, "collection = ?", name).Error
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&document{
			Collection: name,
			Body:       string(next),
			UpdatedAt:  time.Now().UTC(),
		}).Error
	})
}

func (s *sqlDocs) names(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).Model(&document{}).Order("collection").Pluck("collection", &out).Error
	return out, err
}

func (s *sqlDocs) close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
