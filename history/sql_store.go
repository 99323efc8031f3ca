package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// selectorRecord is the GORM model backing SQLStore.
type selectorRecord struct {
	ID           uint      `gorm:"primaryKey"`
	Origin       string    `gorm:"size:255;uniqueIndex:idx_origin_target"`
	Target       string    `gorm:"size:512;uniqueIndex:idx_origin_target"`
	Selector     string    `gorm:"size:1024"`
	SuccessCount int64     `gorm:"not null;default:0"`
	LastSuccess  time.Time `gorm:"index"`
}

func (selectorRecord) TableName() string { return "selector_history" }

// SQLStore is a GORM-backed implementation of Store.
// Supports SQLite (default, pure-Go driver), PostgreSQL, and MySQL.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore opens the configured database and migrates the history schema.
func NewSQLStore(config StoreConfig) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch config.SQL.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(config.SQL.DSN)
	case "postgres":
		dialector = postgres.Open(config.SQL.DSN)
	case "mysql":
		dialector = mysql.Open(config.SQL.DSN)
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", config.SQL.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return NewSQLStoreWithDB(db)
}

// NewSQLStoreWithDB wraps an existing GORM handle. Useful for tests and for
// embedders that manage their own connection pool.
func NewSQLStoreWithDB(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&selectorRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Get returns the entry for (origin, target), or ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, origin, target string) (*Entry, error) {
	var rec selectorRecord
	err := s.db.WithContext(ctx).
		Where("origin = ? AND target = ?", origin, NormalizeTarget(target)).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history entry: %w", err)
	}
	return &Entry{
		Origin:       rec.Origin,
		Target:       rec.Target,
		Selector:     rec.Selector,
		SuccessCount: rec.SuccessCount,
		LastSuccess:  rec.LastSuccess,
	}, nil
}

// Upsert records a successful selector use with an atomic per-key
// insert-or-increment.
func (s *SQLStore) Upsert(ctx context.Context, origin, target, selector string) error {
	if origin == "" || target == "" || selector == "" {
		return ErrInvalidInput
	}

	now := time.Now()
	rec := selectorRecord{
		Origin:       origin,
		Target:       NormalizeTarget(target),
		Selector:     selector,
		SuccessCount: 1,
		LastSuccess:  now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "origin"}, {Name: "target"}},
		DoUpdates: clause.Assignments(map[string]any{
			"selector":      selector,
			"success_count": gorm.Expr("success_count + 1"),
			"last_success":  now,
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert history entry: %w", err)
	}
	return nil
}

// Ping checks if the store is healthy.
func (s *SQLStore) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
