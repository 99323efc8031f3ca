package history

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

// Common errors
var (
	ErrNotFound     = errors.New("history entry not found")
	ErrStoreClosed  = errors.New("history store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeSQL    StoreType = "sql"
	StoreTypeMongo  StoreType = "mongo"
)

// Entry is one persisted history record. Entries grow monotonically: the
// success count only increases and entries are never deleted by the core.
type Entry struct {
	Origin       string    `json:"origin"`
	Target       string    `json:"target"`
	Selector     string    `json:"selector"`
	SuccessCount int64     `json:"success_count"`
	LastSuccess  time.Time `json:"last_success"`
}

// Store is the selector history cache. Get is a plain point lookup and is not
// transactional with scoring; Upsert must be atomic per key.
type Store interface {
	// Get returns the entry for (origin, normalized target), or ErrNotFound.
	Get(ctx context.Context, origin, target string) (*Entry, error)

	// Upsert records a successful use of selector for (origin, normalized
	// target): it creates the entry or increments its success count and
	// refreshes the timestamp, overwriting the selector if it changed.
	Upsert(ctx context.Context, origin, target, selector string) error

	// Ping checks if the store is healthy.
	Ping(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// RedisConfig contains Redis-specific configuration.
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	PoolSize  int    `json:"pool_size" yaml:"pool_size"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// SQLConfig contains SQL-backend configuration. Driver is one of "sqlite",
// "postgres", "mysql"; DSN is the driver-specific source name (a file path
// for sqlite).
type SQLConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

// MongoConfig contains MongoDB-backend configuration.
type MongoConfig struct {
	URI        string `json:"uri" yaml:"uri"`
	Database   string `json:"database" yaml:"database"`
	Collection string `json:"collection" yaml:"collection"`
}

// StoreConfig is the configuration for all store implementations.
type StoreConfig struct {
	Type    StoreType   `json:"type" yaml:"type"`
	BaseDir string      `json:"base_dir" yaml:"base_dir"`
	Redis   RedisConfig `json:"redis" yaml:"redis"`
	SQL     SQLConfig   `json:"sql" yaml:"sql"`
	Mongo   MongoConfig `json:"mongo" yaml:"mongo"`
}

// DefaultStoreConfig returns the default store configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:    StoreTypeMemory,
		BaseDir: "./data/history",
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "webpilot:",
		},
		SQL: SQLConfig{
			Driver: "sqlite",
			DSN:    "./data/history/history.db",
		},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "webpilot",
			Collection: "selector_history",
		},
	}
}

// NormalizeTarget canonicalizes a target description for use as a history
// key: lowercase, punctuation stripped, whitespace collapsed.
func NormalizeTarget(target string) string {
	fields := strings.FieldsFunc(strings.ToLower(target), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
	return strings.Join(fields, " ")
}

// OriginFromURL extracts the history origin (scheme-less host) from a page
// URL. Returns the input unchanged if it does not parse.
func OriginFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

// key joins origin and normalized target into a single map/redis key.
func key(origin, target string) string {
	return origin + "|" + NormalizeTarget(target)
}
