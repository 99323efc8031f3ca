package history

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	store, err := NewSQLStoreWithDB(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLStore_GetMiss(t *testing.T) {
	store := newTestSQLStore(t)

	_, err := store.Get(context.Background(), "example.com", "sign in")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_UpsertThenGet(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "example.com", "Sign In", "#login"))

	entry, err := store.Get(ctx, "example.com", "sign in")
	require.NoError(t, err)
	assert.Equal(t, "#login", entry.Selector)
	assert.Equal(t, "sign in", entry.Target)
	assert.Equal(t, int64(1), entry.SuccessCount)
}

func TestSQLStore_UpsertConflictIncrements(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "example.com", "sign in", "#login"))
	require.NoError(t, store.Upsert(ctx, "example.com", "sign in", "#login"))
	require.NoError(t, store.Upsert(ctx, "example.com", "sign in", ".btn-login"))

	entry, err := store.Get(ctx, "example.com", "sign in")
	require.NoError(t, err)
	assert.Equal(t, ".btn-login", entry.Selector)
	assert.Equal(t, int64(3), entry.SuccessCount)
}

func TestSQLStore_SeparateOriginsSeparateRows(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "a.example.com", "sign in", "#a"))
	require.NoError(t, store.Upsert(ctx, "b.example.com", "sign in", "#b"))

	a, err := store.Get(ctx, "a.example.com", "sign in")
	require.NoError(t, err)
	b, err := store.Get(ctx, "b.example.com", "sign in")
	require.NoError(t, err)
	assert.Equal(t, "#a", a.Selector)
	assert.Equal(t, "#b", b.Selector)
}

func TestSQLStore_InvalidInput(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Upsert(ctx, "", "sign in", "#x"), ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, "example.com", "", "#x"), ErrInvalidInput)
}

func TestSQLStore_Ping(t *testing.T) {
	store := newTestSQLStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

// TestSQLStore_GetBackendError drives the store against a mocked connection
// that fails, checking that I/O faults surface as wrapped errors rather than
// ErrNotFound.
func TestSQLStore_GetBackendError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "selector_history"`).
		WillReturnError(assert.AnError)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	store := &SQLStore{db: db}
	_, err = store.Get(context.Background(), "example.com", "sign in")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
