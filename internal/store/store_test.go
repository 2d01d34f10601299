package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/soyeahso/vchat/internal/domain"
	"github.com/soyeahso/vchat/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Options{Path: MemoryPath}, logging.New(nil, "silent"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func latestVersion() int {
	return migrations[len(migrations)-1].Version
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Options{}, logging.New(nil, "silent"))
	assert.Error(t, err)
}

func TestOpen_MigratesToLatest(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	v, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), v)

	var name string
	require.NoError(t, db.sql.QueryRowContext(ctx,
		"SELECT name FROM schema_migrations WHERE version = 1").Scan(&name))
	assert.Equal(t, "create exchanges", name)

	// duration_ms comes from the second migration
	_, err = db.sql.ExecContext(ctx,
		"INSERT INTO exchanges (id, message, status, created_at, duration_ms) VALUES ('a', 'hi', 200, '2024-01-01T00:00:00Z', 12)")
	require.NoError(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.migrate(ctx))

	var count int
	require.NoError(t, db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(migrations), count)
}

func TestMigrate_ResumesFromRecordedVersion(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	// Roll the schema back to version 1 by hand.
	_, err := db.sql.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version > 1")
	require.NoError(t, err)
	_, err = db.sql.ExecContext(ctx, "ALTER TABLE exchanges DROP COLUMN duration_ms")
	require.NoError(t, err)

	require.NoError(t, db.migrate(ctx))
	v, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), v)
}

func TestOpen_FileUsesWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "exchanges.db")
	ctx := context.Background()
	log := logging.New(nil, "silent")

	db, err := Open(ctx, Options{Path: path, BusyTimeout: time.Second}, log)
	require.NoError(t, err)

	var mode string
	require.NoError(t, db.sql.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var busy int
	require.NoError(t, db.sql.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busy))
	assert.Equal(t, 1000, busy)
	require.NoError(t, db.Close())
	assert.FileExists(t, path)

	// Reopening an up-to-date file applies nothing and keeps the records.
	db, err = Open(ctx, Options{Path: path}, log)
	require.NoError(t, err)
	defer db.Close()
	v, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), v)
}

// --- Exchange log tests ---

func testLogs(t *testing.T) map[string]ExchangeLog {
	return map[string]ExchangeLog{
		"sqlite": NewSQLiteExchangeLog(testDB(t)),
		"memory": NewMemoryExchangeLog(0),
	}
}

func TestExchangeLog_RecordAssignsIDs(t *testing.T) {
	for name, log := range testLogs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ex, err := log.Record(ctx, domain.Exchange{Message: "hi", Response: "hello", Status: 200})
			require.NoError(t, err)
			assert.NotEmpty(t, ex.ID)
			assert.False(t, ex.CreatedAt.IsZero())

			n, err := log.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestExchangeLog_RecentNewestFirst(t *testing.T) {
	for name, log := range testLogs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
			for i := 0; i < 5; i++ {
				_, err := log.Record(ctx, domain.Exchange{
					RequestID:   fmt.Sprintf("req-%d", i),
					Message:     fmt.Sprintf("msg %d", i),
					ChatHistory: "V: Hi\nUser: msg",
					Response:    "ok",
					Status:      200,
					DurationMs:  int64(i),
					CreatedAt:   base.Add(time.Duration(i) * time.Second),
				})
				require.NoError(t, err)
			}

			recent, err := log.Recent(ctx, 3)
			require.NoError(t, err)
			require.Len(t, recent, 3)
			assert.Equal(t, "msg 4", recent[0].Message)
			assert.Equal(t, "msg 3", recent[1].Message)
			assert.Equal(t, "msg 2", recent[2].Message)

			got := recent[0]
			assert.Equal(t, "req-4", got.RequestID)
			assert.Equal(t, "V: Hi\nUser: msg", got.ChatHistory)
			assert.Equal(t, int64(4), got.DurationMs)
			assert.True(t, base.Add(4*time.Second).Equal(got.CreatedAt))
		})
	}
}

func TestExchangeLog_RecentDefaultLimit(t *testing.T) {
	for name, log := range testLogs(t) {
		t.Run(name, func(t *testing.T) {
			recent, err := log.Recent(context.Background(), 0)
			require.NoError(t, err)
			assert.Empty(t, recent)
		})
	}
}

func TestMemoryExchangeLog_Evicts(t *testing.T) {
	log := NewMemoryExchangeLog(2)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := log.Record(ctx, domain.Exchange{Message: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	n, _ := log.Count(ctx)
	assert.Equal(t, 2, n)
	recent, _ := log.Recent(ctx, 10)
	require.Len(t, recent, 2)
	assert.Equal(t, "m3", recent[0].Message)
	assert.Equal(t, "m2", recent[1].Message)
}

func TestOpenExchangeLog(t *testing.T) {
	log := logging.New(nil, "silent")

	mem, closeMem, err := OpenExchangeLog(context.Background(), "memory", "", log)
	require.NoError(t, err)
	assert.IsType(t, &MemoryExchangeLog{}, mem)
	assert.NoError(t, closeMem())

	path := filepath.Join(t.TempDir(), "ex.db")
	sq, closeSQL, err := OpenExchangeLog(context.Background(), "sqlite", path, log)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteExchangeLog{}, sq)
	assert.NoError(t, closeSQL())

	_, _, err = OpenExchangeLog(context.Background(), "redis", "", log)
	assert.Error(t, err)
}
