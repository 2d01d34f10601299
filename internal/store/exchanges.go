package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/vchat/internal/domain"
	"github.com/soyeahso/vchat/internal/logging"
)

// ExchangeLog records exchanges handled by the assistant endpoint.
type ExchangeLog interface {
	// Record stores ex, assigning an ID and CreatedAt when unset.
	Record(ctx context.Context, ex domain.Exchange) (domain.Exchange, error)
	// Recent returns up to limit exchanges, newest first.
	Recent(ctx context.Context, limit int) ([]domain.Exchange, error)
	// Count returns the number of recorded exchanges.
	Count(ctx context.Context) (int, error)
}

func prepare(ex domain.Exchange) domain.Exchange {
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}
	ex.CreatedAt = ex.CreatedAt.UTC()
	return ex
}

// SQLiteExchangeLog implements ExchangeLog on a DB.
type SQLiteExchangeLog struct {
	db *DB
}

// NewSQLiteExchangeLog creates an exchange log using the given database.
func NewSQLiteExchangeLog(db *DB) *SQLiteExchangeLog {
	return &SQLiteExchangeLog{db: db}
}

func (l *SQLiteExchangeLog) Record(ctx context.Context, ex domain.Exchange) (domain.Exchange, error) {
	ex = prepare(ex)
	_, err := l.db.sql.ExecContext(ctx,
		`INSERT INTO exchanges (id, request_id, message, chat_history, response, status, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.RequestID, ex.Message, ex.ChatHistory, ex.Response, ex.Status, ex.DurationMs,
		ex.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("recording exchange: %w", err)
	}
	return ex, nil
}

func (l *SQLiteExchangeLog) Recent(ctx context.Context, limit int) ([]domain.Exchange, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.sql.QueryContext(ctx,
		`SELECT id, request_id, message, chat_history, response, status, duration_ms, created_at
		 FROM exchanges ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying exchanges: %w", err)
	}
	defer rows.Close()

	var out []domain.Exchange
	for rows.Next() {
		var ex domain.Exchange
		var createdAt string
		if err := rows.Scan(&ex.ID, &ex.RequestID, &ex.Message, &ex.ChatHistory,
			&ex.Response, &ex.Status, &ex.DurationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning exchange: %w", err)
		}
		ex.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (l *SQLiteExchangeLog) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM exchanges").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting exchanges: %w", err)
	}
	return n, nil
}

// MemoryExchangeLog is a bounded in-memory ExchangeLog. The oldest entries
// are evicted once the capacity is reached.
type MemoryExchangeLog struct {
	mu      sync.Mutex
	entries []domain.Exchange
	max     int
}

// NewMemoryExchangeLog creates an in-memory log holding at most max entries.
// A non-positive max defaults to 1000.
func NewMemoryExchangeLog(max int) *MemoryExchangeLog {
	if max <= 0 {
		max = 1000
	}
	return &MemoryExchangeLog{max: max}
}

func (l *MemoryExchangeLog) Record(_ context.Context, ex domain.Exchange) (domain.Exchange, error) {
	ex = prepare(ex)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ex)
	if over := len(l.entries) - l.max; over > 0 {
		l.entries = append([]domain.Exchange(nil), l.entries[over:]...)
	}
	return ex, nil
}

func (l *MemoryExchangeLog) Recent(_ context.Context, limit int) ([]domain.Exchange, error) {
	if limit <= 0 {
		limit = 50
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	n := min(limit, len(l.entries))
	out := make([]domain.Exchange, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}

func (l *MemoryExchangeLog) Count(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries), nil
}

// OpenExchangeLog opens the log selected by kind: "sqlite" stores to path,
// "memory" keeps entries in process. The returned close func is never nil.
func OpenExchangeLog(ctx context.Context, kind, path string, log *logging.Logger) (ExchangeLog, func() error, error) {
	switch kind {
	case "memory":
		return NewMemoryExchangeLog(0), func() error { return nil }, nil
	case "", "sqlite":
		db, err := Open(ctx, Options{Path: path}, log)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLiteExchangeLog(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown exchange store %q", kind)
	}
}
