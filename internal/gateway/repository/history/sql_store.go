package history

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"chatrelay/internal/gateway/entity"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// SQLStore persists history in postgres or sqlite. The message table is
// emptied on clear; the sequence table keeps the id high-water mark.
type SQLStore struct {
	db      *sql.DB
	dialect dialect

	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLStore{db: db, dialect: dialectPostgres}, nil
}

func NewSQLiteStore(path string) (*SQLStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; serialising through one connection
	// avoids SQLITE_BUSY under concurrent posts.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLStore{db: db, dialect: dialectSQLite}, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		var ddl []string
		switch s.dialect {
		case dialectSQLite:
			ddl = []string{
				`CREATE TABLE IF NOT EXISTS chat_messages (
    id INTEGER PRIMARY KEY,
    ts REAL NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT ''
)`,
				`CREATE TABLE IF NOT EXISTS chat_sequence (
    name TEXT PRIMARY KEY,
    value INTEGER NOT NULL
)`,
			}
		default:
			ddl = []string{
				`CREATE TABLE IF NOT EXISTS chat_messages (
    id BIGINT PRIMARY KEY,
    ts DOUBLE PRECISION NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
)`,
				`CREATE TABLE IF NOT EXISTS chat_sequence (
    name TEXT PRIMARY KEY,
    value BIGINT NOT NULL
)`,
			}
		}
		for _, stmt := range ddl {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				s.schemaErr = fmt.Errorf("ensure history schema: %w", err)
				return
			}
		}
	})
	return s.schemaErr
}

// bind rewrites $N placeholders for sqlite.
func (s *SQLStore) bind(query string) string {
	if s.dialect != dialectSQLite {
		return query
	}
	for i := 9; i >= 1; i-- {
		query = strings.ReplaceAll(query, "$"+strconv.Itoa(i), "?")
	}
	return query
}

func (s *SQLStore) Append(ctx context.Context, msg entity.Message) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	if msg.ID <= 0 {
		return fmt.Errorf("message id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.bind(`
INSERT INTO chat_messages (id, ts, role, content, name)
VALUES ($1, $2, $3, $4, $5)
`), msg.ID, msg.TS, msg.Role.String(), msg.Content, msg.Name); err != nil {
		return fmt.Errorf("insert message %d: %w", msg.ID, err)
	}
	if _, err := tx.ExecContext(ctx, s.bind(`
INSERT INTO chat_sequence (name, value)
VALUES ('messages', $1)
ON CONFLICT (name)
DO UPDATE SET value=excluded.value
WHERE chat_sequence.value < excluded.value
`), msg.ID); err != nil {
		return fmt.Errorf("advance sequence: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) Recent(ctx context.Context, limit int) ([]entity.Message, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
		if s.dialect == dialectPostgres {
			limit = int(^uint32(0) >> 1)
		}
	}
	rows, err := s.db.QueryContext(ctx, s.bind(`
SELECT id, ts, role, content, name FROM (
    SELECT id, ts, role, content, name FROM chat_messages ORDER BY id DESC LIMIT $1
) recent ORDER BY id ASC
`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.Message, 0, 64)
	for rows.Next() {
		var (
			m    entity.Message
			role string
		)
		if err := rows.Scan(&m.ID, &m.TS, &role, &m.Content, &m.Name); err != nil {
			return nil, err
		}
		m.Role = entity.Role(role)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) MaxID(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("store is nil")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return 0, err
	}
	var maxID int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM chat_sequence WHERE name='messages'`).Scan(&maxID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return maxID, err
}

func (s *SQLStore) Clear(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages`)
	return err
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
