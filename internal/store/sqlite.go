// Package store persists users, login sessions and conversation history in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhouzirui/heartchat/backend/internal/model/chat"
	"github.com/zhouzirui/heartchat/backend/internal/model/user"
)

//go:embed schema.sql
var schema string

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrNotFound       = errors.New("record not found")
)

const memoryDSN = ":memory:"

// SQLiteStore 基于单连接 SQLite，写操作由互斥锁串行化。
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
	// now is replaceable in tests.
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if path != memoryDSN {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: writes are serialised and :memory: stays a single database.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates missing tables and indexes. It is idempotent.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser inserts a user and fills in ID and CreatedAt.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, passwordHash string) (user.User, error) {
	u := user.User{Email: email, PasswordHash: passwordHash, CreatedAt: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?)`,
		u.Email, u.PasswordHash, formatTime(u.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, ErrDuplicateEmail
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return user.User{}, fmt.Errorf("read user id: %w", err)
	}
	return u, nil
}

// FindUserByEmail returns ErrNotFound when no account uses email.
func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email)

	var u user.User
	var created string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, ErrNotFound
		}
		return user.User{}, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

// AppendHistory inserts one conversation turn. The row is committed before it returns.
func (s *SQLiteStore) AppendHistory(ctx context.Context, userID int64, message, response string) (chat.HistoryEntry, error) {
	entry := chat.HistoryEntry{
		UserID:    userID,
		Message:   message,
		Response:  response,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO history (user_id, message, response, created_at) VALUES (?, ?, ?, ?)`,
		entry.UserID, entry.Message, entry.Response, formatTime(entry.CreatedAt),
	)
	if err != nil {
		return chat.HistoryEntry{}, fmt.Errorf("insert history: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return chat.HistoryEntry{}, fmt.Errorf("read history id: %w", err)
	}
	return entry, nil
}

// ListHistory returns a user's turns oldest first.
func (s *SQLiteStore) ListHistory(ctx context.Context, userID int64) ([]chat.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, message, response, created_at FROM history WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := make([]chat.HistoryEntry, 0, 16)
	for rows.Next() {
		var e chat.HistoryEntry
		var created string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Message, &e.Response, &created); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.CreatedAt = parseTime(created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// CountHistory returns the number of stored turns across all users.
func (s *SQLiteStore) CountHistory(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// CreateSession stores a login session.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess user.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		sess.Token, sess.UserID, formatTime(sess.CreatedAt), formatTime(sess.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FindSession returns ErrNotFound for unknown or expired tokens.
func (s *SQLiteStore) FindSession(ctx context.Context, token string) (user.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`, token)

	var sess user.Session
	var created, expires string
	if err := row.Scan(&sess.Token, &sess.UserID, &created, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.Session{}, ErrNotFound
		}
		return user.Session{}, fmt.Errorf("query session: %w", err)
	}
	sess.CreatedAt = parseTime(created)
	sess.ExpiresAt = parseTime(expires)
	if sess.Expired(s.now()) {
		return user.Session{}, ErrNotFound
	}
	return sess, nil
}

// DeleteSession removes a session; deleting an unknown token is not an error.
func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes sessions that expired before now.
func (s *SQLiteStore) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(s.now()))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

// isUniqueViolation matches modernc.org/sqlite's "UNIQUE constraint failed" errors.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
