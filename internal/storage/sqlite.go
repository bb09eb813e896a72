package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tgadmin/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Timestamps are stored as unix milliseconds so range filters stay
// simple integer comparisons.

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// userWhere builds the WHERE clause for a UserFilter.
func userWhere(f UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.ActiveWithin > 0 {
		cutoff := time.Now().Add(-f.ActiveWithin).UnixMilli()
		conds = append(conds, "last_activity >= ?")
		args = append(args, cutoff)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		pat := "%" + q + "%"
		conds = append(conds, "(username LIKE ? OR first_name LIKE ? OR last_name LIKE ?)")
		args = append(args, pat, pat, pat)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *sqliteStore) ListUsers(ctx context.Context, f UserFilter, p Page) ([]User, error) {
	where, args := userWhere(f)
	q := `SELECT id, telegram_id, username, first_name, last_name, last_activity, created_at, total_coins
	      FROM users` + where + ` ORDER BY id DESC`
	if p.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, p.Limit, p.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var (
			u        User
			username sql.NullString
			lastAct  int64
			created  int64
		)
		if err := rows.Scan(&u.ID, &u.TelegramID, &username, &u.FirstName, &u.LastName, &lastAct, &created, &u.TotalCoins); err != nil {
			return nil, err
		}
		u.Username = username.String
		u.LastActivity = time.UnixMilli(lastAct)
		u.CreatedAt = time.UnixMilli(created)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CountUsers(ctx context.Context, f UserFilter) (int, error) {
	where, args := userWhere(f)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&n)
	return n, err
}

func (s *sqliteStore) UpsertUser(ctx context.Context, u User) error {
	if strings.TrimSpace(u.TelegramID) == "" {
		return errors.New("telegram_id is required")
	}
	now := time.Now()
	if u.LastActivity.IsZero() {
		u.LastActivity = now
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(telegram_id, username, first_name, last_name, last_activity, created_at, total_coins)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(telegram_id) DO UPDATE SET
		   username=excluded.username,
		   first_name=excluded.first_name,
		   last_name=excluded.last_name,
		   last_activity=excluded.last_activity,
		   total_coins=excluded.total_coins`,
		u.TelegramID, nullStr(u.Username), u.FirstName, u.LastName,
		u.LastActivity.UnixMilli(), u.CreatedAt.UnixMilli(), u.TotalCoins,
	)
	return err
}

func (s *sqliteStore) TouchActivity(ctx context.Context, telegramID string, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_activity = ? WHERE telegram_id = ?`,
		at.UnixMilli(), telegramID,
	)
	return err
}

func (s *sqliteStore) AppendMessageLog(ctx context.Context, m MessageLog) (int64, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	var completed any
	if !m.CompletedAt.IsZero() {
		completed = m.CompletedAt.UnixMilli()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO message_log(message, recipient_type, total_recipients, success_count, failed_count, status, created_at, completed_at)
		 VALUES(?,?,?,?,?,?,?,?)`,
		m.Message, m.RecipientType, m.TotalRecipients, m.SuccessCount, m.FailedCount,
		m.Status, m.CreatedAt.UnixMilli(), completed,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteStore) ListMessageLogs(ctx context.Context, limit int) ([]MessageLog, error) {
	q := `SELECT id, message, recipient_type, total_recipients, success_count, failed_count, status, created_at, completed_at
	      FROM message_log ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageLog
	for rows.Next() {
		var (
			m         MessageLog
			created   int64
			completed sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.Message, &m.RecipientType, &m.TotalRecipients,
			&m.SuccessCount, &m.FailedCount, &m.Status, &created, &completed); err != nil {
			return nil, err
		}
		m.CreatedAt = time.UnixMilli(created)
		if completed.Valid {
			m.CompletedAt = time.UnixMilli(completed.Int64)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CountMessageLogs(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM message_log`).Scan(&n)
	return n, err
}

func (s *sqliteStore) PruneMessageLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM message_log WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
