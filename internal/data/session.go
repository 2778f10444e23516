package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"auth-gateway/internal/auth"

	_ "modernc.org/sqlite"
)

// sqliteSessionRepo SQLite 实现的服务端会话仓库
type sqliteSessionRepo struct {
	db  *sql.DB
	now func() time.Time
}

// SessionRepo is an auth.SessionRepo that can also sweep expired rows.
type SessionRepo interface {
	auth.SessionRepo
	DeleteExpired(ctx context.Context) (int64, error)
	StartCleanup(ctx context.Context, interval time.Duration, logger *slog.Logger)
	Close() error
}

// NewSQLiteSessionRepo 创建 SQLite 会话仓库
func NewSQLiteSessionRepo(dbPath string) (SessionRepo, error) {
	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			subject TEXT,
			data TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	_, err = db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions index: %w", err)
	}

	return &sqliteSessionRepo{db: db, now: time.Now}, nil
}

// Get 读取会话，不存在或已过期时返回 nil, nil
func (r *sqliteSessionRepo) Get(ctx context.Context, id string) (*auth.StateData, error) {
	var data string
	var expiresAt int64
	err := r.db.QueryRowContext(ctx,
		"SELECT data, expires_at FROM sessions WHERE id = ?", id,
	).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	if r.now().Unix() >= expiresAt {
		return nil, nil
	}

	var state auth.StateData
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &state, nil
}

// Set 写入或覆盖会话
func (r *sqliteSessionRepo) Set(ctx context.Context, id string, state *auth.StateData, expiresAt time.Time) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, subject, data, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject = excluded.subject,
			data = excluded.data,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, id, state.Subject(), string(data), expiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete 删除会话，不存在时不报错
func (r *sqliteSessionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every expired row and reports how many went.
func (r *sqliteSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// StartCleanup 定期清理过期会话，ctx 结束时退出
func (r *sqliteSessionRepo) StartCleanup(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := r.DeleteExpired(ctx)
				if err != nil {
					logger.Warn("session cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					logger.Debug("expired sessions removed", "count", n)
				}
			}
		}
	}()
}

// Close 关闭数据库连接
func (r *sqliteSessionRepo) Close() error {
	return r.db.Close()
}
