package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/rushteam/feedrank/core"
)

// SQLiteStore 是 SQLite 实现的行为日志 + 视频目录，单机持久化使用。
// 行为表只做 INSERT / SELECT，不做 UPDATE / DELETE。
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS behaviors (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id          TEXT    NOT NULL,
	video_id         TEXT    NOT NULL,
	action           TEXT    NOT NULL,
	watch_time       REAL    NOT NULL DEFAULT 0,
	watch_percentage REAL    NOT NULL DEFAULT 0,
	ts               INTEGER NOT NULL,
	location         TEXT    NOT NULL DEFAULT '',
	category         TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_behaviors_user_ts ON behaviors (user_id, ts DESC);
CREATE INDEX IF NOT EXISTS idx_behaviors_video_action ON behaviors (video_id, action);

CREATE TABLE IF NOT EXISTS videos (
	id            TEXT    PRIMARY KEY,
	category      TEXT    NOT NULL DEFAULT '',
	location      TEXT    NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL,
	view_count    INTEGER NOT NULL DEFAULT 0,
	like_count    INTEGER NOT NULL DEFAULT 0,
	comment_count INTEGER NOT NULL DEFAULT 0,
	share_count   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_videos_views ON videos (view_count DESC);
`

// NewSQLiteStore 打开（必要时创建）数据库并初始化表结构。path 为 ":memory:" 时使用内存库。
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// 内存库每个连接是独立的数据库，限制为单连接
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("SQLite database ping failed: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) Append(ctx context.Context, b core.Behavior) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO behaviors (user_id, video_id, action, watch_time, watch_percentage, ts, location, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.VideoID, string(b.Action), b.WatchTimeSeconds, b.WatchPercentage,
		b.Timestamp.UnixNano(), b.Location, b.Category,
	)
	if err != nil {
		return fmt.Errorf("sqlite append behavior: %w", err)
	}
	return nil
}

func (s *SQLiteStore) QueryByUser(ctx context.Context, userID string, limit int) ([]core.Behavior, error) {
	if limit <= 0 {
		limit = -1 // SQLite: LIMIT -1 表示不限制
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, video_id, action, watch_time, watch_percentage, ts, location, category
		 FROM behaviors WHERE user_id = ? ORDER BY ts DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite query behaviors: %w", err)
	}
	defer rows.Close()

	out := make([]core.Behavior, 0)
	for rows.Next() {
		var (
			b      core.Behavior
			action string
			ts     int64
		)
		if err := rows.Scan(&b.UserID, &b.VideoID, &action, &b.WatchTimeSeconds, &b.WatchPercentage, &ts, &b.Location, &b.Category); err != nil {
			return nil, fmt.Errorf("sqlite scan behavior: %w", err)
		}
		b.Action = core.Action(action)
		b.Timestamp = time.Unix(0, ts)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) QueryUsersWhoActedOn(ctx context.Context, videoIDs []string, action core.Action, excludeUserID string, limit int) ([]string, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = -1
	}
	args := make([]any, 0, len(videoIDs)+3)
	args = append(args, string(action), excludeUserID)
	for _, id := range videoIDs {
		args = append(args, id)
	}
	args = append(args, limit)

	query := `SELECT user_id FROM behaviors
		WHERE action = ? AND user_id <> ? AND video_id IN (` + placeholders(len(videoIDs)) + `)
		GROUP BY user_id ORDER BY MAX(ts) DESC, user_id LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query users: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite scan user: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountUsersWhoActedOn(ctx context.Context, videoID string, userIDs []string, action core.Action) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(userIDs)+2)
	args = append(args, videoID, string(action))
	for _, id := range userIDs {
		args = append(args, id)
	}
	query := `SELECT COUNT(DISTINCT user_id) FROM behaviors
		WHERE video_id = ? AND action = ? AND user_id IN (` + placeholders(len(userIDs)) + `)`

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite count users: %w", err)
	}
	return n, nil
}

// UpsertVideo 写入或更新视频（目录数据通常由外部系统同步）。
func (s *SQLiteStore) UpsertVideo(ctx context.Context, v *core.Video) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (id, category, location, created_at, view_count, like_count, comment_count, share_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   category = excluded.category, location = excluded.location, created_at = excluded.created_at,
		   view_count = excluded.view_count, like_count = excluded.like_count,
		   comment_count = excluded.comment_count, share_count = excluded.share_count`,
		v.ID, v.Category, v.Location, v.CreatedAt.UnixNano(), v.ViewCount, v.LikeCount, v.CommentCount, v.ShareCount,
	)
	if err != nil {
		return fmt.Errorf("sqlite upsert video: %w", err)
	}
	return nil
}

func (s *SQLiteStore) QueryTrending(ctx context.Context, limit int) ([]*core.Video, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, location, created_at, view_count, like_count, comment_count, share_count
		 FROM videos ORDER BY view_count DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trending: %w", err)
	}
	defer rows.Close()

	out := make([]*core.Video, 0)
	for rows.Next() {
		var (
			v         core.Video
			createdAt int64
		)
		if err := rows.Scan(&v.ID, &v.Category, &v.Location, &createdAt, &v.ViewCount, &v.LikeCount, &v.CommentCount, &v.ShareCount); err != nil {
			return nil, fmt.Errorf("sqlite scan video: %w", err)
		}
		v.CreatedAt = time.Unix(0, createdAt)
		out = append(out, &v)
	}
	return out, rows.Err()
}

// Ping 健康检查。
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var (
	_ core.BehaviorLog = (*SQLiteStore)(nil)
	_ core.Catalog     = (*SQLiteStore)(nil)
)
