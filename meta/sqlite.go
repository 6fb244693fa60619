package meta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	code        TEXT PRIMARY KEY,
	created_by  TEXT NOT NULL,
	max_players INTEGER NOT NULL DEFAULT 2,
	vs_bot      INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
)`

// SQLStore 基于 sqlite 的房间元数据
type SQLStore struct {
	db *sql.DB
}

// OpenSQLite 打开（必要时创建）数据库文件并初始化表结构
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// sqlite 单写者，避免 database is locked
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Upsert(ctx context.Context, r Room) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO rooms(code, created_by, max_players, vs_bot, created_at) VALUES(?,?,?,?,?)`,
		r.Code, r.CreatedBy, r.MaxPlayers, boolInt(r.VsBot), r.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert room %s: %w", r.Code, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, code string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE code=?`, code); err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, code string) (Room, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT code, created_by, max_players, vs_bot, created_at FROM rooms WHERE code=?`, code)
	r, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Room{}, false, nil
	}
	if err != nil {
		return Room{}, false, fmt.Errorf("get room %s: %w", code, err)
	}
	return r, true, nil
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]Room, error) {
	if limit <= 0 {
		limit = -1 // sqlite: 负数表示不限
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, created_by, max_players, vs_bot, created_at FROM rooms ORDER BY created_at DESC, code LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("list rooms: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(sc scanner) (Room, error) {
	var (
		r     Room
		vsBot int
		ts    int64
	)
	if err := sc.Scan(&r.Code, &r.CreatedBy, &r.MaxPlayers, &vsBot, &ts); err != nil {
		return Room{}, err
	}
	r.VsBot = vsBot != 0
	r.CreatedAt = time.Unix(0, ts)
	return r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
