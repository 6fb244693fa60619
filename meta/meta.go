// Package meta 持久化房间元数据（房间是否存在、创建者、是否人机），
// 不保存实时对局状态。
package meta

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Room 一条持久化的房间记录
type Room struct {
	Code       string    `json:"code"`
	CreatedBy  string    `json:"created_by"`
	MaxPlayers int       `json:"max_players"`
	VsBot      bool      `json:"vs_bot"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store 房间元数据存储
type Store interface {
	Upsert(ctx context.Context, r Room) error
	Delete(ctx context.Context, code string) error
	Get(ctx context.Context, code string) (Room, bool, error)
	List(ctx context.Context, limit int) ([]Room, error)
}

// MemStore 内存实现：未配置数据库时使用，也用于测试
type MemStore struct {
	mu    sync.RWMutex
	rooms map[string]Room
}

func NewMemStore() *MemStore {
	return &MemStore{rooms: make(map[string]Room)}
}

func (m *MemStore) Upsert(_ context.Context, r Room) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.Code] = r
	return nil
}

func (m *MemStore) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, code)
	return nil
}

func (m *MemStore) Get(_ context.Context, code string) (Room, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	return r, ok, nil
}

// List 按创建时间倒序返回最多 limit 条（limit <= 0 表示不限）
func (m *MemStore) List(_ context.Context, limit int) ([]Room, error) {
	m.mu.RLock()
	out := make([]Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Code < out[j].Code
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
