// Package world 管理所有房间的内存状态以及连接到玩家的索引。
//
// 加锁顺序固定为 Store.mu → Room.mu，持有房间锁时不会再申请 Store.mu；
// 元数据的持久化写入总是在释放内存锁之后进行。
package world

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"blobarena/game"
	"blobarena/meta"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room full")
	ErrAlreadyInRoom      = errors.New("connection already in a room")
	ErrCodeSpaceExhausted = errors.New("room code space exhausted")
)

// binding 连接 → (房间, 玩家 key, 显示名)。
// 玩家被吃掉后 key 置空，连接仍作为观战者绑定在房间上；
// 观战绑定不影响房间销毁，房间销毁时一并解除。
type binding struct {
	code string
	key  string
	name string
}

// Store 世界状态存储：独占所有房间、玩家和食物
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	index map[string]binding
	rng   *rand.Rand // 受 mu 保护

	// 元数据删除进行中的房间码，以及删除计数；LoadRoom 据此避免复活刚删除的房间
	forgetting map[string]int
	gen        uint64

	meta meta.Store
	log  *zap.SugaredLogger
}

type Option func(*Store)

// WithSeed 固定随机种子（测试用）
func WithSeed(seed int64) Option {
	return func(s *Store) { s.rng = rand.New(rand.NewSource(seed)) }
}

func NewStore(m meta.Store, log *zap.SugaredLogger, opts ...Option) *Store {
	s := &Store{
		rooms:      make(map[string]*Room),
		index:      make(map[string]binding),
		forgetting: make(map[string]int),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		meta:       m,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeCode 房间码统一为大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateRoom 生成未使用的房间码，预填食物，人机房间同步生成一个机器人，最后写入元数据
func (s *Store) CreateRoom(ctx context.Context, creator string, vsBot bool) (string, error) {
	s.mu.Lock()
	code, err := s.newCodeLocked()
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.rooms[code] = s.buildRoomLocked(code, creator, vsBot)
	s.mu.Unlock()

	s.log.Infof("room created: code=%s creator=%s vsBot=%v", code, creator, vsBot)
	s.persist(ctx, meta.Room{Code: code, CreatedBy: creator, MaxPlayers: game.MaxPlayers, VsBot: vsBot})
	return code, nil
}

func (s *Store) buildRoomLocked(code, creator string, vsBot bool) *Room {
	r := newRoom(code, creator, vsBot, s.rng.Int63())
	if vsBot {
		r.addBotLocked()
	}
	return r
}

// LoadRoom 确保房间在内存中；不在时根据持久化元数据重建（服务重启后的恢复路径）
func (s *Store) LoadRoom(ctx context.Context, code string) error {
	code = NormalizeCode(code)
	for {
		s.mu.RLock()
		_, live := s.rooms[code]
		gen := s.gen
		s.mu.RUnlock()
		if live {
			return nil
		}

		rec, ok, err := s.meta.Get(ctx, code)
		if err != nil {
			return err
		}

		s.mu.Lock()
		if _, live := s.rooms[code]; live {
			s.mu.Unlock()
			return nil
		}
		if s.forgetting[code] > 0 {
			s.mu.Unlock()
			return ErrRoomNotFound
		}
		if s.gen != gen {
			// 读取元数据期间有房间被删除，重新读取
			s.mu.Unlock()
			continue
		}
		if !ok {
			s.mu.Unlock()
			return ErrRoomNotFound
		}
		s.rooms[code] = s.buildRoomLocked(code, rec.CreatedBy, rec.VsBot)
		s.mu.Unlock()
		s.log.Infof("room restored from metadata: code=%s vsBot=%v", code, rec.VsBot)
		return nil
	}
}

// AddPlayer 加入房间，返回玩家 key
func (s *Store) AddPlayer(username, connID, code string) (string, error) {
	code = NormalizeCode(code)
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.index[connID]; ok && (b.key != "" || b.code != code) {
		return "", ErrAlreadyInRoom
	}
	room, ok := s.rooms[code]
	if !ok {
		return "", ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.world.Humans() >= room.capacity() {
		return "", ErrRoomFull
	}
	key := room.playerKeyLocked(username, connID)
	room.world.Players[key] = game.NewPlayer(key, username, connID, room.rng)
	s.index[connID] = binding{code: code, key: key, name: username}
	return key, nil
}

// AddBot 向房间加入一个机器人
func (s *Store) AddBot(code string) (string, error) {
	room, ok := s.room(NormalizeCode(code))
	if !ok {
		return "", ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return "", ErrRoomNotFound
	}
	return room.addBotLocked(), nil
}

// SetPlayerIntent 覆盖玩家的移动意图（调用方负责归一化）。
// 连接没有存活玩家时什么也不做，返回 false。
func (s *Store) SetPlayerIntent(connID string, dx, dy float64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.index[connID]
	if !ok || b.key == "" {
		return false
	}
	room, ok := s.rooms[b.code]
	if !ok {
		return false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	p, ok := room.world.Players[b.key]
	if !ok {
		return false
	}
	p.DX, p.DY = dx, dy
	return true
}

// Departure 连接离开的结果
type Departure struct {
	Code    string // 连接之前绑定的房间，空表示没有绑定
	Name    string
	Key     string
	Removed bool // 是否移除了存活的玩家
	Closed  bool // 房间是否因此被销毁
}

// RemovePlayerByConnection 幂等；移除后房间内没有任何玩家（含机器人）时销毁房间并删除元数据，
// 这是唯一的自动销毁路径。观战连接离开只解除绑定。
func (s *Store) RemovePlayerByConnection(ctx context.Context, connID string) Departure {
	s.mu.Lock()
	b, ok := s.index[connID]
	if !ok {
		s.mu.Unlock()
		return Departure{}
	}
	delete(s.index, connID)
	dep := Departure{Code: b.code, Name: b.name, Key: b.key}

	if room, ok := s.rooms[b.code]; ok {
		room.mu.Lock()
		if p, ok := room.world.Players[b.key]; ok && b.key != "" && p.ConnID == connID {
			delete(room.world.Players, b.key)
			dep.Removed = true
		}
		if dep.Removed && len(room.world.Players) == 0 {
			room.closed = true
			delete(s.rooms, b.code)
			s.unbindLocked(b.code)
			s.beginForgetLocked(b.code)
			dep.Closed = true
		}
		room.mu.Unlock()
	}
	s.mu.Unlock()

	if dep.Closed {
		s.log.Infof("room torn down: code=%s (last player %s left)", dep.Code, dep.Name)
		s.forget(ctx, dep.Code)
	}
	return dep
}

// DeleteRoom 管理员删除房间：移除内存状态与所有绑定，再删除元数据。
// 返回内存中是否存在该房间。
func (s *Store) DeleteRoom(ctx context.Context, code string) bool {
	code = NormalizeCode(code)
	s.mu.Lock()
	room, ok := s.rooms[code]
	if ok {
		delete(s.rooms, code)
		s.unbindLocked(code)
		room.mu.Lock()
		room.closed = true
		room.mu.Unlock()
	}
	s.beginForgetLocked(code)
	s.mu.Unlock()

	s.forget(ctx, code)
	return ok
}

// StepRoom 推进一个房间一个 Tick，并使被吃掉玩家的索引失效
func (s *Store) StepRoom(code string) (Tick, error) {
	room, ok := s.room(code)
	if !ok {
		return Tick{}, ErrRoomNotFound
	}
	t, err := room.advance()
	if err != nil {
		return Tick{}, err
	}
	if len(t.Victims) > 0 {
		s.invalidate(code, t.Victims)
	}
	return t, nil
}

func (s *Store) invalidate(code string, victims []game.Victim) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range victims {
		if v.ConnID == "" {
			continue
		}
		if b, ok := s.index[v.ConnID]; ok && b.code == code && b.key == v.Key {
			b.key = ""
			s.index[v.ConnID] = b
		}
	}
}

// RoomCodes 当前所有房间码的快照
func (s *Store) RoomCodes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.rooms))
	for c := range s.rooms {
		codes = append(codes, c)
	}
	return codes
}

func (s *Store) Exists(code string) bool {
	_, ok := s.room(NormalizeCode(code))
	return ok
}

// Snapshot 房间状态拷贝；full 为 false 时食物按广播上限截断
func (s *Store) Snapshot(code string, full bool) (View, error) {
	room, ok := s.room(NormalizeCode(code))
	if !ok {
		return View{}, ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return View{}, ErrRoomNotFound
	}
	foodCap := game.SnapshotFood
	if full {
		foodCap = -1
	}
	return room.viewLocked(foodCap), nil
}

// HumanCount 房间内人类玩家数量，房间不存在时为 0
func (s *Store) HumanCount(code string) int {
	room, ok := s.room(NormalizeCode(code))
	if !ok {
		return 0
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.world.Humans()
}

// Binding 连接当前绑定的房间以及是否仍有存活玩家
func (s *Store) Binding(connID string) (code string, active bool, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.index[connID]
	return b.code, b.key != "", ok
}

// Player 连接控制的存活玩家
func (s *Store) Player(connID string) (game.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.index[connID]
	if !ok || b.key == "" {
		return game.Player{}, false
	}
	room, ok := s.rooms[b.code]
	if !ok {
		return game.Player{}, false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	p, ok := room.world.Players[b.key]
	if !ok {
		return game.Player{}, false
	}
	return *p, true
}

// RoomSummary 房间列表项
type RoomSummary struct {
	Code         string `json:"code"`
	CreatedBy    string `json:"created_by"`
	VsBot        bool   `json:"vs_bot"`
	PlayersCount int    `json:"players_count"`
	Live         bool   `json:"live"`
}

// ListRooms 最近创建的房间（来自元数据）加上实时人数
func (s *Store) ListRooms(ctx context.Context, limit int) ([]RoomSummary, error) {
	recs, err := s.meta.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]RoomSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, RoomSummary{
			Code:         r.Code,
			CreatedBy:    r.CreatedBy,
			VsBot:        r.VsBot,
			PlayersCount: s.HumanCount(r.Code),
			Live:         s.Exists(r.Code),
		})
	}
	return out, nil
}

func (s *Store) room(code string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[code]
	return r, ok
}

// unbindLocked 解除所有绑定在 code 上的连接（包括观战者）
func (s *Store) unbindLocked(code string) {
	for id, b := range s.index {
		if b.code == code {
			delete(s.index, id)
		}
	}
}

// beginForgetLocked 标记元数据删除开始；与 forget 成对使用
func (s *Store) beginForgetLocked(code string) {
	s.gen++
	s.forgetting[code]++
}

func (s *Store) persist(ctx context.Context, rec meta.Room) {
	if err := s.meta.Upsert(ctx, rec); err != nil {
		s.log.Errorf("persist room metadata failed: code=%s err=%v", rec.Code, err)
	}
}

func (s *Store) forget(ctx context.Context, code string) {
	if err := s.meta.Delete(ctx, code); err != nil {
		s.log.Errorf("delete room metadata failed: code=%s err=%v", code, err)
	}
	s.mu.Lock()
	if s.forgetting[code]--; s.forgetting[code] <= 0 {
		delete(s.forgetting, code)
	}
	s.mu.Unlock()
}
