package world

import (
	"fmt"
	"math/rand"
	"sync"

	"blobarena/game"
)

// Room 房间：世界状态由 mu 保护，所有读写都在锁内完成
type Room struct {
	mu      sync.Mutex
	code    string
	creator string
	vsBot   bool
	world   game.World
	rng     *rand.Rand
	closed  bool
}

func newRoom(code, creator string, vsBot bool, seed int64) *Room {
	r := &Room{
		code:    code,
		creator: creator,
		vsBot:   vsBot,
		world:   game.NewWorld(),
		rng:     rand.New(rand.NewSource(seed)),
	}
	r.world.RefillFood(r.rng)
	return r
}

// capacity 人类座位数：2，人机房间预留一个给机器人
func (r *Room) capacity() int {
	if r.vsBot {
		return game.MaxPlayers - 1
	}
	return game.MaxPlayers
}

// playerKeyLocked 用户名 + 连接 ID 后 4 位，冲突时改用随机数字后缀
func (r *Room) playerKeyLocked(username, connID string) string {
	suffix := connID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	key := username + "#" + suffix
	for r.takenLocked(key) {
		key = fmt.Sprintf("%s#%d", username, 1000+r.rng.Intn(9000))
	}
	return key
}

func (r *Room) takenLocked(key string) bool {
	_, ok := r.world.Players[key]
	return ok
}

func (r *Room) addBotLocked() string {
	key := fmt.Sprintf("BOT#%d", 1000+r.rng.Intn(9000))
	for r.takenLocked(key) {
		key = fmt.Sprintf("BOT#%d", 1000+r.rng.Intn(9000))
	}
	r.world.Players[key] = game.NewBot(key, r.rng)
	return key
}

// advance 在副本上推进一个 Tick，成功后才替换；
// 中途 panic 时房间保持上一 Tick 的状态。
func (r *Room) advance() (Tick, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Tick{}, ErrRoomNotFound
	}
	next := r.world.Clone()
	res := game.Step(&next, r.rng)
	r.world = next
	return Tick{
		Code:      r.code,
		Victims:   res.Victims,
		FoodEaten: res.FoodEaten,
		View:      r.viewLocked(game.SnapshotFood),
	}, nil
}

// viewLocked 拷贝当前状态，foodCap < 0 表示不截断
func (r *Room) viewLocked(foodCap int) View {
	v := View{
		Code:    r.code,
		Players: make([]game.Player, 0, len(r.world.Players)),
	}
	for _, k := range r.world.Keys() {
		v.Players = append(v.Players, *r.world.Players[k])
	}
	foods := r.world.Foods
	if foodCap >= 0 && len(foods) > foodCap {
		foods = foods[:foodCap]
	}
	v.Foods = append([]game.Food(nil), foods...)
	return v
}

// View 房间状态的只读拷贝
type View struct {
	Code    string
	Players []game.Player
	Foods   []game.Food
}

// Player 按 key 查找
func (v View) Player(key string) (game.Player, bool) {
	for _, p := range v.Players {
		if p.Key == key {
			return p, true
		}
	}
	return game.Player{}, false
}

// Tick 一次推进的结果和推进后的快照
type Tick struct {
	Code      string
	Victims   []game.Victim
	FoodEaten int
	View      View
}
