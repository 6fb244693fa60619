package game

import (
	"fmt"
	"math/rand"
	"sort"
)

// Player 房间内的占位者（人类或机器人），服务端权威状态
type Player struct {
	Key    string
	Name   string
	X, Y   float64
	R      float64
	Color  string
	DX, DY float64 // 当前移动意图（单位向量或零）
	IsBot  bool
	ConnID string // 仅人类玩家有
}

func (p *Player) Circle() Circle { return Circle{X: p.X, Y: p.Y, R: p.R} }

// Food 静态小颗粒，没有身份，可互换
type Food struct {
	X, Y, R float64
}

func (f Food) Circle() Circle { return Circle{X: f.X, Y: f.Y, R: f.R} }

// World 单个房间的世界：玩家 + 食物
type World struct {
	Players map[string]*Player
	Foods   []Food
}

func NewWorld() World {
	return World{Players: make(map[string]*Player)}
}

// Clone 深拷贝，Tick 在副本上推进，成功后再替换
func (w *World) Clone() World {
	out := World{
		Players: make(map[string]*Player, len(w.Players)),
		Foods:   make([]Food, len(w.Foods)),
	}
	for k, p := range w.Players {
		cp := *p
		out.Players[k] = &cp
	}
	copy(out.Foods, w.Foods)
	return out
}

// Keys 按 key 排序，保证每个 Tick 的处理顺序确定
func (w *World) Keys() []string {
	keys := make([]string, 0, len(w.Players))
	for k := range w.Players {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Humans 统计人类玩家数量
func (w *World) Humans() int {
	n := 0
	for _, p := range w.Players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

// RefillFood 将食物补足到 FoodTarget
func (w *World) RefillFood(rng *rand.Rand) {
	for len(w.Foods) < FoodTarget {
		w.Foods = append(w.Foods, Food{
			X: rng.Float64() * MapWidth,
			Y: rng.Float64() * MapHeight,
			R: FoodRadius,
		})
	}
}

// NewPlayer 在随机位置生成人类玩家
func NewPlayer(key, name, connID string, rng *rand.Rand) *Player {
	return &Player{
		Key:    key,
		Name:   name,
		X:      rng.Float64() * MapWidth,
		Y:      rng.Float64() * MapHeight,
		R:      InitialRadius,
		Color:  RandomColor(rng),
		ConnID: connID,
	}
}

// NewBot 机器人起始半径更大，颜色固定
func NewBot(key string, rng *rand.Rand) *Player {
	return &Player{
		Key:   key,
		Name:  BotName,
		X:     rng.Float64() * MapWidth,
		Y:     rng.Float64() * MapHeight,
		R:     InitialRadius * BotRadiusMult,
		Color: BotColor,
		IsBot: true,
	}
}

func RandomColor(rng *rand.Rand) string {
	return fmt.Sprintf("#%06x", rng.Intn(0x1000000))
}
