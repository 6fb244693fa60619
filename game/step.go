package game

import (
	"math"
	"math/rand"
	"sort"
)

// Victim 本 Tick 被吞噬的玩家
type Victim struct {
	Key    string
	Name   string
	IsBot  bool
	ConnID string
}

// TickResult 单次推进的结果
type TickResult struct {
	Victims   []Victim
	FoodEaten int
}

// Step 推进一个 Tick：移动 → 吃食物(补足) → 玩家互吃。
// 各阶段严格按顺序执行，后面的阶段能看到前面阶段的结果。
func Step(w *World, rng *rand.Rand) TickResult {
	keys := w.Keys()
	move(w, keys)
	eaten := eatFood(w, keys)
	w.RefillFood(rng)
	victims := eatPlayers(w)
	return TickResult{Victims: victims, FoodEaten: eaten}
}

func move(w *World, keys []string) {
	for _, k := range keys {
		p := w.Players[k]
		if p.IsBot {
			steerBot(w, p)
		}
		speed := Speed(p.R)
		p.X = clamp(p.X+p.DX*speed*TickDT, 0, MapWidth)
		p.Y = clamp(p.Y+p.DY*speed*TickDT, 0, MapHeight)
	}
}

// steerBot 优先追最近的人类玩家，否则追前 BotFoodScan 个食物中最近的；
// 没有目标时保持原方向滑行。
func steerBot(w *World, bot *Player) {
	found := false
	var tx, ty float64
	best := math.Inf(1)
	for _, other := range w.Players {
		if other == bot || other.IsBot {
			continue
		}
		if d := distSq(bot.X, bot.Y, other.X, other.Y); d < best {
			best, tx, ty, found = d, other.X, other.Y, true
		}
	}
	if !found {
		foods := w.Foods
		if len(foods) > BotFoodScan {
			foods = foods[:BotFoodScan]
		}
		for _, f := range foods {
			if d := distSq(bot.X, bot.Y, f.X, f.Y); d < best {
				best, tx, ty, found = d, f.X, f.Y, true
			}
		}
	}
	if !found {
		return
	}
	dx, dy := tx-bot.X, ty-bot.Y
	if dx == 0 && dy == 0 {
		// 已在目标上
		return
	}
	bot.DX, bot.DY = Normalize(dx, dy)
}

// eatFood 返回被吃掉的食物数量，未被吃的食物保持原顺序
func eatFood(w *World, keys []string) int {
	eaten := 0
	for _, k := range keys {
		p := w.Players[k]
		body := p.Circle()
		kept := w.Foods[:0]
		for _, f := range w.Foods {
			if Contains(body, f.Circle()) {
				p.R = GrowByArea(p.R, f.R)
				eaten++
				continue
			}
			kept = append(kept, f)
		}
		w.Foods = kept
	}
	return eaten
}

// eatPlayers 按阶段开始时的半径/位置判定所有有序对，结束后统一结算。
// 大者先判定，已被淘汰的玩家不再参与吃或被吃。
func eatPlayers(w *World) []Victim {
	type body struct {
		key string
		c   Circle
	}
	order := make([]body, 0, len(w.Players))
	for k, p := range w.Players {
		order = append(order, body{key: k, c: p.Circle()})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].c.R != order[j].c.R {
			return order[i].c.R > order[j].c.R
		}
		return order[i].key < order[j].key
	})

	eliminated := make(map[string]bool)
	gained := make(map[string]float64) // 累计增加的 r²
	var victims []Victim
	for _, a := range order {
		if eliminated[a.key] {
			continue
		}
		for _, b := range order {
			if a.key == b.key || eliminated[b.key] {
				continue
			}
			if a.c.R > EatMargin*b.c.R && Contains(a.c, b.c) {
				eliminated[b.key] = true
				gained[a.key] += b.c.R * b.c.R
				v := w.Players[b.key]
				victims = append(victims, Victim{Key: v.Key, Name: v.Name, IsBot: v.IsBot, ConnID: v.ConnID})
			}
		}
	}

	for k, g := range gained {
		p := w.Players[k]
		p.R = math.Sqrt(p.R*p.R + g)
	}
	for _, v := range victims {
		delete(w.Players, v.Key)
	}
	return victims
}
