package server

import (
	"blobarena/game"
	"blobarena/protocol"
	"blobarena/world"
)

var mapView = protocol.MapView{W: game.MapWidth, H: game.MapHeight}

// playerViews 显式转换为广播结构，内部字段名不会泄漏到协议上
func playerViews(players []game.Player) map[string]protocol.PlayerView {
	out := make(map[string]protocol.PlayerView, len(players))
	for _, p := range players {
		out[p.Key] = protocol.PlayerView{X: p.X, Y: p.Y, R: p.R, Color: p.Color, Name: p.Name}
	}
	return out
}

func foodViews(foods []game.Food) []protocol.FoodView {
	out := make([]protocol.FoodView, len(foods))
	for i, f := range foods {
		out[i] = protocol.FoodView{X: f.X, Y: f.Y, R: f.R}
	}
	return out
}

// stateUpdate 每 Tick 的广播快照（食物已按上限截断）
func stateUpdate(v world.View) protocol.StateUpdate {
	return protocol.StateUpdate{
		Players: playerViews(v.Players),
		Foods:   foodViews(v.Foods),
		Map:     mapView,
	}
}

// initState 加入时的完整快照，附带请求者自己的身份
func initState(v world.View, you protocol.You) protocol.InitState {
	return protocol.InitState{
		You:     you,
		Players: playerViews(v.Players),
		Foods:   foodViews(v.Foods),
		Map:     mapView,
		Code:    v.Code,
	}
}
