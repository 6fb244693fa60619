package server

import (
	"blobarena/game"
	"blobarena/protocol"
)

// parseIntent 解析客户端输入的方向（意图），只保留方向不保留长度：
// 客户端给出的幅度不能直接放大速度。
// 示例：{"type":"player_input","payload":{"dx":3,"dy":4}} → (0.6, 0.8)
func parseIntent(env protocol.Envelope) (float64, float64) {
	return game.Normalize(env.Float("dx"), env.Float("dy"))
}
