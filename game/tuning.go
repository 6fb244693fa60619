package game

import "time"

// 世界与玩法常量（服务端权威）
const (
	MapWidth  = 4000.0
	MapHeight = 4000.0

	InitialRadius = 12.0
	BotRadiusMult = 1.2
	BotColor      = "#ff6b6b"
	BotName       = "BOT"

	FoodTarget = 500
	FoodRadius = 3.0

	BaseSpeed = 260.0 // 半径为 InitialRadius 时的速度（像素/秒）

	TicksPerSecond = 20
	TickDT         = 1.0 / TicksPerSecond

	EatMargin    = 1.1 // 玩家吞噬玩家需要的半径倍数
	BotFoodScan  = 50  // 机器人只扫描前 N 个食物
	SnapshotFood = 200 // 广播快照中食物的上限（带宽策略）
	MaxPlayers   = 2
)

// TickInterval 每个 Tick 的时长（50ms）
const TickInterval = time.Second / TicksPerSecond
