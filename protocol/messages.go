package protocol

// 入站消息类型
const (
	MsgJoinRoom    = "join_room"
	MsgPlayerInput = "player_input"
)

// 出站消息类型
const (
	MsgConnected        = "connected"
	MsgInitState        = "init_state"
	MsgPlayerJoined     = "player_joined"
	MsgPlayerLeft       = "player_left"
	MsgStateUpdate      = "state_update"
	MsgPlayerEliminated = "player_eliminated"
	MsgRoomClosed       = "room_closed"
	MsgErrorMessage     = "error_message"
)

// PlayerView 广播给客户端的玩家状态，与内部字段解耦
type PlayerView struct {
	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
	R     float64 `json:"r" msgpack:"r"`
	Color string  `json:"color" msgpack:"color"`
	Name  string  `json:"name" msgpack:"name"`
}

type FoodView struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	R float64 `json:"r" msgpack:"r"`
}

type MapView struct {
	W float64 `json:"w" msgpack:"w"`
	H float64 `json:"h" msgpack:"h"`
}

type Connected struct {
	OK bool `json:"ok" msgpack:"ok"`
}

type You struct {
	ID       string `json:"id" msgpack:"id"`
	Username string `json:"username" msgpack:"username"`
	Color    string `json:"color" msgpack:"color"`
}

// InitState 仅发给刚加入的连接，食物列表不截断
type InitState struct {
	You     You                   `json:"you" msgpack:"you"`
	Players map[string]PlayerView `json:"players" msgpack:"players"`
	Foods   []FoodView            `json:"foods" msgpack:"foods"`
	Map     MapView               `json:"map" msgpack:"map"`
	Code    string                `json:"code" msgpack:"code"`
}

// StateUpdate 每个 Tick 广播给房间
type StateUpdate struct {
	Players map[string]PlayerView `json:"players" msgpack:"players"`
	Foods   []FoodView            `json:"foods" msgpack:"foods"`
	Map     MapView               `json:"map" msgpack:"map"`
}

type PlayerJoined struct {
	ID   string `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

type PlayerLeft struct {
	Name string `json:"name" msgpack:"name"`
}

type PlayerEliminated struct {
	ID   string `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

type RoomClosed struct {
	Code string `json:"code" msgpack:"code"`
}

type ErrorMessage struct {
	Message string `json:"message" msgpack:"message"`
}
