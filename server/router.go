package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"blobarena/protocol"
	"blobarena/world"
)

// 发给请求者的错误提示
const (
	errLoginRequired = "login required"
	errRoomNotFound  = "room not found"
	errRoomFull      = "room full (max 2 players)"
	errAlreadyInRoom = "already in a room"
)

// metaTimeout 持久化元数据的单次操作超时
const metaTimeout = 5 * time.Second

// IdentityResolver 从外部会话层取得用户名；空字符串表示未登录
type IdentityResolver interface {
	Resolve(r *http.Request) string
}

// IdentityFunc 函数适配器
type IdentityFunc func(r *http.Request) string

func (f IdentityFunc) Resolve(r *http.Request) string { return f(r) }

// QueryIdentity 信任 ?user= 或 X-Arena-User 头（认证由上游完成）
var QueryIdentity = IdentityFunc(func(r *http.Request) string {
	if u := strings.TrimSpace(r.URL.Query().Get("user")); u != "" {
		return u
	}
	return strings.TrimSpace(r.Header.Get("X-Arena-User"))
})

// Router 连接生命周期与输入事件 → 世界存储；世界快照 → 客户端消息。
// 只持有房间码和连接 ID，从不保留玩家指针。
type Router struct {
	store    *world.Store
	groups   *groupManager
	metrics  *Metrics
	log      *zap.SugaredLogger
	identity IdentityResolver

	mu     sync.Mutex
	idents map[string]string // connID → 用户名
}

func NewRouter(store *world.Store, m *Metrics, log *zap.SugaredLogger, identity IdentityResolver) *Router {
	if identity == nil {
		identity = QueryIdentity
	}
	return &Router{
		store:    store,
		groups:   newGroupManager(),
		metrics:  m,
		log:      log,
		identity: identity,
		idents:   make(map[string]string),
	}
}

// Connect 记录连接身份（若已登录）并回复确认
func (rt *Router) Connect(c Conn, username string) {
	if username != "" {
		rt.mu.Lock()
		rt.idents[c.ID()] = username
		rt.mu.Unlock()
	}
	rt.send(c, protocol.MsgConnected, protocol.Connected{OK: true})
}

// Disconnect 清理身份与玩家，通知房间内其他人
func (rt *Router) Disconnect(ctx context.Context, c Conn) {
	rt.mu.Lock()
	username := rt.idents[c.ID()]
	delete(rt.idents, c.ID())
	rt.mu.Unlock()

	dep := rt.leave(ctx, c)
	if dep.Code != "" && !dep.Closed && username != "" {
		rt.broadcast(dep.Code, protocol.MsgPlayerLeft, protocol.PlayerLeft{Name: username}, "")
	}
	if dep.Code != "" {
		rt.log.Infof("player left: conn=%s name=%s room=%s closed=%v", c.ID(), username, dep.Code, dep.Closed)
	}
}

// leave 解除连接与房间的绑定和订阅
func (rt *Router) leave(ctx context.Context, c Conn) world.Departure {
	dep := rt.store.RemovePlayerByConnection(ctx, c.ID())
	if dep.Code == "" {
		return dep
	}
	rt.groups.unsubscribe(dep.Code, c.ID())
	if dep.Closed {
		// 剩下的只可能是观战者，房间已不存在
		frames := newEncodedFrames(protocol.MsgRoomClosed, protocol.RoomClosed{Code: dep.Code})
		for _, other := range rt.groups.drop(dep.Code) {
			rt.deliver(other, frames)
		}
	}
	return dep
}

// HandleMessage 分发一条入站消息，未知类型忽略
func (rt *Router) HandleMessage(ctx context.Context, c Conn, env protocol.Envelope) {
	switch env.Type {
	case protocol.MsgJoinRoom:
		rt.Join(ctx, c, env.String("code"))
	case protocol.MsgPlayerInput:
		rt.Input(c, env)
	}
}

// Join 加入房间：校验 → AddPlayer → 发送完整初始快照 → 订阅 → 通知他人
func (rt *Router) Join(ctx context.Context, c Conn, code string) {
	rt.mu.Lock()
	username := rt.idents[c.ID()]
	rt.mu.Unlock()
	if username == "" {
		rt.reject(c, errLoginRequired)
		return
	}
	code = world.NormalizeCode(code)
	if code == "" {
		rt.reject(c, errRoomNotFound)
		return
	}

	// 观战者换房间：先释放旧绑定
	if bound, active, ok := rt.store.Binding(c.ID()); ok && !active && bound != code {
		if dep := rt.leave(ctx, c); !dep.Closed {
			rt.broadcast(dep.Code, protocol.MsgPlayerLeft, protocol.PlayerLeft{Name: username}, "")
		}
	}

	if err := rt.store.LoadRoom(ctx, code); err != nil {
		if !errors.Is(err, world.ErrRoomNotFound) {
			rt.log.Errorf("load room failed: code=%s err=%v", code, err)
		}
		rt.reject(c, errRoomNotFound)
		return
	}

	key, err := rt.store.AddPlayer(username, c.ID(), code)
	switch {
	case errors.Is(err, world.ErrRoomFull):
		rt.reject(c, errRoomFull)
		return
	case errors.Is(err, world.ErrAlreadyInRoom):
		rt.reject(c, errAlreadyInRoom)
		return
	case err != nil:
		rt.reject(c, errRoomNotFound)
		return
	}

	view, err := rt.store.Snapshot(code, true)
	if err != nil {
		// 加入后房间立刻被管理员删除
		rt.reject(c, errRoomNotFound)
		return
	}
	me, _ := view.Player(key)
	// 先投递 init_state 再订阅，保证它是该连接收到的第一份房间状态
	rt.send(c, protocol.MsgInitState, initState(view, protocol.You{ID: key, Username: username, Color: me.Color}))
	rt.groups.subscribe(code, c)
	if !rt.store.Exists(code) {
		rt.groups.unsubscribe(code, c.ID())
		rt.send(c, protocol.MsgRoomClosed, protocol.RoomClosed{Code: code})
		return
	}
	rt.broadcast(code, protocol.MsgPlayerJoined, protocol.PlayerJoined{ID: key, Name: username}, c.ID())
	rt.log.Infof("player joined: conn=%s key=%s room=%s", c.ID(), key, code)
}

// Input 归一化后覆盖移动意图；没有存活玩家时忽略
func (rt *Router) Input(c Conn, env protocol.Envelope) {
	dx, dy := parseIntent(env)
	if rt.store.SetPlayerIntent(c.ID(), dx, dy) {
		rt.metrics.IncInputAccepted()
		return
	}
	rt.metrics.IncInputIgnored()
}

// PublishTick 广播淘汰事件和本 Tick 的状态快照
func (rt *Router) PublishTick(t world.Tick) {
	for _, v := range t.Victims {
		rt.broadcast(t.Code, protocol.MsgPlayerEliminated, protocol.PlayerEliminated{ID: v.Key, Name: v.Name}, "")
		rt.log.Infof("player eliminated: room=%s key=%s bot=%v", t.Code, v.Key, v.IsBot)
	}
	rt.broadcast(t.Code, protocol.MsgStateUpdate, stateUpdate(t.View), "")
}

// CloseRoom 管理员删除房间：通知订阅者并删除内存与元数据
func (rt *Router) CloseRoom(ctx context.Context, code string) bool {
	code = world.NormalizeCode(code)
	live := rt.store.DeleteRoom(ctx, code)
	frames := newEncodedFrames(protocol.MsgRoomClosed, protocol.RoomClosed{Code: code})
	for _, c := range rt.groups.drop(code) {
		rt.deliver(c, frames)
	}
	rt.log.Infof("room deleted by admin: code=%s live=%v", code, live)
	return live
}

func (rt *Router) reject(c Conn, msg string) {
	rt.metrics.IncJoinRejected()
	rt.send(c, protocol.MsgErrorMessage, protocol.ErrorMessage{Message: msg})
}

func (rt *Router) send(c Conn, msgType string, payload any) {
	rt.deliver(c, newEncodedFrames(msgType, payload))
}

// broadcast 发给房间所有订阅者，exceptID 非空时跳过该连接
func (rt *Router) broadcast(code, msgType string, payload any, exceptID string) {
	frames := newEncodedFrames(msgType, payload)
	for _, c := range rt.groups.members(code) {
		if c.ID() == exceptID {
			continue
		}
		rt.deliver(c, frames)
	}
}

func (rt *Router) deliver(c Conn, frames *encodedFrames) {
	b, err := frames.forCodec(c.Codec())
	if err != nil {
		rt.log.Errorf("encode %s failed: %v", frames.msgType, err)
		return
	}
	if !c.Enqueue(b) {
		rt.metrics.IncSendDropped()
	}
}

func metaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), metaTimeout)
}
