package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"blobarena/protocol"
)

const (
	sendQueueSize = 64
	writeWait     = 5 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 25 * time.Second
	maxFrameSize  = 1 << 16
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	id    string
	ws    *websocket.Conn
	codec protocol.Codec
	send  chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewClientConn(id string, ws *websocket.Conn, codec protocol.Codec) *ClientConn {
	return &ClientConn{
		id:    id,
		ws:    ws,
		codec: codec,
		send:  make(chan []byte, sendQueueSize),
		done:  make(chan struct{}),
	}
}

func (c *ClientConn) ID() string { return c.id }
func (c *ClientConn) Codec() protocol.Codec { return c.codec }

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃），不会拖慢 Tick
func (c *ClientConn) Enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close 结束写协程并关闭底层连接；可重复调用
func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	frameType := websocket.TextMessage
	if c.codec.Binary() {
		frameType = websocket.BinaryMessage
	}
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(frameType, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息并交给路由；退出时执行断开流程
func (c *ClientConn) readPump(rt *Router) {
	defer func() {
		ctx, cancel := metaContext()
		defer cancel()
		rt.Disconnect(ctx, c)
		c.Close()
	}()
	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				rt.log.Debugf("read error: conn=%s err=%v", c.id, err)
			}
			return
		}
		env, err := c.codec.Decode(payload)
		if err != nil {
			continue
		}
		ctx, cancel := metaContext()
		rt.HandleMessage(ctx, c, env)
		cancel()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 同源校验交给上游网关
		return true
	},
}

// HandleWS WebSocket 接入：/ws?user=alice&codec=json|msgpack
func (rt *Router) HandleWS(w http.ResponseWriter, r *http.Request) {
	username := rt.identity.Resolve(r)
	codec := protocol.CodecByName(r.URL.Query().Get("codec"))

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		rt.log.Warnf("upgrade error: %v", err)
		return
	}

	client := NewClientConn(uuid.NewString(), ws, codec)
	rt.Connect(client, username)

	go client.writePump()
	go client.readPump(rt)
}

var _ Conn = (*ClientConn)(nil)
