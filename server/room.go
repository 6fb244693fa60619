package server

import (
	"blobarena/protocol"
)

// Conn 路由层看到的连接：只负责非阻塞投递
type Conn interface {
	ID() string
	Codec() protocol.Codec
	Enqueue(b []byte) bool // 队列满时丢弃并返回 false
}

// roomGroup 订阅同一房间广播的连接集合
type roomGroup struct {
	code  string
	conns map[string]Conn
}

func newRoomGroup(code string) *roomGroup {
	return &roomGroup{code: code, conns: make(map[string]Conn)}
}

// encodedFrames 同一条消息按编解码方式各编码一次
type encodedFrames struct {
	msgType string
	payload any
	frames  map[string][]byte
}

func newEncodedFrames(msgType string, payload any) *encodedFrames {
	return &encodedFrames{msgType: msgType, payload: payload, frames: make(map[string][]byte, 2)}
}

func (e *encodedFrames) forCodec(c protocol.Codec) ([]byte, error) {
	if b, ok := e.frames[c.Name()]; ok {
		return b, nil
	}
	b, err := c.Encode(e.msgType, e.payload)
	if err != nil {
		return nil, err
	}
	e.frames[c.Name()] = b
	return b, nil
}
