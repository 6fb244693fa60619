package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Envelope 入站消息：类型 + 键值载荷
type Envelope struct {
	Type    string         `json:"type" msgpack:"type"`
	Payload map[string]any `json:"payload" msgpack:"payload"`
}

type outbound struct {
	Type    string `json:"type" msgpack:"type"`
	Payload any    `json:"payload" msgpack:"payload"`
}

// Codec 连接使用的编解码方式
type Codec interface {
	Name() string
	Binary() bool // true 时以二进制帧发送
	Encode(t string, payload any) ([]byte, error)
	Decode(b []byte) (Envelope, error)
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// CodecByName 未知名称回退到 JSON
func CodecByName(name string) Codec {
	if strings.EqualFold(name, Msgpack.Name()) {
		return Msgpack
	}
	return JSON
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("encode: empty message type")
	}
	return json.Marshal(outbound{Type: t, Payload: payload})
}

func (jsonCodec) Decode(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("decode: empty frame")
	}
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }
func (msgpackCodec) Binary() bool { return true }

func (msgpackCodec) Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("encode: empty message type")
	}
	return msgpack.Marshal(&outbound{Type: t, Payload: payload})
}

func (msgpackCodec) Decode(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("decode: empty frame")
	}
	var e Envelope
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// String 读取字符串字段，缺失时为空
func (e Envelope) String(key string) string {
	switch v := e.Payload[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Float 读取数值字段；缺失、格式错误或非有限值一律为 0
func (e Envelope) Float(key string) float64 {
	var f float64
	switch v := e.Payload[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
