package server

import (
	"sync/atomic"
	"time"
)

// Metrics 记录运行期的关键指标（用于监控与调试）
type Metrics struct {
	TickCount      int64 // 时钟推进的轮数
	TotalTickNs    int64 // 累计耗时（纳秒）
	Overruns       int64 // 超出 Tick 周期、未休眠的轮数
	StepFaults     int64 // 单房间推进失败次数
	Eliminations   int64
	FoodEaten      int64
	InputsAccepted int64
	InputsIgnored  int64 // 没有存活玩家的输入
	JoinsRejected  int64
	SendsDropped   int64 // 发送队列满被丢弃的消息
}

func (m *Metrics) IncOverrun() { atomic.AddInt64(&m.Overruns, 1) }
func (m *Metrics) IncStepFault() { atomic.AddInt64(&m.StepFaults, 1) }
func (m *Metrics) AddEliminations(n int) { atomic.AddInt64(&m.Eliminations, int64(n)) }
func (m *Metrics) AddFoodEaten(n int) { atomic.AddInt64(&m.FoodEaten, int64(n)) }
func (m *Metrics) IncInputAccepted() { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *Metrics) IncInputIgnored() { atomic.AddInt64(&m.InputsIgnored, 1) }
func (m *Metrics) IncJoinRejected() { atomic.AddInt64(&m.JoinsRejected, 1) }
func (m *Metrics) IncSendDropped() { atomic.AddInt64(&m.SendsDropped, 1) }

func (m *Metrics) AddTick(d time.Duration) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, d.Nanoseconds())
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":      tick,
		"avg_tick_ms":     avgMs,
		"overruns":        atomic.LoadInt64(&m.Overruns),
		"step_faults":     atomic.LoadInt64(&m.StepFaults),
		"eliminations":    atomic.LoadInt64(&m.Eliminations),
		"food_eaten":      atomic.LoadInt64(&m.FoodEaten),
		"inputs_accepted": atomic.LoadInt64(&m.InputsAccepted),
		"inputs_ignored":  atomic.LoadInt64(&m.InputsIgnored),
		"joins_rejected":  atomic.LoadInt64(&m.JoinsRejected),
		"sends_dropped":   atomic.LoadInt64(&m.SendsDropped),
	}
}
