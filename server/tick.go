package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"blobarena/game"
	"blobarena/world"
)

// Stepper 按房间推进世界，由 world.Store 实现
type Stepper interface {
	RoomCodes() []string
	StepRoom(code string) (world.Tick, error)
}

// Publisher 接收每个房间推进后的结果并广播
type Publisher interface {
	PublishTick(t world.Tick)
}

// Clock 固定频率驱动所有房间（20 TPS，单协程）
type Clock struct {
	stepper Stepper
	pub     Publisher
	metrics *Metrics
	log     *zap.SugaredLogger
	period  time.Duration
}

func NewClock(st Stepper, pub Publisher, m *Metrics, log *zap.SugaredLogger) *Clock {
	return &Clock{stepper: st, pub: pub, metrics: m, log: log, period: game.TickInterval}
}

// Run 循环直到 ctx 取消（进程退出）。
// 一轮耗时超过周期时不休眠，也不补跑。
func (c *Clock) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C
	for {
		start := time.Now()
		c.Pass()
		elapsed := time.Since(start)
		c.metrics.AddTick(elapsed)

		wait := remaining(c.period, elapsed)
		if wait == 0 {
			c.metrics.IncOverrun()
			c.log.Debugf("tick pass overran: elapsed=%s period=%s", elapsed, c.period)
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// Pass 核心循环：对当前所有房间各推进一次
func (c *Clock) Pass() {
	for _, code := range c.stepper.RoomCodes() {
		err := c.supervise(code)
		switch {
		case err == nil:
		case errors.Is(err, world.ErrRoomNotFound):
			// 本轮开始后房间已被销毁
		default:
			c.metrics.IncStepFault()
			c.log.Errorf("room step failed, skipped this tick: code=%s err=%v", code, err)
		}
	}
}

// supervise 单房间的错误边界：推进 + 广播，panic 转为 error
func (c *Clock) supervise(code string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	t, err := c.stepper.StepRoom(code)
	if err != nil {
		return err
	}
	c.metrics.AddEliminations(len(t.Victims))
	c.metrics.AddFoodEaten(t.FoodEaten)
	c.pub.PublishTick(t)
	return nil
}

// remaining 本轮剩余的休眠时间，不小于 0
func remaining(period, elapsed time.Duration) time.Duration {
	if elapsed >= period {
		return 0
	}
	return period - elapsed
}
