package server

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"blobarena/world"
)

// fakeStepper 按房间码返回预设结果：panic、普通错误或房间已销毁
type fakeStepper struct {
	codes   []string
	panics  string
	fails   string
	gone    string
	delay   time.Duration
	stepped int64
}

func (f *fakeStepper) RoomCodes() []string { return f.codes }

func (f *fakeStepper) StepRoom(code string) (world.Tick, error) {
	atomic.AddInt64(&f.stepped, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	switch code {
	case f.panics:
		panic("corrupt room state")
	case f.fails:
		return world.Tick{}, errors.New("step failed")
	case f.gone:
		return world.Tick{}, world.ErrRoomNotFound
	}
	return world.Tick{Code: code, FoodEaten: 1}, nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	codes []string
}

func (p *recordingPublisher) PublishTick(t world.Tick) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes = append(p.codes, t.Code)
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]string(nil), p.codes...)
	sort.Strings(out)
	return out
}

func TestPassIsolatesFailingRooms(t *testing.T) {
	st := &fakeStepper{
		codes:  []string{"AAAAAA", "PANICS", "FAILED", "GONE00", "BBBBBB"},
		panics: "PANICS",
		fails:  "FAILED",
		gone:   "GONE00",
	}
	pub := &recordingPublisher{}
	m := &Metrics{}
	clock := NewClock(st, pub, m, zap.NewNop().Sugar())

	clock.Pass()

	got := pub.published()
	if len(got) != 2 || got[0] != "AAAAAA" || got[1] != "BBBBBB" {
		t.Fatalf("published %v, want healthy rooms only", got)
	}
	// 已销毁的房间不算故障
	if m.StepFaults != 2 {
		t.Fatalf("step faults = %d, want 2", m.StepFaults)
	}
	if m.FoodEaten != 2 {
		t.Fatalf("food eaten = %d, want 2", m.FoodEaten)
	}

	// 故障不影响下一轮
	clock.Pass()
	if got := pub.published(); len(got) != 4 {
		t.Fatalf("second pass published %v", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	st := &fakeStepper{codes: []string{"AAAAAA"}}
	clock := NewClock(st, &recordingPublisher{}, &Metrics{}, zap.NewNop().Sugar())
	clock.period = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		clock.Run(ctx)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	n := atomic.LoadInt64(&st.stepped)
	if n < 2 || n > 12 {
		t.Fatalf("stepped %d times in ~10 periods", n)
	}
}

func TestRunDoesNotCatchUpAfterOverrun(t *testing.T) {
	// 每轮耗时是周期的两倍
	st := &fakeStepper{codes: []string{"AAAAAA"}, delay: 20 * time.Millisecond}
	m := &Metrics{}
	clock := NewClock(st, &recordingPublisher{}, m, zap.NewNop().Sugar())
	clock.period = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		clock.Run(ctx)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	n := atomic.LoadInt64(&st.stepped)
	if n > 7 {
		t.Fatalf("stepped %d times; overrun passes must not be made up", n)
	}
	if atomic.LoadInt64(&m.Overruns) == 0 {
		t.Fatalf("expected overruns to be recorded")
	}
}

func TestRemaining(t *testing.T) {
	period := 50 * time.Millisecond
	cases := []struct {
		elapsed time.Duration
		want    time.Duration
	}{
		{0, period},
		{10 * time.Millisecond, 40 * time.Millisecond},
		{period, 0},
		{80 * time.Millisecond, 0},
	}
	for _, tc := range cases {
		if got := remaining(period, tc.elapsed); got != tc.want {
			t.Errorf("remaining(%s) = %s, want %s", tc.elapsed, got, tc.want)
		}
	}
}
