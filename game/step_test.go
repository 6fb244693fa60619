package game

import (
	"math"
	"math/rand"
	"testing"
)

func newTestWorld(players ...*Player) *World {
	w := NewWorld()
	for _, p := range players {
		w.Players[p.Key] = p
	}
	return &w
}

func TestStepMovesByIntentAndClamps(t *testing.T) {
	p := &Player{Key: "a#1", X: 100, Y: 100, R: InitialRadius, DX: 1}
	edge := &Player{Key: "b#1", X: 1, Y: MapHeight - 1, R: InitialRadius, DX: -1 / math.Sqrt2, DY: 1 / math.Sqrt2}
	w := newTestWorld(p, edge)
	Step(w, rand.New(rand.NewSource(1)))

	wantX := 100 + BaseSpeed*TickDT
	if math.Abs(p.X-wantX) > 1e-9 || p.Y != 100 {
		t.Fatalf("player at (%f,%f), want (%f,100)", p.X, p.Y, wantX)
	}
	if edge.X != 0 || edge.Y != MapHeight {
		t.Fatalf("expected clamp to (0,%f), got (%f,%f)", MapHeight, edge.X, edge.Y)
	}
}

func TestStepLargerPlayersMoveSlower(t *testing.T) {
	small := &Player{Key: "s", X: 100, Y: 100, R: InitialRadius, DX: 1}
	big := &Player{Key: "z", X: 100, Y: 2000, R: 3 * InitialRadius, DX: 1}
	w := newTestWorld(small, big)
	Step(w, rand.New(rand.NewSource(1)))
	if math.Abs((small.X-100)-3*(big.X-100)) > 1e-9 {
		t.Fatalf("speed should scale with initial/radius: small moved %f, big moved %f", small.X-100, big.X-100)
	}
}

func TestStepEatsContainedFoodAndRefills(t *testing.T) {
	p := &Player{Key: "a", X: 500, Y: 500, R: 20}
	w := newTestWorld(p)
	w.Foods = []Food{
		{X: 500, Y: 500, R: FoodRadius},
		{X: 510, Y: 500, R: FoodRadius},
		{X: 517.5, Y: 500, R: FoodRadius}, // 边缘外
	}
	res := Step(w, rand.New(rand.NewSource(7)))

	if res.FoodEaten != 2 {
		t.Fatalf("food eaten = %d, want 2", res.FoodEaten)
	}
	want := math.Sqrt(20*20 + 2*FoodRadius*FoodRadius)
	if math.Abs(p.R-want) > 1e-9 {
		t.Fatalf("radius = %f, want %f", p.R, want)
	}
	if len(w.Foods) != FoodTarget {
		t.Fatalf("food count = %d, want %d", len(w.Foods), FoodTarget)
	}
	if w.Foods[0].X != 517.5 {
		t.Fatalf("uneaten food should survive the tick, got first food %+v", w.Foods[0])
	}
}

func TestStepFoodStaysAtTargetAcrossTicks(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	w := NewWorld()
	w.RefillFood(rng)
	w.Players["big"] = &Player{Key: "big", X: MapWidth / 2, Y: MapHeight / 2, R: 600}
	for i := 0; i < 5; i++ {
		Step(&w, rng)
		if len(w.Foods) != FoodTarget {
			t.Fatalf("tick %d: food count = %d, want %d", i, len(w.Foods), FoodTarget)
		}
	}
}

func TestStepPlayerEatsPlayerWithMargin(t *testing.T) {
	a := &Player{Key: "a", Name: "alice", X: 1000, Y: 1000, R: 30, ConnID: "c-a"}
	b := &Player{Key: "b", Name: "bob", X: 1005, Y: 1000, R: 20, ConnID: "c-b"}
	w := newTestWorld(a, b)
	res := Step(w, rand.New(rand.NewSource(1)))

	if len(res.Victims) != 1 || res.Victims[0].Key != "b" || res.Victims[0].ConnID != "c-b" {
		t.Fatalf("victims = %+v, want only b", res.Victims)
	}
	if _, ok := w.Players["b"]; ok {
		t.Fatalf("victim must be removed from the world")
	}
	if math.Abs(a.R-math.Sqrt(30*30+20*20)) > 1e-9 {
		t.Fatalf("eater radius = %f, want area sum", a.R)
	}
}

func TestStepNoEatingInsideMargin(t *testing.T) {
	// 半径只大 5%，即便完全包含也不能吃
	a := &Player{Key: "a", X: 1000, Y: 1000, R: 21}
	b := &Player{Key: "b", X: 1000, Y: 1000, R: 20}
	w := newTestWorld(a, b)
	res := Step(w, rand.New(rand.NewSource(1)))
	if len(res.Victims) != 0 || len(w.Players) != 2 {
		t.Fatalf("expected no elimination, got %+v", res.Victims)
	}
}

func TestStepEliminationsUsePrePhaseRadii(t *testing.T) {
	// a 吃 b，b 本可以吃 c；b 已被淘汰后不能再吃
	a := &Player{Key: "a", X: 2000, Y: 2000, R: 100}
	b := &Player{Key: "b", X: 2000, Y: 2000, R: 50}
	c := &Player{Key: "c", X: 2000, Y: 2000, R: 10}
	w := newTestWorld(a, b, c)
	res := Step(w, rand.New(rand.NewSource(1)))

	if len(res.Victims) != 2 {
		t.Fatalf("victims = %+v, want b and c", res.Victims)
	}
	if len(w.Players) != 1 {
		t.Fatalf("expected only a to survive, have %d players", len(w.Players))
	}
	want := math.Sqrt(100*100 + 50*50 + 10*10)
	if math.Abs(a.R-want) > 1e-9 {
		t.Fatalf("a radius = %f, want %f", a.R, want)
	}
}

func TestBotChasesNearestHuman(t *testing.T) {
	bot := &Player{Key: "BOT#1", X: 100, Y: 100, R: InitialRadius * BotRadiusMult, IsBot: true}
	near := &Player{Key: "h#1", X: 100, Y: 400, R: InitialRadius}
	far := &Player{Key: "h#2", X: 3000, Y: 100, R: InitialRadius}
	w := newTestWorld(bot, near, far)
	Step(w, rand.New(rand.NewSource(1)))
	if math.Abs(bot.DX) > 1e-9 || math.Abs(bot.DY-1) > 1e-9 {
		t.Fatalf("bot intent = (%f,%f), want (0,1)", bot.DX, bot.DY)
	}
}

func TestBotScansOnlyLeadingFood(t *testing.T) {
	bot := &Player{Key: "BOT#1", X: 1000, Y: 1000, R: InitialRadius * BotRadiusMult, IsBot: true}
	w := newTestWorld(bot)
	for i := 0; i < BotFoodScan; i++ {
		w.Foods = append(w.Foods, Food{X: 1000, Y: 3000, R: FoodRadius})
	}
	// 更近的食物在前 50 个之后，不应被考虑
	w.Foods = append(w.Foods, Food{X: 1100, Y: 1000, R: FoodRadius})
	steerBot(w, bot)
	if math.Abs(bot.DX) > 1e-9 || math.Abs(bot.DY-1) > 1e-9 {
		t.Fatalf("bot intent = (%f,%f), want (0,1)", bot.DX, bot.DY)
	}
}

func TestBotCoastsWithoutTarget(t *testing.T) {
	bot := &Player{Key: "BOT#1", X: 1000, Y: 1000, R: InitialRadius, IsBot: true, DX: 0.6, DY: 0.8}
	w := newTestWorld(bot)
	steerBot(w, bot)
	if bot.DX != 0.6 || bot.DY != 0.8 {
		t.Fatalf("bot without target should keep intent, got (%f,%f)", bot.DX, bot.DY)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	w := newTestWorld(&Player{Key: "a", R: 12})
	w.Foods = []Food{{X: 1, Y: 1, R: FoodRadius}}
	c := w.Clone()
	c.Players["a"].R = 99
	c.Foods[0].X = 50
	if w.Players["a"].R != 12 || w.Foods[0].X != 1 {
		t.Fatalf("mutating clone changed original")
	}
}
