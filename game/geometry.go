package game

import "math"

// Circle 圆：位置 + 半径
type Circle struct {
	X, Y, R float64
}

// Contains 判断 a 是否完全包含 b。
// 要求 a 严格大于 b，且圆心距离 <= a.R - b.R。
func Contains(a, b Circle) bool {
	if a.R <= b.R {
		return false
	}
	dx := a.X - b.X
	dy := a.Y - b.Y
	gap := a.R - b.R
	return dx*dx+dy*dy <= gap*gap
}

// Normalize 归一化为单位向量；零向量原样返回
func Normalize(dx, dy float64) (float64, float64) {
	mag := math.Hypot(dx, dy)
	if mag == 0 || math.IsNaN(mag) || math.IsInf(mag, 0) {
		return 0, 0
	}
	return dx / mag, dy / mag
}

// GrowByArea 面积相加后的新半径：sqrt((πr² + πo²)/π)
func GrowByArea(r, other float64) float64 {
	return math.Sqrt(r*r + other*other)
}

// Speed 体积越大速度越慢
func Speed(radius float64) float64 {
	return BaseSpeed * InitialRadius / math.Max(radius, InitialRadius)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func distSq(ax, ay, bx, by float64) float64 {
	dx := bx - ax
	dy := by - ay
	return dx*dx + dy*dy
}
