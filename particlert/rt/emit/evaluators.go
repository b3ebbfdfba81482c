package emit

import (
	"sort"

	"github.com/gekko3d/gekko-particles/particlert/rt/sim"
)

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

func clamp01(t float32) float32 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Clock carries the emitter's normalized cycle time (0..1) to curve based
// evaluators. RatePolicy advances it on every tick.
type Clock struct {
	T float32
}

func (c *Clock) at(seed float32) float32 {
	if c == nil {
		return seed
	}
	return c.T
}

// Constant always returns the same value.
type Constant float32

func (c Constant) Evaluate(float32) float32 { return float32(c) }
func (c Constant) Bounds() (float32, float32) { return float32(c), float32(c) }

// RandomRange picks uniformly between Min and Max.
type RandomRange struct {
	Min, Max float32
}

func (r RandomRange) Evaluate(seed float32) float32 { return lerp(r.Min, r.Max, seed) }
func (r RandomRange) Bounds() (float32, float32)    { return r.Min, r.Max }

type Key struct {
	Time  float32
	Value float32
}

// Curve is a piecewise linear function over [0,1]. Keys must be sorted by
// Time; use NewCurve when they might not be.
//
// With a Clock the curve is sampled at emitter time and the seed is
// ignored; without one the seed itself is the sample point.
type Curve struct {
	Keys  []Key
	Clock *Clock
}

func NewCurve(clock *Clock, keys ...Key) Curve {
	ks := append([]Key(nil), keys...)
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].Time < ks[j].Time })
	return Curve{Keys: ks, Clock: clock}
}

func (c Curve) Sample(t float32) float32 {
	n := len(c.Keys)
	switch {
	case n == 0:
		return 0
	case t <= c.Keys[0].Time:
		return c.Keys[0].Value
	case t >= c.Keys[n-1].Time:
		return c.Keys[n-1].Value
	}
	i := sort.Search(n, func(i int) bool { return c.Keys[i].Time > t })
	a, b := c.Keys[i-1], c.Keys[i]
	span := b.Time - a.Time
	if span <= 0 {
		return b.Value
	}
	return lerp(a.Value, b.Value, (t-a.Time)/span)
}

func (c Curve) Evaluate(seed float32) float32 { return c.Sample(c.Clock.at(seed)) }

// RandomCurve picks uniformly between two curves sampled at emitter time.
type RandomCurve struct {
	Min, Max Curve
	Clock    *Clock
}

func (r RandomCurve) Evaluate(seed float32) float32 {
	t := r.Clock.at(0)
	return lerp(r.Min.Sample(t), r.Max.Sample(t), seed)
}

// ColorRange picks a color between Min and Max, channels lerped together.
type ColorRange struct {
	Min, Max [4]float32
}

func (c ColorRange) Evaluate(seed float32) [4]float32 {
	var out [4]float32
	for i := range out {
		out[i] = lerp(c.Min[i], c.Max[i], seed)
	}
	return out
}

// SolidColor always returns the same color.
type SolidColor [4]float32

func (c SolidColor) Evaluate(float32) [4]float32 { return c }

type ColorKey struct {
	Time  float32
	Color [4]float32
}

// Gradient is a piecewise linear color ramp, sampled like Curve.
type Gradient struct {
	Keys  []ColorKey
	Clock *Clock
}

func (g Gradient) Sample(t float32) [4]float32 {
	n := len(g.Keys)
	switch {
	case n == 0:
		return [4]float32{1, 1, 1, 1}
	case t <= g.Keys[0].Time:
		return g.Keys[0].Color
	case t >= g.Keys[n-1].Time:
		return g.Keys[n-1].Color
	}
	i := sort.Search(n, func(i int) bool { return g.Keys[i].Time > t })
	a, b := g.Keys[i-1], g.Keys[i]
	f := float32(1)
	if span := b.Time - a.Time; span > 0 {
		f = clamp01((t - a.Time) / span)
	}
	var out [4]float32
	for c := range out {
		out[c] = lerp(a.Color[c], b.Color[c], f)
	}
	return out
}

func (g Gradient) Evaluate(seed float32) [4]float32 { return g.Sample(g.Clock.at(seed)) }

var (
	_ sim.RangeEvaluator  = Constant(0)
	_ sim.RangeEvaluator  = RandomRange{}
	_ sim.ScalarEvaluator = Curve{}
	_ sim.ScalarEvaluator = RandomCurve{}
	_ sim.ColorEvaluator  = ColorRange{}
	_ sim.ColorEvaluator  = SolidColor{}
	_ sim.ColorEvaluator  = Gradient{}
)
