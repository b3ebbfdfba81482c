package emit

import (
	"math"

	"github.com/gekko3d/gekko-particles/particlert/rt/sim"
)

// Burst emits Count particles at Time seconds into each emitter cycle,
// repeated Cycles times (at least once) every Interval seconds.
type Burst struct {
	Time     float32
	Count    int
	Cycles   int
	Interval float32
}

func (b Burst) cycles() int {
	if b.Cycles < 1 || b.Interval <= 0 {
		return 1
	}
	return b.Cycles
}

// RatePolicy emits Rate particles per second plus scheduled bursts over an
// emitter cycle of Duration seconds. Rate is sampled with the normalized
// cycle time as seed, so a Curve without a Clock gives rate over lifetime.
type RatePolicy struct {
	Rate       sim.ScalarEvaluator
	Bursts     []Burst
	Duration   float32
	Loop       bool
	StartDelay float32

	// Clock is advanced to the normalized cycle time before emitting.
	Clock *Clock

	playing  bool
	finished bool
	acc      float32
	// emitter-local time the policy has consumed so far
	elapsed float32
}

func NewRatePolicy(rate sim.ScalarEvaluator, duration float32, loop bool) *RatePolicy {
	return &RatePolicy{
		Rate:     rate,
		Duration: duration,
		Loop:     loop,
		Clock:    &Clock{},
		playing:  true,
	}
}

func (p *RatePolicy) Play() {
	if p.finished {
		p.finished = false
		p.elapsed = 0
		p.acc = 0
	}
	p.playing = true
}

// Pause stops emission and freezes emitter time.
func (p *RatePolicy) Pause() { p.playing = false }

// Stop ends the current cycle; Play restarts from the beginning.
func (p *RatePolicy) Stop() {
	p.playing = false
	p.finished = true
}

func (p *RatePolicy) Playing() bool { return p.playing }

// Finished reports whether a non-looping emitter ran past its duration or
// was stopped.
func (p *RatePolicy) Finished() bool { return p.finished }

// Elapsed is emitter-local time, excluding paused spans.
func (p *RatePolicy) Elapsed() float32 { return p.elapsed }

func (p *RatePolicy) Tick(prev, curr float32, e sim.Emitter) {
	if !p.playing || p.finished || curr <= prev {
		return
	}
	a := p.elapsed
	b := a + (curr - prev)
	p.elapsed = b

	a -= p.StartDelay
	b -= p.StartDelay
	if b <= 0 {
		return
	}
	a = max(a, 0)

	if !p.Loop && p.Duration > 0 {
		if a >= p.Duration {
			p.finished = true
			p.playing = false
			return
		}
		b = min(b, p.Duration)
	}

	t := p.normalized(b)
	if p.Clock != nil {
		p.Clock.T = t
	}

	count := p.bursts(a, b)
	if p.Rate != nil {
		p.acc += max(0, p.Rate.Evaluate(p.normalized((a+b)/2))) * (b - a)
		whole := float32(math.Floor(float64(p.acc)))
		p.acc -= whole
		count += int(whole)
	}
	if count > 0 {
		e.Emit(count)
	}

	if !p.Loop && p.Duration > 0 && b >= p.Duration {
		p.finished = true
		p.playing = false
	}
}

func (p *RatePolicy) normalized(t float32) float32 {
	if p.Duration <= 0 {
		return 0
	}
	if p.Loop {
		t = float32(math.Mod(float64(t), float64(p.Duration)))
	}
	return clamp01(t / p.Duration)
}

// bursts counts burst particles scheduled in [a, b).
func (p *RatePolicy) bursts(a, b float32) int {
	if len(p.Bursts) == 0 {
		return 0
	}
	firstCycle, lastCycle := 0, 0
	if p.Loop && p.Duration > 0 {
		firstCycle = int(a / p.Duration)
		lastCycle = int(b / p.Duration)
	}

	total := 0
	for k := firstCycle; k <= lastCycle; k++ {
		base := float32(k) * p.Duration
		for _, burst := range p.Bursts {
			for i := 0; i < burst.cycles(); i++ {
				at := burst.Time + float32(i)*burst.Interval
				if p.Loop && p.Duration > 0 && at >= p.Duration {
					break
				}
				at += base
				if at >= a && at < b {
					total += max(burst.Count, 0)
				}
			}
		}
	}
	return total
}

var _ sim.EmissionPolicy = (*RatePolicy)(nil)
