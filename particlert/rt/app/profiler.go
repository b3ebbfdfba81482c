package app

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is how many frames a Series keeps.
const DefaultWindow = 240

// Series is a fixed window of per-frame samples.
type Series struct {
	values []float64
	next   int
	full   bool
}

func NewSeries(window int) *Series {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Series{values: make([]float64, window)}
}

func (s *Series) Add(v float64) {
	s.values[s.next] = v
	s.next++
	if s.next == len(s.values) {
		s.next = 0
		s.full = true
	}
}

func (s *Series) Samples() []float64 {
	if s.full {
		return s.values
	}
	return s.values[:s.next]
}

func (s *Series) Len() int { return len(s.Samples()) }

// Summary describes a Series window.
type Summary struct {
	Mean, StdDev, P95, Max float64
	N                      int
}

func (s *Series) Summary() Summary {
	xs := s.Samples()
	if len(xs) == 0 {
		return Summary{}
	}
	sum := Summary{N: len(xs)}
	if len(xs) == 1 {
		sum.Mean, sum.P95, sum.Max = xs[0], xs[0], xs[0]
		return sum
	}
	sum.Mean, sum.StdDev = stat.MeanStdDev(xs, nil)

	sorted := slices.Clone(xs)
	sort.Float64s(sorted)
	sum.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	sum.Max = sorted[len(sorted)-1]
	return sum
}

// Profiler times named scopes and keeps per-frame counters. Counters that
// are Sampled also feed a Series so StatsString can report trends.
type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Series     map[string]*Series
	Order      []string
	Window     int
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		Series:     make(map[string]*Series),
		Order:      make([]string, 0),
		Window:     DefaultWindow,
	}
}

func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = time.Now()
	if !slices.Contains(p.Order, name) {
		p.Order = append(p.Order, name)
	}
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.StartTimes[name]; ok {
		d := time.Since(start)
		p.Scopes[name] = d
		p.sample(name+".ms", float64(d.Microseconds())/1000.0)
	}
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

func (p *Profiler) AddCount(name string, delta int) {
	p.Counts[name] += delta
}

// Sample sets a counter and records it in the counter's Series.
func (p *Profiler) Sample(name string, value int) {
	p.Counts[name] = value
	p.sample(name, float64(value))
}

func (p *Profiler) sample(name string, v float64) {
	s, ok := p.Series[name]
	if !ok {
		s = NewSeries(p.Window)
		p.Series[name] = s
	}
	s.Add(v)
}

func (p *Profiler) Summary(name string) Summary {
	if s, ok := p.Series[name]; ok {
		return s.Summary()
	}
	return Summary{}
}

// Reset clears per-frame timings and counters, keeping series history.
func (p *Profiler) Reset() {
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
	for k := range p.Counts {
		p.Counts[k] = 0
	}
}

func (p *Profiler) StatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf("  %-18s: %.2f ms\n", name, ms))
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %-18s: %d\n", k, p.Counts[k]))
	}

	if len(p.Series) > 0 {
		sb.WriteString("\nTrends:\n")
		names := make([]string, 0, len(p.Series))
		for k := range p.Series {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			s := p.Series[k].Summary()
			sb.WriteString(fmt.Sprintf("  %-18s: mean %.1f sd %.1f p95 %.1f max %.1f (n=%d)\n", k, s.Mean, s.StdDev, s.P95, s.Max, s.N))
		}
	}

	return sb.String()
}
