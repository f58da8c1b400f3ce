// Package sampler decides when a synthetic signal handler should fire.
//
// A demo harness that exercises Put the way a real profiler would needs
// something to gate its synthetic sampling goroutines so they fire at a
// controllable, non-blocking cadence rather than on every loop iteration.
// It borrows the trace-position sampling approach of a signal-driven race
// detector's own sampler: an atomic counter incremented on every tick,
// selected by modulo, with zero-overhead behavior when disabled.
package sampler

import "sync/atomic"

// Config configures a Sampler's firing rate.
type Config struct {
	// Enabled determines whether sampling is active. When false, every
	// tick fires.
	Enabled bool
	// Rate fires 1 in Rate ticks when Enabled is true. 0 and 1 both mean
	// "fire on every tick".
	Rate uint64
}

// Sampler gates a cadence of synthetic samples with a lock-free counter.
type Sampler struct {
	config   Config
	tracePos atomic.Uint64
	fired    atomic.Uint64
	skipped  atomic.Uint64
}

// New returns a Sampler for config. A zero or one Rate normalizes to
// "fire on every tick".
func New(config Config) *Sampler {
	if config.Rate == 0 {
		config.Rate = 1
	}
	return &Sampler{config: config}
}

// ShouldSample reports whether the current tick should fire. It never
// blocks; its disabled path is one branch and one atomic counter increment.
//
//go:nosplit
func (s *Sampler) ShouldSample() bool {
	if !s.config.Enabled || s.config.Rate <= 1 {
		s.fired.Add(1)
		return true
	}

	pos := s.tracePos.Add(1)
	if pos%s.config.Rate == 0 {
		s.fired.Add(1)
		return true
	}
	s.skipped.Add(1)
	return false
}

// Stats reports how many ticks fired versus were skipped.
type Stats struct {
	Fired   uint64
	Skipped uint64
}

// Stats returns a snapshot of firing statistics.
func (s *Sampler) Stats() Stats {
	return Stats{Fired: s.fired.Load(), Skipped: s.skipped.Load()}
}

// EffectiveRate returns the rate actually in effect: 1 when disabled.
func (s *Sampler) EffectiveRate() uint64 {
	if !s.config.Enabled || s.config.Rate <= 1 {
		return 1
	}
	return s.config.Rate
}
