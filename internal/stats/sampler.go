package stats

import "time"

// SampleInterval is the minimum wall-clock gap between successive
// throughput samples. Callers that poll faster than this get no sample.
const SampleInterval = 100 * time.Millisecond

// Sample is one throughput observation.
type Sample struct {
	Instant float64 // bytes/sec since the previous sample
	Average float64 // bytes/sec since the sampler started
	Total   int64   // bytes accumulated so far
	Elapsed time.Duration
}

// Sampler tracks byte throughput for a single transfer. It takes the
// clock as an explicit argument so cadence behavior is deterministic
// under test. Not safe for concurrent use; each transfer owns its own.
type Sampler struct {
	start      time.Time
	lastSample time.Time
	lastTotal  int64
	total      int64
}

func NewSampler(now time.Time) *Sampler {
	return &Sampler{start: now, lastSample: now}
}

// Add records n more bytes transferred.
func (s *Sampler) Add(n int64) {
	s.total += n
}

// Sample returns a throughput observation if at least SampleInterval has
// passed since the last one. The cadence window resets on success.
func (s *Sampler) Sample(now time.Time) (Sample, bool) {
	since := now.Sub(s.lastSample)
	if since < SampleInterval {
		return Sample{}, false
	}

	sm := Sample{
		Instant: float64(s.total-s.lastTotal) / since.Seconds(),
		Average: s.Average(now),
		Total:   s.total,
		Elapsed: now.Sub(s.start),
	}
	s.lastSample = now
	s.lastTotal = s.total
	return sm, true
}

// Average returns mean bytes/sec over the sampler's lifetime.
func (s *Sampler) Average(now time.Time) float64 {
	elapsed := now.Sub(s.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.total) / elapsed
}

// Elapsed returns time since the sampler started.
func (s *Sampler) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.start)
}
