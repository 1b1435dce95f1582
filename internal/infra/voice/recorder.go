package voice

import (
	"io"
	"sync"
	"time"
)

// Recorder is a Player that captures what would have been heard instead of
// driving a sound card. Its clock is wall time since creation; stopping a
// segment cuts it at the current clock position.
type Recorder struct {
	mu       sync.Mutex
	start    time.Time
	now      func() time.Time
	segments []*segment
}

type segment struct {
	rec     *Recorder
	samples []float32
	rate    int
	at      time.Duration
	cut     time.Duration // -1 while playing to the end
}

// NewRecorder creates a recorder. now may be nil.
func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{start: now(), now: now}
}

func (r *Recorder) Now() time.Duration {
	return r.now().Sub(r.start)
}

func (r *Recorder) Schedule(samples []float32, rate int, at time.Duration) Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	seg := &segment{rec: r, samples: samples, rate: rate, at: at, cut: -1}
	r.segments = append(r.segments, seg)
	return seg
}

func (s *segment) Stop() {
	now := s.rec.Now()
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()
	if s.cut < 0 {
		s.cut = max(0, now-s.at)
	}
}

// Samples returns the audible audio in schedule order.
func (r *Recorder) Samples() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []float32
	for _, seg := range r.segments {
		n := len(seg.samples)
		if seg.cut >= 0 {
			n = min(n, int(seg.cut*time.Duration(seg.rate)/time.Second))
		}
		out = append(out, seg.samples[:n]...)
	}
	return out
}

// WriteTo writes the audible audio as raw PCM16 at OutputRate.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(EncodePCM16(r.Samples()))
	return int64(n), err
}
