package voice

import (
	"sync"
	"time"
)

// ─── Playback Scheduling ────────────────────────────────────────────────────

// Source is a buffer handed to a Player.
type Source interface {
	Stop()
}

// Player is the audio output. Now is the device clock; Schedule starts
// samples at the given clock position.
type Player interface {
	Now() time.Duration
	Schedule(samples []float32, rate int, at time.Duration) Source
}

type scheduled struct {
	src Source
	end time.Duration
}

// Scheduler plays decoded buffers back to back. A buffer that arrives
// after the queue drained starts immediately.
type Scheduler struct {
	mu      sync.Mutex
	player  Player
	next    time.Duration
	sources []scheduled
}

// NewScheduler wraps player.
func NewScheduler(player Player) *Scheduler {
	return &Scheduler{player: player}
}

// Enqueue schedules samples after everything already queued and returns
// the start position.
func (s *Scheduler) Enqueue(samples []float32, rate int) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.player.Now()
	s.prune(now)
	start := max(s.next, now)
	src := s.player.Schedule(samples, rate, start)
	s.next = start + Duration(len(samples), rate)
	s.sources = append(s.sources, scheduled{src: src, end: s.next})
	return start
}

// StopAll stops every buffer that has not finished and resets the queue.
func (s *Scheduler) StopAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(s.player.Now())
	n := len(s.sources)
	for _, sc := range s.sources {
		sc.src.Stop()
	}
	s.sources = s.sources[:0]
	s.next = 0
	return n
}

// Pending returns how many buffers are queued or playing.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(s.player.Now())
	return len(s.sources)
}

func (s *Scheduler) prune(now time.Duration) {
	kept := s.sources[:0]
	for _, sc := range s.sources {
		if sc.end > now {
			kept = append(kept, sc)
		}
	}
	s.sources = kept
}
