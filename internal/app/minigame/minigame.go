// Package minigame holds the two study games as explicit state machines:
// the quiz dungeon and the timed matching bomb. Games keep their own
// transient state and pay out through a Rewarder at scoring checkpoints.
package minigame

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// Rewarder receives every payout a game produces.
type Rewarder interface {
	Reward(ctx context.Context, g domain.Grant)
}

// RewardFunc adapts a function to Rewarder.
type RewardFunc func(ctx context.Context, g domain.Grant)

// Reward calls f.
func (f RewardFunc) Reward(ctx context.Context, g domain.Grant) { f(ctx, g) }

// Shared states and events.
const (
	StateLoading = "loading"
	StateAborted = "aborted"

	eventReady = "ready"
	eventAbort = "abort"
)

// fire runs an event, treating a no-op transition as success.
func fire(ctx context.Context, m *fsm.FSM, event string) error {
	err := m.Event(ctx, event)
	var noop fsm.NoTransitionError
	if err != nil && !errors.As(err, &noop) {
		return err
	}
	return nil
}

// chance rolls a probability against rng.
func chance(rng domain.RandomSource, p float64) bool {
	return rng.Float64() < p
}

// shuffle returns a random permutation of 0..n-1.
func shuffle(rng domain.RandomSource, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := int(rng.Float64() * float64(i+1))
		if j > i {
			j = i
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// credit forwards a non-empty grant.
func credit(ctx context.Context, r Rewarder, g domain.Grant) {
	if r != nil && !g.IsZero() {
		r.Reward(ctx, g)
	}
}
