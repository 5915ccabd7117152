// Package dupguard suppresses repeated creation requests from the same owner
// inside a short window by handing back the resource created most recently.
//
// It is a best-effort heuristic for naive retrying clients, not an
// idempotency-key mechanism: two distinct intentional creations inside the
// window collapse into one, and nothing is deduplicated after the window.
package dupguard

import (
	"context"
	"time"
)

const DefaultWindow = 2 * time.Minute

// FindRecentFunc lists an owner's resources created at or after since.
type FindRecentFunc[T any] func(ctx context.Context, ownerID string, since time.Time) ([]T, error)

type Guard struct {
	window time.Duration
	now    func() time.Time
}

func New(window time.Duration) Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	return Guard{window: window, now: time.Now}
}

func (g Guard) WithClock(now func() time.Time) Guard {
	g.now = now
	return g
}

func (g Guard) Window() time.Duration {
	return g.window
}

// Since is the lower bound of the lookback window.
func (g Guard) Since() time.Time {
	return g.now().Add(-g.window)
}

// Suppress returns the most recently created resource for ownerID inside the
// window, and true, when one exists. Callers treat that as a successful
// creation of the returned resource.
func Suppress[T any](ctx context.Context, g Guard, ownerID string, find FindRecentFunc[T], createdAt func(T) time.Time) (T, bool, error) {
	var zero T
	recent, err := find(ctx, ownerID, g.Since())
	if err != nil {
		return zero, false, err
	}
	if len(recent) == 0 {
		return zero, false, nil
	}
	latest := recent[0]
	for _, item := range recent[1:] {
		if createdAt(item).After(createdAt(latest)) {
			latest = item
		}
	}
	return latest, true, nil
}
