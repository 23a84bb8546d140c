package poster

import (
	"context"
	"math/rand/v2"
	"time"
)

// RandomDuration returns a uniformly random duration in [lo, hi]
func RandomDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Typist types text one rune at a time with a random pause between keystrokes
type Typist struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	Sleep    func(context.Context, time.Duration) error
}

// Type calls key for every rune of text, pausing between keystrokes
func (t Typist) Type(ctx context.Context, text string, key func(ctx context.Context, r string) error) error {
	sleep := t.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	for _, r := range text {
		if err := key(ctx, string(r)); err != nil {
			return err
		}
		if err := sleep(ctx, RandomDuration(t.MinDelay, t.MaxDelay)); err != nil {
			return err
		}
	}
	return nil
}
