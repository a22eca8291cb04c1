package engine

import (
	"context"
	"time"
)

// WallClock is the production Clock: Now is wall-clock seconds since the
// Unix epoch, Sleep is a context-aware time.Sleep.
type WallClock struct{}

func (WallClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

func (WallClock) Sleep(ctx context.Context, seconds uint64) {
	timer := time.NewTimer(time.Duration(seconds) * time.Second)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

var _ Clock = WallClock{}
