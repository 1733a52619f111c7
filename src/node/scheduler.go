package node

import (
	"context"
	"math/rand"
	"runtime"
	"time"
)

type timerFactory func(time.Duration) <-chan time.Time

// WakeupScheduler models the idle computation of a sleeping node. Each Tick
// adds a random number of flops to the work done; once the work reaches the
// budget drawn at construction, the node should wake up on its own.
type WakeupScheduler struct {
	timerFactory timerFactory
	rnd          *rand.Rand
	budget       int
	work         int
	tickMin      int
	tickMax      int
	unit         time.Duration
}

// NewWakeupScheduler draws a budget from rnd. The same rnd is used for ticks,
// so a seeded rnd makes the schedule reproducible.
func NewWakeupScheduler(conf *Config, rnd *rand.Rand) *WakeupScheduler {
	return &WakeupScheduler{
		timerFactory: time.After,
		rnd:          rnd,
		budget:       between(rnd, conf.BudgetMin, conf.BudgetMax),
		tickMin:      conf.TickMin,
		tickMax:      conf.TickMax,
		unit:         conf.IdleUnit,
	}
}

// Budget ...
func (s *WakeupScheduler) Budget() int {
	return s.budget
}

// Work is the number of flops done so far.
func (s *WakeupScheduler) Work() int {
	return s.work
}

// Exhausted reports whether the idle budget is used up.
func (s *WakeupScheduler) Exhausted() bool {
	return s.work >= s.budget
}

// Tick performs one increment of idle work. It returns early when ready fires
// or ctx is done.
func (s *WakeupScheduler) Tick(ctx context.Context, ready <-chan struct{}) {
	flops := between(s.rnd, s.tickMin, s.tickMax)
	s.work += flops

	if s.unit == 0 {
		runtime.Gosched()
		return
	}

	select {
	case <-s.timerFactory(time.Duration(flops) * s.unit):
	case <-ready:
	case <-ctx.Done():
	}
}

func between(rnd *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + rnd.Intn(max-min+1)
}
