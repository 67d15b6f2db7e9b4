package timectrl

import (
	"sync"
	"time"
)

// SimClock is an interface for accessing simulated observation time.
// Components that follow a pass in real or accelerated time (the live
// visibility tracker) depend on this abstraction rather than on a
// concrete controller, enabling testability.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
	// After returns a channel that will receive the current simulation time
	// after the duration d has elapsed in simulation time.
	After(d time.Duration) <-chan time.Time
}

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// RealTime advances according to wall-clock time.
	RealTime Mode = iota
	// Accelerated advances as quickly as the loop can run while still stepping by Tick.
	Accelerated
)

// TimeController drives simulated time through an observation window
// and notifies registered listeners on every tick. It implements
// SimClock.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	// currentTime tracks the current simulation time. It is updated
	// as the controller advances time.
	currentTime time.Time

	listeners []func(time.Time)
}

// NewTimeController constructs a controller.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the current simulation time. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// After returns a channel that will receive the current simulation time
// after the duration d has elapsed in simulation time. Implements
// SimClock. The channel fires from the tick loop, so resolution is the
// controller's Tick.
func (tc *TimeController) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	deadline := tc.Now().Add(d)
	tc.AddListener(func(now time.Time) {
		if !now.Before(deadline) {
			select {
			case ch <- now:
			default:
			}
		}
	})
	return ch
}

// SetTime jumps the controller to a specific simulation time without
// notifying listeners. Useful for rewinding or fast-forwarding to an
// observation window's start.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.listeners = append(tc.listeners, fn)
}

// Start runs the controller for the specified duration in a separate goroutine.
// It returns a channel that is closed when the controller finishes.
func (tc *TimeController) Start(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		tc.mu.Lock()
		simTime := tc.StartTime
		tc.currentTime = simTime
		tc.mu.Unlock()

		elapsed := time.Duration(0)

		// RealTime paces the loop with a wall-clock ticker; Accelerated
		// steps as fast as the listeners can keep up.
		var ticker *time.Ticker
		if tc.Mode == RealTime {
			ticker = time.NewTicker(tc.Tick)
			defer ticker.Stop()
		}

		for {
			if duration > 0 && elapsed >= duration {
				return
			}

			if ticker != nil {
				<-ticker.C
			}
			simTime = simTime.Add(tc.Tick)
			elapsed += tc.Tick

			// Update currentTime under lock
			tc.mu.Lock()
			tc.currentTime = simTime
			tc.mu.Unlock()

			for _, fn := range tc.listeners {
				fn(simTime)
			}
		}
	}()
	return done
}
