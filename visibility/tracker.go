package visibility

import (
	"context"
	"sync"
	"time"

	"github.com/mopilskog/NICER-Pointing/internal/logging"
	"github.com/mopilskog/NICER-Pointing/model"
	"github.com/mopilskog/NICER-Pointing/timectrl"
)

// Tracker follows a target's visibility as simulated time advances,
// logging rise and set transitions and accumulating visible time. It
// is driven by a TimeController tick listener, so the same tracker
// works in real-time and accelerated replays.
type Tracker struct {
	platform *Platform
	dir      Vec3
	name     string
	log      logging.Logger

	mu       sync.Mutex
	lastTick time.Time
	visible  bool
	started  bool
	total    time.Duration
}

// NewTracker builds a Tracker for one target.
func NewTracker(p *Platform, targetName string, target model.SkyCoord, log logging.Logger) *Tracker {
	if log == nil {
		log = logging.Noop()
	}
	return &Tracker{
		platform: p,
		dir:      TargetDirection(target),
		name:     targetName,
		log:      log,
	}
}

// Attach registers the tracker on the controller's tick stream.
func (t *Tracker) Attach(tc *timectrl.TimeController) {
	tc.AddListener(t.Observe)
}

// Observe advances the tracker to the given simulation time.
func (t *Tracker) Observe(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	visible := IsVisible(t.platform.PositionECI(now), t.dir)
	if t.started && visible && t.visible {
		t.total += now.Sub(t.lastTick)
	}
	if !t.started || visible != t.visible {
		msg := "target set"
		if visible {
			msg = "target risen"
		}
		t.log.Info(context.Background(), msg,
			logging.String("target", t.name),
			logging.String("sim_time", now.UTC().Format(time.RFC3339)))
	}
	t.started = true
	t.visible = visible
	t.lastTick = now
}

// Visible reports the state observed at the last tick.
func (t *Tracker) Visible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible
}

// VisibleDuration returns the accumulated visible time.
func (t *Tracker) VisibleDuration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Follow replays the window on an accelerated clock with a Tracker
// attached, so rise and set transitions are logged tick by tick. It
// blocks until the window has been replayed and returns the
// accumulated visible time. step is floored at one second.
func Follow(p *Platform, targetName string, target model.SkyCoord, start time.Time, window, step time.Duration, log logging.Logger) time.Duration {
	if step < time.Second {
		step = time.Second
	}
	tc := timectrl.NewTimeController(start, step, timectrl.Accelerated)
	tracker := NewTracker(p, targetName, target, log)
	tracker.Attach(tc)
	<-tc.Start(window)
	return tracker.VisibleDuration()
}
