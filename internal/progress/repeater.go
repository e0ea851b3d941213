package progress

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Repeater calls a function every interval until stopped. At most one
// loop runs at a time: Start stops any previous loop before beginning.
type Repeater struct {
	clock    clockwork.Clock
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewRepeater(clock clockwork.Clock, interval time.Duration) *Repeater {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Repeater{clock: clock, interval: interval}
}

// Start runs fn once immediately, then on every tick. fn receives the
// clock's current time.
func (r *Repeater) Start(fn func(now time.Time)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()

	fn(r.clock.Now())

	stop := make(chan struct{})
	done := make(chan struct{})
	ticker := r.clock.NewTicker(r.interval)
	r.stop, r.done = stop, done

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				// a tick and a stop may be ready together
				select {
				case <-stop:
					return
				default:
				}
				fn(r.clock.Now())
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit. No call to fn starts
// after Stop returns.
func (r *Repeater) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

// Running reports whether a loop is active
func (r *Repeater) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

func (r *Repeater) stopLocked() {
	if r.stop == nil {
		return
	}
	close(r.stop)
	<-r.done
	r.stop, r.done = nil, nil
}
