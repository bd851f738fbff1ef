package watcher

import "time"

// A delay is a timeout that can be retriggered. Retriggering a pending delay
// only moves its deadline, so the receiver of C must call fired to find out
// whether the deadline has really passed.
type delay struct {
	dt       time.Duration
	timer    *time.Timer
	deadline time.Time

	// C is nil unless the delay is pending.
	C <-chan time.Time
}

// trigger causes the delay to fire dt from now.
func (d *delay) trigger() {
	d.deadline = time.Now().Add(d.dt)
	if d.C != nil {
		return
	}
	if d.timer == nil {
		d.timer = time.NewTimer(d.dt)
	} else {
		d.timer.Reset(d.dt)
	}
	d.C = d.timer.C
}

// fired is called after receiving from C. It returns true if the deadline has
// passed, and otherwise rearms the timer for the time remaining.
func (d *delay) fired() bool {
	d.C = nil
	rem := time.Until(d.deadline)
	if rem <= 0 {
		return true
	}
	d.timer.Reset(rem)
	d.C = d.timer.C
	return false
}

func (d *delay) stop() {
	if d.timer != nil && !d.timer.Stop() && d.C != nil {
		<-d.C
	}
	d.C = nil
}
