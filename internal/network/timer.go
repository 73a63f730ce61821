package network

import "time"

// Timer is a countdown timer counted in ticks (ticksPerSec per second), driven either by an
// explicit Clock(ticks) advance or by wall-clock elapsed time via
// ClockAuto.
type Timer struct {
	ticksPerSec  int
	timeoutTicks int
	currentTicks int
	running      bool
	startTime    time.Time
}

// NewTimer creates a timer at the given tick resolution, optionally primed
// with an initial timeout.
func NewTimer(ticksPerSec int, secs, msecs int) *Timer {
	timer := &Timer{
		ticksPerSec: ticksPerSec,
	}

	if secs > 0 || msecs > 0 {
		timer.SetTimeout(secs, msecs)
	}

	return timer
}

// SetTimeout sets the timeout duration.
func (t *Timer) SetTimeout(secs, msecs int) {
	t.timeoutTicks = (secs * t.ticksPerSec) + (msecs * t.ticksPerSec / 1000)
}

// IsRunning reports whether the timer is currently running.
func (t *Timer) IsRunning() bool {
	return t.running
}

// Start (re)starts the timer, optionally resetting its timeout.
func (t *Timer) Start(secs, msecs int) {
	if secs > 0 || msecs > 0 {
		t.SetTimeout(secs, msecs)
	}
	t.currentTicks = 0
	t.running = true
	t.startTime = time.Now()
}

// Stop stops the timer.
func (t *Timer) Stop() {
	t.running = false
}

// HasExpired reports whether the timer has reached its timeout. A timer
// that was never started or has a zero timeout never expires.
func (t *Timer) HasExpired() bool {
	if t.timeoutTicks == 0 {
		return false
	}
	if !t.running && t.currentTicks < t.timeoutTicks {
		return false
	}
	return t.currentTicks >= t.timeoutTicks
}

// Clock advances the timer by the given number of ticks, auto-stopping on
// expiry.
func (t *Timer) Clock(ticks int) {
	if !t.running {
		return
	}

	t.currentTicks += ticks

	if t.currentTicks >= t.timeoutTicks {
		t.running = false
	}
}

// ClockAuto advances the timer by the wall-clock time elapsed since Start.
func (t *Timer) ClockAuto() {
	if !t.running {
		return
	}

	elapsed := time.Since(t.startTime)
	elapsedTicks := int(elapsed.Nanoseconds()) * t.ticksPerSec / 1000000000

	if elapsedTicks >= t.timeoutTicks {
		t.running = false
		t.currentTicks = t.timeoutTicks
	} else {
		t.currentTicks = elapsedTicks
	}
}

// GetElapsedMS returns elapsed time in milliseconds.
func (t *Timer) GetElapsedMS() int {
	if !t.running {
		return 0
	}
	return t.currentTicks * 1000 / t.ticksPerSec
}

// GetRemainingMS returns remaining time in milliseconds.
func (t *Timer) GetRemainingMS() int {
	if !t.running {
		return 0
	}
	remaining := t.timeoutTicks - t.currentTicks
	if remaining <= 0 {
		return 0
	}
	return remaining * 1000 / t.ticksPerSec
}
