// Package sched implements the sorted software-timer list that backs the
// interpolator's periodic step timer. It is adapted from
// core.Timer/core.ScheduleTimer machinery (itself modeled on
// Klipper's sched_add_timer): a singly linked list ordered by wake time,
// inserted and drained with interrupts conceptually disabled, using
// wrap-safe signed-difference comparisons so a 32-bit tick counter can roll
// over without corrupting ordering.
package sched

// Handler runs when a Timer's WakeTime has passed. It returns Reschedule to
// be re-inserted at its (presumably updated) WakeTime, or Done to retire.
type Handler func(t *Timer) Result

// Result is the outcome of a Handler invocation.
type Result uint8

const (
	Done Result = iota
	Reschedule
)

// Timer is one entry in the schedule.
type Timer struct {
	WakeTime uint32
	Handler  Handler
	next     *Timer
}

// Clock is an independent, injectable software timer list. The interpolator
// owns exactly one Clock; tests can construct additional ones without any
// shared global state (unlike package-level statics).
type Clock struct {
	list    *Timer
	now     uint32
	pastErr uint32
}

// NewClock returns a Clock with its tick counter at zero.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the clock's current tick count.
func (c *Clock) Now() uint32 {
	return c.now
}

// Advance moves the clock forward by delta ticks and dispatches every timer
// whose WakeTime has now passed, in wake-time order. A handler may schedule
// further timers (including itself, via Reschedule) before Advance returns.
func (c *Clock) Advance(delta uint32) {
	c.now += delta
	for c.list != nil && int32(c.now-c.list.WakeTime) >= 0 {
		t := c.list
		c.list = t.next
		t.next = nil

		if int32(c.now-t.WakeTime) > int32(pastThreshold) {
			c.pastErr++
		}

		if t.Handler(t) == Reschedule {
			c.insert(t)
		}
	}
}

// pastThreshold flags a timer that fired more than this many ticks late --
// a sign the consumer can't keep up with the requested step rate.
const pastThreshold = 1_200_000

// Schedule inserts t in wake-time order. Re-scheduling an already-pending
// timer is undefined; callers (the interpolator) only ever schedule a Timer
// once it has fired and returned Done, or construct a fresh one.
func (c *Clock) Schedule(t *Timer) {
	c.insert(t)
}

func (c *Clock) insert(t *Timer) {
	if c.list == nil || int32(t.WakeTime-c.list.WakeTime) < 0 {
		t.next = c.list
		c.list = t
		return
	}
	cur := c.list
	for cur.next != nil && int32(cur.next.WakeTime-t.WakeTime) < 0 {
		cur = cur.next
	}
	t.next = cur.next
	cur.next = t
}

// Pending reports whether any timer remains scheduled.
func (c *Clock) Pending() bool {
	return c.list != nil
}

// LateCount returns how many dispatches fired more than the past-threshold
// behind schedule, for diagnostics.
func (c *Clock) LateCount() uint32 {
	return c.pastErr
}
