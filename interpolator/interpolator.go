// Package interpolator implements C3: it owns the periodic step timer and
// drains planner blocks into per-actuator step/dir pulses using a
// dominant-axis Bresenham/DDA accumulator, generalized from
// single-axis core/stepper.go (StepperMove.Interval/Count/Add, the
// stepperEventHandler accel ramp, ScheduleTimer-driven re-arming) to the
// multi-actuator, multi-block case the motion controller's planner queue
// produces.
package interpolator

import (
	"ucnc/internal/sched"
	"ucnc/planner"
)

// Queue is the subset of planner.Planner the interpolator drains.
type Queue interface {
	Pop() *planner.Block
	Peek() *planner.Block
	IsEmpty() bool
}

// Pulser is the HAL collaborator that actually toggles step/dir pins. It is
// defined here (not imported from a hal package) so any type satisfying it
// structurally can be wired in without a dependency edge back into hal.
type Pulser interface {
	// Step pulses actuator once; negative reports the direction so the
	// pulser can also drive the shared direction pin state per actuator.
	Step(actuator int, negative bool)
}

// Tasker is the cooperative-scheduling collaborator Sync polls while
// fast-forwarding the clock, structurally typed like Pulser so wiring it
// doesn't need an import edge back into hal.
type Tasker interface {
	// CNCDoTasks services pending I/O and returns false iff a fatal abort
	// condition has latched; Sync stops draining and reports it.
	CNCDoTasks() bool
}

// Interpolator is the C3 contract: sync/stop/clear/get_rt_position/
// reset_rt_position/sync_spindle, plus the private timer-driven drain loop.
type Interpolator struct {
	clock  *sched.Clock
	queue  Queue
	pulser Pulser
	tasker Tasker

	stepperCount int
	ticksPerSec  float64

	rt     []int32 // runtime step position, atomic snapshot via GetRTPosition
	errAcc []int32 // Bresenham error accumulators for the current block

	current   *planner.Block
	stepsDone int32
	dirBits   uint8

	rtFeed float64 // steps/s of the dominant axis, last committed block

	timer   sched.Timer
	running bool
}

// New builds an Interpolator. ticksPerSec converts a block's Feed (steps per
// second of the dominant axis) into Clock ticks; core/stepper.go
// plays the same role with its 12MHz timer tick. tasker is polled once per
// drained tick during Sync so a latched fatal abort (estop, reset) is
// observable mid-drain instead of only after the whole queue empties.
func New(clock *sched.Clock, queue Queue, pulser Pulser, tasker Tasker, stepperCount int, ticksPerSec float64) *Interpolator {
	i := &Interpolator{
		clock:        clock,
		queue:        queue,
		pulser:       pulser,
		tasker:       tasker,
		stepperCount: stepperCount,
		ticksPerSec:  ticksPerSec,
		rt:           make([]int32, stepperCount),
		errAcc:       make([]int32, stepperCount),
	}
	i.timer.Handler = i.onTick
	return i
}

// Sync blocks (in this single-threaded simulation: fast-forwards the owned
// Clock) until the queue is drained and the in-flight block has finished,
// mirroring the embedded contract where Sync busy-waits on the real ISR.
// Returns false iff tasker.CNCDoTasks reported a fatal abort mid-drain, in
// which case the caller must treat the drain as incomplete.
func (i *Interpolator) Sync() bool {
	for i.running || !i.queue.IsEmpty() {
		if !i.running {
			i.loadNext()
			if !i.running {
				return true
			}
		}
		if i.tasker != nil && !i.tasker.CNCDoTasks() {
			return false
		}
		delta := i.timer.WakeTime - i.clock.Now()
		i.clock.Advance(delta)
	}
	return true
}

// Stop ceases pulse emission immediately and discards the in-flight block.
func (i *Interpolator) Stop() {
	i.running = false
	i.current = nil
	i.stepsDone = 0
}

// Clear resets runtime state to match the planner immediately after the
// planner's own Clear() — i.e. stop whatever was running, forget it, leave
// rt position untouched (the motion controller's SyncPosition reseeds its
// last_step_pos from this rt position via GetRTPosition).
func (i *Interpolator) Clear() {
	i.Stop()
	for a := range i.errAcc {
		i.errAcc[a] = 0
	}
}

// GetRTPosition writes an atomic-as-possible snapshot of the runtime step
// position into out (len(out) must be >= stepperCount).
func (i *Interpolator) GetRTPosition(out []int32) {
	copy(out, i.rt)
}

// ResetRTPosition seeds the runtime position directly in step space, used
// after homing completes and the controller knows the true actuator
// position without having run any block through the queue.
func (i *Interpolator) ResetRTPosition(steps []int32) {
	copy(i.rt, steps)
}

// SyncSpindle is a no-op placeholder for the tool-state sync point the core
// calls between motion segments; spindle hardware itself is out of scope
// (named external collaborator, ).
func (i *Interpolator) SyncSpindle() {}

// GetRTFeed reports the dominant-axis step rate of the block most recently
// committed to the pulser.
func (i *Interpolator) GetRTFeed() float64 {
	return i.rtFeed
}

func (i *Interpolator) loadNext() {
	b := i.queue.Pop()
	if b == nil {
		i.running = false
		return
	}
	i.current = b
	i.dirBits = b.DirBits
	i.stepsDone = 0
	i.rtFeed = b.Feed
	half := b.TotalSteps / 2
	for a := range i.errAcc {
		if a < len(b.Steps) {
			i.errAcc[a] = half
		} else {
			i.errAcc[a] = 0
		}
	}
	i.running = true
	i.timer.WakeTime = i.clock.Now() + i.intervalFor(b, 0)
	i.clock.Schedule(&i.timer)
}

// onTick fires one DDA step across every actuator, advances the Bresenham
// accumulators, pulses the actuators that are due a step this tick, and
// re-arms for the next tick at an interval derived from the block's
// trapezoidal velocity profile -- the direct generalisation of
// core/stepper.go's stepperEventHandler accel ramp (CurrentInterval +=
// CurrentAdd) to a dominant-axis-driven multi-actuator DDA.
func (i *Interpolator) onTick(t *sched.Timer) sched.Result {
	b := i.current
	if b == nil {
		i.running = false
		return sched.Done
	}

	for a := 0; a < i.stepperCount && a < len(b.Steps); a++ {
		i.errAcc[a] += b.Steps[a]
		if i.errAcc[a] < b.TotalSteps {
			continue
		}
		i.errAcc[a] -= b.TotalSteps
		negative := b.DirBits&(1<<uint(a)) != 0
		if negative {
			i.rt[a]--
		} else {
			i.rt[a]++
		}
		if i.pulser != nil {
			i.pulser.Step(a, negative)
		}
	}

	i.stepsDone++
	if i.stepsDone >= b.TotalSteps {
		i.loadNext()
		return sched.Done
	}

	t.WakeTime += i.intervalFor(b, i.stepsDone)
	return sched.Reschedule
}

// intervalFor converts the block's trapezoidal velocity profile at
// stepsDone into a Clock-tick interval for the next dominant-axis step.
func (i *Interpolator) intervalFor(b *planner.Block, stepsDone int32) uint32 {
	rate := b.CruiseRate
	switch {
	case stepsDone < b.AccelSteps:
		frac := float64(stepsDone+1) / float64(maxInt32(b.AccelSteps, 1))
		rate = b.CruiseRate * frac
	case stepsDone >= b.AccelSteps+b.CruiseSteps:
		remaining := b.TotalSteps - stepsDone
		frac := float64(remaining) / float64(maxInt32(b.DecelSteps, 1))
		rate = b.CruiseRate * frac
	}
	if rate <= 0 {
		rate = 1
	}
	if i.ticksPerSec <= 0 {
		return 1
	}
	interval := uint32(i.ticksPerSec / rate)
	if interval == 0 {
		interval = 1
	}
	return interval
}

func maxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
