package planner

import "math"

// Planner is the C2 contract: a bounded ring buffer of Blocks. The core uses
// only AddLine, BufferIsFull, Clear and SyncTools; acceleration limiting
// lives entirely inside this package, the way calculateTrapezoid keeps
// velocity-profile math out of the caller (standalone/planner/planner.go).
// Each block gets its own trapezoid from a standing start; there is no
// junction-speed blending or lookahead across blocks.
type Planner struct {
	ring      []*Block
	head      int // next slot to fill
	tail      int // oldest unconsumed block
	count     int
	capacity  int

	maxFeedRate float64 // settings-derived clamp, steps/s of the dominant axis
	maxAccel    float64 // steps/s^2 of the dominant axis, used by calculateTrapezoid

	lastFeed     float64
	justCleared  bool
}

// New builds a Planner with room for capacity in-flight blocks.
func New(capacity int, maxFeedRate, maxAccel float64) *Planner {
	return &Planner{
		ring:        make([]*Block, capacity),
		capacity:    capacity,
		maxFeedRate: maxFeedRate,
		maxAccel:    maxAccel,
		justCleared: true,
	}
}

// BufferIsFull reports whether the ring has no free slot; the core spins on
// this (servicing cooperative tasks each iteration) before enqueueing.
func (p *Planner) BufferIsFull() bool {
	return p.count == p.capacity
}

// IsEmpty reports whether the queue has no blocks left to drain.
func (p *Planner) IsEmpty() bool {
	return p.count == 0
}

// AddLine enqueues block, computing its trapezoidal velocity profile first.
// Callers must have already checked !BufferIsFull(); AddLine panics on
// overflow to surface a caller bug rather than silently drop motion.
func (p *Planner) AddLine(block *Block) {
	if p.BufferIsFull() {
		panic("planner: AddLine called on a full buffer")
	}
	block.recomputeTotals()
	p.calculateTrapezoid(block)

	// A block enqueued right after Clear() starts from a zero-velocity
	// junction: nothing to blend against, so leave CruiseRate/AccelSteps
	// as computed from a standing start (already the calculateTrapezoid
	// default).
	p.justCleared = false

	p.ring[p.head] = block
	p.head = (p.head + 1) % p.capacity
	p.count++
	p.lastFeed = block.Feed
}

// Peek returns the oldest block without removing it, or nil if empty.
func (p *Planner) Peek() *Block {
	if p.count == 0 {
		return nil
	}
	return p.ring[p.tail]
}

// Pop removes and returns the oldest block, for the interpolator's drain
// loop. Returns nil if the queue is empty.
func (p *Planner) Pop() *Block {
	if p.count == 0 {
		return nil
	}
	b := p.ring[p.tail]
	p.ring[p.tail] = nil
	p.tail = (p.tail + 1) % p.capacity
	p.count--
	return b
}

// Clear discards every queued block. A block enqueued afterward starts from
// a zero-velocity junction.
func (p *Planner) Clear() {
	for i := range p.ring {
		p.ring[i] = nil
	}
	p.head, p.tail, p.count = 0, 0, 0
	p.justCleared = true
	p.lastFeed = 0
}

// SyncTools updates the queue's tail-of-pipe tool state (spindle speed,
// spindle-running flag) without enqueuing motion; mirrors the
// SetPosition-style direct-state-update calls that bypass the move queue.
func (p *Planner) SyncTools(block *Block) {
	if tail := p.Peek(); tail != nil {
		tail.Spindle = block.Spindle
		tail.SpindleRunning = block.SpindleRunning
		return
	}
	// Nothing queued: tool state takes effect immediately, nothing to
	// attach it to.
}

// calculateTrapezoid derives a simplified forward trapezoidal velocity
// profile (no true lookahead/junction blending), following
// standalone/planner/planner.go:calculateTrapezoid almost line for line,
// generalized from its XYZ-only axisVel clamp to an arbitrary StepperCount
// and re-expressed in steps (the unit block.Feed is specified in) rather
// than mm/s.
func (p *Planner) calculateTrapezoid(block *Block) {
	maxVel := block.Feed
	if p.maxFeedRate > 0 && maxVel > p.maxFeedRate {
		maxVel = p.maxFeedRate
	}
	if maxVel <= 0 {
		block.CruiseRate = 0
		return
	}

	accel := block.Accel
	if accel <= 0 {
		accel = p.maxAccel
	}
	if accel <= 0 {
		// No acceleration limiting configured: instantaneous ramp.
		block.CruiseRate = maxVel
		block.AccelSteps = 0
		block.DecelSteps = 0
		block.CruiseSteps = block.TotalSteps
		return
	}

	total := float64(block.TotalSteps)
	accelSteps := (maxVel * maxVel) / (2.0 * accel)

	if accelSteps*2.0 >= total {
		// Triangle profile: the move is too short to reach maxVel.
		accelSteps = total / 2.0
		cruiseVel := math.Sqrt(accel * accelSteps)
		block.CruiseRate = cruiseVel
		block.AccelSteps = int32(accelSteps)
		block.DecelSteps = block.AccelSteps
		block.CruiseSteps = int32(total) - block.AccelSteps - block.DecelSteps
		if block.CruiseSteps < 0 {
			block.CruiseSteps = 0
		}
		return
	}

	cruiseSteps := total - 2.0*accelSteps
	block.CruiseRate = maxVel
	block.AccelSteps = int32(accelSteps)
	block.DecelSteps = block.AccelSteps
	block.CruiseSteps = int32(cruiseSteps)
}
