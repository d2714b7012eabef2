// Package motion implements C4, the motion controller: the core this
// specification covers. It accepts geometric moves, applies kinematics,
// gates on soft limits, computes per-actuator deltas, injects backlash
// blocks, fragments long lines, tessellates arcs, and drives homing and
// probing -- the single writer to the planner queue (C2).
//
// It is grounded on original_source/uCNC/src/core/motion_control.c
// (mc_line/mc_line_segment/mc_arc/mc_home_axis/mc_probe), generalized from
// the original's fixed AXIS_COUNT/STEPPER_COUNT compile-time ladder to the
// runtime settings.Descriptor every other package in this module already
// uses.
package motion

import (
	"math"

	"ucnc/hal"
	"ucnc/interpolator"
	"ucnc/kinematics"
	"ucnc/planner"
	"ucnc/settings"
)

// Controller is the single logical owner of last_step_pos/last_target/
// last_dirbits/checkmode, packaged as one owned value with methods so
// tests can instantiate isolated controllers instead of sharing globals.
type Controller struct {
	kin    kinematics.Kinematics
	s      *settings.Settings
	queue  *planner.Planner
	interp *interpolator.Interpolator
	hal    hal.Hal

	linearActuatorPlanner bool // ENABLE_LINACT_PLANNER: dir_vect unused, junction cos handled by the planner

	lastStepPos []int32
	lastTarget  []float64
	lastDirBits uint8
	checkMode   bool
}

// New builds a Controller wired to its C1/C2/C3/HAL collaborators. Callers
// must call Init() once before issuing motion.
func New(kin kinematics.Kinematics, s *settings.Settings, queue *planner.Planner, interp *interpolator.Interpolator, h hal.Hal) *Controller {
	return &Controller{
		kin:         kin,
		s:           s,
		queue:       queue,
		interp:      interp,
		hal:         h,
		lastStepPos: make([]int32, kin.StepperCount()),
		lastTarget:  make([]float64, kin.AxisCount()),
	}
}

// Init syncs controller state from the real hardware position.
func (c *Controller) Init() {
	c.SyncPosition()
}

// ToggleCheckMode flips check-mode (dry-run validation, nothing enqueued)
// and returns the new state.
func (c *Controller) ToggleCheckMode() bool {
	c.checkMode = !c.checkMode
	return c.checkMode
}

// Line plans a straight move to target, gating on soft limits, splitting
// off a backlash block on direction reversal, and fragmenting long or
// non-linear moves into sub-segments before handing each one to emitSegment.
func (c *Controller) Line(target []float64, block *planner.Block) Status {
	block.DirBits = 0

	homing := c.hal.CNCGetExecState()&hal.ExecHoming != 0
	if !homing {
		c.kin.Transform(target)
	}

	if !c.kin.CheckBoundaries(target, homing) {
		if c.hal.CNCGetExecState()&hal.ExecJog != 0 {
			return TravelExceeded
		}
		c.hal.CNCAlarm(hal.AlarmSoftLimit)
		return OK
	}

	stepNewPos := c.kin.Inverse(target)

	maxSteps := int32(0)
	for i := 0; i < len(stepNewPos); i++ {
		d := stepNewPos[i] - c.lastStepPos[i]
		if d < 0 {
			block.DirBits |= 1 << uint(i)
		}
		if mag := absInt32(d); mag > maxSteps {
			maxSteps = mag
		}
	}

	if maxSteps == 0 {
		return OK
	}

	prevTarget := append([]float64(nil), c.lastTarget...)
	motionSegment := make([]float64, len(target))
	var sumSq float64
	for i := range motionSegment {
		motionSegment[i] = target[i] - prevTarget[i]
		sumSq += motionSegment[i] * motionSegment[i]
	}
	lineDist := math.Sqrt(sumSq)
	invDist := 0.0
	if lineDist > 0 {
		invDist = 1.0 / lineDist
	}
	if !c.linearActuatorPlanner {
		for i := range block.DirVect {
			if i < len(motionSegment) {
				block.DirVect[i] = motionSegment[i] * invDist
			}
		}
	}

	origFeed := block.Feed
	invDelta := block.Feed * invDist
	if block.MotionMode&planner.FlagInverseFeed != 0 {
		invDelta = block.Feed
	}
	block.Feed = float64(maxSteps) * invDelta

	segments := 1
	if c.kin.NonLinear() {
		segments = int(math.Ceil(lineDist * c.kin.SegmentFactor()))
		if segments < 1 {
			segments = 1
		}
	} else if maxSteps > maxStepsPerLine {
		segments = 1 + int(maxSteps>>maxStepsPerLineBits)
	}

	var status Status
	if segments > 1 {
		subInc := make([]float64, len(motionSegment))
		for i := range subInc {
			subInc[i] = motionSegment[i] / float64(segments)
		}
		for seg := 1; seg < segments; seg++ {
			block.MotionMode |= planner.FlagIsSubsegment
			for i := range prevTarget {
				prevTarget[i] += subInc[i]
			}
			subSteps := c.kin.Inverse(prevTarget)
			status = c.emitSegment(subSteps, block)
			if status != OK {
				copy(target, prevTarget)
				block.Feed = origFeed
				return status
			}
		}
		stepNewPos = c.kin.Inverse(target)
	}

	status = c.emitSegment(stepNewPos, block)
	c.lastTarget = append(c.lastTarget[:0], target...)
	block.Feed = origFeed
	block.MotionMode &^= planner.FlagIsSubsegment
	return status
}

// emitSegment converts one sub-segment's target step position into a
// queued block, injecting a backlash block first if direction reversed.
func (c *Controller) emitSegment(stepNewPos []int32, block *planner.Block) Status {
	for i := range block.Steps {
		if i < len(stepNewPos) {
			block.Steps[i] = absInt32(stepNewPos[i] - c.lastStepPos[i])
		}
	}
	block.RecomputeDeltaKinematicsFields(c.kin.NonLinear(), stepNewPos, c.lastStepPos)
	block.RecomputeTotals()

	if block.TotalSteps == 0 {
		return OK
	}

	copy(c.lastStepPos, stepNewPos)

	if c.checkMode {
		return OK
	}

	if block.DirBits != c.lastDirBits {
		if inverted := c.lastDirBits ^ block.DirBits; inverted != 0 {
			backlash := cloneForBacklash(block, inverted, c.s.BacklashSteps)
			if !c.waitForSlot() {
				return CriticalFail
			}
			c.queue.AddLine(backlash)
			block.Dwell = 0
			c.lastDirBits = block.DirBits
		}
	}

	if !c.waitForSlot() {
		return CriticalFail
	}
	queued := *block
	queued.Steps = append([]int32(nil), block.Steps...)
	queued.DirVect = append([]float64(nil), block.DirVect...)
	c.queue.AddLine(&queued)
	block.Dwell = 0
	return OK
}

// waitForSlot spins on BufferIsFull, servicing cooperative tasks, until a
// slot frees up. Returns false iff CNCDoTasks latched a fatal abort.
func (c *Controller) waitForSlot() bool {
	for c.queue.BufferIsFull() {
		if !c.hal.CNCDoTasks() {
			return false
		}
	}
	return true
}

// Dwell flushes pending tool state, then cooperatively sleeps for the
// block's dwell duration.
func (c *Controller) Dwell(block *planner.Block) Status {
	if c.checkMode {
		return OK
	}
	if status := c.UpdateTools(block); status != OK {
		return status
	}
	c.hal.CNCDelayMS(block.Dwell)
	return OK
}

// Pause flushes the interpolator and latches the hold exec state.
func (c *Controller) Pause() Status {
	if c.checkMode {
		return OK
	}
	if !c.interp.Sync() {
		return CriticalFail
	}
	c.hal.CNCSetExecState(hal.ExecHold)
	return OK
}

// UpdateTools syncs the interpolator, then propagates spindle/coolant
// state into the queue tail and the interpolator.
func (c *Controller) UpdateTools(block *planner.Block) Status {
	if c.checkMode {
		return OK
	}
	if !c.interp.Sync() {
		return CriticalFail
	}
	c.queue.SyncTools(block)
	c.interp.SyncSpindle()
	return OK
}

// SyncPosition reseeds lastStepPos/lastTarget from the true hardware
// position after any discontinuity (homing, probing, an abort).
func (c *Controller) SyncPosition() {
	c.interp.GetRTPosition(c.lastStepPos)
	c.lastTarget = c.kin.Forward(c.lastStepPos)
}

// GetPosition reverses the kinematic skew transform so the caller sees
// pre-skew user coordinates.
func (c *Controller) GetPosition(out []float64) {
	copy(out, c.lastTarget)
	c.kin.ReverseTransform(out)
}

const (
	maxStepsPerLine     = 65535
	maxStepsPerLineBits = 16
)

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func cloneForBacklash(block *planner.Block, inverted uint8, backlashSteps []int32) *planner.Block {
	b := &planner.Block{
		DirBits:        block.DirBits,
		DirVect:        append([]float64(nil), block.DirVect...),
		Spindle:        block.Spindle,
		SpindleRunning: block.SpindleRunning,
		Accel:          block.Accel,
		Feed:           math.MaxFloat64,
		MotionMode:     block.MotionMode | planner.FlagBacklashCompensation,
		Steps:          make([]int32, len(block.Steps)),
	}
	for i := range b.Steps {
		if inverted&(1<<uint(i)) != 0 && i < len(backlashSteps) {
			b.Steps[i] = backlashSteps[i]
		}
	}
	b.RecomputeTotals()
	return b
}
