package motion

import "ucnc/hal"
import "ucnc/planner"

// HomeAxis runs the per-axis homing state machine: fast-seek toward the
// limit switch, then a slow back-off, grounded on
// original_source/uCNC/src/core/motion_control.c:mc_home_axis.
//
// Reproduces a known quirk of that routine literally: the fast-seek
// and back-off phases stash a raw float distance -- which is negative when
// homing in the negative direction -- directly into block.Steps[axis] (and
// its magnitude into block.TotalSteps) before calling Line. Line's
// emitSegment then overwrites Steps and TotalSteps from the actual actuator
// deltas before the block is queued, so the planner never sees the raw
// distance. This is not "fixed" here.
func (c *Controller) HomeAxis(axis int, limitMask uint8) Status {
	c.hal.CNCUnlock()

	c.hal.IOLockLimits(limitMask)
	c.hal.IOInvertLimits(0)

	if c.hal.CNCGetExecState()&(hal.ExecHold|hal.ExecAlarm) != 0 || c.hal.IOGetLimits()&limitMask != 0 {
		c.hal.CNCAlarm(hal.AlarmHomingFailLimitActive)
		return CriticalFail
	}

	maxHomeDist := -c.s.MaxDistance[axis] * 1.5
	if c.s.HomingDirInvertMask&(1<<uint(axis)) != 0 {
		maxHomeDist = -maxHomeDist
	}

	c.SyncPosition()
	target := make([]float64, c.kin.AxisCount())
	c.GetPosition(target)
	target[axis] += maxHomeDist

	block := planner.NewBlock(c.kin.StepperCount(), c.kin.AxisCount())
	block.TotalSteps = int32(absFloat(maxHomeDist))
	if axis < len(block.Steps) {
		block.Steps[axis] = int32(maxHomeDist)
	}
	block.Feed = c.s.HomingFastFeedRate
	block.MotionMode = planner.FlagFeed

	c.hal.CNCUnlock()
	c.hal.CNCSetExecState(hal.ExecHoming)
	c.Line(target, block)

	if !c.interp.Sync() {
		return CriticalFail
	}

	c.interp.Stop()
	c.interp.Clear()
	c.queue.Clear()

	c.hal.CNCDelayMS(c.s.DebounceMillis)
	limitsFlags := c.hal.IOGetLimits()

	if limitsFlags&limitMask == 0 {
		c.hal.CNCSetExecState(hal.ExecHalt)
		c.hal.CNCAlarm(hal.AlarmHomingFailApproach)
		return CriticalFail
	}

	maxHomeDist = c.s.HomingOffset * 5.0
	c.SyncPosition()
	c.GetPosition(target)
	if c.s.HomingDirInvertMask&(1<<uint(axis)) != 0 {
		maxHomeDist = -maxHomeDist
	}
	target[axis] += maxHomeDist

	block = planner.NewBlock(c.kin.StepperCount(), c.kin.AxisCount())
	block.Feed = c.s.HomingSlowFeedRate
	block.TotalSteps = int32(absFloat(maxHomeDist))
	if axis < len(block.Steps) {
		block.Steps[axis] = int32(maxHomeDist)
	}
	block.MotionMode = planner.FlagFeed

	c.hal.IOInvertLimits(limitMask)
	c.hal.CNCUnlock()
	c.hal.CNCSetExecState(hal.ExecHoming)
	c.Line(target, block)

	if !c.interp.Sync() {
		return CriticalFail
	}

	c.hal.CNCDelayMS(c.s.DebounceMillis)
	c.hal.IOInvertLimits(0)
	c.hal.CNCStop()
	c.interp.Clear()
	c.queue.Clear()

	c.hal.CNCDelayMS(c.s.DebounceMillis)
	limitsFlags = c.hal.IOGetLimits()

	if limitsFlags&limitMask != 0 {
		c.hal.CNCSetExecState(hal.ExecHalt)
		c.hal.CNCAlarm(hal.AlarmHomingFailApproach)
		return CriticalFail
	}

	return OK
}

// Home runs the machine-shape-specific homing script: every axis in
// c.kin.HomingOrder(), then one final offset move by c.kin.HomingOffset()
// before resetting the interpolator runtime position to c.kin.ZeroPosition(),
// grounded on
// original_source/uCNC/src/hal/kinematics/kinematic_cartesian.c:kinematics_home.
func (c *Controller) Home() Status {
	for _, axis := range c.kin.HomingOrder() {
		if status := c.HomeAxis(axis, 1<<uint(axis)); status != OK {
			return status
		}
	}

	c.hal.CNCUnlock()
	c.hal.CNCSetExecState(hal.ExecHoming)

	c.SyncPosition()
	target := make([]float64, c.kin.AxisCount())
	c.GetPosition(target)
	offset := c.kin.HomingOffset()
	for i := range target {
		if i < len(offset) {
			target[i] += offset[i]
		}
	}

	block := planner.NewBlock(c.kin.StepperCount(), c.kin.AxisCount())
	block.Feed = c.s.HomingFastFeedRate
	block.MotionMode = planner.FlagFeed

	if status := c.Line(target, block); status != OK {
		return status
	}
	if !c.interp.Sync() {
		return CriticalFail
	}

	c.hal.CNCClearExecState(hal.ExecHoming)

	zero := c.kin.ZeroPosition()
	c.interp.ResetRTPosition(c.kin.Inverse(zero))
	c.SyncPosition()
	return OK
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
