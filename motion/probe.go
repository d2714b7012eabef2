package motion

import (
	"ucnc/hal"
	"ucnc/planner"
)

// Probe drives toward target until contact or failure, grounded on
// original_source/uCNC/src/core/motion_control.c:mc_probe.
//
// Reproduces a known quirk of that routine literally: the exec-state
// clear mask is computed as `~prevState | ~ExecHold` -- almost certainly
// meant to restore only the prior HOLD bit -- rather than the narrower
// mask that would actually do that. The observable behaviour (it clears
// every bit except ExecHold, and further clears ExecHold whenever it was
// already clear before the probe) is preserved as-is, not "fixed".
func (c *Controller) Probe(target []float64, flags ProbeFlag, block *planner.Block) Status {
	prevState := c.hal.CNCGetExecState() & hal.ExecHold
	c.hal.IOEnableProbe()
	c.Line(target, block)

	for {
		if !c.hal.CNCDoTasks() {
			return CriticalFail
		}
		expected := flags&ProbeInvert != 0
		if c.hal.IOGetProbe() != expected {
			break
		}
		if c.hal.CNCGetExecState()&hal.ExecRun == 0 {
			break
		}
	}

	c.hal.IODisableProbe()
	c.hal.CNCStop()
	c.interp.Clear()
	c.queue.Clear()
	c.SyncPosition()

	c.hal.CNCClearExecState(^prevState | ^hal.ExecHold)
	c.hal.CNCDelayMS(c.s.DebounceMillis)

	probeOK := c.hal.IOGetProbe()
	if flags&ProbeInvert != 0 {
		probeOK = !probeOK
	}
	if !probeOK {
		if flags&ProbeNoAlarmOnFail == 0 {
			c.hal.CNCAlarm(hal.AlarmProbeFailContact)
		}
		return OK
	}

	return ProbeSuccess
}
