// Package hal is the HAL contract the motion controller consumes:
// limit/probe sampling, limit-mask locking for homing, exec-state flags, and
// the cooperative do-tasks entry point. It is grounded on the
// core/gpio_hal.go singleton-driver pattern (SetGPIODriver/MustGPIO) and the
// sampling/debounce semantics of core/endstop.go and core/trsync.go,
// generalized from a single-pin Klipper endstop object into the small,
// synchronous query surface the motion controller actually calls.
package hal

// ExecState is the bitset the controller and the HAL/ISR layer share to
// agree on machine state across cooperative task boundaries.
type ExecState uint16

const (
	ExecRun ExecState = 1 << iota
	ExecHold
	ExecHoming
	ExecAlarm
	ExecJog
	ExecCheckMode
	// ExecHalt latches a hard stop distinct from a user-requested ExecHold --
	// set when homing fails to find or release a limit switch, matching
	// original_source/uCNC/src/core/motion_control.c's EXEC_HALT.
	ExecHalt
)

// Hal is the contract consumed by the motion controller. A real
// implementation wraps GPIO/timer/interrupt hardware; Sim (sim.go) is a
// deterministic fake for tests, following MustGPIO()'s singleton shape but
// injected explicitly instead of via a package-level global so tests never
// share state.
type Hal interface {
	// IOGetLimits returns the bitmask of currently-asserted limit inputs,
	// post-polarity-inversion (bit i set means axis/actuator i is
	// triggered).
	IOGetLimits() uint8

	// IOGetProbe reports the current probe pin level.
	IOGetProbe() bool

	// IOLockLimits restricts which limit bits can raise ExecAlarm to mask;
	// used during homing so only the axis being sought can halt motion.
	IOLockLimits(mask uint8)

	// IOInvertLimits flips the trigger polarity for the masked bits (used
	// by the back-off phase of homing, which waits for release instead of
	// contact).
	IOInvertLimits(mask uint8)

	IOEnableProbe()
	IODisableProbe()

	// CNCDoTasks is C5's cooperative_tasks(): services pending I/O,
	// watchdog and runtime callbacks. Returns false iff a fatal abort
	// condition has latched (estop, reset) -- the caller must not retry.
	CNCDoTasks() bool

	// CNCDelayMS cooperatively sleeps, still calling CNCDoTasks internally
	// so a dwell never blocks the rest of the system.
	CNCDelayMS(ms uint32)

	CNCSetExecState(flags ExecState)
	CNCClearExecState(flags ExecState)
	CNCGetExecState() ExecState

	// CNCAlarm raises an alarm code out-of-band
	// (ALARM_SOFT_LIMIT / ALARM_HOMING_FAIL_* / ALARM_PROBE_FAIL_CONTACT).
	CNCAlarm(code AlarmCode)

	CNCUnlock()
	CNCStop()
}

// AlarmCode enumerates the out-of-band alarm signals the controller raises
// via Hal.CNCAlarm.
type AlarmCode uint8

const (
	AlarmNone AlarmCode = iota
	AlarmSoftLimit
	AlarmHomingFailLimitActive
	AlarmHomingFailApproach
	AlarmProbeFailContact
)
