package motion

import (
	"math"
	"math/bits"
	"testing"

	"ucnc/hal"
	"ucnc/interpolator"
	"ucnc/internal/sched"
	"ucnc/kinematics"
	"ucnc/planner"
	"ucnc/settings"
)

// limitSwitchHook simulates a single limit switch per axis that asserts
// during the fast-seek phase (IOInvertLimits(0)) and releases once HomeAxis
// flips polarity for the back-off phase (IOInvertLimits(limitMask)),
// tracking whichever axis is currently locked via Sim's LimitMask/InvertMask
// so it works unmodified across every axis Home() homes in turn.
func limitSwitchHook(s *hal.Sim, calls int) {
	mask := s.LimitMask()
	if mask == 0 {
		return
	}
	bit := uint(bits.TrailingZeros8(mask))
	if s.InvertMask() == mask {
		s.TriggerLimit(bit, false)
	} else {
		s.TriggerLimit(bit, true)
	}
}

// newHomingController wires a fresh scenario the same way newScenarioController
// does, but keeps the *hal.Sim reachable as both the Controller's hal and the
// Interpolator's Tasker, since HomeAxis's Sync() calls poll the tasker and
// HomeAxis itself polls c.hal.CNCDoTasks via waitForSlot/Sync.
func newHomingController(t *testing.T) (*Controller, *hal.Sim) {
	t.Helper()
	s := settings.Default()
	s.Descriptor.AxisCount = 3
	s.Descriptor.StepperCount = 3
	s.StepPerMM = []float64{100, 100, 100}
	s.MaxDistance = []float64{20, 20, 20}
	s.HomingFastFeedRate = 2000
	s.HomingSlowFeedRate = 200
	s.HomingOffset = 2
	s.DebounceMillis = 1

	kin := kinematics.NewCartesian(s)
	q := planner.New(1024, 0, 0)
	clock := sched.NewClock()
	sim := hal.NewSim()
	sim.CNCSetExecState(hal.ExecRun)
	interp := interpolator.New(clock, q, noopPulser{}, sim, kin.StepperCount(), 1_000_000)

	c := New(kin, s, q, interp, sim)
	c.Init()
	return c, sim
}

func TestHomeAxisSucceedsWhenLimitIsHitMidSeek(t *testing.T) {
	c, sim := newHomingController(t)
	sim.SetDoTasksHook(limitSwitchHook)

	status := c.HomeAxis(0, 1)
	if status != OK {
		t.Fatalf("expected OK, got %v", status)
	}
	if sim.CNCGetExecState()&hal.ExecHalt != 0 {
		t.Fatalf("a successful home must not latch ExecHalt")
	}
	if len(sim.Alarms()) != 0 {
		t.Fatalf("a successful home must not raise an alarm, got %v", sim.Alarms())
	}
}

func TestHomeAxisFailsApproachWhenLimitNeverTriggers(t *testing.T) {
	c, sim := newHomingController(t)

	status := c.HomeAxis(0, 1)
	if status != CriticalFail {
		t.Fatalf("expected CriticalFail, got %v", status)
	}
	if sim.CNCGetExecState()&hal.ExecHalt == 0 {
		t.Fatalf("a failed approach must latch ExecHalt")
	}
	found := false
	for _, a := range sim.Alarms() {
		if a == hal.AlarmHomingFailApproach {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected AlarmHomingFailApproach raised, got %v", sim.Alarms())
	}
}

func TestHomeAxisFailsImmediatelyWhenLimitAlreadyActive(t *testing.T) {
	c, sim := newHomingController(t)
	sim.TriggerLimit(0, true)

	status := c.HomeAxis(0, 1)
	if status != CriticalFail {
		t.Fatalf("expected CriticalFail, got %v", status)
	}
	found := false
	for _, a := range sim.Alarms() {
		if a == hal.AlarmHomingFailLimitActive {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected AlarmHomingFailLimitActive raised, got %v", sim.Alarms())
	}
}

func TestHomeRunsOffsetPullOffAndResetsToZeroPosition(t *testing.T) {
	c, sim := newHomingController(t)
	sim.SetDoTasksHook(limitSwitchHook)

	status := c.Home()
	if status != OK {
		t.Fatalf("expected OK, got %v", status)
	}

	pos := make([]float64, 3)
	c.GetPosition(pos)
	zero := c.kin.ZeroPosition()
	for i := range zero {
		if math.Abs(pos[i]-zero[i]) > 1e-6 {
			t.Fatalf("axis %d expected zero position %v after homing, got %v", i, zero, pos)
		}
	}
}
