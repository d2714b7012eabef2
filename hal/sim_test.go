package hal

import "testing"

func TestSimLimitMaskAndPolarity(t *testing.T) {
	s := NewSim()
	s.TriggerLimit(0, true)
	s.TriggerLimit(2, true)

	s.IOLockLimits(0b0001) // only bit 0 visible
	if s.IOGetLimits() != 0b0001 {
		t.Fatalf("expected only masked bit visible, got %08b", s.IOGetLimits())
	}

	s.IOInvertLimits(0b0001) // invert bit 0: asserted becomes "not triggered"
	if s.IOGetLimits() != 0 {
		t.Fatalf("expected inverted bit to read 0 once asserted, got %08b", s.IOGetLimits())
	}
}

func TestSimAlarmSetsExecAlarm(t *testing.T) {
	s := NewSim()
	s.CNCAlarm(AlarmSoftLimit)
	if s.CNCGetExecState()&ExecAlarm == 0 {
		t.Fatalf("CNCAlarm must set ExecAlarm")
	}
	if len(s.Alarms()) != 1 || s.Alarms()[0] != AlarmSoftLimit {
		t.Fatalf("expected one AlarmSoftLimit recorded, got %v", s.Alarms())
	}
}

func TestSimUnlockClearsAlarm(t *testing.T) {
	s := NewSim()
	s.CNCAlarm(AlarmHomingFailApproach)
	s.CNCUnlock()
	if s.CNCGetExecState()&ExecAlarm != 0 {
		t.Fatalf("CNCUnlock must clear ExecAlarm")
	}
}

func TestSimAbortStopsTasks(t *testing.T) {
	s := NewSim()
	if !s.CNCDoTasks() {
		t.Fatalf("fresh Sim should report tasks OK")
	}
	s.Abort()
	if s.CNCDoTasks() {
		t.Fatalf("Abort must make CNCDoTasks report false")
	}
}
