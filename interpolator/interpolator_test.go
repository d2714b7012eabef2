package interpolator

import (
	"testing"

	"ucnc/internal/sched"
	"ucnc/planner"
)

type fakePulser struct {
	steps []int // per-actuator step counts observed
	dirs  []bool
}

func newFakePulser(n int) *fakePulser {
	return &fakePulser{steps: make([]int, n), dirs: make([]bool, n)}
}

func (f *fakePulser) Step(actuator int, negative bool) {
	f.steps[actuator]++
	f.dirs[actuator] = negative
}

func blockFor(totalSteps int32, perAxis []int32, dirBits uint8) *planner.Block {
	b := planner.NewBlock(len(perAxis), len(perAxis))
	copy(b.Steps, perAxis)
	b.TotalSteps = totalSteps
	b.DirBits = dirBits
	b.Feed = 1000
	b.CruiseRate = 1000
	b.AccelSteps = 0
	b.DecelSteps = 0
	b.CruiseSteps = totalSteps
	return b
}

func TestSyncDrainsSingleBlock(t *testing.T) {
	clock := sched.NewClock()
	p := planner.New(4, 0, 0)
	pulser := newFakePulser(3)
	interp := New(clock, p, pulser, nil, 3, 1_000_000)

	b := blockFor(100, []int32{100, 50, 0}, 0)
	p.AddLine(b)

	interp.Sync()

	if pulser.steps[0] != 100 {
		t.Fatalf("dominant axis expected 100 steps, got %d", pulser.steps[0])
	}
	if pulser.steps[1] != 50 {
		t.Fatalf("half-rate axis expected 50 steps, got %d", pulser.steps[1])
	}
	if pulser.steps[2] != 0 {
		t.Fatalf("stationary axis expected 0 steps, got %d", pulser.steps[2])
	}

	pos := make([]int32, 3)
	interp.GetRTPosition(pos)
	if pos[0] != 100 || pos[1] != 50 || pos[2] != 0 {
		t.Fatalf("unexpected runtime position after drain: %v", pos)
	}
}

func TestSyncRespectsDirectionBits(t *testing.T) {
	clock := sched.NewClock()
	p := planner.New(4, 0, 0)
	pulser := newFakePulser(2)
	interp := New(clock, p, pulser, nil, 2, 1_000_000)

	b := blockFor(10, []int32{10, 10}, 1<<0)
	p.AddLine(b)
	interp.Sync()

	pos := make([]int32, 2)
	interp.GetRTPosition(pos)
	if pos[0] != -10 {
		t.Fatalf("axis 0 should move negative, got position %d", pos[0])
	}
	if pos[1] != 10 {
		t.Fatalf("axis 1 should move positive, got position %d", pos[1])
	}
}

func TestSyncDrainsMultipleBlocksFIFO(t *testing.T) {
	clock := sched.NewClock()
	p := planner.New(4, 0, 0)
	pulser := newFakePulser(1)
	interp := New(clock, p, pulser, nil, 1, 1_000_000)

	p.AddLine(blockFor(10, []int32{10}, 0))
	p.AddLine(blockFor(20, []int32{20}, 0))

	interp.Sync()

	if pulser.steps[0] != 30 {
		t.Fatalf("expected both blocks drained for 30 total steps, got %d", pulser.steps[0])
	}
}

func TestStopDiscardsInFlightBlock(t *testing.T) {
	clock := sched.NewClock()
	p := planner.New(4, 0, 0)
	pulser := newFakePulser(1)
	interp := New(clock, p, pulser, nil, 1, 1_000_000)

	p.AddLine(blockFor(1000, []int32{1000}, 0))
	interp.loadNext()
	interp.Stop()

	if interp.running {
		t.Fatalf("Stop must clear running state")
	}
	if interp.current != nil {
		t.Fatalf("Stop must discard the in-flight block")
	}
}

type fakeTasker struct {
	calls  int
	failAt int // CNCDoTasks returns false starting from this call (0 = never)
}

func (f *fakeTasker) CNCDoTasks() bool {
	f.calls++
	if f.failAt != 0 && f.calls >= f.failAt {
		return false
	}
	return true
}

func TestSyncReturnsTrueOnCleanDrain(t *testing.T) {
	clock := sched.NewClock()
	p := planner.New(4, 0, 0)
	pulser := newFakePulser(1)
	tasker := &fakeTasker{}
	interp := New(clock, p, pulser, tasker, 1, 1_000_000)

	p.AddLine(blockFor(10, []int32{10}, 0))
	if !interp.Sync() {
		t.Fatalf("expected Sync to report true on a clean drain")
	}
	if tasker.calls == 0 {
		t.Fatalf("expected Sync to poll the tasker at least once")
	}
}

func TestSyncReturnsFalseOnLatchedAbort(t *testing.T) {
	clock := sched.NewClock()
	p := planner.New(4, 0, 0)
	pulser := newFakePulser(1)
	tasker := &fakeTasker{failAt: 1}
	interp := New(clock, p, pulser, tasker, 1, 1_000_000)

	p.AddLine(blockFor(1000, []int32{1000}, 0))
	if interp.Sync() {
		t.Fatalf("expected Sync to report false once the tasker latches a fatal abort")
	}
}

func TestResetRTPositionSeedsAfterHoming(t *testing.T) {
	clock := sched.NewClock()
	p := planner.New(4, 0, 0)
	interp := New(clock, p, newFakePulser(3), nil, 3, 1_000_000)

	interp.ResetRTPosition([]int32{100, 200, 300})
	pos := make([]int32, 3)
	interp.GetRTPosition(pos)
	if pos[0] != 100 || pos[1] != 200 || pos[2] != 300 {
		t.Fatalf("ResetRTPosition did not seed runtime position: %v", pos)
	}
}
