package planner

import "testing"

func newTestBlock(totalSteps int32, feed float64) *Block {
	b := NewBlock(3, 3)
	b.Steps[0] = totalSteps
	b.Feed = feed
	b.Accel = 500
	return b
}

func TestAddLineFIFOOrdering(t *testing.T) {
	p := New(4, 0, 0)
	first := newTestBlock(100, 200)
	second := newTestBlock(200, 200)

	p.AddLine(first)
	p.AddLine(second)

	if got := p.Pop(); got != first {
		t.Fatalf("expected FIFO: first block out first")
	}
	if got := p.Pop(); got != second {
		t.Fatalf("expected FIFO: second block out second")
	}
}

func TestBufferIsFull(t *testing.T) {
	p := New(2, 0, 0)
	if p.BufferIsFull() {
		t.Fatalf("empty buffer reported full")
	}
	p.AddLine(newTestBlock(10, 100))
	p.AddLine(newTestBlock(10, 100))
	if !p.BufferIsFull() {
		t.Fatalf("buffer at capacity should report full")
	}
}

func TestAddLineOnFullBufferPanics(t *testing.T) {
	p := New(1, 0, 0)
	p.AddLine(newTestBlock(10, 100))

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic when enqueueing onto a full buffer")
		}
	}()
	p.AddLine(newTestBlock(10, 100))
}

func TestClearResetsQueueAndZeroVelocityJunction(t *testing.T) {
	p := New(4, 0, 0)
	p.AddLine(newTestBlock(10, 100))
	p.AddLine(newTestBlock(10, 100))
	p.Clear()

	if !p.IsEmpty() {
		t.Fatalf("Clear must empty the queue")
	}
	if p.BufferIsFull() {
		t.Fatalf("cleared queue cannot be full")
	}
	if !p.justCleared {
		t.Fatalf("Clear must mark the next block as starting from a zero-velocity junction")
	}
}

func TestCalculateTrapezoidTriangleProfileForShortMove(t *testing.T) {
	p := New(4, 0, 1000)
	b := newTestBlock(10, 5000) // too short to reach 5000 steps/s at the block's accel=500
	p.AddLine(b)

	if b.CruiseRate >= 5000 {
		t.Fatalf("short move should not reach commanded feed, got cruise rate %v", b.CruiseRate)
	}
	if b.CruiseSteps != 0 {
		t.Fatalf("triangle profile should have zero cruise steps, got %d", b.CruiseSteps)
	}
	if b.AccelSteps != b.DecelSteps {
		t.Fatalf("triangle profile accel/decel steps should match: %d vs %d", b.AccelSteps, b.DecelSteps)
	}
}

func TestCalculateTrapezoidFullProfileForLongMove(t *testing.T) {
	p := New(4, 0, 1000)
	b := newTestBlock(1_000_000, 500)
	p.AddLine(b)

	if b.CruiseRate != 500 {
		t.Fatalf("long move should cruise at commanded feed, got %v", b.CruiseRate)
	}
	if b.CruiseSteps <= 0 {
		t.Fatalf("long move should have a nonzero cruise phase, got %d", b.CruiseSteps)
	}
}

func TestMaxFeedRateClamps(t *testing.T) {
	p := New(4, 300, 1000)
	b := newTestBlock(1_000_000, 5000)
	p.AddLine(b)

	if b.CruiseRate > 300 {
		t.Fatalf("cruise rate should be clamped to maxFeedRate, got %v", b.CruiseRate)
	}
}

func TestSyncToolsUpdatesQueueTail(t *testing.T) {
	p := New(4, 0, 0)
	p.AddLine(newTestBlock(10, 100))

	tool := NewBlock(3, 3)
	tool.Spindle = 12000
	tool.SpindleRunning = true
	p.SyncTools(tool)

	tail := p.Peek()
	if tail.Spindle != 12000 || !tail.SpindleRunning {
		t.Fatalf("SyncTools did not propagate to queued tail block: %+v", tail)
	}
}

func TestRecomputeTotalsTieBreaksToLowestIndex(t *testing.T) {
	b := NewBlock(4, 4)
	b.Steps[0] = 50
	b.Steps[1] = 100
	b.Steps[2] = 100
	b.Steps[3] = 20
	b.recomputeTotals()

	if b.MainStepper != 1 {
		t.Fatalf("expected tie between index 1 and 2 to resolve to lowest index 1, got %d", b.MainStepper)
	}
	if b.TotalSteps != 100 {
		t.Fatalf("expected TotalSteps=100, got %d", b.TotalSteps)
	}
	if b.FullSteps != 270 {
		t.Fatalf("expected FullSteps=270, got %d", b.FullSteps)
	}
}
