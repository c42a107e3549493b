package timing

import (
	"testing"
	"time"
)

func TestFakeAfterFuncFiresOnAdvance(t *testing.T) {
	clock := NewFake()
	fired := 0
	clock.AfterFunc(100*time.Millisecond, func() { fired++ })

	clock.Advance(99 * time.Millisecond)
	if fired != 0 {
		t.Fatal("Timer fired early")
	}
	clock.Advance(1 * time.Millisecond)
	if fired != 1 {
		t.Fatalf("Fired = %d, want 1", fired)
	}
	clock.Advance(time.Hour)
	if fired != 1 {
		t.Error("Timer fired twice")
	}
}

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	clock := NewFake()
	var order []string
	clock.AfterFunc(200*time.Millisecond, func() { order = append(order, "late") })
	clock.AfterFunc(100*time.Millisecond, func() { order = append(order, "early") })

	clock.Advance(time.Second)
	if len(order) != 2 || order[0] != "early" || order[1] != "late" {
		t.Errorf("Order = %v", order)
	}
}

func TestFakeStop(t *testing.T) {
	clock := NewFake()
	fired := false
	timer := clock.AfterFunc(100*time.Millisecond, func() { fired = true })

	if !timer.Stop() {
		t.Error("First Stop should report true")
	}
	if timer.Stop() {
		t.Error("Second Stop should report false")
	}
	clock.Advance(time.Second)
	if fired {
		t.Error("Stopped timer fired")
	}
	if clock.PendingTimers() != 0 {
		t.Errorf("PendingTimers = %d", clock.PendingTimers())
	}
}

func TestFakeRearmWithinCallback(t *testing.T) {
	clock := NewFake()
	fired := 0
	var arm func()
	arm = func() {
		fired++
		if fired < 3 {
			clock.AfterFunc(100*time.Millisecond, arm)
		}
	}
	clock.AfterFunc(100*time.Millisecond, arm)

	clock.Advance(100 * time.Millisecond)
	clock.Advance(100 * time.Millisecond)
	clock.Advance(100 * time.Millisecond)
	if fired != 3 {
		t.Errorf("Fired = %d, want 3", fired)
	}
}

func TestRealClock(t *testing.T) {
	done := make(chan struct{})
	timer := Real().AfterFunc(time.Millisecond, func() { close(done) })
	defer timer.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Real timer did not fire")
	}
}
