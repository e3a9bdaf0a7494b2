package watch

import (
	"testing"
	"time"
)

func TestMachineCountdownStartsCycle(t *testing.T) {
	t.Parallel()
	m := newMachine(3*time.Second, time.Second)
	if m.countdown(time.Second) || m.countdown(time.Second) {
		t.Fatal("cycle due too early")
	}
	if !m.countdown(time.Second) {
		t.Fatal("cycle should be due after the interval elapsed")
	}
}

func TestMachinePauseDiscardsCountdown(t *testing.T) {
	t.Parallel()
	m := newMachine(10*time.Minute, time.Minute)
	m.countdown(4 * time.Minute) // 6m left

	if err := m.pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if m.state != StatePaused {
		t.Fatalf("state = %s", m.state)
	}
	// A paused watcher is inactive, not "about to run": no leftover countdown.
	if m.remaining != 0 {
		t.Fatalf("paused remaining = %s, want 0", m.remaining)
	}

	// Resume restarts from a full interval, not the discarded leftover.
	if err := m.resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if m.state != StateIdle || m.remaining != 10*time.Minute {
		t.Fatalf("state = %s remaining = %s, want idle 10m", m.state, m.remaining)
	}
}

func TestMachinePauseIdempotent(t *testing.T) {
	t.Parallel()
	m := newMachine(10*time.Minute, time.Minute)
	if err := m.pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := m.pause(); err != nil {
		t.Fatalf("second pause: %v", err)
	}
	if err := m.resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := m.resume(); err != nil {
		t.Fatalf("second resume: %v", err)
	}
	if m.state != StateIdle {
		t.Fatalf("state = %s", m.state)
	}
}

func TestMachineForceRejectedWhilePaused(t *testing.T) {
	t.Parallel()
	m := newMachine(10*time.Minute, time.Minute)
	_ = m.pause()
	if err := m.force(); err != ErrPaused {
		t.Fatalf("force while paused = %v, want ErrPaused", err)
	}
}

func TestMachineForceRejectedWhileCycling(t *testing.T) {
	t.Parallel()
	m := newMachine(10*time.Minute, time.Minute)
	m.state = StateCycling
	if err := m.force(); err != ErrCycling {
		t.Fatalf("force while cycling = %v, want ErrCycling", err)
	}
}

func TestMachineSetIntervalFloor(t *testing.T) {
	t.Parallel()
	m := newMachine(30*time.Minute, 5*time.Minute)
	if err := m.setInterval(2 * time.Minute); err == nil {
		t.Fatal("interval below floor must be rejected")
	}
	if m.interval != 30*time.Minute {
		t.Fatalf("rejected change mutated interval: %s", m.interval)
	}
	if err := m.setInterval(5 * time.Minute); err != nil {
		t.Fatalf("floor value must be accepted: %v", err)
	}
}

func TestMachineSetIntervalClampsDownwardOnly(t *testing.T) {
	t.Parallel()
	m := newMachine(30*time.Minute, 5*time.Minute)
	m.countdown(10 * time.Minute) // 20m remaining

	// Shrinking below the remaining time pulls the next cycle closer.
	if err := m.setInterval(10 * time.Minute); err != nil {
		t.Fatalf("setInterval: %v", err)
	}
	if m.remaining != 10*time.Minute {
		t.Fatalf("remaining = %s, want clamp to 10m", m.remaining)
	}

	// Growing the interval never postpones a countdown already under way.
	if err := m.setInterval(60 * time.Minute); err != nil {
		t.Fatalf("setInterval: %v", err)
	}
	if m.remaining != 10*time.Minute {
		t.Fatalf("remaining = %s, want unchanged 10m", m.remaining)
	}
	if m.interval != 60*time.Minute {
		t.Fatalf("interval = %s", m.interval)
	}
}

func TestMachinePauseDuringCycleDefers(t *testing.T) {
	t.Parallel()
	m := newMachine(10*time.Minute, time.Minute)
	m.state = StateCycling
	if err := m.pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if m.state != StateCycling {
		t.Fatal("pause must not interrupt a running cycle")
	}
	m.finishCycle(cycleOutcome{})
	if m.state != StatePaused {
		t.Fatalf("state after cycle = %s, want paused", m.state)
	}
	if m.remaining != 0 {
		t.Fatalf("paused remaining = %s, want 0", m.remaining)
	}
}

func TestMachineFinishCycleResetsCountdown(t *testing.T) {
	t.Parallel()
	m := newMachine(10*time.Minute, time.Minute)
	m.countdown(10 * time.Minute)
	m.state = StateCycling
	m.finishCycle(cycleOutcome{stats: CycleStats{Subscribers: 2, Notified: 1}, elapsed: 3 * time.Second})
	if m.state != StateIdle || m.remaining != 10*time.Minute {
		t.Fatalf("state = %s remaining = %s", m.state, m.remaining)
	}
	if m.cycles != 1 || m.lastStats.Notified != 1 {
		t.Fatalf("cycles = %d stats = %+v", m.cycles, m.lastStats)
	}
}

func TestSchedulerConfigDefaults(t *testing.T) {
	t.Parallel()
	s := NewScheduler(SchedulerConfig{Interval: time.Minute}, nil, nopLogger())
	if s.min != 5*time.Minute {
		t.Fatalf("min = %s, want 5m default", s.min)
	}
	// An initial interval below the floor is raised to it.
	if s.initial != 5*time.Minute {
		t.Fatalf("initial = %s, want raised to floor", s.initial)
	}
}
