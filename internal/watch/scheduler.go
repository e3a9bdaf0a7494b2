// Package watch owns the polling loop: a countdown scheduler driving full
// fetch-diff-notify cycles over all eligible subscribers.
package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	logx "elearnbot/pkg/logx"
)

type State string

const (
	StateIdle    State = "idle"
	StateCycling State = "cycling"
	StatePaused  State = "paused"
)

var (
	ErrPaused  = errors.New("watcher is paused")
	ErrCycling = errors.New("cycle already running")
	ErrStopped = errors.New("watcher is not running")
)

// Status is a point-in-time snapshot for /status.
type Status struct {
	State             State
	Interval          time.Duration
	Remaining         time.Duration
	Cycles            int
	LastCycleStart    time.Time
	LastCycleDuration time.Duration
	LastCycleStats    CycleStats
}

// Runner executes one full polling pass.
type Runner interface {
	RunCycle(ctx context.Context) CycleStats
}

type SchedulerConfig struct {
	Interval    time.Duration
	MinInterval time.Duration
}

// Scheduler counts down to the next cycle. All mutable state lives in the Run
// goroutine; the public methods only post commands on the control channel, so
// no lock guards the state machine.
type Scheduler struct {
	runner Runner
	log    logx.Logger
	ctrl   chan command

	initial time.Duration
	min     time.Duration
	tick    time.Duration
}

type cmdKind int

const (
	cmdStatus cmdKind = iota
	cmdPause
	cmdResume
	cmdForce
	cmdSetInterval
)

type command struct {
	kind     cmdKind
	interval time.Duration
	reply    chan cmdResult
}

type cmdResult struct {
	status Status
	err    error
}

func NewScheduler(cfg SchedulerConfig, runner Runner, log logx.Logger) *Scheduler {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 5 * time.Minute
	}
	if cfg.Interval < cfg.MinInterval {
		cfg.Interval = cfg.MinInterval
	}
	return &Scheduler{
		runner:  runner,
		log:     log.With(logx.String("svc", "watch")),
		ctrl:    make(chan command),
		initial: cfg.Interval,
		min:     cfg.MinInterval,
		tick:    time.Second,
	}
}

// Run drives the countdown until ctx is cancelled. It is the sole consumer of
// the control channel.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	m := newMachine(s.initial, s.min)
	var done chan cycleOutcome

	start := func() {
		m.state = StateCycling
		m.lastStart = time.Now()
		done = make(chan cycleOutcome, 1)
		go func(started time.Time) {
			stats := s.runner.RunCycle(ctx)
			done <- cycleOutcome{stats: stats, elapsed: time.Since(started)}
		}(m.lastStart)
	}

	s.log.Info("watcher started",
		logx.Duration("interval", m.interval),
		logx.Duration("min_interval", m.min))

	for {
		select {
		case <-ctx.Done():
			if done != nil {
				<-done
			}
			s.log.Info("watcher stopped")
			return

		case <-ticker.C:
			if m.state != StateIdle {
				continue
			}
			if m.countdown(s.tick) {
				s.log.Info("interval elapsed, starting cycle")
				start()
			}

		case out := <-done:
			done = nil
			m.finishCycle(out)
			s.log.Info("cycle finished",
				logx.Int("cycles", m.cycles),
				logx.Duration("elapsed", out.elapsed),
				logx.String("stats", out.stats.String()))

		case cmd := <-s.ctrl:
			var err error
			switch cmd.kind {
			case cmdPause:
				err = m.pause()
			case cmdResume:
				err = m.resume()
			case cmdForce:
				if err = m.force(); err == nil {
					s.log.Info("cycle forced")
					start()
				}
			case cmdSetInterval:
				err = m.setInterval(cmd.interval)
			}
			cmd.reply <- cmdResult{status: m.status(), err: err}
		}
	}
}

func (s *Scheduler) post(ctx context.Context, cmd command) (Status, error) {
	cmd.reply = make(chan cmdResult, 1)
	select {
	case s.ctrl <- cmd:
	case <-ctx.Done():
		return Status{}, fmt.Errorf("%w: %v", ErrStopped, ctx.Err())
	}
	select {
	case res := <-cmd.reply:
		return res.status, res.err
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

func (s *Scheduler) Status(ctx context.Context) (Status, error) {
	return s.post(ctx, command{kind: cmdStatus})
}

func (s *Scheduler) Pause(ctx context.Context) error {
	_, err := s.post(ctx, command{kind: cmdPause})
	return err
}

func (s *Scheduler) Resume(ctx context.Context) error {
	_, err := s.post(ctx, command{kind: cmdResume})
	return err
}

// ForceNow starts a cycle immediately. Rejected while paused or while a cycle
// is already in flight.
func (s *Scheduler) ForceNow(ctx context.Context) error {
	_, err := s.post(ctx, command{kind: cmdForce})
	return err
}

// SetInterval changes the polling interval, subject to the configured floor.
func (s *Scheduler) SetInterval(ctx context.Context, d time.Duration) error {
	_, err := s.post(ctx, command{kind: cmdSetInterval, interval: d})
	return err
}

type cycleOutcome struct {
	stats   CycleStats
	elapsed time.Duration
}

// machine is the scheduler state proper, kept free of goroutines and clocks
// so transitions can be tested directly.
type machine struct {
	state     State
	interval  time.Duration
	remaining time.Duration
	min       time.Duration

	// pause requested while a cycle was in flight; applied when it ends.
	pauseAfterCycle bool

	cycles       int
	lastStart    time.Time
	lastDuration time.Duration
	lastStats    CycleStats
}

func newMachine(interval, min time.Duration) *machine {
	return &machine{state: StateIdle, interval: interval, remaining: interval, min: min}
}

func (m *machine) countdown(step time.Duration) (due bool) {
	m.remaining -= step
	return m.remaining <= 0
}

// pause discards the running countdown: a paused watcher shows zero time
// remaining, not "about to run".
func (m *machine) pause() error {
	switch m.state {
	case StatePaused:
		return nil
	case StateCycling:
		m.pauseAfterCycle = true
	default:
		m.state = StatePaused
		m.remaining = 0
	}
	return nil
}

// resume restarts the countdown from a full interval.
func (m *machine) resume() error {
	m.pauseAfterCycle = false
	if m.state == StatePaused {
		m.state = StateIdle
		m.remaining = m.interval
	}
	return nil
}

func (m *machine) force() error {
	switch m.state {
	case StatePaused:
		return ErrPaused
	case StateCycling:
		return ErrCycling
	}
	return nil
}

// setInterval clamps the running countdown downward only: shrinking the
// interval below the remaining time brings the next cycle closer, growing it
// never postpones a countdown already under way.
func (m *machine) setInterval(d time.Duration) error {
	if d < m.min {
		return fmt.Errorf("interval %s below the %s floor", d, m.min)
	}
	m.interval = d
	if m.remaining > d {
		m.remaining = d
	}
	return nil
}

func (m *machine) finishCycle(out cycleOutcome) {
	m.cycles++
	m.lastDuration = out.elapsed
	m.lastStats = out.stats
	if m.pauseAfterCycle {
		m.pauseAfterCycle = false
		m.state = StatePaused
		m.remaining = 0
	} else {
		m.state = StateIdle
		m.remaining = m.interval
	}
}

func (m *machine) status() Status {
	return Status{
		State:             m.state,
		Interval:          m.interval,
		Remaining:         m.remaining,
		Cycles:            m.cycles,
		LastCycleStart:    m.lastStart,
		LastCycleDuration: m.lastDuration,
		LastCycleStats:    m.lastStats,
	}
}
