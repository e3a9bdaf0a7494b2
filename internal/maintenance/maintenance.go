// Package maintenance runs background housekeeping on cron schedules:
// snapshot pruning and the daily operator report.
package maintenance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"elearnbot/internal/transport"
	"elearnbot/internal/watch"
	logx "elearnbot/pkg/logx"
)

type Config struct {
	PruneSpec      string // cron spec, default "0 3 * * *"
	ReportSpec     string // cron spec, default "0 8 * * *"
	SnapshotDir    string
	SnapshotMaxAge time.Duration // default 14 days
	AdminChatID    int64
}

// StatusSource feeds the operator report.
type StatusSource interface {
	Status(ctx context.Context) (watch.Status, error)
}

type Service struct {
	cfg     Config
	cron    *cron.Cron
	status  StatusSource
	adapter transport.Adapter
	log     logx.Logger
}

func New(cfg Config, status StatusSource, adapter transport.Adapter, log logx.Logger) *Service {
	if cfg.PruneSpec == "" {
		cfg.PruneSpec = "0 3 * * *"
	}
	if cfg.ReportSpec == "" {
		cfg.ReportSpec = "0 8 * * *"
	}
	if cfg.SnapshotMaxAge <= 0 {
		cfg.SnapshotMaxAge = 14 * 24 * time.Hour
	}
	return &Service{
		cfg:     cfg,
		cron:    cron.New(),
		status:  status,
		adapter: adapter,
		log:     log.With(logx.String("svc", "maintenance")),
	}
}

func (s *Service) Start(ctx context.Context) error {
	if s.cfg.SnapshotDir != "" {
		if _, err := s.cron.AddFunc(s.cfg.PruneSpec, func() { s.pruneSnapshots() }); err != nil {
			return fmt.Errorf("prune spec %q: %w", s.cfg.PruneSpec, err)
		}
	}
	if s.status != nil && s.adapter != nil && s.cfg.AdminChatID != 0 {
		if _, err := s.cron.AddFunc(s.cfg.ReportSpec, func() { s.dailyReport(ctx) }); err != nil {
			return fmt.Errorf("report spec %q: %w", s.cfg.ReportSpec, err)
		}
	}
	s.cron.Start()
	s.log.Info("maintenance started",
		logx.String("prune_spec", s.cfg.PruneSpec),
		logx.String("report_spec", s.cfg.ReportSpec))
	return nil
}

func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("maintenance stopped")
}

// pruneSnapshots removes snapshot files past their retention. Fingerprints
// are unaffected; a pruned snapshot only degrades a future notification to
// text-only.
func (s *Service) pruneSnapshots() {
	n, err := pruneDir(s.cfg.SnapshotDir, s.cfg.SnapshotMaxAge, time.Now())
	if err != nil {
		s.log.Warn("snapshot prune failed", logx.Err(err))
		return
	}
	if n > 0 {
		s.log.Info("pruned old snapshots", logx.Int("removed", n))
	}
}

func pruneDir(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := now.Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (s *Service) dailyReport(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	st, err := s.status.Status(rctx)
	if err != nil {
		s.log.Warn("daily report: watcher status unavailable", logx.Err(err))
		return
	}
	text := fmt.Sprintf("Daily report\nState: %s\nInterval: %s\nCycles run: %d\nLast cycle: %s",
		st.State, st.Interval, st.Cycles, st.LastCycleStats)
	if _, err := s.adapter.SendText(rctx, transport.ChatTarget{ChatID: s.cfg.AdminChatID}, text,
		&transport.SendOptions{DisablePreview: true}); err != nil {
		s.log.Warn("daily report delivery failed", logx.Err(err))
	}
}
