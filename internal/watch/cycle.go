package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"elearnbot/internal/diff"
	"elearnbot/internal/elearn"
	"elearnbot/internal/store"
	"elearnbot/internal/transport"
	logx "elearnbot/pkg/logx"
)

// CycleStats summarizes one polling pass.
type CycleStats struct {
	Subscribers      int
	Notified         int
	Skipped          int
	AuthFailures     int
	FetchFailures    int
	StoreFailures    int
	DeliveryFailures int
}

func (s CycleStats) Failures() int {
	return s.AuthFailures + s.FetchFailures + s.StoreFailures + s.DeliveryFailures
}

func (s CycleStats) String() string {
	return fmt.Sprintf("subscribers=%d notified=%d skipped=%d auth_failures=%d fetch_failures=%d store_failures=%d delivery_failures=%d",
		s.Subscribers, s.Notified, s.Skipped, s.AuthFailures, s.FetchFailures, s.StoreFailures, s.DeliveryFailures)
}

type SubscriberSource interface {
	Eligible(ctx context.Context) ([]*store.Subscriber, error)
}

type CredentialCipher interface {
	Decrypt(sealed []byte) (string, error)
}

type CourseFetcher interface {
	FetchCourses(ctx context.Context, email, password string) ([]*elearn.Course, error)
}

type Differ interface {
	Diff(ctx context.Context, subscriberID string, course *elearn.Course) (*diff.ChangeEvent, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, chatID int64, ev *diff.ChangeEvent) error
}

type CycleRunnerConfig struct {
	// FetchTimeout bounds one subscriber's fetch and diff pass.
	FetchTimeout time.Duration
}

// CycleRunner walks all eligible subscribers sequentially. One subscriber's
// failure never aborts the batch; each failure class is counted and logged,
// and the cycle carries on with the next subscriber.
type CycleRunner struct {
	subs     SubscriberSource
	cipher   CredentialCipher
	fetcher  CourseFetcher
	differ   Differ
	notifier Notifier
	adapter  transport.Adapter
	timeout  time.Duration
	log      logx.Logger
}

func NewCycleRunner(cfg CycleRunnerConfig, subs SubscriberSource, cipher CredentialCipher, fetcher CourseFetcher, differ Differ, notifier Notifier, adapter transport.Adapter, log logx.Logger) *CycleRunner {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 3 * time.Minute
	}
	return &CycleRunner{
		subs:     subs,
		cipher:   cipher,
		fetcher:  fetcher,
		differ:   differ,
		notifier: notifier,
		adapter:  adapter,
		timeout:  cfg.FetchTimeout,
		log:      log.With(logx.String("svc", "cycle")),
	}
}

func (r *CycleRunner) RunCycle(ctx context.Context) CycleStats {
	var stats CycleStats
	subs, err := r.subs.Eligible(ctx)
	if err != nil {
		r.log.Error("listing eligible subscribers failed", logx.Err(err))
		stats.StoreFailures++
		return stats
	}
	stats.Subscribers = len(subs)

	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		r.runSubscriber(ctx, sub, &stats)
	}
	return stats
}

func (r *CycleRunner) runSubscriber(ctx context.Context, sub *store.Subscriber, stats *CycleStats) {
	log := r.log.With(logx.Int64("chat_id", sub.ChatID))

	if sub.Email == "" || !sub.HasCredential() {
		stats.Skipped++
		log.Debug("skipping subscriber without credentials")
		return
	}

	password, err := r.cipher.Decrypt(sub.Credential)
	if err != nil {
		stats.StoreFailures++
		log.Error("credential decrypt failed", logx.Err(err))
		return
	}

	fctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	courses, err := r.fetcher.FetchCourses(fctx, sub.Email, password)
	if err != nil {
		if errors.Is(err, elearn.ErrAuth) {
			stats.AuthFailures++
			log.Warn("credentials rejected by site")
			r.tellSubscriber(ctx, sub.ChatID,
				"⚠️ The e-learning site rejected your credentials. Update them with /password.")
		} else {
			stats.FetchFailures++
			log.Warn("course fetch failed", logx.Err(err))
		}
		return
	}

	notified := false
	for _, course := range courses {
		ev, err := r.differ.Diff(fctx, sub.ID, course)
		if err != nil {
			stats.StoreFailures++
			log.Error("diff failed", logx.String("course", course.URL), logx.Err(err))
			return
		}
		if ev == nil || ev.ActivityCount() == 0 {
			continue
		}
		if err := r.notifier.Dispatch(ctx, sub.ChatID, ev); err != nil {
			stats.DeliveryFailures++
			log.Warn("notification delivery failed", logx.Err(err))
			return
		}
		notified = true
	}
	if notified {
		stats.Notified++
	}
}

func (r *CycleRunner) tellSubscriber(ctx context.Context, chatID int64, text string) {
	if r.adapter == nil {
		return
	}
	if _, err := r.adapter.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, nil); err != nil {
		r.log.Warn("subscriber notice failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}
