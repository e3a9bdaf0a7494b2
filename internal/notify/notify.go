// Package notify renders change events into chat messages and delivers them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"elearnbot/internal/diff"
	"elearnbot/internal/transport"
	logx "elearnbot/pkg/logx"
)

// Dispatcher fans one change event out to its subscriber: one course header
// message, then one message plus snapshot per changed activity.
type Dispatcher struct {
	adapter transport.Adapter
	log     logx.Logger
}

func NewDispatcher(adapter transport.Adapter, log logx.Logger) *Dispatcher {
	return &Dispatcher{adapter: adapter, log: log.With(logx.String("svc", "notify"))}
}

// Dispatch delivers one event to chatID. A missing snapshot file is reported
// and skipped; remaining activities still go out. Any text send failure aborts
// the rest of the event for this subscriber, since the chat is unreachable.
func (d *Dispatcher) Dispatch(ctx context.Context, chatID int64, ev *diff.ChangeEvent) error {
	if ev == nil || ev.ActivityCount() == 0 {
		return nil
	}
	to := transport.ChatTarget{ChatID: chatID}
	opt := &transport.SendOptions{DisablePreview: true}

	header := fmt.Sprintf("📚 %s has updates\n%s", ev.CourseName, ev.CourseURL)
	if _, err := d.adapter.SendText(ctx, to, header, opt); err != nil {
		return fmt.Errorf("send course header: %w", err)
	}

	for _, sec := range ev.Sections {
		for _, act := range sec.Activities {
			if _, err := d.adapter.SendText(ctx, to, activityMessage(sec.Name, act.Text, act.Links), opt); err != nil {
				return fmt.Errorf("send activity %q: %w", act.Text, err)
			}
			if act.SnapshotPath == "" {
				continue
			}
			if err := d.adapter.SendResource(ctx, to, act.SnapshotPath); err != nil {
				if errors.Is(err, transport.ErrResourceNotFound) {
					d.log.Warn("activity snapshot missing",
						logx.Int64("chat_id", chatID),
						logx.String("path", act.SnapshotPath))
					continue
				}
				return fmt.Errorf("send snapshot %s: %w", act.SnapshotPath, err)
			}
		}
	}
	return nil
}

func activityMessage(section, text string, links []string) string {
	var b strings.Builder
	b.WriteString("🔔 ")
	b.WriteString(section)
	b.WriteString("\n\n")
	b.WriteString(text)
	for _, l := range links {
		b.WriteString("\n")
		b.WriteString(l)
	}
	return b.String()
}
