package router

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"elearnbot/internal/store"
	"elearnbot/internal/transport"
	"elearnbot/internal/watch"
)

func (r *Router) adminCommands() []Command {
	return []Command{
		{
			Name:        "status",
			Description: "watcher state and last cycle summary",
			Usage:       "/status",
			Access:      AccessOwnerOnly,
			Handle:      r.cmdStatus,
		},
		{
			Name:        "pause",
			Description: "pause the watcher countdown",
			Usage:       "/pause",
			Access:      AccessOwnerOnly,
			Handle:      r.cmdPause,
		},
		{
			Name:        "resume",
			Description: "resume a paused watcher",
			Usage:       "/resume",
			Access:      AccessOwnerOnly,
			Handle:      r.cmdResume,
		},
		{
			Name:        "force",
			Description: "start a polling cycle immediately",
			Usage:       "/force",
			Access:      AccessOwnerOnly,
			Handle:      r.cmdForce,
		},
		{
			Name:        "interval",
			Description: "change the polling interval",
			Usage:       "/interval <minutes>",
			Access:      AccessOwnerOnly,
			Handle:      r.cmdInterval,
		},
		{
			Name:        "users",
			Description: "list subscribers",
			Usage:       "/users [all|active|inactive|blocked|unblocked] [offset] [limit]",
			Access:      AccessOwnerOnly,
			Handle:      r.cmdUsers,
		},
		{
			Name:        "inspect",
			Description: "show one subscriber's record",
			Usage:       "/inspect <chat_id|email>",
			Access:      AccessOwnerOnly,
			Handle:      r.cmdInspect,
		},
		{
			Name:        "block",
			Description: "exclude a subscriber from all processing",
			Usage:       "/block <chat_id|email>",
			Access:      AccessOwnerOnly,
			Handle:      r.blockCmd(true),
		},
		{
			Name:        "unblock",
			Description: "lift a block",
			Usage:       "/unblock <chat_id|email>",
			Access:      AccessOwnerOnly,
			Handle:      r.blockCmd(false),
		},
		{
			Name:        "broadcast",
			Description: "message every active subscriber",
			Usage:       "/broadcast <text>",
			Access:      AccessOwnerOnly,
			Timeout:     5 * time.Minute,
			Handle:      r.cmdBroadcast,
		},
		{
			Name:        "send",
			Description: "message one chat",
			Usage:       "/send <chat_id> <text>",
			Access:      AccessOwnerOnly,
			Handle:      r.cmdSend,
		},
	}
}

func (r *Router) cmdStatus(ctx context.Context, req *Request) error {
	st, err := r.sched.Status(ctx)
	if err != nil {
		return req.Reply(ctx, "Watcher is not running: "+err.Error())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "State: %s\n", st.State)
	fmt.Fprintf(&b, "Interval: %s\n", st.Interval)
	fmt.Fprintf(&b, "Next cycle in: %s\n", st.Remaining.Round(time.Second))
	fmt.Fprintf(&b, "Cycles run: %d\n", st.Cycles)
	if !st.LastCycleStart.IsZero() {
		fmt.Fprintf(&b, "Last cycle: %s (%s)\n%s",
			st.LastCycleStart.Format(time.RFC3339),
			st.LastCycleDuration.Round(time.Millisecond),
			st.LastCycleStats)
	}
	return req.Reply(ctx, strings.TrimRight(b.String(), "\n"))
}

func (r *Router) cmdPause(ctx context.Context, req *Request) error {
	if err := r.sched.Pause(ctx); err != nil {
		return req.Reply(ctx, "Pause failed: "+err.Error())
	}
	return req.Reply(ctx, "Watcher paused.")
}

func (r *Router) cmdResume(ctx context.Context, req *Request) error {
	if err := r.sched.Resume(ctx); err != nil {
		return req.Reply(ctx, "Resume failed: "+err.Error())
	}
	return req.Reply(ctx, "Watcher resumed.")
}

func (r *Router) cmdForce(ctx context.Context, req *Request) error {
	err := r.sched.ForceNow(ctx)
	switch {
	case errors.Is(err, watch.ErrPaused):
		return req.Reply(ctx, "Watcher is paused. /resume it first.")
	case errors.Is(err, watch.ErrCycling):
		return req.Reply(ctx, "A cycle is already running.")
	case err != nil:
		return req.Reply(ctx, "Force failed: "+err.Error())
	}
	return req.Reply(ctx, "Cycle started.")
}

func (r *Router) cmdInterval(ctx context.Context, req *Request) error {
	if len(req.Args) != 1 {
		return req.Reply(ctx, "Usage: /interval <minutes>")
	}
	minutes, err := strconv.Atoi(req.Args[0])
	if err != nil {
		return req.Reply(ctx, fmt.Sprintf("%q is not a number of minutes.", req.Args[0]))
	}
	if err := r.sched.SetInterval(ctx, time.Duration(minutes)*time.Minute); err != nil {
		return req.Reply(ctx, "Interval rejected: "+err.Error())
	}
	return req.Reply(ctx, fmt.Sprintf("Interval set to %dm.", minutes))
}

// parsePage clamps offset and limit into [0, n]. Out-of-range values are
// usable requests, not errors; only non-numeric input is bounced back.
func parsePage(args []string, n int) (offset, limit int, err error) {
	offset, limit = 0, n
	if len(args) > 0 {
		offset, err = strconv.Atoi(args[0])
		if err != nil {
			return 0, 0, fmt.Errorf("offset %q is not a number", args[0])
		}
	}
	if len(args) > 1 {
		limit, err = strconv.Atoi(args[1])
		if err != nil {
			return 0, 0, fmt.Errorf("limit %q is not a number", args[1])
		}
	}
	offset = clamp(offset, 0, n)
	limit = clamp(limit, 0, n-offset)
	return offset, limit, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (r *Router) cmdUsers(ctx context.Context, req *Request) error {
	filter := store.FilterAll
	args := req.Args
	if len(args) > 0 {
		if _, err := strconv.Atoi(args[0]); err != nil {
			filter = store.ListFilter(args[0])
			args = args[1:]
		}
	}
	subs, err := r.subs.ListSubscribers(ctx, filter)
	if err != nil {
		return req.Reply(ctx, "Listing failed: "+err.Error())
	}
	offset, limit, err := parsePage(args, len(subs))
	if err != nil {
		return req.Reply(ctx, err.Error())
	}
	page := subs[offset : offset+limit]
	if len(page) == 0 {
		return req.Reply(ctx, fmt.Sprintf("No subscribers in range (%d total).", len(subs)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Subscribers %d-%d of %d (%s):\n", offset, offset+len(page)-1, len(subs), filter)
	for _, sub := range page {
		b.WriteString(formatSubscriber(sub))
		b.WriteString("\n")
	}
	return req.Reply(ctx, strings.TrimRight(b.String(), "\n"))
}

func formatSubscriber(sub *store.Subscriber) string {
	flags := make([]string, 0, 3)
	if sub.Active {
		flags = append(flags, "active")
	} else {
		flags = append(flags, "inactive")
	}
	if sub.Blocked {
		flags = append(flags, "blocked")
	}
	if sub.HasCredential() {
		flags = append(flags, "credentialed")
	}
	email := sub.Email
	if email == "" {
		email = "<no email>"
	}
	return fmt.Sprintf("%d %s [%s]", sub.ChatID, email, strings.Join(flags, ","))
}

// lookupSubscriberArg resolves the first argument as either a chat id or a
// stored email address.
func (r *Router) lookupSubscriberArg(ctx context.Context, req *Request) (*store.Subscriber, bool, error) {
	if len(req.Args) < 1 {
		return nil, false, req.Reply(ctx, "Usage: "+r.commands[req.Command].Usage)
	}
	arg := req.Args[0]

	var (
		sub *store.Subscriber
		err error
	)
	if strings.ContainsRune(arg, '@') {
		sub, err = r.subs.GetSubscriberByEmail(ctx, strings.ToLower(arg))
	} else {
		chatID, perr := strconv.ParseInt(arg, 10, 64)
		if perr != nil {
			return nil, false, req.Reply(ctx, fmt.Sprintf("%q is not a chat id or email.", arg))
		}
		sub, err = r.subs.GetSubscriberByChat(ctx, chatID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, req.Reply(ctx, "No subscriber matches "+arg+".")
	}
	if err != nil {
		return nil, false, req.Reply(ctx, "Lookup failed: "+err.Error())
	}
	return sub, true, nil
}

func (r *Router) cmdInspect(ctx context.Context, req *Request) error {
	sub, ok, err := r.lookupSubscriberArg(ctx, req)
	if !ok {
		return err
	}
	fingerprints, err := r.subs.CountFingerprints(ctx, sub.ID)
	if err != nil {
		return req.Reply(ctx, "Lookup failed: "+err.Error())
	}
	return req.Reply(ctx, fmt.Sprintf(
		"%s\nid: %s\nfingerprints: %d\ncreated: %s\nupdated: %s",
		formatSubscriber(sub), sub.ID, fingerprints,
		sub.CreatedAt.Format(time.RFC3339), sub.UpdatedAt.Format(time.RFC3339)))
}

func (r *Router) blockCmd(block bool) HandlerFunc {
	return func(ctx context.Context, req *Request) error {
		sub, ok, err := r.lookupSubscriberArg(ctx, req)
		if !ok {
			return err
		}
		if err := r.subs.SetBlocked(ctx, sub.ID, block); err != nil {
			return req.Reply(ctx, "Update failed: "+err.Error())
		}
		if block {
			return req.Reply(ctx, fmt.Sprintf("Blocked %d.", sub.ChatID))
		}
		return req.Reply(ctx, fmt.Sprintf("Unblocked %d.", sub.ChatID))
	}
}

func (r *Router) cmdBroadcast(ctx context.Context, req *Request) error {
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(req.Msg.Text), "/broadcast"))
	if text == "" {
		return req.Reply(ctx, "Usage: /broadcast <text>")
	}
	// Operator announcements reach everyone, including subscribers who
	// muted their own notifications; only blocked chats are skipped.
	subs, err := r.subs.ListSubscribers(ctx, store.FilterAll)
	if err != nil {
		return req.Reply(ctx, "Listing failed: "+err.Error())
	}
	sent, failed := 0, 0
	for _, sub := range subs {
		if sub.Blocked {
			continue
		}
		if _, err := r.adapter.SendText(ctx, transport.ChatTarget{ChatID: sub.ChatID}, text, nil); err != nil {
			failed++
			continue
		}
		sent++
	}
	return req.Reply(ctx, fmt.Sprintf("Broadcast delivered to %d subscribers (%d failed).", sent, failed))
}

func (r *Router) cmdSend(ctx context.Context, req *Request) error {
	if len(req.Args) < 2 {
		return req.Reply(ctx, "Usage: /send <chat_id> <text>")
	}
	chatID, err := strconv.ParseInt(req.Args[0], 10, 64)
	if err != nil {
		return req.Reply(ctx, fmt.Sprintf("%q is not a chat id.", req.Args[0]))
	}
	text := strings.Join(req.Args[1:], " ")
	if _, err := r.adapter.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, nil); err != nil {
		return req.Reply(ctx, "Send failed: "+err.Error())
	}
	return req.Reply(ctx, "Sent.")
}
