// Package router parses chat commands and dispatches them to handlers.
package router

import (
	"context"
	"strings"
	"time"

	"elearnbot/internal/store"
	"elearnbot/internal/transport"
	"elearnbot/internal/watch"
	logx "elearnbot/pkg/logx"
)

const unknownReply = "Unknown command. Try /help."

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

type Command struct {
	Name        string
	Description string
	Usage       string
	Access      Access
	Timeout     time.Duration // optional per-command override
	Handle      HandlerFunc
}

type Request struct {
	Msg     transport.Message
	Command string
	Args    []string

	Adapter transport.Adapter
	Logger  logx.Logger
}

// Reply sends text back to the requesting chat.
func (r *Request) Reply(ctx context.Context, text string) error {
	_, err := r.Adapter.SendText(ctx, transport.ChatTarget{ChatID: r.Msg.ChatID}, text,
		&transport.SendOptions{DisablePreview: true})
	return err
}

// SchedulerPort is the watcher control surface the admin commands drive.
type SchedulerPort interface {
	Status(ctx context.Context) (watch.Status, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	ForceNow(ctx context.Context) error
	SetInterval(ctx context.Context, d time.Duration) error
}

type SubscriberStore interface {
	EnsureSubscriber(ctx context.Context, chatID int64) (*store.Subscriber, error)
	GetSubscriberByChat(ctx context.Context, chatID int64) (*store.Subscriber, error)
	GetSubscriberByEmail(ctx context.Context, email string) (*store.Subscriber, error)
	UpdateSubscriber(ctx context.Context, sub *store.Subscriber) error
	ListSubscribers(ctx context.Context, filter store.ListFilter) ([]*store.Subscriber, error)
	SetBlocked(ctx context.Context, id string, blocked bool) error
	CountFingerprints(ctx context.Context, subscriberID string) (int, error)
}

// Secrets seals credentials before they reach the store.
type Secrets interface {
	Encrypt(plaintext string) ([]byte, error)
}

type Config struct {
	// AdminChatID is the single operator. Privileged commands from anyone
	// else answer exactly like an unknown command, so the privileged
	// surface stays invisible.
	AdminChatID int64
	// EmailDomain restricts /email registrations when set.
	EmailDomain string
	// CommandTimeout is the default per-command deadline.
	CommandTimeout time.Duration
}

type Router struct {
	cfg      Config
	adapter  transport.Adapter
	subs     SubscriberStore
	secrets  Secrets
	sched    SchedulerPort
	log      logx.Logger
	commands map[string]Command
	order    []string
}

func New(cfg Config, adapter transport.Adapter, subs SubscriberStore, secrets Secrets, sched SchedulerPort, log logx.Logger) *Router {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 30 * time.Second
	}
	r := &Router{
		cfg:      cfg,
		adapter:  adapter,
		subs:     subs,
		secrets:  secrets,
		sched:    sched,
		log:      log.With(logx.String("svc", "router")),
		commands: map[string]Command{},
	}
	r.register(r.userCommands()...)
	r.register(r.adminCommands()...)
	return r
}

func (r *Router) register(cmds ...Command) {
	for _, c := range cmds {
		if c.Name == "" || c.Handle == nil {
			continue
		}
		if _, dup := r.commands[c.Name]; !dup {
			r.order = append(r.order, c.Name)
		}
		r.commands[c.Name] = c
	}
}

// Run consumes inbound messages until ctx is cancelled.
func (r *Router) Run(ctx context.Context, in <-chan transport.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			go r.HandleMessage(ctx, msg)
		}
	}
}

// HandleMessage routes one inbound message. Non-command text is ignored.
func (r *Router) HandleMessage(ctx context.Context, msg transport.Message) {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	parts := strings.Fields(text)
	word := strings.TrimPrefix(parts[0], "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	args := parts[1:]

	cmd, ok := r.commands[word]
	if !ok || (cmd.Access == AccessOwnerOnly && !r.isOwner(msg.ChatID)) {
		_, _ = r.adapter.SendText(ctx, transport.ChatTarget{ChatID: msg.ChatID}, unknownReply, nil)
		return
	}

	req := &Request{
		Msg:     msg,
		Command: cmd.Name,
		Args:    args,
		Adapter: r.adapter,
		Logger: r.log.With(
			logx.Int64("chat_id", msg.ChatID),
			logx.String("cmd", cmd.Name),
		),
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.cfg.CommandTimeout
	}
	final := Chain(
		cmd.Handle,
		MWPanicRecover(r.log),
		MWRequestLog(r.log),
		MWTimeout(timeout),
	)
	_ = final(ctx, req)
}

func (r *Router) isOwner(chatID int64) bool {
	return r.cfg.AdminChatID != 0 && chatID == r.cfg.AdminChatID
}

func (r *Router) helpText(owner bool) string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, name := range r.order {
		c := r.commands[name]
		if c.Access == AccessOwnerOnly && !owner {
			continue
		}
		b.WriteString(c.Usage)
		b.WriteString(" - ")
		b.WriteString(c.Description)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
