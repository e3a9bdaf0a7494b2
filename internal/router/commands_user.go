package router

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// validEmail checks shape plus the configured domain restriction.
func validEmail(addr, domain string) bool {
	if !emailRe.MatchString(addr) {
		return false
	}
	if domain == "" {
		return true
	}
	at := strings.LastIndexByte(addr, '@')
	return strings.EqualFold(addr[at+1:], domain)
}

func (r *Router) userCommands() []Command {
	return []Command{
		{
			Name:        "start",
			Description: "register and subscribe to course updates",
			Usage:       "/start",
			Handle:      r.cmdStart,
		},
		{
			Name:        "help",
			Description: "show available commands",
			Usage:       "/help",
			Handle: func(ctx context.Context, req *Request) error {
				return req.Reply(ctx, r.helpText(r.isOwner(req.Msg.ChatID)))
			},
		},
		{
			Name:        "email",
			Description: "show or set your e-learning account email",
			Usage:       "/email [address]",
			Handle:      r.cmdEmail,
		},
		{
			Name:        "password",
			Description: "set your e-learning password (stored encrypted)",
			Usage:       "/password <secret>",
			Handle:      r.cmdPassword,
		},
		{
			Name:        "toggle_notifications",
			Description: "pause or resume your own notifications",
			Usage:       "/toggle_notifications",
			Handle:      r.cmdToggle,
		},
	}
}

func (r *Router) cmdStart(ctx context.Context, req *Request) error {
	sub, err := r.subs.EnsureSubscriber(ctx, req.Msg.ChatID)
	if err != nil {
		_ = req.Reply(ctx, "Something went wrong, please try again later.")
		return err
	}
	if sub.Email != "" && sub.HasCredential() {
		return req.Reply(ctx, "You are already set up. I will message you when your courses change.")
	}
	return req.Reply(ctx,
		"Welcome! I watch your e-learning courses and message you when something changes.\n"+
			"Set up your account:\n"+
			"1. /email your.name@"+orAny(r.cfg.EmailDomain)+"\n"+
			"2. /password your-site-password")
}

func orAny(domain string) string {
	if domain == "" {
		return "example.com"
	}
	return domain
}

func (r *Router) cmdEmail(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		sub, err := r.subs.EnsureSubscriber(ctx, req.Msg.ChatID)
		if err != nil {
			_ = req.Reply(ctx, "Something went wrong, please try again later.")
			return err
		}
		if sub.Email == "" {
			return req.Reply(ctx, "No email address set. Send /email <address> to set one.")
		}
		return req.Reply(ctx, "Your email address is "+sub.Email+".")
	}
	if len(req.Args) != 1 {
		return req.Reply(ctx, "Usage: /email <address>")
	}
	addr := strings.ToLower(strings.TrimSpace(req.Args[0]))
	if !validEmail(addr, r.cfg.EmailDomain) {
		if r.cfg.EmailDomain != "" {
			return req.Reply(ctx, fmt.Sprintf("That does not look like a valid @%s address.", r.cfg.EmailDomain))
		}
		return req.Reply(ctx, "That does not look like a valid email address.")
	}
	sub, err := r.subs.EnsureSubscriber(ctx, req.Msg.ChatID)
	if err != nil {
		_ = req.Reply(ctx, "Something went wrong, please try again later.")
		return err
	}
	sub.Email = addr
	if err := r.subs.UpdateSubscriber(ctx, sub); err != nil {
		_ = req.Reply(ctx, "Something went wrong, please try again later.")
		return err
	}
	if !sub.HasCredential() {
		return req.Reply(ctx, "Email saved. Now set your password with /password.")
	}
	return req.Reply(ctx, "Email updated.")
}

func (r *Router) cmdPassword(ctx context.Context, req *Request) error {
	sub, err := r.subs.EnsureSubscriber(ctx, req.Msg.ChatID)
	if err != nil {
		_ = req.Reply(ctx, "Something went wrong, please try again later.")
		return err
	}
	if len(req.Args) == 0 {
		// Presence only, the secret itself is never echoed back.
		if sub.HasCredential() {
			return req.Reply(ctx, "A password is on file. Send /password <secret> to replace it.")
		}
		return req.Reply(ctx, "No password on file. Send /password <secret> to set one.")
	}

	// Passwords may contain spaces; everything after the command counts.
	secret := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(req.Msg.Text), "/password"))
	sealed, err := r.secrets.Encrypt(secret)
	if err != nil {
		_ = req.Reply(ctx, "Something went wrong, please try again later.")
		return err
	}
	sub.Credential = sealed
	if err := r.subs.UpdateSubscriber(ctx, sub); err != nil {
		_ = req.Reply(ctx, "Something went wrong, please try again later.")
		return err
	}
	return req.Reply(ctx, "Password saved (encrypted). Delete your message above so it does not linger in the chat history.")
}

func (r *Router) cmdToggle(ctx context.Context, req *Request) error {
	sub, err := r.subs.EnsureSubscriber(ctx, req.Msg.ChatID)
	if err != nil {
		_ = req.Reply(ctx, "Something went wrong, please try again later.")
		return err
	}
	sub.Active = !sub.Active
	if err := r.subs.UpdateSubscriber(ctx, sub); err != nil {
		_ = req.Reply(ctx, "Something went wrong, please try again later.")
		return err
	}
	if sub.Active {
		return req.Reply(ctx, "Notifications are ON.")
	}
	return req.Reply(ctx, "Notifications are OFF. Send /toggle_notifications to turn them back on.")
}
