// Package transport defines the messenger-neutral types and the Adapter
// interface the rest of the bot is written against.
package transport

import "context"

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
}

type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Adapter is implemented by a concrete messenger backend (Telegram).
//
// SendResource delivers a file from local disk (activity snapshots). A path
// that does not exist yields an error wrapping ErrResourceNotFound.
type Adapter interface {
	Start(ctx context.Context, out chan<- Message) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	SendResource(ctx context.Context, to ChatTarget, path string) error
}
