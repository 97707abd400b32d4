// Package transport defines the chat-platform boundary. Core code talks
// to the Adapter interface and the error classifiers below; only the
// telegram subpackage knows about telebot.
package transport

import (
	"context"
	"errors"
)

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type Message struct {
	ID       int
	ChatID   int64
	FromID   int64
	FromName string
	Text     string
	IsGroup  bool
}

type Callback struct {
	ID        string
	ChatID    int64
	FromID    int64
	FromName  string
	MessageID int
	Data      string
	IsGroup   bool
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
	ReplyTo        int // message id to quote-reply to (0: none)

	// ReplyMarkupAdapter carries adapter-specific markup
	// (Telegram: *telebot.ReplyMarkup).
	ReplyMarkupAdapter any
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	EditReplyMarkup(ctx context.Context, ref MessageRef, markup any) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

// Delivery failure classes. Adapters wrap platform errors with these
// sentinels so the broadcast loop can react without knowing the platform.
var (
	// ErrForbidden means the bot may no longer post to the chat (kicked,
	// blocked). The group is presumed gone and gets soft-deleted.
	ErrForbidden = errors.New("transport: forbidden")

	// ErrTimeout is a transient delivery timeout.
	ErrTimeout = errors.New("transport: timeout")

	// ErrNotModified means an edit produced no visible change. Callers
	// treat it as a silent success, not a fault.
	ErrNotModified = errors.New("transport: message not modified")
)

func IsForbidden(err error) bool   { return errors.Is(err, ErrForbidden) }
func IsTimeout(err error) bool     { return errors.Is(err, ErrTimeout) }
func IsNotModified(err error) bool { return errors.Is(err, ErrNotModified) }
