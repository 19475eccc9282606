package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MessageSender is the part of *bot.Bot used to post messages
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramOptions controls delivery retries
type TelegramOptions struct {
	MaxAttempts    int
	RetryDelay     time.Duration
	AttemptTimeout time.Duration
}

// Telegram posts to one Telegram channel, retrying timeouts
type Telegram struct {
	bot    MessageSender
	chatID string
	opts   TelegramOptions
}

// NewTelegram creates a Telegram sender for the chat
func NewTelegram(b MessageSender, chatID string, opts TelegramOptions) *Telegram {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 15 * time.Second
	}
	return &Telegram{bot: b, chatID: chatID, opts: opts}
}

func (t *Telegram) Name() string { return "telegram" }

// Send converts the message to Telegram HTML and posts it
func (t *Telegram) Send(ctx context.Context, text string) error {
	params := &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      TelegramHTML(text),
		ParseMode: models.ParseModeHTML,
	}

	attempt := 0
	op := func() error {
		attempt++
		actx, cancel := context.WithTimeout(ctx, t.opts.AttemptTimeout)
		defer cancel()

		_, err := t.bot.SendMessage(actx, params)
		if err == nil {
			return nil
		}
		if ctx.Err() == nil && isTimeout(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("Telegram notification timed out, retrying",
			"attempt", attempt, "max_attempts", t.opts.MaxAttempts, "retry_in", wait, "error", err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(t.opts.RetryDelay), uint64(t.opts.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("telegram send failed after %d attempts: %w", attempt, err)
		}
		return err
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var (
	shortcodes = strings.NewReplacer(
		":globe_with_meridians:", "🌐",
		":zzz:", "💤",
		":warning:", "⚠️",
	)
	boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// TelegramHTML converts a Discord-formatted message into Telegram HTML
func TelegramHTML(msg string) string {
	msg = html.EscapeString(msg)
	msg = shortcodes.Replace(msg)
	return boldPattern.ReplaceAllString(msg, "<b>$1</b>")
}
