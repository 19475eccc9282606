// Package notify fans announcements out to Discord and Telegram.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Sender delivers one message to one channel
type Sender interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// Notifier sends every message to all configured senders
type Notifier struct {
	senders []Sender
}

// New creates a notifier. Nil senders are skipped.
func New(senders ...Sender) *Notifier {
	n := &Notifier{}
	for _, s := range senders {
		if s != nil {
			n.senders = append(n.senders, s)
		}
	}
	return n
}

// Notify sends msg to every sender concurrently and returns the first error.
// A failing sender does not stop the others.
func (n *Notifier) Notify(ctx context.Context, msg string) error {
	var g errgroup.Group
	for _, s := range n.senders {
		s := s
		g.Go(func() error {
			if err := s.Send(ctx, msg); err != nil {
				slog.Error("Failed to send notification", "channel", s.Name(), "error", err)
				return fmt.Errorf("%s: %w", s.Name(), err)
			}
			slog.Debug("Notification sent", "channel", s.Name())
			return nil
		})
	}
	return g.Wait()
}

// OnlineMessage announces a controller connecting to a watched position
func OnlineMessage(callsign, name, cid string) string {
	return fmt.Sprintf("🌐 **%s** %s - %s is now online.", callsign, name, cid)
}

// OfflineMessage announces a watched position closing
func OfflineMessage(callsign string) string {
	return fmt.Sprintf("💤 **%s** is now offline.", callsign)
}

// RogueMessage warns about a non-roster CID on a watched position
func RogueMessage(callsign, name, cid string) string {
	return fmt.Sprintf("⚠️ **ROGUE CONNECTION DETECTED**\nController: %s (%s)\nCID: %s\nThis controller is not in the vACC roster!",
		callsign, name, cid)
}
