// Package tracker polls the network and announces watched positions
// opening and closing.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vattur/sectorbot/internal/database"
	"github.com/vattur/sectorbot/internal/notify"
	"github.com/vattur/sectorbot/internal/vatsim"
	"github.com/vattur/sectorbot/internal/watchlist"
)

// State of a watched callsign
type State string

const (
	StateUnknown State = "unknown"
	StateOnline  State = "online"
	StateOffline State = "offline"
)

// Source lists the controllers currently on the network
type Source interface {
	Controllers(ctx context.Context) ([]vatsim.Controller, error)
}

// Roster tells whether a CID belongs to the vACC
type Roster interface {
	Loaded() bool
	Contains(cid string) bool
}

// Notifier delivers announcements
type Notifier interface {
	Notify(ctx context.Context, msg string) error
}

// Status is the last known state of one callsign
type Status struct {
	Callsign string
	State    State
	Name     string
	CID      string
	Since    time.Time
}

type eventKind int

const (
	eventOnline eventKind = iota
	eventOffline
	eventRogue
	eventHandover
)

type event struct {
	kind eventKind
	ctrl vatsim.Controller
	at   time.Time
}

// Tracker holds per-callsign state between checks
type Tracker struct {
	source   Source
	watch    *watchlist.Watchlist
	roster   Roster
	notifier Notifier
	store    database.Store
	now      func() time.Time

	mu     sync.RWMutex
	states map[string]Status
	first  bool
}

// New creates a tracker. Every watched callsign starts unknown.
func New(source Source, watch *watchlist.Watchlist, roster Roster, notifier Notifier, store database.Store) *Tracker {
	t := &Tracker{
		source:   source,
		watch:    watch,
		roster:   roster,
		notifier: notifier,
		store:    store,
		now:      time.Now,
		states:   make(map[string]Status, watch.Len()),
		first:    true,
	}
	for _, cs := range watch.Callsigns() {
		t.states[cs] = Status{Callsign: cs, State: StateUnknown}
	}
	return t
}

// Check fetches the feed once and announces every transition
func (t *Tracker) Check(ctx context.Context) error {
	controllers, err := t.source.Controllers(ctx)
	if err != nil {
		return fmt.Errorf("fetching controllers: %w", err)
	}
	if len(controllers) == 0 {
		slog.Warn("Skipping status check, feed has no controllers")
		return nil
	}

	online := vatsim.Online(controllers)
	now := t.now()

	t.mu.Lock()
	first := t.first
	var (
		events []event
		stale  []string
	)
	for _, cs := range t.watch.Callsigns() {
		prev := t.states[cs]
		ctrl, ok := online[cs]
		switch {
		case ok:
			since := ctrl.LogonTime
			if since.IsZero() {
				since = now
			}
			if first || prev.State != StateOnline {
				events = append(events, event{kind: eventOnline, ctrl: ctrl, at: since})
				if t.roster.Loaded() && !t.roster.Contains(ctrl.CIDString()) {
					events = append(events, event{kind: eventRogue, ctrl: ctrl, at: now})
				}
			} else if prev.CID != ctrl.CIDString() {
				events = append(events, event{kind: eventHandover, ctrl: ctrl, at: since})
			}
			if prev.State == StateOnline && prev.CID == ctrl.CIDString() {
				since = prev.Since
			}
			t.states[cs] = Status{Callsign: cs, State: StateOnline, Name: ctrl.Name, CID: ctrl.CIDString(), Since: since}
		case prev.State == StateOnline:
			events = append(events, event{kind: eventOffline, ctrl: vatsim.Controller{Callsign: cs}, at: now})
			t.states[cs] = Status{Callsign: cs, State: StateOffline, Since: now}
		case first:
			stale = append(stale, cs)
		}
	}
	t.first = false
	t.mu.Unlock()

	for _, cs := range stale {
		if err := t.store.CloseSession(ctx, cs, now); err != nil {
			slog.Warn("Failed to close stale session", "callsign", cs, "error", err)
		}
	}

	for _, ev := range events {
		t.deliver(ctx, ev)
	}

	slog.Debug("Status check complete", "controllers", len(controllers), "events", len(events))
	return nil
}

func (t *Tracker) deliver(ctx context.Context, ev event) {
	var msg string
	cid := ev.ctrl.CIDString()

	switch ev.kind {
	case eventOnline:
		msg = notify.OnlineMessage(ev.ctrl.Callsign, ev.ctrl.Name, cid)
		slog.Info("Controller online", "callsign", ev.ctrl.Callsign, "name", ev.ctrl.Name, "cid", cid)
		t.openSession(ctx, ev.ctrl, ev.at)
	case eventOffline:
		msg = notify.OfflineMessage(ev.ctrl.Callsign)
		slog.Info("Controller offline", "callsign", ev.ctrl.Callsign)
		if err := t.store.CloseSession(ctx, ev.ctrl.Callsign, ev.at); err != nil {
			slog.Error("Failed to close session", "callsign", ev.ctrl.Callsign, "error", err)
		}
	case eventHandover:
		slog.Info("Controller changed on open position", "callsign", ev.ctrl.Callsign, "cid", cid)
		t.openSession(ctx, ev.ctrl, ev.at)
		return
	case eventRogue:
		msg = notify.RogueMessage(ev.ctrl.Callsign, ev.ctrl.Name, cid)
		slog.Warn("Rogue controller detected", "callsign", ev.ctrl.Callsign, "cid", cid)
		err := t.store.RecordRogue(ctx, database.RogueConnection{
			Callsign:   ev.ctrl.Callsign,
			CID:        cid,
			Name:       ev.ctrl.Name,
			DetectedAt: ev.at,
		})
		if err != nil {
			slog.Error("Failed to record rogue connection", "callsign", ev.ctrl.Callsign, "error", err)
		}
	}

	if err := t.notifier.Notify(ctx, msg); err != nil {
		slog.Error("Failed to deliver announcement", "callsign", ev.ctrl.Callsign, "error", err)
	}
}

func (t *Tracker) openSession(ctx context.Context, ctrl vatsim.Controller, at time.Time) {
	if _, err := t.store.OpenSession(ctx, ctrl.Callsign, ctrl.CIDString(), ctrl.Name, at); err != nil {
		slog.Error("Failed to open session", "callsign", ctrl.Callsign, "error", err)
	}
}

// Status returns the last known state of the callsign
func (t *Tracker) Status(callsign string) Status {
	cs := watchlist.Normalize(callsign)

	t.mu.RLock()
	defer t.mu.RUnlock()
	if st, ok := t.states[cs]; ok {
		return st
	}
	return Status{Callsign: cs, State: StateUnknown}
}

// Online lists the watched callsigns currently online, in watch-list order
func (t *Tracker) Online() []Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Status
	for _, cs := range t.watch.Callsigns() {
		if st := t.states[cs]; st.State == StateOnline {
			out = append(out, st)
		}
	}
	return out
}
