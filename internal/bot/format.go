package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/vattur/sectorbot/internal/database"
	"github.com/vattur/sectorbot/internal/tracker"
)

// FormatZulu renders a time in UTC the way controllers read it
func FormatZulu(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04") + "Z"
}

// FormatDuration renders a duration as hours and minutes
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "<1m"
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}

func formatStatus(st tracker.Status, lastSeen *time.Time) string {
	msg := fmt.Sprintf("Controller %s is currently %s.", st.Callsign, st.State)
	switch {
	case st.State == tracker.StateOnline:
		msg += fmt.Sprintf("\n%s - %s, online since %s", st.Name, st.CID, FormatZulu(st.Since))
	case st.State == tracker.StateOffline && lastSeen != nil:
		msg += fmt.Sprintf("\nLast seen %s", FormatZulu(*lastSeen))
	}
	return msg
}

func formatOnline(online []tracker.Status, now time.Time) string {
	if len(online) == 0 {
		return "No watched positions are online."
	}

	var sb strings.Builder
	sb.WriteString("**Online positions**")
	for _, st := range online {
		fmt.Fprintf(&sb, "\n🌐 **%s** %s - %s (%s)", st.Callsign, st.Name, st.CID, FormatDuration(now.Sub(st.Since)))
	}
	return sb.String()
}

func formatHistory(callsign string, sessions []database.Session) string {
	if len(sessions) == 0 {
		return fmt.Sprintf("No sessions recorded for %s.", callsign)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Recent sessions on %s**", callsign)
	for _, s := range sessions {
		end := "now"
		if s.EndedAt != nil {
			end = FormatZulu(*s.EndedAt)
		}
		fmt.Fprintf(&sb, "\n%s - %s: %s → %s", s.Name, s.CID, FormatZulu(s.StartedAt), end)
	}
	return sb.String()
}

func formatRoster(loaded bool, size int, lastUpdate time.Time) string {
	if !loaded {
		return "The vACC roster has not been loaded yet."
	}
	return fmt.Sprintf("The vACC roster has %d members, last updated %s.", size, FormatZulu(lastUpdate))
}

func formatRogues(rogues []database.RogueConnection) string {
	if len(rogues) == 0 {
		return "No rogue connections recorded."
	}

	var sb strings.Builder
	sb.WriteString("**Recent rogue connections**")
	for _, rc := range rogues {
		fmt.Fprintf(&sb, "\n⚠️ %s %s (%s) at %s", rc.Callsign, rc.Name, rc.CID, FormatZulu(rc.DetectedAt))
	}
	return sb.String()
}
