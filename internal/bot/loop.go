package bot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/vattur/sectorbot/internal/vatsim"
)

const memberPageSize = 1000

// guildMembers is the part of *discordgo.Session used by role sync
type guildMembers interface {
	GuildMembers(guildID, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

// scheduleJobs registers the periodic work with the scheduler
func (b *Bot) scheduleJobs() error {
	if err := b.scheduler.Every("vatsim_check", b.config.PollInterval, true, func(ctx context.Context) {
		if err := b.tracker.Check(ctx); err != nil {
			slog.Warn("Skipping status check", "error", err)
		}
	}); err != nil {
		return err
	}

	if b.config.RoleSyncEnabled() {
		if err := b.scheduler.Every("role_sync", b.config.RoleSyncInterval, true, b.syncControllerRoles); err != nil {
			return err
		}
	} else {
		slog.Info("DISCORD_CONTROLLER_ROLE_ID not set, role sync disabled")
	}

	if b.config.VATEUDAPIKey != "" {
		if err := b.scheduler.Every("roster_refresh", b.config.RosterUpdateInterval, false, b.refreshRoster); err != nil {
			return err
		}
	}
	return nil
}

// initRoster loads the roster before the first status check. When VATEUD is
// unreachable the last stored snapshot is used.
func (b *Bot) initRoster(ctx context.Context) {
	if b.config.VATEUDAPIKey == "" {
		slog.Warn("VATEUD_API_KEY not set, rogue detection disabled")
		return
	}

	if err := b.roster.Refresh(ctx); err != nil {
		slog.Error("Initial roster update failed", "error", err)
		if err := b.roster.LoadSnapshot(ctx); err != nil {
			slog.Warn("No stored roster available, rogue detection paused until the next update", "error", err)
		}
		b.scheduleRosterRetry()
	}
}

// refreshRoster is the roster_refresh job
func (b *Bot) refreshRoster(ctx context.Context) {
	slog.Info("Starting roster update...")
	if err := b.roster.Refresh(ctx); err != nil {
		slog.Error("Roster update failed", "error", err)
		b.scheduleRosterRetry()
	}
}

func (b *Bot) scheduleRosterRetry() {
	if err := b.scheduler.Once("roster_retry", b.config.RosterRetryDelay, func(ctx context.Context) {
		if err := b.roster.Refresh(ctx); err != nil {
			slog.Error("Roster retry failed", "error", err)
		}
	}); err != nil {
		slog.Error("Failed to schedule roster retry", "error", err)
	}
}

// syncControllerRoles is the role_sync job
func (b *Bot) syncControllerRoles(ctx context.Context) {
	controllers, err := b.feed.Controllers(ctx)
	if err != nil {
		slog.Warn("Skipping role sync, feed unavailable", "error", err)
		return
	}
	if len(controllers) == 0 {
		slog.Warn("Skipping role sync, feed has no controllers")
		return
	}

	onlineCIDs := vatsim.OnlineCIDs(controllers, b.watchlist.Contains)
	slog.Debug("Online controllers on watched positions", "count", len(onlineCIDs))

	members, err := b.listMembers(ctx)
	if err != nil {
		slog.Error("Failed to list guild members", "guild_id", b.config.GuildID, "error", err)
		return
	}

	for _, change := range planRoleChanges(members, onlineCIDs, b.config.ControllerRoleID) {
		if ctx.Err() != nil {
			return
		}
		b.applyRoleChange(ctx, change)
	}
}

// listMembers pages through every guild member
func (b *Bot) listMembers(ctx context.Context) ([]*discordgo.Member, error) {
	var (
		all   []*discordgo.Member
		after string
	)
	for {
		page, err := b.members.GuildMembers(b.config.GuildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < memberPageSize {
			return all, nil
		}
		after = page[len(page)-1].User.ID
	}
}

type roleChange struct {
	UserID string
	Nick   string
	CID    string
	Add    bool
}

// planRoleChanges decides who gains or loses the controller role. Members
// without a CID in their nickname are left alone.
func planRoleChanges(members []*discordgo.Member, onlineCIDs map[string]string, roleID string) []roleChange {
	var changes []roleChange
	for _, m := range members {
		if m.User == nil || m.Nick == "" {
			continue
		}
		cid, ok := ExtractCID(m.Nick)
		if !ok {
			continue
		}

		_, online := onlineCIDs[cid]
		hasRole := slices.Contains(m.Roles, roleID)

		switch {
		case online && !hasRole:
			changes = append(changes, roleChange{UserID: m.User.ID, Nick: m.Nick, CID: cid, Add: true})
		case !online && hasRole:
			changes = append(changes, roleChange{UserID: m.User.ID, Nick: m.Nick, CID: cid, Add: false})
		}
	}
	return changes
}

func (b *Bot) applyRoleChange(ctx context.Context, c roleChange) {
	var err error
	if c.Add {
		err = b.members.GuildMemberRoleAdd(b.config.GuildID, c.UserID, b.config.ControllerRoleID, discordgo.WithContext(ctx))
	} else {
		err = b.members.GuildMemberRoleRemove(b.config.GuildID, c.UserID, b.config.ControllerRoleID, discordgo.WithContext(ctx))
	}

	if err == nil {
		if c.Add {
			slog.Info("Added controller role", "nick", c.Nick, "cid", c.CID)
		} else {
			slog.Info("Removed controller role", "nick", c.Nick, "cid", c.CID)
		}
		b.roleErrMu.Lock()
		delete(b.roleErrLogged, c.UserID)
		b.roleErrMu.Unlock()
		return
	}

	if !isForbidden(err) {
		slog.Error("Failed to update controller role", "nick", c.Nick, "cid", c.CID, "add", c.Add, "error", err)
		return
	}

	b.roleErrMu.Lock()
	logged := b.roleErrLogged[c.UserID]
	b.roleErrLogged[c.UserID] = true
	b.roleErrMu.Unlock()
	if !logged {
		slog.Error("Permission error updating controller role", "nick", c.Nick, "cid", c.CID, "error", err)
	}
}

func isForbidden(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden
}

// ExtractCID reads a VATSIM CID from a member nickname. Two forms are
// accepted: "Name Surname - 1234567" and "|-1234567-|". A nickname containing
// " - " is only read in the first form.
func ExtractCID(nick string) (string, bool) {
	if nick == "" {
		return "", false
	}

	var cid string
	switch {
	case strings.Contains(nick, " - "):
		parts := strings.Split(nick, " - ")
		cid = strings.TrimSpace(parts[len(parts)-1])
	case strings.Contains(nick, "|-") && strings.Contains(nick, "-|"):
		cid = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(nick, "|-", ""), "-|", ""))
	default:
		return "", false
	}

	if !isDigits(cid) {
		return "", false
	}
	return cid, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
