package bot

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// isOwner checks if the interaction comes from the configured bot owner
func (b *Bot) isOwner(i *discordgo.InteractionCreate) bool {
	id := interactionUserID(i)
	return id != "" && b.config.OwnerID == id
}

// permissionReport summarises what the bot may do in the guild
type permissionReport struct {
	Administrator   bool
	ManageRoles     bool
	TopRole         string
	TopPosition     int
	ControllerRole  string
	ControllerPos   int
	ControllerFound bool
}

// canManageController reports whether the bot can assign the controller role
func (r permissionReport) canManageController() bool {
	if !r.Administrator && !r.ManageRoles {
		return false
	}
	return r.ControllerFound && r.TopPosition > r.ControllerPos
}

// problems lists every reason the bot cannot manage the controller role
func (r permissionReport) problems() []string {
	var out []string
	if !r.ControllerFound {
		out = append(out, "Controller role not found in guild")
	}
	if !r.Administrator && !r.ManageRoles {
		out = append(out, "Bot lacks the Manage Roles permission")
	}
	if r.ControllerFound && r.TopPosition <= r.ControllerPos {
		out = append(out, "Bot's top role must be above the controller role")
	}
	return out
}

// evaluatePermissions computes the bot's guild permissions from its roles.
// The @everyone role has the guild's ID and applies to every member.
func evaluatePermissions(guildID string, memberRoles []string, roles []*discordgo.Role, controllerRoleID string) permissionReport {
	has := make(map[string]bool, len(memberRoles)+1)
	for _, id := range memberRoles {
		has[id] = true
	}
	has[guildID] = true

	var (
		perms  int64
		report permissionReport
	)
	report.TopPosition = -1
	for _, role := range roles {
		if role.ID == controllerRoleID {
			report.ControllerRole = role.Name
			report.ControllerPos = role.Position
			report.ControllerFound = true
		}
		if !has[role.ID] {
			continue
		}
		perms |= role.Permissions
		if role.Position > report.TopPosition {
			report.TopPosition = role.Position
			report.TopRole = role.Name
		}
	}

	report.Administrator = perms&discordgo.PermissionAdministrator != 0
	report.ManageRoles = perms&discordgo.PermissionManageRoles != 0
	return report
}

// checkPermissions logs whether the bot can manage the controller role
func (b *Bot) checkPermissions(s *discordgo.Session) {
	if !b.config.RoleSyncEnabled() {
		slog.Info("Controller role sync disabled, skipping permission check")
		return
	}

	member, err := s.GuildMember(b.config.GuildID, s.State.User.ID)
	if err != nil {
		slog.Error("Failed to fetch bot member", "guild_id", b.config.GuildID, "error", err)
		return
	}
	roles, err := s.GuildRoles(b.config.GuildID)
	if err != nil {
		slog.Error("Failed to fetch guild roles", "guild_id", b.config.GuildID, "error", err)
		return
	}

	report := evaluatePermissions(b.config.GuildID, member.Roles, roles, b.config.ControllerRoleID)
	slog.Info("Bot permissions",
		"administrator", report.Administrator,
		"manage_roles", report.ManageRoles,
		"top_role", report.TopRole,
		"top_position", report.TopPosition,
		"controller_role", report.ControllerRole,
		"controller_position", report.ControllerPos,
	)

	for _, problem := range report.problems() {
		slog.Error(problem,
			"role_id", b.config.ControllerRoleID,
			"top_position", report.TopPosition,
			"controller_position", report.ControllerPos,
		)
	}
}
