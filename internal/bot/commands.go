package bot

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "metar",
		Description: "Fetch METAR data",
		Options: []*discordgo.ApplicationCommandOption{
			airportOption("Airport ICAO code, e.g. LTFM"),
		},
	},
	{
		Name:        "taf",
		Description: "Fetch TAF data",
		Options: []*discordgo.ApplicationCommandOption{
			airportOption("Airport ICAO code, e.g. LTBA"),
		},
	},
	{
		Name:        "status",
		Description: "Check controller status",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:         "callsign",
				Description:  "Watched position callsign",
				Type:         discordgo.ApplicationCommandOptionString,
				Required:     true,
				Autocomplete: true,
			},
		},
	},
	{
		Name:        "online",
		Description: "List watched positions that are online now",
	},
	{
		Name:        "history",
		Description: "Show recent sessions on a position",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:         "callsign",
				Description:  "Watched position callsign",
				Type:         discordgo.ApplicationCommandOptionString,
				Required:     true,
				Autocomplete: true,
			},
		},
	},
	{
		Name:        "roster",
		Description: "Show the vACC roster status",
	},
	{
		Name:        "rogues",
		Description: "List recent rogue connections (owner only)",
	},
	{
		Name:        "shutdown",
		Description: "Shut down the bot",
	},
}

func airportOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        "airport_code",
		Description: description,
		Type:        discordgo.ApplicationCommandOptionString,
		Required:    true,
		MinLength:   intPtr(4),
		MaxLength:   4,
	}
}

func intPtr(i int) *int {
	return &i
}

// registerCommands overwrites the guild's slash commands with ours
func (b *Bot) registerCommands(s *discordgo.Session) error {
	slog.Info("Registering slash commands...", "guild_id", b.config.GuildID)

	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, b.config.GuildID, commands)
	if err != nil {
		return err
	}

	slog.Info("Successfully registered slash commands", "count", len(commands))
	return nil
}
