package bot

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

const maxChoices = 25

// handleAutocomplete offers watched callsigns for the callsign option
func (b *Bot) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()

	// Find the focused option
	var focused *discordgo.ApplicationCommandInteractionDataOption
	for _, opt := range data.Options {
		if opt.Focused {
			focused = opt
			break
		}
	}

	if focused == nil || focused.Name != "callsign" {
		return
	}

	choices := callsignChoices(b.watchlist.Match(focused.StringValue(), maxChoices))
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	}); err != nil {
		slog.Debug("Failed to send autocomplete choices", "error", err)
	}
}

func callsignChoices(callsigns []string) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(callsigns))
	for _, cs := range callsigns {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  cs,
			Value: cs,
		})
	}
	return choices
}
