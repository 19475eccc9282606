package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/vattur/sectorbot/internal/checkwx"
	"github.com/vattur/sectorbot/internal/tracker"
	"github.com/vattur/sectorbot/internal/watchlist"
)

const (
	historyLimit   = 5
	rogueListLimit = 10
	commandTimeout = 30 * time.Second
)

// handleCommand routes commands to their handlers
func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	slog.Debug("Command received", "command", data.Name, "user", interactionUserID(i))

	switch data.Name {
	case "metar":
		b.handleWeather(s, i, checkwx.Metar)
	case "taf":
		b.handleWeather(s, i, checkwx.Taf)
	case "status":
		b.handleStatus(s, i)
	case "online":
		b.handleOnline(s, i)
	case "history":
		b.handleHistory(s, i)
	case "roster":
		b.handleRoster(s, i)
	case "rogues":
		b.handleRogues(s, i)
	case "shutdown":
		b.handleShutdown(s, i)
	}
}

// handleWeather answers /metar and /taf
func (b *Bot) handleWeather(s *discordgo.Session, i *discordgo.InteractionCreate, kind checkwx.Kind) {
	deferEphemeral(s, i)

	icao := strings.ToUpper(strings.TrimSpace(stringOption(i, "airport_code")))
	label := strings.ToUpper(string(kind))

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var (
		raw string
		err error
	)
	if kind == checkwx.Taf {
		raw, err = b.weather.Taf(ctx, icao)
	} else {
		raw, err = b.weather.Metar(ctx, icao)
	}

	followup(s, i, formatWeather(label, icao, raw, err))
}

// handleStatus answers /status
func (b *Bot) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	deferEphemeral(s, i)

	callsign := watchlist.Normalize(stringOption(i, "callsign"))
	st := b.tracker.Status(callsign)

	var lastSeen *time.Time
	if st.State == tracker.StateOffline {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		sessions, err := b.store.Sessions(ctx, callsign, 1)
		if err != nil {
			slog.Warn("Failed to load last session", "callsign", callsign, "error", err)
		} else if len(sessions) > 0 && sessions[0].EndedAt != nil {
			lastSeen = sessions[0].EndedAt
		}
	}

	followup(s, i, formatStatus(st, lastSeen))
}

// handleOnline answers /online
func (b *Bot) handleOnline(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondEphemeral(s, i, formatOnline(b.tracker.Online(), time.Now()))
}

// handleHistory answers /history
func (b *Bot) handleHistory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	deferEphemeral(s, i)

	callsign := watchlist.Normalize(stringOption(i, "callsign"))

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	sessions, err := b.store.Sessions(ctx, callsign, historyLimit)
	if err != nil {
		slog.Error("Failed to load sessions", "callsign", callsign, "error", err)
		followup(s, i, "❌ Failed to load session history")
		return
	}

	followup(s, i, formatHistory(callsign, sessions))
}

// handleRoster answers /roster
func (b *Bot) handleRoster(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondEphemeral(s, i, formatRoster(b.roster.Loaded(), b.roster.Len(), b.roster.LastUpdate()))
}

// handleRogues answers /rogues
func (b *Bot) handleRogues(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isOwner(i) {
		respondEphemeral(s, i, "Permission denied")
		return
	}
	deferEphemeral(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	rogues, err := b.store.RecentRogues(ctx, rogueListLimit)
	if err != nil {
		slog.Error("Failed to load rogue connections", "error", err)
		followup(s, i, "❌ Failed to load rogue connections")
		return
	}

	followup(s, i, formatRogues(rogues))
}

// handleShutdown answers /shutdown
func (b *Bot) handleShutdown(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isOwner(i) {
		slog.Warn("Shutdown denied", "user", interactionUserID(i))
		respondEphemeral(s, i, "Permission denied")
		return
	}

	slog.Info("Shutdown requested", "user", interactionUserID(i))
	if err := s.InteractionRespond(i.Interaction, ephemeralResponse("Shutting down...")); err != nil {
		slog.Error("Failed to send shutdown response", "error", err)
	}

	if b.shutdown != nil {
		b.shutdown()
	}
}

// Helper functions

func stringOption(i *discordgo.InteractionCreate, name string) string {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func deferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	}); err != nil {
		slog.Error("Failed to defer response", "error", err)
	}
}

func followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content:         content,
		Flags:           discordgo.MessageFlagsEphemeral,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}); err != nil {
		slog.Error("Failed to send followup", "error", err)
	}
}

func ephemeralResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if err := s.InteractionRespond(i.Interaction, ephemeralResponse(content)); err != nil {
		slog.Error("Failed to send ephemeral response", "error", err, "content", content)
	}
}

func formatWeather(label, icao, raw string, err error) string {
	if errors.Is(err, checkwx.ErrNoData) {
		return fmt.Sprintf("Failed to fetch %s: No data available", label)
	}
	if err != nil {
		return fmt.Sprintf("Failed to fetch %s: %s", label, err)
	}
	return fmt.Sprintf("%s for **%s**: %s", label, icao, raw)
}
