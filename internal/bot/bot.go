package bot

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/vattur/sectorbot/internal/config"
	"github.com/vattur/sectorbot/internal/database"
	"github.com/vattur/sectorbot/internal/roster"
	"github.com/vattur/sectorbot/internal/scheduler"
	"github.com/vattur/sectorbot/internal/tracker"
	"github.com/vattur/sectorbot/internal/watchlist"
)

// WeatherClient looks up raw METAR and TAF reports
type WeatherClient interface {
	Metar(ctx context.Context, icao string) (string, error)
	Taf(ctx context.Context, icao string) (string, error)
}

// Deps are the services the bot drives
type Deps struct {
	Config    *config.Config
	Store     database.Store
	Weather   WeatherClient
	Feed      tracker.Source
	Tracker   *tracker.Tracker
	Roster    *roster.Service
	Watchlist *watchlist.Watchlist
	Scheduler *scheduler.Scheduler
	// Shutdown is called by the /shutdown command
	Shutdown context.CancelFunc
}

// Bot represents the Discord bot
type Bot struct {
	session   *discordgo.Session
	members   guildMembers
	config    *config.Config
	store     database.Store
	weather   WeatherClient
	feed      tracker.Source
	tracker   *tracker.Tracker
	roster    *roster.Service
	watchlist *watchlist.Watchlist
	scheduler *scheduler.Scheduler
	shutdown  context.CancelFunc

	roleErrMu     sync.Mutex
	roleErrLogged map[string]bool
}

// NewSession creates the Discord session with the intents the bot needs
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	// Set intents
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildMessages

	return session, nil
}

// New creates a new Bot instance
func New(session *discordgo.Session, deps Deps) *Bot {
	return &Bot{
		session:       session,
		members:       session,
		config:        deps.Config,
		store:         deps.Store,
		weather:       deps.Weather,
		feed:          deps.Feed,
		tracker:       deps.Tracker,
		roster:        deps.Roster,
		watchlist:     deps.Watchlist,
		scheduler:     deps.Scheduler,
		shutdown:      deps.Shutdown,
		roleErrLogged: make(map[string]bool),
	}
}

// Start connects to Discord, loads the roster and starts the periodic jobs
func (b *Bot) Start(ctx context.Context) error {
	// Register handlers
	b.session.AddHandler(b.handleReady)
	b.session.AddHandler(b.handleConnect)
	b.session.AddHandler(b.handleDisconnect)
	b.session.AddHandler(b.handleResumed)
	b.session.AddHandler(b.handleInteraction)

	// Open connection
	if err := b.session.Open(); err != nil {
		return err
	}

	b.initRoster(ctx)

	if err := b.scheduleJobs(); err != nil {
		b.session.Close()
		return err
	}
	b.scheduler.Start()

	return nil
}

// Stop stops the jobs, then closes the Discord session
func (b *Bot) Stop() error {
	if err := b.scheduler.Stop(); err != nil {
		slog.Warn("Failed to stop scheduler", "error", err)
	}

	return b.session.Close()
}

// handleReady is called when the bot connects to Discord
func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	guilds := make([]string, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		name := g.Name
		if name == "" {
			name = g.ID
		}
		guilds = append(guilds, name)
	}
	slog.Info("Bot is ready", "user", r.User.Username, "guilds", guilds)

	// Register slash commands
	if err := b.registerCommands(s); err != nil {
		slog.Error("Failed to register commands", "error", err)
	}

	b.checkPermissions(s)
}

func (b *Bot) handleConnect(_ *discordgo.Session, _ *discordgo.Connect) {
	slog.Info("Connected to Discord gateway")
}

func (b *Bot) handleDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	slog.Warn("Disconnected from Discord gateway")
}

func (b *Bot) handleResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	slog.Info("Discord session resumed")
}

// handleInteraction routes interactions to the appropriate handler
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.handleAutocomplete(s, i)
	}
}
