package bot

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"shazbuckbot/config"
	"shazbuckbot/events"
	"shazbuckbot/service"
)

// Config holds bot configuration
type Config struct {
	Token string
	// GuildID scopes slash command registration; empty registers globally
	GuildID string
	// The matchmaking bot whose announcements drive the match lifecycle,
	// and the channel it posts in
	MatchmakerDiscordID int64
	PugChannelID        int64
}

type Bot struct {
	config         Config
	session        *discordgo.Session
	accountService service.AccountService
	matchService   service.MatchService
	wagerService   service.WagerService
	ratingService  service.RatingService
	statsService   service.StatsService
	feed           *matchFeed
	notifier       *notifier
}

func New(cfg Config, accountService service.AccountService, matchService service.MatchService, wagerService service.WagerService, ratingService service.RatingService, statsService service.StatsService, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsAll

	bot := &Bot{
		config:         cfg,
		session:        dg,
		accountService: accountService,
		matchService:   matchService,
		wagerService:   wagerService,
		ratingService:  ratingService,
		statsService:   statsService,
		feed:           newMatchFeed(matchService),
		notifier:       newNotifier(dg, accountService),
	}

	// Notifications fire off the post-commit bus, never from inside a
	// transaction
	bot.notifier.subscribe(eventBus)

	// Register handlers
	dg.AddHandler(bot.handleCommands)
	dg.AddHandler(bot.handleMessageCreate)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	return bot, nil
}

// Close disconnects from Discord first so no more feed messages arrive,
// then drains the feed worker.
func (b *Bot) Close() error {
	err := b.session.Close()
	b.feed.stop()
	return err
}

// handleMessageCreate watches the PUG channel for the matchmaker's status
// messages and feeds them to the lifecycle manager.
func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	if m.Author.ID != strconv.FormatInt(b.config.MatchmakerDiscordID, 10) {
		return
	}
	if b.config.PugChannelID != 0 && m.ChannelID != strconv.FormatInt(b.config.PugChannelID, 10) {
		return
	}

	description := ""
	if len(m.Embeds) > 0 {
		description = m.Embeds[0].Description
	}
	log.WithFields(log.Fields{
		"channel": m.ChannelID,
		"content": m.Content,
	}).Debug("Matchmaker message received")

	b.feed.Handle(m.Content, description)
}

// interactionUser returns the invoking user for both guild and DM
// interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func (b *Bot) respondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Errorf("Error sending error response: %v", err)
	}
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, message string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: message}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Errorf("Error responding to command: %v", err)
	}
}

// requireAdmin checks the invoker against the configured admin list. On a
// false return the rejection has already been sent.
func (b *Bot) requireAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) (int64, bool) {
	user := interactionUser(i)
	discordID, err := strconv.ParseInt(user.ID, 10, 64)
	if err != nil {
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return 0, false
	}
	if !config.Get().IsAdmin(discordID) {
		b.respondWithError(s, i, "You are not allowed to use this command.")
		return 0, false
	}
	return discordID, true
}
