package cmd

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"shazbuckbot/bot"
	"shazbuckbot/config"
	"shazbuckbot/database"
	"shazbuckbot/events"
	"shazbuckbot/repository"
	"shazbuckbot/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting shazbuckbot...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	log.Info("Initializing services...")
	accountService := service.NewAccountService(uowFactory)
	wagerService := service.NewWagerService(uowFactory)
	ratingService := service.NewRatingService(uowFactory)
	matchService := service.NewMatchService(uowFactory, wagerService, ratingService)
	statsService := service.NewStatsService(uowFactory)
	log.Info("Services initialized successfully")

	// The House account holds every escrowed stake; it must exist before
	// the first bet arrives
	if _, err := accountService.EnsureHouse(ctx); err != nil {
		return fmt.Errorf("failed to ensure house account: %w", err)
	}

	// Initialize Discord bot
	log.Info("Initializing Discord bot...")
	botConfig := bot.Config{
		Token:               cfg.DiscordToken,
		GuildID:             cfg.GuildID,
		MatchmakerDiscordID: cfg.MatchmakerDiscordID,
		PugChannelID:        cfg.PugChannelID,
	}
	discordBot, err := bot.New(botConfig, accountService, matchService, wagerService, ratingService, statsService, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Info("Discord bot initialized successfully")

	// Wait for context cancellation
	log.Infof("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Info("Shutting down bot...")

	if err := discordBot.Close(); err != nil {
		log.Errorf("Error closing Discord bot: %v", err)
	}

	// Give in-flight notifications a moment to drain
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Info("Shutdown completed")
	}

	return nil
}
