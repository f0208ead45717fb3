package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string `yaml:"discord_token"`
	GuildID      string `yaml:"guild_id"`

	// The matchmaking bot whose status messages we parse, and the channels
	// it posts in / we take commands in.
	MatchmakerDiscordID int64 `yaml:"matchmaker_discord_id"`
	PugChannelID        int64 `yaml:"pug_channel_id"`
	BotChannelID        int64 `yaml:"bot_channel_id"`

	// Database configuration
	DatabaseURL string `yaml:"database_url"`

	// House account: the bot's own ledger user, escrow counterparty for
	// every wager.
	HouseDiscordID int64 `yaml:"house_discord_id"`

	// Ledger configuration
	StartingBalance  int64  `yaml:"starting_balance"`
	DefaultBetWindow string `yaml:"default_bet_window"` // duration, e.g. "10m"

	// Settlement policy. TiePayoutFactor scales the raw payout of winning
	// tie bets before rounding.
	TieBetsEnabled  bool    `yaml:"tie_bets_enabled"`
	TiePayoutFactor float64 `yaml:"tie_payout_factor"`

	// Rating configuration
	MinRatedMatches int `yaml:"min_rated_matches"` // required before win-chance estimates

	// Discord IDs allowed to use changeresult/startmatch/endmatch
	AdminDiscordIDs []int64 `yaml:"admin_discord_ids"`

	// Environment: "development", "production" or "test"
	Environment string `yaml:"environment"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load reads the optional YAML config file, then applies environment
// variable overrides on top.
func load() (*Config, error) {
	config := &Config{
		StartingBalance:  100,
		DefaultBetWindow: "10m",
		TieBetsEnabled:   true,
		TiePayoutFactor:  0.5,
		MinRatedMatches:  10,
	}

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.HouseDiscordID == 0 {
			return nil, fmt.Errorf("HOUSE_DISCORD_ID is required")
		}
	}

	if _, err := ParseBetWindow(config.DefaultBetWindow); err != nil {
		return nil, fmt.Errorf("invalid default bet window %q: %w", config.DefaultBetWindow, err)
	}
	if config.TiePayoutFactor < 0 || config.TiePayoutFactor > 1 {
		return nil, fmt.Errorf("tie payout factor must be between 0 and 1, got %v", config.TiePayoutFactor)
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		config.DiscordToken = v
	}
	if v := os.Getenv("DISCORD_GUILD_ID"); v != "" {
		config.GuildID = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.DatabaseURL = v
	}
	if v := os.Getenv("HOUSE_DISCORD_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.HouseDiscordID = id
		}
	}
	if v := os.Getenv("MATCHMAKER_DISCORD_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MatchmakerDiscordID = id
		}
	}
	if v := os.Getenv("PUG_CHANNEL_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.PugChannelID = id
		}
	}
	if v := os.Getenv("BOT_CHANNEL_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.BotChannelID = id
		}
	}
	if v := os.Getenv("STARTING_BALANCE"); v != "" {
		if balance, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.StartingBalance = balance
		}
	}
	if v := os.Getenv("DEFAULT_BET_WINDOW"); v != "" {
		config.DefaultBetWindow = v
	}
	if v := os.Getenv("TIE_BETS_ENABLED"); v != "" {
		config.TieBetsEnabled = v == "true"
	}
	if v := os.Getenv("TIE_PAYOUT_FACTOR"); v != "" {
		if factor, err := strconv.ParseFloat(v, 64); err == nil {
			config.TiePayoutFactor = factor
		}
	}
	if v := os.Getenv("MIN_RATED_MATCHES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.MinRatedMatches = n
		}
	}
	if v := os.Getenv("ADMIN_DISCORD_IDS"); v != "" {
		config.AdminDiscordIDs = nil
		for _, idStr := range strings.Split(v, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
				config.AdminDiscordIDs = append(config.AdminDiscordIDs, id)
			}
		}
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		config.Environment = v
	}
}

// IsAdmin reports whether the given Discord ID may run administrative
// commands.
func (c *Config) IsAdmin(discordID int64) bool {
	for _, id := range c.AdminDiscordIDs {
		if id == discordID {
			return true
		}
	}
	return false
}

// BetWindow returns the default bet window as a duration.
func (c *Config) BetWindow() time.Duration {
	d, err := ParseBetWindow(c.DefaultBetWindow)
	if err != nil {
		// Validated at load time.
		panic(err)
	}
	return d
}

var betWindowUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseBetWindow parses durations like "90s", "10m", "2h", "1d" or "1w".
func ParseBetWindow(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("too short, expected e.g. \"10m\"")
	}
	unit, ok := betWindowUnits[s[len(s)-1]]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q, expected one of s, m, h, d, w", s[len(s)-1])
	}
	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("expected a positive integer before the unit")
	}
	return time.Duration(value) * unit, nil
}

// FormatBetWindow renders a duration in the shortest bet-window notation.
func FormatBetWindow(d time.Duration) string {
	for _, unit := range []byte{'w', 'd', 'h', 'm'} {
		size := betWindowUnits[unit]
		if d >= size && d%size == 0 {
			return fmt.Sprintf("%d%c", d/size, unit)
		}
	}
	return fmt.Sprintf("%ds", int64(d/time.Second))
}
