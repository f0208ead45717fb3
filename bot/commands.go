package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"shazbuckbot/config"
	"shazbuckbot/models"
	"shazbuckbot/service"
)

// parseOutcomeToken maps an admin-supplied outcome onto the match outcomes
func parseOutcomeToken(token string) (models.Outcome, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "1", "team1":
		return models.OutcomeTeam1, true
	case "2", "team2":
		return models.OutcomeTeam2, true
	case "tie", "tied", "draw":
		return models.OutcomeTied, true
	}
	return "", false
}

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "register",
			Description: "Open a shazbuck account and receive your starting balance",
		},
		{
			Name:        "balance",
			Description: "Check your current shazbuck balance",
		},
		{
			Name:        "gift",
			Description: "Gift shazbucks to another player",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Player to gift to",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Amount of shazbucks to gift",
					Required:    true,
				},
			},
		},
		{
			Name:        "bet",
			Description: "Bet shazbucks on the outcome of a match",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prediction",
					Description: "1, 2, a captain's name, a side label, or tie",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Amount of shazbucks to stake",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "match",
					Description: "Match ID (defaults to whichever open match your prediction fits)",
					Required:    false,
				},
			},
		},
		{
			Name:        "mute",
			Description: "Toggle direct message notifications",
		},
		{
			Name:        "matches",
			Description: "List matches that are open for betting",
		},
		{
			Name:        "leaderboard",
			Description: "Show the top players",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "board",
					Description: "Which ranking to show",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "balance", Value: "balance"},
						{Name: "philanthropists", Value: "philanthropists"},
						{Name: "beggars", Value: "beggars"},
					},
				},
			},
		},
		{
			Name:        "suggestteams",
			Description: "Suggest the most even team split for a player pool",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "players",
					Description: "Comma separated player names (an even number)",
					Required:    true,
				},
			},
		},
		{
			Name:        "winchance",
			Description: "Estimate team 1's chance of winning",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "team1",
					Description: "Comma separated players of team 1",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "team2",
					Description: "Comma separated players of team 2",
					Required:    true,
				},
			},
		},
		{
			Name:        "changeresult",
			Description: "Correct the recorded result of a settled match (admin)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "match",
					Description: "Match ID to correct",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "outcome",
					Description: "New outcome: 1, 2 or tie",
					Required:    true,
				},
			},
		},
		{
			Name:        "startmatch",
			Description: "Open betting on a custom match (admin)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "side1",
					Description: "Label of the first outcome",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "side2",
					Description: "Label of the second outcome",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "window",
					Description: "Betting window, e.g. 30m or 2h (defaults to the configured window)",
					Required:    false,
				},
			},
		},
		{
			Name:        "endmatch",
			Description: "Settle a custom match (admin)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "match",
					Description: "Match ID to settle",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "winner",
					Description: "Winning side: 1, 2, a label, or tie",
					Required:    true,
				},
			},
		},
	}

	for _, cmd := range commands {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}

	return nil
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "register":
		b.handleRegister(s, i)
	case "balance":
		b.handleBalance(s, i)
	case "gift":
		b.handleGift(s, i)
	case "bet":
		b.handleBet(s, i)
	case "mute":
		b.handleMute(s, i)
	case "matches":
		b.handleMatches(s, i)
	case "leaderboard":
		b.handleLeaderboard(s, i)
	case "suggestteams":
		b.handleSuggestTeams(s, i)
	case "winchance":
		b.handleWinChance(s, i)
	case "changeresult":
		b.handleChangeResult(s, i)
	case "startmatch":
		b.handleStartMatch(s, i)
	case "endmatch":
		b.handleEndMatch(s, i)
	}
}

// commandOptions indexes interaction options by name
func commandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, opt := range i.ApplicationCommandData().Options {
		options[opt.Name] = opt
	}
	return options
}

func (b *Bot) invokerID(s *discordgo.Session, i *discordgo.InteractionCreate) (int64, bool) {
	user := interactionUser(i)
	discordID, err := strconv.ParseInt(user.ID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", user.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return 0, false
	}
	return discordID, true
}

func (b *Bot) handleRegister(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	discordID, ok := b.invokerID(s, i)
	if !ok {
		return
	}

	user, err := b.accountService.Register(ctx, discordID, interactionUser(i).Username)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyRegistered) {
			b.respondWithError(s, i, "You already have an account.")
			return
		}
		log.Errorf("Error registering user %d: %v", discordID, err)
		b.respondWithError(s, i, "Unable to register. Please try again.")
		return
	}

	b.respond(s, i, fmt.Sprintf("Welcome %s! You start with **%s shazbucks**. Good luck!",
		user.Nick, FormatAmount(user.Balance)), true)
}

func (b *Bot) handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	discordID, ok := b.invokerID(s, i)
	if !ok {
		return
	}

	user, err := b.accountService.GetUser(ctx, discordID)
	if err != nil {
		log.Errorf("Error getting user %d: %v", discordID, err)
		b.respondWithError(s, i, "Unable to retrieve balance. Please try again.")
		return
	}
	if user == nil {
		b.respondWithError(s, i, "You don't have an account yet. Use /register first.")
		return
	}

	b.respond(s, i, fmt.Sprintf("%s, your current balance: **%s shazbucks**",
		user.Nick, FormatAmount(user.Balance)), true)
}

func (b *Bot) handleGift(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	discordID, ok := b.invokerID(s, i)
	if !ok {
		return
	}

	options := commandOptions(i)
	recipient := options["user"].UserValue(s)
	amount := options["amount"].IntValue()

	if recipient == nil {
		b.respondWithError(s, i, "Invalid recipient.")
		return
	}
	toDiscordID, err := strconv.ParseInt(recipient.ID, 10, 64)
	if err != nil {
		b.respondWithError(s, i, "Invalid recipient.")
		return
	}

	result, err := b.accountService.Gift(ctx, discordID, toDiscordID, amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotRegistered):
			b.respondWithError(s, i, "Both of you need an account. Use /register first.")
		case errors.Is(err, service.ErrInsufficientBalance):
			b.respondWithError(s, i, "You don't have enough shazbucks for that gift.")
		default:
			log.Errorf("Error gifting %d shazbucks from %d to %d: %v", amount, discordID, toDiscordID, err)
			b.respondWithError(s, i, "Unable to process the gift. Please try again.")
		}
		return
	}

	b.respond(s, i, fmt.Sprintf("**%s** gifted **%s shazbucks** to **%s**.",
		result.SenderNick, FormatAmount(result.Amount), result.ReceiverNick), false)

	if !result.ReceiverMuted {
		go b.notifier.dm(context.Background(), result.ReceiverID, fmt.Sprintf(
			"Hi %s. %s just gifted you %s shazbucks! Your new balance is %s.",
			result.ReceiverNick, result.SenderNick, FormatAmount(result.Amount),
			FormatAmount(result.ReceiverBalance)))
	}
}

func (b *Bot) handleBet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	discordID, ok := b.invokerID(s, i)
	if !ok {
		return
	}

	options := commandOptions(i)
	prediction := options["prediction"].StringValue()
	amount := options["amount"].IntValue()
	var matchID *int64
	if opt, ok := options["match"]; ok {
		id := opt.IntValue()
		matchID = &id
	}

	receipt, err := b.wagerService.PlaceBet(ctx, discordID, matchID, prediction, amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotRegistered):
			b.respondWithError(s, i, "You don't have an account yet. Use /register first.")
		case errors.Is(err, service.ErrInsufficientBalance):
			b.respondWithError(s, i, "You don't have enough shazbucks for that bet.")
		case errors.Is(err, service.ErrNoOpenMatch), errors.Is(err, service.ErrMatchNotFound):
			b.respondWithError(s, i, "No match is open for betting right now.")
		case errors.Is(err, service.ErrBetWindowClosed):
			b.respondWithError(s, i, "Too late! The betting window for that match has closed.")
		case errors.Is(err, service.ErrUnknownOutcome):
			b.respondWithError(s, i, fmt.Sprintf("Could not identify a matching outcome for %q.", prediction))
		case errors.Is(err, service.ErrConflictingBet):
			b.respondWithError(s, i, "You already bet on the other side of this match.")
		case errors.Is(err, service.ErrBetAgainstSelf):
			b.respondWithError(s, i, "You cannot bet against your own team.")
		case errors.Is(err, service.ErrTieBetsDisabled):
			b.respondWithError(s, i, "Tie bets are disabled.")
		default:
			log.Errorf("Error placing bet for %d: %v", discordID, err)
			b.respondWithError(s, i, "Unable to place the bet. Please try again.")
		}
		return
	}

	verb := "placed"
	if receipt.Amended {
		verb = "raised"
	}
	b.respond(s, i, fmt.Sprintf(
		"Bet %s: **%s shazbucks** on **%s** (match %d). New balance: **%s shazbucks**.",
		verb, FormatAmount(receipt.Amount), receipt.TeamName, receipt.MatchID,
		FormatAmount(receipt.NewBalance)), true)
}

func (b *Bot) handleMute(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	discordID, ok := b.invokerID(s, i)
	if !ok {
		return
	}

	muted, err := b.accountService.ToggleMute(ctx, discordID)
	if err != nil {
		if errors.Is(err, service.ErrNotRegistered) {
			b.respondWithError(s, i, "You don't have an account yet. Use /register first.")
			return
		}
		log.Errorf("Error toggling mute for %d: %v", discordID, err)
		b.respondWithError(s, i, "Unable to update your preferences. Please try again.")
		return
	}

	if muted {
		b.respond(s, i, "Direct messages muted. Use /mute again to turn them back on.", true)
	} else {
		b.respond(s, i, "Direct messages enabled.", true)
	}
}

func (b *Bot) handleMatches(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	open, err := b.matchService.OpenMatches(ctx)
	if err != nil {
		log.Errorf("Error listing open matches: %v", err)
		b.respondWithError(s, i, "Unable to list matches. Please try again.")
		return
	}

	b.respond(s, i, formatOpenMatches(open), true)
}

func (b *Bot) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	board := "balance"
	if opt, ok := commandOptions(i)["board"]; ok {
		board = opt.StringValue()
	}

	const limit = 5
	var message string
	switch board {
	case "philanthropists":
		entries, err := b.statsService.Philanthropists(ctx, limit)
		if err != nil {
			log.Errorf("Error listing philanthropists: %v", err)
			b.respondWithError(s, i, "Unable to build the leaderboard. Please try again.")
			return
		}
		message = formatGiftLeaders(entries, true)
	case "beggars":
		entries, err := b.statsService.Beggars(ctx, limit)
		if err != nil {
			log.Errorf("Error listing beggars: %v", err)
			b.respondWithError(s, i, "Unable to build the leaderboard. Please try again.")
			return
		}
		message = formatGiftLeaders(entries, false)
	default:
		entries, err := b.statsService.Leaderboard(ctx, limit)
		if err != nil {
			log.Errorf("Error listing leaderboard: %v", err)
			b.respondWithError(s, i, "Unable to build the leaderboard. Please try again.")
			return
		}
		message = formatLeaderboard(entries)
	}

	b.respond(s, i, message, false)
}

// splitNames parses a comma separated name list
func splitNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (b *Bot) handleSuggestTeams(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	players := splitNames(commandOptions(i)["players"].StringValue())
	suggestion, err := b.ratingService.SuggestTeams(ctx, players)
	if err != nil {
		b.respondWithError(s, i, fmt.Sprintf("Cannot suggest teams: %v", err))
		return
	}

	b.respond(s, i, fmt.Sprintf(
		"Most even split (%.0f%% draw chance, team 1 wins %.0f%% of the time):\n**Team 1:** %s\n**Team 2:** %s",
		suggestion.Quality*100, suggestion.Team1Chance*100,
		strings.Join(suggestion.Team1, ", "), strings.Join(suggestion.Team2, ", ")), false)
}

func (b *Bot) handleWinChance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	options := commandOptions(i)
	team1 := splitNames(options["team1"].StringValue())
	team2 := splitNames(options["team2"].StringValue())

	chance, err := b.ratingService.EstimateWinChance(ctx, team1, team2)
	if err != nil {
		if errors.Is(err, service.ErrNotEnoughData) {
			b.respondWithError(s, i, fmt.Sprintf("Not enough data for a confident estimate: %v", err))
			return
		}
		log.Errorf("Error estimating win chance: %v", err)
		b.respondWithError(s, i, "Unable to estimate the win chance. Please try again.")
		return
	}

	b.respond(s, i, fmt.Sprintf("Team 1 wins **%.0f%%** of the time.", chance*100), false)
}

func (b *Bot) handleChangeResult(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	if _, ok := b.requireAdmin(s, i); !ok {
		return
	}

	options := commandOptions(i)
	matchID := options["match"].IntValue()
	token := options["outcome"].StringValue()

	outcome, ok := parseOutcomeToken(token)
	if !ok {
		b.respondWithError(s, i, "Outcome must be 1, 2 or tie.")
		return
	}

	report, err := b.wagerService.ChangeResult(ctx, matchID, outcome)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMatchNotFound):
			b.respondWithError(s, i, "No such match.")
		case errors.Is(err, service.ErrMatchNotSettled):
			b.respondWithError(s, i, "That match has not been settled yet.")
		case errors.Is(err, service.ErrMatchCancelled):
			b.respondWithError(s, i, "Cancelled matches cannot be revived.")
		case errors.Is(err, service.ErrSameResult):
			b.respondWithError(s, i, "The match already has that result.")
		default:
			log.Errorf("Error changing result of match %d: %v", matchID, err)
			b.respondWithError(s, i, "Unable to change the result. Please try again.")
		}
		return
	}

	summary := summarizeSettlement(report)
	if summary == "" {
		summary = "No wagers were affected."
	}
	b.respond(s, i, fmt.Sprintf("Match %d re-settled as %s. %s", matchID, report.Outcome, summary), false)
}

func (b *Bot) handleStartMatch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	if _, ok := b.requireAdmin(s, i); !ok {
		return
	}

	options := commandOptions(i)
	side1 := options["side1"].StringValue()
	side2 := options["side2"].StringValue()

	window := config.Get().BetWindow()
	if opt, ok := options["window"]; ok {
		parsed, err := config.ParseBetWindow(opt.StringValue())
		if err != nil {
			b.respondWithError(s, i, fmt.Sprintf("Invalid betting window: %v", err))
			return
		}
		window = parsed
	}

	match, err := b.matchService.StartCustomMatch(ctx, "custom", side1, side2, window)
	if err != nil {
		log.Errorf("Error starting custom match: %v", err)
		b.respondWithError(s, i, "Unable to start the match. Please try again.")
		return
	}

	b.respond(s, i, fmt.Sprintf(
		"Match %d is open: **%s** vs **%s**. Betting closes in %s. Place your bets with /bet!",
		match.ID, side1, side2, config.FormatBetWindow(window)), false)
}

func (b *Bot) handleEndMatch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	if _, ok := b.requireAdmin(s, i); !ok {
		return
	}

	options := commandOptions(i)
	matchID := options["match"].IntValue()
	winner := options["winner"].StringValue()

	report, err := b.matchService.EndCustomMatch(ctx, matchID, winner)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMatchNotFound):
			b.respondWithError(s, i, "No such match.")
		case errors.Is(err, service.ErrUnknownOutcome):
			b.respondWithError(s, i, fmt.Sprintf("Could not identify a matching outcome for %q.", winner))
		case errors.Is(err, service.ErrInvalidTransition):
			b.respondWithError(s, i, "That match has already been settled.")
		default:
			log.Errorf("Error ending match %d: %v", matchID, err)
			b.respondWithError(s, i, "Unable to settle the match. Please try again.")
		}
		return
	}

	summary := summarizeSettlement(report)
	if summary == "" {
		summary = "No wagers were placed."
	}
	b.respond(s, i, fmt.Sprintf("Match %d settled. %s", matchID, summary), false)
}
