package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"shazbuckbot/config"
	"shazbuckbot/events"
	"shazbuckbot/models"
)

// wagerService implements the WagerService interface
type wagerService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewWagerService creates a new wager service
func NewWagerService(uowFactory UnitOfWorkFactory) WagerService {
	return &wagerService{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// foldName normalizes a player or team name for comparison: decomposed,
// combining marks stripped, lower case. "Çråzy" and "crazy" match.
func foldName(s string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func isTieToken(token string) bool {
	switch foldName(strings.TrimSpace(token)) {
	case "tie", "tied", "draw":
		return true
	}
	return false
}

// resolveOutcome maps a bettor's token onto one of a match's outcomes.
// Accepted forms: "1"/"2", the Red/Blue side aliases, a team label, or a
// captain's name.
func resolveOutcome(match *models.Match, token string) (models.Outcome, bool) {
	folded := foldName(strings.TrimSpace(token))
	switch folded {
	case "1", "red":
		return models.OutcomeTeam1, true
	case "2", "blue":
		return models.OutcomeTeam2, true
	}
	if folded == "" {
		return "", false
	}
	if foldName(match.Team1.Name()) == folded || foldName(match.Team1.Captain) == folded {
		return models.OutcomeTeam1, true
	}
	if foldName(match.Team2.Name()) == folded || foldName(match.Team2.Captain) == folded {
		return models.OutcomeTeam2, true
	}
	return "", false
}

// getHouse returns the House account inside the unit of work
func getHouse(ctx context.Context, uow UnitOfWork) (*models.User, error) {
	house, err := uow.Users().GetByDiscordID(ctx, config.Get().HouseDiscordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get house account: %w", err)
	}
	if house == nil {
		return nil, fmt.Errorf("house account does not exist")
	}
	return house, nil
}

// PlaceBet places or amends a wager. The stake moves to the House as escrow
// in the same transaction the wager row is written.
func (s *wagerService) PlaceBet(ctx context.Context, discordID int64, matchID *int64, token string, amount int64) (*models.BetReceipt, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("bet amount must be positive")
	}

	cfg := config.Get()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.Users().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrNotRegistered
	}
	if user.Balance < amount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, user.Balance, amount)
	}

	var candidates []*models.Match
	if matchID != nil {
		match, err := uow.Matches().GetByIDForUpdate(ctx, *matchID)
		if err != nil {
			return nil, err
		}
		if match == nil {
			return nil, ErrMatchNotFound
		}
		candidates = []*models.Match{match}
	} else {
		candidates, err = uow.Matches().GetByStatus(ctx, models.MatchStatusInProgress)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, ErrNoOpenMatch
		}
	}

	// Resolve the token against the candidates, most recent match first.
	// A tie token alone targets the most recent match.
	var match *models.Match
	var prediction models.Outcome
	if isTieToken(token) {
		if !cfg.TieBetsEnabled {
			return nil, ErrTieBetsDisabled
		}
		match = candidates[0]
		prediction = models.OutcomeTied
	} else {
		for _, candidate := range candidates {
			if outcome, ok := resolveOutcome(candidate, token); ok {
				match = candidate
				prediction = outcome
				break
			}
		}
		if match == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOutcome, token)
		}
	}

	if !match.BetWindowOpen(s.now()) {
		return nil, ErrBetWindowClosed
	}

	// Players may back their own team but never bet against it
	if prediction != models.OutcomeTeam1 && match.Team1.HasPlayer(user.Nick) {
		return nil, ErrBetAgainstSelf
	}
	if prediction != models.OutcomeTeam2 && match.Team2.HasPlayer(user.Nick) {
		return nil, ErrBetAgainstSelf
	}

	house, err := getHouse(ctx, uow)
	if err != nil {
		return nil, err
	}

	existing, err := uow.Wagers().GetOpenByUserAndMatch(ctx, user.ID, match.ID)
	if err != nil {
		return nil, err
	}

	receipt := &models.BetReceipt{
		MatchID:    match.ID,
		Prediction: prediction,
		NewBalance: user.Balance - amount,
	}
	switch prediction {
	case models.OutcomeTeam1:
		receipt.TeamName = match.Team1.Name()
	case models.OutcomeTeam2:
		receipt.TeamName = match.Team2.Name()
	default:
		receipt.TeamName = "Tie"
	}

	if existing != nil {
		if existing.Prediction != prediction {
			return nil, ErrConflictingBet
		}
		// Same prediction again tops up the open wager
		if err := uow.Wagers().AddAmount(ctx, existing.ID, amount); err != nil {
			return nil, err
		}
		if _, err := createTransfer(ctx, uow, user.ID, house.ID, amount, models.TransferReasonPlaceBet, &existing.ID); err != nil {
			return nil, err
		}
		receipt.WagerID = existing.ID
		receipt.Amount = existing.Amount + amount
		receipt.Amended = true
	} else {
		wager := &models.Wager{
			UserID:     user.ID,
			MatchID:    match.ID,
			Prediction: prediction,
			Amount:     amount,
			Result:     models.WagerResultInProgress,
		}
		if err := uow.Wagers().Create(ctx, wager); err != nil {
			return nil, err
		}
		if _, err := createTransfer(ctx, uow, user.ID, house.ID, amount, models.TransferReasonPlaceBet, &wager.ID); err != nil {
			return nil, err
		}
		receipt.WagerID = wager.ID
		receipt.Amount = amount
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return receipt, nil
}

// payout computes what a winning stake is owed. The tie factor scales tie
// payouts before rounding.
func payout(amount int64, ratio float64, outcome models.Outcome) int64 {
	raw := float64(amount) * ratio
	if outcome == models.OutcomeTied {
		raw *= config.Get().TiePayoutFactor
	}
	return int64(math.Round(raw))
}

// settleWagers resolves every open wager on a match against the outcome.
// Stakes sit with the House, so payouts and refunds flow House to bettor.
// The caller owns the transaction and the match status update.
func settleWagers(ctx context.Context, uow UnitOfWork, match *models.Match, outcome models.Outcome) (*models.SettlementReport, error) {
	report := &models.SettlementReport{
		MatchID: match.ID,
		Outcome: outcome,
		Totals:  make(map[models.Outcome]int64),
	}

	open, err := uow.Wagers().GetByMatchAndResult(ctx, match.ID, models.WagerResultInProgress)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return report, nil
	}

	house, err := getHouse(ctx, uow)
	if err != nil {
		return nil, err
	}

	var pot int64
	for _, w := range open {
		report.Totals[w.Prediction] += w.Amount
		pot += w.Amount
	}
	winnerTotal := report.Totals[outcome]

	describe := func(w *models.Wager, paid int64) (models.WinnerPayout, error) {
		bettor, err := uow.Users().GetByID(ctx, w.UserID)
		if err != nil {
			return models.WinnerPayout{}, err
		}
		if bettor == nil {
			return models.WinnerPayout{}, fmt.Errorf("wager %d references unknown user %d", w.ID, w.UserID)
		}
		return models.WinnerPayout{
			UserID:    bettor.ID,
			DiscordID: bettor.DiscordID,
			Nick:      bettor.Nick,
			Staked:    w.Amount,
			Payout:    paid,
		}, nil
	}

	refund := func(w *models.Wager, result models.WagerResult) error {
		if _, err := createTransfer(ctx, uow, house.ID, w.UserID, w.Amount, models.TransferReasonCancelBet, &w.ID); err != nil {
			return err
		}
		if err := uow.Wagers().SetResult(ctx, w.ID, result); err != nil {
			return err
		}
		entry, err := describe(w, w.Amount)
		if err != nil {
			return err
		}
		report.Refunded = append(report.Refunded, entry)
		return nil
	}

	switch {
	case winnerTotal == 0:
		// Nobody predicted the outcome; return every stake
		report.NoWinner = true
		for _, w := range open {
			if err := refund(w, models.WagerResultCancelledNoWinners); err != nil {
				return nil, err
			}
		}

	case winnerTotal == pot:
		// Everyone predicted the outcome; nobody took the other side
		report.OneSided = true
		report.Ratio = 1.0
		for _, w := range open {
			if err := refund(w, models.WagerResultCancelledOneSided); err != nil {
				return nil, err
			}
		}

	default:
		report.Ratio = float64(pot) / float64(winnerTotal)
		for _, w := range open {
			if w.Prediction == outcome {
				paid := payout(w.Amount, report.Ratio, outcome)
				if paid > 0 {
					if _, err := createTransfer(ctx, uow, house.ID, w.UserID, paid, models.TransferReasonWinBet, &w.ID); err != nil {
						return nil, err
					}
				}
				if err := uow.Wagers().SetResult(ctx, w.ID, models.WagerResultWon); err != nil {
					return nil, err
				}
				entry, err := describe(w, paid)
				if err != nil {
					return nil, err
				}
				report.Winners = append(report.Winners, entry)
			} else {
				if err := uow.Wagers().SetResult(ctx, w.ID, models.WagerResultLost); err != nil {
					return nil, err
				}
				entry, err := describe(w, 0)
				if err != nil {
					return nil, err
				}
				report.Losers = append(report.Losers, entry)
			}
		}
	}

	uow.EventBus().Publish(events.MatchSettledEvent{Report: report})
	return report, nil
}

// refundOpenWagers returns every open stake on a match, marking the wagers
// cancelled. Used when the match is voided or its teams change under the
// bettors; the caller publishes the event that fits.
func refundOpenWagers(ctx context.Context, uow UnitOfWork, match *models.Match) ([]models.WinnerPayout, error) {
	open, err := uow.Wagers().GetByMatchAndResult(ctx, match.ID, models.WagerResultInProgress)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}

	house, err := getHouse(ctx, uow)
	if err != nil {
		return nil, err
	}

	var refunded []models.WinnerPayout
	for _, w := range open {
		if _, err := createTransfer(ctx, uow, house.ID, w.UserID, w.Amount, models.TransferReasonCancelBet, &w.ID); err != nil {
			return nil, err
		}
		if err := uow.Wagers().SetResult(ctx, w.ID, models.WagerResultCancelled); err != nil {
			return nil, err
		}
		bettor, err := uow.Users().GetByID(ctx, w.UserID)
		if err != nil {
			return nil, err
		}
		refunded = append(refunded, models.WinnerPayout{
			UserID:    bettor.ID,
			DiscordID: bettor.DiscordID,
			Nick:      bettor.Nick,
			Staked:    w.Amount,
			Payout:    w.Amount,
		})
	}
	return refunded, nil
}

// SettleMatch moves the match to its terminal status and resolves every open
// wager in the same transaction.
func (s *wagerService) SettleMatch(ctx context.Context, matchID int64, outcome models.Outcome) (*models.SettlementReport, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.Matches().GetByIDForUpdate(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}

	terminal := outcome.TerminalStatus()
	if !match.CanTransitionTo(terminal) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, match.Status, terminal)
	}

	match.Status = terminal
	if err := uow.Matches().Update(ctx, match); err != nil {
		return nil, err
	}

	report, err := settleWagers(ctx, uow, match, outcome)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return report, nil
}

// ChangeResult reverses a prior settlement with offsetting transfers, then
// re-settles the match with the new outcome. The ledger keeps both rounds.
func (s *wagerService) ChangeResult(ctx context.Context, matchID int64, newOutcome models.Outcome) (*models.SettlementReport, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.Matches().GetByIDForUpdate(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	if match.Status == models.MatchStatusCancelled {
		return nil, ErrMatchCancelled
	}
	oldOutcome, ok := models.OutcomeForStatus(match.Status)
	if !ok {
		return nil, ErrMatchNotSettled
	}
	if oldOutcome == newOutcome {
		return nil, ErrSameResult
	}

	house, err := getHouse(ctx, uow)
	if err != nil {
		return nil, err
	}

	// Claw back whatever the previous settlement paid. The amount owed back
	// per wager is read off the transfer log, so repeated corrections stay
	// exact: payouts and refunds received, minus reversals already made.
	wagers, err := uow.Wagers().GetByMatch(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	for _, w := range wagers {
		switch w.Result {
		case models.WagerResultWon, models.WagerResultLost,
			models.WagerResultCancelledNoWinners, models.WagerResultCancelledOneSided:
		default:
			// In-progress wagers cannot exist on a settled match; wagers
			// cancelled by roster changes stayed out of the settlement.
			continue
		}

		owed, err := netSettlementPaid(ctx, uow, w.ID)
		if err != nil {
			return nil, err
		}
		if owed > 0 {
			if _, err := createTransfer(ctx, uow, w.UserID, house.ID, owed, models.TransferReasonRevertWin, &w.ID); err != nil {
				return nil, err
			}
		}
		if err := uow.Wagers().SetResult(ctx, w.ID, models.WagerResultInProgress); err != nil {
			return nil, err
		}
	}

	match.Status = newOutcome.TerminalStatus()
	if err := uow.Matches().Update(ctx, match); err != nil {
		return nil, err
	}

	report, err := settleWagers(ctx, uow, match, newOutcome)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return report, nil
}

// netSettlementPaid returns what the House still owes back on a wager:
// settlement credits received minus reversals already collected.
func netSettlementPaid(ctx context.Context, uow UnitOfWork, wagerID int64) (int64, error) {
	var net int64
	for _, reason := range []models.TransferReason{models.TransferReasonWinBet, models.TransferReasonCancelBet} {
		transfers, err := uow.Transfers().GetByReason(ctx, reason, wagerID)
		if err != nil {
			return 0, err
		}
		for _, t := range transfers {
			net += t.Amount
		}
	}
	reverted, err := uow.Transfers().GetByReason(ctx, models.TransferReasonRevertWin, wagerID)
	if err != nil {
		return 0, err
	}
	for _, t := range reverted {
		net -= t.Amount
	}
	return net, nil
}

// VoidMatch cancels the match and refunds every open wager in full. The
// settlement ratio is void, so every stake flows back House to bettor.
func (s *wagerService) VoidMatch(ctx context.Context, matchID int64) (*models.SettlementReport, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.Matches().GetByIDForUpdate(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	if !match.CanTransitionTo(models.MatchStatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, match.Status, models.MatchStatusCancelled)
	}

	match.Status = models.MatchStatusCancelled
	if err := uow.Matches().Update(ctx, match); err != nil {
		return nil, err
	}

	refunded, err := refundOpenWagers(ctx, uow, match)
	if err != nil {
		return nil, err
	}

	report := &models.SettlementReport{
		MatchID:  match.ID,
		Voided:   true,
		Refunded: refunded,
	}
	uow.EventBus().Publish(events.MatchSettledEvent{Report: report})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return report, nil
}
