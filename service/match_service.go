package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"shazbuckbot/config"
	"shazbuckbot/events"
	"shazbuckbot/models"
)

// matchService implements the MatchService interface
type matchService struct {
	uowFactory UnitOfWorkFactory
	wagers     WagerService
	ratings    RatingService
	now        func() time.Time
}

// NewMatchService creates a new match lifecycle service
func NewMatchService(uowFactory UnitOfWorkFactory, wagers WagerService, ratings RatingService) MatchService {
	return &matchService{
		uowFactory: uowFactory,
		wagers:     wagers,
		ratings:    ratings,
		now:        time.Now,
	}
}

// StartPicking records a new match in the picking phase
func (s *matchService) StartPicking(ctx context.Context, queue string) (*models.Match, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := s.createPickingMatch(ctx, uow, queue)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return match, nil
}

func (s *matchService) createPickingMatch(ctx context.Context, uow UnitOfWork, queue string) (*models.Match, error) {
	match := &models.Match{
		Queue:     queue,
		StartTime: s.now(),
		Status:    models.MatchStatusPicking,
		BetWindow: int64(config.Get().BetWindow() / time.Second),
	}
	if err := uow.Matches().Create(ctx, match); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.MatchCreatedEvent{
		MatchID: match.ID,
		Queue:   queue,
	})
	return match, nil
}

// PickTeams finalizes rosters and opens the bet window. If the begin
// announcement was missed, the picking match is created on the spot.
func (s *matchService) PickTeams(ctx context.Context, queue string, team1, team2 models.Team) (*models.Match, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	picking, err := uow.Matches().GetByQueueAndStatus(ctx, queue, models.MatchStatusPicking)
	if err != nil {
		return nil, err
	}

	var match *models.Match
	if len(picking) == 0 {
		log.WithField("queue", queue).Warn("Teams picked for a match never seen beginning, creating it")
		match, err = s.createPickingMatch(ctx, uow, queue)
		if err != nil {
			return nil, err
		}
	} else {
		// Most recent first; older stragglers stay untouched
		match = picking[0]
	}

	// Pick time is set exactly once; re-picks after a missed message must
	// not reopen a betting window
	if match.PickTime == nil {
		pickTime := s.now()
		match.PickTime = &pickTime
	}
	match.Team1 = team1
	match.Team2 = team2
	match.Status = models.MatchStatusInProgress
	if err := uow.Matches().Update(ctx, match); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.TeamsPickedEvent{
		MatchID: match.ID,
		Queue:   queue,
		Team1:   match.Team1.Name(),
		Team2:   match.Team2.Name(),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return match, nil
}

// CancelMatch cancels the queue's current match. During picking no bets
// exist yet, so the match is simply closed out; once teams are picked the
// match is voided and every open stake returned.
func (s *matchService) CancelMatch(ctx context.Context, queue string) (*models.Match, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	picking, err := uow.Matches().GetByQueueAndStatus(ctx, queue, models.MatchStatusPicking)
	if err != nil {
		return nil, err
	}
	if len(picking) > 0 {
		match := picking[0]
		match.Status = models.MatchStatusCancelled
		if err := uow.Matches().Update(ctx, match); err != nil {
			return nil, err
		}
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return match, nil
	}

	inProgress, err := uow.Matches().GetByQueueAndStatus(ctx, queue, models.MatchStatusInProgress)
	if err != nil {
		return nil, err
	}
	if len(inProgress) == 0 {
		return nil, ErrMatchNotFound
	}
	match := inProgress[0]

	// The void takes the row lock itself; close the lookup first
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if _, err := s.wagers.VoidMatch(ctx, match.ID); err != nil {
		return nil, err
	}
	match.Status = models.MatchStatusCancelled
	return match, nil
}

// FinishMatch resolves the winner token against the in-progress match on the
// queue, settles it and feeds the result into the skill ratings.
func (s *matchService) FinishMatch(ctx context.Context, queue string, winner string, elapsed time.Duration) (*models.SettlementReport, error) {
	match, outcome, err := s.resolveFinished(ctx, queue, winner, elapsed)
	if err != nil {
		return nil, err
	}

	report, err := s.wagers.SettleMatch(ctx, match.ID, outcome)
	if err != nil {
		return nil, err
	}

	// Ratings ride behind settlement: a failure here must not undo the
	// payouts, the series can be rebuilt from match history
	if err := s.ratings.RecordMatch(ctx, match, outcome); err != nil {
		log.WithError(err).WithField("match_id", match.ID).Warn("Failed to record skill ratings")
	}

	return report, nil
}

func (s *matchService) resolveFinished(ctx context.Context, queue string, winner string, elapsed time.Duration) (*models.Match, models.Outcome, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	candidates, err := uow.Matches().GetByQueueAndStatus(ctx, queue, models.MatchStatusInProgress)
	if err != nil {
		return nil, "", err
	}
	match := correlateByElapsed(candidates, elapsed, s.now())
	if match == nil {
		return nil, "", ErrMatchNotFound
	}

	var outcome models.Outcome
	if isTieToken(winner) {
		outcome = models.OutcomeTied
	} else {
		var ok bool
		outcome, ok = resolveOutcome(match, winner)
		if !ok {
			return nil, "", fmt.Errorf("%w: winner %q on match %d", ErrUnknownOutcome, winner, match.ID)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return match, outcome, nil
}

// rosterCandidates returns matches whose rosters can still change, most
// recent first
func rosterCandidates(ctx context.Context, uow UnitOfWork) ([]*models.Match, error) {
	inProgress, err := uow.Matches().GetByStatus(ctx, models.MatchStatusInProgress)
	if err != nil {
		return nil, err
	}
	picking, err := uow.Matches().GetByStatus(ctx, models.MatchStatusPicking)
	if err != nil {
		return nil, err
	}
	return append(inProgress, picking...), nil
}

// mutateRoster correlates a roster event onto a match, applies the mutation
// and refunds open wagers when the teams bettors backed no longer exist.
func (s *matchService) mutateRoster(ctx context.Context, reason string, subjects []string, mutate func(match *models.Match) error) (*models.Match, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	candidates, err := rosterCandidates(ctx, uow)
	if err != nil {
		return nil, err
	}
	found := correlateByPlayers(candidates, subjects...)
	if found == nil {
		return nil, ErrMatchNotFound
	}

	// Re-read under lock; the unlocked read was only for correlation
	match, err := uow.Matches().GetByIDForUpdate(ctx, found.ID)
	if err != nil {
		return nil, err
	}

	if err := mutate(match); err != nil {
		return nil, err
	}
	if err := uow.Matches().Update(ctx, match); err != nil {
		return nil, err
	}

	if match.Status == models.MatchStatusInProgress {
		refunded, err := refundOpenWagers(ctx, uow, match)
		if err != nil {
			return nil, err
		}
		if len(refunded) > 0 {
			uow.EventBus().Publish(events.WagersInvalidatedEvent{
				MatchID:  match.ID,
				Reason:   reason,
				Refunded: refunded,
			})
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return match, nil
}

// SubstitutePlayer replaces leaving with joining on whichever team has them
func (s *matchService) SubstitutePlayer(ctx context.Context, leaving, joining string) (*models.Match, error) {
	return s.mutateRoster(ctx, fmt.Sprintf("%s was substituted by %s", leaving, joining), []string{leaving}, func(match *models.Match) error {
		for _, team := range []*models.Team{&match.Team1, &match.Team2} {
			if foldName(team.Captain) == foldName(leaving) {
				team.Captain = joining
				return nil
			}
			for i, p := range team.Players {
				if foldName(p) == foldName(leaving) {
					team.Players[i] = joining
					return nil
				}
			}
		}
		return fmt.Errorf("player %s not found on match %d", leaving, match.ID)
	})
}

// SwapPlayers exchanges two players between the teams of one match
func (s *matchService) SwapPlayers(ctx context.Context, playerA, playerB string) (*models.Match, error) {
	replace := func(team *models.Team, from, to string) bool {
		for i, p := range team.Players {
			if foldName(p) == foldName(from) {
				team.Players[i] = to
				return true
			}
		}
		return false
	}
	return s.mutateRoster(ctx, fmt.Sprintf("%s and %s swapped teams", playerA, playerB), []string{playerA, playerB}, func(match *models.Match) error {
		aOn1 := match.Team1.HasPlayer(playerA)
		bOn1 := match.Team1.HasPlayer(playerB)
		if aOn1 == bOn1 {
			return fmt.Errorf("players %s and %s are not on opposite teams of match %d", playerA, playerB, match.ID)
		}
		first, second := playerA, playerB
		if bOn1 {
			first, second = playerB, playerA
		}
		if !replace(&match.Team1, first, second) || !replace(&match.Team2, second, first) {
			return fmt.Errorf("captains cannot be swapped between teams")
		}
		return nil
	})
}

// ReplaceCaptain promotes a new captain in place of the old one. The new
// captain takes over team naming, so open wagers are refunded.
func (s *matchService) ReplaceCaptain(ctx context.Context, oldCaptain, newCaptain string) (*models.Match, error) {
	return s.mutateRoster(ctx, fmt.Sprintf("captain %s was replaced by %s", oldCaptain, newCaptain), []string{oldCaptain}, func(match *models.Match) error {
		for _, team := range []*models.Team{&match.Team1, &match.Team2} {
			if foldName(team.Captain) != foldName(oldCaptain) {
				continue
			}
			team.Captain = newCaptain
			// When promoted from within the team, the new captain leaves
			// the player list
			for i, p := range team.Players {
				if foldName(p) == foldName(newCaptain) {
					team.Players = append(team.Players[:i], team.Players[i+1:]...)
					break
				}
			}
			return nil
		}
		return fmt.Errorf("captain %s not found on match %d", oldCaptain, match.ID)
	})
}

// StartCustomMatch opens betting on a match with free-form outcome labels.
// There is no picking phase: the window opens immediately.
func (s *matchService) StartCustomMatch(ctx context.Context, queue, label1, label2 string, betWindow time.Duration) (*models.Match, error) {
	if betWindow <= 0 {
		betWindow = config.Get().BetWindow()
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := s.now()
	match := &models.Match{
		Queue:     queue,
		StartTime: now,
		PickTime:  &now,
		Team1:     models.Team{Label: label1},
		Team2:     models.Team{Label: label2},
		Status:    models.MatchStatusInProgress,
		BetWindow: int64(betWindow / time.Second),
	}
	if err := uow.Matches().Create(ctx, match); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.TeamsPickedEvent{
		MatchID: match.ID,
		Queue:   queue,
		Team1:   label1,
		Team2:   label2,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return match, nil
}

// EndCustomMatch settles a custom match against an outcome token
func (s *matchService) EndCustomMatch(ctx context.Context, matchID int64, token string) (*models.SettlementReport, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.Matches().GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}

	var outcome models.Outcome
	if isTieToken(token) {
		outcome = models.OutcomeTied
	} else {
		var ok bool
		outcome, ok = resolveOutcome(match, token)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOutcome, token)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.wagers.SettleMatch(ctx, matchID, outcome)
}

// OpenMatches lists matches bets can still be placed on, plus those still
// picking
func (s *matchService) OpenMatches(ctx context.Context) ([]*models.OpenMatch, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := s.now()
	var open []*models.OpenMatch

	inProgress, err := uow.Matches().GetByStatus(ctx, models.MatchStatusInProgress)
	if err != nil {
		return nil, err
	}
	for _, match := range inProgress {
		if !match.BetWindowOpen(now) {
			continue
		}
		open = append(open, &models.OpenMatch{
			MatchID:        match.ID,
			Queue:          match.Queue,
			Team1:          match.Team1.Name(),
			Team2:          match.Team2.Name(),
			Status:         match.Status,
			SecondsToClose: int64(match.BetWindowRemaining(now) / time.Second),
		})
	}

	picking, err := uow.Matches().GetByStatus(ctx, models.MatchStatusPicking)
	if err != nil {
		return nil, err
	}
	for _, match := range picking {
		open = append(open, &models.OpenMatch{
			MatchID:        match.ID,
			Queue:          match.Queue,
			Status:         match.Status,
			SecondsToClose: int64(match.BetWindowRemaining(now) / time.Second),
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return open, nil
}
