package service

import (
	"context"
	"fmt"
	"sort"

	"shazbuckbot/config"
	"shazbuckbot/events"
	"shazbuckbot/models"
	"shazbuckbot/trueskill"
)

// ratingService implements the RatingService interface
type ratingService struct {
	uowFactory UnitOfWorkFactory
	env        trueskill.Env
}

// NewRatingService creates a new skill rating service
func NewRatingService(uowFactory UnitOfWorkFactory) RatingService {
	return &ratingService{
		uowFactory: uowFactory,
		env:        trueskill.DefaultEnv(),
	}
}

// loadRatings returns the current rating per player, starting unknown
// players at the defaults
func (s *ratingService) loadRatings(ctx context.Context, uow UnitOfWork, playerIDs []string) ([]trueskill.Rating, []int, error) {
	ratings := make([]trueskill.Rating, len(playerIDs))
	counts := make([]int, len(playerIDs))
	for i, id := range playerIDs {
		current, err := uow.Ratings().Latest(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if current == nil {
			ratings[i] = trueskill.NewRating()
		} else {
			ratings[i] = trueskill.Rating{Mu: current.Mu, Sigma: current.Sigma}
			counts[i] = current.RatedMatches
		}
	}
	return ratings, counts, nil
}

// RecordMatch appends new ratings for every identified participant of a
// resolved match. Matches without full rosters (custom matches, lone
// captains) leave the series untouched.
func (s *ratingService) RecordMatch(ctx context.Context, match *models.Match, outcome models.Outcome) error {
	if !match.HasRosters(2) {
		return nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	roster1 := match.Team1.Roster()
	roster2 := match.Team2.Roster()

	team1, _, err := s.loadRatings(ctx, uow, roster1)
	if err != nil {
		return err
	}
	team2, _, err := s.loadRatings(ctx, uow, roster2)
	if err != nil {
		return err
	}

	// Lower rank wins; a tie ranks both teams equal
	var ranks [2]int
	switch outcome {
	case models.OutcomeTeam1:
		ranks = [2]int{0, 1}
	case models.OutcomeTeam2:
		ranks = [2]int{1, 0}
	case models.OutcomeTied:
		ranks = [2]int{0, 0}
	}

	new1, new2 := s.env.Rate(team1, team2, ranks)

	appendAll := func(roster []string, updated []trueskill.Rating) error {
		for i, playerID := range roster {
			rating := &models.SkillRating{
				PlayerID: playerID,
				MatchID:  match.ID,
				Mu:       updated[i].Mu,
				Sigma:    updated[i].Sigma,
				Exposure: updated[i].Exposure(),
			}
			if err := uow.Ratings().Append(ctx, rating); err != nil {
				return err
			}
		}
		return nil
	}
	if err := appendAll(roster1, new1); err != nil {
		return err
	}
	if err := appendAll(roster2, new2); err != nil {
		return err
	}

	uow.EventBus().Publish(events.RatingsUpdatedEvent{
		MatchID: match.ID,
		Players: append(append([]string{}, roster1...), roster2...),
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SuggestTeams splits a player pool into the two most evenly matched teams
// by exhaustive search over the possible splits.
func (s *ratingService) SuggestTeams(ctx context.Context, playerIDs []string) (*models.TeamSuggestion, error) {
	if len(playerIDs) < 2 || len(playerIDs)%2 != 0 {
		return nil, fmt.Errorf("team suggestion needs an even number of players, got %d", len(playerIDs))
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ratings, _, err := s.loadRatings(ctx, uow, playerIDs)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	n := len(playerIDs)
	half := n / 2

	best := &models.TeamSuggestion{Quality: -1}
	// Fix player 0 on team1 to halve the symmetric search space
	for mask := 0; mask < 1<<uint(n-1); mask++ {
		chosen := mask << 1 | 1
		if popcount(chosen) != half {
			continue
		}

		var team1, team2 []trueskill.Rating
		var ids1, ids2 []string
		for i := 0; i < n; i++ {
			if chosen&(1<<uint(i)) != 0 {
				team1 = append(team1, ratings[i])
				ids1 = append(ids1, playerIDs[i])
			} else {
				team2 = append(team2, ratings[i])
				ids2 = append(ids2, playerIDs[i])
			}
		}

		quality := s.env.Quality(team1, team2)
		if quality > best.Quality {
			best.Quality = quality
			best.Team1 = ids1
			best.Team2 = ids2
			best.Team1Chance = s.env.WinProbability(team1, team2)
		}
	}

	sort.Strings(best.Team1)
	sort.Strings(best.Team2)
	return best, nil
}

func popcount(x int) int {
	count := 0
	for x != 0 {
		x &= x - 1
		count++
	}
	return count
}

// EstimateWinChance returns team1's win probability. Every player needs a
// minimum number of rated matches before the estimate means anything.
func (s *ratingService) EstimateWinChance(ctx context.Context, team1, team2 []string) (float64, error) {
	if len(team1) == 0 || len(team2) == 0 {
		return 0, fmt.Errorf("both teams need players")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	minRated := config.Get().MinRatedMatches
	ratings1, counts1, err := s.loadRatings(ctx, uow, team1)
	if err != nil {
		return 0, err
	}
	ratings2, counts2, err := s.loadRatings(ctx, uow, team2)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	for i, count := range append(append([]int{}, counts1...), counts2...) {
		if count < minRated {
			players := append(append([]string{}, team1...), team2...)
			return 0, fmt.Errorf("%w: %s has %d of %d required", ErrNotEnoughData, players[i], count, minRated)
		}
	}

	return s.env.WinProbability(ratings1, ratings2), nil
}
