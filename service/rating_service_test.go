package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shazbuckbot/models"
	"shazbuckbot/repository/testutil"
)

func TestRatingService_RecordMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("decisive result moves both teams", func(t *testing.T) {
		store, _, factory := newMemFactory()
		svc := NewRatingService(factory)

		match := testutil.NewPickedMatch("NA Elite",
			testutil.NewTeam("cap1", "a"), testutil.NewTeam("cap2", "b"))
		match.ID = 7
		require.NoError(t, svc.RecordMatch(ctx, match, models.OutcomeTeam1))

		winner, err := (&memRatingRepo{store}).Latest(ctx, "cap1")
		require.NoError(t, err)
		require.NotNil(t, winner)
		loser, err := (&memRatingRepo{store}).Latest(ctx, "cap2")
		require.NoError(t, err)
		require.NotNil(t, loser)

		assert.Greater(t, winner.Mu, loser.Mu)
		assert.Equal(t, 1, winner.RatedMatches)
	})

	t.Run("successive matches build on the stored series", func(t *testing.T) {
		store, _, factory := newMemFactory()
		svc := NewRatingService(factory)

		match := testutil.NewPickedMatch("NA Elite",
			testutil.NewTeam("cap1", "a"), testutil.NewTeam("cap2", "b"))
		match.ID = 7
		require.NoError(t, svc.RecordMatch(ctx, match, models.OutcomeTeam1))
		afterOne, err := (&memRatingRepo{store}).Latest(ctx, "cap1")
		require.NoError(t, err)

		match.ID = 8
		require.NoError(t, svc.RecordMatch(ctx, match, models.OutcomeTeam1))
		afterTwo, err := (&memRatingRepo{store}).Latest(ctx, "cap1")
		require.NoError(t, err)

		assert.Equal(t, 2, afterTwo.RatedMatches)
		assert.Greater(t, afterTwo.Mu, afterOne.Mu)
		assert.Less(t, afterTwo.Sigma, afterOne.Sigma)
	})

	t.Run("matches without rosters are skipped", func(t *testing.T) {
		store, _, factory := newMemFactory()
		svc := NewRatingService(factory)

		custom := &models.Match{
			ID:     9,
			Team1:  models.Team{Label: "Red"},
			Team2:  models.Team{Label: "Blue"},
			Status: models.MatchStatusInProgress,
		}
		require.NoError(t, svc.RecordMatch(ctx, custom, models.OutcomeTeam1))
		assert.Empty(t, store.ratings)
	})
}

func TestRatingService_SuggestTeams(t *testing.T) {
	ctx := context.Background()

	t.Run("splits a pool into halves", func(t *testing.T) {
		_, _, factory := newMemFactory()
		svc := NewRatingService(factory)

		suggestion, err := svc.SuggestTeams(ctx, []string{"a", "b", "c", "d"})
		require.NoError(t, err)
		assert.Len(t, suggestion.Team1, 2)
		assert.Len(t, suggestion.Team2, 2)
		assert.Greater(t, suggestion.Quality, 0.0)
	})

	t.Run("separates the two strongest players", func(t *testing.T) {
		store, _, factory := newMemFactory()
		svc := NewRatingService(factory)

		// Two proven strong players among two unknowns
		for i, player := range []string{"strong1", "strong2"} {
			require.NoError(t, (&memRatingRepo{store}).Append(ctx, &models.SkillRating{
				PlayerID: player, MatchID: int64(i + 1), Mu: 40, Sigma: 1,
			}))
		}

		suggestion, err := svc.SuggestTeams(ctx, []string{"strong1", "strong2", "new1", "new2"})
		require.NoError(t, err)

		onTeam1 := 0
		for _, p := range suggestion.Team1 {
			if p == "strong1" || p == "strong2" {
				onTeam1++
			}
		}
		assert.Equal(t, 1, onTeam1, "strong players should land on opposite teams")
	})

	t.Run("odd pools are rejected", func(t *testing.T) {
		_, _, factory := newMemFactory()
		svc := NewRatingService(factory)
		_, err := svc.SuggestTeams(ctx, []string{"a", "b", "c"})
		assert.Error(t, err)
	})
}

func TestRatingService_EstimateWinChance(t *testing.T) {
	ctx := context.Background()

	seedRated := func(t *testing.T, store *memStore, player string, mu float64, matches int) {
		t.Helper()
		for i := 0; i < matches; i++ {
			require.NoError(t, (&memRatingRepo{store}).Append(ctx, &models.SkillRating{
				PlayerID: player, MatchID: int64(i + 1), Mu: mu, Sigma: 2,
			}))
		}
	}

	t.Run("favors the higher rated team", func(t *testing.T) {
		store, _, factory := newMemFactory()
		svc := NewRatingService(factory)
		seedRated(t, store, "strong", 35, 10)
		seedRated(t, store, "weak", 15, 10)

		chance, err := svc.EstimateWinChance(ctx, []string{"strong"}, []string{"weak"})
		require.NoError(t, err)
		assert.Greater(t, chance, 0.5)
	})

	t.Run("requires a rated history", func(t *testing.T) {
		store, _, factory := newMemFactory()
		svc := NewRatingService(factory)
		seedRated(t, store, "strong", 35, 10)
		seedRated(t, store, "fresh", 25, 3)

		_, err := svc.EstimateWinChance(ctx, []string{"strong"}, []string{"fresh"})
		assert.ErrorIs(t, err, ErrNotEnoughData)
	})
}
