package trueskill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func team(ratings ...Rating) []Rating {
	return ratings
}

func defaults(n int) []Rating {
	t := make([]Rating, n)
	for i := range t {
		t[i] = NewRating()
	}
	return t
}

func TestNewRatingDefaults(t *testing.T) {
	r := NewRating()
	assert.Equal(t, 25.0, r.Mu)
	assert.InDelta(t, 25.0/3.0, r.Sigma, 1e-9)
	assert.InDelta(t, 0.0, r.Exposure(), 1e-9)
}

func TestRateDecisiveWinMovesRatings(t *testing.T) {
	env := DefaultEnv()
	winners, losers := env.Rate(defaults(4), defaults(4), [2]int{0, 1})

	for _, r := range winners {
		assert.Greater(t, r.Mu, DefaultMu, "winner mu should rise")
		assert.Less(t, r.Sigma, DefaultSigma, "uncertainty should shrink")
	}
	for _, r := range losers {
		assert.Less(t, r.Mu, DefaultMu, "loser mu should fall")
		assert.Less(t, r.Sigma, DefaultSigma)
	}

	// The update is symmetric for identical priors.
	assert.InDelta(t, winners[0].Mu-DefaultMu, DefaultMu-losers[0].Mu, 1e-9)
}

func TestRateTeam2Win(t *testing.T) {
	env := DefaultEnv()
	team1, team2 := env.Rate(defaults(4), defaults(4), [2]int{1, 0})

	assert.Less(t, team1[0].Mu, DefaultMu)
	assert.Greater(t, team2[0].Mu, DefaultMu)
}

func TestRateDrawKeepsEqualPriorsEqual(t *testing.T) {
	env := DefaultEnv()
	team1, team2 := env.Rate(defaults(4), defaults(4), [2]int{0, 0})

	for i := range team1 {
		assert.InDelta(t, DefaultMu, team1[i].Mu, 1e-9)
		assert.InDelta(t, team1[i].Mu, team2[i].Mu, 1e-9)
		assert.Less(t, team1[i].Sigma, DefaultSigma, "a draw is still information")
	}
}

func TestRateUpsetMovesMoreThanExpectedWin(t *testing.T) {
	env := DefaultEnv()
	strong := team(Rating{Mu: 35, Sigma: 3}, Rating{Mu: 33, Sigma: 3})
	weak := team(Rating{Mu: 18, Sigma: 3}, Rating{Mu: 16, Sigma: 3})

	_, weakAfterLoss := env.Rate(strong, weak, [2]int{0, 1})
	weakAfterWin, _ := env.Rate(weak, strong, [2]int{0, 1})

	expectedLossShift := weak[0].Mu - weakAfterLoss[0].Mu
	upsetWinShift := weakAfterWin[0].Mu - weak[0].Mu
	assert.Greater(t, upsetWinShift, expectedLossShift,
		"an upset win should move ratings more than an expected loss")
}

func TestRateDoesNotMutateInputs(t *testing.T) {
	env := DefaultEnv()
	team1 := defaults(2)
	team2 := defaults(2)
	env.Rate(team1, team2, [2]int{0, 1})

	assert.Equal(t, NewRating(), team1[0])
	assert.Equal(t, NewRating(), team2[1])
}

func TestQualityEvenTeamsBeatsLopsided(t *testing.T) {
	env := DefaultEnv()

	even := env.Quality(defaults(4), defaults(4))
	lopsided := env.Quality(
		team(Rating{Mu: 40, Sigma: 2}, Rating{Mu: 38, Sigma: 2}),
		team(Rating{Mu: 12, Sigma: 2}, Rating{Mu: 10, Sigma: 2}),
	)

	assert.Greater(t, even, 0.0)
	assert.LessOrEqual(t, even, 1.0)
	assert.Greater(t, even, lopsided)
	assert.Less(t, lopsided, 0.01)
}

func TestWinProbability(t *testing.T) {
	env := DefaultEnv()

	even := env.WinProbability(defaults(4), defaults(4))
	assert.InDelta(t, 0.5, even, 1e-9)

	strong := team(Rating{Mu: 35, Sigma: 2}, Rating{Mu: 34, Sigma: 2})
	weak := team(Rating{Mu: 15, Sigma: 2}, Rating{Mu: 14, Sigma: 2})

	pStrong := env.WinProbability(strong, weak)
	pWeak := env.WinProbability(weak, strong)
	require.Greater(t, pStrong, 0.9)
	assert.InDelta(t, 1.0, pStrong+pWeak, 1e-9)
}

func TestDrawMarginGrowsWithDrawProbability(t *testing.T) {
	low := drawMargin(0.05, DefaultBeta, 8)
	high := drawMargin(0.50, DefaultBeta, 8)
	assert.Greater(t, high, low)
	assert.Greater(t, low, 0.0)
}
