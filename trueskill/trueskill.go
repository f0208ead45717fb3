// Package trueskill implements the two-team Bayesian skill update used to
// rate PUG players: a mean/uncertainty pair per player, a draw-aware
// truncated-Gaussian update after each match, a draw-probability estimate
// used for balancing suggestions, and a win-probability estimate.
package trueskill

import (
	"math"
)

// Defaults match the conventional TrueSkill environment.
const (
	DefaultMu    = 25.0
	DefaultSigma = DefaultMu / 3.0
	DefaultBeta  = DefaultSigma / 2.0
	DefaultTau   = DefaultSigma / 100.0

	// DefaultDrawProbability is the assumed chance two even teams tie.
	DefaultDrawProbability = 0.10

	// exposureFactor makes Exposure the conservative mu - 3*sigma estimate.
	exposureFactor = DefaultMu / DefaultSigma
)

// Rating is a player's skill estimate.
type Rating struct {
	Mu    float64
	Sigma float64
}

// NewRating returns the default prior for an unrated player.
func NewRating() Rating {
	return Rating{Mu: DefaultMu, Sigma: DefaultSigma}
}

// Exposure is the conservative scalar skill estimate, mu - 3*sigma.
func (r Rating) Exposure() float64 {
	return r.Mu - exposureFactor*r.Sigma
}

// Env carries the tunable environment constants.
type Env struct {
	Beta            float64
	Tau             float64
	DrawProbability float64
}

// DefaultEnv returns the standard environment.
func DefaultEnv() Env {
	return Env{Beta: DefaultBeta, Tau: DefaultTau, DrawProbability: DefaultDrawProbability}
}

// Rate runs the two-team update. Ranks follow the usual convention: [0, 1]
// means team1 won, [1, 0] means team2 won and [0, 0] is a draw. The input
// slices are not modified; updated ratings are returned in roster order.
func (e Env) Rate(team1, team2 []Rating, ranks [2]int) ([]Rating, []Rating) {
	n := float64(len(team1) + len(team2))

	// Dynamics factor: inflate each player's variance before the update so
	// ratings stay responsive over time.
	var1 := make([]float64, len(team1))
	var2 := make([]float64, len(team2))
	var mu1, mu2, varSum float64
	for i, r := range team1 {
		var1[i] = r.Sigma*r.Sigma + e.Tau*e.Tau
		mu1 += r.Mu
		varSum += var1[i]
	}
	for i, r := range team2 {
		var2[i] = r.Sigma*r.Sigma + e.Tau*e.Tau
		mu2 += r.Mu
		varSum += var2[i]
	}

	c := math.Sqrt(varSum + n*e.Beta*e.Beta)
	eps := drawMargin(e.DrawProbability, e.Beta, n) / c

	draw := ranks[0] == ranks[1]
	team1Won := ranks[0] < ranks[1]

	update := func(ratings []Rating, variances []float64, meanDelta float64, won bool) []Rating {
		t := meanDelta / c
		var v, w, rankMult float64
		switch {
		case draw:
			v = vWithinMargin(t, eps)
			w = wWithinMargin(t, eps)
			rankMult = 1
		case won:
			v = vExceedsMargin(t, eps)
			w = wExceedsMargin(t, eps)
			rankMult = 1
		default:
			v = vExceedsMargin(-t, eps)
			w = wExceedsMargin(-t, eps)
			rankMult = -1
		}

		updated := make([]Rating, len(ratings))
		for i, r := range ratings {
			variance := variances[i]
			updated[i] = Rating{
				Mu:    r.Mu + rankMult*(variance/c)*v,
				Sigma: math.Sqrt(variance * (1 - w*variance/(c*c))),
			}
		}
		return updated
	}

	newTeam1 := update(team1, var1, mu1-mu2, team1Won)
	newTeam2 := update(team2, var2, mu2-mu1, !team1Won)
	return newTeam1, newTeam2
}

// Quality estimates the probability the two teams draw: 1.0 means perfectly
// even, approaching 0 means a foregone conclusion. Used to suggest balanced
// team splits.
func (e Env) Quality(team1, team2 []Rating) float64 {
	n := float64(len(team1) + len(team2))

	var mu1, mu2, varSum float64
	for _, r := range team1 {
		mu1 += r.Mu
		varSum += r.Sigma * r.Sigma
	}
	for _, r := range team2 {
		mu2 += r.Mu
		varSum += r.Sigma * r.Sigma
	}

	betaSq := n * e.Beta * e.Beta
	denom := betaSq + varSum
	meanDelta := mu1 - mu2

	return math.Sqrt(betaSq/denom) * math.Exp(-meanDelta*meanDelta/(2*denom))
}

// WinProbability estimates the chance team1 beats team2.
func (e Env) WinProbability(team1, team2 []Rating) float64 {
	n := float64(len(team1) + len(team2))

	var mu1, mu2, varSum float64
	for _, r := range team1 {
		mu1 += r.Mu
		varSum += r.Sigma * r.Sigma
	}
	for _, r := range team2 {
		mu2 += r.Mu
		varSum += r.Sigma * r.Sigma
	}

	return normCDF((mu1 - mu2) / math.Sqrt(n*e.Beta*e.Beta+varSum))
}

// drawMargin converts a draw probability into the performance margin within
// which a game counts as tied.
func drawMargin(drawProbability, beta, totalPlayers float64) float64 {
	return normPPF((drawProbability+1)/2) * math.Sqrt(totalPlayers) * beta
}

const minDenom = 1e-10

// vExceedsMargin is the additive mean correction for a decisive result.
func vExceedsMargin(t, eps float64) float64 {
	denom := normCDF(t - eps)
	if denom < minDenom {
		return -t + eps
	}
	return normPDF(t-eps) / denom
}

// wExceedsMargin is the multiplicative variance correction for a decisive result.
func wExceedsMargin(t, eps float64) float64 {
	denom := normCDF(t - eps)
	if denom < minDenom {
		if t < 0 {
			return 1
		}
		return 0
	}
	v := vExceedsMargin(t, eps)
	return v * (v + t - eps)
}

// vWithinMargin is the additive mean correction for a draw.
func vWithinMargin(t, eps float64) float64 {
	tAbs := math.Abs(t)
	denom := normCDF(eps-tAbs) - normCDF(-eps-tAbs)
	if denom < minDenom {
		if t < 0 {
			return -t - eps
		}
		return -t + eps
	}
	v := (normPDF(-eps-tAbs) - normPDF(eps-tAbs)) / denom
	if t < 0 {
		return -v
	}
	return v
}

// wWithinMargin is the multiplicative variance correction for a draw.
func wWithinMargin(t, eps float64) float64 {
	tAbs := math.Abs(t)
	denom := normCDF(eps-tAbs) - normCDF(-eps-tAbs)
	if denom < minDenom {
		return 1
	}
	v := vWithinMargin(t, eps)
	return v*v + ((eps-tAbs)*normPDF(eps-tAbs)+(eps+tAbs)*normPDF(eps+tAbs))/denom
}

func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPPF is the inverse of normCDF.
func normPPF(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}
