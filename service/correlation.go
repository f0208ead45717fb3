package service

import (
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"shazbuckbot/models"
)

// The matchmaker's feed does not carry match ids, so its events have to be
// correlated back onto stored matches. The rules live here and nowhere else:
// narrow by queue or participants, then use a reported duration when there is
// one, and fall back to the most recently started candidate. Ambiguity is
// resolved, not rejected, but always logged.

// correlateByElapsed picks the candidate whose time since pick best matches
// the reported match duration. Candidates are expected most recent first.
func correlateByElapsed(candidates []*models.Match, elapsed time.Duration, now time.Time) *models.Match {
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 {
		return candidates[0]
	}

	best := candidates[0]
	if elapsed > 0 {
		bestDiff := time.Duration(math.MaxInt64)
		for _, candidate := range candidates {
			diff := candidate.Elapsed(now) - elapsed
			if diff < 0 {
				diff = -diff
			}
			if diff < bestDiff {
				bestDiff = diff
				best = candidate
			}
		}
	}

	log.WithFields(log.Fields{
		"candidates": len(candidates),
		"elapsed":    elapsed,
		"match_id":   best.ID,
	}).Warn("Ambiguous match correlation, picked by duration")
	return best
}

// correlateByPlayers picks the candidate whose rosters contain every named
// player, preferring the most recently started when several qualify.
func correlateByPlayers(candidates []*models.Match, players ...string) *models.Match {
	var matched []*models.Match
	for _, candidate := range candidates {
		all := true
		for _, player := range players {
			if !candidate.Team1.HasPlayer(player) && !candidate.Team2.HasPlayer(player) {
				all = false
				break
			}
		}
		if all {
			matched = append(matched, candidate)
		}
	}

	if len(matched) == 0 {
		return nil
	}
	// Candidates arrive most recent first, so the first hit is the newest
	if len(matched) > 1 {
		log.WithFields(log.Fields{
			"candidates": len(matched),
			"players":    players,
			"match_id":   matched[0].ID,
		}).Warn("Ambiguous match correlation, picked most recent")
	}
	return matched[0]
}
