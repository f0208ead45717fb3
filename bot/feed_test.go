package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeed_MatchBegun(t *testing.T) {
	ev, ok := parseFeed("`Game 'NA' has begun`",
		"**Captains: @jet.Pixel & @eligh_**\njoey, thecaptaintea, yami, r.$.e, iloveoob, Lögïc, GUNDERSTRUTT, Crysta")
	require.True(t, ok)
	assert.Equal(t, feedMatchBegun, ev.kind)
	assert.Equal(t, "NA", ev.queue)
}

func TestParseFeed_TeamsPicked(t *testing.T) {
	description := "**Teams**:\n" +
		"jet.Pixel: joey, thecaptaintea, yami, r.$.e\n" +
		"eligh_: iloveoob, Lögïc, GUNDERSTRUTT, Crysta\n" +
		"\n" +
		"**Maps**: Elite, Exhumed"

	ev, ok := parseFeed("`Game 'NA' teams picked`", description)
	require.True(t, ok)
	assert.Equal(t, feedTeamsPicked, ev.kind)
	assert.Equal(t, "NA", ev.queue)
	assert.Equal(t, "jet.Pixel", ev.team1.Captain)
	assert.Equal(t, []string{"joey", "thecaptaintea", "yami", "r.$.e"}, ev.team1.Players)
	assert.Equal(t, "eligh_", ev.team2.Captain)
	assert.Equal(t, []string{"iloveoob", "Lögïc", "GUNDERSTRUTT", "Crysta"}, ev.team2.Players)
}

func TestParseFeed_MatchFinished(t *testing.T) {
	t.Run("decisive", func(t *testing.T) {
		ev, ok := parseFeed("`Game 'NA' finished`",
			"**Winner:** Team jet.Pixel\n**Duration:** 5 Minutes")
		require.True(t, ok)
		assert.Equal(t, feedMatchFinished, ev.kind)
		assert.Equal(t, "NA", ev.queue)
		assert.Equal(t, "jet.Pixel", ev.winner)
		assert.Equal(t, 5*time.Minute, ev.elapsed)
	})

	t.Run("tie", func(t *testing.T) {
		ev, ok := parseFeed("`Game 'NA' finished`",
			"**Tie game**\n**Duration:** 53 Minutes")
		require.True(t, ok)
		assert.Equal(t, feedMatchFinished, ev.kind)
		assert.Equal(t, "Tie", ev.winner)
		assert.Equal(t, 53*time.Minute, ev.elapsed)
	})

	t.Run("multi word winner", func(t *testing.T) {
		ev, ok := parseFeed("`Game 'EU' finished`",
			"**Winner:** Team Mr Smith\n**Duration:** 12 Minutes")
		require.True(t, ok)
		assert.Equal(t, "Mr Smith", ev.winner)
	})
}

func TestParseFeed_MatchCancelled(t *testing.T) {
	ev, ok := parseFeed("`Game 'NA' has been cancelled`", "")
	require.True(t, ok)
	assert.Equal(t, feedMatchCancelled, ev.kind)
	assert.Equal(t, "NA", ev.queue)
}

func TestParseFeed_RosterChanges(t *testing.T) {
	t.Run("substitution", func(t *testing.T) {
		ev, ok := parseFeed("`joey` was substituted by `newguy`", "")
		require.True(t, ok)
		assert.Equal(t, feedSubstitution, ev.kind)
		assert.Equal(t, "joey", ev.subject)
		assert.Equal(t, "newguy", ev.object)
	})

	t.Run("swap", func(t *testing.T) {
		ev, ok := parseFeed("`joey` and `Crysta` were swapped", "")
		require.True(t, ok)
		assert.Equal(t, feedSwap, ev.kind)
		assert.Equal(t, "joey", ev.subject)
		assert.Equal(t, "Crysta", ev.object)
	})

	t.Run("captain replacement names old captain as subject", func(t *testing.T) {
		ev, ok := parseFeed("`yami` has replaced `jet.Pixel` as captain", "")
		require.True(t, ok)
		assert.Equal(t, feedCaptainReplaced, ev.kind)
		assert.Equal(t, "jet.Pixel", ev.subject)
		assert.Equal(t, "yami", ev.object)
	})
}

func TestParseFeed_IgnoresUnrelatedMessages(t *testing.T) {
	for _, content := range []string{
		"",
		"hello world",
		"Game night anyone?",
		"`Game 'NA' is weird`",
	} {
		_, ok := parseFeed(content, "")
		assert.False(t, ok, "content %q should not parse", content)
	}
}

func TestParseFeed_MalformedEmbeds(t *testing.T) {
	_, ok := parseFeed("`Game 'NA' teams picked`", "only one line")
	assert.False(t, ok)

	_, ok = parseFeed("`Game 'NA' finished`", "")
	assert.False(t, ok)
}
