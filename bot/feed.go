package bot

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"shazbuckbot/models"
	"shazbuckbot/service"
)

// feedEventKind identifies what the matchmaker announced
type feedEventKind int

const (
	feedMatchBegun feedEventKind = iota
	feedTeamsPicked
	feedMatchFinished
	feedMatchCancelled
	feedSubstitution
	feedSwap
	feedCaptainReplaced
)

// feedEvent is one parsed matchmaker announcement
type feedEvent struct {
	kind    feedEventKind
	queue   string
	team1   models.Team
	team2   models.Team
	winner  string // captain name, or "Tie"
	elapsed time.Duration
	subject string // leaving player / swap side A / old captain
	object  string // joining player / swap side B / new captain
}

var (
	queueRe      = regexp.MustCompile(`Game '([^']+)'`)
	substituteRe = regexp.MustCompile(`^(.+?) (?:was|has been) substituted (?:by|with) (.+)$`)
	swapRe       = regexp.MustCompile(`^(.+?) and (.+?) (?:were|have been) swapped$`)
	captainRe    = regexp.MustCompile(`^(.+?) (?:has )?replaced (.+?) as captain$`)
	durationRe   = regexp.MustCompile(`(\d+)\s*Minutes?`)
)

// cleanName strips the markdown and mention decoration the matchmaker wraps
// names in.
func cleanName(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "`*@"))
}

// parseTeamLine splits "jet.Pixel: joey, yami, r.$.e" into a roster.
func parseTeamLine(line string) (models.Team, bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return models.Team{}, false
	}
	team := models.Team{Captain: cleanName(line[:idx])}
	if team.Captain == "" {
		return models.Team{}, false
	}
	for _, name := range strings.Split(line[idx+1:], ",") {
		if name = cleanName(name); name != "" {
			team.Players = append(team.Players, name)
		}
	}
	return team, true
}

// parseFeed turns one matchmaker message into a feed event. The message
// content carries the queue ("Game 'NA' has begun"), the embed description
// carries the details. Returns false for messages that are not match
// announcements.
func parseFeed(content, description string) (*feedEvent, bool) {
	content = strings.Trim(strings.TrimSpace(content), "`")

	if m := queueRe.FindStringSubmatch(content); m != nil {
		ev := &feedEvent{queue: m[1]}
		switch {
		case strings.Contains(content, "begun"):
			ev.kind = feedMatchBegun
			return ev, true

		case strings.Contains(content, "picked"):
			lines := strings.Split(description, "\n")
			if len(lines) < 3 {
				return nil, false
			}
			team1, ok1 := parseTeamLine(lines[1])
			team2, ok2 := parseTeamLine(lines[2])
			if !ok1 || !ok2 {
				return nil, false
			}
			ev.kind = feedTeamsPicked
			ev.team1 = team1
			ev.team2 = team2
			return ev, true

		case strings.Contains(content, "finished"):
			lines := strings.Split(description, "\n")
			if len(lines) < 2 {
				return nil, false
			}
			if strings.Contains(lines[0], "Tie") {
				ev.winner = "Tie"
			} else {
				// "**Winner:** Team jet.Pixel"
				fields := strings.Fields(lines[0])
				if len(fields) < 3 {
					return nil, false
				}
				ev.winner = cleanName(strings.Join(fields[2:], " "))
			}
			if m := durationRe.FindStringSubmatch(lines[1]); m != nil {
				minutes, _ := strconv.Atoi(m[1])
				ev.elapsed = time.Duration(minutes) * time.Minute
			}
			ev.kind = feedMatchFinished
			return ev, true

		case strings.Contains(content, "cancelled"):
			ev.kind = feedMatchCancelled
			return ev, true
		}
		return nil, false
	}

	// Roster announcements carry no queue; the match is found by player
	if m := substituteRe.FindStringSubmatch(content); m != nil {
		return &feedEvent{kind: feedSubstitution, subject: cleanName(m[1]), object: cleanName(m[2])}, true
	}
	if m := swapRe.FindStringSubmatch(content); m != nil {
		return &feedEvent{kind: feedSwap, subject: cleanName(m[1]), object: cleanName(m[2])}, true
	}
	if m := captainRe.FindStringSubmatch(content); m != nil {
		return &feedEvent{kind: feedCaptainReplaced, subject: cleanName(m[2]), object: cleanName(m[1])}, true
	}

	return nil, false
}

// matchFeed consumes matchmaker announcements and drives the match
// lifecycle. Discordgo dispatches message handlers concurrently, so events
// are funneled through one channel and applied by a single goroutine in
// arrival order.
type matchFeed struct {
	matches service.MatchService
	events  chan *feedEvent
	done    chan struct{}
}

func newMatchFeed(matches service.MatchService) *matchFeed {
	f := &matchFeed{
		matches: matches,
		events:  make(chan *feedEvent, 64),
		done:    make(chan struct{}),
	}
	go f.run()
	return f
}

// Handle parses and enqueues one matchmaker message
func (f *matchFeed) Handle(content, description string) {
	ev, ok := parseFeed(content, description)
	if !ok {
		return
	}
	select {
	case f.events <- ev:
	default:
		log.WithField("queue", ev.queue).Error("Match feed backlog full, dropping event")
	}
}

func (f *matchFeed) stop() {
	close(f.events)
	<-f.done
}

func (f *matchFeed) run() {
	defer close(f.done)
	ctx := context.Background()
	for ev := range f.events {
		f.dispatch(ctx, ev)
	}
}

func (f *matchFeed) dispatch(ctx context.Context, ev *feedEvent) {
	var err error
	switch ev.kind {
	case feedMatchBegun:
		_, err = f.matches.StartPicking(ctx, ev.queue)
	case feedTeamsPicked:
		_, err = f.matches.PickTeams(ctx, ev.queue, ev.team1, ev.team2)
	case feedMatchFinished:
		_, err = f.matches.FinishMatch(ctx, ev.queue, ev.winner, ev.elapsed)
	case feedMatchCancelled:
		_, err = f.matches.CancelMatch(ctx, ev.queue)
	case feedSubstitution:
		_, err = f.matches.SubstitutePlayer(ctx, ev.subject, ev.object)
	case feedSwap:
		_, err = f.matches.SwapPlayers(ctx, ev.subject, ev.object)
	case feedCaptainReplaced:
		_, err = f.matches.ReplaceCaptain(ctx, ev.subject, ev.object)
	}
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"kind":  ev.kind,
			"queue": ev.queue,
		}).Error("Failed to apply match feed event")
	}
}
