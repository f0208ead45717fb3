package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"shazbuckbot/config"
	"shazbuckbot/events"
	"shazbuckbot/service"
)

// notifier delivers DMs and channel announcements after the ledger commit.
// Delivery is best effort: a failed or muted DM never affects balances.
type notifier struct {
	session  *discordgo.Session
	accounts service.AccountService

	// Discord throttles DM creation hard; pace them out
	limiter *rate.Limiter
}

func newNotifier(session *discordgo.Session, accounts service.AccountService) *notifier {
	return &notifier{
		session:  session,
		accounts: accounts,
		limiter:  rate.NewLimiter(rate.Limit(5), 1),
	}
}

// subscribe wires the notifier onto the post-commit event bus
func (n *notifier) subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeMatchSettled, n.onMatchSettled)
	bus.Subscribe(events.EventTypeWagersInvalidated, n.onWagersInvalidated)
}

// dm sends a direct message unless the recipient muted them
func (n *notifier) dm(ctx context.Context, discordID int64, message string) {
	user, err := n.accounts.GetUser(ctx, discordID)
	if err != nil {
		log.WithError(err).WithField("discord_id", discordID).Warn("Failed to look up DM recipient")
		return
	}
	if user == nil || user.MuteDM {
		return
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return
	}
	channel, err := n.session.UserChannelCreate(strconv.FormatInt(discordID, 10))
	if err != nil {
		log.WithError(err).WithField("discord_id", discordID).Warn("Failed to open DM channel")
		return
	}
	if _, err := n.session.ChannelMessageSend(channel.ID, message); err != nil {
		log.WithError(err).WithField("discord_id", discordID).Warn("Failed to send DM")
	}
}

// announce posts to the PUG channel
func (n *notifier) announce(message string) {
	channelID := config.Get().PugChannelID
	if channelID == 0 || message == "" {
		return
	}
	if _, err := n.session.ChannelMessageSend(strconv.FormatInt(channelID, 10), message); err != nil {
		log.WithError(err).Warn("Failed to post channel announcement")
	}
}

func (n *notifier) onMatchSettled(ctx context.Context, event events.Event) {
	settled, ok := event.(events.MatchSettledEvent)
	if !ok {
		return
	}
	report := settled.Report

	for _, w := range report.Winners {
		n.dm(ctx, w.DiscordID, fmt.Sprintf(
			"Hi %s. You correctly predicted match %d. You have won %s shazbucks.",
			w.Nick, report.MatchID, FormatAmount(w.Payout)))
	}
	for _, l := range report.Losers {
		n.dm(ctx, l.DiscordID, fmt.Sprintf(
			"Hi %s. You lost your bet on match %d. You have lost %s shazbucks.",
			l.Nick, report.MatchID, FormatAmount(l.Staked)))
	}
	for _, r := range report.Refunded {
		reason := "the match was voided"
		if report.NoWinner {
			reason = "nobody took your bet"
		} else if report.OneSided {
			reason = "nobody took the other side"
		}
		n.dm(ctx, r.DiscordID, fmt.Sprintf(
			"Hi %s. Your bet of %s shazbucks on match %d has been returned because %s.",
			r.Nick, FormatAmount(r.Staked), report.MatchID, reason))
	}

	n.announce(summarizeSettlement(report))
}

func (n *notifier) onWagersInvalidated(ctx context.Context, event events.Event) {
	invalidated, ok := event.(events.WagersInvalidatedEvent)
	if !ok {
		return
	}
	for _, r := range invalidated.Refunded {
		n.dm(ctx, r.DiscordID, fmt.Sprintf(
			"Hi %s. The match you bet on changed (%s). Your bet of %s shazbucks has been returned to you.",
			r.Nick, invalidated.Reason, FormatAmount(r.Staked)))
	}
}
