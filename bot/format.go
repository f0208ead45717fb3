package bot

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"shazbuckbot/models"
)

// FormatAmount formats a shazbuck amount with thousand separators
func FormatAmount(amount int64) string {
	str := fmt.Sprintf("%d", amount)
	n := len(str)
	if n <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}
	return result.String()
}

// codeBlock wraps rendered table output for Discord
func codeBlock(s string) string {
	return "```\n" + s + "```"
}

// formatOpenMatches renders the open-match listing as a table
func formatOpenMatches(open []*models.OpenMatch) string {
	if len(open) == 0 {
		return "No matches are open for betting right now."
	}

	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.Header("ID", "Queue", "Team 1", "Team 2", "Betting")
	for _, m := range open {
		betting := "picking"
		if m.Status == models.MatchStatusInProgress {
			if m.SecondsToClose > 0 {
				betting = fmt.Sprintf("%dm %ds left", m.SecondsToClose/60, m.SecondsToClose%60)
			} else {
				betting = "closed"
			}
		}
		table.Append(
			fmt.Sprintf("%d", m.MatchID),
			m.Queue,
			m.Team1,
			m.Team2,
			betting,
		)
	}
	table.Render()
	return codeBlock(buf.String())
}

// formatLeaderboard renders the balance top list
func formatLeaderboard(entries []*models.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "Nobody has registered yet."
	}

	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.Header("#", "Player", "Shazbucks")
	for i, e := range entries {
		table.Append(fmt.Sprintf("%d", i+1), e.Nick, FormatAmount(e.Balance))
	}
	table.Render()
	return codeBlock(buf.String())
}

// formatGiftLeaders renders the philanthropists or beggars list. Net amounts
// are shown as given for philanthropists and received for beggars.
func formatGiftLeaders(entries []*models.GiftLeaderEntry, givers bool) string {
	if len(entries) == 0 {
		return "Nobody has gifted any shazbucks yet."
	}

	column := "Gifted"
	if !givers {
		column = "Received"
	}

	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.Header("#", "Player", column)
	for i, e := range entries {
		net := e.NetGifted
		if !givers {
			net = -net
		}
		table.Append(fmt.Sprintf("%d", i+1), e.Nick, FormatAmount(net))
	}
	table.Render()
	return codeBlock(buf.String())
}

// summarizeSettlement builds the channel announcement for a settled match
func summarizeSettlement(report *models.SettlementReport) string {
	switch {
	case report.Voided:
		if len(report.Refunded) == 0 {
			return ""
		}
		return "The match was cancelled. All wagers have been returned."
	case report.NoWinner:
		return "Nobody predicted the outcome. All wagers have been returned."
	case report.OneSided:
		return "The match only had bets on one side. All wagers have been returned."
	case len(report.Winners) > 0:
		var parts []string
		for _, w := range report.Winners {
			parts = append(parts, fmt.Sprintf("%s(%s)", w.Nick, FormatAmount(w.Payout)))
		}
		return fmt.Sprintf("%s were paid out a total of %s shazbucks from the %s shazbuck pot.",
			strings.Join(parts, " "), FormatAmount(report.TotalPaid()), FormatAmount(report.Pot()))
	default:
		return ""
	}
}
