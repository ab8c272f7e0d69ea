package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"gm-streak/internal/features/tg_charts"
	storage "gm-streak/internal/infra/fs"
	"gm-streak/internal/leaderboard"
	"gm-streak/internal/models"
	"gm-streak/internal/streak"
)

const helpText = "" +
	"Commands:\n" +
	"• <code>/leaderboard [chain]</code> - top GM streaks\n" +
	"• <code>/status {address} [chain]</code> - streak and countdown to the next GM\n" +
	"• <code>/watch {address} [chain]</code> - remind this chat when a GM is due\n" +
	"• <code>/unwatch {address}</code> - stop reminders\n" +
	"• <code>/stats [chain]</code> - global GM counters with the 7-day chart\n"

func chainTitle(chain string) string {
	if chain == "" {
		return chain
	}
	return strings.ToUpper(chain[:1]) + chain[1:]
}

func entryLine(e models.LeaderboardEntry) string {
	return fmt.Sprintf("%d. <b>%s</b> - %d🔥 (%s GMs)",
		e.Rank, html.EscapeString(e.DisplayName()), e.Streak, tg_charts.FormatCount(e.TotalActions))
}

func formatLeaderboardMessage(chain string, res leaderboard.Result, n int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 <b>GM Leaderboard · %s</b>\n\n", chainTitle(chain))

	top := res.Top(n)
	if len(top) == 0 {
		sb.WriteString("No GMs yet.")
		return sb.String()
	}
	for _, e := range top {
		sb.WriteString(entryLine(e))
		sb.WriteString("\n")
	}
	if res.OutOfBand != nil {
		sb.WriteString("…\n")
		sb.WriteString(entryLine(*res.OutOfBand))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatStatusMessage(chain, explorerURL string, record models.UserStreakRecord, st streak.Status, rank int, profile *models.SocialProfile) string {
	entry := models.LeaderboardEntry{Address: record.Address, Profile: profile}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 <b>%s</b> on %s\n", html.EscapeString(entry.DisplayName()), chainTitle(chain))
	if !record.IsRegistered {
		sb.WriteString("Has not said GM yet.\n")
	} else {
		fmt.Fprintf(&sb, "Streak: <b>%d</b> days (best %d)\n", record.CurrentStreak, record.LongestStreak)
		fmt.Fprintf(&sb, "Total GMs: <b>%s</b>\n", tg_charts.FormatCount(record.TotalActions))
		if rank > 0 {
			fmt.Fprintf(&sb, "Rank: <b>#%d</b>\n", rank)
		}
	}

	switch {
	case st.CanAct:
		sb.WriteString("☀️ Ready to GM!")
	case st.Countdown.Ready():
		sb.WriteString("⏳ Waiting for the contract to open the next GM window")
	default:
		fmt.Fprintf(&sb, "⏳ Next GM in <b>%s</b>", st.Countdown.Human())
	}
	if explorerURL != "" {
		fmt.Fprintf(&sb, "\n\n<a href=\"%s\">Explorer</a>", explorerURL)
	}
	return sb.String()
}

func formatStatsMessage(chain string, stats models.GlobalStats, history []storage.GMStatsEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>GM stats · %s</b>\n\n", chainTitle(chain))
	fmt.Fprintf(&sb, "Users: <b>%s</b>\n", tg_charts.FormatCount(stats.TotalUsers))
	fmt.Fprintf(&sb, "Total GMs: <b>%s</b>\n", tg_charts.FormatCount(stats.TotalActions))
	fmt.Fprintf(&sb, "Today: <b>%s</b>", tg_charts.FormatCount(stats.TodaysActions))

	// yesterday's final count is the closest comparable number
	if len(history) >= 2 {
		prev := history[len(history)-2].TodaysActions
		if prev > 0 {
			delta := (float64(stats.TodaysActions) - float64(prev)) / float64(prev) * 100
			fmt.Fprintf(&sb, " (%+.0f%% vs yesterday)", delta)
		}
	}
	return sb.String()
}

func formatReminderMessage(chain, address string, record models.UserStreakRecord, now time.Time) string {
	short := models.ShortAddress(address)
	if record.CurrentStreak == 0 {
		return fmt.Sprintf("☀️ <code>%s</code> can say GM on %s now.", short, chainTitle(chain))
	}
	left := streak.Decompose(streak.TimeUntilMidnight(now.UTC()))
	return fmt.Sprintf("☀️ <code>%s</code> can say GM on %s now. Keep the %d-day streak going, %s left today (UTC).",
		short, chainTitle(chain), record.CurrentStreak, left.Human())
}
