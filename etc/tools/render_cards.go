package main

import (
	"fmt"
	"os"
	"time"

	"gm-streak/internal/features/tg_charts"
	"gm-streak/internal/infra/fs"
	"gm-streak/internal/leaderboard"
	"gm-streak/internal/models"
	"gm-streak/internal/streak"
)

// go run etc/tools/render_cards.go
// in etc/charts/gm_chart_base.png, countdown_sample.png, leaderboard_base.png
func main() {
	fmt.Println("Generating test charts...")

	const outDir = "etc/charts"
	now := time.Now().UTC()

	var entries []fs.GMStatsEntry
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		entries = append(entries, fs.GMStatsEntry{
			Date:          day.Format("2006-01-02"),
			Chain:         "base",
			TodaysActions: uint64(800 + 150*(6-i)),
		})
	}
	must(tg_charts.GenerateGMChart(outDir, "base", entries, now))

	record := &models.UserStreakRecord{CurrentStreak: 12, LongestStreak: 30, TotalActions: 64, IsRegistered: true}
	last := now.Add(-17 * time.Hour).Unix()
	record.LastActionTimestamp = last
	frame := streak.FrameAt(streak.TargetFor(last, now), now)
	must(tg_charts.RenderCountdown(outDir, "countdown_sample.png", frame, record))

	raw := []models.RawEntry{
		{Address: "0x67fafe153aeb3c2caae7a138c1409ab53f680c75", Streak: 41, TotalActions: 120},
		{Address: "0x0a419ec7ea59cda9de934ad70fac9f3ca2960f91", Streak: 33, TotalActions: 98},
		{Address: "0x1111111111111111111111111111111111111111", Streak: 33, TotalActions: 77},
		{Address: "0x2222222222222222222222222222222222222222", Streak: 20, TotalActions: 20},
		{Address: "0x3333333333333333333333333333333333333333", Streak: 9, TotalActions: 45},
		{Address: "0x4444444444444444444444444444444444444444", Streak: 2, TotalActions: 3},
	}
	ranked := leaderboard.Rank(raw)
	res := leaderboard.Result{
		Ranked:    ranked,
		OutOfBand: leaderboard.FindOutOfBand(ranked, "0x4444444444444444444444444444444444444444", 5),
	}
	must(tg_charts.RenderLeaderboard(outDir, "base", res, 5, "0x4444444444444444444444444444444444444444"))

	fmt.Println("Open the files to see the result!")
}

func must(path string, err error) {
	if err != nil {
		fmt.Printf("Error generating chart: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Chart generated successfully: %s\n", path)
}
