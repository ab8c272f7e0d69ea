package commands

// Command to print the current leaderboard of one chain

import (
	"context"
	"fmt"
	"time"

	"gm-streak/internal/models"

	"github.com/spf13/cobra"
)

var leaderboardChain string

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Print the top GM streaks of a chain",
	RunE:  runLeaderboard,
}

func init() {
	leaderboardCmd.Flags().StringVar(&leaderboardChain, "chain", "base", "Chain to read (base, celo)")
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	rt, err := buildRuntime(ctx, cfg, leaderboardChain)
	if err != nil {
		return err
	}
	defer rt.close()

	c := rt.chains[0]
	snap := c.poller.Refresh(ctx)
	res := snap.Leaderboard
	n := c.poller.DisplaySize()

	fmt.Printf("GM leaderboard - %s\n\n", c.info.Name)
	top := res.Top(n)
	if len(top) == 0 {
		fmt.Println("No GMs yet")
	}
	for _, e := range top {
		printEntry(e)
	}
	if res.OutOfBand != nil {
		fmt.Println("   ...")
		printEntry(*res.OutOfBand)
	}
	if snap.Stats != nil {
		fmt.Printf("\n%d users, %d GMs total, %d today\n", snap.Stats.TotalUsers, snap.Stats.TotalActions, snap.Stats.TodaysActions)
		if snap.Stats.CurrentDay > 0 {
			if yesterday, err := c.client.DailyActionCount(ctx, snap.Stats.CurrentDay-1); err == nil {
				fmt.Printf("%d GMs yesterday\n", yesterday)
			}
		}
	}
	return nil
}

func printEntry(e models.LeaderboardEntry) {
	fmt.Printf("%3d. %-24s %5d days %7d GMs\n", e.Rank, e.DisplayName(), e.Streak, e.TotalActions)
}
