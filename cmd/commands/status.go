package commands

// Command to show the streak and countdown of one address

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gm-streak/internal/clients_api/gmcontract"
	"gm-streak/internal/models"
	"gm-streak/internal/streak"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	statusChain string
	statusWatch bool
)

var statusCmd = &cobra.Command{
	Use:   "status [address]",
	Short: "Show streak, rank and the next GM window of an address",
	Long:  `Show streak, rank and the next GM window of an address. Without an argument the configured identity.address is used.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusChain, "chain", "base", "Chain to read (base, celo)")
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "Keep a live countdown until the window opens")
}

func runStatus(cmd *cobra.Command, args []string) error {
	address := cfg.Identity.Address
	if len(args) == 1 {
		address = args[0]
	}
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid address %q", address)
	}
	address = models.NormalizeAddress(address)

	chains, err := selectChains(cfg, statusChain)
	if err != nil {
		return err
	}
	chain := chains[0]

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := gmcontract.Dial(ctx, chain)
	if err != nil {
		return err
	}
	defer client.Close()

	record, err := client.GetUserData(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to read user data: %w", err)
	}
	if !record.IsRegistered {
		fmt.Printf("%s has never said GM on %s\n", models.ShortAddress(address), chain.Name)
		return nil
	}
	rank, _ := client.GetUserRank(ctx, address)

	st := streak.StatusAt(record, time.Now())
	fmt.Printf("%s on %s\n", models.ShortAddress(address), chain.Name)
	fmt.Printf("  streak:  %d days (longest %d)\n", record.CurrentStreak, record.LongestStreak)
	fmt.Printf("  GMs:     %d\n", record.TotalActions)
	if rank > 0 {
		fmt.Printf("  rank:    #%d\n", rank)
	}

	var reason string
	if !st.CanAct && st.Countdown.Ready() {
		_, reason, err = client.CanUserGM(ctx, address)
		if err != nil {
			reason = ""
		}
	}
	if line := nextGMLine(st, reason); line != "" {
		fmt.Printf("  next GM: %s\n", line)
	}
	// nothing local left to count down once the 24h window is open
	if !statusWatch || st.CanAct || st.Countdown.Ready() {
		return nil
	}
	return watchCountdown(ctx, record.LastActionTimestamp)
}

// nextGMLine describes the next GM window. The contract has the last word: an
// elapsed local window with a refusing contract is reported as waiting.
func nextGMLine(st streak.Status, contractReason string) string {
	switch {
	case st.CanAct:
		return "Ready to GM!"
	case st.Countdown.Ready():
		if contractReason != "" {
			return fmt.Sprintf("waiting for contract (%s)", contractReason)
		}
		return "waiting for contract"
	case st.NextEligibleAt != nil:
		return fmt.Sprintf("%s (%s)", st.NextEligibleAt.Local().Format("Jan 2 15:04"), st.Countdown.Human())
	}
	return ""
}

// watchCountdown redraws one line per second until the window opens.
func watchCountdown(ctx context.Context, lastActionTimestamp int64) error {
	ready := make(chan struct{})
	var closed bool

	p := streak.NewPresenter(func(f streak.Frame) {
		fmt.Printf("\r  %s  %3.0f%%   ", f.State.Digital(), f.Progress*100)
		if f.State.Ready() && !closed {
			closed = true
			close(ready)
		}
	})
	p.Start(ctx, streak.NextEligibleTarget(lastActionTimestamp))
	defer p.Stop()

	select {
	case <-ctx.Done():
	case <-ready:
		fmt.Print("\r  Ready to GM!            ")
	}
	fmt.Println()
	return nil
}
