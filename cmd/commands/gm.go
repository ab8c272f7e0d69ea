package commands

// Command to send today's GM from the configured wallet

import (
	"context"
	"fmt"
	"time"

	"gm-streak/internal/clients_api/gmcontract"
	logging "gm-streak/internal/infra/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	gmChain string
	gmForce bool
)

var gmCmd = &cobra.Command{
	Use:   "gm",
	Short: "Send a GM transaction from wallet.private_key",
	RunE:  runGM,
}

func init() {
	gmCmd.Flags().StringVar(&gmChain, "chain", "base", "Chain to send on (base, celo)")
	gmCmd.Flags().BoolVar(&gmForce, "force", false, "Skip the canUserGM pre-check")
}

func runGM(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateWallet(); err != nil {
		return err
	}
	key, err := gmcontract.ParsePrivateKey(cfg.Wallet.PrivateKey)
	if err != nil {
		return err
	}
	sender := gmcontract.SenderAddress(key)

	chains, err := selectChains(cfg, gmChain)
	if err != nil {
		return err
	}
	chain := chains[0]

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Minute)
	defer cancel()

	client, err := gmcontract.Dial(ctx, chain)
	if err != nil {
		return err
	}
	defer client.Close()

	if !gmForce {
		ok, reason, err := client.CanUserGM(ctx, sender)
		if err != nil {
			return fmt.Errorf("canUserGM failed: %w", err)
		}
		if !ok {
			fmt.Printf("Cannot GM yet: %s\n", reason)
			return nil
		}
	}

	fmt.Printf("Sending GM from %s on %s...\n", sender, chain.Name)
	receipt, err := client.SendGM(ctx, key)
	if err != nil {
		logging.LogError("sendGM failed", zap.String("chain", chain.Name), zap.Error(err))
		return err
	}
	fmt.Printf("GM sent in block %s: %s\n", receipt.BlockNumber, chain.TxURL(receipt.TxHash.Hex()))
	return nil
}
