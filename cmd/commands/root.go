package commands

// Root command for Cobra CLI
// Loads the layered config and the logger before any subcommand runs
// Registers all subcommands (bot, serve, leaderboard, status, gm)

import (
	"fmt"

	"gm-streak/internal/infra/config"
	logging "gm-streak/internal/infra/log"

	"github.com/spf13/cobra"
)

// cfg is set by PersistentPreRunE before any RunE.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gm-streak",
	Short: "GM streak tracker - leaderboard, countdowns and reminders for the daily GM contract",
	Long: `gm-streak follows the daily GM contract on Base and Celo: it keeps a ranked leaderboard
enriched with Farcaster profiles, counts down to each wallet's next GM window, and serves
the result through a Telegram bot, a read-only JSON API and CLI commands.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cmd.Flags())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.EnsureDirs(); err != nil {
			return err
		}
		if err := logging.Init(logging.Options{Dir: loaded.App.LogsDir, Debug: loaded.App.Debug}); err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(gmCmd)
}
