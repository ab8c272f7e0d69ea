package commands

// Command to run the full bot with all monitors
// Starts the chain pollers, the Telegram command handler, reminder and stats
// monitors and the JSON API
// Implements graceful shutdown for proper termination

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	bot "gm-streak/bots_monitor"
	storage "gm-streak/internal/infra/fs"
	logging "gm-streak/internal/infra/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot with all monitors and the API",
	Long:  `Run the Telegram bot: leaderboard and status commands, GM reminders for watched wallets, the daily stats post and the read-only JSON API.`,
	RunE:  runBot,
}

var botNoAPI bool

func init() {
	botCmd.Flags().BoolVar(&botNoAPI, "no-api", false, "Do not start the JSON API next to the bot")
}

func runBot(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateBot(); err != nil {
		logging.LogError("Invalid bot config", zap.Error(err))
		return err
	}
	chatID, err := bot.ParseChatID(cfg.Telegram.ChatID)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tg, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logging.LogError("Failed to initialize bot", zap.Error(err))
		return fmt.Errorf("failed to initialize bot: %w", err)
	}
	logging.LogSuccess("Bot authorized", zap.String("username", tg.Self.UserName))

	rt, err := buildRuntime(ctx, cfg, "")
	if err != nil {
		return err
	}
	defer rt.close()

	b := bot.New(tg, storage.NewStore(cfg.App.DataDir), rt.botChains(), bot.Options{ChatID: chatID})

	var wg sync.WaitGroup
	rt.warmUp(ctx)
	rt.start(ctx, &wg)

	wg.Add(1)
	go func() {
		defer wg.Done()
		b.RunCommandHandler(ctx, tg)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		b.RunReminderMonitor(ctx, cfg.Telegram.ReminderInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		b.CheckAndSendStatsOnStartup()
		b.RunStatsMonitor(ctx, cfg.Telegram.StatsSendTime)
	}()

	if !botNoAPI {
		server := rt.apiServer(cfg)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Run(ctx); err != nil {
				logging.LogError("API server failed", zap.Error(err))
			}
		}()
	}

	logging.LogSuccess("Bot is running", zap.String("status", "active"), zap.Int("chains", len(rt.chains)))

	<-ctx.Done()
	logging.LogInfo("Shutdown signal received, gracefully stopping all monitors...")

	cancel()
	waitForShutdown(&wg)
	return nil
}

func waitForShutdown(wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.LogSuccess("All monitors stopped gracefully")
	case <-time.After(10 * time.Second):
		logging.LogWarn("Timeout waiting for monitors to stop, forcing shutdown")
	}
}
