package commands

// Command to run the pollers and the JSON API without Telegram

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	logging "gm-streak/internal/infra/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the leaderboard API and Prometheus metrics",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := buildRuntime(ctx, cfg, "")
	if err != nil {
		return err
	}
	defer rt.close()

	var wg sync.WaitGroup
	rt.start(ctx, &wg)

	server := rt.apiServer(cfg)
	serveErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		serveErr <- server.Run(ctx)
	}()

	logging.LogSuccess("API is running", zap.String("addr", cfg.API.ListenAddr), zap.Int("chains", len(rt.chains)))

	select {
	case <-ctx.Done():
		logging.LogInfo("Shutdown signal received, stopping pollers and API...")
	case err = <-serveErr:
		logging.LogError("API server failed", zap.Error(err))
	}

	cancel()
	waitForShutdown(&wg)
	return err
}
