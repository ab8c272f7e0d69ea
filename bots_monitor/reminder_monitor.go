package bot

import (
	"context"
	"strconv"
	"time"

	log "gm-streak/internal/infra/log"
	"gm-streak/internal/streak"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// RunReminderMonitor checks watched addresses every interval until ctx is done.
func (b *Bot) RunReminderMonitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	log.LogInfo("Starting reminder monitor", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.checkReminders(ctx)
	for {
		select {
		case <-ctx.Done():
			log.LogInfo("Reminder monitor stopped")
			return
		case <-ticker.C:
			b.checkReminders(ctx)
		}
	}
}

// checkReminders sends at most one reminder per eligibility window: the window
// is keyed by the lastActionTimestamp it opened after.
func (b *Bot) checkReminders(ctx context.Context) {
	data, err := b.store.LoadWatchlist()
	if err != nil {
		log.LogError("Failed to load watchlist", zap.Error(err))
		return
	}

	p := pool.New().WithMaxGoroutines(4).WithContext(ctx)
	for chatKey, entries := range data.Chats {
		chatID, err := strconv.ParseInt(chatKey, 10, 64)
		if err != nil {
			log.LogWarn("Skipping malformed chat id in watchlist", zap.String("chat", chatKey))
			continue
		}
		for _, entry := range entries {
			c, ok := b.chains[entry.Chain]
			if !ok || c.Reader == nil {
				continue
			}
			p.Go(func(ctx context.Context) error {
				callCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
				defer cancel()

				record, err := c.Reader.GetUserData(callCtx, entry.Address)
				if err != nil {
					log.LogWarn("Reminder check failed", zap.String("address", entry.Address), zap.Error(err))
					return nil
				}
				now := b.now()
				if !record.IsRegistered || !streak.CanAct(record, now) {
					return nil
				}
				if entry.NotifiedFor == record.LastActionTimestamp {
					return nil
				}

				if err := b.sendHTML(chatID, formatReminderMessage(entry.Chain, entry.Address, record, now)); err != nil {
					log.LogError("Failed to send reminder", zap.Error(err))
					return nil
				}
				if err := b.store.MarkNotified(chatID, entry.Address, entry.Chain, record.LastActionTimestamp); err != nil {
					log.LogError("Failed to mark reminder sent", zap.Error(err))
				}
				log.LogInfo("Reminder sent", zap.Int64("chatID", chatID), zap.String("address", entry.Address), zap.String("chain", entry.Chain))
				return nil
			})
		}
	}
	_ = p.Wait()
}
