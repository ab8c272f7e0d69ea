package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gm-streak/internal/features/tg_charts"
	log "gm-streak/internal/infra/log"

	"go.uber.org/zap"
)

var errStatsNotLoaded = errors.New("stats not loaded yet")

// postStats snapshots the chain's counters into gm_stats.json and posts the
// 7-day chart with the counters as caption.
func (b *Bot) postStats(chatID int64, c Chain) error {
	snap, ok := c.Source.Latest()
	if !ok || snap.Stats == nil {
		return errStatsNotLoaded
	}
	now := b.now()

	if err := b.store.SaveGMStats(c.Info.Name, *snap.Stats, now); err != nil {
		log.LogWarn("Failed to save gm stats", zap.Error(err))
	}
	history, err := b.store.RecentGMStats(c.Info.Name, 7)
	if err != nil {
		log.LogWarn("Failed to load gm stats history", zap.Error(err))
	}

	caption := formatStatsMessage(c.Info.Name, *snap.Stats, history)

	chartPath, err := tg_charts.GenerateGMChart(b.opts.ChartsDir, c.Info.Name, history, now)
	if err != nil {
		log.LogWarn("Failed to generate gm chart", zap.Error(err))
		return b.sendHTML(chatID, caption)
	}
	b.sendPhoto(chatID, chartPath, caption)

	log.LogInfo("Stats sent",
		zap.String("chain", c.Info.Name),
		zap.String("chatID", formatChatID(chatID)),
		zap.Uint64("todays", snap.Stats.TodaysActions))
	return nil
}

// nextSendTime returns the first HH:MM (UTC) strictly after now.
func nextSendTime(now time.Time, sendTime string) (time.Time, error) {
	parts := strings.Split(sendTime, ":")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid send time %q, want HH:MM", sendTime)
	}
	hour, errH := strconv.Atoi(parts[0])
	minute, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid send time %q, want HH:MM", sendTime)
	}

	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

func (b *Bot) sendAllStats() {
	for _, name := range b.names {
		if err := b.postStats(b.opts.ChatID, b.chains[name]); err != nil {
			log.LogError("Failed to send daily stats", zap.String("chain", name), zap.Error(err))
		}
	}
}

// RunStatsMonitor posts daily stats for every chain at sendTime (UTC) until ctx is done.
func (b *Bot) RunStatsMonitor(ctx context.Context, sendTime string) {
	if b.opts.ChatID == 0 {
		log.LogWarn("Chat ID is empty, stats monitor not started")
		return
	}

	for {
		next, err := nextSendTime(b.now(), sendTime)
		if err != nil {
			log.LogWarn("Invalid send time format, using default 10:00", zap.String("sendTime", sendTime))
			sendTime = "10:00"
			continue
		}
		delay := next.Sub(b.now())
		log.LogInfo("Stats monitor scheduled", zap.Time("nextSend", next), zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.LogInfo("Stats monitor stopped")
			return
		case <-timer.C:
			b.sendAllStats()
		}
	}
}

// CheckAndSendStatsOnStartup posts stats for chains that have no entry for today yet.
func (b *Bot) CheckAndSendStatsOnStartup() {
	if b.opts.ChatID == 0 {
		return
	}
	today := b.now().UTC().Format("2006-01-02")

	for _, name := range b.names {
		recent, err := b.store.RecentGMStats(name, 1)
		if err != nil {
			log.LogWarn("Failed to check gm stats", zap.Error(err))
			continue
		}
		if len(recent) == 1 && recent[0].Date == today {
			log.LogInfo("Stats already recorded today, skipping startup send", zap.String("chain", name))
			continue
		}
		if err := b.postStats(b.opts.ChatID, b.chains[name]); err != nil {
			log.LogWarn("Startup stats not sent", zap.String("chain", name), zap.Error(err))
		}
	}
}
