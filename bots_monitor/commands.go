package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gm-streak/internal/features/tg_charts"
	log "gm-streak/internal/infra/log"
	"gm-streak/internal/models"
	"gm-streak/internal/streak"

	"github.com/ethereum/go-ethereum/common"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// RunCommandHandler reads updates until ctx is done.
func (b *Bot) RunCommandHandler(ctx context.Context, updates UpdateSource) {
	if updates == nil {
		log.LogWarn("Bot is nil, command handler not started")
		return
	}

	log.LogInfo("Starting command handler", zap.String("chatID", formatChatID(b.opts.ChatID)), zap.Strings("chains", b.names))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	ch := updates.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			updates.StopReceivingUpdates()
			log.LogInfo("Command handler stopped")
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if b.opts.ChatID != 0 && update.Message.Chat.ID != b.opts.ChatID {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	args := strings.Fields(message.CommandArguments())

	username := ""
	if message.From != nil {
		username = message.From.UserName
	}
	log.LogDebug("Received command",
		zap.String("command", command),
		zap.Strings("args", args),
		zap.String("chatID", formatChatID(message.Chat.ID)),
		zap.String("username", username))

	switch command {
	case "leaderboard", "top":
		b.handleLeaderboardCommand(message, argAt(args, 0))
	case "status":
		if len(args) == 0 {
			b.reply(message, "Usage: /status {address} [chain]\n\nExample: /status 0x67FafE153aeB3c2caae7a138C1409aB53f680C75 base")
			return
		}
		b.handleStatusCommand(ctx, message, args[0], argAt(args, 1))
	case "watch":
		if len(args) == 0 {
			b.reply(message, "Usage: /watch {address} [chain]")
			return
		}
		b.handleWatchCommand(message, args[0], argAt(args, 1))
	case "unwatch":
		if len(args) == 0 {
			b.reply(message, "Usage: /unwatch {address}")
			return
		}
		b.handleUnwatchCommand(message, args[0])
	case "stats":
		b.handleStatsCommand(message, argAt(args, 0))
	case "helps", "help", "start":
		b.replyHTML(message, helpText)
	}
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// handleLeaderboardCommand /leaderboard [chain]
func (b *Bot) handleLeaderboardCommand(message *tgbotapi.Message, chainArg string) {
	c, err := b.chain(chainArg)
	if err != nil {
		b.reply(message, err.Error())
		return
	}
	snap, ok := c.Source.Latest()
	if !ok {
		b.reply(message, "Leaderboard is still loading, try again in a few seconds.")
		return
	}

	n := c.Source.DisplaySize()
	caption := formatLeaderboardMessage(c.Info.Name, snap.Leaderboard, n)

	chartPath, err := tg_charts.RenderLeaderboard(b.opts.ChartsDir, c.Info.Name, snap.Leaderboard, n, "")
	if err != nil {
		log.LogWarn("Failed to render leaderboard card", zap.Error(err))
		b.replyHTML(message, caption)
		return
	}
	b.sendPhoto(message.Chat.ID, chartPath, caption)
}

// handleStatusCommand /status {address} [chain]
func (b *Bot) handleStatusCommand(ctx context.Context, message *tgbotapi.Message, address, chainArg string) {
	if !common.IsHexAddress(address) {
		b.reply(message, "Invalid address")
		return
	}
	c, err := b.chain(chainArg)
	if err != nil {
		b.reply(message, err.Error())
		return
	}
	if c.Reader == nil {
		b.reply(message, "Contract reader unavailable")
		return
	}
	addr := models.NormalizeAddress(address)

	ctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	record, err := c.Reader.GetUserData(ctx, addr)
	if err != nil {
		log.LogError("Failed to read user data", zap.String("address", addr), zap.Error(err))
		b.reply(message, fmt.Sprintf("Failed to read contract: %s", err.Error()))
		return
	}

	rank := 0
	var profile *models.SocialProfile
	if snap, ok := c.Source.Latest(); ok {
		for _, e := range snap.Leaderboard.Ranked {
			if models.NormalizeAddress(e.Address) == addr {
				rank, profile = e.Rank, e.Profile
				break
			}
		}
	}
	if rank == 0 && record.IsRegistered {
		if r, err := c.Reader.GetUserRank(ctx, addr); err == nil {
			rank = r
		}
	}

	now := b.now()
	st := streak.StatusAt(record, now)
	explorer := ""
	if c.Info.Explorer != "" {
		explorer = c.Info.AddressURL(addr)
	}
	text := formatStatusMessage(c.Info.Name, explorer, record, st, rank, profile)

	if st.CanAct || !record.IsRegistered {
		b.replyHTML(message, text)
		return
	}
	frame := streak.FrameAt(streak.TargetFor(record.LastActionTimestamp, now), now.UTC())
	cardPath, err := tg_charts.RenderCountdown(b.opts.ChartsDir, "countdown_"+addr+".png", frame, &record)
	if err != nil {
		log.LogWarn("Failed to render countdown card", zap.Error(err))
		b.replyHTML(message, text)
		return
	}
	b.sendPhoto(message.Chat.ID, cardPath, text)
}

// handleWatchCommand /watch {address} [chain]
func (b *Bot) handleWatchCommand(message *tgbotapi.Message, address, chainArg string) {
	if !common.IsHexAddress(address) {
		b.reply(message, "Invalid address")
		return
	}
	c, err := b.chain(chainArg)
	if err != nil {
		b.reply(message, err.Error())
		return
	}

	added, err := b.store.AddWatch(message.Chat.ID, address, c.Info.Name)
	if err != nil {
		log.LogError("Failed to add watch", zap.Error(err))
		b.reply(message, "Failed to save watchlist")
		return
	}
	short := models.ShortAddress(address)
	if !added {
		b.replyHTML(message, fmt.Sprintf("<code>%s</code> is already watched on %s", short, chainTitle(c.Info.Name)))
		return
	}
	b.replyHTML(message, fmt.Sprintf("👀 Watching <code>%s</code> on %s. I'll ping this chat when a GM is due.", short, chainTitle(c.Info.Name)))
}

// handleUnwatchCommand /unwatch {address}
func (b *Bot) handleUnwatchCommand(message *tgbotapi.Message, address string) {
	removed, err := b.store.RemoveWatch(message.Chat.ID, address)
	if err != nil {
		log.LogError("Failed to remove watch", zap.Error(err))
		b.reply(message, "Failed to save watchlist")
		return
	}
	if !removed {
		b.reply(message, "Address was not watched")
		return
	}
	b.replyHTML(message, fmt.Sprintf("Stopped watching <code>%s</code>", models.ShortAddress(address)))
}

// handleStatsCommand /stats [chain]
func (b *Bot) handleStatsCommand(message *tgbotapi.Message, chainArg string) {
	c, err := b.chain(chainArg)
	if err != nil {
		b.reply(message, err.Error())
		return
	}
	if err := b.postStats(message.Chat.ID, c); err != nil {
		if errors.Is(err, errStatsNotLoaded) {
			b.reply(message, "Stats are still loading, try again in a few seconds.")
			return
		}
		log.LogError("Failed to send stats", zap.Error(err))
	}
}

func (b *Bot) reply(message *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	if _, err := b.sender.Send(msg); err != nil {
		log.LogError("Failed to send message", zap.Error(err))
	}
}

func (b *Bot) replyHTML(message *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = message.MessageID
	msg.DisableWebPagePreview = true
	if _, err := b.sender.Send(msg); err != nil {
		log.LogError("Failed to send message", zap.Error(err))
	}
}

func (b *Bot) sendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.sender.Send(msg)
	return err
}

// sendPhoto falls back to a text message when the upload fails.
func (b *Bot) sendPhoto(chatID int64, path, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	if _, err := b.sender.Send(photo); err != nil {
		log.LogError("Failed to send photo", zap.String("path", path), zap.Error(err))
		if err := b.sendHTML(chatID, caption); err != nil {
			log.LogError("Failed to send fallback message", zap.Error(err))
		}
	}
}
