package bot

// Package bot contains the Telegram side of the GM tracker:
// the command handler, the reminder monitor and the daily stats monitor

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gm-streak/internal/clients_api/gmcontract"
	"gm-streak/internal/features/poller"
	storage "gm-streak/internal/infra/fs"
	"gm-streak/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the monitors use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UpdateSource feeds the command handler.
type UpdateSource interface {
	Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type SnapshotSource interface {
	Latest() (poller.Snapshot, bool)
	DisplaySize() int
}

type UserReader interface {
	GetUserData(ctx context.Context, address string) (models.UserStreakRecord, error)
	GetUserRank(ctx context.Context, address string) (int, error)
}

// Chain is one tracked deployment as the bot sees it.
type Chain struct {
	Info   gmcontract.Chain
	Source SnapshotSource
	Reader UserReader
}

type Options struct {
	// ChatID restricts commands and scheduled posts to one chat. 0 accepts any chat
	// and disables scheduled posts.
	ChatID    int64
	ChartsDir string
}

type Bot struct {
	sender      Sender
	opts        Options
	chains      map[string]Chain
	names       []string
	store       *storage.Store
	now         func() time.Time
	callTimeout time.Duration
}

func New(sender Sender, store *storage.Store, chains []Chain, opts Options) *Bot {
	if opts.ChartsDir == "" {
		opts.ChartsDir = "etc/charts"
	}
	b := &Bot{
		sender:      sender,
		opts:        opts,
		chains:      make(map[string]Chain, len(chains)),
		store:       store,
		now:         time.Now,
		callTimeout: 15 * time.Second,
	}
	for _, c := range chains {
		b.chains[c.Info.Name] = c
		b.names = append(b.names, c.Info.Name)
	}
	sort.Strings(b.names)
	return b
}

// defaultChain prefers base, otherwise the first chain alphabetically.
func (b *Bot) defaultChain() string {
	if _, ok := b.chains["base"]; ok {
		return "base"
	}
	if len(b.names) > 0 {
		return b.names[0]
	}
	return ""
}

// chain resolves an optional chain argument.
func (b *Bot) chain(name string) (Chain, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = b.defaultChain()
	}
	c, ok := b.chains[name]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %q (available: %s)", gmcontract.ErrUnknownChain, name, strings.Join(b.names, ", "))
	}
	return c, nil
}

// ParseChatID parses a Telegram chat id such as -1003190218710.
func ParseChatID(chatIDStr string) (int64, error) {
	chatIDStr = strings.TrimSpace(chatIDStr)
	if chatIDStr == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", chatIDStr, err)
	}
	return id, nil
}

func formatChatID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
