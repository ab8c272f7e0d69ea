package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"gm-streak/internal/clients_api/gmcontract"
	"gm-streak/internal/features/poller"
	storage "gm-streak/internal/infra/fs"
	"gm-streak/internal/leaderboard"
	"gm-streak/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	addrC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) all() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...)
}

// text returns the body of a message or the caption of a photo.
func text(c tgbotapi.Chattable) string {
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		return m.Text
	case tgbotapi.PhotoConfig:
		return m.Caption
	}
	return ""
}

type fakeSource struct{ snap *poller.Snapshot }

func (f fakeSource) Latest() (poller.Snapshot, bool) {
	if f.snap == nil {
		return poller.Snapshot{}, false
	}
	return *f.snap, true
}

func (fakeSource) DisplaySize() int { return 2 }

type fakeUsers struct {
	mu      sync.Mutex
	records map[string]models.UserStreakRecord
}

func (f *fakeUsers) GetUserData(_ context.Context, address string) (models.UserStreakRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.records[address]
	r.Address = address
	return r, nil
}

func (f *fakeUsers) GetUserRank(context.Context, string) (int, error) { return 12, nil }

func (f *fakeUsers) set(address string, r models.UserStreakRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[address] = r
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testSnapshot() *poller.Snapshot {
	ranked := leaderboard.Rank([]models.RawEntry{
		{Address: addrA, Streak: 3, TotalActions: 3},
		{Address: addrB, Streak: 8, TotalActions: 20},
		{Address: addrC, Streak: 1, TotalActions: 1},
	})
	ranked[0].Profile = &models.SocialProfile{DisplayName: "Bee <3"}
	return &poller.Snapshot{
		Chain:       "base",
		FetchedAt:   testNow,
		Leaderboard: leaderboard.Result{Ranked: ranked},
		Stats:       &models.GlobalStats{TotalUsers: 3, TotalActions: 24, TodaysActions: 5},
	}
}

func newTestBot(t *testing.T, snap *poller.Snapshot, users *fakeUsers) (*Bot, *fakeSender) {
	t.Helper()
	info, err := gmcontract.DefaultChain("base")
	require.NoError(t, err)

	sender := &fakeSender{}
	store := storage.NewStore(t.TempDir())
	b := New(sender, store, []Chain{{Info: info, Source: fakeSource{snap}, Reader: users}},
		Options{ChatID: 42, ChartsDir: t.TempDir()})
	b.now = func() time.Time { return testNow }
	return b, sender
}

func command(chatID int64, textLine string) *tgbotapi.Message {
	cmd := strings.Fields(textLine)[0]
	return &tgbotapi.Message{
		MessageID: 7,
		Text:      textLine,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{UserName: "tester"},
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
}

func TestLeaderboardCommand(t *testing.T) {
	b, sender := newTestBot(t, testSnapshot(), &fakeUsers{records: map[string]models.UserStreakRecord{}})

	b.handleCommand(context.Background(), command(42, "/leaderboard"))

	sent := sender.all()
	require.Len(t, sent, 1)
	photo, ok := sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok, "leaderboard goes out as a card")
	assert.Contains(t, photo.Caption, "1. <b>Bee &lt;3</b> - 8🔥")
	assert.Contains(t, photo.Caption, "2. <b>0xaaaa...aaaa</b>")
	assert.NotContains(t, photo.Caption, "0xcccc")
}

func TestLeaderboardCommandBeforeFirstPoll(t *testing.T) {
	b, sender := newTestBot(t, nil, &fakeUsers{})
	b.handleCommand(context.Background(), command(42, "/leaderboard base"))
	require.Len(t, sender.all(), 1)
	assert.Contains(t, text(sender.all()[0]), "still loading")

	b.handleCommand(context.Background(), command(42, "/leaderboard solana"))
	assert.Contains(t, text(sender.all()[1]), "unknown chain")
}

func TestStatusCommand(t *testing.T) {
	users := &fakeUsers{records: map[string]models.UserStreakRecord{
		addrC: {CurrentStreak: 1, LongestStreak: 4, TotalActions: 1, IsRegistered: true, EligibleNow: true,
			LastActionTimestamp: testNow.Add(-25 * time.Hour).Unix()},
		addrA: {CurrentStreak: 3, LongestStreak: 3, TotalActions: 3, IsRegistered: true,
			LastActionTimestamp: testNow.Add(-2 * time.Hour).Unix()},
		addrB: {CurrentStreak: 8, LongestStreak: 8, TotalActions: 20, IsRegistered: true, EligibleNow: false,
			LastActionTimestamp: testNow.Add(-30 * time.Hour).Unix()},
	}}
	b, sender := newTestBot(t, testSnapshot(), users)

	b.handleCommand(context.Background(), command(42, "/status "+addrC))
	sent := sender.all()
	require.Len(t, sent, 1)
	msg, ok := sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "Ready to GM!")
	assert.Contains(t, msg.Text, "Rank: <b>#3</b>")
	assert.Contains(t, msg.Text, "https://basescan.org/address/")

	b.handleCommand(context.Background(), command(42, "/status "+addrA))
	sent = sender.all()
	require.Len(t, sent, 2)
	photo, ok := sent[1].(tgbotapi.PhotoConfig)
	require.True(t, ok, "a running countdown goes out as a card")
	assert.Contains(t, photo.Caption, "Next GM in <b>22h 0m 0s</b>")

	b.handleCommand(context.Background(), command(42, "/status "+addrB))
	sent = sender.all()
	require.Len(t, sent, 3)
	photo, ok = sent[2].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Contains(t, photo.Caption, "Waiting for the contract")
	assert.NotContains(t, photo.Caption, "Ready to GM!")

	b.handleCommand(context.Background(), command(42, "/status nope"))
	assert.Equal(t, "Invalid address", text(sender.all()[3]))
}

func TestWatchUnwatch(t *testing.T) {
	b, sender := newTestBot(t, testSnapshot(), &fakeUsers{})

	b.handleCommand(context.Background(), command(42, "/watch "+addrA))
	b.handleCommand(context.Background(), command(42, "/watch "+addrA))
	b.handleCommand(context.Background(), command(42, "/unwatch "+addrA))
	b.handleCommand(context.Background(), command(42, "/unwatch "+addrA))

	sent := sender.all()
	require.Len(t, sent, 4)
	assert.Contains(t, text(sent[0]), "Watching")
	assert.Contains(t, text(sent[1]), "already watched")
	assert.Contains(t, text(sent[2]), "Stopped watching")
	assert.Equal(t, "Address was not watched", text(sent[3]))
}

func TestReminderOncePerWindow(t *testing.T) {
	users := &fakeUsers{records: map[string]models.UserStreakRecord{}}
	b, sender := newTestBot(t, testSnapshot(), users)

	_, err := b.store.AddWatch(42, addrA, "base")
	require.NoError(t, err)

	users.set(addrA, models.UserStreakRecord{IsRegistered: true, EligibleNow: false,
		LastActionTimestamp: testNow.Add(-2 * time.Hour).Unix()})
	b.checkReminders(context.Background())
	assert.Empty(t, sender.all(), "still cooling down")

	last := testNow.Add(-30 * time.Hour).Unix()
	users.set(addrA, models.UserStreakRecord{IsRegistered: true, EligibleNow: true, CurrentStreak: 6, LastActionTimestamp: last})
	b.checkReminders(context.Background())
	b.checkReminders(context.Background())
	require.Len(t, sender.all(), 1)
	assert.Contains(t, text(sender.all()[0]), "6-day streak")

	users.set(addrA, models.UserStreakRecord{IsRegistered: true, EligibleNow: true, CurrentStreak: 7, LastActionTimestamp: last + 3600})
	b.checkReminders(context.Background())
	assert.Len(t, sender.all(), 2, "a new window gets a new reminder")
}

func TestStatsOnStartupOncePerDay(t *testing.T) {
	b, sender := newTestBot(t, testSnapshot(), &fakeUsers{})

	b.CheckAndSendStatsOnStartup()
	require.Len(t, sender.all(), 1)
	assert.Contains(t, text(sender.all()[0]), "Today: <b>5</b>")

	b.CheckAndSendStatsOnStartup()
	assert.Len(t, sender.all(), 1)

	recent, err := b.store.RecentGMStats("base", 7)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "2024-05-01", recent[0].Date)
}

func TestCommandsFromOtherChatsAreIgnored(t *testing.T) {
	b, sender := newTestBot(t, testSnapshot(), &fakeUsers{})

	updates := make(chan tgbotapi.Update, 2)
	updates <- tgbotapi.Update{Message: command(99, "/helps")}
	updates <- tgbotapi.Update{Message: command(42, "/helps")}
	close(updates)

	b.RunCommandHandler(context.Background(), &fakeUpdates{fakeSender: sender, ch: updates})
	require.Len(t, sender.all(), 1)
	assert.Equal(t, int64(42), sender.all()[0].(tgbotapi.MessageConfig).ChatID)
}

type fakeUpdates struct {
	*fakeSender
	ch chan tgbotapi.Update
}

func (f *fakeUpdates) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.ch
}

func (f *fakeUpdates) StopReceivingUpdates() {}

func TestNextSendTime(t *testing.T) {
	next, err := nextSendTime(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), "10:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), next)

	next, err = nextSendTime(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), "10:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC), next)

	_, err = nextSendTime(testNow, "25:00")
	assert.Error(t, err)
	_, err = nextSendTime(testNow, "ten")
	assert.Error(t, err)
}

func TestParseChatID(t *testing.T) {
	id, err := ParseChatID("-1003190218710")
	require.NoError(t, err)
	assert.Equal(t, int64(-1003190218710), id)

	id, err = ParseChatID("")
	require.NoError(t, err)
	assert.Zero(t, id)

	_, err = ParseChatID("chat")
	assert.Error(t, err)
}
