package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name string
	err  error

	mu   sync.Mutex
	msgs []string
}

func (r *recordingSender) Name() string { return r.name }

func (r *recordingSender) Send(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, text)
	return r.err
}

func TestNotify_AllSendersAttempted(t *testing.T) {
	failing := &recordingSender{name: "discord", err: errors.New("boom")}
	ok := &recordingSender{name: "telegram"}

	err := New(failing, nil, ok).Notify(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord")
	assert.Equal(t, []string{"hello"}, failing.msgs)
	assert.Equal(t, []string{"hello"}, ok.msgs)
}

func TestNotify_NoSenders(t *testing.T) {
	assert.NoError(t, New().Notify(context.Background(), "x"))
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "🌐 **LTBB_CTR** John Doe - 1234567 is now online.", OnlineMessage("LTBB_CTR", "John Doe", "1234567"))
	assert.Equal(t, "💤 **LTBB_CTR** is now offline.", OfflineMessage("LTBB_CTR"))
	assert.Equal(t,
		"⚠️ **ROGUE CONNECTION DETECTED**\nController: LTFM_APP (Jane Roe)\nCID: 42\nThis controller is not in the vACC roster!",
		RogueMessage("LTFM_APP", "Jane Roe", "42"))
}

func TestTelegramHTML(t *testing.T) {
	assert.Equal(t, "🌐 <b>LTBB_CTR</b> A &lt;B&gt; - 1 is now online.",
		TelegramHTML(":globe_with_meridians: **LTBB_CTR** A <B> - 1 is now online."))
	assert.Equal(t, "💤 <b>X</b> and <b>Y</b>", TelegramHTML(":zzz: **X** and **Y**"))
	assert.Equal(t, "a &amp; b **", TelegramHTML("a & b **"))
}

type fakeChannel struct {
	channelID string
	data      *discordgo.MessageSend
}

func (f *fakeChannel) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channelID = channelID
	f.data = data
	return &discordgo.Message{}, nil
}

func TestDiscord_Send(t *testing.T) {
	fc := &fakeChannel{}
	require.NoError(t, NewDiscord(fc, "123").Send(context.Background(), "**hi**"))

	assert.Equal(t, "123", fc.channelID)
	assert.Equal(t, "**hi**", fc.data.Content)
	require.NotNil(t, fc.data.AllowedMentions)
	assert.Empty(t, fc.data.AllowedMentions.Parse)
}

type fakeTelegram struct {
	errs   []error
	calls  int
	params *bot.SendMessageParams
}

func (f *fakeTelegram) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.params = p
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &models.Message{ID: 1}, nil
}

func TestTelegram_RetriesTimeouts(t *testing.T) {
	ft := &fakeTelegram{errs: []error{context.DeadlineExceeded, context.DeadlineExceeded}}
	tg := NewTelegram(ft, "-100", TelegramOptions{MaxAttempts: 3, RetryDelay: time.Millisecond})

	require.NoError(t, tg.Send(context.Background(), "**A** <x>"))
	assert.Equal(t, 3, ft.calls)
	assert.Equal(t, "<b>A</b> &lt;x&gt;", ft.params.Text)
	assert.Equal(t, models.ParseModeHTML, ft.params.ParseMode)
	assert.Equal(t, "-100", ft.params.ChatID)
}

func TestTelegram_GivesUpAfterMaxAttempts(t *testing.T) {
	ft := &fakeTelegram{errs: []error{context.DeadlineExceeded, context.DeadlineExceeded, context.DeadlineExceeded, nil}}
	tg := NewTelegram(ft, "-100", TelegramOptions{MaxAttempts: 3, RetryDelay: time.Millisecond})

	err := tg.Send(context.Background(), "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 3, ft.calls)
}

func TestTelegram_OtherErrorsNotRetried(t *testing.T) {
	boom := errors.New("bad request: chat not found")
	ft := &fakeTelegram{errs: []error{boom}}
	tg := NewTelegram(ft, "-100", TelegramOptions{MaxAttempts: 3, RetryDelay: time.Millisecond})

	err := tg.Send(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, ft.calls)
}
