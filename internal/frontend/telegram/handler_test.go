package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vadimtrunov/CriticsPicks/internal/core"
	"github.com/vadimtrunov/CriticsPicks/internal/picks"
	"github.com/vadimtrunov/CriticsPicks/internal/session"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// recordingSender captures everything the bot sends.
type recordingSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	failMd   bool
}

func (r *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok && r.failMd && msg.ParseMode != "" {
		return tgbotapi.Message{}, fmt.Errorf("can't parse entities")
	}
	r.sent = append(r.sent, c)
	return tgbotapi.Message{MessageID: len(r.sent)}, nil
}

func (r *recordingSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (r *recordingSender) messages() []tgbotapi.MessageConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range r.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

// staticSource serves pages 0 and 20 with two picks each; page 20 is the last.
type staticSource struct{}

func (staticSource) FetchPage(_ context.Context, offset int) (*core.Page, error) {
	if offset > 20 {
		return nil, picks.ErrRequestFailed
	}
	return &core.Page{
		Offset:  offset,
		HasMore: offset < 20,
		Picks: []core.Pick{
			{DisplayTitle: fmt.Sprintf("Movie %d", offset), PublicationDate: "2024-01-01", ImageSource: fmt.Sprintf("%d-a.jpg", offset)},
			{DisplayTitle: fmt.Sprintf("Other %d", offset), PublicationDate: "2024-01-01", ImageSource: fmt.Sprintf("%d-b.jpg", offset)},
		},
	}, nil
}

func newTestBot(allowed ...int64) (*Bot, *recordingSender) {
	out := &recordingSender{}
	images := picks.NewImageCache()
	sessions := session.NewManager[int64](func() *picks.Controller {
		return picks.NewController(staticSource{}, images, picks.WithLogger(discardLogger))
	})
	return &Bot{
		out:      out,
		access:   newAccessList(allowed),
		sessions: sessions,
		logger:   discardLogger,
	}, out
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
}

func callback(userID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}
}

func callbackData(kb tgbotapi.InlineKeyboardMarkup) []string {
	var data []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				data = append(data, *btn.CallbackData)
			}
		}
	}
	return data
}

func TestHandleMessage_Picks(t *testing.T) {
	b, out := newTestBot()
	b.handleMessage(context.Background(), textMessage(1, "/picks"))

	msgs := out.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Errorf("expected MarkdownV2, got %q", msgs[0].ParseMode)
	}
	if !strings.Contains(msgs[0].Text, "Movie 0") {
		t.Errorf("expected page content, got %q", msgs[0].Text)
	}
	kb, ok := msgs[0].ReplyMarkup.(*tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard, got %T", msgs[0].ReplyMarkup)
	}
	got := strings.Join(callbackData(*kb), ",")
	if got != callbackImages+","+callbackNext {
		t.Errorf("expected images and next buttons, got %s", got)
	}
}

func TestHandleMessage_Unauthorized(t *testing.T) {
	b, out := newTestBot(100)
	b.handleMessage(context.Background(), textMessage(300, "/picks"))

	msgs := out.messages()
	if len(msgs) != 1 || msgs[0].Text != unauthorizedMsg {
		t.Fatalf("expected unauthorized reply, got %+v", msgs)
	}
	if b.sessions.Len() != 0 {
		t.Error("unauthorized user must not get a session")
	}
}

func TestHandleMessage_Help(t *testing.T) {
	b, out := newTestBot()
	b.handleMessage(context.Background(), textMessage(1, "hello"))

	msgs := out.messages()
	if len(msgs) != 1 || msgs[0].Text != helpMsg {
		t.Fatalf("expected help reply, got %+v", msgs)
	}
}

func TestHandleMessage_StartSendsWelcomeAndPage(t *testing.T) {
	b, out := newTestBot()
	b.handleMessage(context.Background(), textMessage(1, "/start@CriticsPicksBot"))

	msgs := out.messages()
	if len(msgs) != 2 || msgs[0].Text != welcomeMsg {
		t.Fatalf("expected welcome then page, got %+v", msgs)
	}
}

func TestCallback_NextAndReset(t *testing.T) {
	b, out := newTestBot()
	ctx := context.Background()

	b.handleMessage(ctx, textMessage(1, "/picks"))
	b.handleCallback(ctx, callback(1, callbackNext))

	if got := b.sessions.Get(1).State().Offset; got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}

	var removed bool
	for _, c := range out.sent {
		if edit, ok := c.(tgbotapi.EditMessageReplyMarkupConfig); ok && edit.MessageID == 7 {
			removed = true
		}
	}
	if !removed {
		t.Error("expected the old keyboard to be removed")
	}

	msgs := out.messages()
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.Text, "Movie 20") {
		t.Errorf("expected page 20, got %q", last.Text)
	}
	kb := last.ReplyMarkup.(*tgbotapi.InlineKeyboardMarkup)
	if got := strings.Join(callbackData(*kb), ","); got != callbackPrev+","+callbackImages {
		t.Errorf("expected prev and images on last page, got %s", got)
	}

	// Next on the last page does nothing.
	before := len(out.messages())
	b.handleCallback(ctx, callback(1, callbackNext))
	if len(out.messages()) != before {
		t.Error("expected no message when advance is a no-op")
	}

	b.handleMessage(ctx, textMessage(1, "/reset"))
	if got := b.sessions.Get(1).State().Offset; got != 0 {
		t.Errorf("expected offset 0 after reset, got %d", got)
	}
}

func TestCallback_Images(t *testing.T) {
	b, out := newTestBot()
	b.handleCallback(context.Background(), callback(1, callbackImages))

	var group *tgbotapi.MediaGroupConfig
	for _, c := range out.requests {
		if mg, ok := c.(tgbotapi.MediaGroupConfig); ok {
			group = &mg
		}
	}
	if group == nil {
		t.Fatal("expected a media group")
	}
	if len(group.Media) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(group.Media))
	}
	photo := group.Media[0].(tgbotapi.InputMediaPhoto)
	if photo.Caption != "Movie 0" {
		t.Errorf("expected caption Movie 0, got %q", photo.Caption)
	}
}

func TestCallback_AcknowledgedEvenWhenUnauthorized(t *testing.T) {
	b, out := newTestBot(100)
	b.handleCallback(context.Background(), callback(300, callbackNext))

	if len(out.requests) != 1 {
		t.Fatalf("expected only the callback ack, got %d requests", len(out.requests))
	}
	if _, ok := out.requests[0].(tgbotapi.CallbackConfig); !ok {
		t.Errorf("expected CallbackConfig, got %T", out.requests[0])
	}
}

func TestSendMarkdown_FallsBackToPlain(t *testing.T) {
	b, out := newTestBot()
	out.failMd = true
	b.sendMarkdown(1, "*bad", nil)

	msgs := out.messages()
	if len(msgs) != 1 || msgs[0].ParseMode != "" {
		t.Fatalf("expected one plain message, got %+v", msgs)
	}
}

func TestPageKeyboard(t *testing.T) {
	page := &core.Page{Picks: []core.Pick{{DisplayTitle: "A"}}}
	if kb := pageKeyboard(picks.View{Page: page}); kb != nil {
		t.Error("expected no keyboard without controls or images")
	}
	kb := pageKeyboard(picks.View{Page: page, CanAdvance: true, CanRetreat: true})
	if kb == nil || len(kb.InlineKeyboard[0]) != 2 {
		t.Fatalf("expected prev and next, got %+v", kb)
	}
}

func TestMediaGroups(t *testing.T) {
	photos := make([]tgbotapi.InputMediaPhoto, 23)
	groups := mediaGroups(photos, 10)
	if len(groups) != 3 || len(groups[2]) != 3 {
		t.Errorf("expected groups of 10, 10, 3, got %d groups", len(groups))
	}
}

func TestCommand(t *testing.T) {
	tests := map[string]string{
		"/picks":                 "/picks",
		"/Reset":                 "/reset",
		"/start@CriticsPicksBot": "/start",
		"/picks now":             "/picks",
		"picks":                  "",
	}
	for in, want := range tests {
		if got := command(in); got != want {
			t.Errorf("command(%q) = %q, want %q", in, got, want)
		}
	}
}
