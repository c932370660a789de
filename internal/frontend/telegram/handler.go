package telegram

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vadimtrunov/CriticsPicks/internal/picks"
)

const (
	unauthorizedMsg = "Sorry, you are not authorized to use this bot."
	errorMsg        = "An error occurred while processing your request. Please try again."
	welcomeMsg      = "Welcome to Critics’ Picks! Recent movies selected by The New York Times’ critics. Use ◀ and ▶ to page through them."
	helpMsg         = "Commands: /picks shows the current page, /reset goes back to the first page."
	loadFailedMsg   = "Could not load picks right now. Please try again later."
	noPicksMsg      = "No picks on this page."
	noImagesMsg     = "No images on this page."

	callbackPrev   = "nav:prev"
	callbackNext   = "nav:next"
	callbackImages = "view:images"

	maxMediaGroup = 10 // Telegram accepts 2-10 items per media group
)

// handleMessage processes an incoming text message.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	b.logger.Debug("received message",
		slog.Int64("user_id", userID),
	)

	if !b.access.isAllowed(userID) {
		b.sendText(chatID, unauthorizedMsg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	switch command(text) {
	case "/start":
		b.sendText(chatID, welcomeMsg)
	case "/picks":
	case "/reset":
		b.sessions.Reset(userID)
	default:
		b.sendText(chatID, helpMsg)
		return
	}

	ctrl := b.sessions.Get(userID)
	if ctrl == nil {
		b.logger.Error("failed to create picks session", slog.Int64("user_id", userID))
		b.sendText(chatID, errorMsg)
		return
	}
	b.sendPage(ctx, chatID, userID, ctrl)
}

// handleCallback processes inline keyboard callback queries.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	userID := cq.From.ID
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID

	b.logger.Debug("received callback",
		slog.Int64("user_id", userID),
		slog.String("data", cq.Data),
	)

	// Acknowledge the callback immediately.
	b.out.Request(tgbotapi.NewCallback(cq.ID, "")) //nolint:errcheck // best-effort ack

	if !b.access.isAllowed(userID) {
		return
	}

	ctrl := b.sessions.Get(userID)
	if ctrl == nil {
		b.logger.Error("failed to create picks session", slog.Int64("user_id", userID))
		b.sendText(chatID, errorMsg)
		return
	}

	switch cq.Data {
	case callbackPrev, callbackNext:
		var moved bool
		if cq.Data == callbackNext {
			moved = ctrl.Advance()
		} else {
			moved = ctrl.Retreat()
		}
		if !moved {
			return
		}
		// Remove the keyboard from the page we are leaving.
		removeKB := tgbotapi.NewEditMessageReplyMarkup(chatID, cq.Message.MessageID, tgbotapi.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
		})
		b.out.Send(removeKB) //nolint:errcheck
		b.sendPage(ctx, chatID, userID, ctrl)
	case callbackImages:
		b.sendImages(ctx, chatID, ctrl)
	}
}

// sendPage renders the session's current page, splitting it across messages
// when needed. The navigation keyboard goes on the last message.
func (b *Bot) sendPage(ctx context.Context, chatID, userID int64, ctrl *picks.Controller) {
	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	b.out.Request(typing) //nolint:errcheck // best-effort typing indicator

	view := ctrl.Snapshot(ctx)
	if view.Err != nil {
		b.logger.Error("fetch picks failed",
			slog.Int64("user_id", userID),
			slog.String("error", view.Err.Error()),
		)
	}

	chunks := splitMessage(formatPage(ctrl, view), maxMessageLen)
	kb := pageKeyboard(view)
	for i, chunk := range chunks {
		var markup *tgbotapi.InlineKeyboardMarkup
		if i == len(chunks)-1 {
			markup = kb
		}
		b.sendMarkdown(chatID, chunk, markup)
	}
}

// sendImages sends the image-eligible picks of the current page as photo albums.
func (b *Bot) sendImages(ctx context.Context, chatID int64, ctrl *picks.Controller) {
	view := ctrl.Snapshot(ctx)
	if view.Err != nil {
		b.sendText(chatID, loadFailedMsg)
		return
	}

	var photos []tgbotapi.InputMediaPhoto
	for _, p := range view.Page.ImagePicks() {
		src, ok := ctrl.ImageSourceFor(p)
		if !ok {
			continue
		}
		photo := tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(src))
		photo.Caption = p.DisplayTitle
		photos = append(photos, photo)
	}
	if len(photos) == 0 {
		b.sendText(chatID, noImagesMsg)
		return
	}

	for _, group := range mediaGroups(photos, maxMediaGroup) {
		if len(group) == 1 {
			single := tgbotapi.NewPhoto(chatID, group[0].Media)
			single.Caption = group[0].Caption
			if _, err := b.out.Send(single); err != nil {
				b.logger.Debug("failed to send photo", slog.String("error", err.Error()))
			}
			continue
		}
		files := make([]interface{}, len(group))
		for i, photo := range group {
			files[i] = photo
		}
		if _, err := b.out.Request(tgbotapi.NewMediaGroup(chatID, files)); err != nil {
			b.logger.Debug("failed to send media group", slog.String("error", err.Error()))
		}
	}
}

// sendMarkdown sends a MarkdownV2 message, retrying as plain text on failure.
func (b *Bot) sendMarkdown(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	if kb != nil {
		msg.ReplyMarkup = kb
	}
	if _, err := b.out.Send(msg); err != nil {
		b.logger.Warn("failed to send markdown, retrying plain",
			slog.String("error", err.Error()),
		)
		plain := tgbotapi.NewMessage(chatID, text)
		if kb != nil {
			plain.ReplyMarkup = kb
		}
		if _, err := b.out.Send(plain); err != nil {
			b.logger.Error("failed to send message",
				slog.Int64("chat_id", chatID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// sendText sends a plain text message (no parse mode).
func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.out.Send(msg); err != nil {
		b.logger.Error("failed to send message",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}

// pageKeyboard builds the navigation row for view. Disabled controls are
// left out; nil means no keyboard at all.
func pageKeyboard(view picks.View) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if view.CanRetreat {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("◀", callbackPrev))
	}
	if view.Err == nil && len(view.Page.ImagePicks()) > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("🖼 Images", callbackImages))
	}
	if view.CanAdvance {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("▶", callbackNext))
	}
	if len(row) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return &kb
}

// mediaGroups splits photos into albums of at most size items.
func mediaGroups(photos []tgbotapi.InputMediaPhoto, size int) [][]tgbotapi.InputMediaPhoto {
	var groups [][]tgbotapi.InputMediaPhoto
	for i := 0; i < len(photos); i += size {
		groups = append(groups, photos[i:min(i+size, len(photos))])
	}
	return groups
}

// command extracts the slash command from text, dropping arguments and a
// trailing @botname.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd)
}
