package bot

import (
	"strings"

	"shamshouse/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Main menu buttons.
const (
	btnBook       = "🛏 Book a stay"
	btnPacks      = "🎁 Packages"
	btnRooms      = "🏨 Rooms"
	btnServices   = "🧺 Services"
	btnMyBookings = "📋 My bookings"
	btnContact    = "📞 Contact"
	btnCancel     = "❌ Cancel"
	btnDashboard  = "📊 Dashboard"
	btnAllBooking = "📚 Bookings"
)

const cbNoop = "noop"

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// md escapes text that goes inside a Markdown message.
func md(s string) string {
	return markdownEscaper.Replace(s)
}

func (b *Bot) mainMenuKeyboard(userID int64) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBook),
			tgbotapi.NewKeyboardButton(btnPacks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnRooms),
			tgbotapi.NewKeyboardButton(btnServices),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnMyBookings),
			tgbotapi.NewKeyboardButton(btnContact),
		),
	}
	if b.isManager(userID) {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnDashboard),
			tgbotapi.NewKeyboardButton(btnAllBooking),
		))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancel)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tgService.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	if _, err := b.tgService.SendMarkdown(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send markdown message")
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, kb tgbotapi.ReplyKeyboardMarkup) {
	if _, err := b.tgService.SendWithKeyboard(chatID, text, kb); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message with keyboard")
	}
}

// sendError reports err to the chat and logs it when it is not a plain
// validation message.
func (b *Bot) sendError(chatID int64, err error) {
	text := userMessage(err)
	if text == genericErrorMessage {
		b.countError()
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Request failed")
	}
	b.sendMessage(chatID, text)
}

// show edits messageID in place, or sends a new Markdown message when
// messageID is 0 or the edit fails.
func (b *Bot) show(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		edit.ParseMode = models.ParseModeMarkdown
		edit.ReplyMarkup = kb
		_, err := b.tgService.Send(edit)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return
		}
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = models.ParseModeMarkdown
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send view")
	}
}

func (b *Bot) showMainMenu(chatID, userID int64, text string) {
	if text == "" {
		text = "What would you like to do?"
	}
	b.sendWithKeyboard(chatID, text, b.mainMenuKeyboard(userID))
}

func button(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func markup(rows [][]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func statusEmoji(s models.BookingStatus) string {
	switch s {
	case models.StatusConfirmed:
		return "✅"
	case models.StatusCheckedIn:
		return "🏠"
	case models.StatusCheckedOut:
		return "🏁"
	case models.StatusCancelled:
		return "❌"
	default:
		return "⏳"
	}
}
