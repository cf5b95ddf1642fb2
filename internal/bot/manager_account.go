package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleAccountCommand runs /account, /password, /forgot and /reset.
// Messages carrying a password are deleted from the chat once read.
func (b *Bot) handleAccountCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if b.account == nil {
		b.sendMessage(chatID, "⚠️ Account management is not configured.")
		return
	}
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "account":
		u, err := b.account.Whoami(ctx)
		if err != nil {
			b.sendError(chatID, err)
			return
		}
		text := fmt.Sprintf("👤 Signed in as *%s*", md(u.Email))
		if u.Role != "" {
			text += fmt.Sprintf(" (%s)", md(u.Role))
		}
		b.sendMarkdown(chatID, text)

	case "password":
		b.forgetMessage(msg)
		if len(args) != 2 {
			b.sendMessage(chatID, "Usage: /password OLD NEW")
			return
		}
		if err := b.account.ChangePassword(ctx, msg.From.ID, args[0], args[1]); err != nil {
			b.sendError(chatID, err)
			return
		}
		b.sendMessage(chatID, "✅ Password changed.")

	case "forgot":
		if len(args) != 1 {
			b.sendMessage(chatID, "Usage: /forgot EMAIL")
			return
		}
		if err := b.account.ForgotPassword(ctx, args[0]); err != nil {
			b.sendError(chatID, err)
			return
		}
		b.sendMessage(chatID, "📧 If the address is registered, a reset link is on its way.")

	case "reset":
		b.forgetMessage(msg)
		if len(args) != 2 {
			b.sendMessage(chatID, "Usage: /reset TOKEN NEW")
			return
		}
		if err := b.account.ResetPassword(ctx, args[0], args[1]); err != nil {
			b.sendError(chatID, err)
			return
		}
		b.sendMessage(chatID, "✅ Password reset. The bot keeps using its service account.")
	}
}

func (b *Bot) forgetMessage(msg *tgbotapi.Message) {
	if _, err := b.tgService.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		b.logger.Warn().Err(err).Msg("could not delete message with a password")
	}
}
