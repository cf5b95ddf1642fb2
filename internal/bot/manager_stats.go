package bot

import (
	"context"
	"fmt"
	"strings"

	"shamshouse/internal/models"
	"shamshouse/internal/pricing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// getUserStats shows user counts and the bookings made through the bot.
func (b *Bot) getUserStats(ctx context.Context, chatID int64) {
	allUsers, err := b.userService.GetAllUsers(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("Error getting all users")
		b.sendMessage(chatID, "Failed to load statistics.")
		return
	}

	activeUsers, _ := b.userService.GetActiveUsers(ctx, 30)
	managers, _ := b.userService.GetManagers(ctx)

	blacklistedCount := 0
	for _, user := range allUsers {
		if user.IsBlacklisted {
			blacklistedCount++
		}
	}

	var message strings.Builder
	message.WriteString("📈 *Statistics*\n\n")

	message.WriteString("👥 *Users*\n")
	message.WriteString(fmt.Sprintf("Total: *%d*\n", len(allUsers)))
	message.WriteString(fmt.Sprintf("Active (30d): *%d*\n", len(activeUsers)))
	message.WriteString(fmt.Sprintf("Managers: *%d*\n", len(managers)))
	for _, m := range managers {
		if name := m.DisplayName(); name != "" {
			message.WriteString("  • " + md(name) + "\n")
		}
	}
	message.WriteString(fmt.Sprintf("Blacklisted: *%d*\n\n", blacklistedCount))

	today := models.DateOf(b.now())
	periods := []struct {
		label string
		from  models.Date
	}{
		{"Next 7 days", today},
		{"Last 30 days", today.AddDays(-30)},
	}

	message.WriteString("🛏 *Bot bookings by check-in*\n")
	for _, p := range periods {
		to := p.from.AddDays(7)
		if p.from.Before(today) {
			to = today
		}
		message.WriteString(fmt.Sprintf("%s: %s\n", p.label, b.bookingSummary(ctx, p.from, to)))
	}

	msg := tgbotapi.NewMessage(chatID, message.String())
	msg.ParseMode = models.ParseModeMarkdown
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("📤 Export users", managerPrefix+"users")),
	)
	msg.ReplyMarkup = keyboard

	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Msg("Failed to send message in getUserStats")
	}
}

// bookingSummary aggregates journal records in a period: count, statuses, revenue.
func (b *Bot) bookingSummary(ctx context.Context, from, to models.Date) string {
	if b.journal == nil {
		return "n/a"
	}
	records, err := b.journal.GetRecordsBetween(ctx, from, to)
	if err != nil {
		b.logger.Error().Err(err).Msg("bookingSummary error")
		return "error"
	}
	if len(records) == 0 {
		return "none"
	}

	statusCount := map[models.BookingStatus]int{}
	var total float64
	for _, rec := range records {
		statusCount[rec.Status]++
		if rec.Status != models.StatusCancelled {
			total += rec.TotalPrice
		}
	}

	order := []models.BookingStatus{models.StatusPending, models.StatusConfirmed, models.StatusCheckedIn, models.StatusCheckedOut, models.StatusCancelled}
	parts := make([]string, 0, len(order))
	for _, st := range order {
		if c := statusCount[st]; c > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", statusEmoji(st), c))
		}
	}

	return fmt.Sprintf("%d · %s · %s", len(records), strings.Join(parts, " "), pricing.FormatPrice(total))
}
