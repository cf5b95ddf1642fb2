package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"shamshouse/internal/models"
	"shamshouse/internal/pricing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type PaginationParams struct {
	Ctx          context.Context
	ChatID       int64
	MessageID    int // 0 if new message
	Page         int
	Title        string
	ItemPrefix   string
	PagePrefix   string
	BackCallback string
}

// renderPaginatedList draws one page of a list with navigation buttons.
func (b *Bot) renderPaginatedList(params PaginationParams, totalCount int, itemsPerPage int, renderer func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton)) {
	if itemsPerPage <= 0 {
		itemsPerPage = b.pageSize()
	}

	if params.Page < 0 {
		params.Page = 0
	}
	totalPages := (totalCount + itemsPerPage - 1) / itemsPerPage
	if params.Page >= totalPages && totalPages > 0 {
		params.Page = totalPages - 1
	}

	startIdx := params.Page * itemsPerPage
	endIdx := startIdx + itemsPerPage
	if endIdx > totalCount {
		endIdx = totalCount
	}

	content, keyboard := renderer(startIdx, endIdx)

	var message strings.Builder
	message.WriteString(fmt.Sprintf("%s\n\n", params.Title))
	if totalPages > 1 {
		message.WriteString(fmt.Sprintf("Page %d of %d\n\n", params.Page+1, totalPages))
	}
	message.WriteString(content)

	var navButtons []tgbotapi.InlineKeyboardButton
	if params.Page > 0 {
		navButtons = append(navButtons, button("⬅️ Previous", fmt.Sprintf("%s%d", params.PagePrefix, params.Page-1)))
	}
	if endIdx < totalCount {
		navButtons = append(navButtons, button("Next ➡️", fmt.Sprintf("%s%d", params.PagePrefix, params.Page+1)))
	}
	if len(navButtons) > 0 {
		keyboard = append(keyboard, navButtons)
	}

	if params.BackCallback != "" {
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(button("⬅️ Back", params.BackCallback)))
	}

	var kb *tgbotapi.InlineKeyboardMarkup
	if len(keyboard) > 0 {
		kb = markup(keyboard)
	}
	b.show(params.ChatID, params.MessageID, message.String(), kb)
}

// renderPaginatedBookings lists back-office bookings, one button per booking.
func (b *Bot) renderPaginatedBookings(params PaginationParams, bookings []models.Booking) {
	if len(bookings) == 0 {
		params.Title += "\n\nNo bookings."
	}
	b.renderPaginatedList(params, len(bookings), 0, func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton) {
		var content strings.Builder
		var keyboard [][]tgbotapi.InlineKeyboardButton

		for _, bk := range bookings[startIdx:endIdx] {
			content.WriteString(fmt.Sprintf("%s *%s* `%s`\n", statusEmoji(bk.Status), md(bk.GuestName), bk.BookingReference))
			content.WriteString(fmt.Sprintf("   📅 %s → %s\n", bk.CheckInDate.Human(), bk.CheckOutDate.Human()))
			if rooms := bk.RoomNumbers(); len(rooms) > 0 {
				content.WriteString(fmt.Sprintf("   🏨 %s · %d bed(s)\n", md(strings.Join(rooms, ", ")), len(bk.Beds)))
			}
			content.WriteString(fmt.Sprintf("   💶 %s · %s\n\n", pricing.FormatPrice(bk.TotalPrice), bk.Status.Label()))

			keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(button(
				fmt.Sprintf("%s %s (%s)", bk.BookingReference, bk.GuestName, bk.CheckInDate.Format("02.01")),
				params.ItemPrefix+strconv.FormatInt(bk.ID, 10),
			)))
		}

		return content.String(), keyboard
	})
}
