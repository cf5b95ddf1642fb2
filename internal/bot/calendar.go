package bot

import (
	"fmt"
	"strings"
	"time"

	"shamshouse/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const monthLayout = "2006-01"

var weekdays = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

// calendarKeyboard renders one month as an inline keyboard. Month arrows send
// prefix+"m:YYYY-MM" and days send prefix+"d:YYYY-MM-DD". Days before minDay
// cannot be picked; marked is highlighted.
func calendarKeyboard(prefix string, month, minDay, marked models.Date) [][]tgbotapi.InlineKeyboardButton {
	first := models.NewDate(month.Year(), month.Month(), 1)
	firstAllowed := models.NewDate(minDay.Year(), minDay.Month(), 1)

	prev := button(" ", cbNoop)
	if first.After(firstAllowed) {
		prev = button("‹", prefix+"m:"+first.AddDate(0, -1, 0).Format(monthLayout))
	}
	next := button("›", prefix+"m:"+first.AddDate(0, 1, 0).Format(monthLayout))

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(prev, button(first.Format("January 2006"), cbNoop), next),
	}

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, d := range weekdays {
		header = append(header, button(d, cbNoop))
	}
	rows = append(rows, header)

	// Monday is column 0.
	offset := (int(first.Weekday()) + 6) % 7
	row := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for i := 0; i < offset; i++ {
		row = append(row, button(" ", cbNoop))
	}
	for day := first; day.Month() == first.Month(); day = day.AddDays(1) {
		switch {
		case day.Before(minDay):
			row = append(row, button("·", cbNoop))
		case !marked.IsZero() && day.Equal(marked):
			row = append(row, button(fmt.Sprintf("[%d]", day.Day()), prefix+"d:"+day.String()))
		default:
			row = append(row, button(fmt.Sprint(day.Day()), prefix+"d:"+day.String()))
		}
		if len(row) == 7 {
			rows = append(rows, row)
			row = make([]tgbotapi.InlineKeyboardButton, 0, 7)
		}
	}
	if len(row) > 0 {
		for len(row) < 7 {
			row = append(row, button(" ", cbNoop))
		}
		rows = append(rows, row)
	}
	return rows
}

// parseCalendar splits a calendar callback into its kind ("m" or "d") and
// the month or day it carries.
func parseCalendar(data, prefix string) (kind string, date models.Date, ok bool) {
	rest, found := strings.CutPrefix(data, prefix)
	if !found {
		return "", models.Date{}, false
	}
	kind, value, found := strings.Cut(rest, ":")
	if !found {
		return "", models.Date{}, false
	}
	switch kind {
	case "m":
		t, err := time.Parse(monthLayout, value)
		if err != nil {
			return "", models.Date{}, false
		}
		return kind, models.DateOf(t), true
	case "d":
		d, err := models.ParseDate(value)
		if err != nil {
			return "", models.Date{}, false
		}
		return kind, d, true
	}
	return "", models.Date{}, false
}
