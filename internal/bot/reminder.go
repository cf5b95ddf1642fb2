package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shamshouse/internal/mail"
	"shamshouse/internal/models"
)

// StartReminders messages guests the day before their arrival.
func (b *Bot) StartReminders(ctx context.Context) {
	b.scheduleDaily(ctx, "reminder", b.configTime(func() string { return b.config.Bot.ReminderTime }), models.ReminderHour, b.sendTomorrowReminders)
}

// StartDigest sends managers today's arrivals and departures every morning.
func (b *Bot) StartDigest(ctx context.Context) {
	b.scheduleDaily(ctx, "digest", b.configTime(func() string { return b.config.Bot.DigestTime }), models.DigestHour, b.sendDailyDigest)
}

func (b *Bot) configTime(get func() string) string {
	if b.config == nil {
		return ""
	}
	return get()
}

// scheduleDaily runs job at HH:MM local time, then every 24 hours.
func (b *Bot) scheduleDaily(ctx context.Context, name, at string, defaultHour int, job func(context.Context)) {
	if b == nil || b.tgService == nil {
		return
	}

	hour, minute := defaultHour, 0
	if at != "" {
		if _, err := fmt.Sscanf(at, "%d:%d", &hour, &minute); err != nil {
			b.logger.Error().Err(err).Str("job", name).Str("time", at).Msg("Invalid schedule time format")
			return
		}
	}

	go func() {
		timer := time.NewTimer(timeUntilNext(b.now(), hour, minute))
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				b.logger.Info().Str("job", name).Msg("Running daily job")
				job(ctx)
				timer.Reset(24 * time.Hour)
			}
		}
	}()
}

func (b *Bot) sendTomorrowReminders(ctx context.Context) {
	if b.journal == nil {
		return
	}
	tomorrow := models.DateOf(b.now()).AddDays(1)
	records, err := b.journal.GetRecordsByCheckIn(ctx, tomorrow)
	if err != nil {
		b.logger.Error().Err(err).Str("date", tomorrow.String()).Msg("reminder: get bookings error")
		return
	}

	var settings *models.Settings
	if b.catalog != nil {
		if s, err := b.catalog.Contact(ctx); err == nil {
			settings = s
		}
	}

	sent := 0
	for _, rec := range records {
		if !shouldRemindStatus(rec.Status) || rec.TelegramUserID == 0 {
			continue
		}
		if _, err := b.tgService.SendMarkdown(rec.TelegramUserID, formatReminderMessage(rec, settings)); err != nil {
			b.logger.Error().Err(err).Int64("telegram_id", rec.TelegramUserID).Str("reference", rec.Reference).Msg("reminder: send error")
			continue
		}
		sent++
	}
	b.logger.Info().Int("sent", sent).Int("bookings", len(records)).Msg("Reminders sent")
}

func shouldRemindStatus(status models.BookingStatus) bool {
	switch status {
	case models.StatusConfirmed, models.StatusPending:
		return true
	default:
		return false
	}
}

func formatReminderMessage(rec *models.BookingRecord, settings *models.Settings) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👋 See you tomorrow, %s!\n\n", md(rec.GuestName))
	fmt.Fprintf(&sb, "Booking `%s` · %s → %s\n", rec.Reference, rec.CheckIn.Human(), rec.CheckOut.Human())
	if rec.RoomNumber != "" {
		fmt.Fprintf(&sb, "🏨 Room %s\n", md(rec.RoomNumber))
	}
	if rec.AccessCode != "" {
		fmt.Fprintf(&sb, "🔑 Access code: `%s`\n", rec.AccessCode)
	}
	if settings != nil {
		if settings.Address != "" {
			fmt.Fprintf(&sb, "📍 %s\n", md(settings.Address))
		}
		if settings.CheckInInstructions != "" {
			fmt.Fprintf(&sb, "\n%s\n", md(settings.CheckInInstructions))
		}
	}
	return sb.String()
}

// sendDailyDigest tells every manager who arrives and leaves today, in
// Telegram and by email when a mailer is set.
func (b *Bot) sendDailyDigest(ctx context.Context) {
	if b.admin == nil {
		return
	}
	checkIns, checkOuts, err := b.admin.Today(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("digest: load today's bookings")
		return
	}

	text := formatDigest(models.DateOf(b.now()), checkIns, checkOuts)
	if b.config != nil {
		for _, managerID := range b.config.Managers {
			if _, err := b.tgService.SendMarkdown(managerID, text); err != nil {
				b.logger.Error().Err(err).Int64("manager_id", managerID).Msg("digest: send error")
			}
		}
	}

	if b.mailer == nil {
		return
	}
	d := mail.Digest{
		Date:      models.DateOf(b.now()),
		CheckIns:  checkIns,
		CheckOuts: checkOuts,
	}
	if b.catalog != nil {
		if s, err := b.catalog.Contact(ctx); err == nil {
			d.HostelName = s.HostelName
		}
	}
	if err := b.mailer.SendDigest(ctx, d); err != nil {
		b.logger.Error().Err(err).Msg("digest: email error")
	}
}

func formatDigest(day models.Date, checkIns, checkOuts []models.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "☀️ *Today, %s*\n\n", day.Human())
	fmt.Fprintf(&sb, "🛬 *Arrivals: %d*\n", len(checkIns))
	for _, bk := range checkIns {
		fmt.Fprintf(&sb, "  • %s `%s` %s\n", md(bk.GuestName), bk.BookingReference, md(strings.Join(bk.RoomNumbers(), ", ")))
	}
	fmt.Fprintf(&sb, "\n🛫 *Departures: %d*\n", len(checkOuts))
	for _, bk := range checkOuts {
		fmt.Fprintf(&sb, "  • %s `%s` %s\n", md(bk.GuestName), bk.BookingReference, md(strings.Join(bk.RoomNumbers(), ", ")))
	}
	return sb.String()
}

func timeUntilNext(now time.Time, hour, minute int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
