package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"shamshouse/internal/domain"
	"shamshouse/internal/models"
	"shamshouse/internal/pricing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	bookingsPrefix = "mb:"
	managerPrefix  = "mg:"
	keySearchQuery = "search_query"
)

const managerHelp = `👨‍💼 *Manager commands*

/dashboard - today's summary
/bookings [STATUS] - bookings list, e.g. /bookings CHECKED_IN
/search TEXT - find bookings by guest, reference or room
/booking ID - one booking with its actions
/checkin ID, /checkout ID, /paid ID, /cancel ID
/doorcode [CODE] - show or change the door code
/account - back-office account in use
/password OLD NEW - change the back-office password
/forgot EMAIL, /reset TOKEN NEW - password recovery
/addservice Name; price; FIXED|PER_NIGHT; CATEGORY; description
/addpack Name; days; ROOM_TYPE; promo price; regular price or -; service ids
/addroom Number; ROOM_TYPE; price; beds; description
/editroom ID; Number; ROOM_TYPE; price; beds; description
/delroom ID, /delservice ID, /delpack ID
/settings [KEY VALUE] - show or change hostel settings
/photos - collect photos, then /upload
/export - bookings spreadsheet
/stats - users and bot bookings
/sync - rebuild the Google sheet
/sync failed - retry failed sheet updates
/syncstatus - sheet sync queue`

// handleManagerCommand runs a manager-only command and reports whether cmd
// was one.
func (b *Bot) handleManagerCommand(ctx context.Context, msg *tgbotapi.Message) bool {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "help":
		b.sendMarkdown(chatID, managerHelp)
	case "dashboard":
		b.showDashboard(ctx, chatID, 0)
	case "bookings":
		var status models.BookingStatus
		if args != "" {
			st, ok := models.ParseBookingStatus(args)
			if !ok {
				b.sendMessage(chatID, "⚠️ Unknown status. Use PENDING, CONFIRMED, CHECKED_IN, CHECKED_OUT or CANCELLED.")
				return true
			}
			status = st
		}
		b.showBookings(ctx, chatID, 0, status, 0)
	case "search":
		if args == "" {
			if err := b.stateService.SetStep(ctx, userID, models.StepManagerSearch); err != nil {
				b.sendError(chatID, err)
				return true
			}
			b.sendWithKeyboard(chatID, "🔎 Send a name, email, phone, reference or room number.", cancelKeyboard())
			return true
		}
		b.searchBookings(ctx, chatID, 0, userID, args, 0)
	case "booking":
		if id, ok := b.parseBookingID(chatID, args); ok {
			b.showAdminBooking(ctx, chatID, 0, id)
		}
	case "checkin", "checkout", "paid", "cancel":
		if id, ok := b.parseBookingID(chatID, args); ok {
			b.applyBookingAction(ctx, chatID, 0, userID, msg.Command(), id)
		}
	case "doorcode":
		b.handleDoorCode(ctx, chatID, userID, args)
	case "account", "password", "forgot", "reset":
		b.handleAccountCommand(ctx, msg)
	case "addservice":
		b.addService(ctx, chatID, args)
	case "addpack":
		b.addPack(ctx, chatID, args)
	case "addroom":
		b.addRoom(ctx, chatID, userID, args)
	case "editroom":
		b.editRoom(ctx, chatID, args)
	case "delroom":
		b.deleteCatalogItem(ctx, chatID, domain.KindRoom, args)
	case "delservice":
		b.deleteCatalogItem(ctx, chatID, domain.KindService, args)
	case "delpack":
		b.deleteCatalogItem(ctx, chatID, domain.KindPack, args)
	case "settings":
		b.handleSettings(ctx, chatID, args)
	case "photos":
		b.startPhotoCollection(ctx, chatID, userID)
	case "upload":
		b.uploadPhotos(ctx, chatID, userID)
	case "export":
		b.sendBookingsExport(ctx, chatID)
	case "stats":
		b.getUserStats(ctx, chatID)
	case "sync":
		if strings.EqualFold(args, "failed") {
			b.retryFailedSync(ctx, chatID)
		} else {
			b.requestFullSync(ctx, chatID)
		}
	case "syncstatus":
		b.showSyncStatus(ctx, chatID)
	default:
		return false
	}
	b.countCommand(msg.Command())
	return true
}

func (b *Bot) parseBookingID(chatID int64, arg string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(arg), "#"), 10, 64)
	if err != nil || id <= 0 {
		b.sendMessage(chatID, "⚠️ Give the booking number, e.g. /booking 42.")
		return 0, false
	}
	return id, true
}

func (b *Bot) showDashboard(ctx context.Context, chatID int64, msgID int) {
	stats, err := b.admin.Dashboard(ctx)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 *Dashboard* · %s\n\n", models.DateOf(b.now()).Human())
	fmt.Fprintf(&sb, "🏨 Rooms: *%d*\n", stats.TotalRooms)
	fmt.Fprintf(&sb, "📚 Bookings: *%d*\n", stats.TotalBookings)
	fmt.Fprintf(&sb, "💶 Revenue: *%s*\n\n", pricing.FormatPrice(stats.Revenue))

	fmt.Fprintf(&sb, "🛬 *Arrivals today: %d*\n", stats.TodayCheckIns)
	for _, bk := range stats.CheckIns {
		fmt.Fprintf(&sb, "  • %s `%s` %s\n", md(bk.GuestName), bk.BookingReference, md(strings.Join(bk.RoomNumbers(), ", ")))
	}
	fmt.Fprintf(&sb, "\n🛫 *Departures today: %d*\n", stats.TodayCheckOuts)
	for _, bk := range stats.CheckOuts {
		fmt.Fprintf(&sb, "  • %s `%s` %s\n", md(bk.GuestName), bk.BookingReference, md(strings.Join(bk.RoomNumbers(), ", ")))
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			button(btnAllBooking, bookingsPrefix+"p::0"),
			button("🔄 Refresh", managerPrefix+"dashboard"),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("📤 Export", managerPrefix+"export"),
			button("📈 Stats", managerPrefix+"stats"),
		),
	}
	b.show(chatID, msgID, sb.String(), markup(rows))
}

func (b *Bot) showBookings(ctx context.Context, chatID int64, msgID int, status models.BookingStatus, page int) {
	bookings, err := b.admin.Bookings(ctx, models.BookingFilter{Status: status})
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	title := "📚 *Current bookings*"
	if status != "" {
		title = fmt.Sprintf("📚 *%s bookings*", status.Label())
	}
	if counts, err := b.admin.StatusCounts(ctx); err == nil {
		var parts []string
		for _, st := range []models.BookingStatus{models.StatusPending, models.StatusConfirmed, models.StatusCheckedIn, models.StatusCheckedOut, models.StatusCancelled} {
			parts = append(parts, fmt.Sprintf("%s %d", statusEmoji(st), counts[st]))
		}
		title += "\n" + strings.Join(parts, " · ")
	}

	b.renderPaginatedBookings(PaginationParams{
		Ctx:          ctx,
		ChatID:       chatID,
		MessageID:    msgID,
		Page:         page,
		Title:        title,
		ItemPrefix:   bookingsPrefix + "v:",
		PagePrefix:   fmt.Sprintf("%sp:%s:", bookingsPrefix, status),
		BackCallback: managerPrefix + "dashboard",
	}, bookings)
}

func (b *Bot) searchBookings(ctx context.Context, chatID int64, msgID int, userID int64, query string, page int) {
	if err := b.stateService.SetUserState(ctx, userID, models.StepMainMenu, map[string]interface{}{keySearchQuery: query}); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to keep search query")
	}
	bookings, err := b.admin.Bookings(ctx, models.BookingFilter{Query: query})
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.renderPaginatedBookings(PaginationParams{
		Ctx:        ctx,
		ChatID:     chatID,
		MessageID:  msgID,
		Page:       page,
		Title:      fmt.Sprintf("🔎 *Results for* %q: %d", md(query), len(bookings)),
		ItemPrefix: bookingsPrefix + "v:",
		PagePrefix: bookingsPrefix + "s:",
	}, bookings)
}

func (b *Bot) handleSearchInput(ctx context.Context, chatID, userID int64, text string) {
	b.sendWithKeyboard(chatID, "🔎 Searching...", b.mainMenuKeyboard(userID))
	b.searchBookings(ctx, chatID, 0, userID, strings.TrimSpace(text), 0)
}

func adminBookingText(bk *models.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s *Booking #%d* `%s`\n\n", statusEmoji(bk.Status), bk.ID, bk.BookingReference)
	fmt.Fprintf(&sb, "👤 %s\n", md(bk.GuestName))
	if bk.GuestEmail != "" {
		fmt.Fprintf(&sb, "✉️ %s\n", md(bk.GuestEmail))
	}
	if bk.GuestPhone != "" {
		fmt.Fprintf(&sb, "📞 %s\n", md(bk.GuestPhone))
	}
	fmt.Fprintf(&sb, "📅 %s → %s (%d nights)\n", bk.CheckInDate.Human(), bk.CheckOutDate.Human(), pricing.Nights(bk.CheckInDate, bk.CheckOutDate))
	if len(bk.Beds) > 0 {
		beds := make([]string, 0, len(bk.Beds))
		for _, bed := range bk.Beds {
			beds = append(beds, md(bed.RoomNumber+"/"+bed.BedNumber))
		}
		fmt.Fprintf(&sb, "🛏 %s\n", strings.Join(beds, ", "))
	}
	if bk.Pack != nil {
		fmt.Fprintf(&sb, "🎁 %s\n", md(bk.Pack.Name))
	}
	if len(bk.Services) > 0 {
		names := make([]string, 0, len(bk.Services))
		for _, s := range bk.Services {
			names = append(names, md(s.Name))
		}
		fmt.Fprintf(&sb, "🧺 %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&sb, "💶 %s", pricing.FormatPrice(bk.TotalPrice))
	if bk.PaymentStatus != "" {
		fmt.Fprintf(&sb, " · %s", strings.ToLower(string(bk.PaymentStatus)))
	}
	fmt.Fprintf(&sb, "\nStatus: *%s*\n", bk.Status.Label())
	if bk.AccessCode != "" {
		fmt.Fprintf(&sb, "🔑 `%s`\n", bk.AccessCode)
	}
	if bk.Notes != "" {
		fmt.Fprintf(&sb, "📝 %s\n", md(bk.Notes))
	}
	return sb.String()
}

func adminBookingKeyboard(bk *models.Booking) *tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(bk.ID, 10)
	var actions []tgbotapi.InlineKeyboardButton
	switch bk.Status {
	case models.StatusConfirmed:
		actions = append(actions, button("🏠 Check in", bookingsPrefix+"checkin:"+id))
	case models.StatusCheckedIn:
		actions = append(actions, button("🏁 Check out", bookingsPrefix+"checkout:"+id))
	}
	if bk.PaymentStatus != models.PaymentPaid && bk.Status != models.StatusCancelled {
		actions = append(actions, button("💶 Mark paid", bookingsPrefix+"paid:"+id))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if len(actions) > 0 {
		rows = append(rows, actions)
	}
	if bk.Status != models.StatusCancelled && bk.Status != models.StatusCheckedOut {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("❌ Cancel booking", bookingsPrefix+"askcancel:"+id)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("⬅️ Bookings", bookingsPrefix+"p::0")))
	return markup(rows)
}

func (b *Bot) showAdminBooking(ctx context.Context, chatID int64, msgID int, id int64) {
	bk, err := b.admin.Booking(ctx, id)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.show(chatID, msgID, adminBookingText(bk), adminBookingKeyboard(bk))
}

// applyBookingAction runs a status or payment change and shows the result.
func (b *Bot) applyBookingAction(ctx context.Context, chatID int64, msgID int, managerID int64, action string, id int64) {
	var (
		bk   *models.Booking
		err  error
		done string
	)
	switch action {
	case "checkin":
		bk, err = b.admin.CheckIn(ctx, id, managerID)
		done = "🏠 Guest checked in."
	case "checkout":
		bk, err = b.admin.CheckOut(ctx, id, managerID)
		done = "🏁 Guest checked out."
	case "paid":
		bk, err = b.admin.MarkPaid(ctx, id, managerID)
		done = "💶 Payment recorded."
	case "cancel":
		err = b.admin.Cancel(ctx, id, managerID)
		done = "❌ Booking cancelled."
	default:
		return
	}
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	zerolog.Ctx(ctx).Info().Str("action", action).Int64("booking_id", id).Int64("manager_id", managerID).Msg("Booking updated")
	if bk == nil {
		if bk, err = b.admin.Booking(ctx, id); err != nil {
			b.sendMessage(chatID, done)
			return
		}
	}
	b.show(chatID, msgID, done+"\n\n"+adminBookingText(bk), adminBookingKeyboard(bk))
}

func (b *Bot) handleBookingsCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID
	data := strings.TrimPrefix(cq.Data, bookingsPrefix)
	action, arg, _ := strings.Cut(data, ":")

	switch action {
	case "p":
		statusPart, pagePart, _ := strings.Cut(arg, ":")
		page, _ := strconv.Atoi(pagePart)
		b.showBookings(ctx, chatID, msgID, models.BookingStatus(statusPart), page)
	case "s":
		page, _ := strconv.Atoi(arg)
		query := ""
		if state, err := b.stateService.GetUserState(ctx, cq.From.ID); err == nil && state != nil {
			query = state.GetString(keySearchQuery)
		}
		b.searchBookings(ctx, chatID, msgID, cq.From.ID, query, page)
	case "v":
		if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
			b.showAdminBooking(ctx, chatID, msgID, id)
		}
	case "askcancel":
		rows := [][]tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardRow(
			button("Yes, cancel it", bookingsPrefix+"cancel:"+arg),
			button("No", bookingsPrefix+"v:"+arg),
		)}
		b.show(chatID, msgID, "❓ Cancel booking #"+arg+"? The guest keeps no room.", markup(rows))
	case "checkin", "checkout", "paid", "cancel":
		if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
			b.applyBookingAction(ctx, chatID, msgID, cq.From.ID, action, id)
		}
	}
}

func (b *Bot) handleManagerCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	switch strings.TrimPrefix(cq.Data, managerPrefix) {
	case "dashboard":
		b.showDashboard(ctx, chatID, cq.Message.MessageID)
	case "export":
		b.sendBookingsExport(ctx, chatID)
	case "stats":
		b.getUserStats(ctx, chatID)
	case "users":
		b.handleExportUsers(ctx, chatID)
	}
}

func (b *Bot) handleDoorCode(ctx context.Context, chatID, userID int64, code string) {
	if code == "" {
		settings, err := b.admin.Settings(ctx)
		if err != nil {
			b.sendError(chatID, err)
			return
		}
		if err := b.stateService.SetStep(ctx, userID, models.StepManagerDoorCode); err != nil {
			b.sendError(chatID, err)
			return
		}
		current := settings.DoorCode
		if current == "" {
			current = "not set"
		}
		b.sendWithKeyboard(chatID, "🔑 Current door code: "+current+"\nSend the new code.", cancelKeyboard())
		return
	}

	if err := b.admin.UpdateDoorCode(ctx, code); err != nil {
		b.sendError(chatID, err)
		return
	}
	zerolog.Ctx(ctx).Info().Int64("manager_id", userID).Msg("Door code changed")
	if err := b.stateService.SetStep(ctx, userID, models.StepMainMenu); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to reset step")
	}
	b.showMainMenu(chatID, userID, "✅ Door code updated.")
}

func (b *Bot) requestFullSync(ctx context.Context, chatID int64) {
	if b.sheetsWorker == nil {
		b.sendMessage(chatID, "Google Sheets sync is not configured.")
		return
	}
	if err := b.sheetsWorker.EnqueueFullSync(ctx); err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendMessage(chatID, "🔄 Full sync queued. The sheet is rebuilt in the background.")
}

// syncQueueInspector is implemented by the sheets worker.
type syncQueueInspector interface {
	QueueReport(ctx context.Context) (models.SyncQueueReport, error)
	RetryFailed(ctx context.Context) (int64, error)
}

func (b *Bot) syncInspector(chatID int64) (syncQueueInspector, bool) {
	inspector, ok := b.sheetsWorker.(syncQueueInspector)
	if !ok {
		b.sendMessage(chatID, "Google Sheets sync is not configured.")
	}
	return inspector, ok
}

func (b *Bot) showSyncStatus(ctx context.Context, chatID int64) {
	inspector, ok := b.syncInspector(chatID)
	if !ok {
		return
	}
	report, err := inspector.QueueReport(ctx)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	var sb strings.Builder
	sb.WriteString("🧾 *Sheet sync*\n\n")
	fmt.Fprintf(&sb, "Waiting: *%d*\n", report.Backlog())
	fmt.Fprintf(&sb, "Done: %d\n", report.Counts[models.SyncStatusCompleted])
	fmt.Fprintf(&sb, "Failed: %d\n", report.Counts[models.SyncStatusFailed])
	if f := report.LastFailure; f != nil {
		reason := "unknown error"
		if f.LastError != nil {
			reason = *f.LastError
		}
		fmt.Fprintf(&sb, "\nLast failure: `%s` %s\n%s\n\nSend /sync failed to retry.", f.TaskType, md(f.Reference), md(reason))
	}
	b.sendMarkdown(chatID, sb.String())
}

func (b *Bot) retryFailedSync(ctx context.Context, chatID int64) {
	inspector, ok := b.syncInspector(chatID)
	if !ok {
		return
	}
	n, err := inspector.RetryFailed(ctx)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	if n == 0 {
		b.sendMessage(chatID, "✅ No failed sheet updates.")
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("🔁 %d sheet updates queued again.", n))
}
