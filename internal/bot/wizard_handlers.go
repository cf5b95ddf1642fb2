package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shamshouse/internal/models"
	"shamshouse/internal/pricing"
	"shamshouse/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	wizardPrefix = "wz:"
	keyCheckIn   = "check_in"
	skipNotes    = "-"
)

// wizardView is what a render needs besides the wizard itself.
type wizardView struct {
	month   models.Date
	pending models.Date
	notice  string
}

// startBooking opens a fresh wizard at date selection.
func (b *Bot) startBooking(ctx context.Context, chatID, userID int64) {
	w, err := b.bookingService.Start(ctx, userID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.setPendingCheckIn(ctx, userID, models.Date{})
	b.countCommand("book")
	b.renderWizard(chatID, 0, w, wizardView{})
}

// resumeBooking shows the running wizard again, or starts one.
func (b *Bot) resumeBooking(ctx context.Context, chatID, userID int64) {
	w, err := b.bookingService.Current(ctx, userID)
	if err != nil || w.Step() == wizard.Confirmation {
		b.startBooking(ctx, chatID, userID)
		return
	}
	b.renderWizard(chatID, 0, w, wizardView{pending: b.pendingCheckIn(ctx, userID)})
}

func (b *Bot) pendingCheckIn(ctx context.Context, userID int64) models.Date {
	state, err := b.stateService.GetUserState(ctx, userID)
	if err != nil || state == nil {
		return models.Date{}
	}
	d, err := models.ParseDate(state.GetString(keyCheckIn))
	if err != nil {
		return models.Date{}
	}
	return d
}

func (b *Bot) setPendingCheckIn(ctx context.Context, userID int64, d models.Date) {
	if err := b.stateService.UpdateUserStateData(ctx, userID, keyCheckIn, d.String()); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to store check-in")
	}
}

func (b *Bot) handleWizardCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID
	userID := cq.From.ID
	data := strings.TrimPrefix(cq.Data, wizardPrefix)

	if kind, day, ok := parseCalendar(cq.Data, wizardPrefix); ok {
		b.handleWizardCalendar(ctx, chatID, msgID, userID, kind, day)
		return
	}

	action, arg, _ := strings.Cut(data, ":")
	id, _ := strconv.ParseInt(arg, 10, 64)

	var (
		w   *wizard.Wizard
		err error
	)
	switch action {
	case "room":
		w, err = b.bookingService.Apply(ctx, userID, func(w *wizard.Wizard) error { return w.SelectRoom(id) })
	case "bed":
		w, err = b.bookingService.Apply(ctx, userID, func(w *wizard.Wizard) error { return w.ToggleBed(id) })
	case "svc":
		w, err = b.bookingService.Apply(ctx, userID, func(w *wizard.Wizard) error { return w.ToggleService(id) })
	case "rooms":
		w, err = b.bookingService.Apply(ctx, userID, func(w *wizard.Wizard) error { return w.BackToRooms() })
	case "dates":
		w, err = b.bookingService.Apply(ctx, userID, func(w *wizard.Wizard) error { return w.ChangeDates() })
	case "new":
		b.startBooking(ctx, chatID, userID)
		return
	case "edit":
		b.promptGuestField(ctx, chatID, userID, arg)
		return
	case "submit":
		b.submitBooking(ctx, chatID, msgID, cq.From)
		return
	case "cancel":
		b.cancelBooking(ctx, chatID, userID)
		return
	default:
		zerolog.Ctx(ctx).Warn().Str("data", cq.Data).Msg("Unknown wizard callback")
		return
	}

	if err != nil {
		b.sendError(chatID, err)
		if w == nil {
			return
		}
	}
	b.renderWizard(chatID, msgID, w, wizardView{})
}

// handleWizardCalendar turns two day picks into the stay. The first pick is
// kept in the session until the second arrives.
func (b *Bot) handleWizardCalendar(ctx context.Context, chatID int64, msgID int, userID int64, kind string, day models.Date) {
	w, err := b.bookingService.Current(ctx, userID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	pending := b.pendingCheckIn(ctx, userID)

	if kind == "m" {
		b.renderWizard(chatID, msgID, w, wizardView{month: day, pending: pending})
		return
	}

	if pending.IsZero() || day.Before(pending) {
		if day.Before(models.DateOf(b.now())) {
			b.sendError(chatID, wizard.ErrCheckInPast)
			return
		}
		b.setPendingCheckIn(ctx, userID, day)
		b.renderWizard(chatID, msgID, w, wizardView{month: day, pending: day})
		return
	}

	b.setPendingCheckIn(ctx, userID, models.Date{})
	w, err = b.bookingService.Apply(ctx, userID, func(w *wizard.Wizard) error { return w.SetDates(pending, day) })
	if err != nil {
		b.sendError(chatID, err)
		if w != nil {
			b.renderWizard(chatID, msgID, w, wizardView{})
		}
		return
	}

	w, err = b.bookingService.SearchRooms(ctx, userID)
	switch {
	case errors.Is(err, wizard.ErrNoRoomsAvailable), errors.Is(err, wizard.ErrAvailability):
		b.renderWizard(chatID, msgID, w, wizardView{month: pending, notice: userMessage(err)})
		return
	case err != nil:
		b.sendError(chatID, err)
		return
	}
	b.renderWizard(chatID, msgID, w, wizardView{})
}

var guestFieldSteps = map[string]string{
	"name":  models.StepGuestName,
	"email": models.StepGuestEmail,
	"phone": models.StepGuestPhone,
	"notes": models.StepGuestNotes,
}

var guestFieldPrompts = map[string]string{
	models.StepGuestName:  "👤 Send the guest's full name.",
	models.StepGuestEmail: "✉️ Send the email address for the confirmation.",
	models.StepGuestPhone: "📞 Send a phone number, with the country code if you are not in France.",
	models.StepGuestNotes: "📝 Anything we should know? Send your note, or \"" + skipNotes + "\" for none.",
}

func (b *Bot) promptGuestField(ctx context.Context, chatID, userID int64, field string) {
	step, ok := guestFieldSteps[field]
	if !ok {
		return
	}
	if err := b.stateService.SetStep(ctx, userID, step); err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendWithKeyboard(chatID, guestFieldPrompts[step], cancelKeyboard())
}

// handleGuestInput stores one typed guest field and asks for the next
// missing one.
func (b *Bot) handleGuestInput(ctx context.Context, chatID, userID int64, step, text string) {
	var op func(w *wizard.Wizard) error
	switch step {
	case models.StepGuestName:
		op = func(w *wizard.Wizard) error { return w.SetGuestName(text) }
	case models.StepGuestEmail:
		op = func(w *wizard.Wizard) error { return w.SetGuestEmail(text) }
	case models.StepGuestPhone:
		op = func(w *wizard.Wizard) error { return w.SetGuestPhone(text) }
	case models.StepGuestNotes:
		if strings.TrimSpace(text) == skipNotes {
			text = ""
		}
		op = func(w *wizard.Wizard) error { return w.SetNotes(text) }
	default:
		return
	}

	w, err := b.bookingService.Apply(ctx, userID, op)
	if err != nil {
		if w == nil || errors.Is(err, wizard.ErrIllegalTransition) || errors.Is(err, wizard.ErrSubmissionInFlight) {
			next := models.StepMainMenu
			if w != nil {
				next = models.StepWizard
			}
			if serr := b.stateService.SetStep(ctx, userID, next); serr != nil {
				zerolog.Ctx(ctx).Error().Err(serr).Int64("user_id", userID).Msg("Failed to reset step")
			}
			b.sendError(chatID, err)
			b.showMainMenu(chatID, userID, "")
			return
		}
		b.sendMessage(chatID, userMessage(err)+"\n\n"+guestFieldPrompts[step])
		return
	}

	d := w.Draft()
	switch {
	case d.GuestName == "":
		b.promptGuestField(ctx, chatID, userID, "name")
		return
	case d.GuestEmail == "":
		b.promptGuestField(ctx, chatID, userID, "email")
		return
	case d.GuestPhone == "":
		b.promptGuestField(ctx, chatID, userID, "phone")
		return
	}
	b.sendWithKeyboard(chatID, "👍 Saved.", b.mainMenuKeyboard(userID))
	b.renderWizard(chatID, 0, w, wizardView{})
}

func (b *Bot) submitBooking(ctx context.Context, chatID int64, msgID int, from *tgbotapi.User) {
	user := telegramUser(from)
	if saved, err := b.userService.GetUser(ctx, from.ID); err == nil && saved != nil {
		user = saved
	}

	current, err := b.bookingService.Current(ctx, from.ID)
	if err == nil && current.Step() == wizard.GuestDetails {
		b.show(chatID, msgID, "⏳ Sending your booking...", nil)
	}

	w, err := b.bookingService.Submit(ctx, user)
	switch {
	case errors.Is(err, wizard.ErrSubmitFailed):
		b.countError()
		b.renderWizard(chatID, msgID, w, wizardView{})
		return
	case err != nil:
		b.sendError(chatID, err)
		if w != nil {
			b.renderWizard(chatID, msgID, w, wizardView{})
		}
		return
	}

	if b.metrics != nil {
		roomType := ""
		if r := w.Room(); r != nil {
			roomType = string(r.RoomType)
		}
		b.metrics.BookingsCreated.WithLabelValues(roomType).Inc()
	}
	b.renderWizard(chatID, msgID, w, wizardView{})
}

func (b *Bot) cancelBooking(ctx context.Context, chatID, userID int64) {
	if err := b.bookingService.Discard(ctx, userID); err != nil {
		b.sendError(chatID, err)
		return
	}
	b.showMainMenu(chatID, userID, "Booking cancelled. Nothing was reserved.")
}

func (b *Bot) renderWizard(chatID int64, msgID int, w *wizard.Wizard, view wizardView) {
	if w == nil {
		return
	}
	if b.metrics != nil {
		b.metrics.WizardSteps.WithLabelValues(w.Step().String()).Inc()
	}

	var (
		text string
		rows [][]tgbotapi.InlineKeyboardButton
	)
	switch w.Step() {
	case wizard.DateSelection:
		text, rows = b.dateSelectionView(w, view)
	case wizard.RoomSelection:
		text, rows = roomSelectionView(w)
	case wizard.GuestDetails:
		text, rows = guestDetailsView(w)
	case wizard.Submitting:
		text = "⏳ Sending your booking..."
	case wizard.Confirmation:
		text = confirmationView(w)
	}
	if view.notice != "" {
		text += "\n\n" + md(view.notice)
	}

	var kb *tgbotapi.InlineKeyboardMarkup
	if len(rows) > 0 {
		kb = markup(rows)
	}
	b.show(chatID, msgID, text, kb)
}

func (b *Bot) dateSelectionView(w *wizard.Wizard, view wizardView) (string, [][]tgbotapi.InlineKeyboardButton) {
	today := models.DateOf(b.now())
	month := view.month
	if month.IsZero() {
		month = view.pending
	}
	if month.IsZero() {
		month = w.Draft().CheckIn
	}
	if month.IsZero() || month.Before(today) {
		month = today
	}

	var sb strings.Builder
	sb.WriteString("🛏 *Book a stay*\n\n")
	if view.pending.IsZero() {
		sb.WriteString("📅 Choose your *check-in* date.")
	} else {
		fmt.Fprintf(&sb, "Check-in: *%s*\n📅 Now choose your *check-out* date.", view.pending.Human())
	}

	rows := calendarKeyboard(wizardPrefix, month, today, view.pending)
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("❌ Cancel", wizardPrefix+"cancel")))
	return sb.String(), rows
}

func stayLine(d wizard.Draft, nights int) string {
	unit := "nights"
	if nights == 1 {
		unit = "night"
	}
	return fmt.Sprintf("📅 %s → %s · %d %s", d.CheckIn.Human(), d.CheckOut.Human(), nights, unit)
}

func roomSelectionView(w *wizard.Wizard) (string, [][]tgbotapi.InlineKeyboardButton) {
	var sb strings.Builder
	sb.WriteString("🏨 *Available rooms*\n")
	sb.WriteString(stayLine(w.Draft(), w.Nights()))
	sb.WriteString("\n\n")

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range w.Rooms() {
		fmt.Fprintf(&sb, "*Room %s* · %s · %s/night · %d free\n", md(r.RoomNumber), r.RoomType.Label(), pricing.FormatPrice(r.PricePerNight), len(r.Beds))
		if r.Description != "" {
			fmt.Fprintf(&sb, "_%s_\n", md(r.Description))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button(fmt.Sprintf("Room %s · %s/night", r.RoomNumber, pricing.FormatPrice(r.PricePerNight)), wizardPrefix+"room:"+strconv.FormatInt(r.ID, 10)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("📅 Change dates", wizardPrefix+"dates"),
		button("❌ Cancel", wizardPrefix+"cancel"),
	))
	return sb.String(), rows
}

func serviceLabel(s models.Service) string {
	if s.PriceType == models.PricePerNight {
		return fmt.Sprintf("%s · %s/night", s.Name, pricing.FormatPrice(s.Price))
	}
	return fmt.Sprintf("%s · %s", s.Name, pricing.FormatPrice(s.Price))
}

func guestDetailsView(w *wizard.Wizard) (string, [][]tgbotapi.InlineKeyboardButton) {
	d := w.Draft()
	room := w.Room()

	var sb strings.Builder
	sb.WriteString("🧾 *Your booking*\n\n")
	if pc := w.Pack(); pc != nil {
		fmt.Fprintf(&sb, "🎁 Package: *%s*\n", md(pc.PackName))
	}
	sb.WriteString(stayLine(d, w.Nights()))
	sb.WriteString("\n")
	if room != nil {
		fmt.Fprintf(&sb, "🏨 Room %s (%s)\n", md(room.RoomNumber), room.RoomType.Label())
		var beds []string
		for _, id := range d.BedIDs {
			if bed, ok := room.Bed(id); ok {
				beds = append(beds, md(bed.BedNumber))
			}
		}
		if len(beds) > 0 {
			fmt.Fprintf(&sb, "🛏 Beds: %s\n", strings.Join(beds, ", "))
		} else {
			sb.WriteString("🛏 Beds: none selected yet\n")
		}
	} else {
		sb.WriteString("🏨 Pick a room below\n")
	}
	if services := w.SelectedServices(); len(services) > 0 {
		names := make([]string, 0, len(services))
		for _, s := range services {
			names = append(names, md(s.Name))
		}
		fmt.Fprintf(&sb, "🧺 Services: %s\n", strings.Join(names, ", "))
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "👤 Name: %s\n", orDash(md(d.GuestName)))
	fmt.Fprintf(&sb, "✉️ Email: %s\n", orDash(md(d.GuestEmail)))
	fmt.Fprintf(&sb, "📞 Phone: %s\n", orDash(md(d.GuestPhone)))
	if d.Notes != "" {
		fmt.Fprintf(&sb, "📝 Notes: %s\n", md(d.Notes))
	}
	if room != nil {
		fmt.Fprintf(&sb, "\n💶 *Total: %s*", pricing.FormatPrice(w.Total()))
	}
	if msg := w.LastError(); msg != "" {
		fmt.Fprintf(&sb, "\n\n⚠️ %s", md(msg))
	}

	var rows [][]tgbotapi.InlineKeyboardButton

	if w.IsPack() {
		var row []tgbotapi.InlineKeyboardButton
		for _, r := range w.Rooms() {
			label := "Room " + r.RoomNumber
			if room != nil && room.ID == r.ID {
				label = "✅ " + label
			}
			row = append(row, button(label, wizardPrefix+"room:"+strconv.FormatInt(r.ID, 10)))
			if len(row) == 3 {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	if room != nil {
		var row []tgbotapi.InlineKeyboardButton
		for _, bed := range room.Beds {
			mark := "⬜"
			if w.HasBed(bed.ID) {
				mark = "✅"
			}
			row = append(row, button(mark+" Bed "+bed.BedNumber, wizardPrefix+"bed:"+strconv.FormatInt(bed.ID, 10)))
			if len(row) == 3 {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	if !w.IsPack() {
		for _, s := range w.Services() {
			mark := "⬜"
			if w.HasService(s.ID) {
				mark = "✅"
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				button(mark+" "+serviceLabel(s), wizardPrefix+"svc:"+strconv.FormatInt(s.ID, 10)),
			))
		}
	}

	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			button("👤 Name", wizardPrefix+"edit:name"),
			button("✉️ Email", wizardPrefix+"edit:email"),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("📞 Phone", wizardPrefix+"edit:phone"),
			button("📝 Notes", wizardPrefix+"edit:notes"),
		),
		tgbotapi.NewInlineKeyboardRow(button("✅ Confirm booking", wizardPrefix+"submit")),
	)
	if !w.IsPack() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("🏨 Other room", wizardPrefix+"rooms"),
			button("📅 Change dates", wizardPrefix+"dates"),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("❌ Cancel", wizardPrefix+"cancel")))
	return sb.String(), rows
}

func confirmationView(w *wizard.Wizard) string {
	conf := w.Confirmation()
	if conf == nil {
		return "🎉 *Booking confirmed!*"
	}
	d := w.Draft()
	total := conf.TotalPrice
	if total == 0 {
		total = w.Total()
	}

	var sb strings.Builder
	sb.WriteString("🎉 *Booking confirmed!*\n\n")
	fmt.Fprintf(&sb, "Reference: `%s`\n", conf.BookingReference)
	if conf.AccessCode != "" {
		fmt.Fprintf(&sb, "🔑 Access code: `%s`\n", conf.AccessCode)
	}
	sb.WriteString(stayLine(d, w.Nights()))
	sb.WriteString("\n")
	if room := w.Room(); room != nil {
		fmt.Fprintf(&sb, "🏨 Room %s, %d bed(s)\n", md(room.RoomNumber), len(d.BedIDs))
	}
	fmt.Fprintf(&sb, "💶 Total: *%s*\n\n", pricing.FormatPrice(total))
	sb.WriteString("A confirmation was sent to " + md(d.GuestEmail) + ". Keep your reference to find the booking under " + btnMyBookings + ".")
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}
