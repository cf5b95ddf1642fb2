package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"shamshouse/internal/models"
	"shamshouse/internal/pricing"
	"shamshouse/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	packPrefix    = "pk:"
	arrivalPrefix = "pa:"
	roomsPrefix   = "rm:"
	lookupPrefix  = "lk:"
	keyPackID     = "pack_id"
	maxRoomPhotos = 3
)

var titleCase = cases.Title(language.English)

func categoryLabel(c models.ServiceCategory) string {
	return titleCase.String(strings.ToLower(string(c)))
}

func (b *Bot) showPacks(ctx context.Context, chatID int64, msgID int) {
	packs, err := b.catalog.ActivePacks(ctx)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	if len(packs) == 0 {
		b.show(chatID, msgID, "🎁 No packages are on offer right now.", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("🎁 *Packages*\n\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := range packs {
		p := &packs[i]
		fmt.Fprintf(&sb, "*%s* · %d days · %s\n", md(p.Name), p.DurationDays, p.RoomType.Label())
		sb.WriteString(packPriceLine(p))
		sb.WriteString("\n\n")
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button(p.Name, packPrefix+strconv.FormatInt(p.ID, 10)),
		))
	}
	b.show(chatID, msgID, sb.String(), markup(rows))
}

func packPriceLine(p *models.Pack) string {
	percent, saved := service.PackDiscount(p)
	if percent <= 0 || p.OriginalPrice == nil {
		return "💶 " + pricing.FormatPrice(p.PromoPrice)
	}
	return fmt.Sprintf("💶 %s instead of %s (-%d%%, you save %s)",
		pricing.FormatPrice(p.PromoPrice), pricing.FormatPrice(*p.OriginalPrice), percent, pricing.FormatPrice(saved))
}

func (b *Bot) handlePackCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID
	data := strings.TrimPrefix(cq.Data, packPrefix)

	if data == "list" {
		b.showPacks(ctx, chatID, msgID)
		return
	}
	if rest, ok := strings.CutPrefix(data, "book:"); ok {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return
		}
		b.askPackArrival(ctx, chatID, msgID, cq.From.ID, id, models.Date{})
		return
	}
	id, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return
	}
	b.showPack(ctx, chatID, msgID, id)
}

func (b *Bot) showPack(ctx context.Context, chatID int64, msgID int, id int64) {
	p, err := b.catalog.Pack(ctx, id)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎁 *%s*\n\n", md(p.Name))
	if p.Description != "" {
		sb.WriteString(md(p.Description))
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "🗓 %d days in a %s room\n", p.DurationDays, strings.ToLower(p.RoomType.Label()))
	if len(p.IncludedServices) > 0 {
		sb.WriteString("🧺 Included:\n")
		for _, s := range p.IncludedServices {
			fmt.Fprintf(&sb, "  • %s\n", md(s.Name))
		}
	}
	sb.WriteString(packPriceLine(p))

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(button("📅 Book this package", packPrefix+"book:"+strconv.FormatInt(p.ID, 10))),
		tgbotapi.NewInlineKeyboardRow(button("⬅️ All packages", packPrefix+"list")),
	}
	if len(p.Photos) > 0 {
		if _, err := b.tgService.SendPhoto(chatID, p.Photos[0], "🎁 "+md(p.Name)); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int64("pack_id", p.ID).Msg("Failed to send pack photo")
		}
		msgID = 0
	}
	b.show(chatID, msgID, sb.String(), markup(rows))
}

// askPackArrival shows the arrival calendar. Typing a date also works while
// the step is active.
func (b *Bot) askPackArrival(ctx context.Context, chatID int64, msgID int, userID, packID int64, month models.Date) {
	p, err := b.catalog.Pack(ctx, packID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	if err := b.stateService.SetUserState(ctx, userID, models.StepPackArrival, map[string]interface{}{keyPackID: packID}); err != nil {
		b.sendError(chatID, err)
		return
	}

	today := models.DateOf(b.now())
	if month.IsZero() {
		month = today
	}
	prefix := fmt.Sprintf("%s%d:", arrivalPrefix, packID)
	rows := calendarKeyboard(prefix, month, today, models.Date{})
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("⬅️ Back", packPrefix+strconv.FormatInt(packID, 10))))

	text := fmt.Sprintf("🎁 *%s*\n📅 Choose your arrival date. The stay lasts %d days.\nYou can also type it as YYYY-MM-DD.",
		md(p.Name), p.DurationDays)
	b.show(chatID, msgID, text, markup(rows))
}

func (b *Bot) handleArrivalCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	rest := strings.TrimPrefix(cq.Data, arrivalPrefix)
	idPart, _, ok := strings.Cut(rest, ":")
	if !ok {
		return
	}
	packID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return
	}
	kind, day, ok := parseCalendar(cq.Data, arrivalPrefix+idPart+":")
	if !ok {
		return
	}
	chatID := cq.Message.Chat.ID
	if kind == "m" {
		b.askPackArrival(ctx, chatID, cq.Message.MessageID, cq.From.ID, packID, day)
		return
	}
	b.startPackBooking(ctx, chatID, cq.Message.MessageID, cq.From.ID, packID, day)
}

func (b *Bot) handleArrivalInput(ctx context.Context, chatID, userID int64, state *models.UserState, text string) {
	day, err := models.ParseDate(text)
	if err != nil {
		b.sendMessage(chatID, "⚠️ Please pick a day on the calendar or type it as YYYY-MM-DD.")
		return
	}
	b.startPackBooking(ctx, chatID, 0, userID, state.GetInt64(keyPackID), day)
}

func (b *Bot) startPackBooking(ctx context.Context, chatID int64, msgID int, userID, packID int64, arrival models.Date) {
	p, err := b.catalog.Pack(ctx, packID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	w, err := b.bookingService.StartPack(ctx, userID, b.catalog.PackContext(p, arrival))
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.setPendingCheckIn(ctx, userID, models.Date{})
	b.countCommand("pack")
	b.renderWizard(chatID, msgID, w, wizardView{})
}

func (b *Bot) handleRoomsCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	data := strings.TrimPrefix(cq.Data, roomsPrefix)
	if rest, ok := strings.CutPrefix(data, "photo:"); ok {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err == nil {
			b.sendRoomPhotos(ctx, cq.Message.Chat.ID, id)
		}
		return
	}
	b.showRooms(ctx, cq.Message.Chat.ID, cq.Message.MessageID, models.RoomType(data))
}

func (b *Bot) showRooms(ctx context.Context, chatID int64, msgID int, roomType models.RoomType) {
	if roomType == "" {
		roomType = service.RoomTypeAll
	}
	rooms, err := b.catalog.Rooms(ctx, roomType)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	var sb strings.Builder
	sb.WriteString("🏨 *Our rooms*\n\n")
	if len(rooms) == 0 {
		sb.WriteString("No room of this type.")
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := range rooms {
		r := &rooms[i]
		fmt.Fprintf(&sb, "*Room %s* · %s · sleeps %d · %s/night\n",
			md(r.RoomNumber), r.RoomType.Label(), pricing.Capacity(r), pricing.FormatPrice(r.PricePerNight))
		if r.Description != "" {
			fmt.Fprintf(&sb, "_%s_\n", md(r.Description))
		}
		sb.WriteString("\n")
		if len(r.Photos) > 0 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				button(fmt.Sprintf("📷 Room %s (%d)", r.RoomNumber, len(r.Photos)), roomsPrefix+"photo:"+strconv.FormatInt(r.ID, 10)),
			))
		}
	}

	filters := make([]tgbotapi.InlineKeyboardButton, 0, 4)
	for _, t := range []models.RoomType{service.RoomTypeAll, models.RoomSingle, models.RoomDouble, models.RoomDormitory} {
		label := "All"
		if t != service.RoomTypeAll {
			label = t.Label()
		}
		if t == roomType {
			label = "• " + label
		}
		filters = append(filters, button(label, roomsPrefix+string(t)))
	}
	rows = append(rows, filters, tgbotapi.NewInlineKeyboardRow(button(btnBook, wizardPrefix+"new")))
	b.show(chatID, msgID, sb.String(), markup(rows))
}

func (b *Bot) sendRoomPhotos(ctx context.Context, chatID, roomID int64) {
	room, err := b.catalog.Room(ctx, roomID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	for i, url := range room.Photos {
		if i == maxRoomPhotos {
			break
		}
		if _, err := b.tgService.SendPhoto(chatID, url, "Room "+md(room.RoomNumber)); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("url", url).Msg("Failed to send room photo")
		}
	}
}

func (b *Bot) showServices(ctx context.Context, chatID int64) {
	grouped, err := b.catalog.ServicesByCategory(ctx)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	if len(grouped) == 0 {
		b.sendMessage(chatID, "🧺 No extra services are offered at the moment.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🧺 *Services*\nAdd them while booking a stay.\n")
	for _, cat := range models.ServiceCategories {
		services := grouped[cat]
		if len(services) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n*%s*\n", categoryLabel(cat))
		for _, s := range services {
			fmt.Fprintf(&sb, "• %s\n", md(serviceLabel(s)))
			if s.Description != "" {
				fmt.Fprintf(&sb, "  _%s_\n", md(s.Description))
			}
		}
	}
	b.sendMarkdown(chatID, sb.String())
}

func (b *Bot) showContact(ctx context.Context, chatID int64) {
	settings, err := b.catalog.Contact(ctx)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📞 *%s*\n\n", md(settings.HostelName))
	if about := b.catalog.About(ctx); about != "" {
		fmt.Fprintf(&sb, "%s\n\n", md(about))
	}
	if settings.Address != "" {
		fmt.Fprintf(&sb, "📍 %s\n", md(settings.Address))
	}
	if settings.Phone != "" {
		fmt.Fprintf(&sb, "☎️ %s\n", md(settings.Phone))
	}
	if settings.Email != "" {
		fmt.Fprintf(&sb, "✉️ %s\n", md(settings.Email))
	}
	if settings.CheckIn24h {
		sb.WriteString("🕐 Self check-in, 24/7\n")
	}
	if settings.CheckOutTime != "" {
		fmt.Fprintf(&sb, "🚪 Check-out until %s\n", md(settings.CheckOutTime))
	}
	if b.config != nil && len(b.config.ManagersContacts) > 0 {
		sb.WriteString("\nReception:\n")
		for _, c := range b.config.ManagersContacts {
			fmt.Fprintf(&sb, "• %s\n", md(c))
		}
	}
	b.sendMarkdown(chatID, sb.String())
}

func (b *Bot) showMyBookings(ctx context.Context, chatID, userID int64) {
	records, err := b.userService.GetUserBookings(ctx, userID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 *My bookings*\n\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	if len(records) == 0 {
		sb.WriteString("You have not booked through this chat yet.")
	}
	for _, rec := range records {
		fmt.Fprintf(&sb, "%s `%s` · %s → %s · %s\n",
			statusEmoji(rec.Status), rec.Reference, rec.CheckIn.Human(), rec.CheckOut.Human(), pricing.FormatPrice(rec.TotalPrice))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("🔄 "+rec.Reference, lookupPrefix+rec.Reference),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("🔎 Find by reference", lookupPrefix+"ask")))
	b.show(chatID, 0, sb.String(), markup(rows))
}

func (b *Bot) handleLookupCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	ref := strings.TrimPrefix(cq.Data, lookupPrefix)
	if ref == "ask" {
		if err := b.stateService.SetStep(ctx, cq.From.ID, models.StepLookupReference); err != nil {
			b.sendError(chatID, err)
			return
		}
		b.sendWithKeyboard(chatID, "🔎 Send your booking reference.", cancelKeyboard())
		return
	}
	b.lookup(ctx, chatID, ref)
}

func (b *Bot) handleLookupInput(ctx context.Context, chatID, userID int64, text string) {
	if b.lookup(ctx, chatID, text) {
		if err := b.stateService.SetStep(ctx, userID, models.StepMainMenu); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to reset step")
		}
		b.showMainMenu(chatID, userID, "")
	}
}

// lookup shows the live booking and reports whether one was found.
func (b *Bot) lookup(ctx context.Context, chatID int64, ref string) bool {
	booking, err := b.bookingService.Lookup(ctx, ref)
	if err != nil {
		b.sendError(chatID, err)
		return false
	}
	b.countCommand("lookup")
	b.sendMarkdown(chatID, guestBookingText(booking))
	return true
}

func guestBookingText(bk *models.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s *Booking* `%s`\n\n", statusEmoji(bk.Status), bk.BookingReference)
	fmt.Fprintf(&sb, "Status: *%s*\n", bk.Status.Label())
	fmt.Fprintf(&sb, "📅 %s → %s\n", bk.CheckInDate.Human(), bk.CheckOutDate.Human())
	if rooms := bk.RoomNumbers(); len(rooms) > 0 {
		fmt.Fprintf(&sb, "🏨 Room %s, %d bed(s)\n", md(strings.Join(rooms, ", ")), len(bk.Beds))
	}
	if bk.Pack != nil {
		fmt.Fprintf(&sb, "🎁 %s\n", md(bk.Pack.Name))
	}
	fmt.Fprintf(&sb, "💶 %s\n", pricing.FormatPrice(bk.TotalPrice))
	if bk.AccessCode != "" && bk.Status != models.StatusCancelled {
		fmt.Fprintf(&sb, "🔑 Access code: `%s`\n", bk.AccessCode)
	}
	return sb.String()
}
