package bot

import (
	"context"
	"strings"

	"shamshouse/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const guestHelp = `🏨 *How it works*

🛏 *Book a stay*: pick your dates on the calendar, a room, your beds and extras, then confirm.
🎁 *Packages*: fixed-length stays with services included.
📋 *My bookings*: your reservations and their status.

Commands: /book, /packs, /rooms, /services, /mybookings, /contact, /cancel`

// inputSteps wait for typed text.
var inputSteps = map[string]bool{
	models.StepGuestName:       true,
	models.StepGuestEmail:      true,
	models.StepGuestPhone:      true,
	models.StepGuestNotes:      true,
	models.StepPackArrival:     true,
	models.StepLookupReference: true,
	models.StepCollectPhotos:   true,
	models.StepManagerSearch:   true,
	models.StepManagerDoorCode: true,
}

var guestInputSteps = map[string]bool{
	models.StepGuestName:  true,
	models.StepGuestEmail: true,
	models.StepGuestPhone: true,
	models.StepGuestNotes: true,
}

func (b *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	state, err := b.stateService.GetUserState(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to load user state")
	}
	step := models.StepMainMenu
	if state != nil && state.CurrentStep != "" {
		step = state.CurrentStep
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, step)
		return
	}

	if step == models.StepCollectPhotos && b.isManager(userID) && (len(msg.Photo) > 0 || msg.Document != nil) {
		b.collectPhoto(ctx, msg, state)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if text == btnCancel {
		b.leaveInput(ctx, chatID, userID, step)
		return
	}
	if b.handleMenuButton(ctx, chatID, userID, step, text) {
		return
	}

	switch {
	case guestInputSteps[step]:
		b.handleGuestInput(ctx, chatID, userID, step, text)
	case step == models.StepPackArrival:
		b.handleArrivalInput(ctx, chatID, userID, state, text)
	case step == models.StepLookupReference:
		b.handleLookupInput(ctx, chatID, userID, text)
	case step == models.StepManagerSearch && b.isManager(userID):
		b.handleSearchInput(ctx, chatID, userID, text)
	case step == models.StepManagerDoorCode && b.isManager(userID):
		b.handleDoorCode(ctx, chatID, userID, text)
	case step == models.StepCollectPhotos && b.isManager(userID):
		b.sendMessage(chatID, "📷 Send photos, or type /upload when you are done.")
	default:
		b.showMainMenu(chatID, userID, "Please use the menu below.")
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, step string) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "book":
		b.leaveStep(ctx, userID, step)
		b.resumeBooking(ctx, chatID, userID)
	case "packs":
		b.showPacks(ctx, chatID, 0)
	case "rooms":
		b.showRooms(ctx, chatID, 0, "")
	case "services":
		b.showServices(ctx, chatID)
	case "mybookings":
		b.showMyBookings(ctx, chatID, userID)
	case "contact":
		b.showContact(ctx, chatID)
	case "cancel":
		if b.isManager(userID) && msg.CommandArguments() != "" {
			b.handleManagerCommand(ctx, msg)
			return
		}
		b.leaveInput(ctx, chatID, userID, step)
	case "help":
		if b.isManager(userID) {
			b.handleManagerCommand(ctx, msg)
			return
		}
		b.sendMarkdown(chatID, guestHelp)
	default:
		if b.isManager(userID) && b.handleManagerCommand(ctx, msg) {
			return
		}
		b.sendMessage(chatID, "Unknown command. Type /help to see what I can do.")
		return
	}
	b.countCommand(msg.Command())
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	user := telegramUser(msg.From)
	if err := b.userService.SaveUser(ctx, user); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", user.TelegramID).Msg("Failed to save user")
	}
	if err := b.stateService.SetStep(ctx, user.TelegramID, models.StepMainMenu); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", user.TelegramID).Msg("Failed to reset step")
	}

	hostel := "our hostel"
	if settings, err := b.catalog.Contact(ctx); err == nil && settings.HostelName != "" {
		hostel = settings.HostelName
	}
	name := user.FirstName
	if name == "" {
		name = "there"
	}
	b.showMainMenu(msg.Chat.ID, user.TelegramID, "👋 Hi "+name+", welcome to "+hostel+"!\n\nBook a bed, browse our packages or check a reservation.")
}

// handleMenuButton runs a main menu button and reports whether text was one.
func (b *Bot) handleMenuButton(ctx context.Context, chatID, userID int64, step, text string) bool {
	switch text {
	case btnBook:
		b.leaveStep(ctx, userID, step)
		b.resumeBooking(ctx, chatID, userID)
	case btnPacks:
		b.leaveStep(ctx, userID, step)
		b.showPacks(ctx, chatID, 0)
	case btnRooms:
		b.showRooms(ctx, chatID, 0, "")
	case btnServices:
		b.showServices(ctx, chatID)
	case btnMyBookings:
		b.leaveStep(ctx, userID, step)
		b.showMyBookings(ctx, chatID, userID)
	case btnContact:
		b.showContact(ctx, chatID)
	case btnDashboard:
		if !b.isManager(userID) {
			return false
		}
		b.showDashboard(ctx, chatID, 0)
	case btnAllBooking:
		if !b.isManager(userID) {
			return false
		}
		b.showBookings(ctx, chatID, 0, "", 0)
	default:
		return false
	}
	return true
}

// leaveStep stops waiting for typed input. The wizard, if any, is kept.
func (b *Bot) leaveStep(ctx context.Context, userID int64, step string) {
	if !inputSteps[step] {
		return
	}
	next := models.StepMainMenu
	if guestInputSteps[step] {
		next = models.StepWizard
	}
	if err := b.stateService.SetUserState(ctx, userID, next, nil); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to leave step")
	}
}

// leaveInput handles the cancel button: a guest field returns to the
// booking summary, anything else to the main menu.
func (b *Bot) leaveInput(ctx context.Context, chatID, userID int64, step string) {
	b.leaveStep(ctx, userID, step)
	if guestInputSteps[step] {
		b.sendWithKeyboard(chatID, "OK, nothing changed.", b.mainMenuKeyboard(userID))
		if w, err := b.bookingService.Current(ctx, userID); err == nil {
			b.renderWizard(chatID, 0, w, wizardView{})
		}
		return
	}
	b.showMainMenu(chatID, userID, "")
}

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) {
	cq := update.CallbackQuery
	if err := b.tgService.AnswerCallback(cq.ID, ""); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to answer callback")
	}
	if cq.Message == nil || cq.Data == "" || cq.Data == cbNoop {
		return
	}

	data := cq.Data
	switch {
	case strings.HasPrefix(data, wizardPrefix):
		b.handleWizardCallback(ctx, cq)
	case strings.HasPrefix(data, packPrefix):
		b.handlePackCallback(ctx, cq)
	case strings.HasPrefix(data, arrivalPrefix):
		b.handleArrivalCallback(ctx, cq)
	case strings.HasPrefix(data, roomsPrefix):
		b.handleRoomsCallback(ctx, cq)
	case strings.HasPrefix(data, lookupPrefix):
		b.handleLookupCallback(ctx, cq)
	case strings.HasPrefix(data, bookingsPrefix):
		if b.isManager(cq.From.ID) {
			b.handleBookingsCallback(ctx, cq)
		}
	case strings.HasPrefix(data, managerPrefix):
		if b.isManager(cq.From.ID) {
			b.handleManagerCallback(ctx, cq)
		}
	default:
		zerolog.Ctx(ctx).Warn().Str("data", data).Msg("Unknown callback")
	}
}
