package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shamshouse/internal/domain"
	"shamshouse/internal/models"
	"shamshouse/internal/pricing"

	"github.com/rs/zerolog"
)

var errCatalogFormat = errors.New("wrong number of fields")

func splitFields(args string, lo, hi int) ([]string, error) {
	parts := strings.Split(args, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < lo || len(parts) > hi {
		return nil, errCatalogFormat
	}
	return parts, nil
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return v, nil
}

// parseServiceArgs reads "Name; price; FIXED|PER_NIGHT; CATEGORY[; description]".
func parseServiceArgs(args string) (models.Service, error) {
	parts, err := splitFields(args, 4, 5)
	if err != nil {
		return models.Service{}, err
	}
	p, err := parsePrice(parts[1])
	if err != nil {
		return models.Service{}, err
	}
	svc := models.Service{
		Name:      parts[0],
		Price:     p,
		PriceType: models.PriceType(strings.ToUpper(parts[2])),
		Category:  models.ServiceCategory(strings.ToUpper(parts[3])),
	}
	if len(parts) == 5 {
		svc.Description = parts[4]
	}
	return svc, nil
}

// parsePackArgs reads "Name; days; ROOM_TYPE; promo; regular or -; ids".
func parsePackArgs(args string) (models.PackInput, error) {
	parts, err := splitFields(args, 6, 6)
	if err != nil {
		return models.PackInput{}, err
	}
	days, err := strconv.Atoi(parts[1])
	if err != nil {
		return models.PackInput{}, fmt.Errorf("invalid duration %q", parts[1])
	}
	promo, err := parsePrice(parts[3])
	if err != nil {
		return models.PackInput{}, err
	}
	in := models.PackInput{
		Name:         parts[0],
		DurationDays: days,
		RoomType:     models.RoomType(strings.ToUpper(parts[2])),
		PromoPrice:   promo,
	}
	if parts[4] != "" && parts[4] != "-" {
		original, err := parsePrice(parts[4])
		if err != nil {
			return models.PackInput{}, err
		}
		in.OriginalPrice = &original
	}
	for _, raw := range strings.FieldsFunc(parts[5], func(r rune) bool { return r == ',' || r == ' ' }) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.PackInput{}, fmt.Errorf("invalid service id %q", raw)
		}
		in.IncludedServiceIDs = append(in.IncludedServiceIDs, id)
	}
	return in, nil
}

func (b *Bot) addService(ctx context.Context, chatID int64, args string) {
	svc, err := parseServiceArgs(args)
	if err != nil {
		b.sendMessage(chatID, "⚠️ "+capitalize(err.Error())+".\nFormat: /addservice Name; price; FIXED|PER_NIGHT; CATEGORY; description")
		return
	}
	saved, err := b.admin.SaveService(ctx, 0, svc)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("✅ Service #%d %s added (%s).", saved.ID, saved.Name, serviceLabel(*saved)))
}

func (b *Bot) addPack(ctx context.Context, chatID int64, args string) {
	in, err := parsePackArgs(args)
	if err != nil {
		b.sendMessage(chatID, "⚠️ "+capitalize(err.Error())+".\nFormat: /addpack Name; days; ROOM_TYPE; promo price; regular price or -; service ids")
		return
	}
	saved, err := b.admin.SavePack(ctx, 0, in)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("✅ Package #%d %s added at %s.", saved.ID, saved.Name, pricing.FormatPrice(saved.PromoPrice)))
}

// parseRoomArgs reads "Number; ROOM_TYPE; price; beds[; description]".
func parseRoomArgs(args string) (models.RoomInput, error) {
	parts, err := splitFields(args, 4, 5)
	if err != nil {
		return models.RoomInput{}, err
	}
	price, err := parsePrice(parts[2])
	if err != nil {
		return models.RoomInput{}, err
	}
	beds, err := strconv.Atoi(parts[3])
	if err != nil {
		return models.RoomInput{}, fmt.Errorf("invalid bed count %q", parts[3])
	}
	in := models.RoomInput{
		RoomNumber:    parts[0],
		RoomType:      models.RoomType(strings.ToUpper(parts[1])),
		PricePerNight: price,
		NumberOfBeds:  beds,
	}
	if len(parts) == 5 {
		in.Description = parts[4]
	}
	return in, nil
}

const roomFormat = "Number; SINGLE|DOUBLE|DORMITORY; price; beds; description"

// addRoom creates a room with the photos of the last /upload.
func (b *Bot) addRoom(ctx context.Context, chatID, userID int64, args string) {
	in, err := parseRoomArgs(args)
	if err != nil {
		b.sendMessage(chatID, "⚠️ "+capitalize(err.Error())+".\nFormat: /addroom "+roomFormat)
		return
	}
	state, err := b.stateService.GetUserState(ctx, userID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	if state != nil {
		in.Photos = state.GetStrings(keyUploaded)
	}

	saved, err := b.admin.SaveRoom(ctx, 0, in)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	if len(in.Photos) > 0 {
		if err := b.stateService.UpdateUserStateData(ctx, userID, keyUploaded, []string{}); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to clear uploaded photos")
		}
	}
	b.sendMessage(chatID, fmt.Sprintf("✅ Room #%d (%s) added at %s per night with %d photo(s).",
		saved.ID, saved.RoomNumber, pricing.FormatPrice(saved.PricePerNight), len(in.Photos)))
}

// editRoom reads "ID; " followed by the /addroom fields.
func (b *Bot) editRoom(ctx context.Context, chatID int64, args string) {
	rawID, rest, _ := strings.Cut(args, ";")
	id, idErr := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	in, err := parseRoomArgs(rest)
	if idErr != nil || err != nil {
		b.sendMessage(chatID, "⚠️ Format: /editroom ID; "+roomFormat)
		return
	}
	if current, err := b.catalog.Room(ctx, id); err == nil {
		in.Photos = current.Photos
	}
	saved, err := b.admin.SaveRoom(ctx, id, in)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("✅ Room #%d (%s) updated.", saved.ID, saved.RoomNumber))
}

func (b *Bot) deleteCatalogItem(ctx context.Context, chatID int64, kind domain.CatalogKind, arg string) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(arg), "#"), 10, 64)
	if err != nil {
		b.sendMessage(chatID, fmt.Sprintf("⚠️ Give the %s number, e.g. /del%s 3.", kind, kind))
		return
	}
	if err := b.admin.DeleteCatalogItem(ctx, kind, id); err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("🗑 %s #%d deleted.", capitalize(string(kind)), id))
}

// handleSettings shows the hostel settings, or changes one with "KEY VALUE".
func (b *Bot) handleSettings(ctx context.Context, chatID int64, args string) {
	key, value, _ := strings.Cut(strings.TrimSpace(args), " ")
	if key == "" {
		settings, err := b.admin.Settings(ctx)
		if err != nil {
			b.sendError(chatID, err)
			return
		}
		b.sendMarkdown(chatID, settingsText(settings))
		return
	}
	settings, err := b.admin.UpdateSetting(ctx, key, value)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendMarkdown(chatID, "✅ Saved.\n\n"+settingsText(settings))
}

func settingsText(s *models.Settings) string {
	on := "off"
	if s.CheckIn24h {
		on = "on"
	}
	var sb strings.Builder
	sb.WriteString("⚙️ *Settings*\n\n")
	fmt.Fprintf(&sb, "name: %s\n", md(s.HostelName))
	fmt.Fprintf(&sb, "address: %s\n", md(s.Address))
	fmt.Fprintf(&sb, "email: %s\n", md(s.Email))
	fmt.Fprintf(&sb, "phone: %s\n", md(s.Phone))
	fmt.Fprintf(&sb, "wifi: %s\n", md(s.WifiPassword))
	fmt.Fprintf(&sb, "checkout: %s\n", md(s.CheckOutTime))
	fmt.Fprintf(&sb, "instructions: %s\n", md(s.CheckInInstructions))
	fmt.Fprintf(&sb, "24h: %s\n\n", on)
	sb.WriteString("Change one with /settings KEY VALUE.")
	return sb.String()
}
