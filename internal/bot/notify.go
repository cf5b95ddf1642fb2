package bot

import (
	"fmt"
	"strings"

	"shamshouse/internal/events"
	"shamshouse/internal/pricing"
)

// SubscribeEvents tells managers about new guest bookings and about
// cancellations made by another manager.
func (b *Bot) SubscribeEvents(bus *events.EventBus) {
	if bus == nil {
		return
	}
	bus.SubscribeBooking(b.notifyManagers, events.EventBookingCreated, events.EventBookingCancelled)
}

func (b *Bot) notifyManagers(eventType string, p events.BookingEventPayload) error {
	text := formatBookingEvent(eventType, p)
	if text == "" {
		return nil
	}
	for _, id := range b.config.Managers {
		if id == p.ChangedByID {
			continue
		}
		b.sendMarkdown(id, text)
	}
	return nil
}

func formatBookingEvent(eventType string, p events.BookingEventPayload) string {
	var sb strings.Builder
	switch eventType {
	case events.EventBookingCreated:
		sb.WriteString("🆕 *New booking* ")
	case events.EventBookingCancelled:
		sb.WriteString("❌ *Booking cancelled* ")
	default:
		return ""
	}
	sb.WriteString(md(p.Reference) + "\n")
	sb.WriteString("👤 " + md(p.GuestName) + "\n")
	switch {
	case p.PackName != "":
		sb.WriteString("🎁 " + md(p.PackName) + "\n")
	case p.RoomNumber != "":
		sb.WriteString("🛏 Room " + md(p.RoomNumber) + "\n")
	}
	fmt.Fprintf(&sb, "📅 %s → %s\n", p.CheckIn, p.CheckOut)
	sb.WriteString("💶 " + pricing.FormatPrice(p.TotalPrice))
	return sb.String()
}
