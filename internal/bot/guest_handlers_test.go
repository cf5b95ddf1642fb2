package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"shamshouse/internal/models"
	"shamshouse/internal/wizard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surfPack() models.Pack {
	regular := 300.0
	return models.Pack{
		ID: 10, Name: "Surf Week", DurationDays: 7, RoomType: models.RoomDormitory,
		OriginalPrice: &regular, PromoPrice: 240,
		IncludedServices: []models.Service{{ID: 6, Name: "Surf lesson", Price: 40, PriceType: models.PriceFixed}},
	}
}

func TestStartGreetsWithHostelName(t *testing.T) {
	tb := newTestBot(t)

	tb.send(textUpdate(guestID, "/start"))

	assert.Contains(t, tb.sender.last(), "Hi Ana, welcome to Sham's House!")
	user, err := tb.db.GetUserByTelegramID(context.Background(), guestID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.FirstName)
}

func TestShowPacks(t *testing.T) {
	tb := newTestBot(t)
	inactive := false
	hidden := surfPack()
	hidden.ID, hidden.Name, hidden.Active = 11, "Old Pack", &inactive
	tb.hostel.packs = []models.Pack{surfPack(), hidden}

	tb.send(textUpdate(guestID, btnPacks))

	text := tb.sender.last()
	assert.Contains(t, text, "Surf Week")
	assert.Contains(t, text, "-20%")
	assert.NotContains(t, text, "Old Pack")
}

func TestPackBookingFlow(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()
	tb.hostel.packs = []models.Pack{surfPack()}

	tb.send(callbackUpdate(guestID, packPrefix+"10"))
	assert.Contains(t, tb.sender.last(), "Surf lesson")

	tb.send(callbackUpdate(guestID, packPrefix+"book:10"))
	require.Equal(t, models.StepPackArrival, tb.step(t, guestID))
	assert.Contains(t, tb.sender.last(), "Choose your arrival date")

	arrival := dayAhead(10)
	tb.send(callbackUpdate(guestID, fmt.Sprintf("%s10:d:%s", arrivalPrefix, arrival)))

	w, err := tb.bookingService.Current(ctx, guestID)
	require.NoError(t, err)
	require.True(t, w.IsPack())
	assert.Equal(t, wizard.GuestDetails, w.Step())
	assert.Equal(t, arrival.AddDays(7), w.Draft().CheckOut)
	require.Len(t, w.Rooms(), 1)
	assert.Equal(t, "101", w.Rooms()[0].RoomNumber)
	assert.Contains(t, tb.sender.last(), "Package: *Surf Week*")
	assert.NotContains(t, tb.sender.last(), "Total:")

	tb.send(callbackUpdate(guestID, wizardPrefix+"room:1"))
	assert.Contains(t, tb.sender.last(), "Total:")
	tb.send(callbackUpdate(guestID, wizardPrefix+"bed:12"))
	fillGuest(t, tb)
	tb.send(callbackUpdate(guestID, wizardPrefix+"submit"))

	require.Len(t, tb.hostel.requests, 1)
	req := tb.hostel.requests[0]
	require.NotNil(t, req.PackID)
	assert.Equal(t, int64(10), *req.PackID)
	assert.Equal(t, []int64{12}, req.BedIDs)
	assert.Equal(t, arrival, req.CheckInDate)
	assert.Contains(t, tb.sender.last(), "Booking confirmed")
}

func TestPackArrivalTyped(t *testing.T) {
	tb := newTestBot(t)
	tb.hostel.packs = []models.Pack{surfPack()}

	tb.send(callbackUpdate(guestID, packPrefix+"book:10"))
	tb.send(textUpdate(guestID, "next friday"))
	assert.Contains(t, tb.sender.last(), "YYYY-MM-DD")
	assert.Equal(t, models.StepPackArrival, tb.step(t, guestID))

	tb.send(textUpdate(guestID, dayAhead(4).String()))
	w, err := tb.bookingService.Current(context.Background(), guestID)
	require.NoError(t, err)
	assert.Equal(t, dayAhead(4), w.Draft().CheckIn)
}

func TestShowRoomsFilter(t *testing.T) {
	tb := newTestBot(t)

	tb.send(textUpdate(guestID, "/rooms"))
	assert.Contains(t, tb.sender.last(), "Room 101")
	assert.Contains(t, tb.sender.last(), "Room 201")

	tb.send(callbackUpdate(guestID, roomsPrefix+string(models.RoomDouble)))
	assert.NotContains(t, tb.sender.last(), "Room 101")
	assert.Contains(t, tb.sender.last(), "Room 201")
}

func TestShowServicesGrouped(t *testing.T) {
	tb := newTestBot(t)

	tb.send(textUpdate(guestID, btnServices))

	text := tb.sender.last()
	assert.Contains(t, text, "*Meal*")
	assert.Contains(t, text, "*Activity*")
	assert.Less(t, strings.Index(text, "Breakfast"), strings.Index(text, "Surf lesson"))
}

func TestShowContact(t *testing.T) {
	tb := newTestBot(t)

	tb.send(textUpdate(guestID, "/contact"))

	text := tb.sender.last()
	assert.Contains(t, text, "1 Beach Road")
	assert.Contains(t, text, "Surf hostel by the ocean")
	assert.Contains(t, text, "@reception")
}

func TestMyBookingsAndLookup(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, tb.db.SaveBookingRecord(ctx, &models.BookingRecord{
		TelegramUserID: guestID, Reference: "SH-0009", GuestName: "Bob Lee",
		CheckIn: dayAhead(0), CheckOut: dayAhead(2), TotalPrice: 50, Status: models.StatusConfirmed,
	}))

	tb.send(textUpdate(guestID, btnMyBookings))
	assert.Contains(t, tb.sender.last(), "SH-0009")

	tb.send(callbackUpdate(guestID, lookupPrefix+"SH-0009"))
	assert.Contains(t, tb.sender.last(), "Status: *Confirmed*")

	tb.send(callbackUpdate(guestID, lookupPrefix+"ask"))
	require.Equal(t, models.StepLookupReference, tb.step(t, guestID))

	tb.send(textUpdate(guestID, "SH-9999"))
	assert.Contains(t, tb.sender.last(), "Nothing found")
	assert.Equal(t, models.StepLookupReference, tb.step(t, guestID))

	tb.send(textUpdate(guestID, "SH-0009"))
	assert.Equal(t, models.StepMainMenu, tb.step(t, guestID))
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "Wellness", categoryLabel(models.CategoryWellness))
}
