// Package pricing computes stay lengths and booking totals.
package pricing

import (
	"math"

	"shamshouse/internal/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Quote is everything a total depends on.
type Quote struct {
	Room      *models.Room
	CheckIn   models.Date
	CheckOut  models.Date
	BedCount  int
	Services  []models.Service
	PackPrice *float64
}

// Nights counts whole nights between two calendar dates, rounding up.
// Once both dates are set the result is at least 1; unset dates yield 0.
func Nights(checkIn, checkOut models.Date) int {
	if checkIn.IsZero() || checkOut.IsZero() {
		return 0
	}
	n := int(math.Ceil(checkIn.DaysUntil(checkOut)))
	if n < 1 {
		return 1
	}
	return n
}

// ServiceCost is one service's contribution for a stay of the given length.
func ServiceCost(s models.Service, nights int) float64 {
	if s.PriceType == models.PricePerNight {
		return s.Price * float64(nights)
	}
	return s.Price
}

// Total applies the booking price rule. A pack price overrides everything
// else; without a room the total is 0.
func Total(q Quote) float64 {
	if q.PackPrice != nil {
		return *q.PackPrice
	}
	if q.Room == nil {
		return 0
	}

	nights := Nights(q.CheckIn, q.CheckOut)
	total := q.Room.PricePerNight * float64(nights) * float64(q.BedCount)
	for _, s := range q.Services {
		total += ServiceCost(s, nights)
	}
	return total
}

// DiscountPercent returns the rounded pack discount against its original price.
func DiscountPercent(original *float64, promo float64) int {
	if original == nil || *original <= 0 {
		return 0
	}
	return int(math.Round((1 - promo/(*original)) * 100))
}

func Savings(original *float64, promo float64) float64 {
	if original == nil {
		return 0
	}
	return *original - promo
}

// Capacity is the guest capacity shown for a room. Doubles always read 2,
// whatever beds the room exposes.
func Capacity(room *models.Room) int {
	if room == nil {
		return 0
	}
	if room.RoomType == models.RoomDouble {
		return 2
	}
	return len(room.Beds)
}

var printer = message.NewPrinter(language.French)

// FormatPrice renders an amount with French digit grouping, up to two
// decimals and a trailing euro sign.
func FormatPrice(v float64) string {
	return printer.Sprintf("%v €", number.Decimal(v, number.MaxFractionDigits(2)))
}
