package models

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	StatusPending    BookingStatus = "PENDING"
	StatusConfirmed  BookingStatus = "CONFIRMED"
	StatusCheckedIn  BookingStatus = "CHECKED_IN"
	StatusCheckedOut BookingStatus = "CHECKED_OUT"
	StatusCancelled  BookingStatus = "CANCELLED"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	st := BookingStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled:
		return st, true
	}
	return "", false
}

func (s BookingStatus) Label() string {
	switch s {
	case StatusConfirmed:
		return "Confirmed"
	case StatusCheckedIn:
		return "In Progress"
	case StatusCheckedOut:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	case StatusPending:
		return "Pending"
	default:
		return string(s)
	}
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// BookingRequest is the draft submitted on booking creation.
type BookingRequest struct {
	GuestName    string  `json:"guestName"`
	GuestEmail   string  `json:"guestEmail"`
	GuestPhone   string  `json:"guestPhone"`
	CheckInDate  Date    `json:"checkInDate"`
	CheckOutDate Date    `json:"checkOutDate"`
	RoomID       int64   `json:"roomId"`
	BedIDs       []int64 `json:"bedIds"`
	ServiceIDs   []int64 `json:"serviceIds"`
	PackID       *int64  `json:"packId"`
	Notes        string  `json:"notes"`
}

// BookingConfirmation is what the API returns for a created booking.
type BookingConfirmation struct {
	ID               int64         `json:"id"`
	BookingReference string        `json:"bookingReference"`
	AccessCode       string        `json:"accessCode"`
	GuestName        string        `json:"guestName"`
	GuestEmail       string        `json:"guestEmail"`
	GuestPhone       string        `json:"guestPhone"`
	CheckInDate      Date          `json:"checkInDate"`
	CheckOutDate     Date          `json:"checkOutDate"`
	TotalPrice       float64       `json:"totalPrice"`
	Status           BookingStatus `json:"status"`
}

// Booking is the back-office view of a booking.
type Booking struct {
	ID               int64         `json:"id"`
	BookingReference string        `json:"bookingReference"`
	AccessCode       string        `json:"accessCode"`
	GuestName        string        `json:"guestName"`
	GuestEmail       string        `json:"guestEmail"`
	GuestPhone       string        `json:"guestPhone"`
	CheckInDate      Date          `json:"checkInDate"`
	CheckOutDate     Date          `json:"checkOutDate"`
	Beds             []Bed         `json:"beds"`
	Pack             *Pack         `json:"pack"`
	Services         []Service     `json:"services,omitempty"`
	TotalPrice       float64       `json:"totalPrice"`
	Status           BookingStatus `json:"status"`
	PaymentStatus    PaymentStatus `json:"paymentStatus,omitempty"`
	Notes            string        `json:"notes,omitempty"`
}

// RoomNumbers lists distinct room numbers of the booked beds.
func (b *Booking) RoomNumbers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, bed := range b.Beds {
		if bed.RoomNumber == "" || seen[bed.RoomNumber] {
			continue
		}
		seen[bed.RoomNumber] = true
		out = append(out, bed.RoomNumber)
	}
	return out
}

// BookingRecord is the local journal of bookings made through the bot.
type BookingRecord struct {
	ID             int64         `json:"id"`
	TelegramUserID int64         `json:"telegram_user_id"`
	Reference      string        `json:"reference"`
	AccessCode     string        `json:"access_code"`
	GuestName      string        `json:"guest_name"`
	GuestEmail     string        `json:"guest_email"`
	GuestPhone     string        `json:"guest_phone"`
	RoomNumber     string        `json:"room_number"`
	BedCount       int           `json:"bed_count"`
	PackName       string        `json:"pack_name"`
	CheckIn        Date          `json:"check_in"`
	CheckOut       Date          `json:"check_out"`
	TotalPrice     float64       `json:"total_price"`
	Status         BookingStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// BookingFilter narrows the back-office bookings list. An empty Status shows
// every booking that is neither cancelled nor pending.
type BookingFilter struct {
	Status BookingStatus
	Query  string
}

// DashboardStats is the back-office summary.
type DashboardStats struct {
	TotalRooms     int       `json:"totalRooms"`
	TotalBookings  int       `json:"totalBookings"`
	TodayCheckIns  int       `json:"todayCheckIns"`
	TodayCheckOuts int       `json:"todayCheckOuts"`
	Revenue        float64   `json:"revenue"`
	CheckIns       []Booking `json:"checkIns"`
	CheckOuts      []Booking `json:"checkOuts"`
}
