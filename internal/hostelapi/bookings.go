package hostelapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"shamshouse/internal/models"
)

// IdempotencyHeader carries the wizard's submit token.
const IdempotencyHeader = "Idempotency-Key"

func (c *Client) CreateBooking(ctx context.Context, req models.BookingRequest, idempotencyKey string) (*models.BookingConfirmation, error) {
	if req.ServiceIDs == nil {
		req.ServiceIDs = []int64{}
	}
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{IdempotencyHeader: idempotencyKey}
	}
	data, err := c.sendJSON(ctx, http.MethodPost, "/bookings", req, false, headers)
	if err != nil {
		return nil, err
	}
	var conf models.BookingConfirmation
	if err := decode(data, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Client) BookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	data, err := c.get(ctx, "/bookings/reference/"+url.PathEscape(reference), false)
	if err != nil {
		return nil, err
	}
	var b models.Booking
	return &b, decode(data, &b)
}

func (c *Client) ListBookings(ctx context.Context) ([]models.Booking, error) {
	return c.bookingList(ctx, "/admin/bookings")
}

// TodayCheckIns lists bookings arriving today.
func (c *Client) TodayCheckIns(ctx context.Context) ([]models.Booking, error) {
	return c.bookingList(ctx, "/admin/bookings/checkins")
}

// TodayCheckOuts lists bookings leaving today.
func (c *Client) TodayCheckOuts(ctx context.Context) ([]models.Booking, error) {
	return c.bookingList(ctx, "/admin/bookings/checkouts")
}

func (c *Client) bookingList(ctx context.Context, path string) ([]models.Booking, error) {
	data, err := c.get(ctx, path, true)
	if err != nil {
		return nil, err
	}
	var out []models.Booking
	if err := decode(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	data, err := c.get(ctx, fmt.Sprintf("/admin/bookings/%d", id), true)
	if err != nil {
		return nil, err
	}
	var b models.Booking
	return &b, decode(data, &b)
}

func (c *Client) UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus) (*models.Booking, error) {
	q := url.Values{"status": {string(status)}}
	data, err := c.send(ctx, http.MethodPut, fmt.Sprintf("/admin/bookings/%d/status?%s", id, q.Encode()), nil, "", true, nil)
	if err != nil {
		return nil, err
	}
	var b models.Booking
	return &b, decode(data, &b)
}

func (c *Client) UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) (*models.Booking, error) {
	q := url.Values{"paymentStatus": {string(status)}}
	data, err := c.send(ctx, http.MethodPut, fmt.Sprintf("/admin/bookings/%d/payment?%s", id, q.Encode()), nil, "", true, nil)
	if err != nil {
		return nil, err
	}
	var b models.Booking
	return &b, decode(data, &b)
}

func (c *Client) CancelBooking(ctx context.Context, id int64) error {
	_, err := c.send(ctx, http.MethodDelete, fmt.Sprintf("/admin/bookings/%d", id), nil, "", true, nil)
	return err
}
