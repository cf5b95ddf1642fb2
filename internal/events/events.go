// Package events is the in-process bus booking changes are announced on.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
	EventBookingPaymentUpdate = "booking.payment_updated"
	EventBookingCancelled     = "booking.cancelled"
)

// BookingEventPayload is the booking snapshot carried by every booking event.
type BookingEventPayload struct {
	Reference   string    `json:"reference"`
	UserID      int64     `json:"user_id,omitempty"`
	GuestName   string    `json:"guest_name"`
	RoomNumber  string    `json:"room_number,omitempty"`
	PackName    string    `json:"pack_name,omitempty"`
	CheckIn     string    `json:"check_in"`
	CheckOut    string    `json:"check_out"`
	TotalPrice  float64   `json:"total_price"`
	Status      string    `json:"status"`
	Payment     string    `json:"payment,omitempty"`
	ChangedBy   string    `json:"changed_by,omitempty"`
	ChangedByID int64     `json:"changed_by_id,omitempty"`
	At          time.Time `json:"at"`
}

type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

type EventHandler func(event *Event) error

// ErrorHandler is told about handlers that returned an error or panicked.
type ErrorHandler func(event *Event, err error)

// EventBus fans events out to subscribers synchronously, in subscription
// order. One failing handler does not stop the rest.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]EventHandler
	onError     ErrorHandler
	seq         atomic.Int64
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

func (b *EventBus) OnError(h ErrorHandler) {
	b.mu.Lock()
	b.onError = h
	b.mu.Unlock()
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeBooking registers fn for the given booking event types and hands
// it the decoded payload.
func (b *EventBus) SubscribeBooking(fn func(eventType string, p BookingEventPayload) error, eventTypes ...string) {
	handler := func(ev *Event) error {
		p, err := DecodeBooking(ev)
		if err != nil {
			return fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		return fn(ev.Type, p)
	}
	for _, t := range eventTypes {
		b.Subscribe(t, handler)
	}
}

// Publish assigns the event an ID and runs its subscribers.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.RUnlock()

	event.ID = b.seq.Add(1)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := runHandler(handler, event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

func runHandler(h EventHandler, ev *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic on %s: %v", ev.Type, r)
		}
	}()
	return h(ev)
}

// PublishJSON marshals payload and publishes it. A nil bus is a no-op.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}
	b.Publish(&Event{Type: eventType, Payload: raw})
	return nil
}

func DecodeBooking(event *Event) (BookingEventPayload, error) {
	var p BookingEventPayload
	err := json.Unmarshal(event.Payload, &p)
	return p, err
}
