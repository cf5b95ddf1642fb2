// Package wizard is the booking flow: dates, room, guest details, submit.
//
// A Wizard is plain data. Operations that need the hostel API take a Backend
// argument, so a wizard can be stored between Telegram updates and resumed.
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"shamshouse/internal/hostelapi"
	"shamshouse/internal/models"
	"shamshouse/internal/pricing"

	"github.com/google/uuid"
)

// FallbackSubmitMessage is shown when a failed submission carries no server message.
const FallbackSubmitMessage = "Error creating booking"

var (
	ErrDatesRequired      = errors.New("please choose check-in and check-out dates")
	ErrCheckInPast        = errors.New("check-in cannot be in the past")
	ErrCheckOutBeforeIn   = errors.New("check-out must not be before check-in")
	ErrNoRoomsAvailable   = errors.New("no rooms available for these dates")
	ErrPackUnavailable    = errors.New("no room of this package's type is available for these dates")
	ErrAvailability       = errors.New("could not check availability")
	ErrUnknownRoom        = errors.New("room is not in the available list")
	ErrNoRoomSelected     = errors.New("please select a room")
	ErrUnknownBed         = errors.New("bed does not belong to the selected room")
	ErrNoBedsSelected     = errors.New("please select at least one bed")
	ErrUnknownService     = errors.New("unknown service")
	ErrServicesIncluded   = errors.New("services are included in the package")
	ErrNameRequired       = errors.New("guest name is required")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrStaleSubmission    = errors.New("submission token does not match")
	ErrSubmitFailed       = errors.New("booking submission failed")
	ErrInvalidPackContext = errors.New("package booking is missing its dates or room type")
)

var (
	phonePattern = regexp.MustCompile(`^[+0-9][0-9\s\-().]{7,19}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// now is replaced in tests.
var now = time.Now

// Backend is the part of the hostel API the wizard talks to.
type Backend interface {
	AvailableRooms(ctx context.Context, checkIn, checkOut models.Date) ([]models.Room, error)
	ListServices(ctx context.Context) ([]models.Service, error)
	CreateBooking(ctx context.Context, req models.BookingRequest, idempotencyKey string) (*models.BookingConfirmation, error)
}

// PackContext is handed over by the package page: fixed dates, room type and price.
type PackContext struct {
	PackID     int64            `json:"packId"`
	PackName   string           `json:"packName"`
	RoomType   models.RoomType  `json:"roomType"`
	CheckIn    models.Date      `json:"checkIn"`
	CheckOut   models.Date      `json:"checkOut"`
	TotalPrice float64          `json:"totalPrice"`
	Services   []models.Service `json:"services,omitempty"`
}

// Draft is the booking being assembled.
type Draft struct {
	GuestName  string      `json:"guestName"`
	GuestEmail string      `json:"guestEmail"`
	GuestPhone string      `json:"guestPhone"`
	CheckIn    models.Date `json:"checkIn"`
	CheckOut   models.Date `json:"checkOut"`
	RoomID     int64       `json:"roomId,omitempty"`
	BedIDs     []int64     `json:"bedIds,omitempty"`
	ServiceIDs []int64     `json:"serviceIds,omitempty"`
	Notes      string      `json:"notes,omitempty"`
}

// Wizard holds one guest's booking flow.
type Wizard struct {
	step         Step
	pack         *PackContext
	draft        Draft
	rooms        []models.Room
	room         *models.Room
	services     []models.Service
	submitToken  string
	confirmation *models.BookingConfirmation
	lastError    string
}

// New starts a direct booking at DateSelection.
func New() *Wizard {
	return &Wizard{step: DateSelection}
}

// NewFromPack starts a package booking at GuestDetails. The rooms offered are
// the available ones of the package's room type.
func NewFromPack(ctx context.Context, b Backend, pc PackContext) (*Wizard, error) {
	if pc.CheckIn.IsZero() || pc.CheckOut.IsZero() || !pc.RoomType.Valid() {
		return nil, ErrInvalidPackContext
	}
	if pc.CheckIn.Before(today()) {
		return nil, ErrCheckInPast
	}

	rooms, err := b.AvailableRooms(ctx, pc.CheckIn, pc.CheckOut)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAvailability, err)
	}
	var matching []models.Room
	for _, r := range rooms {
		if r.RoomType == pc.RoomType {
			matching = append(matching, r)
		}
	}
	if len(matching) == 0 {
		return nil, ErrPackUnavailable
	}

	return &Wizard{
		step:     GuestDetails,
		pack:     &pc,
		draft:    Draft{CheckIn: pc.CheckIn, CheckOut: pc.CheckOut},
		rooms:    matching,
		services: pc.Services,
	}, nil
}

func today() models.Date {
	return models.DateOf(now())
}

func (w *Wizard) mode() mode {
	if w.pack != nil {
		return pack
	}
	return direct
}

func (w *Wizard) move(on event) (Step, error) {
	return transition(w.mode(), w.step, on)
}

// SetDates records the stay. Check-out may equal check-in; such a stay counts
// as one night.
func (w *Wizard) SetDates(checkIn, checkOut models.Date) error {
	next, err := w.move(evSetDates)
	if err != nil {
		return err
	}
	if checkIn.IsZero() || checkOut.IsZero() {
		return ErrDatesRequired
	}
	if checkIn.Before(today()) {
		return ErrCheckInPast
	}
	if checkOut.Before(checkIn) {
		return ErrCheckOutBeforeIn
	}
	w.draft.CheckIn, w.draft.CheckOut = checkIn, checkOut
	w.step = next
	return nil
}

// SearchRooms asks the backend for rooms free on the chosen dates. On an empty
// result or an error the wizard stays at DateSelection.
func (w *Wizard) SearchRooms(ctx context.Context, b Backend) error {
	next, err := w.move(evRoomsFound)
	if err != nil {
		return err
	}
	if w.draft.CheckIn.IsZero() || w.draft.CheckOut.IsZero() {
		return ErrDatesRequired
	}

	rooms, err := b.AvailableRooms(ctx, w.draft.CheckIn, w.draft.CheckOut)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAvailability, err)
	}
	if len(rooms) == 0 {
		w.rooms = nil
		return ErrNoRoomsAvailable
	}

	// Services are optional; a catalog failure only hides them.
	if services, err := b.ListServices(ctx); err == nil {
		w.services = services
	}
	w.rooms = rooms
	w.step = next
	return nil
}

// SelectRoom fixes the room for the rest of the flow and clears beds.
func (w *Wizard) SelectRoom(id int64) error {
	next, err := w.move(evSelectRoom)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(w.rooms, func(r models.Room) bool { return r.ID == id })
	if idx < 0 {
		return ErrUnknownRoom
	}
	room := w.rooms[idx]
	w.room = &room
	w.draft.RoomID = id
	w.draft.BedIDs = nil
	w.step = next
	return nil
}

// ChangeDates goes back to DateSelection and forgets rooms and beds.
func (w *Wizard) ChangeDates() error {
	next, err := w.move(evChangeDates)
	if err != nil {
		return err
	}
	w.rooms = nil
	w.clearRoom()
	w.step = next
	return nil
}

// BackToRooms returns to the room list and forgets the room and beds.
func (w *Wizard) BackToRooms() error {
	next, err := w.move(evBackToRooms)
	if err != nil {
		return err
	}
	w.clearRoom()
	w.step = next
	return nil
}

func (w *Wizard) clearRoom() {
	w.room = nil
	w.draft.RoomID = 0
	w.draft.BedIDs = nil
}

// ToggleBed adds the bed if absent and removes it if present.
func (w *Wizard) ToggleBed(id int64) error {
	if _, err := w.move(evEdit); err != nil {
		return err
	}
	if w.room == nil {
		return ErrNoRoomSelected
	}
	if _, ok := w.room.Bed(id); !ok {
		return ErrUnknownBed
	}
	w.draft.BedIDs = toggle(w.draft.BedIDs, id)
	return nil
}

// ToggleService adds or removes an optional service. Package bookings carry
// their services implicitly and reject the call without change.
func (w *Wizard) ToggleService(id int64) error {
	if _, err := w.move(evEdit); err != nil {
		return err
	}
	if w.pack != nil {
		return ErrServicesIncluded
	}
	if !slices.ContainsFunc(w.services, func(s models.Service) bool { return s.ID == id }) {
		return ErrUnknownService
	}
	w.draft.ServiceIDs = toggle(w.draft.ServiceIDs, id)
	return nil
}

func toggle(set []int64, id int64) []int64 {
	if i := slices.Index(set, id); i >= 0 {
		return slices.Delete(slices.Clone(set), i, i+1)
	}
	return append(slices.Clone(set), id)
}

func (w *Wizard) SetGuestName(name string) error {
	if _, err := w.move(evEdit); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	w.draft.GuestName = name
	return nil
}

func (w *Wizard) SetGuestEmail(email string) error {
	if _, err := w.move(evEdit); err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	w.draft.GuestEmail = email
	return nil
}

func (w *Wizard) SetGuestPhone(phone string) error {
	if _, err := w.move(evEdit); err != nil {
		return err
	}
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	w.draft.GuestPhone = phone
	return nil
}

func (w *Wizard) SetNotes(notes string) error {
	if _, err := w.move(evEdit); err != nil {
		return err
	}
	w.draft.Notes = strings.TrimSpace(notes)
	return nil
}

// BeginSubmit validates the draft, moves to Submitting and returns the token
// that must accompany the outcome. No request may be sent when it fails.
func (w *Wizard) BeginSubmit() (string, models.BookingRequest, error) {
	next, err := w.move(evBeginSubmit)
	if err != nil {
		return "", models.BookingRequest{}, err
	}
	if err := w.validate(); err != nil {
		return "", models.BookingRequest{}, err
	}
	w.submitToken = uuid.NewString()
	w.lastError = ""
	w.step = next
	return w.submitToken, w.Request(), nil
}

func (w *Wizard) validate() error {
	switch {
	case w.room == nil:
		return ErrNoRoomSelected
	case len(w.draft.BedIDs) == 0:
		return ErrNoBedsSelected
	case w.draft.GuestName == "":
		return ErrNameRequired
	case !emailPattern.MatchString(w.draft.GuestEmail):
		return ErrInvalidEmail
	case !phonePattern.MatchString(w.draft.GuestPhone):
		return ErrInvalidPhone
	}
	return nil
}

// CompleteSubmit records the server's confirmation.
func (w *Wizard) CompleteSubmit(token string, conf *models.BookingConfirmation) error {
	next, err := w.move(evSubmitOK)
	if err != nil {
		return err
	}
	if token == "" || token != w.submitToken {
		return ErrStaleSubmission
	}
	w.confirmation = conf
	w.submitToken = ""
	w.step = next
	return nil
}

// FailSubmit returns to GuestDetails keeping the draft, and remembers the
// message to show.
func (w *Wizard) FailSubmit(token string, cause error) error {
	next, err := w.move(evSubmitFailed)
	if err != nil {
		return err
	}
	if token == "" || token != w.submitToken {
		return ErrStaleSubmission
	}
	w.lastError = hostelapi.MessageOr(cause, FallbackSubmitMessage)
	w.submitToken = ""
	w.step = next
	return nil
}

// Submit runs BeginSubmit, the API call and its outcome in one go.
func (w *Wizard) Submit(ctx context.Context, b Backend) (*models.BookingConfirmation, error) {
	token, req, err := w.BeginSubmit()
	if err != nil {
		return nil, err
	}
	conf, err := b.CreateBooking(ctx, req, token)
	if err != nil {
		if ferr := w.FailSubmit(token, err); ferr != nil {
			return nil, ferr
		}
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	if err := w.CompleteSubmit(token, conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// Request builds the payload for the current draft.
func (w *Wizard) Request() models.BookingRequest {
	req := models.BookingRequest{
		GuestName:    w.draft.GuestName,
		GuestEmail:   w.draft.GuestEmail,
		GuestPhone:   w.draft.GuestPhone,
		CheckInDate:  w.draft.CheckIn,
		CheckOutDate: w.draft.CheckOut,
		RoomID:       w.draft.RoomID,
		BedIDs:       slices.Clone(w.draft.BedIDs),
		ServiceIDs:   []int64{},
		Notes:        w.draft.Notes,
	}
	if w.pack != nil {
		id := w.pack.PackID
		req.PackID = &id
	} else if len(w.draft.ServiceIDs) > 0 {
		req.ServiceIDs = slices.Clone(w.draft.ServiceIDs)
	}
	return req
}

// Nights is the stay length, 0 until both dates are set.
func (w *Wizard) Nights() int {
	return pricing.Nights(w.draft.CheckIn, w.draft.CheckOut)
}

// Total is the running price of the draft.
func (w *Wizard) Total() float64 {
	q := pricing.Quote{
		Room:     w.room,
		CheckIn:  w.draft.CheckIn,
		CheckOut: w.draft.CheckOut,
		BedCount: len(w.draft.BedIDs),
		Services: w.SelectedServices(),
	}
	if w.pack != nil {
		p := w.pack.TotalPrice
		q.PackPrice = &p
	}
	return pricing.Total(q)
}

// SelectedServices are the chosen services, or the included ones for a package.
func (w *Wizard) SelectedServices() []models.Service {
	if w.pack != nil {
		return w.pack.Services
	}
	var out []models.Service
	for _, s := range w.services {
		if slices.Contains(w.draft.ServiceIDs, s.ID) {
			out = append(out, s)
		}
	}
	return out
}

func (w *Wizard) Step() Step {
	return w.step
}

func (w *Wizard) IsPack() bool {
	return w.pack != nil
}

func (w *Wizard) Pack() *PackContext {
	return w.pack
}

func (w *Wizard) Draft() Draft {
	return w.draft
}

func (w *Wizard) Rooms() []models.Room {
	return w.rooms
}

// Room is the selected room, nil until one is picked.
func (w *Wizard) Room() *models.Room {
	return w.room
}

func (w *Wizard) Services() []models.Service {
	return w.services
}

// LastError is the message of the last failed search or submission.
func (w *Wizard) LastError() string {
	return w.lastError
}

func (w *Wizard) Confirmation() *models.BookingConfirmation { return w.confirmation }

// SubmitToken is the token of the submission in flight, "" otherwise.
func (w *Wizard) SubmitToken() string { return w.submitToken }

// HasBed reports whether the bed is selected.
func (w *Wizard) HasBed(id int64) bool { return slices.Contains(w.draft.BedIDs, id) }

// HasService reports whether the service is selected.
func (w *Wizard) HasService(id int64) bool { return slices.Contains(w.draft.ServiceIDs, id) }

type snapshot struct {
	Step         Step                        `json:"step"`
	Pack         *PackContext                `json:"pack,omitempty"`
	Draft        Draft                       `json:"draft"`
	Rooms        []models.Room               `json:"rooms,omitempty"`
	Room         *models.Room                `json:"room,omitempty"`
	Services     []models.Service            `json:"services,omitempty"`
	SubmitToken  string                      `json:"submitToken,omitempty"`
	Confirmation *models.BookingConfirmation `json:"confirmation,omitempty"`
	LastError    string                      `json:"lastError,omitempty"`
}

func (w *Wizard) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshot{
		Step:         w.step,
		Pack:         w.pack,
		Draft:        w.draft,
		Rooms:        w.rooms,
		Room:         w.room,
		Services:     w.services,
		SubmitToken:  w.submitToken,
		Confirmation: w.confirmation,
		LastError:    w.lastError,
	})
}

func (w *Wizard) UnmarshalJSON(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s.Step < DateSelection || s.Step > Confirmation {
		return fmt.Errorf("wizard: unknown step %d", s.Step)
	}
	if s.Pack != nil && (s.Step == DateSelection || s.Step == RoomSelection) {
		return fmt.Errorf("wizard: package booking cannot be at %s", s.Step)
	}
	*w = Wizard{
		step:         s.Step,
		pack:         s.Pack,
		draft:        s.Draft,
		rooms:        s.Rooms,
		room:         s.Room,
		services:     s.Services,
		submitToken:  s.SubmitToken,
		confirmation: s.Confirmation,
		lastError:    s.LastError,
	}
	return nil
}
