package wizard

import (
	"errors"
	"fmt"
)

// Step is a state of the booking wizard.
type Step int

const (
	DateSelection Step = iota + 1
	RoomSelection
	GuestDetails
	Submitting
	Confirmation
)

func (s Step) String() string {
	switch s {
	case DateSelection:
		return "date_selection"
	case RoomSelection:
		return "room_selection"
	case GuestDetails:
		return "guest_details"
	case Submitting:
		return "submitting"
	case Confirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

type event int

const (
	evSetDates event = iota + 1
	evRoomsFound
	evSelectRoom
	evChangeDates
	evBackToRooms
	evEdit
	evBeginSubmit
	evSubmitOK
	evSubmitFailed
)

var eventNames = map[event]string{
	evSetDates:     "set_dates",
	evRoomsFound:   "rooms_found",
	evSelectRoom:   "select_room",
	evChangeDates:  "change_dates",
	evBackToRooms:  "back_to_rooms",
	evEdit:         "edit",
	evBeginSubmit:  "begin_submit",
	evSubmitOK:     "submit_ok",
	evSubmitFailed: "submit_failed",
}

func (e event) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// mode restricts an edge to direct bookings, pack bookings or both.
type mode uint8

const (
	direct mode = 1 << iota
	pack
	anyMode = direct | pack
)

type edge struct {
	from Step
	on   event
}

type target struct {
	to    Step
	modes mode
}

// transitions is the complete set of legal moves. Pack bookings have no edge
// into DateSelection or RoomSelection.
var transitions = map[edge]target{
	{DateSelection, evSetDates}:    {DateSelection, direct},
	{DateSelection, evRoomsFound}:  {RoomSelection, direct},
	{RoomSelection, evSelectRoom}:  {GuestDetails, direct},
	{GuestDetails, evSelectRoom}:   {GuestDetails, pack},
	{RoomSelection, evChangeDates}: {DateSelection, direct},
	{GuestDetails, evChangeDates}:  {DateSelection, direct},
	{GuestDetails, evBackToRooms}:  {RoomSelection, direct},
	{GuestDetails, evEdit}:         {GuestDetails, anyMode},
	{GuestDetails, evBeginSubmit}:  {Submitting, anyMode},
	{Submitting, evSubmitOK}:       {Confirmation, anyMode},
	{Submitting, evSubmitFailed}:   {GuestDetails, anyMode},
}

var (
	ErrIllegalTransition  = errors.New("wizard: illegal transition")
	ErrSubmissionInFlight = errors.New("booking is already being submitted")
)

// transition returns the step reached from `from` on `on`.
func transition(m mode, from Step, on event) (Step, error) {
	t, ok := transitions[edge{from, on}]
	if ok && t.modes&m != 0 {
		return t.to, nil
	}
	if from == Submitting {
		return from, ErrSubmissionInFlight
	}
	return from, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, on, from)
}
