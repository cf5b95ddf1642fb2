package bot

import (
	"errors"
	"strings"
	"unicode"

	"shamshouse/internal/auth"
	"shamshouse/internal/hostelapi"
	"shamshouse/internal/service"
	"shamshouse/internal/wizard"
)

const genericErrorMessage = "❌ Something went wrong. Please try again later or contact the reception."

// plainErrors read well as they are once capitalized.
var plainErrors = []error{
	wizard.ErrDatesRequired,
	wizard.ErrCheckInPast,
	wizard.ErrCheckOutBeforeIn,
	wizard.ErrNoRoomsAvailable,
	wizard.ErrPackUnavailable,
	wizard.ErrUnknownRoom,
	wizard.ErrNoRoomSelected,
	wizard.ErrUnknownBed,
	wizard.ErrNoBedsSelected,
	wizard.ErrUnknownService,
	wizard.ErrServicesIncluded,
	wizard.ErrNameRequired,
	wizard.ErrInvalidEmail,
	wizard.ErrInvalidPhone,
	service.ErrReferenceRequired,
	service.ErrPackInactive,
	service.ErrInvalidStatusTransition,
	service.ErrDoorCodeRequired,
	service.ErrPromoNotBelowOriginal,
	service.ErrPackNeedsService,
	service.ErrPackDuration,
	service.ErrPackName,
	service.ErrServiceName,
	service.ErrServicePrice,
	service.ErrUnknownEnum,
	service.ErrNoPhotosUploaded,
	service.ErrResetTokenRequired,
	service.ErrRoomNumber,
	service.ErrRoomPrice,
	service.ErrRoomBeds,
	service.ErrInvalidID,
	service.ErrUnknownSetting,
	auth.ErrInvalidEmail,
	auth.ErrPasswordTooShort,
}

// userMessage turns an error from the services into text for the chat.
func userMessage(err error) string {
	if err == nil {
		return ""
	}

	for _, target := range plainErrors {
		if errors.Is(err, target) {
			return "⚠️ " + capitalize(target.Error()) + "."
		}
	}

	switch {
	case errors.Is(err, wizard.ErrSubmissionInFlight):
		return "⏳ Your booking is being sent. Please wait for the confirmation."
	case errors.Is(err, wizard.ErrIllegalTransition):
		return "⚠️ This button is no longer valid for your booking."
	case errors.Is(err, service.ErrNoWizard):
		return "⌛ Your booking session has expired. Tap " + btnBook + " to start again."
	case errors.Is(err, wizard.ErrAvailability):
		return "⚠️ Could not check availability right now. Please try again in a minute."
	case errors.Is(err, hostelapi.ErrNotFound):
		return "🔍 Nothing found."
	case errors.Is(err, hostelapi.ErrUnauthorized), errors.Is(err, hostelapi.ErrNoCredentials):
		return "🔒 The back office refused the request. Check the service account."
	case errors.Is(err, wizard.ErrSubmitFailed):
		return "❌ " + hostelapi.MessageOr(err, wizard.FallbackSubmitMessage)
	}

	var locked *auth.LockedError
	if errors.As(err, &locked) {
		return "🔒 " + capitalize(locked.Error()) + "."
	}

	var apiErr *hostelapi.APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return "⚠️ " + apiErr.Message
	}
	return genericErrorMessage
}

func capitalize(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}
