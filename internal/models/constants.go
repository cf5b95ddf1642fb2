package models

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

// Steps of the non-wizard conversations kept in UserState.CurrentStep.
const (
	StepMainMenu        = "main_menu"
	StepWizard          = "wizard"
	StepGuestName       = "guest_name"
	StepGuestEmail      = "guest_email"
	StepGuestPhone      = "guest_phone"
	StepGuestNotes      = "guest_notes"
	StepPackArrival     = "pack_arrival"
	StepLookupReference = "lookup_reference"
	StepCollectPhotos   = "collect_photos"
	StepManagerSearch   = "manager_search"
	StepManagerDoorCode = "manager_door_code"
)

const (
	// DefaultRedisTTL is how long a conversation survives in redis, in seconds.
	DefaultRedisTTL = 24 * 60 * 60

	// ReminderHour is the default local hour for guest reminders.
	ReminderHour = 10

	// DigestHour is the default local hour for the managers' digest.
	DigestHour = 8

	DefaultPaginationSize = 8

	// RateLimitMessages per RateLimitWindow seconds.
	RateLimitMessages = 20
	RateLimitWindow   = 60

	// CatalogCacheTTL for rooms, services, packs and public settings, in seconds.
	CatalogCacheTTL = 5 * 60

	// LoginMaxAttempts failed logins lock the account for LoginLockSeconds.
	LoginMaxAttempts = 5
	LoginLockSeconds = 60

	// DashboardPreviewSize limits today's check-in/out lists on the dashboard.
	DashboardPreviewSize = 5
)
