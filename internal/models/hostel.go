package models

type RoomType string

const (
	RoomSingle    RoomType = "SINGLE"
	RoomDouble    RoomType = "DOUBLE"
	RoomDormitory RoomType = "DORMITORY"
)

func (t RoomType) Valid() bool {
	switch t {
	case RoomSingle, RoomDouble, RoomDormitory:
		return true
	}
	return false
}

func (t RoomType) Label() string {
	switch t {
	case RoomSingle:
		return "Single"
	case RoomDouble:
		return "Double"
	case RoomDormitory:
		return "Dormitory"
	default:
		return string(t)
	}
}

type PriceType string

const (
	PriceFixed    PriceType = "FIXED"
	PricePerNight PriceType = "PER_NIGHT"
)

type ServiceCategory string

const (
	CategoryMeal      ServiceCategory = "MEAL"
	CategoryActivity  ServiceCategory = "ACTIVITY"
	CategoryWellness  ServiceCategory = "WELLNESS"
	CategoryFacility  ServiceCategory = "FACILITY"
	CategoryTransport ServiceCategory = "TRANSPORT"
	CategoryOther     ServiceCategory = "OTHER"
)

// ServiceCategories lists categories in display order.
var ServiceCategories = []ServiceCategory{
	CategoryMeal, CategoryActivity, CategoryWellness, CategoryFacility, CategoryTransport, CategoryOther,
}

func (c ServiceCategory) Valid() bool {
	for _, known := range ServiceCategories {
		if c == known {
			return true
		}
	}
	return false
}

type Bed struct {
	ID         int64  `json:"id"`
	BedNumber  string `json:"bedNumber"`
	RoomID     int64  `json:"roomId,omitempty"`
	RoomNumber string `json:"roomNumber,omitempty"`
}

type Room struct {
	ID            int64    `json:"id"`
	RoomNumber    string   `json:"roomNumber"`
	RoomType      RoomType `json:"roomType"`
	PricePerNight float64  `json:"pricePerNight"`
	NumberOfBeds  int      `json:"numberOfBeds,omitempty"`
	Beds          []Bed    `json:"beds"`
	Photos        []string `json:"photos"`
	Description   string   `json:"description"`
}

func (r *Room) Bed(id int64) (Bed, bool) {
	for _, b := range r.Beds {
		if b.ID == id {
			return b, true
		}
	}
	return Bed{}, false
}

type Service struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       float64         `json:"price"`
	PriceType   PriceType       `json:"priceType"`
	Category    ServiceCategory `json:"category"`
}

type Pack struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	DurationDays     int       `json:"durationDays"`
	RoomType         RoomType  `json:"roomType"`
	OriginalPrice    *float64  `json:"originalPrice"`
	PromoPrice       float64   `json:"promoPrice"`
	IncludedServices []Service `json:"includedServices"`
	Photos           []string  `json:"photos"`
	Active           *bool     `json:"active,omitempty"`
}

// IsActive treats a missing flag as active.
func (p *Pack) IsActive() bool {
	return p.Active == nil || *p.Active
}

// PackInput is the payload for creating or updating a pack.
type PackInput struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	DurationDays       int      `json:"durationDays"`
	OriginalPrice      *float64 `json:"originalPrice"`
	PromoPrice         float64  `json:"promoPrice"`
	RoomType           RoomType `json:"roomType"`
	Photos             []string `json:"photos"`
	IncludedServiceIDs []int64  `json:"includedServiceIds"`
}

// RoomInput is the payload for creating or updating a room.
type RoomInput struct {
	RoomNumber    string   `json:"roomNumber"`
	RoomType      RoomType `json:"roomType"`
	Description   string   `json:"description"`
	PricePerNight float64  `json:"pricePerNight"`
	NumberOfBeds  int      `json:"numberOfBeds"`
	Photos        []string `json:"photos"`
}

type Settings struct {
	HostelName          string `json:"hostelName"`
	Address             string `json:"address"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	DoorCode            string `json:"doorCode,omitempty"`
	WifiPassword        string `json:"wifiPassword,omitempty"`
	CheckIn24h          bool   `json:"checkIn24h"`
	CheckInInstructions string `json:"checkInInstructions,omitempty"`
	CheckOutTime        string `json:"checkOutTime,omitempty"`
}

// AdminUser is the back-office account returned by /auth/me.
type AdminUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

type LoginResult struct {
	Token string     `json:"token"`
	User  *AdminUser `json:"user,omitempty"`
}
