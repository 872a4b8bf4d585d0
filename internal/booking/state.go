package booking

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/smarttransit/busticket-web/internal/models"
)

// Step is a wizard state
type Step string

const (
	StepDetails      Step = "details"
	StepPayment      Step = "payment"
	StepConfirmation Step = "confirmation"
)

// LoadError describes why the trip summary could not be fetched
type LoadError struct {
	NotFound bool   `json:"not_found"`
	Detail   string `json:"detail"`
}

// Confirmation is the combined result of a successful submission
type Confirmation struct {
	Booking models.Booking `json:"booking"`
	Payment models.Payment `json:"payment"`
}

// State is the serialisable snapshot of a wizard. It is stored in the
// session between requests.
type State struct {
	Step       Step             `json:"step"`
	ScheduleID int64            `json:"schedule_id"`
	Schedule   *models.Schedule `json:"schedule,omitempty"`
	Route      *models.Route    `json:"route,omitempty"`
	LoadError  *LoadError       `json:"load_error,omitempty"`

	SeatCount       int                     `json:"seat_count"`
	Passenger       models.PassengerDetails `json:"passenger"`
	SpecialRequests string                  `json:"special_requests"`

	PaymentMethod models.PaymentMethod `json:"payment_method"`
	MomoNumber    string               `json:"momo_number"`
	MomoName      string               `json:"momo_name"`

	// IdempotencyKey identifies the current draft on create-booking.
	// PendingBooking is a booking created by a submit whose payment failed.
	IdempotencyKey string          `json:"idempotency_key"`
	PendingBooking *models.Booking `json:"pending_booking,omitempty"`

	Confirmation *Confirmation `json:"confirmation,omitempty"`

	Error       string   `json:"error,omitempty"`
	FieldErrors []string `json:"field_errors,omitempty"`
	Submitting  bool     `json:"submitting"`
}

// Total is price x seat count, zero until the schedule is loaded
func (s *State) Total() int64 {
	if s.Schedule == nil {
		return 0
	}
	return s.Schedule.TotalFor(s.SeatCount)
}

// HasFieldError reports whether field failed the last guard
func (s *State) HasFieldError(field string) bool {
	for _, f := range s.FieldErrors {
		if f == field {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer for JSON storage in a text column
func (s State) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for JSON storage
func (s *State) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(data, s)
}
