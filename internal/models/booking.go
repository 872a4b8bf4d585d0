package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// PaymentStatus represents the payment status of a booking
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Valid reports whether the status is one the UI knows about
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// Valid reports whether the payment status is known
func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPending || s == PaymentStatusPaid
}

// PassengerDetails identifies who travels on a booking
type PassengerDetails struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// MissingFields lists the empty required passenger fields
func (p PassengerDetails) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(p.Email) == "" {
		missing = append(missing, "email")
	}
	return missing
}

// BookingSchedule is the schedule and route snapshot embedded in a booking
type BookingSchedule struct {
	ID            int64     `json:"id"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	BusName       string    `json:"bus_name,omitempty"`
	Price         int64     `json:"price,omitempty"`
	Route         Route     `json:"route"`
}

// Booking represents a passenger reservation against a schedule
type Booking struct {
	ID               int64            `json:"id"`
	UserID           int64            `json:"user_id"`
	Schedule         BookingSchedule  `json:"schedule"`
	BookingReference string           `json:"booking_reference"`
	SeatCount        int              `json:"seat_count"`
	PassengerDetails PassengerDetails `json:"passenger_details"`
	SpecialRequests  string           `json:"special_requests,omitempty"`
	TotalAmount      int64            `json:"total_amount"`
	Status           BookingStatus    `json:"status"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	CreatedAt        time.Time        `json:"created_at"`
}

// CreateBookingRequest is the payload of the create-booking call
type CreateBookingRequest struct {
	ScheduleID       int64            `json:"schedule_id"`
	SeatCount        int              `json:"seat_count"`
	PassengerDetails PassengerDetails `json:"passenger_details"`
	SpecialRequests  string           `json:"special_requests"`
	TotalAmount      int64            `json:"total_amount"`
	IdempotencyKey   string           `json:"-"` // travels as a header
}

// UpdateBookingRequest is the payload of the update-booking call
type UpdateBookingRequest struct {
	PassengerDetails *PassengerDetails `json:"passenger_details,omitempty"`
	SpecialRequests  *string           `json:"special_requests,omitempty"`
	Status           *BookingStatus    `json:"status,omitempty"`
}

// Validate validates the create booking request
func (r *CreateBookingRequest) Validate() error {
	if r.ScheduleID <= 0 {
		return errors.New("schedule_id is required")
	}
	if r.SeatCount < 1 {
		return errors.New("seat_count must be at least 1")
	}
	if missing := r.PassengerDetails.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("passenger details missing: %s", strings.Join(missing, ", "))
	}
	if r.TotalAmount < 0 {
		return errors.New("total_amount cannot be negative")
	}
	return nil
}

// Validate checks a booking received from the backend
func (b *Booking) Validate() error {
	if b.ID <= 0 {
		return errors.New("booking id must be positive")
	}
	if b.BookingReference == "" {
		return fmt.Errorf("booking %d has no reference", b.ID)
	}
	if b.SeatCount < 1 {
		return fmt.Errorf("booking %d has seat_count %d", b.ID, b.SeatCount)
	}
	if !b.Status.Valid() {
		return fmt.Errorf("booking %d has unknown status %q", b.ID, b.Status)
	}
	if !b.PaymentStatus.Valid() {
		return fmt.Errorf("booking %d has unknown payment status %q", b.ID, b.PaymentStatus)
	}
	return nil
}

// CanBeCancelled checks if the booking can still be cancelled
func (b *Booking) CanBeCancelled() bool {
	return b.Status != BookingStatusCancelled && b.Status != BookingStatusCompleted
}

// Cancel cancels the booking
func (b *Booking) Cancel() error {
	if !b.CanBeCancelled() {
		return errors.New("booking cannot be cancelled")
	}
	b.Status = BookingStatusCancelled
	return nil
}

// ConfirmPayment marks the booking as paid and confirmed
func (b *Booking) ConfirmPayment() error {
	if b.PaymentStatus == PaymentStatusPaid {
		return errors.New("payment already confirmed")
	}
	if b.Status == BookingStatusCancelled {
		return errors.New("booking is cancelled")
	}
	b.PaymentStatus = PaymentStatusPaid
	b.Status = BookingStatusConfirmed
	return nil
}

// IsPaid checks if the booking is paid
func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentStatusPaid
}
