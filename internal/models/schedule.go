package models

import (
	"errors"
	"fmt"
	"time"
)

// Schedule is a timed departure of a route with its own price and seat inventory
type Schedule struct {
	ID             int64     `json:"id"`
	RouteID        int64     `json:"route_id"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	BusName        string    `json:"bus_name"`
	AvailableSeats int       `json:"available_seats"`
	Price          int64     `json:"price"` // per seat
	Route          *Route    `json:"route,omitempty"`
}

// ScheduleInput is the payload for creating or updating a schedule
type ScheduleInput struct {
	RouteID        int64     `json:"route_id"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	BusName        string    `json:"bus_name"`
	AvailableSeats int       `json:"available_seats"`
	Price          int64     `json:"price"`
}

// Validate checks a schedule received from the backend
func (s *Schedule) Validate() error {
	if s.ID <= 0 {
		return errors.New("schedule id must be positive")
	}
	if s.RouteID <= 0 {
		return fmt.Errorf("schedule %d has no route", s.ID)
	}
	if s.AvailableSeats < 0 {
		return fmt.Errorf("schedule %d has negative available seats", s.ID)
	}
	if s.Price < 0 {
		return fmt.Errorf("schedule %d has a negative price", s.ID)
	}
	if s.Route != nil && s.Route.ID != 0 && s.Route.ID != s.RouteID {
		return fmt.Errorf("schedule %d embeds route %d but references route %d", s.ID, s.Route.ID, s.RouteID)
	}
	return nil
}

// Validate checks a schedule input before it is sent
func (s *ScheduleInput) Validate() error {
	if s.RouteID <= 0 {
		return errors.New("route is required")
	}
	if s.DepartureTime.IsZero() || s.ArrivalTime.IsZero() {
		return errors.New("departure and arrival times are required")
	}
	if !s.ArrivalTime.After(s.DepartureTime) {
		return errors.New("arrival must be after departure")
	}
	if s.AvailableSeats < 0 {
		return errors.New("available seats cannot be negative")
	}
	if s.Price <= 0 {
		return errors.New("price must be positive")
	}
	return nil
}

// DisplayBusName falls back to a generic name when the bus is unnamed
func (s *Schedule) DisplayBusName() string {
	if s.BusName == "" {
		return "Standard Bus"
	}
	return s.BusName
}

// SoldOut reports whether no seats remain
func (s *Schedule) SoldOut() bool {
	return s.AvailableSeats <= 0
}

// TotalFor computes the total price for a number of seats
func (s *Schedule) TotalFor(seats int) int64 {
	return s.Price * int64(seats)
}
