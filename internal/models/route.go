package models

import (
	"errors"
	"fmt"
	"strings"
)

// Route is a fixed origin-destination pair with reference pricing
type Route struct {
	ID          int64   `json:"id"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Distance    float64 `json:"distance"` // kilometres
	Duration    float64 `json:"duration"` // hours
	Description string  `json:"description"`
	BasePrice   int64   `json:"base_price"`
}

// RouteInput is the payload for creating or updating a route
type RouteInput struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Distance    float64 `json:"distance"`
	Duration    float64 `json:"duration"`
	Description string  `json:"description"`
	BasePrice   int64   `json:"base_price"`
}

// Validate checks a route received from the backend
func (r *Route) Validate() error {
	if r.ID <= 0 {
		return errors.New("route id must be positive")
	}
	if r.Origin == "" || r.Destination == "" {
		return fmt.Errorf("route %d is missing origin or destination", r.ID)
	}
	if r.BasePrice < 0 {
		return fmt.Errorf("route %d has a negative base price", r.ID)
	}
	return nil
}

// Validate checks a route input before it is sent
func (r *RouteInput) Validate() error {
	if strings.TrimSpace(r.Origin) == "" {
		return errors.New("origin is required")
	}
	if strings.TrimSpace(r.Destination) == "" {
		return errors.New("destination is required")
	}
	if strings.EqualFold(strings.TrimSpace(r.Origin), strings.TrimSpace(r.Destination)) {
		return errors.New("origin and destination must differ")
	}
	if r.Distance < 0 || r.Duration < 0 {
		return errors.New("distance and duration cannot be negative")
	}
	if r.BasePrice <= 0 {
		return errors.New("base price must be positive")
	}
	return nil
}

// Label renders "Origin to Destination"
func (r *Route) Label() string {
	if r == nil {
		return ""
	}
	return r.Origin + " to " + r.Destination
}

// Matches reports whether the search term appears in the origin or destination
func (r *Route) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Origin), term) ||
		strings.Contains(strings.ToLower(r.Destination), term)
}
