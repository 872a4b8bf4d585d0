package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Role represents a user role
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether the role is known
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

var emailRegex = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// IsValidEmail checks the loose email shape accepted at registration
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// User is the account snapshot returned by the backend
type User struct {
	ID          int64     `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsAdmin checks if the user has the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// FirstName returns the first word of the full name for greetings
func (u *User) FirstName() string {
	if u == nil {
		return ""
	}
	if parts := strings.Fields(u.FullName); len(parts) > 0 {
		return parts[0]
	}
	return u.Email
}

// Validate checks a user received from the backend
func (u *User) Validate() error {
	if u.ID <= 0 {
		return errors.New("user id must be positive")
	}
	if u.Email == "" {
		return fmt.Errorf("user %d has no email", u.ID)
	}
	if !u.Role.Valid() {
		return fmt.Errorf("user %d has unknown role %q", u.ID, u.Role)
	}
	return nil
}

// LoginRequest is the payload of the login call
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the payload of the register call
type RegisterRequest struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
}

// AuthResponse is returned by a successful login
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// Validate checks the login response
func (r *AuthResponse) Validate() error {
	if r.AccessToken == "" {
		return errors.New("login response has no access token")
	}
	return r.User.Validate()
}

// UpdateRoleRequest is the payload of the role update call
type UpdateRoleRequest struct {
	Role Role `json:"role"`
}

// DashboardStats aggregates admin dashboard figures
type DashboardStats struct {
	TotalUsers     int   `json:"total_users"`
	TotalRoutes    int   `json:"total_routes"`
	TotalSchedules int   `json:"total_schedules"`
	TotalBookings  int   `json:"total_bookings"`
	ActiveBookings int   `json:"active_bookings"`
	TotalRevenue   int64 `json:"total_revenue"`
}
