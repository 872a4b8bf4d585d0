// Package api defines the data-access contract the pages and the booking
// wizard depend on. Implementations live in the mock (simulated, in-memory)
// and remote (networked) subpackages and are chosen once at startup.
package api

import (
	"context"

	"github.com/smarttransit/busticket-web/internal/models"
)

// AuthService covers login, registration and the current-user lookup
type AuthService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	CurrentUser(ctx context.Context) (*models.User, error)
}

// RouteService covers route reference data and its admin management
type RouteService interface {
	ListRoutes(ctx context.Context) ([]models.Route, error)
	GetRoute(ctx context.Context, id int64) (*models.Route, error)
	CreateRoute(ctx context.Context, in models.RouteInput) (*models.Route, error)
	UpdateRoute(ctx context.Context, id int64, in models.RouteInput) (*models.Route, error)
	DeleteRoute(ctx context.Context, id int64) error
}

// ScheduleService covers schedules and their admin management
type ScheduleService interface {
	ListSchedules(ctx context.Context) ([]models.Schedule, error)
	GetSchedule(ctx context.Context, id int64) (*models.Schedule, error)
	ListSchedulesByRoute(ctx context.Context, routeID int64) ([]models.Schedule, error)
	CreateSchedule(ctx context.Context, in models.ScheduleInput) (*models.Schedule, error)
	UpdateSchedule(ctx context.Context, id int64, in models.ScheduleInput) (*models.Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) error
}

// BookingService covers bookings, including cancellation
type BookingService interface {
	ListBookings(ctx context.Context) ([]models.Booking, error)
	ListUserBookings(ctx context.Context) ([]models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error)
	UpdateBooking(ctx context.Context, id int64, req models.UpdateBookingRequest) (*models.Booking, error)
	CancelBooking(ctx context.Context, id int64) error
}

// PaymentService covers payment processing and lookups
type PaymentService interface {
	ProcessPayment(ctx context.Context, req models.ProcessPaymentRequest) (*models.Payment, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	ListUserPayments(ctx context.Context) ([]models.Payment, error)
}

// AdminService covers admin-only user and statistics queries
type AdminService interface {
	GetDashboardStats(ctx context.Context) (*models.DashboardStats, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateUserRole(ctx context.Context, id int64, role models.Role) (*models.User, error)
}

// Backend is the full data-access contract
type Backend interface {
	AuthService
	RouteService
	ScheduleService
	BookingService
	PaymentService
	AdminService
}
