package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/models"
)

// ============================================================================
// AUTH
// ============================================================================

// Login exchanges credentials for a bearer token via POST /auth/login
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	return getOne[models.AuthResponse](ctx, c, request{method: http.MethodPost, path: "/auth/login", body: req}, "login")
}

// Register creates a customer account via POST /auth/register
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	return getOne[models.User](ctx, c, request{method: http.MethodPost, path: "/auth/register", body: req}, "user")
}

// CurrentUser returns the owner of the context token via GET /auth/me
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	return getOne[models.User](ctx, c, request{method: http.MethodGet, path: "/auth/me"}, "user")
}

// ============================================================================
// ROUTES
// ============================================================================

// ListRoutes returns every route via GET /routes
func (c *Client) ListRoutes(ctx context.Context) ([]models.Route, error) {
	return getList[models.Route](ctx, c, request{method: http.MethodGet, path: "/routes"}, "route")
}

// GetRoute returns one route via GET /routes/{id}
func (c *Client) GetRoute(ctx context.Context, id int64) (*models.Route, error) {
	return getOne[models.Route](ctx, c, request{method: http.MethodGet, path: fmt.Sprintf("/routes/%d", id)}, "route")
}

// CreateRoute adds a route via POST /routes (admin)
func (c *Client) CreateRoute(ctx context.Context, in models.RouteInput) (*models.Route, error) {
	return getOne[models.Route](ctx, c, request{method: http.MethodPost, path: "/routes", body: in}, "route")
}

// UpdateRoute replaces a route via PUT /routes/{id} (admin)
func (c *Client) UpdateRoute(ctx context.Context, id int64, in models.RouteInput) (*models.Route, error) {
	return getOne[models.Route](ctx, c, request{method: http.MethodPut, path: fmt.Sprintf("/routes/%d", id), body: in}, "route")
}

// DeleteRoute removes a route via DELETE /routes/{id} (admin)
func (c *Client) DeleteRoute(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: fmt.Sprintf("/routes/%d", id)}, nil)
}

// ============================================================================
// SCHEDULES
// ============================================================================

// ListSchedules returns every schedule via GET /schedules
func (c *Client) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	return getList[models.Schedule](ctx, c, request{method: http.MethodGet, path: "/schedules"}, "schedule")
}

// GetSchedule returns one schedule via GET /schedules/{id}
func (c *Client) GetSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	return getOne[models.Schedule](ctx, c, request{method: http.MethodGet, path: fmt.Sprintf("/schedules/%d", id)}, "schedule")
}

// ListSchedulesByRoute returns the schedules of a route via GET /schedules/route/{id}
func (c *Client) ListSchedulesByRoute(ctx context.Context, routeID int64) ([]models.Schedule, error) {
	return getList[models.Schedule](ctx, c, request{method: http.MethodGet, path: fmt.Sprintf("/schedules/route/%d", routeID)}, "schedule")
}

// CreateSchedule adds a schedule via POST /schedules (admin)
func (c *Client) CreateSchedule(ctx context.Context, in models.ScheduleInput) (*models.Schedule, error) {
	return getOne[models.Schedule](ctx, c, request{method: http.MethodPost, path: "/schedules", body: in}, "schedule")
}

// UpdateSchedule replaces a schedule via PUT /schedules/{id} (admin)
func (c *Client) UpdateSchedule(ctx context.Context, id int64, in models.ScheduleInput) (*models.Schedule, error) {
	return getOne[models.Schedule](ctx, c, request{method: http.MethodPut, path: fmt.Sprintf("/schedules/%d", id), body: in}, "schedule")
}

// DeleteSchedule removes a schedule via DELETE /schedules/{id} (admin)
func (c *Client) DeleteSchedule(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: fmt.Sprintf("/schedules/%d", id)}, nil)
}

// ============================================================================
// BOOKINGS
// ============================================================================

// ListBookings returns all bookings via GET /bookings (admin)
func (c *Client) ListBookings(ctx context.Context) ([]models.Booking, error) {
	return getList[models.Booking](ctx, c, request{method: http.MethodGet, path: "/bookings"}, "booking")
}

// ListUserBookings returns the caller's bookings via GET /bookings/user
func (c *Client) ListUserBookings(ctx context.Context) ([]models.Booking, error) {
	return getList[models.Booking](ctx, c, request{method: http.MethodGet, path: "/bookings/user"}, "booking")
}

// GetBooking returns one booking via GET /bookings/{id}
func (c *Client) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return getOne[models.Booking](ctx, c, request{method: http.MethodGet, path: fmt.Sprintf("/bookings/%d", id)}, "booking")
}

// CreateBooking forwards the draft's idempotency key so a retried submit
// does not reserve seats twice
func (c *Client) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	r := request{method: http.MethodPost, path: "/bookings", body: req}
	if req.IdempotencyKey != "" {
		r.headers = map[string]string{IdempotencyHeader: req.IdempotencyKey}
	}
	return getOne[models.Booking](ctx, c, r, "booking")
}

// UpdateBooking changes a booking via PUT /bookings/{id}
func (c *Client) UpdateBooking(ctx context.Context, id int64, req models.UpdateBookingRequest) (*models.Booking, error) {
	return getOne[models.Booking](ctx, c, request{method: http.MethodPut, path: fmt.Sprintf("/bookings/%d", id), body: req}, "booking")
}

// CancelBooking maps to DELETE, which the API treats as a status change
func (c *Client) CancelBooking(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: fmt.Sprintf("/bookings/%d", id)}, nil)
}

// ============================================================================
// PAYMENTS
// ============================================================================

// ProcessPayment charges a booking via POST /payments
func (c *Client) ProcessPayment(ctx context.Context, req models.ProcessPaymentRequest) (*models.Payment, error) {
	return getOne[models.Payment](ctx, c, request{method: http.MethodPost, path: "/payments", body: req}, "payment")
}

// GetPayment returns one payment via GET /payments/{id}
func (c *Client) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return getOne[models.Payment](ctx, c, request{method: http.MethodGet, path: fmt.Sprintf("/payments/%d", id)}, "payment")
}

// ListUserPayments returns the caller's payments via GET /payments/user
func (c *Client) ListUserPayments(ctx context.Context) ([]models.Payment, error) {
	return getList[models.Payment](ctx, c, request{method: http.MethodGet, path: "/payments/user"}, "payment")
}

// ============================================================================
// ADMIN
// ============================================================================

// GetDashboardStats returns the admin counters via GET /admin/stats
func (c *Client) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	if err := c.do(ctx, request{method: http.MethodGet, path: "/admin/stats"}, &stats); err != nil {
		return nil, err
	}
	if stats.TotalUsers < 0 || stats.TotalBookings < 0 || stats.TotalRevenue < 0 {
		return nil, api.InvalidPayload("stats", fmt.Errorf("negative counters"))
	}
	return &stats, nil
}

// ListUsers returns every account via GET /admin/users
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	return getList[models.User](ctx, c, request{method: http.MethodGet, path: "/admin/users"}, "user")
}

// GetUser returns one account via GET /admin/users/{id}
func (c *Client) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return getOne[models.User](ctx, c, request{method: http.MethodGet, path: fmt.Sprintf("/admin/users/%d", id)}, "user")
}

// UpdateUserRole sets the role of an account via PUT /admin/users/{id}/role
func (c *Client) UpdateUserRole(ctx context.Context, id int64, role models.Role) (*models.User, error) {
	body := models.UpdateRoleRequest{Role: role}
	return getOne[models.User](ctx, c, request{method: http.MethodPut, path: fmt.Sprintf("/admin/users/%d/role", id), body: body}, "user")
}
