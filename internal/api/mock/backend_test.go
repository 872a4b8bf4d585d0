package mock

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret     = "test-secret-key-for-mock-backend"
	testAdminEmail = "admin@busticket.rw"
	testAdminPass  = "admin123"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	b, err := New(Options{
		JWTSecret:  testSecret,
		BcryptCost: bcrypt.MinCost,
		SeedAdmin:  true,
		AdminEmail: testAdminEmail,
		AdminPass:  testAdminPass,
		Logger:     logger,
	})
	require.NoError(t, err)
	return b
}

func loginAs(t *testing.T, b *Backend, email, password string) context.Context {
	t.Helper()

	resp, err := b.Login(context.Background(), models.LoginRequest{Email: email, Password: password})
	require.NoError(t, err)
	return api.WithToken(context.Background(), resp.AccessToken)
}

func customerCtx(t *testing.T, b *Backend) context.Context {
	return loginAs(t, b, SeedCustomerEmail, SeedCustomerPassword)
}

func adminCtx(t *testing.T, b *Backend) context.Context {
	return loginAs(t, b, testAdminEmail, testAdminPass)
}

func passenger() models.PassengerDetails {
	return models.PassengerDetails{Name: "John Doe", Phone: "0788123456", Email: SeedCustomerEmail}
}

func TestNew(t *testing.T) {
	t.Run("Requires secret", func(t *testing.T) {
		b, err := New(Options{})
		assert.Error(t, err)
		assert.Nil(t, b)
	})

	t.Run("Seeds reference dataset", func(t *testing.T) {
		b := newTestBackend(t)
		ctx := context.Background()

		routes, err := b.ListRoutes(ctx)
		require.NoError(t, err)
		assert.Len(t, routes, 5)
		assert.Equal(t, "Kigali", routes[0].Origin)
		assert.Equal(t, "Musanze", routes[0].Destination)

		schedules, err := b.ListSchedules(ctx)
		require.NoError(t, err)
		require.Len(t, schedules, 4)
		for i := 1; i < len(schedules); i++ {
			assert.False(t, schedules[i].DepartureTime.Before(schedules[i-1].DepartureTime))
		}
		for _, s := range schedules {
			assert.NoError(t, s.Validate())
		}
	})
}

func TestLogin(t *testing.T) {
	b := newTestBackend(t)

	t.Run("Success", func(t *testing.T) {
		resp, err := b.Login(context.Background(), models.LoginRequest{Email: SeedCustomerEmail, Password: SeedCustomerPassword})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.Equal(t, "John Doe", resp.User.FullName)
		assert.NoError(t, resp.Validate())
	})

	t.Run("Email is case insensitive", func(t *testing.T) {
		_, err := b.Login(context.Background(), models.LoginRequest{Email: "JOHN@example.com", Password: SeedCustomerPassword})
		assert.NoError(t, err)
	})

	t.Run("Wrong password", func(t *testing.T) {
		resp, err := b.Login(context.Background(), models.LoginRequest{Email: SeedCustomerEmail, Password: "nope"})
		assert.Nil(t, resp)
		assert.True(t, api.IsUnauthorized(err))
		assert.Equal(t, "Incorrect email or password", api.DetailOf(err, ""))
	})
}

func TestRegister(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		user, err := b.Register(ctx, models.RegisterRequest{
			FullName:    " Alice Uwase ",
			Email:       "alice@example.com",
			Password:    "secret1",
			PhoneNumber: "0781234567",
		})
		require.NoError(t, err)
		assert.Equal(t, "Alice Uwase", user.FullName)
		assert.Equal(t, models.RoleCustomer, user.Role)

		_, err = b.Login(ctx, models.LoginRequest{Email: "alice@example.com", Password: "secret1"})
		assert.NoError(t, err)
	})

	tests := []struct {
		name   string
		req    models.RegisterRequest
		detail string
	}{
		{"Duplicate email", models.RegisterRequest{FullName: "Dup", Email: SeedCustomerEmail, Password: "secret1", PhoneNumber: "0781234567"}, "Email already registered"},
		{"Missing name", models.RegisterRequest{Email: "x@example.com", Password: "secret1", PhoneNumber: "0781234567"}, "Full name is required"},
		{"Bad email", models.RegisterRequest{FullName: "X", Email: "not-an-email", Password: "secret1", PhoneNumber: "0781234567"}, "Email is invalid"},
		{"Short password", models.RegisterRequest{FullName: "X", Email: "x@example.com", Password: "123", PhoneNumber: "0781234567"}, "Password must be at least 6 characters"},
		{"Bad phone", models.RegisterRequest{FullName: "X", Email: "x@example.com", Password: "secret1", PhoneNumber: "0551234567"}, "Invalid phone number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := b.Register(ctx, tt.req)
			assert.Nil(t, user)
			assert.Equal(t, http.StatusBadRequest, api.StatusOf(err))
			assert.Contains(t, api.DetailOf(err, ""), tt.detail)
		})
	}
}

func TestCurrentUser(t *testing.T) {
	b := newTestBackend(t)

	t.Run("No token", func(t *testing.T) {
		_, err := b.CurrentUser(context.Background())
		assert.True(t, api.IsUnauthorized(err))
		assert.Equal(t, "Not authenticated", api.DetailOf(err, ""))
	})

	t.Run("Garbage token", func(t *testing.T) {
		_, err := b.CurrentUser(api.WithToken(context.Background(), "garbage"))
		assert.True(t, api.IsUnauthorized(err))
		assert.Equal(t, "Could not validate credentials", api.DetailOf(err, ""))
	})

	t.Run("Valid token", func(t *testing.T) {
		user, err := b.CurrentUser(customerCtx(t, b))
		require.NoError(t, err)
		assert.Equal(t, SeedCustomerEmail, user.Email)
	})
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	b, err := New(Options{
		JWTSecret:   testSecret,
		TokenExpiry: time.Hour,
		BcryptCost:  bcrypt.MinCost,
		Now:         func() time.Time { return now },
		Logger:      logger,
	})
	require.NoError(t, err)

	ctx := customerCtx(t, b)
	_, err = b.CurrentUser(ctx)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = b.CurrentUser(ctx)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, "Token has expired", api.DetailOf(err, ""))
}

func TestSimulate(t *testing.T) {
	t.Run("Injected failure fires once", func(t *testing.T) {
		b := newTestBackend(t)
		injected := api.NewError(http.StatusInternalServerError, "boom")
		b.FailNext(OpListRoutes, injected)

		_, err := b.ListRoutes(context.Background())
		assert.True(t, errors.Is(err, injected))

		_, err = b.ListRoutes(context.Background())
		assert.NoError(t, err)
	})

	t.Run("Latency honours context", func(t *testing.T) {
		b := newTestBackend(t)
		b.latency = time.Second

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := b.ListRoutes(ctx)
		assert.Equal(t, http.StatusServiceUnavailable, api.StatusOf(err))
	})
}

func TestSchedulesByRoute(t *testing.T) {
	b := newTestBackend(t)

	schedules, err := b.ListSchedulesByRoute(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	for _, s := range schedules {
		require.NotNil(t, s.Route)
		assert.Equal(t, int64(1), s.Route.ID)
	}

	_, err = b.ListSchedulesByRoute(context.Background(), 99)
	assert.True(t, api.IsNotFound(err))
}

func TestCreateBooking(t *testing.T) {
	b := newTestBackend(t)
	ctx := customerCtx(t, b)

	t.Run("Success", func(t *testing.T) {
		booking, err := b.CreateBooking(ctx, models.CreateBookingRequest{
			ScheduleID:       1,
			SeatCount:        2,
			PassengerDetails: passenger(),
			TotalAmount:      30000,
		})
		require.NoError(t, err)
		assert.NoError(t, booking.Validate())
		assert.True(t, strings.HasPrefix(booking.BookingReference, "BK-"))
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
		assert.Equal(t, "Volcano Express", booking.Schedule.BusName)
		assert.Equal(t, "Musanze", booking.Schedule.Route.Destination)
	})

	t.Run("Idempotent replay", func(t *testing.T) {
		req := models.CreateBookingRequest{
			ScheduleID:       2,
			SeatCount:        1,
			PassengerDetails: passenger(),
			TotalAmount:      18000,
			IdempotencyKey:   "draft-1",
		}
		first, err := b.CreateBooking(ctx, req)
		require.NoError(t, err)
		second, err := b.CreateBooking(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.BookingReference, second.BookingReference)
	})

	t.Run("References are unique", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 5; i++ {
			booking, err := b.CreateBooking(ctx, models.CreateBookingRequest{
				ScheduleID: 4, SeatCount: 1, PassengerDetails: passenger(), TotalAmount: 20000,
			})
			require.NoError(t, err)
			assert.False(t, seen[booking.BookingReference])
			seen[booking.BookingReference] = true
		}
	})

	t.Run("Total mismatch", func(t *testing.T) {
		_, err := b.CreateBooking(ctx, models.CreateBookingRequest{
			ScheduleID: 1, SeatCount: 2, PassengerDetails: passenger(), TotalAmount: 15000,
		})
		assert.Equal(t, http.StatusBadRequest, api.StatusOf(err))
	})

	t.Run("Too many seats", func(t *testing.T) {
		_, err := b.CreateBooking(ctx, models.CreateBookingRequest{
			ScheduleID: 1, SeatCount: 33, PassengerDetails: passenger(), TotalAmount: 33 * 15000,
		})
		assert.Equal(t, http.StatusBadRequest, api.StatusOf(err))
	})

	t.Run("Unknown schedule", func(t *testing.T) {
		_, err := b.CreateBooking(ctx, models.CreateBookingRequest{
			ScheduleID: 42, SeatCount: 1, PassengerDetails: passenger(), TotalAmount: 1,
		})
		assert.True(t, api.IsNotFound(err))
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		_, err := b.CreateBooking(context.Background(), models.CreateBookingRequest{
			ScheduleID: 1, SeatCount: 1, PassengerDetails: passenger(), TotalAmount: 15000,
		})
		assert.True(t, api.IsUnauthorized(err))
	})
}

func TestUserBookingsAndCancel(t *testing.T) {
	b := newTestBackend(t)
	ctx := customerCtx(t, b)

	bookings, err := b.ListUserBookings(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "BK-12346", bookings[0].BookingReference)
	assert.Equal(t, "BK-12345", bookings[1].BookingReference)

	require.NoError(t, b.CancelBooking(ctx, bookings[0].ID))

	cancelled, err := b.GetBooking(ctx, bookings[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	err = b.CancelBooking(ctx, bookings[0].ID)
	assert.Equal(t, http.StatusBadRequest, api.StatusOf(err))

	t.Run("Other users cannot see bookings", func(t *testing.T) {
		_, err := b.Register(context.Background(), models.RegisterRequest{
			FullName: "Eve", Email: "eve@example.com", Password: "secret1", PhoneNumber: "0781111111",
		})
		require.NoError(t, err)
		eve := loginAs(t, b, "eve@example.com", "secret1")

		_, err = b.GetBooking(eve, bookings[1].ID)
		assert.True(t, api.IsNotFound(err))

		mine, err := b.ListUserBookings(eve)
		require.NoError(t, err)
		assert.Empty(t, mine)
	})
}

func TestProcessPayment(t *testing.T) {
	b := newTestBackend(t)
	ctx := customerCtx(t, b)

	booking, err := b.CreateBooking(ctx, models.CreateBookingRequest{
		ScheduleID: 1, SeatCount: 2, PassengerDetails: passenger(), TotalAmount: 30000,
	})
	require.NoError(t, err)

	req := models.ProcessPaymentRequest{
		BookingID:      booking.ID,
		Amount:         30000,
		PaymentMethod:  models.PaymentMethodMomo,
		PaymentDetails: map[string]string{models.MomoNumberKey: "0788123456", models.MomoNameKey: "John Doe"},
	}

	t.Run("Amount mismatch", func(t *testing.T) {
		bad := req
		bad.Amount = 100
		_, err := b.ProcessPayment(ctx, bad)
		assert.Equal(t, http.StatusBadRequest, api.StatusOf(err))
	})

	t.Run("Missing momo fields", func(t *testing.T) {
		bad := req
		bad.PaymentDetails = map[string]string{models.MomoNumberKey: "0788123456"}
		_, err := b.ProcessPayment(ctx, bad)
		assert.Equal(t, http.StatusBadRequest, api.StatusOf(err))
	})

	t.Run("Success", func(t *testing.T) {
		payment, err := b.ProcessPayment(ctx, req)
		require.NoError(t, err)
		assert.NoError(t, payment.Validate())
		assert.True(t, strings.HasPrefix(payment.TransactionID, "MOMO-"))
		assert.True(t, payment.Succeeded())

		paid, err := b.GetBooking(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, paid.Status)
		assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)

		fetched, err := b.GetPayment(ctx, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.TransactionID, fetched.TransactionID)
	})

	t.Run("Already paid", func(t *testing.T) {
		_, err := b.ProcessPayment(ctx, req)
		assert.Equal(t, http.StatusConflict, api.StatusOf(err))
	})

	t.Run("Listed for user", func(t *testing.T) {
		payments, err := b.ListUserPayments(ctx)
		require.NoError(t, err)
		assert.Len(t, payments, 2)
	})
}

func TestAdminOperations(t *testing.T) {
	b := newTestBackend(t)
	admin := adminCtx(t, b)
	customer := customerCtx(t, b)

	t.Run("Customer is forbidden", func(t *testing.T) {
		_, err := b.GetDashboardStats(customer)
		assert.True(t, api.IsForbidden(err))
		_, err = b.ListBookings(customer)
		assert.True(t, api.IsForbidden(err))
	})

	t.Run("Dashboard stats", func(t *testing.T) {
		stats, err := b.GetDashboardStats(admin)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalUsers)
		assert.Equal(t, 5, stats.TotalRoutes)
		assert.Equal(t, 4, stats.TotalSchedules)
		assert.Equal(t, 2, stats.TotalBookings)
		assert.Equal(t, 2, stats.ActiveBookings)
		assert.Equal(t, int64(30000), stats.TotalRevenue)
	})

	t.Run("Role change", func(t *testing.T) {
		user, err := b.UpdateUserRole(admin, 1, models.RoleAdmin)
		require.NoError(t, err)
		assert.True(t, user.IsAdmin())

		_, err = b.UpdateUserRole(admin, 2, models.RoleCustomer)
		assert.Equal(t, http.StatusBadRequest, api.StatusOf(err))

		_, err = b.UpdateUserRole(admin, 1, models.Role("pilot"))
		assert.Equal(t, http.StatusBadRequest, api.StatusOf(err))
	})

	t.Run("Route lifecycle", func(t *testing.T) {
		route, err := b.CreateRoute(admin, models.RouteInput{
			Origin: "Huye", Destination: "Rusizi", Distance: 150, Duration: 4, BasePrice: 9000,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(6), route.ID)

		departure := time.Now().Add(48 * time.Hour)
		schedule, err := b.CreateSchedule(admin, models.ScheduleInput{
			RouteID: route.ID, DepartureTime: departure, ArrivalTime: departure.Add(4 * time.Hour),
			BusName: "Nyungwe Line", AvailableSeats: 20, Price: 9000,
		})
		require.NoError(t, err)

		err = b.DeleteRoute(admin, route.ID)
		assert.Equal(t, http.StatusConflict, api.StatusOf(err))

		require.NoError(t, b.DeleteSchedule(admin, schedule.ID))
		require.NoError(t, b.DeleteRoute(admin, route.ID))

		_, err = b.GetRoute(context.Background(), route.ID)
		assert.True(t, api.IsNotFound(err))
	})

	t.Run("Schedule with active bookings", func(t *testing.T) {
		err := b.DeleteSchedule(admin, 1)
		assert.Equal(t, http.StatusConflict, api.StatusOf(err))
	})
}
