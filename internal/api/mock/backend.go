// Package mock is the simulated data-access implementation: an in-memory
// dataset behind the api.Backend contract, with artificial latency.
package mock

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/smarttransit/busticket-web/pkg/jwt"
	"github.com/smarttransit/busticket-web/pkg/validator"
	"golang.org/x/crypto/bcrypt"
)

// Operation names accepted by FailNext
const (
	OpLogin          = "login"
	OpRegister       = "register"
	OpCurrentUser    = "current_user"
	OpListRoutes     = "list_routes"
	OpGetRoute       = "get_route"
	OpListSchedules  = "list_schedules"
	OpGetSchedule    = "get_schedule"
	OpSchedulesRoute = "schedules_by_route"
	OpListBookings   = "list_bookings"
	OpUserBookings   = "user_bookings"
	OpGetBooking     = "get_booking"
	OpCreateBooking  = "create_booking"
	OpCancelBooking  = "cancel_booking"
	OpProcessPayment = "process_payment"
	OpUserPayments   = "user_payments"
)

// Options configures the simulated backend
type Options struct {
	Latency     time.Duration
	JWTSecret   string
	TokenExpiry time.Duration
	BcryptCost  int
	SeedAdmin   bool
	AdminEmail  string
	AdminPass   string
	Now         func() time.Time
	Logger      *logrus.Logger
}

type userRecord struct {
	user         models.User
	passwordHash []byte
}

// Backend is an in-memory api.Backend
type Backend struct {
	mu sync.Mutex

	latency    time.Duration
	tokens     *jwt.Service
	phones     *validator.PhoneValidator
	bcryptCost int
	now        func() time.Time
	logger     *logrus.Logger

	users     map[int64]*userRecord
	routes    map[int64]*models.Route
	schedules map[int64]*models.Schedule
	bookings  map[int64]*models.Booking
	payments  map[int64]*models.Payment

	// idempotency key -> booking id, scoped per user
	idempotency map[string]int64
	references  map[string]bool

	nextUserID     int64
	nextRouteID    int64
	nextScheduleID int64
	nextBookingID  int64
	nextPaymentID  int64
	nextReference  int64

	failures map[string]error
}

var _ api.Backend = (*Backend)(nil)

// New creates a simulated backend seeded with the reference dataset
func New(opts Options) (*Backend, error) {
	if opts.JWTSecret == "" {
		return nil, fmt.Errorf("mock backend requires a JWT secret")
	}
	if opts.TokenExpiry <= 0 {
		opts.TokenExpiry = 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	b := &Backend{
		latency:     opts.Latency,
		tokens:      jwt.NewService(opts.JWTSecret, opts.TokenExpiry, opts.Now),
		phones:      validator.NewPhoneValidator(),
		bcryptCost:  opts.BcryptCost,
		now:         opts.Now,
		logger:      opts.Logger,
		users:       make(map[int64]*userRecord),
		routes:      make(map[int64]*models.Route),
		schedules:   make(map[int64]*models.Schedule),
		bookings:    make(map[int64]*models.Booking),
		payments:    make(map[int64]*models.Payment),
		idempotency: make(map[string]int64),
		references:  make(map[string]bool),
		failures:    make(map[string]error),
	}

	if err := b.seed(opts); err != nil {
		return nil, fmt.Errorf("failed to seed mock dataset: %w", err)
	}

	return b, nil
}

// FailNext makes the next call of op fail with err
func (b *Backend) FailNext(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = err
}

// SetLatency changes the artificial delay of every call
func (b *Backend) SetLatency(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latency = d
}

// simulate applies the artificial latency and any injected failure for op
func (b *Backend) simulate(ctx context.Context, op string) error {
	b.mu.Lock()
	latency := b.latency
	b.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return api.Unavailable(ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return api.Unavailable(err)
	}

	b.mu.Lock()
	err, ok := b.failures[op]
	if ok {
		delete(b.failures, op)
	}
	b.mu.Unlock()

	if ok {
		b.logger.WithField("op", op).Debug("mock backend: injected failure")
		return err
	}
	return nil
}

// authenticate resolves the bearer token in ctx. Callers hold b.mu.
func (b *Backend) authenticate(ctx context.Context) (*userRecord, error) {
	token, ok := api.TokenFrom(ctx)
	if !ok {
		return nil, api.NewError(http.StatusUnauthorized, "Not authenticated")
	}

	claims, err := b.tokens.Verify(token)
	if errors.Is(err, jwt.ErrExpired) {
		return nil, api.NewError(http.StatusUnauthorized, "Token has expired")
	}
	if err != nil {
		return nil, api.NewError(http.StatusUnauthorized, "Could not validate credentials")
	}

	rec, ok := b.users[claims.UserID]
	if !ok {
		return nil, api.NewError(http.StatusUnauthorized, "User no longer exists")
	}
	return rec, nil
}

// requireAdmin authenticates and checks the admin role. Callers hold b.mu.
func (b *Backend) requireAdmin(ctx context.Context) (*userRecord, error) {
	rec, err := b.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	if !rec.user.IsAdmin() {
		return nil, api.NewError(http.StatusForbidden, "Admin privileges required")
	}
	return rec, nil
}

func (b *Backend) hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), b.bcryptCost)
}
