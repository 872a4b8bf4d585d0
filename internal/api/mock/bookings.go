package mock

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/models"
)

// ListBookings returns every booking (admin only)
func (b *Backend) ListBookings(ctx context.Context) ([]models.Booking, error) {
	if err := b.simulate(ctx, OpListBookings); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return b.collectBookings(func(*models.Booking) bool { return true }), nil
}

// ListUserBookings returns the caller's bookings, newest first
func (b *Backend) ListUserBookings(ctx context.Context) ([]models.Booking, error) {
	if err := b.simulate(ctx, OpUserBookings); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return b.collectBookings(func(bk *models.Booking) bool { return bk.UserID == rec.user.ID }), nil
}

// GetBooking returns one of the caller's bookings
func (b *Backend) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	if err := b.simulate(ctx, OpGetBooking); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bk, err := b.ownedBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	booking := *bk
	return &booking, nil
}

// CreateBooking reserves seats on a schedule in pending status. A repeated
// idempotency key from the same user returns the booking created first.
func (b *Backend) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	if err := b.simulate(ctx, OpCreateBooking); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	idemKey := ""
	if req.IdempotencyKey != "" {
		idemKey = fmt.Sprintf("%d:%s", rec.user.ID, req.IdempotencyKey)
		if id, ok := b.idempotency[idemKey]; ok {
			if existing, ok := b.bookings[id]; ok {
				b.logger.WithField("booking_id", id).Debug("mock backend: idempotent booking replay")
				booking := *existing
				return &booking, nil
			}
		}
	}

	schedule, ok := b.schedules[req.ScheduleID]
	if !ok {
		return nil, api.NotFound("Schedule", req.ScheduleID)
	}
	if req.SeatCount > schedule.AvailableSeats {
		return nil, api.Errorf(http.StatusBadRequest, "Only %d seats available", schedule.AvailableSeats)
	}
	if expected := schedule.TotalFor(req.SeatCount); req.TotalAmount != expected {
		return nil, api.Errorf(http.StatusBadRequest, "total_amount %d does not match %d x %d", req.TotalAmount, schedule.Price, req.SeatCount)
	}

	b.nextBookingID++
	booking := &models.Booking{
		ID:               b.nextBookingID,
		UserID:           rec.user.ID,
		Schedule:         b.snapshot(schedule),
		BookingReference: b.newReference(),
		SeatCount:        req.SeatCount,
		PassengerDetails: req.PassengerDetails,
		SpecialRequests:  strings.TrimSpace(req.SpecialRequests),
		TotalAmount:      req.TotalAmount,
		Status:           models.BookingStatusPending,
		PaymentStatus:    models.PaymentStatusPending,
		CreatedAt:        b.now(),
	}
	b.bookings[booking.ID] = booking
	if idemKey != "" {
		b.idempotency[idemKey] = booking.ID
	}

	b.logger.WithFields(map[string]interface{}{
		"booking_id": booking.ID,
		"reference":  booking.BookingReference,
	}).Debug("mock backend: booking created")

	created := *booking
	return &created, nil
}

// UpdateBooking edits passenger details, requests or status of a booking
func (b *Backend) UpdateBooking(ctx context.Context, id int64, req models.UpdateBookingRequest) (*models.Booking, error) {
	if err := b.simulate(ctx, ""); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bk, err := b.ownedBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !bk.CanBeCancelled() {
		return nil, api.Errorf(http.StatusBadRequest, "Booking is %s and can no longer be changed", bk.Status)
	}

	if req.PassengerDetails != nil {
		if missing := req.PassengerDetails.MissingFields(); len(missing) > 0 {
			return nil, api.Errorf(http.StatusBadRequest, "passenger details missing: %s", strings.Join(missing, ", "))
		}
		bk.PassengerDetails = *req.PassengerDetails
	}
	if req.SpecialRequests != nil {
		bk.SpecialRequests = strings.TrimSpace(*req.SpecialRequests)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, api.Errorf(http.StatusBadRequest, "unknown status %q", *req.Status)
		}
		bk.Status = *req.Status
	}

	booking := *bk
	return &booking, nil
}

// CancelBooking marks a booking cancelled
func (b *Backend) CancelBooking(ctx context.Context, id int64) error {
	if err := b.simulate(ctx, OpCancelBooking); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bk, err := b.ownedBooking(ctx, id)
	if err != nil {
		return err
	}
	if err := bk.Cancel(); err != nil {
		return api.Errorf(http.StatusBadRequest, "Booking is %s and cannot be cancelled", bk.Status)
	}
	return nil
}

// ownedBooking fetches a booking visible to the caller. Callers hold b.mu.
func (b *Backend) ownedBooking(ctx context.Context, id int64) (*models.Booking, error) {
	rec, err := b.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	bk, ok := b.bookings[id]
	if !ok {
		return nil, api.NotFound("Booking", id)
	}
	if bk.UserID != rec.user.ID && !rec.user.IsAdmin() {
		// Do not reveal other users' bookings
		return nil, api.NotFound("Booking", id)
	}
	return bk, nil
}

// collectBookings filters bookings newest first. Callers hold b.mu.
func (b *Backend) collectBookings(keep func(*models.Booking) bool) []models.Booking {
	bookings := make([]models.Booking, 0)
	for _, bk := range b.bookings {
		if keep(bk) {
			bookings = append(bookings, *bk)
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID > bookings[j].ID
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings
}

// newReference allocates an unused BK-xxxxx code. Callers hold b.mu.
func (b *Backend) newReference() string {
	for {
		b.nextReference++
		ref := fmt.Sprintf("BK-%05d", b.nextReference)
		if !b.references[ref] {
			b.references[ref] = true
			return ref
		}
	}
}

func newTransactionID() string {
	return "MOMO-" + strings.ToUpper(uuid.NewString())
}
