package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/middleware"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/smarttransit/busticket-web/internal/services"
	"github.com/smarttransit/busticket-web/internal/session"
)

// BookingBackend is the part of the data-access contract the bookings pages use
type BookingBackend interface {
	ListUserBookings(ctx context.Context) ([]models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	CancelBooking(ctx context.Context, id int64) error
	ListUserPayments(ctx context.Context) ([]models.Payment, error)
}

// BookingHandler handles the signed-in user's bookings
type BookingHandler struct {
	backend BookingBackend
	tickets *services.TicketService
	logger  *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(backend BookingBackend, tickets *services.TicketService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		backend: backend,
		tickets: tickets,
		logger:  logger,
	}
}

// BookingsPage is the content of the bookings list
type BookingsPage struct {
	Bookings    []models.Booking
	ShowAll     bool
	HiddenCount int
	Error       string
}

// BookingDetailPage is the content of a booking's detail page
type BookingDetailPage struct {
	Booking         *models.Booking
	Payments        []models.Payment
	TicketAvailable bool
	CanCancel       bool
}

// List handles GET /bookings. Cancelled bookings are hidden unless
// show=all is set.
func (h *BookingHandler) List(c *gin.Context) {
	sess := middleware.GetSession(c)
	ctx := sess.Context(c.Request.Context())
	showAll := c.Query("show") == "all"

	bookings, err := h.backend.ListUserBookings(ctx)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", sess.User.ID).Warn("Failed to load bookings")
		render(c, errorStatus(err), pageBookings, "My Bookings", "bookings", BookingsPage{
			ShowAll: showAll,
			Error:   api.DetailOf(err, "Failed to load bookings. Please try again later."),
		})
		return
	}

	page := BookingsPage{ShowAll: showAll, Bookings: make([]models.Booking, 0, len(bookings))}
	for _, b := range bookings {
		if !showAll && b.Status == models.BookingStatusCancelled {
			page.HiddenCount++
			continue
		}
		page.Bookings = append(page.Bookings, b)
	}
	sort.SliceStable(page.Bookings, func(i, j int) bool {
		return page.Bookings[i].CreatedAt.After(page.Bookings[j].CreatedAt)
	})

	render(c, http.StatusOK, pageBookings, "My Bookings", "bookings", page)
}

// Detail handles GET /bookings/:id
func (h *BookingHandler) Detail(c *gin.Context) {
	b, ok := h.loadBooking(c)
	if !ok {
		return
	}

	ctx := middleware.GetSession(c).Context(c.Request.Context())
	render(c, http.StatusOK, pageBookingDetail, "Booking "+b.BookingReference, "bookings", BookingDetailPage{
		Booking:         b,
		Payments:        h.paymentsFor(ctx, b.ID),
		TicketAvailable: h.tickets.Available(b),
		CanCancel:       b.CanBeCancelled(),
	})
}

// Cancel handles POST /bookings/:id/cancel. Only pending and confirmed
// bookings can be cancelled.
func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		renderNotFound(c)
		return
	}

	sess := middleware.GetSession(c)
	ctx := sess.Context(c.Request.Context())

	b, err := h.backend.GetBooking(ctx, id)
	if err != nil {
		h.logger.WithError(err).WithField("booking_id", id).Warn("Failed to load booking for cancellation")
		redirectWithFlash(c, session.FlashError, api.DetailOf(err, "Failed to cancel booking. Please try again."), "/bookings")
		return
	}
	if !b.CanBeCancelled() {
		redirectWithFlash(c, session.FlashError, "This booking can no longer be cancelled", "/bookings")
		return
	}

	if err := h.backend.CancelBooking(ctx, id); err != nil {
		h.logger.WithError(err).WithField("booking_id", id).Warn("Failed to cancel booking")
		redirectWithFlash(c, session.FlashError, api.DetailOf(err, "Failed to cancel booking. Please try again."), "/bookings")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"booking_id": id,
		"reference":  b.BookingReference,
		"user_id":    sess.User.ID,
	}).Info("Booking cancelled")
	redirectWithFlash(c, session.FlashSuccess, fmt.Sprintf("Booking %s has been cancelled", b.BookingReference), "/bookings")
}

// Ticket handles GET /bookings/:id/ticket.pdf
func (h *BookingHandler) Ticket(c *gin.Context) {
	b, ok := h.loadBooking(c)
	if !ok {
		return
	}

	ctx := middleware.GetSession(c).Context(c.Request.Context())
	var payment *models.Payment
	for _, p := range h.paymentsFor(ctx, b.ID) {
		if p.Succeeded() {
			payment = &p
			break
		}
	}

	data, filename, err := h.tickets.Render(b, payment)
	if err != nil {
		if errors.Is(err, services.ErrTicketUnavailable) {
			redirectWithFlash(c, session.FlashError, "The e-ticket is only available for paid bookings", fmt.Sprintf("/bookings/%d", b.ID))
			return
		}
		h.logger.WithError(err).WithField("booking_id", b.ID).Error("Failed to render e-ticket")
		renderError(c, err, "Failed to generate the e-ticket. Please try again.")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

// loadBooking fetches the booking named by the id parameter and renders
// the failure page itself when it cannot
func (h *BookingHandler) loadBooking(c *gin.Context) (*models.Booking, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		renderNotFound(c)
		return nil, false
	}

	ctx := middleware.GetSession(c).Context(c.Request.Context())
	b, err := h.backend.GetBooking(ctx, id)
	if err != nil {
		// Someone else's booking is reported as missing
		if api.IsNotFound(err) || api.IsForbidden(err) {
			renderNotFound(c)
			return nil, false
		}
		h.logger.WithError(err).WithField("booking_id", id).Warn("Failed to load booking")
		renderError(c, err, "Failed to load booking details. Please try again.")
		return nil, false
	}
	return b, true
}

// paymentsFor lists the user's payments for one booking. A failed lookup
// only hides the payment history.
func (h *BookingHandler) paymentsFor(ctx context.Context, bookingID int64) []models.Payment {
	payments, err := h.backend.ListUserPayments(ctx)
	if err != nil {
		h.logger.WithError(err).WithField("booking_id", bookingID).Warn("Failed to load payments")
		return nil
	}

	var matched []models.Payment
	for _, p := range payments {
		if p.BookingID == bookingID {
			matched = append(matched, p)
		}
	}
	return matched
}
