package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/booking"
	"github.com/smarttransit/busticket-web/internal/middleware"
	"github.com/smarttransit/busticket-web/internal/session"
)

const (
	wizardPath       = "/bookings/new"
	confirmationPath = "/bookings/new/confirmation"
)

// WizardHandler drives the booking wizard across requests. The wizard
// state lives in the session between steps.
type WizardHandler struct {
	backend booking.Backend
	logger  *logrus.Logger
}

// NewWizardHandler creates a new wizard handler
func NewWizardHandler(backend booking.Backend, logger *logrus.Logger) *WizardHandler {
	return &WizardHandler{
		backend: backend,
		logger:  logger,
	}
}

// WizardPage is the content of the details and payment steps
type WizardPage struct {
	State    *booking.State
	MaxSeats int
}

// ConfirmationPage is the content of the confirmation step
type ConfirmationPage struct {
	Confirmation *booking.Confirmation
}

// Show handles GET /bookings/new. The stored wizard is resumed when the
// schedule matches, otherwise a new one starts for scheduleId.
func (h *WizardHandler) Show(c *gin.Context) {
	sess := middleware.GetSession(c)
	param := strings.TrimSpace(c.Query("scheduleId"))

	if sess.IsAuthenticated() && sess.Wizard != nil && resumable(sess.Wizard, param) {
		w := booking.Resume(h.backend, *sess.Wizard)
		if w.Step() == booking.StepConfirmation {
			c.Redirect(http.StatusFound, confirmationPath)
			return
		}
		h.renderWizard(c, sess, w)
		return
	}

	ctx := sess.Context(c.Request.Context())
	w, err := booking.Start(ctx, h.backend, middleware.CurrentUser(c), param)
	if err != nil {
		var redirect *booking.RedirectError
		if errors.As(err, &redirect) {
			redirectWithFlash(c, session.FlashInfo, redirect.Reason, redirect.Location())
			return
		}
		h.logger.WithError(err).Error("Failed to start booking wizard")
		renderError(c, err, "Failed to start the booking. Please try again.")
		return
	}

	h.renderWizard(c, sess, w)
}

// resumable reports whether the stored wizard serves a request for param.
// A wizard whose trip failed to load is always restarted.
func resumable(state *booking.State, param string) bool {
	if param == "" {
		return true
	}
	if state.LoadError != nil || state.Step == booking.StepConfirmation {
		return false
	}
	return param == strconv.FormatInt(state.ScheduleID, 10)
}

func (h *WizardHandler) renderWizard(c *gin.Context, sess *session.Session, w *booking.Wizard) {
	state := w.State()

	// The stored copy drops the error once it has been shown
	w.ClearError()
	stored := w.State()
	sess.Wizard = &stored

	status := http.StatusOK
	if state.LoadError != nil {
		status = http.StatusServiceUnavailable
		if state.LoadError.NotFound {
			status = http.StatusNotFound
		}
	}

	page := WizardPage{State: &state}
	if state.Schedule != nil {
		page.MaxSeats = state.Schedule.AvailableSeats
	}
	render(c, status, pageBookingNew, "Book Your Trip", "schedules", page)
}

// current resumes the stored wizard for a POST, redirecting when there is
// none
func (h *WizardHandler) current(c *gin.Context) (*session.Session, *booking.Wizard, bool) {
	sess := middleware.GetSession(c)
	if sess.Wizard == nil {
		redirectWithFlash(c, session.FlashInfo, "Please select a schedule first", "/schedules")
		return nil, nil, false
	}
	return sess, booking.Resume(h.backend, *sess.Wizard), true
}

func (h *WizardHandler) store(sess *session.Session, w *booking.Wizard) {
	state := w.State()
	sess.Wizard = &state
}

// Details handles POST /bookings/new/details. action=next continues to
// payment, anything else only applies the form.
func (h *WizardHandler) Details(c *gin.Context) {
	sess, w, ok := h.current(c)
	if !ok {
		return
	}

	err := w.UpdateDetails(booking.DetailsForm{
		SeatCount:       c.PostForm("seat_count"),
		Name:            c.PostForm("name"),
		Phone:           c.PostForm("phone"),
		Email:           c.PostForm("email"),
		SpecialRequests: c.PostForm("special_requests"),
	})
	if err == nil && c.PostForm("action") == "next" {
		err = w.Next()
	}
	h.logTransition(sess, "details", err)

	h.store(sess, w)
	c.Redirect(http.StatusSeeOther, wizardPath)
}

// Back handles POST /bookings/new/back
func (h *WizardHandler) Back(c *gin.Context) {
	sess, w, ok := h.current(c)
	if !ok {
		return
	}

	// Keep what was typed on the payment step
	_ = w.UpdatePayment(booking.PaymentForm{
		Method:     c.PostForm("payment_method"),
		MomoNumber: c.PostForm("momo_number"),
		MomoName:   c.PostForm("momo_name"),
	})
	err := w.Back()
	h.logTransition(sess, "back", err)

	h.store(sess, w)
	c.Redirect(http.StatusSeeOther, wizardPath)
}

// Payment handles POST /bookings/new/payment: applies the payment form and
// submits the booking
func (h *WizardHandler) Payment(c *gin.Context) {
	sess, w, ok := h.current(c)
	if !ok {
		return
	}

	// A repeated submit lands on the booking the first one confirmed
	if w.Step() == booking.StepConfirmation {
		c.Redirect(http.StatusSeeOther, confirmationPath)
		return
	}

	err := w.UpdatePayment(booking.PaymentForm{
		Method:     c.PostForm("payment_method"),
		MomoNumber: c.PostForm("momo_number"),
		MomoName:   c.PostForm("momo_name"),
	})
	if err == nil {
		err = w.Submit(sess.Context(c.Request.Context()))
	}
	h.store(sess, w)

	if err != nil {
		if errors.Is(err, booking.ErrSubmitInProgress) {
			sess.AddFlash(session.FlashInfo, "Your booking is already being processed")
		}
		h.logTransition(sess, "submit", err)
		c.Redirect(http.StatusSeeOther, wizardPath)
		return
	}

	confirmation := w.Confirmation()
	h.logger.WithFields(logrus.Fields{
		"user_id":        sess.User.ID,
		"booking_id":     confirmation.Booking.ID,
		"reference":      confirmation.Booking.BookingReference,
		"transaction_id": confirmation.Payment.TransactionID,
		"amount":         confirmation.Payment.Amount,
	}).Info("Booking confirmed")
	c.Redirect(http.StatusSeeOther, confirmationPath)
}

// Confirmation handles GET /bookings/new/confirmation
func (h *WizardHandler) Confirmation(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess.Wizard == nil || sess.Wizard.Step != booking.StepConfirmation || sess.Wizard.Confirmation == nil {
		c.Redirect(http.StatusFound, wizardPath)
		return
	}

	render(c, http.StatusOK, pageBookingConfirmation, "Booking Confirmed", "bookings", ConfirmationPage{
		Confirmation: sess.Wizard.Confirmation,
	})
}

func (h *WizardHandler) logTransition(sess *session.Session, step string, err error) {
	if err == nil {
		return
	}
	entry := h.logger.WithFields(logrus.Fields{
		"step":   step,
		"status": api.StatusOf(err),
	})
	if sess.User != nil {
		entry = entry.WithField("user_id", sess.User.ID)
	}

	var validation *booking.ValidationError
	switch {
	case errors.As(err, &validation), errors.Is(err, booking.ErrSoldOut):
		entry.WithError(err).Debug("Booking step rejected")
	case errors.Is(err, booking.ErrInvalidTransition), errors.Is(err, booking.ErrNotLoaded):
		entry.WithError(err).Info("Stale booking form ignored")
	default:
		entry.WithError(err).Warn("Booking submission failed")
	}
}
