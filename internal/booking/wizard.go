// Package booking implements the booking wizard: a three step state machine
// (passenger details, payment, confirmation) that creates a booking and pays
// for it through the data-access contract.
package booking

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/models"
)

// User facing messages
const (
	msgLoginRequired    = "Please log in to book a trip"
	msgScheduleRequired = "Please select a schedule first"
	msgLoadFailed       = "Failed to load schedule details. Please try again."
	msgDetailsMissing   = "Please fill in all required fields"
	msgPaymentMissing   = "Please fill in all required payment fields"
	msgSubmitFailed     = "Failed to process your booking. Please try again."
	msgSoldOut          = "This schedule is sold out"
)

// Backend is the part of the data-access contract the wizard uses
type Backend interface {
	GetSchedule(ctx context.Context, id int64) (*models.Schedule, error)
	GetRoute(ctx context.Context, id int64) (*models.Route, error)
	ListSchedulesByRoute(ctx context.Context, routeID int64) ([]models.Schedule, error)
	CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ProcessPayment(ctx context.Context, req models.ProcessPaymentRequest) (*models.Payment, error)
	ListUserPayments(ctx context.Context) ([]models.Payment, error)
}

// newIdempotencyKey generates draft keys
var newIdempotencyKey = uuid.NewString

// DetailsForm is the input of the passenger details step
type DetailsForm struct {
	SeatCount       string
	Name            string
	Phone           string
	Email           string
	SpecialRequests string
}

// PaymentForm is the input of the payment step
type PaymentForm struct {
	Method     string
	MomoNumber string
	MomoName   string
}

// Wizard drives one booking from passenger details to confirmation
type Wizard struct {
	mu      sync.Mutex
	backend Backend
	state   State
}

// EntryPath is the wizard URL for a schedule id parameter
func EntryPath(scheduleIDParam string) string {
	if scheduleIDParam == "" {
		return "/bookings/new"
	}
	return "/bookings/new?scheduleId=" + url.QueryEscape(scheduleIDParam)
}

// Start opens a wizard for the schedule in scheduleIDParam. It returns a
// *RedirectError when the user is anonymous or the id is unusable. A failed
// fetch still returns a wizard, in a load error state.
func Start(ctx context.Context, backend Backend, user *models.User, scheduleIDParam string) (*Wizard, error) {
	scheduleIDParam = strings.TrimSpace(scheduleIDParam)

	if user == nil {
		return nil, &RedirectError{
			To:       "/login",
			ReturnTo: EntryPath(scheduleIDParam),
			Reason:   msgLoginRequired,
			Err:      ErrLoginRequired,
		}
	}

	scheduleID, err := strconv.ParseInt(scheduleIDParam, 10, 64)
	if err != nil || scheduleID <= 0 {
		return nil, &RedirectError{
			To:     "/schedules",
			Reason: msgScheduleRequired,
			Err:    ErrScheduleRequired,
		}
	}

	w := &Wizard{
		backend: backend,
		state: State{
			Step:       StepDetails,
			ScheduleID: scheduleID,
			SeatCount:  1,
			Passenger: models.PassengerDetails{
				Name:  user.FullName,
				Phone: user.PhoneNumber,
				Email: user.Email,
			},
			PaymentMethod:  models.PaymentMethodMomo,
			IdempotencyKey: newIdempotencyKey(),
		},
	}
	w.load(ctx)
	return w, nil
}

// Resume rebuilds a wizard from a stored snapshot. A submit cannot survive
// across requests, so the submitting flag is cleared.
func Resume(backend Backend, state State) *Wizard {
	state.Submitting = false
	if state.Step == "" {
		state.Step = StepDetails
	}
	if state.SeatCount < 1 {
		state.SeatCount = 1
	}
	if state.PaymentMethod == "" {
		state.PaymentMethod = models.PaymentMethodMomo
	}
	if state.IdempotencyKey == "" {
		state.IdempotencyKey = newIdempotencyKey()
	}
	return &Wizard{backend: backend, state: state}
}

// load fetches the schedule and its route for the trip summary
func (w *Wizard) load(ctx context.Context) {
	schedule, err := w.backend.GetSchedule(ctx, w.state.ScheduleID)
	if err != nil {
		w.state.LoadError = loadError(err)
		return
	}

	route := schedule.Route
	if route == nil {
		route, err = w.fetchRoute(ctx, schedule.RouteID)
		if err != nil {
			w.state.LoadError = loadError(err)
			return
		}
	}

	w.state.Schedule = schedule
	w.state.Route = route
	w.state.LoadError = nil
	w.clampSeats()
}

// fetchRoute looks the route up directly and falls back to the route
// embedded in the schedules-by-route listing
func (w *Wizard) fetchRoute(ctx context.Context, routeID int64) (*models.Route, error) {
	route, err := w.backend.GetRoute(ctx, routeID)
	if err == nil {
		return route, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	schedules, listErr := w.backend.ListSchedulesByRoute(ctx, routeID)
	if listErr != nil {
		return nil, err
	}
	for _, s := range schedules {
		if s.Route != nil && s.Route.ID == routeID {
			embedded := *s.Route
			return &embedded, nil
		}
	}
	return nil, err
}

func loadError(err error) *LoadError {
	if api.IsNotFound(err) {
		return &LoadError{NotFound: true, Detail: api.DetailOf(err, "Schedule not found")}
	}
	return &LoadError{Detail: msgLoadFailed}
}

// ============================================================================
// DETAILS STEP
// ============================================================================

// SetSeatCount parses and clamps a seat count edit
func (w *Wizard) SetSeatCount(raw string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(StepDetails); err != nil {
		return err
	}
	before := w.draft()
	w.state.SeatCount = parseSeats(raw)
	w.clampSeats()
	w.resetIfDraftChanged(before)
	return nil
}

// UpdateDetails applies the passenger details form
func (w *Wizard) UpdateDetails(form DetailsForm) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(StepDetails); err != nil {
		return err
	}
	before := w.draft()
	w.state.SeatCount = parseSeats(form.SeatCount)
	w.clampSeats()
	w.state.Passenger = models.PassengerDetails{
		Name:  form.Name,
		Phone: form.Phone,
		Email: form.Email,
	}
	w.state.SpecialRequests = form.SpecialRequests
	w.resetIfDraftChanged(before)
	return nil
}

// Next moves from details to payment when the passenger fields are filled
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(StepDetails); err != nil {
		return err
	}

	if missing := w.state.Passenger.MissingFields(); len(missing) > 0 {
		w.state.FieldErrors = missing
		w.state.Error = msgDetailsMissing
		return &ValidationError{Fields: missing, Message: msgDetailsMissing}
	}
	if w.state.Schedule.SoldOut() {
		w.state.FieldErrors = nil
		w.state.Error = msgSoldOut
		return ErrSoldOut
	}

	w.state.Passenger = trimPassenger(w.state.Passenger)
	w.state.FieldErrors = nil
	w.state.Error = ""
	w.state.Step = StepPayment
	return nil
}

// ============================================================================
// PAYMENT STEP
// ============================================================================

// Back returns from payment to details
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(StepPayment); err != nil {
		return err
	}
	w.state.FieldErrors = nil
	w.state.Error = ""
	w.state.Step = StepDetails
	return nil
}

// UpdatePayment applies the payment form
func (w *Wizard) UpdatePayment(form PaymentForm) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(StepPayment); err != nil {
		return err
	}

	method := models.PaymentMethod(strings.TrimSpace(form.Method))
	if method == "" {
		method = models.PaymentMethodMomo
	}
	if !method.Supported() {
		w.state.FieldErrors = []string{"payment_method"}
		w.state.Error = "Unsupported payment method"
		return &ValidationError{Fields: []string{"payment_method"}, Message: "Unsupported payment method"}
	}

	w.state.PaymentMethod = method
	w.state.MomoNumber = form.MomoNumber
	w.state.MomoName = form.MomoName
	return nil
}

// Submit creates the booking, pays for it and moves to confirmation. On
// failure the wizard stays in payment with the error set. A booking created
// by a failed attempt is reused on retry, so only the payment is re-issued,
// and a retry finding it already paid confirms without charging again.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.state.Step != StepPayment {
		w.mu.Unlock()
		return ErrInvalidTransition
	}
	if w.state.Submitting {
		w.mu.Unlock()
		return ErrSubmitInProgress
	}

	payReq := models.ProcessPaymentRequest{
		Amount:        w.state.Total(),
		PaymentMethod: w.state.PaymentMethod,
		PaymentDetails: map[string]string{
			models.MomoNumberKey: strings.TrimSpace(w.state.MomoNumber),
			models.MomoNameKey:   strings.TrimSpace(w.state.MomoName),
		},
	}
	if missing := payReq.MissingMethodFields(); len(missing) > 0 {
		w.state.FieldErrors = missing
		w.state.Error = msgPaymentMissing
		w.mu.Unlock()
		return &ValidationError{Fields: missing, Message: msgPaymentMissing}
	}

	bookReq := models.CreateBookingRequest{
		ScheduleID:       w.state.ScheduleID,
		SeatCount:        w.state.SeatCount,
		PassengerDetails: w.state.Passenger,
		SpecialRequests:  strings.TrimSpace(w.state.SpecialRequests),
		TotalAmount:      w.state.Total(),
		IdempotencyKey:   w.state.IdempotencyKey,
	}
	pending := w.state.PendingBooking

	w.state.Submitting = true
	w.state.FieldErrors = nil
	w.state.Error = ""
	w.mu.Unlock()

	created := pending
	if created == nil {
		var err error
		created, err = w.backend.CreateBooking(ctx, bookReq)
		if err != nil {
			w.fail(err)
			return err
		}

		w.mu.Lock()
		w.state.PendingBooking = created
		w.mu.Unlock()
	}

	if pending != nil {
		confirmation, err := w.settled(ctx, pending, payReq.PaymentMethod)
		if err != nil {
			w.fail(err)
			return err
		}
		if confirmation != nil {
			w.confirm(confirmation)
			return nil
		}
	}

	payReq.BookingID = created.ID
	payment, err := w.backend.ProcessPayment(ctx, payReq)
	if err != nil {
		w.fail(err)
		return err
	}

	confirmed := *created
	if payment.Succeeded() && !confirmed.IsPaid() {
		_ = confirmed.ConfirmPayment()
	}
	w.confirm(&Confirmation{Booking: confirmed, Payment: *payment})
	return nil
}

// settled returns the confirmation of a pending booking that a previous
// attempt already paid, nil when it still needs paying. A failed lookup
// falls through to the payment, which the API rejects for a paid booking.
func (w *Wizard) settled(ctx context.Context, pending *models.Booking, method models.PaymentMethod) (*Confirmation, error) {
	current, err := w.backend.GetBooking(ctx, pending.ID)
	if err != nil || !current.IsPaid() {
		return nil, nil
	}

	payments, err := w.backend.ListUserPayments(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if p.BookingID == current.ID && p.Succeeded() {
			return &Confirmation{Booking: *current, Payment: p}, nil
		}
	}
	return &Confirmation{
		Booking: *current,
		Payment: models.Payment{
			BookingID:     current.ID,
			Amount:        current.TotalAmount,
			PaymentMethod: method,
			Status:        models.PaymentRecordCompleted,
		},
	}, nil
}

func (w *Wizard) confirm(confirmation *Confirmation) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Confirmation = confirmation
	w.state.PendingBooking = nil
	w.state.Submitting = false
	w.state.Step = StepConfirmation
}

func (w *Wizard) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Submitting = false
	w.state.Error = api.DetailOf(err, msgSubmitFailed)
}

// ============================================================================
// DERIVED VALUES
// ============================================================================

// State returns a copy of the current snapshot
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Step returns the current step
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Step
}

// Total returns price x seat count
func (w *Wizard) Total() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Total()
}

// Confirmation returns the submitted booking and payment, nil before
func (w *Wizard) Confirmation() *Confirmation {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Confirmation == nil {
		return nil
	}
	c := *w.state.Confirmation
	return &c
}

// Loaded reports whether the trip summary is available
func (w *Wizard) Loaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.LoadError == nil && w.state.Schedule != nil
}

// ClearError dismisses the last error message
func (w *Wizard) ClearError() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Error = ""
	w.state.FieldErrors = nil
}

// ============================================================================
// HELPERS
// ============================================================================

// editable checks the step and that nothing is in flight. Callers hold w.mu.
func (w *Wizard) editable(step Step) error {
	if w.state.LoadError != nil || w.state.Schedule == nil {
		return ErrNotLoaded
	}
	if w.state.Submitting {
		return ErrSubmitInProgress
	}
	if w.state.Step != step {
		return ErrInvalidTransition
	}
	return nil
}

// clampSeats caps the seat count at the available seats. Callers hold w.mu.
func (w *Wizard) clampSeats() {
	if w.state.SeatCount < 1 {
		w.state.SeatCount = 1
	}
	if w.state.Schedule != nil {
		if avail := w.state.Schedule.AvailableSeats; avail > 0 && w.state.SeatCount > avail {
			w.state.SeatCount = avail
		}
	}
}

type draft struct {
	seats     int
	passenger models.PassengerDetails
	requests  string
}

func (w *Wizard) draft() draft {
	return draft{
		seats:     w.state.SeatCount,
		passenger: trimPassenger(w.state.Passenger),
		requests:  strings.TrimSpace(w.state.SpecialRequests),
	}
}

// resetIfDraftChanged drops a pending booking that no longer matches the
// draft and starts a new idempotency key. Callers hold w.mu.
func (w *Wizard) resetIfDraftChanged(before draft) {
	if w.draft() == before {
		return
	}
	w.state.PendingBooking = nil
	w.state.IdempotencyKey = newIdempotencyKey()
}

func parseSeats(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func trimPassenger(p models.PassengerDetails) models.PassengerDetails {
	return models.PassengerDetails{
		Name:  strings.TrimSpace(p.Name),
		Phone: strings.TrimSpace(p.Phone),
		Email: strings.TrimSpace(p.Email),
	}
}
