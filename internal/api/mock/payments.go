package mock

import (
	"context"
	"net/http"
	"sort"

	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/models"
)

// ProcessPayment simulates a successful mobile money charge and marks the
// booking paid
func (b *Backend) ProcessPayment(ctx context.Context, req models.ProcessPaymentRequest) (*models.Payment, error) {
	if err := b.simulate(ctx, OpProcessPayment); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bk, err := b.ownedBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if bk.Status == models.BookingStatusCancelled {
		return nil, api.NewError(http.StatusBadRequest, "Booking is cancelled")
	}
	if bk.IsPaid() {
		return nil, api.NewError(http.StatusConflict, "Booking already paid")
	}
	if req.Amount != bk.TotalAmount {
		return nil, api.Errorf(http.StatusBadRequest, "amount %d does not match booking total %d", req.Amount, bk.TotalAmount)
	}

	details := make(map[string]string, len(req.PaymentDetails))
	for k, v := range req.PaymentDetails {
		details[k] = v
	}

	b.nextPaymentID++
	payment := &models.Payment{
		ID:             b.nextPaymentID,
		BookingID:      bk.ID,
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		PaymentDetails: details,
		Status:         models.PaymentRecordCompleted,
		TransactionID:  newTransactionID(),
		CreatedAt:      b.now(),
	}
	b.payments[payment.ID] = payment

	if err := bk.ConfirmPayment(); err != nil {
		return nil, api.NewError(http.StatusConflict, err.Error())
	}

	b.logger.WithFields(map[string]interface{}{
		"booking_id":     bk.ID,
		"transaction_id": payment.TransactionID,
	}).Debug("mock backend: payment processed")

	processed := *payment
	return &processed, nil
}

// GetPayment returns a payment of the caller
func (b *Backend) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	if err := b.simulate(ctx, ""); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := b.payments[id]
	if !ok {
		return nil, api.NotFound("Payment", id)
	}
	if bk, ok := b.bookings[p.BookingID]; !ok || (bk.UserID != rec.user.ID && !rec.user.IsAdmin()) {
		return nil, api.NotFound("Payment", id)
	}
	payment := *p
	return &payment, nil
}

// ListUserPayments returns the caller's payments, newest first
func (b *Backend) ListUserPayments(ctx context.Context) ([]models.Payment, error) {
	if err := b.simulate(ctx, OpUserPayments); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	payments := make([]models.Payment, 0)
	for _, p := range b.payments {
		if bk, ok := b.bookings[p.BookingID]; ok && bk.UserID == rec.user.ID {
			payments = append(payments, *p)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID > payments[j].ID })
	return payments, nil
}
