package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// PaymentMethod identifies how a booking is paid
type PaymentMethod string

// PaymentMethodMomo is MTN Mobile Money, the only supported method
const PaymentMethodMomo PaymentMethod = "momo"

// Mobile money payment detail keys
const (
	MomoNumberKey = "momo_number"
	MomoNameKey   = "momo_name"
)

// PaymentMethods lists the selectable payment methods in display order
var PaymentMethods = []PaymentMethod{PaymentMethodMomo}

// Label returns the human readable method name
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMethodMomo:
		return "MTN Mobile Money"
	default:
		return string(m)
	}
}

// Supported reports whether the method is accepted
func (m PaymentMethod) Supported() bool {
	for _, pm := range PaymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}

// PaymentRecordStatus represents the status of a payment record
type PaymentRecordStatus string

const (
	PaymentRecordPending   PaymentRecordStatus = "pending"
	PaymentRecordCompleted PaymentRecordStatus = "completed"
	PaymentRecordFailed    PaymentRecordStatus = "failed"
)

// Payment is a financial transaction associated with exactly one booking
type Payment struct {
	ID             int64               `json:"id"`
	BookingID      int64               `json:"booking_id"`
	Amount         int64               `json:"amount"`
	PaymentMethod  PaymentMethod       `json:"payment_method"`
	PaymentDetails map[string]string   `json:"payment_details,omitempty"`
	Status         PaymentRecordStatus `json:"status"`
	TransactionID  string              `json:"transaction_id"`
	CreatedAt      time.Time           `json:"created_at"`
}

// ProcessPaymentRequest is the payload of the process-payment call
type ProcessPaymentRequest struct {
	BookingID      int64             `json:"booking_id"`
	Amount         int64             `json:"amount"`
	PaymentMethod  PaymentMethod     `json:"payment_method"`
	PaymentDetails map[string]string `json:"payment_details"`
}

// MissingMethodFields lists the method-specific fields that are empty
func (r *ProcessPaymentRequest) MissingMethodFields() []string {
	var missing []string
	if r.PaymentMethod == PaymentMethodMomo {
		if strings.TrimSpace(r.PaymentDetails[MomoNumberKey]) == "" {
			missing = append(missing, MomoNumberKey)
		}
		if strings.TrimSpace(r.PaymentDetails[MomoNameKey]) == "" {
			missing = append(missing, MomoNameKey)
		}
	}
	return missing
}

// Validate validates the process payment request
func (r *ProcessPaymentRequest) Validate() error {
	if r.BookingID <= 0 {
		return errors.New("booking_id is required")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	if !r.PaymentMethod.Supported() {
		return fmt.Errorf("unsupported payment method %q", r.PaymentMethod)
	}
	if missing := r.MissingMethodFields(); len(missing) > 0 {
		return fmt.Errorf("payment details missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Validate checks a payment received from the backend
func (p *Payment) Validate() error {
	if p.ID <= 0 {
		return errors.New("payment id must be positive")
	}
	if p.BookingID <= 0 {
		return fmt.Errorf("payment %d has no booking", p.ID)
	}
	switch p.Status {
	case PaymentRecordPending, PaymentRecordCompleted, PaymentRecordFailed:
	default:
		return fmt.Errorf("payment %d has unknown status %q", p.ID, p.Status)
	}
	if p.Status == PaymentRecordCompleted && p.TransactionID == "" {
		return fmt.Errorf("completed payment %d has no transaction id", p.ID)
	}
	return nil
}

// Succeeded reports whether the payment completed
func (p *Payment) Succeeded() bool {
	return p.Status == PaymentRecordCompleted
}
