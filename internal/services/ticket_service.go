package services

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/smarttransit/busticket-web/internal/utils"
)

// ErrTicketUnavailable means the booking is not paid or was cancelled
var ErrTicketUnavailable = errors.New("e-ticket is only available for paid bookings")

// TicketService renders PDF e-tickets
type TicketService struct {
	issuer   string
	location *time.Location
	now      func() time.Time
}

// NewTicketService creates a new ticket service. Times are printed in loc.
func NewTicketService(issuer string, loc *time.Location) *TicketService {
	if loc == nil {
		loc = time.Local
	}
	return &TicketService{
		issuer:   issuer,
		location: loc,
		now:      time.Now,
	}
}

// Available reports whether an e-ticket can be issued for the booking
func (s *TicketService) Available(b *models.Booking) bool {
	return b != nil && b.IsPaid() && b.Status != models.BookingStatusCancelled
}

// Render builds the e-ticket of a paid booking. payment may be nil when the
// transaction is unknown. It returns the document and its file name.
func (s *TicketService) Render(b *models.Booking, payment *models.Payment) ([]byte, string, error) {
	if !s.Available(b) {
		return nil, "", ErrTicketUnavailable
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+b.BookingReference, false)
	pdf.SetCreator(s.issuer, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(0, 10, s.issuer+" E-TICKET")
	pdf.Ln(14)

	route := b.Schedule.Route
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, fmt.Sprintf("%s to %s", safe(route.Origin, "-"), safe(route.Destination, "-")))
	pdf.Ln(12)

	transaction := "-"
	if payment != nil && payment.Succeeded() {
		transaction = payment.TransactionID
	}

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking Reference : %s", b.BookingReference),
		fmt.Sprintf("Passenger         : %s", safe(b.PassengerDetails.Name, "-")),
		fmt.Sprintf("Phone             : %s", safe(b.PassengerDetails.Phone, "-")),
		fmt.Sprintf("Email             : %s", safe(b.PassengerDetails.Email, "-")),
		fmt.Sprintf("Departure         : %s", s.formatTime(b.Schedule.DepartureTime)),
		fmt.Sprintf("Arrival           : %s", s.formatTime(b.Schedule.ArrivalTime)),
		fmt.Sprintf("Bus               : %s", safe(b.Schedule.BusName, "Standard Bus")),
		fmt.Sprintf("Seats             : %d", b.SeatCount),
		fmt.Sprintf("Total Paid        : %s", utils.FormatRWF(b.TotalAmount)),
		fmt.Sprintf("Transaction       : %s", transaction),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	if requests := strings.TrimSpace(b.SpecialRequests); requests != "" {
		pdf.Ln(3)
		pdf.MultiCell(0, 6, "Special requests: "+requests, "", "", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, fmt.Sprintf(
		"Valid for %d seat(s). Please present this ticket and a photo ID when boarding. Issued %s.",
		b.SeatCount, s.formatTime(s.now()),
	), "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render e-ticket: %w", err)
	}

	filename := fmt.Sprintf("ETICKET_%s_%s.pdf",
		safeFilenamePart(b.BookingReference), safeFilenamePart(b.PassengerDetails.Name))
	return buf.Bytes(), filename, nil
}

func (s *TicketService) formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(s.location).Format("Mon 02 Jan 2006, 15:04")
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
