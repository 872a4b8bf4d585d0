package mock

import (
	"time"

	"github.com/smarttransit/busticket-web/internal/models"
)

// Seed credentials of the demo customer
const (
	SeedCustomerEmail    = "john@example.com"
	SeedCustomerPassword = "password123"
)

var seedRoutes = []models.Route{
	{ID: 1, Origin: "Kigali", Destination: "Musanze", Distance: 107, Duration: 2.5, Description: "Scenic route through the hills", BasePrice: 15000},
	{ID: 2, Origin: "Kigali", Destination: "Huye", Distance: 133, Duration: 3, Description: "Southern route with beautiful landscapes", BasePrice: 18500},
	{ID: 3, Origin: "Kigali", Destination: "Rubavu", Distance: 157, Duration: 3.5, Description: "Western route to Lake Kivu", BasePrice: 20000},
	{ID: 4, Origin: "Kigali", Destination: "Nyagatare", Distance: 94, Duration: 2, Description: "Eastern route through the plains", BasePrice: 12500},
	{ID: 5, Origin: "Musanze", Destination: "Rubavu", Distance: 62, Duration: 1.5, Description: "Northern scenic route", BasePrice: 10000},
}

type seedSchedule struct {
	routeID   int64
	dayOffset int
	depart    time.Duration // from midnight
	travel    time.Duration
	bus       string
	seats     int
	price     int64
}

var seedSchedules = []seedSchedule{
	{routeID: 1, dayOffset: 1, depart: 8 * time.Hour, travel: 150 * time.Minute, bus: "Volcano Express", seats: 32, price: 15000},
	{routeID: 1, dayOffset: 1, depart: 14 * time.Hour, travel: 150 * time.Minute, bus: "Virunga Deluxe", seats: 28, price: 18000},
	{routeID: 2, dayOffset: 2, depart: 9 * time.Hour, travel: 3 * time.Hour, bus: "Southern Comfort", seats: 35, price: 18500},
	{routeID: 3, dayOffset: 3, depart: 7*time.Hour + 30*time.Minute, travel: 210 * time.Minute, bus: "Lake Express", seats: 30, price: 20000},
}

// seed loads the reference dataset. Schedules are placed in the days after
// Now so the demo always has bookable departures.
func (b *Backend) seed(opts Options) error {
	now := b.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	customerHash, err := b.hashPassword(SeedCustomerPassword)
	if err != nil {
		return err
	}
	b.nextUserID++
	b.users[b.nextUserID] = &userRecord{
		user: models.User{
			ID:          b.nextUserID,
			FullName:    "John Doe",
			Email:       SeedCustomerEmail,
			PhoneNumber: "+250788123456",
			Role:        models.RoleCustomer,
			CreatedAt:   today.AddDate(0, -1, 0),
		},
		passwordHash: customerHash,
	}
	customerID := b.nextUserID

	if opts.SeedAdmin && opts.AdminEmail != "" && opts.AdminPass != "" {
		adminHash, err := b.hashPassword(opts.AdminPass)
		if err != nil {
			return err
		}
		b.nextUserID++
		b.users[b.nextUserID] = &userRecord{
			user: models.User{
				ID:          b.nextUserID,
				FullName:    "Station Admin",
				Email:       opts.AdminEmail,
				PhoneNumber: "+250722000000",
				Role:        models.RoleAdmin,
				CreatedAt:   today.AddDate(0, -2, 0),
			},
			passwordHash: adminHash,
		}
	}

	for i := range seedRoutes {
		route := seedRoutes[i]
		b.routes[route.ID] = &route
		if route.ID > b.nextRouteID {
			b.nextRouteID = route.ID
		}
	}

	for _, s := range seedSchedules {
		b.nextScheduleID++
		departure := today.AddDate(0, 0, s.dayOffset).Add(s.depart)
		b.schedules[b.nextScheduleID] = &models.Schedule{
			ID:             b.nextScheduleID,
			RouteID:        s.routeID,
			DepartureTime:  departure,
			ArrivalTime:    departure.Add(s.travel),
			BusName:        s.bus,
			AvailableSeats: s.seats,
			Price:          s.price,
		}
	}

	b.nextReference = 12344
	seedBookings := []struct {
		scheduleID     int64
		seats          int
		status         models.BookingStatus
		paymentStatus  models.PaymentStatus
		createdDaysAgo int
	}{
		{scheduleID: 1, seats: 2, status: models.BookingStatusConfirmed, paymentStatus: models.PaymentStatusPaid, createdDaysAgo: 5},
		{scheduleID: 3, seats: 1, status: models.BookingStatusPending, paymentStatus: models.PaymentStatusPending, createdDaysAgo: 4},
	}
	customer := b.users[customerID].user
	for _, sb := range seedBookings {
		schedule := b.schedules[sb.scheduleID]
		b.nextBookingID++
		booking := &models.Booking{
			ID:               b.nextBookingID,
			UserID:           customerID,
			Schedule:         b.snapshot(schedule),
			BookingReference: b.newReference(),
			SeatCount:        sb.seats,
			PassengerDetails: models.PassengerDetails{Name: customer.FullName, Phone: customer.PhoneNumber, Email: customer.Email},
			TotalAmount:      schedule.TotalFor(sb.seats),
			Status:           sb.status,
			PaymentStatus:    sb.paymentStatus,
			CreatedAt:        today.AddDate(0, 0, -sb.createdDaysAgo),
		}
		b.bookings[booking.ID] = booking

		if booking.IsPaid() {
			b.nextPaymentID++
			b.payments[b.nextPaymentID] = &models.Payment{
				ID:             b.nextPaymentID,
				BookingID:      booking.ID,
				Amount:         booking.TotalAmount,
				PaymentMethod:  models.PaymentMethodMomo,
				PaymentDetails: map[string]string{models.MomoNumberKey: "0788123456", models.MomoNameKey: customer.FullName},
				Status:         models.PaymentRecordCompleted,
				TransactionID:  newTransactionID(),
				CreatedAt:      booking.CreatedAt,
			}
		}
	}

	return nil
}
