package services

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	routes    []models.Route
	schedules []models.Schedule
	err       error
}

func (s *stubCatalog) ListRoutes(ctx context.Context) ([]models.Route, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.Route(nil), s.routes...), nil
}

func (s *stubCatalog) GetRoute(ctx context.Context, id int64) (*models.Route, error) {
	for i := range s.routes {
		if s.routes[i].ID == id {
			r := s.routes[i]
			return &r, nil
		}
	}
	return nil, api.NotFound("route", id)
}

func (s *stubCatalog) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.Schedule(nil), s.schedules...), nil
}

func (s *stubCatalog) ListSchedulesByRoute(ctx context.Context, routeID int64) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, sc := range s.schedules {
		if sc.RouteID == routeID {
			out = append(out, sc)
		}
	}
	return out, nil
}

func newStubCatalog() *stubCatalog {
	day := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	return &stubCatalog{
		routes: []models.Route{
			{ID: 1, Origin: "Kigali", Destination: "Musanze", BasePrice: 15000},
			{ID: 2, Origin: "Kigali", Destination: "Huye", BasePrice: 18500},
			{ID: 3, Origin: "Kigali", Destination: "Rubavu", BasePrice: 20000},
			{ID: 4, Origin: "Kigali", Destination: "Nyagatare", BasePrice: 12500},
			{ID: 5, Origin: "Musanze", Destination: "Rubavu", BasePrice: 10000},
		},
		schedules: []models.Schedule{
			{ID: 1, RouteID: 1, DepartureTime: day.Add(8 * time.Hour), ArrivalTime: day.Add(10 * time.Hour), AvailableSeats: 32, Price: 15000},
			{ID: 2, RouteID: 1, DepartureTime: day.Add(14 * time.Hour), ArrivalTime: day.Add(16 * time.Hour), AvailableSeats: 28, Price: 18000},
			{ID: 3, RouteID: 2, DepartureTime: day.AddDate(0, 0, 1).Add(9 * time.Hour), ArrivalTime: day.AddDate(0, 0, 1).Add(12 * time.Hour), AvailableSeats: 35, Price: 18500},
			{ID: 4, RouteID: 99, DepartureTime: day.Add(7 * time.Hour), ArrivalTime: day.Add(9 * time.Hour), AvailableSeats: 10, Price: 5000},
		},
	}
}

func newTestCatalogService(backend CatalogBackend) *CatalogService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewCatalogService(backend, logger, time.UTC)
}

func TestPopularRoutes(t *testing.T) {
	svc := newTestCatalogService(newStubCatalog())

	routes, err := svc.PopularRoutes(context.Background())
	require.NoError(t, err)
	require.Len(t, routes, PopularRouteCount)
	assert.Equal(t, int64(1), routes[0].ID)
	assert.Equal(t, int64(4), routes[3].ID)

	t.Run("Backend failure", func(t *testing.T) {
		stub := newStubCatalog()
		stub.err = api.NewError(http.StatusServiceUnavailable, "down")
		_, err := newTestCatalogService(stub).PopularRoutes(context.Background())
		assert.Equal(t, http.StatusServiceUnavailable, api.StatusOf(err))
	})
}

func TestSearchRoutes(t *testing.T) {
	svc := newTestCatalogService(newStubCatalog())
	ctx := context.Background()

	tests := []struct {
		term     string
		expected []int64
	}{
		{"", []int64{1, 2, 3, 4, 5}},
		{"rubavu", []int64{3, 5}},
		{"  MUSANZE ", []int64{1, 5}},
		{"kig", []int64{1, 2, 3, 4}},
		{"nairobi", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			routes, err := svc.SearchRoutes(ctx, tt.term)
			require.NoError(t, err)
			ids := []int64{}
			for _, r := range routes {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestListSchedules(t *testing.T) {
	svc := newTestCatalogService(newStubCatalog())
	ctx := context.Background()

	ids := func(l *ScheduleListing) []int64 {
		out := []int64{}
		for _, s := range l.Schedules {
			out = append(out, s.ID)
		}
		return out
	}

	t.Run("No filter hides unknown routes", func(t *testing.T) {
		listing, err := svc.ListSchedules(ctx, ScheduleFilter{})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3}, ids(listing))
		for _, s := range listing.Schedules {
			require.NotNil(t, s.Route)
			assert.Equal(t, s.RouteID, s.Route.ID)
		}
		assert.Equal(t, []string{"Kigali", "Musanze"}, listing.Origins)
		assert.Equal(t, []string{"Musanze", "Huye", "Rubavu", "Nyagatare"}, listing.Destinations)
	})

	t.Run("Route id", func(t *testing.T) {
		listing, err := svc.ListSchedules(ctx, ParseScheduleFilter("1", "", "", ""))
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids(listing))
		require.NotNil(t, listing.SelectedRoute)
		assert.Equal(t, "Musanze", listing.SelectedRoute.Destination)
	})

	t.Run("Destination substring", func(t *testing.T) {
		listing, err := svc.ListSchedules(ctx, ParseScheduleFilter("", "kigali", "hu", ""))
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, ids(listing))
	})

	t.Run("Date", func(t *testing.T) {
		listing, err := svc.ListSchedules(ctx, ParseScheduleFilter("", "", "", "2026-10-20"))
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids(listing))
	})

	t.Run("Unknown route id matches nothing", func(t *testing.T) {
		listing, err := svc.ListSchedules(ctx, ParseScheduleFilter("99", "", "", ""))
		require.NoError(t, err)
		assert.Empty(t, listing.Schedules)
		assert.Nil(t, listing.SelectedRoute)
	})
}

func TestParseScheduleFilter(t *testing.T) {
	f := ParseScheduleFilter("abc", " Kigali ", "", "not-a-date")
	assert.Equal(t, int64(0), f.RouteID)
	assert.Equal(t, "Kigali", f.Origin)
	assert.True(t, f.Date.IsZero())
	assert.Equal(t, "", f.DateValue())
	assert.False(t, f.IsEmpty())

	assert.True(t, ParseScheduleFilter("", "", "", "").IsEmpty())
	assert.Equal(t, "2026-10-21", ParseScheduleFilter("", "", "", "2026-10-21").DateValue())
}

func TestGetRouteDetail(t *testing.T) {
	svc := newTestCatalogService(newStubCatalog())

	detail, err := svc.GetRouteDetail(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Musanze", detail.Route.Destination)
	require.Len(t, detail.Schedules, 2)
	assert.Equal(t, detail.Route, detail.Schedules[0].Route)

	_, err = svc.GetRouteDetail(context.Background(), 42)
	assert.True(t, api.IsNotFound(err))
}

func paidBooking() *models.Booking {
	departure := time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)
	return &models.Booking{
		ID:               7,
		UserID:           1,
		BookingReference: "BK-12346",
		Schedule: models.BookingSchedule{
			ID:            1,
			DepartureTime: departure,
			ArrivalTime:   departure.Add(150 * time.Minute),
			BusName:       "Volcano Express",
			Price:         15000,
			Route:         models.Route{ID: 1, Origin: "Kigali", Destination: "Musanze"},
		},
		SeatCount:        2,
		PassengerDetails: models.PassengerDetails{Name: "John Doe", Phone: "+250788123456", Email: "john@example.com"},
		TotalAmount:      30000,
		Status:           models.BookingStatusConfirmed,
		PaymentStatus:    models.PaymentStatusPaid,
	}
}

func TestRenderTicket(t *testing.T) {
	svc := NewTicketService("BusTicket", time.UTC)

	t.Run("Paid booking", func(t *testing.T) {
		payment := &models.Payment{ID: 1, BookingID: 7, Amount: 30000, Status: models.PaymentRecordCompleted, TransactionID: "MOMO-ABC"}
		data, filename, err := svc.Render(paidBooking(), payment)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
		assert.Equal(t, "ETICKET_BK-12346_John_Doe.pdf", filename)
	})

	t.Run("Unpaid booking", func(t *testing.T) {
		b := paidBooking()
		b.PaymentStatus = models.PaymentStatusPending
		b.Status = models.BookingStatusPending
		_, _, err := svc.Render(b, nil)
		assert.ErrorIs(t, err, ErrTicketUnavailable)
	})

	t.Run("Cancelled booking", func(t *testing.T) {
		b := paidBooking()
		b.Status = models.BookingStatusCancelled
		assert.False(t, svc.Available(b))
		_, _, err := svc.Render(b, nil)
		assert.ErrorIs(t, err, ErrTicketUnavailable)
	})
}
