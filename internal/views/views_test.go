package views

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smarttransit/busticket-web/internal/booking"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/smarttransit/busticket-web/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(time.UTC)
	require.NoError(t, err)
	return r
}

func renderPage(t *testing.T, r *Renderer, name string, page Page) string {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, r.Instance(name, page).Render(rec))
	return rec.Body.String()
}

func TestNewRendererParsesEveryPage(t *testing.T) {
	r := newTestRenderer(t)

	for _, name := range []string{
		"home", "login", "register", "routes", "route_detail", "schedules",
		"bookings", "booking_detail", "booking_new", "booking_confirmation",
		"admin_dashboard", "admin_routes", "admin_schedules", "not_found", "error",
	} {
		assert.True(t, r.Has(name), "missing page %s", name)
	}
	assert.False(t, r.Has("layout"))
}

func TestRenderLayout(t *testing.T) {
	r := newTestRenderer(t)

	t.Run("Anonymous", func(t *testing.T) {
		body := renderPage(t, r, "not_found", Page{Title: "Page Not Found"})
		assert.Contains(t, body, "<title>Page Not Found | BusTicket</title>")
		assert.Contains(t, body, "The page you are looking for does not exist.")
		assert.Contains(t, body, `href="/login"`)
		assert.NotContains(t, body, `action="/logout"`)
	})

	t.Run("Signed in admin with flash", func(t *testing.T) {
		body := renderPage(t, r, "not_found", Page{
			User:  &models.User{ID: 2, Email: "admin@busticket.rw", Role: models.RoleAdmin},
			Flash: []session.Flash{{Kind: session.FlashSuccess, Message: "Welcome back, Station!"}},
		})
		assert.Contains(t, body, "admin@busticket.rw")
		assert.Contains(t, body, `href="/admin"`)
		assert.Contains(t, body, "alert alert-success")
		assert.Contains(t, body, "Welcome back, Station!")
	})
}

func TestRenderHome(t *testing.T) {
	r := newTestRenderer(t)

	body := renderPage(t, r, "home", Page{Content: struct {
		Routes []models.Route
		Error  string
	}{
		Routes: []models.Route{{ID: 1, Origin: "Kigali", Destination: "Musanze", Distance: 107, BasePrice: 15000}},
	}})
	assert.Contains(t, body, "Kigali to Musanze")
	assert.Contains(t, body, "From 15,000 RWF")
	assert.Contains(t, body, `href="/routes/1"`)
}

func TestRenderWizard(t *testing.T) {
	r := newTestRenderer(t)
	departure := time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)

	state := &booking.State{
		Step:       booking.StepDetails,
		ScheduleID: 1,
		Schedule: &models.Schedule{
			ID: 1, RouteID: 1, DepartureTime: departure, ArrivalTime: departure.Add(150 * time.Minute),
			BusName: "Volcano Express", AvailableSeats: 32, Price: 15000,
		},
		Route:       &models.Route{ID: 1, Origin: "Kigali", Destination: "Musanze"},
		SeatCount:   2,
		Passenger:   models.PassengerDetails{Name: "John Doe", Email: "john@example.com"},
		Error:       "Please fill in all required fields",
		FieldErrors: []string{"phone"},
	}
	content := struct {
		State    *booking.State
		MaxSeats int
	}{State: state, MaxSeats: 32}

	t.Run("Details step", func(t *testing.T) {
		body := renderPage(t, r, "booking_new", Page{Content: content})
		assert.Contains(t, body, `action="/bookings/new/details"`)
		assert.Contains(t, body, "Phone number is required")
		assert.NotContains(t, body, "Passenger name is required")
		assert.Contains(t, body, "30,000 RWF")
		assert.Contains(t, body, `max="32"`)
	})

	t.Run("Payment step", func(t *testing.T) {
		payment := *state
		payment.Step = booking.StepPayment
		payment.Error = ""
		payment.FieldErrors = nil
		content.State = &payment

		body := renderPage(t, r, "booking_new", Page{CSRF: "tok-123", Content: content})
		assert.Contains(t, body, `action="/bookings/new/payment"`)
		assert.Contains(t, body, `formaction="/bookings/new/back"`)
		assert.Contains(t, body, `<input type="hidden" name="csrf_token" value="tok-123">`)
		assert.Contains(t, body, `<meta name="csrf-token" content="tok-123">`)
		assert.NotContains(t, body, `action="/bookings/new/details"`)
	})

	t.Run("Load error", func(t *testing.T) {
		content.State = &booking.State{
			ScheduleID: 99,
			LoadError:  &booking.LoadError{NotFound: true, Detail: "schedule 99 not found"},
		}
		body := renderPage(t, r, "booking_new", Page{Content: content})
		assert.Contains(t, body, "schedule 99 not found")
		assert.Contains(t, body, "Back to Schedules")
	})
}

func TestInstanceUnknownPage(t *testing.T) {
	r := newTestRenderer(t)
	rec := httptest.NewRecorder()
	require.NoError(t, r.Instance("missing", nil).Render(rec))
	assert.Contains(t, rec.Body.String(), `page "missing" not found`)
}

func TestStaticFS(t *testing.T) {
	f, err := StaticFS().Open("app.css")
	require.NoError(t, err)
	defer f.Close()

	_, err = StaticFS().Open("app.js")
	assert.NoError(t, err)
}

func TestTemplateHelpers(t *testing.T) {
	assert.Equal(t, "badge badge-green", StatusBadge(models.BookingStatusConfirmed))
	assert.Equal(t, "badge badge-red", StatusBadge(models.BookingStatusCancelled))
	assert.Equal(t, "badge badge-gray", StatusBadge("unknown"))

	assert.Equal(t, "btn btn-primary", buttonClass(nil, nil))
	assert.Equal(t, "btn btn-accent btn-block", buttonClass("accent", true))

	assert.Equal(t, "alert alert-error", alertClass(session.FlashError))
	assert.Equal(t, "alert alert-info", alertClass(nil))

	assert.Equal(t, "107", formatNumber(107))
	assert.Equal(t, "2.5", formatNumber(2.5))
	assert.Equal(t, "Completed", titleCase(models.PaymentRecordCompleted))

	_, err := dict("odd")
	assert.Error(t, err)
	m, err := dict("Label", "Go", "FullWidth", true)
	require.NoError(t, err)
	assert.Equal(t, "Go", m["Label"])

	assert.Equal(t, []int{1, 2, 3}, seq(3))
	assert.Equal(t, "078 812 3456", phones.Display("+250788123456"))
}
