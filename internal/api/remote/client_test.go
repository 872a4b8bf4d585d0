package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T, register func(r *gin.Engine)) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	register(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	client, err := NewClient(Options{BaseURL: server.URL + "/", Timeout: time.Second, Logger: logger})
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "localhost:8000"})
	assert.Error(t, err)

	c, err := NewClient(Options{BaseURL: "http://localhost:8000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.baseURL)
}

func TestLoginSendsCredentials(t *testing.T) {
	client := setupServer(t, func(r *gin.Engine) {
		r.POST("/auth/login", func(c *gin.Context) {
			var req models.LoginRequest
			if err := c.ShouldBindJSON(&req); err != nil || req.Password != "password123" {
				c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect email or password"})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"access_token": "tok-123",
				"token_type":   "bearer",
				"user":         gin.H{"id": 1, "full_name": "John Doe", "email": req.Email, "role": "customer"},
			})
		})
	})

	t.Run("Success", func(t *testing.T) {
		resp, err := client.Login(context.Background(), models.LoginRequest{Email: "john@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.Equal(t, "tok-123", resp.AccessToken)
		assert.Equal(t, "John Doe", resp.User.FullName)
	})

	t.Run("Error detail", func(t *testing.T) {
		_, err := client.Login(context.Background(), models.LoginRequest{Email: "john@example.com", Password: "bad"})
		require.Error(t, err)
		assert.True(t, api.IsUnauthorized(err))
		assert.Equal(t, "Incorrect email or password", api.DetailOf(err, ""))
	})
}

func TestBearerTokenForwarded(t *testing.T) {
	client := setupServer(t, func(r *gin.Engine) {
		r.GET("/auth/me", func(c *gin.Context) {
			if c.GetHeader("Authorization") != "Bearer tok-123" {
				c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"id": 1, "email": "john@example.com", "role": "customer"})
		})
	})

	_, err := client.CurrentUser(context.Background())
	assert.True(t, api.IsUnauthorized(err))

	user, err := client.CurrentUser(api.WithToken(context.Background(), "tok-123"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
}

func TestCreateBookingIdempotencyHeader(t *testing.T) {
	var gotKey string
	var gotBody models.CreateBookingRequest
	client := setupServer(t, func(r *gin.Engine) {
		r.POST("/bookings", func(c *gin.Context) {
			gotKey = c.GetHeader(IdempotencyHeader)
			_ = c.ShouldBindJSON(&gotBody)
			c.JSON(http.StatusOK, gin.H{
				"id": 7, "booking_reference": "BK-00007", "seat_count": gotBody.SeatCount,
				"total_amount": gotBody.TotalAmount, "status": "pending", "payment_status": "pending",
			})
		})
	})

	booking, err := client.CreateBooking(context.Background(), models.CreateBookingRequest{
		ScheduleID:       1,
		SeatCount:        2,
		PassengerDetails: models.PassengerDetails{Name: "John", Phone: "0788123456", Email: "john@example.com"},
		TotalAmount:      30000,
		IdempotencyKey:   "draft-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "draft-key", gotKey)
	assert.Equal(t, int64(30000), gotBody.TotalAmount)
	assert.Equal(t, int64(1), gotBody.ScheduleID)
	assert.Equal(t, "BK-00007", booking.BookingReference)
}

func TestErrorMapping(t *testing.T) {
	client := setupServer(t, func(r *gin.Engine) {
		r.GET("/routes/:id", func(c *gin.Context) {
			switch c.Param("id") {
			case "1":
				c.JSON(http.StatusOK, gin.H{"id": 1, "origin": "", "destination": "Musanze"})
			case "2":
				c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"msg": "field required"}, {"msg": "value too large"}}})
			case "3":
				c.String(http.StatusInternalServerError, "oops")
			case "4":
				c.String(http.StatusOK, "not json")
			default:
				c.JSON(http.StatusNotFound, gin.H{"detail": "Route not found"})
			}
		})
	})
	ctx := context.Background()

	t.Run("Not found", func(t *testing.T) {
		_, err := client.GetRoute(ctx, 9)
		assert.True(t, api.IsNotFound(err))
		assert.Equal(t, "Route not found", api.DetailOf(err, ""))
	})

	t.Run("Invalid payload", func(t *testing.T) {
		_, err := client.GetRoute(ctx, 1)
		assert.Equal(t, http.StatusBadGateway, api.StatusOf(err))
	})

	t.Run("Validation list", func(t *testing.T) {
		_, err := client.GetRoute(ctx, 2)
		assert.Equal(t, http.StatusUnprocessableEntity, api.StatusOf(err))
		assert.Equal(t, "field required; value too large", api.DetailOf(err, ""))
	})

	t.Run("Body without detail", func(t *testing.T) {
		_, err := client.GetRoute(ctx, 3)
		assert.Equal(t, http.StatusInternalServerError, api.StatusOf(err))
		assert.Equal(t, "Internal Server Error", api.DetailOf(err, ""))
	})

	t.Run("Unreadable body", func(t *testing.T) {
		_, err := client.GetRoute(ctx, 4)
		assert.Equal(t, http.StatusBadGateway, api.StatusOf(err))
	})
}

func TestTransportFailure(t *testing.T) {
	client, err := NewClient(Options{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.ListRoutes(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, api.StatusOf(err))
}

func TestListsAndDeletes(t *testing.T) {
	var deleted string
	client := setupServer(t, func(r *gin.Engine) {
		r.GET("/schedules/route/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, []gin.H{
				{"id": 1, "route_id": 1, "bus_name": "Volcano Express", "available_seats": 32, "price": 15000},
			})
		})
		r.GET("/bookings/user", func(c *gin.Context) {
			c.JSON(http.StatusOK, nil)
		})
		r.DELETE("/bookings/:id", func(c *gin.Context) {
			deleted = c.Param("id")
			c.Status(http.StatusNoContent)
		})
	})
	ctx := api.WithToken(context.Background(), "tok")

	schedules, err := client.ListSchedulesByRoute(ctx, 1)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "Volcano Express", schedules[0].BusName)

	bookings, err := client.ListUserBookings(ctx)
	require.NoError(t, err)
	assert.NotNil(t, bookings)
	assert.Empty(t, bookings)

	require.NoError(t, client.CancelBooking(ctx, 12))
	assert.Equal(t, "12", deleted)
}
