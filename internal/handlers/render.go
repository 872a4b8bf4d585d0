package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/middleware"
	"github.com/smarttransit/busticket-web/internal/views"
)

// Page templates
const (
	pageHome                = "home"
	pageLogin               = "login"
	pageRegister            = "register"
	pageRoutes              = "routes"
	pageRouteDetail         = "route_detail"
	pageSchedules           = "schedules"
	pageBookings            = "bookings"
	pageBookingDetail       = "booking_detail"
	pageBookingNew          = "booking_new"
	pageBookingConfirmation = "booking_confirmation"
	pageAdminDashboard      = "admin_dashboard"
	pageAdminRoutes         = "admin_routes"
	pageAdminSchedules      = "admin_schedules"
	pageNotFound            = "not_found"
	pageError               = "error"
)

// ErrorPage is the content of the generic error page
type ErrorPage struct {
	Message string
}

// render wraps content in the layout with the viewer and pending flash
// messages. Popping the flash here clears it from the session.
func render(c *gin.Context, status int, name, title, nav string, content interface{}) {
	sess := middleware.GetSession(c)
	c.HTML(status, name, views.Page{
		Title:   title,
		Nav:     nav,
		User:    middleware.CurrentUser(c),
		Flash:   sess.PopFlash(),
		CSRF:    sess.CSRFToken,
		Content: content,
	})
}

// redirectWithFlash queues a message and sends the browser to location.
// POST handlers answer with 303 so the follow-up is a GET.
func redirectWithFlash(c *gin.Context, kind, message, location string) {
	if message != "" {
		middleware.GetSession(c).AddFlash(kind, message)
	}
	status := http.StatusFound
	if c.Request.Method != http.MethodGet {
		status = http.StatusSeeOther
	}
	c.Redirect(status, location)
}

func renderNotFound(c *gin.Context) {
	render(c, http.StatusNotFound, pageNotFound, "Page Not Found", "", nil)
}

func renderError(c *gin.Context, err error, fallback string) {
	render(c, errorStatus(err), pageError, "Error", "", ErrorPage{Message: api.DetailOf(err, fallback)})
}

// errorStatus picks the response status for a failed backend call
func errorStatus(err error) int {
	if status := api.StatusOf(err); status >= 400 {
		return status
	}
	return http.StatusInternalServerError
}

// paramID parses a positive numeric path parameter
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// NotFound handles unmatched paths
func NotFound(c *gin.Context) {
	renderNotFound(c)
}
