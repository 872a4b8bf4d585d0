package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/middleware"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/smarttransit/busticket-web/internal/session"
)

// formTimeLayout is the value format of datetime-local inputs
const formTimeLayout = "2006-01-02T15:04"

// AdminBackend is the part of the data-access contract the admin pages use
type AdminBackend interface {
	api.AdminService
	api.RouteService
	ListSchedules(ctx context.Context) ([]models.Schedule, error)
	CreateSchedule(ctx context.Context, in models.ScheduleInput) (*models.Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) error
}

// AdminHandler handles the admin dashboard and reference data management
type AdminHandler struct {
	backend  AdminBackend
	location *time.Location
	logger   *logrus.Logger
}

// NewAdminHandler creates a new admin handler. Form times are read in loc.
func NewAdminHandler(backend AdminBackend, loc *time.Location, logger *logrus.Logger) *AdminHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AdminHandler{
		backend:  backend,
		location: loc,
		logger:   logger,
	}
}

// DashboardPage is the content of the admin dashboard
type DashboardPage struct {
	Stats         *models.DashboardStats
	Users         []models.User
	CurrentUserID int64
	Error         string
}

// RouteForm holds the raw fields of the new route form
type RouteForm struct {
	Origin      string
	Destination string
	BasePrice   string
	Distance    string
	Duration    string
	Description string
}

// ScheduleForm holds the raw fields of the new schedule form
type ScheduleForm struct {
	RouteID        string
	DepartureTime  string
	ArrivalTime    string
	BusName        string
	AvailableSeats string
	Price          string
}

// AdminRoutesPage is the content of the route management page
type AdminRoutesPage struct {
	Routes    []models.Route
	Form      RouteForm
	FormError string
	Error     string
}

// AdminSchedulesPage is the content of the schedule management page
type AdminSchedulesPage struct {
	Schedules []models.Schedule
	Routes    []models.Route
	Form      ScheduleForm
	FormError string
	Error     string
}

// ============================================================================
// DASHBOARD
// ============================================================================

// Dashboard handles GET /admin
func (h *AdminHandler) Dashboard(c *gin.Context) {
	sess := middleware.GetSession(c)
	ctx := sess.Context(c.Request.Context())
	page := DashboardPage{CurrentUserID: sess.User.ID}

	stats, err := h.backend.GetDashboardStats(ctx)
	if err == nil {
		page.Stats = stats
		page.Users, err = h.backend.ListUsers(ctx)
	}
	if err != nil {
		h.logger.WithError(err).Warn("Failed to load admin dashboard")
		page.Error = api.DetailOf(err, "Failed to load dashboard data. Please try again.")
		render(c, errorStatus(err), pageAdminDashboard, "Admin", "admin", page)
		return
	}

	render(c, http.StatusOK, pageAdminDashboard, "Admin", "admin", page)
}

// UpdateUserRole handles POST /admin/users/:id/role
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		renderNotFound(c)
		return
	}

	sess := middleware.GetSession(c)
	role := models.Role(strings.TrimSpace(c.PostForm("role")))
	if !role.Valid() {
		redirectWithFlash(c, session.FlashError, "Invalid role", "/admin")
		return
	}
	if id == sess.User.ID {
		redirectWithFlash(c, session.FlashError, "You cannot change your own role", "/admin")
		return
	}

	user, err := h.backend.UpdateUserRole(sess.Context(c.Request.Context()), id, role)
	if err != nil {
		h.logger.WithError(err).WithField("target_user_id", id).Warn("Failed to update user role")
		redirectWithFlash(c, session.FlashError, api.DetailOf(err, "Failed to update role. Please try again."), "/admin")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"admin_id":       sess.User.ID,
		"target_user_id": user.ID,
		"role":           user.Role,
	}).Info("User role updated")
	redirectWithFlash(c, session.FlashSuccess, fmt.Sprintf("%s is now a %s", user.FullName, user.Role), "/admin")
}

// ============================================================================
// ROUTES
// ============================================================================

// Routes handles GET /admin/routes
func (h *AdminHandler) Routes(c *gin.Context) {
	h.renderRoutes(c, http.StatusOK, AdminRoutesPage{})
}

func (h *AdminHandler) renderRoutes(c *gin.Context, status int, page AdminRoutesPage) {
	ctx := middleware.GetSession(c).Context(c.Request.Context())

	routes, err := h.backend.ListRoutes(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to load routes")
		page.Error = api.DetailOf(err, "Failed to load routes. Please try again.")
		status = errorStatus(err)
	}
	page.Routes = routes
	render(c, status, pageAdminRoutes, "Manage Routes", "admin", page)
}

// CreateRoute handles POST /admin/routes
func (h *AdminHandler) CreateRoute(c *gin.Context) {
	form := RouteForm{
		Origin:      strings.TrimSpace(c.PostForm("origin")),
		Destination: strings.TrimSpace(c.PostForm("destination")),
		BasePrice:   strings.TrimSpace(c.PostForm("base_price")),
		Distance:    strings.TrimSpace(c.PostForm("distance")),
		Duration:    strings.TrimSpace(c.PostForm("duration")),
		Description: strings.TrimSpace(c.PostForm("description")),
	}

	in, err := form.input()
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		h.renderRoutes(c, http.StatusBadRequest, AdminRoutesPage{Form: form, FormError: capitalize(err.Error())})
		return
	}

	ctx := middleware.GetSession(c).Context(c.Request.Context())
	route, err := h.backend.CreateRoute(ctx, in)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to create route")
		h.renderRoutes(c, errorStatus(err), AdminRoutesPage{
			Form:      form,
			FormError: api.DetailOf(err, "Failed to create route. Please try again."),
		})
		return
	}

	h.logger.WithField("route_id", route.ID).Info("Route created")
	redirectWithFlash(c, session.FlashSuccess, "Route "+route.Label()+" created", "/admin/routes")
}

// DeleteRoute handles POST /admin/routes/:id/delete
func (h *AdminHandler) DeleteRoute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		renderNotFound(c)
		return
	}

	ctx := middleware.GetSession(c).Context(c.Request.Context())
	if err := h.backend.DeleteRoute(ctx, id); err != nil {
		h.logger.WithError(err).WithField("route_id", id).Warn("Failed to delete route")
		redirectWithFlash(c, session.FlashError, api.DetailOf(err, "Failed to delete route. Please try again."), "/admin/routes")
		return
	}

	h.logger.WithField("route_id", id).Info("Route deleted")
	redirectWithFlash(c, session.FlashSuccess, "Route deleted", "/admin/routes")
}

func (f RouteForm) input() (models.RouteInput, error) {
	in := models.RouteInput{
		Origin:      f.Origin,
		Destination: f.Destination,
		Description: f.Description,
	}

	price, err := strconv.ParseInt(f.BasePrice, 10, 64)
	if err != nil {
		return in, errors.New("base price must be a whole number")
	}
	in.BasePrice = price

	if in.Distance, err = parseOptionalFloat(f.Distance); err != nil {
		return in, errors.New("distance must be a number")
	}
	if in.Duration, err = parseOptionalFloat(f.Duration); err != nil {
		return in, errors.New("duration must be a number")
	}
	return in, nil
}

// ============================================================================
// SCHEDULES
// ============================================================================

// Schedules handles GET /admin/schedules
func (h *AdminHandler) Schedules(c *gin.Context) {
	h.renderSchedules(c, http.StatusOK, AdminSchedulesPage{})
}

func (h *AdminHandler) renderSchedules(c *gin.Context, status int, page AdminSchedulesPage) {
	ctx := middleware.GetSession(c).Context(c.Request.Context())

	routes, err := h.backend.ListRoutes(ctx)
	var schedules []models.Schedule
	if err == nil {
		schedules, err = h.backend.ListSchedules(ctx)
	}
	if err != nil {
		h.logger.WithError(err).Warn("Failed to load schedules")
		page.Error = api.DetailOf(err, "Failed to load schedules. Please try again.")
		status = errorStatus(err)
	}

	byID := make(map[int64]*models.Route, len(routes))
	for i := range routes {
		byID[routes[i].ID] = &routes[i]
	}
	for i := range schedules {
		if schedules[i].Route == nil {
			schedules[i].Route = byID[schedules[i].RouteID]
		}
	}

	page.Routes = routes
	page.Schedules = schedules
	render(c, status, pageAdminSchedules, "Manage Schedules", "admin", page)
}

// CreateSchedule handles POST /admin/schedules
func (h *AdminHandler) CreateSchedule(c *gin.Context) {
	form := ScheduleForm{
		RouteID:        strings.TrimSpace(c.PostForm("route_id")),
		DepartureTime:  strings.TrimSpace(c.PostForm("departure_time")),
		ArrivalTime:    strings.TrimSpace(c.PostForm("arrival_time")),
		BusName:        strings.TrimSpace(c.PostForm("bus_name")),
		AvailableSeats: strings.TrimSpace(c.PostForm("available_seats")),
		Price:          strings.TrimSpace(c.PostForm("price")),
	}

	in, err := form.input(h.location)
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		h.renderSchedules(c, http.StatusBadRequest, AdminSchedulesPage{Form: form, FormError: capitalize(err.Error())})
		return
	}

	ctx := middleware.GetSession(c).Context(c.Request.Context())
	schedule, err := h.backend.CreateSchedule(ctx, in)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to create schedule")
		h.renderSchedules(c, errorStatus(err), AdminSchedulesPage{
			Form:      form,
			FormError: api.DetailOf(err, "Failed to create schedule. Please try again."),
		})
		return
	}

	h.logger.WithField("schedule_id", schedule.ID).Info("Schedule created")
	redirectWithFlash(c, session.FlashSuccess, "Schedule created", "/admin/schedules")
}

// DeleteSchedule handles POST /admin/schedules/:id/delete
func (h *AdminHandler) DeleteSchedule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		renderNotFound(c)
		return
	}

	ctx := middleware.GetSession(c).Context(c.Request.Context())
	if err := h.backend.DeleteSchedule(ctx, id); err != nil {
		h.logger.WithError(err).WithField("schedule_id", id).Warn("Failed to delete schedule")
		redirectWithFlash(c, session.FlashError, api.DetailOf(err, "Failed to delete schedule. Please try again."), "/admin/schedules")
		return
	}

	h.logger.WithField("schedule_id", id).Info("Schedule deleted")
	redirectWithFlash(c, session.FlashSuccess, "Schedule deleted", "/admin/schedules")
}

func (f ScheduleForm) input(loc *time.Location) (models.ScheduleInput, error) {
	in := models.ScheduleInput{BusName: f.BusName}

	routeID, err := strconv.ParseInt(f.RouteID, 10, 64)
	if err != nil {
		return in, errors.New("route is required")
	}
	in.RouteID = routeID

	if in.DepartureTime, err = time.ParseInLocation(formTimeLayout, f.DepartureTime, loc); err != nil {
		return in, errors.New("departure time is invalid")
	}
	if in.ArrivalTime, err = time.ParseInLocation(formTimeLayout, f.ArrivalTime, loc); err != nil {
		return in, errors.New("arrival time is invalid")
	}
	if in.AvailableSeats, err = strconv.Atoi(f.AvailableSeats); err != nil {
		return in, errors.New("available seats must be a whole number")
	}
	if in.Price, err = strconv.ParseInt(f.Price, 10, 64); err != nil {
		return in, errors.New("price must be a whole number")
	}
	return in, nil
}

func parseOptionalFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
