package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/middleware"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/smarttransit/busticket-web/internal/services"
)

// CatalogHandler handles the public route and schedule pages
type CatalogHandler struct {
	catalog *services.CatalogService
	logger  *logrus.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *services.CatalogService, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// HomePage is the content of the home page
type HomePage struct {
	Routes []models.Route
	Error  string
}

// RoutesPage is the content of the route listing
type RoutesPage struct {
	Query  string
	Routes []models.Route
	Error  string
}

// SchedulesPage is the content of the schedule listing
type SchedulesPage struct {
	Filter  services.ScheduleFilter
	Listing *services.ScheduleListing
	Error   string
}

// Home handles GET /
func (h *CatalogHandler) Home(c *gin.Context) {
	ctx := middleware.GetSession(c).Context(c.Request.Context())

	routes, err := h.catalog.PopularRoutes(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to load popular routes")
		render(c, errorStatus(err), pageHome, "", "home", HomePage{
			Error: api.DetailOf(err, "Failed to load routes. Please try again later."),
		})
		return
	}

	render(c, http.StatusOK, pageHome, "", "home", HomePage{Routes: routes})
}

// Routes handles GET /routes
func (h *CatalogHandler) Routes(c *gin.Context) {
	ctx := middleware.GetSession(c).Context(c.Request.Context())
	query := strings.TrimSpace(c.Query("q"))

	routes, err := h.catalog.SearchRoutes(ctx, query)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to load routes")
		render(c, errorStatus(err), pageRoutes, "Routes", "routes", RoutesPage{
			Query: query,
			Error: api.DetailOf(err, "Failed to load routes. Please try again later."),
		})
		return
	}

	render(c, http.StatusOK, pageRoutes, "Routes", "routes", RoutesPage{Query: query, Routes: routes})
}

// RouteDetail handles GET /routes/:id
func (h *CatalogHandler) RouteDetail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		renderNotFound(c)
		return
	}

	ctx := middleware.GetSession(c).Context(c.Request.Context())
	detail, err := h.catalog.GetRouteDetail(ctx, id)
	if err != nil {
		if api.IsNotFound(err) {
			renderNotFound(c)
			return
		}
		h.logger.WithError(err).WithField("route_id", id).Warn("Failed to load route")
		renderError(c, err, "Failed to load route details. Please try again.")
		return
	}

	render(c, http.StatusOK, pageRouteDetail, detail.Route.Label(), "routes", detail)
}

// Schedules handles GET /schedules
func (h *CatalogHandler) Schedules(c *gin.Context) {
	ctx := middleware.GetSession(c).Context(c.Request.Context())
	filter := services.ParseScheduleFilter(
		c.Query("routeId"),
		c.Query("origin"),
		c.Query("destination"),
		c.Query("date"),
	)

	listing, err := h.catalog.ListSchedules(ctx, filter)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to load schedules")
		render(c, errorStatus(err), pageSchedules, "Schedules", "schedules", SchedulesPage{
			Filter: filter,
			Error:  api.DetailOf(err, "Failed to load schedules. Please try again later."),
		})
		return
	}

	render(c, http.StatusOK, pageSchedules, "Schedules", "schedules", SchedulesPage{
		Filter:  filter,
		Listing: listing,
	})
}
