package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/models"
)

// PopularRouteCount is how many routes the home page features
const PopularRouteCount = 4

// DateLayout is the format of the schedule date filter
const DateLayout = "2006-01-02"

// CatalogBackend is the part of the data-access contract used for browsing
type CatalogBackend interface {
	ListRoutes(ctx context.Context) ([]models.Route, error)
	GetRoute(ctx context.Context, id int64) (*models.Route, error)
	ListSchedules(ctx context.Context) ([]models.Schedule, error)
	ListSchedulesByRoute(ctx context.Context, routeID int64) ([]models.Schedule, error)
}

// CatalogService answers the route and schedule browsing pages
type CatalogService struct {
	backend  CatalogBackend
	logger   *logrus.Logger
	location *time.Location
}

// NewCatalogService creates a new catalog service. Dates are compared in loc.
func NewCatalogService(backend CatalogBackend, logger *logrus.Logger, loc *time.Location) *CatalogService {
	if loc == nil {
		loc = time.Local
	}
	return &CatalogService{
		backend:  backend,
		logger:   logger,
		location: loc,
	}
}

// PopularRoutes returns the routes featured on the home page
func (s *CatalogService) PopularRoutes(ctx context.Context) ([]models.Route, error) {
	routes, err := s.backend.ListRoutes(ctx)
	if err != nil {
		return nil, err
	}
	if len(routes) > PopularRouteCount {
		routes = routes[:PopularRouteCount]
	}
	return routes, nil
}

// SearchRoutes returns routes whose origin or destination contains term,
// ignoring case. An empty term returns every route.
func (s *CatalogService) SearchRoutes(ctx context.Context, term string) ([]models.Route, error) {
	routes, err := s.backend.ListRoutes(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]models.Route, 0, len(routes))
	for i := range routes {
		if routes[i].Matches(term) {
			matched = append(matched, routes[i])
		}
	}
	return matched, nil
}

// RouteDetail is a route with its departures
type RouteDetail struct {
	Route     *models.Route
	Schedules []models.Schedule
}

// GetRouteDetail loads a route and its schedules
func (s *CatalogService) GetRouteDetail(ctx context.Context, id int64) (*RouteDetail, error) {
	route, err := s.backend.GetRoute(ctx, id)
	if err != nil {
		return nil, err
	}

	schedules, err := s.backend.ListSchedulesByRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range schedules {
		schedules[i].Route = route
	}

	return &RouteDetail{Route: route, Schedules: schedules}, nil
}

// ============================================================================
// SCHEDULE FILTERS
// ============================================================================

// ScheduleFilter narrows the schedule listing. Zero values match everything.
type ScheduleFilter struct {
	RouteID     int64
	Origin      string
	Destination string
	Date        time.Time
}

// ParseScheduleFilter reads the filter from query values. Unparseable values
// are dropped.
func ParseScheduleFilter(routeID, origin, destination, date string) ScheduleFilter {
	filter := ScheduleFilter{
		Origin:      strings.TrimSpace(origin),
		Destination: strings.TrimSpace(destination),
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(routeID), 10, 64); err == nil && id > 0 {
		filter.RouteID = id
	}
	if d, err := time.Parse(DateLayout, strings.TrimSpace(date)); err == nil {
		filter.Date = d
	}
	return filter
}

// DateValue renders the date filter for a date input
func (f ScheduleFilter) DateValue() string {
	if f.Date.IsZero() {
		return ""
	}
	return f.Date.Format(DateLayout)
}

// IsEmpty reports whether no filter is set
func (f ScheduleFilter) IsEmpty() bool {
	return f == ScheduleFilter{}
}

// ScheduleListing is the filtered schedule page
type ScheduleListing struct {
	Filter        ScheduleFilter
	Schedules     []models.Schedule
	Origins       []string
	Destinations  []string
	SelectedRoute *models.Route
}

// ListSchedules returns the schedules matching filter with their routes
// attached. Schedules whose route is unknown are hidden.
func (s *CatalogService) ListSchedules(ctx context.Context, filter ScheduleFilter) (*ScheduleListing, error) {
	routes, err := s.backend.ListRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load routes: %w", err)
	}
	schedules, err := s.backend.ListSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}

	byID := make(map[int64]*models.Route, len(routes))
	listing := &ScheduleListing{
		Filter:    filter,
		Schedules: []models.Schedule{},
	}
	seenOrigin := make(map[string]bool)
	seenDestination := make(map[string]bool)
	for i := range routes {
		route := &routes[i]
		byID[route.ID] = route
		if !seenOrigin[route.Origin] {
			seenOrigin[route.Origin] = true
			listing.Origins = append(listing.Origins, route.Origin)
		}
		if !seenDestination[route.Destination] {
			seenDestination[route.Destination] = true
			listing.Destinations = append(listing.Destinations, route.Destination)
		}
	}
	if filter.RouteID > 0 {
		listing.SelectedRoute = byID[filter.RouteID]
	}

	hidden := 0
	for _, schedule := range schedules {
		route, ok := byID[schedule.RouteID]
		if !ok {
			hidden++
			continue
		}
		if !s.matches(filter, &schedule, route) {
			continue
		}
		schedule.Route = route
		listing.Schedules = append(listing.Schedules, schedule)
	}

	if hidden > 0 {
		s.logger.WithField("hidden", hidden).Debug("Schedules without a known route were hidden")
	}

	return listing, nil
}

func (s *CatalogService) matches(filter ScheduleFilter, schedule *models.Schedule, route *models.Route) bool {
	if filter.RouteID > 0 && schedule.RouteID != filter.RouteID {
		return false
	}
	if filter.Origin != "" && !containsFold(route.Origin, filter.Origin) {
		return false
	}
	if filter.Destination != "" && !containsFold(route.Destination, filter.Destination) {
		return false
	}
	if !filter.Date.IsZero() {
		y, m, d := schedule.DepartureTime.In(s.location).Date()
		fy, fm, fd := filter.Date.Date()
		if y != fy || m != fm || d != fd {
			return false
		}
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
