package mock

import (
	"context"
	"net/http"
	"sort"

	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/models"
)

// ListRoutes returns all routes ordered by id
func (b *Backend) ListRoutes(ctx context.Context) ([]models.Route, error) {
	if err := b.simulate(ctx, OpListRoutes); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	routes := make([]models.Route, 0, len(b.routes))
	for _, r := range b.routes {
		routes = append(routes, *r)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].ID < routes[j].ID })
	return routes, nil
}

// GetRoute returns a route by id
func (b *Backend) GetRoute(ctx context.Context, id int64) (*models.Route, error) {
	if err := b.simulate(ctx, OpGetRoute); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.routes[id]
	if !ok {
		return nil, api.NotFound("Route", id)
	}
	route := *r
	return &route, nil
}

// CreateRoute adds a route (admin only)
func (b *Backend) CreateRoute(ctx context.Context, in models.RouteInput) (*models.Route, error) {
	if err := b.simulate(ctx, ""); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.requireAdmin(ctx); err != nil {
		return nil, err
	}

	b.nextRouteID++
	route := routeFromInput(b.nextRouteID, in)
	b.routes[route.ID] = &route
	return &route, nil
}

// UpdateRoute replaces a route's fields (admin only)
func (b *Backend) UpdateRoute(ctx context.Context, id int64, in models.RouteInput) (*models.Route, error) {
	if err := b.simulate(ctx, ""); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if _, ok := b.routes[id]; !ok {
		return nil, api.NotFound("Route", id)
	}

	route := routeFromInput(id, in)
	b.routes[id] = &route
	return &route, nil
}

// DeleteRoute removes a route without schedules (admin only)
func (b *Backend) DeleteRoute(ctx context.Context, id int64) error {
	if err := b.simulate(ctx, ""); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.requireAdmin(ctx); err != nil {
		return err
	}
	if _, ok := b.routes[id]; !ok {
		return api.NotFound("Route", id)
	}
	for _, s := range b.schedules {
		if s.RouteID == id {
			return api.NewError(http.StatusConflict, "Route still has schedules")
		}
	}

	delete(b.routes, id)
	return nil
}

// ListSchedules returns all schedules ordered by departure
func (b *Backend) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	if err := b.simulate(ctx, OpListSchedules); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.collectSchedules(func(*models.Schedule) bool { return true }, false), nil
}

// GetSchedule returns a schedule by id
func (b *Backend) GetSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	if err := b.simulate(ctx, OpGetSchedule); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.schedules[id]
	if !ok {
		return nil, api.NotFound("Schedule", id)
	}
	schedule := *s
	return &schedule, nil
}

// ListSchedulesByRoute returns the schedules of a route with the route embedded
func (b *Backend) ListSchedulesByRoute(ctx context.Context, routeID int64) ([]models.Schedule, error) {
	if err := b.simulate(ctx, OpSchedulesRoute); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.routes[routeID]; !ok {
		return nil, api.NotFound("Route", routeID)
	}
	return b.collectSchedules(func(s *models.Schedule) bool { return s.RouteID == routeID }, true), nil
}

// CreateSchedule adds a schedule (admin only)
func (b *Backend) CreateSchedule(ctx context.Context, in models.ScheduleInput) (*models.Schedule, error) {
	if err := b.simulate(ctx, ""); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if _, ok := b.routes[in.RouteID]; !ok {
		return nil, api.NotFound("Route", in.RouteID)
	}

	b.nextScheduleID++
	schedule := scheduleFromInput(b.nextScheduleID, in)
	b.schedules[schedule.ID] = &schedule
	return &schedule, nil
}

// UpdateSchedule replaces a schedule's fields (admin only)
func (b *Backend) UpdateSchedule(ctx context.Context, id int64, in models.ScheduleInput) (*models.Schedule, error) {
	if err := b.simulate(ctx, ""); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if _, ok := b.schedules[id]; !ok {
		return nil, api.NotFound("Schedule", id)
	}
	if _, ok := b.routes[in.RouteID]; !ok {
		return nil, api.NotFound("Route", in.RouteID)
	}

	schedule := scheduleFromInput(id, in)
	b.schedules[id] = &schedule
	return &schedule, nil
}

// DeleteSchedule removes a schedule without active bookings (admin only)
func (b *Backend) DeleteSchedule(ctx context.Context, id int64) error {
	if err := b.simulate(ctx, ""); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.requireAdmin(ctx); err != nil {
		return err
	}
	if _, ok := b.schedules[id]; !ok {
		return api.NotFound("Schedule", id)
	}
	for _, bk := range b.bookings {
		if bk.Schedule.ID == id && bk.CanBeCancelled() {
			return api.NewError(http.StatusConflict, "Schedule has active bookings")
		}
	}

	delete(b.schedules, id)
	return nil
}

// collectSchedules filters and orders schedules. Callers hold b.mu.
func (b *Backend) collectSchedules(keep func(*models.Schedule) bool, embedRoute bool) []models.Schedule {
	schedules := make([]models.Schedule, 0, len(b.schedules))
	for _, s := range b.schedules {
		if !keep(s) {
			continue
		}
		schedule := *s
		if embedRoute {
			if r, ok := b.routes[s.RouteID]; ok {
				route := *r
				schedule.Route = &route
			}
		}
		schedules = append(schedules, schedule)
	}
	sort.Slice(schedules, func(i, j int) bool {
		if schedules[i].DepartureTime.Equal(schedules[j].DepartureTime) {
			return schedules[i].ID < schedules[j].ID
		}
		return schedules[i].DepartureTime.Before(schedules[j].DepartureTime)
	})
	return schedules
}

// snapshot builds the schedule+route copy embedded in bookings. Callers hold b.mu.
func (b *Backend) snapshot(s *models.Schedule) models.BookingSchedule {
	snap := models.BookingSchedule{
		ID:            s.ID,
		DepartureTime: s.DepartureTime,
		ArrivalTime:   s.ArrivalTime,
		BusName:       s.BusName,
		Price:         s.Price,
	}
	if r, ok := b.routes[s.RouteID]; ok {
		snap.Route = *r
	}
	return snap
}

func routeFromInput(id int64, in models.RouteInput) models.Route {
	return models.Route{
		ID:          id,
		Origin:      in.Origin,
		Destination: in.Destination,
		Distance:    in.Distance,
		Duration:    in.Duration,
		Description: in.Description,
		BasePrice:   in.BasePrice,
	}
}

func scheduleFromInput(id int64, in models.ScheduleInput) models.Schedule {
	return models.Schedule{
		ID:             id,
		RouteID:        in.RouteID,
		DepartureTime:  in.DepartureTime,
		ArrivalTime:    in.ArrivalTime,
		BusName:        in.BusName,
		AvailableSeats: in.AvailableSeats,
		Price:          in.Price,
	}
}
