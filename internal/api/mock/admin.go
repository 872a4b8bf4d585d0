package mock

import (
	"context"
	"net/http"
	"sort"

	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/models"
)

// GetDashboardStats aggregates dataset counters (admin only)
func (b *Backend) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	if err := b.simulate(ctx, ""); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.requireAdmin(ctx); err != nil {
		return nil, err
	}

	stats := &models.DashboardStats{
		TotalUsers:     len(b.users),
		TotalRoutes:    len(b.routes),
		TotalSchedules: len(b.schedules),
		TotalBookings:  len(b.bookings),
	}
	for _, bk := range b.bookings {
		if bk.CanBeCancelled() {
			stats.ActiveBookings++
		}
	}
	for _, p := range b.payments {
		if p.Succeeded() {
			stats.TotalRevenue += p.Amount
		}
	}
	return stats, nil
}

// ListUsers returns all accounts (admin only)
func (b *Backend) ListUsers(ctx context.Context) ([]models.User, error) {
	if err := b.simulate(ctx, ""); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.requireAdmin(ctx); err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(b.users))
	for _, rec := range b.users {
		users = append(users, rec.user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// GetUser returns an account by id (admin only)
func (b *Backend) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if err := b.simulate(ctx, ""); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.requireAdmin(ctx); err != nil {
		return nil, err
	}
	rec, ok := b.users[id]
	if !ok {
		return nil, api.NotFound("User", id)
	}
	user := rec.user
	return &user, nil
}

// UpdateUserRole changes an account's role (admin only). Admins cannot
// demote themselves.
func (b *Backend) UpdateUserRole(ctx context.Context, id int64, role models.Role) (*models.User, error) {
	if err := b.simulate(ctx, ""); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, api.Errorf(http.StatusBadRequest, "unknown role %q", role)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	admin, err := b.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := b.users[id]
	if !ok {
		return nil, api.NotFound("User", id)
	}
	if rec.user.ID == admin.user.ID && role != models.RoleAdmin {
		return nil, api.NewError(http.StatusBadRequest, "You cannot remove your own admin role")
	}

	rec.user.Role = role
	user := rec.user
	return &user, nil
}
