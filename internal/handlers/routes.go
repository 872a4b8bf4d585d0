package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/middleware"
	"github.com/smarttransit/busticket-web/internal/session"
)

// Set bundles the page controllers mounted by RegisterRoutes
type Set struct {
	Auth    *AuthHandler
	Catalog *CatalogHandler
	Booking *BookingHandler
	Wizard  *WizardHandler
	Admin   *AdminHandler
}

// RegisterRoutes mounts every page behind the session middleware. Form
// posts must carry the session's CSRF token.
func RegisterRoutes(router *gin.Engine, h Set, sessions *session.Manager, logger *logrus.Logger) {
	loadSession := middleware.LoadSession(sessions, logger)

	pages := router.Group("/")
	pages.Use(loadSession, middleware.VerifyCSRF(logger))
	{
		// Public pages
		pages.GET("/", h.Catalog.Home)
		pages.GET("/routes", h.Catalog.Routes)
		pages.GET("/routes/:id", h.Catalog.RouteDetail)
		pages.GET("/schedules", h.Catalog.Schedules)

		pages.GET("/login", h.Auth.ShowLogin)
		pages.POST("/login", h.Auth.Login)
		pages.GET("/register", h.Auth.ShowRegister)
		pages.POST("/register", h.Auth.Register)
		pages.POST("/logout", h.Auth.Logout)

		// The wizard entry sends anonymous users to login itself
		pages.GET("/bookings/new", h.Wizard.Show)

		// Signed-in pages
		protected := pages.Group("")
		protected.Use(middleware.RequireAuth())
		{
			protected.POST("/bookings/new/details", h.Wizard.Details)
			protected.POST("/bookings/new/back", h.Wizard.Back)
			protected.POST("/bookings/new/payment", h.Wizard.Payment)
			protected.GET("/bookings/new/confirmation", h.Wizard.Confirmation)

			protected.GET("/bookings", h.Booking.List)
			protected.GET("/bookings/:id", h.Booking.Detail)
			protected.GET("/bookings/:id/ticket.pdf", h.Booking.Ticket)
			protected.POST("/bookings/:id/cancel", h.Booking.Cancel)
		}

		// Admin pages
		admin := pages.Group("/admin")
		admin.Use(middleware.RequireAuth(), middleware.RequireAdmin())
		{
			admin.GET("", h.Admin.Dashboard)
			admin.POST("/users/:id/role", h.Admin.UpdateUserRole)
			admin.GET("/routes", h.Admin.Routes)
			admin.POST("/routes", h.Admin.CreateRoute)
			admin.POST("/routes/:id/delete", h.Admin.DeleteRoute)
			admin.GET("/schedules", h.Admin.Schedules)
			admin.POST("/schedules", h.Admin.CreateSchedule)
			admin.POST("/schedules/:id/delete", h.Admin.DeleteSchedule)
		}
	}

	router.NoRoute(loadSession, NotFound)
}
