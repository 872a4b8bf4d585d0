package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/middleware"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/smarttransit/busticket-web/internal/session"
	"github.com/smarttransit/busticket-web/pkg/validator"
)

// AuthHandler handles login, registration and logout
type AuthHandler struct {
	sessions       *session.Manager
	phoneValidator *validator.PhoneValidator
	logger         *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions *session.Manager, phoneValidator *validator.PhoneValidator, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		sessions:       sessions,
		phoneValidator: phoneValidator,
		logger:         logger,
	}
}

// LoginPage is the content of the login page
type LoginPage struct {
	Email string
	Next  string
	Error string
}

// RegisterForm holds the submitted registration fields, passwords excluded
type RegisterForm struct {
	FullName    string
	Email       string
	PhoneNumber string
}

// RegisterPage is the content of the registration page
type RegisterPage struct {
	Form   RegisterForm
	Errors map[string]string
	Error  string
}

// ShowLogin handles GET /login
func (h *AuthHandler) ShowLogin(c *gin.Context) {
	next := middleware.SafeNext(c.Query("next"))
	if middleware.GetSession(c).IsAuthenticated() {
		c.Redirect(http.StatusFound, next)
		return
	}
	render(c, http.StatusOK, pageLogin, "Login", "login", LoginPage{Next: next})
}

// Login handles POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	next := middleware.SafeNext(c.PostForm("next"))

	page := LoginPage{Email: email, Next: next}
	if email == "" || password == "" {
		page.Error = "Please enter your email and password"
		render(c, http.StatusBadRequest, pageLogin, "Login", "login", page)
		return
	}

	sess := middleware.GetSession(c)
	user, err := h.sessions.Login(c.Request.Context(), sess, email, password)
	if err != nil {
		status := errorStatus(err)
		if api.IsUnauthorized(err) {
			page.Error = api.DetailOf(err, "Incorrect email or password")
		} else {
			h.logger.WithError(err).WithField("status", api.StatusOf(err)).Warn("Login failed")
			page.Error = api.DetailOf(err, "Login failed. Please try again.")
		}
		render(c, status, pageLogin, "Login", "login", page)
		return
	}

	redirectWithFlash(c, session.FlashSuccess, "Welcome back, "+user.FirstName()+"!", next)
}

// ShowRegister handles GET /register
func (h *AuthHandler) ShowRegister(c *gin.Context) {
	if middleware.GetSession(c).IsAuthenticated() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	render(c, http.StatusOK, pageRegister, "Register", "register", RegisterPage{})
}

// Register handles POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	form := RegisterForm{
		FullName:    strings.TrimSpace(c.PostForm("full_name")),
		Email:       strings.TrimSpace(c.PostForm("email")),
		PhoneNumber: strings.TrimSpace(c.PostForm("phone_number")),
	}
	password := c.PostForm("password")
	confirm := c.PostForm("confirm_password")

	phone, errs := h.validateRegistration(form, password, confirm)
	if len(errs) > 0 {
		render(c, http.StatusBadRequest, pageRegister, "Register", "register", RegisterPage{Form: form, Errors: errs})
		return
	}

	user, err := h.sessions.Register(c.Request.Context(), models.RegisterRequest{
		FullName:    form.FullName,
		Email:       form.Email,
		Password:    password,
		PhoneNumber: phone,
	})
	if err != nil {
		h.logger.WithError(err).WithField("status", api.StatusOf(err)).Warn("Registration failed")
		render(c, errorStatus(err), pageRegister, "Register", "register", RegisterPage{
			Form:  form,
			Error: api.DetailOf(err, "Registration failed. Please try again."),
		})
		return
	}

	h.logger.WithField("user_id", user.ID).Info("User registered")
	redirectWithFlash(c, session.FlashSuccess, "Registration successful! Please log in.", "/login")
}

// validateRegistration checks the form and returns the phone number in
// international form together with the per-field errors
func (h *AuthHandler) validateRegistration(form RegisterForm, password, confirm string) (string, map[string]string) {
	errs := make(map[string]string)

	if form.FullName == "" {
		errs["full_name"] = "Full name is required"
	}

	switch {
	case form.Email == "":
		errs["email"] = "Email is required"
	case !models.IsValidEmail(form.Email):
		errs["email"] = "Please enter a valid email address"
	}

	phone, err := h.phoneValidator.International(form.PhoneNumber)
	if err != nil {
		if errors.Is(err, validator.ErrEmptyPhone) {
			errs["phone_number"] = "Phone number is required"
		} else {
			errs["phone_number"] = "Invalid phone number: " + err.Error()
		}
	}

	switch {
	case password == "":
		errs["password"] = "Password is required"
	case len(password) < models.MinPasswordLength:
		errs["password"] = "Password must be at least 6 characters"
	}
	if confirm != password {
		errs["confirm_password"] = "Passwords do not match"
	}

	return phone, errs
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := middleware.GetSession(c)
	if err := h.sessions.Logout(c.Request.Context(), sess); err != nil {
		h.logger.WithError(err).Error("Failed to log out")
		redirectWithFlash(c, session.FlashError, "Logout failed. Please try again.", "/")
		return
	}
	redirectWithFlash(c, session.FlashInfo, "You have been logged out", "/")
}
