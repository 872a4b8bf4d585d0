package mock

import (
	"context"
	"net/http"
	"strings"

	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/smarttransit/busticket-web/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// Login checks the credentials and issues a bearer token
func (b *Backend) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := b.simulate(ctx, OpLogin); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.findUserByEmail(req.Email)
	if rec == nil || bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(req.Password)) != nil {
		return nil, api.NewError(http.StatusUnauthorized, "Incorrect email or password")
	}

	token, _, err := b.tokens.Issue(jwt.Subject{
		UserID: rec.user.ID,
		Email:  rec.user.Email,
		Role:   string(rec.user.Role),
	})
	if err != nil {
		return nil, api.Errorf(http.StatusInternalServerError, "failed to issue token: %v", err)
	}

	b.logger.WithField("user_id", rec.user.ID).Debug("mock backend: login")

	return &models.AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        rec.user,
	}, nil
}

// Register creates a customer account
func (b *Backend) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := b.simulate(ctx, OpRegister); err != nil {
		return nil, err
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)

	switch {
	case req.FullName == "":
		return nil, api.NewError(http.StatusBadRequest, "Full name is required")
	case !models.IsValidEmail(req.Email):
		return nil, api.NewError(http.StatusBadRequest, "Email is invalid")
	case len(req.Password) < models.MinPasswordLength:
		return nil, api.Errorf(http.StatusBadRequest, "Password must be at least %d characters", models.MinPasswordLength)
	}
	if _, err := b.phones.Validate(req.PhoneNumber); err != nil {
		return nil, api.Errorf(http.StatusBadRequest, "Invalid phone number: %v", err)
	}

	hash, err := b.hashPassword(req.Password)
	if err != nil {
		return nil, api.Errorf(http.StatusInternalServerError, "failed to hash password: %v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.findUserByEmail(req.Email) != nil {
		return nil, api.NewError(http.StatusBadRequest, "Email already registered")
	}

	b.nextUserID++
	rec := &userRecord{
		user: models.User{
			ID:          b.nextUserID,
			FullName:    req.FullName,
			Email:       req.Email,
			PhoneNumber: req.PhoneNumber,
			Role:        models.RoleCustomer,
			CreatedAt:   b.now(),
		},
		passwordHash: hash,
	}
	b.users[rec.user.ID] = rec

	user := rec.user
	return &user, nil
}

// CurrentUser resolves the user behind the bearer token
func (b *Backend) CurrentUser(ctx context.Context) (*models.User, error) {
	if err := b.simulate(ctx, OpCurrentUser); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	user := rec.user
	return &user, nil
}

// findUserByEmail looks a user up case-insensitively. Callers hold b.mu.
func (b *Backend) findUserByEmail(email string) *userRecord {
	email = strings.TrimSpace(email)
	for _, rec := range b.users {
		if strings.EqualFold(rec.user.Email, email) {
			return rec
		}
	}
	return nil
}
