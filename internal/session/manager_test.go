package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/booking"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	mu         sync.Mutex
	meCalls    int
	meErr      error
	loginErr   error
	registered []models.RegisterRequest
}

func (f *fakeAuth) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.AuthResponse{
		AccessToken: "tok-" + req.Email,
		TokenType:   "bearer",
		User:        models.User{ID: 1, FullName: "John Doe", Email: req.Email, Role: models.RoleCustomer},
	}, nil
}

func (f *fakeAuth) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	f.registered = append(f.registered, req)
	return &models.User{ID: 2, FullName: req.FullName, Email: req.Email, Role: models.RoleCustomer}, nil
}

func (f *fakeAuth) CurrentUser(ctx context.Context) (*models.User, error) {
	f.mu.Lock()
	f.meCalls++
	f.mu.Unlock()
	if f.meErr != nil {
		return nil, f.meErr
	}
	token, _ := api.TokenFrom(ctx)
	return &models.User{ID: 1, FullName: "John Doe", Email: token[len("tok-"):], Role: models.RoleCustomer}, nil
}

func newTestManager(auth *fakeAuth, now func() time.Time) (*Manager, *MemoryStore) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store := NewMemoryStore()
	store.now = now
	return NewManager(store, auth, Options{
		MaxAge:     time.Hour,
		Logger:     logger,
		Now:        now,
		ResolveTTL: time.Minute,
	}), store
}

func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	var mu sync.Mutex
	current := start
	return func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return current
		}, func(d time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			current = current.Add(d)
		}
}

func TestLoadAndSave(t *testing.T) {
	now, _ := fixedClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	m, store := newTestManager(&fakeAuth{}, now)

	t.Run("New session without cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		sess, err := m.Load(req)
		require.NoError(t, err)
		assert.NotEmpty(t, sess.ID)
		assert.False(t, sess.IsAuthenticated())
		assert.Equal(t, 0, store.Len())
	})

	t.Run("Round trip through cookie", func(t *testing.T) {
		sess, err := m.Load(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		sess.AddFlash(FlashSuccess, "Welcome")
		sess.Wizard = &booking.State{Step: booking.StepPayment, ScheduleID: 3, SeatCount: 2}

		rec := httptest.NewRecorder()
		require.NoError(t, m.Save(context.Background(), rec, sess))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, DefaultCookieName, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookies[0])
		loaded, err := m.Load(req)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, loaded.ID)
		require.NotNil(t, loaded.Wizard)
		assert.Equal(t, booking.StepPayment, loaded.Wizard.Step)
		assert.Equal(t, 2, loaded.Wizard.SeatCount)

		flash := loaded.PopFlash()
		require.Len(t, flash, 1)
		assert.Equal(t, "Welcome", flash[0].Message)
		assert.Empty(t, loaded.Flash)
	})

	t.Run("Unknown cookie starts over", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "missing"})
		sess, err := m.Load(req)
		require.NoError(t, err)
		assert.NotEqual(t, "missing", sess.ID)
	})
}

func TestLoginRotatesSession(t *testing.T) {
	now, _ := fixedClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	auth := &fakeAuth{}
	m, store := newTestManager(auth, now)
	ctx := context.Background()

	sess, err := m.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx, httptest.NewRecorder(), sess))
	oldID := sess.ID
	oldToken := sess.CSRFToken
	require.NotEmpty(t, oldToken)

	user, err := m.Login(ctx, sess, " john@example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", user.Email)
	assert.True(t, sess.IsAuthenticated())
	assert.Equal(t, "tok-john@example.com", sess.Token)
	assert.NotEqual(t, oldID, sess.ID)
	assert.NotEqual(t, oldToken, sess.CSRFToken)

	_, err = store.Get(ctx, oldID)
	assert.ErrorIs(t, err, ErrNotFound)

	t.Run("Failed login leaves session anonymous", func(t *testing.T) {
		auth.loginErr = api.NewError(http.StatusUnauthorized, "Incorrect email or password")
		anon := m.newSession()
		_, err := m.Login(ctx, anon, "john@example.com", "bad")
		assert.True(t, api.IsUnauthorized(err))
		assert.False(t, anon.IsAuthenticated())
	})
}

func TestResolve(t *testing.T) {
	now, advance := fixedClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	auth := &fakeAuth{}
	m, _ := newTestManager(auth, now)
	ctx := context.Background()

	sess := m.newSession()
	_, err := m.Login(ctx, sess, "john@example.com", "password123")
	require.NoError(t, err)

	m.Resolve(ctx, sess)
	assert.Equal(t, 0, auth.meCalls)

	advance(2 * time.Minute)
	m.Resolve(ctx, sess)
	assert.Equal(t, 1, auth.meCalls)
	assert.True(t, sess.IsAuthenticated())

	m.Resolve(ctx, sess)
	assert.Equal(t, 1, auth.meCalls)

	t.Run("Failure signs out", func(t *testing.T) {
		sess.Wizard = &booking.State{Step: booking.StepDetails}
		sess.Resolved = false
		auth.meErr = api.NewError(http.StatusUnauthorized, "Token has expired")

		m.Resolve(ctx, sess)
		assert.False(t, sess.IsAuthenticated())
		assert.Empty(t, sess.Token)
		assert.Nil(t, sess.Wizard)
	})
}

func TestLogout(t *testing.T) {
	now, _ := fixedClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	m, store := newTestManager(&fakeAuth{}, now)
	ctx := context.Background()

	sess := m.newSession()
	_, err := m.Login(ctx, sess, "john@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx, httptest.NewRecorder(), sess))
	require.Equal(t, 1, store.Len())

	oldID := sess.ID
	require.NoError(t, m.Logout(ctx, sess))
	assert.Equal(t, 0, store.Len())
	assert.False(t, sess.IsAuthenticated())
	assert.NotEqual(t, oldID, sess.ID)
	assert.Nil(t, sess.Wizard)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(ctx, rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sess.ID, cookies[0].Value)
}

func TestExpiry(t *testing.T) {
	now, advance := fixedClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	m, store := newTestManager(&fakeAuth{}, now)
	ctx := context.Background()

	sess := m.newSession()
	require.NoError(t, m.Save(ctx, httptest.NewRecorder(), sess))

	advance(2 * time.Hour)
	_, err := store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	m.Cleanup(ctx)
	assert.Equal(t, 0, store.Len())
}

func TestLockSerialises(t *testing.T) {
	now, _ := fixedClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	m, _ := newTestManager(&fakeAuth{}, now)

	var (
		wg      sync.WaitGroup
		counter int
		active  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("same")
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			counter++

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, counter)
	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, m.locks)
}

func TestSessionID(t *testing.T) {
	m, _ := newTestManager(&fakeAuth{}, time.Now)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, m.SessionID(req))

	req.AddCookie(&http.Cookie{Name: m.CookieName(), Value: "sess-1"})
	assert.Equal(t, "sess-1", m.SessionID(req))
}
