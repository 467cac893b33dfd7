package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hall-reservation/internal/apperror"
	"github.com/iliyamo/hall-reservation/internal/config"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/repository"
	"github.com/iliyamo/hall-reservation/internal/store"
	"github.com/iliyamo/hall-reservation/internal/utils"
)

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", apperror.Validation("start", "is required"), http.StatusBadRequest},
		{"not found", apperror.NotFound("hall", 3), http.StatusNotFound},
		{"forbidden", apperror.Forbidden("nope"), http.StatusForbidden},
		{"unauthenticated", &apperror.AuthorizationError{Reason: "login", Unauthenticated: true}, http.StatusUnauthorized},
		{"conflict", &apperror.ConflictError{HallID: 1, Start: "2025-06-01", End: "2025-06-02"}, http.StatusConflict},
		{"transition", &apperror.InvalidStateTransitionError{BookingID: 1, From: "confirmed", Action: "submit_payment"}, http.StatusConflict},
		{"infra", apperror.Infra("quote", errors.New("db down")), http.StatusInternalServerError},
	}
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, respondError(c, tc.err))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestRespondErrorHidesInfraDetail(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, respondError(c, apperror.Infra("op", errors.New("password=hunter2"))))
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestRangeQuery(t *testing.T) {
	e := echo.New()
	ctx := func(q string) echo.Context {
		return e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+q, nil), httptest.NewRecorder())
	}

	r, err := rangeQuery(ctx("start=2025-06-01&end=2025-06-03"), 30)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Days())

	r, err = rangeQuery(ctx(""), 30)
	require.NoError(t, err)
	assert.Equal(t, 30, r.Days())

	_, err = rangeQuery(ctx(""), 0)
	var ve *apperror.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "start", ve.Field)

	_, err = rangeQuery(ctx("start=2025-06-01"), 30)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "end", ve.Field)
}

// ----- auth -----

type fakeUsers struct {
	mu   sync.Mutex
	byID map[uint64]model.User
	seq  uint64
}

func (f *fakeUsers) Create(_ context.Context, email, name, password, role string, cost int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	f.seq++
	f.byID[f.seq] = model.User{ID: f.seq, Email: email, Name: name, PasswordHash: hash, Role: role, IsActive: true}
	return f.seq, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return u, nil
}

type fakeToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type fakeTokens struct {
	mu     sync.Mutex
	byHash map[string]*fakeToken
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byHash[hash] = &fakeToken{userID: userID, exp: exp}
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string, now time.Time) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tk, ok := f.byHash[hash]
	if !ok || tk.revoked || now.After(tk.exp) {
		return 0, store.ErrNotFound
	}
	return tk.userID, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tk, ok := f.byHash[hash]; ok {
		tk.revoked = true
	}
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tk := range f.byHash {
		if tk.userID == userID {
			tk.revoked = true
		}
	}
	return nil
}

func newAuth() (*AuthHandler, *echo.Echo) {
	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	h := NewAuthHandler(cfg,
		&fakeUsers{byID: map[uint64]model.User{}},
		&fakeTokens{byHash: map[string]*fakeToken{}})
	e := echo.New()
	e.POST("/register", h.Register)
	e.POST("/login", h.Login)
	e.POST("/refresh", h.Refresh)
	e.POST("/refresh-access", h.RefreshAccess)
	e.POST("/logout", h.Logout)
	return h, e
}

func post(e *echo.Echo, path, body string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeAuth(t *testing.T, rec *httptest.ResponseRecorder) authResp {
	t.Helper()
	var out authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegisterLoginRefreshLogout(t *testing.T) {
	h, e := newAuth()

	rec := post(e, "/register", `{"email":" Ada@Example.com ","name":"Ada","password":"correct-horse"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decodeAuth(t, rec)
	assert.Equal(t, "ada@example.com", reg.User.Email)
	assert.Equal(t, model.RoleCustomer, reg.User.Role)

	caller, err := utils.ParseAccessToken(h.Cfg.JWTSecret, reg.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, caller.UserID)

	rec = post(e, "/register", `{"email":"ada@example.com","name":"Ada","password":"correct-horse"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(e, "/login", `{"email":"ada@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(e, "/login", `{"email":"ADA@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeAuth(t, rec)

	// rotation revokes the presented token
	rec = post(e, "/refresh", `{"refresh_token":"`+login.Refresh.Token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decodeAuth(t, rec)
	assert.NotEqual(t, login.Refresh.Token, rotated.Refresh.Token)
	rec = post(e, "/refresh", `{"refresh_token":"`+login.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(e, "/refresh-access", `{"refresh_token":"`+rotated.Refresh.Token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access"`)

	rec = post(e, "/logout", `{"refresh_token":"`+rotated.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = post(e, "/refresh-access", `{"refresh_token":"`+rotated.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutAllSessionsWithBearer(t *testing.T) {
	_, e := newAuth()
	reg := decodeAuth(t, post(e, "/register", `{"email":"b@example.com","name":"B","password":"long-enough"}`))
	other := decodeAuth(t, post(e, "/login", `{"email":"b@example.com","password":"long-enough"}`))

	rec := post(e, "/logout", `{}`, "Authorization", "Bearer "+reg.Access.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	for _, raw := range []string{reg.Refresh.Token, other.Refresh.Token} {
		rec = post(e, "/refresh", `{"refresh_token":"`+raw+`"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec = post(e, "/logout", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	_, e := newAuth()
	assert.Equal(t, http.StatusBadRequest, post(e, "/register", `{"email":"a@b.c","password":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(e, "/register", `{"email":"a@b.c","name":"A","password":"short"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(e, "/register", `not json`).Code)
}

type pingFunc func(context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/ok", Health(nil))
	e.GET("/down", Health(pingFunc(func(context.Context) error { return errors.New("gone") })))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
