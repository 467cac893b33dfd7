package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hall-reservation/internal/config"
	"github.com/iliyamo/hall-reservation/internal/handler"
	"github.com/iliyamo/hall-reservation/internal/middleware"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/repository/memory"
	"github.com/iliyamo/hall-reservation/internal/service"
	"github.com/iliyamo/hall-reservation/internal/slipstore"
	"github.com/iliyamo/hall-reservation/internal/utils"
)

const secret = "router-test-secret"

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T, cache echo.MiddlewareFunc) *api {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := service.New(memory.New(),
		service.WithLogger(log),
		service.WithGenerator(service.GeneratorFunc(func(d time.Time) bool { return true })),
		service.WithSlipStore(slipstore.NewDisk(t.TempDir(), 1<<20)),
	)
	e := echo.New()
	Register(e, Deps{
		Auth:      handler.NewAuthHandler(config.Config{JWTSecret: secret}, nil, nil),
		Halls:     handler.NewHallHandler(svc, 30),
		Bookings:  handler.NewBookingHandler(svc, 1<<20),
		Admin:     handler.NewAdminHandler(svc, 60),
		JWTSecret: secret,
		Cache:     cache,
	})
	return &api{t: t, e: e}
}

func token(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 15)
	require.NoError(t, err)
	return tok.Token
}

func (a *api) do(method, path, tok string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func idOf(t *testing.T, rec *httptest.ResponseRecorder) uint64 {
	t.Helper()
	return uint64(decode(t, rec)["id"].(float64))
}

func bookingBody(hallID uint64, start, end string) map[string]any {
	return map[string]any{
		"hall_id":       hallID,
		"start_date":    start,
		"end_date":      end,
		"event_name":    "Conference",
		"contact_name":  "Dana",
		"contact_phone": "555-0101",
	}
}

func TestBookingFlowOverHTTP(t *testing.T) {
	a := newAPI(t, nil)
	admin := token(t, 1, model.RoleAdmin)
	dana := token(t, 20, model.RoleCustomer)
	eli := token(t, 21, model.RoleCustomer)

	rec := a.do(http.MethodPost, "/v1/admin/halls", admin, map[string]any{
		"name": "Lakeside", "capacity": 120, "default_rate_cents": 3500, "amenities": []string{"stage"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	hall := idOf(t, rec)

	rec = a.do(http.MethodPost, "/v1/admin/halls", dana, map[string]any{"name": "x", "capacity": 1, "default_rate_cents": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodGet, "/v1/halls", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/halls/%d/quote?start=2025-06-01&end=2025-06-02", hall), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(7000), decode(t, rec)["total_cents"])

	rec = a.do(http.MethodPost, "/v1/bookings", "", bookingBody(hall, "2025-06-01", "2025-06-03"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/v1/bookings", dana, bookingBody(hall, "2025-06-01", "2025-06-03"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decode(t, rec)
	assert.Equal(t, "pending_payment", booking["status"])
	assert.Equal(t, "2025-06-01", booking["start_date"])
	id := uint64(booking["id"].(float64))

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/bookings/%d", id), eli, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/payment", id), dana, map[string]any{"slip_ref": "bank-transfer-77"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "paid_pending_review", decode(t, rec)["status"])

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/admin/bookings/%d/payment-review", id), admin, map[string]any{"action": "approve"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/admin/bookings/%d/payment-review", id), admin, map[string]any{"action": "verify"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode(t, rec)["status"])

	rec = a.do(http.MethodPost, "/v1/bookings", eli, bookingBody(hall, "2025-06-03", "2025-06-05"))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "2025-06-03", decode(t, rec)["start_date"])

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/halls/%d/availability?start=2025-06-01&end=2025-06-03", hall), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, d := range decode(t, rec)["days"].([]any) {
		assert.Equal(t, false, d.(map[string]any)["available"])
	}

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/payment", id), dana, map[string]any{"slip_ref": "again"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "confirmed", decode(t, rec)["status"])

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/cancel", id), dana, map[string]any{"reason": "moved"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/v1/admin/bookings?status=cancel_requested", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = a.do(http.MethodGet, "/v1/admin/bookings?status=bogus", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/admin/bookings/%d/cancellation-review", id), admin, map[string]any{"action": "approve"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode(t, rec)["status"])

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/halls/%d/availability/check?start=2025-06-01&end=2025-06-03", hall), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["available"])

	rec = a.do(http.MethodDelete, fmt.Sprintf("/v1/bookings/%d", id), eli, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodDelete, fmt.Sprintf("/v1/bookings/%d", id), dana, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/bookings/%d", id), dana, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodGet, "/v1/admin/overview", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["total_income_cents"])
}

func TestSlipUploadOverHTTP(t *testing.T) {
	a := newAPI(t, nil)
	admin := token(t, 1, model.RoleAdmin)
	dana := token(t, 20, model.RoleCustomer)

	hall := idOf(t, a.do(http.MethodPost, "/v1/admin/halls", admin, map[string]any{
		"name": "Hall", "capacity": 10, "default_rate_cents": 100,
	}))
	id := idOf(t, a.do(http.MethodPost, "/v1/bookings", dana, bookingBody(hall, "2025-06-01", "2025-06-01")))

	upload := func(filename string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("slip", filename)
		require.NoError(t, err)
		_, _ = fw.Write([]byte("%PDF-1.4 fake"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/payment", id), &buf)
		req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+dana)
		rec := httptest.NewRecorder()
		a.e.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("slip.gif")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "slip", decode(t, rec)["field"])

	rec = upload("slip.pdf")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "paid_pending_review", body["status"])
	assert.True(t, strings.HasPrefix(body["slip_ref"].(string), "payment_slips/slip_"))
}

func TestAdminCalendarAndPricingOverHTTP(t *testing.T) {
	a := newAPI(t, nil)
	admin := token(t, 1, model.RoleAdmin)
	hall := idOf(t, a.do(http.MethodPost, "/v1/admin/halls", admin, map[string]any{
		"name": "Hall", "capacity": 10, "default_rate_cents": 3500,
	}))
	base := fmt.Sprintf("/v1/admin/halls/%d", hall)

	rec := a.do(http.MethodPut, base+"/availability/2025-06-02", admin, map[string]any{"available": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPut, base+"/availability/2025-06-02", admin, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPut, base+"/availability", admin, map[string]any{"start": "2025-06-05", "end": "2025-06-06", "available": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, base+"/availability?start=2025-06-01&end=2025-06-06", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []bool
	for _, d := range decode(t, rec)["days"].([]any) {
		got = append(got, d.(map[string]any)["available"].(bool))
	}
	assert.Equal(t, []bool{true, false, true, true, false, false}, got)

	rec = a.do(http.MethodPost, base+"/availability/seed", admin, map[string]any{"days": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["days"], 3)
	rec = a.do(http.MethodPost, base+"/availability/seed", admin, map[string]any{"days": 400})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, base+"/pricing-rules", admin, map[string]any{
		"start_date": "2025-06-01", "end_date": "2025-06-07", "price_per_day_cents": 3150,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rule := idOf(t, rec)

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/halls/%d/quote?start=2025-06-05&end=2025-06-09", hall), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(16450), decode(t, rec)["total_cents"])

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/halls/%d/pricing-rules", hall), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = a.do(http.MethodDelete, fmt.Sprintf("/v1/admin/pricing-rules/%d", rule), admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodDelete, fmt.Sprintf("/v1/admin/pricing-rules/%d", rule), admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodDelete, base+"/pricing-rules", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["deleted"])
}

func TestPublicReadErrors(t *testing.T) {
	a := newAPI(t, nil)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/halls/99", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/halls/abc", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/halls/1/quote", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest,
		a.do(http.MethodGet, "/v1/halls/1/quote?start=2025-06-05&end=2025-06-01", "", nil).Code)
}

func TestPublicReadsAreCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := middleware.NewRedisCache(config.CacheConfig{
		Enabled:      true,
		TTL:          time.Minute,
		KeyStrategy:  "path_query",
		Prefix:       "test",
		MaxBodyBytes: 1 << 20,
		Methods:      map[string]bool{http.MethodGet: true},
	}, rdb)

	a := newAPI(t, cache)
	admin := token(t, 1, model.RoleAdmin)
	hall := idOf(t, a.do(http.MethodPost, "/v1/admin/halls", admin, map[string]any{
		"name": "Hall", "capacity": 10, "default_rate_cents": 100,
	}))
	path := fmt.Sprintf("/v1/halls/%d/availability?start=2025-06-01&end=2025-06-01", hall)

	rec := a.do(http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, mr.Keys())

	// the calendar changes but the cached answer is served until the TTL
	require.Equal(t, http.StatusOK, a.do(http.MethodPut,
		fmt.Sprintf("/v1/admin/halls/%d/availability/2025-06-01", hall), admin, map[string]any{"available": false}).Code)
	rec = a.do(http.MethodGet, path, "", nil)
	assert.Equal(t, true, decode(t, rec)["days"].([]any)[0].(map[string]any)["available"])

	mr.FastForward(2 * time.Minute)
	rec = a.do(http.MethodGet, path, "", nil)
	assert.Equal(t, false, decode(t, rec)["days"].([]any)[0].(map[string]any)["available"])
}
