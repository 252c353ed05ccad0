package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/makkenzo/machine-license-api/internal/ierr"
	"github.com/makkenzo/machine-license-api/internal/util"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlerMiddleware(zap.NewNop()))
	r.Use(handlers...)
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func serve(r *gin.Engine, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_PerIP(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(0.001), 2, time.Minute)
	r := newEngine(RateLimiter(limiter))

	assert.Equal(t, http.StatusOK, serve(r, nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, nil).Code)

	w := serve(r, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Too many requests"}`, w.Body.String())

	assert.Same(t, limiter.GetLimiter("10.0.0.1"), limiter.GetLimiter("10.0.0.1"))
	assert.NotSame(t, limiter.GetLimiter("10.0.0.1"), limiter.GetLimiter("10.0.0.2"))
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := serve(r, nil)
	generated := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	require.NoError(t, err)

	incoming := uuid.NewString()
	w = serve(r, http.Header{RequestIDHeader: {incoming}})
	assert.Equal(t, incoming, w.Header().Get(RequestIDHeader))

	w = serve(r, http.Header{RequestIDHeader: {"not-a-uuid"}})
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(RequestIDHeader))
}

func TestServeCanonicalizesHeaderKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetHeader(AdminKeyHeader)+"|"+c.GetHeader(RequestIDHeader))
	})

	w := serve(r, http.Header{AdminKeyHeader: {"k"}, RequestIDHeader: {"id"}})
	assert.Equal(t, "k|id", w.Body.String())
}

func TestAdminKeyMiddleware(t *testing.T) {
	r := newEngine(AdminKeyMiddleware(util.NewAdminKeyVerifier("s3cret", ""), zap.NewNop()))

	w := serve(r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.Header{AdminKeyHeader: {"nope"}}).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.Header{AdminKeyHeader: {"s3cret"}}).Code)
}

func TestAdminKeyMiddleware_Unconfigured(t *testing.T) {
	r := newEngine(AdminKeyMiddleware(util.NewAdminKeyVerifier("", ""), zap.NewNop()))

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.Header{AdminKeyHeader: {""}}).Code)
}

type storeState bool

func (s storeState) Available() bool { return bool(s) }

func TestRequireStore(t *testing.T) {
	w := serve(newEngine(RequireStore(storeState(false))), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Database not configured"}`, w.Body.String())

	assert.Equal(t, http.StatusOK, serve(newEngine(RequireStore(storeState(true))), nil).Code)
}

func TestErrorHandlerMiddleware_Mapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: bad", ierr.ErrValidation), http.StatusBadRequest},
		{ierr.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("%w: license X", ierr.ErrNotFound), http.StatusNotFound},
		{ierr.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("%w after 8 attempts", ierr.ErrKeyGeneration), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			r := gin.New()
			r.Use(ErrorHandlerMiddleware(zap.NewNop()))
			r.GET("/", func(c *gin.Context) { _ = c.Error(tc.err) })

			w := serve(r, nil)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}
