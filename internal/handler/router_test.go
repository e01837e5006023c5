package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	"github.com/hostelhub/hostel-adm-api/internal/service"
)

const routerTestSecret = "router-test-secret"

func newObservabilityRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	metricsSrv := service.NewMetricsService()
	auth := service.NewAuthService(nil, nil, nil, service.AuthConfig{AccessTokenSecret: routerTestSecret})

	RegisterRoutes(r, "/api/v1", Handlers{Metrics: NewMetricsHandler(metricsSrv)}, auth, metricsSrv, nil)
	return r
}

func signAccessToken(t *testing.T, role models.UserRole) string {
	t.Helper()
	claims := &models.JWTClaims{
		UserID: "user-1",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(routerTestSecret))
	require.NoError(t, err)
	return signed
}

func TestMetricsEndpointRequiresAuth(t *testing.T) {
	r := newObservabilityRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsEndpointRejectsNonAdmin(t *testing.T) {
	r := newObservabilityRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer "+signAccessToken(t, models.RoleWarden))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMetricsEndpointServesAdmin(t *testing.T) {
	r := newObservabilityRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer "+signAccessToken(t, models.RoleAdmin))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cache_hits_total")
}

func TestHealthEndpointStaysPublic(t *testing.T) {
	r := newObservabilityRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
