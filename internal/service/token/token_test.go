package token

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/cart_order_api/internal/models"
)

var (
	testSecret        = []byte("test_secret")
	testRefreshSecret = []byte("test_refresh_secret")
)

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.RefreshToken{}))
	return db
}

func newService(db *gorm.DB) *TokenService {
	return &TokenService{DB: db, JWTSecret: testSecret, RefreshSecret: testRefreshSecret}
}

func issueRefresh(t *testing.T, db *gorm.DB, userID uint, role string) string {
	raw, jti, err := SignRefreshToken(userID, role, testRefreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(db, raw, jti, userID, role))
	return raw
}

func TestValidateRefreshRoundTrip(t *testing.T) {
	db := newTestDB(t)
	raw := issueRefresh(t, db, 7, "user")

	claims, err := ValidateRefresh(raw, testRefreshSecret, db)
	require.NoError(t, err)
	require.Equal(t, float64(7), claims["sub"])
	require.Equal(t, "user", claims["role"])
	require.Equal(t, "refresh", claims["typ"])
}

func TestValidateRefreshRejectsAccessToken(t *testing.T) {
	db := newTestDB(t)
	access, err := SignAccessToken(7, "user", testRefreshSecret)
	require.NoError(t, err)

	_, err = ValidateRefresh(access, testRefreshSecret, db)
	require.Error(t, err)
}

func TestValidateRefreshRejectsWrongSecret(t *testing.T) {
	db := newTestDB(t)
	raw := issueRefresh(t, db, 7, "user")

	_, err := ValidateRefresh(raw, []byte("other_secret"), db)
	require.Error(t, err)
}

func TestValidateRefreshRejectsUnknownToken(t *testing.T) {
	db := newTestDB(t)
	raw, _, err := SignRefreshToken(7, "user", testRefreshSecret)
	require.NoError(t, err)

	_, err = ValidateRefresh(raw, testRefreshSecret, db)
	require.ErrorContains(t, err, "not found")
}

func TestValidateRefreshRejectsRevoked(t *testing.T) {
	db := newTestDB(t)
	raw := issueRefresh(t, db, 7, "user")
	require.NoError(t, RevokeRefreshToken(db, raw))

	_, err := ValidateRefresh(raw, testRefreshSecret, db)
	require.ErrorContains(t, err, "revoked")
}

func TestRotateTokenRevokesOldRow(t *testing.T) {
	db := newTestDB(t)
	svc := newService(db)
	raw := issueRefresh(t, db, 7, "user")

	newAccess, newRefresh, claims, err := svc.RotateToken(raw)
	require.NoError(t, err)
	require.NotEmpty(t, newAccess)
	require.NotEmpty(t, newRefresh)
	require.NotEqual(t, raw, newRefresh)
	require.Equal(t, float64(7), claims["sub"])

	// the old token is single-use
	_, _, _, err = svc.RotateToken(raw)
	require.Error(t, err)

	// the new one works
	_, _, _, err = svc.RotateToken(newRefresh)
	require.NoError(t, err)
}

func TestAutoRefreshMiddlewarePassesValidAccess(t *testing.T) {
	db := newTestDB(t)
	svc := newService(db)
	access, err := SignAccessToken(7, "user", testSecret)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: access})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := svc.AutoRefreshMiddleware(func(c echo.Context) error {
		called = true
		require.Equal(t, uint(7), c.Get("userID"))
		require.Equal(t, "user", c.Get("role"))
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	require.True(t, called)
}

func TestAutoRefreshMiddlewareRejectsMissingCookies(t *testing.T) {
	db := newTestDB(t)
	svc := newService(db)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := svc.AutoRefreshMiddleware(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	err := h(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestAutoRefreshMiddlewareRotatesExpiredAccess(t *testing.T) {
	db := newTestDB(t)
	svc := newService(db)
	raw := issueRefresh(t, db, 7, "user")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: raw})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := svc.AutoRefreshMiddleware(func(c echo.Context) error {
		called = true
		require.Equal(t, uint(7), c.Get("userID"))
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	require.True(t, called)

	names := map[string]bool{}
	for _, ck := range rec.Result().Cookies() {
		names[ck.Name] = true
	}
	require.True(t, names["accessToken"])
	require.True(t, names["refreshToken"])
}

func TestAutoRefreshMiddlewareRejectsUnsignedToken(t *testing.T) {
	db := newTestDB(t)
	svc := newService(db)

	claims := jwt.MapClaims{
		"sub":  float64(7),
		"role": "user",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: unsigned})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := svc.AutoRefreshMiddleware(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	err = h(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestAdminMiddlewareRejectsUserRole(t *testing.T) {
	db := newTestDB(t)
	svc := newService(db)
	access, err := SignAccessToken(7, "user", testSecret)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: access})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := svc.AutoRefreshMiddlewareAdmin(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	err = h(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusForbidden, he.Code)
}

func TestAdminMiddlewareAllowsAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := newService(db)
	access, err := SignAccessToken(1, "admin", testSecret)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: access})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := svc.AutoRefreshMiddlewareAdmin(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	require.True(t, called)
}
