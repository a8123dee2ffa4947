package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/cart_order_api/internal/models"
)

type testEnv struct {
	T  *testing.T
	E  *echo.Echo
	DB *gorm.DB
	H  *ProductHandler
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Product{}))

	return &testEnv{
		T:  t,
		E:  echo.New(),
		DB: db,
		H:  &ProductHandler{DB: db},
	}
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t)
	prod := models.Product{Name: "tea", Price: 10, Category: "drinks", Stock: 5}
	require.NoError(t, env.DB.Create(&prod).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/products/1", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(prod.ID))
	require.NoError(t, env.H.GetProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "tea", got.Name)
	require.Equal(t, 5, got.Stock)
}

func TestGetProductNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodGet, "/api/v1/products/99", nil)
	c.SetParamNames("id")
	c.SetParamValues("99")
	err := env.H.GetProduct(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestGetProductInvalidID(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodGet, "/api/v1/products/abc", nil)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	err := env.H.GetProduct(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestGetProductsPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 1; i <= 12; i++ {
		require.NoError(t, env.DB.Create(&models.Product{
			Name: fmt.Sprintf("item-%d", i), Price: float64(i), Stock: 1,
		}).Error)
	}

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/products?page=2&size=5", nil)
	require.NoError(t, env.H.GetProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.Product `json:"data"`
		Meta struct {
			Page       int   `json:"page"`
			Size       int   `json:"size"`
			Total      int64 `json:"total"`
			TotalPages int64 `json:"total_pages"`
			HasPrev    bool  `json:"has_prev"`
			HasNext    bool  `json:"has_next"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 5)
	require.Equal(t, "item-6", resp.Data[0].Name)
	require.Equal(t, int64(12), resp.Meta.Total)
	require.Equal(t, int64(3), resp.Meta.TotalPages)
	require.True(t, resp.Meta.HasPrev)
	require.True(t, resp.Meta.HasNext)
}

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/admin/products",
		map[string]any{"name": "tea", "price": 10.5, "category": "drinks", "stock": 7})
	require.NoError(t, env.H.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored models.Product
	require.NoError(t, env.DB.Where("name = ?", "tea").First(&stored).Error)
	require.Equal(t, 10.5, stored.Price)
	require.Equal(t, 7, stored.Stock)
}

func TestCreateProductRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []map[string]any{
		{"name": "", "price": 10, "stock": 1},
		{"name": "tea", "price": -1, "stock": 1},
		{"name": "tea", "price": 10, "stock": -1},
	} {
		_, c := env.doJSONRequest(http.MethodPost, "/api/v1/admin/products", body)
		err := env.H.CreateProduct(c)
		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		require.Equal(t, http.StatusBadRequest, he.Code)
	}
}

func TestPatchProductKeepsStock(t *testing.T) {
	env := newTestEnv(t)
	prod := models.Product{Name: "tea", Price: 10, Category: "drinks", Stock: 5}
	require.NoError(t, env.DB.Create(&prod).Error)

	rec, c := env.doJSONRequest(http.MethodPatch, "/api/v1/admin/products/1",
		map[string]any{"name": "green tea", "price": 12, "category": "drinks", "stock": 100})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(prod.ID))
	require.NoError(t, env.H.PatchProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Product
	require.NoError(t, env.DB.First(&stored, prod.ID).Error)
	require.Equal(t, "green tea", stored.Name)
	require.Equal(t, float64(12), stored.Price)
	require.Equal(t, 5, stored.Stock)
}

func TestPatchProductNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPatch, "/api/v1/admin/products/99",
		map[string]any{"name": "tea", "price": 1})
	c.SetParamNames("id")
	c.SetParamValues("99")
	err := env.H.PatchProduct(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	prod := models.Product{Name: "tea", Price: 10, Stock: 5}
	require.NoError(t, env.DB.Create(&prod).Error)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/v1/admin/products/1", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(prod.ID))
	require.NoError(t, env.H.DeleteProduct(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.Product{}).Count(&count).Error)
	require.Zero(t, count)
}
