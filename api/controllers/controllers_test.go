package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/api/middleware"
	"github.com/ecomarket/marketplace-backend/internal/impact"
	"github.com/ecomarket/marketplace-backend/internal/payments"
	product "github.com/ecomarket/marketplace-backend/internal/products"
	"github.com/ecomarket/marketplace-backend/internal/reviews"
	"github.com/ecomarket/marketplace-backend/internal/users"
	"github.com/ecomarket/marketplace-backend/pkg/auth"
	"github.com/ecomarket/marketplace-backend/pkg/config"
	pkgerrors "github.com/ecomarket/marketplace-backend/pkg/errors"
	"github.com/ecomarket/marketplace-backend/pkg/pagination"
)

type stubProductService struct {
	listInput   product.ListProductsInput
	createInput product.CreateProductInput
	sellerID    string
	product     *product.ProductDTO
	export      []byte
	err         error
}

func (s *stubProductService) ListProducts(_ context.Context, input product.ListProductsInput) ([]product.ProductDTO, error) {
	s.listInput = input
	return []product.ProductDTO{}, s.err
}

func (s *stubProductService) GetProduct(context.Context, uuid.UUID) (*product.ProductDTO, error) {
	return s.product, s.err
}

func (s *stubProductService) CreateProduct(_ context.Context, sellerID string, input product.CreateProductInput) (*product.ProductDTO, error) {
	s.sellerID = sellerID
	s.createInput = input
	return &product.ProductDTO{ID: uuid.New(), SellerID: sellerID, Available: true}, s.err
}

func (s *stubProductService) ListBySeller(_ context.Context, sellerID string) ([]product.ProductDTO, error) {
	s.sellerID = sellerID
	return []product.ProductDTO{}, s.err
}

func (s *stubProductService) UpdateProduct(_ context.Context, sellerID string, id uuid.UUID, _ product.UpdateProductInput) (*product.ProductDTO, error) {
	s.sellerID = sellerID
	return &product.ProductDTO{ID: id}, s.err
}

func (s *stubProductService) ExportBySeller(context.Context, string) ([]byte, error) {
	return s.export, s.err
}

func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestProductListParsesFilters(t *testing.T) {
	svc := &stubProductService{}
	req := httptest.NewRequest(http.MethodGet, "/api/products?category=clothing&search=%20denim%20&featured=true&limit=5&offset=10", nil)
	resp := httptest.NewRecorder()
	ProductList(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "clothing", svc.listInput.Filters.Category)
	assert.Equal(t, "denim", svc.listInput.Filters.Search)
	require.NotNil(t, svc.listInput.Filters.Featured)
	assert.True(t, *svc.listInput.Filters.Featured)
	assert.Equal(t, pagination.Params{Limit: 5, Offset: 10}, svc.listInput.Pagination)
	assert.JSONEq(t, `{"data":[]}`, resp.Body.String())
}

func TestProductListRejectsBadQuery(t *testing.T) {
	for _, query := range []string{"limit=abc", "limit=0", "limit=101", "offset=-1", "featured=maybe"} {
		resp := httptest.NewRecorder()
		ProductList(&stubProductService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/products?"+query, nil))
		require.Equal(t, http.StatusBadRequest, resp.Code, query)
	}
}

func TestProductDetail(t *testing.T) {
	id := uuid.New()
	svc := &stubProductService{product: &product.ProductDTO{ID: id, Views: 1}}

	resp := httptest.NewRecorder()
	ProductDetail(svc, nil).ServeHTTP(resp, withParam(httptest.NewRequest(http.MethodGet, "/api/products/"+id.String(), nil), "id", id.String()))
	require.Equal(t, http.StatusOK, resp.Code)

	svc.err = pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	resp = httptest.NewRecorder()
	ProductDetail(svc, nil).ServeHTTP(resp, withParam(httptest.NewRequest(http.MethodGet, "/api/products/"+id.String(), nil), "id", id.String()))
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = httptest.NewRecorder()
	ProductDetail(svc, nil).ServeHTTP(resp, withParam(httptest.NewRequest(http.MethodGet, "/api/products/bad", nil), "id", "bad"))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestProductCreate(t *testing.T) {
	svc := &stubProductService{}
	body := `{"title":" Wool coat ","description":"Warm","price":"45.00","category":"clothing","condition":"good","carbonSaved":12.5,"ecoScore":"A"}`

	resp := httptest.NewRecorder()
	ProductCreate(svc, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body)), "seller"))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, "seller", svc.sellerID)
	assert.Equal(t, "Wool coat", svc.createInput.Title)
	assert.True(t, svc.createInput.Price.Equal(decimal.RequireFromString("45")))
	assert.True(t, svc.createInput.CarbonSaved.Equal(decimal.RequireFromString("12.5")))

	resp = httptest.NewRecorder()
	ProductCreate(svc, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"title":"x"}`)), "seller"))
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	ProductCreate(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body)))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestProductUpdateForbidden(t *testing.T) {
	id := uuid.New()
	svc := &stubProductService{err: pkgerrors.New(pkgerrors.CodeForbidden, "not your listing")}
	req := withParam(withUser(httptest.NewRequest(http.MethodPatch, "/api/products/"+id.String(), strings.NewReader(`{"price":"10"}`)), "other"), "id", id.String())

	resp := httptest.NewRecorder()
	ProductUpdate(svc, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestMyProductsExport(t *testing.T) {
	svc := &stubProductService{export: []byte("PK\x03\x04")}
	resp := httptest.NewRecorder()
	MyProductsExport(svc, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodGet, "/api/my-products/export", nil), "seller"))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, xlsxContentType, resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "attachment; filename=\"listings-")
	assert.Equal(t, "PK\x03\x04", resp.Body.String())
}

type stubReviewService struct {
	input reviews.CreateReviewInput
	err   error
}

func (s *stubReviewService) ListByProduct(context.Context, uuid.UUID) ([]reviews.ReviewDTO, error) {
	return []reviews.ReviewDTO{}, s.err
}

func (s *stubReviewService) Create(_ context.Context, buyerID string, productID uuid.UUID, input reviews.CreateReviewInput) (*reviews.ReviewDTO, error) {
	s.input = input
	return &reviews.ReviewDTO{ID: uuid.New(), ProductID: productID, BuyerID: buyerID, Rating: input.Rating}, s.err
}

func TestReviewCreate(t *testing.T) {
	id := uuid.New()
	svc := &stubReviewService{}

	req := withParam(withUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":5,"comment":"great"}`)), "buyer"), "id", id.String())
	resp := httptest.NewRecorder()
	ReviewCreate(svc, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, 5, svc.input.Rating)

	for _, body := range []string{`{"rating":0}`, `{"rating":6}`} {
		req := withParam(withUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), "buyer"), "id", id.String())
		resp := httptest.NewRecorder()
		ReviewCreate(svc, nil).ServeHTTP(resp, req)
		require.Equal(t, http.StatusBadRequest, resp.Code, body)
	}
}

func TestReviewList(t *testing.T) {
	id := uuid.New()
	resp := httptest.NewRecorder()
	ReviewList(&stubReviewService{}, nil).ServeHTTP(resp, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", id.String()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":[]}`, resp.Body.String())
}

type stubPaymentService struct {
	input payments.CreateIntentInput
	err   error
}

func (s *stubPaymentService) CreateIntent(_ context.Context, _ string, input payments.CreateIntentInput) (*payments.IntentDTO, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &payments.IntentDTO{ClientSecret: "pi_secret"}, nil
}

func (s *stubPaymentService) HandleWebhookEvent(context.Context, *stripe.Event) error {
	return s.err
}

func TestCreatePaymentIntent(t *testing.T) {
	svc := &stubPaymentService{}
	itemID := uuid.New()
	body := `{"amount":25.5,"cartItemIds":["` + itemID.String() + `"]}`

	resp := httptest.NewRecorder()
	CreatePaymentIntent(svc, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodPost, "/api/create-payment-intent", strings.NewReader(body)), "buyer"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.JSONEq(t, `{"data":{"clientSecret":"pi_secret"}}`, resp.Body.String())
	assert.True(t, svc.input.Amount.Equal(decimal.RequireFromString("25.5")))
	assert.Equal(t, []uuid.UUID{itemID}, svc.input.CartItemIDs)
}

func TestCreatePaymentIntentErrors(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:          pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero"),
		http.StatusServiceUnavailable:  pkgerrors.New(pkgerrors.CodeDependency, "payment processor not configured"),
		http.StatusInternalServerError: errors.New("boom"),
	}
	for status, err := range cases {
		resp := httptest.NewRecorder()
		CreatePaymentIntent(&stubPaymentService{err: err}, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"10"}`)), "buyer"))
		require.Equal(t, status, resp.Code)
	}

	resp := httptest.NewRecorder()
	CreatePaymentIntent(&stubPaymentService{}, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"cartItemIds":[]}`)), "buyer"))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

type stubImpactService struct{}

func (stubImpactService) Summary(context.Context, string) (*impact.SummaryDTO, error) {
	kg := decimal.NewFromInt(22)
	return &impact.SummaryDTO{CarbonSaved: kg, TreesEquivalent: impact.Trees(kg), OrderCount: 1}, nil
}

func TestImpactSummary(t *testing.T) {
	resp := httptest.NewRecorder()
	ImpactSummary(stubImpactService{}, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodGet, "/api/impact", nil), "buyer"))
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Data struct {
			TreesEquivalent string `json:"treesEquivalent"`
			OrderCount      int    `json:"orderCount"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "1", envelope.Data.TreesEquivalent)
	assert.Equal(t, 1, envelope.Data.OrderCount)
}

type stubUserService struct {
	user *users.UserDTO
	err  error
}

func (s stubUserService) Ensure(context.Context, auth.Identity) error { return nil }

func (s stubUserService) Get(context.Context, string) (*users.UserDTO, error) { return s.user, s.err }

func (s stubUserService) AddCarbonSaved(context.Context, *gorm.DB, string, decimal.Decimal) error {
	return nil
}

func TestAuthUser(t *testing.T) {
	svc := stubUserService{user: &users.UserDTO{ID: "buyer"}}
	resp := httptest.NewRecorder()
	AuthUser(svc, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodGet, "/api/auth/user", nil), "buyer"))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"id":"buyer"`)

	resp = httptest.NewRecorder()
	AuthUser(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/user", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	healthy := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("refused") })

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": healthy, "redis": nil}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":{"status":"ready","checks":{"db":"ok"}}}`, resp.Body.String())

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": healthy, "redis": down}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), `"redis":"down"`)

	resp = httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-EcoMarket-Env"))
}
