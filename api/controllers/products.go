package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecomarket/marketplace-backend/api/middleware"
	"github.com/ecomarket/marketplace-backend/api/responses"
	"github.com/ecomarket/marketplace-backend/api/validators"
	product "github.com/ecomarket/marketplace-backend/internal/products"
	"github.com/ecomarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ecomarket/marketplace-backend/pkg/errors"
	"github.com/ecomarket/marketplace-backend/pkg/logger"
	"github.com/ecomarket/marketplace-backend/pkg/pagination"
)

const (
	maxSearchLength = 120
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ProductList serves the public catalog with optional filters.
func ProductList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<20)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		featured, err := validators.ParseQueryBool(r, "featured")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		list, err := svc.ListProducts(r.Context(), product.ListProductsInput{
			Filters: product.ProductListFilters{
				Category: validators.SanitizeString(query.Get("category"), maxSearchLength),
				Search:   validators.SanitizeString(query.Get("search"), maxSearchLength),
				Featured: featured,
			},
			Pagination: pagination.Params{Limit: limit, Offset: offset},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ProductDetail returns one listing and counts the view.
func ProductDetail(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, p)
	}
}

type createProductRequest struct {
	Title         string           `json:"title" validate:"required,max=200"`
	Description   string           `json:"description" validate:"required"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Category      string           `json:"category" validate:"required,max=80"`
	Condition     string           `json:"condition" validate:"required"`
	CarbonSaved   *decimal.Decimal `json:"carbonSaved" validate:"required"`
	EcoScore      string           `json:"ecoScore" validate:"required,max=8"`
	ImageURL      *string          `json:"imageUrl,omitempty" validate:"omitempty,url"`
	IsFeatured    bool             `json:"isFeatured,omitempty"`
}

func (p createProductRequest) toInput() product.CreateProductInput {
	return product.CreateProductInput{
		Title:         strings.TrimSpace(p.Title),
		Description:   strings.TrimSpace(p.Description),
		Price:         *p.Price,
		OriginalPrice: p.OriginalPrice,
		Category:      strings.TrimSpace(p.Category),
		Condition:     enums.ProductCondition(strings.TrimSpace(p.Condition)),
		CarbonSaved:   *p.CarbonSaved,
		EcoScore:      strings.TrimSpace(p.EcoScore),
		ImageURL:      p.ImageURL,
		IsFeatured:    p.IsFeatured,
	}
}

// ProductCreate lists a new item for the caller.
func ProductCreate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateProduct(r.Context(), userID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

type updateProductRequest struct {
	Title         *string          `json:"title,omitempty" validate:"omitempty,max=200"`
	Description   *string          `json:"description,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Category      *string          `json:"category,omitempty" validate:"omitempty,max=80"`
	Condition     *string          `json:"condition,omitempty"`
	CarbonSaved   *decimal.Decimal `json:"carbonSaved,omitempty"`
	EcoScore      *string          `json:"ecoScore,omitempty" validate:"omitempty,max=8"`
	ImageURL      *string          `json:"imageUrl,omitempty" validate:"omitempty,url"`
	IsFeatured    *bool            `json:"isFeatured,omitempty"`
	Available     *bool            `json:"available,omitempty"`
}

func (p updateProductRequest) toInput() product.UpdateProductInput {
	input := product.UpdateProductInput{
		Title:         p.Title,
		Description:   p.Description,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Category:      p.Category,
		CarbonSaved:   p.CarbonSaved,
		EcoScore:      p.EcoScore,
		ImageURL:      p.ImageURL,
		IsFeatured:    p.IsFeatured,
		Available:     p.Available,
	}
	if p.Condition != nil {
		condition := enums.ProductCondition(strings.TrimSpace(*p.Condition))
		input.Condition = &condition
	}
	return input
}

// ProductUpdate applies a partial update to one of the caller's listings.
func ProductUpdate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateProduct(r.Context(), userID, id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// MyProducts lists the caller's own listings, sold ones included.
func MyProducts(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListBySeller(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// MyProductsExport streams the caller's listings as an xlsx workbook.
func MyProductsExport(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		data, err := svc.ExportBySeller(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filename := fmt.Sprintf("listings-%s.xlsx", time.Now().UTC().Format("20060102"))
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func requireUser(r *http.Request) (string, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return userID, nil
}
