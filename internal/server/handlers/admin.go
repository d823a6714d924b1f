package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/sitegate/sitegate/internal/errors"
	"github.com/sitegate/sitegate/internal/store"
)

// AdminHandler serves the authenticated admin surface: contact inbox and
// product management. Authentication happens in the route group middleware.
type AdminHandler struct {
	Store *store.Store
}

// ListMessages handles GET /api/admin/messages.
func (h *AdminHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)

	messages, err := h.Store.ListContactMessages(r.Context(), limit)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabase(r.Context(), err, "Failed to list contact messages"))
		return
	}

	if messages == nil {
		messages = []store.ContactMessage{}
	}

	writeJSON(w, http.StatusOK, messages)
}

// MarkMessageRead handles POST /api/admin/messages/{id}/read.
func (h *AdminHandler) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("Invalid message id"))
		return
	}

	if err := h.Store.MarkContactMessageRead(r.Context(), id); err != nil {
		respondWithError(w, r, apperrors.WrapDatabase(r.Context(), err, "Failed to update contact message"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListProducts handles GET /api/admin/products and the public
// GET /api/products listing.
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)

	products, err := h.Store.ListProducts(r.Context(), limit)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabase(r.Context(), err, "Failed to list products"))
		return
	}

	if products == nil {
		products = []store.Product{}
	}

	writeJSON(w, http.StatusOK, products)
}

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	ImageURL    string `json:"image_url"`
}

// CreateProduct handles POST /api/admin/products.
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid request body"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondWithError(w, r, apperrors.NewValidationError("Product name is required"))
		return
	}
	if req.PriceCents < 0 {
		respondWithError(w, r, apperrors.NewValidationError("Product price cannot be negative"))
		return
	}

	product, err := h.Store.CreateProduct(r.Context(), store.Product{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		PriceCents:  req.PriceCents,
		ImageURL:    strings.TrimSpace(req.ImageURL),
	})
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabase(r.Context(), err, "Failed to store product"))
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// DeleteProduct handles DELETE /api/admin/products/{id}.
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("Invalid product id"))
		return
	}

	if err := h.Store.DeleteProduct(r.Context(), id); err != nil {
		respondWithError(w, r, apperrors.WrapDatabase(r.Context(), err, "Failed to delete product"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func parseLimit(r *http.Request, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
