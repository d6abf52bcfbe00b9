package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/automarket/internal/api/middleware"
	"github.com/example/automarket/internal/cart"
	"github.com/example/automarket/internal/catalog"
	"github.com/example/automarket/internal/checkout"
	"github.com/example/automarket/internal/infrastructure/store"
	"github.com/example/automarket/internal/inventory"
	"github.com/example/automarket/internal/model"
)

// Handlers handles the catalog, cart, checkout and notification endpoints
type Handlers struct {
	catalogService  *catalog.Service
	cartService     *cart.Service
	checkoutService *checkout.Service
	notifications   store.NotificationStore
}

// NewHandlers creates a new Handlers instance
func NewHandlers(catalogSvc *catalog.Service, cartSvc *cart.Service, checkoutSvc *checkout.Service, notifications store.NotificationStore) *Handlers {
	return &Handlers{
		catalogService:  catalogSvc,
		cartService:     cartSvc,
		checkoutService: checkoutSvc,
		notifications:   notifications,
	}
}

// Accessory Handlers

func (h *Handlers) GetAccessories(w http.ResponseWriter, r *http.Request) {
	accessories, err := h.catalogService.ListAccessories(r.Context(), isStaff(r))
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if accessories == nil {
		accessories = []*model.Accessory{}
	}
	respondJSON(w, http.StatusOK, accessories)
}

func (h *Handlers) GetAccessory(w http.ResponseWriter, r *http.Request) {
	a, err := h.catalogService.GetAccessory(r.Context(), chi.URLParam(r, "id"), isStaff(r))
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *Handlers) CreateAccessory(w http.ResponseWriter, r *http.Request) {
	var in catalog.AccessoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	a, err := h.catalogService.CreateAccessory(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

func (h *Handlers) UpdateAccessory(w http.ResponseWriter, r *http.Request) {
	var in catalog.AccessoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	a, err := h.catalogService.UpdateAccessory(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *Handlers) DeleteAccessory(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.DeleteAccessory(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Accessory deleted"})
}

// Car Handlers

func (h *Handlers) GetCars(w http.ResponseWriter, r *http.Request) {
	cars, err := h.catalogService.ListCars(r.Context(), isStaff(r))
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if cars == nil {
		cars = []*model.Car{}
	}
	respondJSON(w, http.StatusOK, cars)
}

func (h *Handlers) GetCar(w http.ResponseWriter, r *http.Request) {
	c, err := h.catalogService.GetCar(r.Context(), chi.URLParam(r, "id"), isStaff(r))
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) CreateCar(w http.ResponseWriter, r *http.Request) {
	var in catalog.CarInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	c, err := h.catalogService.CreateCar(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *Handlers) UpdateCar(w http.ResponseWriter, r *http.Request) {
	var in catalog.CarInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	c, err := h.catalogService.UpdateCar(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) DeleteCar(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.DeleteCar(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Car deleted"})
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	items, err := h.cartService.Items(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var total float64
	for _, item := range items {
		total += item.Subtotal
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessoryID string `json:"accessory_id"`
		Quantity    int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	line, err := h.cartService.AddItem(r.Context(), middleware.GetUserID(r.Context()), req.AccessoryID, req.Quantity)
	if err != nil {
		respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, line)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	err := h.cartService.RemoveItem(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "accessoryID"))
	if err != nil {
		respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Item removed"})
}

// Checkout Handlers

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []store.CheckoutItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	purchase, err := h.checkoutService.Checkout(r.Context(), middleware.GetUserID(r.Context()), req.Items)
	if err != nil {
		respondCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, purchase)
}

func (h *Handlers) GetPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.checkoutService.Purchases(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if purchases == nil {
		purchases = []*model.Purchase{}
	}
	respondJSON(w, http.StatusOK, purchases)
}

func (h *Handlers) GetPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := h.checkoutService.Purchase(r.Context(), middleware.GetUserID(r.Context()), isAdmin(r), chi.URLParam(r, "id"))
	if err != nil {
		respondCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Notification Handlers

func (h *Handlers) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	notifications, err := h.notifications.ListNotificationsByUser(r.Context(), userID)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if notifications == nil {
		notifications = []*model.Notification{}
	}
	unread, err := h.notifications.CountUnreadNotifications(r.Context(), userID)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	err := h.notifications.MarkNotificationRead(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if errors.Is(err, store.ErrNotFound) {
		respondJSONError(w, "Notification not found", http.StatusNotFound)
		return
	}
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// isStaff reports whether the caller is an admin or advisor; staff see
// unpublished catalog entries.
func isStaff(r *http.Request) bool {
	claims, ok := middleware.GetUserFromContext(r.Context())
	return ok && (claims.Role == model.RoleAdmin || claims.Role == model.RoleAdvisor)
}

func isAdmin(r *http.Request) bool {
	claims, ok := middleware.GetUserFromContext(r.Context())
	return ok && claims.Role == model.RoleAdmin
}

func respondCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		respondJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, catalog.ErrInvalidName),
		errors.Is(err, catalog.ErrInvalidPrice),
		errors.Is(err, catalog.ErrNegativeStock):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}

func respondCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInsufficientStock):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, inventory.ErrAccessoryNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		respondJSONError(w, err.Error(), http.StatusNotFound)
	default:
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}

func respondCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyCheckout),
		errors.Is(err, checkout.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrInsufficientStock):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, checkout.ErrAccessoryNotFound),
		errors.Is(err, checkout.ErrNotFound):
		respondJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, checkout.ErrForbidden):
		respondJSONError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, store.ErrDuplicateInvoice):
		respondJSONError(w, err.Error(), http.StatusConflict)
	default:
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}
