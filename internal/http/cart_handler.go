package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartStore is the cart and wishlist service as the handlers use it.
type CartStore interface {
	Add(ctx context.Context, kind domain.ListKind, userID string, productID primitive.ObjectID, quantity int) (*domain.Cart, error)
	List(ctx context.Context, kind domain.ListKind, userID string) ([]domain.CartLine, error)
	UpdateQuantity(ctx context.Context, kind domain.ListKind, userID string, itemID primitive.ObjectID, quantity int) (*domain.Cart, error)
	Remove(ctx context.Context, kind domain.ListKind, userID string, itemID primitive.ObjectID) error
	Transfer(ctx context.Context, from domain.ListKind, userID string, productID primitive.ObjectID, removeSource bool) (*domain.TransferResult, error)
}

type CartHandler struct {
	store   CartStore
	timeout time.Duration
	log     *slog.Logger
}

func NewCartHandler(store CartStore, timeout time.Duration, log *slog.Logger) *CartHandler {
	return &CartHandler{
		store:   store,
		timeout: timeout,
		log:     log,
	}
}

type AddItemRequestDTO struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type TransferRequestDTO struct {
	ProductID    string `json:"productId"`
	RemoveSource bool   `json:"removeSource"`
}

type AddItemResponseDTO struct {
	Message string       `json:"message"`
	Cart    *domain.Cart `json:"cart"`
}

type ListResponseDTO struct {
	Items []domain.CartLine `json:"items"`
}

type TransferResponseDTO struct {
	Message string                 `json:"message"`
	Result  *domain.TransferResult `json:"result"`
}

// AddItem handles POST /cart/add.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	h.add(w, r, domain.KindCart)
}

// AddWishlistItem handles POST /cart/wishlist/add.
func (h *CartHandler) AddWishlistItem(w http.ResponseWriter, r *http.Request) {
	h.add(w, r, domain.KindWishlist)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request, kind domain.ListKind) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// The body may name the owner; it has to be the caller
	if req.UserID != "" && req.UserID != session.UserID {
		respondError(w, http.StatusForbidden, "permission_denied", "cannot access another user's data")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing productId")
		return
	}
	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		handleServiceError(w, r, h.log, domain.ErrInvalidID)
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.store.Add(ctx, kind, session.UserID, productID, quantity)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, AddItemResponseDTO{
		Message: "Product added to " + string(kind),
		Cart:    cart,
	})
}

// ListCart handles GET /cart/user/{userId}.
func (h *CartHandler) ListCart(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.KindCart)
}

// ListWishlist handles GET /cart/user/wishlist/{userId}.
func (h *CartHandler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.KindWishlist)
}

func (h *CartHandler) list(w http.ResponseWriter, r *http.Request, kind domain.ListKind) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, ok := requireOwner(w, r)
	if !ok {
		return
	}

	lines, err := h.store.List(ctx, kind, session.UserID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, ListResponseDTO{Items: lines})
}

// UpdateCartQuantity handles PUT /cart/update/{itemId}.
func (h *CartHandler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	h.updateQuantity(w, r, domain.KindCart)
}

// UpdateWishlistQuantity handles PUT /cart/wishlist/update/{itemId}.
func (h *CartHandler) UpdateWishlistQuantity(w http.ResponseWriter, r *http.Request) {
	h.updateQuantity(w, r, domain.KindWishlist)
}

func (h *CartHandler) updateQuantity(w http.ResponseWriter, r *http.Request, kind domain.ListKind) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	itemID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "itemId"))
	if err != nil {
		handleServiceError(w, r, h.log, domain.ErrInvalidID)
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == nil {
		handleServiceError(w, r, h.log, domain.ErrInvalidQuantity)
		return
	}

	cart, err := h.store.UpdateQuantity(ctx, kind, session.UserID, itemID, *req.Quantity)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

// RemoveCartItem handles DELETE /cart/remove/{itemId}.
func (h *CartHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, domain.KindCart)
}

// RemoveWishlistItem handles DELETE /cart/wishlist/remove/{itemId}.
func (h *CartHandler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, domain.KindWishlist)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request, kind domain.ListKind) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	itemID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "itemId"))
	if err != nil {
		handleServiceError(w, r, h.log, domain.ErrInvalidID)
		return
	}

	if err := h.store.Remove(ctx, kind, session.UserID, itemID); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "Item removed from " + string(kind)})
}

// MoveToWishlist handles POST /cart/wishlist/{userId} and
// POST /cart/move-to-wishlist/{userId}.
func (h *CartHandler) MoveToWishlist(w http.ResponseWriter, r *http.Request) {
	h.transfer(w, r, domain.KindCart)
}

// MoveToCart handles POST /cart/wishlist/move-to-cart/{userId}.
func (h *CartHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	h.transfer(w, r, domain.KindWishlist)
}

func (h *CartHandler) transfer(w http.ResponseWriter, r *http.Request, from domain.ListKind) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req TransferRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		handleServiceError(w, r, h.log, domain.ErrInvalidID)
		return
	}

	result, err := h.store.Transfer(ctx, from, session.UserID, productID, req.RemoveSource)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	message := "Product added to " + string(from.Other()) + "."
	if result.AlreadyPresent {
		message = "Product already in " + string(from.Other()) + "."
	}
	respondJSON(w, http.StatusOK, TransferResponseDTO{Message: message, Result: result})
}
