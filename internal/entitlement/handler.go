package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/stepacademy/course-access/internal"
	"github.com/stepacademy/course-access/internal/auth"
	"github.com/stepacademy/course-access/internal/transport"
)

type ServiceAPI interface {
	Grant(ctx context.Context, params GrantParams) (*Entitlement, error)
	Revoke(ctx context.Context, userID, actorID, productID string) error
	CheckAccess(ctx context.Context, userID, productID string, now time.Time) (AccessDecision, error)
	ListForUser(ctx context.Context, userID string) ([]*Entitlement, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// CheckAccess handles GET /products/{productID}/access for the authenticated
// user. The dashboard polls this to decide what to render.
func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID := chi.URLParam(r, "productID")
	if productID == "" {
		h.WriteError(w, http.StatusBadRequest, "product id is required")
		return
	}

	decision, err := h.Service.CheckAccess(r.Context(), user.ID, productID, time.Now().UTC())
	if err != nil {
		h.Logger.Error("CheckAccess: engine read failed", "error", err, "user_id", user.ID, "product_id", productID)
		status, resp := internal.NewStoreUnavailableError(err).ToHTTPResponse()
		h.WriteJSON(w, status, resp)
		return
	}

	h.WriteJSON(w, http.StatusOK, decision)
}

// GetMyEntitlements handles GET /users/me/entitlements
func (h *Handler) GetMyEntitlements(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	list, err := h.Service.ListForUser(r.Context(), user.ID)
	if err != nil {
		h.Logger.Error("GetMyEntitlements: list failed", "error", err, "user_id", user.ID)
		h.WriteError(w, http.StatusInternalServerError, "failed to list entitlements")
		return
	}

	h.WriteJSON(w, http.StatusOK, EntitlementsResponse{UserID: user.ID, Entitlements: list})
}

// AdminListEntitlements handles GET /admin/users/{userID}/entitlements
func (h *Handler) AdminListEntitlements(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.WriteError(w, http.StatusBadRequest, "user id is required")
		return
	}

	list, err := h.Service.ListForUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error("AdminListEntitlements: list failed", "error", err, "user_id", userID)
		h.WriteError(w, http.StatusInternalServerError, "failed to list entitlements")
		return
	}

	h.WriteJSON(w, http.StatusOK, EntitlementsResponse{UserID: userID, Entitlements: list})
}

// AdminGrant handles POST /admin/users/{userID}/entitlements
func (h *Handler) AdminGrant(w http.ResponseWriter, r *http.Request) {
	admin, ok := auth.UserFromContext(r.Context())
	if !ok || admin == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.WriteError(w, http.StatusBadRequest, "user id is required")
		return
	}

	var dto GrantAccessDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	granted, err := h.Service.Grant(r.Context(), GrantParams{
		UserID:        userID,
		ActorID:       admin.ID,
		ProductID:     dto.ProductID,
		Level:         AccessLevel(dto.AccessLevel),
		UnitsUnlocked: dto.UnitsUnlocked,
		ExpiresAt:     dto.ExpiryFrom(time.Now()),
	})
	if err != nil {
		h.Logger.Error("AdminGrant: grant failed",
			"error", err,
			"user_id", userID,
			"product_id", dto.ProductID,
			"actor_id", admin.ID)

		switch {
		case errors.Is(err, ErrUnknownProduct):
			h.WriteError(w, http.StatusNotFound, "product not found")
		case errors.Is(err, ErrInvalidAccessLevel), errors.Is(err, ErrInvalidUnits):
			h.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.WriteError(w, http.StatusInternalServerError, "failed to grant access")
		}
		return
	}

	h.WriteJSON(w, http.StatusCreated, granted)
}

// AdminRevoke handles DELETE /admin/users/{userID}/entitlements/{productID}.
// Revoking an absent grant still returns 204: the desired end state holds.
func (h *Handler) AdminRevoke(w http.ResponseWriter, r *http.Request) {
	admin, ok := auth.UserFromContext(r.Context())
	if !ok || admin == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	userID := chi.URLParam(r, "userID")
	productID := chi.URLParam(r, "productID")
	if userID == "" || productID == "" {
		h.WriteError(w, http.StatusBadRequest, "user id and product id are required")
		return
	}

	if err := h.Service.Revoke(r.Context(), userID, admin.ID, productID); err != nil {
		h.Logger.Error("AdminRevoke: revoke failed",
			"error", err,
			"user_id", userID,
			"product_id", productID,
			"actor_id", admin.ID)
		h.WriteError(w, http.StatusInternalServerError, "failed to revoke access")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
