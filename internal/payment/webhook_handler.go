package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stepacademy/course-access/internal"
	"github.com/stepacademy/course-access/internal/entitlement"
	"github.com/stepacademy/course-access/internal/product"
	"github.com/stepacademy/course-access/internal/transport"
)

// ActorGateway is recorded as granted_by on webhook-driven grants.
const ActorGateway = "payment_gateway"

// StatusPaid is the only gateway status that triggers a grant. Everything
// else is acknowledged and logged.
const StatusPaid = "paid"

type AccessGranter interface {
	Grant(ctx context.Context, params entitlement.GrantParams) (*entitlement.Entitlement, error)
}

type ProductCatalog interface {
	GetByID(id string) (*product.Product, error)
}

type WebhookHandler struct {
	*transport.BaseHandler
	engine            AccessGranter
	catalog           ProductCatalog
	secret            string
	defaultAccessDays int
	logger            *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, engine AccessGranter, catalog ProductCatalog, secret string, defaultAccessDays int, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:       baseHandler,
		engine:            engine,
		catalog:           catalog,
		secret:            secret,
		defaultAccessDays: defaultAccessDays,
		logger:            logger,
	}
}

type PaymentCallbackRequest struct {
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

type PaymentCallbackResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandlePaymentCallback processes POST /webhooks/payment. The signature is
// verified over the raw body before anything is parsed; an invalid or missing
// signature is rejected without touching the engine.
func (h *WebhookHandler) HandlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read payment callback body", "error", err)
		h.WriteErrorResponse(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	if !VerifySignature(h.secret, body, r.Header.Get(SignatureHeader)) {
		h.logger.Warn("payment callback rejected: signature mismatch",
			"remote_addr", r.RemoteAddr)
		status, resp := internal.ErrSignatureInvalid.ToHTTPResponse()
		h.WriteJSON(w, status, resp)
		return
	}

	var req PaymentCallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Error("invalid payment callback request", "error", err)
		h.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.logger.Info("received payment callback",
		"order_id", req.OrderID,
		"user_id", req.UserID,
		"product_id", req.ProductID,
		"status", req.Status,
		"amount", req.Amount)

	if req.UserID == "" {
		h.WriteErrorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.ProductID == "" {
		h.WriteErrorResponse(w, http.StatusBadRequest, "product_id is required")
		return
	}
	if req.Status == "" {
		h.WriteErrorResponse(w, http.StatusBadRequest, "status is required")
		return
	}

	if req.Status != StatusPaid {
		h.logger.Info("payment callback acknowledged without grant",
			"order_id", req.OrderID,
			"status", req.Status)
		h.WriteJSON(w, http.StatusOK, PaymentCallbackResponse{
			Status:  "ignored",
			Message: "non-paid status acknowledged",
		})
		return
	}

	if err := h.processPaidCallback(r.Context(), &req); err != nil {
		h.logger.Error("failed to process payment callback",
			"error", err,
			"order_id", req.OrderID,
			"user_id", req.UserID,
			"product_id", req.ProductID)

		if errors.Is(err, entitlement.ErrUnknownProduct) {
			h.WriteErrorResponse(w, http.StatusBadRequest, "unknown product")
			return
		}
		h.WriteErrorResponse(w, http.StatusInternalServerError, "failed to process payment callback")
		return
	}

	h.logger.Info("payment callback processed successfully",
		"order_id", req.OrderID,
		"user_id", req.UserID,
		"product_id", req.ProductID)

	h.WriteJSON(w, http.StatusOK, PaymentCallbackResponse{
		Status:  "success",
		Message: "callback processed successfully",
	})
}

// processPaidCallback grants full access for the purchased product. Paid
// access is time-limited: the product's own access window wins, falling back
// to the configured default when the catalog does not set one.
func (h *WebhookHandler) processPaidCallback(ctx context.Context, req *PaymentCallbackRequest) error {
	p, err := h.catalog.GetByID(req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			return entitlement.ErrUnknownProduct
		}
		return err
	}

	accessDays := p.AccessDays
	if accessDays <= 0 {
		accessDays = h.defaultAccessDays
	}

	var expiresAt *time.Time
	if accessDays > 0 {
		t := time.Now().UTC().AddDate(0, 0, accessDays)
		expiresAt = &t
	}

	_, err = h.engine.Grant(ctx, entitlement.GrantParams{
		UserID:        req.UserID,
		ActorID:       ActorGateway,
		ProductID:     req.ProductID,
		Level:         entitlement.AccessLevelFull,
		UnitsUnlocked: p.TotalUnits,
		ExpiresAt:     expiresAt,
	})
	return err
}

func (h *WebhookHandler) WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]string{
		"error": message,
	}
	h.WriteJSON(w, statusCode, response)
}
