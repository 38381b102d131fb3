package product

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/stepacademy/course-access/internal/transport"
)

type ServiceAPI interface {
	GetByID(id string) (*Product, error)
	GetAllActive() ([]*Product, error)
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

// GetProducts handles GET /products
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Service.GetAllActive()
	if err != nil {
		h.Logger.Error("GetProducts: failed to list catalog", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
	})
}

// GetProduct handles GET /products/{productID}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		h.WriteError(w, http.StatusBadRequest, "product id is required")
		return
	}

	p, err := h.Service.GetByID(productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			h.WriteError(w, http.StatusNotFound, "product not found")
			return
		}
		h.Logger.Error("GetProduct: lookup failed", "error", err, "product_id", productID)
		h.WriteError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}
