package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stepacademy/course-access/internal/audit"
	"github.com/stepacademy/course-access/internal/auth"
	"github.com/stepacademy/course-access/internal/entitlement"
	"github.com/stepacademy/course-access/internal/notification"
	"github.com/stepacademy/course-access/internal/payment"
	"github.com/stepacademy/course-access/internal/product"
	"github.com/stepacademy/course-access/internal/transport/middleware"
	"github.com/stepacademy/course-access/internal/transport/swagger"
	"github.com/stepacademy/course-access/internal/user"
)

type Handlers struct {
	Auth         *auth.Handler
	RBAC         *auth.RBACAuthorization
	User         *user.Handler
	Product      *product.Handler
	Entitlement  *entitlement.Handler
	Audit        *audit.Handler
	Notification *notification.Handler
	Webhook      *payment.WebhookHandler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, allowedOrigins []string, metricsEnabled bool, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	if metricsEnabled {
		router.Use(middleware.Metrics)
		router.Handle("/metrics", promhttp.Handler())
	}

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Gateway callback authenticates with an HMAC signature, not a
		// bearer token.
		if h.Webhook != nil {
			r.Post("/webhooks/payment", h.Webhook.HandlePaymentCallback)
		}

		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", h.Auth.Login)
				sr.Post("/refresh", h.Auth.RefreshToken)
				sr.Post("/logout", h.Auth.Logout)
			})
		}

		// Public marketing-site routes
		if h.User != nil {
			r.Post("/register", h.User.Register)
		}
		if h.Product != nil {
			r.Get("/products", h.Product.GetProducts)
			r.Get("/products/{productID}", h.Product.GetProduct)
		}

		if h.Auth == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetMe)
			}
			if h.Entitlement != nil {
				pr.Get("/users/me/entitlements", h.Entitlement.GetMyEntitlements)
				pr.Get("/products/{productID}/access", h.Entitlement.CheckAccess)
			}
			if h.Notification != nil {
				pr.Get("/users/me/notifications", h.Notification.GetMyNotifications)
			}

			pr.Route("/admin", func(ar chi.Router) {
				if h.Entitlement != nil {
					ar.Group(func(gr chi.Router) {
						gr.Use(h.RBAC.RequireGrantAccess())
						gr.Post("/users/{userID}/entitlements", h.Entitlement.AdminGrant)
					})
					ar.Group(func(rr chi.Router) {
						rr.Use(h.RBAC.RequireRevokeAccess())
						rr.Delete("/users/{userID}/entitlements/{productID}", h.Entitlement.AdminRevoke)
					})
					ar.Group(func(vr chi.Router) {
						vr.Use(h.RBAC.RequireAdmin())
						vr.Get("/users/{userID}/entitlements", h.Entitlement.AdminListEntitlements)
					})
				}

				if h.User != nil {
					ar.Group(func(ur chi.Router) {
						ur.Use(h.RBAC.RequireManageUsers())
						ur.Get("/users", h.User.AdminListUsers)
						ur.Get("/users/{userID}", h.User.AdminGetUser)
						ur.Patch("/users/{userID}", h.User.AdminUpdateUser)
						ur.Delete("/users/{userID}", h.User.AdminDeleteUser)
					})
				}

				if h.Audit != nil {
					ar.Group(func(aur chi.Router) {
						aur.Use(h.RBAC.RequireViewAudit())
						aur.Get("/audit", h.Audit.AdminListAudit)
					})
				}
			})
		})
	})
}
