package auth_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stepacademy/course-access/internal/audit"
	"github.com/stepacademy/course-access/internal/auth"
)

var _ = Describe("RBACAuthorization", func() {
	var (
		rbac    *auth.RBACAuthorization
		auditor *mockAuditor
		next    http.Handler
		reached bool
	)

	BeforeEach(func() {
		auditor = &mockAuditor{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		rbac = auth.NewRBACAuthorization(&auth.DefaultPermissionChecker{}, auditor, logger)
		reached = false
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			w.WriteHeader(http.StatusOK)
		})
	})

	request := func(user *auth.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/users/user-1/entitlements", nil)
		if user != nil {
			req = req.WithContext(auth.ContextWithUser(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		rbac.RequireGrantAccess()(next).ServeHTTP(rec, req)
		return rec
	}

	Context("when the caller holds the permission", func() {
		It("should pass the request through", func() {
			rec := request(&auth.User{ID: "admin-1", Permissions: []string{auth.PermGrantAccess}})
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(reached).To(BeTrue())
			Expect(auditor.calls).To(BeEmpty())
		})

		It("should accept the admin permission as a superset", func() {
			rec := request(&auth.User{ID: "admin-1", Permissions: []string{auth.PermAdmin}})
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	Context("when the caller lacks the permission", func() {
		It("should forbid and record a denied attempt", func() {
			rec := request(&auth.User{ID: "user-2", Permissions: []string{auth.PermViewAudit}})

			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(reached).To(BeFalse())
			Expect(auditor.calls).To(ContainElement(auditCall{actorID: "user-2", action: audit.ActionDeniedAttempt}))
		})
	})

	Context("when no user is in the context", func() {
		It("should reject as unauthorized", func() {
			rec := request(nil)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(reached).To(BeFalse())
		})
	})
})
