package auth_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/stepacademy/course-access/internal/audit"
	"github.com/stepacademy/course-access/internal/auth"
)

func TestAuthService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Service Suite")
}

type mockAuthRepository struct {
	passwordHash string
	userID       string
	email        string
	lookupError  error
}

func (m *mockAuthRepository) GetPasswordForEmail(email string) (string, string, error) {
	if m.lookupError != nil {
		return "", "", m.lookupError
	}
	if email != m.email {
		return "", "", auth.ErrInvalidCredentials
	}
	return m.passwordHash, m.userID, nil
}

func (m *mockAuthRepository) GetUserWithPermissions(userID string) (*auth.User, error) {
	if userID != m.userID {
		return nil, auth.ErrInvalidToken
	}
	return &auth.User{ID: m.userID, Email: m.email, Permissions: []string{"admin"}}, nil
}

type auditCall struct {
	actorID string
	action  audit.Action
}

type mockAuditor struct {
	calls []auditCall
}

func (m *mockAuditor) Record(ctx context.Context, actorID string, action audit.Action, targetID, targetType, details string) error {
	m.calls = append(m.calls, auditCall{actorID: actorID, action: action})
	return nil
}

var _ = Describe("AuthService", func() {
	var (
		svc      *auth.Service
		repo     *mockAuthRepository
		auditor  *mockAuditor
		tokenGen *auth.JWTTokenGenerator
		ctx      context.Context
	)

	BeforeEach(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
		Expect(err).ToNot(HaveOccurred())

		repo = &mockAuthRepository{
			passwordHash: string(hash),
			userID:       "user-1",
			email:        "student@example.com",
		}
		auditor = &mockAuditor{}
		tokenGen = auth.NewJWTTokenGenerator(
			"access-secret-for-tests-0123456789ab",
			"refresh-secret-for-tests-0123456789a",
			15*time.Minute,
			7*24*time.Hour,
		)
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = auth.NewService(repo, tokenGen, auditor, logger, bcrypt.MinCost)
		ctx = context.Background()
	})

	Describe("Authenticate", func() {
		It("should issue tokens and record the login", func() {
			tokens, err := svc.Authenticate(ctx, auth.LoginDTO{
				Email:    "student@example.com",
				Password: "correct-password",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(tokens.AccessToken).ToNot(BeEmpty())
			Expect(tokens.RefreshToken).ToNot(BeEmpty())
			Expect(auditor.calls).To(ContainElement(auditCall{actorID: "user-1", action: audit.ActionLogin}))

			claims, err := svc.ValidateAccessToken(tokens.AccessToken)
			Expect(err).ToNot(HaveOccurred())
			Expect(claims.UserID).To(Equal("user-1"))
			Expect(claims.Email).To(Equal("student@example.com"))
		})

		It("should reject a wrong password without auditing a login", func() {
			_, err := svc.Authenticate(ctx, auth.LoginDTO{
				Email:    "student@example.com",
				Password: "wrong-password",
			})

			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
			Expect(auditor.calls).To(BeEmpty())
		})

		It("should reject an unknown email", func() {
			_, err := svc.Authenticate(ctx, auth.LoginDTO{
				Email:    "nobody@example.com",
				Password: "correct-password",
			})
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
		})

		It("should reject missing fields", func() {
			_, err := svc.Authenticate(ctx, auth.LoginDTO{Email: "student@example.com"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Logout", func() {
		It("should validate the token and record the logout as its own action", func() {
			tokens, err := svc.Authenticate(ctx, auth.LoginDTO{
				Email:    "student@example.com",
				Password: "correct-password",
			})
			Expect(err).ToNot(HaveOccurred())

			err = svc.Logout(ctx, tokens.AccessToken)
			Expect(err).ToNot(HaveOccurred())
			Expect(auditor.calls).To(ContainElement(auditCall{actorID: "user-1", action: audit.ActionLogout}))
		})

		It("should reject a garbage token", func() {
			err := svc.Logout(ctx, "not-a-token")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("HashPassword", func() {
		It("should hash with the configured cost", func() {
			hash, err := svc.HashPassword("some-password")
			Expect(err).ToNot(HaveOccurred())

			cost, err := bcrypt.Cost([]byte(hash))
			Expect(err).ToNot(HaveOccurred())
			Expect(cost).To(Equal(bcrypt.MinCost))
		})

		It("should fall back to the default cost when given an unusable one", func() {
			fallback := auth.NewService(repo, tokenGen, auditor, slog.Default(), 0)

			hash, err := fallback.HashPassword("some-password")
			Expect(err).ToNot(HaveOccurred())

			cost, err := bcrypt.Cost([]byte(hash))
			Expect(err).ToNot(HaveOccurred())
			Expect(cost).To(Equal(bcrypt.DefaultCost))
		})
	})

	Describe("RefreshTokens", func() {
		It("should rotate both tokens from a valid refresh token", func() {
			tokens, err := svc.Authenticate(ctx, auth.LoginDTO{
				Email:    "student@example.com",
				Password: "correct-password",
			})
			Expect(err).ToNot(HaveOccurred())

			rotated, err := svc.RefreshTokens(tokens.RefreshToken)
			Expect(err).ToNot(HaveOccurred())
			Expect(rotated.AccessToken).ToNot(BeEmpty())
			Expect(rotated.RefreshToken).ToNot(BeEmpty())
		})
	})
})
