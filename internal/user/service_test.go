package user_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stepacademy/course-access/internal/audit"
	"github.com/stepacademy/course-access/internal/entitlement"
	"github.com/stepacademy/course-access/internal/user"
)

func TestUserService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Service Suite")
}

type mockUserRepository struct {
	byID    map[string]*user.User
	byEmail map[string]*user.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		byID:    make(map[string]*user.User),
		byEmail: make(map[string]*user.User),
	}
}

func (m *mockUserRepository) Create(u *user.User) error {
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *mockUserRepository) GetByID(id string) (*user.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, user.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(email string) (*user.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, user.ErrUserNotFound
}

func (m *mockUserRepository) Update(u *user.User) error {
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *mockUserRepository) Delete(id string) error {
	u, ok := m.byID[id]
	if !ok {
		return user.ErrUserNotFound
	}
	delete(m.byEmail, u.Email)
	delete(m.byID, id)
	return nil
}

func (m *mockUserRepository) List(limit, offset int) ([]*user.User, error) {
	var out []*user.User
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out, nil
}

type mockHasher struct{}

func (mockHasher) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
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

type trialCall struct {
	userID    string
	productID string
	days      int
	units     int
}

type mockEngine struct {
	trials     []trialCall
	removed    []string
	trialError error
}

func (m *mockEngine) RegisterTrial(ctx context.Context, userID, productID string, trialDays, initialUnits int) (*entitlement.Entitlement, error) {
	if m.trialError != nil {
		return nil, m.trialError
	}
	m.trials = append(m.trials, trialCall{userID, productID, trialDays, initialUnits})
	return &entitlement.Entitlement{UserID: userID, ProductID: productID}, nil
}

func (m *mockEngine) RemoveAllForUser(ctx context.Context, userID string) error {
	m.removed = append(m.removed, userID)
	return nil
}

type mockNotificationCleaner struct {
	removed []string
}

func (m *mockNotificationCleaner) RemoveAllForUser(ctx context.Context, userID string) error {
	m.removed = append(m.removed, userID)
	return nil
}

var _ = Describe("UserService", func() {
	var (
		svc      *user.Service
		repo     *mockUserRepository
		auditor  *mockAuditor
		engine   *mockEngine
		notifier *mockNotificationCleaner
		ctx      context.Context
	)

	BeforeEach(func() {
		repo = newMockUserRepository()
		auditor = &mockAuditor{}
		engine = &mockEngine{}
		notifier = &mockNotificationCleaner{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = user.NewService(repo, mockHasher{}, auditor, engine, notifier, user.TrialPolicy{
			ProductID: "main_method",
			Days:      2,
			Units:     3,
		}, logger)
		ctx = context.Background()
	})

	Describe("Register", func() {
		It("should create the account and hand out the trial", func() {
			u, err := svc.Register(ctx, user.RegisterDTO{
				Email:    "student@example.com",
				Name:     "Student",
				Password: "supersecret",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(u.ID).ToNot(BeEmpty())
			Expect(u.IsActive).To(BeTrue())
			Expect(u.PasswordHash).To(Equal("hashed:supersecret"))

			Expect(engine.trials).To(HaveLen(1))
			Expect(engine.trials[0]).To(Equal(trialCall{
				userID:    u.ID,
				productID: "main_method",
				days:      2,
				units:     3,
			}))

			Expect(auditor.calls).To(ContainElement(auditCall{actorID: u.ID, action: audit.ActionRegister}))
		})

		It("should reject a duplicate email", func() {
			_, err := svc.Register(ctx, user.RegisterDTO{
				Email: "student@example.com", Name: "First", Password: "supersecret",
			})
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.Register(ctx, user.RegisterDTO{
				Email: "student@example.com", Name: "Second", Password: "supersecret",
			})
			Expect(err).To(MatchError(user.ErrEmailTaken))
			Expect(engine.trials).To(HaveLen(1))
		})

		It("should reject invalid input", func() {
			_, err := svc.Register(ctx, user.RegisterDTO{Email: "not-an-email", Name: "X", Password: "supersecret"})
			Expect(err).To(HaveOccurred())

			_, err = svc.Register(ctx, user.RegisterDTO{Email: "a@b.com", Name: "X", Password: "short"})
			Expect(err).To(HaveOccurred())
		})

		It("should keep the account when the trial grant fails", func() {
			engine.trialError = entitlement.ErrUnknownProduct

			u, err := svc.Register(ctx, user.RegisterDTO{
				Email: "student@example.com", Name: "Student", Password: "supersecret",
			})

			Expect(err).ToNot(HaveOccurred())
			_, getErr := repo.GetByID(u.ID)
			Expect(getErr).ToNot(HaveOccurred())
		})
	})

	Describe("Update", func() {
		It("should apply changes and record who made them", func() {
			u, err := svc.Register(ctx, user.RegisterDTO{
				Email: "student@example.com", Name: "Old Name", Password: "supersecret",
			})
			Expect(err).ToNot(HaveOccurred())

			newName := "New Name"
			updated, err := svc.Update(ctx, "admin-1", u.ID, user.UpdateDTO{Name: &newName})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Name).To(Equal("New Name"))
			Expect(auditor.calls).To(ContainElement(auditCall{actorID: "admin-1", action: audit.ActionUpdateUser}))
		})

		It("should skip the write when nothing changes", func() {
			u, err := svc.Register(ctx, user.RegisterDTO{
				Email: "student@example.com", Name: "Name", Password: "supersecret",
			})
			Expect(err).ToNot(HaveOccurred())
			auditCount := len(auditor.calls)

			_, err = svc.Update(ctx, "admin-1", u.ID, user.UpdateDTO{})
			Expect(err).ToNot(HaveOccurred())
			Expect(auditor.calls).To(HaveLen(auditCount))
		})
	})

	Describe("Delete", func() {
		It("should remove the account, its entitlements and notifications", func() {
			u, err := svc.Register(ctx, user.RegisterDTO{
				Email: "student@example.com", Name: "Student", Password: "supersecret",
			})
			Expect(err).ToNot(HaveOccurred())

			err = svc.Delete(ctx, "admin-1", u.ID)
			Expect(err).ToNot(HaveOccurred())

			_, getErr := repo.GetByID(u.ID)
			Expect(getErr).To(MatchError(user.ErrUserNotFound))
			Expect(engine.removed).To(ContainElement(u.ID))
			Expect(notifier.removed).To(ContainElement(u.ID))

			// audit entries survive the deletion
			Expect(auditor.calls).To(ContainElement(auditCall{actorID: "admin-1", action: audit.ActionDeleteUser}))
		})

		It("should fail for an unknown user", func() {
			err := svc.Delete(ctx, "admin-1", "no-such-user")
			Expect(err).To(MatchError(user.ErrUserNotFound))
		})
	})
})
