package entitlement_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stepacademy/course-access/internal/audit"
	"github.com/stepacademy/course-access/internal/core/events"
	"github.com/stepacademy/course-access/internal/entitlement"
	"github.com/stepacademy/course-access/internal/product"
)

func TestEntitlementService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Entitlement Service Suite")
}

type pairKey struct {
	userID    string
	productID string
}

// Mock repository for testing
type mockEntitlementRepository struct {
	active      map[pairKey]*entitlement.Entitlement
	history     []*entitlement.Entitlement
	createError error
	findError   error
	expireError error
}

func newMockEntitlementRepository() *mockEntitlementRepository {
	return &mockEntitlementRepository{
		active: make(map[pairKey]*entitlement.Entitlement),
	}
}

func (m *mockEntitlementRepository) CreateSuperseding(e *entitlement.Entitlement) error {
	if m.createError != nil {
		return m.createError
	}
	key := pairKey{e.UserID, e.ProductID}
	if prev, ok := m.active[key]; ok {
		prev.Status = entitlement.StatusRevoked
	}
	m.active[key] = e
	m.history = append(m.history, e)
	return nil
}

func (m *mockEntitlementRepository) Supersede(userID, productID string) (int64, error) {
	key := pairKey{userID, productID}
	if prev, ok := m.active[key]; ok {
		prev.Status = entitlement.StatusRevoked
		delete(m.active, key)
		return 1, nil
	}
	return 0, nil
}

func (m *mockEntitlementRepository) FindActive(userID, productID string) (*entitlement.Entitlement, error) {
	if m.findError != nil {
		return nil, m.findError
	}
	if e, ok := m.active[pairKey{userID, productID}]; ok {
		return e, nil
	}
	return nil, nil
}

func (m *mockEntitlementRepository) ListByUser(userID string) ([]*entitlement.Entitlement, error) {
	var out []*entitlement.Entitlement
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].UserID == userID {
			out = append(out, m.history[i])
		}
	}
	return out, nil
}

func (m *mockEntitlementRepository) ExpireBefore(now time.Time) (int64, error) {
	if m.expireError != nil {
		return 0, m.expireError
	}
	var count int64
	for key, e := range m.active {
		if e.ExpiresAt != nil && e.ExpiresAt.Before(now) {
			e.Status = entitlement.StatusExpired
			delete(m.active, key)
			count++
		}
	}
	return count, nil
}

func (m *mockEntitlementRepository) DeleteByUser(userID string) error {
	for key := range m.active {
		if key.userID == userID {
			delete(m.active, key)
		}
	}
	var kept []*entitlement.Entitlement
	for _, e := range m.history {
		if e.UserID != userID {
			kept = append(kept, e)
		}
	}
	m.history = kept
	return nil
}

// Mock catalog for testing
type mockCatalog struct {
	products map[string]*product.Product
}

func newMockCatalog(ids ...string) *mockCatalog {
	c := &mockCatalog{products: make(map[string]*product.Product)}
	for i, id := range ids {
		c.products[id] = &product.Product{ID: id, Title: id, TotalUnits: 24, AccessDays: 365, IsActive: true, PartialDefault: i + 1}
	}
	return c
}

func (m *mockCatalog) GetByID(id string) (*product.Product, error) {
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	return nil, product.ErrProductNotFound
}

// Mock auditor for testing
type mockAuditor struct {
	entries     []audit.Action
	recordError error
}

func (m *mockAuditor) Record(ctx context.Context, actorID string, action audit.Action, targetID, targetType, details string) error {
	if m.recordError != nil {
		return m.recordError
	}
	m.entries = append(m.entries, action)
	return nil
}

// Mock event publisher for testing
type mockPublisher struct {
	published    []events.Event
	publishError error
}

func (m *mockPublisher) Publish(ctx context.Context, event events.Event) error {
	if m.publishError != nil {
		return m.publishError
	}
	m.published = append(m.published, event)
	return nil
}

var _ = Describe("EntitlementService", func() {
	var (
		engine    *entitlement.Service
		mockRepo  *mockEntitlementRepository
		catalog   *mockCatalog
		auditor   *mockAuditor
		publisher *mockPublisher
		logger    *slog.Logger
		ctx       context.Context
	)

	BeforeEach(func() {
		mockRepo = newMockEntitlementRepository()
		catalog = newMockCatalog("main_method", "pronunciation")
		auditor = &mockAuditor{}
		publisher = &mockPublisher{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		engine = entitlement.NewService(mockRepo, catalog, auditor, publisher, logger)
		ctx = context.Background()
	})

	Describe("Grant", func() {
		Context("when granting access to a known product", func() {
			It("should create an active entitlement with the requested shape", func() {
				result, err := engine.Grant(ctx, entitlement.GrantParams{
					UserID:        "user-1",
					ActorID:       "admin-1",
					ProductID:     "main_method",
					Level:         entitlement.AccessLevelFull,
					UnitsUnlocked: 24,
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Status).To(Equal(entitlement.StatusActive))
				Expect(result.AccessLevel).To(Equal(entitlement.AccessLevelFull))
				Expect(result.UnitsUnlocked).To(Equal(24))
				Expect(result.GrantedBy).To(Equal("admin-1"))
				Expect(result.ExpiresAt).To(BeNil())
				Expect(result.ID).ToNot(BeEmpty())
			})

			It("should record an audit entry and publish an event", func() {
				_, err := engine.Grant(ctx, entitlement.GrantParams{
					UserID:    "user-1",
					ActorID:   "admin-1",
					ProductID: "main_method",
					Level:     entitlement.AccessLevelPartial,
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(auditor.entries).To(ContainElement(audit.ActionGrantAccess))
				Expect(publisher.published).To(HaveLen(1))
				Expect(publisher.published[0].EventType()).To(Equal(events.EventTypeAccessGranted))
			})
		})

		Context("when an active entitlement already exists for the pair", func() {
			It("should supersede it so only one stays active", func() {
				first, err := engine.Grant(ctx, entitlement.GrantParams{
					UserID:        "user-1",
					ActorID:       entitlement.ActorSystem,
					ProductID:     "main_method",
					Level:         entitlement.AccessLevelPartial,
					UnitsUnlocked: 3,
				})
				Expect(err).ToNot(HaveOccurred())

				second, err := engine.Grant(ctx, entitlement.GrantParams{
					UserID:        "user-1",
					ActorID:       "admin-1",
					ProductID:     "main_method",
					Level:         entitlement.AccessLevelFull,
					UnitsUnlocked: 24,
				})
				Expect(err).ToNot(HaveOccurred())

				Expect(first.Status).To(Equal(entitlement.StatusRevoked))
				Expect(second.Status).To(Equal(entitlement.StatusActive))

				decision, err := engine.CheckAccess(ctx, "user-1", "main_method", time.Now().UTC())
				Expect(err).ToNot(HaveOccurred())
				Expect(decision.HasAccess).To(BeTrue())
				Expect(decision.Level).To(Equal(entitlement.AccessLevelFull))
				Expect(decision.UnitsUnlocked).To(Equal(24))
			})
		})

		Context("when the product is unknown", func() {
			It("should reject the grant without touching the store", func() {
				_, err := engine.Grant(ctx, entitlement.GrantParams{
					UserID:    "user-1",
					ActorID:   "admin-1",
					ProductID: "no-such-course",
					Level:     entitlement.AccessLevelFull,
				})

				Expect(err).To(MatchError(entitlement.ErrUnknownProduct))
				Expect(mockRepo.history).To(BeEmpty())
				Expect(auditor.entries).To(BeEmpty())
			})
		})

		Context("when the request is malformed", func() {
			It("should reject an invalid access level", func() {
				_, err := engine.Grant(ctx, entitlement.GrantParams{
					UserID:    "user-1",
					ActorID:   "admin-1",
					ProductID: "main_method",
					Level:     "vip",
				})
				Expect(err).To(MatchError(entitlement.ErrInvalidAccessLevel))
			})

			It("should reject negative units", func() {
				_, err := engine.Grant(ctx, entitlement.GrantParams{
					UserID:        "user-1",
					ActorID:       "admin-1",
					ProductID:     "main_method",
					Level:         entitlement.AccessLevelFull,
					UnitsUnlocked: -1,
				})
				Expect(err).To(MatchError(entitlement.ErrInvalidUnits))
			})
		})

		Context("when the auditor or event bus is unavailable", func() {
			It("should still complete the grant", func() {
				auditor.recordError = errors.New("audit store down")
				publisher.publishError = errors.New("bus down")

				result, err := engine.Grant(ctx, entitlement.GrantParams{
					UserID:    "user-1",
					ActorID:   "admin-1",
					ProductID: "main_method",
					Level:     entitlement.AccessLevelFull,
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Status).To(Equal(entitlement.StatusActive))
			})
		})
	})

	Describe("Revoke", func() {
		Context("when an active entitlement exists", func() {
			It("should revoke it and publish the revocation", func() {
				_, err := engine.Grant(ctx, entitlement.GrantParams{
					UserID:    "user-1",
					ActorID:   "admin-1",
					ProductID: "main_method",
					Level:     entitlement.AccessLevelFull,
				})
				Expect(err).ToNot(HaveOccurred())

				err = engine.Revoke(ctx, "user-1", "admin-2", "main_method")
				Expect(err).ToNot(HaveOccurred())

				decision, err := engine.CheckAccess(ctx, "user-1", "main_method", time.Now().UTC())
				Expect(err).ToNot(HaveOccurred())
				Expect(decision.HasAccess).To(BeFalse())

				Expect(auditor.entries).To(ContainElement(audit.ActionRevokeAccess))
				Expect(publisher.published[len(publisher.published)-1].EventType()).To(Equal(events.EventTypeAccessRevoked))
			})
		})

		Context("when nothing is active for the pair", func() {
			It("should succeed as a no-op and still audit the attempt", func() {
				err := engine.Revoke(ctx, "user-1", "admin-1", "main_method")

				Expect(err).ToNot(HaveOccurred())
				Expect(auditor.entries).To(ContainElement(audit.ActionRevokeAccess))
				Expect(publisher.published).To(BeEmpty())
			})
		})
	})

	Describe("CheckAccess", func() {
		Context("when the entitlement carries an expiry", func() {
			var expiresAt time.Time

			BeforeEach(func() {
				expiresAt = time.Now().UTC().Add(48 * time.Hour)
				_, err := engine.Grant(ctx, entitlement.GrantParams{
					UserID:        "user-1",
					ActorID:       entitlement.ActorSystem,
					ProductID:     "main_method",
					Level:         entitlement.AccessLevelPartial,
					UnitsUnlocked: 3,
					ExpiresAt:     &expiresAt,
				})
				Expect(err).ToNot(HaveOccurred())
			})

			It("should allow access one second before the deadline", func() {
				decision, err := engine.CheckAccess(ctx, "user-1", "main_method", expiresAt.Add(-time.Second))
				Expect(err).ToNot(HaveOccurred())
				Expect(decision.HasAccess).To(BeTrue())
				Expect(decision.Level).To(Equal(entitlement.AccessLevelPartial))
			})

			It("should deny access one second after the deadline without writing", func() {
				decision, err := engine.CheckAccess(ctx, "user-1", "main_method", expiresAt.Add(time.Second))
				Expect(err).ToNot(HaveOccurred())
				Expect(decision).To(Equal(entitlement.NoAccess))

				// the record itself is untouched until the sweep runs
				stored, err := mockRepo.FindActive("user-1", "main_method")
				Expect(err).ToNot(HaveOccurred())
				Expect(stored.Status).To(Equal(entitlement.StatusActive))
			})

			It("should give the same answer on repeated reads", func() {
				late := expiresAt.Add(time.Hour)
				first, err := engine.CheckAccess(ctx, "user-1", "main_method", late)
				Expect(err).ToNot(HaveOccurred())
				second, err := engine.CheckAccess(ctx, "user-1", "main_method", late)
				Expect(err).ToNot(HaveOccurred())
				Expect(first).To(Equal(second))
			})
		})

		Context("when the user has no entitlement at all", func() {
			It("should return the no-access decision", func() {
				decision, err := engine.CheckAccess(ctx, "stranger", "main_method", time.Now().UTC())
				Expect(err).ToNot(HaveOccurred())
				Expect(decision).To(Equal(entitlement.NoAccess))
			})
		})
	})

	Describe("RegisterTrial", func() {
		It("should grant partial system access expiring after the trial window", func() {
			before := time.Now().UTC()
			result, err := engine.RegisterTrial(ctx, "user-1", "main_method", 2, 3)
			after := time.Now().UTC()

			Expect(err).ToNot(HaveOccurred())
			Expect(result.AccessLevel).To(Equal(entitlement.AccessLevelPartial))
			Expect(result.UnitsUnlocked).To(Equal(3))
			Expect(result.GrantedBy).To(Equal(entitlement.ActorSystem))
			Expect(result.ExpiresAt).ToNot(BeNil())
			Expect(result.ExpiresAt.After(before.AddDate(0, 0, 2).Add(-time.Second))).To(BeTrue())
			Expect(result.ExpiresAt.Before(after.AddDate(0, 0, 2).Add(time.Second))).To(BeTrue())
		})

		It("should reject a non-positive trial window", func() {
			_, err := engine.RegisterTrial(ctx, "user-1", "main_method", 0, 3)
			Expect(err).To(MatchError(entitlement.ErrInvalidTrialDays))
		})
	})

	Describe("SweepExpired", func() {
		It("should expire exactly the overdue records and report the count", func() {
			past := time.Now().UTC().Add(-time.Hour)
			future := time.Now().UTC().Add(time.Hour)

			_, err := engine.Grant(ctx, entitlement.GrantParams{
				UserID: "user-1", ActorID: "admin-1", ProductID: "main_method",
				Level: entitlement.AccessLevelFull, ExpiresAt: &past,
			})
			Expect(err).ToNot(HaveOccurred())
			_, err = engine.Grant(ctx, entitlement.GrantParams{
				UserID: "user-2", ActorID: "admin-1", ProductID: "main_method",
				Level: entitlement.AccessLevelFull, ExpiresAt: &future,
			})
			Expect(err).ToNot(HaveOccurred())
			_, err = engine.Grant(ctx, entitlement.GrantParams{
				UserID: "user-3", ActorID: "admin-1", ProductID: "pronunciation",
				Level: entitlement.AccessLevelFull,
			})
			Expect(err).ToNot(HaveOccurred())

			count, err := engine.SweepExpired(ctx, time.Now().UTC())
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(Equal(int64(1)))

			// a second sweep finds nothing left to do
			count, err = engine.SweepExpired(ctx, time.Now().UTC())
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})
})
