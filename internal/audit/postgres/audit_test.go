package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stepacademy/course-access/internal/audit"
)

func TestAuditRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Audit Repository Suite")
}

var _ = Describe("AuditRepository", func() {
	var (
		db   *gorm.DB
		repo audit.Repository
	)

	newEntry := func(actorID string, action audit.Action, targetID string, at time.Time) *audit.Entry {
		return &audit.Entry{
			ID:         uuid.NewString(),
			ActorID:    actorID,
			Action:     action,
			TargetID:   targetID,
			TargetType: audit.TargetTypeUser,
			Details:    "test entry",
			CreatedAt:  at,
		}
	}

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&audit.Entry{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewAuditRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	Describe("Append and ListByTarget", func() {
		It("should return entries for the target newest first", func() {
			base := time.Now().UTC().Truncate(time.Second)
			older := newEntry("admin-1", audit.ActionGrantAccess, "user-1", base.Add(-time.Hour))
			newer := newEntry("admin-2", audit.ActionRevokeAccess, "user-1", base)
			unrelated := newEntry("admin-1", audit.ActionGrantAccess, "user-2", base)

			for _, e := range []*audit.Entry{older, newer, unrelated} {
				Expect(repo.Append(e)).To(Succeed())
			}

			entries, err := repo.ListByTarget("user-1", 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].ID).To(Equal(newer.ID))
			Expect(entries[1].ID).To(Equal(older.ID))
		})

		It("should honor limit and offset", func() {
			base := time.Now().UTC().Truncate(time.Second)
			for i := 0; i < 5; i++ {
				e := newEntry("admin-1", audit.ActionGrantAccess, "user-1", base.Add(time.Duration(i)*time.Minute))
				Expect(repo.Append(e)).To(Succeed())
			}

			first, err := repo.ListByTarget("user-1", 2, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(HaveLen(2))

			rest, err := repo.ListByTarget("user-1", 10, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(rest).To(HaveLen(3))
			Expect(rest[0].CreatedAt.After(rest[1].CreatedAt)).To(BeTrue())
		})
	})

	Describe("ListByActor", func() {
		It("should filter by actor", func() {
			base := time.Now().UTC()
			Expect(repo.Append(newEntry("admin-1", audit.ActionGrantAccess, "user-1", base))).To(Succeed())
			Expect(repo.Append(newEntry("admin-2", audit.ActionRevokeAccess, "user-1", base))).To(Succeed())

			entries, err := repo.ListByActor("admin-1", 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].ActorID).To(Equal("admin-1"))
		})
	})

	Describe("ListAll", func() {
		It("should page through everything newest first", func() {
			base := time.Now().UTC().Truncate(time.Second)
			Expect(repo.Append(newEntry("admin-1", audit.ActionLogin, "user-1", base.Add(-time.Minute)))).To(Succeed())
			Expect(repo.Append(newEntry("admin-1", audit.ActionLogout, "user-1", base))).To(Succeed())

			entries, err := repo.ListAll(10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Action).To(Equal(audit.ActionLogout))
		})
	})
})
