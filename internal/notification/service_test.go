package notification_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stepacademy/course-access/internal/core/events"
	"github.com/stepacademy/course-access/internal/notification"
)

func TestNotificationService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notification Service Suite")
}

type mockNotificationRepository struct {
	requests    map[string]*notification.Request
	createError error
}

func newMockNotificationRepository() *mockNotificationRepository {
	return &mockNotificationRepository{requests: make(map[string]*notification.Request)}
}

func (m *mockNotificationRepository) Create(req *notification.Request) error {
	if m.createError != nil {
		return m.createError
	}
	m.requests[req.ID] = req
	return nil
}

func (m *mockNotificationRepository) MarkSent(id string) error {
	if req, ok := m.requests[id]; ok {
		req.Status = notification.StatusSent
	}
	return nil
}

func (m *mockNotificationRepository) ListByUser(userID string, limit, offset int) ([]*notification.Request, error) {
	var out []*notification.Request
	for _, req := range m.requests {
		if req.UserID == userID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (m *mockNotificationRepository) DeleteByUser(userID string) error {
	for id, req := range m.requests {
		if req.UserID == userID {
			delete(m.requests, id)
		}
	}
	return nil
}

type mockSender struct {
	sent      []*notification.Request
	sendError error
}

func (m *mockSender) Send(req *notification.Request) error {
	if m.sendError != nil {
		return m.sendError
	}
	m.sent = append(m.sent, req)
	return nil
}

var _ = Describe("NotificationService", func() {
	var (
		svc    *notification.Service
		repo   *mockNotificationRepository
		sender *mockSender
		logger *slog.Logger
		ctx    context.Context
	)

	BeforeEach(func() {
		repo = newMockNotificationRepository()
		sender = &mockSender{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = notification.NewService(repo, sender, logger)
		ctx = context.Background()
	})

	Describe("Notify", func() {
		It("should persist the request and mark it sent on delivery", func() {
			svc.Notify(ctx, "user-1", "Access updated", "You now have full access.", notification.ChannelInApp, notification.KindSuccess)

			Expect(sender.sent).To(HaveLen(1))
			list, err := svc.ListForUser(ctx, "user-1", 10, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].Status).To(Equal(notification.StatusSent))
		})

		It("should leave the request pending when delivery fails", func() {
			sender.sendError = errors.New("channel down")

			svc.Notify(ctx, "user-1", "Access updated", "msg", notification.ChannelInApp, notification.KindInfo)

			list, err := svc.ListForUser(ctx, "user-1", 10, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].Status).To(Equal(notification.StatusPending))
		})

		It("should swallow persistence failures", func() {
			repo.createError = errors.New("store down")

			Expect(func() {
				svc.Notify(ctx, "user-1", "t", "m", notification.ChannelInApp, notification.KindInfo)
			}).NotTo(Panic())
			Expect(sender.sent).To(BeEmpty())
		})
	})

	Describe("SubscribeToBus", func() {
		It("should produce a message when access is granted", func() {
			bus := events.NewEventBus(logger)
			svc.SubscribeToBus(bus)

			err := bus.PublishSync(ctx, events.NewAccessGrantedEvent(
				"ent-1", "user-1", "main_method", "full", 24, "admin-1", nil,
			))
			Expect(err).ToNot(HaveOccurred())

			Eventually(func() int {
				list, _ := svc.ListForUser(ctx, "user-1", 10, 0)
				return len(list)
			}, time.Second).Should(Equal(1))
		})

		It("should produce a message when access is revoked", func() {
			bus := events.NewEventBus(logger)
			svc.SubscribeToBus(bus)

			err := bus.PublishSync(ctx, events.NewAccessRevokedEvent("user-1", "main_method", "admin-1"))
			Expect(err).ToNot(HaveOccurred())

			list, err := svc.ListForUser(ctx, "user-1", 10, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].Kind).To(Equal(notification.KindInfo))
		})
	})

	Describe("RemoveAllForUser", func() {
		It("should clear only the target user's rows", func() {
			svc.Notify(ctx, "user-1", "a", "m", notification.ChannelInApp, notification.KindInfo)
			svc.Notify(ctx, "user-2", "b", "m", notification.ChannelInApp, notification.KindInfo)

			Expect(svc.RemoveAllForUser(ctx, "user-1")).To(Succeed())

			list, err := svc.ListForUser(ctx, "user-1", 10, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(BeEmpty())

			list, err = svc.ListForUser(ctx, "user-2", 10, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(HaveLen(1))
		})
	})
})
