package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/task-service/internal/api/dto"
	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/service"
)

// NotificationsHandler exposes the notification inbox.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// Send POST /api/notifications/send.
func (h *NotificationsHandler) Send(c *fiber.Ctx) error {
	var req dto.SendNotificationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	kind := domain.NotificationKindOther
	if parsed, ok := domain.ParseNotificationKind(req.Kind); ok {
		kind = parsed
	}
	if err := h.notifications.SendNotification(c.UserContext(), req.Message, req.RecipientUsername, kind, req.ReferenceID); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"status": "sent"}})
}

// Unread GET /api/notifications/unread.
func (h *NotificationsHandler) Unread(c *fiber.Ctx) error {
	worker, err := currentWorker(c)
	if err != nil {
		return err
	}
	list, err := h.notifications.GetUnread(c.UserContext(), worker.Username)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": notificationResponses(list)})
}

// List GET /api/notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	worker, err := currentWorker(c)
	if err != nil {
		return err
	}
	list, err := h.notifications.ListForWorker(c.UserContext(), worker.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": notificationResponses(list)})
}

// MarkRead PUT /api/notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	worker, err := currentWorker(c)
	if err != nil {
		return err
	}
	if err := h.notifications.MarkReadFor(c.UserContext(), worker, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": c.Params("id"), "read": true}})
}

func notificationResponses(list []domain.Notification) []dto.NotificationResponse {
	items := make([]dto.NotificationResponse, 0, len(list))
	for _, n := range list {
		items = append(items, dto.NotificationResponse{
			ID:          n.ID,
			Message:     n.Message,
			Read:        n.Read,
			Kind:        n.Kind,
			ReferenceID: n.ReferenceID,
			CreatedAt:   n.CreatedAt,
		})
	}
	return items
}
