package handler

import (
	"crypto/subtle"
	"io"

	"checkout-sandbox/internal/adapter/http/dto"
	"checkout-sandbox/internal/core/domain"
	"checkout-sandbox/internal/core/ports"
	"checkout-sandbox/pkg/apperror"
	"checkout-sandbox/pkg/response"

	"github.com/gin-gonic/gin"
)

const notificationSecretHeader = "x-notification-secret"

// WebhookHandler receives gateway payment notifications.
type WebhookHandler struct {
	notificationSvc ports.NotificationService
	secret          string
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(notificationSvc ports.NotificationService, secret string) *WebhookHandler {
	return &WebhookHandler{notificationSvc: notificationSvc, secret: secret}
}

// Notify handles POST and PATCH /api/v1/payments/notify. The shared
// secret is checked before the body is touched; an unauthorized call
// never reads or mutates any session.
func (h *WebhookHandler) Notify(c *gin.Context) {
	provided := c.GetHeader(notificationSecretHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.ErrInvalidPayload())
		return
	}

	payload := domain.ParseNotificationPayload(body)

	result, err := h.notificationSvc.ProcessNotification(c.Request.Context(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.NotificationResponse{
		SessionID:     result.SessionID,
		OrderID:       result.OrderID,
		PaymentStatus: string(result.PaymentStatus),
	}
	if result.Shipment != nil {
		resp.Shipment = &dto.ShipmentResponse{
			TrackingNumber: result.Shipment.TrackingNumber,
			Cost:           result.Shipment.Cost.StringFixed(2),
			AreaCode:       int(result.Shipment.AreaCode),
		}
	}
	response.OK(c, resp)
}
