package whatsapp

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Idosegev23/homeruncms-sub000/internal/models"
	"github.com/Idosegev23/homeruncms-sub000/internal/phone"
)

// Source yields inbound customer messages one at a time. Next returns nil when
// no message is currently available.
type Source interface {
	Next(ctx context.Context) (*models.InboundMessage, error)
}

// maxSkippedNotifications bounds how many non-message events (delivery
// receipts, state changes) a single Next call drains before giving up.
const maxSkippedNotifications = 10

// PollingSource adapts the gateway's notification queue to Source. Every
// fetched notification is acknowledged, including the ones it skips.
type PollingSource struct {
	client IClient
}

// NewPollingSource creates a Source over the gateway notification queue.
func NewPollingSource(client IClient) *PollingSource {
	return &PollingSource{client: client}
}

// Next fetches notifications until it finds an incoming text message or the
// queue runs dry. Non-message events are acknowledged and dropped.
func (s *PollingSource) Next(ctx context.Context) (*models.InboundMessage, error) {
	for i := 0; i < maxSkippedNotifications; i++ {
		n, err := s.client.ReceiveNotification(ctx)
		if err != nil {
			return nil, fmt.Errorf("receive notification: %w", err)
		}
		if n == nil {
			return nil, nil
		}

		msg := s.toInbound(n)
		if err := s.client.DeleteNotification(ctx, n.ReceiptID); err != nil {
			// Leave it on the gateway queue; it will be redelivered.
			return nil, fmt.Errorf("acknowledge notification %d: %w", n.ReceiptID, err)
		}
		if msg != nil {
			return msg, nil
		}
		log.Printf("Skipping notification %d of type %s", n.ReceiptID, n.Body.TypeWebhook)
	}
	return nil, nil
}

// toInbound converts an incoming text notification to an InboundMessage, or
// nil for any other event type.
func (s *PollingSource) toInbound(n *Notification) *models.InboundMessage {
	if n.Body.TypeWebhook != "incomingMessageReceived" {
		return nil
	}
	text := n.Body.MessageData.TextMessageData.TextMessage
	if text == "" {
		return nil
	}
	receivedAt := time.Now()
	if n.Body.Timestamp > 0 {
		receivedAt = time.Unix(n.Body.Timestamp, 0)
	}
	return &models.InboundMessage{
		ChatID:     n.Body.SenderData.ChatID,
		Phone:      phone.Normalize(n.Body.SenderData.ChatID),
		SenderName: n.Body.SenderData.SenderName,
		MessageID:  n.Body.IDMessage,
		Text:       text,
		ReceivedAt: receivedAt,
	}
}
