package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Idosegev23/homeruncms-sub000/internal/db"
	"github.com/Idosegev23/homeruncms-sub000/internal/models"
)

// IInboxService stores inbound WhatsApp messages and joins them to customers.
type IInboxService interface {
	SaveInbound(ctx context.Context, msg *models.InboundMessage) (*models.InboundMessage, error)
	ListInbound(ctx context.Context, limit int) ([]models.InboundMessage, error)
	ListInboundForCustomer(ctx context.Context, customerID string, limit int) ([]models.InboundMessage, error)
}

const inboxCollection = "inbound_messages"

// inboxService implements IInboxService.
type inboxService struct {
	db        *mongo.Database
	customers ICustomerService
}

// NewInboxService creates a new InboxService.
func NewInboxService(database *mongo.Database, customers ICustomerService) IInboxService {
	return &inboxService{db: database, customers: customers}
}

// SaveInbound persists an inbound message, resolving the sender to a customer
// record when the phone number is known. Duplicate gateway message IDs are
// dropped silently so redelivered notifications don't double-store.
func (s *inboxService) SaveInbound(ctx context.Context, msg *models.InboundMessage) (*models.InboundMessage, error) {
	if msg.Text == "" {
		return nil, errors.New("inbound message has no text")
	}
	collection := s.db.Collection(inboxCollection)

	if msg.MessageID != "" {
		count, err := collection.CountDocuments(ctx, bson.M{"message_id": msg.MessageID})
		if err != nil {
			return nil, fmt.Errorf("inbox dedup check: %w", err)
		}
		if count > 0 {
			log.Printf("Dropping duplicate inbound message %s", msg.MessageID)
			return msg, nil
		}
	}

	if msg.CustomerID == "" && msg.Phone != "" {
		customer, err := s.customers.FindCustomerByPhone(ctx, msg.Phone)
		if err == nil {
			msg.CustomerID = customer.ID
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("inbox customer lookup: %w", err)
		}
	}

	msg.ID = uuid.NewString()
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}

	operation := func() error {
		_, insertErr := collection.InsertOne(ctx, msg)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert inbound message after multiple retries: %w", err)
	}
	return msg, nil
}

// ListInbound returns the latest inbound messages across all chats.
func (s *inboxService) ListInbound(ctx context.Context, limit int) ([]models.InboundMessage, error) {
	return s.list(ctx, bson.M{}, limit)
}

// ListInboundForCustomer returns the latest inbound messages of one customer.
func (s *inboxService) ListInboundForCustomer(ctx context.Context, customerID string, limit int) ([]models.InboundMessage, error) {
	return s.list(ctx, bson.M{"customer_id": customerID}, limit)
}

func (s *inboxService) list(ctx context.Context, filter bson.M, limit int) ([]models.InboundMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.db.Collection(inboxCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbound messages: %w", err)
	}
	defer cursor.Close(ctx)

	var msgs []models.InboundMessage
	if err = cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode inbound messages: %w", err)
	}
	return msgs, nil
}
