package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Idosegev23/homeruncms-sub000/internal/db"
	"github.com/Idosegev23/homeruncms-sub000/internal/models"
	"github.com/Idosegev23/homeruncms-sub000/internal/phone"
)

// ICustomerService defines the interface for customer-related operations.
type ICustomerService interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error)
	FindCustomerByID(ctx context.Context, id string) (*models.Customer, error)
	FindCustomerByPhone(ctx context.Context, rawPhone string) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id string, updates map[string]interface{}) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	ListCustomers(ctx context.Context, limit int) ([]models.Customer, error)
}

const customersCollection = "customers"

// customerService implements ICustomerService.
type customerService struct {
	db *mongo.Database
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(database *mongo.Database) ICustomerService {
	return &customerService{db: database}
}

// CreateCustomer inserts a new customer. The phone number is normalized on the
// way in so lookups by incoming chat ID always hit.
func (s *customerService) CreateCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if customer.Name == "" {
		return nil, errors.New("שם הלקוח הוא שדה חובה")
	}
	collection := s.db.Collection(customersCollection)
	now := time.Now().UTC()

	customer.ID = uuid.NewString()
	customer.Phone = phone.Normalize(customer.Phone)
	customer.Deleted = false
	customer.CreatedAt = now
	customer.UpdatedAt = now

	operation := func() error {
		_, insertErr := collection.InsertOne(ctx, customer)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert customer %s after multiple retries: %w", customer.ID, err)
	}
	return customer, nil
}

// FindCustomerByID finds a non-deleted customer by its ID.
func (s *customerService) FindCustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	filter := bson.M{"_id": id, "deleted": false}
	err := s.db.Collection(customersCollection).FindOne(ctx, filter).Decode(&customer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding customer by ID %s: %w", id, err)
	}
	return &customer, nil
}

// FindCustomerByPhone finds a customer by any spelling of their phone number.
// Returns mongo.ErrNoDocuments for unknown senders.
func (s *customerService) FindCustomerByPhone(ctx context.Context, rawPhone string) (*models.Customer, error) {
	normalized := phone.Normalize(rawPhone)
	if normalized == "" {
		return nil, mongo.ErrNoDocuments
	}
	var customer models.Customer
	filter := bson.M{"phone": normalized, "deleted": false}
	err := s.db.Collection(customersCollection).FindOne(ctx, filter).Decode(&customer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding customer by phone %s: %w", normalized, err)
	}
	return &customer, nil
}

// UpdateCustomer updates mutable fields of a customer.
// `updates` map should contain BSON field names and new values.
func (s *customerService) UpdateCustomer(ctx context.Context, id string, updates map[string]interface{}) (*models.Customer, error) {
	allowedUpdates := bson.M{}
	for key, value := range updates {
		switch key {
		case "name", "phone", "email", "budget", "rooms", "square_meters", "investment",
			"elevator", "parking", "safe_room", "ground_floor", "quiet", "renovated",
			"sun_balcony", "tma_potential", "tower_tolerance", "project_sourced",
			"asset_types", "parking_types", "areas", "area_is_must", "notes":
			allowedUpdates[key] = value
		default:
			return nil, fmt.Errorf("field '%s' cannot be updated via UpdateCustomer", key)
		}
	}
	if len(allowedUpdates) == 0 {
		return nil, fmt.Errorf("no valid fields provided for update")
	}
	if raw, ok := allowedUpdates["phone"].(string); ok {
		allowedUpdates["phone"] = phone.Normalize(raw)
	}
	allowedUpdates["updated_at"] = time.Now().UTC()

	filter := bson.M{"_id": id, "deleted": false}
	update := bson.M{"$set": allowedUpdates}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Customer
	err := s.db.Collection(customersCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("customer not found or cannot be updated")
		}
		return nil, fmt.Errorf("failed to update customer %s: %w", id, err)
	}
	return &updated, nil
}

// DeleteCustomer performs a soft delete by setting the deleted flag to true.
func (s *customerService) DeleteCustomer(ctx context.Context, id string) error {
	now := time.Now().UTC()
	filter := bson.M{"_id": id, "deleted": false}
	update := bson.M{"$set": bson.M{"deleted": true, "updated_at": now}}

	result, err := s.db.Collection(customersCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error deleting customer %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("customer %s not found", id)
	}
	return nil
}

// ListCustomers returns non-deleted customers, newest first.
func (s *customerService) ListCustomers(ctx context.Context, limit int) ([]models.Customer, error) {
	filter := bson.M{"deleted": false}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.db.Collection(customersCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer cursor.Close(ctx)

	var customers []models.Customer
	if err = cursor.All(ctx, &customers); err != nil {
		return nil, fmt.Errorf("failed to decode customers: %w", err)
	}
	return customers, nil
}
