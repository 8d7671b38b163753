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
	"github.com/Idosegev23/homeruncms-sub000/internal/phone"
)

// IPropertyService defines the interface for property-related operations.
type IPropertyService interface {
	CreateProperty(ctx context.Context, property *models.Property) (*models.Property, error)
	FindPropertyByID(ctx context.Context, id string) (*models.Property, error)
	UpdateProperty(ctx context.Context, id string, updates map[string]interface{}) (*models.Property, error)
	DeleteProperty(ctx context.Context, id string) error
	ListProperties(ctx context.Context, limit int) ([]models.Property, error)
	AddImageToProperty(ctx context.Context, id string, imageKey string) error
}

const propertiesCollection = "properties"

// propertyService implements IPropertyService.
type propertyService struct {
	db *mongo.Database
}

// NewPropertyService creates a new PropertyService.
func NewPropertyService(database *mongo.Database) IPropertyService {
	return &propertyService{db: database}
}

// CreateProperty inserts a new property document.
func (s *propertyService) CreateProperty(ctx context.Context, property *models.Property) (*models.Property, error) {
	if property.Street == "" && property.City == "" {
		return nil, errors.New("כתובת הנכס היא שדה חובה")
	}
	collection := s.db.Collection(propertiesCollection)
	now := time.Now().UTC()

	property.ID = uuid.NewString()
	property.ContactPhone = phone.Normalize(property.ContactPhone)
	if property.Images == nil {
		property.Images = []string{}
	}
	property.Deleted = false
	property.CreatedAt = now
	property.UpdatedAt = now

	operation := func() error {
		_, insertErr := collection.InsertOne(ctx, property)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert property %s after multiple retries: %w", property.ID, err)
	}
	return property, nil
}

// FindPropertyByID finds a non-deleted property by its ID.
func (s *propertyService) FindPropertyByID(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	filter := bson.M{"_id": id, "deleted": false}
	err := s.db.Collection(propertiesCollection).FindOne(ctx, filter).Decode(&property)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding property by ID %s: %w", id, err)
	}
	return &property, nil
}

// UpdateProperty updates mutable fields of a property.
func (s *propertyService) UpdateProperty(ctx context.Context, id string, updates map[string]interface{}) (*models.Property, error) {
	allowedUpdates := bson.M{}
	for key, value := range updates {
		switch key {
		case "street", "city", "area", "price", "rooms", "square_meters", "floor",
			"max_floor", "asset_type", "elevator", "parking", "parking_type",
			"safe_room", "balcony", "condition", "tma_potential", "quiet",
			"airways", "from_project", "contact_name", "contact_phone":
			allowedUpdates[key] = value
		default:
			return nil, fmt.Errorf("field '%s' cannot be updated via UpdateProperty", key)
		}
	}
	if len(allowedUpdates) == 0 {
		return nil, fmt.Errorf("no valid fields provided for update")
	}
	if raw, ok := allowedUpdates["contact_phone"].(string); ok {
		allowedUpdates["contact_phone"] = phone.Normalize(raw)
	}
	allowedUpdates["updated_at"] = time.Now().UTC()

	filter := bson.M{"_id": id, "deleted": false}
	update := bson.M{"$set": allowedUpdates}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Property
	err := s.db.Collection(propertiesCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("property not found or cannot be updated")
		}
		return nil, fmt.Errorf("failed to update property %s: %w", id, err)
	}
	return &updated, nil
}

// DeleteProperty performs a soft delete by setting the deleted flag to true.
func (s *propertyService) DeleteProperty(ctx context.Context, id string) error {
	now := time.Now().UTC()
	filter := bson.M{"_id": id, "deleted": false}
	update := bson.M{"$set": bson.M{"deleted": true, "updated_at": now}}

	result, err := s.db.Collection(propertiesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error deleting property %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("property %s not found", id)
	}
	return nil
}

// ListProperties returns non-deleted properties, newest first.
func (s *propertyService) ListProperties(ctx context.Context, limit int) ([]models.Property, error) {
	filter := bson.M{"deleted": false}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.db.Collection(propertiesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer cursor.Close(ctx)

	var properties []models.Property
	if err = cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return properties, nil
}

// AddImageToProperty adds a processed image key to a property's image array.
// It should only be called after the image processing task is complete.
func (s *propertyService) AddImageToProperty(ctx context.Context, id string, imageKey string) error {
	filter := bson.M{"_id": id, "deleted": false}
	update := bson.M{
		"$addToSet": bson.M{"images": imageKey},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := s.db.Collection(propertiesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error adding image %s to property %s: %w", imageKey, id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("property %s not found or cannot be updated when adding image", id)
	}
	if result.ModifiedCount == 0 {
		log.Printf("Image key %s likely already exists for property %s", imageKey, id)
	}
	return nil
}
