package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Idosegev23/homeruncms-sub000/internal/auth"
	"github.com/Idosegev23/homeruncms-sub000/internal/config"
	"github.com/Idosegev23/homeruncms-sub000/internal/db"
	"github.com/Idosegev23/homeruncms-sub000/internal/models"
)

// ErrInvalidCredentials is returned for a failed login, deliberately the same
// for unknown emails and wrong passwords.
var ErrInvalidCredentials = errors.New("אימייל או סיסמה שגויים")

// IUserService defines the interface for agent account operations.
type IUserService interface {
	CreateUser(ctx context.Context, name, email, password string, isAdmin bool) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	ChangePassword(ctx context.Context, id, newPassword string) error
	DeleteUser(ctx context.Context, id string) error
}

const usersCollection = "users"

var emailRegexp = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// userService implements IUserService.
type userService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database, cfg *config.Config) IUserService {
	return &userService{db: database, cfg: cfg}
}

// CreateUser creates an agent account with a bcrypt password hash.
func (s *userService) CreateUser(ctx context.Context, name, email, password string, isAdmin bool) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegexp.MatchString(email) {
		return nil, errors.New("כתובת אימייל לא תקינה")
	}
	if matched, _ := regexp.MatchString(s.cfg.PasswordRegexp, password); !matched {
		return nil, errors.New("הסיסמה אינה עומדת בדרישות")
	}
	if existing, err := s.FindUserByEmail(ctx, email); err == nil && existing != nil {
		return nil, errors.New("כתובת האימייל כבר רשומה במערכת")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	operation := func() error {
		_, insertErr := s.db.Collection(usersCollection).InsertOne(ctx, user)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert user %s after multiple retries: %w", user.ID, err)
	}
	return user, nil
}

// FindUserByID finds a non-deleted user by ID.
func (s *userService) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	filter := bson.M{"_id": id, "deleted": false}
	err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by ID %s: %w", id, err)
	}
	return &user, nil
}

// FindUserByEmail finds a non-deleted user by email (case-insensitive).
func (s *userService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email)), "deleted": false}
	err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by email: %w", err)
	}
	return &user, nil
}

// Authenticate verifies credentials and returns the user on success.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword sets a new bcrypt hash for the user.
func (s *userService) ChangePassword(ctx context.Context, id, newPassword string) error {
	if matched, _ := regexp.MatchString(s.cfg.PasswordRegexp, newPassword); !matched {
		return errors.New("הסיסמה אינה עומדת בדרישות")
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	filter := bson.M{"_id": id, "deleted": false}
	update := bson.M{"$set": bson.M{"password": hash, "updated_at": time.Now().UTC()}}
	result, err := s.db.Collection(usersCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error changing password for user %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user %s not found", id)
	}
	return nil
}

// DeleteUser performs a soft delete.
func (s *userService) DeleteUser(ctx context.Context, id string) error {
	filter := bson.M{"_id": id, "deleted": false}
	update := bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now().UTC()}}
	result, err := s.db.Collection(usersCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error deleting user %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user %s not found", id)
	}
	return nil
}
