package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/portfolio-tracker/internal/apperrors"
	"github.com/portfolio-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository handles user data persistence
type UserRepository struct {
	db *MongoDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *MongoDB) *UserRepository {
	return &UserRepository{db: db}
}

// validateUser checks the document contract before persistence.
func validateUser(user *models.User) error {
	if user.Username == "" {
		return apperrors.NewValidationError("username is required")
	}
	if user.Email == "" {
		return apperrors.NewValidationError("email is required")
	}
	if user.PasswordHash == "" {
		return apperrors.NewValidationError("password hash is required")
	}
	return nil
}

// Create inserts a new user. A duplicate email surfaces as a
// ConflictError, backed by the unique index on the email field.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := validateUser(user); err != nil {
		return err
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := r.db.Collection(usersCollection).InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.NewConflictError("Email already exists")
		}
		return apperrors.NewStoreError("create user", fmt.Errorf("failed to insert user: %w", err))
	}

	return nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NewNotFoundError("user", email)
		}
		return nil, apperrors.NewStoreError("get user by email", err)
	}
	return &user, nil
}

// ExistsByEmail reports whether an account with the email is registered.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	count, err := r.db.Collection(usersCollection).CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return false, apperrors.NewStoreError("count users by email", err)
	}
	return count > 0, nil
}
