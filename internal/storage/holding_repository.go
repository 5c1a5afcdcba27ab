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

// HoldingRepository handles holding data persistence.
// The weighted-average upsert rule lives in the portfolio service; this
// layer only guarantees the document contract and (user, ticker) identity.
type HoldingRepository struct {
	db *MongoDB
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *MongoDB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// validateHolding checks the document contract before persistence.
func validateHolding(h *models.Holding) error {
	if h.UserID == "" {
		return apperrors.NewValidationError("user id is required")
	}
	if h.Ticker == "" {
		return apperrors.NewValidationError("ticker is required")
	}
	if h.Quantity <= 0 {
		return apperrors.NewValidationError("quantity must be positive")
	}
	if h.CostBasis < 0 {
		return apperrors.NewValidationError("cost basis cannot be negative")
	}
	return nil
}

// ListByUser returns all holdings owned by a user, in no particular order.
func (r *HoldingRepository) ListByUser(ctx context.Context, userID string) ([]*models.Holding, error) {
	cursor, err := r.db.Collection(holdingsCollection).Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, apperrors.NewStoreError("list holdings", err)
	}
	defer cursor.Close(ctx)

	var holdings []*models.Holding
	if err := cursor.All(ctx, &holdings); err != nil {
		return nil, apperrors.NewStoreError("decode holdings", err)
	}
	return holdings, nil
}

// FindByUserAndTicker returns the single holding for (user, ticker), or a
// NotFound error. The ticker must already be case-normalized.
func (r *HoldingRepository) FindByUserAndTicker(ctx context.Context, userID, ticker string) (*models.Holding, error) {
	var holding models.Holding
	err := r.db.Collection(holdingsCollection).
		FindOne(ctx, bson.M{"user_id": userID, "ticker": ticker}).
		Decode(&holding)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NewNotFoundError("holding", ticker)
		}
		return nil, apperrors.NewStoreError("find holding", err)
	}
	return &holding, nil
}

// Insert creates a new holding document.
func (r *HoldingRepository) Insert(ctx context.Context, holding *models.Holding) error {
	if err := validateHolding(holding); err != nil {
		return err
	}

	if holding.ID == "" {
		holding.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	holding.CreatedAt = now
	holding.UpdatedAt = now

	_, err := r.db.Collection(holdingsCollection).InsertOne(ctx, holding)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.NewConflictError(fmt.Sprintf("holding already exists for %s", holding.Ticker))
		}
		return apperrors.NewStoreError("insert holding", err)
	}
	return nil
}

// Update replaces quantity and cost basis of an existing holding.
func (r *HoldingRepository) Update(ctx context.Context, holding *models.Holding) error {
	if err := validateHolding(holding); err != nil {
		return err
	}

	holding.UpdatedAt = time.Now().UTC()

	result, err := r.db.Collection(holdingsCollection).UpdateOne(ctx,
		bson.M{"_id": holding.ID, "user_id": holding.UserID},
		bson.M{"$set": bson.M{
			"quantity":   holding.Quantity,
			"cost_basis": holding.CostBasis,
			"updated_at": holding.UpdatedAt,
		}},
	)
	if err != nil {
		return apperrors.NewStoreError("update holding", err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NewNotFoundError("holding", holding.ID)
	}
	return nil
}

// DeleteByUserAndTicker removes the (user, ticker) holding if present.
// Deleting an absent holding is not an error.
func (r *HoldingRepository) DeleteByUserAndTicker(ctx context.Context, userID, ticker string) error {
	_, err := r.db.Collection(holdingsCollection).
		DeleteOne(ctx, bson.M{"user_id": userID, "ticker": ticker})
	if err != nil {
		return apperrors.NewStoreError("delete holding", err)
	}
	return nil
}
