package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Jkinney331/CombatID-sub001/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// PreferenceRepository persists explicit per-user notification preferences.
// Absence of a row is expected: Get returns (nil, nil) and callers fall back
// to computed defaults.
type PreferenceRepository interface {
	Get(ctx context.Context, userID primitive.ObjectID, notificationType models.NotificationType) (*models.NotificationPreference, error)
	GetByUser(ctx context.Context, userID primitive.ObjectID) ([]models.NotificationPreference, error)
	Create(ctx context.Context, pref *models.NotificationPreference) (*models.NotificationPreference, error)
	Update(ctx context.Context, pref *models.NotificationPreference) (*models.NotificationPreference, error)
}

// MongoPreferenceRepository is the MongoDB implementation of
// PreferenceRepository.
type MongoPreferenceRepository struct {
	collection *mongo.Collection
}

func NewPreferenceRepository(db *mongo.Database) *MongoPreferenceRepository {
	return &MongoPreferenceRepository{
		collection: db.Collection("notification_preferences"),
	}
}

// Get fetches the preference row for (user, type).
func (r *MongoPreferenceRepository) Get(ctx context.Context, userID primitive.ObjectID, notificationType models.NotificationType) (*models.NotificationPreference, error) {
	filter := bson.M{"user_id": userID, "type": notificationType}

	var pref models.NotificationPreference
	err := r.collection.FindOne(ctx, filter).Decode(&pref)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notification preference: %v", err)
	}
	return &pref, nil
}

// GetByUser returns only explicitly stored preference rows.
func (r *MongoPreferenceRepository) GetByUser(ctx context.Context, userID primitive.ObjectID) ([]models.NotificationPreference, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notification preferences: %v", err)
	}
	defer cursor.Close(ctx)

	var prefs []models.NotificationPreference
	if err := cursor.All(ctx, &prefs); err != nil {
		return nil, fmt.Errorf("failed to decode notification preferences: %v", err)
	}
	return prefs, nil
}

// Create inserts a new preference row.
func (r *MongoPreferenceRepository) Create(ctx context.Context, pref *models.NotificationPreference) (*models.NotificationPreference, error) {
	pref.CreatedAt = time.Now()
	pref.UpdatedAt = pref.CreatedAt

	result, err := r.collection.InsertOne(ctx, pref)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert notification preference")
		return nil, fmt.Errorf("failed to create notification preference: %v", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	pref.ID = insertedID

	return pref, nil
}

// Update overwrites an existing preference row.
func (r *MongoPreferenceRepository) Update(ctx context.Context, pref *models.NotificationPreference) (*models.NotificationPreference, error) {
	pref.UpdatedAt = time.Now()

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": pref.ID}, bson.M{"$set": pref})
	if err != nil {
		logrus.WithError(err).Error("Failed to update notification preference")
		return nil, fmt.Errorf("failed to update notification preference: %v", err)
	}
	return pref, nil
}
