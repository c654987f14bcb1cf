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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConsentRepository persists versioned consent records. Lookups by the
// natural key return (nil, nil) when no record exists so callers can
// distinguish absence from storage failure.
type ConsentRepository interface {
	GetByKey(ctx context.Context, userID primitive.ObjectID, consentType models.ConsentType, version string) (*models.ConsentRecord, error)
	Create(ctx context.Context, record *models.ConsentRecord) (*models.ConsentRecord, error)
	Update(ctx context.Context, record *models.ConsentRecord) (*models.ConsentRecord, error)
	GetByUser(ctx context.Context, userID primitive.ObjectID) ([]models.ConsentRecord, error)
	GetHistory(ctx context.Context, userID primitive.ObjectID, consentType models.ConsentType) ([]models.ConsentRecord, error)
}

// MongoConsentRepository is the MongoDB implementation of ConsentRepository.
type MongoConsentRepository struct {
	collection *mongo.Collection
}

func NewConsentRepository(db *mongo.Database) *MongoConsentRepository {
	return &MongoConsentRepository{
		collection: db.Collection("user_consents"),
	}
}

// GetByKey fetches the record for the (user, type, version) natural key.
func (r *MongoConsentRepository) GetByKey(ctx context.Context, userID primitive.ObjectID, consentType models.ConsentType, version string) (*models.ConsentRecord, error) {
	filter := bson.M{
		"user_id": userID,
		"type":    consentType,
		"version": version,
	}

	var record models.ConsentRecord
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch consent record: %v", err)
	}
	return &record, nil
}

// Create inserts a new consent record.
func (r *MongoConsentRepository) Create(ctx context.Context, record *models.ConsentRecord) (*models.ConsentRecord, error) {
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert consent record")
		return nil, fmt.Errorf("failed to create consent record: %v", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	record.ID = insertedID

	logrus.WithFields(logrus.Fields{
		"user_id": record.UserID.Hex(),
		"type":    record.Type,
		"version": record.Version,
	}).Info("Consent record created")
	return record, nil
}

// Update overwrites an existing consent record in place.
func (r *MongoConsentRepository) Update(ctx context.Context, record *models.ConsentRecord) (*models.ConsentRecord, error) {
	record.UpdatedAt = time.Now()

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": record.ID}, bson.M{"$set": record})
	if err != nil {
		logrus.WithError(err).Error("Failed to update consent record")
		return nil, fmt.Errorf("failed to update consent record: %v", err)
	}
	return record, nil
}

// GetByUser returns every consent record for the user across all versions.
func (r *MongoConsentRepository) GetByUser(ctx context.Context, userID primitive.ObjectID) ([]models.ConsentRecord, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "type", Value: 1},
		{Key: "granted_at", Value: -1},
	})

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch consent records: %v", err)
	}
	defer cursor.Close(ctx)

	var records []models.ConsentRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode consent records: %v", err)
	}
	return records, nil
}

// GetHistory returns the audit trail newest-first, optionally filtered to
// one consent type.
func (r *MongoConsentRepository) GetHistory(ctx context.Context, userID primitive.ObjectID, consentType models.ConsentType) ([]models.ConsentRecord, error) {
	filter := bson.M{"user_id": userID}
	if consentType != "" {
		filter["type"] = consentType
	}
	opts := options.Find().SetSort(bson.D{{Key: "granted_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch consent history: %v", err)
	}
	defer cursor.Close(ctx)

	var records []models.ConsentRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode consent history: %v", err)
	}
	return records, nil
}
