package repository

import (
	"context"
	"fmt"

	"github.com/Jkinney331/CombatID-sub001/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IdentityRepository reads identity data owned by the external identity
// system. This service never writes to these collections; they are consumed
// by the data export and by delivery providers resolving recipients.
type IdentityRepository interface {
	GetUserSummary(ctx context.Context, userID primitive.ObjectID) (*models.UserSummary, error)
	GetOrganizationMemberships(ctx context.Context, userID primitive.ObjectID) ([]models.OrganizationMembership, error)
	GetSessions(ctx context.Context, userID primitive.ObjectID) ([]models.SessionRecord, error)
}

// MongoIdentityRepository is the MongoDB implementation of IdentityRepository.
type MongoIdentityRepository struct {
	users    *mongo.Collection
	members  *mongo.Collection
	sessions *mongo.Collection
}

func NewIdentityRepository(db *mongo.Database) *MongoIdentityRepository {
	return &MongoIdentityRepository{
		users:    db.Collection("users"),
		members:  db.Collection("organization_members"),
		sessions: db.Collection("user_sessions"),
	}
}

// GetUserSummary retrieves the identity snapshot for a user.
func (r *MongoIdentityRepository) GetUserSummary(ctx context.Context, userID primitive.ObjectID) (*models.UserSummary, error) {
	var user models.UserSummary
	err := r.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("user %s: %w", userID.Hex(), models.ErrNotFound)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID.Hex(),
			"error":   err,
		}).Warn("Failed to find user by ID")
		return nil, fmt.Errorf("failed to find user by id: %v", err)
	}
	return &user, nil
}

// GetOrganizationMemberships returns the user's gym/promotion/commission
// memberships.
func (r *MongoIdentityRepository) GetOrganizationMemberships(ctx context.Context, userID primitive.ObjectID) ([]models.OrganizationMembership, error) {
	cursor, err := r.members.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch organization memberships: %v", err)
	}
	defer cursor.Close(ctx)

	var memberships []models.OrganizationMembership
	if err := cursor.All(ctx, &memberships); err != nil {
		return nil, fmt.Errorf("failed to decode organization memberships: %v", err)
	}
	return memberships, nil
}

// GetSessions returns the user's login history, newest first.
func (r *MongoIdentityRepository) GetSessions(ctx context.Context, userID primitive.ObjectID) ([]models.SessionRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.sessions.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user sessions: %v", err)
	}
	defer cursor.Close(ctx)

	var sessions []models.SessionRecord
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode user sessions: %v", err)
	}
	return sessions, nil
}
