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

// NotificationFilter narrows notification listings and counts. Zero values
// mean "no filter" for Type and Status.
type NotificationFilter struct {
	UserID     primitive.ObjectID
	Type       models.NotificationType
	Status     models.NotificationStatus
	UnreadOnly bool
	Skip       int64
	Limit      int64
}

// NotificationRepository persists notifications and their lifecycle
// transitions.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	List(ctx context.Context, filter NotificationFilter) ([]models.Notification, error)
	Count(ctx context.Context, filter NotificationFilter) (int64, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id primitive.ObjectID, readAt time.Time) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID, readAt time.Time) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
	ListPending(ctx context.Context, limit int64) ([]models.Notification, error)
	MarkSent(ctx context.Context, id primitive.ObjectID, sentAt time.Time) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, reason string) error
}

// MongoNotificationRepository is the MongoDB implementation of
// NotificationRepository.
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{
		collection: db.Collection("notifications"),
	}
}

func (f NotificationFilter) toBSON() bson.M {
	filter := bson.M{"user_id": f.UserID}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.UnreadOnly {
		filter["read_at"] = nil
	}
	return filter
}

// Create inserts a new notification.
func (r *MongoNotificationRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	n.CreatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, n)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert notification")
		return nil, fmt.Errorf("failed to create notification: %v", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	n.ID = insertedID

	return n, nil
}

// GetByID returns the notification, or (nil, nil) when it does not exist.
func (r *MongoNotificationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	var n models.Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notification: %v", err)
	}
	return &n, nil
}

// List returns notifications matching the filter, newest first.
func (r *MongoNotificationRepository) List(ctx context.Context, filter NotificationFilter) ([]models.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(filter.Skip).
		SetLimit(filter.Limit)

	cursor, err := r.collection.Find(ctx, filter.toBSON(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %v", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %v", err)
	}
	return notifications, nil
}

// Count returns the number of notifications matching the filter.
func (r *MongoNotificationRepository) Count(ctx context.Context, filter NotificationFilter) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, filter.toBSON())
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %v", err)
	}
	return count, nil
}

// CountUnread counts all unread notifications for the user, regardless of
// status or type.
func (r *MongoNotificationRepository) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID, "read_at": nil})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %v", err)
	}
	return count, nil
}

// MarkRead transitions one notification to READ.
func (r *MongoNotificationRepository) MarkRead(ctx context.Context, id primitive.ObjectID, readAt time.Time) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": models.StatusRead, "read_at": readAt},
	})
	return err
}

// MarkAllRead transitions every unread notification for the user to READ and
// returns how many were updated.
func (r *MongoNotificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID, readAt time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"user_id": userID, "read_at": nil},
		bson.M{"$set": bson.M{"status": models.StatusRead, "read_at": readAt}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %v", err)
	}
	return result.ModifiedCount, nil
}

// Delete removes a notification.
func (r *MongoNotificationRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteByUser removes all notifications for the user.
func (r *MongoNotificationRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %v", err)
	}
	return result.DeletedCount, nil
}

// ListPending returns up to limit PENDING notifications, oldest first, for
// the dispatch sweep.
func (r *MongoNotificationRepository) ListPending(ctx context.Context, limit int64) ([]models.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"status": models.StatusPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending notifications: %v", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode pending notifications: %v", err)
	}
	return notifications, nil
}

// MarkSent transitions a notification to SENT.
func (r *MongoNotificationRepository) MarkSent(ctx context.Context, id primitive.ObjectID, sentAt time.Time) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": models.StatusSent, "sent_at": sentAt},
	})
	return err
}

// MarkFailed transitions a notification to FAILED, recording the reason.
func (r *MongoNotificationRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, reason string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": models.StatusFailed, "failure_reason": reason},
	})
	return err
}
