package repository

import (
	"context"

	"campus_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition message store. All mutations go through the
// store's atomic update primitives so concurrent writers never need a lock.
type MessageRepository interface {
	InsertMessage(ctx context.Context, msg *domain.ChatMessage) error
	FindByID(ctx context.Context, messageID string) (*domain.ChatMessage, error)
	// FindByRoomPaged return one page of a room's history in ascending
	// chronological order; page 1 holds the most recent messages
	FindByRoomPaged(ctx context.Context, roomID string, page, pageSize int64) ([]domain.ChatMessage, error)
	// AddReadReceipt add-to-set semantics, at most one entry per user
	AddReadReceipt(ctx context.Context, messageID, userID string, readAt int64) error
	// SoftDelete check-then-set; returns true only for the first deletion
	SoftDelete(ctx context.Context, messageID, deleterID string, deletedAt int64) (bool, error)
}

type chatMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &chatMessageRepository{
		coll: db.Collection("messages"),
	}
}

// InsertMessage write one chat message
func (r *chatMessageRepository) InsertMessage(ctx context.Context, msg *domain.ChatMessage) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

// FindByID find message by id
func (r *chatMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.ChatMessage, error) {
	var msg domain.ChatMessage
	err := r.coll.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindByRoomPaged query newest-first to pick the page, then reverse so the
// caller always receives ascending created_at order.
func (r *chatMessageRepository) FindByRoomPaged(ctx context.Context, roomID string, page, pageSize int64) ([]domain.ChatMessage, error) {
	if page < 1 {
		page = 1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize)

	cur, err := r.coll.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, err
	}
	var msgs []domain.ChatMessage
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// AddReadReceipt push the receipt only when the user has none yet; calling it
// again is a no-op, so retries are safe.
func (r *chatMessageRepository) AddReadReceipt(ctx context.Context, messageID, userID string, readAt int64) error {
	filter := bson.M{
		"_id":             messageID,
		"read_by.user_id": bson.M{"$ne": userID},
	}
	update := bson.M{"$push": bson.M{
		"read_by": domain.ReadReceipt{UserID: userID, ReadAt: readAt},
	}}
	_, err := r.coll.UpdateOne(ctx, filter, update)
	return err
}

// SoftDelete only the first deleter matches the filter; everyone after races
// to a no-op.
func (r *chatMessageRepository) SoftDelete(ctx context.Context, messageID, deleterID string, deletedAt int64) (bool, error) {
	filter := bson.M{
		"_id":     messageID,
		"deleted": bson.M{"$ne": true},
	}
	update := bson.M{"$set": bson.M{
		"deleted":    true,
		"deleted_by": deleterID,
		"deleted_at": deletedAt,
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
