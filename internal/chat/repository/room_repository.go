package repository

import (
	"context"

	"campus_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// RoomRepository definition chat room store
type RoomRepository interface {
	CreateRoom(ctx context.Context, room *domain.ChatRoom) error
	FindByID(ctx context.Context, roomID string) (*domain.ChatRoom, error)
	// FindPrivateRoomByPair find the private room holding exactly this pair
	FindPrivateRoomByPair(ctx context.Context, userA, userB string) (*domain.ChatRoom, error)
	// FindCandidateRooms coarse store-side membership filter; callers refine
	// with the room's membership predicate
	FindCandidateRooms(ctx context.Context, id domain.Identity) ([]domain.ChatRoom, error)
	UpdateLastMessage(ctx context.Context, roomID, messageID string, at int64) error
	Deactivate(ctx context.Context, roomID string) error
}

type chatRoomRepository struct {
	roomsColl *mongo.Collection
}

// NewMongoRoomRepository create new mongo room repository
func NewMongoRoomRepository(db *mongo.Database) RoomRepository {
	return &chatRoomRepository{
		roomsColl: db.Collection("rooms"),
	}
}

// CreateRoom create room
func (r *chatRoomRepository) CreateRoom(ctx context.Context, room *domain.ChatRoom) error {
	_, err := r.roomsColl.InsertOne(ctx, room)
	return err
}

// FindByID find room by id
func (r *chatRoomRepository) FindByID(ctx context.Context, roomID string) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.roomsColl.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindPrivateRoomByPair find private room whose participant set is exactly
// {userA, userB}
func (r *chatRoomRepository) FindPrivateRoomByPair(ctx context.Context, userA, userB string) (*domain.ChatRoom, error) {
	filter := bson.M{
		"kind":   domain.RoomKindPrivate,
		"active": true,
		"participants": bson.M{
			"$all":  []string{userA, userB},
			"$size": 2,
		},
	}
	var room domain.ChatRoom
	err := r.roomsColl.FindOne(ctx, filter).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindCandidateRooms pull every active room the identity could possibly be a
// member of: global rooms, rooms of its department, and rooms listing it
// explicitly.
func (r *chatRoomRepository) FindCandidateRooms(ctx context.Context, id domain.Identity) ([]domain.ChatRoom, error) {
	or := []bson.M{
		{"kind": domain.RoomKindGlobal},
		{"participants": id.UserID},
		{"moderators": id.UserID},
	}
	if id.Department != "" {
		or = append(or,
			bson.M{"kind": domain.RoomKindDepartment, "department": id.Department},
			bson.M{"kind": domain.RoomKindClass, "department": id.Department},
		)
	}
	filter := bson.M{"active": true, "$or": or}

	cur, err := r.roomsColl.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var rooms []domain.ChatRoom
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// UpdateLastMessage move the room's denormalized last-message pointer forward
func (r *chatRoomRepository) UpdateLastMessage(ctx context.Context, roomID, messageID string, at int64) error {
	filter := bson.M{"_id": roomID}
	update := bson.M{"$set": bson.M{
		"last_message_id": messageID,
		"last_message_at": at,
	}}
	_, err := r.roomsColl.UpdateOne(ctx, filter, update)
	return err
}

// Deactivate soft-delete a room
func (r *chatRoomRepository) Deactivate(ctx context.Context, roomID string) error {
	filter := bson.M{"_id": roomID}
	update := bson.M{"$set": bson.M{"active": false}}
	_, err := r.roomsColl.UpdateOne(ctx, filter, update)
	return err
}
