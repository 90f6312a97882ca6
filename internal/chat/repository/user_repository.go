package repository

import (
	"context"

	"campus_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserDirectory read-only view of the user store owned by the member service.
// The chat core only consumes it for moderator computation and the
// private-group department set.
type UserDirectory interface {
	// FindDepartmentStaff ids of department-staff users in a department
	FindDepartmentStaff(ctx context.Context, department string) ([]string, error)
	// DistinctDepartments distinct departments of the given users
	DistinctDepartments(ctx context.Context, userIDs []string) ([]string, error)
}

type mongoUserDirectory struct {
	usersColl *mongo.Collection
}

// NewMongoUserDirectory create a UserDirectory over the shared users collection
func NewMongoUserDirectory(db *mongo.Database) UserDirectory {
	return &mongoUserDirectory{
		usersColl: db.Collection("users"),
	}
}

// FindDepartmentStaff find ids of staff users in a department
func (r *mongoUserDirectory) FindDepartmentStaff(ctx context.Context, department string) ([]string, error) {
	filter := bson.M{
		"department": department,
		"role":       domain.RoleDepartmentStaff,
	}

	cur, err := r.usersColl.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var user struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&user); err != nil {
			return nil, err
		}
		ids = append(ids, user.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// DistinctDepartments distinct departments of the given users
func (r *mongoUserDirectory) DistinctDepartments(ctx context.Context, userIDs []string) ([]string, error) {
	values, err := r.usersColl.Distinct(ctx, "department", bson.M{"_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, err
	}

	var departments []string
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			departments = append(departments, s)
		}
	}
	return departments, nil
}
