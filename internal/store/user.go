package store

import (
	"context"
	"strings"
	"time"

	"github.com/skillbridge/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

// UserRepository handles persistence for users.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

// GetByID loads a user without the password hash.
func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	oid, err := ObjectID(id)
	if err != nil {
		return types.User{}, err
	}

	var user types.User
	opts := options.FindOne().SetProjection(bson.M{"password_hash": 0})
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&user); err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

// GetByEmail loads a user including the password hash.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	var user types.User
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

func (r *UserRepository) SetApproved(ctx context.Context, id string, approved bool) (types.User, error) {
	oid, err := ObjectID(id)
	if err != nil {
		return types.User{}, err
	}
	return r.findOneAndSet(ctx, bson.M{"_id": oid}, bson.M{"is_approved": approved})
}

func (r *UserRepository) SetRole(ctx context.Context, email string, role types.Role) (types.User, error) {
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	return r.findOneAndSet(ctx, filter, bson.M{"role": role})
}

func (r *UserRepository) findOneAndSet(ctx context.Context, filter, fields bson.M) (types.User, error) {
	fields["updated_at"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"password_hash": 0})

	var user types.User
	if err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": fields}, opts).Decode(&user); err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}
