// Package mongodb implements domain.UserRepository on a MongoDB collection.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/duynhne/user-service/internal/core/domain"
)

const (
	collectionName = "users"

	indexUsername    = "username_unique"
	indexPhoneNumber = "phoneNumber_unique"
)

type userDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Firstname   string             `bson:"firstname"`
	Lastname    string             `bson:"lastname"`
	Username    string             `bson:"username"`
	Password    string             `bson:"password"`
	PhoneNumber string             `bson:"phoneNumber"`
	Address     string             `bson:"address"`
	Role        string             `bson:"role"`
	Wishlist    []string           `bson:"wishlist"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toDomain() *domain.User {
	wishlist := d.Wishlist
	if wishlist == nil {
		wishlist = []string{}
	}
	return &domain.User{
		ID:          d.ID.Hex(),
		Firstname:   d.Firstname,
		Lastname:    d.Lastname,
		Username:    d.Username,
		Password:    d.Password,
		PhoneNumber: d.PhoneNumber,
		Address:     d.Address,
		Role:        domain.Role(d.Role),
		Wishlist:    wishlist,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// UserRepository implements domain.UserRepository using MongoDB
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a repository backed by the users collection of db.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique indexes that guard username and phoneNumber.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(indexUsername),
		},
		{
			Keys:    bson.D{{Key: "phoneNumber", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(indexPhoneNumber),
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// List returns one page of users honoring filters, sort and pagination.
func (r *UserRepository) List(ctx context.Context, q domain.ListQuery) ([]domain.User, error) {
	filter, err := buildFilter(q.Filters)
	if err != nil {
		return nil, err
	}
	sort, err := buildSort(q.Sort)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(sort).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.Limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []domain.User{}
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, *doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// Count returns the number of users matching filters.
func (r *UserRepository) Count(ctx context.Context, filters []domain.Filter) (int64, error) {
	filter, err := buildFilter(filters)
	if err != nil {
		return 0, err
	}
	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", id, domain.ErrUserNotFound)
	}

	var doc userDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mapError(fmt.Sprintf("get user %q", id), err)
	}
	return doc.toDomain(), nil
}

// Create inserts a new user document. The unique indexes reject duplicates.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDocument{
		ID:          primitive.NewObjectID(),
		Firstname:   u.Firstname,
		Lastname:    u.Lastname,
		Username:    u.Username,
		Password:    u.Password,
		PhoneNumber: u.PhoneNumber,
		Address:     u.Address,
		Role:        string(u.Role),
		Wishlist:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return nil, mapError(fmt.Sprintf("insert user %q", u.Username), err)
	}
	return doc.toDomain(), nil
}

// Update overwrites the editable attributes of an existing user.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return nil, fmt.Errorf("update user %q: %w", u.ID, domain.ErrUserNotFound)
	}

	update := bson.M{"$set": bson.M{
		"firstname":   u.Firstname,
		"lastname":    u.Lastname,
		"username":    u.Username,
		"password":    u.Password,
		"phoneNumber": u.PhoneNumber,
		"address":     u.Address,
		"updatedAt":   time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return nil, mapError(fmt.Sprintf("update user %q", u.ID), err)
	}
	return doc.toDomain(), nil
}

// Delete removes a user document and returns its last state.
func (r *UserRepository) Delete(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("delete user %q: %w", id, domain.ErrUserNotFound)
	}

	var doc userDocument
	if err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mapError(fmt.Sprintf("delete user %q", id), err)
	}
	return doc.toDomain(), nil
}

// AddToWishlist uses $addToSet so the product is stored at most once.
func (r *UserRepository) AddToWishlist(ctx context.Context, userID, productID string) ([]string, error) {
	update := bson.M{
		"$addToSet": bson.M{"wishlist": productID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.updateWishlist(ctx, "add to wishlist", userID, update)
}

// RemoveFromWishlist uses $pull, a no-op when the product is absent.
func (r *UserRepository) RemoveFromWishlist(ctx context.Context, userID, productID string) ([]string, error) {
	update := bson.M{
		"$pull": bson.M{"wishlist": productID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.updateWishlist(ctx, "remove from wishlist", userID, update)
}

func (r *UserRepository) updateWishlist(ctx context.Context, op, userID string, update bson.M) ([]string, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%s of %q: %w", op, userID, domain.ErrUserNotFound)
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"wishlist": 1})

	var doc userDocument
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return nil, mapError(fmt.Sprintf("%s of %q", op, userID), err)
	}
	if doc.Wishlist == nil {
		return []string{}, nil
	}
	return doc.Wishlist, nil
}

// mapError translates driver errors into domain sentinels.
func mapError(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", op, domain.ErrUserNotFound)
	}
	if mongo.IsDuplicateKeyError(err) {
		msg := err.Error()
		switch {
		case strings.Contains(msg, indexUsername):
			return fmt.Errorf("%s: %w", op, domain.ErrUsernameTaken)
		case strings.Contains(msg, indexPhoneNumber):
			return fmt.Errorf("%s: %w", op, domain.ErrPhoneNumberTaken)
		default:
			return fmt.Errorf("%s: %w", op, domain.ErrUserExists)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
