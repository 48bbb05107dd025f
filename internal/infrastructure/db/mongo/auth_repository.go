package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/safehealth/portal/internal/core/domain"
)

const usersCollection = "users"

// AuthRepository stores accounts in the users collection. Every call
// acquires the connection from the Manager.
type AuthRepository struct {
	conn *Manager
}

func NewAuthRepository(conn *Manager) *AuthRepository {
	return &AuthRepository{conn: conn}
}

type mongoProfile struct {
	FirstName string `bson:"first_name,omitempty"`
	LastName  string `bson:"last_name,omitempty"`
	Phone     string `bson:"phone,omitempty"`
}

type mongoUser struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	Profile      mongoProfile       `bson:"profile"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

// EnsureUserIndexes creates the unique email index. It is used as the
// Manager's SetupFunc.
func EnsureUserIndexes(ctx context.Context, h *Handle) error {
	_, err := h.DB.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	return nil
}

func (r *AuthRepository) users(ctx context.Context) (*Handle, *mongo.Collection, error) {
	h, err := r.conn.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return h, h.DB.Collection(usersCollection), nil
}

func (r *AuthRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	h, coll, err := r.users(ctx)
	if err != nil {
		return nil, err
	}

	doc := mongoUser{
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         user.Role.String(),
		Profile: mongoProfile{
			FirstName: user.Profile.FirstName,
			LastName:  user.Profile.LastName,
			Phone:     user.Profile.Phone,
		},
		CreatedAt: user.CreatedAt.Unix(),
		UpdatedAt: user.UpdatedAt.Unix(),
	}

	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateEmail
		}
		if err := r.conn.Observe(h, err); domain.KindOf(err) == domain.KindConnection {
			return nil, err
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain()
}

func (r *AuthRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *AuthRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *AuthRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	h, coll, err := r.users(ctx)
	if err != nil {
		return err
	}

	res, err := coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC().Unix(),
	}})
	if err != nil {
		if err := r.conn.Observe(h, err); domain.KindOf(err) == domain.KindConnection {
			return err
		}
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *AuthRepository) UpdateProfile(ctx context.Context, id string, profile domain.Profile) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	h, coll, err := r.users(ctx)
	if err != nil {
		return err
	}

	res, err := coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"profile": mongoProfile{
			FirstName: profile.FirstName,
			LastName:  profile.LastName,
			Phone:     profile.Phone,
		},
		"updated_at": time.Now().UTC().Unix(),
	}})
	if err != nil {
		if err := r.conn.Observe(h, err); domain.KindOf(err) == domain.KindConnection {
			return err
		}
		return fmt.Errorf("update profile: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *AuthRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	h, coll, err := r.users(ctx)
	if err != nil {
		return nil, err
	}

	var mu mongoUser
	if err := coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		if err := r.conn.Observe(h, err); domain.KindOf(err) == domain.KindConnection {
			return nil, err
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain()
}

func (mu mongoUser) toDomain() (*domain.User, error) {
	role, err := domain.ParseRole(mu.Role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", mu.ID.Hex(), err)
	}

	return &domain.User{
		ID:           mu.ID.Hex(),
		Email:        mu.Email,
		PasswordHash: mu.PasswordHash,
		Role:         role,
		Profile: domain.Profile{
			FirstName: mu.Profile.FirstName,
			LastName:  mu.Profile.LastName,
			Phone:     mu.Profile.Phone,
		},
		CreatedAt: unixToTime(mu.CreatedAt),
		UpdatedAt: unixToTime(mu.UpdatedAt),
	}, nil
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
