package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/betwiz-oauth/domain"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Field names of the users collection, as written by the user service.
const (
	fieldRefreshToken          = "refreshToken"
	fieldRefreshTokenExpiresAt = "refreshTokenExpiresAt"
	fieldUpdatedAt             = "updatedAt"
)

// UserRepository implements domain.UserRepository on the users collection
// shared with the user service. Only the refresh token fields are written.
type UserRepository struct {
	users *mongo.Collection
}

// NewUserRepository creates the repository. A sparse index on the refresh
// token hash backs the refresh grant lookup.
func NewUserRepository(ctx context.Context, db *mongo.Database) (*UserRepository, error) {
	repo := &UserRepository{
		users: db.Collection(UsersCollection),
	}

	_, err := repo.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: fieldRefreshToken, Value: 1}},
		Options: options.Index().SetSparse(true),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create refreshToken index on users")
	}

	return repo, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := r.users.FindOne(ctx, byID(id)).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}

	return &user, nil
}

func (r *UserRepository) FindUserByRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	if tokenHash == "" {
		return nil, domain.ErrUserNotFound
	}

	filter := bson.M{
		fieldRefreshToken:            tokenHash,
		fieldRefreshTokenExpiresAt: bson.M{"$gt": now.UTC()},
	}

	var user domain.User
	if err := r.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by refresh token: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	update := bson.M{"$set": bson.M{
		fieldRefreshToken:            tokenHash,
		fieldRefreshTokenExpiresAt: expiresAt.UTC(),
		fieldUpdatedAt:               time.Now().UTC(),
	}}

	res, err := r.users.UpdateOne(ctx, byID(userID), update)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// RotateRefreshToken is a compare-and-swap on the stored hash: the filter
// matches only while the user still holds oldHash.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) error {
	filter := byID(userID)
	filter[fieldRefreshToken] = oldHash

	update := bson.M{"$set": bson.M{
		fieldRefreshToken:            newHash,
		fieldRefreshTokenExpiresAt: expiresAt.UTC(),
		fieldUpdatedAt:               time.Now().UTC(),
	}}

	res, err := r.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRefreshTokenMismatch
	}

	return nil
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, userID, tokenHash string) (bool, error) {
	filter := byID(userID)
	filter[fieldRefreshToken] = tokenHash

	update := bson.M{
		"$unset": bson.M{fieldRefreshToken: "", fieldRefreshTokenExpiresAt: ""},
		"$set":   bson.M{fieldUpdatedAt: time.Now().UTC()},
	}

	res, err := r.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to clear refresh token: %w", err)
	}

	return res.ModifiedCount > 0, nil
}

var _ domain.UserRepository = (*UserRepository)(nil)
