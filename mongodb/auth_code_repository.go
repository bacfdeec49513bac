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

// AuthCodeRepository implements domain.AuthCodeRepository on the
// oauth_auth_codes collection. A TTL index lets MongoDB reap expired codes;
// reads still filter on expires_at because the reaper runs about once a
// minute.
type AuthCodeRepository struct {
	authCodes *mongo.Collection
	now       func() time.Time
}

func NewAuthCodeRepository(ctx context.Context, db *mongo.Database) (*AuthCodeRepository, error) {
	repo := &AuthCodeRepository{
		authCodes: db.Collection(CodesCollection),
		now:       time.Now,
	}

	_, err := repo.authCodes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create auth code indexes: %w", err)
	}

	return repo, nil
}

func (r *AuthCodeRepository) SaveAuthCode(ctx context.Context, authCode *domain.AuthCode) error {
	if authCode.Code == "" {
		return errors.New("auth code value cannot be empty")
	}
	if authCode.IsExpired(r.now()) {
		return domain.ErrAuthCodeExpired
	}

	_, err := r.authCodes.InsertOne(ctx, authCode)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrAuthCodeExists
		}
		log.Error().Err(err).Str("client_id", authCode.ClientID).Msg("Error saving authorization code")
		return fmt.Errorf("failed to save authorization code: %w", err)
	}

	log.Debug().Str("client_id", authCode.ClientID).Str("user_id", authCode.UserID).Msg("Authorization code saved")

	return nil
}

func (r *AuthCodeRepository) GetAuthCode(ctx context.Context, codeValue string) (*domain.AuthCode, error) {
	filter := bson.M{"code": codeValue, "expires_at": bson.M{"$gt": r.now().UTC()}}

	var authCode domain.AuthCode
	if err := r.authCodes.FindOne(ctx, filter).Decode(&authCode); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAuthCodeNotFound
		}
		log.Error().Err(err).Msg("Error retrieving authorization code")
		return nil, fmt.Errorf("failed to retrieve authorization code: %w", err)
	}

	return &authCode, nil
}

func (r *AuthCodeRepository) DeleteAuthCode(ctx context.Context, codeValue string) error {
	if _, err := r.authCodes.DeleteOne(ctx, bson.M{"code": codeValue}); err != nil {
		return fmt.Errorf("failed to delete authorization code: %w", err)
	}

	return nil
}

// ConsumeAuthCode uses findOneAndDelete, which MongoDB executes atomically
// per document, so concurrent redeemers cannot both receive the code.
func (r *AuthCodeRepository) ConsumeAuthCode(ctx context.Context, codeValue string) (*domain.AuthCode, error) {
	var authCode domain.AuthCode
	if err := r.authCodes.FindOneAndDelete(ctx, bson.M{"code": codeValue}).Decode(&authCode); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAuthCodeNotFound
		}
		log.Error().Err(err).Msg("Error consuming authorization code")
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	return &authCode, nil
}

func (r *AuthCodeRepository) DeleteExpiredAuthCodes(ctx context.Context) (int64, error) {
	res, err := r.authCodes.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": r.now().UTC()}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired authorization codes: %w", err)
	}

	return res.DeletedCount, nil
}

var _ domain.AuthCodeRepository = (*AuthCodeRepository)(nil)
