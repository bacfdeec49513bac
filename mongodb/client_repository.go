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

// ClientRepository implements domain.ClientRepository using MongoDB.
type ClientRepository struct {
	coll *mongo.Collection
}

// NewClientRepository creates the repository and ensures the unique
// client_id index.
func NewClientRepository(ctx context.Context, db *mongo.Database) (*ClientRepository, error) {
	repo := &ClientRepository{
		coll: db.Collection(ClientsCollection),
	}

	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "client_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client_id index: %w", err)
	}

	return repo, nil
}

// FindActiveClient returns the client only if it is marked active.
func (s *ClientRepository) FindActiveClient(ctx context.Context, clientID string) (*domain.Client, error) {
	filter := bson.M{"client_id": clientID, "is_active": true}

	var cli domain.Client
	if err := s.coll.FindOne(ctx, filter).Decode(&cli); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrClientNotFound
		}
		log.Error().Err(err).Str("client_id", clientID).Msg("Error retrieving client")
		return nil, fmt.Errorf("failed to retrieve client: %w", err)
	}

	return &cli, nil
}

// UpsertClient inserts or replaces the client keyed by client_id. The
// original creation time survives replacement.
func (s *ClientRepository) UpsertClient(ctx context.Context, c *domain.Client) error {
	now := time.Now().UTC()
	c.UpdatedAt = now

	set := bson.M{
		"client_name":    c.Name,
		"client_secret":  c.Secret,
		"redirect_uris":  c.RedirectURIs,
		"allowed_scopes": c.AllowedScopes,
		"is_active":      c.IsActive,
		"updated_at":     now,
	}

	_, err := s.coll.UpdateOne(ctx,
		bson.M{"client_id": c.ID},
		bson.M{"$set": set, "$setOnInsert": bson.M{"created_at": now}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert client %s: %w", c.ID, err)
	}

	log.Debug().Str("client_id", c.ID).Msg("Client upserted")

	return nil
}

var _ domain.ClientRepository = (*ClientRepository)(nil)
