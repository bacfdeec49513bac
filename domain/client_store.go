package domain

import (
	"context"
	"time"
)

// ClientRepository is the read side of the client registry plus the
// write operations used by out-of-band seeding.
type ClientRepository interface {
	// FindActiveClient retrieves a client by ID, ignoring inactive ones.
	FindActiveClient(ctx context.Context, clientID string) (*Client, error)

	// UpsertClient creates or replaces a client keyed by its ID.
	UpsertClient(ctx context.Context, client *Client) error
}

// Client represents a registered third-party integration.
//
//nolint:tagliatelle
type Client struct {
	ID            string    `bson:"client_id"      json:"client_id"      yaml:"client_id"`
	Secret        string    `bson:"client_secret"  json:"-"              yaml:"client_secret"`
	Name          string    `bson:"client_name"    json:"client_name"    yaml:"client_name"`
	RedirectURIs  []string  `bson:"redirect_uris"  json:"redirect_uris"  yaml:"redirect_uris"`
	AllowedScopes []string  `bson:"allowed_scopes" json:"allowed_scopes" yaml:"allowed_scopes"`
	IsActive      bool      `bson:"is_active"      json:"is_active"      yaml:"is_active"`
	CreatedAt     time.Time `bson:"created_at"     json:"created_at"     yaml:"-"`
	UpdatedAt     time.Time `bson:"updated_at"     json:"updated_at"     yaml:"-"`
}

// HasRedirectURI reports whether uri is registered verbatim for the client.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}

	return false
}
