// Package seed loads OAuth client registrations from YAML files and writes
// them to a client repository. Clients are provisioned out of band; the
// HTTP API has no registration endpoint.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pilab-dev/betwiz-oauth/domain"
	"github.com/pilab-dev/betwiz-oauth/internal/crypto"
	"gopkg.in/yaml.v3"
)

// File is the top-level layout of a seed file.
type File struct {
	Clients []ClientSpec `yaml:"clients"`
}

// ClientSpec is one client entry. A missing id or secret is generated, and
// is_active defaults to true.
//
//nolint:tagliatelle
type ClientSpec struct {
	ID            string   `yaml:"client_id"`
	Secret        string   `yaml:"client_secret"`
	Name          string   `yaml:"client_name"`
	RedirectURIs  []string `yaml:"redirect_uris"`
	AllowedScopes []string `yaml:"allowed_scopes"`
	IsActive      *bool    `yaml:"is_active"`
}

// SecretHasher hashes client secrets before they are stored.
type SecretHasher interface {
	Hash(secret string) (string, error)
}

// Result reports one stored client. Secret is the clear value and is only
// set when it was generated, so the operator can hand it out once.
type Result struct {
	ClientID        string
	Secret          string
	GeneratedID     bool
	GeneratedSecret bool
}

// LoadClients decodes and validates a seed file. Unknown keys are errors.
func LoadClients(r io.Reader) ([]ClientSpec, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("seed file is empty")
		}
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	seen := make(map[string]bool, len(f.Clients))
	for i, spec := range f.Clients {
		if len(spec.RedirectURIs) == 0 {
			return nil, fmt.Errorf("client #%d (%s): at least one redirect_uri is required", i+1, spec.ID)
		}
		if spec.ID != "" {
			if seen[spec.ID] {
				return nil, fmt.Errorf("client #%d: duplicate client_id %q", i+1, spec.ID)
			}
			seen[spec.ID] = true
		}
	}

	return f.Clients, nil
}

// Apply upserts every client. With a non-nil hasher secrets are stored
// hashed, which requires the server to run with bcrypt secret hashing.
func Apply(ctx context.Context, repo domain.ClientRepository, specs []ClientSpec, hasher SecretHasher) ([]Result, error) {
	results := make([]Result, 0, len(specs))

	for _, spec := range specs {
		var res Result

		cli := &domain.Client{
			ID:            spec.ID,
			Secret:        spec.Secret,
			Name:          spec.Name,
			RedirectURIs:  spec.RedirectURIs,
			AllowedScopes: spec.AllowedScopes,
			IsActive:      spec.IsActive == nil || *spec.IsActive,
		}

		if cli.ID == "" {
			cli.ID = uuid.NewString()
			res.GeneratedID = true
		}

		if cli.Secret == "" {
			secret, err := crypto.GenerateOpaqueToken()
			if err != nil {
				return results, fmt.Errorf("failed to generate secret for %s: %w", cli.ID, err)
			}
			cli.Secret = secret
			res.Secret = secret
			res.GeneratedSecret = true
		}

		if hasher != nil {
			hashed, err := hasher.Hash(cli.Secret)
			if err != nil {
				return results, fmt.Errorf("failed to hash secret for %s: %w", cli.ID, err)
			}
			cli.Secret = hashed
		}

		if err := repo.UpsertClient(ctx, cli); err != nil {
			return results, fmt.Errorf("failed to store client %s: %w", cli.ID, err)
		}

		res.ClientID = cli.ID
		results = append(results, res)
	}

	return results, nil
}
