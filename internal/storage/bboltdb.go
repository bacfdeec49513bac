package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pilab-dev/betwiz-oauth/domain"
	"github.com/pilab-dev/betwiz-oauth/internal/crypto"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
)

// AuthCodesBucket holds the JSON-encoded authorization codes keyed by the
// SHA-256 of the code value.
const AuthCodesBucket = "auth_codes"

// BBoltAuthCodeStore is an embedded, file-backed domain.AuthCodeRepository.
// bbolt has no native expiry, so expired entries stay on disk until
// DeleteExpiredAuthCodes runs. Reads filter them out regardless.
type BBoltAuthCodeStore struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewBBoltAuthCodeStore opens (or creates) the database at dbPath and makes
// sure the codes bucket exists.
func NewBBoltAuthCodeStore(dbPath string) (*BBoltAuthCodeStore, error) {
	dir := filepath.Dir(dbPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Info().Str("dir", dir).Msg("Database directory does not exist, creating it")
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to check database directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db at %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(AuthCodesBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", AuthCodesBucket, err)
	}

	log.Info().Str("path", dbPath).Msg("BBoltDB initialized")

	return &BBoltAuthCodeStore{db: db, now: time.Now}, nil
}

func codeKey(code string) []byte {
	return []byte(crypto.HashToken(code))
}

// SaveAuthCode inserts the code, refusing to overwrite an existing entry.
func (s *BBoltAuthCodeStore) SaveAuthCode(_ context.Context, code *domain.AuthCode) error {
	if code.IsExpired(s.now()) {
		return domain.ErrAuthCodeExpired
	}

	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to encode authorization code: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(AuthCodesBucket))
		key := codeKey(code.Code)
		if b.Get(key) != nil {
			return domain.ErrAuthCodeExists
		}

		return b.Put(key, data)
	})
}

// GetAuthCode returns the code if it exists and has not expired.
func (s *BBoltAuthCodeStore) GetAuthCode(_ context.Context, code string) (*domain.AuthCode, error) {
	var authCode *domain.AuthCode

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(AuthCodesBucket)).Get(codeKey(code))
		if v == nil {
			return domain.ErrAuthCodeNotFound
		}

		var decoded domain.AuthCode
		if err := json.Unmarshal(v, &decoded); err != nil {
			return fmt.Errorf("failed to decode authorization code: %w", err)
		}
		authCode = &decoded

		return nil
	})
	if err != nil {
		return nil, err
	}

	if authCode.IsExpired(s.now()) {
		return nil, domain.ErrAuthCodeNotFound
	}

	return authCode, nil
}

// DeleteAuthCode removes the code. Deleting a missing key is not an error.
func (s *BBoltAuthCodeStore) DeleteAuthCode(_ context.Context, code string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(AuthCodesBucket)).Delete(codeKey(code))
	})
}

// ConsumeAuthCode reads and deletes the code inside one write transaction.
// bbolt allows a single writer at a time, so only one caller can observe
// the value. Expired codes are returned too; the caller decides.
func (s *BBoltAuthCodeStore) ConsumeAuthCode(_ context.Context, code string) (*domain.AuthCode, error) {
	var authCode domain.AuthCode

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(AuthCodesBucket))
		key := codeKey(code)

		v := b.Get(key)
		if v == nil {
			return domain.ErrAuthCodeNotFound
		}
		if err := json.Unmarshal(v, &authCode); err != nil {
			return fmt.Errorf("failed to decode authorization code: %w", err)
		}

		return b.Delete(key)
	})
	if err != nil {
		return nil, err
	}

	return &authCode, nil
}

// DeleteExpiredAuthCodes scans the bucket and drops every expired entry.
func (s *BBoltAuthCodeStore) DeleteExpiredAuthCodes(_ context.Context) (int64, error) {
	var deleted int64
	now := s.now()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(AuthCodesBucket))

		var expired [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var authCode domain.AuthCode
			if err := json.Unmarshal(v, &authCode); err != nil {
				log.Warn().Err(err).Str("key", string(k)).Msg("Dropping undecodable authorization code")
			} else if !authCode.IsExpired(now) {
				continue
			}
			expired = append(expired, append([]byte(nil), k...))
		}

		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("failed to delete expired key %s: %w", string(k), err)
			}
		}
		deleted = int64(len(expired))

		return nil
	})
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		log.Debug().Int64("count", deleted).Msg("Deleted expired authorization codes")
	}

	return deleted, nil
}

// Close closes the underlying database file.
func (s *BBoltAuthCodeStore) Close() error {
	log.Info().Msg("Closing BBoltDB")
	return s.db.Close()
}

var _ domain.AuthCodeRepository = (*BBoltAuthCodeStore)(nil)
