package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/krobus00/clob-gateway/internal/constant"
	"github.com/krobus00/clob-gateway/internal/entity"
	"github.com/krobus00/clob-gateway/internal/repository"
)

var ErrNotGenerated = errors.New("credentials not generated yet")

// Store holds the single live api key triplet. Acquire replaces the remote
// key, so only one gateway instance may run per venue account.
type Store struct {
	venue entity.VenueConnector
	repo  *repository.EnvFileRepository

	mu      sync.RWMutex
	current entity.Credentials
}

func NewStore(venue entity.VenueConnector, repo *repository.EnvFileRepository) *Store {
	return &Store{
		venue: venue,
		repo:  repo,
	}
}

// Acquire revokes the existing remote api key, requests a fresh triplet and
// persists it. Failure leaves the store empty; callers decide whether that
// is fatal (the venue connection just keeps waiting).
func (s *Store) Acquire(ctx context.Context) (entity.Credentials, error) {
	logrus.Info("generating new venue api credentials")

	if err := s.venue.DeleteAPIKey(ctx); err != nil {
		// nothing to revoke on a fresh account, issuance decides below
		logrus.Warnf("delete existing api key failed: %v", err)
	}

	creds, err := s.venue.CreateAPIKey(ctx)
	if err != nil {
		return entity.Credentials{}, fmt.Errorf("create api key: %w", err)
	}

	if creds.IsZero() {
		return entity.Credentials{}, errors.New("venue returned empty credentials")
	}

	if err := s.Persist(creds); err != nil {
		return entity.Credentials{}, err
	}

	s.mu.Lock()
	s.current = creds
	s.mu.Unlock()

	logrus.Info("credentials generated and stored")

	return creds, nil
}

// Get returns the live triplet, reporting false until Acquire succeeds.
func (s *Store) Get() (entity.Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current.IsZero() {
		return entity.Credentials{}, false
	}

	return s.current, true
}

// Persist merges the triplet into the config file: foreign keys survive
// untouched, credential namespace keys are fully replaced.
func (s *Store) Persist(creds entity.Credentials) error {
	err := s.repo.ReplaceNamespace(constant.CredentialKeyPrefix, []repository.ConfigEntry{
		{Key: constant.CredentialKeyAPIKey, Value: creds.Key},
		{Key: constant.CredentialKeySecret, Value: creds.Secret},
		{Key: constant.CredentialKeyPassphrase, Value: creds.Passphrase},
	})
	if err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}

	return nil
}
