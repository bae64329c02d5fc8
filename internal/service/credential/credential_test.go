package credential

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krobus00/clob-gateway/internal/entity"
	"github.com/krobus00/clob-gateway/internal/repository"
)

type stubVenue struct {
	creds        entity.Credentials
	createErr    error
	deleteErr    error
	deleteCalled bool
}

func (v *stubVenue) CreateAPIKey(ctx context.Context) (entity.Credentials, error) {
	return v.creds, v.createErr
}

func (v *stubVenue) DeleteAPIKey(ctx context.Context) error {
	v.deleteCalled = true
	return v.deleteErr
}

func (v *stubVenue) PlaceOrder(ctx context.Context, order entity.OrderRequest) (json.RawMessage, error) {
	return nil, nil
}

func (v *stubVenue) CancelOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	return nil, nil
}

func (v *stubVenue) Markets(ctx context.Context, query entity.MarketsQuery) (json.RawMessage, error) {
	return nil, nil
}

func (v *stubVenue) Positions(ctx context.Context) (json.RawMessage, error) {
	return nil, nil
}

func TestAcquireRotatesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	err := os.WriteFile(path, []byte("PK=signing-key\nPOLY_API_KEY=stale\n"), 0o600)
	require.NoError(t, err)

	venue := &stubVenue{creds: entity.Credentials{Key: "k", Secret: "s", Passphrase: "p"}}
	store := NewStore(venue, repository.NewEnvFileRepository(path))

	_, ok := store.Get()
	assert.False(t, ok)

	creds, err := store.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, venue.deleteCalled)
	assert.Equal(t, "k", creds.Key)

	got, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, creds, got)

	entries, err := repository.NewEnvFileRepository(path).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "signing-key", entries["PK"])
	assert.Equal(t, "k", entries["POLY_API_KEY"])
	assert.Equal(t, "s", entries["POLY_SECRET"])
	assert.Equal(t, "p", entries["POLY_PASSPHRASE"])
	assert.Len(t, entries, 4)
}

func TestAcquireIssuanceFailureLeavesStoreEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	venue := &stubVenue{createErr: errors.New("venue unavailable")}
	store := NewStore(venue, repository.NewEnvFileRepository(path))

	_, err := store.Acquire(context.Background())
	require.Error(t, err)

	_, ok := store.Get()
	assert.False(t, ok)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAcquireDeleteFailureIsNonFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	venue := &stubVenue{
		creds:     entity.Credentials{Key: "k", Secret: "s", Passphrase: "p"},
		deleteErr: errors.New("no key to delete"),
	}
	store := NewStore(venue, repository.NewEnvFileRepository(path))

	_, err := store.Acquire(context.Background())
	require.NoError(t, err)

	_, ok := store.Get()
	assert.True(t, ok)
}
