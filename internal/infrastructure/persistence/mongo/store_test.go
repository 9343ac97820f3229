package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codevia/codevia/internal/infrastructure/persistence/docstore"
)

func TestNewStore_Defaults(t *testing.T) {
	s := NewStore(Config{URI: "mongodb://db:27017"})

	assert.Equal(t, "codevia", s.cfg.Database)
	assert.Equal(t, DefaultConfig().ConnectTimeout, s.cfg.ConnectTimeout)
	assert.Equal(t, docstore.DriverMongo, s.Name())
}

func TestClientOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts := cfg.clientOptions()

	require.NotNil(t, opts.MaxPoolSize)
	assert.Equal(t, uint64(20), *opts.MaxPoolSize)
	require.NotNil(t, opts.ServerAPIOptions)
	assert.Contains(t, opts.Hosts, "localhost:27017")
}

func TestStore_RequiresConnect(t *testing.T) {
	ctx := context.Background()
	s := NewStore(DefaultConfig())

	assert.ErrorIs(t, s.Ping(ctx), docstore.ErrNotConnected)
	assert.ErrorIs(t, s.Save(ctx, docstore.UsersCollection, "1", docstore.UserRecord{}), docstore.ErrNotConnected)
	_, err := s.GetAll(ctx, docstore.UsersCollection)
	assert.ErrorIs(t, err, docstore.ErrNotConnected)
	assert.ErrorIs(t, s.Delete(ctx, "", "1"), docstore.ErrEmptyID)
	assert.NoError(t, s.Close(ctx))
}
