package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codevia/codevia/internal/infrastructure/persistence/docstore"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "codevia:users:42", DocumentKey(DefaultKeyPrefix, docstore.UsersCollection, "42"))
	assert.Equal(t, "codevia:users:ids", IndexKey(DefaultKeyPrefix, docstore.UsersCollection))
}

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "cache"
	cfg.Password = "pw"

	opts := cfg.options()
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 10, opts.PoolSize)
}

func TestNewStore_DefaultsPrefix(t *testing.T) {
	s := NewStore(Config{Host: "localhost", Port: 6379})
	assert.Equal(t, DefaultKeyPrefix, s.cfg.KeyPrefix)
	assert.Equal(t, docstore.DriverRedis, s.Name())
}

func TestStore_RequiresConnect(t *testing.T) {
	ctx := context.Background()
	s := NewStore(DefaultConfig())

	assert.ErrorIs(t, s.Ping(ctx), docstore.ErrNotConnected)
	_, err := s.Get(ctx, docstore.UsersCollection, "1")
	assert.ErrorIs(t, err, docstore.ErrNotConnected)
	assert.ErrorIs(t, s.Update(ctx, docstore.UsersCollection, "", docstore.UserRecord{}), docstore.ErrEmptyID)
	assert.NoError(t, s.Close(ctx))
}

func TestEncode(t *testing.T) {
	_, err := encode("", 1)
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)

	_, err = encode("k", nil)
	assert.ErrorIs(t, err, ErrCacheNilValue)

	_, err = encode("k", make(chan int))
	assert.ErrorIs(t, err, ErrCacheSerialization)

	data, err := encode("k", docstore.UserRecord{ID: "1", Username: "a"})
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"experiencePoint":0`)
}
