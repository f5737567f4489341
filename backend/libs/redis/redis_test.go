package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClientPings(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewRedisClient(srv.Addr(), "", 0)
	require.NoError(t, err)
	defer client.Close()
}

func TestNewRedisClientRejectsEmptyAddr(t *testing.T) {
	_, err := NewRedisClient(" ", "", 0)
	assert.EqualError(t, err, "redis: addr is empty")
}
