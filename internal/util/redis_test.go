package util

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClient_GetSetDeletePattern(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc := WrapRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer rc.Close()

	_, err := rc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, rc.Set(ctx, "comment:post:p1:true", []string{"a", "b"}, time.Minute))
	require.NoError(t, rc.Set(ctx, "comment:post:p1:false", "raw", time.Minute))
	require.NoError(t, rc.Set(ctx, "comment:post:p2:true", "keep", time.Minute))

	var got []string
	require.NoError(t, rc.GetJSON(ctx, "comment:post:p1:true", &got))
	assert.Equal(t, []string{"a", "b"}, got)

	require.NoError(t, rc.DeletePattern(ctx, "comment:post:p1:*"))
	assert.False(t, mr.Exists("comment:post:p1:true"))
	assert.False(t, mr.Exists("comment:post:p1:false"))

	ok, err := rc.Exists(ctx, "comment:post:p2:true")
	require.NoError(t, err)
	assert.True(t, ok)
}
