package typedis

import (
	"context"
	"os"
	"testing"

	"typedis/internal/assert"
	"typedis/internal/require"
)

func TestE2E(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is empty")
	}

	pool, err := NewPool(addr)
	require.WantError(t, false, err)

	client := NewClient(pool)
	ctx := context.Background()

	setRes, err := client.Set(ctx, Key("aaa"), String("123"))
	require.WantError(t, false, err)
	assert.Equal(t, "OK", setRes.String())

	incrRes, err := client.Incr(ctx, Key("aaa"))
	require.WantError(t, false, err)
	assert.Equal(t, int64(124), incrRes.Value())

	getRes, err := client.Get(ctx, Key("aaa"))
	require.WantError(t, false, err)
	assert.Equal(t, "124", getRes.String())

	var n Int64
	ok, err := getRes.Decode(&n)
	require.WantError(t, false, err)
	assert.Equal(t, true, ok)
	assert.Equal(t, Int64(124), n)

	_, err = Exec(ctx, client, newCommand[*StringResponse]("ERROR"))
	require.WantError(t, true, err)
	assert.Equal(t, false, IsClientError(err))

	mgetRes, err := client.MGet(ctx, Key("aaa"), Key("bbb"), Key("aaa"))
	require.WantError(t, false, err)
	assert.Equal(t, []Data{
		BulkString("124"),
		BulkString(nil),
		BulkString("124"),
	}, mgetRes.Values())

	missing, err := client.Get(ctx, Key("bbb"))
	require.WantError(t, false, err)
	assert.Equal(t, true, missing.Null())

	floatRes, err := client.IncrByFloat(ctx, Key("fff"), 0.5)
	require.WantError(t, false, err)
	assert.Equal(t, 0.5, floatRes.Value())
}
