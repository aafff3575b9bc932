package typedis

import (
	"context"
	"net"
	"testing"

	"typedis/internal/assert"
	"typedis/internal/require"
)

// newTestClient wires a client to a single scripted connection: replies are
// served from incoming, requests accumulate in the returned netConn.
func newTestClient(t *testing.T, incoming string) (*Client, netConn) {
	t.Helper()

	nc := newNetConn(incoming)
	pool, err := NewPool("scripted:6379", DialFunc(func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nc, nil
	}))
	require.NoError(t, err)

	return NewClient(pool), nc
}

func TestClient_Set(t *testing.T) {
	client, nc := newTestClient(t, "+OK\r\n")

	res, err := client.Set(context.Background(), Key("foo"), String("bar"))
	require.NoError(t, err)
	assert.Equal(t, "OK", res.String())
	assert.Equal(t, "*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n", nc.wr.String())
}

func TestClient_GetMissing(t *testing.T) {
	client, nc := newTestClient(t, "$-1\r\n")

	res, err := client.Get(context.Background(), Key("nope"))
	require.NoError(t, err)
	assert.Equal(t, true, res.Null())
	assert.Equal(t, "*2\r\n$3\r\nGET\r\n$4\r\nnope\r\n", nc.wr.String())
}

func TestClient_ConnReuse(t *testing.T) {
	// one scripted connection serves consecutive exchanges: the pool must
	// hand the same connection back after a clean reply and after a server
	// error, since both leave the stream in a known state.
	client, nc := newTestClient(t, "+OK\r\n-WRONGTYPE boom\r\n:4\r\n")
	ctx := context.Background()

	_, err := client.Set(ctx, Key("foo"), String("bar"))
	require.NoError(t, err)

	_, err = client.Get(ctx, Key("foo"))
	assert.ErrorIs(t, Error("WRONGTYPE boom"), err)
	assert.Equal(t, false, IsClientError(err))

	res, err := client.Append(ctx, Key("foo"), String("!"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Value())

	assert.Equal(t,
		"*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"+
			"*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"+
			"*3\r\n$6\r\nAPPEND\r\n$3\r\nfoo\r\n$1\r\n!\r\n",
		nc.wr.String())
}

func TestClient_MSet(t *testing.T) {
	client, nc := newTestClient(t, "+OK\r\n")

	res, err := client.MSet(context.Background(), map[Key]Value{"k": String("v")})
	require.NoError(t, err)
	assert.Equal(t, "OK", res.String())
	assert.Equal(t, "*3\r\n$4\r\nMSET\r\n$1\r\nk\r\n$1\r\nv\r\n", nc.wr.String())
}

func TestClient_IncrByFloat(t *testing.T) {
	client, nc := newTestClient(t, "$4\r\n10.5\r\n")

	res, err := client.IncrByFloat(context.Background(), Key("n"), 0.5)
	require.NoError(t, err)
	assert.Equal(t, 10.5, res.Value())
	assert.Equal(t, "*3\r\n$11\r\nINCRBYFLOAT\r\n$1\r\nn\r\n$3\r\n0.5\r\n", nc.wr.String())
}

func TestPipeline_Async(t *testing.T) {
	client, nc := newTestClient(t, "+OK\r\n:1\r\n")
	ctx := context.Background()

	p, err := client.Pipeline(ctx)
	require.NoError(t, err)

	var setRes StringResponse
	require.NoError(t, p.Async().Do(ctx, Set(Key("a"), String("1")), &setRes))

	var incrRes IntegerResponse
	require.NoError(t, p.Async().Do(ctx, Incr(Key("a")), &incrRes))

	// nothing is flushed until Await.
	assert.Equal(t, "", nc.wr.String())

	require.NoError(t, p.Await(ctx))
	assert.Equal(t, "OK", setRes.String())
	assert.Equal(t, int64(1), incrRes.Value())
	assert.Equal(t,
		"*3\r\n$3\r\nSET\r\n$1\r\na\r\n$1\r\n1\r\n"+
			"*2\r\n$4\r\nINCR\r\n$1\r\na\r\n",
		nc.wr.String())

	require.NoError(t, p.Close(ctx))
}

func TestPipeline_AwaitKeepsDrainingOnServerError(t *testing.T) {
	client, _ := newTestClient(t, "-ERR first\r\n:2\r\n")
	ctx := context.Background()

	p, err := client.Pipeline(ctx)
	require.NoError(t, err)

	var a, b IntegerResponse
	require.NoError(t, p.Async().Do(ctx, Incr(Key("a")), &a))
	require.NoError(t, p.Async().Do(ctx, Incr(Key("b")), &b))

	// the first reply fails but was fully consumed, so the second must
	// still be decoded and the first failure reported.
	err = p.Await(ctx)
	assert.ErrorIs(t, Error("ERR first"), err)
	assert.Equal(t, int64(2), b.Value())

	require.NoError(t, p.Close(ctx))
}

func TestTransaction(t *testing.T) {
	client, nc := newTestClient(t,
		"+OK\r\n"+ // MULTI
			"+QUEUED\r\n+QUEUED\r\n"+ // queued commands
			"*2\r\n+OK\r\n$3\r\nbar\r\n") // EXEC
	ctx := context.Background()

	p, err := client.Pipeline(ctx)
	require.NoError(t, err)

	tx, err := p.Multi(ctx)
	require.NoError(t, err)

	var setRes StringResponse
	require.NoError(t, tx.Do(ctx, Set(Key("foo"), String("bar")), &setRes))

	var getRes BulkResponse
	require.NoError(t, tx.Do(ctx, Get(Key("foo")), &getRes))

	require.NoError(t, tx.Exec(ctx))
	assert.Equal(t, "OK", setRes.String())
	assert.Equal(t, "bar", getRes.String())

	assert.Equal(t,
		"*1\r\n$5\r\nMULTI\r\n"+
			"*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"+
			"*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"+
			"*1\r\n$4\r\nEXEC\r\n",
		nc.wr.String())
}

func TestTransaction_Aborted(t *testing.T) {
	client, _ := newTestClient(t,
		"+OK\r\n"+ // MULTI
			"+QUEUED\r\n"+ // queued command
			"*-1\r\n") // EXEC: watched key changed
	ctx := context.Background()

	p, err := client.Pipeline(ctx)
	require.NoError(t, err)

	tx, err := p.Multi(ctx)
	require.NoError(t, err)

	var res StringResponse
	require.NoError(t, tx.Do(ctx, Set(Key("foo"), String("bar")), &res))

	assert.ErrorIs(t, ErrTxAborted, tx.Exec(ctx))
}

func TestTransaction_Discard(t *testing.T) {
	client, nc := newTestClient(t,
		"+OK\r\n"+ // MULTI
			"+QUEUED\r\n"+ // queued command
			"+OK\r\n") // DISCARD
	ctx := context.Background()

	p, err := client.Pipeline(ctx)
	require.NoError(t, err)

	tx, err := p.Multi(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.Do(ctx, Set(Key("foo"), String("bar")), &StringResponse{}))
	require.NoError(t, tx.Discard(ctx))

	assert.Equal(t,
		"*1\r\n$5\r\nMULTI\r\n"+
			"*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"+
			"*1\r\n$7\r\nDISCARD\r\n",
		nc.wr.String())
}
