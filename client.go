package typedis

import "context"

// Client is a pool-backed Doer. Command construction is pure, so a single
// Client is safe for concurrent use; each Do borrows one connection for one
// request/response exchange.
type Client struct {
	pool *Pool
}

func NewClient(pool *Pool) *Client {
	return &Client{pool}
}

// putConn returns conn to the pool when the exchange either succeeded or
// failed after a complete reply was consumed. Anything else closes the
// connection: its stream state is unknown.
func putConn(ctx context.Context, err error, conn Conn, pool *Pool) error {
	if err == nil {
		return pool.Put(ctx, conn)
	}

	if canReuse(err) {
		_ = pool.Put(ctx, conn)
		return err
	}

	_ = conn.Close(ctx)
	return err
}

func (c *Client) Do(ctx context.Context, req Request, res Response) error {
	sd, err := req.ToData()
	if err != nil {
		return err
	}

	conn, err := c.pool.Get(ctx)
	if err != nil {
		return err
	}

	err = conn.Send(ctx, sd)
	if err != nil {
		return putConn(ctx, err, conn, c.pool)
	}

	rd, err := conn.Receive(ctx)
	if err != nil {
		return putConn(ctx, err, conn, c.pool)
	}

	err = res.FromData(rd)
	if perr := putConn(ctx, err, conn, c.pool); perr != nil {
		return perr
	}

	return nil
}

func (c *Client) Get(ctx context.Context, key Key) (*BulkResponse, error) {
	return Exec(ctx, c, Get(key))
}

func (c *Client) MGet(ctx context.Context, keys ...Key) (*ArrayResponse, error) {
	return Exec(ctx, c, MGet(keys...))
}

func (c *Client) Set(ctx context.Context, key Key, value Value) (*StringResponse, error) {
	return Exec(ctx, c, Set(key, value))
}

func (c *Client) MSet(ctx context.Context, pairs map[Key]Value) (*StringResponse, error) {
	return Exec(ctx, c, MSet(pairs))
}

func (c *Client) MSetNX(ctx context.Context, pairs map[Key]Value) (*IntegerResponse, error) {
	return Exec(ctx, c, MSetNX(pairs))
}

func (c *Client) Append(ctx context.Context, key Key, value Value) (*IntegerResponse, error) {
	return Exec(ctx, c, Append(key, value))
}

func (c *Client) Incr(ctx context.Context, key Key) (*IntegerResponse, error) {
	return Exec(ctx, c, Incr(key))
}

func (c *Client) IncrBy(ctx context.Context, key Key, amount int64) (*IntegerResponse, error) {
	return Exec(ctx, c, IncrBy(key, amount))
}

func (c *Client) IncrByFloat(ctx context.Context, key Key, amount float64) (*FloatResponse, error) {
	return Exec(ctx, c, IncrByFloat(key, amount))
}

func (c *Client) Decr(ctx context.Context, key Key) (*IntegerResponse, error) {
	return Exec(ctx, c, Decr(key))
}

func (c *Client) DecrBy(ctx context.Context, key Key, amount int64) (*IntegerResponse, error) {
	return Exec(ctx, c, DecrBy(key, amount))
}

// Pipeline borrows one connection for batched exchanges. Close returns it.
func (c *Client) Pipeline(ctx context.Context) (*Pipeline, error) {
	conn, err := c.pool.Get(ctx)
	if err != nil {
		return nil, err
	}

	return &Pipeline{conn: conn, pool: c.pool, canReuse: true}, nil
}

// PubSub borrows one connection for a subscription session. The connection
// does not return to the pool: quitting a subscribed connection cleanly is
// the server's business, so Close tears it down.
func (c *Client) PubSub(ctx context.Context) (*PubSub, error) {
	conn, err := c.pool.Get(ctx)
	if err != nil {
		return nil, err
	}

	return newPubSub(conn), nil
}
