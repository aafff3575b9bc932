package typedis

import (
	"context"
	"sync"
)

// Message is a Pub/Sub delivery. Pattern is empty unless the delivery
// matched a PSubscribe pattern.
type Message struct {
	Channel string
	Pattern string
	Payload []byte
}

// PubSub is a subscription session over one dedicated connection. The
// connection enters subscribed mode on the first confirmed subscription and
// leaves it when the confirmed count drops to zero; while subscribed, the
// connection itself rejects every non Pub/Sub command (see ModeError).
//
// Like Conn, a PubSub supports one receiver at a time.
type PubSub struct {
	conn Conn

	mu    sync.Mutex
	count int
}

func newPubSub(conn Conn) *PubSub {
	return &PubSub{conn: conn}
}

// Mode exposes the underlying connection's Pub/Sub state.
func (ps *PubSub) Mode() ConnMode {
	return ps.conn.Mode()
}

// Subscribe subscribes to the given channels and waits for the server to
// confirm each one.
func (ps *PubSub) Subscribe(ctx context.Context, channels ...string) error {
	return ps.subscribe(ctx, "SUBSCRIBE", channels)
}

// PSubscribe subscribes to the given patterns.
func (ps *PubSub) PSubscribe(ctx context.Context, patterns ...string) error {
	return ps.subscribe(ctx, "PSUBSCRIBE", patterns)
}

func (ps *PubSub) subscribe(ctx context.Context, keyword string, channels []string) error {
	if len(channels) == 0 {
		panic("typedis: " + keyword + " requires at least one channel")
	}

	if err := ps.request(ctx, keyword, channels); err != nil {
		return err
	}

	for range channels {
		if _, err := ps.confirmation(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Unsubscribe unsubscribes from the given channels, or from every channel
// when none is given, and waits for the confirmations.
func (ps *PubSub) Unsubscribe(ctx context.Context, channels ...string) error {
	return ps.unsubscribe(ctx, "UNSUBSCRIBE", channels)
}

// PUnsubscribe mirrors Unsubscribe for patterns.
func (ps *PubSub) PUnsubscribe(ctx context.Context, patterns ...string) error {
	return ps.unsubscribe(ctx, "PUNSUBSCRIBE", patterns)
}

func (ps *PubSub) unsubscribe(ctx context.Context, keyword string, channels []string) error {
	if err := ps.request(ctx, keyword, channels); err != nil {
		return err
	}

	if len(channels) > 0 {
		for range channels {
			if _, err := ps.confirmation(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	// unsubscribing from everything: the server sends one confirmation per
	// dropped subscription, or a single zero-count one when there was none.
	for {
		count, err := ps.confirmation(ctx)
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
	}
}

// Ping checks the connection liveness. The pong comes back in the push
// stream and is consumed by Message.
func (ps *PubSub) Ping(ctx context.Context) error {
	return ps.request(ctx, "PING", nil)
}

// Message blocks until the next delivery. Confirmation and pong frames
// arriving in between are applied and skipped.
func (ps *PubSub) Message(ctx context.Context) (*Message, error) {
	for {
		d, err := ps.conn.Receive(ctx)
		if err != nil {
			return nil, err
		}

		switch t := d.(type) {
		case SimpleString:
			// pong
			continue
		case Error:
			return nil, t
		case Array:
			msg, confirmed, err := ps.frame(t)
			if err != nil {
				return nil, err
			}
			if confirmed {
				continue
			}
			return msg, nil
		default:
			return nil, protocolErrorf("unexpected %s in subscribed stream", dataName(d))
		}
	}
}

// Close tears the session down. A subscribed connection never returns to a
// pool.
func (ps *PubSub) Close(ctx context.Context) error {
	return ps.conn.Close(ctx)
}

func (ps *PubSub) request(ctx context.Context, keyword string, args []string) error {
	d := make(Array, 0, len(args)+1)
	d = append(d, BulkString(keyword))
	for _, a := range args {
		d = append(d, BulkString(a))
	}

	if err := ps.conn.Send(ctx, d); err != nil {
		return err
	}
	return ps.conn.Flush(ctx)
}

// confirmation reads one subscribe/unsubscribe confirmation and returns the
// server's resulting subscription count.
func (ps *PubSub) confirmation(ctx context.Context) (int, error) {
	d, err := ps.conn.Receive(ctx)
	if err != nil {
		return 0, err
	}

	arr, ok := d.(Array)
	if !ok {
		if e, isErr := d.(Error); isErr {
			return 0, e
		}
		return 0, protocolErrorf("subscription confirmation is %s, want array", dataName(d))
	}

	msg, confirmed, err := ps.frame(arr)
	if err != nil {
		return 0, err
	}
	if !confirmed {
		return 0, protocolErrorf("got %q while waiting for a subscription confirmation", msg.Channel)
	}

	ps.mu.Lock()
	count := ps.count
	ps.mu.Unlock()
	return count, nil
}

// frame interprets one push array. Confirmation frames update the
// subscription count and report confirmed=true; message frames decode into
// a Message.
func (ps *PubSub) frame(arr Array) (msg *Message, confirmed bool, err error) {
	if len(arr) < 3 {
		return nil, false, protocolErrorf("push frame with %d elements", len(arr))
	}

	kind, ok := arr[0].(BulkString)
	if !ok {
		return nil, false, protocolErrorf("push frame kind is %s, want bulk string", dataName(arr[0]))
	}

	switch string(kind) {
	case "subscribe", "unsubscribe", "psubscribe", "punsubscribe":
		count, ok := arr[2].(Integer)
		if !ok {
			return nil, false, protocolErrorf("confirmation count is %s, want integer", dataName(arr[2]))
		}
		ps.setCount(int(count))
		return nil, true, nil

	case "message":
		if len(arr) != 3 {
			return nil, false, protocolErrorf("message frame with %d elements", len(arr))
		}
		channel, payload, err := messageParts(arr[1], arr[2])
		if err != nil {
			return nil, false, err
		}
		return &Message{Channel: channel, Payload: payload}, false, nil

	case "pmessage":
		if len(arr) != 4 {
			return nil, false, protocolErrorf("pmessage frame with %d elements", len(arr))
		}
		pattern, ok := arr[1].(BulkString)
		if !ok {
			return nil, false, protocolErrorf("pmessage pattern is %s, want bulk string", dataName(arr[1]))
		}
		channel, payload, err := messageParts(arr[2], arr[3])
		if err != nil {
			return nil, false, err
		}
		return &Message{Channel: channel, Pattern: string(pattern), Payload: payload}, false, nil

	default:
		return nil, false, protocolErrorf("unknown push frame kind %q", string(kind))
	}
}

func messageParts(channelData, payloadData Data) (string, []byte, error) {
	channel, ok := channelData.(BulkString)
	if !ok {
		return "", nil, protocolErrorf("message channel is %s, want bulk string", dataName(channelData))
	}
	payload, ok := payloadData.(BulkString)
	if !ok {
		return "", nil, protocolErrorf("message payload is %s, want bulk string", dataName(payloadData))
	}
	return string(channel), []byte(payload), nil
}

func (ps *PubSub) setCount(n int) {
	ps.mu.Lock()
	ps.count = n
	ps.mu.Unlock()

	if ms, ok := ps.conn.(modeSetter); ok {
		ms.setSubscriptions(n)
	}
}
