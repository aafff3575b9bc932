package typedis

import (
	"context"
)

// Pipeline batches requests onto one borrowed connection. Do still performs
// a single round trip; Async queues requests and Await flushes them and
// collects every reply in order.
type Pipeline struct {
	conn     Conn
	pool     *Pool
	canReuse bool

	pendingResponses []Response
}

func (p *Pipeline) send(ctx context.Context, req Request) error {
	d, err := req.ToData()
	if err != nil {
		return err
	}

	err = p.conn.Send(ctx, d)
	if err != nil {
		p.canReuse = canReuse(err)
		return err
	}

	return nil
}

func (p *Pipeline) receive(ctx context.Context, res Response) error {
	d, err := p.conn.Receive(ctx)
	if err != nil {
		p.canReuse = false
		return err
	}

	err = res.FromData(d)
	if err != nil && !canReuse(err) {
		p.canReuse = false
	}
	return err
}

func (p *Pipeline) Do(ctx context.Context, req Request, res Response) error {
	err := p.send(ctx, req)
	if err != nil {
		return err
	}

	err = p.conn.Flush(ctx)
	if err != nil {
		return err
	}

	return p.receive(ctx, res)
}

func (p *Pipeline) Async() Doer {
	return doFunc(func(ctx context.Context, req Request, res Response) error {
		err := p.send(ctx, req)
		if err != nil {
			return err
		}

		p.pendingResponses = append(p.pendingResponses, res)
		return nil
	})
}

func (p *Pipeline) Await(ctx context.Context) error {
	err := p.conn.Flush(ctx)
	if err != nil {
		return err
	}

	var resErr error
	for _, res := range p.pendingResponses {
		err := p.receive(ctx, res)
		if err != nil {
			if !p.canReuse {
				// the stream state is unknown, remaining replies are lost.
				return err
			}
			// the reply was consumed, keep draining and report the first
			// failure afterwards.
			if resErr == nil {
				resErr = err
			}
		}
	}

	p.pendingResponses = p.pendingResponses[:0]

	return resErr
}

func (p *Pipeline) Close(ctx context.Context) error {
	if p.canReuse {
		return p.pool.Put(ctx, p.conn)
	}

	return p.conn.Close(ctx)
}
