package typedis

import (
	"context"
)

// Transaction queues requests inside MULTI/EXEC on a pipeline's connection.
// Replies are deferred: each queued response is filled when Exec decodes the
// EXEC reply array.
type Transaction struct {
	p                *Pipeline
	pendingResponses []Response
}

// Multi opens a transaction on the pipeline's connection.
func (p *Pipeline) Multi(ctx context.Context) (*Transaction, error) {
	var res StringResponse
	if err := p.Do(ctx, multi, &res); err != nil {
		return nil, err
	}

	return &Transaction{p: p}, nil
}

func (tx *Transaction) Do(ctx context.Context, req Request, res Response) error {
	tx.pendingResponses = append(tx.pendingResponses, res)
	return tx.p.Async().Do(ctx, req, Discard)
}

func (tx *Transaction) Exec(ctx context.Context) error {
	execRes := execResponse{tx.pendingResponses}
	err := tx.p.Async().Do(ctx, exec, &execRes)
	if err != nil {
		return err
	}

	return tx.p.Await(ctx)
}

// Discard drops the queued commands on the server and forgets the pending
// responses.
func (tx *Transaction) Discard(ctx context.Context) error {
	err := tx.p.Async().Do(ctx, discard, Discard)
	if err != nil {
		return err
	}

	tx.pendingResponses = nil
	return tx.p.Await(ctx)
}

type multiRequest struct{}

var multi multiRequest

func (req multiRequest) ToData() (Data, error) {
	return Array{BulkString("MULTI")}, nil
}

type execRequest struct{}

var exec execRequest

func (req execRequest) ToData() (Data, error) {
	return Array{BulkString("EXEC")}, nil
}

type discardRequest struct{}

var discard discardRequest

func (req discardRequest) ToData() (Data, error) {
	return Array{BulkString("DISCARD")}, nil
}

type execResponse struct {
	responses []Response
}

func (res *execResponse) FromData(data Data) error {
	switch t := data.(type) {
	case Error:
		return t
	case Array:
		if t == nil {
			return ErrTxAborted
		}
		if len(t) != len(res.responses) {
			return protocolErrorf("EXEC replied %d results for %d queued commands", len(t), len(res.responses))
		}
		for i, d := range t {
			err := res.responses[i].FromData(d)
			if err != nil {
				return err
			}
		}
	default:
		return protocolErrorf("EXEC replied %s, want array", dataName(data))
	}

	return nil
}
