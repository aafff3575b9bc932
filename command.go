package typedis

import "context"

// Request is anything that can render itself as an outgoing wire value.
type Request interface {
	ToData() (Data, error)
}

// Doer dispatches one request and decodes its reply into res.
type Doer interface {
	Do(ctx context.Context, req Request, res Response) error
}

type doFunc func(ctx context.Context, req Request, res Response) error

func (f doFunc) Do(ctx context.Context, req Request, res Response) error {
	return f(ctx, req, res)
}

// Command is an immutable keyword plus ordered argument list. The type
// parameter P is the response type the command decodes into; it has no
// runtime representation and only ties each factory to its decode, so that
// Exec is checked at compile time.
type Command[P Response] struct {
	keyword string
	args    []Data
}

func newCommand[P Response](keyword string, args ...Data) Command[P] {
	return Command[P]{keyword: keyword, args: args}
}

// Keyword returns the uppercase command name.
func (c Command[P]) Keyword() string {
	return c.keyword
}

// Args returns a copy of the ordered wire arguments, keyword excluded.
func (c Command[P]) Args() []Data {
	out := make([]Data, len(c.args))
	copy(out, c.args)
	return out
}

func (c Command[P]) ToData() (Data, error) {
	d := make(Array, 0, len(c.args)+1)
	d = append(d, BulkString(c.keyword))
	d = append(d, c.args...)
	return d, nil
}

// Exec allocates the response a command was built for, dispatches, and
// decodes. The response type is inferred from the command's phantom
// parameter.
func Exec[R any, P interface {
	*R
	Response
}](ctx context.Context, do Doer, cmd Command[P]) (*R, error) {
	var res R
	return &res, do.Do(ctx, cmd, P(&res))
}

// Get fetches the value of key. A missing key decodes to a null
// BulkResponse, not an error.
func Get(key Key) Command[*BulkResponse] {
	return newCommand[*BulkResponse]("GET", key.AsData())
}

// MGet fetches the values of keys, in input order, duplicates included.
// Missing keys come back as in-place null bulk strings.
func MGet(keys ...Key) Command[*ArrayResponse] {
	args := make([]Data, len(keys))
	for i, k := range keys {
		args[i] = k.AsData()
	}
	return newCommand[*ArrayResponse]("MGET", args...)
}

// Set stores value under key, overwriting any previous value.
func Set(key Key, value Value) Command[*StringResponse] {
	return newCommand[*StringResponse]("SET", key.AsData(), value.AsData())
}

// MSet stores every pair of the mapping. The mapping must not be empty;
// calling MSet with an empty mapping is a programming error and panics.
func MSet(pairs map[Key]Value) Command[*StringResponse] {
	return newCommand[*StringResponse]("MSET", interleave("MSET", pairs)...)
}

// MSetNX stores every pair of the mapping unless any of the keys already
// exists; the reply is 1 when the pairs were stored and 0 otherwise. The
// same non-empty requirement as MSet applies.
func MSetNX(pairs map[Key]Value) Command[*IntegerResponse] {
	return newCommand[*IntegerResponse]("MSETNX", interleave("MSETNX", pairs)...)
}

// interleave flattens a mapping into alternating key, value arguments.
// MSet and MSetNX differ only in keyword and declared response, so the
// non-empty invariant is enforced here once for both.
func interleave(keyword string, pairs map[Key]Value) []Data {
	if len(pairs) == 0 {
		panic("typedis: " + keyword + " requires at least one key-value pair")
	}

	args := make([]Data, 0, 2*len(pairs))
	for k, v := range pairs {
		args = append(args, k.AsData(), v.AsData())
	}
	return args
}

// Append appends value to the string at key, creating it when absent, and
// replies with the resulting length.
func Append(key Key, value Value) Command[*IntegerResponse] {
	return newCommand[*IntegerResponse]("APPEND", key.AsData(), value.AsData())
}

// Incr increments the integer at key by one.
func Incr(key Key) Command[*IntegerResponse] {
	return newCommand[*IntegerResponse]("INCR", key.AsData())
}

// IncrBy increments the integer at key by amount. The amount travels as a
// wire integer, not bulk text.
func IncrBy(key Key, amount int64) Command[*IntegerResponse] {
	return newCommand[*IntegerResponse]("INCRBY", key.AsData(), Integer(amount))
}

// IncrByFloat increments the number at key by amount. The amount travels as
// bulk text since wire integers cannot carry fractions, and the reply
// decodes through the same Float64 path.
func IncrByFloat(key Key, amount float64) Command[*FloatResponse] {
	return newCommand[*FloatResponse]("INCRBYFLOAT", key.AsData(), Float64(amount).AsData())
}

// Decr decrements the integer at key by one.
func Decr(key Key) Command[*IntegerResponse] {
	return newCommand[*IntegerResponse]("DECR", key.AsData())
}

// DecrBy decrements the integer at key by amount, mirroring IncrBy.
func DecrBy(key Key, amount int64) Command[*IntegerResponse] {
	return newCommand[*IntegerResponse]("DECRBY", key.AsData(), Integer(amount))
}
