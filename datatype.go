package typedis

// Data is a marker interface for RESP wire values.
// Following types implement this interface:
//
// - SimpleString
// - Error
// - Integer
// - BulkString
// - Array
//
// Exactly one concrete type is active per value. A nil BulkString or a nil
// Array is the protocol's null marker and is distinct from an empty one.
type Data interface {
	respData()
}

// SimpleString represents a single line string.
// It must not contain CR(\r) or LF(\n).
// Basically, it's returned from a server as a status reply like "OK".
type SimpleString string

func (SimpleString) respData() {}

// Error represents an error message returned by the server.
// Two Errors built from the same reason string compare equal.
type Error string

// Error implements error interface.
func (e Error) Error() string {
	return string(e)
}

func (Error) respData() {}

// Integer represents an integer.
type Integer int64

func (Integer) respData() {}

// BulkString represents a binary safe string.
// The maximum size of string is 512MB.
// BulkString(nil) is the null bulk string.
type BulkString []byte

func (bs BulkString) String() string {
	return string(bs)
}

func (BulkString) respData() {}

// Array represents a collection of Data values.
// Array(nil) is the null array.
type Array []Data

func (Array) respData() {}

// dataName describes a wire value for diagnostics, distinguishing the null
// bulk/array from their empty counterparts.
func dataName(d Data) string {
	switch t := d.(type) {
	case SimpleString:
		return "simple string"
	case Error:
		return "server error"
	case Integer:
		return "integer"
	case BulkString:
		if t == nil {
			return "null bulk string"
		}
		return "bulk string"
	case Array:
		if t == nil {
			return "null array"
		}
		return "array"
	case nil:
		return "no data"
	default:
		return "unknown data"
	}
}
