package typedis

import "strconv"

// Response is the decoding half of the value conversion capability: it fills
// itself from a reply's wire value or fails explicitly. Server Error replies
// always pass through verbatim.
type Response interface {
	FromData(data Data) error
}

// StringResponse decodes status and text replies (SET, MSET).
type StringResponse struct {
	value string
}

func (res *StringResponse) String() string {
	return res.value
}

func (res *StringResponse) FromData(data Data) error {
	switch t := data.(type) {
	case Error:
		return t
	case SimpleString:
		res.value = string(t)
	case Integer:
		res.value = strconv.FormatInt(int64(t), 10)
	case BulkString:
		if t == nil {
			return &ConversionError{Target: "StringResponse", Data: data}
		}
		res.value = string(t)
	default:
		return &ConversionError{Target: "StringResponse", Data: data}
	}

	return nil
}

// IntegerResponse decodes integer replies (APPEND, MSETNX, the INCR family).
type IntegerResponse struct {
	value int64
}

func (res *IntegerResponse) Value() int64 {
	return res.value
}

func (res *IntegerResponse) String() string {
	return strconv.FormatInt(res.value, 10)
}

func (res *IntegerResponse) FromData(data Data) error {
	var v Int64
	if err := v.FromData(data); err != nil {
		return err
	}
	res.value = int64(v)
	return nil
}

// FloatResponse decodes INCRBYFLOAT replies through the same Float64 path
// used to encode the amount.
type FloatResponse struct {
	value float64
}

func (res *FloatResponse) Value() float64 {
	return res.value
}

func (res *FloatResponse) String() string {
	return strconv.FormatFloat(res.value, 'g', -1, 64)
}

func (res *FloatResponse) FromData(data Data) error {
	var v Float64
	if err := v.FromData(data); err != nil {
		return err
	}
	res.value = float64(v)
	return nil
}

// BulkResponse decodes a nullable bulk reply (GET). A null bulk is a normal
// outcome, reported by Null, never an error.
type BulkResponse struct {
	bytes []byte
	null  bool
}

// Null reports whether the reply was the null bulk string, i.e. the key did
// not exist.
func (res *BulkResponse) Null() bool {
	return res.null
}

func (res *BulkResponse) Bytes() []byte {
	return res.bytes
}

func (res *BulkResponse) String() string {
	return string(res.bytes)
}

// Decode converts a present payload into v. It reports false, and leaves v
// untouched, when the reply was null.
func (res *BulkResponse) Decode(v Response) (bool, error) {
	if res.null {
		return false, nil
	}
	return true, v.FromData(BulkString(res.bytes))
}

func (res *BulkResponse) FromData(data Data) error {
	switch t := data.(type) {
	case Error:
		return t
	case SimpleString:
		res.bytes, res.null = []byte(t), false
	case Integer:
		res.bytes, res.null = strconv.AppendInt(nil, int64(t), 10), false
	case BulkString:
		if t == nil {
			res.bytes, res.null = nil, true
			return nil
		}
		res.bytes, res.null = append([]byte(nil), t...), false
	default:
		return &ConversionError{Target: "BulkResponse", Data: data}
	}

	return nil
}

// ArrayResponse decodes a multi-value reply (MGET), preserving element order
// and in-place nulls for absent keys.
type ArrayResponse struct {
	values Array
}

// Null reports whether the reply was the null array.
func (res *ArrayResponse) Null() bool {
	return res.values == nil
}

func (res *ArrayResponse) Len() int {
	return len(res.values)
}

func (res *ArrayResponse) Values() []Data {
	return res.values
}

// Strings converts the elements into text, with nil entries standing in for
// null bulk strings. Elements that are not textual fail conversion.
func (res *ArrayResponse) Strings() ([]*string, error) {
	out := make([]*string, len(res.values))
	for i, d := range res.values {
		if bs, ok := d.(BulkString); ok && bs == nil {
			continue
		}
		var s String
		if err := s.FromData(d); err != nil {
			return nil, err
		}
		v := string(s)
		out[i] = &v
	}
	return out, nil
}

func (res *ArrayResponse) FromData(data Data) error {
	switch t := data.(type) {
	case Error:
		return t
	case Array:
		res.values = t
	default:
		return &ConversionError{Target: "ArrayResponse", Data: data}
	}

	return nil
}

const Discard = discardResponse(0)

type discardResponse int

func (discardResponse) FromData(data Data) error {
	switch t := data.(type) {
	case Error:
		return t
	default:
		return nil
	}
}
