package typedis

import "strconv"

// Value is the encoding half of the value conversion capability. AsData
// never fails: every native value has a wire representation.
//
// The decoding half is Response. Each wrapper type below implements both, so
// it can be used as a command argument and as a decode target for Decode.
type Value interface {
	AsData() Data
}

// Key is an opaque key identifier. It is a distinct type from String so that
// key arguments and value arguments cannot be swapped silently.
type Key string

func (k Key) AsData() Data {
	return BulkString(k)
}

func (k *Key) FromData(data Data) error {
	switch t := data.(type) {
	case Error:
		return t
	case SimpleString:
		*k = Key(t)
		return nil
	case BulkString:
		if t == nil {
			return &ConversionError{Target: "Key", Data: data}
		}
		*k = Key(t)
		return nil
	default:
		return &ConversionError{Target: "Key", Data: data}
	}
}

// String is a textual value, carried on the wire as a bulk string.
type String string

func (s String) AsData() Data {
	return BulkString(s)
}

func (s *String) FromData(data Data) error {
	switch t := data.(type) {
	case Error:
		return t
	case SimpleString:
		*s = String(t)
		return nil
	case Integer:
		*s = String(strconv.FormatInt(int64(t), 10))
		return nil
	case BulkString:
		if t == nil {
			return &ConversionError{Target: "String", Data: data}
		}
		*s = String(t)
		return nil
	default:
		return &ConversionError{Target: "String", Data: data}
	}
}

// Bytes is a binary value, carried on the wire as a bulk string.
type Bytes []byte

func (b Bytes) AsData() Data {
	return BulkString(b)
}

func (b *Bytes) FromData(data Data) error {
	switch t := data.(type) {
	case Error:
		return t
	case SimpleString:
		*b = append((*b)[:0], string(t)...)
		return nil
	case BulkString:
		if t == nil {
			return &ConversionError{Target: "Bytes", Data: data}
		}
		*b = append((*b)[:0], t...)
		return nil
	default:
		return &ConversionError{Target: "Bytes", Data: data}
	}
}

// Int64 is a signed integer value. It encodes as a wire Integer. Decoding
// accepts both the wire Integer and the textual bulk/simple string forms the
// server uses interchangeably for numbers.
type Int64 int64

func (v Int64) AsData() Data {
	return Integer(v)
}

func (v *Int64) FromData(data Data) error {
	switch t := data.(type) {
	case Error:
		return t
	case Integer:
		*v = Int64(t)
		return nil
	case SimpleString:
		return v.parse(string(t), data)
	case BulkString:
		if t == nil {
			return &ConversionError{Target: "Int64", Data: data}
		}
		return v.parse(string(t), data)
	default:
		return &ConversionError{Target: "Int64", Data: data}
	}
}

func (v *Int64) parse(s string, data Data) error {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return &ConversionError{Target: "Int64", Data: data}
	}
	*v = Int64(i)
	return nil
}

// Float64 is a floating point value. RESP integers cannot carry fractions,
// so it encodes as bulk text. The 'g/-1' form round-trips every float64
// exactly, so FromData(AsData(x)) == x.
type Float64 float64

func (v Float64) AsData() Data {
	return BulkString(strconv.AppendFloat(nil, float64(v), 'g', -1, 64))
}

func (v *Float64) FromData(data Data) error {
	switch t := data.(type) {
	case Error:
		return t
	case Integer:
		*v = Float64(t)
		return nil
	case SimpleString:
		return v.parse(string(t), data)
	case BulkString:
		if t == nil {
			return &ConversionError{Target: "Float64", Data: data}
		}
		return v.parse(string(t), data)
	default:
		return &ConversionError{Target: "Float64", Data: data}
	}
}

func (v *Float64) parse(s string, data Data) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return &ConversionError{Target: "Float64", Data: data}
	}
	*v = Float64(f)
	return nil
}
