package typedis

import (
	"testing"

	"typedis/internal/assert"
	"typedis/internal/require"
)

func TestStringResponse(t *testing.T) {
	cases := map[string]struct {
		data Data

		want    string
		wantErr bool
	}{
		"simple string": {data: SimpleString("OK"), want: "OK"},
		"bulk string":   {data: BulkString("value"), want: "value"},
		"integer":       {data: Integer(3), want: "3"},
		"null bulk":     {data: BulkString(nil), wantErr: true},
		"array":         {data: Array{}, wantErr: true},
	}

	for name, tc := range cases {
		tc := tc

		t.Run(name, func(t *testing.T) {
			var res StringResponse
			err := res.FromData(tc.data)
			assert.WantError(t, tc.wantErr, err)
			if !tc.wantErr {
				assert.Equal(t, tc.want, res.String())
			}
		})
	}
}

func TestIntegerResponse(t *testing.T) {
	var res IntegerResponse
	require.NoError(t, res.FromData(Integer(12)))
	assert.Equal(t, int64(12), res.Value())

	require.NoError(t, res.FromData(BulkString("-3")))
	assert.Equal(t, int64(-3), res.Value())

	err := res.FromData(BulkString("xyz"))
	var cerr *ConversionError
	assert.ErrorAs(t, &cerr, err)
}

func TestFloatResponse(t *testing.T) {
	var res FloatResponse
	require.NoError(t, res.FromData(BulkString("3.5")))
	assert.Equal(t, 3.5, res.Value())
	assert.Equal(t, "3.5", res.String())

	require.NoError(t, res.FromData(Integer(2)))
	assert.Equal(t, 2.0, res.Value())

	assert.WantError(t, true, res.FromData(Array{}))
}

func TestBulkResponse(t *testing.T) {
	var res BulkResponse
	require.NoError(t, res.FromData(BulkString("124")))
	assert.Equal(t, false, res.Null())
	assert.Equal(t, "124", res.String())

	var n Int64
	ok, err := res.Decode(&n)
	require.NoError(t, err)
	assert.Equal(t, true, ok)
	assert.Equal(t, Int64(124), n)

	// a null reply decodes to nothing, not to an error.
	require.NoError(t, res.FromData(BulkString(nil)))
	assert.Equal(t, true, res.Null())
	assert.Equal(t, []byte(nil), res.Bytes())

	n = 0
	ok, err = res.Decode(&n)
	require.NoError(t, err)
	assert.Equal(t, false, ok)
	assert.Equal(t, Int64(0), n)
}

func TestBulkResponseDecodeFailure(t *testing.T) {
	var res BulkResponse
	require.NoError(t, res.FromData(BulkString("not a number")))

	var n Int64
	ok, err := res.Decode(&n)
	assert.Equal(t, true, ok)

	var cerr *ConversionError
	if assert.ErrorAs(t, &cerr, err) {
		assert.Equal(t, "Int64", cerr.Target)
	}
}

func TestArrayResponse(t *testing.T) {
	var res ArrayResponse
	require.NoError(t, res.FromData(Array{
		BulkString("124"),
		BulkString(nil),
		BulkString("124"),
	}))

	assert.Equal(t, 3, res.Len())
	assert.Equal(t, false, res.Null())
	assert.Equal(t, []Data{
		BulkString("124"),
		BulkString(nil),
		BulkString("124"),
	}, res.Values())

	strs, err := res.Strings()
	require.NoError(t, err)
	require.Equal(t, 3, len(strs))
	assert.Equal(t, "124", *strs[0])
	if strs[1] != nil {
		t.Errorf("missing key must map to a nil entry, got %q", *strs[1])
	}
	assert.Equal(t, "124", *strs[2])
}

func TestArrayResponseNull(t *testing.T) {
	var res ArrayResponse
	require.NoError(t, res.FromData(Array(nil)))
	assert.Equal(t, true, res.Null())
	assert.Equal(t, 0, res.Len())

	assert.WantError(t, true, res.FromData(Integer(1)))
}

func TestResponsesSurfaceServerError(t *testing.T) {
	serverErr := Error("ERR unknown command 'ERROR'")

	responses := []Response{
		&StringResponse{},
		&IntegerResponse{},
		&FloatResponse{},
		&BulkResponse{},
		&ArrayResponse{},
		Discard,
	}

	for _, res := range responses {
		err := res.FromData(serverErr)
		assert.ErrorIs(t, serverErr, err)
		assert.Equal(t, false, IsClientError(err))
	}
}

func TestDiscardIgnoresData(t *testing.T) {
	require.NoError(t, Discard.FromData(SimpleString("OK")))
	require.NoError(t, Discard.FromData(BulkString(nil)))
	require.NoError(t, Discard.FromData(Array{Integer(1)}))
}
