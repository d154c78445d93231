package codec

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

type counter struct {
	N uint32
}

func (c counter) MarshalBinary() ([]byte, error) {
	return binary.LittleEndian.AppendUint32(nil, c.N), nil
}

func (c *counter) UnmarshalBinary(b []byte) error {
	if len(b) != 4 {
		return errors.New("counter: bad length")
	}
	c.N = binary.LittleEndian.Uint32(b)
	return nil
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json", "binary"} {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}
	_, ok := ByName("protobuf")
	assert.False(t, ok)
}

func TestJSONCodecsInteroperate(t *testing.T) {
	in := person{Name: "ada", Age: 36}

	b := MustMarshal(JSON{}, in)
	var out person
	require.NoError(t, GoJSON{}.Unmarshal(b, &out))
	assert.Equal(t, in, out)

	b = MustMarshal(nil, in) // Default
	out = person{}
	require.NoError(t, JSON{}.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestBinaryCodec(t *testing.T) {
	b, err := Binary{}.Marshal(counter{N: 7})
	require.NoError(t, err)

	var c counter
	require.NoError(t, Binary{}.Unmarshal(b, &c))
	assert.Equal(t, uint32(7), c.N)

	assert.True(t, IsBinary(counter{}))
	assert.False(t, IsBinary(person{}))

	_, err = Binary{}.Marshal(person{})
	assert.ErrorIs(t, err, ErrNotBinary)
	assert.ErrorIs(t, Binary{}.Unmarshal(b, &person{}), ErrNotBinary)
}
