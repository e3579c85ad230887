package region

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecsRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("minecraft:stone minecraft:dirt "), 5000)
	for c := range compressionNames {
		t.Run(c.String(), func(t *testing.T) {
			codec, err := GetCodec(c)
			require.NoError(t, err)
			packed, err := codec.Compress(payload)
			require.NoError(t, err)
			if c != Uncompressed {
				assert.Less(t, len(packed), len(payload))
			}
			out, err := codec.Decompress(packed)
			require.NoError(t, err)
			assert.Equal(t, payload, out)
		})
	}
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("lz4")
	require.NoError(t, err)
	assert.Equal(t, LZ4, c)
	assert.Equal(t, "zlib", Zlib.String())

	_, err = ParseCompression("zstd")
	assert.Error(t, err)
	_, err = GetCodec(Compression(9))
	assert.Error(t, err)
}

func TestLZ4BlockLayout(t *testing.T) {
	packed, err := LZ4BlockCodec{}.Compress([]byte("hello"))
	require.NoError(t, err)
	require.Len(t, packed, 2*lz4HeaderLength+5)

	assert.Equal(t, lz4Magic, string(packed[:8]))
	assert.Equal(t, byte(lz4MethodRaw|6), packed[8])
	assert.EqualValues(t, 5, binary.LittleEndian.Uint32(packed[9:]))
	assert.EqualValues(t, 5, binary.LittleEndian.Uint32(packed[13:]))
	sum := binary.LittleEndian.Uint32(packed[17:])
	assert.Equal(t, lz4Checksum([]byte("hello")), sum)
	assert.Zero(t, sum&0xF0000000)
	assert.Equal(t, "hello", string(packed[lz4HeaderLength:lz4HeaderLength+5]))

	end := packed[lz4HeaderLength+5:]
	assert.Equal(t, lz4Magic, string(end[:8]))
	assert.Equal(t, make([]byte, 12), end[9:])
}

func TestLZ4BlockMultipleBlocks(t *testing.T) {
	payload := bytes.Repeat([]byte{1, 2, 3, 4, 5, 6, 7}, 30000)
	packed, err := LZ4BlockCodec{}.Compress(payload)
	require.NoError(t, err)
	assert.Equal(t, byte(lz4MethodLZ4|6), packed[8])
	assert.Equal(t, 5, bytes.Count(packed, []byte(lz4Magic)))

	out, err := LZ4BlockCodec{}.Decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestLZ4BlockCorruption(t *testing.T) {
	packed, err := LZ4BlockCodec{}.Compress([]byte("hello"))
	require.NoError(t, err)

	bad := append([]byte(nil), packed...)
	bad[lz4HeaderLength] ^= 0xFF
	_, err = LZ4BlockCodec{}.Decompress(bad)
	assert.ErrorIs(t, err, ErrLZ4Checksum)

	bad = append([]byte(nil), packed...)
	bad[0] = 'X'
	_, err = LZ4BlockCodec{}.Decompress(bad)
	assert.ErrorIs(t, err, ErrLZ4Magic)

	_, err = LZ4BlockCodec{}.Decompress(packed[:lz4HeaderLength+5])
	assert.Error(t, err)
}
