package region

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
	"github.com/pierrec/xxHash/xxHash32"
)

// Compression is the type byte in front of every stored chunk.
type Compression byte

const (
	Gzip         Compression = 1
	Zlib         Compression = 2
	Uncompressed Compression = 3
	LZ4          Compression = 4

	// externalFlag marks chunks kept in their own .mcc file.
	externalFlag = 0x80
)

var compressionNames = map[Compression]string{
	Gzip:         "gzip",
	Zlib:         "zlib",
	Uncompressed: "none",
	LZ4:          "lz4",
}

func (c Compression) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", byte(c))
}

// ParseCompression reads one of gzip, zlib, none or lz4.
func ParseCompression(name string) (Compression, error) {
	for c, n := range compressionNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("invalid compression: %q", name)
}

// Codec compresses chunk payloads.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

var builtinCodecs = map[Compression]Codec{
	Gzip:         GzipCodec{},
	Zlib:         ZlibCodec{},
	Uncompressed: NoopCodec{},
	LZ4:          LZ4BlockCodec{},
}

// GetCodec returns the built-in codec of a compression type.
func GetCodec(c Compression) (Codec, error) {
	if codec, ok := builtinCodecs[c]; ok {
		return codec, nil
	}
	return nil, fmt.Errorf("unsupported compression type: %v", c)
}

type GzipCodec struct{}

func (GzipCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GzipCodec) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

type ZlibCodec struct{}

func (ZlibCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (ZlibCodec) Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

type NoopCodec struct{}

func (NoopCodec) Compress(data []byte) ([]byte, error)   { return data, nil }
func (NoopCodec) Decompress(data []byte) ([]byte, error) { return data, nil }

// LZ4BlockCodec reads and writes the LZ4Block stream format: a sequence of
// blocks, each with a 21 byte header, closed by an empty block.
type LZ4BlockCodec struct{}

const (
	lz4Magic        = "LZ4Block"
	lz4HeaderLength = len(lz4Magic) + 13
	lz4BlockSize    = 1 << 16
	lz4MethodRaw    = 0x10
	lz4MethodLZ4    = 0x20
	lz4Seed         = 0x9747b28c
)

var (
	ErrLZ4Magic    = errors.New("lz4: stream is missing the LZ4Block magic")
	ErrLZ4Checksum = errors.New("lz4: block checksum mismatch")
)

var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// lz4Level is log2(block size) - 10, stored in the low bits of the token.
func lz4Level(blockSize int) byte {
	level := 0
	for 1<<(level+10) < blockSize {
		level++
	}
	return byte(level)
}

func lz4Checksum(data []byte) uint32 {
	return xxHash32.Checksum(data, lz4Seed) & 0x0FFFFFFF
}

func (LZ4BlockCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	level := lz4Level(lz4BlockSize)
	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	dst := make([]byte, lz4.CompressBlockBound(lz4BlockSize))
	for off := 0; off < len(data); off += lz4BlockSize {
		block := data[off:min(off+lz4BlockSize, len(data))]
		n, err := lc.CompressBlock(block, dst)
		if err != nil {
			return nil, err
		}
		method, body := byte(lz4MethodLZ4), dst[:n]
		if n == 0 || n >= len(block) {
			method, body = lz4MethodRaw, block
		}
		writeLZ4Header(&buf, method|level, len(body), len(block), lz4Checksum(block))
		buf.Write(body)
	}
	writeLZ4Header(&buf, lz4MethodRaw|level, 0, 0, 0)
	return buf.Bytes(), nil
}

func writeLZ4Header(buf *bytes.Buffer, token byte, compressed, original int, checksum uint32) {
	var header [lz4HeaderLength]byte
	copy(header[:], lz4Magic)
	header[8] = token
	binary.LittleEndian.PutUint32(header[9:], uint32(compressed))
	binary.LittleEndian.PutUint32(header[13:], uint32(original))
	binary.LittleEndian.PutUint32(header[17:], checksum)
	buf.Write(header[:])
}

func (LZ4BlockCodec) Decompress(data []byte) ([]byte, error) {
	var out []byte
	for {
		if len(data) < lz4HeaderLength {
			return nil, io.ErrUnexpectedEOF
		}
		if string(data[:len(lz4Magic)]) != lz4Magic {
			return nil, ErrLZ4Magic
		}
		method := data[8] & 0xF0
		compressed := int(binary.LittleEndian.Uint32(data[9:]))
		original := int(binary.LittleEndian.Uint32(data[13:]))
		checksum := binary.LittleEndian.Uint32(data[17:])
		data = data[lz4HeaderLength:]
		if original == 0 {
			return out, nil
		}
		if compressed < 0 || compressed > len(data) || original < 0 || original > 1<<25 {
			return nil, fmt.Errorf("lz4: invalid block lengths %d/%d", compressed, original)
		}

		block := make([]byte, original)
		switch method {
		case lz4MethodRaw:
			if compressed != original {
				return nil, fmt.Errorf("lz4: raw block of %d bytes declares %d", compressed, original)
			}
			copy(block, data[:compressed])
		case lz4MethodLZ4:
			n, err := lz4.UncompressBlock(data[:compressed], block)
			if err != nil {
				return nil, fmt.Errorf("lz4: %w", err)
			}
			if n != original {
				return nil, fmt.Errorf("lz4: block decoded to %d bytes, expected %d", n, original)
			}
		default:
			return nil, fmt.Errorf("lz4: unknown block method %#x", method)
		}
		if lz4Checksum(block) != checksum {
			return nil, ErrLZ4Checksum
		}
		out = append(out, block...)
		data = data[compressed:]
	}
}
