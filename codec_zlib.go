package dzarchive

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

func init() {
	RegisterCodec(FlagZlib, func() Codec { return zlibCodec{} })
}

// zlibCodec implements the archive's ZLIB method, which on inspection is
// raw DEFLATE (RFC 1951) with no zlib header or Adler-32 trailer.
type zlibCodec struct{}

func (zlibCodec) Decompress(out io.Writer, in io.Reader, expectedLen uint32) error {
	fr := flate.NewReader(in)
	defer fr.Close()
	n, err := io.Copy(out, fr)
	if err != nil {
		return fmt.Errorf("zlib decompress: %w", err)
	}
	if uint32(n) != expectedLen {
		return &FormatError{Reason: "zlib chunk decompressed to an unexpected length"}
	}
	return nil
}

func (zlibCodec) Compress(out io.Writer, in io.Reader) (uint32, error) {
	counter := &countingWriter{w: out}
	fw, err := flate.NewWriter(counter, flate.DefaultCompression)
	if err != nil {
		return 0, fmt.Errorf("zlib compress: %w", err)
	}
	if _, err := io.Copy(fw, in); err != nil {
		return 0, fmt.Errorf("zlib compress: %w", err)
	}
	if err := fw.Close(); err != nil {
		return 0, fmt.Errorf("zlib compress: %w", err)
	}
	return counter.n, nil
}

// countingWriter tracks bytes written so codecs can report a compressed
// length without buffering the whole output in memory.
type countingWriter struct {
	w io.Writer
	n uint32
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint32(n)
	return n, err
}
