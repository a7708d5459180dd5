package dzarchive

import (
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

func init() {
	RegisterCodec(FlagLZMA, func() Codec { return lzmaCodec{} })
}

// lzmaCodec implements the archive's LZMA method using the classic
// ".lzma" ("alone") framing, which carries its own property byte and
// dictionary size ahead of the compressed stream — unlike CHD's headerless
// LZMA, which relies entirely on out-of-band properties.
type lzmaCodec struct{}

func (lzmaCodec) Decompress(out io.Writer, in io.Reader, expectedLen uint32) error {
	lr, err := lzma.NewReader(in)
	if err != nil {
		return fmt.Errorf("lzma decompress: %w", err)
	}
	n, err := io.Copy(out, lr)
	if err != nil {
		return fmt.Errorf("lzma decompress: %w", err)
	}
	if uint32(n) != expectedLen {
		return &FormatError{Reason: "lzma chunk decompressed to an unexpected length"}
	}
	return nil
}

func (lzmaCodec) Compress(out io.Writer, in io.Reader) (uint32, error) {
	counter := &countingWriter{w: out}
	lw, err := lzma.NewWriter(counter)
	if err != nil {
		return 0, fmt.Errorf("lzma compress: %w", err)
	}
	if _, err := io.Copy(lw, in); err != nil {
		return 0, fmt.Errorf("lzma compress: %w", err)
	}
	if err := lw.Close(); err != nil {
		return 0, fmt.Errorf("lzma compress: %w", err)
	}
	return counter.n, nil
}
