package dzarchive

import (
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
)

func init() {
	RegisterCodec(FlagBzip, func() Codec { return bzip2Codec{} })
}

// bzip2Codec implements the archive's BZIP method. The standard library's
// compress/bzip2 only decodes; packing needs a writer too, so this binds
// to dsnet/compress/bzip2 instead.
type bzip2Codec struct{}

func (bzip2Codec) Decompress(out io.Writer, in io.Reader, expectedLen uint32) error {
	br, err := bzip2.NewReader(in, nil)
	if err != nil {
		return fmt.Errorf("bzip2 decompress: %w", err)
	}
	defer br.Close()
	n, err := io.Copy(out, br)
	if err != nil {
		return fmt.Errorf("bzip2 decompress: %w", err)
	}
	if uint32(n) != expectedLen {
		return &FormatError{Reason: "bzip2 chunk decompressed to an unexpected length"}
	}
	return nil
}

func (bzip2Codec) Compress(out io.Writer, in io.Reader) (uint32, error) {
	counter := &countingWriter{w: out}
	bw, err := bzip2.NewWriter(counter, nil)
	if err != nil {
		return 0, fmt.Errorf("bzip2 compress: %w", err)
	}
	if _, err := io.Copy(bw, in); err != nil {
		return 0, fmt.Errorf("bzip2 compress: %w", err)
	}
	if err := bw.Close(); err != nil {
		return 0, fmt.Errorf("bzip2 compress: %w", err)
	}
	return counter.n, nil
}
