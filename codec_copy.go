package dzarchive

import "io"

func init() {
	RegisterCodec(FlagCopy, func() Codec { return copyCodec{} })
}

// copyCodec implements the COPY method: the chunk's payload is stored
// verbatim, with no transform in either direction.
type copyCodec struct{}

func (copyCodec) Decompress(out io.Writer, in io.Reader, expectedLen uint32) error {
	n, err := io.Copy(out, in)
	if err != nil {
		return err
	}
	if uint32(n) != expectedLen {
		return &FormatError{Reason: "copy chunk length differs from declared decompressed length"}
	}
	return nil
}

func (copyCodec) Compress(out io.Writer, in io.Reader) (uint32, error) {
	n, err := io.Copy(out, in)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
