package dzarchive

import "io"

func init() {
	RegisterCodec(FlagZero, func() Codec { return zeroCodec{} })
}

// zeroCodec implements the ZERO method: no payload is read or written in
// either direction, regardless of the chunk's declared decompressed length.
type zeroCodec struct{}

func (zeroCodec) Decompress(out io.Writer, in io.Reader, expectedLen uint32) error {
	return nil
}

func (zeroCodec) Compress(out io.Writer, in io.Reader) (uint32, error) {
	return 0, nil
}
