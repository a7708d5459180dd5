package dzarchive

import (
	"io"
	"sync"
)

// Codec implements one chunk compression method as a pair of streaming
// operations. Decompress must write exactly expectedLen bytes to out (or
// fail), except for ZERO, which writes nothing whatever expectedLen is;
// Compress returns the number of bytes it wrote to out.
type Codec interface {
	Decompress(out io.Writer, in io.Reader, expectedLen uint32) error
	Compress(out io.Writer, in io.Reader) (compressedLen uint32, err error)
}

var (
	codecRegistryMu sync.RWMutex
	codecRegistry   = make(map[ChunkFlags]func() Codec)
)

// RegisterCodec registers a codec factory for the given codec-selecting
// flag bit. Call from an init() in the file implementing that codec.
func RegisterCodec(flag ChunkFlags, factory func() Codec) {
	codecRegistryMu.Lock()
	defer codecRegistryMu.Unlock()
	codecRegistry[flag] = factory
}

// getCodec resolves flags to its registered Codec. flags may carry
// attribute bits alongside the codec-selecting bit; only the latter
// participates in lookup. Flags with no codec-selecting bit dispatch as
// FlagCopy, matching the format's empty-flags-means-copy convention.
func getCodec(flags ChunkFlags) (Codec, error) {
	codecFlag, ok := flags.CodecFlag()
	if !ok {
		codecFlag = FlagCopy
	}

	codecRegistryMu.RLock()
	factory, ok := codecRegistry[codecFlag]
	codecRegistryMu.RUnlock()

	if !ok {
		return nil, &unsupportedCompressionError{flags: flags}
	}
	return factory(), nil
}

// Decompress dispatches to the codec selected by flags, writing exactly
// expectedLen decompressed bytes to out.
func Decompress(out io.Writer, in io.Reader, flags ChunkFlags, expectedLen uint32) error {
	codec, err := getCodec(flags)
	if err != nil {
		return err
	}
	return codec.Decompress(out, in, expectedLen)
}

// Compress dispatches to the codec selected by flags, returning the
// number of compressed bytes written to out.
func Compress(out io.Writer, in io.Reader, flags ChunkFlags) (uint32, error) {
	codec, err := getCodec(flags)
	if err != nil {
		return 0, err
	}
	return codec.Compress(out, in)
}

// unsupportedCompressionError carries the offending flag set, matching
// spec kind UnsupportedCompression(flags); it satisfies errors.Is against
// ErrUnsupportedCompression via Unwrap.
type unsupportedCompressionError struct {
	flags ChunkFlags
}

func (e *unsupportedCompressionError) Error() string {
	return ErrUnsupportedCompression.Error() + ": " + e.flags.String()
}

func (e *unsupportedCompressionError) Unwrap() error {
	return ErrUnsupportedCompression
}
