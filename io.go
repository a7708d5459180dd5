package dzarchive

import "io"

// ReadSeeker is satisfied by any open volume handle the extraction engine
// reads from.
type ReadSeeker interface {
	io.Reader
	io.Seeker
}

// WriteSeeker is satisfied by any open volume handle the packing engine
// writes to; the main volume's writer must additionally support seeking
// back to patch the chunk table after the post-pass.
type WriteSeeker interface {
	io.Writer
	io.Seeker
}

// UnpackSource supplies readable, seekable handles to an archive's volumes
// during extraction, and the byte length of a named split (needed by the
// chunk geometry reconciler to bound the last chunk in each volume).
type UnpackSource interface {
	OpenMain() (ReadSeeker, error)
	OpenSplit(name string) (ReadSeeker, error)
	SplitLength(name string) (int64, error)
	MainLength() (int64, error)
}

// UnpackSink receives the directories and files produced by extraction.
// Paths are always sanitized, slash-separated, relative paths; the sink
// is responsible for translating them to host conventions.
type UnpackSink interface {
	CreateDir(relPath string) error
	CreateFile(relPath string) (io.WriteCloser, error)
}

// PackSource supplies the bytes a Config's chunk list references, and lets
// the packing engine check a referenced path exists before committing to
// a long-running pack.
type PackSource interface {
	Exists(relPath string) bool
	OpenFile(relPath string) (ReadSeeker, error)
}

// PackSink supplies the writable, seekable volumes the packing engine
// streams compressed chunks into. CreateMain's handle must support
// seeking back to the chunk-table slot once every chunk has been written.
type PackSink interface {
	CreateMain() (WriteSeeker, error)
	CreateSplit(idx int) (WriteSeeker, error)
}

// ProgressEvent is one of the three lifecycle states an extraction or pack
// job reports. Observers must tolerate concurrent delivery of Inc events.
type ProgressEvent struct {
	Kind  ProgressKind
	Count uint64 // total for Start, delta for Inc; unused for Finish
}

// ProgressKind discriminates ProgressEvent.Kind.
type ProgressKind int

const (
	ProgressStart ProgressKind = iota
	ProgressInc
	ProgressFinish
)

// ProgressFunc receives progress events. It must be safe to call
// concurrently from multiple goroutines.
type ProgressFunc func(ProgressEvent)

func noopProgress(ProgressEvent) {}
