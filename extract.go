package dzarchive

import (
	"context"
	"io"
	"log"
	"path"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ExtractOptions configures Extract. The zero value runs
// runtime.GOMAXPROCS(0) workers, aborts on the first codec failure
// instead of keeping raw bytes, and logs nothing.
type ExtractOptions struct {
	// Workers bounds the number of files extracted concurrently. Zero
	// means runtime.GOMAXPROCS(0).
	Workers int

	// KeepRaw, when true, writes a chunk's raw on-disk bytes to the
	// output if its codec fails or is unsupported, instead of aborting
	// the whole extraction.
	KeepRaw bool

	// Log receives warnings (e.g. a keep-raw fallback firing). Defaults
	// to a discarding logger.
	Log *log.Logger

	// Progress, if non-nil, receives the Start/Inc/Finish lifecycle.
	// Must tolerate concurrent Inc calls.
	Progress ProgressFunc
}

func (o ExtractOptions) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o ExtractOptions) logger() *log.Logger {
	if o.Log != nil {
		return o.Log
	}
	return log.New(io.Discard, "", 0)
}

func (o ExtractOptions) progress() ProgressFunc {
	if o.Progress != nil {
		return o.Progress
	}
	return noopProgress
}

// Extract reconciles m's chunk geometry against src's actual volume sizes
// and writes every file m describes into sink, using a bounded pool of
// worker goroutines that each extract one whole file at a time. Workers
// never share read handles: each owns a lazily populated cache of open
// volume handles for its own lifetime.
func Extract(m *Metadata, src UnpackSource, sink UnpackSink, opts ExtractOptions) error {
	if err := Reconcile(m, buildVolumeLength(m, src)); err != nil {
		return err
	}

	if err := createDirectories(m, sink); err != nil {
		return err
	}

	progress := opts.progress()
	progress(ProgressEvent{Kind: ProgressStart, Count: uint64(len(m.Files))})

	eg, ctx := errgroup.WithContext(context.Background())

	var cursor int64 = -1
	workers := opts.workers()
	if workers > len(m.Files) {
		workers = len(m.Files)
	}
	if workers < 1 {
		workers = 1
	}

	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			cache := newVolumeCache(src, m.SplitVolumes)
			defer cache.close()

			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				i := atomic.AddInt64(&cursor, 1)
				if i >= int64(len(m.Files)) {
					return nil
				}

				if err := extractFile(m, m.Files[i], cache, sink, opts); err != nil {
					return err
				}
				progress(ProgressEvent{Kind: ProgressInc, Count: 1})
			}
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	progress(ProgressEvent{Kind: ProgressFinish})
	return nil
}

func buildVolumeLength(m *Metadata, src UnpackSource) VolumeLengthFunc {
	return func(fileIndex uint16) (int64, error) {
		if fileIndex == 0 {
			return src.MainLength()
		}
		idx := int(fileIndex) - 1
		if idx >= len(m.SplitVolumes) {
			return 0, &FormatError{Reason: "chunk references a split volume index beyond the split list"}
		}
		name := m.SplitVolumes[idx]
		length, err := src.SplitLength(name)
		if err != nil {
			return 0, &SplitFileMissingError{Name: name, Err: err}
		}
		return length, nil
	}
}

func createDirectories(m *Metadata, sink UnpackSink) error {
	for _, dir := range m.Directories[1:] {
		rel, err := SanitizeRelPath(dir)
		if err != nil {
			return err
		}
		if err := sink.CreateDir(rel); err != nil {
			return &VolumeError{Path: rel, Err: err}
		}
	}
	return nil
}

// volumeCache is a single worker's lazily populated set of open volume
// read handles, never shared with any other worker.
type volumeCache struct {
	src     UnpackSource
	splits  []string
	handles map[uint16]ReadSeeker
}

func newVolumeCache(src UnpackSource, splits []string) *volumeCache {
	return &volumeCache{src: src, splits: splits, handles: make(map[uint16]ReadSeeker)}
}

func (c *volumeCache) get(fileIndex uint16) (ReadSeeker, error) {
	if h, ok := c.handles[fileIndex]; ok {
		return h, nil
	}

	var h ReadSeeker
	var err error
	if fileIndex == 0 {
		h, err = c.src.OpenMain()
	} else {
		idx := int(fileIndex) - 1
		if idx >= len(c.splits) {
			return nil, &FormatError{Reason: "chunk references a split volume index beyond the split list"}
		}
		name := c.splits[idx]
		h, err = c.src.OpenSplit(name)
		if err != nil {
			return nil, &SplitFileMissingError{Name: name, Err: err}
		}
	}
	if err != nil {
		return nil, err
	}
	c.handles[fileIndex] = h
	return h, nil
}

func (c *volumeCache) close() {
	for _, h := range c.handles {
		if closer, ok := h.(io.Closer); ok {
			_ = closer.Close()
		}
	}
}

func extractFile(m *Metadata, f FileEntry, cache *volumeCache, sink UnpackSink, opts ExtractOptions) error {
	dir := m.Directories[f.DirIndex]
	rawPath := path.Join(dir, f.Name)
	relPath, err := SanitizeRelPath(rawPath)
	if err != nil {
		return err
	}

	out, err := sink.CreateFile(relPath)
	if err != nil {
		return &VolumeError{Path: relPath, Err: err}
	}
	defer out.Close()

	for _, id := range f.ChunkIDs {
		if int(id) >= len(m.Chunks) {
			return &ChunkDefinitionMissingError{ID: id}
		}
		chunk := m.Chunks[id]

		handle, err := cache.get(chunk.FileIndex)
		if err != nil {
			return err
		}

		if err := extractChunk(handle, chunk, out, opts); err != nil {
			return err
		}
	}

	return nil
}

func extractChunk(handle ReadSeeker, chunk ChunkRecord, out io.Writer, opts ExtractOptions) error {
	if _, err := handle.Seek(int64(chunk.Offset), io.SeekStart); err != nil {
		return &VolumeError{Path: "chunk seek", Err: err}
	}
	bounded := io.LimitReader(handle, int64(chunk.RealCompressedLength))

	err := Decompress(out, bounded, chunk.Flags, chunk.DecompressedLength)
	if err == nil {
		return nil
	}

	if !opts.KeepRaw {
		return err
	}

	opts.logger().Printf("keep-raw: codec failed for chunk at offset %d (%v); writing raw bytes", chunk.Offset, err)

	if _, seekErr := handle.Seek(int64(chunk.Offset), io.SeekStart); seekErr != nil {
		return &VolumeError{Path: "chunk rewind", Err: seekErr}
	}
	if _, copyErr := io.CopyN(out, handle, int64(chunk.RealCompressedLength)); copyErr != nil {
		return &VolumeError{Path: "keep-raw copy", Err: copyErr}
	}
	return nil
}
