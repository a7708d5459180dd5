package dzarchive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// PackOptions configures Pack.
type PackOptions struct {
	// Workers bounds the number of chunks compressed concurrently. Zero
	// means runtime.GOMAXPROCS(0).
	Workers int

	Log      *log.Logger
	Progress ProgressFunc
}

func (o PackOptions) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o PackOptions) progress() ProgressFunc {
	if o.Progress != nil {
		return o.Progress
	}
	return noopProgress
}

// chunkJob is the byte range a producer must read from source and
// compress; position is the chunk's id, which also fixes its slot in
// m.Chunks and its required write order.
type chunkJob struct {
	id     uint16
	file   string
	start  int64
	length int64
}

// chunkResult is what a producer hands the consumer: the compressed
// bytes for one chunk, keyed by id so the consumer can enforce ascending
// write order regardless of completion order.
type chunkResult struct {
	id             uint16
	data           []byte
	compressedLen  uint32
}

// Pack writes m's file contents, read from source, as a DZ archive
// through sink: it predicts the header's exact byte size, reserves a
// zeroed chunk-table slot, streams every chunk through a worker pool in
// arbitrary completion order, and has a single consumer write each
// chunk's bytes in strictly ascending id order before patching the
// now-finalized chunk table back onto volume 0.
//
// m.Chunks' Offset and CompressedLength fields are overwritten in place
// as chunks are written; callers should treat m as owned by Pack for the
// duration of the call.
func Pack(m *Metadata, source PackSource, sink PackSink, opts PackOptions) error {
	jobs, err := buildChunkJobs(m, source)
	if err != nil {
		return err
	}

	mainWriter, err := sink.CreateMain()
	if err != nil {
		return &VolumeError{Path: "main volume", Err: err}
	}
	if err := WriteHeader(mainWriter, m); err != nil {
		return err
	}

	volumeWriters := make(map[uint16]WriteSeeker, m.NumArchiveFiles())
	volumeWriters[0] = mainWriter
	volumeOffsets := make(map[uint16]int64, m.NumArchiveFiles())
	volumeOffsets[0] = int64(HeaderSize(m))

	for idx := range m.SplitVolumes {
		w, err := sink.CreateSplit(idx)
		if err != nil {
			return &VolumeError{Path: m.SplitVolumes[idx], Err: err}
		}
		volumeWriters[uint16(idx+1)] = w
		volumeOffsets[uint16(idx+1)] = 0
	}

	progress := opts.progress()
	progress(ProgressEvent{Kind: ProgressStart, Count: uint64(len(jobs))})

	results := make(chan chunkResult, opts.workers()*4)
	eg, ctx := errgroup.WithContext(context.Background())

	eg.Go(func() error {
		defer close(results)
		return runProducers(ctx, opts.workers(), jobs, source, m, results)
	})

	eg.Go(func() error {
		return consumeChunks(m, volumeWriters, volumeOffsets, results, len(jobs), progress)
	})

	if err := eg.Wait(); err != nil {
		return err
	}

	if err := PatchChunkTable(mainWriter, m); err != nil {
		return err
	}

	for _, w := range volumeWriters {
		if flusher, ok := w.(interface{ Flush() error }); ok {
			if err := flusher.Flush(); err != nil {
				return &VolumeError{Path: "volume flush", Err: err}
			}
		}
		if closer, ok := w.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				return &VolumeError{Path: "volume close", Err: err}
			}
		}
	}

	progress(ProgressEvent{Kind: ProgressFinish})
	return nil
}

func buildChunkJobs(m *Metadata, source PackSource) ([]chunkJob, error) {
	jobs := make([]chunkJob, len(m.Chunks))
	assigned := make([]bool, len(m.Chunks))

	for _, f := range m.Files {
		dir := m.Directories[f.DirIndex]
		var relPath string
		if dir == "." {
			relPath = f.Name
		} else {
			relPath = dir + "/" + f.Name
		}
		if !source.Exists(relPath) {
			return nil, &VolumeError{Path: relPath, Err: fmt.Errorf("source file does not exist")}
		}

		var cursor int64
		for _, id := range f.ChunkIDs {
			if int(id) >= len(m.Chunks) {
				return nil, &ChunkDefinitionMissingError{ID: id}
			}
			c := m.Chunks[id]
			jobs[id] = chunkJob{id: id, file: relPath, start: cursor, length: int64(c.DecompressedLength)}
			assigned[id] = true
			cursor += int64(c.DecompressedLength)
		}
	}

	for i, ok := range assigned {
		if !ok {
			return nil, &ChunkDefinitionMissingError{ID: uint16(i)}
		}
	}

	return jobs, nil
}

func runProducers(ctx context.Context, workers int, jobs []chunkJob, source PackSource, m *Metadata, results chan<- chunkResult) error {
	if workers < 1 {
		workers = 1
	}

	inner, innerCtx := errgroup.WithContext(ctx)
	jobCh := make(chan chunkJob)

	inner.Go(func() error {
		defer close(jobCh)
		for _, j := range jobs {
			select {
			case jobCh <- j:
			case <-innerCtx.Done():
				return innerCtx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		inner.Go(func() error {
			for {
				select {
				case j, ok := <-jobCh:
					if !ok {
						return nil
					}
					res, err := compressJob(j, source, m)
					if err != nil {
						return err
					}
					select {
					case results <- res:
					case <-innerCtx.Done():
						return innerCtx.Err()
					}
				case <-innerCtx.Done():
					return innerCtx.Err()
				}
			}
		})
	}

	return inner.Wait()
}

func compressJob(j chunkJob, source PackSource, m *Metadata) (chunkResult, error) {
	f, err := source.OpenFile(j.file)
	if err != nil {
		return chunkResult{}, &VolumeError{Path: j.file, Err: err}
	}
	if closer, ok := f.(io.Closer); ok {
		defer closer.Close()
	}

	if _, err := f.Seek(j.start, io.SeekStart); err != nil {
		return chunkResult{}, &VolumeError{Path: j.file, Err: err}
	}

	chunk := m.Chunks[j.id]
	var buf bytes.Buffer
	n, err := Compress(&buf, io.LimitReader(f, j.length), chunk.Flags)
	if err != nil {
		return chunkResult{}, fmt.Errorf("compress chunk %d: %w", j.id, err)
	}

	return chunkResult{id: j.id, data: buf.Bytes(), compressedLen: n}, nil
}

func consumeChunks(m *Metadata, volumes map[uint16]WriteSeeker, offsets map[uint16]int64, results <-chan chunkResult, total int, progress ProgressFunc) error {
	pending := make(map[uint16]chunkResult)
	next := uint16(0)
	written := 0

	flush := func() error {
		for {
			res, ok := pending[next]
			if !ok {
				return nil
			}
			delete(pending, next)

			chunk := &m.Chunks[next]
			w, ok := volumes[chunk.FileIndex]
			if !ok {
				return &InternalError{Reason: fmt.Sprintf("chunk %d targets unknown volume %d", next, chunk.FileIndex)}
			}

			chunk.Offset = uint32(offsets[chunk.FileIndex])
			if _, err := w.Write(res.data); err != nil {
				return &VolumeError{Path: "chunk write", Err: err}
			}
			chunk.CompressedLength = res.compressedLen
			offsets[chunk.FileIndex] += int64(len(res.data))

			written++
			progress(ProgressEvent{Kind: ProgressInc, Count: 1})
			next++
		}
	}

	for res := range results {
		pending[res.id] = res
		if err := flush(); err != nil {
			return err
		}
	}

	if written != total {
		return &InternalError{Reason: "compression disconnected before every chunk was written"}
	}
	return nil
}
