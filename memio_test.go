package dzarchive

import (
	"bytes"
	"fmt"
	"io"
)

// seekBuffer is a minimal in-memory implementation of WriteSeeker/
// ReadSeeker used by the in-process fakes below, backed by a growable
// byte slice rather than a real file.
type seekBuffer struct {
	data []byte
	pos  int64
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Read(p []byte) (int, error) {
	if b.pos >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += int64(n)
	return n, nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = b.pos + offset
	case io.SeekEnd:
		target = int64(len(b.data)) + offset
	}
	if target < 0 {
		return 0, fmt.Errorf("seek before start")
	}
	b.pos = target
	return target, nil
}

// memUnpackSource is an UnpackSource backed by in-memory byte slices.
type memUnpackSource struct {
	main   []byte
	splits map[string][]byte
}

func (s *memUnpackSource) OpenMain() (ReadSeeker, error) {
	return bytes.NewReader(s.main), nil
}

func (s *memUnpackSource) OpenSplit(name string) (ReadSeeker, error) {
	data, ok := s.splits[name]
	if !ok {
		return nil, fmt.Errorf("no such split: %s", name)
	}
	return bytes.NewReader(data), nil
}

func (s *memUnpackSource) SplitLength(name string) (int64, error) {
	data, ok := s.splits[name]
	if !ok {
		return 0, fmt.Errorf("no such split: %s", name)
	}
	return int64(len(data)), nil
}

func (s *memUnpackSource) MainLength() (int64, error) {
	return int64(len(s.main)), nil
}

// memUnpackSink is an UnpackSink collecting extracted output in memory.
type memUnpackSink struct {
	dirs  map[string]bool
	files map[string][]byte
}

func newMemUnpackSink() *memUnpackSink {
	return &memUnpackSink{dirs: make(map[string]bool), files: make(map[string][]byte)}
}

func (s *memUnpackSink) CreateDir(relPath string) error {
	s.dirs[relPath] = true
	return nil
}

type memFileWriter struct {
	sink *memUnpackSink
	path string
	buf  bytes.Buffer
}

func (w *memFileWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *memFileWriter) Close() error {
	w.sink.files[w.path] = w.buf.Bytes()
	return nil
}

func (s *memUnpackSink) CreateFile(relPath string) (io.WriteCloser, error) {
	return &memFileWriter{sink: s, path: relPath}, nil
}

// memPackSource is a PackSource backed by in-memory file contents.
type memPackSource struct {
	files map[string][]byte
}

func (s *memPackSource) Exists(relPath string) bool {
	_, ok := s.files[relPath]
	return ok
}

func (s *memPackSource) OpenFile(relPath string) (ReadSeeker, error) {
	data, ok := s.files[relPath]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", relPath)
	}
	return bytes.NewReader(data), nil
}

// memPackSink is a PackSink collecting written volumes in memory.
type memPackSink struct {
	main   *seekBuffer
	splits []*seekBuffer
}

func newMemPackSink() *memPackSink {
	return &memPackSink{main: &seekBuffer{}}
}

func (s *memPackSink) CreateMain() (WriteSeeker, error) {
	return s.main, nil
}

func (s *memPackSink) CreateSplit(idx int) (WriteSeeker, error) {
	for len(s.splits) <= idx {
		s.splits = append(s.splits, &seekBuffer{})
	}
	return s.splits[idx], nil
}
