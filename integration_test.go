package dzarchive

import (
	"bytes"
	"testing"
)

func TestPackThenExtractSingleFileCopy(t *testing.T) {
	m := &Metadata{
		Directories: []string{"."},
		Files: []FileEntry{
			{Name: "hello.txt", DirIndex: 0, ChunkIDs: []uint16{0}},
		},
		Chunks: []ChunkRecord{
			{Flags: FlagCopy, DecompressedLength: 5, FileIndex: 0},
		},
	}

	source := &memPackSource{files: map[string][]byte{"hello.txt": []byte("world")}}
	sink := newMemPackSink()

	if err := Pack(m, source, sink, PackOptions{}); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	if got, want := m.Chunks[0].Offset, HeaderSize(m); got != want {
		t.Fatalf("chunk offset %d != predicted header size %d", got, want)
	}
	if m.Chunks[0].CompressedLength != 5 {
		t.Fatalf("compressed length = %d, want 5", m.Chunks[0].CompressedLength)
	}

	loaded, err := LoadMetadata(bytes.NewReader(sink.main.data))
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if loaded.Chunks[0].Flags != FlagCopy {
		t.Fatalf("unexpected flags after round trip: %v", loaded.Chunks[0].Flags)
	}

	unpackSrc := &memUnpackSource{main: sink.main.data}
	unpackSink := newMemUnpackSink()
	if err := Extract(loaded, unpackSrc, unpackSink, ExtractOptions{}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, ok := unpackSink.files["hello.txt"]
	if !ok {
		t.Fatalf("hello.txt not extracted; have %v", unpackSink.files)
	}
	if string(got) != "world" {
		t.Fatalf("got %q, want %q", got, "world")
	}
}

func TestPackThenExtractTwoFilesZlibOneDirectory(t *testing.T) {
	m := &Metadata{
		Directories: []string{".", "a"},
		Files: []FileEntry{
			{Name: "x", DirIndex: 1, ChunkIDs: []uint16{0}},
			{Name: "y", DirIndex: 1, ChunkIDs: []uint16{1}},
		},
		Chunks: []ChunkRecord{
			{Flags: FlagZlib, DecompressedLength: 10, FileIndex: 0},
			{Flags: FlagZlib, DecompressedLength: 10, FileIndex: 0},
		},
	}

	xBytes := bytes.Repeat([]byte{0x00}, 10)
	yBytes := bytes.Repeat([]byte{0xFF}, 10)

	source := &memPackSource{files: map[string][]byte{
		"a/x": xBytes,
		"a/y": yBytes,
	}}
	sink := newMemPackSink()

	if err := Pack(m, source, sink, PackOptions{Workers: 2}); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	if m.Chunks[0].Offset >= m.Chunks[1].Offset {
		t.Fatalf("expected ascending offsets, got %d then %d", m.Chunks[0].Offset, m.Chunks[1].Offset)
	}

	loaded, err := LoadMetadata(bytes.NewReader(sink.main.data))
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if loaded.Directories[1] != "a" {
		t.Fatalf("directory table: got %v", loaded.Directories)
	}
	for _, f := range loaded.Files {
		if f.DirIndex != 1 {
			t.Fatalf("file %s: dir_idx = %d, want 1", f.Name, f.DirIndex)
		}
	}

	unpackSrc := &memUnpackSource{main: sink.main.data}
	unpackSink := newMemUnpackSink()
	if err := Extract(loaded, unpackSrc, unpackSink, ExtractOptions{Workers: 2}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if !bytes.Equal(unpackSink.files["a/x"], xBytes) {
		t.Fatalf("a/x mismatch")
	}
	if !bytes.Equal(unpackSink.files["a/y"], yBytes) {
		t.Fatalf("a/y mismatch")
	}
}

func TestExtractSplitVolumeMissing(t *testing.T) {
	m := &Metadata{
		Directories:  []string{"."},
		Files:        []FileEntry{{Name: "big.bin", DirIndex: 0, ChunkIDs: []uint16{0, 1}}},
		SplitVolumes: []string{"big.dz.001"},
		Chunks: []ChunkRecord{
			{Offset: 0, CompressedLength: 4, DecompressedLength: 4, Flags: FlagCopy, FileIndex: 0},
			{Offset: 0, CompressedLength: 4, DecompressedLength: 4, Flags: FlagCopy, FileIndex: 1},
		},
	}

	src := &memUnpackSource{main: []byte("abcd"), splits: map[string][]byte{}} // split missing
	sink := newMemUnpackSink()

	err := Extract(m, src, sink, ExtractOptions{})
	if err == nil {
		t.Fatal("expected error for missing split volume")
	}
	var smErr *SplitFileMissingError
	if !asSplitFileMissing(err, &smErr) {
		t.Fatalf("expected *SplitFileMissingError, got %v (%T)", err, err)
	}
}

func asSplitFileMissing(err error, target **SplitFileMissingError) bool {
	for err != nil {
		if sm, ok := err.(*SplitFileMissingError); ok {
			*target = sm
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func TestExtractPathTraversalRefused(t *testing.T) {
	m := &Metadata{
		Directories: []string{"."},
		Files:       []FileEntry{{Name: "../etc/passwd", DirIndex: 0, ChunkIDs: []uint16{0}}},
		Chunks: []ChunkRecord{
			{Offset: 0, CompressedLength: 4, DecompressedLength: 4, Flags: FlagCopy, FileIndex: 0},
		},
	}

	src := &memUnpackSource{main: []byte("evil")}
	sink := newMemUnpackSink()

	err := Extract(m, src, sink, ExtractOptions{})
	if err == nil {
		t.Fatal("expected security error")
	}
	if _, ok := err.(*SecurityError); !ok {
		t.Fatalf("expected *SecurityError, got %T: %v", err, err)
	}
	if len(sink.files) != 0 {
		t.Fatalf("expected no files written, got %v", sink.files)
	}
}

func TestExtractDZRangeKeepRaw(t *testing.T) {
	raw := []byte("raw-range-bytes!")
	m := &Metadata{
		Directories: []string{"."},
		Files:       []FileEntry{{Name: "r.bin", DirIndex: 0, ChunkIDs: []uint16{0}}},
		Chunks: []ChunkRecord{
			{Offset: 0, CompressedLength: uint32(len(raw)), DecompressedLength: uint32(len(raw)), Flags: FlagDZRange, FileIndex: 0},
		},
		Range: &RangeSettings{WindowSize: 16},
	}

	t.Run("keep_raw true", func(t *testing.T) {
		src := &memUnpackSource{main: raw}
		sink := newMemUnpackSink()
		if err := Extract(m, src, sink, ExtractOptions{KeepRaw: true}); err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if !bytes.Equal(sink.files["r.bin"], raw) {
			t.Fatalf("got %q, want %q", sink.files["r.bin"], raw)
		}
	})

	t.Run("keep_raw false", func(t *testing.T) {
		src := &memUnpackSource{main: raw}
		sink := newMemUnpackSink()
		err := Extract(m, src, sink, ExtractOptions{KeepRaw: false})
		if err == nil {
			t.Fatal("expected UnsupportedCompression error")
		}
	})
}
