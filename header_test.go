package dzarchive

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMetadataSingleFileCopy(t *testing.T) {
	m := &Metadata{
		Directories: []string{"."},
		Files: []FileEntry{
			{Name: "hello.txt", DirIndex: 0, ChunkIDs: []uint16{0}},
		},
		Chunks: []ChunkRecord{
			{Offset: 0, CompressedLength: 5, DecompressedLength: 5, Flags: FlagCopy, FileIndex: 0},
		},
	}

	var buf bytes.Buffer
	if err := WriteHeader(&buf, m); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	// Patch the chunk table in place (WriteHeader zeroes it) so LoadMetadata
	// round-trips something meaningful.
	sink := &seekBuffer{data: append([]byte(nil), buf.Bytes()...)}
	if err := PatchChunkTable(sink, m); err != nil {
		t.Fatalf("PatchChunkTable: %v", err)
	}

	loaded, err := LoadMetadata(bytes.NewReader(sink.data))
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}

	if diff := cmp.Diff(m.Directories, loaded.Directories); diff != "" {
		t.Errorf("directories mismatch (-want +got):\n%s", diff)
	}
	if len(loaded.Files) != 1 || loaded.Files[0].Name != "hello.txt" {
		t.Fatalf("unexpected files: %+v", loaded.Files)
	}
	if diff := cmp.Diff(m.Chunks, loaded.Chunks); diff != "" {
		t.Errorf("chunks mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMetadataInvalidMagic(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	_, err := LoadMetadata(bytes.NewReader(data))
	if !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestLoadMetadataZeroDirsRejected(t *testing.T) {
	m := &Metadata{Directories: []string{"."}}
	var buf bytes.Buffer
	if err := WriteHeader(&buf, m); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	raw := buf.Bytes()
	raw[6] = 0 // num_dirs low byte -> 0

	_, err := LoadMetadata(bytes.NewReader(raw))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FormatError, got %v", err)
	}
}

func TestLoadMetadataUnsupportedVersion(t *testing.T) {
	m := &Metadata{Directories: []string{"."}}
	var buf bytes.Buffer
	if err := WriteHeader(&buf, m); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	raw := buf.Bytes()
	raw[8] = 1 // version byte

	_, err := LoadMetadata(bytes.NewReader(raw))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestHeaderSizeMatchesWrittenLength(t *testing.T) {
	cases := []*Metadata{
		{Directories: []string{"."}},
		{
			Directories: []string{".", "a"},
			Files: []FileEntry{
				{Name: "x", DirIndex: 1, ChunkIDs: []uint16{0}},
				{Name: "y", DirIndex: 1, ChunkIDs: []uint16{1}},
			},
			Chunks: []ChunkRecord{
				{Flags: FlagZlib, DecompressedLength: 10},
				{Flags: FlagZlib, DecompressedLength: 10},
			},
		},
		{
			Directories:  []string{"."},
			Files:        []FileEntry{{Name: "big.bin", DirIndex: 0, ChunkIDs: []uint16{0, 1}}},
			Chunks:       []ChunkRecord{{FileIndex: 0}, {FileIndex: 1}},
			SplitVolumes: []string{"big.dz.001"},
		},
		{
			Directories: []string{"."},
			Files:       []FileEntry{{Name: "r.bin", DirIndex: 0, ChunkIDs: []uint16{0}}},
			Chunks:      []ChunkRecord{{Flags: FlagDZRange}},
			Range:       &RangeSettings{WindowSize: 12},
		},
	}

	for i, m := range cases {
		var buf bytes.Buffer
		if err := WriteHeader(&buf, m); err != nil {
			t.Fatalf("case %d: WriteHeader: %v", i, err)
		}
		if got, want := uint32(buf.Len()), HeaderSize(m); got != want {
			t.Errorf("case %d: written header length %d != HeaderSize %d", i, got, want)
		}
	}
}
