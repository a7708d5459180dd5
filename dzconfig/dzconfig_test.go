package dzconfig

import (
	"bytes"
	"testing"

	"github.com/mistretro/dzarchive"
)

func TestWriteReadRoundTrip(t *testing.T) {
	cfg := &dzarchive.Config{
		Version:      0,
		SplitVolumes: []string{"archive.dz.001"},
		Files: []dzarchive.FileConfigEntry{
			{Path: "a/x.bin", Directory: "a", Filename: "x.bin", FirstID: 0, ChunkIDs: []uint16{0}},
			{Path: "y.bin", Directory: ".", Filename: "y.bin", FirstID: 1, ChunkIDs: []uint16{1, 2}},
		},
		Chunks: []dzarchive.ChunkConfigEntry{
			{ID: 0, Offset: 100, CompressedLength: 50, DecompressedLength: 80, FlagName: "ZLIB", VolumeIndex: 0},
			{ID: 1, Offset: 0, CompressedLength: 10, DecompressedLength: 10, FlagName: "COPY", VolumeIndex: 1},
			{ID: 2, Offset: 10, CompressedLength: 5, DecompressedLength: 5, FlagName: "COPY", VolumeIndex: 1},
		},
	}

	var buf bytes.Buffer
	if err := Write(&buf, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if len(got.Files) != 2 || len(got.Chunks) != 3 {
		t.Fatalf("unexpected shape: %+v", got)
	}
	if got.Files[0].Directory != "a" || got.Files[0].Filename != "x.bin" {
		t.Fatalf("file 0: %+v", got.Files[0])
	}
	if len(got.Files[1].ChunkIDs) != 2 || got.Files[1].ChunkIDs[1] != 2 {
		t.Fatalf("file 1 chunk ids: %v", got.Files[1].ChunkIDs)
	}
	if got.Chunks[0].FlagName != "ZLIB" || got.Chunks[0].DecompressedLength != 80 {
		t.Fatalf("chunk 0: %+v", got.Chunks[0])
	}
	if len(got.SplitVolumes) != 1 || got.SplitVolumes[0] != "archive.dz.001" {
		t.Fatalf("split volumes: %v", got.SplitVolumes)
	}
}

func TestWriteReadRoundTripRangeSettings(t *testing.T) {
	cfg := &dzarchive.Config{
		Range: &dzarchive.RangeSettings{
			WindowSize:         12,
			FlagByte:           1,
			OffsetTableSize:    2,
			OffsetTables:       3,
			OffsetContexts:     4,
			RefLengthTableSize: 5,
			RefLengthTables:    6,
			RefOffsetTableSize: 7,
			RefOffsetTables:    8,
			BigMinMatch:        9,
		},
	}

	var buf bytes.Buffer
	if err := Write(&buf, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.Range == nil {
		t.Fatal("range settings missing after round trip")
	}
	want := *cfg.Range
	if *got.Range != want {
		t.Fatalf("range settings: got %+v, want %+v", *got.Range, want)
	}
}

func TestReadRejectsMalformedLine(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not a key value line")))
	if err == nil {
		t.Fatal("expected error")
	}
}
