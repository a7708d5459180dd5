package dzarchive

// FileEntry describes one logical file stored in an archive: its basename,
// the directory it lives in (an index into Metadata.Directories), and the
// ordered chunk ids that reconstruct its bytes when decompressed and
// concatenated.
type FileEntry struct {
	Name      string
	DirIndex  uint16
	ChunkIDs  []uint16
}

// FirstChunkID returns the first chunk id for e, or false if the file has
// no chunks (a zero-byte file whose map entry is a bare terminator). It
// supplies FileConfigEntry.FirstID; the full ordered list lives in
// ChunkIDs because every other
// component (extraction, reconciliation, round-trip verification) needs
// the complete sequence, not just its head.
func (e FileEntry) FirstChunkID() (uint16, bool) {
	if len(e.ChunkIDs) == 0 {
		return 0, false
	}
	return e.ChunkIDs[0], true
}

// ChunkRecord is a chunk table entry as read from or destined for disk.
// CompressedLength is the raw, possibly-stale header field; reconciliation
// derives RealCompressedLength from it (see Reconcile).
type ChunkRecord struct {
	Offset             uint32
	CompressedLength   uint32
	DecompressedLength uint32
	Flags              ChunkFlags
	FileIndex          uint16 // 0 = main volume, k>0 = split k-1

	// RealCompressedLength is populated by Reconcile; zero-value metadata
	// (as produced fresh by Pack, before any volume round-trip) leaves it
	// unset until reconciliation runs.
	RealCompressedLength uint32
}

// RangeSettings is the ten-byte block describing a DZ_RANGE coder's
// parameters. It is present in an archive iff any chunk carries FlagDZRange.
type RangeSettings struct {
	WindowSize         uint8
	FlagByte           uint8
	OffsetTableSize    uint8
	OffsetTables       uint8
	OffsetContexts     uint8
	RefLengthTableSize uint8
	RefLengthTables    uint8
	RefOffsetTableSize uint8
	RefOffsetTables    uint8
	BigMinMatch        uint8
}

// Metadata is the in-memory representation of an archive's structure:
// everything the format codec parses. It is not immutable: Reconcile (and
// therefore Extract) writes RealCompressedLength into Chunks in place, and
// Pack overwrites each chunk's Offset and CompressedLength.
type Metadata struct {
	Version uint16 // archive format version byte, widened for header use

	// Directories is indexed by dir_idx; index 0 is always "." (the
	// implicit root), prepended by the loader so callers can index
	// directly without special-casing it.
	Directories []string

	Files  []FileEntry
	Chunks []ChunkRecord

	// SplitVolumes holds the filenames of volumes 1..N (the main volume,
	// index 0, is not named here — callers already know its path).
	SplitVolumes []string

	Range *RangeSettings // nil unless any chunk carries FlagDZRange
}

// NumArchiveFiles returns the number of volumes the archive spans: the
// main volume plus every named split.
func (m *Metadata) NumArchiveFiles() int {
	return 1 + len(m.SplitVolumes)
}

// HasRangeCoding reports whether any chunk in m carries FlagDZRange,
// equivalently whether m.Range must be non-nil and serialized.
func (m *Metadata) HasRangeCoding() bool {
	for _, c := range m.Chunks {
		if c.Flags.Has(FlagDZRange) {
			return true
		}
	}
	return false
}
