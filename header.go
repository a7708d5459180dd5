package dzarchive

import (
	"bufio"
	"io"

	"github.com/mistretro/dzarchive/internal/binary"
)

// magic is the archive's fixed header magic number, 'DTRZ' read as a
// little-endian u32.
const magic uint32 = 0x5A525444

const chunkTerminator uint16 = 0xFFFF

// LoadMetadata reads the full sequential block structure described in
// the format's data model from r: header, string tables, file-to-chunk
// map, chunk table, split list, and the optional range-settings block.
// The directory list returned in Metadata.Directories is prepended with
// "." at index 0, matching the implicit root every dir_idx indexes into.
func LoadMetadata(r io.Reader) (*Metadata, error) {
	br := bufio.NewReader(r)

	gotMagic, err := binary.ReadUint32LE(br)
	if err != nil {
		return nil, &VolumeError{Path: "header", Err: err}
	}
	if gotMagic != magic {
		return nil, ErrInvalidMagic
	}

	numFiles, err := binary.ReadUint16LE(br)
	if err != nil {
		return nil, &VolumeError{Path: "header", Err: err}
	}
	numDirs, err := binary.ReadUint16LE(br)
	if err != nil {
		return nil, &VolumeError{Path: "header", Err: err}
	}
	if numDirs == 0 {
		return nil, &FormatError{Reason: "num_dirs is zero; root directory is implicit and must be counted"}
	}

	versionByte, err := binary.ReadUint8(br)
	if err != nil {
		return nil, &VolumeError{Path: "header", Err: err}
	}
	if versionByte != 0 {
		return nil, ErrUnsupportedVersion
	}

	filenames := make([]string, numFiles)
	for i := range filenames {
		s, err := binary.ReadCString(br)
		if err != nil {
			return nil, &VolumeError{Path: "filename table", Err: err}
		}
		filenames[i] = s
	}

	dirs := make([]string, numDirs)
	dirs[0] = "."
	for i := 1; i < int(numDirs); i++ {
		s, err := binary.ReadCString(br)
		if err != nil {
			return nil, &VolumeError{Path: "directory table", Err: err}
		}
		dirs[i] = nativizeArchiveSeparator(s)
	}

	files := make([]FileEntry, numFiles)
	for i := range files {
		dirIdx, err := binary.ReadUint16LE(br)
		if err != nil {
			return nil, &VolumeError{Path: "file map", Err: err}
		}
		if dirIdx >= numDirs {
			return nil, &FormatError{Reason: "file map entry references out-of-range directory index"}
		}
		chunkIDs, err := readChunkIDList(br)
		if err != nil {
			return nil, &VolumeError{Path: "file map", Err: err}
		}
		files[i] = FileEntry{Name: filenames[i], DirIndex: dirIdx, ChunkIDs: chunkIDs}
	}

	numArchiveFiles, err := binary.ReadUint16LE(br)
	if err != nil {
		return nil, &VolumeError{Path: "chunk table header", Err: err}
	}
	numChunks, err := binary.ReadUint16LE(br)
	if err != nil {
		return nil, &VolumeError{Path: "chunk table header", Err: err}
	}

	chunks := make([]ChunkRecord, numChunks)
	for i := range chunks {
		c, err := readChunkRecord(br)
		if err != nil {
			return nil, &VolumeError{Path: "chunk table", Err: err}
		}
		chunks[i] = c
	}

	var splits []string
	if numArchiveFiles > 1 {
		splits = make([]string, numArchiveFiles-1)
		for i := range splits {
			s, err := binary.ReadCString(br)
			if err != nil {
				return nil, &VolumeError{Path: "split list", Err: err}
			}
			splits[i] = s
		}
	}

	m := &Metadata{
		Version:      uint16(versionByte),
		Directories:  dirs,
		Files:        files,
		Chunks:       chunks,
		SplitVolumes: splits,
	}

	if m.HasRangeCoding() {
		rs, err := readRangeSettings(br)
		if err != nil {
			return nil, &VolumeError{Path: "range settings", Err: err}
		}
		m.Range = rs
	}

	return m, nil
}

func readChunkIDList(br *bufio.Reader) ([]uint16, error) {
	var ids []uint16
	for {
		id, err := binary.ReadUint16LE(br)
		if err != nil {
			return nil, err
		}
		if id == chunkTerminator {
			return ids, nil
		}
		ids = append(ids, id)
	}
}

func writeChunkIDList(w io.Writer, ids []uint16) error {
	for _, id := range ids {
		if err := binary.WriteUint16LE(w, id); err != nil {
			return err
		}
	}
	return binary.WriteUint16LE(w, chunkTerminator)
}

func readChunkRecord(br *bufio.Reader) (ChunkRecord, error) {
	var c ChunkRecord
	var err error
	if c.Offset, err = binary.ReadUint32LE(br); err != nil {
		return c, err
	}
	if c.CompressedLength, err = binary.ReadUint32LE(br); err != nil {
		return c, err
	}
	if c.DecompressedLength, err = binary.ReadUint32LE(br); err != nil {
		return c, err
	}
	flags, err := binary.ReadUint16LE(br)
	if err != nil {
		return c, err
	}
	c.Flags = ChunkFlags(flags)
	if c.FileIndex, err = binary.ReadUint16LE(br); err != nil {
		return c, err
	}
	return c, nil
}

func writeChunkRecord(w io.Writer, c ChunkRecord) error {
	if err := binary.WriteUint32LE(w, c.Offset); err != nil {
		return err
	}
	if err := binary.WriteUint32LE(w, c.CompressedLength); err != nil {
		return err
	}
	if err := binary.WriteUint32LE(w, c.DecompressedLength); err != nil {
		return err
	}
	if err := binary.WriteUint16LE(w, uint16(c.Flags)); err != nil {
		return err
	}
	return binary.WriteUint16LE(w, c.FileIndex)
}

func readRangeSettings(br *bufio.Reader) (*RangeSettings, error) {
	var rs RangeSettings
	var err error
	if rs.WindowSize, err = binary.ReadUint8(br); err != nil {
		return nil, err
	}
	if rs.FlagByte, err = binary.ReadUint8(br); err != nil {
		return nil, err
	}
	if rs.OffsetTableSize, err = binary.ReadUint8(br); err != nil {
		return nil, err
	}
	if rs.OffsetTables, err = binary.ReadUint8(br); err != nil {
		return nil, err
	}
	if rs.OffsetContexts, err = binary.ReadUint8(br); err != nil {
		return nil, err
	}
	if rs.RefLengthTableSize, err = binary.ReadUint8(br); err != nil {
		return nil, err
	}
	if rs.RefLengthTables, err = binary.ReadUint8(br); err != nil {
		return nil, err
	}
	if rs.RefOffsetTableSize, err = binary.ReadUint8(br); err != nil {
		return nil, err
	}
	if rs.RefOffsetTables, err = binary.ReadUint8(br); err != nil {
		return nil, err
	}
	if rs.BigMinMatch, err = binary.ReadUint8(br); err != nil {
		return nil, err
	}
	return &rs, nil
}

func writeRangeSettings(w io.Writer, rs *RangeSettings) error {
	if err := binary.WriteUint8(w, rs.WindowSize); err != nil {
		return err
	}
	if err := binary.WriteUint8(w, rs.FlagByte); err != nil {
		return err
	}
	if err := binary.WriteUint8(w, rs.OffsetTableSize); err != nil {
		return err
	}
	if err := binary.WriteUint8(w, rs.OffsetTables); err != nil {
		return err
	}
	if err := binary.WriteUint8(w, rs.OffsetContexts); err != nil {
		return err
	}
	if err := binary.WriteUint8(w, rs.RefLengthTableSize); err != nil {
		return err
	}
	if err := binary.WriteUint8(w, rs.RefLengthTables); err != nil {
		return err
	}
	if err := binary.WriteUint8(w, rs.RefOffsetTableSize); err != nil {
		return err
	}
	if err := binary.WriteUint8(w, rs.RefOffsetTables); err != nil {
		return err
	}
	return binary.WriteUint8(w, rs.BigMinMatch)
}

// nativizeArchiveSeparator converts the archive's on-disk backslash
// directory separator to the forward-slash form the rest of the package
// uses internally; host-native rendering happens only at sink/emit time.
func nativizeArchiveSeparator(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			out[i] = '/'
		} else {
			out[i] = s[i]
		}
	}
	return string(out)
}

func archiveSeparator(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			out[i] = '\\'
		} else {
			out[i] = s[i]
		}
	}
	return string(out)
}
