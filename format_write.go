package dzarchive

import (
	"io"

	"github.com/mistretro/dzarchive/internal/binary"
)

// HeaderSize computes the exact byte offset of the first chunk's payload
// on volume 0: everything from the magic number through the optional
// range-settings block. The packing engine's pre-pass must match this
// value exactly so the chunk table it back-patches later agrees with
// where chunks actually landed.
func HeaderSize(m *Metadata) uint32 {
	size := uint32(9) // magic + num_files + num_dirs + version

	for _, f := range m.Files {
		size += uint32(len(f.Name)) + 1
	}
	for _, d := range m.Directories[1:] { // index 0 is the implicit root
		size += uint32(len(d)) + 1
	}
	for _, f := range m.Files {
		size += 2 + 2*uint32(len(f.ChunkIDs)) + 2
	}

	size += 4 // chunk table header: num_archive_files + num_chunks
	size += uint32(len(m.Chunks)) * 16

	for _, s := range m.SplitVolumes {
		size += uint32(len(s)) + 1
	}

	if m.HasRangeCoding() {
		size += 10
	}

	return size
}

// WriteHeader serializes every header block, from the magic number through
// the chunk table, split list and optional range-settings block, to w, in
// the order LoadMetadata expects to read them. The chunk table
// body is written as zeros regardless of m.Chunks' contents — the packing
// engine's post-pass is responsible for patching it once every chunk's
// true offset and compressed length are known. Everything else (string
// tables, file map, split list, range settings) is final at this point
// and is not revisited.
func WriteHeader(w io.Writer, m *Metadata) error {
	if err := binary.WriteUint32LE(w, magic); err != nil {
		return err
	}
	if err := binary.WriteUint16LE(w, uint16(len(m.Files))); err != nil {
		return err
	}
	if err := binary.WriteUint16LE(w, uint16(len(m.Directories))); err != nil {
		return err
	}
	if err := binary.WriteUint8(w, 0); err != nil { // version
		return err
	}

	for _, f := range m.Files {
		if err := binary.WriteCString(w, f.Name); err != nil {
			return err
		}
	}
	for _, d := range m.Directories[1:] {
		if err := binary.WriteCString(w, archiveSeparator(d)); err != nil {
			return err
		}
	}

	for _, f := range m.Files {
		if err := binary.WriteUint16LE(w, f.DirIndex); err != nil {
			return err
		}
		if err := writeChunkIDList(w, f.ChunkIDs); err != nil {
			return err
		}
	}

	if err := binary.WriteUint16LE(w, uint16(m.NumArchiveFiles())); err != nil {
		return err
	}
	if err := binary.WriteUint16LE(w, uint16(len(m.Chunks))); err != nil {
		return err
	}
	zeroRecord := make([]byte, 16)
	for range m.Chunks {
		if _, err := w.Write(zeroRecord); err != nil {
			return &VolumeError{Path: "chunk table slot", Err: err}
		}
	}

	for _, s := range m.SplitVolumes {
		if err := binary.WriteCString(w, s); err != nil {
			return err
		}
	}

	if m.HasRangeCoding() {
		if m.Range == nil {
			return &InternalError{Reason: "archive has DZ_RANGE chunks but no range settings were supplied"}
		}
		if err := writeRangeSettings(w, m.Range); err != nil {
			return err
		}
	}

	return nil
}

// chunkTableOffset returns the byte offset, within volume 0, of the first
// byte of the chunk table slot — the position PatchChunkTable seeks to.
func chunkTableOffset(m *Metadata) uint32 {
	offset := uint32(9)
	for _, f := range m.Files {
		offset += uint32(len(f.Name)) + 1
	}
	for _, d := range m.Directories[1:] {
		offset += uint32(len(d)) + 1
	}
	for _, f := range m.Files {
		offset += 2 + 2*uint32(len(f.ChunkIDs)) + 2
	}
	offset += 4
	return offset
}

// PatchChunkTable seeks w (volume 0's writer) back to the chunk table
// slot reserved by WriteHeader and rewrites it with the now-finalized
// chunk records. It must be called only after every chunk has been
// written by the pack consumer, and leaves the writer's position
// undefined afterward — callers should not write further without
// seeking explicitly.
func PatchChunkTable(w WriteSeeker, m *Metadata) error {
	if _, err := w.Seek(int64(chunkTableOffset(m)), io.SeekStart); err != nil {
		return &VolumeError{Path: "chunk table patch seek", Err: err}
	}
	for _, c := range m.Chunks {
		if err := writeChunkRecord(w, c); err != nil {
			return &VolumeError{Path: "chunk table patch", Err: err}
		}
	}
	return nil
}
