package dzarchive

import "path/filepath"

// ListEntry is one row of a plain-text directory listing over an
// archive's metadata.
type ListEntry struct {
	Path         string
	OriginalSize uint64
	ChunkCount   int
}

// List walks m to produce a plain tabular listing: one entry per file
// with its host-native path, decompressed size, and chunk count.
func List(m *Metadata) []ListEntry {
	entries := make([]ListEntry, 0, len(m.Files))
	for _, f := range m.Files {
		dir := nativeDir(m.Directories[f.DirIndex])
		var size uint64
		for _, id := range f.ChunkIDs {
			if int(id) < len(m.Chunks) {
				size += uint64(m.Chunks[id].DecompressedLength)
			}
		}
		entries = append(entries, ListEntry{
			Path:         filepath.Join(dir, f.Name),
			OriginalSize: size,
			ChunkCount:   len(f.ChunkIDs),
		})
	}
	return entries
}
