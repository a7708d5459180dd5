package dzarchive

import "sort"

// VolumeLengthFunc returns the byte length of the volume identified by
// fileIndex (0 = main, k>0 = split k-1), used to bound the last chunk in
// each volume during reconciliation.
type VolumeLengthFunc func(fileIndex uint16) (int64, error)

// Reconcile computes RealCompressedLength for every chunk in m.Chunks,
// repairing compressed_length fields that are stale or outright wrong.
// The true on-disk extent of a chunk is bounded by where the next chunk
// in the same volume starts (or the volume's end, for the last chunk);
// Reconcile never inspects payload bytes, only offsets and declared
// lengths.
func Reconcile(m *Metadata, volumeLength VolumeLengthFunc) error {
	byVolume := make(map[uint16][]int) // fileIndex -> indices into m.Chunks
	for i, c := range m.Chunks {
		byVolume[c.FileIndex] = append(byVolume[c.FileIndex], i)
	}

	for fileIndex, indices := range byVolume {
		sort.Slice(indices, func(a, b int) bool {
			return m.Chunks[indices[a]].Offset < m.Chunks[indices[b]].Offset
		})

		volLen, err := volumeLength(fileIndex)
		if err != nil {
			return err
		}

		for pos, idx := range indices {
			c := &m.Chunks[idx]

			var limit int64
			if pos+1 < len(indices) {
				limit = int64(m.Chunks[indices[pos+1]].Offset)
			} else {
				limit = volLen
			}

			if limit < int64(c.Offset) {
				// Corrupt ordering: fall back to the raw header value
				// rather than reasoning about a negative extent.
				c.RealCompressedLength = c.CompressedLength
				continue
			}

			available := uint32(limit - int64(c.Offset))

			compressed := c.Flags.IsCompressed()
			equalSized := c.CompressedLength == c.DecompressedLength

			switch {
			case compressed && equalSized:
				c.RealCompressedLength = available
			case c.CompressedLength > available:
				c.RealCompressedLength = available
			default:
				c.RealCompressedLength = c.CompressedLength
			}
		}
	}

	return nil
}
