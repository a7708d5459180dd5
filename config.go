package dzarchive

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Config is the round-trippable description of an archive used to drive
// Pack, and produced from an open archive by ToConfig. Path uses the
// host-native separator on the way out (ToConfig); on the way in,
// FromConfig ignores Path and resolves each file's directory index from
// its Directory field.
type Config struct {
	Version      uint16
	Files        []FileConfigEntry
	Chunks       []ChunkConfigEntry
	SplitVolumes []string
	Range        *RangeSettings
}

// FileConfigEntry is one archive member as described in the text config:
// its full archive-relative path, the directory and base filename that
// path splits into, and its ordered chunk-id list. FirstID is a
// single-id view for display purposes (dzconfig does not write it and
// derives it from the chunks list when reading); ChunkIDs is the
// authoritative list Pack actually consumes; the two
// agree whenever ChunkIDs is non-empty (FirstID == ChunkIDs[0]).
type FileConfigEntry struct {
	Path      string
	Directory string
	Filename  string
	FirstID   uint16
	ChunkIDs  []uint16
}

// ChunkConfigEntry is one chunk as described in the text config.
type ChunkConfigEntry struct {
	ID                 uint16
	Offset             uint32
	CompressedLength   uint32
	DecompressedLength uint32
	FlagName           string
	VolumeIndex        uint16
}

// ToConfig walks m to produce its round-trip text-config form, with
// directory strings rendered back to native separators as spec.md's
// listing/config emitter requires. Reconcile must already have run if
// the caller wants RealCompressedLength reflected in CompressedLength;
// ToConfig otherwise emits the raw header field.
func (m *Metadata) ToConfig() *Config {
	cfg := &Config{
		Version:      m.Version,
		SplitVolumes: append([]string(nil), m.SplitVolumes...),
		Range:        m.Range,
	}

	for _, f := range m.Files {
		dir := nativeDir(m.Directories[f.DirIndex])
		first, _ := f.FirstChunkID()
		cfg.Files = append(cfg.Files, FileConfigEntry{
			Path:      filepath.Join(dir, f.Name),
			Directory: dir,
			Filename:  f.Name,
			FirstID:   first,
			ChunkIDs:  append([]uint16(nil), f.ChunkIDs...),
		})
	}

	for id, c := range m.Chunks {
		length := c.CompressedLength
		if c.RealCompressedLength != 0 {
			length = c.RealCompressedLength
		}
		cfg.Chunks = append(cfg.Chunks, ChunkConfigEntry{
			ID:                 uint16(id),
			Offset:             c.Offset,
			CompressedLength:   length,
			DecompressedLength: c.DecompressedLength,
			FlagName:           c.Flags.String(),
			VolumeIndex:        c.FileIndex,
		})
	}

	return cfg
}

// FromConfig builds a packable Metadata from cfg: it assigns directory
// indices (collecting every distinct FileConfigEntry.Directory, sorting
// them, then pinning "." at index 0 regardless of sort order, matching
// the archive's implicit-root convention) and lays out the chunk table
// from cfg.Chunks, which must use contiguous ids starting at 0 — Pack and
// every other component address chunks by slice index, not by a sparse
// id space.
func FromConfig(cfg *Config) (*Metadata, error) {
	dirSet := make(map[string]struct{})
	for _, f := range cfg.Files {
		d := f.Directory
		if d == "" {
			d = "."
		}
		dirSet[d] = struct{}{}
	}
	dirSet["."] = struct{}{}

	var dirs []string
	for d := range dirSet {
		if d != "." {
			dirs = append(dirs, d)
		}
	}
	sort.Strings(dirs)
	dirs = append([]string{"."}, dirs...)

	dirIndex := make(map[string]uint16, len(dirs))
	for i, d := range dirs {
		dirIndex[d] = uint16(i)
	}

	chunks := make([]ChunkRecord, len(cfg.Chunks))
	seen := make([]bool, len(cfg.Chunks))
	for _, c := range cfg.Chunks {
		if int(c.ID) >= len(chunks) {
			return nil, &ConfigError{Reason: fmt.Sprintf("chunk id %d is out of range for %d chunks; ids must be contiguous from 0", c.ID, len(cfg.Chunks))}
		}
		if seen[c.ID] {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate chunk id %d", c.ID)}
		}
		seen[c.ID] = true

		flags, err := parseFlagCombo(c.FlagName)
		if err != nil {
			return nil, err
		}

		chunks[c.ID] = ChunkRecord{
			DecompressedLength: c.DecompressedLength,
			Flags:              flags,
			FileIndex:          c.VolumeIndex,
		}
	}
	for i, ok := range seen {
		if !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("chunk id %d missing from config", i)}
		}
	}

	files := make([]FileEntry, len(cfg.Files))
	for i, f := range cfg.Files {
		d := f.Directory
		if d == "" {
			d = "."
		}
		idx, ok := dirIndex[d]
		if !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("file %q references unknown directory %q", f.Path, d)}
		}
		files[i] = FileEntry{
			Name:     f.Filename,
			DirIndex: idx,
			ChunkIDs: append([]uint16(nil), f.ChunkIDs...),
		}
	}

	m := &Metadata{
		Version:      cfg.Version,
		Directories:  dirs,
		Files:        files,
		Chunks:       chunks,
		SplitVolumes: append([]string(nil), cfg.SplitVolumes...),
		Range:        cfg.Range,
	}
	if m.HasRangeCoding() && m.Range == nil {
		return nil, &ConfigError{Reason: "config declares a DZ_RANGE chunk but supplies no range settings"}
	}
	return m, nil
}

// parseFlagCombo parses a "|"-joined flag name list as produced by
// ChunkFlags.String back into its bitmask.
func parseFlagCombo(name string) (ChunkFlags, error) {
	var flags ChunkFlags
	for _, tok := range strings.Split(name, "|") {
		f, ok := ParseFlagName(tok)
		if !ok {
			return 0, &ConfigError{Reason: fmt.Sprintf("unrecognized compression flag name %q", tok)}
		}
		flags |= f
	}
	return flags, nil
}

func nativeDir(archiveDir string) string {
	if archiveDir == "." {
		return "."
	}
	return filepath.FromSlash(archiveDir)
}
