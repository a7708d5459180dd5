// Package dzconfig renders a dzarchive.Config to and from the archive
// engine's human-readable text configuration form: a flat, line-oriented
// format with one section per file and one per chunk, intended to be
// hand-editable and diff-friendly.
package dzconfig

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mistretro/dzarchive"
)

// Write renders cfg to w.
func Write(w io.Writer, cfg *dzarchive.Config) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "version = %d\n", cfg.Version)
	for _, s := range cfg.SplitVolumes {
		fmt.Fprintf(bw, "split = %s\n", s)
	}
	if cfg.Range != nil {
		r := cfg.Range
		fmt.Fprintf(bw, "range_settings = %d %d %d %d %d %d %d %d %d %d\n",
			r.WindowSize, r.FlagByte,
			r.OffsetTableSize, r.OffsetTables, r.OffsetContexts,
			r.RefLengthTableSize, r.RefLengthTables,
			r.RefOffsetTableSize, r.RefOffsetTables,
			r.BigMinMatch)
	}

	for _, f := range cfg.Files {
		fmt.Fprintf(bw, "\n[file]\n")
		fmt.Fprintf(bw, "path = %s\n", f.Path)
		fmt.Fprintf(bw, "directory = %s\n", f.Directory)
		fmt.Fprintf(bw, "filename = %s\n", f.Filename)
		fmt.Fprintf(bw, "chunks = %s\n", joinUint16(f.ChunkIDs))
	}

	for _, c := range cfg.Chunks {
		fmt.Fprintf(bw, "\n[chunk]\n")
		fmt.Fprintf(bw, "id = %d\n", c.ID)
		fmt.Fprintf(bw, "offset = %d\n", c.Offset)
		fmt.Fprintf(bw, "compressed_length = %d\n", c.CompressedLength)
		fmt.Fprintf(bw, "decompressed_length = %d\n", c.DecompressedLength)
		fmt.Fprintf(bw, "flags = %s\n", c.FlagName)
		fmt.Fprintf(bw, "volume = %d\n", c.VolumeIndex)
	}

	return bw.Flush()
}

func joinUint16(ids []uint16) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ",")
}

// Read parses the text form produced by Write back into a Config.
func Read(r io.Reader) (*dzarchive.Config, error) {
	cfg := &dzarchive.Config{}
	sc := bufio.NewScanner(r)

	var curFile *dzarchive.FileConfigEntry
	var curChunk *dzarchive.ChunkConfigEntry

	commit := func() {
		if curFile != nil {
			cfg.Files = append(cfg.Files, *curFile)
			curFile = nil
		}
		if curChunk != nil {
			cfg.Chunks = append(cfg.Chunks, *curChunk)
			curChunk = nil
		}
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if line == "[file]" {
			commit()
			curFile = &dzarchive.FileConfigEntry{}
			continue
		}
		if line == "[chunk]" {
			commit()
			curChunk = &dzarchive.ChunkConfigEntry{}
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, &dzarchive.ConfigError{Reason: fmt.Sprintf("malformed line: %q", line)}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		var err error
		switch {
		case curChunk != nil:
			err = setChunkField(curChunk, key, value)
		case curFile != nil:
			err = setFileField(curFile, key, value)
		default:
			err = setTopLevelField(cfg, key, value)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	commit()

	return cfg, nil
}

func setTopLevelField(cfg *dzarchive.Config, key, value string) error {
	switch key {
	case "version":
		n, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return &dzarchive.ConfigError{Reason: "invalid version: " + err.Error()}
		}
		cfg.Version = uint16(n)
	case "split":
		cfg.SplitVolumes = append(cfg.SplitVolumes, value)
	case "range_settings":
		fields := strings.Fields(value)
		if len(fields) != 10 {
			return &dzarchive.ConfigError{Reason: "range_settings requires exactly 10 fields"}
		}
		bytes := make([]uint8, 10)
		for i, f := range fields {
			n, err := strconv.ParseUint(f, 10, 8)
			if err != nil {
				return &dzarchive.ConfigError{Reason: "invalid range_settings field: " + err.Error()}
			}
			bytes[i] = uint8(n)
		}
		cfg.Range = &dzarchive.RangeSettings{
			WindowSize:         bytes[0],
			FlagByte:           bytes[1],
			OffsetTableSize:    bytes[2],
			OffsetTables:       bytes[3],
			OffsetContexts:     bytes[4],
			RefLengthTableSize: bytes[5],
			RefLengthTables:    bytes[6],
			RefOffsetTableSize: bytes[7],
			RefOffsetTables:    bytes[8],
			BigMinMatch:        bytes[9],
		}
	default:
		return &dzarchive.ConfigError{Reason: fmt.Sprintf("unrecognized top-level key %q", key)}
	}
	return nil
}

func setFileField(f *dzarchive.FileConfigEntry, key, value string) error {
	switch key {
	case "path":
		f.Path = value
	case "directory":
		f.Directory = value
	case "filename":
		f.Filename = value
	case "chunks":
		ids, err := parseUint16List(value)
		if err != nil {
			return err
		}
		f.ChunkIDs = ids
		if len(ids) > 0 {
			f.FirstID = ids[0]
		}
	default:
		return &dzarchive.ConfigError{Reason: fmt.Sprintf("unrecognized file key %q", key)}
	}
	return nil
}

func setChunkField(c *dzarchive.ChunkConfigEntry, key, value string) error {
	switch key {
	case "id":
		n, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return &dzarchive.ConfigError{Reason: "invalid chunk id: " + err.Error()}
		}
		c.ID = uint16(n)
	case "offset":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return &dzarchive.ConfigError{Reason: "invalid chunk offset: " + err.Error()}
		}
		c.Offset = uint32(n)
	case "compressed_length":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return &dzarchive.ConfigError{Reason: "invalid compressed_length: " + err.Error()}
		}
		c.CompressedLength = uint32(n)
	case "decompressed_length":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return &dzarchive.ConfigError{Reason: "invalid decompressed_length: " + err.Error()}
		}
		c.DecompressedLength = uint32(n)
	case "flags":
		c.FlagName = value
	case "volume":
		n, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return &dzarchive.ConfigError{Reason: "invalid volume index: " + err.Error()}
		}
		c.VolumeIndex = uint16(n)
	default:
		return &dzarchive.ConfigError{Reason: fmt.Sprintf("unrecognized chunk key %q", key)}
	}
	return nil
}

func parseUint16List(value string) ([]uint16, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	ids := make([]uint16, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return nil, &dzarchive.ConfigError{Reason: "invalid chunk id in list: " + err.Error()}
		}
		ids[i] = uint16(n)
	}
	return ids, nil
}
