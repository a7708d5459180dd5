// Package dzarchive implements the DZ multi-volume archive container format:
// parsing and writing its binary header, reconciling chunk geometry against
// the volumes that actually exist on disk, dispatching per-chunk codecs, and
// driving parallel extraction and packing pipelines.
package dzarchive

import (
	"errors"
	"fmt"
)

// Sentinel errors for the DZ format's structurally simple failure kinds.
// Use errors.Is against these; the carrying kinds below use errors.As.
var (
	ErrInvalidMagic           = errors.New("dzarchive: invalid magic number")
	ErrUnsupportedVersion     = errors.New("dzarchive: unsupported archive version")
	ErrUnsupportedCompression = errors.New("dzarchive: unsupported compression method")
	ErrSplitFileMissing       = errors.New("dzarchive: split volume file missing")
	ErrChunkDefinitionMissing = errors.New("dzarchive: referenced chunk id has no definition")
)

// FormatError reports a structural problem in the archive's binary layout
// that a sentinel alone can't describe precisely.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("dzarchive: malformed archive: %s", e.Reason)
}

// SecurityError reports an archive entry that would escape the intended
// extraction root, or otherwise can't be trusted to extract safely.
type SecurityError struct {
	Path   string
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("dzarchive: security: %s: %q", e.Reason, e.Path)
}

// ConfigError reports a problem with a Config value or its text form, as
// found by FromConfig or the dzconfig reader, such as a chunk id that is
// missing, duplicated or out of range.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("dzarchive: invalid config: %s", e.Reason)
}

// InternalError reports a condition the package considers a bug rather
// than a data or environment problem (e.g. an invariant violated by the
// package's own code).
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("dzarchive: internal error: %s", e.Reason)
}

// SplitFileMissingError carries the name of a split volume the archive
// references but that the source could not open or size.
type SplitFileMissingError struct {
	Name string
	Err  error
}

func (e *SplitFileMissingError) Error() string {
	return fmt.Sprintf("dzarchive: split volume %q missing: %v", e.Name, e.Err)
}

func (e *SplitFileMissingError) Unwrap() error {
	return ErrSplitFileMissing
}

// ChunkDefinitionMissingError carries the id of a chunk a file-map entry
// references but that has no corresponding chunk table record.
type ChunkDefinitionMissingError struct {
	ID uint16
}

func (e *ChunkDefinitionMissingError) Error() string {
	return fmt.Sprintf("dzarchive: chunk id %d has no chunk table definition", e.ID)
}

func (e *ChunkDefinitionMissingError) Unwrap() error {
	return ErrChunkDefinitionMissing
}

// VolumeError wraps an I/O failure against a specific split volume or
// extracted output path, preserving the path for diagnostics.
type VolumeError struct {
	Path string
	Err  error
}

func (e *VolumeError) Error() string {
	return fmt.Sprintf("dzarchive: %s: %v", e.Path, e.Err)
}

func (e *VolumeError) Unwrap() error {
	return e.Err
}
