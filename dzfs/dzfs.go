// Package dzfs is the OS-backed filesystem adapter for the dzarchive
// engine: it implements dzarchive's UnpackSource/UnpackSink/PackSource/
// PackSink interfaces against real files, so the engine itself never
// imports "os" directly.
package dzfs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/mistretro/dzarchive"
)

// UnpackSource opens an archive's main volume and named splits out of a
// single directory, resolving split names relative to that directory.
type UnpackSource struct {
	MainPath string
	BaseDir  string
}

// NewUnpackSource returns an UnpackSource reading mainPath, resolving any
// split volume names relative to mainPath's directory.
func NewUnpackSource(mainPath string) *UnpackSource {
	return &UnpackSource{MainPath: mainPath, BaseDir: filepath.Dir(mainPath)}
}

func (s *UnpackSource) OpenMain() (dzarchive.ReadSeeker, error) {
	return os.Open(s.MainPath)
}

func (s *UnpackSource) OpenSplit(name string) (dzarchive.ReadSeeker, error) {
	return os.Open(filepath.Join(s.BaseDir, name))
}

func (s *UnpackSource) SplitLength(name string) (int64, error) {
	fi, err := os.Stat(filepath.Join(s.BaseDir, name))
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (s *UnpackSource) MainLength() (int64, error) {
	fi, err := os.Stat(s.MainPath)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// UnpackSink extracts files beneath Root, creating intermediate
// directories as needed.
type UnpackSink struct {
	Root string
}

// NewUnpackSink returns an UnpackSink rooted at root, creating root if it
// does not already exist.
func NewUnpackSink(root string) (*UnpackSink, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &UnpackSink{Root: root}, nil
}

func (s *UnpackSink) CreateDir(relPath string) error {
	return os.MkdirAll(filepath.Join(s.Root, filepath.FromSlash(relPath)), 0o755)
}

func (s *UnpackSink) CreateFile(relPath string) (io.WriteCloser, error) {
	full := filepath.Join(s.Root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	return os.Create(full)
}

// PackSource reads archive member files out of a directory tree.
type PackSource struct {
	Root string
}

// NewPackSource returns a PackSource reading files beneath root.
func NewPackSource(root string) *PackSource {
	return &PackSource{Root: root}
}

func (s *PackSource) Exists(relPath string) bool {
	_, err := os.Stat(filepath.Join(s.Root, filepath.FromSlash(relPath)))
	return err == nil
}

func (s *PackSource) OpenFile(relPath string) (dzarchive.ReadSeeker, error) {
	return os.Open(filepath.Join(s.Root, filepath.FromSlash(relPath)))
}

// PackSink writes an archive's main volume and any split volumes into a
// single directory.
type PackSink struct {
	MainPath string
	BaseDir  string
}

// NewPackSink returns a PackSink writing mainPath, placing any split
// volumes alongside it by index-derived name ("<main>.001", ...).
func NewPackSink(mainPath string) *PackSink {
	return &PackSink{MainPath: mainPath, BaseDir: filepath.Dir(mainPath)}
}

func (s *PackSink) CreateMain() (dzarchive.WriteSeeker, error) {
	return os.Create(s.MainPath)
}

func (s *PackSink) CreateSplit(idx int) (dzarchive.WriteSeeker, error) {
	name := filepath.Join(s.BaseDir, splitName(s.MainPath, idx))
	return os.Create(name)
}

func splitName(mainPath string, idx int) string {
	return filepath.Base(mainPath) + "." + padSplitIndex(idx)
}

func padSplitIndex(idx int) string {
	digits := "0123456789"
	n := idx + 1
	out := []byte{digits[n/100%10], digits[n/10%10], digits[n%10]}
	return string(out)
}
