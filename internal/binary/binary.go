// Package binary provides little-endian, stream-based primitives for the
// fixed-layout structures that make up a DZ archive: fixed-width integers
// and zero-terminated byte strings read and written strictly in order.
package binary

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// ReadUint8 reads a single byte from r.
func ReadUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read u8: %w", err)
	}
	return buf[0], nil
}

// WriteUint8 writes a single byte to w.
func WriteUint8(w io.Writer, v uint8) error {
	if _, err := w.Write([]byte{v}); err != nil {
		return fmt.Errorf("write u8: %w", err)
	}
	return nil
}

// ReadUint16LE reads a little-endian uint16 from r.
func ReadUint16LE(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read u16: %w", err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// WriteUint16LE writes a little-endian uint16 to w.
func WriteUint16LE(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write u16: %w", err)
	}
	return nil
}

// ReadUint32LE reads a little-endian uint32 from r.
func ReadUint32LE(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read u32: %w", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// WriteUint32LE writes a little-endian uint32 to w.
func WriteUint32LE(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write u32: %w", err)
	}
	return nil
}

// ReadCString reads bytes up to and including the next 0x00 byte, returning
// everything before it decoded as UTF-8 with invalid sequences replaced
// (lossy decode — the wire format never fails to parse a string).
func ReadCString(br *bufio.Reader) (string, error) {
	raw, err := br.ReadBytes(0x00)
	if err != nil {
		return "", fmt.Errorf("read zero-terminated string: %w", err)
	}
	raw = raw[:len(raw)-1]
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	return toValidUTF8(raw), nil
}

func toValidUTF8(raw []byte) string {
	var buf bytes.Buffer
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r == utf8.RuneError && size <= 1 {
			buf.WriteRune(utf8.RuneError)
			raw = raw[1:]
			continue
		}
		buf.WriteRune(r)
		raw = raw[size:]
	}
	return buf.String()
}

// WriteCString writes s verbatim followed by a 0x00 terminator.
func WriteCString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("write string: %w", err)
	}
	return WriteUint8(w, 0x00)
}
