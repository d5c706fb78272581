package directory

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
)

// registry value types carried in a policy file
const (
	regSZ    uint32 = 1
	regDWORD uint32 = 4
)

// PolEntry is one machine registry-policy value, as stored in a policy
// object's registry.pol file.
type PolEntry struct {
	Key   string
	Value string
	Type  uint32
	Data  []byte
}

// DWORDEntry builds a REG_DWORD policy entry.
func DWORDEntry(key, value string, n uint32) PolEntry {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, n)
	return PolEntry{Key: key, Value: value, Type: regDWORD, Data: data}
}

// SZEntry builds a REG_SZ policy entry.
func SZEntry(key, value, text string) PolEntry {
	return PolEntry{Key: key, Value: value, Type: regSZ, Data: appendUTF16(nil, text, true)}
}

// "PReg" signature followed by format version 1
var polSignature = []byte{'P', 'R', 'e', 'g', 0x01, 0x00, 0x00, 0x00}

// encodePolFile serializes entries in the registry.pol wire format:
// UTF-16LE records of the form [key;value;type;size;data].
func encodePolFile(entries []PolEntry) []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, polSignature...)
	for _, e := range entries {
		buf = appendUTF16Char(buf, '[')
		buf = appendUTF16(buf, e.Key, true)
		buf = appendUTF16Char(buf, ';')
		buf = appendUTF16(buf, e.Value, true)
		buf = appendUTF16Char(buf, ';')
		buf = binary.LittleEndian.AppendUint32(buf, e.Type)
		buf = appendUTF16Char(buf, ';')
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.Data)))
		buf = appendUTF16Char(buf, ';')
		buf = append(buf, e.Data...)
		buf = appendUTF16Char(buf, ']')
	}
	return buf
}

// parsePolFile reads a registry.pol file. An empty input parses to no
// entries so a freshly created policy object starts from a clean slate.
func parsePolFile(b []byte) ([]PolEntry, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b) < len(polSignature) || !bytes.Equal(b[:4], polSignature[:4]) {
		return nil, fmt.Errorf("not a registry policy file")
	}

	r := &polReader{buf: b, off: len(polSignature)}
	var entries []PolEntry
	for !r.done() {
		var e PolEntry
		r.expect('[')
		e.Key = r.readString()
		r.expect(';')
		e.Value = r.readString()
		r.expect(';')
		e.Type = r.readUint32()
		r.expect(';')
		size := r.readUint32()
		r.expect(';')
		e.Data = r.readBytes(int(size))
		r.expect(']')
		if r.err != nil {
			return nil, fmt.Errorf("malformed registry policy record at offset %d: %w", r.off, r.err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// mergePolEntry replaces the entry with the same key and value or appends
// a new one. The second return reports whether the file content changed.
func mergePolEntry(entries []PolEntry, e PolEntry) ([]PolEntry, bool) {
	for i, cur := range entries {
		if strings.EqualFold(cur.Key, e.Key) && strings.EqualFold(cur.Value, e.Value) {
			if cur.Type == e.Type && bytes.Equal(cur.Data, e.Data) {
				return entries, false
			}
			out := make([]PolEntry, len(entries))
			copy(out, entries)
			out[i] = e
			return out, true
		}
	}
	return append(entries, e), true
}

// polReader walks the UTF-16LE record stream, latching the first error.
type polReader struct {
	buf []byte
	off int
	err error
}

func (r *polReader) done() bool {
	return r.err != nil || r.off >= len(r.buf)
}

func (r *polReader) expect(want rune) {
	if r.err != nil {
		return
	}
	if r.off+2 > len(r.buf) {
		r.err = io.ErrUnexpectedEOF
		return
	}
	c := rune(binary.LittleEndian.Uint16(r.buf[r.off:]))
	r.off += 2
	if c != want {
		r.err = fmt.Errorf("expected %q, found %q", want, c)
	}
}

func (r *polReader) readString() string {
	if r.err != nil {
		return ""
	}
	var units []uint16
	for {
		if r.off+2 > len(r.buf) {
			r.err = io.ErrUnexpectedEOF
			return ""
		}
		u := binary.LittleEndian.Uint16(r.buf[r.off:])
		r.off += 2
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

func (r *polReader) readUint32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.buf) {
		r.err = io.ErrUnexpectedEOF
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *polReader) readBytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = io.ErrUnexpectedEOF
		return nil
	}
	out := append([]byte(nil), r.buf[r.off:r.off+n]...)
	r.off += n
	return out
}

func appendUTF16(buf []byte, s string, terminate bool) []byte {
	for _, u := range utf16.Encode([]rune(s)) {
		buf = binary.LittleEndian.AppendUint16(buf, u)
	}
	if terminate {
		buf = binary.LittleEndian.AppendUint16(buf, 0)
	}
	return buf
}

func appendUTF16Char(buf []byte, c rune) []byte {
	return binary.LittleEndian.AppendUint16(buf, uint16(c))
}
