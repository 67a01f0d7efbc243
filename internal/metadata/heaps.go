// Package metadata decodes the ECMA-335 metadata root: the "BSJB" metadata
// header, its stream headers, the compressed "#~" table stream, and the
// #Strings/#US/#GUID/#Blob heaps referenced by table rows.
package metadata

import (
	"encoding/binary"
	"fmt"
)

const metadataSignature = 0x424A5342 // "BSJB"

// Header is the metadata root header (ECMA-335 II.24.2.1).
type Header struct {
	MajorVersion uint16
	MinorVersion uint16
	VersionStr   string
	Flags        uint8
	StreamCount  uint16
}

// StreamHeader locates one named stream within the metadata root.
type StreamHeader struct {
	Offset uint32
	Size   uint32
	Name   string
}

// Root is the parsed metadata root: header, stream headers, and the raw
// bytes of every stream, keyed by name ("#~" or "#-", "#Strings", "#US",
// "#GUID", "#Blob").
type Root struct {
	Header    Header
	Streams   map[string][]byte
	heapSizes byte // set by DecodeTables; widths of string/guid/blob heap indices
}

// Parse decodes a metadata root from raw bytes (as returned by
// peimage.Image.MetadataRoot).
func Parse(data []byte) (*Root, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("metadata root too short")
	}
	sig := binary.LittleEndian.Uint32(data[0:4])
	if sig != metadataSignature {
		return nil, fmt.Errorf("bad metadata root signature %#x", sig)
	}
	hdr := Header{
		MajorVersion: binary.LittleEndian.Uint16(data[4:6]),
		MinorVersion: binary.LittleEndian.Uint16(data[6:8]),
	}
	verLen := binary.LittleEndian.Uint32(data[12:16])
	if uint64(16)+uint64(verLen) > uint64(len(data)) {
		return nil, fmt.Errorf("metadata root version string out of range")
	}
	hdr.VersionStr = trimNul(data[16 : 16+verLen])

	off := 16 + align4(verLen)
	if uint64(off)+4 > uint64(len(data)) {
		return nil, fmt.Errorf("metadata root truncated before flags/streams")
	}
	hdr.Flags = data[off]
	hdr.StreamCount = binary.LittleEndian.Uint16(data[off+2 : off+4])
	off += 4

	streams := make(map[string][]byte, hdr.StreamCount)
	for i := uint16(0); i < hdr.StreamCount; i++ {
		if uint64(off)+8 > uint64(len(data)) {
			return nil, fmt.Errorf("metadata root truncated in stream header %d", i)
		}
		streamOff := binary.LittleEndian.Uint32(data[off : off+4])
		streamSize := binary.LittleEndian.Uint32(data[off+4 : off+8])
		off += 8
		nameStart := off
		nameEnd := nameStart
		for nameEnd < uint32(len(data)) && data[nameEnd] != 0 {
			nameEnd++
		}
		name := string(data[nameStart:nameEnd])
		off = nameStart + align4(nameEnd-nameStart+1)

		if uint64(streamOff)+uint64(streamSize) > uint64(len(data)) {
			return nil, fmt.Errorf("stream %q out of range", name)
		}
		streams[name] = data[streamOff : streamOff+streamSize]
	}

	return &Root{Header: hdr, Streams: streams}, nil
}

// TablesStreamName returns whichever of "#~" (normal, writable-layout
// compressed) or "#-" (uncompressed, produced by some obfuscators and the
// edit-and-continue format) is present.
func (r *Root) TablesStreamName() string {
	if _, ok := r.Streams["#~"]; ok {
		return "#~"
	}
	if _, ok := r.Streams["#-"]; ok {
		return "#-"
	}
	return ""
}

func align4(n uint32) uint32 {
	return (n + 3) &^ 3
}

func trimNul(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}

// StringAt reads a NUL-terminated UTF-8 string from the #Strings heap at the
// given offset.
func (r *Root) StringAt(offset uint32) (string, error) {
	heap, ok := r.Streams["#Strings"]
	if !ok {
		return "", fmt.Errorf("no #Strings heap")
	}
	if uint64(offset) >= uint64(len(heap)) {
		return "", fmt.Errorf("string offset %#x out of range", offset)
	}
	end := offset
	for end < uint32(len(heap)) && heap[end] != 0 {
		end++
	}
	return string(heap[offset:end]), nil
}

// BlobAt reads a length-prefixed blob from the #Blob heap at the given
// offset, decoding ECMA-335's compressed unsigned integer length prefix.
func (r *Root) BlobAt(offset uint32) ([]byte, error) {
	heap, ok := r.Streams["#Blob"]
	if !ok {
		return nil, fmt.Errorf("no #Blob heap")
	}
	n, hdrLen, err := decodeCompressedUint(heap, offset)
	if err != nil {
		return nil, err
	}
	start := offset + hdrLen
	if uint64(start)+uint64(n) > uint64(len(heap)) {
		return nil, fmt.Errorf("blob at %#x out of range", offset)
	}
	return heap[start : start+n], nil
}

// USAt reads a UTF-16LE user-string literal from the #US heap at the given
// offset, returning its raw code units without the trailing terminal byte
// ECMA-335 appends.
func (r *Root) USAt(offset uint32) ([]uint16, error) {
	heap, ok := r.Streams["#US"]
	if !ok {
		return nil, fmt.Errorf("no #US heap")
	}
	n, hdrLen, err := decodeCompressedUint(heap, offset)
	if err != nil {
		return nil, err
	}
	start := offset + hdrLen
	if n == 0 {
		return nil, nil
	}
	// The final byte is a trailing-whitespace/non-ASCII marker, not part of
	// the UTF-16 payload.
	payloadLen := n - 1
	if uint64(start)+uint64(payloadLen) > uint64(len(heap)) {
		return nil, fmt.Errorf("user string at %#x out of range", offset)
	}
	units := make([]uint16, payloadLen/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(heap[start+uint32(i)*2 : start+uint32(i)*2+2])
	}
	return units, nil
}

// decodeCompressedUint decodes an ECMA-335 II.23.2 compressed unsigned
// integer starting at offset in data, returning the value and the number of
// bytes its encoding occupied.
func decodeCompressedUint(data []byte, offset uint32) (value uint32, length uint32, err error) {
	if uint64(offset) >= uint64(len(data)) {
		return 0, 0, fmt.Errorf("compressed uint out of range at %#x", offset)
	}
	b0 := data[offset]
	switch {
	case b0&0x80 == 0:
		return uint32(b0), 1, nil
	case b0&0xC0 == 0x80:
		if uint64(offset)+2 > uint64(len(data)) {
			return 0, 0, fmt.Errorf("compressed uint truncated at %#x", offset)
		}
		return (uint32(b0&0x3F) << 8) | uint32(data[offset+1]), 2, nil
	case b0&0xE0 == 0xC0:
		if uint64(offset)+4 > uint64(len(data)) {
			return 0, 0, fmt.Errorf("compressed uint truncated at %#x", offset)
		}
		return (uint32(b0&0x1F) << 24) | (uint32(data[offset+1]) << 16) |
			(uint32(data[offset+2]) << 8) | uint32(data[offset+3]), 4, nil
	default:
		return 0, 0, fmt.Errorf("invalid compressed uint prefix %#x", b0)
	}
}
