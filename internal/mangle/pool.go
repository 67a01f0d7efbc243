// Package mangle implements StringMangler: content-addressed interning for
// string literals and RVA-backed array-init blobs (spec.md §4.3 Pass 7,
// §4.7). Grounded on tinyrange-rtg/std/compiler/backend.go's stringMap
// (string content -> rodata offset dedup map), generalized from an
// in-process offset to a stable textual ID so the determinism invariant
// (§8: byte-identical artifacts across repeated runs) holds independent of
// traversal order — a counter would depend on discovery order, a content
// hash cannot.
package mangle

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

const (
	stringIDPrefix = "__str_"
	blobIDPrefix   = "__blob_"
	idHashHexLen   = 12
)

// Pool interns string literals and array-init blobs by content, handing
// back the same ID for the same bytes no matter how many times or in what
// order it is asked.
type Pool struct {
	strings    map[string]string // hex-encoded UTF-16 bytes -> ID
	stringList []Entry
	blobs      map[string]string
	blobList   []BlobEntry
}

// Entry is one interned string literal.
type Entry struct {
	ID    string
	Value []uint16
}

// BlobEntry is one interned array-init blob.
type BlobEntry struct {
	ID   string
	Data []byte
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{strings: map[string]string{}, blobs: map[string]string{}}
}

// InternString returns the stable ID for a UTF-16 string literal,
// interning it on first sight.
func (p *Pool) InternString(units []uint16) string {
	key := string(encodeUTF16Bytes(units))
	if id, ok := p.strings[key]; ok {
		return id
	}
	id := stringIDPrefix + contentHash(key)
	p.strings[key] = id
	p.stringList = append(p.stringList, Entry{ID: id, Value: units})
	return id
}

// InternBlob returns the stable ID for a raw array-init byte blob.
func (p *Pool) InternBlob(data []byte) string {
	key := string(data)
	if id, ok := p.blobs[key]; ok {
		return id
	}
	id := blobIDPrefix + contentHash(key)
	p.blobs[key] = id
	p.blobList = append(p.blobList, BlobEntry{ID: id, Data: append([]byte(nil), data...)})
	return id
}

// Strings returns every interned string literal in first-seen order.
func (p *Pool) Strings() []Entry { return p.stringList }

// Blobs returns every interned array-init blob in first-seen order.
func (p *Pool) Blobs() []BlobEntry { return p.blobList }

func encodeUTF16Bytes(units []uint16) []byte {
	out := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[i*2:], u)
	}
	return out
}

// contentHash truncates a SHA-256 digest of content to idHashHexLen hex
// characters — enough to make an accidental collision astronomically
// unlikely for any realistic literal pool, while keeping emitted symbol
// names short.
func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:idHashHexLen]
}
