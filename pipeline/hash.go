package pipeline

import (
	"encoding/binary"
	"hash"
)

// =============================================================================
// Helper Functions for Hashing
// =============================================================================

// hashWriteUint32 writes a uint32 to the hash.
func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteUint64 writes a uint64 to the hash.
func hashWriteUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteString writes a length-prefixed string to the hash.
//
//nolint:gosec // G115: binding and attribute names are short identifiers
func hashWriteString(h hash.Hash64, s string) {
	hashWriteUint32(h, uint32(len(s)))
	_, _ = h.Write([]byte(s))
}

// hashWriteBool writes a bool to the hash.
func hashWriteBool(h hash.Hash64, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}

// =============================================================================
// Canonical Keys
// =============================================================================

// keyWriter builds an exact, collision-free cache key. Unlike the hash
// helpers above it keeps every byte, so equal keys imply equal values.
type keyWriter struct {
	buf []byte
}

func (w *keyWriter) uint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *keyWriter) uint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

//nolint:gosec // G115: key components are short identifiers
func (w *keyWriter) string(s string) {
	w.uint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

//nolint:gosec // G115: list lengths are bounded by GPU limits
func (w *keyWriter) strings(list []string) {
	w.uint32(uint32(len(list)))
	for _, s := range list {
		w.string(s)
	}
}

func (w *keyWriter) key() string {
	return string(w.buf)
}
