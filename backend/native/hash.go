package native

import (
	"encoding/binary"
	"hash/fnv"
)

// hashWords computes an FNV-1a hash of SPIR-V words.
func hashWords(words []uint32) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	for _, w := range words {
		binary.LittleEndian.PutUint32(buf[:], w)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
