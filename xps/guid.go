package xps

import (
	"hash/fnv"

	"github.com/google/uuid"
)

// BlobHash derives a stable GUID from arbitrary bytes.
func BlobHash(blob []byte) uuid.UUID {
	h := fnv.New128()
	h.Write(blob)
	uid, _ := uuid.FromBytes(h.Sum([]byte{}))
	return uid
}

// Obfuscate XORs the first 32 bytes of a font in place with the bytes of g
// taken from the last to the first in the order of its string form. Applying
// it twice restores the original data.
func Obfuscate(data []byte, g uuid.UUID) {
	for i := 0; i < 16; i++ {
		if i < len(data) {
			data[i] ^= g[15-i]
		}
		if i+16 < len(data) {
			data[i+16] ^= g[15-i]
		}
	}
}
