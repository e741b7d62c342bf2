// Package hash provides hashing utilities.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// SHA256 computes the SHA256 hash of data and returns it as a hex string.
func SHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SHA256Short returns the first n characters of a SHA256 hash.
func SHA256Short(data []byte, n int) string {
	h := SHA256(data)
	if n > len(h) {
		return h
	}
	return h[:n]
}

// LabelsFingerprint computes a deterministic fingerprint of a label
// sequence. Runs recorded over the same dataset share a fingerprint.
func LabelsFingerprint(labels []int) string {
	buf := make([]byte, 8*len(labels))
	for i, l := range labels {
		binary.LittleEndian.PutUint64(buf[8*i:], uint64(int64(l)))
	}
	return SHA256Short(buf, 16)
}
