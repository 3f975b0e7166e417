// Package checksum computes content fingerprints used for optimistic writes.
package checksum

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Sum returns the hex-encoded xxhash64 digest of data, zero-padded to 16 characters.
func Sum(data []byte) string {
	s := strconv.FormatUint(xxhash.Sum64(data), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}

// SumString is Sum for string content.
func SumString(s string) string {
	return Sum([]byte(s))
}
