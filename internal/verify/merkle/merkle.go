// Package merkle verifies inclusion proofs against a committed root.
package merkle

import (
	"bytes"
	"crypto/sha256"
)

// Verify recomputes the root by folding the ordered proof over the leaf and
// compares it byte-exact against the expected root. When sortPairs is true
// the two hashes being combined are ordered bytewise before concatenation,
// matching the pairing rule of the on-chain contract. An empty proof is valid
// only for a single-leaf tree where the leaf is the root.
func Verify(leaf []byte, proof [][]byte, root []byte, sortPairs bool) bool {
	current := leaf
	for _, sibling := range proof {
		left, right := current, sibling
		if sortPairs && bytes.Compare(left, right) > 0 {
			left, right = right, left
		}
		combined := sha256.Sum256(append(append([]byte{}, left...), right...))
		current = combined[:]
	}
	return bytes.Equal(current, root)
}
