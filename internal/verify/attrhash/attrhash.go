// Package attrhash is the deterministic content-hashing primitive shared by
// the attribute checks and the Merkle verifier. The canonicalization here
// must match the ledger contract's rule bit for bit; any drift silently
// breaks every downstream match.
package attrhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"veritok/internal/verify/attr"
)

// Sum hashes an arbitrary byte sequence. It is also the Merkle leaf function.
func Sum(data []byte) [sha256.Size]byte {
	return sha256.Sum256(data)
}

// HexSum is the hex-string convenience form of Sum.
func HexSum(data []byte) string {
	digest := Sum(data)
	return hex.EncodeToString(digest[:])
}

// NameHash hashes the canonical attribute-name key. Qualified values scope
// the name to lower-cased country and document-type tokens joined with ".";
// scalar values hash the name alone.
func NameHash(name string, value attr.Value) string {
	return HexSum([]byte(canonicalKey(name, value)))
}

// ValueHash hashes the canonical attribute-value key: the name key from
// NameHash extended with "." and the disclosed value.
func ValueHash(name string, value attr.Value) string {
	switch v := value.(type) {
	case attr.Qualified:
		return HexSum([]byte(canonicalKey(name, value) + "." + v.Value))
	case attr.Scalar:
		return HexSum([]byte(name + "." + string(v)))
	default:
		return HexSum([]byte(name))
	}
}

func canonicalKey(name string, value attr.Value) string {
	if q, ok := value.(attr.Qualified); ok {
		return strings.ToLower(q.CountryCode) + "." + strings.ToLower(q.DocType) + "." + name
	}
	return name
}
