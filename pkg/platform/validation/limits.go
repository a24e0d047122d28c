// Package validation holds trust-boundary size limits for inbound payloads.
// Webhook deliveries come from an external disclosure provider, so every
// dimension of the bundle is bounded before it reaches the domain layer.
package validation

import (
	"fmt"

	dErrors "veritok/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (256 KB).
	// Disclosure bundles carry per-attribute Merkle proofs, so they run
	// larger than typical JSON API payloads.
	MaxBodySize = 256 * 1024
)

// Bundle limits
const (
	// MaxBundleEntries is the maximum number of entries in one attribute bundle.
	MaxBundleEntries = 100

	// MaxAttributeKeyLength is the maximum length of a bundle key.
	MaxAttributeKeyLength = 256

	// MaxDisclosureLength is the maximum length of one disclosure payload.
	MaxDisclosureLength = 16 * 1024

	// MaxProofElements is the maximum number of sibling hashes in one proof
	// path. A balanced tree with 2^64 leaves needs 64; anything beyond that
	// is garbage.
	MaxProofElements = 64

	// MaxProofElementLength is the maximum length of one hex-encoded sibling
	// hash: a 32-byte digest is 64 hex characters plus an optional 0x prefix.
	MaxProofElementLength = 66
)

// CheckSliceCount validates that a collection does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckEachStringLength validates that each string in a slice does not exceed the maximum length.
func CheckEachStringLength(fieldName string, values []string, max int) error {
	for _, v := range values {
		if len(v) > max {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
		}
	}
	return nil
}
