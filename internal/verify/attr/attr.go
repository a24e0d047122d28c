// Package attr interprets raw disclosure bundle entries: the dot-delimited
// key grammar that yields a canonical attribute name, and the JSON payload
// carrying the disclosed value, its claimed hash, and the Merkle proof path.
package attr

import (
	"encoding/json"
	"fmt"
	"strings"

	"veritok/internal/sentinel"
	limits "veritok/pkg/platform/validation"
)

// Value is the disclosed attribute value. It is either a bare scalar or a
// country/document-type qualified triple; the two shapes canonicalize (and
// therefore hash) differently.
type Value interface {
	isValue()
}

// Scalar is a plain attribute value.
type Scalar string

func (Scalar) isValue() {}

// Qualified is an attribute value scoped to an issuing country and document
// type. Country and document type are folded to lower case before hashing.
type Qualified struct {
	CountryCode string
	DocType     string
	Value       string
}

func (Qualified) isValue() {}

// Disclosure is one parsed per-attribute entry from the raw bundle.
type Disclosure struct {
	Value            Value
	ClaimedValueHash string   // hex digest claimed by the disclosing device
	Proof            []string // ordered sibling hashes, hex
}

// CanonicalName derives the attribute name from a bundle key.
// The grammar is a fixed lookup over dot-separated segments:
//
//	name                 -> name
//	name.level           -> name
//	doc.name.level[.…]   -> name (second segment)
//
// Unrecognized shapes (empty key, blank segments) are rejected rather than
// guessed.
func CanonicalName(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty attribute key: %w", sentinel.ErrInvalidInput)
	}
	segments := strings.Split(key, ".")
	for _, seg := range segments {
		if seg == "" {
			return "", fmt.Errorf("attribute key %q has a blank segment: %w", key, sentinel.ErrInvalidInput)
		}
	}
	switch {
	case len(segments) <= 2:
		return segments[0], nil
	default:
		return segments[1], nil
	}
}

// ParseDisclosure decodes a disclosure payload: a JSON triple
// [value, claimedValueHash, proofPath]. The value element is either a JSON
// scalar or a three-element array [countryCode, docType, value].
func ParseDisclosure(payload string) (*Disclosure, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &parts); err != nil {
		return nil, fmt.Errorf("disclosure payload is not a JSON array: %w", err)
	}
	if len(parts) != 3 {
		return nil, fmt.Errorf("disclosure payload has %d elements, want 3: %w", len(parts), sentinel.ErrInvalidInput)
	}

	value, err := parseValue(parts[0])
	if err != nil {
		return nil, err
	}

	var claimedHash string
	if err := json.Unmarshal(parts[1], &claimedHash); err != nil {
		return nil, fmt.Errorf("claimed value hash is not a string: %w", err)
	}

	var proof []string
	if err := json.Unmarshal(parts[2], &proof); err != nil {
		return nil, fmt.Errorf("proof path is not a string array: %w", err)
	}
	if len(proof) > limits.MaxProofElements {
		return nil, fmt.Errorf("proof path has %d elements, max %d: %w",
			len(proof), limits.MaxProofElements, sentinel.ErrInvalidInput)
	}
	if err := limits.CheckEachStringLength("proof element", proof, limits.MaxProofElementLength); err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrInvalidInput, err)
	}

	return &Disclosure{
		Value:            value,
		ClaimedValueHash: claimedHash,
		Proof:            proof,
	}, nil
}

func parseValue(raw json.RawMessage) (Value, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var triple []string
		if err := json.Unmarshal(raw, &triple); err != nil {
			return nil, fmt.Errorf("qualified value is not a string triple: %w", err)
		}
		if len(triple) != 3 {
			return nil, fmt.Errorf("qualified value has %d elements, want 3: %w", len(triple), sentinel.ErrInvalidInput)
		}
		return Qualified{CountryCode: triple[0], DocType: triple[1], Value: triple[2]}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Scalar(s), nil
	}
	// numbers and booleans canonicalize as their JSON literal text
	return Scalar(trimmed), nil
}
