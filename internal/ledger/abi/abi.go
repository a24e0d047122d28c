// Package abi implements the small slice of contract ABI encoding the
// credential token contract needs: method selectors plus packing for string,
// uint256, bytes32, and bytes32[] arguments, and unpacking for the scalar
// return types.
package abi

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/sha3"
)

const wordSize = 32

// MethodID returns the 4-byte selector for a canonical method signature,
// e.g. "ownerOf(uint256)".
func MethodID(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return h.Sum(nil)[:4]
}

// Pack encodes a method call: selector followed by head/tail encoded
// arguments. Supported argument types: string, *big.Int (uint256),
// [32]byte (bytes32), and [][32]byte (bytes32[]).
func Pack(signature string, args ...any) ([]byte, error) {
	heads := make([][]byte, len(args))
	tails := make([][]byte, len(args))

	for i, arg := range args {
		switch v := arg.(type) {
		case string:
			tails[i] = packBytes([]byte(v))
		case *big.Int:
			heads[i] = packUint(v)
		case [wordSize]byte:
			word := v
			heads[i] = word[:]
		case [][wordSize]byte:
			tails[i] = packBytes32Array(v)
		default:
			return nil, fmt.Errorf("unsupported abi argument type %T", arg)
		}
	}

	// dynamic heads carry the byte offset of their tail, counted from the
	// start of the argument block
	offset := len(args) * wordSize
	for i := range args {
		if tails[i] == nil {
			continue
		}
		heads[i] = packUint(big.NewInt(int64(offset)))
		offset += len(tails[i])
	}

	encoded := MethodID(signature)
	for _, head := range heads {
		encoded = append(encoded, head...)
	}
	for _, tail := range tails {
		encoded = append(encoded, tail...)
	}
	return encoded, nil
}

func packUint(n *big.Int) []byte {
	word := make([]byte, wordSize)
	n.FillBytes(word)
	return word
}

func packBytes(data []byte) []byte {
	encoded := packUint(big.NewInt(int64(len(data))))
	padded := (len(data) + wordSize - 1) / wordSize * wordSize
	tail := make([]byte, padded)
	copy(tail, data)
	return append(encoded, tail...)
}

func packBytes32Array(items [][wordSize]byte) []byte {
	encoded := packUint(big.NewInt(int64(len(items))))
	for _, item := range items {
		word := item
		encoded = append(encoded, word[:]...)
	}
	return encoded
}

// UnpackUint decodes the first return word as an unsigned integer.
func UnpackUint(output []byte) (*big.Int, error) {
	if len(output) < wordSize {
		return nil, fmt.Errorf("abi output too short: %d bytes", len(output))
	}
	return new(big.Int).SetBytes(output[:wordSize]), nil
}

// UnpackBool decodes the first return word as a boolean.
func UnpackBool(output []byte) (bool, error) {
	n, err := UnpackUint(output)
	if err != nil {
		return false, err
	}
	return n.Sign() != 0, nil
}

// UnpackUint8 decodes the first return word as a uint8 enum value.
func UnpackUint8(output []byte) (uint8, error) {
	n, err := UnpackUint(output)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() || n.Uint64() > 255 {
		return 0, fmt.Errorf("abi output %s out of uint8 range", n)
	}
	return uint8(n.Uint64()), nil
}

// UnpackAddress decodes the first return word as a 0x-prefixed address.
func UnpackAddress(output []byte) (string, error) {
	if len(output) < wordSize {
		return "", fmt.Errorf("abi output too short: %d bytes", len(output))
	}
	return "0x" + fmt.Sprintf("%x", output[wordSize-20:wordSize]), nil
}

// UnpackBytes32 decodes the first return word as a fixed 32-byte digest.
func UnpackBytes32(output []byte) ([wordSize]byte, error) {
	var word [wordSize]byte
	if len(output) < wordSize {
		return word, fmt.Errorf("abi output too short: %d bytes", len(output))
	}
	copy(word[:], output[:wordSize])
	return word, nil
}
