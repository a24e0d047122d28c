package abi

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodID(t *testing.T) {
	// well-known ERC-721/20 selectors
	assert.Equal(t, "6352211e", hex.EncodeToString(MethodID("ownerOf(uint256)")))
	assert.Equal(t, "70a08231", hex.EncodeToString(MethodID("balanceOf(address)")))
}

func TestPack_Uint(t *testing.T) {
	encoded, err := Pack("ownerOf(uint256)", big.NewInt(7))
	require.NoError(t, err)

	require.Len(t, encoded, 4+32)
	assert.Equal(t, "6352211e", hex.EncodeToString(encoded[:4]))
	assert.Equal(t, byte(7), encoded[len(encoded)-1])
}

func TestPack_String(t *testing.T) {
	encoded, err := Pack("credentialToTokenId(string)", "cred-1")
	require.NoError(t, err)

	args := encoded[4:]
	// head word: offset of the dynamic tail
	require.Len(t, args, 32+32+32)
	assert.Equal(t, big.NewInt(32), new(big.Int).SetBytes(args[:32]))
	// tail: length word then right-padded bytes
	assert.Equal(t, big.NewInt(6), new(big.Int).SetBytes(args[32:64]))
	assert.Equal(t, []byte("cred-1"), args[64:70])
	assert.Equal(t, make([]byte, 26), args[70:])
}

func TestPack_Bytes32Array(t *testing.T) {
	var digest [32]byte
	digest[31] = 0xff
	encoded, err := Pack("verifyAttribute(string,bytes32,bytes32[])", "cred-1", digest, [][32]byte{digest, digest})
	require.NoError(t, err)

	args := encoded[4:]
	// three head words, then the string tail, then the array tail
	offset := new(big.Int).SetBytes(args[64:96]).Int64()
	tail := args[offset:]
	assert.Equal(t, big.NewInt(2), new(big.Int).SetBytes(tail[:32]))
	assert.Equal(t, digest[:], tail[32:64])
	assert.Equal(t, digest[:], tail[64:96])
}

func TestPack_UnsupportedType(t *testing.T) {
	_, err := Pack("f(uint256)", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported abi argument type")
}

func TestUnpackUint(t *testing.T) {
	word := make([]byte, 32)
	word[31] = 42
	n, err := UnpackUint(word)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n.Int64())

	_, err = UnpackUint([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestUnpackBool(t *testing.T) {
	word := make([]byte, 32)
	ok, err := UnpackBool(word)
	require.NoError(t, err)
	assert.False(t, ok)

	word[31] = 1
	ok, err = UnpackBool(word)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnpackUint8(t *testing.T) {
	word := make([]byte, 32)
	word[31] = 3
	level, err := UnpackUint8(word)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), level)

	word[30] = 1 // 256 + 3
	_, err = UnpackUint8(word)
	require.Error(t, err)
}

func TestUnpackAddress(t *testing.T) {
	word := make([]byte, 32)
	for i := 12; i < 32; i++ {
		word[i] = byte(i)
	}
	addr, err := UnpackAddress(word)
	require.NoError(t, err)
	assert.Equal(t, "0x"+hex.EncodeToString(word[12:]), addr)
}

func TestUnpackBytes32(t *testing.T) {
	input := make([]byte, 64)
	input[0] = 0xaa
	word, err := UnpackBytes32(input)
	require.NoError(t, err)
	assert.Equal(t, byte(0xaa), word[0])
}
