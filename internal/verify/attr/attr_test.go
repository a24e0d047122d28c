package attr

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritok/internal/sentinel"
	limits "veritok/pkg/platform/validation"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{name: "bare name", key: "name", want: "name"},
		{name: "name with level", key: "name.2", want: "name"},
		{name: "document qualified", key: "passport.name.2", want: "name"},
		{name: "extra trailing segments", key: "passport.name.2.extra", want: "name"},
		{name: "two segment document key", key: "age.over18", want: "age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalName(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalName_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "empty key", key: ""},
		{name: "blank middle segment", key: "passport..2"},
		{name: "leading dot", key: ".name"},
		{name: "trailing dot", key: "name."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CanonicalName(tt.key)
			require.Error(t, err)
			assert.ErrorIs(t, err, sentinel.ErrInvalidInput)
		})
	}
}

func TestParseDisclosure_Scalar(t *testing.T) {
	d, err := ParseDisclosure(`["Jane Doe", "abc123", ["aa", "bb"]]`)
	require.NoError(t, err)

	assert.Equal(t, Scalar("Jane Doe"), d.Value)
	assert.Equal(t, "abc123", d.ClaimedValueHash)
	assert.Equal(t, []string{"aa", "bb"}, d.Proof)
}

func TestParseDisclosure_Qualified(t *testing.T) {
	d, err := ParseDisclosure(`[["DE", "Passport", "Jane Doe"], "abc123", []]`)
	require.NoError(t, err)

	require.IsType(t, Qualified{}, d.Value)
	q := d.Value.(Qualified)
	assert.Equal(t, "DE", q.CountryCode)
	assert.Equal(t, "Passport", q.DocType)
	assert.Equal(t, "Jane Doe", q.Value)
	assert.Empty(t, d.Proof)
}

func TestParseDisclosure_NonStringScalar(t *testing.T) {
	d, err := ParseDisclosure(`[42, "abc123", []]`)
	require.NoError(t, err)

	// numbers keep their literal text so hashing stays deterministic
	assert.Equal(t, Scalar("42"), d.Value)
}

func TestParseDisclosure_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not an array", payload: `{"value": "x"}`},
		{name: "wrong arity", payload: `["x", "y"]`},
		{name: "hash not a string", payload: `["x", 7, []]`},
		{name: "proof not an array", payload: `["x", "y", "z"]`},
		{name: "qualified wrong arity", payload: `[["DE", "Passport"], "y", []]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDisclosure(tt.payload)
			require.Error(t, err)
		})
	}
}

func TestParseDisclosure_ProofTooLong(t *testing.T) {
	proof := make([]string, limits.MaxProofElements+1)
	for i := range proof {
		proof[i] = "aa"
	}
	payload, err := json.Marshal([]any{"Jane", "hash", proof})
	require.NoError(t, err)

	_, err = ParseDisclosure(string(payload))
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrInvalidInput)
}

func TestParseDisclosure_ProofElementTooLong(t *testing.T) {
	proof := []string{"aa", strings.Repeat("a", limits.MaxProofElementLength+1)}
	payload, err := json.Marshal([]any{"Jane", "hash", proof})
	require.NoError(t, err)

	_, err = ParseDisclosure(string(payload))
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrInvalidInput)
	assert.Contains(t, err.Error(), "proof element")
}
