package handler

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "veritok/pkg/domain-errors"
	limits "veritok/pkg/platform/validation"
)

func TestDecodeValues_Object(t *testing.T) {
	req := WebhookRequest{Values: json.RawMessage(`{"vct": "cred-1", "age.2": 42}`)}

	values, err := req.DecodeValues()
	require.NoError(t, err)
	assert.Equal(t, "cred-1", values["vct"])
	// non-string entries keep their literal text
	assert.Equal(t, "42", values["age.2"])
}

func TestDecodeValues_StringEncodedObject(t *testing.T) {
	req := WebhookRequest{Values: json.RawMessage(`"{\"vct\": \"cred-1\"}"`)}

	values, err := req.DecodeValues()
	require.NoError(t, err)
	assert.Equal(t, "cred-1", values["vct"])
}

func TestDecodeValues_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values string
	}{
		{name: "empty", values: ""},
		{name: "array", values: `["a"]`},
		{name: "string holding non-object", values: `"[1,2]"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := WebhookRequest{Values: json.RawMessage(tt.values)}
			_, err := req.DecodeValues()
			require.Error(t, err)
		})
	}
}

func TestDecodeValues_TooManyEntries(t *testing.T) {
	entries := make(map[string]string, limits.MaxBundleEntries+1)
	for i := 0; i <= limits.MaxBundleEntries; i++ {
		entries[fmt.Sprintf("attr%d.2", i)] = "v"
	}
	raw, err := json.Marshal(entries)
	require.NoError(t, err)

	req := WebhookRequest{Values: raw}
	_, err = req.DecodeValues()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
