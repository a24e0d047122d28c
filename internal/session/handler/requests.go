package handler

import (
	"encoding/json"
	"fmt"
	"strings"

	limits "veritok/pkg/platform/validation"
)

// WebhookRequest is the disclosure-provider webhook payload. Values arrives
// either as a JSON object or as a string containing JSON, depending on the
// provider's serializer.
type WebhookRequest struct {
	QueryID   string          `json:"queryId" validate:"required,notblank"`
	SessionID string          `json:"sessionId"`
	Values    json.RawMessage `json:"values" validate:"required"`
	Result    string          `json:"result"`
	Metadata  string          `json:"metadata,omitempty"`
}

// DecodeValues normalizes the values field into the raw attribute bundle.
// Non-string entry values keep their JSON literal text.
func (r *WebhookRequest) DecodeValues() (map[string]string, error) {
	raw := r.Values
	if len(raw) == 0 {
		return nil, fmt.Errorf("values must be presented")
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("values is not a valid JSON string: %w", err)
		}
		raw = json.RawMessage(inner)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("values is not a JSON object: %w", err)
	}
	if err := limits.CheckSliceCount("attributes", len(entries), limits.MaxBundleEntries); err != nil {
		return nil, err
	}

	bundle := make(map[string]string, len(entries))
	for key, value := range entries {
		if err := limits.CheckStringLength("attribute key", key, limits.MaxAttributeKeyLength); err != nil {
			return nil, err
		}
		if err := limits.CheckStringLength("attribute value", string(value), limits.MaxDisclosureLength); err != nil {
			return nil, err
		}
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			bundle[key] = s
			continue
		}
		bundle[key] = string(value)
	}
	return bundle, nil
}

// WebhookResponse acknowledges an accepted delivery.
type WebhookResponse struct {
	SessionID string `json:"sessionId"`
}
