// Package rpc is a minimal JSON-RPC 2.0 client for EVM-compatible relay nodes.
// Only the three node methods the ledger client needs are wrapped: gas price,
// gas estimation, and contract calls.
package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"veritok/internal/sentinel"
)

// Client speaks JSON-RPC over HTTP to a single node endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Uint64
}

// NewClient constructs a client for the given endpoint. The timeout bounds the
// full request round-trip; the verification core imposes no other deadline.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

// Error is a JSON-RPC error object returned by the node.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call performs a single JSON-RPC call and decodes the result into out.
func (c *Client) Call(ctx context.Context, out any, method string, params ...any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encode rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", method, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: node returned status %d: %w", method, resp.StatusCode, sentinel.ErrUnavailable)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("%s: %w", method, decoded.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("decode rpc result: %w", err)
	}
	return nil
}

// CallMsg describes a contract call for eth_call / eth_estimateGas.
type CallMsg struct {
	From     string
	To       string
	Gas      *big.Int
	GasPrice *big.Int
	Data     []byte
}

func (m CallMsg) toParam() map[string]string {
	param := map[string]string{
		"to":   m.To,
		"data": "0x" + hex.EncodeToString(m.Data),
	}
	if m.From != "" {
		param["from"] = m.From
	}
	if m.Gas != nil {
		param["gas"] = EncodeBig(m.Gas)
	}
	if m.GasPrice != nil {
		param["gasPrice"] = EncodeBig(m.GasPrice)
	}
	return param
}

// GasPrice returns the node's current gas price.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	var out string
	if err := c.Call(ctx, &out, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return DecodeBig(out)
}

// EstimateGas asks the node for a gas estimate for the given call.
func (c *Client) EstimateGas(ctx context.Context, msg CallMsg) (*big.Int, error) {
	var out string
	if err := c.Call(ctx, &out, "eth_estimateGas", msg.toParam()); err != nil {
		return nil, err
	}
	return DecodeBig(out)
}

// CallContract executes a read-style contract call against the latest block.
func (c *Client) CallContract(ctx context.Context, msg CallMsg) ([]byte, error) {
	var out string
	if err := c.Call(ctx, &out, "eth_call", msg.toParam(), "latest"); err != nil {
		return nil, err
	}
	return DecodeBytes(out)
}

// EncodeBig renders a big integer as a 0x-prefixed hex quantity.
func EncodeBig(n *big.Int) string {
	return "0x" + n.Text(16)
}

// DecodeBig parses a 0x-prefixed hex quantity.
func DecodeBig(s string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity %q", s)
	}
	return n, nil
}

// DecodeBytes parses 0x-prefixed hex data.
func DecodeBytes(s string) ([]byte, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if len(trimmed)%2 == 1 {
		trimmed = "0" + trimmed
	}
	data, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data %q: %w", s, err)
	}
	return data, nil
}
