package rpc

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritok/internal/sentinel"
)

type recordedRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      uint64            `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

func fakeNode(t *testing.T, handle func(req recordedRequest) (any, *Error)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req recordedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)

		result, rpcErr := handle(req)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestGasPrice(t *testing.T) {
	srv := fakeNode(t, func(req recordedRequest) (any, *Error) {
		assert.Equal(t, "eth_gasPrice", req.Method)
		return "0x3b9aca00", nil
	})
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	price, err := client.GasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000_000), price)
}

func TestEstimateGas(t *testing.T) {
	srv := fakeNode(t, func(req recordedRequest) (any, *Error) {
		assert.Equal(t, "eth_estimateGas", req.Method)
		require.Len(t, req.Params, 1)

		var msg map[string]string
		require.NoError(t, json.Unmarshal(req.Params[0], &msg))
		assert.Equal(t, "0xcontract", msg["to"])
		assert.Equal(t, "0xoperator", msg["from"])
		assert.Equal(t, "0x01", msg["data"])
		return "0x5208", nil
	})
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	gas, err := client.EstimateGas(context.Background(), CallMsg{
		From: "0xoperator",
		To:   "0xcontract",
		Data: []byte{0x01},
	})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(21000), gas)
}

func TestCallContract(t *testing.T) {
	srv := fakeNode(t, func(req recordedRequest) (any, *Error) {
		assert.Equal(t, "eth_call", req.Method)
		require.Len(t, req.Params, 2)

		var block string
		require.NoError(t, json.Unmarshal(req.Params[1], &block))
		assert.Equal(t, "latest", block)

		var msg map[string]string
		require.NoError(t, json.Unmarshal(req.Params[0], &msg))
		assert.Equal(t, "0x2710", msg["gas"])
		assert.Equal(t, "0x3b9aca00", msg["gasPrice"])
		return "0xdeadbeef", nil
	})
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	out, err := client.CallContract(context.Background(), CallMsg{
		To:       "0xcontract",
		Gas:      big.NewInt(10000),
		GasPrice: big.NewInt(1_000_000_000),
		Data:     []byte{0x01},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, out)
}

func TestCall_NodeError(t *testing.T) {
	srv := fakeNode(t, func(req recordedRequest) (any, *Error) {
		return nil, &Error{Code: -32000, Message: "execution reverted"}
	})
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.GasPrice(context.Background())
	require.Error(t, err)

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
}

func TestCall_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.GasPrice(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestCall_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, 200*time.Millisecond)
	_, err := client.GasPrice(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestDecodeBig(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "0x0", want: 0},
		{input: "0x", want: 0},
		{input: "0xff", want: 255},
		{input: "ff", want: 255},
		{input: "0xzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			n, err := DecodeBig(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Int64())
		})
	}
}

func TestDecodeBytes(t *testing.T) {
	out, err := DecodeBytes("0xdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, out)

	// odd-length quantities are left-padded
	out, err = DecodeBytes("0xf")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0f}, out)

	_, err = DecodeBytes("0xzz")
	require.Error(t, err)
}

func TestEncodeBig(t *testing.T) {
	assert.Equal(t, "0x5208", EncodeBig(big.NewInt(21000)))
	assert.Equal(t, "0x0", EncodeBig(big.NewInt(0)))
}
