// Package ledger wraps the credential token contract on a remote
// EVM-compatible node. Every operation follows the contract's cost pattern:
// fetch the fee data, estimate gas for the call, then execute with that
// budget. The proof verification call can consume operator funds, so failed
// calls are never retried here.
package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veritok/internal/ledger/abi"
	"veritok/internal/ledger/rpc"
	"veritok/internal/platform/config"
	"veritok/internal/sentinel"
	"veritok/pkg/platform/circuit"
)

// Client talks to the verifiable-credentials token contract.
type Client struct {
	rpc      *rpc.Client
	contract string
	from     string
	breaker  *circuit.Breaker
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithBreaker overrides the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		if b != nil {
			c.breaker = b
		}
	}
}

// New constructs a ledger client from injected configuration. The operator
// address is sent as the caller of gas-budgeted calls; nothing here reads
// ambient configuration.
func New(cfg config.Ledger, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg.RPCEndpoint == "" {
		return nil, fmt.Errorf("ledger rpc endpoint is required")
	}
	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("ledger contract address is required")
	}
	if cfg.OperatorKey != "" {
		key, err := hex.DecodeString(strings.TrimPrefix(cfg.OperatorKey, "0x"))
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("ledger operator key must be a 32-byte hex string")
		}
	}
	c := &Client{
		rpc:      rpc.NewClient(cfg.RPCEndpoint, cfg.RequestTimeout),
		contract: cfg.ContractAddress,
		from:     cfg.OperatorAddress,
		breaker:  circuit.New("ledger"),
		logger:   logger,
		tracer:   otel.Tracer("veritok/ledger"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Health checks node reachability for the readiness probe.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := c.rpc.GasPrice(ctx)
	return err
}

// ResolveOwner resolves the owning address for an external credential token
// id. Resolution is two-hop: the external id maps to an internal numeric
// token id, which in turn resolves to its owner.
func (c *Client) ResolveOwner(ctx context.Context, tokenID string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ledger.ResolveOwner",
		trace.WithAttributes(attribute.String("token_id", tokenID)))
	defer span.End()

	internalOut, err := c.execute(ctx, "credentialToTokenId(string)", tokenID)
	if err != nil {
		return "", err
	}
	internalID, err := abi.UnpackUint(internalOut)
	if err != nil {
		return "", fmt.Errorf("decode internal token id: %w", err)
	}

	ownerOut, err := c.execute(ctx, "ownerOf(uint256)", internalID)
	if err != nil {
		return "", err
	}
	owner, err := abi.UnpackAddress(ownerOut)
	if err != nil {
		return "", fmt.Errorf("decode owner address: %w", err)
	}
	return owner, nil
}

// FetchMerkleRoot returns the root currently committed on-chain for the
// credential, as a hex digest.
func (c *Client) FetchMerkleRoot(ctx context.Context, tokenID string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ledger.FetchMerkleRoot",
		trace.WithAttributes(attribute.String("token_id", tokenID)))
	defer span.End()

	out, err := c.execute(ctx, "getMerkleRoot(string)", tokenID)
	if err != nil {
		return "", err
	}
	root, err := abi.UnpackBytes32(out)
	if err != nil {
		return "", fmt.Errorf("decode merkle root: %w", err)
	}
	return hex.EncodeToString(root[:]), nil
}

// FetchTrustLevel returns the ledger's recorded trust tier for a named attribute.
func (c *Client) FetchTrustLevel(ctx context.Context, tokenID, attrNameHash string) (uint8, error) {
	ctx, span := c.tracer.Start(ctx, "ledger.FetchTrustLevel",
		trace.WithAttributes(attribute.String("token_id", tokenID)))
	defer span.End()

	nameHash, err := digestWord(attrNameHash)
	if err != nil {
		return 0, fmt.Errorf("attribute name hash: %w", err)
	}
	out, err := c.execute(ctx, "getAttributeData(string,bytes32)", tokenID, nameHash)
	if err != nil {
		return 0, err
	}
	level, err := abi.UnpackUint8(out)
	if err != nil {
		return 0, fmt.Errorf("decode trust level: %w", err)
	}
	return level, nil
}

// VerifyProofOnChain submits the value hash and proof path for independent
// verification against the root committed on-chain.
func (c *Client) VerifyProofOnChain(ctx context.Context, tokenID, attrValueHash string, proof []string) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "ledger.VerifyProofOnChain",
		trace.WithAttributes(
			attribute.String("token_id", tokenID),
			attribute.Int("proof_len", len(proof)),
		))
	defer span.End()

	valueHash, err := digestWord(attrValueHash)
	if err != nil {
		return false, fmt.Errorf("attribute value hash: %w", err)
	}
	proofWords := make([][32]byte, len(proof))
	for i, p := range proof {
		word, err := digestWord(p)
		if err != nil {
			return false, fmt.Errorf("proof element %d: %w", i, err)
		}
		proofWords[i] = word
	}

	out, err := c.execute(ctx, "verifyAttribute(string,bytes32,bytes32[])", tokenID, valueHash, proofWords)
	if err != nil {
		return false, err
	}
	verified, err := abi.UnpackBool(out)
	if err != nil {
		return false, fmt.Errorf("decode verification flag: %w", err)
	}
	return verified, nil
}

// execute runs one contract method with the estimate-then-call cost pattern,
// guarded by the circuit breaker.
func (c *Client) execute(ctx context.Context, signature string, args ...any) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, fmt.Errorf("ledger circuit open: %w", sentinel.ErrUnavailable)
	}

	start := time.Now()
	out, err := c.call(ctx, signature, args...)
	observeCall(methodName(signature), time.Since(start), err)

	if err != nil {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.ErrorContext(ctx, "ledger circuit opened", "method", methodName(signature))
		}
		return nil, err
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "ledger circuit closed", "method", methodName(signature))
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, signature string, args ...any) ([]byte, error) {
	data, err := abi.Pack(signature, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", signature, err)
	}

	gasPrice, err := c.rpc.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch gas price: %w", err)
	}

	msg := rpc.CallMsg{From: c.from, To: c.contract, Data: data}
	gas, err := c.rpc.EstimateGas(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("estimate gas for %s: %w", signature, err)
	}

	msg.Gas = gas
	msg.GasPrice = gasPrice
	out, err := c.rpc.CallContract(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", signature, err)
	}
	return out, nil
}

func digestWord(hexDigest string) ([32]byte, error) {
	var word [32]byte
	data, err := hex.DecodeString(strings.TrimPrefix(hexDigest, "0x"))
	if err != nil {
		return word, fmt.Errorf("invalid hex digest %q: %w", hexDigest, err)
	}
	if len(data) != 32 {
		return word, fmt.Errorf("digest is %d bytes, want 32", len(data))
	}
	copy(word[:], data)
	return word, nil
}

func methodName(signature string) string {
	if i := strings.IndexByte(signature, '('); i > 0 {
		return signature[:i]
	}
	return signature
}
