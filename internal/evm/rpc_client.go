package evm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// ErrRateLimited marks an error as a provider rate limit. Callers decide
// the retry policy; the client itself performs a single attempt per call.
var ErrRateLimited = errors.New("rate limited")

// rpcErrCodeRateLimit is the JSON-RPC error code commonly used by public
// endpoints for request throttling.
const rpcErrCodeRateLimit = -32005

// rateLimitMarkers are message substrings that classify an error as a
// rate limit when no reliable code is present.
var rateLimitMarkers = []string{
	"rate limit",
	"limit exceeded",
	"too many requests",
}

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Ethereum RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a single JSON-RPC attempt. Retry policy belongs to the
// caller: rate limits are retried by the scan layer, everything else
// fails the enclosing fetch.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: HTTP 429", ErrRateLimited)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

// IsRateLimitError reports whether err is classified as a provider rate
// limit: the sentinel, the well-known JSON-RPC code, or a message match.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var rpcErr *rpcError
	if errors.As(err, &rpcErr) && rpcErr.Code == rpcErrCodeRateLimit {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// GetLogs retrieves event logs matching the filter.
func (c *HTTPClient) GetLogs(ctx context.Context, q FilterQuery) ([]Log, error) {
	filter := map[string]interface{}{
		"fromBlock": encodeQuantity(q.FromBlock),
		"toBlock":   encodeQuantity(q.ToBlock),
	}
	if q.Address != "" {
		filter["address"] = q.Address
	}
	if len(q.Topics) > 0 {
		// A single topic position with alternatives is encoded as a nested
		// array per the eth_getLogs spec.
		topics := make([]interface{}, 0, 1)
		if len(q.Topics) == 1 {
			topics = append(topics, q.Topics[0])
		} else {
			alternatives := make([]string, len(q.Topics))
			copy(alternatives, q.Topics)
			topics = append(topics, alternatives)
		}
		filter["topics"] = topics
	}

	var result []getLogsResult
	if err := c.call(ctx, "eth_getLogs", []interface{}{filter}, &result); err != nil {
		return nil, err
	}

	logs := make([]Log, 0, len(result))
	for _, r := range result {
		blockNumber, err := decodeQuantity(r.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("decode blockNumber %q: %w", r.BlockNumber, err)
		}
		logIndex, err := decodeQuantity(r.LogIndex)
		if err != nil {
			return nil, fmt.Errorf("decode logIndex %q: %w", r.LogIndex, err)
		}
		logs = append(logs, Log{
			Address:     r.Address,
			Topics:      r.Topics,
			Data:        r.Data,
			BlockNumber: blockNumber,
			TxHash:      r.TransactionHash,
			LogIndex:    int(logIndex),
			Removed:     r.Removed,
		})
	}

	return logs, nil
}

// getLogsResult is the raw RPC response item for eth_getLogs.
type getLogsResult struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	BlockNumber     string   `json:"blockNumber"`
	TransactionHash string   `json:"transactionHash"`
	LogIndex        string   `json:"logIndex"`
	Removed         bool     `json:"removed"`
}

// GetBlockByNumber retrieves a block header by number.
// Returns nil if the block does not exist yet.
func (c *HTTPClient) GetBlockByNumber(ctx context.Context, number int64) (*Block, error) {
	params := []interface{}{encodeQuantity(number), false}

	var result *getBlockResult
	if err := c.call(ctx, "eth_getBlockByNumber", params, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	timestamp, err := decodeQuantity(result.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("decode timestamp %q: %w", result.Timestamp, err)
	}

	return &Block{
		Number:    number,
		Hash:      result.Hash,
		Timestamp: timestamp,
	}, nil
}

// getBlockResult is the raw RPC response for eth_getBlockByNumber.
type getBlockResult struct {
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
}

// BlockNumber retrieves the latest block height.
func (c *HTTPClient) BlockNumber(ctx context.Context) (int64, error) {
	var result string
	if err := c.call(ctx, "eth_blockNumber", nil, &result); err != nil {
		return 0, err
	}
	return decodeQuantity(result)
}

// encodeQuantity encodes an integer as a 0x-prefixed hex quantity.
func encodeQuantity(n int64) string {
	return fmt.Sprintf("0x%x", n)
}

// decodeQuantity decodes a 0x-prefixed hex quantity.
func decodeQuantity(s string) (int64, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	n, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return 0, fmt.Errorf("invalid hex quantity %q", s)
	}
	if !n.IsInt64() {
		return 0, fmt.Errorf("quantity %q overflows int64", s)
	}
	return n.Int64(), nil
}

var _ RPCClient = (*HTTPClient)(nil)
