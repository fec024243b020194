package stub

import (
	"context"
	"errors"
	"sync"

	"launchpad-indexer/internal/evm"
)

// ErrNotFound is returned when a requested block is not in the stub store.
var ErrNotFound = errors.New("not found")

// RPCClient implements evm.RPCClient for testing. Logs are keyed by block
// number; GetLogs returns all stored logs inside the queried range.
type RPCClient struct {
	mu sync.Mutex

	Logs        map[int64][]evm.Log
	Blocks      map[int64]*evm.Block
	Latest      int64
	GetLogsErrs []error // consumed one per GetLogs call; nil entries succeed

	// Queries records every GetLogs filter, in call order.
	Queries []evm.FilterQuery
	// BlockFetches counts GetBlockByNumber calls per block.
	BlockFetches map[int64]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Logs:         make(map[int64][]evm.Log),
		Blocks:       make(map[int64]*evm.Block),
		BlockFetches: make(map[int64]int),
	}
}

// GetLogs returns stored logs within [FromBlock, ToBlock], in block order.
func (c *RPCClient) GetLogs(_ context.Context, q evm.FilterQuery) ([]evm.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Queries = append(c.Queries, q)

	if len(c.GetLogsErrs) > 0 {
		err := c.GetLogsErrs[0]
		c.GetLogsErrs = c.GetLogsErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	var result []evm.Log
	for block := q.FromBlock; block <= q.ToBlock; block++ {
		result = append(result, c.Logs[block]...)
	}
	return result, nil
}

// GetBlockByNumber retrieves a block from the stub store.
func (c *RPCClient) GetBlockByNumber(_ context.Context, number int64) (*evm.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.BlockFetches[number]++
	block, ok := c.Blocks[number]
	if !ok {
		return nil, ErrNotFound
	}
	return block, nil
}

// BlockNumber returns the configured latest block height.
func (c *RPCClient) BlockNumber(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Latest, nil
}

// AddLog adds a log to the stub store.
func (c *RPCClient) AddLog(log evm.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Logs[log.BlockNumber] = append(c.Logs[log.BlockNumber], log)
	if log.BlockNumber > c.Latest {
		c.Latest = log.BlockNumber
	}
}

// AddBlock adds a block to the stub store.
func (c *RPCClient) AddBlock(block *evm.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Blocks[block.Number] = block
	if block.Number > c.Latest {
		c.Latest = block.Number
	}
}

var _ evm.RPCClient = (*RPCClient)(nil)
