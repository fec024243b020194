package evm

import "context"

// RPCClient defines the read-only Ethereum JSON-RPC surface the indexer
// consumes. It is provided by a third-party endpoint, never implemented here.
type RPCClient interface {
	// GetLogs retrieves event logs matching the filter.
	GetLogs(ctx context.Context, q FilterQuery) ([]Log, error)

	// GetBlockByNumber retrieves a block header by number.
	GetBlockByNumber(ctx context.Context, number int64) (*Block, error)

	// BlockNumber retrieves the latest block height.
	BlockNumber(ctx context.Context) (int64, error)
}

// FilterQuery defines an eth_getLogs filter.
type FilterQuery struct {
	Address   string   // contract address emitting the logs
	Topics    []string // topic filter; position 0 is the event signature
	FromBlock int64    // inclusive
	ToBlock   int64    // inclusive
}

// Log represents a raw event log entry.
type Log struct {
	Address     string   // emitting contract address
	Topics      []string // indexed event fields; topics[0] is the signature hash
	Data        string   // hex-encoded non-indexed fields
	BlockNumber int64
	TxHash      string
	LogIndex    int
	Removed     bool // true when the log was reorged out
}

// Block represents a block header, reduced to what the indexer needs.
type Block struct {
	Number    int64
	Hash      string
	Timestamp int64 // Unix seconds
}
