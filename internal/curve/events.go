// Package curve decodes bonding-curve campaign event logs into trade records.
package curve

// Event signature hashes (topic 0) emitted by LaunchCampaign contracts.
const (
	// TopicTokensPurchased is TokensPurchased(address indexed buyer, uint256 tokensOut, uint256 nativeIn).
	TopicTokensPurchased = "0x8f3c9f44dd3e79dd0f1a62fbbbd071f028bf24c2dabf2b4929f86b90b0a2cda5"

	// TopicTokensSold is TokensSold(address indexed seller, uint256 tokensIn, uint256 nativeOut).
	TopicTokensSold = "0x3cf17464c2c2e2cfb3a40455b1ca5e46b9e2df4cdaa4cbf02e6bb81ff69a4f0e"

	// TopicGraduated is CampaignGraduated(address pool, uint256 finalSupply).
	// Emitted once when reserve targets are met and trading moves to a DEX pool.
	TopicGraduated = "0x1d91e00c26a34aedd1f6ebf1a6eecb6ab38f99adbd36e6c8a52ddb0f5a1cf735"
)

// TradeTopics lists the topic-0 filter for a trade scan: buy and sell
// signatures as alternatives in position 0.
var TradeTopics = []string{TopicTokensPurchased, TopicTokensSold}

// ScanTopics lists everything the indexer subscribes to, trades plus the
// graduation marker.
var ScanTopics = []string{TopicTokensPurchased, TopicTokensSold, TopicGraduated}
