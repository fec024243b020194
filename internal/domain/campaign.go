package domain

// Campaign represents a bonding-curve token campaign being indexed.
// Corresponds to the campaigns table in PostgreSQL.
type Campaign struct {
	Address      string // campaign contract address (primary key)
	TokenAddress string // launched token contract address
	Creator      string // campaign creator address
	Name         string // token name
	Symbol       string // token symbol
	DeployBlock  int64  // block the campaign contract was deployed at
	CreatedAt    int64  // record creation timestamp (0 until stored)

	// Graduation: trading moved from the curve to a DEX pool.
	Graduated       bool
	GraduationBlock *int64 // block of the graduation event (nullable)
}
