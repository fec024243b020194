package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// CampaignStore implements storage.CampaignStore using PostgreSQL.
type CampaignStore struct {
	pool *Pool
}

// NewCampaignStore creates a new CampaignStore.
func NewCampaignStore(pool *Pool) *CampaignStore {
	return &CampaignStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CampaignStore = (*CampaignStore)(nil)

// Insert adds a new campaign. Returns ErrDuplicateKey if the address exists.
func (s *CampaignStore) Insert(ctx context.Context, c *domain.Campaign) error {
	if c == nil || c.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO campaigns (address, token_address, creator, name, symbol, deploy_block, graduated, graduation_block)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		c.Address,
		c.TokenAddress,
		c.Creator,
		c.Name,
		c.Symbol,
		c.DeployBlock,
		c.Graduated,
		c.GraduationBlock,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// GetByAddress retrieves a campaign by contract address. Returns ErrNotFound if not exists.
func (s *CampaignStore) GetByAddress(ctx context.Context, address string) (*domain.Campaign, error) {
	query := `
		SELECT address, token_address, creator, name, symbol, deploy_block, graduated, graduation_block, created_at
		FROM campaigns
		WHERE address = $1
	`

	row := s.pool.QueryRow(ctx, query, address)
	campaign, err := scanCampaign(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get campaign by address: %w", err)
	}
	return campaign, nil
}

// List retrieves all campaigns ordered by deploy block ASC.
func (s *CampaignStore) List(ctx context.Context) ([]*domain.Campaign, error) {
	query := `
		SELECT address, token_address, creator, name, symbol, deploy_block, graduated, graduation_block, created_at
		FROM campaigns
		ORDER BY deploy_block ASC, address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*domain.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign row: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign rows: %w", err)
	}
	return campaigns, nil
}

// MarkGraduated records that the campaign graduated to a DEX at the given block.
// Idempotent: an already-graduated campaign keeps its original graduation block.
func (s *CampaignStore) MarkGraduated(ctx context.Context, address string, block int64) error {
	query := `
		UPDATE campaigns
		SET graduated = TRUE, graduation_block = $2
		WHERE address = $1 AND graduated = FALSE
	`

	tag, err := s.pool.Exec(ctx, query, address, block)
	if err != nil {
		return fmt.Errorf("mark campaign graduated: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either already graduated (fine) or unknown address.
		if _, err := s.GetByAddress(ctx, address); err != nil {
			return err
		}
	}
	return nil
}

// scanCampaign scans a single row into a Campaign.
func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.Address,
		&c.TokenAddress,
		&c.Creator,
		&c.Name,
		&c.Symbol,
		&c.DeployBlock,
		&c.Graduated,
		&c.GraduationBlock,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
