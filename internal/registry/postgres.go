package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// riskStore abstracts the DB query for testability.
type riskStore interface {
	LookupToolRisk(ctx context.Context, tool string) (*riskRow, error)
}

type riskRow struct {
	Tool        string
	Score       float64
	Description sql.NullString
}

type sqlRiskStore struct {
	db *sql.DB
}

func (s *sqlRiskStore) LookupToolRisk(ctx context.Context, tool string) (*riskRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tool_name, risk_score, description
		FROM tool_risk_profiles
		WHERE tool_name = $1
	`, tool)

	var r riskRow
	if err := row.Scan(&r.Tool, &r.Score, &r.Description); err != nil {
		return nil, err
	}
	return &r, nil
}

// PostgresRegistry fetches risk profiles from the tool_risk_profiles
// table with a stale-while-revalidate cache in front.
type PostgresRegistry struct {
	store  riskStore
	cache  *riskCache
	logger *zap.Logger
}

// PostgresRegistryConfig configures the PostgresRegistry.
type PostgresRegistryConfig struct {
	DB       *sql.DB
	CacheTTL time.Duration
	Logger   *zap.Logger
}

func NewPostgresRegistry(cfg PostgresRegistryConfig) *PostgresRegistry {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 60 * time.Second
	}
	return &PostgresRegistry{
		store:  &sqlRiskStore{db: cfg.DB},
		cache:  newRiskCache(ttl),
		logger: cfg.Logger,
	}
}

// newPostgresRegistryWithStore creates a registry with a custom store
// (for testing).
func newPostgresRegistryWithStore(store riskStore, cacheTTL time.Duration, logger *zap.Logger) *PostgresRegistry {
	if cacheTTL == 0 {
		cacheTTL = 60 * time.Second
	}
	return &PostgresRegistry{
		store:  store,
		cache:  newRiskCache(cacheTTL),
		logger: logger,
	}
}

func (r *PostgresRegistry) GetToolRisk(ctx context.Context, tool string) (*ToolRisk, error) {
	cached := r.cache.Get(tool)
	if cached.Hit {
		if cached.NeedsRefresh {
			go r.refreshInBackground(tool)
		}
		return cached.Risk, nil
	}

	risk, err := r.fetchFromDB(ctx, tool)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Negative cache: tool not registered
			r.cache.Set(tool, nil)
			return nil, nil
		}
		return nil, fmt.Errorf("GetToolRisk: %w", err)
	}

	r.cache.Set(tool, risk)
	return risk, nil
}

func (r *PostgresRegistry) fetchFromDB(ctx context.Context, tool string) (*ToolRisk, error) {
	row, err := r.store.LookupToolRisk(ctx, tool)
	if err != nil {
		return nil, err
	}
	risk := &ToolRisk{Tool: row.Tool, Score: row.Score}
	if row.Description.Valid {
		risk.Description = row.Description.String
	}
	return risk, nil
}

func (r *PostgresRegistry) refreshInBackground(tool string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	risk, err := r.fetchFromDB(ctx, tool)
	if err != nil {
		r.logger.Warn("background tool risk refresh failed",
			zap.String("tool", tool),
			zap.Error(err),
		)
		return
	}
	r.cache.Set(tool, risk)
}

// LookupFunc adapts a registry into the synchronous lookup the pipeline
// classifier consumes. Resolution happens against the cache or the
// fallback table; a miss or error falls through to the static scores so
// classification never blocks on the database.
func LookupFunc(reg RiskRegistry, fallback map[string]float64) func(string) (float64, bool) {
	return func(tool string) (float64, bool) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		risk, err := reg.GetToolRisk(ctx, tool)
		if err == nil && risk != nil {
			return risk.Score, true
		}
		score, ok := fallback[tool]
		return score, ok
	}
}
