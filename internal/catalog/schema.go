package catalog

import (
	"context"
	"fmt"
)

// MigrateOptions controls Migrate
type MigrateOptions struct {
	// SkipOptional leaves out the niches and metrics tables, like reduced deployments
	SkipOptional bool
}

// Migrate creates the catalog tables that do not exist yet and refreshes the capabilities
func (s *Store) Migrate(ctx context.Context, opts MigrateOptions) error {
	ts := s.d.timestampType()

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS categories (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    is_premium BOOLEAN NOT NULL DEFAULT FALSE,
    created_at %s NOT NULL
)`, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS offers (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    short_description TEXT,
    category_id TEXT NOT NULL REFERENCES categories(id),
    niche_id TEXT,
    country TEXT NOT NULL,
    funnel_type TEXT NOT NULL DEFAULT 'other',
    temperature TEXT NOT NULL,
    main_url TEXT,
    facebook_ads_url TEXT UNIQUE,
    landing_page_url TEXT,
    page_name TEXT,
    ad_text TEXT,
    creative_asset_urls TEXT,
    ad_library_snapshot TEXT,
    source TEXT NOT NULL DEFAULT 'facebook',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    sightings INTEGER NOT NULL DEFAULT 1,
    scaled_at %[1]s,
    created_at %[1]s NOT NULL,
    updated_at %[1]s NOT NULL
)`, ts),
		`CREATE UNIQUE INDEX IF NOT EXISTS offers_landing_page_url_orphan
    ON offers (landing_page_url) WHERE facebook_ads_url IS NULL`,
		`CREATE INDEX IF NOT EXISTS offers_landing_page_url ON offers (landing_page_url)`,
	}

	if !opts.SkipOptional {
		stmts = append(stmts,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS niches (
    id TEXT PRIMARY KEY,
    category_id TEXT NOT NULL REFERENCES categories(id),
    name TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at %s NOT NULL
)`, ts),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS offer_scalability_metrics (
    offer_id TEXT PRIMARY KEY REFERENCES offers(id) ON DELETE CASCADE,
    creative_count INTEGER NOT NULL DEFAULT 0,
    impressions_range TEXT,
    frequency_score %s,
    is_high_scale BOOLEAN NOT NULL DEFAULT FALSE,
    first_seen %[2]s,
    last_seen %[2]s,
    run_count INTEGER NOT NULL DEFAULT 0,
    metadata TEXT,
    created_at %[2]s NOT NULL,
    updated_at %[2]s NOT NULL
)`, s.d.floatType(), ts),
		)
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}

	s.logger.Info().Bool("optional", !opts.SkipOptional).Str("driver", s.d.driver).Msg("Catalog schema ready")
	return s.Refresh(ctx)
}
