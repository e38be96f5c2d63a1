package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Offer is a catalog offer row
type Offer struct {
	ID               string
	Title            string
	ShortDescription string
	CategoryID       string
	NicheID          *string
	Country          string
	FunnelType       string
	Temperature      string
	MainURL          string
	FacebookAdsURL   *string
	LandingPageURL   *string
	PageName         *string
	Source           string
	Sightings        int
	ScaledAt         *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OfferInput is the field set written by UpsertOffer
type OfferInput struct {
	Title            string
	ShortDescription string
	CategoryID       string
	NicheID          *string
	Country          string
	Temperature      string
	MainURL          string
	FacebookAdsURL   string
	LandingPageURL   *string
	PageName         *string
	AdText           *string
	CreativeAssets   string // JSON array
	Snapshot         string // JSON object
	Source           string
	// Scaled sets scaled_at when the offer has none yet
	Scaled bool
}

// OfferOutcome reports what UpsertOffer did
type OfferOutcome struct {
	ID        string
	Created   bool
	Sightings int
}

const offerColumns = `id, title, COALESCE(short_description, ''), category_id, niche_id, country, funnel_type,
    temperature, COALESCE(main_url, ''), facebook_ads_url, landing_page_url, page_name, source, sightings,
    scaled_at, created_at, updated_at`

func scanOffer(row *sql.Row) (*Offer, error) {
	var (
		o                             Offer
		nicheID, adURL, landing, page sql.NullString
		scaledAt                      sql.NullTime
	)
	err := row.Scan(&o.ID, &o.Title, &o.ShortDescription, &o.CategoryID, &nicheID, &o.Country, &o.FunnelType,
		&o.Temperature, &o.MainURL, &adURL, &landing, &page, &o.Source, &o.Sightings,
		&scaledAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.NicheID = nullString(nicheID)
	o.FacebookAdsURL = nullString(adURL)
	o.LandingPageURL = nullString(landing)
	o.PageName = nullString(page)
	if scaledAt.Valid {
		t := scaledAt.Time
		o.ScaledAt = &t
	}
	return &o, nil
}

// ResolveOffer finds the offer an ad belongs to: by ad URL first, then by
// landing URL. It returns ErrNotFound when neither matches.
func (t *Tx) ResolveOffer(ctx context.Context, adURL string, landingURL *string) (*Offer, error) {
	d := t.s.d
	if adURL != "" {
		o, err := scanOffer(t.q().QueryRowContext(ctx, d.rebind(`SELECT `+offerColumns+` FROM offers WHERE facebook_ads_url = ?`), adURL))
		if err == nil || !errors.Is(err, ErrNotFound) {
			return o, err
		}
	}
	if landingURL != nil && *landingURL != "" {
		return scanOffer(t.q().QueryRowContext(ctx, d.rebind(`SELECT `+offerColumns+`
FROM offers WHERE landing_page_url = ? ORDER BY created_at LIMIT 1`), *landingURL))
	}
	return nil, ErrNotFound
}

// UpsertOffer updates existing in place, or inserts a new offer when existing
// is nil. The insert is keyed on facebook_ads_url, so a concurrent insert of
// the same ad turns into an update instead of a duplicate row.
//
// scaled_at is only ever set once and created_at is never touched. An offer
// that was scaled before stays hot.
func (t *Tx) UpsertOffer(ctx context.Context, existing *Offer, in OfferInput) (OfferOutcome, error) {
	d := t.s.d
	now := t.s.now().UTC()
	var scaledAt any
	if in.Scaled {
		scaledAt = now
	}
	var adURL any
	if in.FacebookAdsURL != "" {
		adURL = in.FacebookAdsURL
	}

	if existing != nil {
		var sightings int
		err := t.q().QueryRowContext(ctx, d.rebind(`
UPDATE offers SET
    title = ?, short_description = ?, category_id = ?, niche_id = COALESCE(?, niche_id), country = ?,
    temperature = ?,
    main_url = ?, facebook_ads_url = ?, landing_page_url = ?, page_name = ?, ad_text = ?,
    creative_asset_urls = ?, ad_library_snapshot = ?, source = ?, is_active = TRUE,
    sightings = sightings + 1,
    scaled_at = COALESCE(scaled_at, ?),
    updated_at = ?
WHERE id = ?
RETURNING sightings`),
			in.Title, in.ShortDescription, in.CategoryID, in.NicheID, in.Country,
			in.Temperature,
			in.MainURL, adURL, in.LandingPageURL, in.PageName, in.AdText,
			in.CreativeAssets, in.Snapshot, in.Source,
			scaledAt, now, existing.ID,
		).Scan(&sightings)
		if err != nil {
			return OfferOutcome{}, fmt.Errorf("update offer %s: %w", existing.ID, err)
		}
		return OfferOutcome{ID: existing.ID, Created: false, Sightings: sightings}, nil
	}

	var out OfferOutcome
	err := t.q().QueryRowContext(ctx, d.rebind(`
INSERT INTO offers (
    id, title, short_description, category_id, niche_id, country, funnel_type, temperature,
    main_url, facebook_ads_url, landing_page_url, page_name, ad_text,
    creative_asset_urls, ad_library_snapshot, source, is_active, sightings,
    scaled_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, 'other', ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE, 1, ?, ?, ?)
ON CONFLICT (facebook_ads_url) DO UPDATE SET
    title = excluded.title,
    short_description = excluded.short_description,
    category_id = excluded.category_id,
    niche_id = COALESCE(excluded.niche_id, offers.niche_id),
    country = excluded.country,
    temperature = excluded.temperature,
    main_url = excluded.main_url,
    landing_page_url = excluded.landing_page_url,
    page_name = excluded.page_name,
    ad_text = excluded.ad_text,
    creative_asset_urls = excluded.creative_asset_urls,
    ad_library_snapshot = excluded.ad_library_snapshot,
    source = excluded.source,
    is_active = TRUE,
    sightings = offers.sightings + 1,
    scaled_at = COALESCE(offers.scaled_at, excluded.scaled_at),
    updated_at = excluded.updated_at
RETURNING id, sightings`),
		uuid.NewString(), in.Title, in.ShortDescription, in.CategoryID, in.NicheID, in.Country, in.Temperature,
		in.MainURL, adURL, in.LandingPageURL, in.PageName, in.AdText,
		in.CreativeAssets, in.Snapshot, in.Source,
		scaledAt, now, now,
	).Scan(&out.ID, &out.Sightings)
	if err != nil {
		return OfferOutcome{}, fmt.Errorf("insert offer: %w", err)
	}
	out.Created = out.Sightings == 1
	return out, nil
}

// GetOffer loads an offer by id
func (s *Store) GetOffer(ctx context.Context, id string) (*Offer, error) {
	return scanOffer(s.db.QueryRowContext(ctx, s.d.rebind(`SELECT `+offerColumns+` FROM offers WHERE id = ?`), id))
}

// FindOfferByAdURL loads the offer of an Ad Library URL
func (s *Store) FindOfferByAdURL(ctx context.Context, adURL string) (*Offer, error) {
	return scanOffer(s.db.QueryRowContext(ctx, s.d.rebind(`SELECT `+offerColumns+` FROM offers WHERE facebook_ads_url = ?`), adURL))
}

// CountOffers returns the number of offers in the catalog
func (s *Store) CountOffers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count offers: %w", err)
	}
	return n, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
