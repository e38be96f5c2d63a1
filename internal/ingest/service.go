// Package ingest applies an import payload to the catalog.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/law-makers/adscout/internal/catalog"
	"github.com/law-makers/adscout/internal/scaling"
	"github.com/law-makers/adscout/pkg/models"
	"github.com/rs/zerolog"
)

// DefaultCountry is used when neither the ad nor the batch names one
const DefaultCountry = "BR"

// shortDescriptionRunes caps the offer short description
const shortDescriptionRunes = 260

// Service ingests ad batches
type Service struct {
	Store  *catalog.Store
	Logger zerolog.Logger
}

// New returns a Service writing to store
func New(store *catalog.Store, logger zerolog.Logger) *Service {
	return &Service{Store: store, Logger: logger}
}

// Import ensures the taxonomy once, then syncs every ad in order. A failing
// ad is reported in its result entry and does not stop the batch. The returned
// error is only set when the batch as a whole could not be processed.
func (s *Service) Import(ctx context.Context, p models.ImportPayload) (*models.ImportResponse, error) {
	category, err := s.Store.EnsureCategory(ctx, p.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to create/find category: %w", err)
	}

	var nicheID *string
	niche, err := s.Store.EnsureNiche(ctx, p.Niche, category.ID)
	switch {
	case err != nil:
		return nil, fmt.Errorf("failed to create/find niche: %w", err)
	case niche == nil:
		s.Logger.Warn().Str("niche", p.Niche).Msg("Niche table missing, continuing without niche")
	default:
		nicheID = &niche.ID
	}

	source := p.Source
	if source == "" {
		source = "facebook"
	}

	results := make([]models.ImportResult, 0, len(p.Ads))
	for _, ad := range p.Ads {
		res, err := s.syncAdOnce(ctx, ad, batch{
			categoryID: category.ID,
			nicheID:    nicheID,
			nicheName:  p.Niche,
			country:    p.Country,
			source:     source,
		})
		if err != nil {
			s.Logger.Error().Err(err).Str("platform_id", ad.PlatformID).Msg("Failed to sync ad")
			results = append(results, models.ImportResult{
				PlatformID: ad.PlatformID,
				Status:     "error",
				Message:    err.Error(),
			})
			continue
		}
		results = append(results, res)
	}

	return &models.ImportResponse{Success: true, Processed: len(results), Results: results}, nil
}

type batch struct {
	categoryID string
	nicheID    *string
	nicheName  string
	country    string
	source     string
}

// syncAdOnce retries a sync that lost an insert race to a concurrent
// request; the second attempt resolves the row the other request created.
func (s *Service) syncAdOnce(ctx context.Context, ad models.Ad, b batch) (models.ImportResult, error) {
	res, err := s.syncAd(ctx, ad, b)
	if err != nil && catalog.IsUniqueViolation(err) {
		s.Logger.Debug().Str("platform_id", ad.PlatformID).Msg("Unique conflict, retrying as update")
		return s.syncAd(ctx, ad, b)
	}
	return res, err
}

func (s *Service) syncAd(ctx context.Context, ad models.Ad, b batch) (models.ImportResult, error) {
	var res models.ImportResult

	err := s.Store.InTx(ctx, func(tx *catalog.Tx) error {
		existing, err := tx.ResolveOffer(ctx, ad.AdURL, ad.LandingPageURL)
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			return err
		}

		persistedRuns := 0
		if existing != nil {
			if persistedRuns, err = tx.RunCount(ctx, existing.ID); err != nil {
				return err
			}
		}
		scaled := scaling.ShouldMarkScaled(ad.IsLikelyScaled, len(ad.CreativeAssets), persistedRuns)

		in, err := offerInput(ad, b, scaled)
		if err != nil {
			return err
		}
		out, err := tx.UpsertOffer(ctx, existing, in)
		if err != nil {
			return err
		}

		if _, err := tx.UpsertMetrics(ctx, s.metricsInput(out.ID, ad, b, scaled)); err != nil {
			return err
		}

		action := models.ActionUpdated
		if out.Created {
			action = models.ActionCreated
		}
		res = models.ImportResult{PlatformID: ad.PlatformID, OfferID: out.ID, Action: action, IsScaled: scaled}
		return nil
	})
	if err != nil {
		return models.ImportResult{}, err
	}

	s.Logger.Debug().
		Str("platform_id", res.PlatformID).
		Str("offer_id", res.OfferID).
		Str("action", string(res.Action)).
		Bool("scaled", res.IsScaled).
		Msg("Ad synced")
	return res, nil
}

func offerInput(ad models.Ad, b batch, scaled bool) (catalog.OfferInput, error) {
	assets, err := json.Marshal(ad.CreativeAssets)
	if err != nil {
		return catalog.OfferInput{}, fmt.Errorf("encode creatives: %w", err)
	}
	var snapshot []byte
	if ad.Raw != nil {
		snapshot, err = json.Marshal(ad.Raw)
	} else {
		snapshot, err = json.Marshal(ad)
	}
	if err != nil {
		return catalog.OfferInput{}, fmt.Errorf("encode snapshot: %w", err)
	}

	return catalog.OfferInput{
		Title:            Title(models.Deref(ad.PageName), b.nicheName),
		ShortDescription: ShortDescription(models.Deref(ad.AdText), b.nicheName),
		CategoryID:       b.categoryID,
		NicheID:          b.nicheID,
		Country:          Country(ad.Country, b.country),
		Temperature:      scaling.Temperature(scaled),
		MainURL:          MainURL(ad),
		FacebookAdsURL:   ad.AdURL,
		LandingPageURL:   models.StringPtr(models.Deref(ad.LandingPageURL)),
		PageName:         models.StringPtr(models.Deref(ad.PageName)),
		AdText:           models.StringPtr(models.Deref(ad.AdText)),
		CreativeAssets:   string(assets),
		Snapshot:         string(snapshot),
		Source:           b.source,
		Scaled:           scaled,
	}, nil
}

func (s *Service) metricsInput(offerID string, ad models.Ad, b batch, scaled bool) catalog.MetricsInput {
	types := make([]string, 0, len(ad.CreativeAssets))
	for _, a := range ad.CreativeAssets {
		types = append(types, string(a.Type))
	}
	return catalog.MetricsInput{
		OfferID:          offerID,
		CreativeCount:    len(ad.CreativeAssets),
		ImpressionsRange: models.StringPtr(models.Deref(ad.Impressions)),
		FrequencyScore:   ad.FrequencyScore,
		IsHighScale:      scaled,
		FirstSeen:        s.seenTime("firstSeen", ad.PlatformID, ad.FirstSeen),
		LastSeen:         s.seenTime("lastSeen", ad.PlatformID, ad.LastSeen),
		Metadata: map[string]any{
			"platform_id":      ad.PlatformID,
			"run_status":       optional(ad.RunStatus),
			"page_profile_url": optional(ad.PageProfileURL),
			"source":           b.source,
			"creative_types":   types,
		},
	}
}

// Title is "{page} - {Niche}", or "Anúncio {Niche}" without a page name
func Title(pageName, niche string) string {
	if pageName = strings.TrimSpace(pageName); pageName != "" {
		return strings.TrimSpace(pageName + " - " + capitalize(niche))
	}
	return strings.TrimSpace("Anúncio " + capitalize(niche))
}

// ShortDescription is the first 260 characters of the ad text, or a generated default
func ShortDescription(adText, niche string) string {
	if adText == "" {
		return "Anúncio coletado automaticamente para o nicho " + niche
	}
	if utf8.RuneCountInString(adText) > shortDescriptionRunes {
		return string([]rune(adText)[:shortDescriptionRunes])
	}
	return adText
}

// MainURL prefers the landing page, then the first creative, then the ad itself
func MainURL(ad models.Ad) string {
	if l := models.Deref(ad.LandingPageURL); l != "" {
		return l
	}
	if len(ad.CreativeAssets) > 0 && ad.CreativeAssets[0].URL != "" {
		return ad.CreativeAssets[0].URL
	}
	return ad.AdURL
}

// Country picks the ad's country, then the batch's, then BR
func Country(adCountry, batchCountry string) string {
	switch {
	case adCountry != "":
		return adCountry
	case batchCountry != "":
		return batchCountry
	}
	return DefaultCountry
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func optional(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

// seenLayouts are tried in order; date-only values are read as UTC midnight
var seenLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// seenTime parses a firstSeen/lastSeen value. Unparseable values are logged
// and treated as absent, so the store falls back to the ingestion time.
func (s *Service) seenTime(field, platformID string, v *string) *time.Time {
	t, err := parseSeen(v)
	if err != nil {
		s.Logger.Warn().Err(err).Str("platform_id", platformID).Str("field", field).Msg("Ignoring unparseable timestamp")
	}
	return t
}

func parseSeen(v *string) (*time.Time, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	raw := strings.TrimSpace(*v)
	for _, layout := range seenLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised timestamp %q", raw)
}
