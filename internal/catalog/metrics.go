package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Metrics is the scalability record kept 1:1 with an offer
type Metrics struct {
	OfferID          string
	CreativeCount    int
	ImpressionsRange *string
	FrequencyScore   *float64
	IsHighScale      bool
	FirstSeen        *time.Time
	LastSeen         *time.Time
	RunCount         int
	Metadata         map[string]any
}

// MetricsInput is one sighting merged by UpsertMetrics
type MetricsInput struct {
	OfferID          string
	CreativeCount    int
	ImpressionsRange *string
	FrequencyScore   *float64
	IsHighScale      bool
	FirstSeen        *time.Time
	LastSeen         *time.Time
	Metadata         map[string]any
}

func metricsFor(ctx context.Context, q querier, d dialect, offerID string) (*Metrics, error) {
	var (
		m                   Metrics
		impressions, meta   sql.NullString
		freq                sql.NullFloat64
		firstSeen, lastSeen sql.NullTime
	)
	err := q.QueryRowContext(ctx, d.rebind(`
SELECT offer_id, creative_count, impressions_range, frequency_score, is_high_scale,
       first_seen, last_seen, run_count, metadata
FROM offer_scalability_metrics WHERE offer_id = ?`), offerID,
	).Scan(&m.OfferID, &m.CreativeCount, &impressions, &freq, &m.IsHighScale,
		&firstSeen, &lastSeen, &m.RunCount, &meta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load metrics for %s: %w", offerID, err)
	}

	m.ImpressionsRange = nullString(impressions)
	if freq.Valid {
		f := freq.Float64
		m.FrequencyScore = &f
	}
	if firstSeen.Valid {
		t := firstSeen.Time
		m.FirstSeen = &t
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		m.LastSeen = &t
	}
	m.Metadata = map[string]any{}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode metrics metadata for %s: %w", offerID, err)
		}
	}
	return &m, nil
}

// MetricsFor returns the metrics of an offer. It returns ErrNotFound when
// there are none, including deployments without the metrics table.
func (s *Store) MetricsFor(ctx context.Context, offerID string) (*Metrics, error) {
	if !s.caps.Metrics {
		return nil, ErrNotFound
	}
	return metricsFor(ctx, s.db, s.d, offerID)
}

// RunCount returns the persisted run count of an offer, 0 when it has no metrics yet
func (t *Tx) RunCount(ctx context.Context, offerID string) (int, error) {
	if !t.s.caps.Metrics || offerID == "" {
		return 0, nil
	}
	m, err := metricsFor(ctx, t.q(), t.s.d, offerID)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return m.RunCount, nil
}

// UpsertMetrics merges one sighting into the offer's metrics: run_count grows
// by one, first_seen is kept once set, is_high_scale is never downgraded and
// metadata keys are merged with the new values winning.
// It returns nil without error when the deployment has no metrics table.
func (t *Tx) UpsertMetrics(ctx context.Context, in MetricsInput) (*Metrics, error) {
	if !t.s.caps.Metrics {
		return nil, nil
	}

	existing, err := metricsFor(ctx, t.q(), t.s.d, in.OfferID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	merged := map[string]any{}
	if existing != nil {
		for k, v := range existing.Metadata {
			merged[k] = v
		}
	}
	for k, v := range in.Metadata {
		merged[k] = v
	}
	meta, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode metrics metadata: %w", err)
	}

	now := t.s.now().UTC()
	firstSeen, lastSeen := now, now
	if in.FirstSeen != nil {
		firstSeen = in.FirstSeen.UTC()
	}
	if in.LastSeen != nil {
		lastSeen = in.LastSeen.UTC()
	}

	_, err = t.q().ExecContext(ctx, t.s.d.rebind(`
INSERT INTO offer_scalability_metrics (
    offer_id, creative_count, impressions_range, frequency_score, is_high_scale,
    first_seen, last_seen, run_count, metadata, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
ON CONFLICT (offer_id) DO UPDATE SET
    creative_count = excluded.creative_count,
    impressions_range = excluded.impressions_range,
    frequency_score = excluded.frequency_score,
    is_high_scale = (offer_scalability_metrics.is_high_scale OR excluded.is_high_scale),
    first_seen = COALESCE(offer_scalability_metrics.first_seen, excluded.first_seen),
    last_seen = excluded.last_seen,
    run_count = offer_scalability_metrics.run_count + 1,
    metadata = excluded.metadata,
    updated_at = excluded.updated_at`),
		in.OfferID, in.CreativeCount, in.ImpressionsRange, in.FrequencyScore, in.IsHighScale,
		firstSeen, lastSeen, string(meta), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert metrics for %s: %w", in.OfferID, err)
	}

	return metricsFor(ctx, t.q(), t.s.d, in.OfferID)
}
