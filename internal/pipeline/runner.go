// Package pipeline runs crawl cycles: crawl, normalize, snapshot and send, one niche at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/law-makers/adscout/internal/engine"
	"github.com/law-makers/adscout/internal/normalize"
	"github.com/law-makers/adscout/pkg/models"
	"github.com/rs/zerolog"
)

// Sender delivers a normalized batch to the ingestion endpoint
type Sender interface {
	Send(ctx context.Context, niche models.NicheTarget, country string, ads []models.Ad) (*models.ImportResponse, error)
}

// SnapshotSaver writes the audit copy of a batch
type SnapshotSaver interface {
	Save(niche string, ads []models.Ad) (string, error)
}

// NicheReport summarizes one niche of a cycle
type NicheReport struct {
	Niche        string
	Country      string
	Scraped      int
	Normalized   int
	Skipped      bool
	SnapshotPath string
	Response     *models.ImportResponse
	Err          error
	Elapsed      time.Duration
}

// Failed reports whether the niche ended with an error
func (r NicheReport) Failed() bool { return r.Err != nil }

// CycleReport is the outcome of one full cycle
type CycleReport struct {
	StartedAt time.Time
	Elapsed   time.Duration
	Niches    []NicheReport
	// Aborted is set when the cycle deadline or a cancellation cut it short
	Aborted bool
}

// Failures counts niches that ended with an error
func (c CycleReport) Failures() int {
	n := 0
	for _, r := range c.Niches {
		if r.Failed() {
			n++
		}
	}
	return n
}

// ProgressFunc is called after every niche with the number completed so far
type ProgressFunc func(done, total int, report NicheReport)

// Runner wires the crawl stages together. Snapshots may be nil.
type Runner struct {
	Crawler        engine.Crawler
	Normalizer     *normalize.Normalizer
	Snapshots      SnapshotSaver
	Sender         Sender
	DefaultCountry string
	CycleTimeout   time.Duration
	Logger         zerolog.Logger
	OnProgress     ProgressFunc
}

// RunNiche processes a single niche. A niche that yields no usable ads is
// skipped without writing a snapshot or calling the sender.
func (r *Runner) RunNiche(ctx context.Context, niche models.NicheTarget) NicheReport {
	start := time.Now()
	country := niche.Country
	if country == "" {
		country = r.DefaultCountry
	}
	report := NicheReport{Niche: niche.Name, Country: country}
	logger := r.Logger.With().Str("niche", niche.Name).Str("country", country).Logger()

	raw, err := r.Crawler.Crawl(ctx, niche)
	if err != nil {
		report.Err = fmt.Errorf("crawl %s: %w", niche.Name, err)
		report.Elapsed = time.Since(start)
		logger.Error().Err(err).Str("code", string(engine.CodeOf(err))).Msg("Crawl failed")
		return report
	}
	report.Scraped = len(raw)

	ads := r.Normalizer.Normalize(raw, country)
	report.Normalized = len(ads)
	if len(ads) == 0 {
		report.Skipped = true
		report.Elapsed = time.Since(start)
		logger.Info().Int("scraped", len(raw)).Msg("No ads found, skipping niche")
		return report
	}

	if r.Snapshots != nil {
		path, err := r.Snapshots.Save(niche.Name, ads)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to write snapshot")
		} else {
			report.SnapshotPath = path
			logger.Debug().Str("path", path).Msg("Snapshot written")
		}
	}

	resp, err := r.Sender.Send(ctx, niche, country, ads)
	if err != nil {
		report.Err = fmt.Errorf("send %s: %w", niche.Name, err)
		report.Elapsed = time.Since(start)
		logger.Error().Err(err).Int("ads", len(ads)).Msg("Failed to send batch")
		return report
	}
	report.Response = resp
	report.Elapsed = time.Since(start)

	event := logger.Info().Int("ads", len(ads))
	if resp != nil {
		event = event.Int("processed", resp.Processed)
	}
	event.Dur("elapsed", report.Elapsed).Msg("Niche synced")
	return report
}

// RunCycle processes niches strictly in order. A failing niche is recorded and
// the cycle moves on; only the cycle deadline or ctx cancellation stops it early.
func (r *Runner) RunCycle(ctx context.Context, niches []models.NicheTarget) CycleReport {
	start := time.Now()
	if r.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.CycleTimeout)
		defer cancel()
	}

	report := CycleReport{StartedAt: start, Niches: make([]NicheReport, 0, len(niches))}
	r.Logger.Info().Int("niches", len(niches)).Msg("Starting crawl cycle")

	for i, niche := range niches {
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			ev := r.Logger.Warn().Int("remaining", len(niches)-i)
			if errors.Is(err, context.DeadlineExceeded) {
				ev.Msg("Cycle deadline reached, skipping remaining niches")
			} else {
				ev.Msg("Cycle cancelled, skipping remaining niches")
			}
			break
		}

		nr := r.RunNiche(ctx, niche)
		report.Niches = append(report.Niches, nr)
		if r.OnProgress != nil {
			r.OnProgress(i+1, len(niches), nr)
		}
	}

	report.Elapsed = time.Since(start)
	r.Logger.Info().
		Int("niches", len(report.Niches)).
		Int("failures", report.Failures()).
		Bool("aborted", report.Aborted).
		Dur("elapsed", report.Elapsed).
		Msg("Crawl cycle finished")
	return report
}
