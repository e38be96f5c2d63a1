package engine

import (
	"context"

	"github.com/law-makers/adscout/pkg/models"
)

// Crawler is the interface that all ad crawling engines must implement
type Crawler interface {
	// Crawl searches the ad library for one niche and returns the raw card extractions
	Crawl(ctx context.Context, niche models.NicheTarget) ([]models.ScrapedAd, error)

	// Name returns the name of the crawler implementation
	Name() string
}
