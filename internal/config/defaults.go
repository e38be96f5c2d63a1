package config

import (
	"time"

	"github.com/law-makers/adscout/pkg/models"
)

// Default constants for application configuration
const (
	DefaultLogLevel          = "info"
	DefaultJSONLog           = false
	DefaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119 Safari/537.36"
	DefaultBaseURL           = "https://www.facebook.com"
	DefaultHeadless          = true
	DefaultNavigationTimeout = 60 * time.Second
	DefaultWaitForResults    = 12000 * time.Millisecond
	DefaultMaxAdsPerNiche    = 15
	DefaultMaxAdsCap         = 500
	DefaultScrollStep        = 600
	DefaultScrollDelay       = 400 * time.Millisecond
	DefaultMaxScrollSteps    = 60
	DefaultNavigationRPS     = 0.2
	DefaultNavigationBurst   = 1
	DefaultSchedule          = "*/2 * * * *"
	DefaultCountry           = "BR"
	DefaultCycleTimeout      = 30 * time.Minute
	DefaultOutputDir         = "tmp/facebook-ad-library"
	DefaultAPIURL            = "http://localhost:3000/api/facebook-ads/import"
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultListenAddr        = ":3000"
	DefaultCatalogDriver     = "sqlite"
	DefaultCatalogDSN        = "data/catalog.db"
	DefaultMaxBodyBytes      = 5 << 20 // 5MB
	DefaultRunCounterSize    = 500
)

// DefaultNiches is used when no niche list is configured or the configured one is unusable.
func DefaultNiches() []models.NicheTarget {
	return []models.NicheTarget{
		{Name: "Emagrecimento", Query: "emagrecimento", Category: "Emagrecimento", Country: "BR"},
		{Name: "Finanças", Query: "investimento", Category: "Finanças", Country: "BR"},
		{Name: "Saúde", Query: "saúde", Category: "Saúde", Country: "BR"},
	}
}
