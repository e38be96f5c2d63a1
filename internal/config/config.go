package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/law-makers/adscout/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Browser
	UserAgent         string
	ChromePath        string
	Headless          bool
	Proxies           []string
	BaseURL           string
	NavigationTimeout time.Duration
	WaitForResults    time.Duration
	MaxAdsPerNiche    int
	ScrollStep        int
	ScrollDelay       time.Duration
	MaxScrollSteps    int

	// Navigation pacing
	NavigationRPS   float64
	NavigationBurst int

	// Scheduling
	Schedule       string
	RunOnce        bool
	CycleTimeout   time.Duration
	DefaultCountry string
	Niches         []models.NicheTarget
	NichesFile     string
	RunCounterSize int

	// Snapshots
	OutputDir string

	// Ingestion client
	APIURL      string
	APISecret   string
	HTTPTimeout time.Duration

	// Ingestion API
	ListenAddr    string
	CatalogDriver string
	CatalogDSN    string
	MaxBodyBytes  int64
}

// Load builds a Config by combining defaults, an optional niche file, environment variables, and CLI flags.
// Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		UserAgent:         DefaultUserAgent,
		Headless:          DefaultHeadless,
		BaseURL:           DefaultBaseURL,
		NavigationTimeout: DefaultNavigationTimeout,
		WaitForResults:    DefaultWaitForResults,
		MaxAdsPerNiche:    DefaultMaxAdsPerNiche,
		ScrollStep:        DefaultScrollStep,
		ScrollDelay:       DefaultScrollDelay,
		MaxScrollSteps:    DefaultMaxScrollSteps,
		NavigationRPS:     DefaultNavigationRPS,
		NavigationBurst:   DefaultNavigationBurst,
		Schedule:          DefaultSchedule,
		CycleTimeout:      DefaultCycleTimeout,
		DefaultCountry:    DefaultCountry,
		RunCounterSize:    DefaultRunCounterSize,
		OutputDir:         DefaultOutputDir,
		APIURL:            DefaultAPIURL,
		HTTPTimeout:       DefaultHTTPTimeout,
		ListenAddr:        DefaultListenAddr,
		CatalogDriver:     DefaultCatalogDriver,
		CatalogDSN:        DefaultCatalogDSN,
		MaxBodyBytes:      DefaultMaxBodyBytes,
	}

	// Override from environment variables
	cfg.Schedule = envString("FB_SCRAPER_CRON", cfg.Schedule)
	cfg.DefaultCountry = envString("FB_SCRAPER_COUNTRY", cfg.DefaultCountry)
	cfg.MaxAdsPerNiche = envInt("FB_SCRAPER_MAX_ADS", cfg.MaxAdsPerNiche)
	cfg.WaitForResults = time.Duration(envInt("FB_SCRAPER_WAIT_MS", int(cfg.WaitForResults/time.Millisecond))) * time.Millisecond
	cfg.OutputDir = envString("FB_SCRAPER_OUTPUT_DIR", cfg.OutputDir)
	cfg.CycleTimeout = envDuration("FB_SCRAPER_CYCLE_TIMEOUT", cfg.CycleTimeout)
	cfg.BaseURL = strings.TrimRight(envString("FB_SCRAPER_BASE_URL", cfg.BaseURL), "/")
	cfg.NichesFile = envString("FB_SCRAPER_NICHES_FILE", cfg.NichesFile)
	cfg.Proxies = splitList(os.Getenv("FB_SCRAPER_PROXIES"))
	cfg.Headless = envBool("FB_SCRAPER_HEADLESS", cfg.Headless)
	cfg.UserAgent = envString("FB_SCRAPER_USER_AGENT", cfg.UserAgent)
	cfg.ChromePath = os.Getenv("CHROME_PATH")
	cfg.APIURL = envString("SCRAPER_API_URL", cfg.APIURL)
	cfg.APISecret = os.Getenv("SCRAPER_API_SECRET")
	cfg.RunOnce = envBool("SCRAPER_RUN_ONCE", cfg.RunOnce)
	cfg.ListenAddr = envString("ADSCOUT_LISTEN", cfg.ListenAddr)
	cfg.CatalogDriver = envString("CATALOG_DRIVER", cfg.CatalogDriver)
	cfg.CatalogDSN = envString("CATALOG_DSN", cfg.CatalogDSN)

	// Read CLI flags if provided
	if cmd != nil {
		if f := cmd.Flags().Lookup("user-agent"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.UserAgent = s
			}
		}
		if f := cmd.Flags().Lookup("proxy"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.Proxies = splitList(s)
			}
		}
		if f := cmd.Flags().Lookup("timeout"); f != nil {
			if s := f.Value.String(); s != "" {
				if d, err := time.ParseDuration(s); err == nil {
					cfg.NavigationTimeout = d
				}
			}
		}
		if f := cmd.Flags().Lookup("config"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.NichesFile = s
			}
		}
		if f := cmd.Flags().Lookup("catalog-driver"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.CatalogDriver = s
			}
		}
		if f := cmd.Flags().Lookup("catalog-dsn"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.CatalogDSN = s
			}
		}
		if f := cmd.Flags().Lookup("json"); f != nil {
			if f.Value.String() == "true" {
				cfg.JSONLog = true
			}
		}
		if f := cmd.Flags().Lookup("quiet"); f != nil {
			if f.Value.String() == "true" {
				cfg.LogLevel = "error"
			}
		}
		if f := cmd.Flags().Lookup("verbose"); f != nil {
			if f.Value.String() == "true" {
				cfg.LogLevel = "debug"
			}
		}
	}

	cfg.Niches = ResolveNiches(os.Getenv("FB_SCRAPER_NICHES"), cfg.NichesFile, cfg.DefaultCountry)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-numeric environment value")
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring invalid duration")
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
