// internal/engine/dynamic/scraper.go
package dynamic

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/law-makers/adscout/internal/config"
	"github.com/law-makers/adscout/internal/engine"
	"github.com/law-makers/adscout/internal/proxy"
	"github.com/law-makers/adscout/internal/ratelimit"
	urlutil "github.com/law-makers/adscout/internal/utils/url"
	"github.com/law-makers/adscout/pkg/models"
	"github.com/rs/zerolog"
)

// Options tune a crawl
type Options struct {
	BaseURL           string
	DefaultCountry    string
	UserAgent         string
	ChromePath        string
	Headless          bool
	NavigationTimeout time.Duration
	WaitForResults    time.Duration
	MaxAds            int
	ScrollStep        int
	ScrollDelay       time.Duration
	MaxScrollSteps    int
}

// OptionsFromConfig maps the application config onto crawl options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:           cfg.BaseURL,
		DefaultCountry:    cfg.DefaultCountry,
		UserAgent:         cfg.UserAgent,
		ChromePath:        cfg.ChromePath,
		Headless:          cfg.Headless,
		NavigationTimeout: cfg.NavigationTimeout,
		WaitForResults:    cfg.WaitForResults,
		MaxAds:            cfg.MaxAdsPerNiche,
		ScrollStep:        cfg.ScrollStep,
		ScrollDelay:       cfg.ScrollDelay,
		MaxScrollSteps:    cfg.MaxScrollSteps,
	}
}

// Scraper implements engine.Crawler using headless Chrome.
// Each Crawl call runs in its own browser process, torn down before returning.
type Scraper struct {
	opts    Options
	limiter ratelimit.RateLimiter
	proxies *proxy.Rotation
	logger  zerolog.Logger
}

// New creates a Scraper with dependency injection. limiter and proxies may be nil.
func New(opts Options, lim ratelimit.RateLimiter, proxies *proxy.Rotation, logger zerolog.Logger) *Scraper {
	if opts.BaseURL == "" {
		opts.BaseURL = config.DefaultBaseURL
	}
	if opts.DefaultCountry == "" {
		opts.DefaultCountry = config.DefaultCountry
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = config.DefaultNavigationTimeout
	}
	if opts.MaxAds <= 0 {
		opts.MaxAds = config.DefaultMaxAdsPerNiche
	}
	if opts.ScrollStep <= 0 {
		opts.ScrollStep = config.DefaultScrollStep
	}
	if opts.ScrollDelay <= 0 {
		opts.ScrollDelay = config.DefaultScrollDelay
	}
	if opts.MaxScrollSteps <= 0 {
		opts.MaxScrollSteps = config.DefaultMaxScrollSteps
	}
	if proxies == nil {
		proxies = proxy.NewRotation(nil, 0)
	}
	return &Scraper{opts: opts, limiter: lim, proxies: proxies, logger: logger}
}

// Name returns the name of this crawler
func (s *Scraper) Name() string {
	return "AdLibraryScraper"
}

// SearchURL returns the Ad Library search page for a niche
func (s *Scraper) SearchURL(niche models.NicheTarget) string {
	return urlutil.SearchURL(s.opts.BaseURL, s.country(niche), niche.Query)
}

func (s *Scraper) country(niche models.NicheTarget) string {
	if niche.Country != "" {
		return niche.Country
	}
	return s.opts.DefaultCountry
}

// Crawl opens a browser, loads the niche's search page, scrolls to load
// more cards and returns up to MaxAds raw extractions.
func (s *Scraper) Crawl(ctx context.Context, niche models.NicheTarget) ([]models.ScrapedAd, error) {
	start := time.Now()
	searchURL := s.SearchURL(niche)
	px := s.proxies.Next()

	logger := s.logger.With().Str("niche", niche.Name).Str("scraper", s.Name()).Logger()
	logger.Debug().Str("url", searchURL).Str("proxy", px).Msg("Starting crawl")

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, searchURL); err != nil {
			return nil, engine.Classify(engine.ErrCodeNavigation, "wait for navigation slot", err)
		}
	}

	browserCtx, closeSession := NewSession(ctx, SessionOptions{
		Headless:   s.opts.Headless,
		UserAgent:  s.opts.UserAgent,
		Proxy:      px,
		ChromePath: s.opts.ChromePath,
	})
	defer closeSession()

	if err := s.navigate(browserCtx, searchURL); err != nil {
		s.proxies.MarkFailed(px)
		return nil, err.WithDetail("url", searchURL).WithDetail("proxy", px)
	}
	s.proxies.MarkHealthy(px)

	if err := sleep(browserCtx, s.opts.WaitForResults); err != nil {
		return nil, engine.Classify(engine.ErrCodeTimeout, "wait for results", err)
	}

	steps, err := s.autoScroll(browserCtx)
	if err != nil {
		return nil, engine.Classify(engine.ErrCodeBrowserCrash, "auto scroll", err)
	}

	cards, err := s.collectCards(browserCtx)
	if err != nil {
		return nil, engine.Classify(engine.ErrCodeBrowserCrash, "collect ad cards", err)
	}

	ads := ParseCards(cards, s.opts.BaseURL, s.country(niche))

	logger.Info().
		Int("cards", len(cards)).
		Int("ads", len(ads)).
		Int("scroll_steps", steps).
		Dur("elapsed", time.Since(start)).
		Msg("Crawl completed")

	return ads, nil
}

// navigate loads url under the hard navigation timeout
func (s *Scraper) navigate(ctx context.Context, url string) *engine.EngineError {
	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()

	err := chromedp.Run(navCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return engine.Classify(engine.ErrCodeNavigation, "navigate to search page", err)
	}
	return nil
}

// autoScroll scrolls in fixed steps until the scrolled distance reaches the
// page height and the height stopped growing, or MaxScrollSteps is hit.
func (s *Scraper) autoScroll(ctx context.Context) (int, error) {
	script := fmt.Sprintf(`window.scrollBy(0, %d); document.body.scrollHeight`, s.opts.ScrollStep)

	scrolled, lastHeight := 0, -1
	for step := 1; step <= s.opts.MaxScrollSteps; step++ {
		var height int
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, &height)); err != nil {
			return step, err
		}
		scrolled += s.opts.ScrollStep
		if scrolled >= height && height == lastHeight {
			return step, nil
		}
		lastHeight = height

		if err := sleep(ctx, s.opts.ScrollDelay); err != nil {
			return step, err
		}
	}
	s.logger.Debug().Int("steps", s.opts.MaxScrollSteps).Msg("Scroll limit reached")
	return s.opts.MaxScrollSteps, nil
}

// collectCards returns the outer HTML of the first MaxAds cards
func (s *Scraper) collectCards(ctx context.Context) ([]string, error) {
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).slice(0, %d).map((n) => n.outerHTML)`,
		CardSelector, s.opts.MaxAds,
	)
	var cards []string
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &cards)); err != nil {
		return nil, err
	}
	return cards, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ engine.Crawler = (*Scraper)(nil)
