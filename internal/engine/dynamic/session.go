// internal/engine/dynamic/session.go
package dynamic

import (
	"context"

	"github.com/chromedp/chromedp"
	"github.com/law-makers/adscout/internal/config"
	"github.com/rs/zerolog/log"
)

// SessionOptions configures one isolated browser session
type SessionOptions struct {
	Headless   bool
	UserAgent  string
	Proxy      string
	ChromePath string
	ExtraArgs  []chromedp.ExecAllocatorOption
}

// allocatorOptions builds the exec allocator flags for a session.
// Flags keep Chrome quiet and stable inside containers.
func allocatorOptions(opts SessionOptions) []chromedp.ExecAllocatorOption {
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", "1366,900"),
		chromedp.Flag("lang", "pt-BR"),
		chromedp.UserAgent(opts.UserAgent),
	}

	if path := FindChrome(opts.ChromePath); path != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(path)}, allocOpts...)
	}

	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	return append(allocOpts, opts.ExtraArgs...)
}

// NewSession starts an isolated browser (own allocator, own profile) bound to parent.
// The returned cancel tears down both the tab and the browser process and must
// always be called, usually with defer.
func NewSession(parent context.Context, opts SessionOptions) (context.Context, context.CancelFunc) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocatorOptions(opts)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	log.Debug().Str("proxy", opts.Proxy).Bool("headless", opts.Headless).Msg("Browser session opened")

	return browserCtx, func() {
		browserCancel()
		allocCancel()
		log.Debug().Msg("Browser session closed")
	}
}
