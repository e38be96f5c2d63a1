// Package normalize turns raw card extractions into ingestion-ready ads.
package normalize

import (
	"strings"
	"unicode/utf8"

	"github.com/law-makers/adscout/internal/cache"
	"github.com/law-makers/adscout/internal/scaling"
	urlutil "github.com/law-makers/adscout/internal/utils/url"
	"github.com/law-makers/adscout/pkg/models"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
)

// MaxTextRunes caps sanitized ad text
const MaxTextRunes = 1000

// MaxHTMLSample caps the audit HTML carried on each ad
const MaxHTMLSample = 8000

// samplePolicy keeps card structure for auditing and drops scripts, styles
// and event handlers.
var samplePolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("div", "span", "video", "source")
	p.AllowAttrs("class", "role", "aria-label", "data-testid").Globally()
	p.AllowAttrs("src", "poster").OnElements("video", "source")
	return p
}()

// Normalizer cleans scraped ads and tracks how often each id was seen in this process.
type Normalizer struct {
	Counter *cache.RunCounter
}

// New returns a Normalizer backed by counter; a nil counter gets a default-sized one.
func New(counter *cache.RunCounter) *Normalizer {
	if counter == nil {
		counter = cache.NewRunCounter(0)
	}
	return &Normalizer{Counter: counter}
}

// Normalize returns one Ad per input that has an http(s) ad URL and at least
// one usable creative asset. Every kept ad increments the run counter exactly once.
func (n *Normalizer) Normalize(raw []models.ScrapedAd, country string) []models.Ad {
	out := make([]models.Ad, 0, len(raw))
	for _, r := range raw {
		if urlutil.ValidateURL(r.AdURL) != nil {
			log.Debug().Str("platform_id", r.PlatformID).Str("ad_url", r.AdURL).Msg("Dropping ad with unusable ad URL")
			continue
		}
		assets := DedupeCreatives(r.CreativeAssets)
		if len(assets) == 0 {
			log.Debug().Str("platform_id", r.PlatformID).Msg("Dropping ad without creatives")
			continue
		}

		runs := n.Counter.Increment(r.PlatformID)

		ad := models.Ad{
			PlatformID:     r.PlatformID,
			AdURL:          r.AdURL,
			AdText:         SanitizeText(r.AdText),
			PageName:       models.StringPtr(strings.TrimSpace(r.PageName)),
			PageProfileURL: httpURL(models.StringPtr(strings.TrimSpace(r.PageProfileURL))),
			LandingPageURL: DecodeLandingURL(models.StringPtr(strings.TrimSpace(r.LandingPageURL))),
			CreativeAssets: assets,
			RunStatus:      models.StringPtr(collapse(r.RunStatus)),
			Impressions:    models.StringPtr(collapse(r.Impressions)),
			Country:        firstNonEmpty(r.Country, country),
			IsLikelyScaled: scaling.IsLikelyScaled(len(assets), runs),
		}
		if r.RawHTML != "" {
			ad.Raw = &models.AdRaw{HTMLSample: ScrubHTML(r.RawHTML)}
		}
		out = append(out, ad)
	}
	return out
}

// DedupeCreatives removes assets whose URL is repeated or not an absolute
// http(s) URL (blob: and data: sources included), keeping first-seen order.
// Unknown asset types are reported as image.
func DedupeCreatives(assets []models.CreativeAsset) []models.CreativeAsset {
	seen := make(map[string]struct{}, len(assets))
	out := make([]models.CreativeAsset, 0, len(assets))
	for _, a := range assets {
		u := strings.TrimSpace(a.URL)
		if urlutil.ValidateURL(u) != nil {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		if !a.Type.Valid() {
			a.Type = models.AssetImage
		}
		a.URL = u
		out = append(out, a)
	}
	return out
}

// DecodeLandingURL unwraps redirect-wrapped landing URLs. nil stays nil, and
// so does anything that is not an http(s) URL once unwrapped (javascript:, #).
func DecodeLandingURL(raw *string) *string {
	if raw == nil {
		return nil
	}
	decoded := urlutil.DecodeRedirect(*raw)
	return httpURL(&decoded)
}

func httpURL(s *string) *string {
	if s == nil || urlutil.ValidateURL(*s) != nil {
		return nil
	}
	return s
}

// SanitizeText collapses whitespace, trims and caps the length. The input is
// already plain text, so angle brackets are kept as written.
// Text that ends up empty is returned as nil.
func SanitizeText(s string) *string {
	if s == "" {
		return nil
	}
	clean := collapse(s)
	if clean == "" {
		return nil
	}
	if utf8.RuneCountInString(clean) > MaxTextRunes {
		clean = string([]rune(clean)[:MaxTextRunes])
	}
	return &clean
}

// ScrubHTML strips active content from a card's HTML and caps it at MaxHTMLSample bytes
func ScrubHTML(s string) string {
	return truncateBytes(samplePolicy.Sanitize(s), MaxHTMLSample)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	// don't split a multi-byte rune
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
