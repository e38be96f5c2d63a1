// internal/engine/dynamic/extractor.go
package dynamic

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/adscout/internal/engine"
	urlutil "github.com/law-makers/adscout/internal/utils/url"
	"github.com/law-makers/adscout/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// CardSelector matches one ad card in the Ad Library result list
const CardSelector = "[data-ad-preview-id]"

// MaxRawHTML caps the audit sample kept per card
const MaxRawHTML = 8000

var (
	textSelectors = []string{
		`[data-ad-preview-detail="ad_creative_body_text"]`,
		`[data-ad-preview-detail="ad_creative_body"]`,
		`[data-test-id="ad-library-ad-message"]`,
		`[dir="auto"]`,
	}
	landingSelectors = []string{
		`a[href*="l.facebook.com/l.php"]`,
		`a[rel="noopener nofollow"]`,
	}
	pageSelectors = []string{
		`[data-pagelet*="PageHeader"] a[href*="facebook.com"]`,
		`a[aria-label][href*="facebook.com"]`,
	}
	creativeSelector = `img[src], video[src], video source[src], img[data-src]`
)

// ParseCards parses the outer HTML of each card. Cards that carry no usable
// identity are skipped and logged.
func ParseCards(cards []string, baseURL, country string) []models.ScrapedAd {
	ads := make([]models.ScrapedAd, 0, len(cards))
	for i, card := range cards {
		ad, err := ParseCard(card, baseURL)
		if err != nil {
			log.Debug().Err(err).Int("card", i).Msg("Skipping ad card")
			continue
		}
		ad.Country = country
		ads = append(ads, ad)
	}
	return ads
}

// ParseCard extracts one ad from a card's outer HTML.
//
// The ad id comes from data-ad-preview-id. Cards without it get a stable id
// derived from their text and first creative, so repeated sightings still
// dedupe; cards with neither are rejected.
func ParseCard(cardHTML, baseURL string) (models.ScrapedAd, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cardHTML))
	if err != nil {
		return models.ScrapedAd{}, engine.NewEngineError(engine.ErrCodeParseError, "parse card", err)
	}

	card := doc.Find(CardSelector).First()
	if card.Length() == 0 {
		card = doc.Find("body")
	}

	ad := models.ScrapedAd{
		AdText:         firstText(card, textSelectors),
		CreativeAssets: creatives(card, baseURL),
		RunStatus:      strings.TrimSpace(card.Find(`[data-ad-preview-detail="ad_delivery_start_end"]`).First().Text()),
		Impressions:    strings.TrimSpace(card.Find(`[data-ad-preview-detail="impressions"]`).First().Text()),
	}

	if a := firstMatch(card, landingSelectors); a != nil {
		if href, ok := a.Attr("href"); ok {
			ad.LandingPageURL = urlutil.ResolveURL(baseURL, href)
		}
	}
	if a := firstMatch(card, pageSelectors); a != nil {
		ad.PageName = strings.TrimSpace(a.Text())
		if href, ok := a.Attr("href"); ok {
			ad.PageProfileURL = urlutil.ResolveURL(baseURL, href)
		}
	}

	id := strings.TrimSpace(card.AttrOr("data-ad-preview-id", ""))
	if id == "" {
		firstCreative := ""
		if len(ad.CreativeAssets) > 0 {
			firstCreative = ad.CreativeAssets[0].URL
		}
		if ad.AdText == "" && firstCreative == "" {
			return models.ScrapedAd{}, engine.NewEngineError(engine.ErrCodeParseError, "card has no id, text or creatives", engine.ErrParseError)
		}
		id = StableID(ad.AdText, firstCreative)
	}
	ad.PlatformID = id
	ad.AdURL = urlutil.AdLibraryURL(baseURL, id)

	if raw, err := CleanHTML(card); err == nil {
		ad.RawHTML = truncate(raw, MaxRawHTML)
	} else {
		log.Debug().Err(err).Str("platform_id", id).Msg("Could not render raw card sample")
	}

	return ad, nil
}

// StableID derives a deterministic id for cards that lack one
func StableID(text, firstCreativeURL string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + firstCreativeURL))
	return "h-" + hex.EncodeToString(sum[:])[:16]
}

// CleanHTML renders the selection without scripts, styles and event handler attributes
func CleanHTML(sel *goquery.Selection) (string, error) {
	if sel.Length() == 0 {
		return "", fmt.Errorf("empty selection")
	}
	clone := sel.Clone()
	clone.Find("script, style, noscript, svg").Remove()

	var buf bytes.Buffer
	for _, n := range clone.Nodes {
		stripAttributes(n)
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func stripAttributes(n *html.Node) {
	if n.Type == html.ElementNode {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			if key == "style" || strings.HasPrefix(key, "on") {
				continue
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		stripAttributes(c)
	}
}

func creatives(card *goquery.Selection, baseURL string) []models.CreativeAsset {
	var assets []models.CreativeAsset
	card.Find(creativeSelector).Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" {
			src = strings.TrimSpace(s.AttrOr("data-src", ""))
		}
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}

		typ := models.AssetImage
		switch goquery.NodeName(s) {
		case "video":
			typ = models.AssetVideo
		case "source":
			if s.ParentsFiltered("video").Length() > 0 {
				typ = models.AssetVideo
			}
		}
		assets = append(assets, models.CreativeAsset{URL: urlutil.ResolveURL(baseURL, src), Type: typ})
	})
	return assets
}

func firstText(card *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(card.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func firstMatch(card *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if s := card.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
