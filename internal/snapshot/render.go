package snapshot

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	urlutil "github.com/law-makers/adscout/internal/utils/url"
	"github.com/law-makers/adscout/pkg/models"
	"golang.org/x/net/html"
)

// Formats accepted by Render
const (
	FormatMarkdown = "md"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// Render writes snap to w in the given format
func Render(w io.Writer, snap *models.Snapshot, format string) error {
	switch format {
	case FormatMarkdown, "markdown", "":
		return RenderMarkdown(w, snap)
	case FormatCSV:
		return WriteCSV(w, snap)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	default:
		return fmt.Errorf("unsupported format %q (must be md, csv or json)", format)
	}
}

// RenderMarkdown writes a summary table followed by each ad's card converted to Markdown
func RenderMarkdown(w io.Writer, snap *models.Snapshot) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\nCollected at %s, %d ads.\n\n", snap.Niche, snap.CollectedAt.Format("2006-01-02 15:04:05 MST"), len(snap.Ads))
	sb.WriteString("| Ad | Page | Creatives | Scaled | Landing |\n|---|---|---|---|---|\n")
	for _, ad := range snap.Ads {
		fmt.Fprintf(&sb, "| [%s](%s) | %s | %d | %s | %s |\n",
			cell(ad.PlatformID), ad.AdURL, cell(models.Deref(ad.PageName)),
			len(ad.CreativeAssets), yesNo(ad.IsLikelyScaled), cell(models.Deref(ad.LandingPageURL)))
	}

	converter := newConverter()
	for _, ad := range snap.Ads {
		fmt.Fprintf(&sb, "\n## %s\n\n", ad.PlatformID)
		if text := models.Deref(ad.AdText); text != "" {
			fmt.Fprintf(&sb, "> %s\n\n", text)
		}
		if ad.Raw == nil || ad.Raw.HTMLSample == "" {
			continue
		}
		cleaned, err := CleanHTML(ad.Raw.HTMLSample)
		if err != nil {
			return fmt.Errorf("clean card %s: %w", ad.PlatformID, err)
		}
		mdStr, err := converter.ConvertString(cleaned)
		if err != nil {
			return fmt.Errorf("convert card %s: %w", ad.PlatformID, err)
		}
		sb.WriteString(strings.TrimSpace(mdStr))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func newConverter() *md.Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	// redirect-wrapped links are unwrapped so the markdown points at the advertiser
	converter.AddRules(md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			href, exists := selec.Attr("href")
			if !exists {
				return nil
			}
			str := fmt.Sprintf("[%s](%s)", strings.TrimSpace(selec.Text()), urlutil.DecodeRedirect(href))
			return &str
		},
	})
	return converter
}

// WriteCSV writes one row per ad
func WriteCSV(w io.Writer, snap *models.Snapshot) error {
	writer := csv.NewWriter(w)

	header := []string{"niche", "platform_id", "ad_url", "page_name", "landing_page_url", "creatives", "run_status", "impressions", "likely_scaled", "ad_text"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, ad := range snap.Ads {
		row := []string{
			snap.Niche,
			ad.PlatformID,
			ad.AdURL,
			models.Deref(ad.PageName),
			models.Deref(ad.LandingPageURL),
			strconv.Itoa(len(ad.CreativeAssets)),
			models.Deref(ad.RunStatus),
			models.Deref(ad.Impressions),
			strconv.FormatBool(ad.IsLikelyScaled),
			models.Deref(ad.AdText),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// CleanHTML removes unwanted elements and attributes to produce a safe HTML excerpt
func CleanHTML(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, link, meta, noscript, iframe, svg, form, input, button, select, textarea, canvas").Remove()

	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		node := s.Nodes[0]
		var kept []html.Attribute
		for _, attr := range node.Attr {
			switch {
			case node.Data == "a" && (attr.Key == "href" || attr.Key == "title"):
				kept = append(kept, attr)
			case (node.Data == "img" || node.Data == "video") && (attr.Key == "src" || attr.Key == "alt"):
				kept = append(kept, attr)
			}
		}
		node.Attr = kept
	})

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}

func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", "\\|"), "\n", " ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
