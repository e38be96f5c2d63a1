package api

import (
	"fmt"
	"strings"
	"unicode/utf8"

	urlutil "github.com/law-makers/adscout/internal/utils/url"
	"github.com/law-makers/adscout/pkg/models"
)

// ValidationError is the flattened shape returned in 400 responses.
// FieldErrors keys are dotted paths such as "ads.0.adUrl".
type ValidationError struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

func newValidationError() *ValidationError {
	return &ValidationError{FormErrors: []string{}, FieldErrors: map[string][]string{}}
}

func (v *ValidationError) Error() string {
	parts := make([]string, 0, len(v.FormErrors)+len(v.FieldErrors))
	parts = append(parts, v.FormErrors...)
	for path, msgs := range v.FieldErrors {
		parts = append(parts, path+": "+strings.Join(msgs, ", "))
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

func (v *ValidationError) add(path, msg string) {
	if path == "" {
		v.FormErrors = append(v.FormErrors, msg)
		return
	}
	v.FieldErrors[path] = append(v.FieldErrors[path], msg)
}

func (v *ValidationError) empty() bool {
	return len(v.FormErrors) == 0 && len(v.FieldErrors) == 0
}

// Validate checks p and fills in defaults: source becomes "facebook" and
// creative assets without a type become images.
func Validate(p *models.ImportPayload) *ValidationError {
	v := newValidationError()

	minLen(v, "category", p.Category, 2)
	minLen(v, "niche", p.Niche, 2)
	if p.Source == "" {
		p.Source = "facebook"
	}
	if len(p.Ads) == 0 {
		v.add("ads", "Array must contain at least 1 element(s)")
	}

	for i := range p.Ads {
		ad := &p.Ads[i]
		prefix := fmt.Sprintf("ads.%d.", i)

		minLen(v, prefix+"platformId", ad.PlatformID, 2)
		validURL(v, prefix+"adUrl", ad.AdURL)
		if ad.PageProfileURL != nil {
			validURL(v, prefix+"pageProfileUrl", *ad.PageProfileURL)
		}
		if ad.LandingPageURL != nil {
			validURL(v, prefix+"landingPageUrl", *ad.LandingPageURL)
		}

		if len(ad.CreativeAssets) == 0 {
			v.add(prefix+"creativeAssets", "Array must contain at least 1 element(s)")
		}
		for j := range ad.CreativeAssets {
			asset := &ad.CreativeAssets[j]
			assetPath := fmt.Sprintf("%screativeAssets.%d.", prefix, j)
			validURL(v, assetPath+"url", asset.URL)
			if asset.Type == "" {
				asset.Type = models.AssetImage
			}
			if !asset.Type.Valid() {
				v.add(assetPath+"type", fmt.Sprintf("Invalid enum value. Expected 'image' | 'video' | 'other', received '%s'", asset.Type))
			}
		}
	}

	if v.empty() {
		return nil
	}
	return v
}

func minLen(v *ValidationError, path, s string, n int) {
	if utf8.RuneCountInString(s) < n {
		v.add(path, fmt.Sprintf("String must contain at least %d character(s)", n))
	}
}

func validURL(v *ValidationError, path, s string) {
	if urlutil.ValidateURL(s) != nil {
		v.add(path, "Invalid url")
	}
}
