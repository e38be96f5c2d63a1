package models

import "time"

// NicheTarget describes one search seed of a crawl cycle.
type NicheTarget struct {
	Name     string `json:"name" yaml:"name"`
	Query    string `json:"query" yaml:"query"`
	Category string `json:"category" yaml:"category"`
	Country  string `json:"country" yaml:"country"`
}

// AssetType classifies a creative asset
type AssetType string

const (
	AssetImage AssetType = "image"
	AssetVideo AssetType = "video"
	AssetOther AssetType = "other"
)

// Valid reports whether t is one of the known asset types
func (t AssetType) Valid() bool {
	switch t {
	case AssetImage, AssetVideo, AssetOther:
		return true
	}
	return false
}

// CreativeAsset is one image or video attached to an ad
type CreativeAsset struct {
	URL  string    `json:"url"`
	Type AssetType `json:"type"`
}

// ScrapedAd is the raw extraction of one ad card, before normalization
type ScrapedAd struct {
	PlatformID     string          `json:"platformId"`
	AdURL          string          `json:"adUrl"`
	AdText         string          `json:"adText,omitempty"`
	PageName       string          `json:"pageName,omitempty"`
	PageProfileURL string          `json:"pageProfileUrl,omitempty"`
	LandingPageURL string          `json:"landingPageUrl,omitempty"`
	CreativeAssets []CreativeAsset `json:"creativeAssets"`
	RunStatus      string          `json:"runStatus,omitempty"`
	Impressions    string          `json:"impressions,omitempty"`
	Country        string          `json:"country,omitempty"`
	RawHTML        string          `json:"rawHtml,omitempty"`
}

// AdRaw carries audit-only data attached to an ad
type AdRaw struct {
	HTMLSample string `json:"htmlSample,omitempty"`
}

// Ad is the normalized ad record exchanged with the ingestion endpoint.
// Optional fields are pointers so that explicit nulls survive a round trip.
type Ad struct {
	PlatformID     string          `json:"platformId"`
	AdURL          string          `json:"adUrl"`
	AdText         *string         `json:"adText"`
	PageName       *string         `json:"pageName"`
	PageProfileURL *string         `json:"pageProfileUrl"`
	LandingPageURL *string         `json:"landingPageUrl"`
	CreativeAssets []CreativeAsset `json:"creativeAssets"`
	RunStatus      *string         `json:"runStatus"`
	Country        string          `json:"country,omitempty"`
	Impressions    *string         `json:"impressions"`
	FrequencyScore *float64        `json:"frequencyScore,omitempty"`
	FirstSeen      *string         `json:"firstSeen,omitempty"`
	LastSeen       *string         `json:"lastSeen,omitempty"`
	IsLikelyScaled bool            `json:"isLikelyScaled"`
	Raw            *AdRaw          `json:"raw,omitempty"`
}

// ImportPayload is the body POSTed to the ingestion endpoint
type ImportPayload struct {
	Category string `json:"category"`
	Niche    string `json:"niche"`
	Country  string `json:"country,omitempty"`
	Source   string `json:"source"`
	Ads      []Ad   `json:"ads"`
}

// ImportAction tells whether an ingestion created or updated an offer
type ImportAction string

const (
	ActionCreated ImportAction = "created"
	ActionUpdated ImportAction = "updated"
)

// ImportResult is the per-ad outcome of an ingestion request
type ImportResult struct {
	PlatformID string       `json:"platformId"`
	OfferID    string       `json:"offerId,omitempty"`
	Action     ImportAction `json:"action,omitempty"`
	IsScaled   bool         `json:"isScaled"`
	Status     string       `json:"status,omitempty"`
	Message    string       `json:"message,omitempty"`
}

// ImportResponse is the 200 body of the ingestion endpoint
type ImportResponse struct {
	Success   bool           `json:"success"`
	Processed int            `json:"processed"`
	Results   []ImportResult `json:"results"`
}

// Snapshot is the audit record written once per niche and cycle
type Snapshot struct {
	Niche       string    `json:"niche"`
	CollectedAt time.Time `json:"collectedAt"`
	Ads         []Ad      `json:"ads"`
}

// StringPtr returns nil for an empty string and a pointer to s otherwise
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed string or "" for nil
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
