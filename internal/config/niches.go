package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/law-makers/adscout/pkg/models"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// nicheEntry is the loose shape accepted from FB_SCRAPER_NICHES and niche files.
type nicheEntry struct {
	Name     string `json:"name" yaml:"name"`
	Niche    string `json:"niche" yaml:"niche"`
	Query    string `json:"query" yaml:"query"`
	Category string `json:"category" yaml:"category"`
	Country  string `json:"country" yaml:"country"`
}

type nicheFile struct {
	Niches []nicheEntry `yaml:"niches"`
}

// ResolveNiches picks the niche list for a run. A valid FB_SCRAPER_NICHES value wins,
// then the YAML file, then the built-in list.
func ResolveNiches(envJSON, file, defaultCountry string) []models.NicheTarget {
	if strings.TrimSpace(envJSON) != "" {
		niches, err := ParseNichesJSON(envJSON, defaultCountry)
		if err == nil {
			return niches
		}
		log.Warn().Err(err).Msg("FB_SCRAPER_NICHES is invalid, falling back")
	}

	if file != "" {
		niches, err := LoadNichesFile(file, defaultCountry)
		if err == nil {
			return niches
		}
		log.Warn().Err(err).Str("file", file).Msg("Niche file is unusable, using built-in niches")
	}

	return DefaultNiches()
}

// ParseNichesJSON parses a JSON array of niche entries.
func ParseNichesJSON(raw, defaultCountry string) ([]models.NicheTarget, error) {
	var entries []nicheEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("parse niches: %w", err)
	}
	return fromEntries(entries, defaultCountry)
}

// LoadNichesFile reads a YAML document with a top-level "niches" list.
func LoadNichesFile(path, defaultCountry string) ([]models.NicheTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read niche file: %w", err)
	}
	var doc nicheFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse niche file: %w", err)
	}
	return fromEntries(doc.Niches, defaultCountry)
}

func fromEntries(entries []nicheEntry, defaultCountry string) ([]models.NicheTarget, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("niche list is empty")
	}
	if defaultCountry == "" {
		defaultCountry = DefaultCountry
	}

	niches := make([]models.NicheTarget, 0, len(entries))
	for _, e := range entries {
		name := firstNonEmpty(e.Name, e.Niche, "Nicho")
		niches = append(niches, models.NicheTarget{
			Name:     name,
			Query:    firstNonEmpty(e.Query, name, "marketing"),
			Category: firstNonEmpty(e.Category, name, "Geral"),
			Country:  firstNonEmpty(e.Country, defaultCountry),
		})
	}
	return niches, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
