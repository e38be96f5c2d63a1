// Package scaling holds the heuristics that flag an ad as "likely scaled".
//
// Either signal alone is enough: many creative variants, or repeated
// sightings of the same ad across runs. Classification only ever adds the
// flag; nothing here un-flags an ad.
package scaling

// Thresholds shared by the crawler and the ingestion service.
const (
	CreativeThreshold = 3
	RunThreshold      = 3
)

// Temperature values stored on offers
const (
	TemperatureHot  = "hot"
	TemperatureWarm = "warm"
)

// IsLikelyScaled is the crawler-side rule over a normalized ad's deduplicated
// creative count and its in-process run count.
func IsLikelyScaled(creativeCount, runCount int) bool {
	return creativeCount >= CreativeThreshold || runCount >= RunThreshold
}

// ShouldMarkScaled is the catalog-side rule. persistedRuns is the run count
// stored before this ingestion, so the sighting being ingested counts as +1.
func ShouldMarkScaled(clientFlag bool, creativeCount, persistedRuns int) bool {
	return clientFlag || creativeCount >= CreativeThreshold || persistedRuns+1 >= RunThreshold
}

// Temperature maps the scaling decision to the offer temperature
func Temperature(scaled bool) string {
	if scaled {
		return TemperatureHot
	}
	return TemperatureWarm
}
