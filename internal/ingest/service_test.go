package ingest

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/law-makers/adscout/internal/catalog"
	"github.com/law-makers/adscout/pkg/models"
	"github.com/rs/zerolog"
)

func newService(t *testing.T, skipOptional bool) *Service {
	t.Helper()
	ctx := context.Background()
	store, err := catalog.Open(ctx, catalog.DriverSQLite, ":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(ctx, catalog.MigrateOptions{SkipOptional: skipOptional}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(store, zerolog.Nop())
}

func images(n int) []models.CreativeAsset {
	out := make([]models.CreativeAsset, n)
	for i := range out {
		out[i] = models.CreativeAsset{URL: "https://cdn.example.com/" + string(rune('a'+i)) + ".jpg", Type: models.AssetImage}
	}
	return out
}

func payload(ads ...models.Ad) models.ImportPayload {
	return models.ImportPayload{Category: "Emagrecimento", Niche: "emagrecimento", Country: "BR", Source: "facebook", Ads: ads}
}

func ad(id string, creatives int, likelyScaled bool) models.Ad {
	landing := "https://example.com/" + id
	return models.Ad{
		PlatformID:     id,
		AdURL:          "https://fb.com/ads/library/?id=" + id,
		LandingPageURL: &landing,
		CreativeAssets: images(creatives),
		IsLikelyScaled: likelyScaled,
	}
}

func TestImport_IdempotentReingestion(t *testing.T) {
	svc := newService(t, false)
	ctx := context.Background()

	first, err := svc.Import(ctx, payload(ad("123", 1, false)))
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Import(ctx, payload(ad("123", 1, false)))
	if err != nil {
		t.Fatal(err)
	}

	if first.Results[0].Action != models.ActionCreated {
		t.Errorf("first action = %s", first.Results[0].Action)
	}
	if second.Results[0].Action != models.ActionUpdated || second.Results[0].OfferID != first.Results[0].OfferID {
		t.Errorf("second result = %+v", second.Results[0])
	}
	if n, _ := svc.Store.CountOffers(ctx); n != 1 {
		t.Errorf("expected exactly one offer, got %d", n)
	}
}

func TestImport_RunCountAndScaledAtMonotonic(t *testing.T) {
	svc := newService(t, false)
	ctx := context.Background()

	var offerID string
	for i := 1; i <= 4; i++ {
		resp, err := svc.Import(ctx, payload(ad("777", 1, false)))
		if err != nil {
			t.Fatal(err)
		}
		r := resp.Results[0]
		offerID = r.OfferID

		// third sighting crosses the run threshold
		if want := i >= 3; r.IsScaled != want {
			t.Errorf("ingestion %d: scaled = %v, want %v", i, r.IsScaled, want)
		}
		m, err := svc.Store.MetricsFor(ctx, offerID)
		if err != nil {
			t.Fatal(err)
		}
		if m.RunCount != i {
			t.Errorf("ingestion %d: run count = %d", i, m.RunCount)
		}
	}

	o, err := svc.Store.GetOffer(ctx, offerID)
	if err != nil {
		t.Fatal(err)
	}
	if o.ScaledAt == nil || o.Temperature != "hot" {
		t.Fatalf("offer should be scaled: %+v", o)
	}
	scaledAt := *o.ScaledAt

	if _, err := svc.Import(ctx, payload(ad("777", 1, false))); err != nil {
		t.Fatal(err)
	}
	o, _ = svc.Store.GetOffer(ctx, offerID)
	if o.ScaledAt == nil || !o.ScaledAt.Equal(scaledAt) {
		t.Errorf("scaled_at changed from %v to %v", scaledAt, o.ScaledAt)
	}
}

func TestImport_ScalingThreshold(t *testing.T) {
	svc := newService(t, false)
	ctx := context.Background()

	resp, err := svc.Import(ctx, payload(ad("three", 3, false), ad("two", 2, false)))
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Results[0].IsScaled {
		t.Error("three creatives must classify as scaled")
	}
	if resp.Results[1].IsScaled {
		t.Error("two creatives on a first sighting must not classify as scaled")
	}
}

func TestImport_EndToEndScenario(t *testing.T) {
	svc := newService(t, false)
	ctx := context.Background()

	a := models.Ad{
		PlatformID:     "123",
		AdURL:          "https://fb.com/ads/library/?id=123",
		CreativeAssets: images(3),
		IsLikelyScaled: true,
	}
	resp, err := svc.Import(ctx, models.ImportPayload{Category: "Emagrecimento", Niche: "Emagrecimento", Country: "BR", Ads: []models.Ad{a}})
	if err != nil {
		t.Fatal(err)
	}
	r := resp.Results[0]
	if !resp.Success || resp.Processed != 1 || r.Action != models.ActionCreated || !r.IsScaled {
		t.Fatalf("unexpected response: %+v", resp)
	}

	o, err := svc.Store.FindOfferByAdURL(ctx, a.AdURL)
	if err != nil {
		t.Fatal(err)
	}
	if o.Temperature != "hot" || o.ScaledAt == nil {
		t.Errorf("offer = %+v", o)
	}
	if o.Title != "Anúncio Emagrecimento" || o.MainURL != "https://cdn.example.com/a.jpg" || o.Country != "BR" || o.NicheID == nil {
		t.Errorf("offer fields = %+v", o)
	}

	m, err := svc.Store.MetricsFor(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if m.RunCount != 1 || !m.IsHighScale || m.CreativeCount != 3 {
		t.Errorf("metrics = %+v", m)
	}
	if m.Metadata["platform_id"] != "123" || m.Metadata["source"] != "facebook" {
		t.Errorf("metadata = %v", m.Metadata)
	}
}

func TestImport_WithoutOptionalTables(t *testing.T) {
	svc := newService(t, true)
	ctx := context.Background()

	resp, err := svc.Import(ctx, payload(ad("123", 3, false)))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Results[0].Status == "error" || resp.Results[0].Action != models.ActionCreated {
		t.Fatalf("import should degrade gracefully: %+v", resp.Results[0])
	}
	o, _ := svc.Store.GetOffer(ctx, resp.Results[0].OfferID)
	if o.NicheID != nil {
		t.Errorf("niche must be empty without the niches table")
	}
}

func TestImport_PerAdErrorIsolation(t *testing.T) {
	svc := newService(t, false)
	ctx := context.Background()

	// NaN cannot be encoded into the offer snapshot, so this ad fails on its own
	nan := math.NaN()
	bad := ad("bad", 1, false)
	bad.FrequencyScore = &nan

	resp, err := svc.Import(ctx, payload(bad, ad("good", 1, false)))
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 || resp.Processed != 2 {
		t.Fatalf("expected two results: %+v", resp)
	}
	if r := resp.Results[0]; r.Status != "error" || r.PlatformID != "bad" || r.Message == "" {
		t.Errorf("bad ad result = %+v", r)
	}
	if r := resp.Results[1]; r.Status == "error" || r.Action != models.ActionCreated {
		t.Errorf("good ad result = %+v", r)
	}
	if n, _ := svc.Store.CountOffers(ctx); n != 1 {
		t.Errorf("expected only the good offer, got %d", n)
	}
}

func TestHelpers(t *testing.T) {
	if got := Title("Vida Leve", "emagrecimento"); got != "Vida Leve - Emagrecimento" {
		t.Errorf("Title = %q", got)
	}
	if got := Title("", "saúde"); got != "Anúncio Saúde" {
		t.Errorf("Title = %q", got)
	}
	if got := ShortDescription("", "Pets"); got != "Anúncio coletado automaticamente para o nicho Pets" {
		t.Errorf("ShortDescription = %q", got)
	}
	if got := ShortDescription(strings.Repeat("á", 300), "x"); len([]rune(got)) != 260 {
		t.Errorf("ShortDescription length = %d", len([]rune(got)))
	}
	if Country("", "") != "BR" || Country("", "PT") != "PT" || Country("MX", "PT") != "MX" {
		t.Error("Country fallback order")
	}
	if MainURL(models.Ad{AdURL: "https://fb.com/x"}) != "https://fb.com/x" {
		t.Error("MainURL should fall back to the ad URL")
	}
}

func TestImport_TemperatureFollowsLatestSighting(t *testing.T) {
	svc := newService(t, false)
	ctx := context.Background()

	first, err := svc.Import(ctx, payload(ad("555", 3, false)))
	if err != nil {
		t.Fatal(err)
	}
	if !first.Results[0].IsScaled {
		t.Fatal("three creatives must classify as scaled")
	}
	offerID := first.Results[0].OfferID

	second, err := svc.Import(ctx, payload(ad("555", 1, false)))
	if err != nil {
		t.Fatal(err)
	}
	if second.Results[0].IsScaled {
		t.Error("second sighting with one creative must not classify as scaled")
	}

	o, err := svc.Store.GetOffer(ctx, offerID)
	if err != nil {
		t.Fatal(err)
	}
	if o.Temperature != "warm" {
		t.Errorf("temperature = %s, want warm", o.Temperature)
	}
	if o.ScaledAt == nil {
		t.Error("scaled_at must survive an unscaled sighting")
	}
}

func TestParseSeen(t *testing.T) {
	str := func(s string) *string { return &s }
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2024-03-05", "2024-03-05T00:00:00", "2024-03-05T00:00:00Z", "2024-03-05T03:00:00+03:00"} {
		got, err := parseSeen(str(in))
		if err != nil || got == nil || !got.Equal(want) {
			t.Errorf("parseSeen(%q) = %v, %v", in, got, err)
		}
	}
	if got, err := parseSeen(nil); got != nil || err != nil {
		t.Errorf("nil = %v, %v", got, err)
	}
	if got, err := parseSeen(str("5 de março")); got != nil || err == nil {
		t.Errorf("free text = %v, %v", got, err)
	}
}

func TestImport_DateOnlySeenTimes(t *testing.T) {
	svc := newService(t, false)
	ctx := context.Background()

	a := ad("888", 1, false)
	first, last := "2024-03-05", "not a date"
	a.FirstSeen, a.LastSeen = &first, &last
	resp, err := svc.Import(ctx, payload(a))
	if err != nil {
		t.Fatal(err)
	}

	m, err := svc.Store.MetricsFor(ctx, resp.Results[0].OfferID)
	if err != nil {
		t.Fatal(err)
	}
	if m.FirstSeen == nil || !m.FirstSeen.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first seen = %v", m.FirstSeen)
	}
	if m.LastSeen == nil || m.LastSeen.Before(*m.FirstSeen) {
		t.Errorf("unparseable last seen should fall back to ingestion time, got %v", m.LastSeen)
	}
}
