package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/law-makers/adscout/internal/retry"
	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T, skipOptional bool) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, DriverSQLite, ":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(ctx, MigrateOptions{SkipOptional: skipOptional}); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return s
}

func offerInput(categoryID string, scaled bool) OfferInput {
	temp := "warm"
	if scaled {
		temp = "hot"
	}
	return OfferInput{
		Title:          "Vida Leve - Emagrecimento",
		CategoryID:     categoryID,
		Country:        "BR",
		Temperature:    temp,
		MainURL:        "https://cdn.example.com/a.jpg",
		FacebookAdsURL: "https://fb.com/ads/library/?id=123",
		CreativeAssets: `[]`,
		Snapshot:       `{}`,
		Source:         "facebook",
		Scaled:         scaled,
	}
}

func TestRebind(t *testing.T) {
	pg := dialect{driver: DriverPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("rebind = %q", got)
	}
	lite := dialect{driver: DriverSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
	if _, err := newDialect("mysql"); err == nil {
		t.Error("expected unsupported driver error")
	}
}

func TestCapabilities(t *testing.T) {
	full := newTestStore(t, false)
	if c := full.Capabilities(); !c.Niches || !c.Metrics {
		t.Errorf("expected all capabilities, got %+v", c)
	}

	reduced := newTestStore(t, true)
	if c := reduced.Capabilities(); c.Niches || c.Metrics {
		t.Errorf("expected no optional capabilities, got %+v", c)
	}

	ctx := context.Background()
	cat, err := reduced.EnsureCategory(ctx, "Saúde")
	if err != nil {
		t.Fatal(err)
	}
	n, err := reduced.EnsureNiche(ctx, "Saúde", cat.ID)
	if err != nil || n != nil {
		t.Errorf("EnsureNiche without table = %v, %v", n, err)
	}
	if _, err := reduced.MetricsFor(ctx, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MetricsFor without table = %v", err)
	}
}

func TestEnsureTaxonomy_Idempotent(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()

	a, err := s.EnsureCategory(ctx, "Finanças")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.EnsureCategory(ctx, " Finanças ")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID || a.Slug != "financas" {
		t.Errorf("category not reused: %+v %+v", a, b)
	}

	n1, err := s.EnsureNiche(ctx, "Cripto", a.ID)
	if err != nil {
		t.Fatal(err)
	}
	n2, err := s.EnsureNiche(ctx, "Cripto", a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n1.ID != n2.ID || n1.Slug != NicheSlug(a.ID, "Cripto") {
		t.Errorf("niche not reused: %+v %+v", n1, n2)
	}
}

func TestEnsureTaxonomy_NonLatinNames(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()

	cat, err := s.EnsureCategory(ctx, "健康")
	if err != nil {
		t.Fatalf("EnsureCategory failed: %v", err)
	}
	if cat.Slug != "健康" {
		t.Errorf("category slug = %q", cat.Slug)
	}
	punct, err := s.EnsureCategory(ctx, "!!")
	if err != nil {
		t.Fatalf("punctuation-only category failed: %v", err)
	}
	if punct.ID == cat.ID {
		t.Error("distinct categories share a row")
	}

	diet, err := s.EnsureNiche(ctx, "ダイエット", cat.ID)
	if err != nil {
		t.Fatal(err)
	}
	method, err := s.EnsureNiche(ctx, "健康法", cat.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diet.ID == method.ID {
		t.Errorf("distinct niches collapsed into %s", diet.ID)
	}
	if diet.Name != "ダイエット" || method.Name != "健康法" {
		t.Errorf("niche names = %q, %q", diet.Name, method.Name)
	}
}

func TestUpsertOffer_CreateThenUpdate(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()
	cat, _ := s.EnsureCategory(ctx, "Emagrecimento")

	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }

	var first OfferOutcome
	err := s.InTx(ctx, func(tx *Tx) error {
		existing, err := tx.ResolveOffer(ctx, "https://fb.com/ads/library/?id=123", nil)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected no offer yet, got %v %v", existing, err)
		}
		first, err = tx.UpsertOffer(ctx, nil, offerInput(cat.ID, true))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if !first.Created {
		t.Fatal("first upsert should create")
	}

	s.now = func() time.Time { return t0.Add(time.Hour) }
	var second OfferOutcome
	err = s.InTx(ctx, func(tx *Tx) error {
		existing, err := tx.ResolveOffer(ctx, "https://fb.com/ads/library/?id=123", nil)
		if err != nil {
			return err
		}
		second, err = tx.UpsertOffer(ctx, existing, offerInput(cat.ID, false))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if second.Created || second.ID != first.ID || second.Sightings != 2 {
		t.Errorf("unexpected second outcome: %+v", second)
	}

	o, err := s.GetOffer(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if o.ScaledAt == nil || !o.ScaledAt.Equal(t0) {
		t.Errorf("scaled_at must keep the first timestamp, got %v", o.ScaledAt)
	}
	if !o.CreatedAt.Equal(t0) || !o.UpdatedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("timestamps: created %v updated %v", o.CreatedAt, o.UpdatedAt)
	}
	if o.Temperature != "warm" {
		t.Errorf("unscaled sighting must set warm, got %s", o.Temperature)
	}
}

func TestUpsertOffer_InsertConflictBecomesUpdate(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()
	cat, _ := s.EnsureCategory(ctx, "Emagrecimento")

	var outcomes []OfferOutcome
	for i := 0; i < 2; i++ {
		err := s.InTx(ctx, func(tx *Tx) error {
			// both calls skip resolution, as two racing requests would
			out, err := tx.UpsertOffer(ctx, nil, offerInput(cat.ID, false))
			outcomes = append(outcomes, out)
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	if !outcomes[0].Created || outcomes[1].Created || outcomes[0].ID != outcomes[1].ID {
		t.Errorf("unexpected outcomes: %+v", outcomes)
	}
	if n, _ := s.CountOffers(ctx); n != 1 {
		t.Errorf("expected one offer, got %d", n)
	}
}

func TestResolveOffer_ByLandingURL(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()
	cat, _ := s.EnsureCategory(ctx, "Emagrecimento")

	landing := "https://example.com/page"
	in := offerInput(cat.ID, false)
	in.LandingPageURL = &landing
	if err := s.InTx(ctx, func(tx *Tx) error {
		_, err := tx.UpsertOffer(ctx, nil, in)
		return err
	}); err != nil {
		t.Fatal(err)
	}

	err := s.InTx(ctx, func(tx *Tx) error {
		o, err := tx.ResolveOffer(ctx, "https://fb.com/ads/library/?id=999", &landing)
		if err != nil {
			return err
		}
		if o.FacebookAdsURL == nil || *o.FacebookAdsURL != in.FacebookAdsURL {
			t.Errorf("resolved wrong offer: %+v", o)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestUpsertMetrics_Merge(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()
	cat, _ := s.EnsureCategory(ctx, "Emagrecimento")

	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }

	var offerID string
	sight := func(highScale bool, meta map[string]any) *Metrics {
		var m *Metrics
		err := s.InTx(ctx, func(tx *Tx) error {
			out, err := tx.UpsertOffer(ctx, nil, offerInput(cat.ID, false))
			if err != nil {
				return err
			}
			offerID = out.ID
			m, err = tx.UpsertMetrics(ctx, MetricsInput{OfferID: out.ID, CreativeCount: 2, IsHighScale: highScale, Metadata: meta})
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
		return m
	}

	m1 := sight(true, map[string]any{"platform_id": "123", "run_status": "active"})
	s.now = func() time.Time { return t0.Add(time.Hour) }
	m2 := sight(false, map[string]any{"run_status": "inactive"})
	m3 := sight(false, nil)

	if m1.RunCount != 1 || m2.RunCount != 2 || m3.RunCount != 3 {
		t.Errorf("run counts: %d %d %d", m1.RunCount, m2.RunCount, m3.RunCount)
	}
	if !m3.IsHighScale {
		t.Error("is_high_scale must never be downgraded")
	}
	if m3.FirstSeen == nil || !m3.FirstSeen.Equal(t0) {
		t.Errorf("first_seen must be preserved, got %v", m3.FirstSeen)
	}
	if m3.LastSeen == nil || !m3.LastSeen.Equal(t0.Add(time.Hour)) {
		t.Errorf("last_seen must move, got %v", m3.LastSeen)
	}
	if m3.Metadata["platform_id"] != "123" || m3.Metadata["run_status"] != "inactive" {
		t.Errorf("metadata not merged: %v", m3.Metadata)
	}

	err := s.InTx(ctx, func(tx *Tx) error {
		n, err := tx.RunCount(ctx, offerID)
		if n != 3 {
			t.Errorf("RunCount = %d", n)
		}
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestInTx_RollsBack(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()
	cat, _ := s.EnsureCategory(ctx, "Emagrecimento")

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx *Tx) error {
		if _, err := tx.UpsertOffer(ctx, nil, offerInput(cat.ID, false)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n, _ := s.CountOffers(ctx); n != 0 {
		t.Errorf("rolled back insert is visible: %d offers", n)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()
	insert := `INSERT INTO categories (id, name, slug, created_at) VALUES (?, 'A', 'a', ?)`
	if _, err := s.db.ExecContext(ctx, insert, "1", time.Now()); err != nil {
		t.Fatal(err)
	}
	_, err := s.db.ExecContext(ctx, insert, "2", time.Now())
	if !IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
	if IsUniqueViolation(errors.New("other")) || IsUniqueViolation(nil) {
		t.Error("false positive")
	}
}

func TestClassifyPing_StopsOnCredentialErrors(t *testing.T) {
	cfg := retry.Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, Multiplier: 1}
	cases := []struct {
		err      error
		attempts int
	}{
		{&pgconn.PgError{Code: "28P01"}, 1},
		{&pgconn.PgError{Code: "3D000"}, 1},
		{&pgconn.PgError{Code: "57P03"}, 3}, // cannot_connect_now: still starting
		{errors.New("connection refused"), 3},
	}
	for _, c := range cases {
		attempts := 0
		err := retry.WithRetry(context.Background(), cfg, func(ctx context.Context) error {
			attempts++
			return classifyPing(c.err)
		})
		if !errors.Is(err, c.err) {
			t.Errorf("%v: returned %v", c.err, err)
		}
		if attempts != c.attempts {
			t.Errorf("%v: %d attempts, want %d", c.err, attempts, c.attempts)
		}
	}
}
