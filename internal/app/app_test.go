package app

import (
	"context"
	"testing"

	"github.com/law-makers/adscout/internal/auth"
	"github.com/law-makers/adscout/internal/catalog"
	"github.com/law-makers/adscout/internal/config"
)

func newTestApp(t *testing.T, secret string) *Application {
	t.Helper()
	t.Setenv("CI", "1")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SCRAPER_API_SECRET", secret)
	t.Setenv("FB_SCRAPER_NICHES", "")
	t.Setenv("CATALOG_DSN", ":memory:")

	cfg, err := config.Load(nil)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.LogLevel = "error"

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func TestNew_SecretFromEnvironment(t *testing.T) {
	a := newTestApp(t, "env-secret")
	if a.Sender.Secret != "env-secret" {
		t.Errorf("secret = %q", a.Sender.Secret)
	}
	if a.Runner.Crawler == nil || a.Runner.Snapshots == nil {
		t.Error("runner not wired")
	}
}

func TestNew_SecretFallsBackToStore(t *testing.T) {
	t.Setenv("CI", "1")
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := auth.SaveSecret("stored-secret"); err != nil {
		t.Fatalf("save secret: %v", err)
	}

	t.Setenv("SCRAPER_API_SECRET", "")
	t.Setenv("CATALOG_DSN", ":memory:")
	cfg, err := config.Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close(context.Background())

	if a.Sender.Secret != "stored-secret" {
		t.Errorf("secret = %q", a.Sender.Secret)
	}
}

func TestNiches_Filter(t *testing.T) {
	a := newTestApp(t, "x")

	all, err := a.Niches(nil)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected built-in niches, got %d (%v)", len(all), err)
	}

	some, err := a.Niches([]string{"Saúde"})
	if err != nil || len(some) != 1 || some[0].Query != "saúde" {
		t.Errorf("unexpected filter result: %+v (%v)", some, err)
	}

	if _, err := a.Niches([]string{"Nope"}); err == nil {
		t.Error("expected error for unknown niche")
	}
}

func TestOpenCatalog_Memoized(t *testing.T) {
	a := newTestApp(t, "x")
	a.Config.CatalogDriver = catalog.DriverSQLite

	first, err := a.OpenCatalog(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	second, err := a.OpenCatalog(context.Background())
	if err != nil || first != second {
		t.Error("catalog should be opened once")
	}
}
