// Package snapshot writes the per-niche audit trail of every cycle.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/law-makers/adscout/internal/utils/slug"
	"github.com/law-makers/adscout/pkg/models"
)

// Persister writes snapshots below Dir
type Persister struct {
	Dir string
	Now func() time.Time
}

// NewPersister returns a Persister writing to dir
func NewPersister(dir string) *Persister {
	return &Persister{Dir: dir, Now: time.Now}
}

// FileName returns "{epochMillis}-{slug}.json" for a niche collected at t
func FileName(niche string, t time.Time) string {
	return fmt.Sprintf("%d-%s.json", t.UnixMilli(), slug.MakeOr(niche, "niche"))
}

// Save writes {niche, collectedAt, ads} as indented JSON and returns the file path.
// The directory is created when missing.
func (p *Persister) Save(niche string, ads []models.Ad) (string, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	collectedAt := now().UTC()

	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	if ads == nil {
		ads = []models.Ad{}
	}
	content, err := json.MarshalIndent(models.Snapshot{Niche: niche, CollectedAt: collectedAt, Ads: ads}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	path := filepath.Join(p.Dir, FileName(niche, collectedAt))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// Load reads a snapshot file back
func Load(path string) (*models.Snapshot, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", filepath.Base(path), err)
	}
	return &snap, nil
}
